package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/demux/config"
	"github.com/grailbio/demux/demux"
	"github.com/grailbio/demux/store"
)

type runFlags struct {
	// workers overrides the configured parallelism when positive.
	workers int
	// output overrides the configured store path when set.
	output string
}

func runDemux(ctx context.Context, configPath string, flags runFlags, out io.Writer) error {
	c, err := config.Load(ctx, configPath)
	if err != nil {
		return err
	}
	if flags.workers > 0 {
		c.Opts.Parallelism = flags.workers
	}
	if flags.output != "" {
		c.Output = flags.output
	}
	lib, err := demux.NewLibrary(c.Library, c.Opts)
	if err != nil {
		return err
	}
	total := -1
	if c.Opts.Parallelism > 1 {
		if total, err = c.Input.Count(ctx); err != nil {
			return err
		}
		log.Printf("%v: %d reads", c.Input, total)
	}
	src, err := c.Input.Open(ctx)
	if err != nil {
		return err
	}
	w, err := store.Create(ctx, c.Output, c.Store)
	if err != nil {
		_ = src.Close(ctx)
		return err
	}
	start := time.Now()
	stats, err := demux.Run(ctx, lib, c.Opts, src, total, w)
	var once errors.Once
	once.Set(err)
	once.Set(src.Close(ctx))
	once.Set(w.Close(ctx))
	if err := once.Err(); err != nil {
		return err
	}
	log.Printf("classified %d reads from %v in %v, %d workers", stats.Reads, c.Input, time.Since(start), c.Opts.Parallelism)
	return writeStats(out, stats, lib.Samples())
}

// writeStats prints stats as (name, value) rows. Clusters are listed in
// samples order, followed by the unassigned reads.
func writeStats(out io.Writer, stats demux.Stats, samples []string) error {
	w := tsv.NewWriter(out)
	row := func(name string, n int) error {
		w.WriteString(name)
		w.WriteString(strconv.Itoa(n))
		return w.EndLine()
	}
	if err := row("reads", stats.Reads); err != nil {
		return err
	}
	if err := row("assigned", stats.Assigned); err != nil {
		return err
	}
	if err := row("concatemers", stats.Concatemers); err != nil {
		return err
	}
	for o, n := range stats.Outer {
		if err := row(fmt.Sprintf("outer-%v", demux.Outcome(o)), n); err != nil {
			return err
		}
	}
	for o, n := range stats.Inner {
		if err := row(fmt.Sprintf("inner-%v", demux.Outcome(o)), n); err != nil {
			return err
		}
	}
	for _, s := range append(append([]string{}, samples...), demux.Unassigned) {
		if err := row("cluster-"+s, stats.Clusters[s]); err != nil {
			return err
		}
	}
	return w.Flush()
}
