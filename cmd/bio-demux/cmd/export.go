package cmd

import (
	"context"
	"io"
	"sort"
	"strconv"

	"github.com/grailbio/base/tsv"
	"github.com/grailbio/demux/store"
)

// export writes the clusters of the store at path and prints one (path, #
// records) row per written file.
func export(ctx context.Context, path string, opts store.ExportOpts, out io.Writer) error {
	counts, err := store.Export(ctx, path, opts)
	if err != nil {
		return err
	}
	clusters := make([]string, 0, len(counts))
	for c := range counts {
		clusters = append(clusters, c)
	}
	sort.Strings(clusters)
	w := tsv.NewWriter(out)
	for _, c := range clusters {
		w.WriteString(store.ExportPath(opts, c))
		w.WriteString(strconv.FormatInt(counts[c], 10))
		if err := w.EndLine(); err != nil {
			return err
		}
	}
	return w.Flush()
}
