// Package cmd implements the bio-demux subcommands.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/demux/store"
	"v.io/x/lib/cmdline"
)

func newCmdRun() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "run",
		Short:    "Classify reads by their tags and store the results",
		ArgsName: "config.toml",
		Long: `
Run reads the input files named by the configuration file, resolves the outer
and inner tags of every read, assigns it to a sample, and writes one record per
read to the output store. The run statistics are printed as a two-column TSV.`,
	}
	flags := runFlags{}
	cmd.Flags.IntVar(&flags.workers, "workers", 0, "Number of classification workers. If 0, [parallelism] of the configuration file is used.")
	cmd.Flags.StringVar(&flags.output, "output", "", "Output store path. If empty, [output] path of the configuration file is used.")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("run takes one configuration path, but got %v", argv)
		}
		return runDemux(vcontext.Background(), argv[0], flags, env.Stdout)
	})
	return cmd
}

func newCmdView() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "view",
		Short:    "List stored records as TSV",
		ArgsName: "store",
	}
	flags := viewFlags{}
	cmd.Flags.Int64Var(&flags.key, "key", 0, "Show only the record with this key")
	cmd.Flags.StringVar(&flags.name, "name", "", "Show only the records of the read with this name")
	cmd.Flags.StringVar(&flags.cluster, "cluster", "", "Show only the records of this cluster")
	cmd.Flags.IntVar(&flags.limit, "limit", 0, "Show at most this many records. 0 means no limit.")
	cmd.Flags.BoolVar(&flags.seq, "seq", false, "Add the trimmed sequence column")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("view takes one store path, but got %v", argv)
		}
		return view(vcontext.Background(), argv[0], flags, env.Stdout)
	})
	return cmd
}

func newCmdExport() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "export",
		Short:    "Write the stored reads into one file per cluster",
		ArgsName: "store",
	}
	format := cmd.Flags.String("format", "fastq", "Output format: fastq, fasta or bam")
	gzip := cmd.Flags.Bool("gzip", false, "Gzip the fastq and fasta output")
	clusters := cmd.Flags.String("clusters", "", "Comma-separated list of the clusters to export. If empty, all clusters are exported.")
	concat := cmd.Flags.String("concatemers", "all", "all exports every read, only exports concatemers, exclude drops them")
	dir := cmd.Flags.String("dir", ".", "Output directory")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("export takes one store path, but got %v", argv)
		}
		opts := store.ExportOpts{Gzip: *gzip, Dir: *dir}
		var err error
		if opts.Format, err = store.ParseFormat(*format); err != nil {
			return err
		}
		if opts.Concat, err = store.ParseConcatFilter(*concat); err != nil {
			return err
		}
		if *clusters != "" {
			opts.Clusters = strings.Split(*clusters, ",")
		}
		return export(vcontext.Background(), argv[0], opts, env.Stdout)
	})
	return cmd
}

func newCmdChecksum() *cmdline.Command {
	cmd := &cmdline.Command{
		Name: "checksum",
		Short: `Verify the checksum of a store.
The checksum is an order-independent digest of the stored records, so stores
written with different numbers of workers have the same checksum.`,
		ArgsName: "store",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("checksum takes one store path, but got %v", argv)
		}
		return checksum(vcontext.Background(), argv[0], env.Stdout)
	})
	return cmd
}

// Run runs the bio-demux command line and exits.
func Run() {
	shutdown := grail.Init()
	cmdline.HideGlobalFlagsExcept()
	root := &cmdline.Command{
		Name:     "bio-demux",
		Short:    "Demultiplex long reads by their outer and inner tags",
		LookPath: false,
		Children: []*cmdline.Command{
			newCmdRun(),
			newCmdView(),
			newCmdExport(),
			newCmdChecksum(),
		},
	}
	env := cmdline.EnvFromOS()
	err := cmdline.ParseAndRun(root, env, os.Args[1:])
	shutdown()
	os.Exit(cmdline.ExitCode(err, env.Stderr))
}
