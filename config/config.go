// Package config loads the run configuration of bio-demux: a TOML file with
// one section per concern, plus optional TSV files for the tag dictionaries
// and the sample groups.
//
// A minimal configuration:
//
//   groups-file = "groups.tsv"
//
//   [input]
//   fastq = "reads.fastq.gz"
//
//   [output]
//   path = "demux.rio"
//
//   [outer-tags]
//   MID1 = "ACGAGTGCGT"
//
//   [inner-tags]
//   LNK1 = "GATTAC"
//
// Top-level keys must precede the first section. Relative paths are resolved
// against the directory of the configuration file.
package config

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/demux/demux"
	"github.com/grailbio/demux/store"
	"github.com/pelletier/go-toml/v2"
)

// Input lists the read files.
type Input struct {
	FASTQ   string `toml:"fastq"`
	FASTA   string `toml:"fasta"`
	Quality string `toml:"quality"`
}

// Output names the record store.
type Output struct {
	Path string `toml:"path"`
	// Compression is one of "zstd", "snappy" or "none".
	Compression string `toml:"compression"`
}

// Quality configures quality trimming.
type Quality struct {
	Trim     bool `toml:"trim"`
	MinScore int  `toml:"min-score"`
}

// Level configures the search of one tag level.
type Level struct {
	Fuzzy         bool `toml:"fuzzy"`
	AllowedErrors int  `toml:"allowed-errors"`
	Gap           int  `toml:"gap"`
	// Ends is "single" or "both".
	Ends string `toml:"ends"`
	// Orientation is "reverse" or "forward".
	Orientation string `toml:"orientation"`
}

// Concatemers configures concatemer detection.
type Concatemers struct {
	Check         bool `toml:"check"`
	Fuzzy         bool `toml:"fuzzy"`
	AllowedErrors int  `toml:"allowed-errors"`
}

// Search selects the searched levels.
type Search struct {
	Mode           string `toml:"mode"`
	MismatchPolicy string `toml:"mismatch-policy"`
}

// Parallelism sizes the worker pool.
type Parallelism struct {
	// Workers is "auto" or a positive integer. It defaults to 1.
	Workers interface{} `toml:"workers"`
	// Reserved is the number of CPUs kept free by "auto".
	Reserved int `toml:"reserved"`
}

// Group is one entry of the sample map.
type Group struct {
	Outer  string `toml:"outer"`
	Inner  string `toml:"inner"`
	Sample string `toml:"sample"`
}

// File mirrors the layout of the configuration file.
type File struct {
	OuterTagsFile string `toml:"outer-tags-file"`
	InnerTagsFile string `toml:"inner-tags-file"`
	GroupsFile    string `toml:"groups-file"`

	Input       Input             `toml:"input"`
	Output      Output            `toml:"output"`
	Quality     Quality           `toml:"quality"`
	Outer       Level             `toml:"outer"`
	Inner       Level             `toml:"inner"`
	Concatemers Concatemers       `toml:"concatemers"`
	Search      Search            `toml:"search"`
	Parallelism Parallelism       `toml:"parallelism"`
	OuterTags   map[string]string `toml:"outer-tags"`
	InnerTags   map[string]string `toml:"inner-tags"`
	Groups      []Group           `toml:"groups"`
}

// DefaultFile returns the values used for settings the file leaves out.
func DefaultFile() File {
	o := demux.DefaultOpts
	level := func(l demux.LevelOpts) Level {
		ends := "single"
		if l.BothEnds {
			ends = "both"
		}
		return Level{
			Fuzzy:         l.Fuzzy,
			AllowedErrors: l.AllowedErrors,
			Gap:           l.Gap,
			Ends:          ends,
			Orientation:   l.Orientation.String(),
		}
	}
	return File{
		Output:  Output{Compression: store.DefaultOpts.Compression.String()},
		Quality: Quality{Trim: o.QualTrim, MinScore: o.MinQual},
		Outer:   level(o.Outer),
		Inner:   level(o.Inner),
		Concatemers: Concatemers{
			Check:         o.Concat.Check,
			Fuzzy:         o.Concat.Fuzzy,
			AllowedErrors: o.Concat.AllowedErrors,
		},
		Search: Search{Mode: o.Mode.String(), MismatchPolicy: o.MismatchPolicy.String()},
	}
}

// Config is a loaded and validated run configuration.
type Config struct {
	Input   demux.Input
	Output  string
	Store   store.Opts
	Opts    demux.Opts
	Library demux.LibrarySpec
}

// Load reads the configuration file at path and the TSV files it refers to.
func Load(ctx context.Context, path string) (*Config, error) {
	data, err := file.ReadFile(ctx, path)
	if err != nil {
		return nil, errors.E(err, fmt.Sprintf("read config %s", path))
	}
	f, err := Parse(data)
	if err != nil {
		return nil, errors.E(err, fmt.Sprintf("config %s", path))
	}
	c, err := f.Build(ctx, file.Dir(path))
	if err != nil {
		return nil, errors.E(err, fmt.Sprintf("config %s", path))
	}
	log.Debug.Printf("config %s: input %v, output %s, mode %v, %d workers",
		path, c.Input, c.Output, c.Opts.Mode, c.Opts.Parallelism)
	return c, nil
}

// Parse decodes TOML data on top of DefaultFile. Unknown keys are errors.
func Parse(data []byte) (File, error) {
	f := DefaultFile()
	d := toml.NewDecoder(bytes.NewReader(data))
	d.DisallowUnknownFields()
	if err := d.Decode(&f); err != nil {
		switch err := err.(type) {
		case *toml.DecodeError:
			row, col := err.Position()
			return File{}, errors.E(errors.Invalid, fmt.Sprintf("line %d, column %d: %v", row, col, err))
		case *toml.StrictMissingError:
			return File{}, errors.E(errors.Invalid, fmt.Sprintf("unknown keys:\n%s", err.String()))
		}
		return File{}, errors.E(errors.Invalid, err)
	}
	return f, nil
}

// Build converts f into a Config. Relative paths are resolved against dir.
func (f File) Build(ctx context.Context, dir string) (*Config, error) {
	c := &Config{
		Input: demux.Input{
			FASTQ: resolvePath(dir, f.Input.FASTQ),
			FASTA: resolvePath(dir, f.Input.FASTA),
			Qual:  resolvePath(dir, f.Input.Quality),
		},
		Output: resolvePath(dir, f.Output.Path),
	}
	if err := c.Input.Validate(); err != nil {
		return nil, errors.E(err, "[input]")
	}
	if c.Output == "" {
		return nil, errors.E(errors.Invalid, "[output]: no path given")
	}
	var err error
	c.Store = store.DefaultOpts
	if c.Store.Compression, err = store.ParseCompression(f.Output.Compression); err != nil {
		return nil, errors.E(err, "[output]")
	}
	if c.Opts, err = f.opts(); err != nil {
		return nil, err
	}
	if c.Library, err = f.library(ctx, dir); err != nil {
		return nil, err
	}
	return c, nil
}

func (f File) opts() (demux.Opts, error) {
	var (
		o   = demux.DefaultOpts
		err error
	)
	if o.Mode, err = demux.ParseMode(f.Search.Mode); err != nil {
		return o, errors.E(err, "[search]")
	}
	if o.MismatchPolicy, err = demux.ParseMismatchPolicy(f.Search.MismatchPolicy); err != nil {
		return o, errors.E(err, "[search]")
	}
	if o.Outer, err = f.Outer.levelOpts(); err != nil {
		return o, errors.E(err, "[outer]")
	}
	if o.Inner, err = f.Inner.levelOpts(); err != nil {
		return o, errors.E(err, "[inner]")
	}
	o.Concat = demux.ConcatOpts{
		Check:         f.Concatemers.Check,
		Fuzzy:         f.Concatemers.Fuzzy,
		AllowedErrors: f.Concatemers.AllowedErrors,
	}
	o.QualTrim, o.MinQual = f.Quality.Trim, f.Quality.MinScore
	if o.Parallelism, err = f.Parallelism.workers(); err != nil {
		return o, errors.E(err, "[parallelism]")
	}
	return o, o.Validate()
}

func (l Level) levelOpts() (demux.LevelOpts, error) {
	o := demux.LevelOpts{Fuzzy: l.Fuzzy, AllowedErrors: l.AllowedErrors, Gap: l.Gap}
	switch strings.ToLower(l.Ends) {
	case "both":
		o.BothEnds = true
	case "single":
	default:
		return o, errors.E(errors.Invalid, fmt.Sprintf("ends must be single or both, got %q", l.Ends))
	}
	var err error
	o.Orientation, err = demux.ParseOrientation(l.Orientation)
	return o, err
}

// workers resolves the worker count. "auto" uses every CPU but the reserved
// ones, and at least one.
func (p Parallelism) workers() (int, error) {
	var n int
	switch v := p.Workers.(type) {
	case nil:
		return demux.DefaultOpts.Parallelism, nil
	case int64:
		n = int(v)
	case string:
		if strings.EqualFold(v, "auto") {
			n = runtime.NumCPU() - p.Reserved
			if n < 1 {
				n = 1
			}
			return n, nil
		}
		i, err := strconv.Atoi(v)
		if err != nil {
			return 0, errors.E(errors.Invalid, fmt.Sprintf("workers must be \"auto\" or a number, got %q", v))
		}
		n = i
	default:
		return 0, errors.E(errors.Invalid, fmt.Sprintf("workers must be \"auto\" or a number, got %v", v))
	}
	if n < 1 {
		return 0, errors.E(errors.Invalid, fmt.Sprintf("workers must be positive, got %d", n))
	}
	return n, nil
}

func (f File) library(ctx context.Context, dir string) (demux.LibrarySpec, error) {
	var (
		spec demux.LibrarySpec
		err  error
	)
	if spec.OuterTags, err = tags(ctx, "outer", f.OuterTags, resolvePath(dir, f.OuterTagsFile)); err != nil {
		return spec, err
	}
	if spec.InnerTags, err = tags(ctx, "inner", f.InnerTags, resolvePath(dir, f.InnerTagsFile)); err != nil {
		return spec, err
	}
	for _, g := range f.Groups {
		spec.Groups = append(spec.Groups, demux.Group{Outer: g.Outer, Inner: g.Inner, Sample: g.Sample})
	}
	if f.GroupsFile != "" {
		groups, err := ReadGroups(ctx, resolvePath(dir, f.GroupsFile))
		if err != nil {
			return spec, err
		}
		spec.Groups = append(spec.Groups, groups...)
	}
	if len(spec.Groups) == 0 {
		return spec, errors.E(errors.Invalid, "no [[groups]] and no groups-file given")
	}
	return spec, nil
}

// tags merges the inline tags of a level, sorted by name, with those of its
// TSV file.
func tags(ctx context.Context, level string, inline map[string]string, path string) ([]demux.Tag, error) {
	names := make([]string, 0, len(inline))
	for name := range inline {
		names = append(names, name)
	}
	sort.Strings(names)
	var r []demux.Tag
	for _, name := range names {
		r = append(r, demux.Tag{Name: name, Seq: inline[name]})
	}
	if path != "" {
		t, err := ReadTags(ctx, path)
		if err != nil {
			return nil, err
		}
		r = append(r, t...)
	}
	if len(r) == 0 {
		log.Debug.Printf("no %s tags defined", level)
	}
	return r, nil
}

// resolvePath resolves p against dir unless p is empty, absolute or a URL.
func resolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) || strings.Contains(p, "://") {
		return p
	}
	if strings.Contains(dir, "://") {
		return strings.TrimSuffix(dir, "/") + "/" + p
	}
	return filepath.Join(dir, p)
}
