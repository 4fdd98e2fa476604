package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/demux/demux"
	"github.com/grailbio/demux/encoding/fastq"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/klauspost/compress/gzip"
)

// Format is an export file format.
type Format uint8

const (
	FASTQ Format = iota
	FASTA
	// BAM writes unmapped records. The cluster, barcode and match methods are
	// stored in aux tags.
	BAM
)

var formatNames = [...]string{"fastq", "fasta", "bam"}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("Format(%d)", f)
}

// ParseFormat converts "fastq", "fasta" or "bam" into a Format.
func ParseFormat(s string) (Format, error) {
	for i, name := range formatNames {
		if strings.EqualFold(s, name) {
			return Format(i), nil
		}
	}
	return 0, errors.E(errors.Invalid, fmt.Sprintf("unknown export format %q, expect one of %v", s, formatNames))
}

// ConcatFilter selects records by concatemer status.
type ConcatFilter uint8

const (
	// AllReads exports every record.
	AllReads ConcatFilter = iota
	// OnlyConcat exports concatemers only.
	OnlyConcat
	// NoConcat drops concatemers.
	NoConcat
)

var concatFilterNames = [...]string{"all", "only", "exclude"}

func (c ConcatFilter) String() string {
	if int(c) < len(concatFilterNames) {
		return concatFilterNames[c]
	}
	return fmt.Sprintf("ConcatFilter(%d)", c)
}

// ParseConcatFilter converts "all", "only" or "exclude" into a ConcatFilter.
func ParseConcatFilter(s string) (ConcatFilter, error) {
	for i, name := range concatFilterNames {
		if strings.EqualFold(s, name) {
			return ConcatFilter(i), nil
		}
	}
	return 0, errors.E(errors.Invalid, fmt.Sprintf("unknown concatemer filter %q, expect one of %v", s, concatFilterNames))
}

func (c ConcatFilter) keep(rec *demux.Record) bool {
	switch c {
	case OnlyConcat:
		return rec.Concat.Found()
	case NoConcat:
		return !rec.Concat.Found()
	}
	return true
}

// DefaultQual is the phred score written to FASTQ for reads stored without
// qualities.
const DefaultQual = 40

// ExportOpts configures Export.
type ExportOpts struct {
	Format Format
	// Gzip compresses FASTQ and FASTA output. BAM output is always compressed.
	Gzip bool
	// Clusters lists the clusters to export. Empty means all of them.
	Clusters []string
	Concat   ConcatFilter
	// Dir is the output directory. Each cluster is written to
	// Dir/<cluster>.<format>[.gz].
	Dir string
}

// ExportPath returns the path of the file that Export writes cluster to.
func ExportPath(opts ExportOpts, cluster string) string {
	name := strings.Replace(cluster, "/", "_", -1) + "." + opts.Format.String()
	if opts.Gzip && opts.Format != BAM {
		name += ".gz"
	}
	if opts.Dir == "" {
		return name
	}
	return strings.TrimSuffix(opts.Dir, "/") + "/" + name
}

type exportFile struct {
	path string
	out  file.File
	gz   *gzip.Writer
	fq   *fastq.Writer
	bam  *bam.Writer
	n    int64
}

func createExportFile(ctx context.Context, opts ExportOpts, header *sam.Header, cluster string) (*exportFile, error) {
	f := &exportFile{path: ExportPath(opts, cluster)}
	out, err := file.Create(ctx, f.path)
	if err != nil {
		return nil, errors.E(err, fmt.Sprintf("create %s", f.path))
	}
	f.out = out
	var w io.Writer = out.Writer(ctx)
	switch opts.Format {
	case BAM:
		if f.bam, err = bam.NewWriter(w, header, 1); err != nil {
			_ = out.Close(ctx)
			return nil, errors.E(err, fmt.Sprintf("create %s", f.path))
		}
		return f, nil
	}
	if opts.Gzip {
		f.gz = gzip.NewWriter(w)
		w = f.gz
	}
	if opts.Format == FASTA {
		f.fq = fastq.NewFASTAWriter(w)
	} else {
		f.fq = fastq.NewWriter(w)
	}
	return f, nil
}

func (f *exportFile) write(rec *demux.Record) error {
	f.n++
	if f.bam != nil {
		r, err := bamRecord(rec)
		if err != nil {
			return err
		}
		return f.bam.Write(r)
	}
	return f.fq.Write(fastqRead(rec))
}

func (f *exportFile) close(ctx context.Context) error {
	var err errors.Once
	if f.bam != nil {
		err.Set(f.bam.Close())
	}
	if f.gz != nil {
		err.Set(f.gz.Close())
	}
	err.Set(f.out.Close(ctx))
	if err.Err() != nil {
		return errors.E(err.Err(), fmt.Sprintf("close %s", f.path))
	}
	return nil
}

func fastqRead(rec *demux.Record) *fastq.Read {
	qual := rec.Qual
	if qual == nil {
		qual = bytes.Repeat([]byte{DefaultQual}, len(rec.Seq))
	}
	return &fastq.Read{
		ID:   rec.Name + " " + rec.Cluster,
		Seq:  rec.Seq,
		Unk:  "+",
		Qual: fastq.EncodePhred(qual),
	}
}

// barcode joins the read text of the resolved outer and inner tags.
func barcode(rec *demux.Record) string {
	var parts []string
	for _, m := range []demux.TagMatch{rec.Outer, rec.Inner} {
		if m.Resolved() {
			parts = append(parts, m.Text())
		}
	}
	return strings.Join(parts, "-")
}

// Aux tags written to BAM records.
var (
	clusterTag = sam.NewTag("XC")
	barcodeTag = sam.NewTag("BC")
	outerTag   = sam.NewTag("XO")
	innerTag   = sam.NewTag("XI")
	concatTag  = sam.NewTag("XK")
)

func bamRecord(rec *demux.Record) (*sam.Record, error) {
	qual := rec.Qual
	if qual == nil {
		qual = bytes.Repeat([]byte{0xff}, len(rec.Seq))
	}
	var aux []sam.Aux
	for _, f := range []struct {
		tag sam.Tag
		val string
	}{
		{clusterTag, rec.Cluster},
		{barcodeTag, barcode(rec)},
		{outerTag, rec.Outer.Method()},
		{innerTag, rec.Inner.Method()},
		{concatTag, rec.Concat.Method()},
	} {
		if f.val == "" {
			continue
		}
		a, err := sam.NewAux(f.tag, f.val)
		if err != nil {
			return nil, errors.E(err, fmt.Sprintf("read %s: aux tag %s", rec.Name, f.tag))
		}
		aux = append(aux, a)
	}
	return &sam.Record{
		Name:      rec.Name,
		Pos:       -1,
		MatePos:   -1,
		Flags:     sam.Unmapped,
		Seq:       sam.NewSeq([]byte(rec.Seq)),
		Qual:      append([]byte{}, qual...),
		AuxFields: aux,
	}, nil
}

// Export writes the records of the store at path into one file per cluster,
// and returns the number of records written per cluster. Clusters without
// selected records get no file.
func Export(ctx context.Context, path string, opts ExportOpts) (counts map[string]int64, err error) {
	if opts.Format > BAM {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("export %s: bad format %v", path, opts.Format))
	}
	r, err := Open(ctx, path)
	if err != nil {
		return nil, err
	}
	var header *sam.Header
	if opts.Format == BAM {
		if header, err = sam.NewHeader(nil, nil); err != nil {
			_ = r.Close(ctx)
			return nil, err
		}
	}
	want := map[string]bool{}
	for _, c := range opts.Clusters {
		want[c] = true
	}
	files := map[string]*exportFile{}
	var once errors.Once
	for r.Scan() {
		rec := r.Record()
		if len(want) > 0 && !want[rec.Cluster] || !opts.Concat.keep(rec) {
			continue
		}
		f := files[rec.Cluster]
		if f == nil {
			if f, err = createExportFile(ctx, opts, header, rec.Cluster); err != nil {
				once.Set(err)
				break
			}
			files[rec.Cluster] = f
		}
		if err = f.write(rec); err != nil {
			once.Set(errors.E(err, fmt.Sprintf("write %s", f.path)))
			break
		}
	}
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	counts = map[string]int64{}
	for _, name := range names {
		f := files[name]
		once.Set(f.close(ctx))
		counts[name] = f.n
		log.Debug.Printf("export: %d records to %s", f.n, f.path)
	}
	once.Set(r.Close(ctx))
	if err := once.Err(); err != nil {
		return nil, err
	}
	log.Printf("export: %d clusters from %s to %s", len(counts), path, opts.Dir)
	return counts, nil
}
