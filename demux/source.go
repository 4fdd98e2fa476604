package demux

import (
	"context"
	"fmt"
	"io"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/demux/encoding/fasta"
	"github.com/grailbio/demux/encoding/fastq"
)

// Source produces reads. Scan fills r with the next read and returns false at
// the end of the input or on error; Err then tells which.
type Source interface {
	Scan(r *Read) bool
	Err() error
}

// SliceSource serves reads from memory.
type SliceSource struct {
	reads []Read
	i     int
}

// NewSliceSource creates a Source that yields reads in order.
func NewSliceSource(reads []Read) *SliceSource {
	return &SliceSource{reads: reads}
}

// Scan implements Source.
func (s *SliceSource) Scan(r *Read) bool {
	if s.i >= len(s.reads) {
		return false
	}
	*r = s.reads[s.i]
	s.i++
	return true
}

// Err implements Source.
func (s *SliceSource) Err() error { return nil }

// Input names the read files of a run: either a FASTQ file, or a FASTA file
// and its QUAL file. QUAL is optional. Compressed files are decompressed based
// on their extension.
type Input struct {
	FASTQ string
	FASTA string
	Qual  string
}

// Validate checks that exactly one input format is given.
func (in Input) Validate() error {
	switch {
	case in.FASTQ != "" && in.FASTA != "":
		return errors.E(errors.Invalid, "both a FASTQ and a FASTA input are given")
	case in.FASTQ == "" && in.FASTA == "":
		return errors.E(errors.Invalid, "no input file given")
	case in.Qual != "" && in.FASTA == "":
		return errors.E(errors.Invalid, "a QUAL file requires a FASTA file")
	}
	return nil
}

func (in Input) String() string {
	if in.FASTQ != "" {
		return in.FASTQ
	}
	if in.Qual != "" {
		return fmt.Sprintf("%s+%s", in.FASTA, in.Qual)
	}
	return in.FASTA
}

// funcSource adapts a pair of functions to Source.
type funcSource struct {
	scan func(r *Read) bool
	err  func() error
}

func (s funcSource) Scan(r *Read) bool { return s.scan(r) }
func (s funcSource) Err() error        { return s.err() }

// NewFASTQSource creates a Source over FASTQ data. Qualities are converted to
// phred scores.
func NewFASTQSource(r io.Reader) Source {
	sc := fastq.NewScanner(r)
	var fq fastq.Read
	return funcSource{
		scan: func(r *Read) bool {
			if !sc.Scan(&fq) {
				return false
			}
			*r = Read{ID: fq.ID, Seq: fq.Seq, Qual: fq.Phred()}
			return true
		},
		err: sc.Err,
	}
}

// NewFASTASource creates a Source over FASTA data and, if qual is not nil,
// its QUAL data.
func NewFASTASource(seq, qual io.Reader) Source {
	if qual == nil {
		sc := fasta.NewScanner(seq)
		var fa fasta.Record
		return funcSource{
			scan: func(r *Read) bool {
				if !sc.Scan(&fa) {
					return false
				}
				*r = Read{ID: fa.ID, Seq: fa.Seq}
				return true
			},
			err: sc.Err,
		}
	}
	sc := fasta.NewPairScanner(seq, qual)
	var (
		fa fasta.Record
		q  fasta.QualRecord
	)
	return funcSource{
		scan: func(r *Read) bool {
			if !sc.Scan(&fa, &q) {
				return false
			}
			*r = Read{ID: fa.ID, Seq: fa.Seq, Qual: q.Qual}
			return true
		},
		err: sc.Err,
	}
}

// FileSource reads the files of an Input. It must be closed.
type FileSource struct {
	Source
	files []file.File
}

func openReader(ctx context.Context, path string) (file.File, io.Reader, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, nil, errors.E(err, fmt.Sprintf("open %s", path))
	}
	var r io.Reader = f.Reader(ctx)
	if u := compress.NewReaderPath(r, f.Name()); u != nil {
		r = u
	}
	return f, r, nil
}

// Open opens the input files.
func (in Input) Open(ctx context.Context) (*FileSource, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.FASTQ != "" {
		f, r, err := openReader(ctx, in.FASTQ)
		if err != nil {
			return nil, err
		}
		return &FileSource{Source: NewFASTQSource(r), files: []file.File{f}}, nil
	}
	f, r, err := openReader(ctx, in.FASTA)
	if err != nil {
		return nil, err
	}
	if in.Qual == "" {
		return &FileSource{Source: NewFASTASource(r, nil), files: []file.File{f}}, nil
	}
	qf, qr, err := openReader(ctx, in.Qual)
	if err != nil {
		_ = f.Close(ctx)
		return nil, err
	}
	return &FileSource{Source: NewFASTASource(r, qr), files: []file.File{f, qf}}, nil
}

// Close closes the input files.
func (s *FileSource) Close(ctx context.Context) error {
	once := errors.Once{}
	for _, f := range s.files {
		once.Set(f.Close(ctx))
	}
	return once.Err()
}

// Count pre-scans the input and returns its number of reads. For FASTA input
// only the sequence file is counted; PairScanner checks the QUAL file
// against it during the run.
func (in Input) Count(ctx context.Context) (int, error) {
	if err := in.Validate(); err != nil {
		return 0, err
	}
	path, count := in.FASTQ, fastq.Count
	if path == "" {
		path, count = in.FASTA, fasta.Count
	}
	f, r, err := openReader(ctx, path)
	if err != nil {
		return 0, err
	}
	n, err := count(r)
	once := errors.Once{}
	once.Set(err)
	once.Set(f.Close(ctx))
	if err := once.Err(); err != nil {
		return 0, errors.E(err, fmt.Sprintf("count %s", path))
	}
	return n, nil
}
