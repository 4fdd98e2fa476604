// Package fastq reads and writes FASTQ files.
package fastq

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
)

var (
	// ErrShort is returned when a truncated FASTQ file is encountered.
	ErrShort = errors.New("short FASTQ file")
	// ErrInvalid is returned when an invalid FASTQ file is encountered.
	ErrInvalid = errors.New("invalid FASTQ file")
)

// PhredOffset is the ASCII offset of FASTQ quality strings.
const PhredOffset = 33

// maxLineLen bounds the length of one FASTQ line. Long-read platforms produce
// lines well beyond bufio's 64KiB default.
const maxLineLen = 16 << 20

// A Read is a FASTQ read, comprising an ID, sequence, line 3
// ("unknown"), and a quality string.
type Read struct {
	ID, Seq, Unk, Qual string
}

// Phred decodes the quality string into phred scores.
func (r *Read) Phred() []byte {
	q := make([]byte, len(r.Qual))
	for i := 0; i < len(r.Qual); i++ {
		if r.Qual[i] >= PhredOffset {
			q[i] = r.Qual[i] - PhredOffset
		}
	}
	return q
}

// EncodePhred encodes phred scores as a FASTQ quality string.
func EncodePhred(q []byte) string {
	b := make([]byte, len(q))
	for i, v := range q {
		b[i] = v + PhredOffset
	}
	return string(b)
}

var errEOF = errors.New("eof")

// Scanner provides a convenient interface for reading FASTQ read
// data. The Scan method returns the next read, returning a boolean
// indicating whether the read succeeded. Scanners are not
// threadsafe.
//
// Scanner requires ID lines to begin with "@", line 3 to begin with "+",
// and the sequence and quality lines to have equal length.
type Scanner struct {
	b   *bufio.Scanner
	n   int
	err error
}

// NewScanner constructs a new Scanner that reads raw FASTQ data from the
// provided reader.
func NewScanner(r io.Reader) *Scanner {
	b := bufio.NewScanner(r)
	b.Buffer(nil, maxLineLen)
	return &Scanner{b: b}
}

// Scan the next read into the provided read. Scan returns a boolean
// indicating whether the scan succeeded. Once Scan returns false, it
// never returns true again. Upon completion, the user should check
// the Err method to determine whether scanning stopped because of an
// error or because the end of the stream was reached.
func (f *Scanner) Scan(read *Read) bool {
	if f.err != nil {
		return false
	}
	if !f.b.Scan() {
		if f.err = f.b.Err(); f.err == nil {
			f.err = errEOF
		}
		return false
	}
	id := f.b.Bytes()
	if len(id) == 0 || id[0] != '@' {
		f.err = errors.Wrapf(ErrInvalid, "record %d: ID line does not start with '@'", f.n)
		return false
	}
	read.ID = string(id)
	if !f.scan() {
		return false
	}
	read.Seq = f.b.Text()
	if !f.scan() {
		return false
	}
	unk := f.b.Bytes()
	if len(unk) == 0 || unk[0] != '+' {
		f.err = errors.Wrapf(ErrInvalid, "record %d (%s): line 3 does not start with '+'", f.n, read.ID)
		return false
	}
	read.Unk = string(unk)
	if !f.scan() {
		return false
	}
	read.Qual = f.b.Text()
	if len(read.Qual) != len(read.Seq) {
		f.err = errors.Wrapf(ErrInvalid, "record %d (%s): %d bases but %d qualities",
			f.n, read.ID, len(read.Seq), len(read.Qual))
		return false
	}
	f.n++
	return true
}

func (f *Scanner) scan() bool {
	ok := f.b.Scan()
	if !ok {
		if f.err = f.b.Err(); f.err == nil {
			f.err = ErrShort
		}
	}
	return ok
}

// Err returns the scanning error, if any.
func (f *Scanner) Err() error {
	if f.err == errEOF {
		return nil
	}
	return f.err
}

// Count returns the number of reads in r. It validates the record structure
// the same way Scanner does.
func Count(r io.Reader) (int, error) {
	s := NewScanner(r)
	var read Read
	for s.Scan(&read) {
	}
	return s.n, s.Err()
}
