// Package fasta streams records from FASTA files and from the QUAL files
// that accompany them on 454 style platforms. FASTA files consist of a number
// of named sequences that may be interrupted by newlines.  For example:
//
// >read1 some description
// ACGTAC
// GAGGAC
// >read2
// ACGT
//
// A QUAL file has the same layout, but its record bodies are white-space
// separated phred scores, one per base:
//
// >read1 some description
// 40 40 38 12
// 40 40 40 40 40 39 39 22
//
// Note: Record names are defined to be the stretch of characters excluding
// spaces immediately after '>'.  Any text appear after a space are ignored.
package fasta

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const maxLineLen = 16 << 20

// Record is one FASTA record.
type Record struct {
	// ID is the header line without the leading '>'.
	ID  string
	Seq string
}

// Name returns the record name: ID up to the first space.
func (r *Record) Name() string {
	return strings.SplitN(r.ID, " ", 2)[0]
}

// lineScanner groups the lines of a FASTA-like file into records.
type lineScanner struct {
	b *bufio.Scanner
	// next is the header of the next record, valid if pending.
	next    string
	pending bool
	err     error
	done    bool
}

func newLineScanner(r io.Reader) *lineScanner {
	b := bufio.NewScanner(r)
	b.Buffer(nil, maxLineLen)
	return &lineScanner{b: b}
}

// scan reads the next record, calling body for each of its body lines.
func (s *lineScanner) scan(body func(line []byte)) (id string, ok bool) {
	if s.err != nil || s.done {
		return "", false
	}
	if !s.pending {
		for {
			if !s.b.Scan() {
				s.err = s.b.Err()
				s.done = true
				return "", false
			}
			line := s.b.Bytes()
			if len(line) == 0 {
				continue
			}
			if line[0] != '>' {
				s.err = errors.Errorf("malformed FASTA file: data before the first header: %.32q", line)
				return "", false
			}
			s.next = string(line[1:])
			break
		}
	}
	id = s.next
	s.pending = false
	for s.b.Scan() {
		line := s.b.Bytes()
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			s.next, s.pending = string(line[1:]), true
			return id, true
		}
		body(line)
	}
	if s.err = s.b.Err(); s.err == nil {
		s.done = true
	}
	return id, s.err == nil
}

// Scanner reads FASTA records one at a time. Scanners are not threadsafe.
type Scanner struct {
	s   *lineScanner
	seq bytes.Buffer
}

// NewScanner creates a Scanner that reads FASTA data from r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{s: newLineScanner(r)}
}

// Scan reads the next record into rec. It returns false at the end of the
// input or on error; the user should then check Err.
func (s *Scanner) Scan(rec *Record) bool {
	s.seq.Reset()
	id, ok := s.s.scan(func(line []byte) {
		s.seq.Write(bytes.TrimSpace(line))
	})
	if !ok {
		return false
	}
	rec.ID = id
	rec.Seq = s.seq.String()
	return true
}

// Err returns the scanning error, if any.
func (s *Scanner) Err() error {
	if s.s.err != nil {
		return errors.Wrap(s.s.err, "couldn't read FASTA data")
	}
	return nil
}

// QualRecord is one QUAL record.
type QualRecord struct {
	ID   string
	Qual []byte
}

// QualScanner reads QUAL records one at a time.
type QualScanner struct {
	s    *lineScanner
	qual []byte
	err  error
}

// NewQualScanner creates a QualScanner that reads QUAL data from r.
func NewQualScanner(r io.Reader) *QualScanner {
	return &QualScanner{s: newLineScanner(r)}
}

// Scan reads the next record into rec.
func (s *QualScanner) Scan(rec *QualRecord) bool {
	if s.err != nil {
		return false
	}
	s.qual = s.qual[:0]
	id, ok := s.s.scan(func(line []byte) {
		for _, f := range strings.Fields(string(line)) {
			v, err := strconv.ParseUint(f, 10, 8)
			if err != nil && s.err == nil {
				s.err = errors.Wrapf(err, "bad quality value %q", f)
			}
			s.qual = append(s.qual, byte(v))
		}
	})
	if !ok || s.err != nil {
		return false
	}
	rec.ID = id
	rec.Qual = append([]byte(nil), s.qual...)
	return true
}

// Err returns the scanning error, if any.
func (s *QualScanner) Err() error {
	if s.err != nil {
		return s.err
	}
	if s.s.err != nil {
		return errors.Wrap(s.s.err, "couldn't read QUAL data")
	}
	return nil
}

// PairScanner reads a FASTA file and its QUAL file in lock step.
type PairScanner struct {
	seq  *Scanner
	qual *QualScanner
	err  error
}

// NewPairScanner creates a PairScanner over FASTA data seq and QUAL data qual.
func NewPairScanner(seq, qual io.Reader) *PairScanner {
	return &PairScanner{seq: NewScanner(seq), qual: NewQualScanner(qual)}
}

// Scan reads the next pair of records. The two records must have the same
// name and as many qualities as bases.
func (p *PairScanner) Scan(rec *Record, q *QualRecord) bool {
	if p.err != nil {
		return false
	}
	ok1 := p.seq.Scan(rec)
	ok2 := p.qual.Scan(q)
	if ok1 != ok2 {
		if p.seq.Err() == nil && p.qual.Err() == nil {
			p.err = errors.New("FASTA and QUAL files have different numbers of records")
		}
		return false
	}
	if !ok1 {
		return false
	}
	if rec.Name() != strings.SplitN(q.ID, " ", 2)[0] {
		p.err = errors.Errorf("FASTA record %s is paired with QUAL record %s", rec.Name(), q.ID)
		return false
	}
	if len(rec.Seq) != len(q.Qual) {
		p.err = errors.Errorf("record %s: %d bases but %d qualities", rec.Name(), len(rec.Seq), len(q.Qual))
		return false
	}
	return true
}

// Err returns the scanning error, if any.
func (p *PairScanner) Err() error {
	if err := p.seq.Err(); err != nil {
		return err
	}
	if err := p.qual.Err(); err != nil {
		return err
	}
	return p.err
}

// Count returns the number of records in FASTA data r.
func Count(r io.Reader) (int, error) {
	s := newLineScanner(r)
	n := 0
	for {
		if _, ok := s.scan(func([]byte) {}); !ok {
			break
		}
		n++
	}
	if s.err != nil {
		return n, errors.Wrap(s.err, "couldn't read FASTA data")
	}
	return n, nil
}
