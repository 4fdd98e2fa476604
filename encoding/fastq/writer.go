package fastq

import (
	"io"
	"strings"
)

var newline = []byte{'\n'}

// Writer writes reads in FASTQ, or FASTA when constructed with NewFASTAWriter.
type Writer struct {
	w     io.Writer
	fasta bool
	err   error
}

// NewWriter constructs a new FASTQ writer
// that writes reads to the underlying writer w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// NewFASTAWriter constructs a writer that drops line 3 and the qualities,
// and starts each record with '>'.
func NewFASTAWriter(w io.Writer) *Writer {
	return &Writer{w: w, fasta: true}
}

// Write writes the read r. A leading '@' or '>' of r.ID is replaced by the
// marker of the output format. An error is returned if the write failed.
func (w *Writer) Write(r *Read) error {
	id := strings.TrimLeft(r.ID, "@>")
	if w.fasta {
		w.writeln(">", id)
		w.writeln("", r.Seq)
		return w.err
	}
	unk := r.Unk
	if unk == "" {
		unk = "+"
	}
	w.writeln("@", id)
	w.writeln("", r.Seq)
	w.writeln("", unk)
	w.writeln("", r.Qual)
	return w.err
}

func (w *Writer) writeln(prefix, line string) {
	if w.err != nil {
		return
	}
	if prefix != "" {
		if _, w.err = io.WriteString(w.w, prefix); w.err != nil {
			return
		}
	}
	_, w.err = io.WriteString(w.w, line)
	if w.err == nil {
		_, w.err = w.w.Write(newline)
	}
}
