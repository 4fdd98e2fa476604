package store

import (
	"encoding/binary"
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/demux/demux"
)

// encoder appends the fields of a record to buf. Integers are varints,
// strings and byte slices are length prefixed.
type encoder struct {
	buf []byte
	tmp [binary.MaxVarintLen64]byte
}

func (e *encoder) putUvarint(v uint64) {
	n := binary.PutUvarint(e.tmp[:], v)
	e.buf = append(e.buf, e.tmp[:n]...)
}

func (e *encoder) putVarint(v int64) {
	n := binary.PutVarint(e.tmp[:], v)
	e.buf = append(e.buf, e.tmp[:n]...)
}

func (e *encoder) putString(s string) {
	e.putUvarint(uint64(len(s)))
	e.buf = append(e.buf, s...)
}

// putBytes distinguishes nil from empty: the length is stored plus one, and
// zero means nil.
func (e *encoder) putBytes(b []byte) {
	if b == nil {
		e.putUvarint(0)
		return
	}
	e.putUvarint(uint64(len(b)) + 1)
	e.buf = append(e.buf, b...)
}

func (e *encoder) putEndMatch(m demux.EndMatch) {
	e.buf = append(e.buf, byte(m.Kind))
	if m.Kind == demux.NoMatch {
		return
	}
	e.putString(m.Tag)
	e.putVarint(int64(m.Start))
	e.putVarint(int64(m.Stop))
	e.putString(m.Text)
	e.putVarint(int64(m.Errors))
}

func (e *encoder) putTagMatch(m demux.TagMatch) {
	e.buf = append(e.buf, byte(m.Outcome))
	e.putString(m.Tag)
	e.putString(m.Name)
	e.putEndMatch(m.Left)
	e.putEndMatch(m.Right)
}

func (e *encoder) putRecord(r *demux.Record) {
	e.putVarint(r.Key)
	e.putString(r.Name)
	e.putTagMatch(r.Outer)
	e.putTagMatch(r.Inner)
	e.putString(r.Cluster)
	e.buf = append(e.buf, byte(r.Concat.Kind))
	if r.Concat.Found() {
		e.putString(r.Concat.Tag)
		e.putString(r.Concat.Name)
		e.putVarint(int64(r.Concat.Start))
		e.putVarint(int64(r.Concat.Stop))
		e.putString(r.Concat.Text)
	}
	e.putString(r.Seq)
	e.putBytes(r.Qual)
	e.putVarint(int64(r.UntrimmedLen))
}

var errCorrupt = errors.E(errors.Integrity, "corrupt record")

// decoder reads fields written by encoder. The first failure sticks in err.
type decoder struct {
	buf []byte
	err error
}

func (d *decoder) uvarint() uint64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Uvarint(d.buf)
	if n <= 0 {
		d.err = errCorrupt
		return 0
	}
	d.buf = d.buf[n:]
	return v
}

func (d *decoder) varint() int64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Varint(d.buf)
	if n <= 0 {
		d.err = errCorrupt
		return 0
	}
	d.buf = d.buf[n:]
	return v
}

func (d *decoder) readByte() byte {
	if d.err != nil {
		return 0
	}
	if len(d.buf) == 0 {
		d.err = errCorrupt
		return 0
	}
	b := d.buf[0]
	d.buf = d.buf[1:]
	return b
}

func (d *decoder) next(n uint64) []byte {
	if d.err != nil {
		return nil
	}
	if uint64(len(d.buf)) < n {
		d.err = errCorrupt
		return nil
	}
	b := d.buf[:n:n]
	d.buf = d.buf[n:]
	return b
}

func (d *decoder) readString() string { return string(d.next(d.uvarint())) }

func (d *decoder) readBytes() []byte {
	n := d.uvarint()
	if n == 0 {
		return nil
	}
	return append([]byte{}, d.next(n-1)...)
}

func (d *decoder) matchKind() demux.MatchKind {
	k := demux.MatchKind(d.readByte())
	if k > demux.Fuzzy && d.err == nil {
		d.err = errCorrupt
	}
	return k
}

func (d *decoder) endMatch() (m demux.EndMatch) {
	m.Kind = d.matchKind()
	if m.Kind == demux.NoMatch {
		return
	}
	m.Tag = d.readString()
	m.Start = int(d.varint())
	m.Stop = int(d.varint())
	m.Text = d.readString()
	m.Errors = int(d.varint())
	return
}

func (d *decoder) tagMatch() (m demux.TagMatch) {
	if m.Outcome = demux.Outcome(d.readByte()); m.Outcome >= demux.NumOutcomes && d.err == nil {
		d.err = errCorrupt
	}
	m.Tag = d.readString()
	m.Name = d.readString()
	m.Left = d.endMatch()
	m.Right = d.endMatch()
	return
}

func (d *decoder) record() (*demux.Record, error) {
	r := &demux.Record{}
	r.Key = d.varint()
	r.Name = d.readString()
	r.Outer = d.tagMatch()
	r.Inner = d.tagMatch()
	r.Cluster = d.readString()
	r.Concat.Kind = d.matchKind()
	if r.Concat.Found() {
		r.Concat.Tag = d.readString()
		r.Concat.Name = d.readString()
		r.Concat.Start = int(d.varint())
		r.Concat.Stop = int(d.varint())
		r.Concat.Text = d.readString()
	}
	r.Seq = d.readString()
	r.Qual = d.readBytes()
	r.UntrimmedLen = int(d.varint())
	if d.err == nil && len(d.buf) != 0 {
		d.err = errCorrupt
	}
	if d.err != nil {
		return nil, errors.E(d.err, fmt.Sprintf("key %d", r.Key))
	}
	return r, nil
}
