package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash"

	"blainsmith.com/go/seahash"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/demux/demux"
)

// Checksum is an order-independent digest of a set of records: each field is
// hashed together with the read name, and the hashes are summed. Record keys
// are left out, so stores written with different parallelism compare equal.
type Checksum struct {
	// Records is the # of records added.
	Records int64
	// SumName is the sum of the read name hashes.
	SumName uint64
	// SumCluster is the sum of the cluster name hashes.
	SumCluster uint64
	// SumMatch is the sum of the hashes of the tag resolutions: outcomes,
	// tags, match coordinates and concatemers.
	SumMatch uint64
	// SumSeq is the sum of the trimmed sequence hashes.
	SumSeq uint64
	// SumQual is the sum of the trimmed quality hashes.
	SumQual uint64
}

func hashField(h hash.Hash64, name string, value []byte) uint64 {
	h.Reset()
	h.Write([]byte(name))
	h.Write([]byte{0})
	h.Write(value)
	return h.Sum64()
}

func appendEndMatch(b []byte, m demux.EndMatch) []byte {
	var tmp [8]byte
	b = append(b, byte(m.Kind))
	b = append(b, m.Tag...)
	binary.LittleEndian.PutUint32(tmp[:4], uint32(m.Start))
	binary.LittleEndian.PutUint32(tmp[4:], uint32(m.Stop))
	b = append(b, tmp[:]...)
	return append(b, byte(m.Errors))
}

func appendTagMatch(b []byte, m demux.TagMatch) []byte {
	b = append(b, byte(m.Outcome))
	b = append(b, m.Tag...)
	b = appendEndMatch(b, m.Left)
	return appendEndMatch(b, m.Right)
}

// Add adds r to the checksum.
func (c *Checksum) Add(r *demux.Record) {
	h := seahash.New()
	c.Records++
	c.SumName += hashField(h, "", []byte(r.Name))
	c.SumCluster += hashField(h, r.Name, []byte(r.Cluster))

	match := appendTagMatch(nil, r.Outer)
	match = appendTagMatch(match, r.Inner)
	match = append(match, byte(r.Concat.Kind))
	match = append(match, r.Concat.Tag...)
	c.SumMatch += hashField(h, r.Name, match)

	c.SumSeq += hashField(h, r.Name, []byte(r.Seq))
	c.SumQual += hashField(h, r.Name, r.Qual)
}

// Merge returns the checksum of the union of the two record sets.
func (c Checksum) Merge(o Checksum) Checksum {
	c.Records += o.Records
	c.SumName += o.SumName
	c.SumCluster += o.SumCluster
	c.SumMatch += o.SumMatch
	c.SumSeq += o.SumSeq
	c.SumQual += o.SumQual
	return c
}

func (c Checksum) String() string {
	return fmt.Sprintf("records:%d name:%016x cluster:%016x match:%016x seq:%016x qual:%016x",
		c.Records, c.SumName, c.SumCluster, c.SumMatch, c.SumSeq, c.SumQual)
}

// Verify recomputes the checksum of the store at path and compares it with
// the one recorded when the store was written. It returns the recomputed
// checksum.
func Verify(ctx context.Context, path string) (Checksum, error) {
	r, err := Open(ctx, path)
	if err != nil {
		return Checksum{}, err
	}
	var c Checksum
	for r.Scan() {
		c.Add(r.Record())
	}
	if err := r.Close(ctx); err != nil {
		return c, err
	}
	if want := r.Checksum(); c != want {
		return c, errors.E(errors.Integrity, fmt.Sprintf("store %s: checksum mismatch: recorded %v, computed %v", path, want, c))
	}
	return c, nil
}
