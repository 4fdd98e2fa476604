// Package store persists classified reads in a recordio file. Each record is
// addressed by its Key, the 1-based order in which the Writer received it. The
// trailer holds the run statistics, a checksum of the records and a block
// index that lets Reader fetch a record by key without scanning.
package store

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"

	"github.com/golang/snappy"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/recordio"
	"github.com/grailbio/base/recordio/recordiozstd"
	"github.com/grailbio/demux/demux"
)

func init() {
	recordiozstd.Init()
}

const (
	version           = "1"
	versionHeader     = "demux-version"
	compressionHeader = "demux-compression"
)

// trailer is gob encoded into the recordio trailer.
type trailer struct {
	Records  int64
	Stats    demux.Stats
	Checksum Checksum
	// BlockStarts[i] is the file offset of the i'th recordio block, and
	// BlockKeys[i] the key of its first record.
	BlockStarts []uint64
	BlockKeys   []int64
}

// Writer stores records. It implements demux.Sink. Put must not be called
// concurrently.
type Writer struct {
	path   string
	opts   Opts
	out    file.File
	rio    recordio.Writer
	n      int64
	t      trailer
	err    errors.Once
	closed bool
}

// Create creates a store at path.
func Create(ctx context.Context, path string, opts Opts) (*Writer, error) {
	if opts.BlockRecords <= 0 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("create %s: block records must be positive, got %d", path, opts.BlockRecords))
	}
	out, err := file.Create(ctx, path)
	if err != nil {
		return nil, errors.E(err, fmt.Sprintf("create %s", path))
	}
	w := &Writer{path: path, opts: opts, out: out}
	wopts := recordio.WriterOpts{
		Marshal: w.marshal,
		Index:   w.index,
	}
	if opts.Compression == Zstd {
		wopts.Transformers = []string{recordiozstd.Name}
	}
	w.rio = recordio.NewWriter(out.Writer(ctx), wopts)
	w.rio.AddHeader(versionHeader, version)
	w.rio.AddHeader(compressionHeader, opts.Compression.String())
	w.rio.AddHeader(recordio.KeyTrailer, true)
	return w, nil
}

func (w *Writer) marshal(scratch []byte, v interface{}) ([]byte, error) {
	e := encoder{buf: scratch[:0]}
	e.putRecord(v.(*demux.Record))
	if w.opts.Compression == Snappy {
		return snappy.Encode(nil, e.buf), nil
	}
	return e.buf, nil
}

// index is called for every record, in key order, as its block is written.
func (w *Writer) index(loc recordio.ItemLocation, v interface{}) error {
	if loc.Item == 0 {
		w.t.BlockStarts = append(w.t.BlockStarts, loc.Block)
		w.t.BlockKeys = append(w.t.BlockKeys, v.(*demux.Record).Key)
	}
	return nil
}

// Put assigns the next key to rec and appends it to the store. The store
// keeps rec until the Writer is closed; the caller must not modify it.
func (w *Writer) Put(rec *demux.Record) error {
	if w.closed {
		return errors.E(errors.Precondition, fmt.Sprintf("store %s is closed", w.path))
	}
	w.n++
	rec.Key = w.n
	w.t.Stats.Add(rec)
	w.t.Checksum.Add(rec)
	w.rio.Append(rec)
	if w.n%int64(w.opts.BlockRecords) == 0 {
		w.rio.Flush()
	}
	return nil
}

// Stats returns the statistics of the records put so far.
func (w *Writer) Stats() demux.Stats { return w.t.Stats }

// Close writes the trailer and closes the file.
func (w *Writer) Close(ctx context.Context) error {
	if w.closed {
		return w.err.Err()
	}
	w.closed = true
	// The index callbacks of the last block run during Flush.
	w.rio.Flush()
	w.rio.Wait()
	w.t.Records = w.n
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&w.t); err != nil {
		w.err.Set(errors.E(err, "encode trailer"))
	} else {
		w.rio.SetTrailer(buf.Bytes())
	}
	w.err.Set(w.rio.Finish())
	w.err.Set(w.out.Close(ctx))
	if err := w.err.Err(); err != nil {
		return errors.E(err, fmt.Sprintf("close %s", w.path))
	}
	log.Printf("stored %d records in %s (%d blocks)", w.n, w.path, len(w.t.BlockStarts))
	return nil
}
