package store

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"sort"

	"github.com/dgryski/go-farm"
	"github.com/golang/snappy"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/recordio"
	"github.com/grailbio/demux/demux"
)

// Reader reads a store written by Writer.
//
// Scan iterates over the records in key order. Get and LookupName seek: after
// them, Scan resumes after the record they fetched.
type Reader struct {
	path        string
	in          file.File
	sc          recordio.Scanner
	t           trailer
	compression Compression
	rec         *demux.Record
	// names maps the fingerprint of a read name to the keys of the records
	// with that name. It is built on the first LookupName.
	names map[uint64][]int64
}

// Open opens the store at path and reads its header and trailer.
func Open(ctx context.Context, path string) (*Reader, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, fmt.Sprintf("open %s", path))
	}
	r := &Reader{path: path, in: in}
	r.sc = recordio.NewScanner(in.Reader(ctx), recordio.ScannerOpts{Unmarshal: r.unmarshal})
	if err := r.init(); err != nil {
		_ = r.sc.Finish()
		_ = in.Close(ctx)
		return nil, errors.E(err, fmt.Sprintf("open store %s", path))
	}
	return r, nil
}

func (r *Reader) init() error {
	if err := r.sc.Err(); err != nil {
		return err
	}
	var ver string
	for _, kv := range r.sc.Header() {
		switch kv.Key {
		case versionHeader:
			ver, _ = kv.Value.(string)
		case compressionHeader:
			name, _ := kv.Value.(string)
			c, err := ParseCompression(name)
			if err != nil {
				return err
			}
			r.compression = c
		}
	}
	if ver != version {
		return errors.E(errors.Invalid, fmt.Sprintf("not a version %s store (version %q)", version, ver))
	}
	data := r.sc.Trailer()
	if len(data) == 0 {
		return errors.E(errors.Integrity, "missing trailer; was the store closed?")
	}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&r.t); err != nil {
		return errors.E(errors.Integrity, "decode trailer", err)
	}
	if len(r.t.BlockStarts) != len(r.t.BlockKeys) {
		return errors.E(errors.Integrity, "inconsistent block index")
	}
	return nil
}

func (r *Reader) unmarshal(in []byte) (interface{}, error) {
	if r.compression == Snappy {
		var err error
		if in, err = snappy.Decode(nil, in); err != nil {
			return nil, errors.E(errors.Integrity, err)
		}
	}
	d := decoder{buf: in}
	return d.record()
}

// Records returns the number of records in the store.
func (r *Reader) Records() int64 { return r.t.Records }

// Stats returns the statistics recorded when the store was written.
func (r *Reader) Stats() demux.Stats { return r.t.Stats }

// Checksum returns the checksum recorded when the store was written.
func (r *Reader) Checksum() Checksum { return r.t.Checksum }

// Scan reads the next record. It returns false at the end of the store or on
// error.
func (r *Reader) Scan() bool {
	if !r.sc.Scan() {
		r.rec = nil
		return false
	}
	r.rec = r.sc.Get().(*demux.Record)
	return true
}

// Record returns the record read by the last Scan.
func (r *Reader) Record() *demux.Record { return r.rec }

// Err returns the error met by Scan, Get or LookupName, if any.
func (r *Reader) Err() error { return r.sc.Err() }

// Get returns the record with the given key.
func (r *Reader) Get(key int64) (*demux.Record, error) {
	if key < 1 || key > r.t.Records {
		return nil, errors.E(errors.NotExist, fmt.Sprintf("store %s: no record with key %d", r.path, key))
	}
	keys := r.t.BlockKeys
	i := sort.Search(len(keys), func(i int) bool { return keys[i] > key }) - 1
	if i < 0 {
		return nil, errors.E(errors.Integrity, fmt.Sprintf("store %s: key %d is not indexed", r.path, key))
	}
	r.sc.Seek(recordio.ItemLocation{Block: r.t.BlockStarts[i], Item: int(key - keys[i])})
	if !r.Scan() {
		if err := r.sc.Err(); err != nil {
			return nil, err
		}
		return nil, errors.E(errors.Integrity, fmt.Sprintf("store %s: key %d is past the end of its block", r.path, key))
	}
	if r.rec.Key != key {
		return nil, errors.E(errors.Integrity, fmt.Sprintf("store %s: found key %d at the location of %d", r.path, r.rec.Key, key))
	}
	return r.rec, nil
}

func (r *Reader) buildNameIndex() error {
	r.names = map[uint64][]int64{}
	if len(r.t.BlockStarts) == 0 {
		return nil
	}
	r.sc.Seek(recordio.ItemLocation{Block: r.t.BlockStarts[0]})
	for r.Scan() {
		fp := farm.Fingerprint64([]byte(r.rec.Name))
		r.names[fp] = append(r.names[fp], r.rec.Key)
	}
	return r.sc.Err()
}

// LookupName returns the records of the read with the given name, in key
// order.
func (r *Reader) LookupName(name string) ([]*demux.Record, error) {
	if r.names == nil {
		if err := r.buildNameIndex(); err != nil {
			r.names = nil
			return nil, err
		}
	}
	var recs []*demux.Record
	for _, key := range r.names[farm.Fingerprint64([]byte(name))] {
		rec, err := r.Get(key)
		if err != nil {
			return nil, err
		}
		if rec.Name == name {
			recs = append(recs, rec)
		}
	}
	if len(recs) == 0 {
		return nil, errors.E(errors.NotExist, fmt.Sprintf("store %s: no read named %q", r.path, name))
	}
	return recs, nil
}

// Close closes the store. It returns the error met while reading, if any.
func (r *Reader) Close(ctx context.Context) error {
	var once errors.Once
	once.Set(r.sc.Finish())
	once.Set(r.in.Close(ctx))
	return once.Err()
}
