package cmd

import (
	"context"
	"io"
	"strconv"

	"github.com/grailbio/base/tsv"
	"github.com/grailbio/demux/demux"
	"github.com/grailbio/demux/store"
)

type viewFlags struct {
	key     int64
	name    string
	cluster string
	limit   int
	seq     bool
}

const viewHeader = "#KEY\tNAME\tCLUSTER\tOUTER\tOUTER_METHOD\tINNER\tINNER_METHOD\tCONCAT\tCONCAT_METHOD\tUNTRIMMED_LEN\tTRIMMED_LEN\tN_COUNT"

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func writeRecord(w *tsv.Writer, rec *demux.Record, seq bool) error {
	w.WriteString(strconv.FormatInt(rec.Key, 10))
	w.WriteString(rec.Name)
	w.WriteString(rec.Cluster)
	w.WriteString(orDash(rec.Outer.Name))
	w.WriteString(orDash(rec.Outer.Method()))
	w.WriteString(orDash(rec.Inner.Name))
	w.WriteString(orDash(rec.Inner.Method()))
	w.WriteString(orDash(rec.Concat.Name))
	w.WriteString(orDash(rec.Concat.Method()))
	w.WriteUint32(uint32(rec.UntrimmedLen))
	w.WriteUint32(uint32(rec.TrimmedLen()))
	w.WriteUint32(uint32(rec.NCount()))
	if seq {
		w.WriteString(rec.Seq)
	}
	return w.EndLine()
}

func view(ctx context.Context, path string, flags viewFlags, out io.Writer) (err error) {
	r, err := store.Open(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if e := r.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	w := tsv.NewWriter(out)
	header := viewHeader
	if flags.seq {
		header += "\tSEQ"
	}
	w.WriteString(header)
	if err = w.EndLine(); err != nil {
		return
	}
	var recs []*demux.Record
	switch {
	case flags.key != 0:
		rec, err := r.Get(flags.key)
		if err != nil {
			return err
		}
		recs = []*demux.Record{rec}
	case flags.name != "":
		if recs, err = r.LookupName(flags.name); err != nil {
			return err
		}
	default:
		n := 0
		for r.Scan() && (flags.limit <= 0 || n < flags.limit) {
			rec := r.Record()
			if flags.cluster != "" && rec.Cluster != flags.cluster {
				continue
			}
			if err = writeRecord(w, rec, flags.seq); err != nil {
				return
			}
			n++
		}
		return w.Flush()
	}
	for _, rec := range recs {
		if err = writeRecord(w, rec, flags.seq); err != nil {
			return
		}
	}
	return w.Flush()
}
