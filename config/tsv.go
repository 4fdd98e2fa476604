package config

import (
	"context"
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/demux/demux"
)

type tagRow struct {
	Name     string
	Sequence string
}

type groupRow struct {
	Outer  string
	Inner  string
	Sample string
}

// readTSV reads the rows of a headed TSV file at path, calling add on each.
// row must point to a struct whose field names match the header.
func readTSV(ctx context.Context, path string, row interface{}, add func()) (err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return errors.E(err, fmt.Sprintf("open %s", path))
	}
	defer file.CloseAndReport(ctx, in, &err)
	r := tsv.NewReader(in.Reader(ctx))
	r.HasHeaderRow = true
	r.UseHeaderNames = true
	r.Comment = '#'
	for line := 2; ; line++ {
		if err := r.Read(row); err != nil {
			if err == io.EOF {
				return nil
			}
			return errors.E(errors.Invalid, fmt.Sprintf("read %s:%d", path, line), err)
		}
		add()
	}
}

// ReadTags reads a tag dictionary from a TSV file with columns Name and
// Sequence.
func ReadTags(ctx context.Context, path string) ([]demux.Tag, error) {
	var (
		row  tagRow
		tags []demux.Tag
	)
	err := readTSV(ctx, path, &row, func() {
		tags = append(tags, demux.Tag{Name: row.Name, Seq: row.Sequence})
	})
	return tags, err
}

// ReadGroups reads the sample map from a TSV file with columns Outer, Inner
// and Sample. Outer or Inner may be empty when the level is not searched.
func ReadGroups(ctx context.Context, path string) ([]demux.Group, error) {
	var (
		row    groupRow
		groups []demux.Group
	)
	err := readTSV(ctx, path, &row, func() {
		groups = append(groups, demux.Group{Outer: row.Outer, Inner: row.Inner, Sample: row.Sample})
	})
	return groups, err
}
