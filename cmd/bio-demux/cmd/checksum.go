package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/grailbio/demux/store"
)

func checksum(ctx context.Context, path string, out io.Writer) error {
	sum, err := store.Verify(ctx, path)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s\t%v\n", path, sum)
	return err
}
