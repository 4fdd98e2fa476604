package store

import (
	"fmt"
	"strings"

	"github.com/grailbio/base/errors"
)

// Compression selects how record payloads are compressed.
type Compression uint8

const (
	// Zstd compresses whole recordio blocks.
	Zstd Compression = iota
	// Snappy compresses each record on its own. It is faster than Zstd and
	// compresses less.
	Snappy
	// None stores records as is.
	None
)

var compressionNames = [...]string{"zstd", "snappy", "none"}

func (c Compression) String() string {
	if int(c) < len(compressionNames) {
		return compressionNames[c]
	}
	return fmt.Sprintf("Compression(%d)", c)
}

// ParseCompression converts "zstd", "snappy" or "none" into a Compression.
func ParseCompression(s string) (Compression, error) {
	for i, name := range compressionNames {
		if strings.EqualFold(s, name) {
			return Compression(i), nil
		}
	}
	return 0, errors.E(errors.Invalid, fmt.Sprintf("unknown compression %q, expect one of %v", s, compressionNames))
}

// Opts configures a Writer.
type Opts struct {
	Compression Compression
	// BlockRecords is the # of records per recordio block. Get reads a whole
	// block to fetch one record.
	BlockRecords int
}

// DefaultOpts are the default Writer options.
var DefaultOpts = Opts{Compression: Zstd, BlockRecords: 4096}
