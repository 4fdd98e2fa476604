package fasta_test

import (
	"strings"
	"testing"

	"github.com/grailbio/demux/encoding/fasta"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	fastaData = ">r1 A viral sequence\nACGTA\nCGTAC\nGT\n\n>r2\nACGT\n>r3\n"
	qualData  = ">r1 A viral sequence\n40 40 40 30 30\n20 20 20 10 10\n2 2\n>r2\n1 2 3 4\n>r3\n"
)

func TestScanner(t *testing.T) {
	s := fasta.NewScanner(strings.NewReader(fastaData))
	var got []fasta.Record
	var r fasta.Record
	for s.Scan(&r) {
		got = append(got, r)
	}
	require.NoError(t, s.Err())
	assert.Equal(t, []fasta.Record{
		{ID: "r1 A viral sequence", Seq: "ACGTACGTACGT"},
		{ID: "r2", Seq: "ACGT"},
		{ID: "r3", Seq: ""},
	}, got)
	assert.Equal(t, "r1", got[0].Name())
}

func TestScannerMalformed(t *testing.T) {
	s := fasta.NewScanner(strings.NewReader("ACGT\n>r1\nACGT\n"))
	var r fasta.Record
	assert.False(t, s.Scan(&r))
	assert.Error(t, s.Err())
}

func TestPairScanner(t *testing.T) {
	p := fasta.NewPairScanner(strings.NewReader(fastaData), strings.NewReader(qualData))
	var (
		r fasta.Record
		q fasta.QualRecord
		n int
	)
	for p.Scan(&r, &q) {
		if n == 0 {
			assert.Equal(t, []byte{40, 40, 40, 30, 30, 20, 20, 20, 10, 10, 2, 2}, q.Qual)
		}
		n++
	}
	require.NoError(t, p.Err())
	assert.Equal(t, 3, n)
}

func TestPairScannerErrors(t *testing.T) {
	tests := []struct {
		fa, qual string
	}{
		{">r1\nACGT\n", ">r2\n1 2 3 4\n"},
		{">r1\nACGT\n", ">r1\n1 2 3\n"},
		{">r1\nACGT\n>r2\nA\n", ">r1\n1 2 3 4\n"},
		{">r1\nACGT\n", ">r1\n1 2 x 4\n"},
	}
	for _, test := range tests {
		p := fasta.NewPairScanner(strings.NewReader(test.fa), strings.NewReader(test.qual))
		var (
			r fasta.Record
			q fasta.QualRecord
		)
		for p.Scan(&r, &q) {
		}
		assert.Error(t, p.Err(), "fasta=%q qual=%q", test.fa, test.qual)
	}
}

func TestCount(t *testing.T) {
	n, err := fasta.Count(strings.NewReader(fastaData))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = fasta.Count(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
