package align

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal(t *testing.T) {
	tests := []struct {
		seq, tag         string
		score            int
		seqStart, seqEnd int
		tagStart, tagEnd int
		seqRow, tagRow   string
	}{
		// Exact occurrence.
		{"AAACGTACGTAAA", "CGTACGT", 70, 3, 10, 0, 7, "CGTACGT", "CGTACGT"},
		// One substitution in the middle of the tag.
		{"TTACGTTCGTTT", "ACGTACGT", 62, 2, 10, 0, 8, "ACGTTCGT", "ACGTACGT"},
		// One tag base missing from the sequence.
		{"GGACGTCGTACGG", "ACGTACGTAC", 72, 2, 11, 0, 10, "ACGT-CGTAC", "ACGTACGTAC"},
		// Tag hanging off the start of the sequence.
		{"GTACCC", "ACGTA", 30, 0, 3, 2, 5, "GTA", "GTA"},
	}
	for _, test := range tests {
		a := Local(test.seq, test.tag)
		require.True(t, a.Found(), "seq=%s tag=%s", test.seq, test.tag)
		assert.Equal(t, test.score, a.Score, "seq=%s tag=%s", test.seq, test.tag)
		assert.Equal(t, test.seqStart, a.SeqStart, "seq=%s tag=%s", test.seq, test.tag)
		assert.Equal(t, test.seqEnd, a.SeqEnd, "seq=%s tag=%s", test.seq, test.tag)
		assert.Equal(t, test.tagStart, a.TagStart, "seq=%s tag=%s", test.seq, test.tag)
		assert.Equal(t, test.tagEnd, a.TagEnd, "seq=%s tag=%s", test.seq, test.tag)
		assert.Equal(t, test.seqRow, a.SeqRow)
		assert.Equal(t, test.tagRow, a.TagRow)
	}
}

func TestLocalCounts(t *testing.T) {
	a := Local("GGACGTCGTACGG", "ACGTACGTAC")
	assert.Equal(t, 9, a.Matches())
	assert.Equal(t, 1, a.Differences())
	assert.Equal(t, 1, a.SeqGaps())
	assert.Equal(t, 0, a.TagGaps())

	a = Local("TTACGTTCGTTT", "ACGTACGT")
	assert.Equal(t, 7, a.Matches())
	assert.Equal(t, 1, a.Differences())
	assert.Equal(t, 0, a.SeqGaps()+a.TagGaps())
}

func TestLocalNoAlignment(t *testing.T) {
	assert.False(t, Local("AAAA", "CCCC").Found())
	assert.False(t, Local("", "ACGT").Found())
	assert.False(t, Local("ACGT", "").Found())
}

func TestNegInfInt32(t *testing.T) {
	// Constant conversions fail to compile if negInf or a penalized negInf
	// overflows int32.
	low := int32(negInf + GapOpen + 1000*GapExtend)
	assert.True(t, low < int32(negInf))
	a := Local("ACGTAGGGGCGTAC", "ACGTACGTAC")
	assert.Equal(t, 4, a.TagGaps())
}
