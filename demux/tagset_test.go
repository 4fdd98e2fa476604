package demux

import (
	"testing"

	"github.com/grailbio/demux/align"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTagSet(t *testing.T, opts LevelOpts, tags ...Tag) *TagSet {
	s := newTagSet(opts)
	for _, tag := range tags {
		s.add(tag)
	}
	require.NoError(t, s.seal("test"))
	return s
}

func TestMatchLeftExact(t *testing.T) {
	s := newTestTagSet(t, LevelOpts{}, Tag{"M1", "ACGT"})
	assert.Equal(t, EndMatch{Kind: Exact, Tag: "ACGT", Start: 0, Stop: 4, Text: "ACGT"}, s.MatchLeft("ACGTGGGG"))
	assert.False(t, s.MatchLeft("GACGTGGG").Matched())
	assert.False(t, s.MatchLeft("ACG").Matched())

	s = newTestTagSet(t, LevelOpts{Gap: 2}, Tag{"M1", "ACGT"})
	assert.Equal(t, EndMatch{Kind: Exact, Tag: "ACGT", Start: 2, Stop: 6, Text: "ACGT"}, s.MatchLeft("NNACGTGG"))
	assert.False(t, s.MatchLeft("NNNACGTG").Matched())
	// Non-base characters are not tolerated in the gap.
	assert.False(t, s.MatchLeft("x.ACGTGG").Matched())
}

func TestMatchLeftExactLargestOffset(t *testing.T) {
	s := newTestTagSet(t, LevelOpts{Gap: 2}, Tag{"A", "AAAA"})
	m := s.MatchLeft("AAAAAACC")
	assert.Equal(t, 2, m.Start)
	assert.Equal(t, 6, m.Stop)
}

func TestMatchLeftExactOrder(t *testing.T) {
	s := newTestTagSet(t, LevelOpts{Gap: 4}, Tag{"T1", "CCGG"}, Tag{"T2", "AACC"})
	// T2 occurs first in the read, but T1 is registered first.
	m := s.MatchLeft("AACCGGTT")
	assert.Equal(t, "CCGG", m.Tag)
	assert.Equal(t, 2, m.Start)
}

func TestMatchRightExact(t *testing.T) {
	s := newTestTagSet(t, LevelOpts{Gap: 1}, Tag{"M1", "AACGT"})
	assert.Equal(t, EndMatch{Kind: Exact, Tag: "AACGT", Start: 4, Stop: 9, Text: "AACGT"}, s.MatchRight("GGGGACGTTC"))
	assert.Equal(t, EndMatch{Kind: Exact, Tag: "AACGT", Start: 5, Stop: 10, Text: "AACGT"}, s.MatchRight("GGGGGACGTT"))
	assert.False(t, s.MatchRight("GGGACGTTCC").Matched())

	s = newTestTagSet(t, LevelOpts{Gap: 1, Orientation: Forward}, Tag{"M1", "AACGT"})
	assert.Equal(t, EndMatch{Kind: Exact, Tag: "AACGT", Start: 4, Stop: 9, Text: "AACGT"}, s.MatchRight("GGGGAACGTC"))
}

const (
	mid1 = "ACGAGTGCGT"
	mid2 = "ACGCTCGACA"
)

func TestMatchLeftFuzzySubstitution(t *testing.T) {
	s := newTestTagSet(t, LevelOpts{Fuzzy: true, AllowedErrors: 1, Gap: 2}, Tag{"MID1", mid1}, Tag{"MID2", mid2})
	// MID1 with one substitution at offset 5.
	m := s.MatchLeft("T" + "ACGAGAGCGT" + "CCCCCCCCCC")
	assert.Equal(t, EndMatch{Kind: Fuzzy, Tag: mid1, Start: 1, Stop: 11, Text: "ACGAGAGCGT", Errors: 1}, m)

	// Two substitutions exceed the allowance.
	assert.False(t, s.MatchLeft("T"+"ACCAGTGAGT"+"CCCCCCCCCC").Matched())

	// Without fuzzy matching the substituted tag is not found.
	s = newTestTagSet(t, LevelOpts{AllowedErrors: 1, Gap: 2}, Tag{"MID1", mid1})
	assert.False(t, s.MatchLeft("T"+"ACGAGAGCGT"+"CCCCCCCCCC").Matched())
}

func TestMatchLeftFuzzyPartialTag(t *testing.T) {
	s := newTestTagSet(t, LevelOpts{Fuzzy: true, AllowedErrors: 1}, Tag{"MID1", mid1}, Tag{"MID2", mid2})
	// The window holds the first 9 bases of MID1 only. The missing base counts
	// as an error.
	m := s.MatchLeft("T" + mid1 + "GGGG")
	assert.Equal(t, EndMatch{Kind: Fuzzy, Tag: mid1, Start: 1, Stop: 10, Text: "ACGAGTGCG", Errors: 1}, m)
}

func TestMatchLeftFuzzyGapped(t *testing.T) {
	const tag = "ACGTACGTAC"
	s := newTestTagSet(t, LevelOpts{Fuzzy: true, AllowedErrors: 1, Gap: 5}, Tag{"T", tag})
	// A 4-base insertion puts more gap characters in the alignment than
	// AllowedErrors.
	assert.Equal(t, EndMatch{}, s.MatchLeft("ACGTA"+"GGGG"+"CGTAC"+"TTTTTTTTTT"))

	m := s.MatchLeft("ACGTA" + "G" + "CGTAC" + "TTTTTTTTTT")
	assert.Equal(t, EndMatch{Kind: Fuzzy, Tag: tag, Start: 0, Stop: 11, Text: "ACGTAGCGTAC", Errors: 1}, m)
}

func TestMatchLeftFuzzyClippedEnd(t *testing.T) {
	const tag = "GAATAGTTCA"
	s := newTestTagSet(t, LevelOpts{Fuzzy: true, AllowedErrors: 2}, Tag{"T", tag})
	// Two separated substitutions are recovered.
	m := s.MatchLeft("GACTAGCTCA" + "GGGG")
	assert.Equal(t, EndMatch{Kind: Fuzzy, Tag: tag, Start: 0, Stop: 10, Text: "GACTAGCTCA", Errors: 2}, m)

	// Two adjacent substitutions next to the tag end are not: the local
	// alignment clips them along with the last base, which leaves three errors.
	a := align.Local("GAATAGTAAA", tag)
	assert.Equal(t, 7, a.TagEnd)
	assert.False(t, s.MatchLeft("GAATAGTAAA"+"GGGG").Matched())
}

func TestMatchRightFuzzy(t *testing.T) {
	s := newTestTagSet(t, LevelOpts{Fuzzy: true, AllowedErrors: 1, Gap: 2}, Tag{"MID1", mid1})
	rc := []byte(ReverseComplement(mid1)) // ACGCACTCGT
	rc[4] = 'T'
	seq := "CCCCCCCCCC" + string(rc) + "G"
	m := s.MatchRight(seq)
	assert.Equal(t, Fuzzy, m.Kind)
	assert.Equal(t, mid1, m.Tag)
	assert.Equal(t, 10, m.Start)
	assert.Equal(t, 20, m.Stop)
	assert.Equal(t, ReverseComplement(string(rc)), m.Text)
	assert.Equal(t, 1, m.Errors)
}

func TestTagSetLength(t *testing.T) {
	s := newTagSet(LevelOpts{})
	s.add(Tag{"A", "ACGT"})
	s.add(Tag{"B", "ACGTA"})
	assert.Error(t, s.seal("outer"))
}

func TestReverseComplement(t *testing.T) {
	assert.Equal(t, "ACGCACTCGT", ReverseComplement(mid1))
	assert.Equal(t, "NACGT", ReverseComplement("acgtx"))
	assert.Equal(t, "", ReverseComplement(""))
}
