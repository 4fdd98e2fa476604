package demux

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	lnk1 = "GATTAC"
	lnk2 = "TGCATG"
	lnk3 = "CCTAGG"

	insert = "TTTTTGGGGGCCCCCAAAAATTTTTGGGGG"
)

var testSpec = LibrarySpec{
	OuterTags: []Tag{{"MID1", mid1}, {"MID2", mid2}},
	InnerTags: []Tag{{"LNK1", lnk1}, {"LNK2", lnk2}, {"LNK3", lnk3}},
	Groups: []Group{
		{Outer: "MID1", Inner: "LNK1", Sample: "duck"},
		{Outer: "MID1", Inner: "LNK2", Sample: "goose"},
		{Outer: "MID2", Inner: "LNK3", Sample: "swan"},
	},
}

func testOpts() Opts {
	opts := DefaultOpts
	opts.Outer.Gap = 2
	opts.Inner.Gap = 2
	return opts
}

func newTestClassifier(t *testing.T, spec LibrarySpec, opts Opts) (*Library, *Classifier) {
	lib, err := NewLibrary(spec, opts)
	require.NoError(t, err)
	return lib, NewClassifier(lib, opts)
}

// tagged builds a read carrying outer and inner tags at both ends around body.
// Right-end tags are reverse complemented.
func tagged(outerLeft, innerLeft, body, innerRight, outerRight string) string {
	rc := func(s string) string {
		if s == "" {
			return ""
		}
		return ReverseComplement(s)
	}
	return "NN" + outerLeft + innerLeft + body + rc(innerRight) + rc(outerRight) + "NN"
}

func TestClassifyBothLevels(t *testing.T) {
	_, c := newTestClassifier(t, testSpec, testOpts())

	seq := tagged(mid1, lnk1, insert, lnk1, mid1)
	rec := c.Classify(Read{ID: "@r1 sample read", Seq: seq})
	assert.Equal(t, "r1", rec.Name)
	assert.Equal(t, "duck", rec.Cluster)
	assert.Equal(t, insert, rec.Seq)
	assert.Equal(t, len(seq), rec.UntrimmedLen)
	assert.Equal(t, BothEnds, rec.Outer.Outcome)
	assert.Equal(t, "MID1", rec.Outer.Name)
	assert.Equal(t, "exact-exact-both", rec.Outer.Method())
	assert.Equal(t, mid1, rec.Outer.Text())
	assert.Equal(t, 2, rec.Outer.Left.Start)
	assert.Equal(t, len(seq)-12, rec.Outer.Right.Start)
	assert.Equal(t, BothEnds, rec.Inner.Outcome)
	assert.Equal(t, "LNK1", rec.Inner.Name)
	assert.Equal(t, "exact-exact-both", rec.Inner.Method())
	assert.True(t, rec.Assigned())
	assert.False(t, rec.Concat.Found())

	rec = c.Classify(Read{ID: "r2", Seq: tagged(mid1, lnk2, insert, lnk2, mid1)})
	assert.Equal(t, "goose", rec.Cluster)
	assert.Equal(t, insert, rec.Seq)
}

func TestClassifyFuzzyOuter(t *testing.T) {
	_, c := newTestClassifier(t, testSpec, testOpts())
	left := []byte(mid1)
	left[5] = 'A'
	rec := c.Classify(Read{ID: "r", Seq: tagged(string(left), lnk1, insert, lnk1, mid1)})
	assert.Equal(t, "duck", rec.Cluster)
	assert.Equal(t, "fuzzy-exact-both", rec.Outer.Method())
	assert.Equal(t, 1, rec.Outer.Left.Errors)
	assert.Equal(t, insert, rec.Seq)
}

func TestClassifyTrimLength(t *testing.T) {
	spec := LibrarySpec{
		OuterTags: []Tag{{"M1", "ACGT"}},
		Groups:    []Group{{Outer: "M1", Sample: "s1"}},
	}
	opts := DefaultOpts
	opts.Mode = OuterOnly
	opts.Outer = LevelOpts{BothEnds: true}
	_, c := newTestClassifier(t, spec, opts)

	rec := c.Classify(Read{ID: "r", Seq: "ACGT" + "GGGGCCCCGGGG" + "ACGT"})
	assert.Equal(t, EndMatch{Kind: Exact, Tag: "ACGT", Start: 0, Stop: 4, Text: "ACGT"}, rec.Outer.Left)
	assert.Equal(t, EndMatch{Kind: Exact, Tag: "ACGT", Start: 16, Stop: 20, Text: "ACGT"}, rec.Outer.Right)
	assert.Equal(t, 12, rec.TrimmedLen())
	assert.Equal(t, "GGGGCCCCGGGG", rec.Seq)
	assert.Equal(t, "s1", rec.Cluster)
	assert.Equal(t, None, rec.Inner.Outcome)

	// Overlapping end matches trim to an empty read.
	rec = c.Classify(Read{ID: "r", Seq: "ACGT"})
	assert.Equal(t, BothEnds, rec.Outer.Outcome)
	assert.Equal(t, "", rec.Seq)
}

func TestClassifyIdempotent(t *testing.T) {
	_, c := newTestClassifier(t, testSpec, testOpts())
	rec := c.Classify(Read{ID: "r", Seq: tagged(mid1, lnk1, insert, lnk1, mid1)})
	require.Equal(t, "duck", rec.Cluster)
	again := c.Classify(Read{ID: "r", Seq: rec.Seq})
	assert.Equal(t, None, again.Outer.Outcome)
	assert.Equal(t, rec.Seq, again.Seq)
	assert.Equal(t, Unassigned, again.Cluster)
}

func TestClassifyMismatch(t *testing.T) {
	_, c := newTestClassifier(t, testSpec, testOpts())
	seq := tagged(mid1, lnk1, insert, lnk1, mid2)
	rec := c.Classify(Read{ID: "r", Seq: seq})
	assert.Equal(t, Mismatch, rec.Outer.Outcome)
	assert.Equal(t, "tag-mismatch", rec.Outer.Method())
	assert.Equal(t, "", rec.Outer.Tag)
	assert.Equal(t, mid1, rec.Outer.Left.Tag)
	assert.Equal(t, mid2, rec.Outer.Right.Tag)
	// The inner level is not searched, and the read is not trimmed.
	assert.Equal(t, None, rec.Inner.Outcome)
	assert.Equal(t, Unassigned, rec.Cluster)
	assert.Equal(t, seq, rec.Seq)
	assert.False(t, rec.Assigned())
}

func TestClassifyMismatchPolicy(t *testing.T) {
	spec := LibrarySpec{
		OuterTags: []Tag{{"MID1", mid1}, {"MID2", mid2}},
		Groups: []Group{
			{Outer: "MID1", Sample: "a"},
			{Outer: "MID2", Sample: "b"},
		},
	}
	opts := DefaultOpts
	opts.Mode = OuterOnly
	opts.Outer = LevelOpts{Fuzzy: true, AllowedErrors: 1, BothEnds: true}
	// The left tag is found by alignment one base past the gap tolerance.
	seq := "T" + mid1 + "GGGGGGGGGG" + ReverseComplement(mid2)

	_, c := newTestClassifier(t, spec, opts)
	rec := c.Classify(Read{ID: "r", Seq: seq})
	assert.Equal(t, Mismatch, rec.Outer.Outcome)
	assert.Equal(t, Fuzzy, rec.Outer.Left.Kind)
	assert.Equal(t, 1, rec.Outer.Left.Start)
	assert.Equal(t, Unassigned, rec.Cluster)

	opts.MismatchPolicy = MismatchWithinGap
	_, c = newTestClassifier(t, spec, opts)
	rec = c.Classify(Read{ID: "r", Seq: seq})
	assert.Equal(t, RightEnd, rec.Outer.Outcome)
	assert.Equal(t, "MID2", rec.Outer.Name)
	assert.Equal(t, "exact-right", rec.Outer.Method())
	assert.Equal(t, "b", rec.Cluster)
	assert.Equal(t, "T"+mid1+"GGGGGGGGGG", rec.Seq)
}

func TestClassifyInnerScope(t *testing.T) {
	lib, c := newTestClassifier(t, testSpec, testOpts())
	// LNK3 is registered under MID2 only.
	rec := c.Classify(Read{ID: "r", Seq: "NN" + mid1 + lnk3 + insert})
	assert.Equal(t, LeftEnd, rec.Outer.Outcome)
	assert.Equal(t, "exact-left", rec.Outer.Method())
	assert.Equal(t, None, rec.Inner.Outcome)
	assert.Equal(t, Unassigned, rec.Cluster)
	assert.Equal(t, lnk3+insert, rec.Seq)

	m := lib.Inner(mid2).MatchLeft(rec.Seq)
	assert.Equal(t, Exact, m.Kind)
	assert.Equal(t, lnk3, m.Tag)
	assert.Nil(t, lib.Inner(NoTag))
}

func TestClassifyInnerOnly(t *testing.T) {
	spec := LibrarySpec{
		InnerTags: []Tag{{"LNK1", lnk1}, {"LNK2", lnk2}},
		Groups: []Group{
			{Inner: "LNK1", Sample: "duck"},
			{Inner: "LNK2", Sample: "goose"},
		},
	}
	opts := testOpts()
	opts.Mode = InnerOnly
	lib, c := newTestClassifier(t, spec, opts)
	assert.Nil(t, lib.Outer())

	rec := c.Classify(Read{ID: "r", Seq: lnk2 + insert + ReverseComplement(lnk2)})
	assert.Equal(t, None, rec.Outer.Outcome)
	assert.Equal(t, BothEnds, rec.Inner.Outcome)
	assert.Equal(t, "goose", rec.Cluster)
	assert.Equal(t, insert, rec.Seq)

	rec = c.Classify(Read{ID: "r", Seq: insert + ReverseComplement(lnk1) + "A"})
	assert.Equal(t, RightEnd, rec.Inner.Outcome)
	assert.Equal(t, "duck", rec.Cluster)
	assert.Equal(t, insert, rec.Seq)
}

func TestClassifyConcatemer(t *testing.T) {
	opts := testOpts()
	opts.Concat.Check = true
	_, c := newTestClassifier(t, testSpec, opts)

	const pad = "CCCCCCCCCC"
	rec := c.Classify(Read{ID: "r", Seq: tagged(mid1, lnk1, pad+lnk2+pad, lnk1, mid1)})
	assert.Equal(t, "duck", rec.Cluster)
	assert.Equal(t, ConcatMatch{Kind: Exact, Tag: lnk2, Name: "LNK2", Start: 10, Stop: 16, Text: lnk2}, rec.Concat)
	assert.Equal(t, "exact-concat", rec.Concat.Method())

	rec = c.Classify(Read{ID: "r", Seq: tagged(mid1, lnk1, pad+"TGCTTG"+pad, lnk1, mid1)})
	assert.Equal(t, ConcatMatch{Kind: Fuzzy, Tag: lnk2, Name: "LNK2", Start: 10, Stop: 16, Text: "TGCTTG"}, rec.Concat)
	assert.Equal(t, "fuzzy-concat", rec.Concat.Method())

	// Reverse-complement occurrences count too.
	rec = c.Classify(Read{ID: "r", Seq: tagged(mid1, lnk1, pad+ReverseComplement(lnk2)+pad, lnk1, mid1)})
	assert.Equal(t, "LNK2", rec.Concat.Name)
	assert.Equal(t, ReverseComplement(lnk2), rec.Concat.Tag)

	// Reads that did not resolve every level are not scanned.
	rec = c.Classify(Read{ID: "r", Seq: tagged(mid1, "", pad+lnk2+pad, "", mid1)})
	assert.False(t, rec.Concat.Found())

	opts.Concat.Check = false
	_, c = newTestClassifier(t, testSpec, opts)
	rec = c.Classify(Read{ID: "r", Seq: tagged(mid1, lnk1, pad+lnk2+pad, lnk1, mid1)})
	assert.False(t, rec.Concat.Found())
}

func TestClassifyQualityTrim(t *testing.T) {
	opts := testOpts()
	opts.QualTrim = true
	opts.MinQual = 20
	_, c := newTestClassifier(t, testSpec, opts)

	seq := "TT" + tagged(mid1, lnk1, insert, lnk1, mid1) + "T"
	qual := make([]byte, len(seq))
	for i := range qual {
		qual[i] = 30
	}
	qual[0], qual[1], qual[len(qual)-1] = 2, 2, 5
	rec := c.Classify(Read{ID: "r", Seq: seq, Qual: qual})
	assert.Equal(t, "duck", rec.Cluster)
	assert.Equal(t, insert, rec.Seq)
	assert.Equal(t, len(insert), len(rec.Qual))
	assert.Equal(t, len(seq), rec.UntrimmedLen)
	// The input is left alone.
	assert.Equal(t, byte(2), qual[0])
}

func TestTrimQuality(t *testing.T) {
	seq, qual := trimQuality("ACGTAC", []byte{2, 30, 30, 30, 30, 5}, 10)
	assert.Equal(t, "CGTA", seq)
	assert.Equal(t, []byte{30, 30, 30, 30}, qual)

	seq, qual = trimQuality("ACG", []byte{1, 2, 3}, 10)
	assert.Equal(t, "", seq)
	assert.Empty(t, qual)

	seq, _ = trimQuality("ACG", nil, 10)
	assert.Equal(t, "ACG", seq)
}

func TestClassifyLowerCase(t *testing.T) {
	_, c := newTestClassifier(t, testSpec, testOpts())
	seq := tagged(mid1, lnk1, insert, lnk1, mid1)
	rec := c.Classify(Read{ID: "r", Seq: "nn" + seq[2:]})
	assert.Equal(t, "duck", rec.Cluster)
}

func TestReadName(t *testing.T) {
	assert.Equal(t, "r1", ReadName("@r1 length=40"))
	assert.Equal(t, "r1", ReadName(">r1\tx"))
	assert.Equal(t, "r1", ReadName("r1"))
}

func TestStatsMerge(t *testing.T) {
	_, c := newTestClassifier(t, testSpec, testOpts())
	var a, b Stats
	a.Add(c.Classify(Read{ID: "r1", Seq: tagged(mid1, lnk1, insert, lnk1, mid1)}))
	a.Add(c.Classify(Read{ID: "r2", Seq: insert}))
	b.Add(c.Classify(Read{ID: "r3", Seq: tagged(mid1, lnk1, insert, lnk1, mid2)}))
	b.Add(c.Classify(Read{ID: "r4", Seq: tagged(mid1, lnk2, insert, lnk2, mid1)}))

	s := a.Merge(b)
	assert.Equal(t, 4, s.Reads)
	assert.Equal(t, 2, s.Assigned)
	assert.Equal(t, 2, s.Outer[BothEnds])
	assert.Equal(t, 1, s.Outer[Mismatch])
	assert.Equal(t, 1, s.Outer[None])
	assert.Equal(t, 2, s.Inner[BothEnds])
	assert.Equal(t, 2, s.Inner[None])
	assert.Equal(t, map[string]int{"duck": 1, "goose": 1, Unassigned: 2}, s.Clusters)
	// Merge leaves its operands alone.
	assert.Equal(t, 2, a.Reads)
	assert.Equal(t, map[string]int{"duck": 1, Unassigned: 1}, a.Clusters)
}
