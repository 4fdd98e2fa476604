package demux

import "strings"

// Read is one input read. Qual holds phred scores, not ASCII, and is nil
// when the input has no qualities.
type Read struct {
	ID   string
	Seq  string
	Qual []byte
}

// ReadName returns the read identifier up to the first white space, without a
// leading '@' or '>'.
func ReadName(id string) string {
	id = strings.TrimLeft(id, "@>")
	if i := strings.IndexAny(id, " \t"); i >= 0 {
		id = id[:i]
	}
	return id
}

// Outcome is the resolution of one tag level of a read.
type Outcome uint8

const (
	// None means no usable tag was found.
	None Outcome = iota
	// BothEnds means the same tag was found at both ends.
	BothEnds
	// Mismatch means different tags were found at the two ends.
	Mismatch
	// LeftEnd means a tag was found at the left end only.
	LeftEnd
	// RightEnd means a tag was found at the right end only.
	RightEnd

	// NumOutcomes is the number of Outcome values.
	NumOutcomes = iota
)

var outcomeNames = [NumOutcomes]string{"none", "both", "mismatch", "left", "right"}

func (o Outcome) String() string { return outcomeNames[o] }

// TagMatch is the resolution of one tag level. Left and Right keep the raw
// evidence of the two end searches.
type TagMatch struct {
	Outcome Outcome
	// Tag and Name identify the resolved tag. Both are empty unless Resolved().
	Tag, Name   string
	Left, Right EndMatch
}

// Resolved reports whether the level resolved to a tag.
func (m TagMatch) Resolved() bool {
	return m.Outcome == BothEnds || m.Outcome == LeftEnd || m.Outcome == RightEnd
}

// Method describes how the tag was found, for example "exact-fuzzy-both",
// "fuzzy-left" or "tag-mismatch". It is empty when no tag was found.
func (m TagMatch) Method() string {
	switch m.Outcome {
	case BothEnds:
		return m.Left.Kind.String() + "-" + m.Right.Kind.String() + "-both"
	case Mismatch:
		return "tag-mismatch"
	case LeftEnd:
		return m.Left.Kind.String() + "-left"
	case RightEnd:
		return m.Right.Kind.String() + "-right"
	}
	return ""
}

// Text returns the matched read text of the resolved tag.
func (m TagMatch) Text() string {
	switch m.Outcome {
	case BothEnds, LeftEnd:
		return m.Left.Text
	case RightEnd:
		return m.Right.Text
	}
	return ""
}

// ConcatMatch is a tag found inside a trimmed read.
type ConcatMatch struct {
	Kind MatchKind
	// Tag is the sequence searched for: a tag or its reverse complement.
	Tag  string
	Name string
	// Start and Stop delimit the match on the trimmed read.
	Start, Stop int
	Text        string
}

// Found reports whether a concatemer was detected.
func (m ConcatMatch) Found() bool { return m.Kind != NoMatch }

// Method returns "exact-concat", "fuzzy-concat", or "" if nothing was found.
func (m ConcatMatch) Method() string {
	if m.Kind == NoMatch {
		return ""
	}
	return m.Kind.String() + "-concat"
}

// Record is the classification of one read.
type Record struct {
	// Key is the 1-based position of the record in the store. It is zero until
	// the record is stored.
	Key  int64
	Name string
	// Outer and Inner are the resolutions of the two tag levels. A level that
	// was not searched has Outcome None.
	Outer, Inner TagMatch
	// Cluster is the sample name, or Unassigned.
	Cluster string
	Concat  ConcatMatch
	// Seq and Qual are the read after trimming.
	Seq          string
	Qual         []byte
	UntrimmedLen int
}

// TrimmedLen returns the length of the trimmed read.
func (r *Record) TrimmedLen() int { return len(r.Seq) }

// NCount returns the number of N bases in the trimmed read.
func (r *Record) NCount() int { return strings.Count(r.Seq, "N") }

// Assigned reports whether the read was assigned to a sample.
func (r *Record) Assigned() bool { return r.Cluster != Unassigned && r.Cluster != "" }
