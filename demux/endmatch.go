package demux

// MatchKind tells how an EndMatch was found.
type MatchKind uint8

const (
	// NoMatch means no tag was found.
	NoMatch MatchKind = iota
	// Exact means the tag occurs verbatim.
	Exact
	// Fuzzy means the tag was recovered by local alignment.
	Fuzzy
)

func (k MatchKind) String() string {
	switch k {
	case Exact:
		return "exact"
	case Fuzzy:
		return "fuzzy"
	}
	return ""
}

// EndMatch is the result of searching one end of a read for a tag.
type EndMatch struct {
	Kind MatchKind
	// Tag is the forward-strand sequence of the matched tag.
	Tag string
	// Start and Stop delimit the match on the searched sequence, half-open.
	Start, Stop int
	// Text is the matched part of the read, in tag orientation.
	Text string
	// Errors is the number of differences between Text and Tag. Always 0 for
	// exact matches.
	Errors int
}

// Matched reports whether a tag was found.
func (m EndMatch) Matched() bool { return m.Kind != NoMatch }
