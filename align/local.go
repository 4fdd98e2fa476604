// Package align implements the two small alignment primitives used for tag
// recognition: a fixed-score local (Smith-Waterman) alignment with affine gap
// penalties, and the Levenshtein distance.
package align

// Scores of the local alignment. The natural model is match 5, mismatch -4,
// gap open -9 and gap extend -0.5; every value is doubled to stay integral. A
// gap of length n costs GapOpen + (n-1)*GapExtend.
const (
	Match     = 10
	Mismatch  = -8
	GapOpen   = -18
	GapExtend = -1
)

// Gap is the character used in Alignment.SeqRow and Alignment.TagRow.
const Gap = '-'

// Alignment is the best local alignment between a sequence and a tag.
//
// Coordinates are half-open. SeqStart is the first aligned sequence base and
// SeqEnd is one past the last; likewise for the tag.
type Alignment struct {
	// Score is the alignment score in doubled units. See Match.
	Score int
	// SeqStart, SeqEnd delimit the aligned part of the sequence.
	SeqStart, SeqEnd int
	// TagStart, TagEnd delimit the aligned part of the tag.
	TagStart, TagEnd int
	// SeqRow and TagRow are the aligned rows, padded with Gap. They have equal
	// length.
	SeqRow, TagRow string
}

// Found reports whether any positive scoring alignment exists.
func (a Alignment) Found() bool { return a.Score > 0 }

// SeqGaps is the number of gap characters in the sequence row.
func (a Alignment) SeqGaps() int { return countGaps(a.SeqRow) }

// TagGaps is the number of gap characters in the tag row.
func (a Alignment) TagGaps() int { return countGaps(a.TagRow) }

// Matches is the number of columns where the sequence and the tag agree.
func (a Alignment) Matches() int {
	n := 0
	for i := 0; i < len(a.SeqRow); i++ {
		if a.SeqRow[i] == a.TagRow[i] && a.SeqRow[i] != Gap {
			n++
		}
	}
	return n
}

// Differences is the number of columns that are not matches: mismatches and
// gaps.
func (a Alignment) Differences() int { return len(a.SeqRow) - a.Matches() }

func countGaps(row string) int {
	n := 0
	for i := 0; i < len(row); i++ {
		if row[i] == Gap {
			n++
		}
	}
	return n
}

func score(a, b byte) int {
	if a == b {
		return Match
	}
	return Mismatch
}

// Local computes the best local alignment of tag against seq. Among equally
// scoring alignments, the one ending earliest in seq (then in tag) wins. If no
// positive scoring alignment exists, the returned Alignment has Found() ==
// false.
func Local(seq, tag string) Alignment {
	n, m := len(seq), len(tag)
	if n == 0 || m == 0 {
		return Alignment{}
	}
	// h is the best score of any alignment ending at (i, j). e is the best score
	// ending with seq[i-1] against a tag gap. f is the best score ending with
	// tag[j-1] against a sequence gap.
	h := newMatrix(n+1, m+1, 0)
	e := newMatrix(n+1, m+1, negInf)
	f := newMatrix(n+1, m+1, negInf)

	best, bestI, bestJ := 0, 0, 0
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			ev := max(h.at(i-1, j)+GapOpen, e.at(i-1, j)+GapExtend)
			e.set(i, j, ev)
			fv := max(h.at(i, j-1)+GapOpen, f.at(i, j-1)+GapExtend)
			f.set(i, j, fv)
			hv := max(0, h.at(i-1, j-1)+score(seq[i-1], tag[j-1]))
			hv = max(hv, max(ev, fv))
			h.set(i, j, hv)
			if hv > best {
				best, bestI, bestJ = hv, i, j
			}
		}
	}
	if best <= 0 {
		return Alignment{}
	}

	var seqRow, tagRow []byte
	i, j, st := bestI, bestJ, diagonal
loop:
	for i > 0 && j > 0 {
		switch st {
		case diagonal:
			hv := h.at(i, j)
			if hv == 0 {
				break loop
			}
			switch {
			case hv == h.at(i-1, j-1)+score(seq[i-1], tag[j-1]):
				seqRow = append(seqRow, seq[i-1])
				tagRow = append(tagRow, tag[j-1])
				i--
				j--
			case hv == e.at(i, j):
				st = down
			default:
				st = right
			}
		case down:
			seqRow = append(seqRow, seq[i-1])
			tagRow = append(tagRow, Gap)
			if e.at(i, j) != h.at(i-1, j)+GapOpen {
				i--
				continue
			}
			i--
			st = diagonal
		case right:
			seqRow = append(seqRow, Gap)
			tagRow = append(tagRow, tag[j-1])
			if f.at(i, j) != h.at(i, j-1)+GapOpen {
				j--
				continue
			}
			j--
			st = diagonal
		}
	}
	reverse(seqRow)
	reverse(tagRow)
	return Alignment{
		Score:    best,
		SeqStart: i,
		SeqEnd:   bestI,
		TagStart: j,
		TagEnd:   bestJ,
		SeqRow:   string(seqRow),
		TagRow:   string(tagRow),
	}
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
