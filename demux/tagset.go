package demux

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/demux/align"
)

// Tag is a named marker sequence.
type Tag struct {
	Name string
	Seq  string
}

// TagSet is an ordered set of equal-length tags searched at the ends of a
// read. Tags are tried in registration order, so the first registered tag wins
// ties. A TagSet is immutable once its Library is built.
type TagSet struct {
	opts   LevelOpts
	length int
	tags   []Tag
	// right[i] is the sequence of tags[i] as it appears at the right end.
	right []string
	names map[string]string // tag sequence -> name
}

func newTagSet(opts LevelOpts) *TagSet {
	return &TagSet{opts: opts, names: map[string]string{}}
}

// add registers t. Registering the same sequence twice is a no-op.
func (s *TagSet) add(t Tag) {
	if _, ok := s.names[t.Seq]; ok {
		return
	}
	s.names[t.Seq] = t.Name
	s.tags = append(s.tags, t)
	if s.opts.Orientation == Forward {
		s.right = append(s.right, t.Seq)
	} else {
		s.right = append(s.right, ReverseComplement(t.Seq))
	}
}

// seal checks that all tags have the same length.
func (s *TagSet) seal(label string) error {
	for i, t := range s.tags {
		if i == 0 {
			s.length = len(t.Seq)
			continue
		}
		if len(t.Seq) != s.length {
			return errors.E(errors.Invalid,
				fmt.Sprintf("%s tags differ in length: %s (%s) has %d bases, %s (%s) has %d",
					label, s.tags[0].Name, s.tags[0].Seq, s.length, t.Name, t.Seq, len(t.Seq)))
		}
	}
	return nil
}

// Len returns the common length of the tags.
func (s *TagSet) Len() int { return s.length }

// Gap returns the gap tolerance of the set.
func (s *TagSet) Gap() int { return s.opts.Gap }

// BothEnds reports whether the right end is searched too.
func (s *TagSet) BothEnds() bool { return s.opts.BothEnds }

// Tags returns the tags in registration order. The caller must not modify the
// slice.
func (s *TagSet) Tags() []Tag {
	if s == nil {
		return nil
	}
	return s.tags
}

// Name returns the name of the tag with the given forward sequence.
func (s *TagSet) Name(seq string) (string, bool) {
	n, ok := s.names[seq]
	return n, ok
}

// MatchLeft searches for a tag that starts within Gap() bases of the start of
// seq. The exact pass picks, for the first tag that occurs, its largest offset
// not exceeding the gap. If no tag occurs exactly and fuzzy matching is on, the
// first Gap()+Len() bases are aligned against every tag.
func (s *TagSet) MatchLeft(seq string) EndMatch {
	L := s.length
	if L == 0 {
		return EndMatch{}
	}
	for _, t := range s.tags {
		for off := min(s.opts.Gap, len(seq)-L); off >= 0; off-- {
			if seq[off:off+L] == t.Seq && allBases(seq[:off]) {
				return EndMatch{Kind: Exact, Tag: t.Seq, Start: off, Stop: off + L, Text: seq[off : off+L]}
			}
		}
	}
	if !s.opts.Fuzzy {
		return EndMatch{}
	}
	window := seq[:min(len(seq), s.opts.Gap+L)]
	i, a, nErr := fuzzySearch(window, s.tagSeqs(), L, s.opts.AllowedErrors)
	if i < 0 {
		return EndMatch{}
	}
	return EndMatch{
		Kind:   Fuzzy,
		Tag:    s.tags[i].Seq,
		Start:  a.SeqStart,
		Stop:   a.SeqEnd,
		Text:   window[a.SeqStart:a.SeqEnd],
		Errors: nErr,
	}
}

// MatchRight searches for a tag that ends within Gap() bases of the end of
// seq. Tags are searched in their right-end orientation. The returned Tag is
// always the forward tag and Text is reported in tag orientation.
func (s *TagSet) MatchRight(seq string) EndMatch {
	L := s.length
	if L == 0 {
		return EndMatch{}
	}
	for i, pat := range s.right {
		for trail := min(s.opts.Gap, len(seq)-L); trail >= 0; trail-- {
			start := len(seq) - L - trail
			if seq[start:start+L] == pat && allBases(seq[start+L:]) {
				return EndMatch{Kind: Exact, Tag: s.tags[i].Seq, Start: start, Stop: start + L, Text: s.tags[i].Seq}
			}
		}
	}
	if !s.opts.Fuzzy {
		return EndMatch{}
	}
	offset := max(0, len(seq)-(L+s.opts.Gap))
	window := seq[offset:]
	i, a, nErr := fuzzySearch(window, s.right, L, s.opts.AllowedErrors)
	if i < 0 {
		return EndMatch{}
	}
	return EndMatch{
		Kind:   Fuzzy,
		Tag:    s.tags[i].Seq,
		Start:  offset + a.SeqStart,
		Stop:   offset + a.SeqEnd,
		Text:   s.orient(window[a.SeqStart:a.SeqEnd]),
		Errors: nErr,
	}
}

// orient converts right-end text into tag orientation.
func (s *TagSet) orient(text string) string {
	if s.opts.Orientation == Forward {
		return text
	}
	return ReverseComplement(text)
}

func (s *TagSet) tagSeqs() []string {
	seqs := make([]string, len(s.tags))
	for i, t := range s.tags {
		seqs[i] = t.Seq
	}
	return seqs
}

// fuzzySearch aligns every candidate against window and returns the index of
// the best acceptable candidate, its alignment and its error count. It returns
// -1 if no candidate is acceptable.
//
// A candidate is rejected if either aligned row carries more than allowed gap
// characters. Its errors are the non-matching columns plus the candidate bases
// left out of the alignment. A candidate is accepted if it has at least
// length-allowed matching bases, more matches than the best so far, and no
// more errors than the best so far. The best error count starts at allowed.
func fuzzySearch(window string, candidates []string, length, allowed int) (int, align.Alignment, int) {
	var (
		best        = -1
		bestAlign   align.Alignment
		bestMatches = 0
		bestErrors  = allowed
	)
	for i, c := range candidates {
		a := align.Local(window, c)
		if !a.Found() {
			continue
		}
		if a.SeqGaps() > allowed || a.TagGaps() > allowed {
			continue
		}
		matches := a.Matches()
		nErr := a.Differences() + (len(c) - (a.TagEnd - a.TagStart))
		if matches >= length-allowed && matches > bestMatches && nErr <= bestErrors {
			best, bestAlign, bestMatches, bestErrors = i, a, matches, nErr
		}
	}
	return best, bestAlign, bestErrors
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
