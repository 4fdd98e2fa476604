package demux

import "strings"

// Classifier resolves the tags of reads against a Library. It holds no
// per-read state and is safe for concurrent use.
type Classifier struct {
	lib  *Library
	opts Opts
}

// NewClassifier creates a Classifier. opts must be the options lib was built
// with.
func NewClassifier(lib *Library, opts Opts) *Classifier {
	return &Classifier{lib: lib, opts: opts}
}

// Classify trims the tags off r, resolves its sample and looks for
// concatemers. r is not modified.
func (c *Classifier) Classify(r Read) *Record {
	rec := &Record{
		Name:         ReadName(r.ID),
		UntrimmedLen: len(r.Seq),
	}
	seq := strings.ToUpper(r.Seq)
	var qual []byte
	if r.Qual != nil {
		qual = append([]byte(nil), r.Qual...)
	}
	if c.opts.QualTrim {
		seq, qual = trimQuality(seq, qual, c.opts.MinQual)
	}

	outer, inner := NoTag, NoTag
	if set := c.lib.Outer(); set != nil {
		rec.Outer, seq, qual = c.resolve(set, seq, qual)
		if rec.Outer.Resolved() {
			outer = rec.Outer.Tag
		}
	}
	switch c.lib.Mode() {
	case InnerOnly:
		rec.Inner, seq, qual = c.resolve(c.lib.Inner(NoTag), seq, qual)
	case Both:
		if rec.Outer.Resolved() {
			if set := c.lib.Inner(outer); set != nil {
				rec.Inner, seq, qual = c.resolve(set, seq, qual)
			}
		}
	}
	if rec.Inner.Resolved() {
		inner = rec.Inner.Tag
	}
	rec.Cluster = c.lib.Cluster(outer, inner)
	rec.Seq, rec.Qual = seq, qual

	if c.opts.Concat.Check && len(seq) > 0 && c.deepEnough(rec) {
		rec.Concat = c.scanConcat(outer, seq)
	}
	return rec
}

// deepEnough reports whether rec resolved every level its mode searches.
func (c *Classifier) deepEnough(rec *Record) bool {
	switch c.lib.Mode() {
	case OuterOnly:
		return rec.Outer.Resolved()
	case InnerOnly:
		return rec.Inner.Resolved()
	}
	return rec.Outer.Resolved() && rec.Inner.Resolved()
}

// resolve searches set at the ends of seq, decides the outcome, and trims the
// resolved tag off seq and qual.
//
// Outcomes, in priority order:
//
//   1. both ends found the same tag: keep [left.Stop, right.Start).
//   2. both ends found different tags: mismatch, no trim.
//   3. only the left end found a tag, starting within the gap: keep [left.Stop, end).
//   4. only the right end found a tag, starting within gap+taglen of the end:
//      keep [0, right.Start).
//   5. no tag.
//
// Under MismatchWithinGap, rule 2 applies only when both matches lie within
// the gap; otherwise the match within the gap is used as in rules 3 and 4.
func (c *Classifier) resolve(set *TagSet, seq string, qual []byte) (TagMatch, string, []byte) {
	if set == nil {
		return TagMatch{}, seq, qual
	}
	m := TagMatch{Left: set.MatchLeft(seq)}
	if set.BothEnds() {
		m.Right = set.MatchRight(seq)
	}
	var (
		l, r        = m.Left, m.Right
		n           = len(seq)
		bothMatched = l.Matched() && r.Matched()
		leftOK      = l.Matched() && l.Start <= set.Gap()
		rightOK     = r.Matched() && r.Start >= n-(set.Len()+set.Gap())
		withinGap   = c.opts.MismatchPolicy == MismatchWithinGap
		start, end  = 0, n
	)
	switch {
	case bothMatched && l.Tag == r.Tag:
		m.Outcome, m.Tag = BothEnds, l.Tag
		start, end = l.Stop, max(l.Stop, r.Start)
	case bothMatched && (!withinGap || leftOK && rightOK):
		m.Outcome = Mismatch
	case leftOK && (!r.Matched() || withinGap):
		m.Outcome, m.Tag = LeftEnd, l.Tag
		start = l.Stop
	case rightOK && (!l.Matched() || withinGap):
		m.Outcome, m.Tag = RightEnd, r.Tag
		end = r.Start
	default:
		return m, seq, qual
	}
	if m.Tag != "" {
		m.Name, _ = set.Name(m.Tag)
	}
	if len(qual) == n {
		qual = qual[start:end]
	}
	return m, seq[start:end], qual
}

// scanConcat looks for any tag of the scope, forward or reverse complement,
// anywhere in seq. Exact occurrences are tried first, in tag order.
func (c *Classifier) scanConcat(scope, seq string) ConcatMatch {
	tags := c.lib.ConcatTags(scope)
	for _, t := range tags {
		if i := strings.Index(seq, t.Seq); i >= 0 {
			return ConcatMatch{Kind: Exact, Tag: t.Seq, Name: t.Name, Start: i, Stop: i + len(t.Seq), Text: t.Seq}
		}
	}
	if !c.opts.Concat.Fuzzy || len(tags) == 0 {
		return ConcatMatch{}
	}
	i, a, _ := fuzzySearch(seq, c.lib.concatSeqs[scope], len(tags[0].Seq), c.opts.Concat.AllowedErrors)
	if i < 0 {
		return ConcatMatch{}
	}
	return ConcatMatch{
		Kind:  Fuzzy,
		Tag:   tags[i].Seq,
		Name:  tags[i].Name,
		Start: a.SeqStart,
		Stop:  a.SeqEnd,
		Text:  seq[a.SeqStart:a.SeqEnd],
	}
}
