// Package demux classifies sequencing reads into samples by the tags ligated
// onto their ends. Tags come in up to two levels: an outer (MID) tag naming a
// pooled batch and an inner (linker) tag naming a sample within the batch. The
// set of inner tags searched depends on which outer tag matched.
//
// A run builds one Library from the tag dictionaries and the sample groups,
// then classifies every read with a Classifier. Run fans reads out to
// parallel workers and collects the resulting Records.
package demux

import (
	"fmt"
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/demux/align"
)

// NoTag stands for the absent tag of a level that is not searched, in cluster
// and inner tag set lookups.
const NoTag = ""

// Unassigned is the cluster of reads whose tags do not name a sample.
const Unassigned = "unassigned"

// Group assigns the reads carrying an (outer, inner) tag pair to a sample.
// Tags are referenced by name. The inner name is ignored in OuterOnly mode and
// the outer name in InnerOnly mode.
type Group struct {
	Outer, Inner string
	Sample       string
}

// LibrarySpec lists the tag dictionaries and the sample groups of a run.
type LibrarySpec struct {
	OuterTags []Tag
	InnerTags []Tag
	Groups    []Group
}

type clusterKey struct {
	outer, inner string
}

// Library holds the tag sets and the sample map of a run. It is immutable
// after NewLibrary and safe for concurrent use.
type Library struct {
	mode     Mode
	outer    *TagSet
	inner    map[string]*TagSet // outer tag sequence (or NoTag) -> inner tags
	clusters map[clusterKey]string
	samples  []string
	// concat lists, per inner scope, the forward and reverse-complement tags
	// searched for concatemers. concatSeqs holds the same sequences.
	concat     map[string][]Tag
	concatSeqs map[string][]string
}

// dictionary maps tag names to normalized sequences.
type dictionary map[string]string

func newDictionary(label string, tags []Tag) (dictionary, error) {
	d := dictionary{}
	seqs := map[string]string{}
	for _, t := range tags {
		if t.Name == "" {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("%s tag with sequence %s has no name", label, t.Seq))
		}
		seq, err := normalizeTag(t.Name, t.Seq)
		if err != nil {
			return nil, err
		}
		if old, ok := d[t.Name]; ok && old != seq {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("%s tag %s defined twice: %s and %s", label, t.Name, old, seq))
		}
		if other, ok := seqs[seq]; ok && other != t.Name {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("%s tags %s and %s share sequence %s", label, other, t.Name, seq))
		}
		d[t.Name] = seq
		seqs[seq] = t.Name
	}
	return d, nil
}

func (d dictionary) lookup(label, name string) (Tag, error) {
	seq, ok := d[name]
	if !ok {
		return Tag{}, errors.E(errors.Invalid, fmt.Sprintf("unknown %s tag %q", label, name))
	}
	return Tag{Name: name, Seq: seq}, nil
}

// NewLibrary validates spec and builds the tag sets and the sample map. All
// configuration problems are reported here, before any read is classified.
func NewLibrary(spec LibrarySpec, opts Opts) (*Library, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(spec.Groups) == 0 {
		return nil, errors.E(errors.Invalid, "no sample groups defined")
	}
	outerDict, err := newDictionary("outer", spec.OuterTags)
	if err != nil {
		return nil, err
	}
	innerDict, err := newDictionary("inner", spec.InnerTags)
	if err != nil {
		return nil, err
	}
	lib := &Library{
		mode:       opts.Mode,
		inner:      map[string]*TagSet{},
		clusters:   map[clusterKey]string{},
		concat:     map[string][]Tag{},
		concatSeqs: map[string][]string{},
	}
	if opts.Mode != InnerOnly {
		lib.outer = newTagSet(opts.Outer)
	}
	samples := map[string]struct{}{}
	for _, g := range spec.Groups {
		if g.Sample == "" {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("group (%s, %s) has no sample name", g.Outer, g.Inner))
		}
		if g.Sample == Unassigned {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("sample name %q is reserved", Unassigned))
		}
		key := clusterKey{NoTag, NoTag}
		if opts.Mode != InnerOnly {
			outer, err := outerDict.lookup("outer", g.Outer)
			if err != nil {
				return nil, err
			}
			lib.outer.add(outer)
			key.outer = outer.Seq
		}
		if opts.Mode != OuterOnly {
			inner, err := innerDict.lookup("inner", g.Inner)
			if err != nil {
				return nil, err
			}
			set, ok := lib.inner[key.outer]
			if !ok {
				set = newTagSet(opts.Inner)
				lib.inner[key.outer] = set
			}
			set.add(inner)
			key.inner = inner.Seq
		}
		if old, ok := lib.clusters[key]; ok && old != g.Sample {
			return nil, errors.E(errors.Invalid,
				fmt.Sprintf("tags (%s, %s) map to both %s and %s", g.Outer, g.Inner, old, g.Sample))
		}
		lib.clusters[key] = g.Sample
		samples[g.Sample] = struct{}{}
	}
	for s := range samples {
		lib.samples = append(lib.samples, s)
	}
	sort.Strings(lib.samples)

	if lib.outer != nil {
		if err := lib.outer.seal("outer"); err != nil {
			return nil, err
		}
		warnAmbiguous("outer", lib.outer)
	}
	for _, key := range lib.innerScopes() {
		set := lib.inner[key]
		label := "inner"
		if key != NoTag {
			name, _ := lib.outer.Name(key)
			label = fmt.Sprintf("inner (outer %s)", name)
		}
		if err := set.seal(label); err != nil {
			return nil, err
		}
		warnAmbiguous(label, set)
	}
	if opts.Concat.Check {
		lib.buildConcat()
	}
	log.Debug.Printf("library: mode %v, %d outer tags, %d inner scopes, %d groups, %d samples",
		lib.mode, len(lib.outer.Tags()), len(lib.inner), len(lib.clusters), len(lib.samples))
	return lib, nil
}

// innerScopes returns the keys of l.inner in outer tag registration order.
func (l *Library) innerScopes() []string {
	if l.outer == nil {
		if _, ok := l.inner[NoTag]; ok {
			return []string{NoTag}
		}
		return nil
	}
	var keys []string
	for _, t := range l.outer.Tags() {
		if _, ok := l.inner[t.Seq]; ok {
			keys = append(keys, t.Seq)
		}
	}
	return keys
}

// buildConcat lists the forward and reverse-complement tags searched for
// concatemers in each scope. In OuterOnly mode every outer tag shares the list
// of all outer tags.
func (l *Library) buildConcat() {
	both := func(tags []Tag) []Tag {
		r := append([]Tag(nil), tags...)
		for _, t := range tags {
			r = append(r, Tag{Name: t.Name, Seq: ReverseComplement(t.Seq)})
		}
		return r
	}
	if l.mode == OuterOnly {
		all := both(l.outer.Tags())
		for _, t := range l.outer.Tags() {
			l.concat[t.Seq] = all
		}
	} else {
		for key, set := range l.inner {
			l.concat[key] = both(set.Tags())
		}
	}
	for key, tags := range l.concat {
		seqs := make([]string, len(tags))
		for i, t := range tags {
			seqs[i] = t.Seq
		}
		l.concatSeqs[key] = seqs
	}
}

// warnAmbiguous logs pairs of tags that fuzzy matching cannot tell apart.
func warnAmbiguous(label string, s *TagSet) {
	if !s.opts.Fuzzy {
		return
	}
	tags := s.Tags()
	for i := range tags {
		for j := i + 1; j < len(tags); j++ {
			if d := align.Levenshtein(tags[i].Seq, tags[j].Seq); d <= 2*s.opts.AllowedErrors {
				log.Error.Printf("%s tags %s and %s are %d edits apart; fuzzy matches between them favor %s",
					label, tags[i].Name, tags[j].Name, d, tags[i].Name)
			}
		}
	}
}

// Mode returns the search mode the library was built for.
func (l *Library) Mode() Mode { return l.mode }

// Outer returns the outer tag set, or nil in InnerOnly mode.
func (l *Library) Outer() *TagSet { return l.outer }

// Inner returns the inner tags searched after outer tag outer matched. In
// InnerOnly mode outer must be NoTag. It returns nil if no inner tag is
// registered for outer.
func (l *Library) Inner(outer string) *TagSet { return l.inner[outer] }

// Cluster returns the sample for the (outer, inner) tag pair, or Unassigned.
func (l *Library) Cluster(outer, inner string) string {
	if s, ok := l.clusters[clusterKey{outer, inner}]; ok {
		return s
	}
	return Unassigned
}

// Samples returns the sorted sample names.
func (l *Library) Samples() []string { return l.samples }

// ConcatTags returns the tags searched for concatemers in the given scope: the
// matched outer tag, or NoTag in InnerOnly mode.
func (l *Library) ConcatTags(scope string) []Tag { return l.concat[scope] }
