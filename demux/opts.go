package demux

import (
	"fmt"
	"strings"

	"github.com/grailbio/base/errors"
)

// Mode selects which tag levels are searched.
type Mode uint8

const (
	// OuterOnly searches outer (MID) tags only.
	OuterOnly Mode = iota
	// InnerOnly searches inner (linker) tags only.
	InnerOnly
	// Both searches outer tags, then the inner tags registered for the outer tag
	// that matched.
	Both
)

var modeNames = [...]string{"outer", "inner", "outer-inner"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", m)
}

// ParseMode converts "outer", "inner" or "outer-inner" into a Mode.
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if strings.EqualFold(s, name) {
			return Mode(i), nil
		}
	}
	return 0, errors.E(errors.Invalid, fmt.Sprintf("unknown search mode %q, expect one of %v", s, modeNames))
}

// Orientation describes how a tag appears at the right end of a read.
type Orientation uint8

const (
	// Reverse means the right end carries the reverse complement of the tag.
	Reverse Orientation = iota
	// Forward means the right end carries the tag as written.
	Forward
)

func (o Orientation) String() string {
	if o == Forward {
		return "forward"
	}
	return "reverse"
}

// ParseOrientation converts "reverse" or "forward" into an Orientation.
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(s) {
	case "reverse", "":
		return Reverse, nil
	case "forward":
		return Forward, nil
	}
	return 0, errors.E(errors.Invalid, fmt.Sprintf("unknown orientation %q, expect reverse or forward", s))
}

// MismatchPolicy decides when two ends that matched different tags make a
// tag-mismatch.
type MismatchPolicy uint8

const (
	// MismatchAny declares a mismatch whenever both ends matched, wherever the
	// matches are.
	MismatchAny MismatchPolicy = iota
	// MismatchWithinGap declares a mismatch only when both matches lie within gap
	// tolerance of their ends. Otherwise the end that lies within tolerance is
	// treated as a one-sided match.
	MismatchWithinGap
)

func (p MismatchPolicy) String() string {
	if p == MismatchWithinGap {
		return "within-gap"
	}
	return "any"
}

// ParseMismatchPolicy converts "any" or "within-gap" into a MismatchPolicy.
func ParseMismatchPolicy(s string) (MismatchPolicy, error) {
	switch strings.ToLower(s) {
	case "any", "":
		return MismatchAny, nil
	case "within-gap":
		return MismatchWithinGap, nil
	}
	return 0, errors.E(errors.Invalid, fmt.Sprintf("unknown mismatch policy %q, expect any or within-gap", s))
}

// LevelOpts configures tag search at one level of the hierarchy.
type LevelOpts struct {
	// Fuzzy enables the alignment pass when no tag is found exactly.
	Fuzzy bool
	// AllowedErrors is the max number of substitutions, insertions and deletions
	// a fuzzy match may carry.
	AllowedErrors int
	// Gap is the max number of non-tag bases tolerated between a read end and
	// its tag. It also sizes the fuzzy search window.
	Gap int
	// BothEnds searches the right end of the read as well as the left.
	BothEnds bool
	// Orientation of the tag at the right end.
	Orientation Orientation
}

// ConcatOpts configures concatemer detection.
type ConcatOpts struct {
	// Check enables the scan.
	Check bool
	// Fuzzy enables the alignment pass when no tag is found exactly.
	Fuzzy bool
	// AllowedErrors bounds the errors of a fuzzy concatemer match.
	AllowedErrors int
}

// Opts holds the run options. An Opts is immutable once a run starts.
type Opts struct {
	// Mode selects the searched tag levels.
	Mode Mode
	// Outer and Inner configure the two tag levels.
	Outer, Inner LevelOpts
	// Concat configures concatemer detection.
	Concat ConcatOpts
	// QualTrim trims bases with phred score below MinQual from both read ends
	// before tag search.
	QualTrim bool
	MinQual  int
	// MismatchPolicy picks the rule for reads whose two ends matched different
	// tags.
	MismatchPolicy MismatchPolicy
	// Parallelism is the number of classification workers. 1 classifies reads
	// in order on the calling goroutine.
	Parallelism int
}

// DefaultOpts sets the default values to Opts.
var DefaultOpts = Opts{
	Mode: Both,
	Outer: LevelOpts{
		Fuzzy:         true,
		AllowedErrors: 1,
		Gap:           5,
		BothEnds:      true,
	},
	Inner: LevelOpts{
		Fuzzy:         true,
		AllowedErrors: 1,
		Gap:           5,
		BothEnds:      true,
	},
	Concat: ConcatOpts{
		Check:         false,
		Fuzzy:         true,
		AllowedErrors: 1,
	},
	QualTrim:    false,
	MinQual:     10,
	Parallelism: 1,
}

// Validate checks the options for values that can never work.
func (o Opts) Validate() error {
	if o.Mode > Both {
		return errors.E(errors.Invalid, fmt.Sprintf("invalid mode %v", o.Mode))
	}
	check := func(level string, l LevelOpts) error {
		if l.AllowedErrors < 0 {
			return errors.E(errors.Invalid, fmt.Sprintf("%s: negative allowed errors %d", level, l.AllowedErrors))
		}
		if l.Gap < 0 {
			return errors.E(errors.Invalid, fmt.Sprintf("%s: negative gap %d", level, l.Gap))
		}
		return nil
	}
	if err := check("outer", o.Outer); err != nil {
		return err
	}
	if err := check("inner", o.Inner); err != nil {
		return err
	}
	if o.Concat.AllowedErrors < 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("concatemers: negative allowed errors %d", o.Concat.AllowedErrors))
	}
	if o.QualTrim && o.MinQual < 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("negative min quality %d", o.MinQual))
	}
	if o.Parallelism < 1 {
		return errors.E(errors.Invalid, fmt.Sprintf("parallelism must be at least 1, got %d", o.Parallelism))
	}
	return nil
}
