package demux

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/grailbio/base/errors"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/demux/biosimd"
)

// ReverseComplement returns the reverse complement of a DNA sequence. Lower
// case input is folded to upper case; anything outside ACGT maps to 'N'.
func ReverseComplement(seq string) string {
	b := make([]byte, len(seq))
	biosimd.ReverseComp8(b, gunsafe.StringToBytes(seq))
	return gunsafe.BytesToString(b)
}

// allBases reports whether s consists only of A, C, G, T and N.
func allBases(s string) bool {
	return !biosimd.IsNonACGTNPresent(gunsafe.StringToBytes(s))
}

// normalizeTag upper-cases seq and checks that it is a non-empty string over
// ACGTN.
func normalizeTag(name, seq string) (string, error) {
	b := bytes.ToUpper([]byte(strings.TrimSpace(seq)))
	if len(b) == 0 {
		return "", errors.E(errors.Invalid, fmt.Sprintf("tag %q has an empty sequence", name))
	}
	if biosimd.IsNonACGTNPresent(b) {
		return "", errors.E(errors.Invalid, fmt.Sprintf("tag %q: sequence %s contains bases other than ACGTN", name, b))
	}
	return gunsafe.BytesToString(b), nil
}
