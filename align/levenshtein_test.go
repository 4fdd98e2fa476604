package align

import (
	"testing"

	"github.com/antzucaro/matchr"
	"github.com/grailbio/testutil/expect"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		s1, s2 string
		want   int
	}{
		{"ACGTACGT", "ACGTACGT", 0},
		{"ACGTACGT", "ACGTTCGT", 1},
		{"ACAATTGG", "AXAAXTGX", 3},
		{"ATCGGT", "ACGGTX", 2},
		{"", "ACG", 3},
		{"GCTAGCAC", "", 8},
	}
	for _, test := range tests {
		expect.EQ(t, Levenshtein(test.s1, test.s2), test.want, "%s %s", test.s1, test.s2)
	}
}

// TestLevenshteinMatchr cross-checks Levenshtein against an independent
// implementation.
func TestLevenshteinMatchr(t *testing.T) {
	tags := []string{
		"ACGAGTGCGT", "ACGCTCGACA", "AGACGCACTC", "AGCACTGTAG",
		"ATCAGACACG", "ATATCGCGAG", "CGTGTCTCTA", "CTCGCGTGTC",
	}
	for _, a := range tags {
		for _, b := range tags {
			expect.EQ(t, Levenshtein(a, b), matchr.Levenshtein(a, b), "%s %s", a, b)
		}
	}
}
