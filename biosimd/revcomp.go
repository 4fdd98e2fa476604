package biosimd

import "github.com/grailbio/base/simd"

// revComp8Table maps 'A'/'a' to 'T', 'C'/'c' to 'G', 'G'/'g' to 'C', 'T'/'t'
// to 'A', and everything else to 'N'.
var revComp8Table = makeTable('N', "AT", "CG", "GC", "TA", "at", "cg", "gc", "ta")

// makeTable returns a 256-entry byte table filled with def, except that
// pair[0] maps to pair[1] for every pair.
func makeTable(def byte, pairs ...string) (t [256]byte) {
	for i := range t {
		t[i] = def
	}
	for _, p := range pairs {
		t[p[0]] = p[1]
	}
	return
}

// ReverseComp8 writes the reverse-complement of src[] to dst[], assuming that
// src is using ASCII encoding. Lower case bases are complemented to upper case,
// and anything outside ACGTacgt becomes 'N'.
//
// It panics if len(dst) != len(src).
func ReverseComp8(dst, src []byte) {
	simd.Reverse8(dst, src)
	for pos, c := range dst {
		dst[pos] = revComp8Table[c]
	}
}
