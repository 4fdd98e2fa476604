package biosimd

var isCapitalACGTNTable = func() (t [256]bool) {
	for _, c := range []byte("ACGTN") {
		t[c] = true
	}
	return
}()

// IsNonACGTNPresent returns true iff there is a non-capital-ACGTN character in
// the slice.
func IsNonACGTNPresent(ascii8 []byte) bool {
	for _, c := range ascii8 {
		if !isCapitalACGTNTable[c] {
			return true
		}
	}
	return false
}
