package align

// Levenshtein computes the edit distance between two tags: the number of
// insertions, deletions, and substitutions it takes to transform s1 into s2.
func Levenshtein(s1, s2 string) int {
	rows, cols := len(s1), len(s2)
	m := newMatrix(rows+1, cols+1, 0)
	for i := 0; i <= rows; i++ {
		m.set(i, 0, i)
	}
	for j := 0; j <= cols; j++ {
		m.set(0, j, j)
	}
	for i := 1; i <= rows; i++ {
		for j := 1; j <= cols; j++ {
			if s1[i-1] == s2[j-1] {
				m.set(i, j, m.at(i-1, j-1))
				continue
			}
			v := m.at(i-1, j) + 1
			if d := m.at(i-1, j-1) + 1; d < v {
				v = d
			}
			if r := m.at(i, j-1) + 1; r < v {
				v = r
			}
			m.set(i, j, v)
		}
	}
	return m.at(rows, cols)
}
