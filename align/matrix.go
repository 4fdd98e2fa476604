package align

import "math"

// matrix represents a 2 dimensional matrix.
type matrix struct {
	nRow, nCol int
	data       []int // row-major nRow*nCol array.
}

// newMatrix returns an n x m matrix, with every cell set to v.
func newMatrix(n, m, v int) matrix {
	x := matrix{
		nRow: n,
		nCol: m,
		data: make([]int, n*m),
	}
	if v != 0 {
		for i := range x.data {
			x.data[i] = v
		}
	}
	return x
}

func (m matrix) at(i, j int) int { return m.data[i*m.nCol+j] }

func (m matrix) set(i, j, v int) { m.data[i*m.nCol+j] = v }

// state is one of the three Gotoh alignment states a traceback can be in.
//
//   ___|___
//    1 | 3
//    2 | 4
//
// (1 -> 4) diagonal: the sequence and tag bases are paired.
// (3 -> 4) down: a sequence base is paired with a gap in the tag.
// (2 -> 4) right: a tag base is paired with a gap in the sequence.
type state uint8

const (
	diagonal state = iota
	down
	right
)

// negInf stands in for an unreachable cell. Adding gap penalties to it stays
// within int32.
const negInf = math.MinInt32 / 2
