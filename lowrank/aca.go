package lowrank

import (
	"github.com/jschueller/hmat-oss/hmaterr"
	"github.com/jschueller/hmat-oss/scalar"
)

// Generator evaluates a block-local matrix entry (i, j) on demand: ACA's
// entire appeal is never materializing the full m x n tile, so the
// compression kernels are driven by this callback rather than a dense
// scalar.Array.
type Generator[T scalar.Number] func(i, j int) T

// Params bounds an ACA run: it stops once either the estimated residual
// norm falls below RelTol times the running approximation norm, or Rank
// reaches MaxRank.
type Params struct {
	RelTol  float64
	MaxRank int
}

// ACAFull runs full-pivoting cross approximation: it evaluates the whole
// m x n block up front (so it costs the same as a dense assembly) and is
// mainly useful as a correctness reference for the partial-pivoting
// variant, and for blocks small enough that materializing them is cheap.
func ACAFull[T scalar.Number](gen Generator[T], m, n int, kernel scalar.Kernel[T], p Params) (*RkMatrix[T], error) {
	residual := scalar.NewArray[T](m, n, kernel)
	for j := 0; j < n; j++ {
		for i := 0; i < m; i++ {
			residual.Set(i, j, gen(i, j))
		}
	}
	maxRank := p.MaxRank
	if maxRank <= 0 || maxRank > m || maxRank > n {
		if m < n {
			maxRank = m
		} else {
			maxRank = n
		}
	}
	aCols := make([][]T, 0, maxRank)
	bCols := make([][]T, 0, maxRank)
	normSq := 0.0
	converged := false
	for rank := 0; rank < maxRank; rank++ {
		pi, pj, best := 0, 0, -1.0
		for j := 0; j < n; j++ {
			for i := 0; i < m; i++ {
				if v := kernel.Abs(residual.Get(i, j)); v > best {
					best, pi, pj = v, i, j
				}
			}
		}
		if best == 0 {
			converged = true
			break
		}
		pivot := residual.Get(pi, pj)
		col := make([]T, m)
		row := make([]T, n)
		for i := 0; i < m; i++ {
			col[i] = residual.Get(i, pj)
		}
		invPivot := kernel.One() / pivot
		for j := 0; j < n; j++ {
			row[j] = residual.Get(pi, j) * invPivot
		}
		for j := 0; j < n; j++ {
			for i := 0; i < m; i++ {
				residual.Set(i, j, residual.Get(i, j)-col[i]*row[j])
			}
		}
		aCols = append(aCols, col)
		bCols = append(bCols, row)

		crossNormSq := crossTermNormSq(kernel, aCols, bCols, len(aCols)-1)
		normSq += crossNormSq
		if normSq > 0 && vectorNormSq(kernel, col)*vectorNormSq(kernel, row) <= p.RelTol*p.RelTol*normSq {
			converged = true
			break
		}
	}
	rk := assembleFactors(aCols, bCols, m, n, kernel)
	if !converged && len(aCols) >= maxRank {
		return rk, hmaterr.New(hmaterr.RankExceeded, "lowrank: ACAFull hit rank cap %d before reaching RelTol %.3e", maxRank, p.RelTol)
	}
	return rk, nil
}

// ACAPartial runs partial-pivoting cross approximation: it only ever
// evaluates one row or one column of the block per step (n_gen calls
// instead of m*n), following the classical "walk the residual by row,
// then by column" pivoting rule.
func ACAPartial[T scalar.Number](gen Generator[T], m, n int, kernel scalar.Kernel[T], p Params) (*RkMatrix[T], error) {
	return acaPartialFrom(gen, m, n, kernel, p, 0, -1)
}

// ACAPlus augments partial pivoting with an initial full-row and
// full-column probe (at a fixed reference row/column) to pick a robust
// starting pivot, guarding against the partial variant's known failure
// mode of degenerating on a block whose first row happens to lie in the
// current residual's null space. Both probes feed the first step: the
// reference column's best row seeds the starting row (unless the
// reference row's own best column scored higher, in which case the
// reference row itself is kept as the start), and the reference row's
// best column is forced as the very first pivot column rather than
// discarded, so the first rank-1 term is chosen from the full
// reference row and column jointly instead of from the row probe alone.
func ACAPlus[T scalar.Number](gen Generator[T], m, n int, kernel scalar.Kernel[T], p Params) (*RkMatrix[T], error) {
	refRow := m / 2
	refCol := n / 2
	bestCol, bestColVal := 0, -1.0
	for j := 0; j < n; j++ {
		if v := kernel.Abs(gen(refRow, j)); v > bestColVal {
			bestColVal, bestCol = v, j
		}
	}
	bestRow, bestRowVal := 0, -1.0
	for i := 0; i < m; i++ {
		if v := kernel.Abs(gen(i, refCol)); v > bestRowVal {
			bestRowVal, bestRow = v, i
		}
	}
	start := refRow
	if bestRowVal > bestColVal {
		start = bestRow
	}
	return acaPartialFrom(gen, m, n, kernel, p, start, bestCol)
}

// acaPartialFrom runs the partial-pivoting ACA loop starting from row
// startRow. startCol, when >= 0, forces the first step's pivot column to
// be startCol instead of searching the residual row for the largest
// entry (ACA-plus's reference-column seed); pass -1 for the plain
// largest-residual search partial ACA uses on every step.
func acaPartialFrom[T scalar.Number](gen Generator[T], m, n int, kernel scalar.Kernel[T], p Params, startRow, startCol int) (*RkMatrix[T], error) {
	maxRank := p.MaxRank
	if maxRank <= 0 || maxRank > m || maxRank > n {
		if m < n {
			maxRank = m
		} else {
			maxRank = n
		}
	}
	usedRows := make(map[int]bool)
	usedCols := make(map[int]bool)
	aCols := make([][]T, 0, maxRank)
	bCols := make([][]T, 0, maxRank)
	approxAt := func(i, j int) T {
		var sum T
		for k := range aCols {
			sum += aCols[k][i] * bCols[k][j]
		}
		return sum
	}
	curRow := startRow
	normSq := 0.0
	converged := false
	for rank := 0; rank < maxRank; rank++ {
		row := make([]T, n)
		for j := 0; j < n; j++ {
			row[j] = gen(curRow, j) - approxAt(curRow, j)
		}
		pj, best := -1, -1.0
		if rank == 0 && startCol >= 0 && startCol < n && !usedCols[startCol] {
			if v := kernel.Abs(row[startCol]); v > 0 {
				pj, best = startCol, v
			}
		}
		if pj < 0 {
			for j := 0; j < n; j++ {
				if usedCols[j] {
					continue
				}
				if v := kernel.Abs(row[j]); v > best {
					best, pj = v, j
				}
			}
		}
		if pj < 0 || best == 0 {
			converged = true
			break
		}
		pivot := row[pj]
		invPivot := kernel.One() / pivot
		for j := range row {
			row[j] *= invPivot
		}
		usedRows[curRow] = true
		usedCols[pj] = true
		col := make([]T, m)
		for i := 0; i < m; i++ {
			col[i] = gen(i, pj) - approxAt(i, pj)
		}
		aCols = append(aCols, col)
		bCols = append(bCols, row)
		normSq += crossTermNormSq(kernel, aCols, bCols, len(aCols)-1)
		if normSq > 0 && vectorNormSq(kernel, col)*vectorNormSq(kernel, row) <= p.RelTol*p.RelTol*normSq {
			converged = true
			break
		}
		nextRow, nb := -1, -1.0
		for i := 0; i < m; i++ {
			if usedRows[i] {
				continue
			}
			if v := kernel.Abs(col[i]); v > nb {
				nb, nextRow = v, i
			}
		}
		if nextRow < 0 {
			converged = true
			break
		}
		curRow = nextRow
	}
	rk := assembleFactors(aCols, bCols, m, n, kernel)
	if !converged && len(aCols) >= maxRank {
		return rk, hmaterr.New(hmaterr.RankExceeded, "lowrank: partial ACA hit rank cap %d before reaching RelTol %.3e", maxRank, p.RelTol)
	}
	return rk, nil
}

func vectorNormSq[T scalar.Number](kernel scalar.Kernel[T], v []T) float64 {
	sum := 0.0
	for _, x := range v {
		a := kernel.Abs(x)
		sum += a * a
	}
	return sum
}

// crossTermNormSq returns ||a_newIdx||^2 * ||b_newIdx||^2 +
// 2*sum_{k<newIdx} |<a_k,a_newIdx>| * |<b_k,b_newIdx>|: the new term's own
// squared norm plus the cross terms the running Frobenius-norm estimate
// needs when a new rank-1 term is appended (||sum u_k v_k^T||_F^2 expands
// into pairwise inner products, not just the sum of the individual term
// norms).
func crossTermNormSq[T scalar.Number](kernel scalar.Kernel[T], aCols, bCols [][]T, newIdx int) float64 {
	total := vectorNormSq(kernel, aCols[newIdx]) * vectorNormSq(kernel, bCols[newIdx])
	for k := 0; k < newIdx; k++ {
		aDot := kernel.Abs(dot(kernel, aCols[k], aCols[newIdx]))
		bDot := kernel.Abs(dot(kernel, bCols[k], bCols[newIdx]))
		total += 2 * aDot * bDot
	}
	return total
}

func dot[T scalar.Number](kernel scalar.Kernel[T], x, y []T) T {
	var sum T
	for i := range x {
		sum += kernel.Conj(x[i]) * y[i]
	}
	return sum
}

func assembleFactors[T scalar.Number](aCols, bCols [][]T, m, n int, kernel scalar.Kernel[T]) *RkMatrix[T] {
	rank := len(aCols)
	a := scalar.NewArray[T](m, rank, kernel)
	b := scalar.NewArray[T](n, rank, kernel)
	for k := 0; k < rank; k++ {
		for i := 0; i < m; i++ {
			a.Set(i, k, aCols[k][i])
		}
		for j := 0; j < n; j++ {
			b.Set(j, k, bCols[k][j])
		}
	}
	return New(a, b, kernel)
}

// SVDCompress builds the best rank-tol approximation of a dense block via
// its truncated SVD: the reference compression path (spec-accurate but
// O(m*n*min(m,n)) rather than ACA's near-linear cost), used when the
// generator is cheap to fully materialize or as a correctness cross-check
// for the ACA variants.
func SVDCompress[T scalar.Number](dense *scalar.Array[T], kernel scalar.Kernel[T], relTol float64) *RkMatrix[T] {
	work := dense.Clone()
	u, s, vt, _ := work.SVD()
	rank := 0
	if len(s) > 0 {
		threshold := relTol * s[0]
		for _, sv := range s {
			if sv > threshold {
				rank++
			} else {
				break
			}
		}
	}
	m, n := dense.Rows, dense.Cols
	a := scalar.NewArray[T](m, rank, kernel)
	b := scalar.NewArray[T](n, rank, kernel)
	for k := 0; k < rank; k++ {
		scaleVal := scalar.RealSqrt[T](s[k])
		for i := 0; i < m; i++ {
			a.Set(i, k, u.Get(i, k)*scaleVal)
		}
		for j := 0; j < n; j++ {
			b.Set(j, k, kernel.Conj(vt.Get(k, j))*scaleVal)
		}
	}
	return New(a, b, kernel)
}
