// Package lowrank implements the data-sparse representation every
// admissible block collapses to: an RkMatrix M ~= A*B^T with A (m x k)
// and B (n x k), plus the compression kernels that build or shrink one
// (truncated SVD, ACA in its full/partial/plus variants, and the
// modified-Gram-Schmidt recompression scalar.Array already provides).
//
// The factor-pair representation and the recompress-after-add pattern
// follow rwcarlsen-fem's sparse.Matrix design in spirit (a sparse
// structure kept compact by construction rather than densified and
// re-sparsified), generalized here from "mostly zero" to "numerically
// low rank".
package lowrank

import (
	"github.com/jschueller/hmat-oss/scalar"
)

// RkMatrix is the low-rank factor pair for an m x n block: M = A * B^T,
// A m x k, B n x k, k == Rank.
type RkMatrix[T scalar.Number] struct {
	A, B   *scalar.Array[T]
	Rank   int
	kernel scalar.Kernel[T]
}

// New wraps an existing (A, B) factor pair; no copy is made.
func New[T scalar.Number](a, b *scalar.Array[T], kernel scalar.Kernel[T]) *RkMatrix[T] {
	return &RkMatrix[T]{A: a, B: b, Rank: a.Cols, kernel: kernel}
}

// Zero returns the m x n zero-rank matrix (no compression achieved yet:
// an admissible block whose generator produced an exactly-zero tile).
func Zero[T scalar.Number](m, n int, kernel scalar.Kernel[T]) *RkMatrix[T] {
	return &RkMatrix[T]{A: scalar.NewArray[T](m, 0, kernel), B: scalar.NewArray[T](n, 0, kernel), Rank: 0, kernel: kernel}
}

func (r *RkMatrix[T]) Rows() int { return r.A.Rows }
func (r *RkMatrix[T]) Cols() int { return r.B.Rows }

// ToDense expands M = A*B^T into a freshly allocated dense tile.
func (r *RkMatrix[T]) ToDense() *scalar.Array[T] {
	out := scalar.NewArray[T](r.Rows(), r.Cols(), r.kernel)
	if r.Rank == 0 {
		return out
	}
	scalar.Gemm[T]('N', 'T', r.kernel.One(), r.A, r.B, r.kernel.Zero(), out)
	return out
}

// clone returns an independent deep copy.
func (r *RkMatrix[T]) clone() *RkMatrix[T] {
	return &RkMatrix[T]{A: r.A.Clone(), B: r.B.Clone(), Rank: r.Rank, kernel: r.kernel}
}

// Scale multiplies every entry of M by alpha (equivalently, scales A).
func (r *RkMatrix[T]) Scale(alpha T) {
	if r.Rank > 0 {
		r.A.Scale(alpha)
	}
}

// AddRk returns the recompressed sum of r and other (same shape):
// concatenates their factor pairs (rank r.Rank+other.Rank) then shrinks
// back down via Truncate.
func (r *RkMatrix[T]) AddRk(other *RkMatrix[T], epsilon float64) *RkMatrix[T] {
	if r.Rank == 0 {
		return other.clone()
	}
	if other.Rank == 0 {
		return r.clone()
	}
	sumRank := r.Rank + other.Rank
	m, n := r.Rows(), r.Cols()
	a := scalar.NewArray[T](m, sumRank, r.kernel)
	b := scalar.NewArray[T](n, sumRank, r.kernel)
	copyColumns(a, r.A, 0)
	copyColumns(a, other.A, r.Rank)
	copyColumns(b, r.B, 0)
	copyColumns(b, other.B, r.Rank)
	sum := &RkMatrix[T]{A: a, B: b, Rank: sumRank, kernel: r.kernel}
	sum.Truncate(epsilon)
	return sum
}

// AddDense returns the dense sum r.ToDense() + d, without recompression:
// mixed Rk+Dense addition always promotes to dense per the block
// algebra's mixed-variant dispatch policy.
func (r *RkMatrix[T]) AddDense(d *scalar.Array[T]) *scalar.Array[T] {
	out := d.Clone()
	if r.Rank == 0 {
		return out
	}
	scalar.Gemm[T]('N', 'T', r.kernel.One(), r.A, r.B, r.kernel.One(), out)
	return out
}

func copyColumns[T scalar.Number](dst, src *scalar.Array[T], colOffset int) {
	for j := 0; j < src.Cols; j++ {
		for i := 0; i < src.Rows; i++ {
			dst.Set(i, colOffset+j, src.Get(i, j))
		}
	}
}

// Truncate recompresses M in place to the smallest rank whose discarded
// singular values are all <= epsilon * sigma_max, via QR-then-SVD: if
// Rank already exceeds min(Rows,Cols) this is where the excess from a
// concatenate-heavy AddRk chain gets shed.
func (r *RkMatrix[T]) Truncate(epsilon float64) {
	if r.Rank == 0 {
		return
	}
	// Orthogonalize A and B via QR so the joint SVD only needs to work
	// on the small Rank x Rank core, following the classical "QR then
	// SVD of the small core" recompression trick.
	aCopy := r.A.Clone()
	tauA := aCopy.QR()
	rA := extractR(aCopy, r.Rank)

	bCopy := r.B.Clone()
	tauB := bCopy.QR()
	rB := extractR(bCopy, r.Rank)

	core := scalar.NewArray[T](r.Rank, r.Rank, r.kernel)
	scalar.Gemm[T]('N', 'T', r.kernel.One(), rA, rB, r.kernel.Zero(), core)

	u, s, vt, _ := core.SVD()

	newRank := 0
	if len(s) > 0 {
		threshold := epsilon * s[0]
		for _, sv := range s {
			if sv > threshold {
				newRank++
			} else {
				break
			}
		}
	}
	if newRank == 0 {
		r.A = scalar.NewArray[T](r.Rows(), 0, r.kernel)
		r.B = scalar.NewArray[T](r.Cols(), 0, r.kernel)
		r.Rank = 0
		return
	}

	// newA = Q_A * U[:, :newRank] * diag(sqrt(s))
	uTrunc := u.Sub(0, r.Rank, 0, newRank)
	paddedA := embedTop(uTrunc, r.Rows(), r.kernel)
	aCopy.ApplyQ('L', 'N', tauA, paddedA)
	newA := scalar.NewArray[T](r.Rows(), newRank, r.kernel)
	copyEmbedded(newA, paddedA, r.Rows())

	vTrunc := scalar.NewArray[T](r.Rank, newRank, r.kernel)
	for j := 0; j < newRank; j++ {
		for i := 0; i < r.Rank; i++ {
			vTrunc.Set(i, j, r.kernel.Conj(vt.Get(j, i)))
		}
	}
	paddedB := embedTop(vTrunc, r.Cols(), r.kernel)
	bCopy.ApplyQ('L', 'N', tauB, paddedB)
	newB := scalar.NewArray[T](r.Cols(), newRank, r.kernel)
	copyEmbedded(newB, paddedB, r.Cols())

	for j := 0; j < newRank; j++ {
		scaleVal := scalar.RealSqrt[T](s[j])
		for i := 0; i < r.Rows(); i++ {
			newA.Set(i, j, newA.Get(i, j)*scaleVal)
		}
		for i := 0; i < r.Cols(); i++ {
			newB.Set(i, j, newB.Get(i, j)*scaleVal)
		}
	}

	r.A, r.B, r.Rank = newA, newB, newRank
}

// extractR returns the top rank x rank upper-triangular block produced
// by a prior in-place QR call (the reflector vectors below the diagonal
// are not part of R).
func extractR[T scalar.Number](qr *scalar.Array[T], rank int) *scalar.Array[T] {
	out := scalar.NewArray[T](rank, rank, scalar.KernelFor[T]())
	for j := 0; j < rank; j++ {
		for i := 0; i <= j && i < rank && i < qr.Rows; i++ {
			out.Set(i, j, qr.Get(i, j))
		}
	}
	return out
}

// embedTop pads a (rank x cols) block up to (fullRows x cols) with zero
// rows below it, so it can serve as the right-hand side of ApplyQ; when
// rank exceeds fullRows, the block's rows past fullRows are dropped.
func embedTop[T scalar.Number](block *scalar.Array[T], fullRows int, kernel scalar.Kernel[T]) *scalar.Array[T] {
	out := scalar.NewArray[T](fullRows, block.Cols, kernel)
	for j := 0; j < block.Cols; j++ {
		for i := 0; i < block.Rows && i < fullRows; i++ {
			out.Set(i, j, block.Get(i, j))
		}
	}
	return out
}

func copyEmbedded[T scalar.Number](dst, expandedInPlace *scalar.Array[T], fullRows int) {
	// after ApplyQ mutated the padded buffer in place via embedTop's
	// returned pointer, this helper copies that buffer's first dst.Rows
	// rows into dst; it exists so Truncate reads as a straight-line
	// sequence of named steps.
	for j := 0; j < dst.Cols; j++ {
		for i := 0; i < dst.Rows; i++ {
			dst.Set(i, j, expandedInPlace.Get(i, j))
		}
	}
}
