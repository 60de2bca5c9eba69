package scalar

import (
	"fmt"
	"math"
)

// Array is a dense, column-major matrix tile: storage[i+j*LDA] holds
// element (i, j). It is the leaf payload every DenseLeaf carries and the
// factor buffer every RkMatrix's A and B slices are drawn from. Like
// rwcarlsen-fem's sparse vectors, out-of-bounds and shape-mismatch calls
// panic rather than returning an error: those are programmer mistakes,
// not runtime conditions the caller can recover from.
type Array[T Number] struct {
	Rows, Cols int
	LDA        int
	Data       []T
	kernel     Kernel[T]
}

// NewArray allocates a zeroed Rows x Cols tile with LDA == Rows (the
// tightest possible column-major layout).
func NewArray[T Number](rows, cols int, kernel Kernel[T]) *Array[T] {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("scalar: negative dimension %dx%d", rows, cols))
	}
	return &Array[T]{Rows: rows, Cols: cols, LDA: rows, Data: make([]T, rows*cols), kernel: kernel}
}

// View wraps an existing column-major buffer without copying: used to
// build a sub-block view over a larger tile's storage.
func View[T Number](rows, cols, lda int, data []T, kernel Kernel[T]) *Array[T] {
	return &Array[T]{Rows: rows, Cols: cols, LDA: lda, Data: data, kernel: kernel}
}

func (a *Array[T]) at(i, j int) int {
	if i < 0 || i >= a.Rows || j < 0 || j >= a.Cols {
		panic(fmt.Sprintf("scalar: index (%d,%d) out of bounds for %dx%d array", i, j, a.Rows, a.Cols))
	}
	return i + j*a.LDA
}

// Get returns element (i, j).
func (a *Array[T]) Get(i, j int) T { return a.Data[a.at(i, j)] }

// Set assigns element (i, j).
func (a *Array[T]) Set(i, j int, v T) { a.Data[a.at(i, j)] = v }

// Sub returns a zero-copy view of the rectangle [rowBegin,rowEnd) x
// [colBegin,colEnd), sharing storage with a.
func (a *Array[T]) Sub(rowBegin, rowEnd, colBegin, colEnd int) *Array[T] {
	if rowBegin < 0 || rowEnd > a.Rows || colBegin < 0 || colEnd > a.Cols || rowBegin > rowEnd || colBegin > colEnd {
		panic(fmt.Sprintf("scalar: invalid sub-block [%d:%d, %d:%d] of %dx%d array", rowBegin, rowEnd, colBegin, colEnd, a.Rows, a.Cols))
	}
	offset := rowBegin + colBegin*a.LDA
	return &Array[T]{
		Rows:   rowEnd - rowBegin,
		Cols:   colEnd - colBegin,
		LDA:    a.LDA,
		Data:   a.Data[offset:],
		kernel: a.kernel,
	}
}

// Clone returns a tightly packed, independently owned copy of a.
func (a *Array[T]) Clone() *Array[T] {
	out := NewArray[T](a.Rows, a.Cols, a.kernel)
	for j := 0; j < a.Cols; j++ {
		for i := 0; i < a.Rows; i++ {
			out.Data[i+j*out.LDA] = a.Data[a.at(i, j)]
		}
	}
	return out
}

// Zero clears every entry to the additive identity.
func (a *Array[T]) Zero() {
	z := a.kernel.Zero()
	for j := 0; j < a.Cols; j++ {
		for i := 0; i < a.Rows; i++ {
			a.Data[a.at(i, j)] = z
		}
	}
}

// Scale multiplies every entry by alpha in place.
func (a *Array[T]) Scale(alpha T) {
	for j := 0; j < a.Cols; j++ {
		for i := 0; i < a.Rows; i++ {
			idx := a.at(i, j)
			a.Data[idx] *= alpha
		}
	}
}

// AXPY computes a += alpha*x, x same shape as a.
func (a *Array[T]) AXPY(alpha T, x *Array[T]) {
	if x.Rows != a.Rows || x.Cols != a.Cols {
		panic(fmt.Sprintf("scalar: AXPY shape mismatch %dx%d vs %dx%d", a.Rows, a.Cols, x.Rows, x.Cols))
	}
	for j := 0; j < a.Cols; j++ {
		for i := 0; i < a.Rows; i++ {
			a.Data[a.at(i, j)] += alpha * x.Data[x.at(i, j)]
		}
	}
}

// FrobeniusNorm returns sqrt(sum |a_ij|^2).
func (a *Array[T]) FrobeniusNorm() float64 {
	sum := 0.0
	for j := 0; j < a.Cols; j++ {
		for i := 0; i < a.Rows; i++ {
			v := a.kernel.Abs(a.Data[a.at(i, j)])
			sum += v * v
		}
	}
	return math.Sqrt(sum)
}

// Gemm computes c = alpha*op(a)*op(b) + beta*c using the tile's kernel.
func Gemm[T Number](transA, transB byte, alpha T, a, b *Array[T], beta T, c *Array[T]) {
	m, n := c.Rows, c.Cols
	var k int
	if transA == 'T' || transA == 't' {
		k = a.Rows
	} else {
		k = a.Cols
	}
	c.kernel.Gemm(transA, transB, m, n, k, alpha, a.Data, a.LDA, b.Data, b.LDA, beta, c.Data, c.LDA)
}

// Gemv computes y = alpha*op(a)*x + beta*y.
func Gemv[T Number](trans byte, alpha T, a *Array[T], x []T, beta T, y []T) {
	a.kernel.Gemv(trans, a.Rows, a.Cols, alpha, a.Data, a.LDA, x, 1, beta, y, 1)
}

// Rank1 performs the rank-1 update a += alpha * x * y^T (x length a.Rows,
// y length a.Cols).
func (a *Array[T]) Rank1(alpha T, x, y []T) {
	for j := 0; j < a.Cols; j++ {
		ay := alpha * y[j]
		for i := 0; i < a.Rows; i++ {
			a.Data[a.at(i, j)] += ay * x[i]
		}
	}
}

// LU factorizes a in place with partial pivoting, returning the pivot
// vector (0-based row indices, LAPACK ipiv convention) and the LAPACK-style
// info code (0 == success, k>0 == U(k,k) exactly zero).
func (a *Array[T]) LU() (ipiv []int, info int) {
	ipiv = make([]int, minInt(a.Rows, a.Cols))
	info = a.kernel.Getrf(a.Rows, a.Cols, a.Data, a.LDA, ipiv)
	return ipiv, info
}

// SolveLU solves a*x = b (a already factored by LU) in place on b.
func (a *Array[T]) SolveLU(ipiv []int, b *Array[T]) {
	a.kernel.Getrs('N', a.Rows, b.Cols, a.Data, a.LDA, ipiv, b.Data, b.LDA)
}

// Cholesky factorizes the SPD/Hermitian-PD matrix a in place (lower
// triangle if lower is true).
func (a *Array[T]) Cholesky(lower bool) int {
	uplo := byte('U')
	if lower {
		uplo = 'L'
	}
	return a.kernel.Potrf(uplo, a.Rows, a.Data, a.LDA)
}

// LDLT factorizes the symmetric matrix a in place.
func (a *Array[T]) LDLT(lower bool) (ipiv []int, info int) {
	uplo := byte('U')
	if lower {
		uplo = 'L'
	}
	ipiv = make([]int, a.Rows)
	info = a.kernel.Sytrf(uplo, a.Rows, a.Data, a.LDA, ipiv)
	return ipiv, info
}

// Trsm solves op(a)*x = alpha*b (side 'L') or x*op(a) = alpha*b (side
// 'R') in place on b, a triangular.
func Trsm[T Number](side, uplo, transA, diag byte, alpha T, a, b *Array[T]) {
	b.kernel.Trsm(side, uplo, transA, diag, b.Rows, b.Cols, alpha, a.Data, a.LDA, b.Data, b.LDA)
}

// Inverse replaces a with its inverse in place (a must be square and
// already free of prior factorization state).
func (a *Array[T]) Inverse() int {
	ipiv := make([]int, a.Rows)
	if info := a.kernel.Getrf(a.Rows, a.Cols, a.Data, a.LDA, ipiv); info != 0 {
		return info
	}
	return a.kernel.Getri(a.Rows, a.Data, a.LDA, ipiv)
}

// SVD computes the full singular value decomposition a = u*diag(s)*vt.
func (a *Array[T]) SVD() (u *Array[T], s []float64, vt *Array[T], info int) {
	uData, sData, vtData, code := a.kernel.Gesvd(a.Rows, a.Cols, a.Data, a.LDA)
	u = View[T](a.Rows, a.Rows, a.Rows, uData, a.kernel)
	vt = View[T](a.Cols, a.Cols, a.Cols, vtData, a.kernel)
	return u, sData, vt, code
}

// QR computes a Householder QR factorization in place, returning the
// reflector scalars.
func (a *Array[T]) QR() []T {
	return a.kernel.Geqrf(a.Rows, a.Cols, a.Data, a.LDA)
}

// ApplyQ applies the Q factor from a prior QR() to c (side/trans per
// LAPACK Ormqr conventions).
func (a *Array[T]) ApplyQ(side, trans byte, tau []T, c *Array[T]) {
	k := len(tau)
	a.kernel.Ormqr(side, trans, c.Rows, c.Cols, k, a.Data, a.LDA, tau, c.Data, c.LDA)
}

// MGSPivot performs modified Gram-Schmidt orthogonalization of a's
// columns with column pivoting: at each step the remaining column of
// largest norm is moved into place and orthogonalized against every
// column already accepted. Columns whose residual norm falls below
// tol*firstColumnNorm are dropped, truncating the process at the
// returned rank. On return a's first rank columns hold an orthonormal
// basis for (a permutation of) the original column space; perm records
// which original column each output column came from. block's
// coarsening pass uses only the returned rank (on a throwaway clone) as
// a cheap necessary-condition check before paying for Truncate's full
// QR+SVD: it needs to know whether a factor already has independent
// columns, not an actual recompressed basis.
func (a *Array[T]) MGSPivot(tol float64) (perm []int, rank int) {
	n := a.Cols
	perm = make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	norms := make([]float64, n)
	for j := 0; j < n; j++ {
		norms[j] = a.columnNorm(j)
	}
	threshold := 0.0
	for j := 0; j < n; j++ {
		// pick the remaining column with the largest residual norm
		best := j
		for k := j + 1; k < n; k++ {
			if norms[k] > norms[best] {
				best = k
			}
		}
		if best != j {
			a.swapColumns(j, best)
			norms[j], norms[best] = norms[best], norms[j]
			perm[j], perm[best] = perm[best], perm[j]
		}
		if j == 0 {
			threshold = tol * norms[0]
		}
		if norms[j] <= threshold {
			return perm, j
		}
		nrm := norms[j]
		if nrm == 0 {
			return perm, j
		}
		a.scaleColumn(j, a.kernel.One()/complexFromNorm[T](nrm))
		for k := j + 1; k < n; k++ {
			var dot T
			for i := 0; i < a.Rows; i++ {
				dot += a.kernel.Conj(a.Get(i, j)) * a.Get(i, k)
			}
			for i := 0; i < a.Rows; i++ {
				a.Set(i, k, a.Get(i, k)-dot*a.Get(i, j))
			}
			norms[k] = a.columnNorm(k)
		}
	}
	return perm, n
}

func (a *Array[T]) columnNorm(j int) float64 {
	sum := 0.0
	for i := 0; i < a.Rows; i++ {
		v := a.kernel.Abs(a.Get(i, j))
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (a *Array[T]) scaleColumn(j int, alpha T) {
	for i := 0; i < a.Rows; i++ {
		a.Set(i, j, a.Get(i, j)*alpha)
	}
}

func (a *Array[T]) swapColumns(j, k int) {
	for i := 0; i < a.Rows; i++ {
		a.Data[a.at(i, j)], a.Data[a.at(i, k)] = a.Data[a.at(i, k)], a.Data[a.at(i, j)]
	}
}

// complexFromNorm converts a real Frobenius-style norm into T's own
// scalar type, mirroring scaleReal's per-type dispatch in the generic
// kernel: a norm is always real even when T is complex.
func complexFromNorm[T Number](x float64) T {
	return scaleReal[T](x)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
