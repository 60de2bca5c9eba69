// Package scalar implements the column-major dense tile (ScalarArray) that
// every H-matrix leaf is built from, plus the "dense-kernel provider"
// abstraction spec.md §6 requires: the core is generic over the scalar
// type T and never assumes a specific BLAS/LAPACK binding. Instead every
// ScalarArray[T] is constructed against a Kernel[T] implementation; the
// core supplies Kernel[float64] backed by gonum.org/v1/gonum's
// blas64/lapack64 (the current home of the teacher's own
// github.com/gonum/matrix/mat64 dependency) and a pure-Go generic kernel
// for the scalar types gonum's LAPACK bindings do not cover.
package scalar

// Number is the scalar-type constraint the whole engine is generic over:
// real32, real64, complex32, complex64 in spec.md's naming, i.e. Go's
// float32, float64, complex64, complex128.
type Number interface {
	~float32 | ~float64 | ~complex64 | ~complex128
}

// Kernel is the scalar trait plus dense-kernel dispatch every algebra
// routine needs (Design Note in spec.md §9: "a scalar trait providing:
// zero, one, minus-one, conjugate, abs, magnitude, and the dense-kernel
// dispatch per type"). All matrix arguments are column-major with their
// own leading dimension, exactly as BLAS expects. Implementations may
// copy operands internally: Float64Kernel repacks each operand into a
// row-major buffer for gonum and copies the result back.
type Kernel[T Number] interface {
	Zero() T
	One() T
	MinusOne() T
	Conj(T) T
	Abs(T) float64

	// Gemm computes c = alpha*op(a)*op(b) + beta*c.
	Gemm(transA, transB byte, m, n, k int, alpha T, a []T, lda int, b []T, ldb int, beta T, c []T, ldc int)
	// Gemv computes y = alpha*op(a)*x + beta*y.
	Gemv(trans byte, m, n int, alpha T, a []T, lda int, x []T, incX int, beta T, y []T, incY int)
	// Trsm solves op(a)*x = alpha*b (side='L') or x*op(a) = alpha*b
	// (side='R') in place on b, a triangular.
	Trsm(side, uplo, transA, diag byte, m, n int, alpha T, a []T, lda int, b []T, ldb int)
	// Getrf computes a pivoted LU factorization of the m x n matrix a in
	// place; returns the info code: 0 on success, >0 when U has an exactly
	// zero diagonal entry (GenericKernel returns k+1 for a zero U(k,k);
	// Float64Kernel returns 1 whatever the position).
	Getrf(m, n int, a []T, lda int, ipiv []int) int
	// Getrs solves a*x = b (or a^T*x = b) using the factorization
	// produced by Getrf.
	Getrs(trans byte, n, nrhs int, a []T, lda int, ipiv []int, b []T, ldb int) int
	// Potrf computes the Cholesky factorization of the n x n symmetric
	// positive definite matrix a in place (lower triangle if
	// uplo == 'L').
	Potrf(uplo byte, n int, a []T, lda int) int
	// Sytrf computes the symmetric indefinite (Bunch-Kaufman) LDL^T
	// factorization of a in place.
	Sytrf(uplo byte, n int, a []T, lda int, ipiv []int) int
	// Geqrf computes a QR factorization of the m x n matrix a in place,
	// returning the Householder scalars tau.
	Geqrf(m, n int, a []T, lda int) (tau []T)
	// Ormqr applies Q (or Q^T) from a Geqrf factorization to c.
	Ormqr(side, trans byte, m, n, k int, a []T, lda int, tau []T, c []T, ldc int)
	// Gesvd computes the full SVD a = u * diag(s) * vt.
	Gesvd(m, n int, a []T, lda int) (u []T, s []float64, vt []T, info int)
	// Getri inverts a in place using the factorization produced by
	// Getrf.
	Getri(n int, a []T, lda int, ipiv []int) int
}
