package scalar

import (
	"math"
	"math/cmplx"
)

// GenericKernel is the dense-kernel provider for scalar types gonum's
// blas64/lapack64 do not cover: real32, complex32 and complex64 in
// spec.md's naming (Go float32, complex64, complex128). gonum ships a
// float32 BLAS (blas32) but no float32 or complex LAPACK bindings
// (Getrf/Potrf/Sytrf/Geqrf/Gesvd exist only for float64 in the gonum
// ecosystem), so this kernel implements the textbook algorithms directly
// rather than reaching for a library that does not exist for these
// types. It is not pivoted as aggressively as LAPACK (Sytrf here has no
// Bunch-Kaufman 2x2 pivoting) and treats complex transpose ('T') as a
// plain (non-conjugating) transpose rather than adding a separate 'C'
// flag, which is adequate for the recursive block algebra's internal use
// (symmetric/Hermitian distinctions are the caller's responsibility) but
// should not be mistaken for a full LAPACK replacement.
type GenericKernel[T Number] struct{}

func sqrtT[T Number](x T) T {
	switch v := any(x).(type) {
	case complex128:
		return any(cmplx.Sqrt(v)).(T)
	case complex64:
		return any(complex64(cmplx.Sqrt(complex128(v)))).(T)
	case float64:
		return any(math.Sqrt(v)).(T)
	default:
		f := any(x).(float32)
		return any(float32(math.Sqrt(float64(f)))).(T)
	}
}

func conjT[T Number](x T) T {
	switch v := any(x).(type) {
	case complex128:
		return any(cmplx.Conj(v)).(T)
	case complex64:
		return any(complex64(cmplx.Conj(complex128(v)))).(T)
	default:
		return x
	}
}

func absT[T Number](x T) float64 {
	switch v := any(x).(type) {
	case complex128:
		return cmplx.Abs(v)
	case complex64:
		return cmplx.Abs(complex128(v))
	case float64:
		return math.Abs(v)
	default:
		return math.Abs(float64(any(x).(float32)))
	}
}

// realOf extracts the real part of x as a float64 (the value itself for
// real types); used where a genuine signed comparison is needed instead
// of a magnitude.
func realOf[T Number](x T) float64 {
	switch v := any(x).(type) {
	case complex128:
		return real(v)
	case complex64:
		return float64(real(v))
	case float64:
		return v
	default:
		return float64(any(x).(float32))
	}
}

func (GenericKernel[T]) Zero() T     { var z T; return z }
func (GenericKernel[T]) One() T      { return T(1) }
func (GenericKernel[T]) MinusOne() T { return T(-1) }
func (GenericKernel[T]) Conj(x T) T  { return conjT(x) }
func (GenericKernel[T]) Abs(x T) float64 { return absT(x) }

func (GenericKernel[T]) Gemm(transA, transB byte, m, n, k int, alpha T, a []T, lda int, b []T, ldb int, beta T, c []T, ldc int) {
	for j := 0; j < n; j++ {
		for i := 0; i < m; i++ {
			var sum T
			for l := 0; l < k; l++ {
				var av, bv T
				if transA == 'T' || transA == 't' {
					av = a[l+i*lda]
				} else {
					av = a[i+l*lda]
				}
				if transB == 'T' || transB == 't' {
					bv = b[j+l*ldb]
				} else {
					bv = b[l+j*ldb]
				}
				sum += av * bv
			}
			idx := i + j*ldc
			c[idx] = alpha*sum + beta*c[idx]
		}
	}
}

func (GenericKernel[T]) Gemv(trans byte, m, n int, alpha T, a []T, lda int, x []T, incX int, beta T, y []T, incY int) {
	if trans == 'T' || trans == 't' {
		for j := 0; j < n; j++ {
			var sum T
			for i := 0; i < m; i++ {
				sum += a[i+j*lda] * x[i*incX]
			}
			y[j*incY] = alpha*sum + beta*y[j*incY]
		}
		return
	}
	for i := 0; i < m; i++ {
		var sum T
		for j := 0; j < n; j++ {
			sum += a[i+j*lda] * x[j*incX]
		}
		y[i*incY] = alpha*sum + beta*y[i*incY]
	}
}

// Trsm solves op(A)*X = alpha*B (side 'L') or X*op(A) = alpha*B (side
// 'R'), A triangular, in place on b.
func (GenericKernel[T]) Trsm(side, uplo, transA, diag byte, m, n int, alpha T, a []T, lda int, b []T, ldb int) {
	aget := func(i, j int) T {
		if transA == 'T' || transA == 't' {
			i, j = j, i
		}
		return a[i+j*lda]
	}
	unit := diag == 'U' || diag == 'u'
	lower := uplo == 'L' || uplo == 'l'
	if transA == 'T' || transA == 't' {
		// op(A) = A^T: a stored lower triangle acts as an upper one.
		lower = !lower
	}
	// scale B by alpha first
	if alpha != T(1) {
		for j := 0; j < n; j++ {
			for i := 0; i < m; i++ {
				b[i+j*ldb] *= alpha
			}
		}
	}
	if side == 'L' || side == 'l' {
		for col := 0; col < n; col++ {
			if lower {
				for i := 0; i < m; i++ {
					sum := b[i+col*ldb]
					for kk := 0; kk < i; kk++ {
						sum -= aget(i, kk) * b[kk+col*ldb]
					}
					if !unit {
						sum /= aget(i, i)
					}
					b[i+col*ldb] = sum
				}
			} else {
				for i := m - 1; i >= 0; i-- {
					sum := b[i+col*ldb]
					for kk := i + 1; kk < m; kk++ {
						sum -= aget(i, kk) * b[kk+col*ldb]
					}
					if !unit {
						sum /= aget(i, i)
					}
					b[i+col*ldb] = sum
				}
			}
		}
		return
	}
	// side == R: X * op(A) = B, solve row by row
	for row := 0; row < m; row++ {
		if lower {
			for j := n - 1; j >= 0; j-- {
				sum := b[row+j*ldb]
				for kk := j + 1; kk < n; kk++ {
					sum -= b[row+kk*ldb] * aget(kk, j)
				}
				if !unit {
					sum /= aget(j, j)
				}
				b[row+j*ldb] = sum
			}
		} else {
			for j := 0; j < n; j++ {
				sum := b[row+j*ldb]
				for kk := 0; kk < j; kk++ {
					sum -= b[row+kk*ldb] * aget(kk, j)
				}
				if !unit {
					sum /= aget(j, j)
				}
				b[row+j*ldb] = sum
			}
		}
	}
}

// Getrf computes a partial-pivoted LU factorization in place.
func (GenericKernel[T]) Getrf(m, n int, a []T, lda int, ipiv []int) int {
	get := func(i, j int) T { return a[i+j*lda] }
	set := func(i, j int, v T) { a[i+j*lda] = v }
	kmax := m
	if n < kmax {
		kmax = n
	}
	info := 0
	for k := 0; k < kmax; k++ {
		piv, best := k, absT(get(k, k))
		for i := k + 1; i < m; i++ {
			if v := absT(get(i, k)); v > best {
				best, piv = v, i
			}
		}
		ipiv[k] = piv
		if piv != k {
			for j := 0; j < n; j++ {
				a[k+j*lda], a[piv+j*lda] = a[piv+j*lda], a[k+j*lda]
			}
		}
		pivot := get(k, k)
		if absT(pivot) == 0 {
			if info == 0 {
				info = k + 1
			}
			continue
		}
		for i := k + 1; i < m; i++ {
			factor := get(i, k) / pivot
			set(i, k, factor)
			for j := k + 1; j < n; j++ {
				set(i, j, get(i, j)-factor*get(k, j))
			}
		}
	}
	return info
}

func (GenericKernel[T]) Getrs(trans byte, n, nrhs int, a []T, lda int, ipiv []int, b []T, ldb int) int {
	// apply row interchanges
	for k := 0; k < n; k++ {
		if ipiv[k] != k {
			for j := 0; j < nrhs; j++ {
				b[k+j*ldb], b[ipiv[k]+j*ldb] = b[ipiv[k]+j*ldb], b[k+j*ldb]
			}
		}
	}
	// forward: L y = Pb (L unit lower)
	for j := 0; j < nrhs; j++ {
		for i := 0; i < n; i++ {
			sum := b[i+j*ldb]
			for kk := 0; kk < i; kk++ {
				sum -= a[i+kk*lda] * b[kk+j*ldb]
			}
			b[i+j*ldb] = sum
		}
		// backward: U x = y
		for i := n - 1; i >= 0; i-- {
			sum := b[i+j*ldb]
			for kk := i + 1; kk < n; kk++ {
				sum -= a[i+kk*lda] * b[kk+j*ldb]
			}
			b[i+j*ldb] = sum / a[i+i*lda]
		}
	}
	return 0
}

// Potrf computes the Cholesky factor (lower, unless uplo=='U') in place.
func (GenericKernel[T]) Potrf(uplo byte, n int, a []T, lda int) int {
	lower := uplo != 'U' && uplo != 'u'
	get := func(i, j int) T { return a[i+j*lda] }
	set := func(i, j int, v T) { a[i+j*lda] = v }
	if !lower {
		// operate on the upper triangle by transposing indices
		get = func(i, j int) T { return a[j+i*lda] }
		set = func(i, j int, v T) { a[j+i*lda] = v }
	}
	for j := 0; j < n; j++ {
		var sum T
		for kk := 0; kk < j; kk++ {
			ljk := get(j, kk)
			sum += ljk * conjT(ljk)
		}
		diag := get(j, j) - sum
		if realOf(diag) <= 0 {
			return j + 1
		}
		ljj := sqrtT(diag)
		set(j, j, ljj)
		for i := j + 1; i < n; i++ {
			var s T
			for kk := 0; kk < j; kk++ {
				s += get(i, kk) * conjT(get(j, kk))
			}
			set(i, j, (get(i, j)-s)/ljj)
		}
	}
	return 0
}

// Sytrf computes an unpivoted LDL^T factorization (no 2x2 Bunch-Kaufman
// blocks): adequate for the well-conditioned symmetric leaves exercised
// through the generic scalar path.
func (GenericKernel[T]) Sytrf(uplo byte, n int, a []T, lda int, ipiv []int) int {
	get := func(i, j int) T { return a[i+j*lda] }
	set := func(i, j int, v T) { a[i+j*lda] = v }
	d := make([]T, n)
	for j := 0; j < n; j++ {
		ipiv[j] = j + 1
		var sum T
		for kk := 0; kk < j; kk++ {
			ljk := get(j, kk)
			sum += ljk * ljk * d[kk]
		}
		dj := get(j, j) - sum
		if absT(dj) == 0 {
			return j + 1
		}
		d[j] = dj
		set(j, j, dj)
		for i := j + 1; i < n; i++ {
			var s T
			for kk := 0; kk < j; kk++ {
				s += get(i, kk) * d[kk] * get(j, kk)
			}
			set(i, j, (get(i, j)-s)/dj)
		}
	}
	return 0
}

// Geqrf computes a Householder QR factorization: on exit the strictly
// lower part of a (m>n case) holds the Householder vectors and the
// returned tau holds the reflector scalars, following the classical
// convention H_k = I - tau_k v_k v_k^T.
func (GenericKernel[T]) Geqrf(m, n int, a []T, lda int) []T {
	kmax := m
	if n < kmax {
		kmax = n
	}
	tau := make([]T, kmax)
	get := func(i, j int) T { return a[i+j*lda] }
	set := func(i, j int, v T) { a[i+j*lda] = v }
	for k := 0; k < kmax; k++ {
		var normSq float64
		for i := k; i < m; i++ {
			normSq += absT(get(i, k)) * absT(get(i, k))
		}
		norm := math.Sqrt(normSq)
		if norm == 0 {
			tau[k] = T(0)
			continue
		}
		alpha := get(k, k)
		sign := 1.0
		if absT(alpha) != 0 && realOf(alpha) < 0 {
			sign = -1.0
		}
		beta := scaleReal[T](-sign * norm)
		v := make([]T, m-k)
		v[0] = alpha - beta
		for i := k + 1; i < m; i++ {
			v[i-k] = get(i, k)
		}
		var vnormSq float64
		for _, vi := range v {
			vnormSq += absT(vi) * absT(vi)
		}
		if vnormSq == 0 {
			tau[k] = T(0)
			continue
		}
		tauK := scaleReal[T](2.0 / vnormSq)
		for j := k + 1; j < n; j++ {
			var dot T
			for i := k; i < m; i++ {
				dot += conjT(v[i-k]) * get(i, j)
			}
			factor := tauK * dot
			for i := k; i < m; i++ {
				set(i, j, get(i, j)-factor*v[i-k])
			}
		}
		// Store the reflector with an implicit leading 1 (the LAPACK
		// convention Ormqr relies on): rescale the tail by v[0] and fold
		// v[0]'s magnitude into tau, since v[0] itself cannot be recovered
		// once a(k,k) is overwritten with the R diagonal entry beta.
		set(k, k, beta)
		v0 := v[0]
		if absT(v0) == 0 {
			tau[k] = T(0)
			continue
		}
		tau[k] = tauK * scaleReal[T](absT(v0)*absT(v0))
		for i := k + 1; i < m; i++ {
			set(i, k, v[i-k]/v0)
		}
	}
	return tau
}

// RealSqrt returns sqrt(x) as a value of T (x must be a non-negative
// real magnitude, e.g. a singular value): the exported counterpart of
// scaleReal for callers outside this package that need to rescale a
// factor by a singular value's square root during recompression.
func RealSqrt[T Number](x float64) T {
	return scaleReal[T](mathSqrtGeneric(x))
}

func mathSqrtGeneric(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return math.Sqrt(x)
}

func scaleReal[T Number](x float64) T {
	switch any(T(0)).(type) {
	case complex128:
		return any(complex(x, 0)).(T)
	case complex64:
		return any(complex64(complex(x, 0))).(T)
	case float64:
		return any(x).(T)
	default:
		return any(float32(x)).(T)
	}
}

// Ormqr applies Q (side 'L') or Q^T (side 'L', trans 'T') built from the
// Householder vectors stored by Geqrf to c, in place.
func (GenericKernel[T]) Ormqr(side, trans byte, m, n, k int, a []T, lda int, tau []T, c []T, ldc int) {
	get := func(i, j int) T { return a[i+j*lda] }
	apply := func(colStart, colEnd int, kk int) {
		v := make([]T, m)
		v[kk] = T(1)
		for i := kk + 1; i < m; i++ {
			v[i] = get(i, kk)
		}
		for j := colStart; j < colEnd; j++ {
			var dot T
			for i := kk; i < m; i++ {
				dot += conjT(v[i]) * c[i+j*ldc]
			}
			factor := tau[kk] * dot
			for i := kk; i < m; i++ {
				c[i+j*ldc] -= factor * v[i]
			}
		}
	}
	order := make([]int, k)
	for i := range order {
		order[i] = i
	}
	// Q^T applies reflectors in the order they were generated; Q applies
	// them in reverse.
	if trans != 'T' && trans != 't' {
		for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
			order[i], order[j] = order[j], order[i]
		}
	}
	_ = side
	for _, kk := range order {
		apply(0, n, kk)
	}
}

// Gesvd computes a full SVD via one-sided Jacobi rotation on a copy of a,
// suitable for the modest dense-leaf sizes the generic scalar path
// exercises.
func (GenericKernel[T]) Gesvd(m, n int, a []T, lda int) (u []T, s []float64, vt []T, info int) {
	// Work on a column-major copy A (m x n); V starts as identity (n x n).
	A := make([]T, m*n)
	for j := 0; j < n; j++ {
		for i := 0; i < m; i++ {
			A[i+j*m] = a[i+j*lda]
		}
	}
	V := make([]T, n*n)
	for i := 0; i < n; i++ {
		V[i+i*n] = T(1)
	}
	const maxSweeps = 60
	for sweep := 0; sweep < maxSweeps; sweep++ {
		off := 0.0
		for p := 0; p < n-1; p++ {
			for q := p + 1; q < n; q++ {
				var alpha, beta, gamma float64
				var gammaT T
				for i := 0; i < m; i++ {
					ap := A[i+p*m]
					aq := A[i+q*m]
					alpha += absT(ap) * absT(ap)
					beta += absT(aq) * absT(aq)
					gammaT += conjT(ap) * aq
				}
				gamma = absT(gammaT)
				off += gamma * gamma
				if gamma < 1e-300 {
					continue
				}
				zeta := (beta - alpha) / (2 * gamma)
				t := sign64(zeta) / (math.Abs(zeta) + math.Sqrt(1+zeta*zeta))
				cs := 1 / math.Sqrt(1+t*t)
				sn := t * cs
				phase := gammaT
				if gamma != 0 {
					phase = gammaT / scaleReal[T](gamma)
				}
				snT := scaleReal[T](sn)
				snT = snT * conjT(phase)
				for i := 0; i < m; i++ {
					ap := A[i+p*m]
					aq := A[i+q*m]
					A[i+p*m] = scaleReal[T](cs)*ap - conjT(snT)*aq
					A[i+q*m] = snT*ap + scaleReal[T](cs)*aq
				}
				for i := 0; i < n; i++ {
					vp := V[i+p*n]
					vq := V[i+q*n]
					V[i+p*n] = scaleReal[T](cs)*vp - conjT(snT)*vq
					V[i+q*n] = snT*vp + scaleReal[T](cs)*vq
				}
			}
		}
		if off < 1e-28 {
			break
		}
	}
	sigma := make([]float64, n)
	for j := 0; j < n; j++ {
		var norm float64
		for i := 0; i < m; i++ {
			norm += absT(A[i+j*m]) * absT(A[i+j*m])
		}
		sigma[j] = math.Sqrt(norm)
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if sigma[order[j]] > sigma[order[i]] {
				order[i], order[j] = order[j], order[i]
			}
		}
	}
	minmn := m
	if n < minmn {
		minmn = n
	}
	s = make([]float64, minmn)
	u = make([]T, m*m)
	vt = make([]T, n*n)
	for idx := 0; idx < minmn; idx++ {
		j := order[idx]
		s[idx] = sigma[j]
		if sigma[j] > 1e-300 {
			for i := 0; i < m; i++ {
				u[i+idx*m] = A[i+j*m] / scaleReal[T](sigma[j])
			}
		}
		for i := 0; i < n; i++ {
			vt[idx+i*n] = conjT(V[i+j*n])
		}
	}
	return u, s, vt, 0
}

func sign64(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}

// Getri inverts a from the Getrf factorization already stored in a and
// ipiv, via Getrs against the identity columns.
func (k GenericKernel[T]) Getri(n int, a []T, lda int, ipiv []int) int {
	inv := make([]T, n*n)
	for j := 0; j < n; j++ {
		inv[j+j*n] = T(1)
	}
	k.Getrs('N', n, n, a, lda, ipiv, inv, n)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			a[i+j*lda] = inv[i+j*n]
		}
	}
	return 0
}

// KernelFor returns the dense-kernel provider for T: Float64Kernel for
// float64, GenericKernel otherwise.
func KernelFor[T Number]() Kernel[T] {
	var zero T
	switch any(zero).(type) {
	case float64:
		return any(Float64Kernel{}).(Kernel[T])
	default:
		return GenericKernel[T]{}
	}
}
