package scalar

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGemmFloat64MatchesHandComputation(t *testing.T) {
	k := Float64Kernel{}
	a := NewArray[float64](2, 2, k)
	a.Set(0, 0, 1)
	a.Set(0, 1, 2)
	a.Set(1, 0, 3)
	a.Set(1, 1, 4)
	b := a.Clone()

	c := NewArray[float64](2, 2, k)
	Gemm[float64]('N', 'N', 1, a, b, 0, c)

	require.InDelta(t, 7, c.Get(0, 0), 1e-12)  // 1*1+2*3
	require.InDelta(t, 10, c.Get(0, 1), 1e-12) // 1*2+2*4
	require.InDelta(t, 15, c.Get(1, 0), 1e-12) // 3*1+4*3
	require.InDelta(t, 22, c.Get(1, 1), 1e-12) // 3*2+4*4
}

func TestLUThenSolveLUReproducesIdentitySolve(t *testing.T) {
	k := Float64Kernel{}
	a := NewArray[float64](3, 3, k)
	vals := []float64{4, 3, 0, 3, 4, -1, 0, -1, 4}
	for j := 0; j < 3; j++ {
		for i := 0; i < 3; i++ {
			a.Set(i, j, vals[i*3+j])
		}
	}
	orig := a.Clone()

	ipiv, info := a.LU()
	require.Zero(t, info)

	b := NewArray[float64](3, 1, k)
	b.Set(0, 0, 1)
	b.Set(1, 0, 2)
	b.Set(2, 0, 3)
	a.SolveLU(ipiv, b)

	// A*x should reproduce the original right-hand side.
	check := NewArray[float64](3, 1, k)
	Gemm[float64]('N', 'N', 1, orig, b, 0, check)
	require.InDelta(t, 1, check.Get(0, 0), 1e-9)
	require.InDelta(t, 2, check.Get(1, 0), 1e-9)
	require.InDelta(t, 3, check.Get(2, 0), 1e-9)
}

func TestCholeskyReconstructsOriginalMatrix(t *testing.T) {
	k := Float64Kernel{}
	a := NewArray[float64](2, 2, k)
	a.Set(0, 0, 4)
	a.Set(0, 1, 2)
	a.Set(1, 0, 2)
	a.Set(1, 1, 3)
	info := a.Cholesky(true)
	require.Zero(t, info)

	l := NewArray[float64](2, 2, k)
	for j := 0; j < 2; j++ {
		for i := j; i < 2; i++ {
			l.Set(i, j, a.Get(i, j))
		}
	}
	recon := NewArray[float64](2, 2, k)
	Gemm[float64]('N', 'T', 1, l, l, 0, recon)
	require.InDelta(t, 4, recon.Get(0, 0), 1e-9)
	require.InDelta(t, 2, recon.Get(0, 1), 1e-9)
	require.InDelta(t, 3, recon.Get(1, 1), 1e-9)
}

func TestInverseOfIdentityIsIdentity(t *testing.T) {
	k := Float64Kernel{}
	a := NewArray[float64](3, 3, k)
	for i := 0; i < 3; i++ {
		a.Set(i, i, 1)
	}
	info := a.Inverse()
	require.Zero(t, info)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			require.InDelta(t, want, a.Get(i, j), 1e-9)
		}
	}
}

func TestSVDReconstructsMatrix(t *testing.T) {
	k := Float64Kernel{}
	a := NewArray[float64](2, 2, k)
	a.Set(0, 0, 3)
	a.Set(0, 1, 0)
	a.Set(1, 0, 4)
	a.Set(1, 1, 5)
	u, s, vt, info := a.SVD()
	require.Zero(t, info)
	require.Len(t, s, 2)

	sArr := NewArray[float64](2, 2, k)
	sArr.Set(0, 0, s[0])
	sArr.Set(1, 1, s[1])
	tmp := NewArray[float64](2, 2, k)
	Gemm[float64]('N', 'N', 1, u, sArr, 0, tmp)
	recon := NewArray[float64](2, 2, k)
	Gemm[float64]('N', 'N', 1, tmp, vt, 0, recon)

	require.InDelta(t, 3, recon.Get(0, 0), 1e-9)
	require.InDelta(t, 0, recon.Get(0, 1), 1e-9)
	require.InDelta(t, 4, recon.Get(1, 0), 1e-9)
	require.InDelta(t, 5, recon.Get(1, 1), 1e-9)
}

func TestMGSPivotProducesOrthonormalColumns(t *testing.T) {
	k := Float64Kernel{}
	a := NewArray[float64](3, 2, k)
	a.Set(0, 0, 1)
	a.Set(1, 0, 0)
	a.Set(2, 0, 0)
	a.Set(0, 1, 1)
	a.Set(1, 1, 1)
	a.Set(2, 1, 0)

	_, rank := a.MGSPivot(1e-12)
	require.Equal(t, 2, rank)

	for j := 0; j < rank; j++ {
		require.InDelta(t, 1.0, a.columnNorm(j), 1e-9)
	}
	var dot float64
	for i := 0; i < 3; i++ {
		dot += a.Get(i, 0) * a.Get(i, 1)
	}
	require.InDelta(t, 0, dot, 1e-9)
}

func TestSubViewSharesStorageWithParent(t *testing.T) {
	k := Float64Kernel{}
	a := NewArray[float64](4, 4, k)
	sub := a.Sub(1, 3, 1, 3)
	sub.Set(0, 0, 42)
	require.Equal(t, 42.0, a.Get(1, 1))
}

func TestFrobeniusNormOfIdentity(t *testing.T) {
	k := Float64Kernel{}
	a := NewArray[float64](3, 3, k)
	for i := 0; i < 3; i++ {
		a.Set(i, i, 1)
	}
	require.InDelta(t, math.Sqrt(3), a.FrobeniusNorm(), 1e-12)
}

func TestAXPYShapeMismatchPanics(t *testing.T) {
	k := Float64Kernel{}
	a := NewArray[float64](2, 2, k)
	x := NewArray[float64](3, 3, k)
	require.Panics(t, func() { a.AXPY(1, x) })
}
