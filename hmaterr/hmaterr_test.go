package hmaterr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSingularfBuildsSingularKind(t *testing.T) {
	err := Singularf("pivot %d is zero", 3)
	require.Equal(t, Singular, err.Kind)
	require.Contains(t, err.Error(), "pivot 3 is zero")
}

func TestKernelFailurefCarriesInfo(t *testing.T) {
	err := KernelFailuref(7, "leaf inversion failed at pivot %d", 7)
	require.Equal(t, KernelFailure, err.Kind)
	require.Equal(t, 7, err.Info)
}

func TestPrependBuildsPathRootFirst(t *testing.T) {
	err := New(RankExceeded, "rank cap hit")
	inner := BlockCoord{RowBegin: 4, RowEnd: 8, ColBegin: 4, ColEnd: 8}
	outer := BlockCoord{RowBegin: 0, RowEnd: 8, ColBegin: 0, ColEnd: 8}

	err.Prepend(inner)
	err.Prepend(outer)

	require.Equal(t, []BlockCoord{outer, inner}, err.Path)
	require.True(t, strings.Contains(err.Error(), inner.String()))
}

func TestKindString(t *testing.T) {
	require.Equal(t, "singular", Singular.String())
	require.Equal(t, "empty cluster", EmptyCluster.String())
}
