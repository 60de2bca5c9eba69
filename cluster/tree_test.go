package cluster

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func gridPoints(n int) []Point {
	points := make([]Point, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			points[i*n+j] = Point{Coords: []float64{float64(i), float64(j)}}
		}
	}
	return points
}

func TestNewPointSetRejectsMismatchedDimension(t *testing.T) {
	_, err := NewPointSet([]Point{
		{Coords: []float64{0, 0}},
		{Coords: []float64{1}},
	})
	require.Error(t, err)
}

func TestBuildEmptyPointSetHasNilRoot(t *testing.T) {
	ps, err := NewPointSet(nil)
	require.NoError(t, err)
	tr, err := Build(ps, StrategyMedian, 4)
	require.NoError(t, err)
	require.Nil(t, tr.Root)
}

func TestBuildRejectsNonPositiveLeafSize(t *testing.T) {
	ps, err := NewPointSet(gridPoints(3))
	require.NoError(t, err)
	_, err = Build(ps, StrategyMedian, 0)
	require.Error(t, err)
}

func TestBuildPartitionsEveryOriginalIndexExactlyOnce(t *testing.T) {
	pts := gridPoints(8)
	ps, err := NewPointSet(pts)
	require.NoError(t, err)
	tr, err := Build(ps, StrategyMedian, 4)
	require.NoError(t, err)

	seen := make(map[int]bool)
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.IsLeaf() {
			for _, idx := range n.OriginalIndices() {
				require.False(t, seen[idx], "index %d visited twice", idx)
				seen[idx] = true
			}
			require.LessOrEqual(t, n.Size(), 4)
			return
		}
		walk(n.Left)
		walk(n.Right)
	}
	walk(tr.Root)
	require.Len(t, seen, len(pts))
}

func TestBuildCoincidentPointsFormsSingleLeaf(t *testing.T) {
	pts := make([]Point, 10)
	for i := range pts {
		pts[i] = Point{Coords: []float64{1, 1}}
	}
	ps, err := NewPointSet(pts)
	require.NoError(t, err)
	tr, err := Build(ps, StrategyGeometric, 2)
	require.NoError(t, err)
	require.True(t, tr.Root.IsLeaf())
	require.Equal(t, 10, tr.Root.Size())
}

func TestDistanceToZeroWhenBoxesOverlap(t *testing.T) {
	ps, err := NewPointSet(gridPoints(4))
	require.NoError(t, err)
	tr, err := Build(ps, StrategyMedian, 2)
	require.NoError(t, err)
	require.Equal(t, 0.0, tr.Root.DistanceTo(tr.Root))
}

func TestHybridStrategyProducesValidPartition(t *testing.T) {
	pts := gridPoints(6)
	for i := range pts {
		pts[i].Coords[0] *= 10 // make the cloud anisotropic
	}
	ps, err := NewPointSet(pts)
	require.NoError(t, err)
	tr, err := Build(ps, StrategyHybrid, 4)
	require.NoError(t, err)
	require.NotNil(t, tr.Root)
}
