package cluster

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func wellSeparatedPair(t *testing.T) (*Tree, *Node, *Node) {
	t.Helper()
	pts := []Point{
		{Coords: []float64{0, 0}},
		{Coords: []float64{0.1, 0}},
		{Coords: []float64{0, 0.1}},
		{Coords: []float64{10, 10}},
		{Coords: []float64{10.1, 10}},
		{Coords: []float64{10, 10.1}},
	}
	ps, err := NewPointSet(pts)
	require.NoError(t, err)
	tr, err := Build(ps, StrategyMedian, 3)
	require.NoError(t, err)
	require.NotNil(t, tr.Root.Left)
	require.NotNil(t, tr.Root.Right)
	return tr, tr.Root.Left, tr.Root.Right
}

func TestStandardAdmitsWellSeparatedClusters(t *testing.T) {
	_, left, right := wellSeparatedPair(t)
	pred := NewStandard(2.0, 0)
	require.True(t, pred.Admissible(left, right))
}

func TestStandardRejectsOverlappingClusters(t *testing.T) {
	tr, _, _ := wellSeparatedPair(t)
	pred := NewStandard(2.0, 0)
	require.False(t, pred.Admissible(tr.Root, tr.Root))
}

func TestStandardRespectsElementCountCap(t *testing.T) {
	_, left, right := wellSeparatedPair(t)
	pred := NewStandard(1000.0, 1) // cap far below |left|*|right|
	require.False(t, pred.Admissible(left, right))
}

func TestAlwaysAdmitsAnyPairUnderCap(t *testing.T) {
	tr, left, right := wellSeparatedPair(t)
	a := NewAlways(0)
	require.True(t, a.Admissible(left, right))
	require.True(t, a.Admissible(tr.Root, tr.Root))
}

func TestTallSkinnySplitAxesAsymmetric(t *testing.T) {
	pred := NewTallSkinny(2.0)
	tall := &Node{Begin: 0, End: 100}
	skinny := &Node{Begin: 0, End: 10}
	rowOK, colOK := pred.SplitAxes(tall, skinny)
	require.False(t, rowOK)
	require.True(t, colOK)
}

func TestInfluenceRadiusUsesMaxRadiusPerCluster(t *testing.T) {
	pts := []Point{
		{Coords: []float64{0, 0}, Radius: 0.5},
		{Coords: []float64{5, 0}, Radius: 0.4},
	}
	ps, err := NewPointSet(pts)
	require.NoError(t, err)
	tr, err := Build(ps, StrategyMedian, 1)
	require.NoError(t, err)
	pred := NewInfluenceRadius(ps)
	require.True(t, pred.Admissible(tr.Root.Left, tr.Root.Right))
}
