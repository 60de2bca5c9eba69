// Package block implements the hierarchical matrix itself: a tree of
// Node values shaped by a pair of cluster.Tree instances and an
// admissibility predicate, with DenseLeaf and RkLeaf variants at the
// fringe and Internal nodes carrying a (possibly asymmetric) 2D grid of
// children in between.
//
// The tree-of-typed-variants shape mirrors rwcarlsen-fem's own
// Node/Element split (a mesh Node is either an interior or boundary DoF,
// and Element dispatches its stiffness computation by element type); here
// the "element type" is Internal vs DenseLeaf vs RkLeaf, and dispatch
// happens throughout algebra.go instead of at construction time.
package block

import (
	"context"

	"github.com/jschueller/hmat-oss/cluster"
	"github.com/jschueller/hmat-oss/config"
	"github.com/jschueller/hmat-oss/hmaterr"
	"github.com/jschueller/hmat-oss/lowrank"
	"github.com/jschueller/hmat-oss/scalar"
	"github.com/jschueller/hmat-oss/task"
)

// Variant tags which payload a Node carries.
type Variant int

const (
	Internal Variant = iota
	DenseLeaf
	RkLeaf
)

func (v Variant) String() string {
	switch v {
	case Internal:
		return "Internal"
	case DenseLeaf:
		return "DenseLeaf"
	case RkLeaf:
		return "RkLeaf"
	default:
		return "Unknown"
	}
}

// Node is one block of the hierarchical matrix: the (rows, cols) cluster
// pair it covers, its variant, and either a dense tile, a low-rank
// factor pair, or a grid of child blocks.
type Node[T scalar.Number] struct {
	Rows, Cols *cluster.Node
	Variant    Variant

	Dense *scalar.Array[T]
	Rk    *lowrank.RkMatrix[T]

	// Children[i][j] covers RowChildren[i] x ColChildren[j]. Both slices
	// have length 1 or 2; length 1 on an axis means that axis did not
	// split at this level (an asymmetric / tall-skinny split).
	RowChildren []*cluster.Node
	ColChildren []*cluster.Node
	Children    [][]*Node[T]

	kernel scalar.Kernel[T]
}

// NumRows and NumCols report the block's shape in original DoF units.
func (n *Node[T]) NumRows() int { return n.Rows.Size() }
func (n *Node[T]) NumCols() int { return n.Cols.Size() }

// ElementGenerator evaluates the true matrix entry for the DoF pair at
// original (pre-permutation) indices (origRow, origCol).
type ElementGenerator[T scalar.Number] func(origRow, origCol int) T

// Assemble builds the block tree for (rowTree, colTree) under pred,
// populating DenseLeaf and RkLeaf payloads from gen. Passing colTree ==
// rowTree assembles a square, single-cluster H-matrix (the common case);
// passing a distinct colTree supports rectangular / non-Galerkin blocks.
func Assemble[T scalar.Number](rowTree, colTree *cluster.Tree, pred cluster.Predicate, gen ElementGenerator[T], settings config.Settings, kernel scalar.Kernel[T]) (*Node[T], error) {
	if rowTree.Root == nil || colTree.Root == nil {
		return nil, hmaterr.New(hmaterr.EmptyCluster, "block: cannot assemble over an empty cluster tree")
	}
	b := &builder[T]{gen: gen, pred: pred, settings: settings, kernel: kernel, exec: task.New(settings.MaxParallelLeaves)}
	root, err := b.build(rowTree.Root, colTree.Root, hmaterr.BlockCoord{RowBegin: 0, RowEnd: rowTree.Root.Size(), ColBegin: 0, ColEnd: colTree.Root.Size()})
	if err != nil {
		return nil, err
	}
	if settings.Coarsening {
		root = coarsen(root, settings)
	}
	return root, nil
}

type builder[T scalar.Number] struct {
	gen      ElementGenerator[T]
	pred     cluster.Predicate
	settings config.Settings
	kernel   scalar.Kernel[T]
	exec     *task.Executor
}

func (b *builder[T]) build(rows, cols *cluster.Node, coord hmaterr.BlockCoord) (*Node[T], error) {
	if rows.Size() == 0 || cols.Size() == 0 {
		return nil, hmaterr.New(hmaterr.EmptyCluster, "block: empty cluster at %s", coord)
	}

	minLeaf := b.settings.CompressionMinLeafSize
	belowMin := minLeaf > 0 && rows.Size() <= minLeaf && cols.Size() <= minLeaf
	if b.pred.Admissible(rows, cols) {
		if belowMin {
			return b.dense(rows, cols), nil
		}
		return b.compress(rows, cols, coord)
	}

	rowLeaf, colLeaf := rows.IsLeaf(), cols.IsLeaf()
	forceDense := (rowLeaf && colLeaf) || belowMin
	if forceDense {
		return b.dense(rows, cols), nil
	}

	// Tall-skinny blocks (§4.2) are admissible on one axis but not the
	// other; subdividing both anyway forces a spurious split on the axis
	// that already satisfies its own admissibility criterion. SplitAxes
	// reports per-axis admissibility so only the non-admissible axis
	// actually recurses.
	rowOK, colOK := b.pred.SplitAxes(rows, cols)
	splitRow, splitCol := !rowLeaf, !colLeaf
	switch {
	case rowOK && !colOK && !colLeaf:
		splitRow = false
	case colOK && !rowOK && !rowLeaf:
		splitCol = false
	}
	if !splitRow && !splitCol {
		return b.dense(rows, cols), nil
	}

	rowChildren := []*cluster.Node{rows}
	if splitRow {
		rowChildren = childrenOf(rows)
	}
	colChildren := []*cluster.Node{cols}
	if splitCol {
		colChildren = childrenOf(cols)
	}
	node := &Node[T]{Rows: rows, Cols: cols, Variant: Internal, RowChildren: rowChildren, ColChildren: colChildren, kernel: b.kernel}
	node.Children = make([][]*Node[T], len(rowChildren))
	for i := range node.Children {
		node.Children[i] = make([]*Node[T], len(colChildren))
	}

	// Sibling quadrants are independent subtrees over disjoint cluster
	// ranges: fan them out through the bounded task executor the same way
	// a block Gemm would fan out its own quadrant recursions.
	group := b.exec.Start(context.Background())
	for i, rc := range rowChildren {
		for j, cc := range colChildren {
			i, rc, j, cc := i, rc, j, cc
			group.Go(func() error {
				childCoord := hmaterr.BlockCoord{RowBegin: rc.Begin, RowEnd: rc.End, ColBegin: cc.Begin, ColEnd: cc.End}
				child, err := b.build(rc, cc, childCoord)
				if err != nil {
					return err
				}
				node.Children[i][j] = child
				return nil
			})
		}
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return node, nil
}

func childrenOf(n *cluster.Node) []*cluster.Node {
	if n.IsLeaf() {
		return []*cluster.Node{n}
	}
	return []*cluster.Node{n.Left, n.Right}
}

func (b *builder[T]) dense(rows, cols *cluster.Node) *Node[T] {
	m, n := rows.Size(), cols.Size()
	arr := scalar.NewArray[T](m, n, b.kernel)
	rowIdx := rows.OriginalIndices()
	colIdx := cols.OriginalIndices()
	for j := 0; j < n; j++ {
		for i := 0; i < m; i++ {
			arr.Set(i, j, b.gen(rowIdx[i], colIdx[j]))
		}
	}
	return &Node[T]{Rows: rows, Cols: cols, Variant: DenseLeaf, Dense: arr, kernel: b.kernel}
}

func (b *builder[T]) compress(rows, cols *cluster.Node, coord hmaterr.BlockCoord) (*Node[T], error) {
	m, n := rows.Size(), cols.Size()
	rowIdx := rows.OriginalIndices()
	colIdx := cols.OriginalIndices()
	gen := func(i, j int) T { return b.gen(rowIdx[i], colIdx[j]) }
	p := lowrank.Params{RelTol: b.settings.AssemblyEpsilon, MaxRank: 0}

	var rk *lowrank.RkMatrix[T]
	var err error
	switch b.settings.CompressionMethod {
	case config.AcaFull:
		rk, err = lowrank.ACAFull[T](gen, m, n, b.kernel, p)
	case config.AcaPartial:
		rk, err = lowrank.ACAPartial[T](gen, m, n, b.kernel, p)
	case config.AcaPlus:
		rk, err = lowrank.ACAPlus[T](gen, m, n, b.kernel, p)
	default: // SVD
		arr := scalar.NewArray[T](m, n, b.kernel)
		for j := 0; j < n; j++ {
			for i := 0; i < m; i++ {
				arr.Set(i, j, gen(i, j))
			}
		}
		rk = lowrank.SVDCompress[T](arr, b.kernel, b.settings.AssemblyEpsilon)
	}
	if err != nil {
		if herr, ok := err.(*hmaterr.Error); ok {
			herr.Prepend(coord)
		}
		// the ACA kernel still returns a usable (if under-converged) rk
		// alongside RankExceeded; a block that failed to converge within
		// MaxRank is still the best available approximation, so only
		// validation or a harder failure further up aborts assembly.
		if rk == nil {
			return nil, err
		}
	}
	if b.settings.ValidateCompression {
		if verr := validateCompression(rk, gen, m, n, b.kernel, b.settings.ValidationErrorThreshold, coord); verr != nil {
			return nil, verr
		}
	}
	if rk.Rank*(m+n) >= m*n {
		// compression bought nothing: fall back to a dense leaf rather
		// than carry a "low rank" representation larger than the block
		// it replaces.
		return b.dense(rows, cols), nil
	}
	return &Node[T]{Rows: rows, Cols: cols, Variant: RkLeaf, Rk: rk, kernel: b.kernel}, nil
}

// validateCompression re-materializes the dense reference for the block
// gen covers and compares it against rk's reconstruction, failing fatally
// (per settings.ValidateCompression / §7) if the relative Frobenius error
// exceeds threshold.
func validateCompression[T scalar.Number](rk *lowrank.RkMatrix[T], gen func(i, j int) T, m, n int, kernel scalar.Kernel[T], threshold float64, coord hmaterr.BlockCoord) error {
	ref := scalar.NewArray[T](m, n, kernel)
	for j := 0; j < n; j++ {
		for i := 0; i < m; i++ {
			ref.Set(i, j, gen(i, j))
		}
	}
	refNorm := ref.FrobeniusNorm()
	diff := ref.Clone()
	diff.AXPY(kernel.MinusOne(), rk.ToDense())
	relErr := diff.FrobeniusNorm()
	if refNorm > 0 {
		relErr /= refNorm
	}
	if relErr > threshold {
		return hmaterr.New(hmaterr.RankExceeded, "block: compression at %s has relative error %.3e exceeding threshold %.3e", coord, relErr, threshold).Prepend(coord)
	}
	return nil
}

// coarsen walks the subtree bottom-up and merges any Internal node whose
// children are all RkLeaf into a single RkLeaf covering the whole node,
// when doing so strictly reduces the stored rank*(rows+cols) footprint
// (§4.3's optional post-assembly coarsening pass).
func coarsen[T scalar.Number](n *Node[T], settings config.Settings) *Node[T] {
	if n.Variant != Internal {
		return n
	}
	for i := range n.Children {
		for j := range n.Children[i] {
			n.Children[i][j] = coarsen(n.Children[i][j], settings)
		}
	}
	if merged := mergeChildrenToRk(n, settings.RecompressionEpsilon); merged != nil {
		return merged
	}
	return n
}

// mergeChildrenToRk attempts to replace n's grid of all-RkLeaf children
// with one RkLeaf whose factors are the block-diagonal embedding of each
// child's own factors (each child's columns are nonzero only within its
// own row/col range, so concatenating them reconstructs n exactly before
// any truncation). Returns nil if any child isn't RkLeaf, or if merging
// would not shrink the storage footprint.
func mergeChildrenToRk[T scalar.Number](n *Node[T], epsilon float64) *Node[T] {
	totalRank := 0
	childCost := 0
	for _, row := range n.Children {
		for _, c := range row {
			if c.Variant != RkLeaf {
				return nil
			}
			totalRank += c.Rk.Rank
			childCost += c.Rk.Rank * (c.NumRows() + c.NumCols())
		}
	}
	m, n2 := n.NumRows(), n.NumCols()
	if totalRank == 0 {
		return nil
	}
	kernel := n.kernel
	a := scalar.NewArray[T](m, totalRank, kernel)
	bFac := scalar.NewArray[T](n2, totalRank, kernel)
	col := 0
	rowOff := 0
	for i, rc := range n.RowChildren {
		colOff := 0
		for j, cc := range n.ColChildren {
			child := n.Children[i][j]
			for k := 0; k < child.Rk.Rank; k++ {
				for r := 0; r < rc.Size(); r++ {
					a.Set(rowOff+r, col+k, child.Rk.A.Get(r, k))
				}
				for cIdx := 0; cIdx < cc.Size(); cIdx++ {
					bFac.Set(colOff+cIdx, col+k, child.Rk.B.Get(cIdx, k))
				}
			}
			col += child.Rk.Rank
			colOff += cc.Size()
		}
		rowOff += rc.Size()
	}
	// A cheap necessary-condition check before paying for Truncate's full
	// QR+SVD: if both factors already have totalRank independent columns
	// at this tolerance (per a throwaway pivoted Gram-Schmidt pass),
	// Truncate cannot find anything to discard either, so merging can
	// only ever grow the footprint and is skipped outright. This never
	// causes a bad merge, only an occasional missed one: Truncate still
	// runs, and still has the final say, whenever either probe reports
	// redundancy.
	if _, aRank := a.Clone().MGSPivot(epsilon); aRank >= totalRank {
		if _, bRank := bFac.Clone().MGSPivot(epsilon); bRank >= totalRank {
			return nil
		}
	}

	merged := lowrank.New[T](a, bFac, kernel)
	merged.Truncate(epsilon)
	mergedCost := merged.Rank * (m + n2)
	if mergedCost >= childCost {
		return nil
	}
	return &Node[T]{Rows: n.Rows, Cols: n.Cols, Variant: RkLeaf, Rk: merged, kernel: kernel}
}

// ToDense flattens the whole subtree rooted at n into one dense tile, in
// the block's own row/col order. Used by algebra routines at mixed-leaf
// base cases and by callers that just want a reference matrix to check
// results against.
func (n *Node[T]) ToDense() *scalar.Array[T] {
	out := scalar.NewArray[T](n.NumRows(), n.NumCols(), n.kernel)
	n.writeDenseInto(out, 0, 0)
	return out
}

func (n *Node[T]) writeDenseInto(dst *scalar.Array[T], rowOff, colOff int) {
	switch n.Variant {
	case DenseLeaf:
		for j := 0; j < n.Dense.Cols; j++ {
			for i := 0; i < n.Dense.Rows; i++ {
				dst.Set(rowOff+i, colOff+j, n.Dense.Get(i, j))
			}
		}
	case RkLeaf:
		d := n.Rk.ToDense()
		for j := 0; j < d.Cols; j++ {
			for i := 0; i < d.Rows; i++ {
				dst.Set(rowOff+i, colOff+j, d.Get(i, j))
			}
		}
	default:
		ro := rowOff
		for i, rc := range n.RowChildren {
			co := colOff
			for j, cc := range n.ColChildren {
				n.Children[i][j].writeDenseInto(dst, ro, co)
				co += cc.Size()
			}
			ro += rc.Size()
		}
	}
}

// Rank returns the block's own low-rank factor rank, or -1 for
// DenseLeaf/Internal nodes.
func (n *Node[T]) Rank() int {
	if n.Variant == RkLeaf {
		return n.Rk.Rank
	}
	return -1
}

// Walk visits every node of the subtree rooted at n in pre-order.
func (n *Node[T]) Walk(visit func(*Node[T])) {
	visit(n)
	for _, row := range n.Children {
		for _, child := range row {
			child.Walk(visit)
		}
	}
}
