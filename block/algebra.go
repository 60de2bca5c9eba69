package block

import (
	"github.com/jschueller/hmat-oss/cluster"
	"github.com/jschueller/hmat-oss/config"
	"github.com/jschueller/hmat-oss/hmaterr"
	"github.com/jschueller/hmat-oss/lowrank"
	"github.com/jschueller/hmat-oss/scalar"
)

// Gemm computes c = alpha*op(a)*op(b) + beta*c across the block trees.
// For the untransposed case it dispatches on operand variant per the
// core algebra's variant table: an Rk operand triggers a low-rank
// product folded into c via AddRk/AddDense rather than a dense
// expansion, and an all-Internal aligned 2x2 grid recurses block by
// block instead of flattening. Transposed operands and any mismatch in
// the block grids fall back to densifying the operand subtrees, which
// stays correct for every shape at the cost of the compression.
func Gemm[T scalar.Number](transA, transB byte, alpha T, a, b *Node[T], beta T, c *Node[T], settings config.Settings) error {
	if opRows(a, transA) != c.NumRows() || opCols(b, transB) != c.NumCols() || opCols(a, transA) != opRows(b, transB) {
		panic("block: Gemm operand shape mismatch")
	}
	untransposed := (transA == 'N' || transA == 'n') && (transB == 'N' || transB == 'n')
	if untransposed {
		if a.Variant == RkLeaf || b.Variant == RkLeaf {
			product := rkProduct(alpha, a, b)
			accumulateRk(c, product, beta, settings)
			return nil
		}
		if a.Variant == Internal && b.Variant == Internal && c.Variant == Internal {
			if handled, err := gemmInternalRecursion(alpha, a, b, beta, c, settings); handled {
				return err
			}
		}
	}
	da := denseOf(a, transA)
	db := denseOf(b, transB)
	product := scalar.NewArray[T](c.NumRows(), c.NumCols(), c.kernel)
	scalar.Gemm[T]('N', 'N', alpha, da, db, c.kernel.Zero(), product)
	accumulate(c, product, beta, settings)
	return nil
}

// rkProduct computes alpha*a*b as a low-rank factor pair, using whichever
// of the three identities applies: Rk*Rk folds through the k1 x k2 inner
// matrix B1^T*A2, Rk*Dense and Dense*Rk each collapse one side of the
// product into the other operand's factor.
func rkProduct[T scalar.Number](alpha T, a, b *Node[T]) *lowrank.RkMatrix[T] {
	kernel := a.kernel
	switch {
	case a.Variant == RkLeaf && b.Variant == RkLeaf:
		k1, k2 := a.Rk.Rank, b.Rk.Rank
		if k1 == 0 || k2 == 0 {
			return lowrank.Zero[T](a.NumRows(), b.NumCols(), kernel)
		}
		inner := scalar.NewArray[T](k1, k2, kernel)
		scalar.Gemm[T]('T', 'N', kernel.One(), a.Rk.B, b.Rk.A, kernel.Zero(), inner)
		newA := scalar.NewArray[T](a.NumRows(), k2, kernel)
		scalar.Gemm[T]('N', 'N', alpha, a.Rk.A, inner, kernel.Zero(), newA)
		return lowrank.New[T](newA, b.Rk.B.Clone(), kernel)
	case a.Variant == RkLeaf:
		bd := b.ToDense()
		k1 := a.Rk.Rank
		if k1 == 0 {
			return lowrank.Zero[T](a.NumRows(), b.NumCols(), kernel)
		}
		m := scalar.NewArray[T](k1, bd.Cols, kernel)
		scalar.Gemm[T]('T', 'N', kernel.One(), a.Rk.B, bd, kernel.Zero(), m)
		newA := a.Rk.A.Clone()
		newA.Scale(alpha)
		newB := scalar.NewArray[T](bd.Cols, k1, kernel)
		for i := 0; i < bd.Cols; i++ {
			for j := 0; j < k1; j++ {
				newB.Set(i, j, m.Get(j, i))
			}
		}
		return lowrank.New[T](newA, newB, kernel)
	default: // b.Variant == RkLeaf
		ad := a.ToDense()
		k2 := b.Rk.Rank
		if k2 == 0 {
			return lowrank.Zero[T](a.NumRows(), b.NumCols(), kernel)
		}
		newA := scalar.NewArray[T](ad.Rows, k2, kernel)
		scalar.Gemm[T]('N', 'N', alpha, ad, b.Rk.A, kernel.Zero(), newA)
		return lowrank.New[T](newA, b.Rk.B.Clone(), kernel)
	}
}

// accumulateRk folds a low-rank product into c := beta*c + product,
// respecting c's own variant: an RkLeaf absorbs it via AddRk and stays
// compressed, a DenseLeaf promotes to dense via AddDense, and an
// Internal node falls back to a dense write-back through accumulate
// (the product's rank-columns don't partition cleanly across c's grid).
func accumulateRk[T scalar.Number](c *Node[T], product *lowrank.RkMatrix[T], beta T, settings config.Settings) {
	switch c.Variant {
	case RkLeaf:
		c.Rk.Scale(beta)
		c.Rk = c.Rk.AddRk(product, settings.RecompressionEpsilon)
	case DenseLeaf:
		c.Dense.Scale(beta)
		c.Dense = product.AddDense(c.Dense)
	default:
		accumulate(c, product.ToDense(), beta, settings)
	}
}

// gemmInternalRecursion performs the all-Internal 2x2(+) block GEMM by
// recursing quadrant by quadrant, provided a's row grid, b's column
// grid and the shared contraction grid (a's columns against b's rows)
// line up exactly with c's own grid. A mismatch (asymmetric splits,
// different cluster granularity between operands) reports unhandled so
// the caller falls back to the dense path.
func gemmInternalRecursion[T scalar.Number](alpha T, a, b *Node[T], beta T, c *Node[T], settings config.Settings) (bool, error) {
	if !sameGrid(a.RowChildren, c.RowChildren) || !sameGrid(b.ColChildren, c.ColChildren) || !sameGrid(a.ColChildren, b.RowChildren) {
		return false, nil
	}
	k := len(a.ColChildren)
	for i := range c.RowChildren {
		for j := range c.ColChildren {
			curBeta := beta
			for l := 0; l < k; l++ {
				if err := Gemm[T]('N', 'N', alpha, a.Children[i][l], b.Children[l][j], curBeta, c.Children[i][j], settings); err != nil {
					return true, err
				}
				curBeta = c.kernel.One()
			}
		}
	}
	return true, nil
}

func sameGrid(x, y []*cluster.Node) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i].Begin != y[i].Begin || x[i].End != y[i].End {
			return false
		}
	}
	return true
}

func opRows[T scalar.Number](n *Node[T], trans byte) int {
	if trans == 'T' || trans == 't' {
		return n.NumCols()
	}
	return n.NumRows()
}

func opCols[T scalar.Number](n *Node[T], trans byte) int {
	if trans == 'T' || trans == 't' {
		return n.NumRows()
	}
	return n.NumCols()
}

// denseOf returns op(n) as a freshly materialized dense array.
func denseOf[T scalar.Number](n *Node[T], trans byte) *scalar.Array[T] {
	d := n.ToDense()
	if trans != 'T' && trans != 't' {
		return d
	}
	out := scalar.NewArray[T](d.Cols, d.Rows, n.kernel)
	for j := 0; j < d.Cols; j++ {
		for i := 0; i < d.Rows; i++ {
			out.Set(j, i, d.Get(i, j))
		}
	}
	return out
}

// accumulate folds src (c's own shape) into c's existing leaves as
// c := beta*c + src, respecting c's variant and recursing over its
// children when c is Internal. The RkLeaf case recompresses with
// settings.RecompressionEpsilon rather than a fixed tolerance, so
// callers control how aggressively write-backs stay low rank.
func accumulate[T scalar.Number](c *Node[T], src *scalar.Array[T], beta T, settings config.Settings) {
	switch c.Variant {
	case DenseLeaf:
		c.Dense.Scale(beta)
		c.Dense.AXPY(c.kernel.One(), src)
	case RkLeaf:
		cur := c.Rk.ToDense()
		cur.Scale(beta)
		cur.AXPY(c.kernel.One(), src)
		c.Rk = lowrank.SVDCompress[T](cur, c.kernel, settings.RecompressionEpsilon)
	default:
		ro := 0
		for i, rc := range c.RowChildren {
			co := 0
			for j, cc := range c.ColChildren {
				sub := src.Sub(ro, ro+rc.Size(), co, co+cc.Size())
				accumulate(c.Children[i][j], sub, beta, settings)
				co += cc.Size()
			}
			ro += rc.Size()
		}
	}
}

// Trsm solves op(a)*x = alpha*b (side 'L') or x*op(a) = alpha*b (side
// 'R') in place on b, a a triangular block (its own tree gives the
// triangular structure implicitly: only the block-diagonal and the
// appropriate off-diagonal triangle are read). When a is Internal with a
// 2x2 grid and b is Internal with the same grid on the solve axis and a
// single block on the other axis, the solve recurses block by block (the
// same forward/backward block substitution factor uses on its own
// triangular factors). Every other pair, including a b split on both
// axes, is solved densely.
func Trsm[T scalar.Number](side, uplo, transA, diag byte, alpha T, a, b *Node[T], settings config.Settings) error {
	if a.Variant == Internal && b.Variant == Internal && len(a.RowChildren) == 2 && len(a.ColChildren) == 2 {
		if handled, err := trsmInternalRecursion(side, uplo, transA, diag, alpha, a, b, settings); handled {
			return err
		}
	}
	da := denseOf(a, 'N')
	db := b.ToDense()
	db.Scale(alpha)
	scalar.Trsm[T](side, uplo, transA, diag, b.kernel.One(), da, db)
	accumulate(b, db, b.kernel.Zero(), settings)
	return nil
}

// trsmInternalRecursion implements the four block forward/backward
// substitution orderings (lower/upper x untransposed/transposed) for
// side 'L', and their column-block analogues for side 'R', bailing out
// (handled=false) whenever b's grid doesn't align with a's partition on
// the relevant axis or b has more than one block on the other axis.
func trsmInternalRecursion[T scalar.Number](side, uplo, transA, diag byte, alpha T, a, b *Node[T], settings config.Settings) (bool, error) {
	a11, a12 := a.Children[0][0], a.Children[0][1]
	a21, a22 := a.Children[1][0], a.Children[1][1]
	lower := uplo == 'L' || uplo == 'l'
	trans := transA == 'T' || transA == 't'
	one := a.kernel.One()
	minusOne := a.kernel.MinusOne()

	if side == 'L' || side == 'l' {
		if !sameGrid(b.RowChildren, a.RowChildren) || len(b.ColChildren) != 1 {
			return false, nil
		}
		b1, b2 := b.Children[0][0], b.Children[1][0]
		var err error
		switch {
		case lower && !trans:
			if err = Trsm[T](side, uplo, transA, diag, alpha, a11, b1, settings); err == nil {
				if err = Gemm[T]('N', 'N', minusOne, a21, b1, alpha, b2, settings); err == nil {
					err = Trsm[T](side, uplo, transA, diag, one, a22, b2, settings)
				}
			}
		case lower && trans:
			if err = Trsm[T](side, uplo, transA, diag, alpha, a22, b2, settings); err == nil {
				if err = Gemm[T]('T', 'N', minusOne, a21, b2, alpha, b1, settings); err == nil {
					err = Trsm[T](side, uplo, transA, diag, one, a11, b1, settings)
				}
			}
		case !lower && !trans:
			if err = Trsm[T](side, uplo, transA, diag, alpha, a22, b2, settings); err == nil {
				if err = Gemm[T]('N', 'N', minusOne, a12, b2, alpha, b1, settings); err == nil {
					err = Trsm[T](side, uplo, transA, diag, one, a11, b1, settings)
				}
			}
		default: // !lower && trans
			if err = Trsm[T](side, uplo, transA, diag, alpha, a11, b1, settings); err == nil {
				if err = Gemm[T]('T', 'N', minusOne, a12, b1, alpha, b2, settings); err == nil {
					err = Trsm[T](side, uplo, transA, diag, one, a22, b2, settings)
				}
			}
		}
		return true, err
	}

	// side R: X*op(A) = alpha*B, A acting on b's column blocks.
	if !sameGrid(b.ColChildren, a.ColChildren) || len(b.RowChildren) != 1 {
		return false, nil
	}
	b1, b2 := b.Children[0][0], b.Children[0][1]
	var err error
	switch {
	case lower && !trans:
		if err = Trsm[T](side, uplo, transA, diag, alpha, a22, b2, settings); err == nil {
			if err = Gemm[T]('N', 'N', minusOne, b2, a21, alpha, b1, settings); err == nil {
				err = Trsm[T](side, uplo, transA, diag, one, a11, b1, settings)
			}
		}
	case lower && trans:
		if err = Trsm[T](side, uplo, transA, diag, alpha, a11, b1, settings); err == nil {
			if err = Gemm[T]('N', 'T', minusOne, b1, a21, alpha, b2, settings); err == nil {
				err = Trsm[T](side, uplo, transA, diag, one, a22, b2, settings)
			}
		}
	case !lower && !trans:
		if err = Trsm[T](side, uplo, transA, diag, alpha, a11, b1, settings); err == nil {
			if err = Gemm[T]('N', 'N', minusOne, b1, a12, alpha, b2, settings); err == nil {
				err = Trsm[T](side, uplo, transA, diag, one, a22, b2, settings)
			}
		}
	default: // !lower && trans
		if err = Trsm[T](side, uplo, transA, diag, alpha, a22, b2, settings); err == nil {
			if err = Gemm[T]('N', 'T', minusOne, b2, a12, alpha, b1, settings); err == nil {
				err = Trsm[T](side, uplo, transA, diag, one, a11, b1, settings)
			}
		}
	}
	return true, err
}

// factorMode selects which recursive factorization a Node.Factor call
// performs.
type factorMode int

const (
	modeLU factorMode = iota
	modeLDLT
	modeLLT
)

// LU factors n in place into non-pivoted lower/upper triangles packed
// LAPACK-style into the same storage (unit diagonal on L implied, not
// stored). Every RkLeaf encountered is first densified: the exact
// triangular factors of a compressed block are not themselves low rank,
// so factorization always gives up compression on the blocks it touches.
func LU[T scalar.Number](n *Node[T], settings config.Settings) error { return factor(n, modeLU, settings) }

// LDLT factors the symmetric n in place using a non-pivoted L*D*L^T
// split (L unit lower, D diagonal), packed the same way as LU.
func LDLT[T scalar.Number](n *Node[T], settings config.Settings) error { return factor(n, modeLDLT, settings) }

// LLT factors the symmetric positive definite n in place via a
// recursive block Cholesky (L lower, stored in place).
func LLT[T scalar.Number](n *Node[T], settings config.Settings) error { return factor(n, modeLLT, settings) }

// Factor dispatches to LU or LDLT according to settings.UseLU /
// settings.UseLDLT (§6's "preferred factorization" selector), defaulting
// to LU when neither or both are set.
func Factor[T scalar.Number](n *Node[T], settings config.Settings) error {
	if settings.UseLDLT && !settings.UseLU {
		return LDLT(n, settings)
	}
	return LU(n, settings)
}

func factor[T scalar.Number](n *Node[T], mode factorMode, settings config.Settings) error {
	densify(n)
	if n.NumRows() != n.NumCols() {
		return hmaterr.New(hmaterr.Singular, "block: cannot factor a non-square block (%dx%d)", n.NumRows(), n.NumCols())
	}
	if n.Variant == DenseLeaf {
		return wrapCoord(factorDense(n.Dense, mode), n)
	}
	// Internal: require a symmetric 2x2 partition (single cluster tree).
	if len(n.Children) != 2 || len(n.Children[0]) != 2 {
		return hmaterr.New(hmaterr.Singular, "block: factorization requires a 2x2 block partition")
	}
	a11, a12 := n.Children[0][0], n.Children[0][1]
	a21, a22 := n.Children[1][0], n.Children[1][1]

	switch mode {
	case modeLU:
		if err := factor(a11, mode, settings); err != nil {
			return wrapCoord(err, n)
		}
		// U12 := L11^-1 * A12  (left, lower, unit diag)
		if err := Trsm[T]('L', 'L', 'N', 'U', a11.kernel.One(), a11, a12, settings); err != nil {
			return wrapCoord(err, n)
		}
		// L21 := A21 * U11^-1  (right, upper, non-unit diag)
		if err := Trsm[T]('R', 'U', 'N', 'N', a11.kernel.One(), a11, a21, settings); err != nil {
			return wrapCoord(err, n)
		}
		// A22 -= L21 * U12
		if err := Gemm[T]('N', 'N', a11.kernel.MinusOne(), a21, a12, a11.kernel.One(), a22, settings); err != nil {
			return wrapCoord(err, n)
		}
		return wrapCoord(factor(a22, mode, settings), n)
	case modeLDLT:
		if err := factor(a11, mode, settings); err != nil {
			return wrapCoord(err, n)
		}
		// Y := A21 * L11^-T == L21 * D11, captured before the division
		// below overwrites a21 in place with L21 itself. The trailing
		// Schur update needs Y (not the original A21, and not A12, which
		// only equals A21^T under the symmetric-assembly assumption and
		// in any case predates L11's own off-diagonal structure): using
		// the post-division L21 against undivided A12 silently drops
		// L11's contribution whenever A11 itself has off-diagonal blocks.
		Trsm[T]('R', 'L', 'T', 'U', a11.kernel.One(), a11, a21, settings)
		y := a21.ToDense()
		divideByDiag(a21, a11, settings)
		// A22 -= L21 * D11 * L21^T == L21 * Y^T
		l21 := a21.ToDense()
		temp := scalar.NewArray[T](y.Rows, l21.Rows, a11.kernel)
		scalar.Gemm[T]('N', 'T', a11.kernel.MinusOne(), y, l21, a11.kernel.Zero(), temp)
		accumulate(a22, temp, a11.kernel.One(), settings)
		return wrapCoord(factor(a22, mode, settings), n)
	default: // modeLLT
		if err := factor(a11, mode, settings); err != nil {
			return wrapCoord(err, n)
		}
		// L21 := A21 * L11^-T
		if err := Trsm[T]('R', 'L', 'T', 'N', a11.kernel.One(), a11, a21, settings); err != nil {
			return wrapCoord(err, n)
		}
		if err := Gemm[T]('N', 'T', a11.kernel.MinusOne(), a21, a21, a11.kernel.One(), a22, settings); err != nil {
			return wrapCoord(err, n)
		}
		return wrapCoord(factor(a22, mode, settings), n)
	}
}

// wrapCoord attaches n's own block coordinate to the front of err's path
// as it bubbles up through the recursion, so by the time an error
// reaches the caller of the top-level factor/Inverse call, Path reads
// root-first down to the node where the failure actually originated.
func wrapCoord[T scalar.Number](err error, n *Node[T]) error {
	if err == nil {
		return nil
	}
	if herr, ok := err.(*hmaterr.Error); ok {
		herr.Prepend(coordOf(n))
	}
	return err
}

func coordOf[T scalar.Number](n *Node[T]) hmaterr.BlockCoord {
	return hmaterr.BlockCoord{
		RowBegin: n.Rows.Begin, RowEnd: n.Rows.End,
		ColBegin: n.Cols.Begin, ColEnd: n.Cols.End,
	}
}

// divideByDiag scales each column j of a21 by 1/D(j,j) taken from the
// diagonal of the already-factored a11, completing the L21 = A21*L11^-T*D11^-1
// step of an LDLT update.
func divideByDiag[T scalar.Number](a21, a11 *Node[T], settings config.Settings) {
	diag := a11.ToDense()
	dst := a21.ToDense()
	for j := 0; j < dst.Cols; j++ {
		d := diag.Get(j, j)
		for i := 0; i < dst.Rows; i++ {
			dst.Set(i, j, dst.Get(i, j)/d)
		}
	}
	accumulate(a21, dst, a21.kernel.Zero(), settings)
}

// densify permanently converts every RkLeaf in the subtree rooted at n
// into a DenseLeaf: factorization does not attempt to keep triangular
// factors compressed.
func densify[T scalar.Number](n *Node[T]) {
	switch n.Variant {
	case RkLeaf:
		n.Dense = n.Rk.ToDense()
		n.Rk = nil
		n.Variant = DenseLeaf
	case Internal:
		for _, row := range n.Children {
			for _, child := range row {
				densify(child)
			}
		}
	}
}

// Inverse replaces n with its inverse in place via block Gauss-Jordan
// elimination on a 2x2 partition, using explicit temporaries throughout
// so that no block is read from after being overwritten (the aliasing
// hazard a naive in-place block inverse would hit is the same one
// rwcarlsen-fem's own vecAdd/vecSub sidestep by never writing into an
// operand they are still reading).
func Inverse[T scalar.Number](n *Node[T], settings config.Settings) error {
	densify(n)
	if n.NumRows() != n.NumCols() {
		return hmaterr.New(hmaterr.Singular, "block: cannot invert a non-square block (%dx%d)", n.NumRows(), n.NumCols())
	}
	if n.Variant == DenseLeaf {
		if info := n.Dense.Inverse(); info != 0 {
			return wrapCoord(hmaterr.KernelFailuref(info, "block: leaf inversion failed at pivot %d", info), n)
		}
		return nil
	}
	if len(n.Children) != 2 || len(n.Children[0]) != 2 {
		return hmaterr.New(hmaterr.Singular, "block: inversion requires a 2x2 block partition")
	}
	a11, a12 := n.Children[0][0], n.Children[0][1]
	a21, a22 := n.Children[1][0], n.Children[1][1]
	kernel := n.kernel

	// Schur complement S = A22 - A21*A11^-1*A12, inverted in place of A22.
	a11Dense := a11.ToDense()
	a11Inv := a11Dense.Clone()
	if info := a11Inv.Inverse(); info != 0 {
		return wrapCoord(hmaterr.KernelFailuref(info, "block: A11 inversion failed at pivot %d", info), n)
	}

	a21Dense := a21.ToDense()
	a12Dense := a12.ToDense()
	temp := scalar.NewArray[T](a21Dense.Rows, a11Inv.Cols, kernel)
	scalar.Gemm[T]('N', 'N', kernel.One(), a21Dense, a11Inv, kernel.Zero(), temp)

	schur := a22.ToDense()
	scalar.Gemm[T]('N', 'N', kernel.MinusOne(), temp, a12Dense, kernel.One(), schur)
	if info := schur.Inverse(); info != 0 {
		return wrapCoord(hmaterr.KernelFailuref(info, "block: Schur complement inversion failed at pivot %d", info), n)
	}

	// new A12 = -A11^-1 * A12 * S
	newA12tmp := scalar.NewArray[T](a11Inv.Rows, a12Dense.Cols, kernel)
	scalar.Gemm[T]('N', 'N', kernel.One(), a11Inv, a12Dense, kernel.Zero(), newA12tmp)
	newA12 := scalar.NewArray[T](newA12tmp.Rows, schur.Cols, kernel)
	scalar.Gemm[T]('N', 'N', kernel.MinusOne(), newA12tmp, schur, kernel.Zero(), newA12)

	// new A21 = -S * A21 * A11^-1
	newA21tmp := scalar.NewArray[T](schur.Rows, temp.Cols, kernel)
	scalar.Gemm[T]('N', 'N', kernel.MinusOne(), schur, temp, kernel.Zero(), newA21tmp)

	// new A11 = A11^-1 + A11^-1*A12*S*A21*A11^-1 = A11^-1 - newA12*temp
	newA11 := a11Inv.Clone()
	scalar.Gemm[T]('N', 'N', kernel.MinusOne(), newA12, temp, kernel.One(), newA11)

	accumulate(a11, newA11, kernel.Zero(), settings)
	accumulate(a12, newA12, kernel.Zero(), settings)
	accumulate(a21, newA21tmp, kernel.Zero(), settings)
	accumulate(a22, schur, kernel.Zero(), settings)
	return nil
}

func factorDense[T scalar.Number](a *scalar.Array[T], mode factorMode) error {
	n := a.Rows
	var zero T
	switch mode {
	case modeLU:
		for k := 0; k < n; k++ {
			pivot := a.Get(k, k)
			if pivot == zero {
				return hmaterr.Singularf("block: exact zero pivot at leaf row %d", k)
			}
			for i := k + 1; i < n; i++ {
				factorVal := a.Get(i, k) / pivot
				a.Set(i, k, factorVal)
				for j := k + 1; j < n; j++ {
					a.Set(i, j, a.Get(i, j)-factorVal*a.Get(k, j))
				}
			}
		}
		return nil
	case modeLDLT:
		d := make([]T, n)
		for j := 0; j < n; j++ {
			sum := a.Get(j, j)
			for k := 0; k < j; k++ {
				sum -= a.Get(j, k) * a.Get(j, k) * d[k]
			}
			if sum == zero {
				return hmaterr.Singularf("block: exact zero pivot at leaf diagonal %d", j)
			}
			d[j] = sum
			a.Set(j, j, sum)
			for i := j + 1; i < n; i++ {
				s := a.Get(i, j)
				for k := 0; k < j; k++ {
					s -= a.Get(i, k) * d[k] * a.Get(j, k)
				}
				a.Set(i, j, s/sum)
			}
		}
		return nil
	default: // modeLLT
		if info := a.Cholesky(true); info != 0 {
			return hmaterr.KernelFailuref(info, "block: leaf Cholesky failed at pivot %d", info)
		}
		return nil
	}
}
