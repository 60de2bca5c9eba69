package cluster

// Predicate decides whether a (rowCluster, colCluster) pair is
// compressible (admissible) or must be subdivided further. RowOK/ColOK
// allow asymmetric subdivision ("tall-skinny" blocks, §4.2): a pair is
// fully admissible only when both hold; when only one holds, the block
// tree recurses on the other axis alone.
type Predicate interface {
	// Admissible returns whether rows and cols are jointly admissible.
	Admissible(rows, cols *Node) bool
	// SplitAxes returns per-axis admissibility, used when Admissible is
	// false but the caller wants to know whether the block can still be
	// subdivided asymmetrically.
	SplitAxes(rows, cols *Node) (rowOK, colOK bool)
	String() string
}

// Standard implements the Hackbusch admissibility formula:
//
//	min(diam(R), diam(C)) <= eta * dist(R, C)  AND  |R|*|C| <= maxElementsPerBlock
//
// Grounded on original_source/src/admissibility.hpp's
// StandardAdmissibilityCondition, including the element-count cap that
// the distilled spec mentions only in prose.
type Standard struct {
	eta                 float64
	maxElementsPerBlock int
}

// NewStandard builds a Standard admissibility condition. maxElementsPerBlock
// mirrors the C++ default of 5,000,000 when 0 is passed.
func NewStandard(eta float64, maxElementsPerBlock int) *Standard {
	if maxElementsPerBlock <= 0 {
		maxElementsPerBlock = 5000000
	}
	return &Standard{eta: eta, maxElementsPerBlock: maxElementsPerBlock}
}

// SetEta updates the admissibility factor in place (original_source
// exposes StandardAdmissibilityCondition::setEta for reuse across
// assembly passes with different accuracy targets).
func (s *Standard) SetEta(eta float64) { s.eta = eta }

func (s *Standard) Admissible(rows, cols *Node) bool {
	if rows.Size() == 0 || cols.Size() == 0 {
		return false
	}
	if rows.Size()*cols.Size() > s.maxElementsPerBlock {
		return false
	}
	dist := rows.DistanceTo(cols)
	minDiam := rows.Diameter()
	if cols.Diameter() < minDiam {
		minDiam = cols.Diameter()
	}
	if dist == 0 {
		return false
	}
	return minDiam <= s.eta*dist
}

func (s *Standard) SplitAxes(rows, cols *Node) (bool, bool) {
	ok := s.Admissible(rows, cols)
	return ok, ok
}

func (s *Standard) String() string {
	return "StandardAdmissibilityCondition"
}

// Always forces admissibility of every block small enough to satisfy the
// element-count cap, regardless of geometric separation. Used for
// synthetic/no-compression-needed test scenarios (spec.md §4.2, "an
// 'always' mode").
type Always struct {
	maxElementsPerBlock int
}

func NewAlways(maxElementsPerBlock int) *Always {
	if maxElementsPerBlock <= 0 {
		maxElementsPerBlock = 5000000
	}
	return &Always{maxElementsPerBlock: maxElementsPerBlock}
}

func (a *Always) Admissible(rows, cols *Node) bool {
	if rows.Size() == 0 || cols.Size() == 0 {
		return false
	}
	return rows.Size()*cols.Size() <= a.maxElementsPerBlock
}

func (a *Always) SplitAxes(rows, cols *Node) (bool, bool) {
	ok := a.Admissible(rows, cols)
	return ok, ok
}

func (a *Always) String() string { return "AlwaysAdmissibilityCondition" }

// TallSkinny implements the asymmetric predicate of §4.2: rowOK iff
// |R| <= ratio*|C|, colOK iff |C| <= ratio*|R|. Both hold => standard
// admissible block; only one holds => subdivide the other axis alone.
type TallSkinny struct {
	ratio float64
}

func NewTallSkinny(ratio float64) *TallSkinny {
	return &TallSkinny{ratio: ratio}
}

func (t *TallSkinny) SplitAxes(rows, cols *Node) (rowOK, colOK bool) {
	r, c := float64(rows.Size()), float64(cols.Size())
	if r == 0 || c == 0 {
		return false, false
	}
	rowOK = r <= t.ratio*c
	colOK = c <= t.ratio*r
	return
}

func (t *TallSkinny) Admissible(rows, cols *Node) bool {
	rowOK, colOK := t.SplitAxes(rows, cols)
	return rowOK && colOK
}

func (t *TallSkinny) String() string { return "TallSkinnyAdmissibilityCondition" }

// InfluenceRadius is admissible iff the bounding boxes are separated by
// more than the sum of the largest influence radius present in each
// cluster: a conservative, box-level sufficient condition (if it holds,
// every point pair is separated by more than the sum of its radii; a pair
// of clusters that fails it may still be separated point by point).
// Individual point pairs are never checked, not even at leaf level.
// Grounded on original_source's
// hmat_create_admissibility_influence_radius / InfluenceRadiusCondition,
// which spec.md's data model alludes to (§3, "optional radius") without
// specifying the predicate.
type InfluenceRadius struct {
	points *PointSet
}

func NewInfluenceRadius(points *PointSet) *InfluenceRadius {
	return &InfluenceRadius{points: points}
}

func (r *InfluenceRadius) maxRadius(n *Node) float64 {
	best := 0.0
	for _, idx := range n.OriginalIndices() {
		if rad := r.points.Points[idx].Radius; rad > best {
			best = rad
		}
	}
	return best
}

func (r *InfluenceRadius) Admissible(rows, cols *Node) bool {
	if rows.Size() == 0 || cols.Size() == 0 {
		return false
	}
	sep := rows.DistanceTo(cols)
	return sep > r.maxRadius(rows)+r.maxRadius(cols)
}

func (r *InfluenceRadius) SplitAxes(rows, cols *Node) (bool, bool) {
	ok := r.Admissible(rows, cols)
	return ok, ok
}

func (r *InfluenceRadius) String() string { return "InfluenceRadiusCondition" }
