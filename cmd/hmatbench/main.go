// Command hmatbench exercises the pipeline end to end: it builds a point
// cloud, clusters it, assembles a hierarchical matrix under a Hackbusch
// admissibility predicate and prints its compression statistics and a
// corner of the assembled matrix; with -factor it also factors the
// matrix. It does not measure approximation accuracy.
//
// This mirrors the role rwcarlsen-fem's own main.go plays: the one place
// in the module allowed to log and print, everything below cmd/ stays
// silent and returns errors instead.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"

	"github.com/jschueller/hmat-oss/block"
	"github.com/jschueller/hmat-oss/cluster"
	"github.com/jschueller/hmat-oss/config"
	"github.com/jschueller/hmat-oss/scalar"
)

func main() {
	n := flag.Int("n", 2000, "number of points in the synthetic point cloud")
	eta := flag.Float64("eta", 2.0, "Hackbusch admissibility factor")
	leafSize := flag.Int("leaf", 32, "maximum cluster leaf size")
	method := flag.String("compression", "aca-partial", "svd | aca-full | aca-partial | aca-plus")
	seed := flag.Int64("seed", 1, "random seed for the synthetic point cloud")
	useLDLT := flag.Bool("ldlt", false, "factor with LDLT instead of LU (requires a symmetric kernel)")
	factorize := flag.Bool("factor", false, "factor the assembled matrix after building it")
	flag.Parse()

	if err := run(*n, *eta, *leafSize, *method, *seed, *useLDLT, *factorize); err != nil {
		log.Fatal(err)
	}
}

func run(n int, eta float64, leafSize int, method string, seed int64, useLDLT, factorize bool) error {
	points := randomSphere(n, seed)
	ps, err := cluster.NewPointSet(points)
	if err != nil {
		return err
	}
	tree, err := cluster.Build(ps, cluster.StrategyMedian, leafSize)
	if err != nil {
		return err
	}

	settings := config.Default()
	settings.CompressionMethod = compressionMethod(method)
	settings.AssemblyEpsilon = 1e-6
	settings.UseLDLT = useLDLT
	settings.UseLU = !useLDLT

	pred := cluster.NewStandard(eta, settings.MaxElementsPerBlock)

	kernel := scalar.KernelFor[float64]()
	gen := block.ElementGenerator[float64](func(i, j int) float64 {
		return laplaceKernel(points[i], points[j])
	})

	root, err := block.Assemble[float64](tree, tree, pred, gen, settings, kernel)
	if err != nil {
		return err
	}

	leaves, rkLeaves, denseLeaves, totalStorage, denseStorage := 0, 0, 0, 0, 0
	root.Walk(func(node *block.Node[float64]) {
		switch node.Variant {
		case block.DenseLeaf:
			leaves++
			denseLeaves++
			m, c := node.NumRows(), node.NumCols()
			totalStorage += m * c
			denseStorage += m * c
		case block.RkLeaf:
			leaves++
			rkLeaves++
			m, c := node.NumRows(), node.NumCols()
			totalStorage += node.Rank() * (m + c)
			denseStorage += m * c
		}
	})

	fmt.Printf("assembled %d x %d hierarchical matrix\n", n, n)
	fmt.Printf("leaves: %d (dense %d, low-rank %d)\n", leaves, denseLeaves, rkLeaves)
	fmt.Printf("storage: %d entries vs %d dense (compression ratio %.3f)\n",
		totalStorage, denseStorage, float64(totalStorage)/float64(denseStorage))

	dense := root.ToDense()
	fmt.Printf("top-left 3x3 of the assembled matrix:\n")
	for i := 0; i < 3 && i < dense.Rows; i++ {
		for j := 0; j < 3 && j < dense.Cols; j++ {
			fmt.Printf("%10.4f ", dense.Get(i, j))
		}
		fmt.Println()
	}

	if factorize {
		which := "LU"
		if settings.UseLDLT {
			which = "LDLT"
		}
		if err := block.Factor[float64](root, settings); err != nil {
			return fmt.Errorf("factoring with %s: %w", which, err)
		}
		fmt.Printf("factored with %s\n", which)
	}
	return nil
}

func compressionMethod(s string) config.CompressionMethod {
	switch s {
	case "svd":
		return config.SVD
	case "aca-full":
		return config.AcaFull
	case "aca-plus":
		return config.AcaPlus
	default:
		return config.AcaPartial
	}
}

// laplaceKernel evaluates the 1/|x-y| single-layer potential kernel, a
// standard H-matrix benchmark problem (original_source's own examples use
// the same kernel for demonstration purposes), regularized on the
// diagonal to keep self-interaction finite.
func laplaceKernel(a, b cluster.Point) float64 {
	sum := 0.0
	for d := range a.Coords {
		dx := a.Coords[d] - b.Coords[d]
		sum += dx * dx
	}
	if sum == 0 {
		return 1.0
	}
	return 1.0 / math.Sqrt(sum)
}

func randomSphere(n int, seed int64) []cluster.Point {
	r := rand.New(rand.NewSource(seed))
	points := make([]cluster.Point, n)
	for i := range points {
		theta := 2 * math.Pi * r.Float64()
		phi := math.Acos(2*r.Float64() - 1)
		points[i] = cluster.Point{
			Coords: []float64{
				math.Sin(phi) * math.Cos(theta),
				math.Sin(phi) * math.Sin(theta),
				math.Cos(phi),
			},
		}
	}
	return points
}
