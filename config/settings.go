// Package config holds the explicit, value-typed settings threaded through
// cluster construction, assembly and block algebra. There is no
// package-level singleton (the teacher never has one either): callers
// build a Settings value and pass it down, mirroring how sparse.CG and
// sparse.GaussSeidel carry their own tunables as plain exported fields.
package config

// Clustering selects the ClusterTree splitting strategy (§4.1).
type Clustering int

const (
	Geometric Clustering = iota
	Median
	Hybrid
)

func (c Clustering) String() string {
	switch c {
	case Geometric:
		return "geometric"
	case Median:
		return "median"
	case Hybrid:
		return "hybrid"
	default:
		return "unknown"
	}
}

// CompressionMethod selects the low-rank compression kernel used during
// assembly of admissible blocks (§4.4).
type CompressionMethod int

const (
	SVD CompressionMethod = iota
	AcaFull
	AcaPartial
	AcaPlus
	RkNull
)

func (m CompressionMethod) String() string {
	switch m {
	case SVD:
		return "svd"
	case AcaFull:
		return "aca-full"
	case AcaPartial:
		return "aca-partial"
	case AcaPlus:
		return "aca-plus"
	case RkNull:
		return "rk-null"
	default:
		return "unknown"
	}
}

// Settings collects every configuration option recognized by the core
// (§6). The zero value is not generally usable (epsilons default to 0,
// which would force full rank); use Default() to get workable defaults.
type Settings struct {
	AssemblyEpsilon       float64
	RecompressionEpsilon  float64
	CompressionMethod     CompressionMethod
	Clustering            Clustering
	MaxLeafSize           int
	CompressionMinLeafSize int
	MaxElementsPerBlock   int
	Coarsening            bool
	Recompress            bool
	ValidateCompression   bool
	ValidationErrorThreshold float64
	ValidationReRun       bool
	ValidationDump        bool
	UseLU                 bool
	UseLDLT               bool
	// MaxParallelLeaves is the task executor's per-group limit (§5):
	// assembly starts one group for each Internal node's children, so it
	// bounds the sibling builds running at once under one node, not the
	// total across the tree. Zero means "no limit beyond GOMAXPROCS",
	// matching an unset C default.
	MaxParallelLeaves int
}

// Default returns the settings the original C++ library ships with
// (assemblyEpsilon/recompressionEpsilon = 1e-4, SVD compression, median
// clustering, maxLeafSize 100), adjusted only where spec.md's scenarios
// require a tighter default (assemblyEpsilon here stays at the library
// default; individual tests override it).
func Default() Settings {
	return Settings{
		AssemblyEpsilon:          1e-4,
		RecompressionEpsilon:     1e-4,
		CompressionMethod:        SVD,
		Clustering:               Median,
		MaxLeafSize:              100,
		CompressionMinLeafSize:   0,
		MaxElementsPerBlock:      5000000,
		Coarsening:               false,
		Recompress:               true,
		ValidateCompression:      false,
		ValidationErrorThreshold: 1e-3,
		ValidationReRun:          false,
		ValidationDump:           false,
		UseLU:                    true,
		UseLDLT:                  false,
		MaxParallelLeaves:        0,
	}
}
