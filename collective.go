package libra

import (
	"strings"

	"github.com/samber/lo"
)

// A Collective is a multi-party communication pattern. The set of collectives
// is closed; each one knows how it walks the network dimensions and how the
// per-dimension message size evolves along the walk.
type Collective interface {
	// Name returns the upper-case name used in workload files.
	Name() string

	// Dims returns the order in which a network with dimsCount dimensions is
	// traversed.
	Dims(dimsCount int) []int

	// Step returns the message size carried on a dimension with group size
	// g, given the running chunk size, and the running size for the next
	// dimension.
	Step(running float64, g int) (msg, next float64)

	collective()
}

// The supported collectives.
var (
	NoComm        Collective = noComm{}
	ReduceScatter Collective = reduceScatter{}
	AllGather     Collective = allGather{}
	AllReduce     Collective = allReduce{}
	AllToAll      Collective = allToAll{}
)

// Collectives lists every supported collective.
var Collectives = []Collective{NoComm, ReduceScatter, AllGather, AllReduce, AllToAll}

// ParseCollective translates a workload-file name into a collective. The name
// is case-insensitive but must not contain hyphens.
func ParseCollective(name string) (Collective, error) {
	query := strings.ToUpper(strings.TrimSpace(name))

	for _, c := range Collectives {
		if c.Name() == query {
			return c, nil
		}
	}

	return nil, workloadErrorf(name, "not a valid communication type")
}

type noComm struct{}

func (noComm) Name() string { return "NONE" }
func (noComm) Dims(int) []int { return nil }
func (noComm) collective() {}
func (noComm) String() string { return "NoComm" }

func (noComm) Step(r float64, _ int) (float64, float64) {
	return 0, r
}

type reduceScatter struct{}

func (reduceScatter) Name() string { return "REDUCESCATTER" }
func (reduceScatter) Dims(n int) []int { return lo.Range(n) }
func (reduceScatter) collective() {}
func (reduceScatter) String() string { return "ReduceScatter" }

func (reduceScatter) Step(r float64, g int) (float64, float64) {
	gf := float64(g)
	return r / gf * (gf - 1), r / gf
}

// allGather walks the dimensions in reverse and grows the chunk.
type allGather struct{}

func (allGather) Name() string { return "ALLGATHER" }
func (allGather) collective() {}
func (allGather) String() string { return "AllGather" }

func (allGather) Dims(n int) []int {
	dims := make([]int, n)
	for i := range dims {
		dims[i] = n - 1 - i
	}

	return dims
}

func (allGather) Step(r float64, g int) (float64, float64) {
	gf := float64(g)
	return r * (gf - 1), r * gf
}

type allReduce struct{}

func (allReduce) Name() string { return "ALLREDUCE" }
func (allReduce) Dims(n int) []int { return lo.Range(n) }
func (allReduce) collective() {}
func (allReduce) String() string { return "AllReduce" }

func (allReduce) Step(r float64, g int) (float64, float64) {
	gf := float64(g)
	return 2 * r / gf * (gf - 1), r / gf
}

// allToAll keeps the chunk size on every dimension.
type allToAll struct{}

func (allToAll) Name() string { return "ALLTOALL" }
func (allToAll) Dims(n int) []int { return lo.Range(n) }
func (allToAll) collective() {}
func (allToAll) String() string { return "AllToAll" }

func (allToAll) Step(r float64, g int) (float64, float64) {
	gf := float64(g)
	return r / gf * (gf - 1), r
}
