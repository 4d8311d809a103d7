// Package libra formulates the bandwidth-allocation problem of
// multi-dimensional training networks. The root package describes the
// workload: an ordered list of layers, each with a forward, an input-gradient
// and a weight-gradient phase.
package libra

import (
	"fmt"

	"github.com/samber/lo"
)

// A WorkloadError reports an invalid workload description.
type WorkloadError struct {
	Msg   string
	Value any
}

func (e *WorkloadError) Error() string {
	if e.Value == nil {
		return e.Msg
	}

	return fmt.Sprintf("%s: %v", e.Msg, e.Value)
}

func workloadErrorf(value any, format string, args ...any) error {
	return &WorkloadError{Msg: fmt.Sprintf(format, args...), Value: value}
}

// PhaseKind identifies one of the three phases of a layer.
type PhaseKind int

// PhaseKind constants, in the order the phases appear in a layer.
const (
	Forward PhaseKind = iota
	InputGrad
	WeightGrad
)

// PhaseKinds lists all phase kinds in layer order.
var PhaseKinds = []PhaseKind{Forward, InputGrad, WeightGrad}

func (k PhaseKind) String() string {
	switch k {
	case Forward:
		return "Forward"
	case InputGrad:
		return "InputGrad"
	case WeightGrad:
		return "WeightGrad"
	default:
		return fmt.Sprintf("PhaseKind(%d)", int(k))
	}
}

// A Phase is a compute step followed by a collective communication.
type Phase struct {
	// ComputeTime is the compute time of the phase, in ns.
	ComputeTime float64
	Comm        Collective
	// CommSize is the payload of the collective before it is split across
	// dimensions, in bytes.
	CommSize float64
}

// NewPhase creates a phase. Both numeric fields must be non-negative.
func NewPhase(computeTime float64, comm Collective, commSize float64) (Phase, error) {
	if computeTime < 0 {
		return Phase{}, workloadErrorf(computeTime, "compute time should be >= 0")
	}

	if commSize < 0 {
		return Phase{}, workloadErrorf(commSize, "communication size should be >= 0")
	}

	if comm == nil {
		comm = NoComm
	}

	return Phase{
		ComputeTime: computeTime,
		Comm:        comm,
		CommSize:    commSize,
	}, nil
}

// A Layer represents a layer of the trained model.
type Layer struct {
	Name   string
	phases [3]Phase
}

// NewLayer creates a layer from its three phases.
func NewLayer(name string, forward, inputGrad, weightGrad Phase) Layer {
	return Layer{
		Name:   name,
		phases: [3]Phase{forward, inputGrad, weightGrad},
	}
}

// Phase returns the phase of the given kind.
func (l Layer) Phase(kind PhaseKind) Phase {
	return l.phases[kind]
}

// Forward returns the forward phase.
func (l Layer) Forward() Phase {
	return l.phases[Forward]
}

// InputGrad returns the input-gradient phase.
func (l Layer) InputGrad() Phase {
	return l.phases[InputGrad]
}

// WeightGrad returns the weight-gradient phase.
func (l Layer) WeightGrad() Phase {
	return l.phases[WeightGrad]
}

// A Workload is an ordered list of layers. The order defines the forward and
// backward traversal and does not change after construction.
type Workload struct {
	layers []Layer
}

// NewWorkload creates a workload that owns a copy of the given layers.
func NewWorkload(layers []Layer) *Workload {
	return &Workload{layers: append([]Layer(nil), layers...)}
}

// LayersCount returns the number of layers.
func (w *Workload) LayersCount() int {
	return len(w.layers)
}

// Layer returns the i-th layer.
func (w *Workload) Layer(i int) Layer {
	return w.layers[i]
}

// Layers returns a copy of the layers in order.
func (w *Workload) Layers() []Layer {
	return append([]Layer(nil), w.layers...)
}

// TotalComputeTime sums the compute time of every phase of every layer.
func (w *Workload) TotalComputeTime() float64 {
	return lo.SumBy(w.layers, func(l Layer) float64 {
		return lo.SumBy(l.phases[:], func(p Phase) float64 {
			return p.ComputeTime
		})
	})
}
