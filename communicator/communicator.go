// Package communicator describes, for each phase kind, the group size that
// the phase's collective uses on each network dimension.
package communicator

import (
	"fmt"
	"strconv"

	"github.com/sarchlab/libra"
)

// An Error reports an invalid communicator.
type Error struct {
	Msg   string
	Value any
}

func (e *Error) Error() string {
	if e.Value == nil {
		return e.Msg
	}

	return fmt.Sprintf("%s: %v", e.Msg, e.Value)
}

func errorf(value any, format string, args ...any) error {
	return &Error{Msg: fmt.Sprintf(format, args...), Value: value}
}

// A GroupSize is the number of NPUs a collective spans on one dimension, or
// the marker that the collective does not cross that dimension.
type GroupSize struct {
	size int
	used bool
}

// Group returns a group size of n NPUs. New rejects n < 1.
func Group(n int) GroupSize {
	return GroupSize{size: n, used: true}
}

// Unused returns the marker of a dimension that is not traversed.
func Unused() GroupSize {
	return GroupSize{}
}

// Size returns the group size and whether the dimension is used.
func (g GroupSize) Size() (int, bool) {
	return g.size, g.used
}

// Int returns the group size, or -1 for an unused dimension.
func (g GroupSize) Int() int {
	if !g.used {
		return -1
	}

	return g.size
}

func (g GroupSize) String() string {
	if !g.used {
		return "-"
	}

	return strconv.Itoa(g.size)
}

// FromInts converts raw group sizes. A negative entry marks an unused
// dimension. A zero group size is invalid.
func FromInts(sizes []int) ([]GroupSize, error) {
	groups := make([]GroupSize, len(sizes))
	for i, s := range sizes {
		switch {
		case s < 0:
			groups[i] = Unused()
		case s == 0:
			return nil, errorf(sizes, "group size at dim %d should be positive", i+1)
		default:
			groups[i] = Group(s)
		}
	}

	return groups, nil
}

// A Communicator holds the per-dimension group sizes of the forward,
// input-gradient and weight-gradient collectives.
type Communicator struct {
	groups [3][]GroupSize
}

// New creates a communicator. The three lists must have the same length.
func New(forward, inputGrad, weightGrad []GroupSize) (*Communicator, error) {
	if len(forward) != len(inputGrad) {
		return nil, errorf(
			fmt.Sprintf("%v vs %v", forward, inputGrad),
			"Forward and InputGrad communicator length mismatches")
	}

	if len(inputGrad) != len(weightGrad) {
		return nil, errorf(
			fmt.Sprintf("%v vs %v", inputGrad, weightGrad),
			"InputGrad and WeightGrad communicator length mismatches")
	}

	for _, groups := range [][]GroupSize{forward, inputGrad, weightGrad} {
		for d, g := range groups {
			if g.used && g.size < 1 {
				return nil, errorf(g.size, "group size at dim %d should be positive", d+1)
			}
		}
	}

	return &Communicator{
		groups: [3][]GroupSize{
			append([]GroupSize(nil), forward...),
			append([]GroupSize(nil), inputGrad...),
			append([]GroupSize(nil), weightGrad...),
		},
	}, nil
}

// NewFromInts creates a communicator from raw group sizes where a negative
// entry marks an unused dimension.
func NewFromInts(forward, inputGrad, weightGrad []int) (*Communicator, error) {
	lists := make([][]GroupSize, 0, 3)
	for _, sizes := range [][]int{forward, inputGrad, weightGrad} {
		groups, err := FromInts(sizes)
		if err != nil {
			return nil, err
		}

		lists = append(lists, groups)
	}

	return New(lists[0], lists[1], lists[2])
}

// DimsCount returns the number of dimensions the communicator describes.
func (c *Communicator) DimsCount() int {
	return len(c.groups[libra.Forward])
}

// CheckDims verifies that the communicator covers exactly dimsCount
// dimensions.
func (c *Communicator) CheckDims(dimsCount int) error {
	if c.DimsCount() != dimsCount {
		return errorf(c.DimsCount(),
			"communicator should describe %d dimensions", dimsCount)
	}

	return nil
}

// For returns a copy of the group sizes of the given phase kind.
func (c *Communicator) For(kind libra.PhaseKind) []GroupSize {
	return append([]GroupSize(nil), c.groups[kind]...)
}

// MessageSizes returns the number of bytes the phase's collective moves on
// each dimension. The collective walks the dimensions in its own order,
// skipping unused ones, and the chunk size carries over from one visited
// dimension to the next.
func MessageSizes(p libra.Phase, groups []GroupSize) []float64 {
	sizes := make([]float64, len(groups))
	if p.Comm == nil {
		return sizes
	}

	running := p.CommSize
	for _, d := range p.Comm.Dims(len(groups)) {
		g, used := groups[d].Size()
		if !used {
			continue
		}

		sizes[d], running = p.Comm.Step(running, g)
	}

	return sizes
}

// PhaseMessageSizes returns the per-dimension message sizes of a layer's
// phase under this communicator.
func (c *Communicator) PhaseMessageSizes(
	layer libra.Layer,
	kind libra.PhaseKind,
) []float64 {
	return MessageSizes(layer.Phase(kind), c.groups[kind])
}
