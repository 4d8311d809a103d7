package networkmodel

import (
	"fmt"

	"github.com/samber/lo"
)

// An Error reports an invalid network description.
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

// A Network is a multi-dimensional interconnect, one building block per
// dimension. Dimension 0 is the innermost one.
type Network struct {
	blocks   []BuildingBlock
	npus     []int
	costDims []string
	total    int
}

// NewNetwork validates and creates a network. The three lists are indexed by
// dimension and must have the same length. Every dimension must connect more
// than one NPU.
func NewNetwork(
	blocks []BuildingBlock,
	npusCount []int,
	costDimensions []string,
) (*Network, error) {
	dims := len(blocks)
	if dims == 0 {
		return nil, errorf(nil, "network has no dimension")
	}

	if len(npusCount) != dims {
		return nil, errorf(npusCount, "NpusCount is not %dD", dims)
	}

	if len(costDimensions) != dims {
		return nil, errorf(costDimensions, "CostDimension is not %dD", dims)
	}

	for d, b := range blocks {
		if b == nil {
			return nil, errorf(d+1, "missing topology at dim")
		}

		if npusCount[d] <= 1 {
			return nil, errorf(npusCount[d],
				"NpusCount at dim %d should be larger than 1", d+1)
		}
	}

	return &Network{
		blocks:   append([]BuildingBlock(nil), blocks...),
		npus:     append([]int(nil), npusCount...),
		costDims: append([]string(nil), costDimensions...),
		total:    lo.Product(npusCount),
	}, nil
}

// DimsCount returns the number of dimensions.
func (n *Network) DimsCount() int {
	return len(n.blocks)
}

// TotalNPUsCount returns the number of NPUs in the whole network.
func (n *Network) TotalNPUsCount() int {
	return n.total
}

// NPUsCount returns the number of NPUs along dimension d.
func (n *Network) NPUsCount(d int) int {
	return n.npus[d]
}

// Block returns the building block of dimension d.
func (n *Network) Block(d int) BuildingBlock {
	return n.blocks[d]
}

// CostDimension returns the cost label of dimension d.
func (n *Network) CostDimension(d int) string {
	return n.costDims[d]
}

// LinksCount returns the number of physical links of one building-block
// instance of dimension d.
func (n *Network) LinksCount(d int) int {
	return n.blocks[d].linksCount(n.npus, d)
}

// InstanceCount returns how many copies of dimension d's building block tile
// the whole network.
func (n *Network) InstanceCount(d int) int {
	return n.blocks[d].instanceCount(n.npus, d)
}

// LinkBandwidthShare returns the fraction of dimension d's aggregate
// bandwidth that a single link carries.
func (n *Network) LinkBandwidthShare(d int) float64 {
	return n.blocks[d].linkBandwidthShare(n.npus[d])
}

// A Dimension summarizes the derived quantities of one dimension.
type Dimension struct {
	Index              int
	Block              BuildingBlock
	NPUs               int
	CostDimension      string
	Instances          int
	LinksPerInstance   int
	LinkBandwidthShare float64
}

// Dimensions returns the summary of every dimension in order.
func (n *Network) Dimensions() []Dimension {
	return lo.Times(n.DimsCount(), func(d int) Dimension {
		return Dimension{
			Index:              d,
			Block:              n.blocks[d],
			NPUs:               n.npus[d],
			CostDimension:      n.costDims[d],
			Instances:          n.InstanceCount(d),
			LinksPerInstance:   n.LinksCount(d),
			LinkBandwidthShare: n.LinkBandwidthShare(d),
		}
	})
}
