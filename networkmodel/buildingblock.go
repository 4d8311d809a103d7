package networkmodel

import (
	"github.com/samber/lo"
)

// A BuildingBlock is the structural class of one network dimension. The set
// of building blocks is closed: Ring, FullyConnected and Switch.
type BuildingBlock interface {
	Name() string

	linkBandwidthShare(npus int) float64
	linksCount(npus []int, dim int) int
	instanceCount(npus []int, dim int) int
}

// The supported building blocks.
var (
	Ring           BuildingBlock = ring{}
	FullyConnected BuildingBlock = fullyConnected{}
	Switch         BuildingBlock = switchBlock{}
)

// BuildingBlocks lists every supported building block.
var BuildingBlocks = []BuildingBlock{Ring, FullyConnected, Switch}

// ParseBuildingBlock translates a topology name into a building block.
func ParseBuildingBlock(name string) (BuildingBlock, error) {
	b, ok := lo.Find(BuildingBlocks, func(b BuildingBlock) bool {
		return b.Name() == name
	})
	if !ok {
		return nil, errorf(name, "not a valid topology name")
	}

	return b, nil
}

// ParseBuildingBlocks translates a list of topology names.
func ParseBuildingBlocks(names []string) ([]BuildingBlock, error) {
	blocks := make([]BuildingBlock, 0, len(names))
	for _, name := range names {
		b, err := ParseBuildingBlock(name)
		if err != nil {
			return nil, err
		}

		blocks = append(blocks, b)
	}

	return blocks, nil
}

func replicas(npus []int, dim int) int {
	return lo.Product(npus) / npus[dim]
}

// A ring carries traffic in both directions, so each link gets half of the
// dimension bandwidth.
type ring struct{}

func (ring) Name() string { return "Ring" }

func (ring) linkBandwidthShare(int) float64 {
	return 0.5
}

func (ring) linksCount(npus []int, dim int) int {
	return 2 * npus[dim]
}

func (ring) instanceCount(npus []int, dim int) int {
	return replicas(npus, dim)
}

type fullyConnected struct{}

func (fullyConnected) Name() string { return "FullyConnected" }

func (fullyConnected) linkBandwidthShare(n int) float64 {
	return 1 / float64(n-1)
}

func (fullyConnected) linksCount(npus []int, dim int) int {
	n := npus[dim]
	return n * (n - 1)
}

func (fullyConnected) instanceCount(npus []int, dim int) int {
	return replicas(npus, dim)
}

// A switch dimension is modeled as one big switch spanning every dimension up
// to and including its own.
type switchBlock struct{}

func (switchBlock) Name() string { return "Switch" }

func (switchBlock) linkBandwidthShare(int) float64 {
	return 1
}

func (switchBlock) linksCount(npus []int, dim int) int {
	return lo.Product(npus[:dim+1])
}

func (switchBlock) instanceCount(npus []int, dim int) int {
	return lo.Product(npus[dim+1:])
}
