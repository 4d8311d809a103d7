// Package networkmodel provides the topology model of a multi-dimensional
// network and a performance model for collectives that cross it.
package networkmodel

import (
	"github.com/samber/lo"
)

// A NetworkModel can briefly estimate how long a collective phase occupies
// the network, given the bytes it moves along each dimension.
type NetworkModel interface {
	CollectiveTime(msgSizes []float64) float64
}

// A BottleneckModel moves the traffic of all dimensions of a phase at the
// same time. The phase lasts as long as its slowest dimension. Bandwidths are
// in GB/s and sizes in bytes, so times are in ns.
type BottleneckModel struct {
	Bandwidths []float64
}

// NewBottleneckModel creates a BottleneckModel over the given per-dimension
// bandwidths.
func NewBottleneckModel(bandwidths []float64) *BottleneckModel {
	return &BottleneckModel{
		Bandwidths: append([]float64(nil), bandwidths...),
	}
}

// DimensionTimes returns the transfer time of every dimension. A dimension
// that carries no bytes takes no time, even without bandwidth.
func (m *BottleneckModel) DimensionTimes(msgSizes []float64) []float64 {
	return lo.Map(msgSizes, func(size float64, d int) float64 {
		if size == 0 {
			return 0
		}

		return size / m.Bandwidths[d]
	})
}

// CollectiveTime returns the time of the slowest dimension.
func (m *BottleneckModel) CollectiveTime(msgSizes []float64) float64 {
	if len(msgSizes) == 0 {
		return 0
	}

	return lo.Max(m.DimensionTimes(msgSizes))
}
