// Package costmodel prices a network from per-dimension unit costs of its
// links, NICs and switches.
package costmodel

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/sarchlab/libra/networkmodel"
	"github.com/sarchlab/libra/qp"
)

// An Error reports an invalid or incomplete cost model.
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

// CostElement is a kind of network element that has a unit cost.
type CostElement int

// CostElement constants.
const (
	Link CostElement = iota
	Nic
	Switch
	Npu
)

// CostElements lists every cost element.
var CostElements = []CostElement{Link, Nic, Switch, Npu}

func (e CostElement) String() string {
	switch e {
	case Link:
		return "Link"
	case Nic:
		return "Nic"
	case Switch:
		return "Switch"
	case Npu:
		return "Npu"
	default:
		return fmt.Sprintf("CostElement(%d)", int(e))
	}
}

// ParseCostElement translates an element name.
func ParseCostElement(name string) (CostElement, error) {
	e, ok := lo.Find(CostElements, func(e CostElement) bool {
		return e.String() == name
	})
	if !ok {
		return 0, errorf(name, "not a valid cost element")
	}

	return e, nil
}

// A CostModel holds the unit cost of each element per cost dimension. Unit
// costs are per unit of link bandwidth.
type CostModel struct {
	costs   map[string]map[CostElement]float64
	network *networkmodel.Network
}

// NewCostModel creates an empty cost model.
func NewCostModel() *CostModel {
	return &CostModel{
		costs: make(map[string]map[CostElement]float64),
	}
}

// SetUnitCost sets the unit cost of an element in a cost dimension. The cost
// must be positive and can be set only once.
func (m *CostModel) SetUnitCost(costDim string, e CostElement, cost float64) error {
	if _, set := m.costs[costDim][e]; set {
		return errorf(costDim, "%s is already set for dim", e)
	}

	if cost <= 0 {
		return errorf(cost, "%s cost at dim %s should be positive", e, costDim)
	}

	if m.costs == nil {
		m.costs = make(map[string]map[CostElement]float64)
	}

	if m.costs[costDim] == nil {
		m.costs[costDim] = make(map[CostElement]float64)
	}

	m.costs[costDim][e] = cost

	return nil
}

// UnitCost returns the unit cost of an element in a cost dimension.
func (m *CostModel) UnitCost(costDim string, e CostElement) (float64, error) {
	costs, ok := m.costs[costDim]
	if !ok {
		return 0, errorf(costDim, "cost dimension does not exist")
	}

	cost, ok := costs[e]
	if !ok {
		return 0, errorf(costDim, "%s does not exist in dim", e)
	}

	return cost, nil
}

// SetNetwork attaches the network that the cost model prices.
func (m *CostModel) SetNetwork(n *networkmodel.Network) {
	m.network = n
}

// Network returns the attached network.
func (m *CostModel) Network() *networkmodel.Network {
	return m.network
}

// bandwidthUnitCost returns the cost of one unit of aggregate bandwidth of
// dimension d across the whole network:
// instances * links * link share * (link [+ nic + switch]).
func (m *CostModel) bandwidthUnitCost(d int) (float64, error) {
	n := m.network
	label := n.CostDimension(d)

	elements := []CostElement{Link}
	if n.Block(d) == networkmodel.Switch {
		elements = append(elements, Nic, Switch)
	}

	perLink := 0.0
	for _, e := range elements {
		cost, err := m.UnitCost(label, e)
		if err != nil {
			return 0, err
		}

		perLink += cost
	}

	return float64(n.InstanceCount(d)) *
		perLink * n.LinkBandwidthShare(d) * float64(n.LinksCount(d)), nil
}

func (m *CostModel) checkAttached(dims int) error {
	if m.network == nil {
		return errorf(nil, "cost model is not attached to a network")
	}

	if dims != m.network.DimsCount() {
		return errorf(dims, "expected %d bandwidths", m.network.DimsCount())
	}

	return nil
}

// NetworkCost returns the cost of the network as an expression of the
// per-dimension bandwidth variables.
func (m *CostModel) NetworkCost(bw []qp.Var) (qp.Expr, error) {
	if err := m.checkAttached(len(bw)); err != nil {
		return qp.Expr{}, err
	}

	cost := qp.Const(0)
	for d, v := range bw {
		unit, err := m.bandwidthUnitCost(d)
		if err != nil {
			return qp.Expr{}, err
		}

		cost = cost.Add(v.Expr().Scale(unit))
	}

	return cost, nil
}

// Breakdown returns the cost of each dimension at the given bandwidths.
func (m *CostModel) Breakdown(bw []float64) ([]float64, error) {
	if err := m.checkAttached(len(bw)); err != nil {
		return nil, err
	}

	costs := make([]float64, len(bw))
	for d, b := range bw {
		unit, err := m.bandwidthUnitCost(d)
		if err != nil {
			return nil, err
		}

		costs[d] = unit * b
	}

	return costs, nil
}

// NetworkCostValue returns the cost of the network at the given bandwidths.
func (m *CostModel) NetworkCostValue(bw []float64) (float64, error) {
	costs, err := m.Breakdown(bw)
	if err != nil {
		return 0, err
	}

	return lo.Sum(costs), nil
}
