// Package model builds the bandwidth-allocation program of a training
// workload on a multi-dimensional network.
//
// A Context owns the program. It is initialized with a network and a cost
// model, which allocates one bandwidth variable per dimension. A Session then
// instantiates a workload on the context, sets the objective and solves.
package model

import (
	"fmt"
	"math"

	"github.com/sarchlab/libra/costmodel"
	"github.com/sarchlab/libra/networkmodel"
	"github.com/sarchlab/libra/qp"
	"k8s.io/klog/v2"
)

// An Error reports a misuse of the model builder or an invalid model input.
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

type state int

const (
	uninitialized state = iota
	contextInitialized
	workloadInstantiated
	objectiveSet
	solved
)

func (s state) String() string {
	switch s {
	case uninitialized:
		return "uninitialized"
	case contextInitialized:
		return "context-initialized"
	case workloadInstantiated:
		return "workload-instantiated"
	case objectiveSet:
		return "objective-set"
	case solved:
		return "solved"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// A Context is one optimization problem. Contexts are independent of each
// other and are not safe for concurrent use.
type Context struct {
	qp        *qp.Model
	network   *networkmodel.Network
	costModel *costmodel.CostModel

	bw          []qp.Var
	bwInv       []qp.Var
	networkCost qp.Var

	state   state
	session *Session
}

// NewContext creates an uninitialized context.
func NewContext(name string) *Context {
	return &Context{qp: qp.NewModel(name)}
}

func (c *Context) expect(op string, allowed ...state) error {
	for _, s := range allowed {
		if c.state == s {
			return nil
		}
	}

	return errorf(c.state.String(), "usage error: cannot %s in state", op)
}

// Initialize attaches the network and the cost model. It allocates the
// bandwidth of every dimension (GB/s), its reciprocal, and the network cost.
func (c *Context) Initialize(
	network *networkmodel.Network,
	costModel *costmodel.CostModel,
) error {
	if err := c.expect("initialize context", uninitialized); err != nil {
		return err
	}

	if network == nil || costModel == nil {
		return errorf(nil, "network and cost model are required")
	}

	previous := costModel.Network()
	costModel.SetNetwork(network)

	m := qp.NewModel(c.qp.Name)
	dims := network.DimsCount()
	bw := m.AddVars(dims, 0, math.Inf(1), "bw")

	bwInv := make([]qp.Var, dims)
	for d := range bwInv {
		bwInv[d] = m.AddDerivedVar(fmt.Sprintf("bw_inv_%d", d), 0, math.Inf(1))
	}

	networkCost := m.AddDerivedVar("network_cost", 0, math.Inf(1))

	for d := range bw {
		product, err := bw[d].Expr().Mul(bwInv[d].Expr())
		if err != nil {
			costModel.SetNetwork(previous)
			return err
		}

		m.AddConstr(fmt.Sprintf("reciprocal_%d", d), product, qp.Equal, qp.Const(1))
	}

	cost, err := costModel.NetworkCost(bw)
	if err != nil {
		costModel.SetNetwork(previous)
		return err
	}

	m.AddConstr("network_cost", networkCost.Expr(), qp.Equal, cost)

	c.qp = m
	c.network = network
	c.costModel = costModel
	c.bw = bw
	c.bwInv = bwInv
	c.networkCost = networkCost
	c.state = contextInitialized

	klog.V(1).Infof("context %s initialized with %d dimensions", m.Name, dims)

	return nil
}

// ApplyConstraints lets each strategy constrain the bandwidth variables.
// Constraints must be applied before the objective is set.
func (c *Context) ApplyConstraints(strategies ...ConstraintStrategy) error {
	err := c.expect("apply constraints", contextInitialized, workloadInstantiated)
	if err != nil {
		return err
	}

	cp := c.qp.Checkpoint()
	for _, s := range strategies {
		if err := s.AddConstraints(c, c.Bandwidths()); err != nil {
			c.qp.Rollback(cp)
			return err
		}
	}

	return nil
}

// AddConstraint adds lhs (sense) rhs to the program. It is meant to be
// called by constraint strategies.
func (c *Context) AddConstraint(
	name string,
	lhs qp.Expr,
	sense qp.Sense,
	rhs qp.Expr,
) error {
	err := c.expect("add constraint", contextInitialized, workloadInstantiated)
	if err != nil {
		return err
	}

	for _, v := range lhs.Sub(rhs).Vars() {
		if int(v) >= c.qp.NumVars() {
			return errorf(name, "constraint uses a variable outside the context")
		}
	}

	c.qp.AddConstr(name, lhs, sense, rhs)

	return nil
}

// Network returns the attached network.
func (c *Context) Network() *networkmodel.Network {
	return c.network
}

// CostModel returns the attached cost model.
func (c *Context) CostModel() *costmodel.CostModel {
	return c.costModel
}

// DimsCount returns the number of network dimensions.
func (c *Context) DimsCount() int {
	return len(c.bw)
}

// Bandwidths returns the bandwidth variables, one per dimension.
func (c *Context) Bandwidths() []qp.Var {
	return append([]qp.Var(nil), c.bw...)
}

// BandwidthInverses returns the reciprocal bandwidth variables.
func (c *Context) BandwidthInverses() []qp.Var {
	return append([]qp.Var(nil), c.bwInv...)
}

// NetworkCost returns the network cost variable.
func (c *Context) NetworkCost() qp.Var {
	return c.networkCost
}

// Program returns the underlying program, for example to export it.
func (c *Context) Program() *qp.Model {
	return c.qp
}
