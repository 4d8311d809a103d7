package model

import (
	"fmt"
	"math"

	"github.com/sarchlab/libra"
	"github.com/sarchlab/libra/communicator"
	"github.com/sarchlab/libra/qp"
	"github.com/sarchlab/libra/timemodel"
	"k8s.io/klog/v2"
)

// A Session is a workload instantiated on a context.
type Session struct {
	ctx           *Context
	workload      *libra.Workload
	communicator  *communicator.Communicator
	schedule      ScheduleStrategy
	timeEstimator timemodel.TimeEstimator

	// Indexed by [layer][phase] and [layer][phase][dim].
	computeTime [][3]float64
	msgSizes    [][3][]float64
	dimTime     [][3][]qp.Var
	collTime    [][3]qp.Var

	e2e       qp.Expr
	objective Objective
}

// A SessionOption customizes a session.
type SessionOption func(s *Session)

// WithTimeEstimator sets the estimator of the phase compute times. By
// default the recorded compute time of each phase is used.
func WithTimeEstimator(e timemodel.TimeEstimator) SessionOption {
	return func(s *Session) {
		s.timeEstimator = e
	}
}

// Instantiate adds the communication-time variables and constraints of a
// workload and asks the schedule for the end-to-end time. A context hosts a
// single session.
func (c *Context) Instantiate(
	workload *libra.Workload,
	comm *communicator.Communicator,
	schedule ScheduleStrategy,
	opts ...SessionOption,
) (*Session, error) {
	if err := c.expect("instantiate workload", contextInitialized); err != nil {
		return nil, err
	}

	if workload == nil || comm == nil || schedule == nil {
		return nil, errorf(nil, "workload, communicator and schedule are required")
	}

	if err := comm.CheckDims(c.DimsCount()); err != nil {
		return nil, err
	}

	s := &Session{
		ctx:           c,
		workload:      workload,
		communicator:  comm,
		schedule:      schedule,
		timeEstimator: &timemodel.RecordedTimeEstimator{},
	}

	for _, opt := range opts {
		opt(s)
	}

	cp := c.qp.Checkpoint()

	if err := s.build(); err != nil {
		c.qp.Rollback(cp)
		return nil, err
	}

	c.session = s
	c.state = workloadInstantiated

	klog.V(1).Infof("workload with %d layers instantiated", workload.LayersCount())

	return s, nil
}

func (s *Session) build() error {
	layers := s.workload.LayersCount()
	s.computeTime = make([][3]float64, layers)
	s.msgSizes = make([][3][]float64, layers)
	s.dimTime = make([][3][]qp.Var, layers)
	s.collTime = make([][3]qp.Var, layers)

	for l := 0; l < layers; l++ {
		layer := s.workload.Layer(l)

		for _, kind := range libra.PhaseKinds {
			if err := s.buildPhase(l, layer, kind); err != nil {
				return err
			}
		}
	}

	e2e, err := s.schedule.EndToEndTime(s)
	if err != nil {
		return err
	}

	s.e2e = e2e

	return nil
}

func (s *Session) buildPhase(l int, layer libra.Layer, kind libra.PhaseKind) error {
	m := s.ctx.qp
	inf := math.Inf(1)

	out, err := s.timeEstimator.Estimate(timemodel.TimeEstimatorInput{
		LayerName:    layer.Name,
		LayerIndex:   l,
		Phase:        kind,
		RecordedTime: layer.Phase(kind).ComputeTime,
	})
	if err != nil {
		return err
	}

	s.computeTime[l][kind] = out.Time

	sizes := s.communicator.PhaseMessageSizes(layer, kind)
	s.msgSizes[l][kind] = sizes

	dimTime := make([]qp.Var, len(sizes))
	for d, size := range sizes {
		dimTime[d] = m.AddDerivedVar(
			fmt.Sprintf("dim_time_%d_%d_%d", l, kind, d), 0, inf)

		// bytes / (GB/s) = ns
		m.AddConstr(
			fmt.Sprintf("dim_time_%d_%d_%d", l, kind, d),
			dimTime[d].Expr(),
			qp.Equal,
			s.ctx.bwInv[d].Expr().Scale(size),
		)
	}

	s.dimTime[l][kind] = dimTime

	collTime := m.AddDerivedVar(fmt.Sprintf("coll_time_%d_%d", l, kind), 0, inf)
	m.AddMaxConstr(fmt.Sprintf("coll_time_%d_%d", l, kind), collTime, dimTime)
	s.collTime[l][kind] = collTime

	return nil
}

// Context returns the context the session belongs to.
func (s *Session) Context() *Context {
	return s.ctx
}

// Workload returns the instantiated workload.
func (s *Session) Workload() *libra.Workload {
	return s.workload
}

// Communicator returns the group sizes of the workload.
func (s *Session) Communicator() *communicator.Communicator {
	return s.communicator
}

// LayersCount returns the number of layers of the workload.
func (s *Session) LayersCount() int {
	return s.workload.LayersCount()
}

// ComputeTime returns the estimated compute time of a phase, in ns.
func (s *Session) ComputeTime(l int, kind libra.PhaseKind) float64 {
	return s.computeTime[l][kind]
}

// MessageSizes returns the per-dimension message sizes of a phase, in bytes.
func (s *Session) MessageSizes(l int, kind libra.PhaseKind) []float64 {
	return append([]float64(nil), s.msgSizes[l][kind]...)
}

// DimTime returns the variable of the communication time of a phase on
// dimension d, in ns.
func (s *Session) DimTime(l int, kind libra.PhaseKind, d int) qp.Var {
	return s.dimTime[l][kind][d]
}

// CollTime returns the variable of the collective time of a phase, the
// maximum of its per-dimension times.
func (s *Session) CollTime(l int, kind libra.PhaseKind) qp.Var {
	return s.collTime[l][kind]
}

// EndToEndTime returns the end-to-end time expression of the schedule.
func (s *Session) EndToEndTime() qp.Expr {
	return s.e2e
}
