package model

import (
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/sarchlab/libra"
	"github.com/sarchlab/libra/qp"
)

// A ScheduleStrategy tells how compute and communication of the phases are
// ordered and returns the resulting end-to-end time.
type ScheduleStrategy interface {
	EndToEndTime(s *Session) (qp.Expr, error)
}

// NoOverlap runs every phase to completion before the next one starts. The
// forward pass visits the layers in order and the backward pass visits them
// in reverse, running the input-gradient phase before the weight-gradient
// phase of each layer.
type NoOverlap struct{}

// EndToEndTime returns the sum of all compute and collective times.
func (NoOverlap) EndToEndTime(s *Session) (qp.Expr, error) {
	e2e := qp.Const(0)

	for _, step := range NoOverlapOrder(s.LayersCount()) {
		e2e = e2e.
			AddConst(s.ComputeTime(step.Layer, step.Phase)).
			Add(s.CollTime(step.Layer, step.Phase).Expr())
	}

	return e2e, nil
}

// A Step is one phase of one layer.
type Step struct {
	Layer int
	Phase libra.PhaseKind
}

// NoOverlapOrder returns the order in which NoOverlap runs the phases of a
// workload with the given number of layers.
func NoOverlapOrder(layers int) []Step {
	steps := make([]Step, 0, 3*layers)

	for l := 0; l < layers; l++ {
		steps = append(steps, Step{Layer: l, Phase: libra.Forward})
	}

	for l := layers - 1; l >= 0; l-- {
		steps = append(steps,
			Step{Layer: l, Phase: libra.InputGrad},
			Step{Layer: l, Phase: libra.WeightGrad},
		)
	}

	return steps
}

var schedules = map[string]func() ScheduleStrategy{
	"no_overlap": func() ScheduleStrategy { return NoOverlap{} },
}

// ScheduleByName returns a built-in schedule.
func ScheduleByName(name string) (ScheduleStrategy, error) {
	create, ok := schedules[strings.TrimSpace(name)]
	if !ok {
		return nil, errorf(name, "not a valid schedule, expected one of %v",
			ScheduleNames())
	}

	return create(), nil
}

// ScheduleNames lists the built-in schedules.
func ScheduleNames() []string {
	names := lo.Keys(schedules)
	sort.Strings(names)

	return names
}
