// Package traceplayer replays a workload on an event-driven simulator and
// measures how long one training iteration takes.
package traceplayer

import (
	"reflect"

	"github.com/sarchlab/libra"
	"github.com/sarchlab/libra/communicator"
	"github.com/sarchlab/libra/model"
	"github.com/sarchlab/libra/networkmodel"
	"github.com/sarchlab/libra/timemodel"
	"gitlab.com/akita/akita/v3/sim"
)

// Times of the workload are in ns and simulation times are in seconds.
const nsToSec = 1e-9

// A computeCompletionEvent is triggered when the compute of a phase is done.
type computeCompletionEvent struct {
	time    sim.VTimeInSec
	handler *NoOverlapPlayer
	step    int
}

// Time returns the time of the event.
func (e computeCompletionEvent) Time() sim.VTimeInSec {
	return e.time
}

// Handler returns the handler of the event.
func (e computeCompletionEvent) Handler() sim.Handler {
	return e.handler
}

// IsSecondary always returns false.
func (e computeCompletionEvent) IsSecondary() bool {
	return false
}

// A collectiveCompletionEvent is triggered when the collective of a phase is
// done.
type collectiveCompletionEvent struct {
	time    sim.VTimeInSec
	handler *NoOverlapPlayer
	step    int
}

// Time returns the time of the event.
func (e collectiveCompletionEvent) Time() sim.VTimeInSec {
	return e.time
}

// Handler returns the handler of the event.
func (e collectiveCompletionEvent) Handler() sim.Handler {
	return e.handler
}

// IsSecondary always returns false.
func (e collectiveCompletionEvent) IsSecondary() bool {
	return false
}

// A PhaseRecord tells when a phase ran.
type PhaseRecord struct {
	Step          model.Step
	Start         sim.VTimeInSec
	ComputeDone   sim.VTimeInSec
	CollectiveEnd sim.VTimeInSec
}

// A NoOverlapPlayer plays the phases of a workload one after the other, in
// the order of the no-overlap schedule. Each phase computes first and then
// runs its collective.
type NoOverlapPlayer struct {
	*sim.ComponentBase

	sim.TimeTeller
	sim.EventScheduler
	timeEstimator timemodel.TimeEstimator
	networkModel  networkmodel.NetworkModel

	steps       []model.Step
	computeTime []float64
	msgSizes    [][]float64

	current  int
	records  []PhaseRecord
	finished bool
}

// NewNoOverlapPlayer creates a new NoOverlapPlayer.
func NewNoOverlapPlayer(
	name string,
	tt sim.TimeTeller,
	es sim.EventScheduler,
	timeEstimator timemodel.TimeEstimator,
	networkModel networkmodel.NetworkModel,
) *NoOverlapPlayer {
	p := &NoOverlapPlayer{
		TimeTeller:     tt,
		EventScheduler: es,
		timeEstimator:  timeEstimator,
		networkModel:   networkModel,
	}

	p.ComponentBase = sim.NewComponentBase(name)

	return p
}

// SetWorkload sets the workload to play. Compute times are estimated up
// front.
func (p *NoOverlapPlayer) SetWorkload(
	w *libra.Workload,
	comm *communicator.Communicator,
) error {
	steps := model.NoOverlapOrder(w.LayersCount())
	computeTime := make([]float64, len(steps))
	msgSizes := make([][]float64, len(steps))

	for i, step := range steps {
		layer := w.Layer(step.Layer)

		out, err := p.timeEstimator.Estimate(timemodel.TimeEstimatorInput{
			LayerName:    layer.Name,
			LayerIndex:   step.Layer,
			Phase:        step.Phase,
			RecordedTime: layer.Phase(step.Phase).ComputeTime,
		})
		if err != nil {
			return err
		}

		computeTime[i] = out.Time
		msgSizes[i] = comm.PhaseMessageSizes(layer, step.Phase)
	}

	p.steps = steps
	p.computeTime = computeTime
	p.msgSizes = msgSizes
	p.current = 0
	p.records = nil
	p.finished = false

	return nil
}

// Start starts playing from the current time.
func (p *NoOverlapPlayer) Start() {
	p.playNext()
}

// Handle function of a NoOverlapPlayer handles events.
func (p *NoOverlapPlayer) Handle(e sim.Event) error {
	switch e := e.(type) {
	case computeCompletionEvent:
		p.completeCompute(e)
	case collectiveCompletionEvent:
		p.completeCollective(e)
	default:
		panic("NoOverlapPlayer cannot handle this event type " +
			reflect.TypeOf(e).String())
	}

	return nil
}

func (p *NoOverlapPlayer) playNext() {
	if p.current >= len(p.steps) {
		p.finished = true
		return
	}

	now := p.CurrentTime()
	p.records = append(p.records, PhaseRecord{
		Step:  p.steps[p.current],
		Start: now,
	})

	p.Schedule(computeCompletionEvent{
		time:    now + sim.VTimeInSec(p.computeTime[p.current]*nsToSec),
		handler: p,
		step:    p.current,
	})
}

func (p *NoOverlapPlayer) completeCompute(e computeCompletionEvent) {
	p.records[e.step].ComputeDone = e.time

	collTime := p.networkModel.CollectiveTime(p.msgSizes[e.step])

	p.Schedule(collectiveCompletionEvent{
		time:    e.time + sim.VTimeInSec(collTime*nsToSec),
		handler: p,
		step:    e.step,
	})
}

func (p *NoOverlapPlayer) completeCollective(e collectiveCompletionEvent) {
	p.records[e.step].CollectiveEnd = e.time
	p.current = e.step + 1
	p.playNext()
}

// Finished tells whether every phase has been played.
func (p *NoOverlapPlayer) Finished() bool {
	return p.finished
}

// Records returns when each played phase ran.
func (p *NoOverlapPlayer) Records() []PhaseRecord {
	return append([]PhaseRecord(nil), p.records...)
}

// Replay plays a workload on a serial engine with the given per-dimension
// bandwidths (GB/s) and returns the iteration time in ns.
func Replay(
	w *libra.Workload,
	comm *communicator.Communicator,
	bandwidths []float64,
	timeEstimator timemodel.TimeEstimator,
) (float64, error) {
	engine := sim.NewSerialEngine()
	player := NewNoOverlapPlayer("Player", engine, engine, timeEstimator,
		networkmodel.NewBottleneckModel(bandwidths))

	if err := player.SetWorkload(w, comm); err != nil {
		return 0, err
	}

	player.Start()

	if err := engine.Run(); err != nil {
		return 0, err
	}

	return float64(engine.CurrentTime()) / nsToSec, nil
}
