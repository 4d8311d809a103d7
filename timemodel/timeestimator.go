// Package timemodel provides a performance model for the compute time of
// layer phases.
package timemodel

import (
	"github.com/pkg/errors"
	"github.com/sarchlab/libra"
)

// A TimeEstimatorInput represents the input of a time estimator.
type TimeEstimatorInput struct {
	LayerName  string
	LayerIndex int
	Phase      libra.PhaseKind
	// The compute time recorded in the workload, in ns.
	RecordedTime float64
}

// A TimeEstimatorOutput represents the output of a time estimator.
type TimeEstimatorOutput struct {
	// The estimated compute time in ns.
	Time float64
}

// TimeEstimator estimates the compute time of a layer phase.
type TimeEstimator interface {
	// Estimate estimates the compute time of a layer phase.
	Estimate(input TimeEstimatorInput) (TimeEstimatorOutput, error)
}

// A ConstantTimeEstimator returns the same compute time for every phase.
type ConstantTimeEstimator struct {
	Time float64
}

// Estimate returns the configured time.
func (e *ConstantTimeEstimator) Estimate(
	input TimeEstimatorInput,
) (TimeEstimatorOutput, error) {
	return TimeEstimatorOutput{
		Time: e.Time,
	}, nil
}

// A RecordedTimeEstimator estimates the compute time of a layer phase based
// on the recorded time.
type RecordedTimeEstimator struct{}

// Estimate returns the recorded time.
func (e *RecordedTimeEstimator) Estimate(
	input TimeEstimatorInput,
) (TimeEstimatorOutput, error) {
	return TimeEstimatorOutput{
		Time: input.RecordedTime,
	}, nil
}

// A ScaledTimeEstimator scales the recorded time, for example to model a
// faster NPU than the one the workload was profiled on.
type ScaledTimeEstimator struct {
	Factor float64
}

// Estimate returns the recorded time multiplied by the factor.
func (e *ScaledTimeEstimator) Estimate(
	input TimeEstimatorInput,
) (TimeEstimatorOutput, error) {
	if e.Factor < 0 {
		return TimeEstimatorOutput{}, errors.Errorf(
			"compute time scale should be >= 0, got %g", e.Factor)
	}

	return TimeEstimatorOutput{
		Time: input.RecordedTime * e.Factor,
	}, nil
}
