package config

import (
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sarchlab/libra/model"
	"github.com/sarchlab/libra/solver"
	"gopkg.in/yaml.v3"
)

// Defaults of a run configuration.
const (
	DefaultSchedule  = "no_overlap"
	DefaultObjective = "perf"
)

// A RunConfig describes one optimization run.
type RunConfig struct {
	Network      string `yaml:"network"`
	Workload     string `yaml:"workload"`
	CostModel    string `yaml:"cost_model"`
	Communicator string `yaml:"communicator"`

	Constraint ConstraintConfig `yaml:"constraint"`
	Schedule   string           `yaml:"schedule"`
	Objective  string           `yaml:"objective"`
	Solver     SolverConfig     `yaml:"solver"`
	Output     OutputConfig     `yaml:"output"`
}

// A ConstraintConfig is either the name of a preset or a list of linear rows
// over the bandwidths.
type ConstraintConfig struct {
	Preset string
	Rows   []RowConfig
}

// A RowConfig is one linear constraint, for example
//
//	{coefficients: [1, -1], relation: ">=", rhs: 0}
type RowConfig struct {
	Name         string    `yaml:"name"`
	Coefficients []float64 `yaml:"coefficients"`
	Relation     string    `yaml:"relation"`
	RHS          float64   `yaml:"rhs"`
}

// UnmarshalYAML accepts a scalar preset name or a sequence of rows.
func (c *ConstraintConfig) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		return value.Decode(&c.Preset)
	case yaml.SequenceNode:
		return value.Decode(&c.Rows)
	default:
		return errors.Errorf(
			"line %d: constraint should be a preset name or a list of rows",
			value.Line)
	}
}

// Strategy returns the constraint strategy, or nil if no constraint is
// configured.
func (c ConstraintConfig) Strategy() (model.ConstraintStrategy, error) {
	if c.Preset != "" {
		return model.ConstraintByName(c.Preset)
	}

	if len(c.Rows) == 0 {
		return nil, nil
	}

	rows := make(model.LinearConstraints, 0, len(c.Rows))
	for _, r := range c.Rows {
		sense, err := model.ParseSense(r.Relation)
		if err != nil {
			return nil, err
		}

		rows = append(rows, model.LinearRow{
			Name:         r.Name,
			Coefficients: r.Coefficients,
			Sense:        sense,
			RHS:          r.RHS,
		})
	}

	return rows, nil
}

// SolverConfig overrides the options of the default solver. Zero values keep
// the defaults.
type SolverConfig struct {
	MaxRounds      int     `yaml:"max_rounds"`
	MaxEvaluations int     `yaml:"max_evaluations"`
	Tolerance      float64 `yaml:"tolerance"`
}

// Solver creates the configured solver.
func (c SolverConfig) Solver() *solver.ReducedSpaceSolver {
	s := solver.NewReducedSpaceSolver()

	if c.MaxRounds > 0 {
		s.MaxRounds = c.MaxRounds
	}

	if c.MaxEvaluations > 0 {
		s.MaxEvaluations = c.MaxEvaluations
	}

	if c.Tolerance > 0 {
		s.Tolerance = c.Tolerance
	}

	return s
}

// OutputConfig selects the optional outputs of a run.
type OutputConfig struct {
	// LP is the path the program is exported to in LP format.
	LP string `yaml:"lp"`
	// Replay replays the solved schedule on the event-driven simulator.
	Replay bool `yaml:"replay"`
}

// LoadRunConfig loads a run configuration. Relative paths in the
// configuration are resolved against the directory of the file.
func LoadRunConfig(path string) (*RunConfig, error) {
	c := &RunConfig{}

	err := readYAML(path, c, errors.Errorf("config %s does not exist", path))
	if err != nil {
		return nil, err
	}

	c.setDefaults()
	c.resolvePaths(filepath.Dir(path))

	return c, nil
}

// NewRunConfig returns a configuration with the defaults set.
func NewRunConfig() *RunConfig {
	c := &RunConfig{}
	c.setDefaults()

	return c
}

func (c *RunConfig) setDefaults() {
	if c.Schedule == "" {
		c.Schedule = DefaultSchedule
	}

	if c.Objective == "" {
		c.Objective = DefaultObjective
	}
}

func (c *RunConfig) resolvePaths(dir string) {
	for _, p := range []*string{
		&c.Network, &c.Workload, &c.CostModel, &c.Communicator, &c.Output.LP,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

// Validate checks that every input is set.
func (c *RunConfig) Validate() error {
	inputs := []struct{ name, path string }{
		{"network", c.Network},
		{"workload", c.Workload},
		{"cost_model", c.CostModel},
		{"communicator", c.Communicator},
	}

	for _, in := range inputs {
		if in.path == "" {
			return errors.Errorf("%s path is not set", in.name)
		}
	}

	return nil
}
