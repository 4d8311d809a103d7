package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sarchlab/libra"
	"github.com/sarchlab/libra/communicator"
	"github.com/sarchlab/libra/config"
	"github.com/sarchlab/libra/costmodel"
	"github.com/sarchlab/libra/model"
	"github.com/sarchlab/libra/qp"
	"github.com/sarchlab/libra/solver"
	"github.com/sarchlab/libra/timemodel"
	"github.com/sarchlab/libra/traceplayer"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

var separator = strings.Repeat("=", 80)

// resolveConfig loads the run configuration, if any, and applies the flags
// the user set on top of it.
func resolveConfig(cmd *cobra.Command, opts *options) (*config.RunConfig, error) {
	cfg := config.NewRunConfig()

	if opts.config != "" {
		loaded, err := config.LoadRunConfig(opts.config)
		if err != nil {
			return nil, err
		}

		cfg = loaded
	}

	flags := cmd.Flags()
	overrides := []struct {
		flag  string
		value string
		dst   *string
	}{
		{"network", opts.network, &cfg.Network},
		{"workload", opts.workload, &cfg.Workload},
		{"cost-model", opts.costModel, &cfg.CostModel},
		{"communicator", opts.communicator, &cfg.Communicator},
		{"schedule", opts.schedule, &cfg.Schedule},
		{"objective", opts.objective, &cfg.Objective},
		{"lp-out", opts.lpOut, &cfg.Output.LP},
	}

	for _, o := range overrides {
		if flags.Changed(o.flag) {
			*o.dst = o.value
		}
	}

	if flags.Changed("constraint") {
		cfg.Constraint = config.ConstraintConfig{Preset: opts.constraint}
	}

	if flags.Changed("replay") {
		cfg.Output.Replay = opts.replay
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// A problem is a formulated but not yet solved optimization.
type problem struct {
	cfg          *config.RunConfig
	workload     *libra.Workload
	communicator *communicator.Communicator
	costModel    *costmodel.CostModel
	ctx          *model.Context
	session      *model.Session
}

func formulate(cfg *config.RunConfig) (*problem, error) {
	network, err := config.LoadNetwork(cfg.Network)
	if err != nil {
		return nil, err
	}

	workload, err := config.LoadWorkload(cfg.Workload)
	if err != nil {
		return nil, err
	}

	costModel, err := config.LoadCostModel(cfg.CostModel)
	if err != nil {
		return nil, err
	}

	comm, err := config.LoadCommunicator(cfg.Communicator)
	if err != nil {
		return nil, err
	}

	constraint, err := cfg.Constraint.Strategy()
	if err != nil {
		return nil, err
	}

	schedule, err := model.ScheduleByName(cfg.Schedule)
	if err != nil {
		return nil, err
	}

	objective, err := model.ParseObjective(cfg.Objective)
	if err != nil {
		return nil, err
	}

	ctx := model.NewContext("libra")
	if err := ctx.Initialize(network, costModel); err != nil {
		return nil, err
	}

	if constraint != nil {
		if err := ctx.ApplyConstraints(constraint); err != nil {
			return nil, err
		}
	}

	session, err := ctx.Instantiate(workload, comm, schedule)
	if err != nil {
		return nil, err
	}

	if err := session.SetObjective(objective); err != nil {
		return nil, err
	}

	return &problem{
		cfg:          cfg,
		workload:     workload,
		communicator: comm,
		costModel:    costModel,
		ctx:          ctx,
		session:      session,
	}, nil
}

func writeLP(path string, m *qp.Model) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		closeErr := f.Close()
		if err == nil && closeErr != nil {
			err = errors.Wrapf(closeErr, "close %s", path)
		}
	}()

	if err := qp.WriteLP(f, m); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}

	klog.V(1).Infof("program written to %s", path)

	return nil
}

func printHeader(w io.Writer) {
	fmt.Fprintln(w, separator)
	fmt.Fprintln(w, "LIBRA:")
	fmt.Fprintln(w, separator)
	fmt.Fprintln(w, "QP Optimization:")
}

func runOptimize(cmd *cobra.Command, opts *options) error {
	out := cmd.OutOrStdout()
	printHeader(out)

	cfg, err := resolveConfig(cmd, opts)
	if err != nil {
		return err
	}

	p, err := formulate(cfg)
	if err != nil {
		return err
	}

	if cfg.Output.LP != "" {
		if err := writeLP(cfg.Output.LP, p.ctx.Program()); err != nil {
			return err
		}
	}

	outcome, err := p.session.Solve(cmd.Context(), cfg.Solver.Solver())
	if err != nil {
		return err
	}

	fmt.Fprintln(out, separator)
	fmt.Fprintln(out, "LIBRA Optimization Result:")

	if outcome.Status != solver.Optimal {
		fmt.Fprintf(out, "Solver status: %s\n", outcome.Status)
	}

	if outcome.Bandwidths() == nil {
		return nil
	}

	fmt.Fprintln(out, model.FormatBandwidths(outcome.Bandwidths()))

	if opts.summary {
		summary, err := summarize(p, outcome)
		if err != nil {
			return err
		}

		fmt.Fprintln(out, summary)
	}

	if cfg.Output.Replay {
		if err := replay(out, p, outcome); err != nil {
			return err
		}
	}

	return nil
}

func replay(out io.Writer, p *problem, outcome *model.Outcome) error {
	replayed, err := traceplayer.Replay(p.workload, p.communicator,
		outcome.Bandwidths(), &timemodel.RecordedTimeEstimator{})
	if err != nil {
		return err
	}

	klog.Infof("end-to-end time: model %.4f ns, replay %.4f ns",
		outcome.EndToEndTime, replayed)
	fmt.Fprintf(out, "Replayed end-to-end time: %.2f ns\n", replayed)

	return nil
}

func runExport(cmd *cobra.Command, opts *options) error {
	cfg, err := resolveConfig(cmd, opts)
	if err != nil {
		return err
	}

	if cfg.Output.LP == "" {
		return errors.New("export-lp needs --lp-out or output.lp")
	}

	p, err := formulate(cfg)
	if err != nil {
		return err
	}

	return writeLP(cfg.Output.LP, p.ctx.Program())
}
