// Command libra finds the per-dimension bandwidths of a multi-dimensional
// training network that minimize the iteration time of a workload, or its
// product with the network cost.
package main

import (
	goflag "flag"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/sarchlab/libra"
	"github.com/sarchlab/libra/communicator"
	"github.com/sarchlab/libra/costmodel"
	"github.com/sarchlab/libra/model"
	"github.com/sarchlab/libra/networkmodel"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
	"k8s.io/klog/v2"
)

type options struct {
	config       string
	network      string
	workload     string
	costModel    string
	communicator string
	constraint   string
	schedule     string
	objective    string
	lpOut        string
	replay       bool
	summary      bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "libra",
		Short:         "Optimize the bandwidth of each dimension of a training network",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptimize(cmd, opts)
		},
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Formulate and solve the bandwidth allocation program",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptimize(cmd, opts)
		},
	}

	exportCmd := &cobra.Command{
		Use:   "export-lp",
		Short: "Formulate the program and write it in LP format without solving",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, opts)
		},
	}

	fs := goflag.NewFlagSet("klog", goflag.ContinueOnError)
	klog.InitFlags(fs)
	rootCmd.PersistentFlags().AddGoFlagSet(fs)

	f := rootCmd.PersistentFlags()
	f.StringVar(&opts.config, "config", "",
		"The run configuration (libra.yaml). Flags override its values.")
	f.StringVar(&opts.network, "network", "", "The network description.")
	f.StringVar(&opts.workload, "workload", "", "The workload in ASTRA-sim 1.0 format.")
	f.StringVar(&opts.costModel, "cost-model", "", "The unit costs of the network.")
	f.StringVar(&opts.communicator, "communicator", "",
		"The group sizes of each phase per dimension.")
	f.StringVar(&opts.constraint, "constraint", "",
		fmt.Sprintf("A constraint preset, one of %v.", model.ConstraintNames()))
	f.StringVar(&opts.schedule, "schedule", "",
		fmt.Sprintf("The training schedule, one of %v.", model.ScheduleNames()))
	f.StringVar(&opts.objective, "objective", "",
		"The objective: perf or perf-per-cost.")
	f.StringVar(&opts.lpOut, "lp-out", "", "Write the program in LP format to this file.")
	f.BoolVar(&opts.replay, "replay", false,
		"Replay the solved schedule on the event-driven simulator.")
	f.BoolVar(&opts.summary, "summary", false, "Print a per-dimension summary.")

	rootCmd.AddCommand(runCmd, exportCmd)

	return rootCmd
}

// describeError prefixes an error with the kind of input that caused it.
func describeError(err error) string {
	var (
		networkErr      *networkmodel.Error
		workloadErr     *libra.WorkloadError
		costModelErr    *costmodel.Error
		communicatorErr *communicator.Error
		modelErr        *model.Error
	)

	switch {
	case errors.As(err, &networkErr):
		return "Network Error: " + err.Error()
	case errors.As(err, &workloadErr):
		return "Workload Error: " + err.Error()
	case errors.As(err, &costModelErr):
		return "Cost Model Error: " + err.Error()
	case errors.As(err, &communicatorErr):
		return "Communicator Error: " + err.Error()
	case errors.As(err, &modelErr):
		return "Model Error: " + err.Error()
	default:
		return "Error: " + err.Error()
	}
}

func main() {
	atexit.Register(klog.Flush)

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, describeError(err))
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
