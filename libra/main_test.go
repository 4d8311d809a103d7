package main

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/sarchlab/libra"
	"github.com/sarchlab/libra/model"
	"github.com/sarchlab/libra/networkmodel"
)

var _ = Describe("libra", func() {
	var (
		dir string
		out *bytes.Buffer
	)

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())

		return path
	}

	execute := func(args ...string) error {
		cmd := newRootCmd()
		cmd.SetOut(out)
		cmd.SetArgs(args)

		return cmd.Execute()
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		out = new(bytes.Buffer)

		write("network.yml", "Topology: [Ring]\nNpusCount: [4]\nCostDimension: [A]\n")
		write("cost.yml", "A: {Link: 1}\n")
		write("comm.yml", "Forward: [4]\nInputGrad: [4]\nWeightGrad: [4]\n")
		write("workload.txt", "fc -1 10 ALLREDUCE 100 5 NONE 0 5 NONE 0 1\n")
		write("libra.yaml", "network: network.yml\n"+
			"workload: workload.txt\n"+
			"cost_model: cost.yml\n"+
			"communicator: comm.yml\n"+
			"constraint: total_bw_500gbps\n")
	})

	It("should print the optimized bandwidths", func() {
		err := execute("run", "--config", filepath.Join(dir, "libra.yaml"), "--summary")

		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).To(HavePrefix(separator + "\nLIBRA:\n"))
		Expect(out.String()).To(ContainSubstring(
			"LIBRA Optimization Result:\n500.00\n"))
		Expect(out.String()).To(ContainSubstring("End-to-end time: 20.30 ns"))
	})

	It("should take inputs from flags", func() {
		err := execute(
			"--network", filepath.Join(dir, "network.yml"),
			"--workload", filepath.Join(dir, "workload.txt"),
			"--cost-model", filepath.Join(dir, "cost.yml"),
			"--communicator", filepath.Join(dir, "comm.yml"),
			"--constraint", "total_bw_500gbps",
			"--objective", "perf-per-cost",
			"--replay",
		)

		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).To(ContainSubstring("500.00\n"))
		Expect(out.String()).To(ContainSubstring("Replayed end-to-end time: 20.30 ns"))
	})

	It("should export the program", func() {
		lp := filepath.Join(dir, "libra.lp")

		err := execute("export-lp", "--config", filepath.Join(dir, "libra.yaml"),
			"--lp-out", lp)

		Expect(err).NotTo(HaveOccurred())
		content, err := os.ReadFile(lp)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(content)).To(HavePrefix("\\ Model libra\nMinimize\n"))
		Expect(string(content)).To(ContainSubstring(" total_bw: bw_0 = 500\n"))
		Expect(string(content)).To(ContainSubstring("General Constraints\n"))
	})

	It("should report input errors by kind", func() {
		err := execute("--config", filepath.Join(dir, "libra.yaml"),
			"--network", filepath.Join(dir, "missing.yml"))

		Expect(describeError(err)).To(HavePrefix("Network Error: "))
	})

	It("should report an unknown objective", func() {
		err := execute("--config", filepath.Join(dir, "libra.yaml"),
			"--objective", "cheapest")

		Expect(describeError(err)).To(HavePrefix("Model Error: "))
	})

	It("should describe wrapped errors", func() {
		err := errors.Wrap(&libra.WorkloadError{Msg: "bad layer"}, "load")
		Expect(describeError(err)).To(Equal("Workload Error: load: bad layer"))

		err = &networkmodel.Error{Msg: "NpusCount at dim 1 should be larger than 1", Value: 1}
		Expect(describeError(err)).To(Equal(
			"Network Error: NpusCount at dim 1 should be larger than 1: 1"))

		Expect(describeError(&model.Error{Msg: "usage error"})).
			To(Equal("Model Error: usage error"))
		Expect(describeError(errors.New("boom"))).To(Equal("Error: boom"))
	})
})
