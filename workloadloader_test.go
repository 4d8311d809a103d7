package libra

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("WorkloadLoader", func() {
	var (
		dir    string
		loader *WorkloadLoader
	)

	write := func(content string) {
		path := filepath.Join(dir, "workload.txt")
		Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
		loader = &WorkloadLoader{Path: path}
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("should load layers without a header", func() {
		write("conv1 -1 10 NONE 0 20 ALLREDUCE 100 30 allgather 64 5\n\n" +
			"fc -1 1 ALLTOALL 8 2 REDUCESCATTER 16 3 NONE 0 5\n")

		w, err := loader.Load()

		Expect(err).NotTo(HaveOccurred())
		Expect(w.LayersCount()).To(Equal(2))
		Expect(w.Layer(0).Name).To(Equal("conv1"))
		Expect(w.Layer(0).InputGrad().Comm).To(Equal(AllReduce))
		Expect(w.Layer(0).InputGrad().CommSize).To(Equal(100.0))
		Expect(w.Layer(0).WeightGrad().Comm).To(Equal(AllGather))
		Expect(w.Layer(1).Forward().Comm).To(Equal(AllToAll))
		Expect(w.Layer(1).Forward().ComputeTime).To(Equal(1.0))
	})

	It("should skip the ASTRA-sim header", func() {
		write("HYBRID_TRANSFORMER\n1\n" +
			"l0 -1 10 NONE 0 20 ALLREDUCE 100 30 NONE 0 5\n")

		w, err := loader.Load()

		Expect(err).NotTo(HaveOccurred())
		Expect(w.LayersCount()).To(Equal(1))
	})

	It("should reject a header that disagrees with the layer count", func() {
		write("DATA\n3\nl0 -1 10 NONE 0 20 ALLREDUCE 100 30 NONE 0 5\n")

		_, err := loader.Load()

		Expect(err).To(BeAssignableToTypeOf(&WorkloadError{}))
	})

	It("should reject lines with the wrong number of fields", func() {
		write("l0 -1 10 NONE 0 20 ALLREDUCE 100\n")

		_, err := loader.Load()

		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("ASTRA-sim"))
	})

	It("should reject unknown collectives", func() {
		write("l0 -1 10 BROADCAST 0 20 ALLREDUCE 100 30 NONE 0 5\n")

		_, err := loader.Load()

		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("BROADCAST"))
	})

	It("should reject negative sizes", func() {
		write("l0 -1 10 NONE 0 20 ALLREDUCE -100 30 NONE 0 5\n")

		_, err := loader.Load()

		Expect(err).To(BeAssignableToTypeOf(&WorkloadError{}))
	})

	It("should report a missing file as a workload error", func() {
		loader = &WorkloadLoader{Path: filepath.Join(dir, "missing.txt")}

		_, err := loader.Load()

		Expect(err).To(BeAssignableToTypeOf(&WorkloadError{}))
	})
})
