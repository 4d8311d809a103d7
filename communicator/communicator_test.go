package communicator

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/libra"
)

var _ = Describe("Communicator", func() {
	It("should reject lists of different lengths", func() {
		_, err := NewFromInts([]int{4, 2}, []int{4, 2}, []int{4})

		var cErr *Error
		Expect(err).To(BeAssignableToTypeOf(cErr))
		Expect(err.Error()).To(ContainSubstring("length mismatches"))
	})

	It("should reject a forward list of a different length", func() {
		_, err := NewFromInts([]int{4}, []int{4, 2}, []int{4, 2})

		Expect(err).To(BeAssignableToTypeOf(&Error{}))
	})

	It("should reject a zero group size", func() {
		_, err := NewFromInts([]int{0}, []int{4}, []int{4})

		Expect(err).To(BeAssignableToTypeOf(&Error{}))
	})

	It("should reject a non-positive used group", func() {
		groups := []GroupSize{Group(0), Group(-2)}

		_, err := New(groups, groups, groups)

		Expect(err).To(BeAssignableToTypeOf(&Error{}))
		Expect(err.Error()).To(ContainSubstring("dim 1"))
	})

	It("should mark negative entries as unused", func() {
		c, err := NewFromInts([]int{4, -1}, []int{-3, 2}, []int{4, 2})
		Expect(err).NotTo(HaveOccurred())

		fwd := c.For(libra.Forward)
		_, used := fwd[1].Size()
		Expect(used).To(BeFalse())
		Expect(fwd[1].Int()).To(Equal(-1))
		Expect(c.For(libra.InputGrad)[0]).To(Equal(Unused()))
		Expect(c.For(libra.WeightGrad)[1]).To(Equal(Group(2)))
	})

	It("should check the number of dimensions", func() {
		c, err := NewFromInts([]int{4, 2}, []int{4, 2}, []int{4, 2})
		Expect(err).NotTo(HaveOccurred())

		Expect(c.CheckDims(2)).To(Succeed())
		Expect(c.CheckDims(3)).To(BeAssignableToTypeOf(&Error{}))
	})
})

var _ = Describe("MessageSizes", func() {
	phase := func(comm libra.Collective, size float64) libra.Phase {
		p, err := libra.NewPhase(0, comm, size)
		Expect(err).NotTo(HaveOccurred())
		return p
	}

	It("should split an all-reduce on a single ring", func() {
		sizes := MessageSizes(phase(libra.AllReduce, 100), []GroupSize{Group(4)})

		Expect(sizes).To(Equal([]float64{150}))
	})

	It("should shrink the all-reduce chunk across dimensions", func() {
		sizes := MessageSizes(phase(libra.AllReduce, 120),
			[]GroupSize{Group(4), Group(3)})

		Expect(sizes).To(Equal([]float64{180, 40}))
	})

	It("should shrink the reduce-scatter chunk across dimensions", func() {
		sizes := MessageSizes(phase(libra.ReduceScatter, 120),
			[]GroupSize{Group(4), Group(3)})

		Expect(sizes).To(Equal([]float64{90, 20}))
	})

	It("should grow the all-gather chunk in reverse order", func() {
		sizes := MessageSizes(phase(libra.AllGather, 10),
			[]GroupSize{Group(2), Group(3)})

		Expect(sizes).To(Equal([]float64{30, 20}))
	})

	It("should keep the all-to-all size on every dimension", func() {
		sizes := MessageSizes(phase(libra.AllToAll, 120),
			[]GroupSize{Group(4), Group(3)})

		Expect(sizes).To(Equal([]float64{90, 80}))
	})

	It("should not move anything without a collective", func() {
		sizes := MessageSizes(phase(libra.NoComm, 120),
			[]GroupSize{Group(4), Group(3)})

		Expect(sizes).To(Equal([]float64{0, 0}))
	})

	It("should skip unused dimensions", func() {
		sizes := MessageSizes(phase(libra.AllReduce, 120),
			[]GroupSize{Unused(), Group(4)})

		Expect(sizes).To(Equal([]float64{0, 180}))
	})

	It("should read the group sizes of the phase kind", func() {
		c, err := NewFromInts([]int{4}, []int{-1}, []int{2})
		Expect(err).NotTo(HaveOccurred())
		layer := libra.NewLayer("l",
			phase(libra.AllReduce, 100),
			phase(libra.AllReduce, 100),
			phase(libra.AllReduce, 100))

		Expect(c.PhaseMessageSizes(layer, libra.Forward)).To(Equal([]float64{150}))
		Expect(c.PhaseMessageSizes(layer, libra.InputGrad)).To(Equal([]float64{0}))
		Expect(c.PhaseMessageSizes(layer, libra.WeightGrad)).To(Equal([]float64{100}))
	})
})
