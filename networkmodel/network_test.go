package networkmodel

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Network", func() {
	It("should reject an NPU count of 1", func() {
		_, err := NewNetwork(
			[]BuildingBlock{Ring, Switch},
			[]int{4, 1},
			[]string{"A", "B"},
		)

		var nErr *Error
		Expect(err).To(BeAssignableToTypeOf(nErr))
		Expect(err.Error()).To(ContainSubstring("dim 2"))
	})

	It("should reject mismatching NPU counts", func() {
		_, err := NewNetwork(
			[]BuildingBlock{Ring, Switch},
			[]int{4},
			[]string{"A", "B"},
		)

		Expect(err).To(BeAssignableToTypeOf(&Error{}))
		Expect(err.Error()).To(ContainSubstring("NpusCount"))
	})

	It("should reject mismatching cost dimensions", func() {
		_, err := NewNetwork(
			[]BuildingBlock{Ring},
			[]int{4},
			[]string{"A", "B"},
		)

		Expect(err).To(BeAssignableToTypeOf(&Error{}))
		Expect(err.Error()).To(ContainSubstring("CostDimension"))
	})

	It("should reject an empty network", func() {
		_, err := NewNetwork(nil, nil, nil)

		Expect(err).To(HaveOccurred())
	})

	It("should parse topology names", func() {
		blocks, err := ParseBuildingBlocks([]string{"Ring", "FullyConnected", "Switch"})

		Expect(err).NotTo(HaveOccurred())
		Expect(blocks).To(Equal([]BuildingBlock{Ring, FullyConnected, Switch}))
	})

	It("should reject unknown topology names", func() {
		_, err := ParseBuildingBlock("Torus")

		Expect(err).To(BeAssignableToTypeOf(&Error{}))
		Expect(err.Error()).To(ContainSubstring("Torus"))
	})

	Context("with a 3D network", func() {
		var n *Network

		BeforeEach(func() {
			var err error
			n, err = NewNetwork(
				[]BuildingBlock{Ring, FullyConnected, Switch},
				[]int{4, 3, 2},
				[]string{"A", "B", "C"},
			)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should derive the totals", func() {
			Expect(n.DimsCount()).To(Equal(3))
			Expect(n.TotalNPUsCount()).To(Equal(24))
			Expect(n.CostDimension(1)).To(Equal("B"))
		})

		It("should count ring links in both directions", func() {
			Expect(n.LinksCount(0)).To(Equal(2 * 4))
			Expect(n.InstanceCount(0)).To(Equal(6))
			Expect(n.LinkBandwidthShare(0)).To(Equal(0.5))
		})

		It("should count fully-connected links", func() {
			Expect(n.LinksCount(1)).To(Equal(3 * 2))
			Expect(n.InstanceCount(1)).To(Equal(8))
			Expect(n.LinkBandwidthShare(1)).To(Equal(0.5))
		})

		It("should model one big switch up to the dimension", func() {
			Expect(n.LinksCount(2)).To(Equal(24))
			Expect(n.InstanceCount(2)).To(Equal(1))
			Expect(n.LinkBandwidthShare(2)).To(Equal(1.0))
		})

		It("should summarize every dimension", func() {
			dims := n.Dimensions()

			Expect(dims).To(HaveLen(3))
			Expect(dims[1].Block).To(Equal(FullyConnected))
			Expect(dims[1].Instances).To(Equal(8))
			Expect(dims[2].LinksPerInstance).To(Equal(24))
		})
	})

	It("should keep switch links and instances consistent", func() {
		n, err := NewNetwork(
			[]BuildingBlock{Switch, Switch},
			[]int{4, 8},
			[]string{"A", "B"},
		)
		Expect(err).NotTo(HaveOccurred())

		for d := 0; d < n.DimsCount(); d++ {
			Expect(n.LinksCount(d) * n.InstanceCount(d)).
				To(Equal(n.TotalNPUsCount()))
		}
		Expect(n.LinksCount(0)).To(Equal(4))
		Expect(n.InstanceCount(0)).To(Equal(8))
	})
})

var _ = Describe("BottleneckModel", func() {
	It("should take the slowest dimension", func() {
		m := NewBottleneckModel([]float64{100, 50})

		Expect(m.DimensionTimes([]float64{1000, 1000})).
			To(Equal([]float64{10, 20}))
		Expect(m.CollectiveTime([]float64{1000, 1000})).To(Equal(20.0))
	})

	It("should ignore dimensions without traffic", func() {
		m := NewBottleneckModel([]float64{0, 50})

		Expect(m.CollectiveTime([]float64{0, 100})).To(Equal(2.0))
		Expect(m.CollectiveTime(nil)).To(Equal(0.0))
	})
})
