package timemodel

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/libra"
)

var _ = Describe("TimeEstimator", func() {
	input := TimeEstimatorInput{
		LayerName:    "conv1",
		LayerIndex:   0,
		Phase:        libra.InputGrad,
		RecordedTime: 200,
	}

	It("should return the recorded time", func() {
		out, err := (&RecordedTimeEstimator{}).Estimate(input)

		Expect(err).NotTo(HaveOccurred())
		Expect(out.Time).To(Equal(200.0))
	})

	It("should return a constant time", func() {
		out, err := (&ConstantTimeEstimator{Time: 7}).Estimate(input)

		Expect(err).NotTo(HaveOccurred())
		Expect(out.Time).To(Equal(7.0))
	})

	It("should scale the recorded time", func() {
		out, err := (&ScaledTimeEstimator{Factor: 0.5}).Estimate(input)

		Expect(err).NotTo(HaveOccurred())
		Expect(out.Time).To(Equal(100.0))
	})

	It("should reject a negative scale", func() {
		_, err := (&ScaledTimeEstimator{Factor: -1}).Estimate(input)

		Expect(err).To(HaveOccurred())
	})
})
