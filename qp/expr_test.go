package qp_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/libra/qp"
)

var _ = Describe("Expr", func() {
	var x, y, z qp.Var

	BeforeEach(func() {
		x, y, z = 0, 1, 2
	})

	It("should add and scale", func() {
		e := qp.Sum(x.Expr(), y.Expr().Scale(2), qp.Const(3)).Sub(x.Expr())

		Expect(e.Coef(x)).To(Equal(0.0))
		Expect(e.Coef(y)).To(Equal(2.0))
		Expect(e.Constant()).To(Equal(3.0))
		Expect(e.Vars()).To(Equal([]qp.Var{y}))
		Expect(e.Degree()).To(Equal(1))
	})

	It("should multiply affine expressions", func() {
		e, err := x.Expr().AddConst(1).Mul(y.Expr().Scale(2))

		Expect(err).NotTo(HaveOccurred())
		Expect(e.QuadCoef(y, x)).To(Equal(2.0))
		Expect(e.Coef(y)).To(Equal(2.0))
		Expect(e.Degree()).To(Equal(2))
		Expect(e.Eval([]float64{3, 5, 0})).To(Equal(40.0))
	})

	It("should refuse products above degree two", func() {
		q, err := x.Expr().Mul(y.Expr())
		Expect(err).NotTo(HaveOccurred())

		_, err = q.Mul(z.Expr())

		Expect(err).To(HaveOccurred())
	})

	It("should not share state between expressions", func() {
		a := x.Expr()
		b := a.Add(y.Expr())

		Expect(a.Vars()).To(Equal([]qp.Var{x}))
		Expect(b.Vars()).To(Equal([]qp.Var{x, y}))
	})

	It("should split an affine dependence on a variable", func() {
		q, _ := x.Expr().Mul(y.Expr())
		e := q.Add(z.Expr().Scale(3)).Add(y.Expr()).AddConst(-1)

		coef, rest, ok := e.Split(y)

		Expect(ok).To(BeTrue())
		Expect(coef.Coef(x)).To(Equal(1.0))
		Expect(coef.Constant()).To(Equal(1.0))
		Expect(rest.Vars()).To(Equal([]qp.Var{z}))
		Expect(rest.Constant()).To(Equal(-1.0))
	})

	It("should not split a square", func() {
		sq, _ := x.Expr().Mul(x.Expr())

		_, _, ok := sq.Split(x)

		Expect(ok).To(BeFalse())
	})
})
