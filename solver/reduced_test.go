package solver

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/libra/qp"
)

var inf = math.Inf(1)

// reciprocal adds a bandwidth variable and its derived reciprocal.
func reciprocal(m *qp.Model, name string) (bw, inv qp.Var) {
	bw = m.AddVar(name, 0, inf)
	inv = m.AddDerivedVar(name+"_inv", 0, inf)

	prod, err := bw.Expr().Mul(inv.Expr())
	Expect(err).NotTo(HaveOccurred())
	m.AddConstr("", prod, qp.Equal, qp.Const(1))

	return bw, inv
}

var _ = Describe("ReducedSpaceSolver", func() {
	var (
		ctx context.Context
		s   *ReducedSpaceSolver
		m   *qp.Model
	)

	BeforeEach(func() {
		ctx = context.Background()
		s = NewReducedSpaceSolver()
		m = qp.NewModel("test")
	})

	It("should evaluate a fully determined model", func() {
		bw, inv := reciprocal(m, "bw")
		m.AddConstr("", bw.Expr(), qp.Equal, qp.Const(500))
		m.SetObjective(inv.Expr().Scale(150), qp.Minimize)

		res, err := s.Solve(ctx, m)

		Expect(err).NotTo(HaveOccurred())
		Expect(res.Status).To(Equal(Optimal))
		Expect(res.Value(bw)).To(BeNumerically("~", 500, 1e-9))
		Expect(res.Value(bw) * res.Value(inv)).To(BeNumerically("~", 1, 1e-12))
		Expect(res.Objective).To(BeNumerically("~", 0.3, 1e-9))
	})

	It("should balance two dimensions under a max", func() {
		bw0, inv0 := reciprocal(m, "bw0")
		bw1, inv1 := reciprocal(m, "bw1")
		t0 := m.AddDerivedVar("t0", 0, inf)
		t1 := m.AddDerivedVar("t1", 0, inf)
		coll := m.AddDerivedVar("coll", 0, inf)
		m.AddConstr("", t0.Expr(), qp.Equal, inv0.Expr().Scale(100))
		m.AddConstr("", t1.Expr(), qp.Equal, inv1.Expr().Scale(100))
		m.AddMaxConstr("", coll, []qp.Var{t0, t1})
		m.AddConstr("", qp.SumVars([]qp.Var{bw0, bw1}), qp.Equal, qp.Const(100))
		m.SetObjective(coll.Expr(), qp.Minimize)

		res, err := s.Solve(ctx, m)

		Expect(err).NotTo(HaveOccurred())
		Expect(res.Status).To(Equal(Optimal))
		Expect(res.Value(bw0)).To(BeNumerically("~", 50, 0.5))
		Expect(res.Value(bw0) + res.Value(bw1)).To(BeNumerically("~", 100, 1e-6))
		Expect(res.Value(coll)).To(Equal(math.Max(res.Value(t0), res.Value(t1))))
		Expect(res.Value(bw1) * res.Value(inv1)).To(BeNumerically("~", 1, 1e-9))
	})

	It("should give more bandwidth to the busier dimension", func() {
		bw0, inv0 := reciprocal(m, "bw0")
		bw1, inv1 := reciprocal(m, "bw1")
		m.AddConstr("", qp.SumVars([]qp.Var{bw0, bw1}), qp.Equal, qp.Const(300))
		m.SetObjective(inv0.Expr().Scale(400).Add(inv1.Expr().Scale(100)), qp.Minimize)

		res, err := s.Solve(ctx, m)

		// 400/b0 + 100/(300-b0) is minimal at b0 = 200.
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Status).To(Equal(Optimal))
		Expect(res.Value(bw0)).To(BeNumerically("~", 200, 1))
	})

	It("should report inconsistent equalities as infeasible", func() {
		bw0, _ := reciprocal(m, "bw0")
		bw1, _ := reciprocal(m, "bw1")
		m.AddConstr("", qp.SumVars([]qp.Var{bw0, bw1}), qp.Equal, qp.Const(100))
		m.AddConstr("", qp.SumVars([]qp.Var{bw0, bw1}), qp.Equal, qp.Const(200))

		res, err := s.Solve(ctx, m)

		Expect(err).NotTo(HaveOccurred())
		Expect(res.Status).To(Equal(Infeasible))
	})

	It("should report empty inequality regions as infeasible", func() {
		bw, inv := reciprocal(m, "bw")
		m.AddConstr("", bw.Expr(), qp.LessEqual, qp.Const(-1))
		m.SetObjective(inv.Expr(), qp.Minimize)

		res, err := s.Solve(ctx, m)

		Expect(err).NotTo(HaveOccurred())
		Expect(res.Status).To(Equal(Infeasible))
	})

	It("should report a violated fixed point as infeasible", func() {
		bw, inv := reciprocal(m, "bw")
		m.AddConstr("", bw.Expr(), qp.Equal, qp.Const(10))
		m.AddConstr("", bw.Expr(), qp.LessEqual, qp.Const(5))
		m.SetObjective(inv.Expr(), qp.Minimize)

		res, err := s.Solve(ctx, m)

		Expect(err).NotTo(HaveOccurred())
		Expect(res.Status).To(Equal(Infeasible))
	})

	It("should stop when the context is cancelled", func() {
		bw0, inv0 := reciprocal(m, "bw0")
		bw1, _ := reciprocal(m, "bw1")
		m.AddConstr("", qp.SumVars([]qp.Var{bw0, bw1}), qp.Equal, qp.Const(100))
		m.SetObjective(inv0.Expr(), qp.Minimize)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := s.Solve(cancelled, m)

		Expect(err).To(MatchError(context.Canceled))
	})

	It("should reject an empty model", func() {
		_, err := s.Solve(ctx, m)

		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("presolve", func() {
	It("should define the latest derived variable of an equality", func() {
		m := qp.NewModel("test")
		bw := m.AddVar("bw", 0, inf)
		inv := m.AddDerivedVar("inv", 0, inf)
		t := m.AddDerivedVar("t", 0, inf)
		prod, _ := bw.Expr().Mul(inv.Expr())
		m.AddConstr("", prod, qp.Equal, qp.Const(1))
		m.AddConstr("", t.Expr(), qp.Equal, inv.Expr().Scale(3))

		p := presolve(m)

		Expect(p.decisions).To(Equal([]qp.Var{bw}))
		Expect(p.definitions).To(HaveLen(2))
		Expect(p.definitions[0].v).To(Equal(inv))
		Expect(p.definitions[1].v).To(Equal(t))
		Expect(p.residual).To(BeEmpty())

		x := []float64{4, 0, 0}
		p.complete(x)
		Expect(x).To(Equal([]float64{4, 0.25, 0.75}))
	})

	It("should order definitions by dependency", func() {
		m := qp.NewModel("test")
		bw := m.AddVar("bw", 0, inf)
		a := m.AddDerivedVar("a", 0, inf)
		b := m.AddDerivedVar("b", 0, inf)
		m.AddConstr("", b.Expr(), qp.Equal, a.Expr().Scale(2))
		m.AddConstr("", a.Expr(), qp.Equal, bw.Expr().AddConst(1))

		p := presolve(m)

		Expect(p.definitions[0].v).To(Equal(a))
		Expect(p.definitions[1].v).To(Equal(b))

		x := []float64{1, 0, 0}
		p.complete(x)
		Expect(x).To(Equal([]float64{1, 2, 4}))
	})

	It("should keep cyclic definitions as constraints", func() {
		m := qp.NewModel("test")
		a := m.AddDerivedVar("a", 0, inf)
		b := m.AddDerivedVar("b", 0, inf)
		m.AddConstr("", b.Expr(), qp.Equal, a.Expr().Scale(2))
		m.AddConstr("", a.Expr(), qp.Equal, b.Expr().AddConst(1))

		p := presolve(m)

		Expect(p.definitions).To(BeEmpty())
		Expect(p.decisions).To(ConsistOf(a, b))
		Expect(p.residual).To(HaveLen(2))
	})

	It("should keep constraints between decision variables", func() {
		m := qp.NewModel("test")
		x := m.AddVar("x", 0, inf)
		y := m.AddVar("y", 0, inf)
		m.AddConstr("", x.Expr(), qp.GreaterEqual, y.Expr())

		p := presolve(m)

		Expect(p.definitions).To(BeEmpty())
		Expect(p.residual).To(HaveLen(1))
	})
})
