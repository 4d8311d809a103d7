package solver

import (
	"math"

	"github.com/pkg/errors"
	"github.com/sarchlab/libra/qp"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

var errInconsistent = errors.New("linear equalities are inconsistent")

// A linearSystem holds the affine constraints over the decision variables:
// A x = b and G x <= h.
type linearSystem struct {
	n    int
	a    [][]float64
	b    []float64
	g    [][]float64
	h    []float64
	rest []qp.Constr
}

func newLinearSystem(p *presolved) *linearSystem {
	index := make(map[qp.Var]int, len(p.decisions))
	for i, v := range p.decisions {
		index[v] = i
	}

	s := &linearSystem{n: len(p.decisions)}

	for _, c := range p.residual {
		if !p.isDecisionLinear(c, index) {
			s.rest = append(s.rest, c)
			continue
		}

		row := make([]float64, s.n)
		for _, v := range c.Expr.LinearTerms() {
			row[index[v]] = c.Expr.Coef(v)
		}

		switch c.Sense {
		case qp.Equal:
			s.a = append(s.a, row)
			s.b = append(s.b, c.RHS)
		case qp.LessEqual:
			s.g = append(s.g, row)
			s.h = append(s.h, c.RHS)
		case qp.GreaterEqual:
			floats.Scale(-1, row)
			s.g = append(s.g, row)
			s.h = append(s.h, -c.RHS)
		}
	}

	for i, v := range p.decisions {
		info := p.model.VarInfo(v)

		if !math.IsInf(info.LB, -1) {
			row := make([]float64, s.n)
			row[i] = -1
			s.g = append(s.g, row)
			s.h = append(s.h, -info.LB)
		}

		if !math.IsInf(info.UB, 1) {
			row := make([]float64, s.n)
			row[i] = 1
			s.g = append(s.g, row)
			s.h = append(s.h, info.UB)
		}
	}

	return s
}

func dense(rows [][]float64, cols int) *mat.Dense {
	m := mat.NewDense(len(rows), cols, nil)
	for i, row := range rows {
		m.SetRow(i, row)
	}

	return m
}

// reduce eliminates the equalities: every solution is x0 + N z. N is nil when
// the equalities leave no freedom.
func (s *linearSystem) reduce(tol float64) (x0 []float64, basis *mat.Dense, err error) {
	x0 = make([]float64, s.n)

	if len(s.a) == 0 {
		basis = mat.NewDense(s.n, s.n, nil)
		for i := 0; i < s.n; i++ {
			basis.Set(i, i, 1)
		}

		return x0, basis, nil
	}

	a := dense(s.a, s.n)

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFull) {
		return nil, nil, errors.New("SVD of the equality constraints failed")
	}

	rank := svd.Rank(1e-12)
	if rank > 0 {
		var sol mat.VecDense
		svd.SolveVecTo(&sol, mat.NewVecDense(len(s.b), s.b), rank)
		copy(x0, sol.RawVector().Data)
	}

	residual := make([]float64, len(s.b))
	for i, row := range s.a {
		residual[i] = floats.Dot(row, x0) - s.b[i]
	}

	if floats.Norm(residual, math.Inf(1)) > tol*(1+floats.Norm(s.b, math.Inf(1))) {
		return nil, nil, errInconsistent
	}

	if rank == s.n {
		return x0, nil, nil
	}

	var v mat.Dense
	svd.VTo(&v)
	basis = mat.DenseCopyOf(v.Slice(0, s.n, rank, s.n))

	return x0, basis, nil
}

// reducedInequalities returns G N and h - G x0.
func (s *linearSystem) reducedInequalities(
	x0 []float64,
	basis *mat.Dense,
) (gz [][]float64, hz []float64) {
	_, k := basis.Dims()
	for i, row := range s.g {
		reduced := make([]float64, k)
		for j := 0; j < k; j++ {
			reduced[j] = floats.Dot(row, mat.Col(nil, j, basis))
		}

		gz = append(gz, reduced)
		hz = append(hz, s.h[i]-floats.Dot(row, x0))
	}

	return gz, hz
}

// interiorPoint finds z maximizing the smallest slack t of gz z <= hz, with t
// capped to keep the problem bounded. It returns the point and its slack.
func interiorPoint(gz [][]float64, hz []float64, k int) ([]float64, float64, error) {
	if len(gz) == 0 {
		return make([]float64, k), math.Inf(1), nil
	}

	capT := 1 + floats.Norm(hz, math.Inf(1))
	nv := k + 1

	rows := make([][]float64, 0, len(gz)+1)
	h := make([]float64, 0, len(gz)+1)
	for i, row := range gz {
		rows = append(rows, append(append([]float64(nil), row...), 1))
		h = append(h, hz[i])
	}

	capRow := make([]float64, nv)
	capRow[k] = 1
	rows = append(rows, capRow)
	h = append(h, capT)

	c := make([]float64, nv)
	c[k] = -1

	cStd, aStd, bStd := lp.Convert(c, dense(rows, nv), h, nil, nil)

	cols, xStd, err := simplexDroppingZeroColumns(cStd, aStd, bStd)
	if err != nil {
		return nil, 0, err
	}

	full := make([]float64, len(cStd))
	for i, col := range cols {
		full[col] = xStd[i]
	}

	y := make([]float64, nv)
	for j := range y {
		y[j] = full[j] - full[nv+j]
	}

	return y[:k], y[k], nil
}

// simplexDroppingZeroColumns runs the simplex method on the columns of a that
// are not identically zero and returns the kept column indices with their
// values.
func simplexDroppingZeroColumns(
	c []float64,
	a *mat.Dense,
	b []float64,
) ([]int, []float64, error) {
	rows, cols := a.Dims()

	var kept []int
	for j := 0; j < cols; j++ {
		if floats.Norm(mat.Col(nil, j, a), math.Inf(1)) > 0 {
			kept = append(kept, j)
		}
	}

	compact := mat.NewDense(rows, len(kept), nil)
	cCompact := make([]float64, len(kept))
	for i, j := range kept {
		compact.SetCol(i, mat.Col(nil, j, a))
		cCompact[i] = c[j]
	}

	_, x, err := lp.Simplex(cCompact, compact, b, 0, nil)
	if err != nil {
		return nil, nil, errors.Wrap(err, "find an interior point")
	}

	return kept, x, nil
}
