package qp

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// WriteLP writes the model in the LP file format read by Gurobi and CPLEX.
// Quadratic terms go in bracketed sections and max constraints in the
// General Constraints section.
func WriteLP(w io.Writer, m *Model) error {
	bw := bufio.NewWriter(w)
	lw := &lpWriter{w: bw, m: m}

	lw.writeObjective()
	lw.writeConstraints()
	lw.writeBounds()
	lw.writeGeneralConstraints()
	lw.line("End")

	if lw.err != nil {
		return errors.Wrap(lw.err, "write LP model")
	}

	return errors.Wrap(bw.Flush(), "write LP model")
}

type lpWriter struct {
	w   *bufio.Writer
	m   *Model
	err error
}

func (lw *lpWriter) line(format string, args ...any) {
	if lw.err != nil {
		return
	}

	_, lw.err = fmt.Fprintf(lw.w, format+"\n", args...)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func term(coef float64, name string, first bool) string {
	sign := "+ "
	if coef < 0 {
		sign, coef = "- ", -coef
	}

	if first && sign == "+ " {
		sign = ""
	}

	if coef == 1 {
		return sign + name
	}

	return sign + formatNumber(coef) + " " + name
}

func signed(coef float64, first bool) string {
	switch {
	case first && coef < 0:
		return "- " + formatNumber(-coef)
	case first:
		return formatNumber(coef)
	case coef < 0:
		return "- " + formatNumber(-coef)
	default:
		return "+ " + formatNumber(coef)
	}
}

// terms renders the linear and quadratic parts of e. The quadratic part of
// an objective is written doubled and divided by 2, as the format requires.
func (lw *lpWriter) terms(e Expr, objective bool) string {
	var parts []string

	for _, v := range e.LinearTerms() {
		parts = append(parts, term(e.Coef(v), lw.m.VarName(v), len(parts) == 0))
	}

	if pairs := e.QuadTerms(); len(pairs) > 0 {
		factor := 1.0
		if objective {
			factor = 2
		}

		quad := lo.Map(pairs, func(p Pair, i int) string {
			return term(factor*e.quad[p], lw.quadTerm(p), i == 0)
		})

		section := "[ " + strings.Join(quad, " ") + " ]"
		if objective {
			section += " / 2"
		}

		if len(parts) > 0 {
			section = "+ " + section
		}

		parts = append(parts, section)
	}

	if len(parts) == 0 && lw.m.NumVars() > 0 {
		parts = append(parts, "0 "+lw.m.VarName(0))
	}

	return strings.Join(parts, " ")
}

func (lw *lpWriter) quadTerm(p Pair) string {
	if p.X == p.Y {
		return lw.m.VarName(p.X) + " ^ 2"
	}

	return lw.m.VarName(p.X) + " * " + lw.m.VarName(p.Y)
}

func (lw *lpWriter) writeObjective() {
	lw.line("\\ Model %s", lw.m.Name)

	obj, sense := lw.m.Objective()
	if sense == Maximize {
		lw.line("Maximize")
	} else {
		lw.line("Minimize")
	}

	constant := ""
	if obj.Constant() != 0 {
		constant = " " + signed(obj.Constant(), false)
	}

	lw.line(" obj: %s%s", lw.terms(obj, true), constant)
}

func (lw *lpWriter) writeConstraints() {
	lw.line("Subject To")

	for _, c := range lw.m.Constrs() {
		lw.line(" %s: %s %s %s",
			c.Name, lw.terms(c.Expr, false), c.Sense, formatNumber(c.RHS))
	}
}

func (lw *lpWriter) writeBounds() {
	lw.line("Bounds")

	for i := 0; i < lw.m.NumVars(); i++ {
		info := lw.m.VarInfo(Var(i))
		lb, ub := info.LB, info.UB

		switch {
		case math.IsInf(lb, -1) && math.IsInf(ub, 1):
			lw.line(" %s free", info.Name)
		case lb == 0 && math.IsInf(ub, 1):
		case math.IsInf(ub, 1):
			lw.line(" %s >= %s", info.Name, formatNumber(lb))
		case math.IsInf(lb, -1):
			lw.line(" -infinity <= %s <= %s", info.Name, formatNumber(ub))
		default:
			lw.line(" %s <= %s <= %s",
				formatNumber(lb), info.Name, formatNumber(ub))
		}
	}
}

func (lw *lpWriter) writeGeneralConstraints() {
	maxConstrs := lw.m.MaxConstrs()
	if len(maxConstrs) == 0 {
		return
	}

	lw.line("General Constraints")

	for _, c := range maxConstrs {
		args := lo.Map(c.Args, func(v Var, _ int) string {
			return lw.m.VarName(v)
		})

		lw.line(" %s: %s = MAX ( %s )",
			c.Name, lw.m.VarName(c.Result), strings.Join(args, " , "))
	}
}
