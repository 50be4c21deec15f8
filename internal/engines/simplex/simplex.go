// Package simplex solves linear treatment network models with a dense
// simplex method. It serves the concentration-fixed stages: the model is
// folded over its fixed variables, converted to standard form with shifts,
// splits and slacks, and handed to gonum's LP solver. Models whose active
// parts are not linear in the free variables are refused with
// StatusNonlinear.
package simplex

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-logr/logr"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/brineworks/treatment-network-optimizer/pkg/model"
	"github.com/brineworks/treatment-network-optimizer/pkg/solver"
)

const engineName = "simplex"

// Engine adapts gonum's simplex to the solver contract.
type Engine struct {
	log logr.Logger
}

// New creates a simplex engine.
func New(log logr.Logger) *Engine {
	return &Engine{log: log.WithName(engineName)}
}

// Name implements solver.Solver.
func (e *Engine) Name() string { return engineName }

// Solve implements solver.Solver.
func (e *Engine) Solve(ctx context.Context, m *model.Model, opts ...solver.Option) (solver.Result, error) {
	o := solver.NewOptions(opts...)
	start := time.Now()

	obj, err := m.ActiveObjective()
	if err != nil {
		return solver.Result{}, err
	}
	free := m.FreeVars()
	if len(free) == 0 {
		return solver.Result{}, fmt.Errorf("%s: model %q has no free variables", engineName, m.Name())
	}

	nonlinear := func(what string) solver.Result {
		return solver.Result{
			Status:  solver.StatusNonlinear,
			Runtime: time.Since(start),
			Engine:  engineName,
			Message: what + " has a product of free variables",
		}
	}
	if !obj.Expr().LinearInFree() {
		return nonlinear(fmt.Sprintf("objective %q", obj.Name())), nil
	}
	active := m.ActiveConstraints()
	for _, c := range active {
		if !c.Expr().LinearInFree() {
			return nonlinear(fmt.Sprintf("constraint %q", c.Key())), nil
		}
	}

	index := make(map[*model.Var]int, len(free))
	for i, v := range free {
		index[v] = i
	}

	t := newTableau(free)

	sign := 1.0
	if obj.Sense() == model.Maximize {
		sign = -1
	}
	objCols, objConst := t.fold(obj.Expr(), index)
	cost := make(map[int]float64, len(objCols))
	for col, a := range objCols {
		cost[col] = sign * a
	}
	objOffset := sign * objConst

	for _, c := range active {
		cols, konst := t.fold(c.Expr(), index)
		lo, hi := c.Bounds()
		if len(cols) == 0 {
			if konst < lo-o.Accuracy || konst > hi+o.Accuracy {
				return solver.Result{
					Status:  solver.StatusInfeasible,
					Runtime: time.Since(start),
					Engine:  engineName,
					Message: fmt.Sprintf("constraint %q unsatisfiable with all its variables fixed", c.Key()),
				}, nil
			}
			continue
		}
		switch {
		case c.Equality():
			t.addRow(cols, lo-konst)
		case math.IsInf(hi, 1):
			// cols >= lo: subtract a surplus.
			cols[t.addCol()] = -1
			t.addRow(cols, lo-konst)
		case math.IsInf(lo, -1):
			// cols <= hi: add a slack.
			cols[t.addCol()] = 1
			t.addRow(cols, hi-konst)
		default:
			// Ranged row: slack bounded above by the range width.
			s := t.addCol()
			cols[s] = 1
			t.addRow(cols, hi-konst)
			s2 := t.addCol()
			t.addRow(map[int]float64{s: 1, s2: 1}, hi-lo)
		}
	}

	if err := ctx.Err(); err != nil {
		return solver.Result{}, err
	}

	log := e.log.V(1)
	if o.Tee {
		log = e.log
	}
	log.Info("solve started", "model", m.Name(), "objective", obj.Name(), "sense", obj.Sense().String(),
		"vars", len(free), "rows", len(t.rows), "cols", t.ncols)

	z, x, lpErr := t.run(cost, o.Accuracy)
	if lpErr != nil {
		result := solver.Result{
			Status:  classify(lpErr),
			Runtime: time.Since(start),
			Engine:  engineName,
			Message: lpErr.Error(),
		}
		log.Info("solve finished", "model", m.Name(), "status", string(result.Status), "message", result.Message)
		return result, nil
	}

	t.writeBack(free, x)

	result := solver.Result{
		Status:    solver.StatusOptimal,
		Objective: sign * (z + objOffset),
		Runtime:   time.Since(start),
		Engine:    engineName,
	}
	log.Info("solve finished", "model", m.Name(), "status", string(result.Status),
		"objective", result.Objective, "runtime", result.Runtime)
	return result, nil
}

func classify(err error) solver.Status {
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return solver.StatusInfeasible
	case errors.Is(err, lp.ErrUnbounded):
		return solver.StatusUnbounded
	default:
		return solver.StatusFailed
	}
}

// Standard form requires nonnegative columns, so each free variable maps to
// columns by its bounds: finite lower bounds shift, upper-only bounds
// mirror, doubly unbounded variables split into a positive and a negative
// part. Two-sided bounds keep the shift and pin the width with a slack row.
const (
	kindShift = iota
	kindMirror
	kindSplit
)

type varCols struct {
	kind int
	col  int
	neg  int // split only
	off  float64
}

type tableau struct {
	vmap  []varCols
	ncols int
	rows  []map[int]float64
	rhs   []float64
}

func newTableau(free []*model.Var) *tableau {
	t := &tableau{vmap: make([]varCols, len(free))}
	for i, v := range free {
		lo, hi := v.Bounds()
		switch {
		case math.IsInf(lo, -1) && math.IsInf(hi, 1):
			t.vmap[i] = varCols{kind: kindSplit, col: t.addCol(), neg: t.addCol()}
		case math.IsInf(lo, -1):
			t.vmap[i] = varCols{kind: kindMirror, col: t.addCol(), off: hi}
		default:
			t.vmap[i] = varCols{kind: kindShift, col: t.addCol(), off: lo}
			if !math.IsInf(hi, 1) {
				s := t.addCol()
				t.addRow(map[int]float64{t.vmap[i].col: 1, s: 1}, hi-lo)
			}
		}
	}
	return t
}

func (t *tableau) addCol() int {
	t.ncols++
	return t.ncols - 1
}

func (t *tableau) addRow(cols map[int]float64, rhs float64) {
	t.rows = append(t.rows, cols)
	t.rhs = append(t.rhs, rhs)
}

// fold reduces an expression over the free variables to a sparse column
// vector plus a constant. Fixed variables and the bound shifts both land in
// the constant.
func (t *tableau) fold(e *model.Expr, index map[*model.Var]int) (map[int]float64, float64) {
	coefs := make([]float64, len(t.vmap))
	konst := e.Constant()
	for _, lt := range e.LinearTerms() {
		if i, ok := index[lt.Var]; ok {
			coefs[i] += lt.Coef
		} else {
			konst += lt.Coef * lt.Var.Value()
		}
	}
	for _, bt := range e.BilinearTerms() {
		xi, xFree := index[bt.X]
		yi, yFree := index[bt.Y]
		switch {
		case xFree && yFree:
			// Screened out by LinearInFree before folding.
			panic(fmt.Sprintf("simplex: bilinear term %s*%s over free variables", bt.X.Name(), bt.Y.Name()))
		case xFree:
			coefs[xi] += bt.Coef * bt.Y.Value()
		case yFree:
			coefs[yi] += bt.Coef * bt.X.Value()
		default:
			konst += bt.Coef * bt.X.Value() * bt.Y.Value()
		}
	}

	cols := make(map[int]float64)
	for i, a := range coefs {
		if a == 0 {
			continue
		}
		vm := t.vmap[i]
		switch vm.kind {
		case kindShift:
			cols[vm.col] += a
			konst += a * vm.off
		case kindMirror:
			cols[vm.col] -= a
			konst += a * vm.off
		case kindSplit:
			cols[vm.col] += a
			cols[vm.neg] -= a
		}
	}
	for col, a := range cols {
		if a == 0 {
			delete(cols, col)
		}
	}
	return cols, konst
}

// run materializes the tableau and solves min cost'x, Ax = b, x >= 0.
func (t *tableau) run(cost map[int]float64, tol float64) (float64, []float64, error) {
	c := make([]float64, t.ncols)
	for col, a := range cost {
		c[col] = a
	}

	if len(t.rows) == 0 {
		// Bound-only problem: columns optimize independently at zero
		// unless the cost makes one unbounded.
		for _, a := range c {
			if a < 0 {
				return 0, nil, lp.ErrUnbounded
			}
		}
		return 0, make([]float64, t.ncols), nil
	}

	a := mat.NewDense(len(t.rows), t.ncols, nil)
	b := make([]float64, len(t.rhs))
	copy(b, t.rhs)
	for r, cols := range t.rows {
		for col, v := range cols {
			a.Set(r, col, v)
		}
	}
	return lp.Simplex(c, a, b, tol, nil)
}

// writeBack maps the standard-form solution onto the model variables.
func (t *tableau) writeBack(free []*model.Var, x []float64) {
	for i, v := range free {
		vm := t.vmap[i]
		switch vm.kind {
		case kindShift:
			v.SetValue(vm.off + x[vm.col])
		case kindMirror:
			v.SetValue(vm.off - x[vm.col])
		case kindSplit:
			v.SetValue(x[vm.col] - x[vm.neg])
		}
	}
}
