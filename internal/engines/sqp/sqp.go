// Package sqp solves treatment network models with the SLSQP algorithm.
// It is the engine for the bilinear stages: equality and inequality
// constraints are presented with analytic gradients assembled from the
// model's linear and bilinear terms.
package sqp

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/curioloop/optimizer/slsqp"
	"github.com/go-logr/logr"

	"github.com/brineworks/treatment-network-optimizer/pkg/model"
	"github.com/brineworks/treatment-network-optimizer/pkg/solver"
)

const engineName = "sqp"

// Engine adapts the SLSQP optimizer to the solver contract.
type Engine struct {
	log logr.Logger
}

// New creates an SQP engine.
func New(log logr.Logger) *Engine {
	return &Engine{log: log.WithName(engineName)}
}

// Name implements solver.Solver.
func (e *Engine) Name() string { return engineName }

// Solve implements solver.Solver. The model's free variables form the
// iterate, starting from their current values projected onto their bounds;
// the solution is written back on return, whatever the termination status.
// When the context or the TimeLimit option expires first, Solve returns the
// context's error and writes nothing back.
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

	index := make(map[*model.Var]int, len(free))
	bounds := make([]slsqp.Bound, len(free))
	x0 := make([]float64, len(free))
	for i, v := range free {
		index[v] = i
		lo, hi := v.Bounds()
		bounds[i] = slsqp.Bound{Lower: lo, Upper: hi}
		x0[i] = math.Min(math.Max(v.Value(), lo), hi)
	}

	sign := 1.0
	if obj.Sense() == model.Maximize {
		sign = -1
	}

	var eq, neq []slsqp.Evaluation
	active := m.ActiveConstraints()
	for _, c := range active {
		lo, hi := c.Bounds()
		switch {
		case c.Equality():
			eq = append(eq, evaluation(c.Expr(), 1, -lo, index))
		default:
			if !math.IsInf(lo, -1) {
				neq = append(neq, evaluation(c.Expr(), 1, -lo, index))
			}
			if !math.IsInf(hi, 1) {
				neq = append(neq, evaluation(c.Expr(), -1, hi, index))
			}
		}
	}

	problem := &slsqp.Problem{
		N: len(free),
		Stop: slsqp.Termination{
			Accuracy:      o.Accuracy,
			MaxIterations: o.MaxIterations,
		},
		Object:  evaluation(obj.Expr(), sign, 0, index),
		EqCons:  eq,
		NeqCons: neq,
		Bounds:  bounds,
	}
	optimizer, err := problem.New()
	if err != nil {
		return solver.Result{}, fmt.Errorf("%s: configure problem: %w", engineName, err)
	}

	if err := ctx.Err(); err != nil {
		return solver.Result{}, err
	}
	if o.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.TimeLimit)
		defer cancel()
	}

	log := e.log.V(1)
	if o.Tee {
		log = e.log
	}
	log.Info("solve started", "model", m.Name(), "objective", obj.Name(), "sense", obj.Sense().String(),
		"vars", len(free), "equalities", len(eq), "inequalities", len(neq))

	// Fit has no cancellation hook. A solve that outlives the context keeps
	// running in the background and its result is discarded.
	done := make(chan *slsqp.Result, 1)
	go func() { done <- optimizer.Fit(x0, optimizer.Init()) }()
	var res *slsqp.Result
	select {
	case res = <-done:
	case <-ctx.Done():
		return solver.Result{}, fmt.Errorf("%s: %w", engineName, ctx.Err())
	}

	for i, v := range free {
		v.SetValue(res.X[i])
	}

	status, msg := classify(res, o.MaxIterations)
	result := solver.Result{
		Status:     status,
		Objective:  sign * res.F,
		Iterations: res.NumIter,
		Runtime:    time.Since(start),
		Engine:     engineName,
		Message:    msg,
	}
	log.Info("solve finished", "model", m.Name(), "status", string(status),
		"objective", result.Objective, "iterations", result.Iterations, "runtime", result.Runtime)
	return result, nil
}

// evaluation builds an SLSQP evaluation for sign*expr + shift. With g nil it
// returns the value; otherwise it fills g with the dense gradient over the
// free variables. Fixed variables contribute their pinned values.
func evaluation(e *model.Expr, sign, shift float64, index map[*model.Var]int) slsqp.Evaluation {
	constant := e.Constant()
	lin := e.LinearTerms()
	bil := e.BilinearTerms()
	return func(x []float64, g []float64) float64 {
		if g != nil {
			// The library reuses the gradient buffer between
			// evaluations, so clear it before accumulating.
			for i := range g {
				g[i] = 0
			}
			for _, t := range lin {
				if i, ok := index[t.Var]; ok {
					g[i] += sign * t.Coef
				}
			}
			for _, t := range bil {
				xv := valueOf(t.X, x, index)
				yv := valueOf(t.Y, x, index)
				if i, ok := index[t.X]; ok {
					g[i] += sign * t.Coef * yv
				}
				if i, ok := index[t.Y]; ok {
					g[i] += sign * t.Coef * xv
				}
			}
		}
		f := constant
		for _, t := range lin {
			f += t.Coef * valueOf(t.Var, x, index)
		}
		for _, t := range bil {
			f += t.Coef * valueOf(t.X, x, index) * valueOf(t.Y, x, index)
		}
		return sign*f + shift
	}
}

func valueOf(v *model.Var, x []float64, index map[*model.Var]int) float64 {
	if i, ok := index[v]; ok {
		return x[i]
	}
	return v.Value()
}

func classify(res *slsqp.Result, maxIter int) (solver.Status, string) {
	switch res.Status {
	case slsqp.OK:
		return solver.StatusOptimal, ""
	case slsqp.SQPExceedMaxIter:
		return solver.StatusIterationLimit, fmt.Sprintf("exceeded %d major iterations", maxIter)
	case slsqp.NNLSExceedMaxIter:
		return solver.StatusIterationLimit, "NNLS subproblem exceeded its iteration limit"
	case slsqp.ConsIncompatible:
		return solver.StatusInfeasible, "inequality constraints incompatible"
	case slsqp.BadArgument:
		return solver.StatusFailed, "evaluation panic or dimension mismatch"
	case slsqp.LSISingularE:
		return solver.StatusFailed, "singular matrix E in LSI subproblem"
	case slsqp.LSEISingularC:
		return solver.StatusFailed, "singular matrix C in LSEI subproblem"
	case slsqp.HFTIRankDefect:
		return solver.StatusFailed, "rank-deficient equality constraints"
	case slsqp.SearchNotDescent:
		return solver.StatusFailed, "line search found no descent direction"
	default:
		return solver.StatusFailed, fmt.Sprintf("unexpected termination mode %d", res.Status)
	}
}
