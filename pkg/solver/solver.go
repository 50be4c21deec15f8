package solver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brineworks/treatment-network-optimizer/pkg/model"
)

// Status describes how a solve terminated.
type Status string

const (
	// StatusOptimal means the engine proved optimality to its tolerance.
	StatusOptimal Status = "optimal"
	// StatusInfeasible means no point satisfies the active constraints.
	StatusInfeasible Status = "infeasible"
	// StatusUnbounded means the active objective can improve without limit.
	StatusUnbounded Status = "unbounded"
	// StatusIterationLimit means the engine hit its iteration budget first.
	StatusIterationLimit Status = "iteration_limit"
	// StatusNonlinear means a linear engine was handed a model whose active
	// parts are not linear in the free variables.
	StatusNonlinear Status = "nonlinear"
	// StatusFailed covers engine-specific breakdowns, detailed in Message.
	StatusFailed Status = "failed"
)

// ErrNotOptimal is returned by AssertOptimal for any non-optimal status.
// Strategies treat it as a hard stop.
var ErrNotOptimal = errors.New("termination not optimal")

// Result reports the outcome of a solve. Variable values are written back
// into the model, so Result carries only the scalar summary.
type Result struct {
	Status     Status
	Objective  float64
	Iterations int
	Runtime    time.Duration
	// Engine is the name of the engine that produced the result.
	Engine string
	// Message carries engine-specific termination detail, if any.
	Message string
}

// Solver solves the active structure of a model and writes the solution
// back into the model's variables.
type Solver interface {
	// Name identifies the engine in logs and results.
	Name() string
	// Solve optimizes the model's active objective over its free variables
	// subject to its active constraints, starting from the variables'
	// current values. A non-nil error means the engine itself broke down;
	// unhelpful terminations (infeasible, iteration limit) come back as a
	// Result status with a nil error.
	Solve(ctx context.Context, m *model.Model, opts ...Option) (Result, error)
}

// Options collects engine tuning knobs. Engines ignore knobs they have no
// equivalent for.
type Options struct {
	// Accuracy is the termination tolerance.
	Accuracy float64
	// MaxIterations bounds the engine's major iterations.
	MaxIterations int
	// Tee echoes engine progress to the log.
	Tee bool
	// TimeLimit bounds wall-clock time, zero meaning no limit.
	TimeLimit time.Duration
	// Float holds engine-specific numeric options by name, e.g. pivot
	// tolerances.
	Float map[string]float64
}

// Option mutates Options.
type Option func(*Options)

// NewOptions returns the defaults with opts applied.
func NewOptions(opts ...Option) Options {
	o := Options{
		Accuracy:      1e-6,
		MaxIterations: 10000,
		Float:         make(map[string]float64),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithAccuracy sets the termination tolerance.
func WithAccuracy(tol float64) Option {
	return func(o *Options) { o.Accuracy = tol }
}

// WithMaxIterations bounds the engine's major iterations.
func WithMaxIterations(n int) Option {
	return func(o *Options) { o.MaxIterations = n }
}

// WithTee echoes engine progress to the log.
func WithTee(tee bool) Option {
	return func(o *Options) { o.Tee = tee }
}

// WithTimeLimit bounds wall-clock time.
func WithTimeLimit(d time.Duration) Option {
	return func(o *Options) { o.TimeLimit = d }
}

// WithFloatOption sets an engine-specific numeric option by name.
func WithFloatOption(name string, value float64) Option {
	return func(o *Options) { o.Float[name] = value }
}

// AssertOptimal returns nil for an optimal result and an error wrapping
// ErrNotOptimal otherwise. Staged strategies call it after every stage so a
// degraded stage never feeds the next one.
func AssertOptimal(res Result) error {
	if res.Status == StatusOptimal {
		return nil
	}
	if res.Message != "" {
		return fmt.Errorf("%s finished %s (%s): %w", res.Engine, res.Status, res.Message, ErrNotOptimal)
	}
	return fmt.Errorf("%s finished %s: %w", res.Engine, res.Status, ErrNotOptimal)
}
