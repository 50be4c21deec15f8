package recovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"github.com/brineworks/treatment-network-optimizer/pkg/core"
	"github.com/brineworks/treatment-network-optimizer/pkg/model"
	"github.com/brineworks/treatment-network-optimizer/pkg/solver"
)

// Stage names recorded in StagedResult entries.
const (
	// StageLinear is the allocation solve with concentrations pinned.
	StageLinear = "linear"

	// StageBilinear is the full solve with concentration tracking restored.
	StageBilinear = "bilinear"
)

// Recorder observes stage outcomes. Implementations must be safe for
// concurrent use; the solve path calls them synchronously.
type Recorder interface {
	// RecordStage is called once per engine run with the stage name and the
	// engine's result. Engine transport errors report StatusFailed.
	RecordStage(stage string, res solver.Result)

	// RecordObjective is called once per staged solve that reached
	// optimality, with the final stage's objective value.
	RecordObjective(value float64)
}

// Config holds tuning for a Strategy.
type Config struct {
	// LinearOptions are passed to the linear-stage solver.
	LinearOptions []solver.Option

	// BilinearOptions are passed to the bilinear-stage solver.
	BilinearOptions []solver.Option

	// RelaxDisposals names the disposal sites whose capacity rows are dropped
	// in the bilinear stage of MaxWithInfrastructure. When nil, every disposal
	// reachable from a treatment port is relaxed.
	RelaxDisposals []string

	// Recorder, when set, receives stage and objective observations.
	Recorder Recorder
}

// Strategy chains a linear warm-start solve into a full bilinear solve over
// one shared model, the variable values written back by the first stage
// becoming the starting point of the second.
type Strategy struct {
	config   *Config
	linear   solver.Solver
	bilinear solver.Solver
	logger   logr.Logger
}

// New creates a Strategy. The linear solver sees the concentration-pinned
// stage, the bilinear solver the restored full system.
func New(linear, bilinear solver.Solver, config *Config, logger logr.Logger) (*Strategy, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if linear == nil {
		return nil, fmt.Errorf("linear solver cannot be nil")
	}
	if bilinear == nil {
		return nil, fmt.Errorf("bilinear solver cannot be nil")
	}
	return &Strategy{
		config:   config,
		linear:   linear,
		bilinear: bilinear,
		logger:   logger,
	}, nil
}

// StageResult records the solver outcome of one stage.
type StageResult struct {
	// Stage is StageLinear or StageBilinear.
	Stage string

	solver.Result
}

// StagedResult is the outcome of a staged solve. The model carries the final
// variable values; Stages lists per-stage solver results in run order.
type StagedResult struct {
	Model  *model.Model
	Stages []StageResult

	// TreatmentRevenue is the recovered-product revenue at the final point,
	// in currency units, regardless of which objective drove the solve.
	TreatmentRevenue float64
}

// relaxations lists capacity rows dropped before the bilinear stage. Relaxing
// them keeps a warm start feasible when the linear stage parked flow against
// capacities that tighten once concentrations move.
type relaxations struct {
	treatmentCapacity bool
	disposals         []string
}

// MaxWithInfrastructure solves for the largest treatment revenue the network
// can deliver. Both stages maximize treatment revenue; the bilinear stage
// additionally drops treatment capacity rows and the capacity rows of the
// relaxed disposal sites, so the reported optimum bounds what the
// infrastructure could recover rather than what it is currently sized for.
func (s *Strategy) MaxWithInfrastructure(ctx context.Context, cs *core.CaseStudy) (*StagedResult, error) {
	m, err := model.Build(cs)
	if err != nil {
		return nil, err
	}
	if err := m.SetActiveObjective(model.ObjTreatmentRevenue); err != nil {
		return nil, err
	}

	disposals := s.config.RelaxDisposals
	if disposals == nil {
		if disposals, err = cs.TreatmentFedDisposals(); err != nil {
			return nil, err
		}
	}

	res := &StagedResult{Model: m}
	if err := s.runLinear(ctx, m, res); err != nil {
		return nil, err
	}
	relax := relaxations{treatmentCapacity: true, disposals: disposals}
	if err := s.runBilinear(ctx, m, res, relax); err != nil {
		return nil, err
	}
	return s.finish(m, res)
}

// CostOptimal solves for the cheapest operation of the network as built.
// Both stages minimize net cost and no capacities are relaxed.
func (s *Strategy) CostOptimal(ctx context.Context, cs *core.CaseStudy) (*StagedResult, error) {
	m, err := model.Build(cs)
	if err != nil {
		return nil, err
	}
	if err := m.SetActiveObjective(model.ObjCost); err != nil {
		return nil, err
	}

	res := &StagedResult{Model: m}
	if err := s.runLinear(ctx, m, res); err != nil {
		return nil, err
	}
	if err := s.runBilinear(ctx, m, res, relaxations{}); err != nil {
		return nil, err
	}
	return s.finish(m, res)
}

// runLinear pins every concentration at its current value, drops the
// concentration rows, and solves the remaining flow allocation problem.
func (s *Strategy) runLinear(ctx context.Context, m *model.Model, res *StagedResult) error {
	if err := m.FixVarSet(model.VarSetConc); err != nil {
		return err
	}
	if err := m.DeactivateConstraintSets(model.ConcGroups...); err != nil {
		return err
	}
	if err := m.ActivateConstraintSets(model.FlowGroups...); err != nil {
		return err
	}

	s.logger.Info("Solving linear stage", "model", m.Name(), "stats", m.Stats())
	r, err := s.linear.Solve(ctx, m, s.config.LinearOptions...)
	if err != nil {
		s.record(StageLinear, solver.Result{Status: solver.StatusFailed})
		return fmt.Errorf("linear stage: %w", err)
	}
	s.record(StageLinear, r)
	if err := solver.AssertOptimal(r); err != nil {
		return fmt.Errorf("linear stage: %w", err)
	}
	res.Stages = append(res.Stages, StageResult{Stage: StageLinear, Result: r})

	s.logger.Info("Linear stage optimal", "engine", r.Engine, "objective", r.Objective, "iterations", r.Iterations)
	return nil
}

// runBilinear restores the concentration variables and rows, applies the
// requested relaxations, and re-solves from the linear stage's point.
func (s *Strategy) runBilinear(ctx context.Context, m *model.Model, res *StagedResult, relax relaxations) error {
	if err := m.FreeVarSet(model.VarSetConc); err != nil {
		return err
	}
	// Group reactivation must come first: it would re-enable any row the
	// relaxations are about to drop.
	if err := m.ActivateConstraintSets(model.ConcGroups...); err != nil {
		return err
	}
	if err := m.ActivateConstraintSets(model.FlowGroups...); err != nil {
		return err
	}
	if err := s.applyRelaxations(m, relax); err != nil {
		return err
	}

	s.logger.Info("Solving bilinear stage", "model", m.Name(), "stats", m.Stats())
	r, err := s.bilinear.Solve(ctx, m, s.config.BilinearOptions...)
	if err != nil {
		s.record(StageBilinear, solver.Result{Status: solver.StatusFailed})
		return fmt.Errorf("bilinear stage: %w", err)
	}
	s.record(StageBilinear, r)
	if err := solver.AssertOptimal(r); err != nil {
		return fmt.Errorf("bilinear stage: %w", err)
	}
	res.Stages = append(res.Stages, StageResult{Stage: StageBilinear, Result: r})

	s.logger.Info("Bilinear stage optimal", "engine", r.Engine, "objective", r.Objective, "iterations", r.Iterations)
	return nil
}

func (s *Strategy) applyRelaxations(m *model.Model, relax relaxations) error {
	if relax.treatmentCapacity {
		if err := m.DeactivateConstraintSets(model.ConsTreatmentCapacity); err != nil {
			return err
		}
		s.logger.Info("Relaxed treatment capacity rows")
	}
	if len(relax.disposals) == 0 {
		return nil
	}
	set, err := m.ConstraintSet(model.ConsDisposalCapacity)
	if err != nil {
		return err
	}
	for _, site := range relax.disposals {
		prefix := site + model.KeySep
		dropped := 0
		set.Each(func(c *model.Constraint) {
			if strings.HasPrefix(c.Key(), prefix) {
				c.Deactivate()
				dropped++
			}
		})
		if dropped == 0 {
			return fmt.Errorf("disposal %q has no capacity rows to relax", site)
		}
		s.logger.Info("Relaxed disposal capacity rows", "disposal", site, "rows", dropped)
	}
	return nil
}

// finish evaluates treatment revenue at the final point and seals the result.
func (s *Strategy) finish(m *model.Model, res *StagedResult) (*StagedResult, error) {
	rev, err := m.Expression(model.ExprTreatmentRevenue)
	if err != nil {
		return nil, err
	}
	res.TreatmentRevenue = rev.Value()
	if s.config.Recorder != nil {
		s.config.Recorder.RecordObjective(res.Stages[len(res.Stages)-1].Objective)
	}
	s.logger.Info("Staged solve completed", "model", m.Name(), "treatmentRevenue", res.TreatmentRevenue)
	return res, nil
}

func (s *Strategy) record(stage string, r solver.Result) {
	if s.config.Recorder != nil {
		s.config.Recorder.RecordStage(stage, r)
	}
}
