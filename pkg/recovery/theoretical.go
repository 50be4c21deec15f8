package recovery

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/brineworks/treatment-network-optimizer/pkg/core"
	"github.com/brineworks/treatment-network-optimizer/pkg/model"
	"github.com/brineworks/treatment-network-optimizer/pkg/solver"
)

// MinRecoveryForBound is the element recovery a unit needs before the
// theoretical bound applies: the bound treats the concentrate stream as
// carrying all of the element, which only holds for near-total recovery.
const MinRecoveryForBound = 0.999

// MinCumulativeFlow is the lower bound on total selected flow in the LP
// variant, keeping the trivial all-zero point out of the feasible set.
const MinCumulativeFlow = 10.0

type parcel struct {
	flow float64
	conc float64
}

// boundInputs validates the unit and converts the desired concentrate
// concentration into the equivalent blended inlet target.
func boundInputs(cs *core.CaseStudy, unitID string, e core.Element, desired float64) (inletTarget, concentrateShare float64, err error) {
	u, err := cs.Unit(unitID)
	if err != nil {
		return 0, 0, err
	}
	alpha, ok := u.Recovery[e]
	if !ok {
		return 0, 0, fmt.Errorf("treatment unit %q recovers no %s", unitID, e)
	}
	if alpha <= MinRecoveryForBound {
		return 0, 0, fmt.Errorf("treatment unit %q: %s recovery %v too low for the concentrate bound (need > %v)",
			unitID, e, alpha, MinRecoveryForBound)
	}
	if desired <= 0 {
		return 0, 0, fmt.Errorf("desired concentration must be positive, got %v", desired)
	}
	concentrateShare = 1 - u.WaterRecovery
	// Removing the treated water concentrates the stream, so a target on
	// the concentrate maps to a smaller target on the blended inlet.
	inletTarget = desired * concentrateShare
	return inletTarget, concentrateShare, nil
}

// generationParcels flattens pad generation into (flow, concentration)
// parcels, dropping empty ones.
func generationParcels(cs *core.CaseStudy, e core.Element) []parcel {
	parcels := make([]parcel, 0, len(cs.Pads)*cs.Periods)
	for _, p := range cs.Pads {
		for t := 0; t < cs.Periods; t++ {
			f := p.Generation.WeeklyVolume(t)
			if f == 0 {
				continue
			}
			parcels = append(parcels, parcel{flow: f, conc: p.Generation.Concentration[e][t]})
		}
	}
	return parcels
}

// MaxTheoreticalFlow computes the largest concentrate-stream flow a
// treatment unit could see while its concentrate stays at or above the
// desired concentration, ignoring all infrastructure. It greedily blends
// generation parcels from the most concentrated down, adding a partial
// parcel at the break-even point, and scales the blended feed by the
// concentrate share of the unit.
func MaxTheoreticalFlow(cs *core.CaseStudy, unitID string, e core.Element, desired float64) (float64, error) {
	inletTarget, concentrateShare, err := boundInputs(cs, unitID, e, desired)
	if err != nil {
		return 0, err
	}

	parcels := generationParcels(cs, e)
	sort.SliceStable(parcels, func(i, j int) bool { return parcels[i].conc > parcels[j].conc })

	var cumFlow, cumMass float64
	for _, p := range parcels {
		cf := cumFlow + p.flow
		cm := cumMass + p.flow*p.conc
		if cm/cf > inletTarget {
			cumFlow, cumMass = cf, cm
			continue
		}
		// The blend dips below the target inside this parcel; take just
		// enough of it to land exactly on the target.
		if den := inletTarget - p.conc; den > 0 {
			ff := (cumMass - inletTarget*cumFlow) / den
			cumFlow += ff
			cumMass += ff * p.conc
		}
		break
	}
	return cumFlow * concentrateShare, nil
}

// MaxTheoreticalFlowLP computes the same bound as MaxTheoreticalFlow by
// solving a small allocation LP: pick how much of each generation parcel to
// blend, maximizing total flow subject to the blend meeting the inlet
// target. Results agree with the greedy up to solver tolerance; the LP
// form exists to cross-check the greedy and to host side constraints.
func MaxTheoreticalFlowLP(ctx context.Context, s solver.Solver, cs *core.CaseStudy, unitID string, e core.Element, desired float64, opts ...solver.Option) (float64, error) {
	inletTarget, concentrateShare, err := boundInputs(cs, unitID, e, desired)
	if err != nil {
		return 0, err
	}

	m := model.New("theoretical_bound")
	flow, err := m.AddVarSet("flow")
	if err != nil {
		return 0, err
	}
	total, err := m.AddVarSet("total")
	if err != nil {
		return 0, err
	}
	cum, err := total.Add("flow", MinCumulativeFlow, math.Inf(1), MinCumulativeFlow)
	if err != nil {
		return 0, err
	}

	def := model.NewExpr().AddTerm(1, cum)
	quality := model.NewExpr().AddTerm(-inletTarget, cum)
	for _, p := range cs.Pads {
		for t := 0; t < cs.Periods; t++ {
			f, err := flow.Add(model.Key(p.ID, model.PeriodKey(t)), 0, p.Generation.WeeklyVolume(t), 0)
			if err != nil {
				return 0, err
			}
			def.AddTerm(-1, f)
			quality.AddTerm(p.Generation.Concentration[e][t], f)
		}
	}

	cons, err := m.AddConstraintSet("blend")
	if err != nil {
		return 0, err
	}
	if _, err := cons.AddEq("total", def, 0); err != nil {
		return 0, err
	}
	if _, err := cons.Add("quality", quality, 0, math.Inf(1)); err != nil {
		return 0, err
	}
	if _, err := m.AddObjective("flow", model.Maximize, model.NewExpr().AddTerm(1, cum)); err != nil {
		return 0, err
	}
	if err := m.SetActiveObjective("flow"); err != nil {
		return 0, err
	}

	res, err := s.Solve(ctx, m, opts...)
	if err != nil {
		return 0, fmt.Errorf("theoretical bound: %w", err)
	}
	if err := solver.AssertOptimal(res); err != nil {
		return 0, fmt.Errorf("theoretical bound: %w", err)
	}
	return cum.Value() * concentrateShare, nil
}
