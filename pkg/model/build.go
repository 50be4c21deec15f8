package model

import (
	"fmt"
	"math"
	"strconv"

	"github.com/brineworks/treatment-network-optimizer/pkg/core"
)

// Variable set names used by the treatment network model.
const (
	VarSetFlow      = "flow"       // F[arc, t], bbl/week
	VarSetInletFlow = "inlet_flow" // TIN[unit, t], bbl/week
	VarSetConc      = "conc"       // C[site, element, t], mg/L
	VarSetInventory = "inventory"  // I[storage, t], bbl
)

// Flow constraint groups. These stay active during the linear first stage
// of the staged strategies.
const (
	ConsPadBalance        = "pad_balance"
	ConsJunctionBalance   = "junction_balance"
	ConsStorageInventory  = "storage_inventory"
	ConsDisposalCapacity  = "disposal_capacity"
	ConsReuseLimit        = "reuse_limit"
	ConsTreatmentInlet    = "treatment_inlet"
	ConsTreatmentCapacity = "treatment_capacity"
	ConsTreatedSplit      = "treated_water_split"
	ConsConcentrateSplit  = "concentrate_split"
)

// Concentration constraint groups. The staged strategies deactivate all of
// them for the first stage and reactivate them for the bilinear stage.
const (
	ConsPadConc         = "pad_conc"
	ConsJunctionConc    = "junction_conc"
	ConsStorageConc     = "storage_conc"
	ConsInletConc       = "inlet_conc"
	ConsTreatedConc     = "treated_conc"
	ConsConcentrateConc = "concentrate_conc"
	ConsReuseQuality    = "reuse_quality"
	ConsMinInletConc    = "min_inlet_conc"
)

// Objective and reporting expression names.
const (
	ObjCost             = "cost"
	ObjReuseRevenue     = "reuse_revenue"
	ObjTreatmentRevenue = "treatment_revenue"

	ExprTreatmentRevenue = "treatment_revenue"
)

// FlowGroups lists the flow constraint groups in build order.
var FlowGroups = []string{
	ConsPadBalance,
	ConsJunctionBalance,
	ConsStorageInventory,
	ConsDisposalCapacity,
	ConsReuseLimit,
	ConsTreatmentInlet,
	ConsTreatmentCapacity,
	ConsTreatedSplit,
	ConsConcentrateSplit,
}

// ConcGroups lists the concentration constraint groups in build order.
var ConcGroups = []string{
	ConsPadConc,
	ConsJunctionConc,
	ConsStorageConc,
	ConsInletConc,
	ConsTreatedConc,
	ConsConcentrateConc,
	ConsReuseQuality,
	ConsMinInletConc,
}

// Build constructs the bilinear treatment network model for a case study:
// flow, inlet-flow, concentration and inventory variables; linear flow
// balance and capacity groups; linear and bilinear concentration groups;
// and the cost, reuse-revenue and treatment-revenue objectives, with cost
// active by default. The case study is validated first.
//
// Initial variable values are chosen so a concentration-fixed first stage
// is sensible: flows start at zero, inventories at their initial levels,
// and concentrations at a generation-weighted average of pad output.
func Build(cs *core.CaseStudy) (*Model, error) {
	if err := cs.Validate(); err != nil {
		return nil, fmt.Errorf("build %q: %w", cs.Name, err)
	}

	b := &builder{
		cs: cs,
		m:  New(cs.Name),
	}

	steps := []func() error{
		b.addVariables,
		b.addPadBalance,
		b.addJunctionBalance,
		b.addStorageInventory,
		b.addDisposalCapacity,
		b.addReuseLimit,
		b.addTreatment,
		b.addPadConc,
		b.addJunctionConc,
		b.addStorageConc,
		b.addInletConc,
		b.addOutletConc,
		b.addReuseQuality,
		b.addMinInletConc,
		b.addObjectives,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, fmt.Errorf("build %q: %w", cs.Name, err)
		}
	}
	return b.m, nil
}

type builder struct {
	cs *core.CaseStudy
	m  *Model

	flow  *VarSet
	inlet *VarSet
	conc  *VarSet
	inv   *VarSet
}

// PeriodKey is the key component for planning period t, e.g. "t0".
func PeriodKey(t int) string {
	return "t" + strconv.Itoa(t)
}

// avgGenerationConc is the generation-weighted mean pad concentration, used
// as the initial value for mixing-node concentration variables.
func (b *builder) avgGenerationConc(e core.Element) float64 {
	var mass, vol float64
	for _, p := range b.cs.Pads {
		for t := 0; t < b.cs.Periods; t++ {
			v := p.Generation.WeeklyVolume(t)
			vol += v
			mass += v * p.Generation.Concentration[e][t]
		}
	}
	if vol == 0 {
		return 0
	}
	return mass / vol
}

func (b *builder) addVariables() error {
	var err error
	if b.flow, err = b.m.AddVarSet(VarSetFlow); err != nil {
		return err
	}
	if b.inlet, err = b.m.AddVarSet(VarSetInletFlow); err != nil {
		return err
	}
	if b.conc, err = b.m.AddVarSet(VarSetConc); err != nil {
		return err
	}
	if b.inv, err = b.m.AddVarSet(VarSetInventory); err != nil {
		return err
	}

	inf := math.Inf(1)
	for _, a := range b.cs.Arcs {
		upper := a.CapacityBblPerWeek
		if upper == 0 {
			upper = inf
		}
		for t := 0; t < b.cs.Periods; t++ {
			if _, err := b.flow.Add(Key(a.Key(), PeriodKey(t)), 0, upper, 0); err != nil {
				return err
			}
		}
	}
	for _, u := range b.cs.Treatment {
		for t := 0; t < b.cs.Periods; t++ {
			if _, err := b.inlet.Add(Key(u.ID, PeriodKey(t)), 0, inf, 0); err != nil {
				return err
			}
		}
	}

	for _, e := range b.cs.Elements {
		avg := b.avgGenerationConc(e)
		for t := 0; t < b.cs.Periods; t++ {
			for _, p := range b.cs.Pads {
				c := p.Generation.Concentration[e][t]
				if _, err := b.conc.Add(Key(p.ID, string(e), PeriodKey(t)), 0, inf, c); err != nil {
					return err
				}
			}
			for _, j := range b.cs.Junctions {
				if _, err := b.conc.Add(Key(j.ID, string(e), PeriodKey(t)), 0, inf, avg); err != nil {
					return err
				}
			}
			for _, s := range b.cs.Storage {
				init := s.InitialConcentration[e]
				if _, err := b.conc.Add(Key(s.ID, string(e), PeriodKey(t)), 0, inf, init); err != nil {
					return err
				}
			}
			for _, u := range b.cs.Treatment {
				alpha := u.Recovery[e]
				alphaW := u.WaterRecovery
				if _, err := b.conc.Add(Key(u.ID, string(e), PeriodKey(t)), 0, inf, avg); err != nil {
					return err
				}
				if _, err := b.conc.Add(Key(u.TreatedPortID(), string(e), PeriodKey(t)), 0, inf,
					avg*(1-alpha)/alphaW); err != nil {
					return err
				}
				if _, err := b.conc.Add(Key(u.ConcentratePortID(), string(e), PeriodKey(t)), 0, inf,
					avg*alpha/(1-alphaW)); err != nil {
					return err
				}
			}
		}
	}

	for _, s := range b.cs.Storage {
		for t := 0; t < b.cs.Periods; t++ {
			if _, err := b.inv.Add(Key(s.ID, PeriodKey(t)), 0, s.CapacityBbl, s.InitialBbl); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *builder) flowVar(a core.Arc, t int) *Var {
	v, _ := b.flow.Get(Key(a.Key(), PeriodKey(t)))
	return v
}

func (b *builder) inletVar(unitID string, t int) *Var {
	v, _ := b.inlet.Get(Key(unitID, PeriodKey(t)))
	return v
}

func (b *builder) concVar(siteID string, e core.Element, t int) *Var {
	v, _ := b.conc.Get(Key(siteID, string(e), PeriodKey(t)))
	return v
}

func (b *builder) invVar(storageID string, t int) *Var {
	v, _ := b.inv.Get(Key(storageID, PeriodKey(t)))
	return v
}

// addPadBalance: all produced water leaves the pad in its period.
func (b *builder) addPadBalance() error {
	set, err := b.m.AddConstraintSet(ConsPadBalance)
	if err != nil {
		return err
	}
	for _, p := range b.cs.Pads {
		out := b.cs.ArcsOutOf(p.ID)
		for t := 0; t < b.cs.Periods; t++ {
			e := NewExpr()
			for _, a := range out {
				e.AddTerm(1, b.flowVar(a, t))
			}
			if _, err := set.AddEq(Key(p.ID, PeriodKey(t)), e, p.Generation.WeeklyVolume(t)); err != nil {
				return err
			}
		}
	}
	return nil
}

// addJunctionBalance: junctions pass water through within the period.
func (b *builder) addJunctionBalance() error {
	set, err := b.m.AddConstraintSet(ConsJunctionBalance)
	if err != nil {
		return err
	}
	for _, j := range b.cs.Junctions {
		in := b.cs.ArcsInto(j.ID)
		out := b.cs.ArcsOutOf(j.ID)
		for t := 0; t < b.cs.Periods; t++ {
			e := NewExpr()
			for _, a := range in {
				e.AddTerm(1, b.flowVar(a, t))
			}
			for _, a := range out {
				e.AddTerm(-1, b.flowVar(a, t))
			}
			if _, err := set.AddEq(Key(j.ID, PeriodKey(t)), e, 0); err != nil {
				return err
			}
		}
	}
	return nil
}

// addStorageInventory: I[t] = I[t-1] + in - out, with the initial inventory
// folded into the t=0 row.
func (b *builder) addStorageInventory() error {
	set, err := b.m.AddConstraintSet(ConsStorageInventory)
	if err != nil {
		return err
	}
	for _, s := range b.cs.Storage {
		in := b.cs.ArcsInto(s.ID)
		out := b.cs.ArcsOutOf(s.ID)
		for t := 0; t < b.cs.Periods; t++ {
			e := NewExpr()
			e.AddTerm(1, b.invVar(s.ID, t))
			rhs := 0.0
			if t == 0 {
				rhs = s.InitialBbl
			} else {
				e.AddTerm(-1, b.invVar(s.ID, t-1))
			}
			for _, a := range in {
				e.AddTerm(-1, b.flowVar(a, t))
			}
			for _, a := range out {
				e.AddTerm(1, b.flowVar(a, t))
			}
			if _, err := set.AddEq(Key(s.ID, PeriodKey(t)), e, rhs); err != nil {
				return err
			}
		}
	}
	return nil
}

// addDisposalCapacity: weekly injection limit per disposal site. Keys are
// "<site>|<period>" so strategies can relax single sites.
func (b *builder) addDisposalCapacity() error {
	set, err := b.m.AddConstraintSet(ConsDisposalCapacity)
	if err != nil {
		return err
	}
	for _, d := range b.cs.Disposal {
		in := b.cs.ArcsInto(d.ID)
		for t := 0; t < b.cs.Periods; t++ {
			e := NewExpr()
			for _, a := range in {
				e.AddTerm(1, b.flowVar(a, t))
			}
			if _, err := set.Add(Key(d.ID, PeriodKey(t)), e, math.Inf(-1), d.CapacityBblPerWeek); err != nil {
				return err
			}
		}
	}
	return nil
}

// addReuseLimit: weekly delivery cap per reuse outlet.
func (b *builder) addReuseLimit() error {
	set, err := b.m.AddConstraintSet(ConsReuseLimit)
	if err != nil {
		return err
	}
	for _, r := range b.cs.Reuse {
		in := b.cs.ArcsInto(r.ID)
		for t := 0; t < b.cs.Periods; t++ {
			e := NewExpr()
			for _, a := range in {
				e.AddTerm(1, b.flowVar(a, t))
			}
			if _, err := set.Add(Key(r.ID, PeriodKey(t)), e, math.Inf(-1), r.DemandBblPerWeek); err != nil {
				return err
			}
		}
	}
	return nil
}

// addTreatment: inlet definition, inlet capacity and the water split onto
// the treated and concentrate ports.
func (b *builder) addTreatment() error {
	inletSet, err := b.m.AddConstraintSet(ConsTreatmentInlet)
	if err != nil {
		return err
	}
	capSet, err := b.m.AddConstraintSet(ConsTreatmentCapacity)
	if err != nil {
		return err
	}
	twSet, err := b.m.AddConstraintSet(ConsTreatedSplit)
	if err != nil {
		return err
	}
	cwSet, err := b.m.AddConstraintSet(ConsConcentrateSplit)
	if err != nil {
		return err
	}

	for _, u := range b.cs.Treatment {
		in := b.cs.ArcsInto(u.ID)
		twOut := b.cs.ArcsOutOf(u.TreatedPortID())
		cwOut := b.cs.ArcsOutOf(u.ConcentratePortID())
		for t := 0; t < b.cs.Periods; t++ {
			tin := b.inletVar(u.ID, t)

			def := NewExpr().AddTerm(1, tin)
			for _, a := range in {
				def.AddTerm(-1, b.flowVar(a, t))
			}
			if _, err := inletSet.AddEq(Key(u.ID, PeriodKey(t)), def, 0); err != nil {
				return err
			}

			capE := NewExpr().AddTerm(1, tin)
			if _, err := capSet.Add(Key(u.ID, PeriodKey(t)), capE, math.Inf(-1), u.CapacityBblPerWeek); err != nil {
				return err
			}

			tw := NewExpr()
			for _, a := range twOut {
				tw.AddTerm(1, b.flowVar(a, t))
			}
			tw.AddTerm(-u.WaterRecovery, tin)
			if _, err := twSet.AddEq(Key(u.ID, PeriodKey(t)), tw, 0); err != nil {
				return err
			}

			cw := NewExpr()
			for _, a := range cwOut {
				cw.AddTerm(1, b.flowVar(a, t))
			}
			cw.AddTerm(-(1 - u.WaterRecovery), tin)
			if _, err := cwSet.AddEq(Key(u.ID, PeriodKey(t)), cw, 0); err != nil {
				return err
			}
		}
	}
	return nil
}

// addPadConc pins pad outlet concentrations to the generation profile.
func (b *builder) addPadConc() error {
	set, err := b.m.AddConstraintSet(ConsPadConc)
	if err != nil {
		return err
	}
	for _, p := range b.cs.Pads {
		for _, e := range b.cs.Elements {
			for t := 0; t < b.cs.Periods; t++ {
				body := NewExpr().AddTerm(1, b.concVar(p.ID, e, t))
				if _, err := set.AddEq(Key(p.ID, string(e), PeriodKey(t)), body,
					p.Generation.Concentration[e][t]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// addJunctionConc: bilinear mixing balance at junctions,
// sum(F_in * C_src) == C_junction * sum(F_in).
func (b *builder) addJunctionConc() error {
	set, err := b.m.AddConstraintSet(ConsJunctionConc)
	if err != nil {
		return err
	}
	for _, j := range b.cs.Junctions {
		in := b.cs.ArcsInto(j.ID)
		for _, e := range b.cs.Elements {
			for t := 0; t < b.cs.Periods; t++ {
				cj := b.concVar(j.ID, e, t)
				body := NewExpr()
				for _, a := range in {
					f := b.flowVar(a, t)
					body.AddBilinear(1, f, b.concVar(a.From, e, t))
					body.AddBilinear(-1, f, cj)
				}
				if _, err := set.AddEq(Key(j.ID, string(e), PeriodKey(t)), body, 0); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// addStorageConc: bilinear element balance over stored water,
// I[t]*C[t] == I[t-1]*C[t-1] + sum(F_in * C_src) - sum(F_out) * C[t].
// The t=0 carry-in is the constant I0*C0.
func (b *builder) addStorageConc() error {
	set, err := b.m.AddConstraintSet(ConsStorageConc)
	if err != nil {
		return err
	}
	for _, s := range b.cs.Storage {
		in := b.cs.ArcsInto(s.ID)
		out := b.cs.ArcsOutOf(s.ID)
		for _, e := range b.cs.Elements {
			for t := 0; t < b.cs.Periods; t++ {
				stored := b.concVar(s.ID, e, t)
				body := NewExpr()
				body.AddBilinear(1, b.invVar(s.ID, t), stored)
				if t == 0 {
					body.AddConst(-s.InitialBbl * s.InitialConcentration[e])
				} else {
					body.AddBilinear(-1, b.invVar(s.ID, t-1), b.concVar(s.ID, e, t-1))
				}
				for _, a := range in {
					body.AddBilinear(-1, b.flowVar(a, t), b.concVar(a.From, e, t))
				}
				for _, a := range out {
					body.AddBilinear(1, b.flowVar(a, t), stored)
				}
				if _, err := set.AddEq(Key(s.ID, string(e), PeriodKey(t)), body, 0); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// addInletConc: bilinear mixing at the treatment inlet,
// sum(F_in * C_src) == C_inlet * TIN.
func (b *builder) addInletConc() error {
	set, err := b.m.AddConstraintSet(ConsInletConc)
	if err != nil {
		return err
	}
	for _, u := range b.cs.Treatment {
		in := b.cs.ArcsInto(u.ID)
		for _, e := range b.cs.Elements {
			for t := 0; t < b.cs.Periods; t++ {
				body := NewExpr()
				for _, a := range in {
					body.AddBilinear(1, b.flowVar(a, t), b.concVar(a.From, e, t))
				}
				body.AddBilinear(-1, b.inletVar(u.ID, t), b.concVar(u.ID, e, t))
				if _, err := set.AddEq(Key(u.ID, string(e), PeriodKey(t)), body, 0); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// addOutletConc: linear port transforms. Removing alphaW of the water as
// near-clean permeate concentrates the inlet stream; the captured element
// mass ends up in the concentrate, the bleed-through in the treated water.
func (b *builder) addOutletConc() error {
	twSet, err := b.m.AddConstraintSet(ConsTreatedConc)
	if err != nil {
		return err
	}
	cwSet, err := b.m.AddConstraintSet(ConsConcentrateConc)
	if err != nil {
		return err
	}
	for _, u := range b.cs.Treatment {
		for _, e := range b.cs.Elements {
			alpha := u.Recovery[e]
			for t := 0; t < b.cs.Periods; t++ {
				inletC := b.concVar(u.ID, e, t)

				tw := NewExpr().
					AddTerm(1, b.concVar(u.TreatedPortID(), e, t)).
					AddTerm(-(1-alpha)/u.WaterRecovery, inletC)
				if _, err := twSet.AddEq(Key(u.ID, string(e), PeriodKey(t)), tw, 0); err != nil {
					return err
				}

				cw := NewExpr().
					AddTerm(1, b.concVar(u.ConcentratePortID(), e, t)).
					AddTerm(-alpha/(1-u.WaterRecovery), inletC)
				if _, err := cwSet.AddEq(Key(u.ID, string(e), PeriodKey(t)), cw, 0); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// addReuseQuality: water delivered to a reuse outlet must meet its quality
// limits, enforced per delivering arc.
func (b *builder) addReuseQuality() error {
	set, err := b.m.AddConstraintSet(ConsReuseQuality)
	if err != nil {
		return err
	}
	for _, r := range b.cs.Reuse {
		in := b.cs.ArcsInto(r.ID)
		for e, limit := range r.MaxConcentration {
			for _, a := range in {
				for t := 0; t < b.cs.Periods; t++ {
					body := NewExpr().AddTerm(1, b.concVar(a.From, e, t))
					if _, err := set.Add(Key(a.Key(), string(e), PeriodKey(t)), body,
						math.Inf(-1), limit); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// addMinInletConc: the blended inlet concentration must reach the unit's
// minimum for the elements it recovers.
func (b *builder) addMinInletConc() error {
	set, err := b.m.AddConstraintSet(ConsMinInletConc)
	if err != nil {
		return err
	}
	for _, u := range b.cs.Treatment {
		for e, floor := range u.MinInletConcentration {
			for t := 0; t < b.cs.Periods; t++ {
				body := NewExpr().AddTerm(1, b.concVar(u.ID, e, t))
				if _, err := set.Add(Key(u.ID, string(e), PeriodKey(t)), body, floor, math.Inf(1)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// addObjectives: net cost (active default), gross revenue with reuse
// credits, and treatment revenue alone, plus the treatment-revenue
// reporting expression.
func (b *builder) addObjectives() error {
	treatRev := NewExpr()
	for _, u := range b.cs.Treatment {
		for _, e := range b.cs.Elements {
			price := u.ProductPricePerKg[e]
			alpha := u.Recovery[e]
			if price == 0 || alpha == 0 {
				continue
			}
			coef := price * alpha * core.MassConversion
			for t := 0; t < b.cs.Periods; t++ {
				treatRev.AddBilinear(coef, b.concVar(u.ID, e, t), b.inletVar(u.ID, t))
			}
		}
	}
	if err := b.m.AddExpression(ExprTreatmentRevenue, treatRev); err != nil {
		return err
	}

	reuseCredit := NewExpr()
	for _, r := range b.cs.Reuse {
		if r.CreditPerBbl == 0 {
			continue
		}
		for _, a := range b.cs.ArcsInto(r.ID) {
			for t := 0; t < b.cs.Periods; t++ {
				reuseCredit.AddTerm(r.CreditPerBbl, b.flowVar(a, t))
			}
		}
	}

	cost := NewExpr()
	for _, a := range b.cs.Arcs {
		if a.CostPerBbl == 0 {
			continue
		}
		for t := 0; t < b.cs.Periods; t++ {
			cost.AddTerm(a.CostPerBbl, b.flowVar(a, t))
		}
	}
	for _, d := range b.cs.Disposal {
		if d.FeePerBbl == 0 {
			continue
		}
		for _, a := range b.cs.ArcsInto(d.ID) {
			for t := 0; t < b.cs.Periods; t++ {
				cost.AddTerm(d.FeePerBbl, b.flowVar(a, t))
			}
		}
	}
	for _, s := range b.cs.Storage {
		if s.HoldingCostPerBbl == 0 {
			continue
		}
		for t := 0; t < b.cs.Periods; t++ {
			cost.AddTerm(s.HoldingCostPerBbl, b.invVar(s.ID, t))
		}
	}
	cost.AddExpr(-1, treatRev)
	cost.AddExpr(-1, reuseCredit)
	if _, err := b.m.AddObjective(ObjCost, Minimize, cost); err != nil {
		return err
	}

	gross := NewExpr()
	gross.AddExpr(1, treatRev)
	gross.AddExpr(1, reuseCredit)
	if _, err := b.m.AddObjective(ObjReuseRevenue, Maximize, gross); err != nil {
		return err
	}

	if _, err := b.m.AddObjective(ObjTreatmentRevenue, Maximize, treatRev); err != nil {
		return err
	}

	return b.m.SetActiveObjective(ObjCost)
}
