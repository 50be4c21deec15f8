package core

import (
	"fmt"
)

// Validate checks that the case study is well-posed: IDs are unique, every
// profile covers the full horizon, efficiencies are in range, arcs connect
// existing sites in legal directions, and the network topology lets every
// pad reach a sink. Builders and solvers assume a validated case study.
func (cs *CaseStudy) Validate() error {
	if cs.Name == "" {
		return fmt.Errorf("case study name cannot be empty")
	}
	if cs.Periods < 1 {
		return fmt.Errorf("case study %q: periods must be at least 1, got %d", cs.Name, cs.Periods)
	}
	if len(cs.Elements) == 0 {
		return fmt.Errorf("case study %q: at least one element is required", cs.Name)
	}
	declared := make(map[Element]bool, len(cs.Elements))
	for _, e := range cs.Elements {
		if e == "" {
			return fmt.Errorf("case study %q: empty element name", cs.Name)
		}
		if declared[e] {
			return fmt.Errorf("case study %q: duplicate element %q", cs.Name, e)
		}
		declared[e] = true
	}

	if err := cs.validateSiteIDs(); err != nil {
		return err
	}
	if err := cs.validatePads(declared); err != nil {
		return err
	}
	if err := cs.validateStorage(declared); err != nil {
		return err
	}
	if err := cs.validateDisposal(); err != nil {
		return err
	}
	if err := cs.validateTreatment(declared); err != nil {
		return err
	}
	if err := cs.validateReuse(declared); err != nil {
		return err
	}
	if err := cs.validateArcs(); err != nil {
		return err
	}
	return cs.validateTopology()
}

func (cs *CaseStudy) validateSiteIDs() error {
	seen := make(map[string]bool)
	add := func(id string) error {
		if id == "" {
			return fmt.Errorf("case study %q: empty site ID", cs.Name)
		}
		if seen[id] {
			return fmt.Errorf("case study %q: duplicate site ID %q", cs.Name, id)
		}
		seen[id] = true
		return nil
	}
	for _, p := range cs.Pads {
		if err := add(p.ID); err != nil {
			return err
		}
	}
	for _, j := range cs.Junctions {
		if err := add(j.ID); err != nil {
			return err
		}
	}
	for _, s := range cs.Storage {
		if err := add(s.ID); err != nil {
			return err
		}
	}
	for _, d := range cs.Disposal {
		if err := add(d.ID); err != nil {
			return err
		}
	}
	for _, u := range cs.Treatment {
		if err := add(u.ID); err != nil {
			return err
		}
		// Port IDs are derived, but they share the site namespace.
		if err := add(u.TreatedPortID()); err != nil {
			return err
		}
		if err := add(u.ConcentratePortID()); err != nil {
			return err
		}
	}
	for _, r := range cs.Reuse {
		if err := add(r.ID); err != nil {
			return err
		}
	}
	return nil
}

func (cs *CaseStudy) validatePads(declared map[Element]bool) error {
	if len(cs.Pads) == 0 {
		return fmt.Errorf("case study %q: at least one production pad is required", cs.Name)
	}
	for _, p := range cs.Pads {
		if len(p.Generation.RateBblPerDay) != cs.Periods {
			return fmt.Errorf("pad %q: generation rate has %d entries, want %d",
				p.ID, len(p.Generation.RateBblPerDay), cs.Periods)
		}
		for t, r := range p.Generation.RateBblPerDay {
			if r < 0 {
				return fmt.Errorf("pad %q: negative generation rate %v in period %d", p.ID, r, t)
			}
		}
		for _, e := range cs.Elements {
			series, ok := p.Generation.Concentration[e]
			if !ok {
				return fmt.Errorf("pad %q: missing concentration series for element %q", p.ID, e)
			}
			if len(series) != cs.Periods {
				return fmt.Errorf("pad %q: concentration series for %q has %d entries, want %d",
					p.ID, e, len(series), cs.Periods)
			}
			for t, c := range series {
				if c < 0 {
					return fmt.Errorf("pad %q: negative concentration %v for %q in period %d", p.ID, c, e, t)
				}
			}
		}
		for e := range p.Generation.Concentration {
			if !declared[e] {
				return fmt.Errorf("pad %q: concentration for undeclared element %q", p.ID, e)
			}
		}
	}
	return nil
}

func (cs *CaseStudy) validateStorage(declared map[Element]bool) error {
	for _, s := range cs.Storage {
		if s.CapacityBbl <= 0 {
			return fmt.Errorf("storage %q: capacity must be positive, got %v", s.ID, s.CapacityBbl)
		}
		if s.InitialBbl < 0 || s.InitialBbl > s.CapacityBbl {
			return fmt.Errorf("storage %q: initial inventory %v outside [0, %v]",
				s.ID, s.InitialBbl, s.CapacityBbl)
		}
		if s.HoldingCostPerBbl < 0 {
			return fmt.Errorf("storage %q: negative holding cost", s.ID)
		}
		for e, c := range s.InitialConcentration {
			if !declared[e] {
				return fmt.Errorf("storage %q: initial concentration for undeclared element %q", s.ID, e)
			}
			if c < 0 {
				return fmt.Errorf("storage %q: negative initial concentration for %q", s.ID, e)
			}
		}
	}
	return nil
}

func (cs *CaseStudy) validateDisposal() error {
	for _, d := range cs.Disposal {
		if d.CapacityBblPerWeek <= 0 {
			return fmt.Errorf("disposal %q: capacity must be positive, got %v", d.ID, d.CapacityBblPerWeek)
		}
		if d.FeePerBbl < 0 {
			return fmt.Errorf("disposal %q: negative fee", d.ID)
		}
	}
	return nil
}

func (cs *CaseStudy) validateTreatment(declared map[Element]bool) error {
	for _, u := range cs.Treatment {
		if u.WaterRecovery <= 0 || u.WaterRecovery >= 1 {
			return fmt.Errorf("treatment unit %q: water recovery must be in (0, 1), got %v",
				u.ID, u.WaterRecovery)
		}
		for _, e := range cs.Elements {
			a, ok := u.Recovery[e]
			if !ok {
				return fmt.Errorf("treatment unit %q: missing recovery for element %q", u.ID, e)
			}
			if a < 0 || a > 1 {
				return fmt.Errorf("treatment unit %q: recovery for %q must be in [0, 1], got %v",
					u.ID, e, a)
			}
		}
		if u.CapacityBblPerWeek <= 0 {
			return fmt.Errorf("treatment unit %q: capacity must be positive, got %v",
				u.ID, u.CapacityBblPerWeek)
		}
		for e, c := range u.MinInletConcentration {
			if !declared[e] {
				return fmt.Errorf("treatment unit %q: minimum inlet concentration for undeclared element %q", u.ID, e)
			}
			if c < 0 {
				return fmt.Errorf("treatment unit %q: negative minimum inlet concentration for %q", u.ID, e)
			}
		}
		for e, p := range u.ProductPricePerKg {
			if !declared[e] {
				return fmt.Errorf("treatment unit %q: product price for undeclared element %q", u.ID, e)
			}
			if p < 0 {
				return fmt.Errorf("treatment unit %q: negative product price for %q", u.ID, e)
			}
		}
	}
	return nil
}

func (cs *CaseStudy) validateReuse(declared map[Element]bool) error {
	for _, r := range cs.Reuse {
		if r.DemandBblPerWeek <= 0 {
			return fmt.Errorf("reuse %q: demand must be positive, got %v", r.ID, r.DemandBblPerWeek)
		}
		for e, c := range r.MaxConcentration {
			if !declared[e] {
				return fmt.Errorf("reuse %q: quality limit for undeclared element %q", r.ID, e)
			}
			if c < 0 {
				return fmt.Errorf("reuse %q: negative quality limit for %q", r.ID, e)
			}
		}
	}
	return nil
}

func (cs *CaseStudy) validateArcs() error {
	if len(cs.Arcs) == 0 {
		return fmt.Errorf("case study %q: at least one arc is required", cs.Name)
	}
	kinds := cs.SiteKinds()
	seen := make(map[string]bool, len(cs.Arcs))
	for _, a := range cs.Arcs {
		fromKind, ok := kinds[a.From]
		if !ok {
			return fmt.Errorf("arc %s: unknown origin site %q", a.Key(), a.From)
		}
		toKind, ok := kinds[a.To]
		if !ok {
			return fmt.Errorf("arc %s: unknown destination site %q", a.Key(), a.To)
		}
		if seen[a.Key()] {
			return fmt.Errorf("duplicate arc %s", a.Key())
		}
		seen[a.Key()] = true

		if a.CapacityBblPerWeek < 0 {
			return fmt.Errorf("arc %s: negative capacity", a.Key())
		}
		if a.CostPerBbl < 0 {
			return fmt.Errorf("arc %s: negative cost", a.Key())
		}

		switch toKind {
		case SiteProductionPad:
			return fmt.Errorf("arc %s: production pads cannot receive water", a.Key())
		case SiteTreatmentPort:
			return fmt.Errorf("arc %s: treatment ports are outlets, water enters via the unit %q",
				a.Key(), a.To)
		}
		switch fromKind {
		case SiteDisposal:
			return fmt.Errorf("arc %s: water cannot leave a disposal site", a.Key())
		case SiteReuse:
			return fmt.Errorf("arc %s: water cannot leave a reuse outlet", a.Key())
		case SiteTreatment:
			return fmt.Errorf("arc %s: treatment outflow leaves via the unit's ports, not %q",
				a.Key(), a.From)
		}
	}
	return nil
}
