package core

import (
	"fmt"
)

// Element identifies a recoverable element carried by produced water,
// e.g. "lithium". Concentrations are mg/L, recovered mass is kg.
type Element string

// SiteKind classifies the nodes a treatment network is built from.
type SiteKind string

const (
	// SiteProductionPad is a produced-water source.
	SiteProductionPad SiteKind = "production_pad"

	// SiteJunction is a mixing/splitting node without storage.
	SiteJunction SiteKind = "junction"

	// SiteStorage is a buffered node carrying inventory between periods.
	SiteStorage SiteKind = "storage"

	// SiteDisposal is an injection site; water entering it leaves the network.
	SiteDisposal SiteKind = "disposal"

	// SiteTreatment is a treatment unit inlet.
	SiteTreatment SiteKind = "treatment"

	// SiteTreatmentPort is a treated-water or concentrate outlet of a unit.
	SiteTreatmentPort SiteKind = "treatment_port"

	// SiteReuse is a beneficial-reuse delivery point.
	SiteReuse SiteKind = "reuse"
)

const (
	// DaysPerWeek converts daily generation rates to the weekly planning grid.
	DaysPerWeek = 7.0

	// LitersPerBarrel converts oilfield barrels to liters.
	LitersPerBarrel = 158.987
)

// MassConversion converts a concentration (mg/L) times a volume (bbl)
// into recovered mass in kg.
const MassConversion = LitersPerBarrel / 1e6

// GenerationProfile describes what a production pad produces over the
// planning horizon. RateBblPerDay and every concentration series must have
// exactly one entry per period.
type GenerationProfile struct {
	// RateBblPerDay is the produced-water rate per period, in bbl/day.
	RateBblPerDay []float64 `yaml:"rateBblPerDay"`

	// Concentration holds one series per element, in mg/L.
	Concentration map[Element][]float64 `yaml:"concentration"`
}

// WeeklyVolume returns the produced volume for period t in bbl/week.
func (p GenerationProfile) WeeklyVolume(t int) float64 {
	return p.RateBblPerDay[t] * DaysPerWeek
}

// ProductionPad is a produced-water source. All generated water must leave
// the pad in the period it is produced.
type ProductionPad struct {
	ID         string            `yaml:"id"`
	Generation GenerationProfile `yaml:"generation"`
}

// Junction is a pass-through mixing node: inflow equals outflow each period.
type Junction struct {
	ID string `yaml:"id"`
}

// Storage is a buffered node with inventory carried between periods.
type Storage struct {
	ID string `yaml:"id"`

	// CapacityBbl bounds the inventory level.
	CapacityBbl float64 `yaml:"capacityBbl"`

	// InitialBbl is the inventory at the start of the horizon.
	InitialBbl float64 `yaml:"initialBbl"`

	// InitialConcentration is the stored water's concentration at the start
	// of the horizon, per element, in mg/L.
	InitialConcentration map[Element]float64 `yaml:"initialConcentration"`

	// HoldingCostPerBbl is charged per bbl held per period.
	HoldingCostPerBbl float64 `yaml:"holdingCostPerBbl"`
}

// Disposal is an injection site. Water entering a disposal leaves the network.
type Disposal struct {
	ID string `yaml:"id"`

	// CapacityBblPerWeek caps total inflow per period.
	CapacityBblPerWeek float64 `yaml:"capacityBblPerWeek"`

	// FeePerBbl is the injection fee.
	FeePerBbl float64 `yaml:"feePerBbl"`

	// Lat and Lon locate the wellhead for seismicity checks. Both zero means
	// the location is unknown.
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
}

// Located reports whether the wellhead location is known.
func (d Disposal) Located() bool {
	return d.Lat != 0 || d.Lon != 0
}

// Reuse is a beneficial-reuse outlet (e.g. completion demand or surface
// discharge) with a per-period demand cap and element quality limits.
type Reuse struct {
	ID string `yaml:"id"`

	// DemandBblPerWeek caps total delivery per period.
	DemandBblPerWeek float64 `yaml:"demandBblPerWeek"`

	// MaxConcentration limits the concentration of delivered water, per
	// element, in mg/L. Elements absent from the map are unconstrained.
	MaxConcentration map[Element]float64 `yaml:"maxConcentration"`

	// CreditPerBbl is the beneficial-reuse credit earned per delivered bbl.
	CreditPerBbl float64 `yaml:"creditPerBbl"`
}

// TreatmentUnit removes clean water from a brine stream and captures
// dissolved elements into the concentrate. WaterRecovery (alphaW) is the
// fraction of inlet water leaving as treated water; the remaining
// 1-alphaW leaves as concentrate. Recovery (alpha) is the fraction of each
// element's inlet mass captured into the concentrate stream.
type TreatmentUnit struct {
	ID string `yaml:"id"`

	// WaterRecovery is alphaW, strictly between 0 and 1.
	WaterRecovery float64 `yaml:"waterRecovery"`

	// Recovery is alpha per element, in [0, 1].
	Recovery map[Element]float64 `yaml:"recovery"`

	// MinInletConcentration is the minimum blended inlet concentration the
	// unit accepts, per element, in mg/L.
	MinInletConcentration map[Element]float64 `yaml:"minInletConcentration"`

	// CapacityBblPerWeek caps inlet flow per period.
	CapacityBblPerWeek float64 `yaml:"capacityBblPerWeek"`

	// ProductPricePerKg is the sale price of recovered product, per element.
	ProductPricePerKg map[Element]float64 `yaml:"productPricePerKg"`
}

// TreatedPortID returns the site ID of the unit's treated-water outlet.
func (u TreatmentUnit) TreatedPortID() string {
	return u.ID + ".tw"
}

// ConcentratePortID returns the site ID of the unit's concentrate outlet.
func (u TreatmentUnit) ConcentratePortID() string {
	return u.ID + ".cw"
}

// Arc is a directed, capacitated connection between two sites. Arcs into a
// treatment unit reference the unit ID; arcs out of a unit reference one of
// its port IDs.
type Arc struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`

	// CapacityBblPerWeek caps flow per period. Zero means uncapacitated.
	CapacityBblPerWeek float64 `yaml:"capacityBblPerWeek"`

	// CostPerBbl is the transport cost.
	CostPerBbl float64 `yaml:"costPerBbl"`
}

// Key returns the arc's canonical identifier.
func (a Arc) Key() string {
	return a.From + "->" + a.To
}

// CaseStudy is a complete network description over a weekly planning horizon.
type CaseStudy struct {
	Name string `yaml:"name"`

	// Periods is the number of weekly planning periods.
	Periods int `yaml:"periods"`

	// Elements lists the recoverable elements tracked by the model.
	Elements []Element `yaml:"elements"`

	Pads      []ProductionPad `yaml:"pads"`
	Junctions []Junction      `yaml:"junctions"`
	Storage   []Storage       `yaml:"storage"`
	Disposal  []Disposal      `yaml:"disposal"`
	Treatment []TreatmentUnit `yaml:"treatment"`
	Reuse     []Reuse         `yaml:"reuse"`
	Arcs      []Arc           `yaml:"arcs"`
}

// Unit returns the treatment unit with the given ID.
func (cs *CaseStudy) Unit(id string) (TreatmentUnit, error) {
	for _, u := range cs.Treatment {
		if u.ID == id {
			return u, nil
		}
	}
	return TreatmentUnit{}, fmt.Errorf("treatment unit %q not found", id)
}

// Pad returns the production pad with the given ID.
func (cs *CaseStudy) Pad(id string) (ProductionPad, error) {
	for _, p := range cs.Pads {
		if p.ID == id {
			return p, nil
		}
	}
	return ProductionPad{}, fmt.Errorf("production pad %q not found", id)
}

// SiteKinds maps every addressable site ID, including treatment ports, to
// its kind.
func (cs *CaseStudy) SiteKinds() map[string]SiteKind {
	kinds := make(map[string]SiteKind)
	for _, p := range cs.Pads {
		kinds[p.ID] = SiteProductionPad
	}
	for _, j := range cs.Junctions {
		kinds[j.ID] = SiteJunction
	}
	for _, s := range cs.Storage {
		kinds[s.ID] = SiteStorage
	}
	for _, d := range cs.Disposal {
		kinds[d.ID] = SiteDisposal
	}
	for _, u := range cs.Treatment {
		kinds[u.ID] = SiteTreatment
		kinds[u.TreatedPortID()] = SiteTreatmentPort
		kinds[u.ConcentratePortID()] = SiteTreatmentPort
	}
	for _, r := range cs.Reuse {
		kinds[r.ID] = SiteReuse
	}
	return kinds
}

// ArcsInto returns all arcs whose destination is the given site.
func (cs *CaseStudy) ArcsInto(id string) []Arc {
	var arcs []Arc
	for _, a := range cs.Arcs {
		if a.To == id {
			arcs = append(arcs, a)
		}
	}
	return arcs
}

// ArcsOutOf returns all arcs whose origin is the given site.
func (cs *CaseStudy) ArcsOutOf(id string) []Arc {
	var arcs []Arc
	for _, a := range cs.Arcs {
		if a.From == id {
			arcs = append(arcs, a)
		}
	}
	return arcs
}
