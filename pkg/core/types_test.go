package core

import (
	"math"
	"reflect"
	"testing"
)

// makeValidCase builds a small but complete network: two pads feeding a
// junction, a storage buffer, one treatment unit with both outlets
// connected, a disposal well and a beneficial-reuse outlet.
func makeValidCase() *CaseStudy {
	return &CaseStudy{
		Name:     "permian_small",
		Periods:  3,
		Elements: []Element{"lithium"},
		Pads: []ProductionPad{
			{
				ID: "PP01",
				Generation: GenerationProfile{
					RateBblPerDay: []float64{1000, 1200, 800},
					Concentration: map[Element][]float64{
						"lithium": {120, 150, 90},
					},
				},
			},
			{
				ID: "PP02",
				Generation: GenerationProfile{
					RateBblPerDay: []float64{500, 500, 500},
					Concentration: map[Element][]float64{
						"lithium": {250, 240, 260},
					},
				},
			},
		},
		Junctions: []Junction{{ID: "N01"}},
		Storage: []Storage{
			{
				ID:                   "S01",
				CapacityBbl:          50000,
				InitialBbl:           5000,
				InitialConcentration: map[Element]float64{"lithium": 110},
				HoldingCostPerBbl:    0.05,
			},
		},
		Disposal: []Disposal{
			{ID: "K01", CapacityBblPerWeek: 30000, FeePerBbl: 0.75},
		},
		Treatment: []TreatmentUnit{
			{
				ID:                    "R01",
				WaterRecovery:         0.7,
				Recovery:              map[Element]float64{"lithium": 0.9995},
				MinInletConcentration: map[Element]float64{"lithium": 100},
				CapacityBblPerWeek:    40000,
				ProductPricePerKg:     map[Element]float64{"lithium": 60},
			},
		},
		Reuse: []Reuse{
			{
				ID:               "W01",
				DemandBblPerWeek: 25000,
				MaxConcentration: map[Element]float64{"lithium": 200},
				CreditPerBbl:     0.25,
			},
		},
		Arcs: []Arc{
			{From: "PP01", To: "N01", CapacityBblPerWeek: 15000, CostPerBbl: 0.10},
			{From: "PP02", To: "N01", CapacityBblPerWeek: 8000, CostPerBbl: 0.12},
			{From: "N01", To: "S01", CapacityBblPerWeek: 20000, CostPerBbl: 0.05},
			{From: "N01", To: "R01", CapacityBblPerWeek: 25000, CostPerBbl: 0.08},
			{From: "S01", To: "R01", CapacityBblPerWeek: 10000, CostPerBbl: 0.06},
			{From: "N01", To: "K01", CapacityBblPerWeek: 10000, CostPerBbl: 0.09},
			{From: "R01.tw", To: "W01", CapacityBblPerWeek: 30000, CostPerBbl: 0.04},
			{From: "R01.cw", To: "K01", CapacityBblPerWeek: 15000, CostPerBbl: 0.07},
		},
	}
}

func TestWeeklyVolume(t *testing.T) {
	cs := makeValidCase()
	got := cs.Pads[0].Generation.WeeklyVolume(1)
	want := 1200.0 * DaysPerWeek
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("WeeklyVolume(1) = %v, want %v", got, want)
	}
}

func TestSiteKinds(t *testing.T) {
	cs := makeValidCase()
	kinds := cs.SiteKinds()

	want := map[string]SiteKind{
		"PP01":   SiteProductionPad,
		"PP02":   SiteProductionPad,
		"N01":    SiteJunction,
		"S01":    SiteStorage,
		"K01":    SiteDisposal,
		"R01":    SiteTreatment,
		"R01.tw": SiteTreatmentPort,
		"R01.cw": SiteTreatmentPort,
		"W01":    SiteReuse,
	}
	if !reflect.DeepEqual(kinds, want) {
		t.Errorf("SiteKinds() = %v, want %v", kinds, want)
	}
}

func TestArcLookups(t *testing.T) {
	cs := makeValidCase()

	into := cs.ArcsInto("R01")
	if len(into) != 2 {
		t.Fatalf("ArcsInto(R01) returned %d arcs, want 2", len(into))
	}
	outOf := cs.ArcsOutOf("N01")
	if len(outOf) != 3 {
		t.Fatalf("ArcsOutOf(N01) returned %d arcs, want 3", len(outOf))
	}
	if got, want := into[0].Key(), "N01->R01"; got != want {
		t.Errorf("arc key = %q, want %q", got, want)
	}
}

func TestUnitLookup(t *testing.T) {
	cs := makeValidCase()

	u, err := cs.Unit("R01")
	if err != nil {
		t.Fatalf("Unit(R01) failed: %v", err)
	}
	if u.TreatedPortID() != "R01.tw" || u.ConcentratePortID() != "R01.cw" {
		t.Errorf("port IDs = %q, %q, want R01.tw, R01.cw", u.TreatedPortID(), u.ConcentratePortID())
	}

	if _, err := cs.Unit("R99"); err == nil {
		t.Errorf("Unit(R99) should fail for unknown unit")
	}
	if _, err := cs.Pad("PP99"); err == nil {
		t.Errorf("Pad(PP99) should fail for unknown pad")
	}
}
