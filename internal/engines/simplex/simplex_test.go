package simplex

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/go-logr/logr/testr"

	"github.com/brineworks/treatment-network-optimizer/pkg/model"
	"github.com/brineworks/treatment-network-optimizer/pkg/solver"
)

const tol = 1e-6

func near(a, b float64) bool { return math.Abs(a-b) <= 1e-4 }

func TestSolveTransportSplit(t *testing.T) {
	m := model.New("transport")
	vs, err := m.AddVarSet("flow")
	if err != nil {
		t.Fatalf("AddVarSet: %v", err)
	}
	x, _ := vs.Add("cheap", 0, 6, 0)
	y, _ := vs.Add("dear", 0, 10, 0)

	cons, _ := m.AddConstraintSet("balance")
	if _, err := cons.AddEq("demand", model.NewExpr().AddTerm(1, x).AddTerm(1, y), 10); err != nil {
		t.Fatalf("AddEq: %v", err)
	}
	if _, err := m.AddObjective("cost", model.Minimize, model.NewExpr().AddTerm(2, x).AddTerm(3, y)); err != nil {
		t.Fatalf("AddObjective: %v", err)
	}
	if err := m.SetActiveObjective("cost"); err != nil {
		t.Fatalf("SetActiveObjective: %v", err)
	}

	res, err := New(testr.New(t)).Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if err := solver.AssertOptimal(res); err != nil {
		t.Fatalf("AssertOptimal: %v", err)
	}
	if !near(x.Value(), 6) || !near(y.Value(), 4) {
		t.Errorf("(x, y) = (%v, %v), want the cheap route saturated at (6, 4)", x.Value(), y.Value())
	}
	if !near(res.Objective, 24) {
		t.Errorf("objective = %v, want 24", res.Objective)
	}
	if res.Engine != "simplex" {
		t.Errorf("engine = %q, want simplex", res.Engine)
	}
}

func TestSolveMaximize(t *testing.T) {
	m := model.New("pack")
	vs, _ := m.AddVarSet("v")
	x, _ := vs.Add("x", 0, 8, 0)
	y, _ := vs.Add("y", 0, 8, 0)
	cons, _ := m.AddConstraintSet("cap")
	if _, err := cons.Add("total", model.NewExpr().AddTerm(1, x).AddTerm(1, y), math.Inf(-1), 10); err != nil {
		t.Fatalf("Add: %v", err)
	}
	m.AddObjective("throughput", model.Maximize, model.NewExpr().AddTerm(1, x).AddTerm(1, y))
	if err := m.SetActiveObjective("throughput"); err != nil {
		t.Fatalf("SetActiveObjective: %v", err)
	}

	res, err := New(testr.New(t)).Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if err := solver.AssertOptimal(res); err != nil {
		t.Fatalf("AssertOptimal: %v", err)
	}
	if !near(res.Objective, 10) {
		t.Errorf("objective = %v, want 10", res.Objective)
	}
	if !near(x.Value()+y.Value(), 10) {
		t.Errorf("x+y = %v, want the cap binding at 10", x.Value()+y.Value())
	}
}

func TestSolveShiftedLowerBound(t *testing.T) {
	m := model.New("shift")
	vs, _ := m.AddVarSet("v")
	y, _ := vs.Add("y", 1, 10, 5)
	m.AddObjective("cost", model.Minimize, model.NewExpr().AddTerm(1, y))
	if err := m.SetActiveObjective("cost"); err != nil {
		t.Fatalf("SetActiveObjective: %v", err)
	}

	res, err := New(testr.New(t)).Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if err := solver.AssertOptimal(res); err != nil {
		t.Fatalf("AssertOptimal: %v", err)
	}
	if !near(y.Value(), 1) {
		t.Errorf("y = %v, want its lower bound 1", y.Value())
	}
	if !near(res.Objective, 1) {
		t.Errorf("objective = %v, want 1", res.Objective)
	}
}

func TestSolveSplitsUnboundedVariable(t *testing.T) {
	m := model.New("split")
	vs, _ := m.AddVarSet("v")
	x, _ := vs.Add("x", math.Inf(-1), math.Inf(1), 0)
	cons, _ := m.AddConstraintSet("floor")
	if _, err := cons.Add("x", model.NewExpr().AddTerm(1, x), -5, math.Inf(1)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	m.AddObjective("cost", model.Minimize, model.NewExpr().AddTerm(1, x))
	if err := m.SetActiveObjective("cost"); err != nil {
		t.Fatalf("SetActiveObjective: %v", err)
	}

	res, err := New(testr.New(t)).Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if err := solver.AssertOptimal(res); err != nil {
		t.Fatalf("AssertOptimal: %v", err)
	}
	if !near(x.Value(), -5) {
		t.Errorf("x = %v, want -5 through the split columns", x.Value())
	}
	if !near(res.Objective, -5) {
		t.Errorf("objective = %v, want -5", res.Objective)
	}
}

func TestSolveMirrorsUpperOnlyBound(t *testing.T) {
	m := model.New("mirror")
	vs, _ := m.AddVarSet("v")
	x, _ := vs.Add("x", math.Inf(-1), 3, 0)
	m.AddObjective("gain", model.Maximize, model.NewExpr().AddTerm(1, x))
	if err := m.SetActiveObjective("gain"); err != nil {
		t.Fatalf("SetActiveObjective: %v", err)
	}

	res, err := New(testr.New(t)).Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if err := solver.AssertOptimal(res); err != nil {
		t.Fatalf("AssertOptimal: %v", err)
	}
	if !near(x.Value(), 3) {
		t.Errorf("x = %v, want its upper bound 3", x.Value())
	}
	if !near(res.Objective, 3) {
		t.Errorf("objective = %v, want 3", res.Objective)
	}
}

func TestSolveFoldsFixedFactors(t *testing.T) {
	m := model.New("staged")
	vs, _ := m.AddVarSet("v")
	x, _ := vs.Add("x", 1, 10, 5)
	y, _ := vs.Add("y", 0, 10, 0)
	y.FixAt(2)

	// x + x*y with y pinned is linear in the free variables.
	obj := model.NewExpr().AddTerm(1, x).AddBilinear(1, x, y)
	m.AddObjective("cost", model.Minimize, obj)
	if err := m.SetActiveObjective("cost"); err != nil {
		t.Fatalf("SetActiveObjective: %v", err)
	}

	res, err := New(testr.New(t)).Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if err := solver.AssertOptimal(res); err != nil {
		t.Fatalf("AssertOptimal: %v", err)
	}
	if !near(x.Value(), 1) {
		t.Errorf("x = %v, want 1", x.Value())
	}
	if !near(res.Objective, 3) {
		t.Errorf("objective = %v, want 3", res.Objective)
	}
}

func TestSolveRefusesFreeProducts(t *testing.T) {
	m := model.New("bilinear")
	vs, _ := m.AddVarSet("v")
	x, _ := vs.Add("x", 0, 10, 1)
	y, _ := vs.Add("y", 0, 10, 1)
	m.AddObjective("area", model.Maximize, model.NewExpr().AddBilinear(1, x, y))
	if err := m.SetActiveObjective("area"); err != nil {
		t.Fatalf("SetActiveObjective: %v", err)
	}

	res, err := New(testr.New(t)).Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if res.Status != solver.StatusNonlinear {
		t.Fatalf("status = %q, want %q", res.Status, solver.StatusNonlinear)
	}
	if !strings.Contains(res.Message, "product of free variables") {
		t.Errorf("message = %q, want it to name the free product", res.Message)
	}
	if err := solver.AssertOptimal(res); !errors.Is(err, solver.ErrNotOptimal) {
		t.Errorf("AssertOptimal error = %v, want ErrNotOptimal", err)
	}
}

func TestSolveInfeasible(t *testing.T) {
	m := model.New("clash")
	vs, _ := m.AddVarSet("v")
	x, _ := vs.Add("x", 0, 4, 0)
	y, _ := vs.Add("y", 0, 4, 0)
	cons, _ := m.AddConstraintSet("balance")
	if _, err := cons.AddEq("demand", model.NewExpr().AddTerm(1, x).AddTerm(1, y), 10); err != nil {
		t.Fatalf("AddEq: %v", err)
	}
	m.AddObjective("cost", model.Minimize, model.NewExpr().AddTerm(1, x))
	if err := m.SetActiveObjective("cost"); err != nil {
		t.Fatalf("SetActiveObjective: %v", err)
	}

	res, err := New(testr.New(t)).Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if res.Status != solver.StatusInfeasible {
		t.Fatalf("status = %q, want %q", res.Status, solver.StatusInfeasible)
	}
}

func TestSolveUnbounded(t *testing.T) {
	m := model.New("runaway")
	vs, _ := m.AddVarSet("v")
	x, _ := vs.Add("x", 0, math.Inf(1), 0)
	m.AddObjective("gain", model.Maximize, model.NewExpr().AddTerm(1, x))
	if err := m.SetActiveObjective("gain"); err != nil {
		t.Fatalf("SetActiveObjective: %v", err)
	}

	res, err := New(testr.New(t)).Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if res.Status != solver.StatusUnbounded {
		t.Fatalf("status = %q, want %q", res.Status, solver.StatusUnbounded)
	}
}

func TestSolveChecksFullyFixedRows(t *testing.T) {
	m := model.New("pinned-row")
	vs, _ := m.AddVarSet("v")
	x, _ := vs.Add("x", 0, 10, 0)
	y, _ := vs.Add("y", 0, 10, 0)
	y.FixAt(1)

	cons, _ := m.AddConstraintSet("quality")
	if _, err := cons.Add("pinned", model.NewExpr().AddTerm(1, y), 2, math.Inf(1)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	m.AddObjective("cost", model.Minimize, model.NewExpr().AddTerm(1, x))
	if err := m.SetActiveObjective("cost"); err != nil {
		t.Fatalf("SetActiveObjective: %v", err)
	}

	res, err := New(testr.New(t)).Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if res.Status != solver.StatusInfeasible {
		t.Fatalf("status = %q, want %q", res.Status, solver.StatusInfeasible)
	}
	if !strings.Contains(res.Message, "pinned") {
		t.Errorf("message = %q, want it to name the violated row", res.Message)
	}

	// The same row within bounds is dropped, not refused.
	c, _ := cons.Get("pinned")
	c.Deactivate()
	if _, err := cons.Add("loose", model.NewExpr().AddTerm(1, y), 0.5, math.Inf(1)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	res, err = New(testr.New(t)).Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if err := solver.AssertOptimal(res); err != nil {
		t.Fatalf("AssertOptimal: %v", err)
	}
	if !near(x.Value(), 0) {
		t.Errorf("x = %v, want 0", x.Value())
	}
}

func TestSolveUsesAccuracyOption(t *testing.T) {
	m := model.New("tight")
	vs, _ := m.AddVarSet("v")
	x, _ := vs.Add("x", 0, 1, 0)
	cons, _ := m.AddConstraintSet("half")
	if _, err := cons.AddEq("x", model.NewExpr().AddTerm(1, x), 0.5); err != nil {
		t.Fatalf("AddEq: %v", err)
	}
	m.AddObjective("cost", model.Minimize, model.NewExpr().AddTerm(1, x))
	if err := m.SetActiveObjective("cost"); err != nil {
		t.Fatalf("SetActiveObjective: %v", err)
	}

	res, err := New(testr.New(t)).Solve(context.Background(), m, solver.WithAccuracy(tol))
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if err := solver.AssertOptimal(res); err != nil {
		t.Fatalf("AssertOptimal: %v", err)
	}
	if !near(x.Value(), 0.5) {
		t.Errorf("x = %v, want 0.5", x.Value())
	}
}
