// Package model provides the algebraic optimization model for produced
// water treatment networks, including variables, constraints, objectives
// and the network model builder.
//
// Key Components:
//   - Var / VarSet: bounded decision variables addressed by key, with
//     fix/free bookkeeping. A variable's current value is the warm-start
//     point for the next solve, so staged strategies chain solves by
//     leaving solutions in place.
//   - Expr: affine-plus-bilinear expressions. Flow-times-concentration
//     products are first-class, which is what lets engines tell a linear
//     stage from a bilinear one.
//   - Constraint / ConstraintSet: relational bounds with per-set and
//     per-key activation. Deactivated constraints stay in the model but
//     are invisible to engines.
//   - Objective: named optimization targets. Several may be registered,
//     exactly one may be active when a solve starts.
//   - Build: assembles the full network model (flow balances, capacities,
//     mixing and separation chemistry, cost and revenue objectives) from
//     a core.CaseStudy.
//
// Example usage:
//
//	m, err := model.Build(cs)
//	if err != nil {
//	    return err
//	}
//	if err := m.FixVarSet(model.VarSetConc); err != nil {
//	    return err
//	}
//	if err := m.DeactivateConstraintSets(model.ConcGroups...); err != nil {
//	    return err
//	}
//	// m now presents a linear allocation problem to the engine.
//
// The package is designed to be:
//   - Solver-agnostic: engines consume the active structure through
//     FreeVars and ActiveConstraints and never see inactive parts.
//   - Stable across stages: activation changes never invalidate variable
//     identities, so values survive from one solve to the next.
//   - Deterministic: sets iterate in insertion order, making engine
//     matrices and logs reproducible run to run.
package model
