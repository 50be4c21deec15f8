// Package recovery computes how much produced water a treatment network can
// recover and at what cost.
//
// Two layers answer different questions:
//
//   - MaxTheoreticalFlow / MaxTheoreticalFlowLP: the infrastructure-free
//     ceiling. How much concentrate flow could a unit see if pipes, storage
//     and disposal were unlimited and only the blend quality mattered? The
//     greedy form sorts generation parcels by concentration and accumulates
//     down to the break-even blend; the LP form solves the same allocation
//     as a small linear program for cross-checking.
//   - Strategy: the infrastructure-constrained answer. MaxWithInfrastructure
//     maximizes treatment revenue over the full network model,
//     CostOptimal minimizes its net operating cost.
//
// A Strategy runs each question as two chained solves on one shared model.
// The linear stage pins every concentration at its initial estimate,
// deactivates the concentration rows and solves the remaining flow
// allocation. The bilinear stage frees the concentrations, restores the rows
// and re-solves the full system from the point the linear stage wrote back.
// Any stage terminating non-optimal aborts the run with an error wrapping
// solver.ErrNotOptimal; results are never reported from a failed chain.
//
// Each call builds a fresh model for its case study and returns it inside
// the StagedResult as the solution snapshot. Stage toggles and capacity
// relaxations are left in place on that model, not undone; a later solve
// starts from a new Build.
//
// Example usage:
//
//	strategy, err := recovery.New(linearSolver, bilinearSolver, &recovery.Config{}, logger)
//	if err != nil {
//	    return err
//	}
//	res, err := strategy.CostOptimal(ctx, cs)
//	if err != nil {
//	    return err
//	}
//	logger.Info("solved", "treatmentRevenue", res.TreatmentRevenue)
package recovery
