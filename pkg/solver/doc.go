// Package solver defines the engine-facing contract for optimizing
// treatment network models.
//
// A Solver consumes the active structure of a model.Model (free variables,
// active constraints, the single active objective), starts from the
// variables' current values and writes the solution back into them. The
// write-back is what makes staged strategies work: the next stage picks up
// where the last one finished without copying anything.
//
// Result reports the termination status. Strategies never inspect engine
// internals; they call AssertOptimal and stop hard on anything but
// StatusOptimal, wrapping ErrNotOptimal so callers can errors.Is on it.
//
// Options carries the shared tuning surface (accuracy, iteration budget,
// progress tee, time limit) plus engine-specific numeric knobs by name.
// Engines ignore what they cannot map.
package solver
