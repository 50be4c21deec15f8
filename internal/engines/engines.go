// Package engines provides the solver engines that back the pkg/solver
// contract and a factory to select one by name.
package engines

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/brineworks/treatment-network-optimizer/internal/engines/simplex"
	"github.com/brineworks/treatment-network-optimizer/internal/engines/sqp"
	"github.com/brineworks/treatment-network-optimizer/pkg/solver"
)

// Backend is an enumeration of the available solver engines.
type Backend string

const (
	// BackendSQP is the sequential least squares programming engine. It
	// handles the bilinear stages and is the default.
	BackendSQP Backend = "sqp"
	// BackendSimplex is the dense simplex engine. It refuses models whose
	// active parts are not linear in the free variables.
	BackendSimplex Backend = "simplex"
)

// New is a factory that creates a solver engine for the given backend.
func New(backend Backend, log logr.Logger) (solver.Solver, error) {
	switch backend {
	case BackendSQP:
		return sqp.New(log), nil
	case BackendSimplex:
		return simplex.New(log), nil
	default:
		return nil, fmt.Errorf("unsupported solver backend: %q", backend)
	}
}
