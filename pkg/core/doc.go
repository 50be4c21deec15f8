// Package core provides the domain model for produced-water treatment networks.
//
// This package contains the entities a case study is made of and the
// relationships between them:
//
//   - ProductionPad: produced-water sources with per-period generation profiles
//   - Junction: mixing/splitting nodes without storage
//   - Storage: buffered nodes with inventory, capacity and holding cost
//   - Disposal: injection sites with weekly capacity and fees
//   - TreatmentUnit: units with water-recovery and element-recovery efficiencies
//   - Reuse: beneficial-reuse outlets with demand caps and quality limits
//   - Arc: directed, capacitated, costed connections between sites
//   - CaseStudy: a full network plus planning horizon and element list
//
// These types are the input to the model builder in pkg/model and to the
// theoretical-recovery routines in pkg/recovery.
//
// Example usage:
//
//	cs, err := casestudy.LoadFile(ctx, "testdata/base_case.yaml")
//	if err != nil {
//	    return err
//	}
//	if err := cs.Validate(); err != nil {
//	    return fmt.Errorf("invalid case study: %w", err)
//	}
//	fed, err := cs.TreatmentFedDisposals()
//
// The core package is designed to be:
//   - Pure domain logic, independent of solvers and file formats
//   - Validated up front, so downstream builders never see ill-posed input
//   - Value-oriented: case studies are plain data, safe to copy
package core
