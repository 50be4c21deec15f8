// Package casestudy loads treatment-network case studies from disk.
//
// Case studies are YAML documents decoding into core.CaseStudy. Decoding is
// strict: unknown fields fail the load. Every loaded study is validated
// before it is returned, so consumers never see an ill-posed network.
//
// # Key Components
//
// Source interface:
//   - Name(): source identifier for logs
//   - Load(): all case studies the source provides
//
// FileSource:
//   - single file: one study
//   - directory: every .yaml/.yml entry, loaded concurrently, sorted by
//     study name, duplicate names rejected
//
// # Usage Example
//
//	src, err := casestudy.NewFileSource("case-studies/")
//	if err != nil {
//	    return err
//	}
//	studies, err := src.Load(ctx)
package casestudy
