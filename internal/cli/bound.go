package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/brineworks/treatment-network-optimizer/internal/engines"
	"github.com/brineworks/treatment-network-optimizer/pkg/core"
	"github.com/brineworks/treatment-network-optimizer/pkg/recovery"
)

// runBound prints the greedy and LP theoretical treatable-flow ceilings for
// one treatment unit across every loaded case study.
func runBound(ctx context.Context, args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("bound", pflag.ContinueOnError)
	fs.SetOutput(stdout)
	common := addCommonFlags(fs)
	casePath := fs.String("case", "", "case study file or directory (overrides config)")
	unit := fs.String("unit", "", "treatment unit ID")
	element := fs.String("element", "", "recovered element")
	desired := fs.Float64("desired", 0, "desired concentrate concentration, mg/L")
	if helped, err := parse(fs, args); helped || err != nil {
		return err
	}

	cfg, logger, err := common.load()
	if err != nil {
		return err
	}
	if *unit == "" || *element == "" {
		return fmt.Errorf("--unit and --element are required")
	}
	path := cfg.CaseStudyPath
	if *casePath != "" {
		path = *casePath
	}
	studies, err := loadStudies(ctx, path)
	if err != nil {
		return err
	}

	lp, err := engines.New(engines.BackendSimplex, logger)
	if err != nil {
		return err
	}
	for _, cs := range studies {
		elem := core.Element(*element)
		greedy, err := recovery.MaxTheoreticalFlow(cs, *unit, elem, *desired)
		if err != nil {
			return fmt.Errorf("case study %s: %w", cs.Name, err)
		}
		lpBound, err := recovery.MaxTheoreticalFlowLP(ctx, lp, cs, *unit, elem, *desired)
		if err != nil {
			return fmt.Errorf("case study %s: %w", cs.Name, err)
		}
		fmt.Fprintf(stdout, "%s: unit %s, %s at %g mg/L: greedy %.2f bbl/week, lp %.2f bbl/week\n",
			cs.Name, *unit, *element, *desired, greedy, lpBound)
	}
	return nil
}
