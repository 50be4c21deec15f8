package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/pflag"

	"github.com/brineworks/treatment-network-optimizer/internal/config"
	"github.com/brineworks/treatment-network-optimizer/internal/engines"
	"github.com/brineworks/treatment-network-optimizer/internal/metrics"
	"github.com/brineworks/treatment-network-optimizer/internal/report"
	"github.com/brineworks/treatment-network-optimizer/pkg/core"
	"github.com/brineworks/treatment-network-optimizer/pkg/recovery"
)

// runSolve executes the configured staged solve for every loaded case study
// and writes one report per study.
func runSolve(ctx context.Context, args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("solve", pflag.ContinueOnError)
	fs.SetOutput(stdout)
	common := addCommonFlags(fs)
	casePath := fs.String("case", "", "case study file or directory (overrides config)")
	outputDir := fs.String("output-dir", "", "report directory (overrides config)")
	format := fs.String("format", "", "report format, xlsx or csv (overrides config)")
	overwrite := fs.Bool("overwrite", false, "replace existing reports")
	metricsAddr := fs.String("metrics-addr", "", "listen address for /metrics, e.g. :9090")
	if helped, err := parse(fs, args); helped || err != nil {
		return err
	}

	cfg, logger, err := common.load()
	if err != nil {
		return err
	}
	if *casePath != "" {
		cfg.CaseStudyPath = *casePath
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if *format != "" {
		cfg.ReportFormat = *format
	}
	if *overwrite {
		cfg.Overwrite = true
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	studies, err := loadStudies(ctx, cfg.CaseStudyPath)
	if err != nil {
		return err
	}

	var recorder *metrics.Recorder
	if cfg.MetricsAddr != "" {
		recorder = metrics.NewRecorder()
		mux := http.NewServeMux()
		mux.Handle("/metrics", recorder.Handler())
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error(err, "Metrics endpoint failed")
			}
		}()
		defer srv.Close()
		logger.Info("Serving metrics", "addr", cfg.MetricsAddr)
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return err
	}
	for _, cs := range studies {
		if err := solveStudy(ctx, cs, cfg, recorder, logger, stdout); err != nil {
			return fmt.Errorf("case study %s: %w", cs.Name, err)
		}
	}
	return nil
}

func solveStudy(ctx context.Context, cs *core.CaseStudy, cfg *config.Config, recorder *metrics.Recorder, logger logr.Logger, stdout io.Writer) error {
	sc := cfg.GetSolveConfig(cs.Name)

	linear, err := engines.New(engines.Backend(sc.LinearBackend), logger)
	if err != nil {
		return err
	}
	bilinear, err := engines.New(engines.Backend(sc.BilinearBackend), logger)
	if err != nil {
		return err
	}

	opts := sc.SolverOptions()
	strategyCfg := &recovery.Config{
		LinearOptions:   opts,
		BilinearOptions: opts,
		RelaxDisposals:  sc.RelaxDisposals,
	}
	if recorder != nil {
		strategyCfg.Recorder = recorder.ForStrategy(sc.Mode)
	}
	strategy, err := recovery.New(linear, bilinear, strategyCfg, logger.WithValues("study", cs.Name))
	if err != nil {
		return err
	}

	if budget := sc.TimeBudget(); budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	start := time.Now()
	logger.Info("Solving case study", "study", cs.Name, "mode", sc.Mode)
	var res *recovery.StagedResult
	switch sc.Mode {
	case config.ModeMaxRecovery:
		res, err = strategy.MaxWithInfrastructure(ctx, cs)
	case config.ModeCostOptimal:
		res, err = strategy.CostOptimal(ctx, cs)
	default:
		return fmt.Errorf("unknown mode %q", sc.Mode)
	}
	if err != nil {
		return err
	}
	logger.Info("Case study solved", "study", cs.Name, "elapsed", time.Since(start))

	path := filepath.Join(cfg.OutputDir, cs.Name+"."+cfg.ReportFormat)
	if err := report.Write(res, path, cfg.Overwrite); err != nil {
		return err
	}

	final := res.Stages[len(res.Stages)-1]
	fmt.Fprintf(stdout, "%s: %s objective %.2f, treatment revenue %.2f, report %s\n",
		cs.Name, sc.Mode, final.Objective, res.TreatmentRevenue, path)
	return nil
}
