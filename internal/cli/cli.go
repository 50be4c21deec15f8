// Package cli implements the treatnetopt command line interface: the bound,
// solve and quakes modes, flag parsing and config resolution.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-logr/logr"
	"github.com/spf13/pflag"

	"github.com/brineworks/treatment-network-optimizer/internal/casestudy"
	"github.com/brineworks/treatment-network-optimizer/internal/config"
	"github.com/brineworks/treatment-network-optimizer/internal/logging"
	"github.com/brineworks/treatment-network-optimizer/pkg/core"
)

const usageText = `treatnetopt optimizes produced-water treatment networks.

Usage:
  treatnetopt <mode> [flags]

Modes:
  bound   print the theoretical treatable-flow ceiling for a treatment unit
  solve   run the staged solve for every loaded case study and write reports
  quakes  rank recent catalog earthquakes by distance to the disposal wells

Run "treatnetopt <mode> --help" for the mode's flags.
`

// Run executes one CLI invocation. args is os.Args without the program name.
func Run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, usageText)
		return fmt.Errorf("a mode is required: bound, solve or quakes")
	}
	mode, rest := args[0], args[1:]
	switch mode {
	case "bound":
		return runBound(ctx, rest, stdout)
	case "solve":
		return runSolve(ctx, rest, stdout)
	case "quakes":
		return runQuakes(ctx, rest, stdout)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usageText)
		return nil
	default:
		return fmt.Errorf("unknown mode %q (want bound, solve or quakes)", mode)
	}
}

// commonFlags are shared by every mode.
type commonFlags struct {
	configPath string
	logLevel   string
	dev        bool
}

func addCommonFlags(fs *pflag.FlagSet) *commonFlags {
	c := &commonFlags{}
	fs.StringVarP(&c.configPath, "config", "c", "", "config file (default ./treatnetopt.yaml)")
	fs.StringVar(&c.logLevel, "log-level", "", "log level: debug, info or error (overrides config)")
	fs.BoolVar(&c.dev, "dev", false, "human-readable console logging")
	return c
}

// load reads the config file and builds the logger, flag overrides applied.
func (c *commonFlags) load() (*config.Config, logr.Logger, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, logr.Logger{}, err
	}
	level := cfg.LogLevel
	if c.logLevel != "" {
		level = c.logLevel
	}
	logger, err := logging.NewLogger(level, c.dev)
	if err != nil {
		return nil, logr.Logger{}, err
	}
	return cfg, logger, nil
}

// parse runs the flag set and swallows the help pseudo-error.
func parse(fs *pflag.FlagSet, args []string) (bool, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

// loadStudies resolves the case-study path into loaded, validated studies.
func loadStudies(ctx context.Context, path string) ([]*core.CaseStudy, error) {
	if path == "" {
		return nil, fmt.Errorf("no case study path given (set caseStudyPath in the config or pass --case)")
	}
	src, err := casestudy.NewFileSource(path)
	if err != nil {
		return nil, err
	}
	return src.Load(ctx)
}
