package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	prommodel "github.com/prometheus/common/model"
	"github.com/spf13/viper"

	"github.com/brineworks/treatment-network-optimizer/internal/engines"
	"github.com/brineworks/treatment-network-optimizer/pkg/solver"
)

const (
	// DefaultConfigName is the config file stem searched for when no
	// explicit path is given (treatnetopt.yaml in the working directory).
	DefaultConfigName = "treatnetopt"

	// EnvPrefix prefixes environment variable overrides, e.g. TNO_OUTPUTDIR.
	EnvPrefix = "TNO"

	// GlobalDefaultsKey is the solves entry holding defaults for all studies.
	GlobalDefaultsKey = "default"
)

// Solve modes.
const (
	// ModeCostOptimal minimizes net operating cost on the network as built.
	ModeCostOptimal = "cost-optimal"

	// ModeMaxRecovery maximizes treatment revenue with capacity relaxations.
	ModeMaxRecovery = "max-recovery"
)

// Report formats.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// SolveConfig tunes one staged solve. Zero values inherit from the defaults
// entry when the config is read through GetSolveConfig.
type SolveConfig struct {
	// Mode selects the strategy: cost-optimal or max-recovery.
	Mode string `mapstructure:"mode"`

	// LinearBackend and BilinearBackend select the stage engines.
	LinearBackend   string `mapstructure:"linearBackend"`
	BilinearBackend string `mapstructure:"bilinearBackend"`

	// Accuracy is the solver convergence tolerance.
	Accuracy float64 `mapstructure:"accuracy"`

	// MaxIterations caps a stage's major iterations.
	MaxIterations int `mapstructure:"maxIterations"`

	// TimeLimit bounds one staged solve's wall-clock time, as a duration
	// string (e.g. "90s", "5m"). Empty means no limit.
	TimeLimit string `mapstructure:"timeLimit"`

	// Tee echoes solver progress into the log.
	Tee bool `mapstructure:"tee"`

	// FloatOptions holds engine-specific numeric options by name, e.g.
	// pivot tolerances.
	FloatOptions map[string]float64 `mapstructure:"floatOptions"`

	// RelaxDisposals overrides which disposal sites max-recovery relaxes.
	// Nil relaxes every treatment-fed disposal; empty relaxes none.
	RelaxDisposals []string `mapstructure:"relaxDisposals"`
}

// Config is the application configuration for the optimizer CLI.
type Config struct {
	// CaseStudyPath is the case-study file or directory to load.
	CaseStudyPath string `mapstructure:"caseStudyPath"`

	// OutputDir receives solution reports.
	OutputDir string `mapstructure:"outputDir"`

	// ReportFormat is xlsx or csv.
	ReportFormat string `mapstructure:"reportFormat"`

	// Overwrite lets report writers replace existing files.
	Overwrite bool `mapstructure:"overwrite"`

	// MetricsAddr is the listen address for the /metrics endpoint during
	// solve runs. Empty disables the endpoint.
	MetricsAddr string `mapstructure:"metricsAddr"`

	// LogLevel is debug, info or error.
	LogLevel string `mapstructure:"logLevel"`

	// Solves maps case-study names to their solve tuning. The "default"
	// entry supplies values for studies without an override.
	Solves map[string]SolveConfig `mapstructure:"solves"`
}

// Load reads configuration from the given file, or from ./treatnetopt.yaml
// when path is empty, with TNO_* environment variables taking precedence.
// A missing default config file is not an error; a missing explicit one is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		var notFound viper.ConfigFileNotFoundError
		if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("caseStudyPath", "")
	v.SetDefault("outputDir", "reports")
	v.SetDefault("reportFormat", FormatXLSX)
	v.SetDefault("overwrite", false)
	v.SetDefault("metricsAddr", "")
	v.SetDefault("logLevel", "info")
	v.SetDefault("solves.default.mode", ModeCostOptimal)
	v.SetDefault("solves.default.linearBackend", string(engines.BackendSimplex))
	v.SetDefault("solves.default.bilinearBackend", string(engines.BackendSQP))
	v.SetDefault("solves.default.accuracy", 1e-6)
	v.SetDefault("solves.default.maxIterations", 10000)
}

// Validate checks for invalid configuration values.
func (c *Config) Validate() error {
	switch c.ReportFormat {
	case FormatXLSX, FormatCSV:
	default:
		return fmt.Errorf("reportFormat must be %s or %s, got %q", FormatXLSX, FormatCSV, c.ReportFormat)
	}
	switch c.LogLevel {
	case "debug", "info", "error":
	default:
		return fmt.Errorf("logLevel must be debug, info or error, got %q", c.LogLevel)
	}

	names := make([]string, 0, len(c.Solves))
	for name := range c.Solves {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := c.Solves[name].validate(); err != nil {
			return fmt.Errorf("solves.%s: %w", name, err)
		}
	}
	return nil
}

func (sc SolveConfig) validate() error {
	switch sc.Mode {
	case "", ModeCostOptimal, ModeMaxRecovery:
	default:
		return fmt.Errorf("mode must be %s or %s, got %q", ModeCostOptimal, ModeMaxRecovery, sc.Mode)
	}
	for _, backend := range []string{sc.LinearBackend, sc.BilinearBackend} {
		switch engines.Backend(backend) {
		case "", engines.BackendSimplex, engines.BackendSQP:
		default:
			return fmt.Errorf("unknown solver backend %q", backend)
		}
	}
	if sc.Accuracy < 0 {
		return fmt.Errorf("accuracy must be positive, got %v", sc.Accuracy)
	}
	if sc.MaxIterations < 0 {
		return fmt.Errorf("maxIterations must be positive, got %d", sc.MaxIterations)
	}
	if sc.TimeLimit != "" {
		if _, err := prommodel.ParseDuration(sc.TimeLimit); err != nil {
			return fmt.Errorf("invalid timeLimit: %w", err)
		}
	}
	return nil
}

// GetSolveConfig returns the effective solve tuning for a case study,
// merging its override entry with the global defaults.
func (c *Config) GetSolveConfig(study string) SolveConfig {
	defaults := c.Solves[GlobalDefaultsKey]
	override, has := c.Solves[study]
	if !has {
		return defaults
	}

	result := defaults
	if override.Mode != "" {
		result.Mode = override.Mode
	}
	if override.LinearBackend != "" {
		result.LinearBackend = override.LinearBackend
	}
	if override.BilinearBackend != "" {
		result.BilinearBackend = override.BilinearBackend
	}
	if override.Accuracy != 0 {
		result.Accuracy = override.Accuracy
	}
	if override.MaxIterations != 0 {
		result.MaxIterations = override.MaxIterations
	}
	if override.TimeLimit != "" {
		result.TimeLimit = override.TimeLimit
	}
	if override.Tee {
		result.Tee = true
	}
	if override.FloatOptions != nil {
		result.FloatOptions = override.FloatOptions
	}
	if override.RelaxDisposals != nil {
		result.RelaxDisposals = override.RelaxDisposals
	}
	return result
}

// SolverOptions converts the tuning into solver options. Float options are
// applied in name order so option construction is deterministic.
func (sc SolveConfig) SolverOptions() []solver.Option {
	var opts []solver.Option
	if sc.Accuracy > 0 {
		opts = append(opts, solver.WithAccuracy(sc.Accuracy))
	}
	if sc.MaxIterations > 0 {
		opts = append(opts, solver.WithMaxIterations(sc.MaxIterations))
	}
	if sc.Tee {
		opts = append(opts, solver.WithTee(true))
	}
	if d := sc.timeLimit(); d > 0 {
		opts = append(opts, solver.WithTimeLimit(d))
	}
	names := make([]string, 0, len(sc.FloatOptions))
	for name := range sc.FloatOptions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		opts = append(opts, solver.WithFloatOption(name, sc.FloatOptions[name]))
	}
	return opts
}

// TimeBudget returns the solve's wall-clock budget, zero when unset.
// Validate has already checked the duration string.
func (sc SolveConfig) TimeBudget() time.Duration {
	return sc.timeLimit()
}

func (sc SolveConfig) timeLimit() time.Duration {
	if sc.TimeLimit == "" {
		return 0
	}
	d, err := prommodel.ParseDuration(sc.TimeLimit)
	if err != nil {
		return 0
	}
	return time.Duration(d)
}
