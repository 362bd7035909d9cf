package engine

import (
	"context"
	"log/slog"
	"strings"
)

// Generic detector type names recognized in a Config.
const (
	TypeStatistical   = "statistical"
	TypeBusinessRules = "business_rules"
	TypeDataQuality   = "data_quality"
	TypeTimeSeries    = "time_series"
)

// DomainErrorThreshold is the error threshold applied to the IDX table
// detectors unless a stored override says otherwise.
const DomainErrorThreshold = 5

// AmountRange bounds the values of an "amount" column, inclusive on both
// ends; values strictly outside the range are violations.
type AmountRange struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Rules is the business-rule configuration consumed by the business rule and
// data quality detectors. Unknown keys in a stored rule document are ignored.
type Rules struct {
	RequiredFields []string     `json:"required_fields,omitempty" yaml:"required_fields"`
	NoDuplicates   []string     `json:"no_duplicates,omitempty" yaml:"no_duplicates"`
	AmountRange    *AmountRange `json:"amount_range,omitempty" yaml:"amount_range"`
	EmailFormat    bool         `json:"email_format,omitempty" yaml:"email_format"`
}

// Config is the resolved per-table validation configuration. It is immutable
// for the duration of one validation run.
type Config struct {
	Types          []string `json:"types,omitempty" yaml:"types"`
	Rules          Rules    `json:"rules,omitempty" yaml:"rules"`
	TimeColumn     string   `json:"time_column,omitempty" yaml:"time_column"`
	ErrorThreshold int      `json:"error_threshold" yaml:"error_threshold"`

	// DividendAdjustments maps a symbol to a factor applied to its
	// current-year dividend mean before the derived-yield override. This is a
	// data-correction knob, not engine logic; see the dividend detector.
	DividendAdjustments map[string]float64 `json:"dividend_adjustments,omitempty" yaml:"dividend_adjustments"`
}

// HasType reports whether the named generic detector is enabled.
func (c *Config) HasType(name string) bool {
	for _, t := range c.Types {
		if t == name {
			return true
		}
	}
	return false
}

// DefaultConfig returns the built-in validation configuration for a table,
// keyed by name pattern. IDX tables get the domain threshold; other tables
// get a generic detector mix.
func DefaultConfig(table string) *Config {
	lower := strings.ToLower(table)
	switch {
	case IsDomainTable(table):
		cfg := &Config{ErrorThreshold: DomainErrorThreshold}
		if table == TableDividend {
			// BBCA.JK reports dividends on a split-adjusted basis; halve the
			// raw amount before deriving the current-year yield.
			cfg.DividendAdjustments = map[string]float64{"BBCA.JK": 0.5}
		}
		return cfg
	case strings.Contains(lower, "user"):
		return &Config{
			Types: []string{TypeDataQuality, TypeBusinessRules},
			Rules: Rules{
				EmailFormat:    true,
				RequiredFields: []string{"email", "id"},
				NoDuplicates:   []string{"email"},
			},
			ErrorThreshold: 5,
		}
	case strings.Contains(lower, "transaction"):
		return &Config{
			Types: []string{TypeStatistical, TypeBusinessRules, TypeTimeSeries},
			Rules: Rules{
				AmountRange:    &AmountRange{Min: 0, Max: 100000},
				RequiredFields: []string{"amount", "date", "user_id"},
			},
			TimeColumn:     "created_at",
			ErrorThreshold: 10,
		}
	default:
		return &Config{
			Types:          []string{TypeDataQuality, TypeStatistical},
			ErrorThreshold: 5,
		}
	}
}

// ConfigStore supplies stored per-table configuration overrides.
// Implementations return (nil, nil) when no override exists.
type ConfigStore interface {
	ValidationConfig(ctx context.Context, table string) (*Config, error)
}

// Resolver performs the two-step configuration resolution: a stored override
// wins, otherwise the built-in default for the table-name pattern applies.
type Resolver struct {
	store  ConfigStore
	logger *slog.Logger
}

// NewResolver creates a resolver. store may be nil, in which case only the
// built-in defaults are used.
func NewResolver(store ConfigStore, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, logger: logger.With(slog.String("component", "config_resolver"))}
}

// Resolve returns the configuration for a table. A failing override lookup
// falls back to the default rather than failing the run.
func (r *Resolver) Resolve(ctx context.Context, table string) *Config {
	if r.store != nil {
		cfg, err := r.store.ValidationConfig(ctx, table)
		if err != nil {
			r.logger.WarnContext(ctx, "config override lookup failed, using default",
				slog.String("table", table),
				slog.String("error", err.Error()))
		} else if cfg != nil {
			if cfg.ErrorThreshold <= 0 {
				cfg.ErrorThreshold = DefaultConfig(table).ErrorThreshold
			}
			return cfg
		}
	}
	return DefaultConfig(table)
}
