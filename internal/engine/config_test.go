package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	t.Run("user tables get quality and rules", func(t *testing.T) {
		cfg := DefaultConfig("app_users")
		assert.Equal(t, []string{TypeDataQuality, TypeBusinessRules}, cfg.Types)
		assert.True(t, cfg.Rules.EmailFormat)
		assert.Equal(t, []string{"email", "id"}, cfg.Rules.RequiredFields)
		assert.Equal(t, []string{"email"}, cfg.Rules.NoDuplicates)
		assert.Equal(t, 5, cfg.ErrorThreshold)
	})

	t.Run("transaction tables get statistical rules and time series", func(t *testing.T) {
		cfg := DefaultConfig("payment_transactions")
		assert.Equal(t, []string{TypeStatistical, TypeBusinessRules, TypeTimeSeries}, cfg.Types)
		require.NotNil(t, cfg.Rules.AmountRange)
		assert.Equal(t, 0.0, cfg.Rules.AmountRange.Min)
		assert.Equal(t, 100000.0, cfg.Rules.AmountRange.Max)
		assert.Equal(t, "created_at", cfg.TimeColumn)
		assert.Equal(t, 10, cfg.ErrorThreshold)
	})

	t.Run("unknown tables get the generic pair", func(t *testing.T) {
		cfg := DefaultConfig("inventory")
		assert.Equal(t, []string{TypeDataQuality, TypeStatistical}, cfg.Types)
		assert.Equal(t, 5, cfg.ErrorThreshold)
	})

	t.Run("IDX tables get the domain threshold", func(t *testing.T) {
		cfg := DefaultConfig(TableAnnualFinancials)
		assert.Empty(t, cfg.Types)
		assert.Equal(t, DomainErrorThreshold, cfg.ErrorThreshold)
	})

	t.Run("dividend table carries the BBCA adjustment", func(t *testing.T) {
		cfg := DefaultConfig(TableDividend)
		assert.Equal(t, 0.5, cfg.DividendAdjustments["BBCA.JK"])
	})
}

// stubConfigStore returns a fixed override or error.
type stubConfigStore struct {
	cfg *Config
	err error
}

func (s *stubConfigStore) ValidationConfig(context.Context, string) (*Config, error) {
	return s.cfg, s.err
}

func TestResolver(t *testing.T) {
	t.Run("stored override wins", func(t *testing.T) {
		override := &Config{Types: []string{TypeStatistical}, ErrorThreshold: 3}
		r := NewResolver(&stubConfigStore{cfg: override}, nil)

		cfg := r.Resolve(context.Background(), "inventory")
		assert.Equal(t, []string{TypeStatistical}, cfg.Types)
		assert.Equal(t, 3, cfg.ErrorThreshold)
	})

	t.Run("override without threshold inherits the default", func(t *testing.T) {
		r := NewResolver(&stubConfigStore{cfg: &Config{Types: []string{TypeStatistical}}}, nil)
		cfg := r.Resolve(context.Background(), "payment_transactions")
		assert.Equal(t, 10, cfg.ErrorThreshold)
	})

	t.Run("lookup failure falls back to the default", func(t *testing.T) {
		r := NewResolver(&stubConfigStore{err: errors.New("store down")}, nil)
		cfg := r.Resolve(context.Background(), "app_users")
		assert.Equal(t, []string{TypeDataQuality, TypeBusinessRules}, cfg.Types)
	})

	t.Run("nil store uses defaults", func(t *testing.T) {
		r := NewResolver(nil, nil)
		cfg := r.Resolve(context.Background(), "inventory")
		assert.Equal(t, []string{TypeDataQuality, TypeStatistical}, cfg.Types)
	})
}
