package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 70, cfg.Import.MatchThreshold)
		assert.Equal(t, "UTC", cfg.Import.Timezone)
		assert.False(t, cfg.Observability.MetricsEnabled)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("IMPORT_MATCH_THRESHOLD", "85")
		t.Setenv("IMPORT_TIMEZONE", "Europe/Riga")
		t.Setenv("POSTGRES_DB", "ledger-test")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 85, cfg.Import.MatchThreshold)
		assert.Equal(t, "Europe/Riga", cfg.Import.Timezone)
		assert.Contains(t, cfg.Database.DSN(), "dbname=ledger-test")
	})

	t.Run("out-of-range threshold is rejected", func(t *testing.T) {
		t.Setenv("IMPORT_MATCH_THRESHOLD", "170")
		_, err := Load()
		require.Error(t, err)
	})
}
