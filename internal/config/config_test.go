package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "v2", cfg.Performance.AlgoVersion)
	assert.Equal(t, 12, cfg.Performance.RememberWindowMonths)
	assert.Equal(t, "aoa_group", cfg.AOA.TestGroup)
	assert.Equal(t, 50, cfg.AOA.TestPercentage)
	assert.Equal(t, "berufsunfaehigkeit", cfg.AOA.AllocationCategory)
	assert.False(t, cfg.Salesforce.EventsEnabled)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("BROKERAGE_STORE_DRIVER", "sqlite")
	t.Setenv("BROKERAGE_AOA_TEST_PERCENTAGE", "25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 25, cfg.AOA.TestPercentage)
}

func TestPerformanceConfig_EpochDate(t *testing.T) {
	c := PerformanceConfig{Epoch: "2024-01-01"}
	d, err := c.EpochDate()
	require.NoError(t, err)
	assert.Equal(t, 2024, d.Year())

	c.Epoch = "not-a-date"
	_, err = c.EpochDate()
	assert.Error(t, err)
}

func TestInitLogger_BadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "nope", Format: "json"})
	assert.Error(t, err)
}
