package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandWiring(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"migrate", "demandcheck", "performance", "aoa", "occupations", "serve"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestPerformanceSubcommands(t *testing.T) {
	sub := make(map[string]bool)
	for _, c := range performanceCmd.Commands() {
		sub[c.Name()] = true
	}
	assert.True(t, sub["calc"])
	assert.True(t, sub["backfill"])
	assert.True(t, sub["export"])
}

func TestDemandcheckRequiresMandateFlag(t *testing.T) {
	flag := demandcheckCmd.PersistentFlags().Lookup("mandate")
	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)
}
