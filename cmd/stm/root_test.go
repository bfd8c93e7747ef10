package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandFlagsHaveExpectedDefaults(t *testing.T) {
	flags := rootCmd.Flags()

	workers, err := flags.GetInt("workers")
	require.NoError(t, err)
	assert.Equal(t, 4, workers)

	quiet, err := flags.GetBool("quiet")
	require.NoError(t, err)
	assert.False(t, quiet)

	rulesDir, err := flags.GetString("rules-dir")
	require.NoError(t, err)
	assert.Empty(t, rulesDir)
}

func TestLoadPriorReportMissingIsNilNil(t *testing.T) {
	dir := t.TempDir()
	r, err := loadPriorReport(dir)
	require.NoError(t, err)
	assert.Nil(t, r)
}
