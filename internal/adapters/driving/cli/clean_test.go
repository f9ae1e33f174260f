package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/finlit/internal/core/ports/driving"
)

func TestCleanCmd_Use(t *testing.T) {
	assert.Equal(t, "clean [chunk-dir]", cleanCmd.Use)
}

func TestCleanCmd_OutFlag(t *testing.T) {
	flag := cleanCmd.Flags().Lookup("out")
	require.NotNil(t, flag)
	assert.Equal(t, "o", flag.Shorthand)
	assert.Equal(t, defaultCleanChunkDir, flag.DefValue)
}

func TestCleanCmd_DefaultDirectories(t *testing.T) {
	env := setupTestServices(t)

	_, err := runCommand("clean")
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"data_chunks", "data_clean_chunks"}}, env.ingest.cleanIOs)
	assert.Equal(t, Need(0), env.need)
}

func TestCleanCmd_PrintsReport(t *testing.T) {
	env := setupTestServices(t)
	env.ingest.clean = []driving.CleanReport{
		{Path: "raw/saving.jsonl", Total: 10, Kept: 8, Skipped: 1},
		{Path: "raw/budget.jsonl", Total: 4, Kept: 4},
	}

	out, err := runCommand("clean", "raw", "-o", "clean")
	require.NoError(t, err)

	assert.Contains(t, out, "saving.jsonl: kept 8 of 10 chunks (1 malformed)")
	assert.Contains(t, out, "budget.jsonl: kept 4 of 4 chunks\n")
	assert.Contains(t, out, "Kept 12 of 14 chunks in 2 files -> clean")
	assert.Equal(t, [][2]string{{"raw", "clean"}}, env.ingest.cleanIOs)
}

func TestCleanCmd_NoFiles(t *testing.T) {
	setupTestServices(t)

	out, err := runCommand("clean", "raw")
	require.NoError(t, err)
	assert.Contains(t, out, "No chunk files found in raw")
}

func TestCleanCmd_Error(t *testing.T) {
	env := setupTestServices(t)
	env.ingest.err = errors.New("permission denied")

	_, err := runCommand("clean")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clean failed: permission denied")
}
