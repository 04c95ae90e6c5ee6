package main

import (
	"os"
	"path/filepath"
	"testing"

	appconfig "github.com/fyerfyer/stockplan-extract/config"
	"github.com/fyerfyer/stockplan-extract/internal/export"
	"github.com/fyerfyer/stockplan-extract/internal/section"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDefaultConfig(t *testing.T) *appconfig.Config {
	cfg, err := appconfig.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	return cfg
}

func sampleTables(t *testing.T) []export.Table {
	schema, ok := export.SchemaFor(section.KindRSU)
	require.True(t, ok)
	row := make([]string, len(schema.Columns))
	for i := range row {
		row[i] = "1"
	}
	tables := export.NewTables()
	tables.Append(section.KindRSU, row)
	return tables.List()
}

func TestWriteOutput_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	require.NoError(t, writeOutput(path, export.FormatCSV, sampleTables(t)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Award Date,")
}

func TestWriteOutput_Errors(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "absent", "out.csv")
		assert.Error(t, writeOutput(path, export.FormatCSV, sampleTables(t)))
	})

	t.Run("device full", func(t *testing.T) {
		if _, err := os.Stat("/dev/full"); err != nil {
			t.Skip("/dev/full not available")
		}
		assert.Error(t, writeOutput("/dev/full", export.FormatCSV, sampleTables(t)))
	})
}

func TestApplyFlags(t *testing.T) {
	cfg := mustDefaultConfig(t)

	applyFlags(cfg, flags{Input: "in", Format: "html", Workers: 3, Dump: true})
	assert.Equal(t, "local", cfg.Input.Type)
	assert.Equal(t, "in", cfg.Input.Path)
	assert.Equal(t, "html", cfg.Output.Format)
	assert.Equal(t, 3, cfg.Batch.Workers)
	assert.True(t, cfg.Output.DumpLayout)
	assert.Equal(t, ".", dumpDir(cfg))

	cfg.Output.Path = filepath.Join("reports", "out.csv")
	assert.Equal(t, "reports", dumpDir(cfg))
}
