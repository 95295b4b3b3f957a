package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pttsw/wiki-dnd-parser/internal/config"
	"github.com/pttsw/wiki-dnd-parser/internal/output"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Input:  config.InputConfig{PrimaryDir: "en", SecondaryDir: "zh", LoadWorkers: 3},
		Output: config.OutputConfig{Dir: filepath.Join(t.TempDir(), "out"), Sink: config.SinkFile, Workers: 2},
		I18n: config.I18nConfig{
			ForceLocalizedKeys: []string{"name"},
			ForceCommonKeys:    []string{"source"},
			WeaponKeys:         []string{"dmg1"},
			EmptyValue:         "TBD",
		},
		Variant:  config.VariantConfig{SourcePriority: []string{"XPHB", "PHB"}},
		Pipeline: config.PipelineConfig{Phases: []string{"feats"}},
	}
}

func TestApplyOverrides(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	applyOverrides(cfg, Options{Phases: []string{" spells ", "", "spells", "books"}, DryRun: true})
	assert.Equal(t, []string{"spells", "books"}, cfg.Pipeline.Phases)
	assert.True(t, cfg.Pipeline.DryRun)

	cfg = testConfig(t)
	applyOverrides(cfg, Options{})
	assert.Equal(t, []string{"feats"}, cfg.Pipeline.Phases)
	assert.False(t, cfg.Pipeline.DryRun)
}

func TestPipelineOptions(t *testing.T) {
	t.Parallel()

	opts := pipelineOptions(testConfig(t))
	assert.Equal(t, []string{"name"}, opts.Catalog.Rules.ForceLocalized)
	assert.Equal(t, []string{"source"}, opts.Catalog.Rules.ForceCommon)
	assert.Equal(t, []string{"dmg1"}, opts.Catalog.WeaponKeys)
	assert.Equal(t, "TBD", opts.Catalog.EmptyValue)
	assert.Equal(t, []string{"XPHB", "PHB"}, opts.Catalog.SourcePriority)
	assert.Equal(t, 3, opts.LoadWorkers)
}

func TestNewSink_File(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	sink, err := newSink(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })

	assert.IsType(t, &output.FileSink{}, sink)
	info, err := os.Stat(filepath.Join(cfg.Output.Dir, "collection"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestRun_ExplicitConfigMissing(t *testing.T) {
	t.Parallel()

	err := Run(context.Background(), Options{ConfigPath: filepath.Join(t.TempDir(), "absent.yaml")})
	require.Error(t, err)
}
