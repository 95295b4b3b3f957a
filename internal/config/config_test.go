package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func writeYAML(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	return path
}

const validYAML = `
input:
  primary_dir: "/data/5etools/data"
  secondary_dir: "/data/5etools-zh/data"
  load_workers: 2

output:
  dir: "/tmp/wiki"
  sink: "file"
  workers: 4
  workbook: false

database:
  dsn: "postgres://u:p@localhost:5432/wiki"
  max_conn_lifetime: "2h"

log:
  level: "debug"
  format: "text"

i18n:
  force_localized_keys: ["name", " entries ", "name"]
  force_common_keys: ["source"]
  weapon_keys: ["dmg1", "dmg2"]
  empty_value: "待翻译"

variant:
  source_priority: ["XPHB", "PHB"]

pipeline:
  phases: ["books", "feats"]
  dry_run: true
`

func validConfig() *Config {
	return &Config{
		Input:    InputConfig{PrimaryDir: "/en", SecondaryDir: "/zh", LoadWorkers: 4},
		Output:   OutputConfig{Dir: "/out", Sink: SinkFile, Workers: 8},
		Database: DatabaseConfig{MaxConns: 10, MinConns: 1, BatchSize: 500},
		Log:      LogConfig{Level: "info", Format: "json"},
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_PATH", writeYAML(t, dir, validYAML))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Input.PrimaryDir != "/data/5etools/data" {
		t.Errorf("input.primary_dir = %q", cfg.Input.PrimaryDir)
	}
	if cfg.Input.PrimaryLang != "en" {
		t.Errorf("input.primary_lang = %q, want default en", cfg.Input.PrimaryLang)
	}
	if cfg.Input.LoadWorkers != 2 {
		t.Errorf("input.load_workers = %d, want 2", cfg.Input.LoadWorkers)
	}
	if cfg.Output.Workers != 4 || cfg.Output.Workbook {
		t.Errorf("output = %+v", cfg.Output)
	}
	if cfg.Database.MaxConnLifetime != 2*time.Hour {
		t.Errorf("database.max_conn_lifetime = %v, want 2h", cfg.Database.MaxConnLifetime)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("log = %+v", cfg.Log)
	}
	if want := []string{"name", "entries"}; !slices.Equal(cfg.I18n.ForceLocalizedKeys, want) {
		t.Errorf("i18n.force_localized_keys = %v, want %v", cfg.I18n.ForceLocalizedKeys, want)
	}
	if cfg.I18n.EmptyValue != "待翻译" {
		t.Errorf("i18n.empty_value = %q", cfg.I18n.EmptyValue)
	}
	if cfg.I18n.ArmorKeys != nil {
		t.Errorf("i18n.armor_keys = %v, want nil", cfg.I18n.ArmorKeys)
	}
	if want := []string{"XPHB", "PHB"}; !slices.Equal(cfg.Variant.SourcePriority, want) {
		t.Errorf("variant.source_priority = %v, want %v", cfg.Variant.SourcePriority, want)
	}
	if !cfg.Pipeline.DryRun || len(cfg.Pipeline.Phases) != 2 {
		t.Errorf("pipeline = %+v", cfg.Pipeline)
	}
}

func TestLoad_ENVOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_PATH", writeYAML(t, dir, validYAML))
	t.Setenv("OUTPUT_WORKERS", "16")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Output.Workers != 16 {
		t.Errorf("output.workers = %d, want 16 (ENV override)", cfg.Output.Workers)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log.level = %q, want warn (ENV override)", cfg.Log.Level)
	}
}

func TestLoad_NoFile_ENVOnly(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("VARIANT_SOURCE_PRIORITY", "XDMG, DMG")
	origDir, _ := os.Getwd()
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	_ = os.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Output.Sink != SinkFile {
		t.Errorf("output.sink = %q, want default file", cfg.Output.Sink)
	}
	if cfg.Input.SecondaryDir != "./data/zh" {
		t.Errorf("input.secondary_dir = %q, want default", cfg.Input.SecondaryDir)
	}
	if want := []string{"XDMG", "DMG"}; !slices.Equal(cfg.Variant.SourcePriority, want) {
		t.Errorf("variant.source_priority = %v, want %v", cfg.Variant.SourcePriority, want)
	}
	if want := []string{"name", "entries"}; !slices.Equal(cfg.I18n.ForceLocalizedKeys, want) {
		t.Errorf("i18n.force_localized_keys = %v, want default %v", cfg.I18n.ForceLocalizedKeys, want)
	}
}

func TestLoad_ExplicitPathNotFound(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/nonexistent/config.yaml")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing explicit config path")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_PATH", writeYAML(t, dir, `{{{invalid yaml`))

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing primary dir", mutate: func(c *Config) { c.Input.PrimaryDir = " " }, wantErr: true},
		{name: "same dirs", mutate: func(c *Config) { c.Input.SecondaryDir = c.Input.PrimaryDir }, wantErr: true},
		{name: "zero load workers", mutate: func(c *Config) { c.Input.LoadWorkers = 0 }, wantErr: true},
		{name: "unknown sink", mutate: func(c *Config) { c.Output.Sink = "s3" }, wantErr: true},
		{name: "file sink without dir", mutate: func(c *Config) { c.Output.Dir = "" }, wantErr: true},
		{name: "zero workers", mutate: func(c *Config) { c.Output.Workers = 0 }, wantErr: true},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Output.Sink = SinkPostgres }, wantErr: true},
		{name: "postgres with dsn", mutate: func(c *Config) {
			c.Output.Sink = SinkPostgres
			c.Database.DSN = "postgres://localhost/wiki"
		}},
		{name: "postgres min above max", mutate: func(c *Config) {
			c.Output.Sink = SinkPostgres
			c.Database.DSN = "postgres://localhost/wiki"
			c.Database.MinConns = 20
		}, wantErr: true},
		{name: "dsn ignored for file sink", mutate: func(c *Config) { c.Database.BatchSize = 0 }},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "verbose" }, wantErr: true},
		{name: "bad log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: true},
		{name: "conflicting force keys", mutate: func(c *Config) {
			c.I18n.ForceLocalizedKeys = []string{"name"}
			c.I18n.ForceCommonKeys = []string{" name"}
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{name: "nil", in: nil, want: nil},
		{name: "blank entries", in: []string{"", "  "}, want: nil},
		{name: "trim and dedup", in: []string{" a", "b ", "a"}, want: []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ParseList(tt.in); !slices.Equal(got, tt.want) {
				t.Errorf("ParseList(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
