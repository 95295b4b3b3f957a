package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	logLevels  = []string{"debug", "info", "warn", "warning", "error"}
	logFormats = []string{"json", "text"}
)

// Validate performs rule validation on the loaded configuration and
// normalizes list settings. Load calls it automatically.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Input.PrimaryDir) == "" || strings.TrimSpace(c.Input.SecondaryDir) == "" {
		return errors.New("input.primary_dir and input.secondary_dir are required")
	}
	if c.Input.PrimaryDir == c.Input.SecondaryDir {
		return fmt.Errorf("input dirs must differ (both %q)", c.Input.PrimaryDir)
	}
	if c.Input.LoadWorkers <= 0 {
		return fmt.Errorf("input.load_workers must be > 0 (got %d)", c.Input.LoadWorkers)
	}

	if err := c.Output.validate(); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	if c.Output.Sink == SinkPostgres {
		if err := c.Database.validate(); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}

	if !slices.Contains(logLevels, strings.ToLower(c.Log.Level)) {
		return fmt.Errorf("log.level %q is not one of %v", c.Log.Level, logLevels)
	}
	if !slices.Contains(logFormats, strings.ToLower(c.Log.Format)) {
		return fmt.Errorf("log.format %q is not one of %v", c.Log.Format, logFormats)
	}

	c.I18n.ForceLocalizedKeys = ParseList(c.I18n.ForceLocalizedKeys)
	c.I18n.ForceCommonKeys = ParseList(c.I18n.ForceCommonKeys)
	c.I18n.WeaponKeys = ParseList(c.I18n.WeaponKeys)
	c.I18n.ArmorKeys = ParseList(c.I18n.ArmorKeys)
	for _, k := range c.I18n.ForceLocalizedKeys {
		if slices.Contains(c.I18n.ForceCommonKeys, k) {
			return fmt.Errorf("i18n: key %q is both force-localized and force-common", k)
		}
	}

	c.Variant.SourcePriority = ParseList(c.Variant.SourcePriority)
	c.Pipeline.Phases = ParseList(c.Pipeline.Phases)
	return nil
}

func (o *OutputConfig) validate() error {
	switch o.Sink {
	case SinkFile:
		if strings.TrimSpace(o.Dir) == "" {
			return errors.New("dir is required for the file sink")
		}
	case SinkPostgres:
	default:
		return fmt.Errorf("sink %q is not one of %q, %q", o.Sink, SinkFile, SinkPostgres)
	}
	if o.Workers <= 0 {
		return fmt.Errorf("workers must be > 0 (got %d)", o.Workers)
	}
	return nil
}

func (d *DatabaseConfig) validate() error {
	if d.DSN == "" {
		return errors.New("dsn is required for the postgres sink")
	}
	if d.MaxConns <= 0 || d.MinConns < 0 || d.MinConns > d.MaxConns {
		return fmt.Errorf("conns must satisfy 0 <= min_conns <= max_conns, max_conns > 0 (got %d/%d)", d.MinConns, d.MaxConns)
	}
	if d.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0 (got %d)", d.BatchSize)
	}
	return nil
}

// ParseList trims entries, drops empty ones and duplicates, keeping order.
// A nil or all-empty list returns nil.
func ParseList(raw []string) []string {
	var out []string
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v == "" || slices.Contains(out, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}
