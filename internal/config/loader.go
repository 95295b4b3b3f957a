package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// defaultPath is read when CONFIG_PATH is unset.
const defaultPath = "./config.yaml"

// Load resolves the run configuration. Environment variables win over the
// YAML file named by CONFIG_PATH, which wins over env-default tags. An unset
// CONFIG_PATH tolerates a missing ./config.yaml.
func Load() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	return LoadPath(path, path != "")
}

// LoadPath is Load with an explicit file. When explicit is false a missing
// file falls back to ENV + defaults.
func LoadPath(path string, explicit bool) (*Config, error) {
	var cfg Config
	if path == "" {
		path = defaultPath
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config: file %s: %w", path, err)
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config: read env: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	return &cfg, nil
}
