package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/conorfennell/flashdeck/internal/validate"
)

const (
	envPrefix   = "FLASHDECK_"
	defaultFile = "flashdeck.yaml"
)

func defaults() map[string]any {
	return map[string]any{
		"storage.driver":        "auto",
		"storage.path":          "flashdeck.db",
		"storage.file":          "flashdeck.json",
		"log.level":             "info",
		"log.format":            "text",
		"srs.intervals":         []int{0, 1, 3, 7, 14, 28},
		"srs.long_overdue_days": 7,
		"srs.due_soon_days":     3,
		"srs.penalty_step_days": 3,
		"srs.history_limit":     30,
		"sources.paths":         []string{},
		"sources.repos_dir":     "repos",
		"timezone":              "",
	}
}

// RegisterFlags adds the configuration flags to fs. Flag names double as
// configuration keys.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a YAML config file (default ./"+defaultFile+" when present)")
	fs.String("storage.driver", "auto", "Storage backend: auto, sqlite or file")
	fs.String("storage.path", "flashdeck.db", "Path to the SQLite database file")
	fs.String("storage.file", "flashdeck.json", "Path to the JSON fallback file")
	fs.String("log.level", "info", "Log level: debug, info, warn, error")
	fs.String("log.format", "text", "Log format: text or json")
	fs.String("timezone", "", "IANA timezone used for calendar days (default local)")
}

// Load builds the configuration from, in increasing priority: defaults, the
// YAML file, FLASHDECK_* environment variables and command line flags.
// Nested keys in the environment use a double underscore, e.g.
// FLASHDECK_STORAGE__DRIVER=file.
func Load(fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	path, explicit := configPath(fs)
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config: file %s: %w", path, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if fs != nil {
		if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
			return nil, fmt.Errorf("config: read flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate checks field constraints and the schedule itself.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	return c.SRS.Params().Validate()
}

func configPath(fs *pflag.FlagSet) (string, bool) {
	if fs != nil {
		if p, err := fs.GetString("config"); err == nil && p != "" {
			return p, true
		}
	}
	if p := os.Getenv(envPrefix + "CONFIG"); p != "" {
		return p, true
	}
	return defaultFile, false
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(s, "__", ".")
}
