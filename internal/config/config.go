package config

import (
	"time"

	"github.com/conorfennell/flashdeck/internal/srs"
)

// Config is the root application configuration.
type Config struct {
	Storage  StorageConfig `koanf:"storage"`
	Log      LogConfig     `koanf:"log"`
	SRS      SRSConfig     `koanf:"srs"`
	Sources  SourcesConfig `koanf:"sources"`
	Timezone string        `koanf:"timezone"`
}

// StorageConfig selects and locates the persistence backend.
// Driver "auto" prefers SQLite and falls back to the JSON file.
type StorageConfig struct {
	Driver string `koanf:"driver" validate:"oneof=auto sqlite file"`
	Path   string `koanf:"path"   validate:"required"`
	File   string `koanf:"file"   validate:"required"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level"  validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// SRSConfig holds the scheduling parameters.
type SRSConfig struct {
	Intervals       []int `koanf:"intervals"         validate:"min=1,dive,min=0"`
	LongOverdueDays int   `koanf:"long_overdue_days" validate:"min=1"`
	DueSoonDays     int   `koanf:"due_soon_days"     validate:"min=0"`
	PenaltyStepDays int   `koanf:"penalty_step_days" validate:"min=1"`
	HistoryLimit    int   `koanf:"history_limit"     validate:"min=1"`
}

// SourcesConfig lists where vocabulary files are synced from.
// Each path is a local directory or a git URL.
type SourcesConfig struct {
	Paths    []string `koanf:"paths"     validate:"dive,required"`
	ReposDir string   `koanf:"repos_dir" validate:"required"`
}

// Params converts the SRS settings into engine parameters.
func (c SRSConfig) Params() *srs.Params {
	return &srs.Params{
		Intervals:       append([]int(nil), c.Intervals...),
		LongOverdueDays: c.LongOverdueDays,
		DueSoonDays:     c.DueSoonDays,
		PenaltyStepDays: c.PenaltyStepDays,
	}
}

// Location resolves Timezone, falling back to the local zone.
func (c Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
