// Package config holds the tunables of the extraction pipeline.
package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/pable/cs-round-features/internal/logger"
	"github.com/pable/cs-round-features/internal/model"
	"github.com/pable/cs-round-features/internal/snapshot"
	"github.com/pable/cs-round-features/internal/validate"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Workers bounds how many matches are processed at once.
	Workers int `koanf:"workers"`

	// FreezeOffsetSeconds places the snapshot target after freeze time ends.
	FreezeOffsetSeconds float64 `koanf:"freeze_offset_seconds"`

	// SnapshotToleranceSeconds is how far a snapshot may sit from the target.
	SnapshotToleranceSeconds float64 `koanf:"snapshot_tolerance_seconds"`

	// MoneyCap is the per-player money limit.
	MoneyCap int `koanf:"money_cap"`

	RosterSize int `koanf:"roster_size"`

	// RegulationSwitchRound is the first round after the regulation side switch.
	RegulationSwitchRound int `koanf:"regulation_switch_round"`

	// OvertimeSwitchInterval is the length of an overtime half in rounds.
	OvertimeSwitchInterval int `koanf:"overtime_switch_interval"`

	// PistolRoundMoney is each player's money in the first round.
	PistolRoundMoney int `koanf:"pistol_round_money"`

	// SampleIntervalSeconds is how often the demo adapter samples players.
	SampleIntervalSeconds float64 `koanf:"sample_interval_seconds"`
}

// New returns a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:                 "info",
		Workers:                  runtime.NumCPU(),
		FreezeOffsetSeconds:      2.0,
		SnapshotToleranceSeconds: 0.5,
		MoneyCap:                 16000,
		RosterSize:               5,
		RegulationSwitchRound:    13,
		OvertimeSwitchInterval:   3,
		PistolRoundMoney:         800,
		SampleIntervalSeconds:    0.25,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	checks := []struct {
		ok  bool
		msg string
	}{
		{c.Workers > 0, "workers must be positive"},
		{c.FreezeOffsetSeconds >= 0, "freeze_offset_seconds must not be negative"},
		{c.SnapshotToleranceSeconds >= 0, "snapshot_tolerance_seconds must not be negative"},
		{c.MoneyCap > 0, "money_cap must be positive"},
		{c.RosterSize > 0, "roster_size must be positive"},
		{c.RegulationSwitchRound > 1, "regulation_switch_round must be greater than 1"},
		{c.OvertimeSwitchInterval > 0, "overtime_switch_interval must be positive"},
		{c.PistolRoundMoney >= 0, "pistol_round_money must not be negative"},
		{c.SampleIntervalSeconds > 0, "sample_interval_seconds must be positive"},
	}
	for _, ch := range checks {
		if !ch.ok {
			return fmt.Errorf("%w: %s", ErrInvalidConfig, ch.msg)
		}
	}
	return nil
}

// Schedule is the side switch schedule.
func (c *Config) Schedule() model.Schedule {
	return model.Schedule{
		RegulationSwitchRound:  c.RegulationSwitchRound,
		OvertimeSwitchInterval: c.OvertimeSwitchInterval,
	}
}

// Window is the snapshot selection window.
func (c *Config) Window() snapshot.Window {
	return snapshot.Window{
		Offset:    seconds(c.FreezeOffsetSeconds),
		Tolerance: seconds(c.SnapshotToleranceSeconds),
	}
}

// Limits are the validation bounds.
func (c *Config) Limits() validate.Limits {
	return validate.Limits{
		MoneyCap:    c.MoneyCap,
		RosterSize:  c.RosterSize,
		PistolMoney: c.PistolRoundMoney,
		Schedule:    c.Schedule(),
	}
}

// SampleInterval is the demo adapter's sampling period.
func (c *Config) SampleInterval() time.Duration {
	return seconds(c.SampleIntervalSeconds)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
