package config

import (
	"time"

	"github.com/spf13/pflag"
)

// WatchConfig holds settings for the snapshot loop.
type WatchConfig struct {
	Config
	Out               string
	Checkpoint        string
	CheckpointEnabled bool
	PGDSN             string
	Interval          time.Duration
	Once              bool
}

// LoadWatch loads the base config plus the snapshot loop settings.
func LoadWatch(cfgFile string, flags *pflag.FlagSet) (WatchConfig, error) {
	base, err := Load(cfgFile, flags)
	if err != nil {
		return WatchConfig{}, err
	}
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return WatchConfig{}, err
	}
	return WatchConfig{
		Config:            base,
		Out:               v.GetString("out"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		PGDSN:             v.GetString("pg-dsn"),
		Interval:          v.GetDuration("interval"),
		Once:              v.GetBool("once"),
	}, nil
}
