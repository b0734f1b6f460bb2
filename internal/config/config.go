package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultExplorerURL  = "https://api.explorer.provable.com"
	DefaultProgramID    = "snarkcollective_program.aleo"
	DefaultAdminAddress = "aleo1pqcumqvf0vjqq800uuyaqqt6s2q6dxcgglywhf6dpzac2cmjgu8q2876eu"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	ExplorerURL       string
	Network           string
	ProgramID         string
	RoundSlot         uint8
	AdminAddress      string
	AppName           string
	WalletPrograms    []string
	PuzzleURL         string
	LeoURL            string
	LeoExtensionURL   string
	FoxURL            string
	SoterURL          string
	RequestsPerSecond float64
	MaxRetries        int
	RetryBackoff      time.Duration
	RequestTimeout    time.Duration
	RoundReadTimeout  time.Duration
	ProbeInterval     time.Duration
	ProbeAttempts     int
	ProbeFinalDelay   time.Duration
	LogLevel          string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return Config{}, err
	}

	slot := v.GetUint("round-slot")
	if slot > 255 {
		return Config{}, fmt.Errorf("round-slot must fit in u8, got %d", slot)
	}

	cfg := Config{
		ExplorerURL:       strings.TrimRight(v.GetString("explorer-url"), "/"),
		Network:           v.GetString("network"),
		ProgramID:         v.GetString("program-id"),
		RoundSlot:         uint8(slot),
		AdminAddress:      v.GetString("admin-address"),
		AppName:           v.GetString("app-name"),
		WalletPrograms:    getStringSlice(v, "wallet-programs"),
		PuzzleURL:         v.GetString("puzzle-url"),
		LeoURL:            v.GetString("leo-url"),
		LeoExtensionURL:   v.GetString("leo-extension-url"),
		FoxURL:            v.GetString("fox-url"),
		SoterURL:          v.GetString("soter-url"),
		RequestsPerSecond: v.GetFloat64("requests-per-second"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		RequestTimeout:    v.GetDuration("request-timeout"),
		RoundReadTimeout:  v.GetDuration("round-read-timeout"),
		ProbeInterval:     v.GetDuration("probe-interval"),
		ProbeAttempts:     v.GetInt("probe-attempts"),
		ProbeFinalDelay:   v.GetDuration("probe-final-delay"),
		LogLevel:          v.GetString("log-level"),
	}
	if cfg.ProgramID == "" {
		return Config{}, fmt.Errorf("program-id is required")
	}
	if len(cfg.WalletPrograms) == 0 {
		cfg.WalletPrograms = []string{cfg.ProgramID, "credits.aleo"}
	}
	return cfg, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("COLLECTIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("explorer-url", DefaultExplorerURL)
	v.SetDefault("network", "testnet")
	v.SetDefault("program-id", DefaultProgramID)
	v.SetDefault("round-slot", 1)
	v.SetDefault("admin-address", DefaultAdminAddress)
	v.SetDefault("app-name", "SnarkCollective")
	v.SetDefault("requests-per-second", 5.0)
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("request-timeout", 15*time.Second)
	v.SetDefault("round-read-timeout", 30*time.Second)
	v.SetDefault("probe-interval", time.Second)
	v.SetDefault("probe-attempts", 3)
	v.SetDefault("probe-final-delay", 2*time.Second)
	v.SetDefault("out", "./data/projects.jsonl")
	v.SetDefault("checkpoint", "./data/checkpoint.json")
	v.SetDefault("checkpoint-enabled", true)
	v.SetDefault("interval", time.Minute)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	return cleanStrings(strings.Split(input, ","))
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
