package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Report input sources.
const (
	SourceJournal  = "journal"
	SourcePostgres = "postgres"
)

// ReportConfig holds configuration for the report command.
type ReportConfig struct {
	Config
	Source        string
	Window        string
	Out           string
	BatchSize     int
	ProgressFile  string
	RecomputeFrom string
	Pools         []string
}

// LoadReport merges config file, environment variables, and flags into ReportConfig.
func LoadReport(cfgFile string, flags *pflag.FlagSet) (ReportConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("source", SourceJournal)
		v.SetDefault("window", "5m")
		v.SetDefault("out", "./data/window_metrics.jsonl")
		v.SetDefault("batch-size", 1000)
	})
	if err != nil {
		return ReportConfig{}, err
	}

	cfg := ReportConfig{
		Config:        commonFrom(v),
		Source:        strings.ToLower(strings.TrimSpace(v.GetString("source"))),
		Window:        v.GetString("window"),
		Out:           v.GetString("out"),
		BatchSize:     v.GetInt("batch-size"),
		ProgressFile:  v.GetString("progress-file"),
		RecomputeFrom: v.GetString("recompute-from"),
		Pools:         getStringSlice(v, "pool"),
	}
	if err := cfg.Validate(); err != nil {
		return ReportConfig{}, err
	}
	switch cfg.Source {
	case SourceJournal:
		if cfg.Journal == "" {
			return ReportConfig{}, fmt.Errorf("journal path is required")
		}
	case SourcePostgres:
		if cfg.PGDSN == "" {
			return ReportConfig{}, fmt.Errorf("pg dsn is required for the postgres source")
		}
	default:
		return ReportConfig{}, fmt.Errorf("unknown source %q", cfg.Source)
	}
	return cfg, nil
}

// WindowSeconds parses the window duration into whole seconds.
func (c ReportConfig) WindowSeconds() (uint64, error) {
	d, err := time.ParseDuration(c.Window)
	if err != nil {
		return 0, fmt.Errorf("invalid window: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("window must be positive")
	}
	secs := uint64(d / time.Second)
	if secs == 0 {
		return 0, fmt.Errorf("window must be at least 1s")
	}
	return secs, nil
}

// ParseTimestamp parses a timestamp value (unix seconds or RFC3339).
func ParseTimestamp(input string) (uint64, error) {
	if strings.TrimSpace(input) == "" {
		return 0, nil
	}

	if isNumeric(input) {
		val, err := strconv.ParseUint(input, 10, 64)
		if err != nil {
			return 0, err
		}
		return val, nil
	}

	tm, err := time.Parse(time.RFC3339, input)
	if err != nil {
		return 0, err
	}
	return uint64(tm.Unix()), nil
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}
