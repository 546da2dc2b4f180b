package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Storage backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Config holds the settings shared by every command, loaded from flags, env,
// or config file.
type Config struct {
	Backend       string
	StateFile     string
	Journal       string
	PGDSN         string
	SnapshotName  string
	MaxRetries    int
	RetryBackoff  time.Duration
	DepositPolicy string
	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
}

func setCommonDefaults(v *viper.Viper) {
	v.SetDefault("backend", BackendFile)
	v.SetDefault("state-file", "./data/state.json")
	v.SetDefault("journal", "./data/events.jsonl")
	v.SetDefault("snapshot-name", "default")
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("deposit-policy", "proportional")
	v.SetDefault("log-level", "info")
	v.SetDefault("log-max-size-mb", 100)
	v.SetDefault("log-max-backups", 3)
}

// newViper binds flags and reads the config file. Without an explicit file it
// looks for an optional ./config.*.
func newViper(cfgFile string, flags *pflag.FlagSet, defaults func(*viper.Viper)) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("AMM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	setCommonDefaults(v)
	if defaults != nil {
		defaults(v)
	}

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

func commonFrom(v *viper.Viper) Config {
	return Config{
		Backend:       strings.ToLower(strings.TrimSpace(v.GetString("backend"))),
		StateFile:     v.GetString("state-file"),
		Journal:       v.GetString("journal"),
		PGDSN:         v.GetString("pg-dsn"),
		SnapshotName:  v.GetString("snapshot-name"),
		MaxRetries:    v.GetInt("max-retries"),
		RetryBackoff:  v.GetDuration("retry-backoff"),
		DepositPolicy: v.GetString("deposit-policy"),
		LogLevel:      v.GetString("log-level"),
		LogFile:       v.GetString("log-file"),
		LogMaxSizeMB:  v.GetInt("log-max-size-mb"),
		LogMaxBackups: v.GetInt("log-max-backups"),
	}
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags, nil)
	if err != nil {
		return Config{}, err
	}
	cfg := commonFrom(v)
	return cfg, cfg.Validate()
}

// Validate checks the backend selection.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendFile:
		if c.StateFile == "" {
			return fmt.Errorf("state file is required for the file backend")
		}
	case BackendPostgres:
		if c.PGDSN == "" {
			return fmt.Errorf("pg dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	return nil
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
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
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
