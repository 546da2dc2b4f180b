package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// SimulateConfig holds configuration for the simulate command.
type SimulateConfig struct {
	Config
	Pools       int
	Traders     int
	Swaps       int
	FeeBps      uint64
	MetricsAddr string
	Persist     bool
}

// LoadSimulate merges config file, environment variables, and flags into SimulateConfig.
func LoadSimulate(cfgFile string, flags *pflag.FlagSet) (SimulateConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("pools", 1)
		v.SetDefault("traders", 1)
		v.SetDefault("swaps", 0)
		v.SetDefault("fee-bps", uint64(10))
	})
	if err != nil {
		return SimulateConfig{}, err
	}

	cfg := SimulateConfig{
		Config:      commonFrom(v),
		Pools:       v.GetInt("pools"),
		Traders:     v.GetInt("traders"),
		Swaps:       v.GetInt("swaps"),
		FeeBps:      v.GetUint64("fee-bps"),
		MetricsAddr: v.GetString("metrics-addr"),
		Persist:     v.GetBool("persist"),
	}
	if cfg.Pools <= 0 || cfg.Traders <= 0 {
		return SimulateConfig{}, fmt.Errorf("pools and traders must be positive")
	}
	if cfg.Swaps < 0 {
		return SimulateConfig{}, fmt.Errorf("swaps must not be negative")
	}
	if cfg.Persist {
		if err := cfg.Validate(); err != nil {
			return SimulateConfig{}, err
		}
	}
	return cfg, nil
}
