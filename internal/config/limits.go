package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// TileTemplate describes a tile seeded into every new grid.
type TileTemplate struct {
	Type string `mapstructure:"type"`
	X    int    `mapstructure:"x"`
	Y    int    `mapstructure:"y"`
	W    int    `mapstructure:"w"`
	H    int    `mapstructure:"h"`
}

type LimitsConfig struct {
	MaxBatchTiles       int            `mapstructure:"maxBatchTiles"`
	MaxEmailsPerRequest int            `mapstructure:"maxEmailsPerRequest"`
	MaxMessageBytes     int            `mapstructure:"maxMessageBytes"`
	MaxFileBytes        int64          `mapstructure:"maxFileBytes"`
	EmailLookupRate     float64        `mapstructure:"emailLookupRate"`
	EmailLookupBurst    int            `mapstructure:"emailLookupBurst"`
	DefaultTiles        []TileTemplate `mapstructure:"defaultTiles"`
}

func DefaultLimitsConfig() LimitsConfig {
	return LimitsConfig{
		MaxBatchTiles:       200,
		MaxEmailsPerRequest: 50,
		MaxMessageBytes:     64 * 1024,
		MaxFileBytes:        100 * 1024 * 1024,
		EmailLookupRate:     1,
		EmailLookupBurst:    10,
		DefaultTiles: []TileTemplate{
			{Type: "notes", X: 0, Y: 0, W: 4, H: 3},
			{Type: "dm", X: 4, Y: 0, W: 4, H: 3},
		},
	}
}

type LimitsHolder struct {
	current atomic.Value // holds LimitsConfig
}

// NewStaticLimits returns a holder that never reloads.
func NewStaticLimits(cfg LimitsConfig) *LimitsHolder {
	holder := &LimitsHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewLimitsHolder() (*LimitsHolder, error) {
	v := viper.New()

	v.SetConfigName("limits")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/tilegrid")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TILEGRID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultLimitsConfig()
	v.SetDefault("limits.maxBatchTiles", defaults.MaxBatchTiles)
	v.SetDefault("limits.maxEmailsPerRequest", defaults.MaxEmailsPerRequest)
	v.SetDefault("limits.maxMessageBytes", defaults.MaxMessageBytes)
	v.SetDefault("limits.maxFileBytes", defaults.MaxFileBytes)
	v.SetDefault("limits.emailLookupRate", defaults.EmailLookupRate)
	v.SetDefault("limits.emailLookupBurst", defaults.EmailLookupBurst)
	v.SetDefault("limits.defaultTiles", defaults.DefaultTiles)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	var cfg LimitsConfig
	if err := v.UnmarshalKey("limits", &cfg); err != nil {
		return nil, err
	}
	if err := validateLimits(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticLimits(cfg)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		log := zap.L().Named("config.limits")
		var updated LimitsConfig
		if err := v.UnmarshalKey("limits", &updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := validateLimits(updated); err != nil {
			log.Warn("invalid limits ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("limits reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *LimitsHolder) Get() LimitsConfig {
	if h == nil {
		return DefaultLimitsConfig()
	}
	return h.current.Load().(LimitsConfig)
}

func validateLimits(cfg LimitsConfig) error {
	if cfg.MaxBatchTiles <= 0 {
		return errors.New("limits.maxBatchTiles must be positive")
	}
	if cfg.MaxEmailsPerRequest <= 0 {
		return errors.New("limits.maxEmailsPerRequest must be positive")
	}
	if cfg.MaxMessageBytes <= 0 {
		return errors.New("limits.maxMessageBytes must be positive")
	}
	if cfg.EmailLookupRate <= 0 || cfg.EmailLookupBurst <= 0 {
		return errors.New("limits.emailLookupRate and limits.emailLookupBurst must be positive")
	}
	for i, tpl := range cfg.DefaultTiles {
		if strings.TrimSpace(tpl.Type) == "" {
			return fmt.Errorf("limits.defaultTiles[%d]: type is required", i)
		}
		if tpl.X < 0 || tpl.Y < 0 || tpl.W <= 0 || tpl.H <= 0 {
			return fmt.Errorf("limits.defaultTiles[%d]: invalid rect", i)
		}
	}
	return nil
}
