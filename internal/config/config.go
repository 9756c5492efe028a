package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

type SecurityConfig struct {
	RefreshFraction    float64
	RefreshFloor       time.Duration
	RefreshMaxAttempts int
	RefreshBackoffBase time.Duration
	RefreshBackoffCap  time.Duration
	IdleThreshold      time.Duration
	IdleTick           time.Duration
	SweepInterval      time.Duration
}

type StoreConfig struct {
	Backend string
	Path    string
	Redis   RedisConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	API              APIConfig
	Security         SecurityConfig
	Store            StoreConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("STOCKDESK")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Store.Path == "" {
		cfg.Store.Path = defaultStorePath()
	}

	return &cfg, nil
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".stockdesk", "credentials.json")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "127.0.0.1")
	v.SetDefault("http.port", 8787)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("api.baseurl", "http://localhost:8080/api")
	v.SetDefault("api.timeout", "30s")

	v.SetDefault("security.refreshfraction", 0.8)
	v.SetDefault("security.refreshfloor", "5s")
	v.SetDefault("security.refreshmaxattempts", 5)
	v.SetDefault("security.refreshbackoffbase", "2s")
	v.SetDefault("security.refreshbackoffcap", "30s")
	v.SetDefault("security.idlethreshold", "30m")
	v.SetDefault("security.idletick", "30s")
	v.SetDefault("security.sweepinterval", "5m")

	v.SetDefault("store.backend", "file")
	v.SetDefault("store.redis.addr", "127.0.0.1:6379")
	v.SetDefault("store.redis.db", 0)
}
