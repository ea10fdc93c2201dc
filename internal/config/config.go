package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	DB       DBConfig       `mapstructure:"db"`
	Cron     CronConfig     `mapstructure:"cron"`
	Calendar CalendarConfig `mapstructure:"calendar"`
	OAuth    OAuthConfig    `mapstructure:"oauth"`
	Sync     SyncConfig     `mapstructure:"sync"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	SyncSpec string `mapstructure:"sync_spec"`
}

type CalendarConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type OAuthConfig struct {
	TokenURL string        `mapstructure:"token_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type SyncConfig struct {
	BatchSize        int           `mapstructure:"batch_size"`
	RateLimitPerMin  int           `mapstructure:"rate_limit_per_min"`
	RateLimitWindow  time.Duration `mapstructure:"rate_limit_window"`
	RetryMaxAttempts int           `mapstructure:"retry_max_attempts"`
	RetryBaseDelay   time.Duration `mapstructure:"retry_base_delay"`
	TokenRefreshSkew time.Duration `mapstructure:"token_refresh_skew"`
	PullWindowPast   time.Duration `mapstructure:"pull_window_past"`
	PullWindowFuture time.Duration `mapstructure:"pull_window_future"`
	SweepEveryCycles int           `mapstructure:"sweep_every_cycles"`
	ShutdownGrace    time.Duration `mapstructure:"shutdown_grace"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.sync_spec", "@every 2m")
	v.SetDefault("calendar.base_url", "https://api.calendar.example.com/v1")
	v.SetDefault("calendar.timeout", "15s")
	v.SetDefault("oauth.token_url", "https://auth.calendar.example.com/oauth/token")
	v.SetDefault("oauth.timeout", "10s")
	v.SetDefault("sync.batch_size", 50)
	v.SetDefault("sync.rate_limit_per_min", 30)
	v.SetDefault("sync.rate_limit_window", "60s")
	v.SetDefault("sync.retry_max_attempts", 3)
	v.SetDefault("sync.retry_base_delay", "1s")
	v.SetDefault("sync.token_refresh_skew", "5m")
	v.SetDefault("sync.pull_window_past", "720h")
	v.SetDefault("sync.pull_window_future", "8760h")
	v.SetDefault("sync.sweep_every_cycles", 10)
	v.SetDefault("sync.shutdown_grace", "30s")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
