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
	TikTok   TikTokConfig   `mapstructure:"tiktok"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Security SecurityConfig `mapstructure:"security"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr    string `mapstructure:"http_addr"`
	FrontendURL string `mapstructure:"frontend_url"`
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
	Enabled      bool   `mapstructure:"enabled"`
	OrdersSync   string `mapstructure:"orders_sync"`
	ProductsSync string `mapstructure:"products_sync"`
}

// TikTokConfig covers the upstream TikTok Shop open API. AppKey/AppSecret
// sign every request; AccessToken is an optional static credential that
// bypasses the OAuth flow (useful for development).
type TikTokConfig struct {
	AppKey      string        `mapstructure:"app_key"`
	AppSecret   string        `mapstructure:"app_secret"`
	ShopID      string        `mapstructure:"shop_id"`
	ShopCipher  string        `mapstructure:"shop_cipher"`
	AccessToken string        `mapstructure:"access_token"`
	BaseURL     string        `mapstructure:"base_url"`
	AuthURL     string        `mapstructure:"auth_url"`
	TokenURL    string        `mapstructure:"token_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type SyncConfig struct {
	// Overlap is the trailing margin re-fetched before the last checkpoint
	// time on incremental runs, absorbing upstream write latency and clock
	// skew.
	Overlap       time.Duration `mapstructure:"overlap"`
	PageSize      int           `mapstructure:"page_size"`
	MaxRetries    int           `mapstructure:"max_retries"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	RetryMaxWait  time.Duration `mapstructure:"retry_max_wait"`
}

type SecurityConfig struct {
	EncryptionKey string `mapstructure:"encryption_key"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SHOPSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.frontend_url", "http://localhost:3000")
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
	v.SetDefault("cron.orders_sync", "@every 30m")
	v.SetDefault("cron.products_sync", "@every 6h")
	v.SetDefault("tiktok.base_url", "https://open-api.tiktokglobalshop.com")
	v.SetDefault("tiktok.auth_url", "https://services.tiktokshop.com/open/authorize")
	v.SetDefault("tiktok.token_url", "https://auth.tiktok-shops.com/api/token/getAccessToken")
	v.SetDefault("tiktok.timeout", "30s")
	v.SetDefault("sync.overlap", "5m")
	v.SetDefault("sync.page_size", 50)
	v.SetDefault("sync.max_retries", 5)
	v.SetDefault("sync.retry_interval", "500ms")
	v.SetDefault("sync.retry_max_wait", "30s")

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
