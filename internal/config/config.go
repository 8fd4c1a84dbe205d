package config

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/Alturino/storefront/internal/constants"
)

const (
	CACHE_DRIVER_REDIS  = "redis"
	CACHE_DRIVER_MEMORY = "memory"
)

type Application struct {
	Env    string `mapstructure:"env"     json:"env"`
	Host   string `mapstructure:"host"    json:"host"`
	LogDir string `mapstructure:"log_dir" json:"log_dir"`
	Port   int    `mapstructure:"port"    json:"port"`
}

type Auth struct {
	SecretKey string `mapstructure:"secret_key" json:"-"`
	Issuer    string `mapstructure:"issuer"     json:"issuer"`
	Audience  string `mapstructure:"audience"   json:"audience"`
}

type Cache struct {
	Driver   string `mapstructure:"driver"   json:"driver"`
	Host     string `mapstructure:"host"     json:"host"`
	Password string `mapstructure:"password" json:"-"`
	Database int    `mapstructure:"database" json:"database"`
	Port     uint16 `mapstructure:"port"     json:"port"`
}

type Cart struct {
	Currency   string        `mapstructure:"currency"    json:"currency"`
	TTL        time.Duration `mapstructure:"ttl"         json:"ttl"`
	MaxRetries int           `mapstructure:"max_retries" json:"max_retries"`
}

type Otel struct {
	Host    string `mapstructure:"host"    json:"host"`
	Port    int    `mapstructure:"port"    json:"port"`
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
}

type Config struct {
	Application `mapstructure:"application" json:"application"`
	Auth        `mapstructure:"auth"        json:"auth"`
	Cache       `mapstructure:"cache"       json:"cache"`
	Cart        `mapstructure:"cart"        json:"cart"`
	Otel        `mapstructure:"otel"        json:"otel"`
}

var (
	once   sync.Once
	config *Config

	envReplacer = strings.NewReplacer(".", "_")
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("application.env", "production")
	v.SetDefault("application.host", "0.0.0.0")
	v.SetDefault("application.port", 8080)
	v.SetDefault("application.log_dir", "/var/log")
	v.SetDefault("auth.issuer", "auth-service")
	v.SetDefault("auth.audience", "audience-user")
	v.SetDefault("auth.secret_key", "")
	v.SetDefault("cache.driver", CACHE_DRIVER_REDIS)
	v.SetDefault("cache.host", "localhost")
	v.SetDefault("cache.port", 6379)
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.database", 0)
	v.SetDefault("cart.ttl", "168h")
	v.SetDefault("cart.max_retries", 10)
	v.SetDefault("cart.currency", "usd")
	v.SetDefault("otel.host", "otel-collector")
	v.SetDefault("otel.port", 4317)
	v.SetDefault("otel.enabled", false)
}

func Get(c context.Context, filename string) *Config {
	once.Do(func() {
		logger := zerolog.Ctx(c).
			With().
			Str(constants.KEY_TAG, "config Get").
			Str("filename", filename).
			Logger()

		v := viper.New()
		v.SetConfigName(filename)
		v.AddConfigPath("./env")
		v.SetConfigType("yaml")
		v.SetEnvKeyReplacer(envReplacer)
		v.AutomaticEnv()
		setDefaults(v)

		logger = logger.With().Str(constants.KEY_PROCESS, "reading config").Logger()
		logger.Info().Msg("reading config")
		err := v.ReadInConfig()
		if err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				err = fmt.Errorf("failed reading config with error=%w", err)
				logger.Fatal().Err(err).Msg(err.Error())
			}
			logger.Warn().Err(err).Msg("config file not found using defaults and environment")
		}
		logger.Info().Msg("read config")

		logger = logger.With().Str(constants.KEY_PROCESS, "unmarshaling config").Logger()
		logger.Info().Msg("unmarshaling config")
		cfg := Config{}
		err = v.Unmarshal(&cfg)
		if err != nil {
			err = fmt.Errorf("failed unmarshaling config with error=%w", err)
			logger.Fatal().Err(err).Msg(err.Error())
		}
		config = &cfg
		logger.Info().Any(constants.KEY_CONFIG, cfg).Msg("unmarshaled config")
	})
	return config
}
