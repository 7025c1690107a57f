package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load
const EnvPrefix = "CARTLINK"

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Marketplace MarketplaceConfig `mapstructure:"marketplace"`
	Fetch       FetchConfig       `mapstructure:"fetch"`
	Proxy       ProxyConfig       `mapstructure:"proxy"`
	Cart        CartConfig        `mapstructure:"cart"`
	Cache       CacheConfig       `mapstructure:"cache"`
	RateLimit   RateLimitConfig   `mapstructure:"ratelimit"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port" validate:"required"`
	Environment    string   `mapstructure:"environment" validate:"required"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// MarketplaceConfig points at the marketplace search surface
type MarketplaceConfig struct {
	SearchURL string `mapstructure:"search_url" validate:"required,url"`
}

// FetchConfig selects how search pages are retrieved
type FetchConfig struct {
	Mode    string        `mapstructure:"mode" validate:"oneof=direct proxy"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`

	// IdentitySeed pins the direct mode identity sequence; 0 seeds from the clock
	IdentitySeed int64 `mapstructure:"identity_seed"`
}

// ProxyConfig holds the fetch proxy settings used in proxy mode
type ProxyConfig struct {
	Endpoint string `mapstructure:"endpoint" validate:"required,url"`
	APIKey   string `mapstructure:"api_key"`
}

// CartConfig holds cart link settings
type CartConfig struct {
	BaseURL        string        `mapstructure:"base_url" validate:"required,url"`
	MaxConcurrency int           `mapstructure:"max_concurrency" validate:"gte=1"`
	Deadline       time.Duration `mapstructure:"deadline" validate:"gt=0"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type" validate:"oneof=memory redis"`
	RedisURL string        `mapstructure:"redis_url" validate:"required_if=Type redis"`
	TTL      time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

// RateLimitConfig paces outbound search fetches
type RateLimitConfig struct {
	FetchPerMinute int `mapstructure:"fetch_per_minute" validate:"gte=0"`
	FetchBurst     int `mapstructure:"fetch_burst" validate:"gte=0"`
}

// IsProduction reports whether the server runs in production
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Load loads configuration from a .env file, environment variables and
// config files, in increasing order of precedence: defaults, config file, env.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/cartlink/")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	normalize(&config)

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values. Keys without a default are
// still registered so AutomaticEnv can fill them during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("marketplace.search_url", "https://www.amazon.in/s")

	v.SetDefault("fetch.mode", "proxy")
	v.SetDefault("fetch.timeout", "30s")
	v.SetDefault("fetch.identity_seed", 0)

	v.SetDefault("proxy.endpoint", "http://api.scraperapi.com")
	v.SetDefault("proxy.api_key", "")

	v.SetDefault("cart.base_url", "")
	v.SetDefault("cart.max_concurrency", 1)
	v.SetDefault("cart.deadline", "2m")

	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "6h")

	v.SetDefault("ratelimit.fetch_per_minute", 30)
	v.SetDefault("ratelimit.fetch_burst", 5)
}

func normalize(config *Config) {
	config.Fetch.Mode = strings.ToLower(strings.TrimSpace(config.Fetch.Mode))
	config.Cache.Type = strings.ToLower(strings.TrimSpace(config.Cache.Type))
	config.Cart.BaseURL = strings.TrimSpace(config.Cart.BaseURL)
	config.Server.AllowedOrigins = lo.Compact(lo.Map(config.Server.AllowedOrigins, func(o string, _ int) string {
		return strings.TrimSpace(o)
	}))
}

// validate validates the configuration and names the env variable to fix
func validate(config *Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
	})

	err := v.Struct(config)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	return errors.New(strings.Join(lo.Map(verrs, func(fe validator.FieldError, _ int) string {
		return describe(fe)
	}), "; "))
}

func describe(fe validator.FieldError) string {
	key := fe.Namespace()
	if i := strings.Index(key, "."); i >= 0 {
		key = key[i+1:]
	}
	env := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))

	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required (set %s)", key, env)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", key, fe.Param(), fe.Value())
	case "url":
		return fmt.Sprintf("%s must be a valid URL, got %q", key, fe.Value())
	case "gt", "gte":
		return fmt.Sprintf("%s must be %s %s, got %v", key, map[string]string{"gt": ">", "gte": ">="}[fe.Tag()], fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %q validation", key, fe.Tag())
	}
}
