package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port          string        `mapstructure:"PORT"`
	Env           string        `mapstructure:"ENV"`
	DatabaseURL   string        `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32         `mapstructure:"DB_MIN_CONNS"`
	AuthMode      string        `mapstructure:"AUTH_MODE"`
	TokenSecret   string        `mapstructure:"TOKEN_SECRET"`
	TokenTTL      time.Duration `mapstructure:"TOKEN_TTL"`
	AuthIssuer    string        `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL   string        `mapstructure:"AUTH_JWKS_URL"`
	DetectURL     string        `mapstructure:"DETECT_URL"`
	DetectTimeout time.Duration `mapstructure:"DETECT_TIMEOUT"`
	UploadDir     string        `mapstructure:"UPLOAD_DIR"`
	MaxUploadSize int64         `mapstructure:"MAX_UPLOAD_SIZE"`
	AllowedExts   []string      `mapstructure:"ALLOWED_EXTENSIONS"`
	CORSOrigins   []string      `mapstructure:"CORS_ORIGINS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("AUTH_MODE", "local")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("DETECT_TIMEOUT", "30s")
	v.SetDefault("UPLOAD_DIR", "data/uploads")
	v.SetDefault("MAX_UPLOAD_SIZE", 16*1024*1024)
	v.SetDefault("ALLOWED_EXTENSIONS", "png,jpg,jpeg")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("AUTH_MODE")
	v.BindEnv("TOKEN_SECRET")
	v.BindEnv("TOKEN_TTL")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_JWKS_URL")
	v.BindEnv("DETECT_URL")
	v.BindEnv("DETECT_TIMEOUT")
	v.BindEnv("UPLOAD_DIR")
	v.BindEnv("MAX_UPLOAD_SIZE")
	v.BindEnv("ALLOWED_EXTENSIONS")
	v.BindEnv("CORS_ORIGINS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}
	if cfg.AllowedExts == nil {
		if exts := v.GetString("ALLOWED_EXTENSIONS"); exts != "" {
			cfg.AllowedExts = strings.Split(exts, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() && cfg.TokenSecret == "" {
		cfg.TokenSecret = "dev-only-signing-secret"
		log.Println("WARNING: TOKEN_SECRET not set, using a development default.")
		log.Println("WARNING: Set TOKEN_SECRET before running in production.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run. Local auth requires
// a signing secret outside development; federated auth requires an issuer or
// an explicit JWKS URL.
func (c *Config) Validate() error {
	switch c.AuthMode {
	case "local":
		if c.TokenSecret == "" {
			return fmt.Errorf("TOKEN_SECRET is required when AUTH_MODE is \"local\"")
		}
	case "federated":
		if c.AuthIssuer == "" && c.AuthJWKSURL == "" {
			return fmt.Errorf("AUTH_ISSUER or AUTH_JWKS_URL is required when AUTH_MODE is \"federated\"")
		}
	default:
		return fmt.Errorf("AUTH_MODE must be \"local\" or \"federated\", got %q", c.AuthMode)
	}

	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive, got %d", c.MaxUploadSize)
	}
	if len(c.AllowedExts) == 0 {
		return fmt.Errorf("ALLOWED_EXTENSIONS must not be empty")
	}
	return nil
}
