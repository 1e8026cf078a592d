package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Config holds everything the server needs at startup. It is built once by
// Load and handed to constructors; nothing else reads the environment.
type Config struct {
	Port               string
	APIPrefix          string
	CorsAllowedOrigins []string

	Database DatabaseConfig
	Auth     AuthConfig
	Limits   LimitsConfig
	Images   ImagesConfig
}

// DatabaseConfig selects and sizes the relational store.
type DatabaseConfig struct {
	URL      string // postgres://... or sqlite://path
	MaxConns int32
}

// AuthConfig contains token and password hashing settings.
type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
}

// LimitsConfig holds per-IP request budgets (requests per minute).
type LimitsConfig struct {
	AuthPerMinute   int
	PublicPerMinute int
}

// ImagesConfig points at the external image host. Uploads are disabled when
// UploadURL is empty.
type ImagesConfig struct {
	UploadURL      string
	APIKey         string
	MaxUploadBytes int64
}

// Load reads configuration from the environment, after loading an optional
// .env file from the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	maxConns, err := getEnvInt("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, err
	}
	ttl, err := getEnvDuration("TOKEN_TTL", time.Hour)
	if err != nil {
		return nil, err
	}
	cost, err := getEnvInt("BCRYPT_COST", bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	authLimit, err := getEnvInt("AUTH_RATE_LIMIT", 5)
	if err != nil {
		return nil, err
	}
	publicLimit, err := getEnvInt("PUBLIC_RATE_LIMIT", 60)
	if err != nil {
		return nil, err
	}
	maxUpload, err := getEnvInt("MAX_UPLOAD_BYTES", 5<<20)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		APIPrefix:          getEnv("API_PREFIX", "/api"),
		CorsAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			MaxConns: int32(maxConns),
		},
		Auth: AuthConfig{
			JWTSecret:  getEnv("JWT_SECRET", ""),
			TokenTTL:   ttl,
			BcryptCost: cost,
		},
		Limits: LimitsConfig{
			AuthPerMinute:   authLimit,
			PublicPerMinute: publicLimit,
		},
		Images: ImagesConfig{
			UploadURL:      getEnv("IMAGE_HOST_URL", ""),
			APIKey:         getEnv("IMAGE_HOST_API_KEY", ""),
			MaxUploadBytes: int64(maxUpload),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.APIPrefix != "" && !strings.HasPrefix(c.APIPrefix, "/") {
		c.APIPrefix = "/" + c.APIPrefix
	}
	c.APIPrefix = strings.TrimSuffix(c.APIPrefix, "/")
	return nil
}

// String returns a printable form of the config with secrets masked.
func (c *Config) String() string {
	images := "disabled"
	if c.Images.UploadURL != "" {
		images = c.Images.UploadURL
	}
	return fmt.Sprintf("Config{Port: %s, Prefix: %q, DB: %s, TokenTTL: %s, Images: %s, JWT: ***}",
		c.Port, c.APIPrefix, maskURL(c.Database.URL), c.Auth.TokenTTL, images)
}

// maskURL hides the userinfo part of a connection string.
func maskURL(raw string) string {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return raw
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		return scheme + "://***@" + rest[at+1:]
	}
	return raw
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) (int, error) {
	value := getEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := getEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
