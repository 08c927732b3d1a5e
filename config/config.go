package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Feed      FeedConfig
	Workspace WorkspaceConfig
	RateLimit RateLimitConfig
	Admin     AdminConfig
}

type AppConfig struct {
	Port           string
	Env            string
	TimeZone       string
	AllowedOrigins []string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	TimeZone string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// FeedConfig controls the PostgreSQL LISTEN/NOTIFY change feed.
type FeedConfig struct {
	SubBuffer    int
	MaxReconnect time.Duration
	MinReconnect time.Duration
}

// WorkspaceConfig tunes per-screen workspace sessions.
type WorkspaceConfig struct {
	LookupDebounce  time.Duration
	LookupMinDigits int
}

type RateLimitConfig struct {
	LoginRPS   float64
	LoginBurst int
}

// AdminConfig is only read by the create-admin command
type AdminConfig struct {
	Password string
}

func setDefaults() {
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_TIMEZONE", "Asia/Jakarta")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("FEED_SUB_BUFFER", 64)
	viper.SetDefault("FEED_MIN_RECONNECT", "1s")
	viper.SetDefault("FEED_MAX_RECONNECT", "30s")
	viper.SetDefault("LOOKUP_DEBOUNCE", "300ms")
	viper.SetDefault("LOOKUP_MIN_DIGITS", 6)
	viper.SetDefault("LOGIN_RATE_RPS", 1.0)
	viper.SetDefault("LOGIN_RATE_BURST", 5)
}

func LoadConfig() (*Config, error) {
	setDefaults()
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	accessExpiry, err := time.ParseDuration(viper.GetString("JWT_ACCESS_EXPIRY"))
	if err != nil {
		accessExpiry = 15 * time.Minute
	}

	refreshExpiry, err := time.ParseDuration(viper.GetString("JWT_REFRESH_EXPIRY"))
	if err != nil {
		refreshExpiry = 7 * 24 * time.Hour
	}

	timeZone := viper.GetString("APP_TIMEZONE")
	if _, err := time.LoadLocation(timeZone); err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE %q: %w", timeZone, err)
	}

	config := &Config{
		App: AppConfig{
			Port:           viper.GetString("APP_PORT"),
			Env:            viper.GetString("APP_ENV"),
			TimeZone:       timeZone,
			AllowedOrigins: splitList(viper.GetString("APP_ALLOWED_ORIGINS")),
		},
		DB: DBConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Name:     viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
			TimeZone: timeZone,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:        viper.GetString("JWT_SECRET"),
			AccessExpiry:  accessExpiry,
			RefreshExpiry: refreshExpiry,
		},
		Feed: FeedConfig{
			SubBuffer:    viper.GetInt("FEED_SUB_BUFFER"),
			MinReconnect: viper.GetDuration("FEED_MIN_RECONNECT"),
			MaxReconnect: viper.GetDuration("FEED_MAX_RECONNECT"),
		},
		Workspace: WorkspaceConfig{
			LookupDebounce:  viper.GetDuration("LOOKUP_DEBOUNCE"),
			LookupMinDigits: viper.GetInt("LOOKUP_MIN_DIGITS"),
		},
		RateLimit: RateLimitConfig{
			LoginRPS:   viper.GetFloat64("LOGIN_RATE_RPS"),
			LoginBurst: viper.GetInt("LOGIN_RATE_BURST"),
		},
		Admin: AdminConfig{
			Password: viper.GetString("ADMIN_PASSWORD"),
		},
	}

	return config, nil
}

// splitList parses a comma separated env value, skipping blanks
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Location returns the clinic calendar time zone.
func (c AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DSN returns a keyword/value connection string understood by both gorm's
// postgres driver and pgx.Connect.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.sslMode(), c.TimeZone,
	)
}

// MigrationURL returns the pgx5:// URL used by golang-migrate.
func (c DBConfig) MigrationURL() string {
	u := url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%s", c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": []string{c.sslMode()}}.Encode(),
	}
	return u.String()
}

func (c DBConfig) sslMode() string {
	if c.SSLMode == "" {
		return "disable"
	}
	return c.SSLMode
}
