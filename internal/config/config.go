// Package config loads server settings from the environment.
//
// An optional .env file is read first with godotenv (it never overrides
// variables that are already set), then viper resolves every key from the
// environment with the defaults below.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

const (
	keyPort               = "port"
	keyDBPath             = "db_path"
	keyJWTSecret          = "jwt_secret"
	keyTokenTTL           = "token_ttl"
	keyCookieSecure       = "cookie_secure"
	keyGitHubClientID     = "github_client_id"
	keyGitHubClientSecret = "github_client_secret"
	keyGitHubCallbackURL  = "github_callback_url"
	keyPublicBaseURL      = "public_base_url"
	keyBcryptCost         = "bcrypt_cost"
	keyLogLevel           = "log_level"
)

type Config struct {
	Port               int
	DBPath             string
	JWTSecret          string // auth is disabled when empty
	TokenTTL           time.Duration
	CookieSecure       bool
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
	PublicBaseURL      string // prefix for share links in logs and pages; may be empty
	BcryptCost         int
	LogLevel           string
}

// Load reads envFile (if it exists) and the process environment.
// Pass "" to skip the .env file entirely.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: reading %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault(keyPort, 8080)
	v.SetDefault(keyDBPath, "data/notebook.db")
	v.SetDefault(keyTokenTTL, 24*time.Hour)
	v.SetDefault(keyCookieSecure, false)
	v.SetDefault(keyBcryptCost, 12)
	v.SetDefault(keyLogLevel, "info")

	cfg := &Config{
		Port:               v.GetInt(keyPort),
		DBPath:             v.GetString(keyDBPath),
		JWTSecret:          v.GetString(keyJWTSecret),
		TokenTTL:           v.GetDuration(keyTokenTTL),
		CookieSecure:       v.GetBool(keyCookieSecure),
		GitHubClientID:     v.GetString(keyGitHubClientID),
		GitHubClientSecret: v.GetString(keyGitHubClientSecret),
		GitHubCallbackURL:  v.GetString(keyGitHubCallbackURL),
		PublicBaseURL:      strings.TrimRight(v.GetString(keyPublicBaseURL), "/"),
		BcryptCost:         v.GetInt(keyBcryptCost),
		LogLevel:           strings.ToLower(v.GetString(keyLogLevel)),
	}

	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: PORT %d out of range", c.Port)
	}
	if c.DBPath == "" {
		return errors.New("config: DB_PATH must not be empty")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("config: TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("config: BCRYPT_COST %d outside [%d, %d]", c.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown LOG_LEVEL %q", c.LogLevel)
	}
	return nil
}

// AuthEnabled reports whether sign-in and the per-user API are available.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}
