package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Credential source modes.
const (
	CredentialSourceVault = "vault"
	CredentialSourceFile  = "file"
)

// Config holds all configuration for the gateway server.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Identity    IdentityConfig
	Credentials CredentialsConfig
	Tenancy     TenancyConfig
	CORS        CORSConfig
	RateLimit   RateLimitConfig
}

type ServerConfig struct {
	Port        int
	Env         string
	ProjectName string
	Debug       bool
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	MaxConns        int
	MinConns        int
	ConnMaxLifetime time.Duration
}

// URL builds the postgres connection string from the discrete fields.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type RedisConfig struct {
	URL string // optional; onboarding rate limiting is disabled when empty
}

type IdentityConfig struct {
	Issuer       string
	Audience     string
	AdminBaseURL string
	Leeway       time.Duration
	Timeout      time.Duration
}

type CredentialsConfig struct {
	Source     string // vault | file
	FilePath   string
	VaultAddr  string
	VaultToken string
	VaultMount string
	SecretName string
}

type TenancyConfig struct {
	TenantColumn string
	SettingName  string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RateLimitConfig struct {
	OnboardingPerMin int
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        envInt("TENANTGATE_PORT", 8080),
			Env:         envString("TENANTGATE_ENV", "development"),
			ProjectName: envString("PROJECT_NAME", "tenantgate"),
			Debug:       envBool("DEBUG", false),
		},
		Database: DatabaseConfig{
			Host:            os.Getenv("DB_HOST"),
			Port:            envInt("DB_PORT", 5432),
			User:            os.Getenv("DB_USER"),
			Password:        os.Getenv("DB_PASSWORD"),
			Name:            os.Getenv("DB_NAME"),
			MaxConns:        envInt("DB_POOL_MAX_CONNS", 10),
			MinConns:        envInt("DB_POOL_MIN_CONNS", 2),
			ConnMaxLifetime: envDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Identity: IdentityConfig{
			Issuer:       os.Getenv("IDENTITY_ISSUER"),
			Audience:     os.Getenv("IDENTITY_AUDIENCE"),
			AdminBaseURL: os.Getenv("IDENTITY_ADMIN_BASE_URL"),
			Leeway:       envDuration("IDENTITY_LEEWAY", 60*time.Second),
			Timeout:      envDuration("IDENTITY_TIMEOUT", 15*time.Second),
		},
		Credentials: CredentialsConfig{
			Source:     envString("CREDENTIALS_SOURCE", CredentialSourceVault),
			FilePath:   os.Getenv("CREDENTIALS_FILE"),
			VaultAddr:  os.Getenv("VAULT_ADDR"),
			VaultToken: os.Getenv("VAULT_TOKEN"),
			VaultMount: envString("VAULT_MOUNT", "secret"),
			SecretName: os.Getenv("CREDENTIALS_SECRET_NAME"),
		},
		Tenancy: TenancyConfig{
			TenantColumn: envString("TENANT_ID_COLUMN", "tenant_id"),
			SettingName:  envString("RLS_SETTING_NAME", "app.current_tenant"),
		},
		CORS: CORSConfig{
			AllowedOrigins: envList("ALLOWED_ORIGINS", []string{"*"}),
		},
		RateLimit: RateLimitConfig{
			OnboardingPerMin: envInt("ONBOARDING_RATE_LIMIT", 10),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}

	if c.Identity.Issuer == "" {
		return fmt.Errorf("IDENTITY_ISSUER is required")
	}
	if c.Identity.Audience == "" {
		return fmt.Errorf("IDENTITY_AUDIENCE is required")
	}
	if c.Identity.AdminBaseURL == "" {
		return fmt.Errorf("IDENTITY_ADMIN_BASE_URL is required")
	}

	switch c.Credentials.Source {
	case CredentialSourceVault:
		if c.Credentials.VaultAddr == "" {
			return fmt.Errorf("VAULT_ADDR is required when CREDENTIALS_SOURCE is vault")
		}
		if c.Credentials.SecretName == "" {
			return fmt.Errorf("CREDENTIALS_SECRET_NAME is required when CREDENTIALS_SOURCE is vault")
		}
	case CredentialSourceFile:
		if c.Credentials.FilePath == "" {
			return fmt.Errorf("CREDENTIALS_FILE is required when CREDENTIALS_SOURCE is file")
		}
		info, err := os.Stat(c.Credentials.FilePath)
		if err != nil {
			return fmt.Errorf("credentials file does not exist: %s", c.Credentials.FilePath)
		}
		if !info.Mode().IsRegular() {
			return fmt.Errorf("credentials path is not a regular file: %s", c.Credentials.FilePath)
		}
	default:
		return fmt.Errorf("CREDENTIALS_SOURCE must be one of vault, file; got %q", c.Credentials.Source)
	}

	if c.Tenancy.SettingName == "" || !strings.Contains(c.Tenancy.SettingName, ".") {
		return fmt.Errorf("RLS_SETTING_NAME must be a namespaced setting (e.g. app.current_tenant); got %q", c.Tenancy.SettingName)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
