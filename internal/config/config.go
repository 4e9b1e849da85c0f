package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Telegram TelegramConfig
	WhatsApp WhatsAppConfig
	Notify   NotifyConfig
	Site     SiteConfig
}

// AppConfig holds application-level configuration
type AppConfig struct {
	Name    string
	Version string
	Debug   bool
	Port    string
	Host    string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	// URL is the server database connection string. Empty means the
	// embedded SQLite file is used instead.
	URL        string
	SQLitePath string
}

// AuthConfig holds admin authentication configuration
type AuthConfig struct {
	// SecretKey signs the admin session cookie.
	SecretKey string
	// AdminPassword is either the plain admin password or a bcrypt hash
	// of it (produced by cmd/hash_password). Empty means the admin area
	// cannot be entered.
	AdminPassword string
	SessionHours  int
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// WhatsAppConfig holds WhatsApp Cloud API notification configuration
type WhatsAppConfig struct {
	Token         string
	PhoneNumberID string
	NotifyTo      string
}

// NotifyConfig holds notification diagnostics configuration
type NotifyConfig struct {
	LogPath string
}

// SiteConfig holds site identity values rendered into the public pages
type SiteConfig struct {
	WhatsAppNumber  string
	InstagramHandle string
	InstagramURL    string
	Domain          string
}

var globalConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "Smart Mebel"),
			Version: getEnv("APP_VERSION", "1.0.0"),
			Debug:   getEnvAsBool("DEBUG", false),
			Port:    getEnv("PORT", "8000"),
			Host:    getEnv("HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			URL:        getEnv("DATABASE_URL", ""),
			SQLitePath: getEnv("SQLITE_PATH", "site.db"),
		},
		Auth: AuthConfig{
			SecretKey:     getEnv("SECRET_KEY", "dev-secret-key"),
			AdminPassword: getEnv("ADMIN_PASSWORD", ""),
			SessionHours:  getEnvAsInt("ADMIN_SESSION_HOURS", 12),
		},
		Telegram: TelegramConfig{
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			ChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		},
		WhatsApp: WhatsAppConfig{
			Token:         getEnv("WHATSAPP_CLOUD_TOKEN", ""),
			PhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
			NotifyTo:      getEnv("WHATSAPP_NOTIFY_TO", ""),
		},
		Notify: NotifyConfig{
			LogPath: getEnv("NOTIFY_LOG_PATH", "notify.log"),
		},
		Site: SiteConfig{
			WhatsAppNumber:  getEnv("WHATSAPP_NUMBER", "+77016751231"),
			InstagramHandle: getEnv("INSTAGRAM_HANDLE", "smart_mabel_kz"),
			InstagramURL:    getEnv("INSTAGRAM_URL", "https://www.instagram.com/smart_mebel_kz"),
			Domain:          getEnv("SITE_DOMAIN", "smartmebel.kz"),
		},
	}

	// Validate configuration
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	globalConfig = config
	return config, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.App.Port == "" {
		return fmt.Errorf("PORT must be set")
	}
	if cfg.Auth.SecretKey == "" {
		return fmt.Errorf("SECRET_KEY must be set")
	}
	if cfg.Auth.SessionHours <= 0 {
		return fmt.Errorf("ADMIN_SESSION_HOURS must be greater than 0")
	}
	return nil
}

// Get returns the global configuration
func Get() *Config {
	if globalConfig == nil {
		// Load default config if not loaded
		config, _ := Load()
		return config
	}
	return globalConfig
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// IsPostgres reports whether the configured database URL targets PostgreSQL.
// An empty URL means the embedded SQLite backend.
func (c *DatabaseConfig) IsPostgres() bool {
	return strings.HasPrefix(c.URL, "postgres://") || strings.HasPrefix(c.URL, "postgresql://")
}

// GetPostgresDSN returns the PostgreSQL connection string with transport
// security enforced for private hosts. Managed platforms expose the database
// on an internal hostname that still requires TLS; when such a host appears
// in the URL and no sslmode is specified, sslmode=require is appended. A URL
// that already carries an sslmode parameter is returned untouched.
func (c *DatabaseConfig) GetPostgresDSN() string {
	dsn := c.URL
	if strings.Contains(dsn, ".internal") && !strings.Contains(dsn, "sslmode=") {
		if strings.Contains(dsn, "?") {
			dsn += "&sslmode=require"
		} else {
			dsn += "?sslmode=require"
		}
	}
	return dsn
}

// GetSQLitePath returns the SQLite database file path
func (c *DatabaseConfig) GetSQLitePath() string {
	path := c.SQLitePath
	if strings.HasPrefix(path, "sqlite:///") {
		return strings.TrimPrefix(path, "sqlite:///")
	}
	return path
}
