package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port               string        `mapstructure:"PORT"`
	Env                string        `mapstructure:"ENV"`
	DataPath           string        `mapstructure:"DATA_PATH"`
	LogLevel           string        `mapstructure:"LOG_LEVEL"`
	SessionTTL         time.Duration `mapstructure:"SESSION_TTL"`
	PermissionCacheTTL time.Duration `mapstructure:"PERMISSION_CACHE_TTL"`
	BcryptCost         int           `mapstructure:"BCRYPT_COST"`
	NotifyBefore       time.Duration `mapstructure:"NOTIFY_BEFORE"`
	SeedOnStart        bool          `mapstructure:"SEED_ON_START"`
	AdminUsername      string        `mapstructure:"ADMIN_USERNAME"`
	AdminPassword      string        `mapstructure:"ADMIN_PASSWORD"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DATA_PATH", "wardkit.db.json")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("PERMISSION_CACHE_TTL", "30m")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("NOTIFY_BEFORE", "15m")
	v.SetDefault("SEED_ON_START", true)
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("ADMIN_PASSWORD", "admin123")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATA_PATH")
	v.BindEnv("LOG_LEVEL")
	v.BindEnv("SESSION_TTL")
	v.BindEnv("PERMISSION_CACHE_TTL")
	v.BindEnv("BCRYPT_COST")
	v.BindEnv("NOTIFY_BEFORE")
	v.BindEnv("SEED_ON_START")
	v.BindEnv("ADMIN_USERNAME")
	v.BindEnv("ADMIN_PASSWORD")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run with. Outside
// development the default admin password must have been changed.
func (c *Config) Validate() error {
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.PermissionCacheTTL <= 0 {
		return fmt.Errorf("PERMISSION_CACHE_TTL must be positive, got %s", c.PermissionCacheTTL)
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}
	if c.NotifyBefore < 0 {
		return fmt.Errorf("NOTIFY_BEFORE must not be negative, got %s", c.NotifyBefore)
	}
	if !c.IsDev() && c.AdminPassword == "admin123" {
		return fmt.Errorf("ADMIN_PASSWORD must be changed outside development")
	}
	return nil
}
