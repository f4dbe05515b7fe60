package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	DatabaseURL           string `mapstructure:"DATABASE_URL"`
	JWTSecret             string `mapstructure:"JWT_SECRET"`
	JWTTTLHours           int    `mapstructure:"JWT_TTL_HOURS"`
	Port                  string `mapstructure:"PORT"`
	GinMode               string `mapstructure:"GIN_MODE"`
	DBAutoMigrate         bool   `mapstructure:"DB_AUTO_MIGRATE"`
	DBMaxOpenConns        int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns        int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	RedisURL              string `mapstructure:"REDIS_URL"`
	JoinAttemptsPerMinute int    `mapstructure:"JOIN_ATTEMPTS_PER_MINUTE"`
}

var AppConfig *Config

// Every key needs a default, otherwise viper.Unmarshal skips env-only values.
var defaults = map[string]any{
	"DATABASE_URL":             "",
	"JWT_SECRET":               "",
	"JWT_TTL_HOURS":            24 * 7,
	"PORT":                     "8080",
	"GIN_MODE":                 "debug",
	"DB_AUTO_MIGRATE":          true,
	"DB_MAX_OPEN_CONNS":        10,
	"DB_MAX_IDLE_CONNS":        10,
	"REDIS_URL":                "",
	"JOIN_ATTEMPTS_PER_MINUTE": 10,
}

// Load reads the configuration from a .env file in the working directory and from
// environment variables. Environment variables win.
func Load() (*Config, error) {
	v := viper.New()
	v.AddConfigPath(".")
	v.SetConfigName(".env")
	v.SetConfigType("env")

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		log.Println("Warning: .env file not found, loading from environment variables")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.JWTTTLHours <= 0 {
		cfg.JWTTTLHours = 24 * 7
	}
	if cfg.JoinAttemptsPerMinute <= 0 {
		cfg.JoinAttemptsPerMinute = 10
	}
	return &cfg, nil
}

// LoadConfig loads the configuration into AppConfig and exits on failure.
func LoadConfig() {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}
	AppConfig = cfg
}
