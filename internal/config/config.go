package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	VAPID    VAPIDConfig
	Admin    AdminConfig
	Dispatch DispatchConfig
	GeoIP    GeoIPConfig
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeoutSeconds"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// VAPIDConfig holds the long-lived signing key pair and the issuer
// identity used for every push authentication token.
type VAPIDConfig struct {
	PublicKey  string `mapstructure:"public_key"`
	PrivateKey string `mapstructure:"private_key"`
	Subscriber string `mapstructure:"subscriber"`
}

type AdminConfig struct {
	Username         string `mapstructure:"username"`
	PasswordHash     string `mapstructure:"password_hash"`
	JWTSecret        string `mapstructure:"jwt_secret"`
	TokenExpiryHours int    `mapstructure:"token_expiry_hours"`
}

type DispatchConfig struct {
	Workers        int `mapstructure:"workers"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	TTLSeconds     int `mapstructure:"ttl_seconds"`
}

type GeoIPConfig struct {
	BaseURL         string `mapstructure:"base_url"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
	CacheTTLMinutes int    `mapstructure:"cache_ttl_minutes"`
}

// Secrets are environment-only overrides for values that must not live
// in the config file.
type Secrets struct {
	VAPIDPublicKey    string `envconfig:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey   string `envconfig:"VAPID_PRIVATE_KEY"`
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH"`
	AdminJWTSecret    string `envconfig:"ADMIN_JWT_SECRET"`
	DatabasePassword  string `envconfig:"DB_PASSWORD"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	viper.SetDefault("server.port", 3000)
	viper.SetDefault("server.timeoutSeconds", 30)
	viper.SetDefault("database.max_open_conns", 10)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("dispatch.workers", 8)
	viper.SetDefault("dispatch.timeout_seconds", 10)
	viper.SetDefault("dispatch.ttl_seconds", 86400)
	viper.SetDefault("geoip.base_url", "http://ip-api.com/json")
	viper.SetDefault("geoip.timeout_seconds", 4)
	viper.SetDefault("geoip.cache_ttl_minutes", 60)
	viper.SetDefault("admin.token_expiry_hours", 24)

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var secrets Secrets
	if err := envconfig.Process("", &secrets); err != nil {
		return nil, fmt.Errorf("failed to process env overrides: %w", err)
	}
	config.applySecrets(&secrets)

	return &config, nil
}

func (c *Config) applySecrets(s *Secrets) {
	if s.VAPIDPublicKey != "" {
		c.VAPID.PublicKey = s.VAPIDPublicKey
	}
	if s.VAPIDPrivateKey != "" {
		c.VAPID.PrivateKey = s.VAPIDPrivateKey
	}
	if s.AdminPasswordHash != "" {
		c.Admin.PasswordHash = s.AdminPasswordHash
	}
	if s.AdminJWTSecret != "" {
		c.Admin.JWTSecret = s.AdminJWTSecret
	}
	if s.DatabasePassword != "" {
		c.Database.Password = s.DatabasePassword
	}
}
