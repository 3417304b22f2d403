// Package config loads server settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers.
const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// Config holds every setting of cmd/api.
type Config struct {
	MongoURI      string
	MongoDatabase string
	StoreDriver   string

	JWTSecret    string
	JWTKeys      map[string]string // kid -> secret
	JWTActiveKid string
	JWTTTL       time.Duration

	Port     string
	HTTPPort string

	// AllowedOrigins are extra browser origins the WebSocket accepts.
	AllowedOrigins []string

	RateLimitRPM     int
	SendRateLimitRPM int

	TLSCert    string
	TLSKey     string
	RequireTLS bool

	SyncPollInterval time.Duration
	SendRetryDelay   time.Duration

	Debug    bool
	LogLevel string
}

// Load reads configuration. dotEnvPath is loaded first when it exists;
// variables already set in the environment win over the file.
func Load(dotEnvPath string) (*Config, error) {
	if dotEnvPath != "" {
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				return nil, fmt.Errorf("config.godotenv(%s): %w", dotEnvPath, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config.os.Stat(%s): %w", dotEnvPath, err)
		}
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetDefault("MONGODB_URI", "")
	v.SetDefault("MONGODB_DATABASE", "chat_db")
	v.SetDefault("STORE_DRIVER", DriverMongo)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_KEYS", "")
	v.SetDefault("JWT_ACTIVE_KID", "")
	v.SetDefault("JWT_TTL", 24*time.Hour)
	v.SetDefault("PORT", "50051")
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("RATE_LIMIT_RPM", 10)
	v.SetDefault("SEND_RATE_LIMIT_RPM", 60)
	v.SetDefault("TLS_CERT", "")
	v.SetDefault("TLS_KEY", "")
	v.SetDefault("REQUIRE_TLS", false)
	v.SetDefault("SYNC_POLL_INTERVAL", 2*time.Second)
	v.SetDefault("SEND_RETRY_DELAY", 200*time.Millisecond)
	v.SetDefault("DEBUG", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.AutomaticEnv()

	keys, err := ParseKeys(v.GetString("JWT_KEYS"))
	if err != nil {
		return nil, err
	}

	c := &Config{
		MongoURI:         v.GetString("MONGODB_URI"),
		MongoDatabase:    v.GetString("MONGODB_DATABASE"),
		StoreDriver:      strings.ToLower(v.GetString("STORE_DRIVER")),
		JWTSecret:        v.GetString("JWT_SECRET"),
		JWTKeys:          keys,
		JWTActiveKid:     v.GetString("JWT_ACTIVE_KID"),
		JWTTTL:           v.GetDuration("JWT_TTL"),
		Port:             v.GetString("PORT"),
		HTTPPort:         v.GetString("HTTP_PORT"),
		AllowedOrigins:   splitList(v.GetString("ALLOWED_ORIGINS")),
		RateLimitRPM:     v.GetInt("RATE_LIMIT_RPM"),
		SendRateLimitRPM: v.GetInt("SEND_RATE_LIMIT_RPM"),
		TLSCert:          v.GetString("TLS_CERT"),
		TLSKey:           v.GetString("TLS_KEY"),
		RequireTLS:       v.GetBool("REQUIRE_TLS"),
		SyncPollInterval: v.GetDuration("SYNC_POLL_INTERVAL"),
		SendRetryDelay:   v.GetDuration("SEND_RETRY_DELAY"),
		Debug:            v.GetBool("DEBUG"),
		LogLevel:         v.GetString("LOG_LEVEL"),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate reports the first setting combination the server cannot start with.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoURI == "" {
			return errors.New("MONGODB_URI must be set")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if len(c.JWTKeys) == 0 && c.JWTSecret == "" {
		return errors.New("either JWT_SECRET or JWT_KEYS must be set")
	}
	if len(c.JWTKeys) > 0 {
		if _, ok := c.JWTKeys[c.JWTActiveKid]; !ok {
			return fmt.Errorf("JWT_ACTIVE_KID %q is not in JWT_KEYS", c.JWTActiveKid)
		}
	}
	if c.RequireTLS && (c.TLSCert == "" || c.TLSKey == "") {
		return errors.New("REQUIRE_TLS is true but TLS_CERT/TLS_KEY are not configured")
	}
	if c.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	if c.SyncPollInterval <= 0 {
		return errors.New("SYNC_POLL_INTERVAL must be positive")
	}
	return nil
}

// ParseKeys parses "kid:secret,kid2:secret2". Empty entries are skipped.
func ParseKeys(s string) (map[string]string, error) {
	keys := map[string]string{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		parts := strings.SplitN(p, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid JWT_KEYS entry: %s", p)
		}
		keys[parts[0]] = parts[1]
	}
	return keys, nil
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
