package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config location; SHELF_CONFIG overrides it.
const ConfigPath = "config.yaml"

// Book store backends.
const (
	BookStoreMemory   = "memory"
	BookStoreDatabase = "database"
)

// Session store backends.
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
	SessionStoreJWT    = "jwt"
)

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port                    string   `yaml:"port"`
	LogLevel                string   `yaml:"logLevel"`
	LogFormat               string   `yaml:"logFormat"`
	Username                string   `yaml:"username"`
	Password                string   `yaml:"password"`
	PasswordCost            int      `yaml:"passwordCost"`
	IDStrategy              string   `yaml:"idStrategy"`
	IDPrefix                string   `yaml:"idPrefix"`
	BookStore               string   `yaml:"bookStore"`
	DatabaseURL             string   `yaml:"databaseURL"`
	SessionStore            string   `yaml:"sessionStore"`
	SessionTTL              string   `yaml:"sessionTTL"`
	JWTSecret               string   `yaml:"jwtSecret"`
	RedisAddr               string   `yaml:"redisAddr"`
	RedisPassword           string   `yaml:"redisPassword"`
	CookieName              string   `yaml:"cookieName"`
	CookieSecure            bool     `yaml:"cookieSecure"`
	// LoginRateLimitPerMinute caps login attempts per client IP; 0 selects the default of 10.
	LoginRateLimitPerMinute int      `yaml:"loginRateLimitPerMinute"`
	TrustedProxyCIDRs       []string `yaml:"trustedProxyCidrs"`
}

// Path returns the config path from SHELF_CONFIG or the default.
func Path() string {
	if v := strings.TrimSpace(os.Getenv("SHELF_CONFIG")); v != "" {
		return v
	}
	return ConfigPath
}

// Load reads config from path (defaults to config.yaml), applies env overrides and defaults.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) {
	if v := os.Getenv("SHELF_PORT"); v != "" {
		cfg.Port = strings.TrimSpace(v)
	}
	if v := os.Getenv("SHELF_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.TrimSpace(v)
	}
	if v := os.Getenv("SHELF_LOG_FORMAT"); v != "" {
		cfg.LogFormat = strings.TrimSpace(v)
	}
	if v := os.Getenv("SHELF_USERNAME"); v != "" {
		cfg.Username = strings.TrimSpace(v)
	}
	if v := os.Getenv("SHELF_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv("SHELF_PASSWORD_COST"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.PasswordCost = n
		}
	}
	if v := os.Getenv("SHELF_ID_STRATEGY"); v != "" {
		cfg.IDStrategy = strings.TrimSpace(v)
	}
	if v := os.Getenv("SHELF_ID_PREFIX"); v != "" {
		cfg.IDPrefix = strings.TrimSpace(v)
	}
	if v := os.Getenv("SHELF_BOOK_STORE"); v != "" {
		cfg.BookStore = strings.TrimSpace(v)
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("SHELF_SESSION_STORE"); v != "" {
		cfg.SessionStore = strings.TrimSpace(v)
	}
	if v := os.Getenv("SHELF_SESSION_TTL"); v != "" {
		cfg.SessionTTL = strings.TrimSpace(v)
	}
	if v := os.Getenv("SHELF_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("SHELF_COOKIE_NAME"); v != "" {
		cfg.CookieName = strings.TrimSpace(v)
	}
	if v := os.Getenv("SHELF_COOKIE_SECURE"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.CookieSecure = b
		}
	}
	if v := os.Getenv("SHELF_LOGIN_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.LoginRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("SHELF_TRUSTED_PROXY_CIDRS"); v != "" {
		cfg.TrustedProxyCIDRs = splitCSV(v)
	}
}

func applyDefaults(cfg *FileConfig) {
	if cfg.Username == "" {
		cfg.Username = "root"
	}
	if cfg.Password == "" {
		cfg.Password = "123"
	}
	if cfg.PasswordCost == 0 {
		cfg.PasswordCost = bcrypt.DefaultCost
	}
	cfg.BookStore = strings.ToLower(strings.TrimSpace(cfg.BookStore))
	if cfg.BookStore == "" {
		cfg.BookStore = BookStoreMemory
	}
	cfg.SessionStore = strings.ToLower(strings.TrimSpace(cfg.SessionStore))
	if cfg.SessionStore == "" {
		cfg.SessionStore = SessionStoreMemory
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "shelf_session"
	}
	if cfg.LoginRateLimitPerMinute == 0 {
		cfg.LoginRateLimitPerMinute = 10
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml or SHELF_PORT)")
	}
	if cfg.PasswordCost < bcrypt.MinCost || cfg.PasswordCost > bcrypt.MaxCost {
		return fmt.Errorf("config: passwordCost must be within [%d,%d]", bcrypt.MinCost, bcrypt.MaxCost)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.IDStrategy)) {
	case "", "uuid", "sequence", "random":
	default:
		return fmt.Errorf("config: unknown idStrategy %q (uuid, sequence, random)", cfg.IDStrategy)
	}
	switch cfg.BookStore {
	case BookStoreMemory:
	case BookStoreDatabase:
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return errors.New("config: databaseURL is required when bookStore is database")
		}
	default:
		return fmt.Errorf("config: unknown bookStore %q (memory, database)", cfg.BookStore)
	}
	switch cfg.SessionStore {
	case SessionStoreMemory:
	case SessionStoreRedis:
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return errors.New("config: redisAddr is required when sessionStore is redis")
		}
	case SessionStoreJWT:
		if strings.TrimSpace(cfg.JWTSecret) == "" {
			return errors.New("config: jwtSecret is required when sessionStore is jwt (or SHELF_JWT_SECRET)")
		}
	default:
		return fmt.Errorf("config: unknown sessionStore %q (memory, redis, jwt)", cfg.SessionStore)
	}
	if _, err := ParseSessionTTL(cfg.SessionTTL); err != nil {
		return err
	}
	if cfg.LoginRateLimitPerMinute < 0 {
		return errors.New("config: loginRateLimitPerMinute must be >= 0")
	}
	return nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// ParseSessionTTL parses the session TTL duration string. Empty means 24h.
func ParseSessionTTL(ttl string) (time.Duration, error) {
	if strings.TrimSpace(ttl) == "" {
		return 24 * time.Hour, nil
	}
	dur, err := time.ParseDuration(strings.TrimSpace(ttl))
	if err != nil {
		return 0, fmt.Errorf("invalid sessionTTL duration: %w", err)
	}
	if dur <= 0 {
		return 0, errors.New("config: sessionTTL must be positive")
	}
	return dur, nil
}
