package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds application configuration values.
type Config struct {
	Env  string `validate:"required,oneof=dev prod"`
	HTTP struct {
		Addr            string        `validate:"required,hostname_port"`
		StaticDir       string        `validate:"required"`
		TrustedProxies  []string      `validate:"dive,cidr|ip"`
		RateInterval    time.Duration `validate:"gte=0"`
		ShutdownTimeout time.Duration `validate:"gt=0"`
	}
	Store struct {
		Backend       string `validate:"required,oneof=memory sqlite"`
		StatsSchedule string
	}
	Login struct {
		Username string `validate:"required"`
		Password string `validate:"required"`
	}
	Log struct {
		ConsoleLevel string `validate:"required,oneof=debug info warn error"`
		FileLevel    string `validate:"required,oneof=debug info warn error"`
		File         string
	}
}

var validate = validator.New()

// Load reads configuration from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	var (
		c   Config
		err error
	)
	c.Env = getenv("ENV", "prod")
	c.HTTP.Addr = getenv("HTTP_ADDR", "127.0.0.1:8080")
	c.HTTP.StaticDir = getenv("HTTP_STATIC_DIR", "static")
	c.HTTP.TrustedProxies = list("HTTP_TRUSTED_PROXIES")
	if c.HTTP.RateInterval, err = duration("HTTP_RATE_INTERVAL", 0); err != nil {
		return Config{}, err
	}
	if c.HTTP.ShutdownTimeout, err = duration("HTTP_SHUTDOWN_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}
	c.Store.Backend = strings.ToLower(getenv("STORE_BACKEND", "memory"))
	c.Store.StatsSchedule = os.Getenv("STORE_STATS_SCHEDULE")
	if _, set := os.LookupEnv("STORE_STATS_SCHEDULE"); !set {
		c.Store.StatsSchedule = "@every 1m"
	}
	c.Login.Username = getenv("LOGIN_USERNAME", "demo1")
	c.Login.Password = getenv("LOGIN_PASSWORD", "welcome")
	c.Log.ConsoleLevel = strings.ToLower(getenv("LOG_CONSOLE_LEVEL", "info"))
	c.Log.FileLevel = strings.ToLower(getenv("LOG_FILE_LEVEL", "debug"))
	c.Log.File = getenv("LOG_FILE", "data/logs/ticketdesk.log")

	if err := validate.Struct(c); err != nil {
		return Config{}, err
	}
	if c.Log.File != "" && inside(c.Log.File, c.HTTP.StaticDir) {
		return Config{}, fmt.Errorf("LOG_FILE %q must not be inside HTTP_STATIC_DIR %q", c.Log.File, c.HTTP.StaticDir)
	}
	return c, nil
}

// inside reports whether file lies below dir once both are made absolute.
func inside(file, dir string) bool {
	f, err := filepath.Abs(file)
	if err != nil {
		return true
	}
	d, err := filepath.Abs(dir)
	if err != nil {
		return true
	}
	rel, err := filepath.Rel(d, f)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func list(k string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(k), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func duration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return d, nil
}
