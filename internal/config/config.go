package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fedorten/resursGraf/internal/scheduler"
	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type Config struct {
	// HTTP
	Port            int
	CORSAllowOrigin string

	// Cache
	CacheTTLMinutes int
	HistoryStore    string
	HistoryDir      string
	SQLitePath      string

	// Postgres (HISTORY_STORE=postgres)
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string

	// Redis (HISTORY_STORE=redis)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Upstreams
	YahooHosts                []string
	YahooRange                string
	YahooInterval             string
	YahooTimeoutSeconds       int
	FrankfurterHosts          []string
	RubHistoryStart           string
	FrankfurterTimeoutSeconds int
	UpstreamRetryAttempts     int

	// Background refresh
	RefreshCron    string
	RefreshOnStart bool

	// Notifications
	WebhookURL string
	NotifyName string

	CatalogFile string

	LogLevel  string
	LogFormat string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            envInt("PORT", 5000),
		CORSAllowOrigin: envStr("CORS_ALLOW_ORIGIN", "*"),

		CacheTTLMinutes: envInt("CACHE_TTL_MINUTES", 60),
		HistoryStore:    strings.ToLower(envStr("HISTORY_STORE", StoreMemory)),
		HistoryDir:      envStr("HISTORY_DIR", "data/history"),
		SQLitePath:      envStr("SQLITE_PATH", "data/resursgraf.db"),

		DBHost:     envStr("DB_HOST", "localhost"),
		DBPort:     envInt("DB_PORT", 5432),
		DBName:     envStr("DB_NAME", "resursgraf"),
		DBUser:     envStr("DB_USER", "postgres"),
		DBPassword: envStr("DB_PASSWORD", ""),

		RedisAddr:     envStr("REDIS_ADDR", "localhost:6379"),
		RedisPassword: envStr("REDIS_PASSWORD", ""),
		RedisDB:       envInt("REDIS_DB", 0),

		YahooHosts:                envList("YAHOO_HOSTS"),
		YahooRange:                envStr("YAHOO_RANGE", "5y"),
		YahooInterval:             envStr("YAHOO_INTERVAL", "1wk"),
		YahooTimeoutSeconds:       envInt("YAHOO_TIMEOUT_SECONDS", 15),
		FrankfurterHosts:          envList("FRANKFURTER_HOSTS"),
		RubHistoryStart:           envStr("RUB_HISTORY_START", "2015-01-01"),
		FrankfurterTimeoutSeconds: envInt("FRANKFURTER_TIMEOUT_SECONDS", 60),
		UpstreamRetryAttempts:     envInt("UPSTREAM_RETRY_ATTEMPTS", 1),

		RefreshCron:    envStr("REFRESH_CRON", ""),
		RefreshOnStart: envBool("REFRESH_ON_START", false),

		WebhookURL: envStr("WEBHOOK_URL", ""),
		NotifyName: envStr("NOTIFY_NAME", "resursGraf"),

		CatalogFile: envStr("CATALOG_FILE", ""),

		LogLevel:  envStr("LOG_LEVEL", "info"),
		LogFormat: strings.ToLower(envStr("LOG_FORMAT", "text")),
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Sprintf("PORT %d is out of range", c.Port))
	}
	if c.CacheTTLMinutes <= 0 {
		errs = append(errs, "CACHE_TTL_MINUTES must be positive")
	}
	switch c.HistoryStore {
	case StoreMemory, StoreFile, StoreSQLite, StorePostgres, StoreRedis:
	default:
		errs = append(errs, fmt.Sprintf("HISTORY_STORE %q is not one of memory, file, sqlite, postgres, redis", c.HistoryStore))
	}
	if _, err := time.Parse("2006-01-02", c.RubHistoryStart); err != nil {
		errs = append(errs, fmt.Sprintf("RUB_HISTORY_START %q is not YYYY-MM-DD", c.RubHistoryStart))
	}
	if c.YahooTimeoutSeconds <= 0 || c.FrankfurterTimeoutSeconds <= 0 {
		errs = append(errs, "upstream timeouts must be positive")
	}
	if c.UpstreamRetryAttempts < 1 {
		errs = append(errs, "UPSTREAM_RETRY_ATTEMPTS must be at least 1")
	}
	if c.RefreshCron != "" {
		if err := scheduler.ValidateSpec(c.RefreshCron); err != nil {
			errs = append(errs, fmt.Sprintf("REFRESH_CRON: %v", err))
		}
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT %q is not text or json", c.LogFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// Warnings lists settings that are valid but probably not what was meant.
func (c *Config) Warnings() []string {
	var warns []string
	if c.HistoryStore == StoreMemory {
		warns = append(warns, "HISTORY_STORE=memory: history is lost on restart")
	}
	if c.RefreshOnStart && c.RefreshCron == "" {
		warns = append(warns, "REFRESH_ON_START has no effect without REFRESH_CRON")
	}
	return warns
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

func (c *Config) Print() {
	fmt.Println("=== resursGraf Configuration ===")
	fmt.Printf("Port: %d\n", c.Port)
	fmt.Printf("CORS Origin: %s\n", c.CORSAllowOrigin)
	fmt.Println("--------------------------------------")
	fmt.Printf("History Store: %s\n", c.HistoryStore)
	switch c.HistoryStore {
	case StoreFile:
		fmt.Printf("  Dir: %s\n", c.HistoryDir)
	case StoreSQLite:
		fmt.Printf("  Path: %s\n", c.SQLitePath)
	case StorePostgres:
		fmt.Printf("  Database: %s:%d/%s\n", c.DBHost, c.DBPort, c.DBName)
	case StoreRedis:
		fmt.Printf("  Redis: %s (db %d)\n", c.RedisAddr, c.RedisDB)
	}
	fmt.Printf("Cache TTL: %d minutes\n", c.CacheTTLMinutes)
	fmt.Println("--------------------------------------")
	fmt.Println("Upstreams:")
	fmt.Printf("  Yahoo: %s (range %s, interval %s, %ds)\n",
		listLabel(c.YahooHosts), c.YahooRange, c.YahooInterval, c.YahooTimeoutSeconds)
	fmt.Printf("  Frankfurter: %s (from %s, %ds)\n",
		listLabel(c.FrankfurterHosts), c.RubHistoryStart, c.FrankfurterTimeoutSeconds)
	fmt.Printf("  Attempts per host: %d\n", c.UpstreamRetryAttempts)
	fmt.Println("--------------------------------------")
	fmt.Printf("Background refresh: %s\n", boolLabel(c.RefreshCron != "", c.RefreshCron, "disabled"))
	fmt.Printf("Webhook: %s\n", boolLabel(c.WebhookURL != "", "configured", "not set (log only)"))
	fmt.Printf("Catalog overrides: %s\n", boolLabel(c.CatalogFile != "", c.CatalogFile, "none"))
	for _, w := range c.Warnings() {
		fmt.Printf("[WARN] %s\n", w)
	}
	fmt.Println("======================================")
}

func (c *Config) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(v)
		return v == "true" || v == "1" || v == "yes"
	}
	return fallback
}

// envList splits a comma-separated value; unset yields nil so callers keep
// their built-in defaults.
func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func listLabel(v []string) string {
	if len(v) == 0 {
		return "default hosts"
	}
	return strings.Join(v, ", ")
}

func boolLabel(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
