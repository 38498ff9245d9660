package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// DefaultPath is where Load looks for the JSON configuration file.
var DefaultPath = filepath.Join("config", "config.json")

// AppConfig holds environment driven configuration values.
// Secrets have no defaults in code and must come from the config file, a .env file or the environment.
type AppConfig struct {
	AppPort string
	// Session token
	JWTSecret    string
	CookieName   string
	CookieSecure bool
	CookieDomain string
	// Database: "mysql" (default) or "sqlite"
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	SQLitePath  string
	// Redis for caching, token revocation and oauth state. Empty host disables it.
	RedisHost       string
	RedisPort       int
	RedisDB         int
	RedisPassword   string
	CacheTTLSeconds int
	// HTTP
	RateLimitPerMinute int
	AllowedOrigins     []string
	GinMode            string
	GinPath            string
	// Third-party login
	GitHubClientID     string
	GitHubClientSecret string
	GoogleClientID     string
	GoogleClientSecret string
	OAuthRedirectBase  string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Usernames granted the admin role when they register
	AdminUsernames []string
}

var (
	cfg    AppConfig
	loaded bool
	mu     sync.RWMutex
)

// Load loads the configuration from DefaultPath and the environment. It should be called once during boot.
func Load() AppConfig {
	return LoadFrom(DefaultPath)
}

// LoadFrom is Load with an explicit JSON file path.
func LoadFrom(path string) AppConfig {
	mu.Lock()
	defer mu.Unlock()
	if loaded {
		return cfg
	}

	// Precedence: JSON file -> defaults -> .env -> environment variables
	var c AppConfig
	if err := loadJSONConfig(path, &c); err != nil {
		log.Fatalf("invalid config file %s: %v", path, err)
	}
	applyDefaults(&c)

	// .env never overrides variables already present in the process environment
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf(".env not loaded: %v", err)
	}
	applyEnvOverrides(&c)

	if c.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	cfg = c
	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	mu.RLock()
	if loaded {
		c := cfg
		mu.RUnlock()
		return c
	}
	mu.RUnlock()
	return Load()
}

// Set replaces the cached configuration. Defaults are applied to zero fields.
func Set(c AppConfig) {
	applyDefaults(&c)
	mu.Lock()
	cfg = c
	loaded = true
	mu.Unlock()
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads the grouped JSON file into out if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if v, ok := m[key]; ok {
			switch t := v.(type) {
			case float64:
				return int(t)
			case string:
				i, _ := strconv.Atoi(t)
				return i
			}
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		if v, ok := m[key]; ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
		return false
	}
	getStringSlice := func(m map[string]any, key string) []string {
		if v, ok := m[key]; ok {
			if arr, ok := v.([]any); ok {
				res := make([]string, 0, len(arr))
				for _, it := range arr {
					if s, ok := it.(string); ok {
						res = append(res, s)
					}
				}
				return res
			}
		}
		return nil
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.JWTSecret = getString(app, "JWTSecret")
		out.CookieName = getString(app, "CookieName")
		out.CookieSecure = getBool(app, "CookieSecure")
		out.CookieDomain = getString(app, "CookieDomain")
		out.RateLimitPerMinute = getInt(app, "RateLimitPerMinute")
		out.CacheTTLSeconds = getInt(app, "CacheTTLSeconds")
		out.AllowedOrigins = getStringSlice(app, "AllowedOrigins")
		out.OAuthRedirectBase = getString(app, "OAuthRedirectBase")
		out.GinMode = getString(app, "GinMode")
		out.GinPath = getString(app, "GinPath")
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DBDriver = getString(dbs, "Driver")
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
		out.SQLitePath = getString(dbs, "SQLitePath")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		out.RedisPort = getInt(rds, "RedisPort")
		out.RedisDB = getInt(rds, "RedisDB")
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if oa, ok := raw["oauth"].(map[string]any); ok {
		out.GitHubClientID = getString(oa, "GitHubClientID")
		out.GitHubClientSecret = getString(oa, "GitHubClientSecret")
		out.GoogleClientID = getString(oa, "GoogleClientID")
		out.GoogleClientSecret = getString(oa, "GoogleClientSecret")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		out.LogLevel = getString(lg, "Level")
		out.LogPath = getString(lg, "Path")
		out.LogMaxSizeMB = getInt(lg, "MaxSizeMB")
		out.LogMaxBackups = getInt(lg, "MaxBackups")
		out.LogMaxAgeDays = getInt(lg, "MaxAgeDays")
		out.LogCompress = getBool(lg, "Compress")
	}

	if adm, ok := raw["admin"].(map[string]any); ok {
		out.AdminUsernames = getStringSlice(adm, "Usernames")
	}

	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "4000"
	}
	if c.CookieName == "" {
		c.CookieName = "token"
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "inkpress"
	}
	if c.SQLitePath == "" {
		c.SQLitePath = "inkpress.db"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.CacheTTLSeconds == 0 {
		c.CacheTTLSeconds = 60
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"http://localhost:5174"}
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.OAuthRedirectBase == "" {
		c.OAuthRedirectBase = "http://localhost:4000"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := getEnv("APP_PORT", getEnv("PORT", "")); v != "" {
		c.AppPort = v
	}
	if v := getEnv("JWT_SECRET", getEnv("JWT_SECRET_KEY", "")); v != "" {
		c.JWTSecret = v
	}
	if v := getEnv("COOKIE_NAME", ""); v != "" {
		c.CookieName = v
	}
	if v := getEnv("COOKIE_SECURE", ""); v != "" {
		c.CookieSecure = v == "true"
	}
	if v := getEnv("COOKIE_DOMAIN", ""); v != "" {
		c.CookieDomain = v
	}
	if v := getEnv("DB_DRIVER", ""); v != "" {
		c.DBDriver = v
	}
	if v := getEnv("DATABASE_URI", ""); v != "" {
		c.DatabaseURI = v
	}
	if v := getEnv("DB_HOST", ""); v != "" {
		c.DBHost = v
	}
	if v := getEnv("DB_PORT", ""); v != "" {
		c.DBPort = v
	}
	if v := getEnv("DB_USER", ""); v != "" {
		c.DBUser = v
	}
	if v := getEnv("DB_PASSWORD", ""); v != "" {
		c.DBPassword = v
	}
	if v := getEnv("DB_NAME", ""); v != "" {
		c.DBName = v
	}
	if v := getEnv("SQLITE_PATH", ""); v != "" {
		c.SQLitePath = v
	}
	if v := getEnv("REDIS_HOST", ""); v != "" {
		c.RedisHost = v
	}
	if v := getEnv("REDIS_PORT", ""); v != "" {
		c.RedisPort = mustParseInt(v)
	}
	if v := getEnv("REDIS_DB", ""); v != "" {
		c.RedisDB = mustParseInt(v)
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		c.RedisPassword = v
	}
	if v := getEnv("CACHE_TTL_SECONDS", ""); v != "" {
		c.CacheTTLSeconds = mustParseInt(v)
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		c.RateLimitPerMinute = mustParseInt(v)
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = readListEnv("CORS_ALLOWED_ORIGINS", c.AllowedOrigins)
	}
	if v := getEnv("GIN_MODE", ""); v != "" {
		c.GinMode = v
	}
	if v := getEnv("GIN_PATH", ""); v != "" {
		c.GinPath = v
	}
	if v := getEnv("GITHUB_CLIENT_ID", ""); v != "" {
		c.GitHubClientID = v
	}
	if v := getEnv("GITHUB_CLIENT_SECRET", ""); v != "" {
		c.GitHubClientSecret = v
	}
	if v := getEnv("GOOGLE_CLIENT_ID", ""); v != "" {
		c.GoogleClientID = v
	}
	if v := getEnv("GOOGLE_CLIENT_SECRET", ""); v != "" {
		c.GoogleClientSecret = v
	}
	if v := getEnv("OAUTH_REDIRECT_BASE_URL", ""); v != "" {
		c.OAuthRedirectBase = v
	}
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("LOG_MAX_SIZE_MB", ""); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_BACKUPS", ""); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_AGE_DAYS", ""); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}
	if v := getEnv("ADMIN_USERNAMES", ""); v != "" {
		c.AdminUsernames = readListEnv("ADMIN_USERNAMES", c.AdminUsernames)
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func readListEnv(key string, defaults []string) []string {
	if raw := os.Getenv(key); raw != "" {
		return splitAndTrim(raw)
	}
	return defaults
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// IsAdminUsername reports whether username is configured as an admin (case-insensitive).
func (c AppConfig) IsAdminUsername(username string) bool {
	uname := strings.TrimSpace(username)
	if uname == "" {
		return false
	}
	for _, u := range c.AdminUsernames {
		if strings.EqualFold(strings.TrimSpace(u), uname) {
			return true
		}
	}
	return false
}

// reset clears the cached configuration so tests can reload it.
func reset() {
	mu.Lock()
	cfg = AppConfig{}
	loaded = false
	mu.Unlock()
}
