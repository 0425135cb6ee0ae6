// internal/config/config.go
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")

// Config is everything cmd/api needs to wire the backend.
type Config struct {
	AppEnv  string
	LogMode string
	Port    string

	DBDriver    string
	DatabaseURL string

	SecretKey      string
	AccessTokenTTL time.Duration
	CORSOrigins    []string

	ProjectsDir      string
	ExtensionsDir    string
	DefaultExtension string

	ProcessStateFile   string
	DemoBasePort       int
	DemoCommand        []string
	NPMInstallOnCreate bool

	AdminUsername string
	AdminPassword string
	AdminEmail    string

	CommentsPerMinute int
	WatchContent      bool
}

// Load reads the environment. Outside production a .env file is applied first;
// production injects variables through its own infra.
func Load() (*Config, error) {
	env := os.Getenv("APP_ENV")
	if env != "production" {
		_ = godotenv.Load()
	}

	home, _ := os.UserHomeDir()
	cfg := &Config{
		AppEnv:  env,
		LogMode: String("LOG_MODE", "dev"),
		Port:    String("PORT", "8000"),

		DBDriver:    strings.ToLower(String("DB_DRIVER", "postgres")),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		SecretKey:      String("SECRET_KEY", "your-secret-key-change-in-production"),
		AccessTokenTTL: time.Duration(Int("ACCESS_TOKEN_EXPIRE_MINUTES", 30)) * time.Minute,
		CORSOrigins:    ParseOrigins(os.Getenv("CORS_ORIGINS")),

		ProjectsDir:      String("PROJECTS_DIR", "./projects"),
		ExtensionsDir:    String("EXTENSIONS_DIR", "./extensions"),
		DefaultExtension: String("DEFAULT_EXTENSION", "orange-template"),

		ProcessStateFile:   String("PROCESS_STATE_FILE", filepath.Join(home, ".central-illustration", "demo_processes.json")),
		DemoBasePort:       Int("DEMO_BASE_PORT", 3001),
		DemoCommand:        strings.Fields(String("DEMO_COMMAND", "npm run dev --")),
		NPMInstallOnCreate: Bool("NPM_INSTALL_ON_CREATE", true),

		AdminUsername: String("ADMIN_USERNAME", "admin"),
		AdminPassword: String("ADMIN_PASSWORD", "admin123"),
		AdminEmail:    String("ADMIN_EMAIL", "admin@example.com"),

		CommentsPerMinute: Int("COMMENT_RATE", 10),
		WatchContent:      Bool("WATCH_CONTENT", true),
	}

	if cfg.DatabaseURL == "" {
		if cfg.DBDriver != "sqlite" {
			return nil, ErrMissingDatabaseURL
		}
		cfg.DatabaseURL = "file:central.db"
	}
	return cfg, nil
}

// ParseOrigins accepts a JSON array or a comma separated list. Empty means any origin.
func ParseOrigins(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return []string{"*"}
	}
	var list []string
	if err := json.Unmarshal([]byte(v), &list); err == nil {
		if len(list) == 0 {
			return []string{"*"}
		}
		return list
	}
	for _, o := range strings.Split(v, ",") {
		if o = strings.TrimSpace(o); o != "" {
			list = append(list, o)
		}
	}
	if len(list) == 0 {
		return []string{"*"}
	}
	return list
}

func String(name, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return def
}

func Int(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func Bool(name string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// ClientConfig is what cmd/cictl reads from the environment. Flags override it.
type ClientConfig struct {
	APIURL      string
	Origin      string
	SessionFile string
	LogMode     string
}

func LoadClient() *ClientConfig {
	_ = godotenv.Load()
	return &ClientConfig{
		APIURL:      os.Getenv("CI_API_URL"),
		Origin:      os.Getenv("CI_ORIGIN"),
		SessionFile: os.Getenv("CI_SESSION_FILE"),
		LogMode:     String("CI_LOG_MODE", "dev"),
	}
}
