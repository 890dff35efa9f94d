package learningassistant

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the settings shared by the hosts.
type Config struct {
	Port string

	DBDriver Driver // "sqlite3", "sqlite" or "pgx"
	DBDSN    string
	BankDir  string
	LogDir   string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	SessionSecret   string
	AdminUser       string
	AdminPassHash   string // bcrypt
	AdvisoryTimeout time.Duration
	Verbose         bool
}

// LoadConfig reads .env when present, then the environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	timeout, err := getDuration("ADVISORY_TIMEOUT", DefaultAdvisoryTimeout)
	if err != nil {
		return nil, err
	}
	verbose, err := getBool("VERBOSE", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:            getenvDefault("PORT", "8080"),
		DBDriver:        Driver(getenvDefault("DB_DRIVER", string(DriverSQLite3))),
		DBDSN:           getenvDefault("DB_DSN", "banks.db"),
		BankDir:         os.Getenv("BANK_DIR"),
		LogDir:          getenvDefault("LOG_DIR", "log"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:   os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:     os.Getenv("OPENAI_MODEL"),
		SessionSecret:   os.Getenv("SESSION_SECRET"),
		AdminUser:       getenvDefault("ADMIN_USER", "admin"),
		AdminPassHash:   os.Getenv("ADMIN_PASS_HASH"),
		AdvisoryTimeout: timeout,
		Verbose:         verbose,
	}
	switch cfg.DBDriver {
	case DriverSQLite3, DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("config: unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	return cfg, nil
}

// AssistantEnabled reports whether an API key was configured.
func (c *Config) AssistantEnabled() bool {
	return c.OpenAIAPIKey != ""
}

// OpenAI returns the assistant settings.
func (c *Config) OpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:  c.OpenAIAPIKey,
		BaseURL: c.OpenAIBaseURL,
		Model:   c.OpenAIModel,
	}
}

func getenvDefault(k, fallback string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return fallback
}

func getDuration(k string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not a valid duration: %w", k, v, err)
	}
	return d, nil
}

func getBool(k string, fallback bool) (bool, error) {
	v := os.Getenv(k)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s=%q is not a valid boolean: %w", k, v, err)
	}
	return b, nil
}
