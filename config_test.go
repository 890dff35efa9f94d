package learningassistant_test

import (
	"os"
	"testing"
	"time"

	"learningassistant"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	chdir(t, t.TempDir()) // no .env here
	for _, k := range []string{"PORT", "DB_DRIVER", "DB_DSN", "OPENAI_API_KEY", "ADVISORY_TIMEOUT", "VERBOSE", "ADMIN_USER"} {
		t.Setenv(k, "")
	}

	cfg, err := learningassistant.LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, learningassistant.DriverSQLite3, cfg.DBDriver)
	require.Equal(t, "admin", cfg.AdminUser)
	require.Equal(t, learningassistant.DefaultAdvisoryTimeout, cfg.AdvisoryTimeout)
	require.False(t, cfg.AssistantEnabled())
}

func TestLoadConfigFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "pgx")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_BASE_URL", "http://localhost:1234/v1")
	t.Setenv("ADVISORY_TIMEOUT", "5s")
	t.Setenv("VERBOSE", "true")

	cfg, err := learningassistant.LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "9090", cfg.Port)
	require.Equal(t, learningassistant.DriverPostgres, cfg.DBDriver)
	require.Equal(t, 5*time.Second, cfg.AdvisoryTimeout)
	require.True(t, cfg.Verbose)
	require.True(t, cfg.AssistantEnabled())
	require.Equal(t, "http://localhost:1234/v1", cfg.OpenAI().BaseURL)
}

func TestLoadConfigInvalid(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ADVISORY_TIMEOUT", "soon")
	_, err := learningassistant.LoadConfig()
	require.Error(t, err)

	t.Setenv("ADVISORY_TIMEOUT", "")
	t.Setenv("DB_DRIVER", "oracle")
	_, err = learningassistant.LoadConfig()
	require.Error(t, err)
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
