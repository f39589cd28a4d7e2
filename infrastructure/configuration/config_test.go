package configuration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWorkerDefaults(t *testing.T) {
	var c Config
	initWorkers(&c)

	require.Equal(t, 15, c.Scheduler.PollIntervalSec)
	require.Equal(t, 20, c.Scheduler.ClaimBatchSize)
	require.Equal(t, 10, c.Scheduler.LeaseMinutes)
	require.Equal(t, 5, c.Scheduler.MaxAttempts)
	require.Equal(t, 32, c.Scheduler.MaxConcurrent)
	require.Equal(t, 30, c.Scheduler.DispatchTimeoutSec)
	require.Equal(t, 30, c.RuleEngine.TickIntervalSec)
	require.Equal(t, 256, c.RuleEngine.EventBuffer)
	require.Equal(t, 5, c.Credential.RefreshMarginMinutes)
}

func TestWorkerDefaultsKeepConfiguredValues(t *testing.T) {
	c := Config{
		Scheduler:  Scheduler{PollIntervalSec: 5, MaxAttempts: 3},
		RuleEngine: RuleEngine{TickIntervalSec: 10},
	}
	initWorkers(&c)

	require.Equal(t, 5, c.Scheduler.PollIntervalSec)
	require.Equal(t, 3, c.Scheduler.MaxAttempts)
	require.Equal(t, 10, c.RuleEngine.TickIntervalSec)
	require.Equal(t, 20, c.Scheduler.ClaimBatchSize)
}

func TestAppDefaults(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("PORT", "")
	t.Setenv("SECRET_KEY", "test-secret")

	var c Config
	initApp(&c)

	require.Equal(t, 10001, c.App.Port)
	require.Equal(t, "test-secret", c.App.SecretKey)
}

func TestAppPortFromEnv(t *testing.T) {
	t.Setenv("APP_PORT", "8088")

	var c Config
	initApp(&c)

	require.Equal(t, 8088, c.App.Port)
}

func TestDatabaseDefaultsMssqlPort(t *testing.T) {
	var c Config
	initDatabase(&c)

	require.Equal(t, "1433", c.Database.Mssql.Port)
}

func TestLoadEnvFromFile(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "config.env")
	second := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(first, []byte("# comment\nSH_FIRST=\"from-config\"\nSH_SHARED=config\nSH_PRESET=from-file\n"), 0o600))
	require.NoError(t, os.WriteFile(second, []byte("SH_SHARED=dotenv\nSH_SECOND='from-dotenv'\nnot a pair\n"), 0o600))

	t.Setenv("SH_PRESET", "from-process")
	os.Unsetenv("SH_FIRST")
	os.Unsetenv("SH_SHARED")
	os.Unsetenv("SH_SECOND")

	LoadEnvFromFile(first, second)
	t.Cleanup(func() {
		os.Unsetenv("SH_FIRST")
		os.Unsetenv("SH_SHARED")
		os.Unsetenv("SH_SECOND")
	})

	require.Equal(t, "from-config", os.Getenv("SH_FIRST"))
	require.Equal(t, "config", os.Getenv("SH_SHARED"))
	require.Equal(t, "from-dotenv", os.Getenv("SH_SECOND"))
	require.Equal(t, "from-process", os.Getenv("SH_PRESET"))
}
