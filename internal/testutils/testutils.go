package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"

	"github.com/nfrund/tavern/internal/config"
	"github.com/nfrund/tavern/internal/logging"
)

// ProjectRoot walks up from the working directory to the directory holding go.mod.
func ProjectRoot(t *testing.T) string {
	t.Helper()

	path, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(path, "go.mod")); err == nil {
			return path
		}
		if path == filepath.Dir(path) {
			t.Fatalf("could not find project root with go.mod")
		}
		path = filepath.Dir(path)
	}
}

// ConfigForTests loads .env.test into the test's environment and returns the config.
func ConfigForTests(t *testing.T) config.Provider {
	t.Helper()

	env, err := godotenv.Read(filepath.Join(ProjectRoot(t), ".env.test"))
	if err != nil {
		t.Fatalf("failed to load .env.test file: %v", err)
	}
	for key, value := range env {
		t.Setenv(key, value)
	}

	logging.New()

	cfg, err := config.FromEnv()
	if err != nil {
		t.Fatalf("failed to parse test config: %v", err)
	}
	return cfg
}

// RequireDB skips integration tests in -short mode or when SurrealDB is not configured.
func RequireDB(t *testing.T) config.Provider {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping SurrealDB integration test in short mode")
	}
	cfg := ConfigForTests(t)
	if c, ok := cfg.(*config.Config); ok {
		if err := c.RequireDB(); err != nil {
			t.Skipf("skipping SurrealDB integration test: %v", err)
		}
	}
	return cfg
}
