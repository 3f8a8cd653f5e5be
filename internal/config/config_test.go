package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/intorma/torma/internal/config"
	"github.com/intorma/torma/internal/testsupport"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		config.EnvStorageBackend,
		config.EnvStoragePath,
		config.EnvRedisAddr,
		config.EnvLogLevel,
	} {
		t.Setenv(name, "")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoad_NotFound(t *testing.T) {
	testsupport.SetupTestHome(t)
	clearEnv(t)
	tmpDir := t.TempDir()

	cfg, err := config.Load(config.Options{ProjectDir: tmpDir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Storage.Backend != config.BackendFile {
		t.Errorf("Backend = %q, expected %q", cfg.Storage.Backend, config.BackendFile)
	}
	if cfg.Storage.Key != "in.torma.tasks" {
		t.Errorf("Key = %q, expected in.torma.tasks", cfg.Storage.Key)
	}
	if !cfg.Storage.Watch {
		t.Error("expected watch enabled by default")
	}
	if cfg.Assist.Timeout.Duration != 60*time.Second {
		t.Errorf("Timeout = %s, expected 60s", cfg.Assist.Timeout.Duration)
	}
	if cfg.Assist.ManagerVoice != "Algenib" || cfg.Assist.AssistantVoice != "Achernar" {
		t.Errorf("unexpected voices %q/%q", cfg.Assist.ManagerVoice, cfg.Assist.AssistantVoice)
	}
}

func TestLoad_Full(t *testing.T) {
	testsupport.SetupTestHome(t)
	clearEnv(t)
	tmpDir := t.TempDir()

	writeFile(t, filepath.Join(tmpDir, config.ProjectFile), `
[storage]
backend = "sqlite"
path = "/var/lib/torma/tasks.db"
watch = false

[assist]
timeout = "15s"
web-search = false
timezone = "UTC"

[log]
level = "debug"
format = "json"

[server]
addr = "127.0.0.1:9000"
cors = false
`)

	cfg, err := config.Load(config.Options{ProjectDir: tmpDir})
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Storage.Backend != config.BackendSQLite {
		t.Errorf("Backend = %q", cfg.Storage.Backend)
	}
	if cfg.Storage.Path != "/var/lib/torma/tasks.db" {
		t.Errorf("Path = %q", cfg.Storage.Path)
	}
	if cfg.Storage.Watch {
		t.Error("expected watch disabled")
	}
	if cfg.Assist.Timeout.Duration != 15*time.Second {
		t.Errorf("Timeout = %s", cfg.Assist.Timeout.Duration)
	}
	if cfg.Assist.WebSearch {
		t.Error("expected web search disabled")
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" || cfg.Server.CORS {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Assist.TextModel != "gemini-1.5-flash-latest" {
		t.Errorf("expected default text model to survive, got %q", cfg.Assist.TextModel)
	}
}

func TestLoad_ProjectOverridesGlobal(t *testing.T) {
	home := testsupport.SetupTestHome(t)
	clearEnv(t)
	tmpDir := t.TempDir()

	writeFile(t, filepath.Join(home, ".config", "torma", "config.toml"), `
[assist]
text-model = "global-model"
manager-voice = "Puck"

[storage]
watch = false
`)
	writeFile(t, filepath.Join(tmpDir, config.ProjectFile), `
[assist]
text-model = "project-model"
`)

	cfg, err := config.Load(config.Options{ProjectDir: tmpDir})
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Assist.TextModel != "project-model" {
		t.Errorf("TextModel = %q, expected project-model", cfg.Assist.TextModel)
	}
	if cfg.Assist.ManagerVoice != "Puck" {
		t.Errorf("ManagerVoice = %q, expected global Puck", cfg.Assist.ManagerVoice)
	}
	if cfg.Storage.Watch {
		t.Error("expected global watch=false to apply")
	}
}

func TestLoad_ProjectEmptyStringOverridesGlobal(t *testing.T) {
	home := testsupport.SetupTestHome(t)
	clearEnv(t)
	tmpDir := t.TempDir()

	writeFile(t, filepath.Join(home, ".config", "torma", "config.toml"), `
[log]
file = "/tmp/global.log"
`)
	writeFile(t, filepath.Join(tmpDir, config.ProjectFile), `
[log]
file = ""
`)

	cfg, err := config.Load(config.Options{ProjectDir: tmpDir})
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Log.File != "" {
		t.Errorf("File = %q, expected empty", cfg.Log.File)
	}
}

func TestLoad_ExplicitPath(t *testing.T) {
	testsupport.SetupTestHome(t)
	clearEnv(t)
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "custom.toml")

	writeFile(t, path, `
[storage]
backend = "memory"
`)

	cfg, err := config.Load(config.Options{ProjectDir: tmpDir, Path: path})
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Storage.Backend != config.BackendMemory {
		t.Errorf("Backend = %q, expected memory", cfg.Storage.Backend)
	}
}

func TestLoad_ExplicitPathMissing(t *testing.T) {
	testsupport.SetupTestHome(t)
	clearEnv(t)

	_, err := config.Load(config.Options{ProjectDir: t.TempDir(), Path: "/nonexistent/torma.toml"})
	if err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	testsupport.SetupTestHome(t)
	clearEnv(t)
	tmpDir := t.TempDir()

	writeFile(t, filepath.Join(tmpDir, config.ProjectFile), `
[storage]
backend = "file"
`)
	t.Setenv(config.EnvStorageBackend, "redis")
	t.Setenv(config.EnvRedisAddr, "redis.internal:6380")
	t.Setenv(config.EnvStoragePath, "/data")
	t.Setenv(config.EnvLogLevel, "warn")

	cfg, err := config.Load(config.Options{ProjectDir: tmpDir})
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Storage.Backend != config.BackendRedis {
		t.Errorf("Backend = %q", cfg.Storage.Backend)
	}
	if cfg.Storage.RedisAddr != "redis.internal:6380" {
		t.Errorf("RedisAddr = %q", cfg.Storage.RedisAddr)
	}
	if cfg.Storage.Path != "/data" {
		t.Errorf("Path = %q", cfg.Storage.Path)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Level = %q", cfg.Log.Level)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	testsupport.SetupTestHome(t)
	clearEnv(t)
	tmpDir := t.TempDir()

	t.Setenv("TORMA_TEST_API_KEY", "")
	os.Unsetenv("TORMA_TEST_API_KEY")
	writeFile(t, filepath.Join(tmpDir, ".env"), "TORMA_TEST_API_KEY=secret-from-dotenv\n")
	writeFile(t, filepath.Join(tmpDir, config.ProjectFile), `
[assist]
api-key-env = "TORMA_TEST_API_KEY"
`)

	cfg, err := config.Load(config.Options{ProjectDir: tmpDir})
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if got := cfg.APIKey(); got != "secret-from-dotenv" {
		t.Errorf("APIKey = %q, expected value from .env", got)
	}
}

func TestLoad_InvalidBackend(t *testing.T) {
	testsupport.SetupTestHome(t)
	clearEnv(t)
	tmpDir := t.TempDir()

	writeFile(t, filepath.Join(tmpDir, config.ProjectFile), `
[storage]
backend = "postgres"
`)

	_, err := config.Load(config.Options{ProjectDir: tmpDir})
	if !errors.Is(err, config.ErrUnknownBackend) {
		t.Fatalf("expected ErrUnknownBackend, got %v", err)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	testsupport.SetupTestHome(t)
	clearEnv(t)
	tmpDir := t.TempDir()

	writeFile(t, filepath.Join(tmpDir, config.ProjectFile), "[storage\nbackend = ")

	if _, err := config.Load(config.Options{ProjectDir: tmpDir}); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_InvalidTimeout(t *testing.T) {
	testsupport.SetupTestHome(t)
	clearEnv(t)
	tmpDir := t.TempDir()

	writeFile(t, filepath.Join(tmpDir, config.ProjectFile), `
[assist]
timeout = "soon"
`)

	if _, err := config.Load(config.Options{ProjectDir: tmpDir}); err == nil {
		t.Fatal("expected duration parse error")
	}
}

func TestStoragePathDefaults(t *testing.T) {
	home := testsupport.SetupTestHome(t)

	cfg := config.Default()
	path, err := cfg.StoragePath()
	if err != nil {
		t.Fatalf("storage path: %v", err)
	}
	if path != filepath.Join(home, ".local", "share", "torma") {
		t.Errorf("file path = %q", path)
	}

	cfg.Storage.Backend = config.BackendSQLite
	path, err = cfg.StoragePath()
	if err != nil {
		t.Fatalf("storage path: %v", err)
	}
	if path != filepath.Join(home, ".local", "share", "torma", "torma.db") {
		t.Errorf("sqlite path = %q", path)
	}
}

func TestLocation(t *testing.T) {
	cfg := config.Default()
	loc, err := cfg.Location()
	if err != nil {
		t.Fatalf("location: %v", err)
	}
	if loc.String() != "Asia/Jakarta" {
		t.Errorf("location = %s", loc)
	}

	cfg.Assist.Timezone = ""
	loc, err = cfg.Location()
	if err != nil {
		t.Fatalf("location: %v", err)
	}
	if loc != time.Local {
		t.Errorf("expected local zone, got %s", loc)
	}
}
