// Package config handles loading torma.toml configuration files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/intorma/torma/internal/paths"
)

// ProjectFile is the name of the per-project config file.
const ProjectFile = "torma.toml"

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Environment overrides.
const (
	EnvStorageBackend = "TORMA_STORAGE_BACKEND"
	EnvStoragePath    = "TORMA_STORAGE_PATH"
	EnvRedisAddr      = "TORMA_REDIS_ADDR"
	EnvLogLevel       = "TORMA_LOG_LEVEL"
)

// ErrUnknownBackend is returned when storage.backend names no known backend.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Config represents the torma.toml configuration file.
type Config struct {
	Storage Storage `toml:"storage"`
	Assist  Assist  `toml:"assist"`
	Log     Log     `toml:"log"`
	Server  Server  `toml:"server"`
}

// Storage selects where the task list lives.
type Storage struct {
	// Backend is one of file, sqlite, redis, memory.
	Backend string `toml:"backend"`
	// Path is a directory for the file backend or a database file for
	// sqlite. Empty means the default data directory.
	Path      string `toml:"path"`
	Key       string `toml:"key"`
	RedisAddr string `toml:"redis-addr"`
	// Watch enables reloading when another process writes the key.
	Watch bool `toml:"watch"`
}

// Assist configures the generative model flows.
type Assist struct {
	APIKeyEnv      string   `toml:"api-key-env"`
	TextModel      string   `toml:"text-model"`
	SpeechModel    string   `toml:"speech-model"`
	ImageModel     string   `toml:"image-model"`
	Timeout        Duration `toml:"timeout"`
	WebSearch      bool     `toml:"web-search"`
	Timezone       string   `toml:"timezone"`
	ManagerVoice   string   `toml:"manager-voice"`
	AssistantVoice string   `toml:"assistant-voice"`
	NarratorVoice  string   `toml:"narrator-voice"`
}

// Log configures logging output.
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

// Server configures `torma serve`.
type Server struct {
	Addr string `toml:"addr"`
	CORS bool   `toml:"cors"`
}

// Duration is a time.Duration that decodes from TOML strings like "60s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file sets a value.
func Default() *Config {
	return &Config{
		Storage: Storage{
			Backend:   BackendFile,
			Key:       "in.torma.tasks",
			RedisAddr: "localhost:6379",
			Watch:     true,
		},
		Assist: Assist{
			APIKeyEnv:      "GEMINI_API_KEY",
			TextModel:      "gemini-1.5-flash-latest",
			SpeechModel:    "gemini-2.5-flash-preview-tts",
			ImageModel:     "gemini-2.0-flash-preview-image-generation",
			Timeout:        Duration{60 * time.Second},
			WebSearch:      true,
			Timezone:       "Asia/Jakarta",
			ManagerVoice:   "Algenib",
			AssistantVoice: "Achernar",
			NarratorVoice:  "Algenib",
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Server: Server{
			Addr: ":8080",
			CORS: true,
		},
	}
}

// Options controls Load.
type Options struct {
	// ProjectDir is searched for torma.toml and .env.
	ProjectDir string
	// Path replaces the project config file when set.
	Path string
}

// Load loads configuration from the global config file and the project
// file, applies environment overrides and returns the merged result.
// Missing files are not an error.
func Load(opts Options) (*Config, error) {
	if err := LoadEnv(opts.ProjectDir); err != nil {
		return nil, err
	}

	globalPath, err := paths.GlobalConfigPath()
	if err != nil {
		return nil, err
	}

	globalCfg, globalMeta, err := loadConfigFile(globalPath, false)
	if err != nil {
		return nil, err
	}

	projectPath := opts.Path
	required := projectPath != ""
	if projectPath == "" {
		projectPath = filepath.Join(opts.ProjectDir, ProjectFile)
	}
	projectCfg, projectMeta, err := loadConfigFile(projectPath, required)
	if err != nil {
		return nil, err
	}

	merged := Default()
	overlay(merged, globalCfg, globalMeta)
	overlay(merged, projectCfg, projectMeta)
	applyEnv(merged)

	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}

// LoadEnv loads dir/.env into the process environment without overriding
// variables that are already set.
func LoadEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func loadConfigFile(path string, required bool) (*Config, toml.MetaData, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && !required {
		return &Config{}, toml.MetaData{}, nil
	}
	if err != nil {
		return nil, toml.MetaData{}, fmt.Errorf("read config file %s: %w", path, err)
	}

	var cfg Config
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, toml.MetaData{}, fmt.Errorf("parse config file %s: %w", path, err)
	}

	return &cfg, meta, nil
}

// overlay copies every key src defines onto dst.
func overlay(dst, src *Config, meta toml.MetaData) {
	if src == nil {
		return
	}

	setString(meta, &dst.Storage.Backend, src.Storage.Backend, "storage", "backend")
	setString(meta, &dst.Storage.Path, src.Storage.Path, "storage", "path")
	setString(meta, &dst.Storage.Key, src.Storage.Key, "storage", "key")
	setString(meta, &dst.Storage.RedisAddr, src.Storage.RedisAddr, "storage", "redis-addr")
	setBool(meta, &dst.Storage.Watch, src.Storage.Watch, "storage", "watch")

	setString(meta, &dst.Assist.APIKeyEnv, src.Assist.APIKeyEnv, "assist", "api-key-env")
	setString(meta, &dst.Assist.TextModel, src.Assist.TextModel, "assist", "text-model")
	setString(meta, &dst.Assist.SpeechModel, src.Assist.SpeechModel, "assist", "speech-model")
	setString(meta, &dst.Assist.ImageModel, src.Assist.ImageModel, "assist", "image-model")
	if meta.IsDefined("assist", "timeout") {
		dst.Assist.Timeout = src.Assist.Timeout
	}
	setBool(meta, &dst.Assist.WebSearch, src.Assist.WebSearch, "assist", "web-search")
	setString(meta, &dst.Assist.Timezone, src.Assist.Timezone, "assist", "timezone")
	setString(meta, &dst.Assist.ManagerVoice, src.Assist.ManagerVoice, "assist", "manager-voice")
	setString(meta, &dst.Assist.AssistantVoice, src.Assist.AssistantVoice, "assist", "assistant-voice")
	setString(meta, &dst.Assist.NarratorVoice, src.Assist.NarratorVoice, "assist", "narrator-voice")

	setString(meta, &dst.Log.Level, src.Log.Level, "log", "level")
	setString(meta, &dst.Log.Format, src.Log.Format, "log", "format")
	setString(meta, &dst.Log.File, src.Log.File, "log", "file")

	setString(meta, &dst.Server.Addr, src.Server.Addr, "server", "addr")
	setBool(meta, &dst.Server.CORS, src.Server.CORS, "server", "cors")
}

func setString(meta toml.MetaData, dst *string, value string, key ...string) {
	if meta.IsDefined(key...) {
		*dst = strings.TrimSpace(value)
	}
}

func setBool(meta toml.MetaData, dst *bool, value bool, key ...string) {
	if meta.IsDefined(key...) {
		*dst = value
	}
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvStorageBackend)); v != "" {
		cfg.Storage.Backend = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvStoragePath)); v != "" {
		cfg.Storage.Path = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvRedisAddr)); v != "" {
		cfg.Storage.RedisAddr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Log.Level = v
	}
}

// Validate reports configuration values no component could act on.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Storage.Backend) {
	case BackendFile, BackendSQLite, BackendRedis, BackendMemory:
		c.Storage.Backend = strings.ToLower(c.Storage.Backend)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Storage.Backend)
	}
	if strings.TrimSpace(c.Storage.Key) == "" {
		return fmt.Errorf("storage.key must not be empty")
	}
	if c.Assist.Timeout.Duration < 0 {
		return fmt.Errorf("assist.timeout must not be negative")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// APIKey returns the model API key from the configured environment variable.
func (c *Config) APIKey() string {
	return strings.TrimSpace(os.Getenv(c.Assist.APIKeyEnv))
}

// Location returns the time zone used to compute "today". An empty
// timezone means the local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Assist.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Assist.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Assist.Timezone, err)
	}
	return loc, nil
}

// StoragePath returns the configured storage path, defaulting to the data
// directory (file backend) or a database inside it (sqlite backend).
func (c *Config) StoragePath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	dataDir, err := paths.DefaultDataDir()
	if err != nil {
		return "", err
	}
	if c.Storage.Backend == BackendSQLite {
		return filepath.Join(dataDir, "torma.db"), nil
	}
	return dataDir, nil
}
