package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Storage backends for local state.
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
)

// Config is the resolved client configuration.
type Config struct {
	BackendURL         string
	DataDir            string
	Storage            string
	LogFile            string
	LogLevel           string
	MetricsAddr        string
	JobPollInterval    time.Duration
	JobMaxPolls        int
	ImagePollInterval  time.Duration
	ImageMaxAttempts   int
	GalleryPageSize    int
	FetchVideoMetadata bool
}

const (
	defaultConfigPath   = "~/.config/larder/config.toml"
	defaultDataDir      = "~/.local/share/larder"
	defaultBackendURL   = "http://localhost:3000"
	defaultLogLevel     = "info"
	defaultJobPollMS    = 1500
	defaultJobMaxPolls  = 120
	defaultImagePollMS  = 3000
	defaultImageMax     = 30
	defaultPageSize     = 20
	defaultLogFileName  = "larder.log"
	envBackendURL       = "LARDER_BACKEND_URL"
	envDataDir          = "LARDER_DATA_DIR"
	envStorage          = "LARDER_STORAGE"
	envMetricsAddr      = "LARDER_METRICS_ADDR"
	defaultDotEnvSource = ".env"
)

type fileConfig struct {
	BackendURL         string `toml:"backend_url"`
	DataDir            string `toml:"data_dir"`
	Storage            string `toml:"storage"`
	LogFile            string `toml:"log_file"`
	LogLevel           string `toml:"log_level"`
	MetricsAddr        string `toml:"metrics_addr"`
	JobPollIntervalMS  int    `toml:"job_poll_interval_ms"`
	JobMaxPolls        int    `toml:"job_max_polls"`
	ImagePollMS        int    `toml:"image_poll_interval_ms"`
	ImageMaxAttempts   int    `toml:"image_max_attempts"`
	GalleryPageSize    int    `toml:"gallery_page_size"`
	FetchVideoMetadata *bool  `toml:"fetch_video_metadata"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	dataDir := mustExpand(defaultDataDir)
	return Config{
		BackendURL:         defaultBackendURL,
		DataDir:            dataDir,
		Storage:            StorageFile,
		LogFile:            filepath.Join(dataDir, defaultLogFileName),
		LogLevel:           defaultLogLevel,
		JobPollInterval:    defaultJobPollMS * time.Millisecond,
		JobMaxPolls:        defaultJobMaxPolls,
		ImagePollInterval:  defaultImagePollMS * time.Millisecond,
		ImageMaxAttempts:   defaultImageMax,
		GalleryPageSize:    defaultPageSize,
		FetchVideoMetadata: true,
	}
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none)
// into the process environment without overriding variables already set.
// Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{defaultDotEnvSource}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// Load reads the config file at path (the default path when empty), fills in
// defaults for anything unset, then applies LARDER_* environment overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	var raw fileConfig
	file, err := os.Open(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("open config: %w", err)
	default:
		defer file.Close()
		bytes, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(bytes, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&raw)
	return build(raw)
}

func applyEnv(raw *fileConfig) {
	if v := strings.TrimSpace(os.Getenv(envBackendURL)); v != "" {
		raw.BackendURL = v
	}
	if v := strings.TrimSpace(os.Getenv(envDataDir)); v != "" {
		raw.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv(envStorage)); v != "" {
		raw.Storage = v
	}
	if v := strings.TrimSpace(os.Getenv(envMetricsAddr)); v != "" {
		raw.MetricsAddr = v
	}
}

func build(raw fileConfig) (Config, error) {
	cfg := Default()

	if v := strings.TrimSpace(raw.BackendURL); v != "" {
		cfg.BackendURL = v
	}
	if v := strings.TrimSpace(raw.DataDir); v != "" {
		expanded, err := expandPath(v)
		if err != nil {
			return Config{}, fmt.Errorf("data_dir: %w", err)
		}
		cfg.DataDir = expanded
	}
	cfg.LogFile = filepath.Join(cfg.DataDir, defaultLogFileName)
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		expanded, err := expandPath(v)
		if err != nil {
			return Config{}, fmt.Errorf("log_file: %w", err)
		}
		cfg.LogFile = expanded
	}

	switch storage := strings.ToLower(strings.TrimSpace(raw.Storage)); storage {
	case "":
	case StorageFile, StorageSQLite:
		cfg.Storage = storage
	default:
		return Config{}, fmt.Errorf("storage: unknown backend %q (want %s or %s)", raw.Storage, StorageFile, StorageSQLite)
	}

	if v := strings.ToLower(strings.TrimSpace(raw.LogLevel)); v != "" {
		cfg.LogLevel = v
	}
	cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)

	if raw.JobPollIntervalMS > 0 {
		cfg.JobPollInterval = time.Duration(raw.JobPollIntervalMS) * time.Millisecond
	}
	if raw.JobMaxPolls > 0 {
		cfg.JobMaxPolls = raw.JobMaxPolls
	}
	if raw.ImagePollMS > 0 {
		cfg.ImagePollInterval = time.Duration(raw.ImagePollMS) * time.Millisecond
	}
	if raw.ImageMaxAttempts > 0 {
		cfg.ImageMaxAttempts = raw.ImageMaxAttempts
	}
	if raw.GalleryPageSize > 0 {
		cfg.GalleryPageSize = raw.GalleryPageSize
	}
	if raw.FetchVideoMetadata != nil {
		cfg.FetchVideoMetadata = *raw.FetchVideoMetadata
	}
	return cfg, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
