package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ChuLiYu/talenthub-cli/internal/dashboard"
	"gopkg.in/yaml.v3"
)

// Config represents the complete client configuration structure
// Maps config file fields through YAML tags
type Config struct {
	API struct {
		AuthBase string `yaml:"auth_base"`
		APIBase  string `yaml:"api_base"`
	} `yaml:"api"`

	HTTP struct {
		Timeout time.Duration `yaml:"timeout"`
		Workers int           `yaml:"workers"`
	} `yaml:"http"`

	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`

	Session struct {
		MaxAge       time.Duration `yaml:"max_age"`
		AppliedCheck string        `yaml:"applied_check"` // page or history
	} `yaml:"session"`

	Pagination struct {
		Jobs         int `yaml:"jobs"`
		Applications int `yaml:"applications"`
		Applicants   int `yaml:"applicants"`
		Admin        int `yaml:"admin"`
	} `yaml:"pagination"`

	Journal struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"journal"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"metrics"`

	Log struct {
		Level string `yaml:"level"` // debug, info, warn, error
	} `yaml:"log"`
}

// defaultConfig 內建預設值，與原始網頁的每頁筆數一致
func defaultConfig() *Config {
	var cfg Config
	cfg.API.AuthBase = "http://127.0.0.1:8000/auth"
	cfg.API.APIBase = "http://127.0.0.1:8000/api"
	cfg.HTTP.Timeout = 10 * time.Second
	cfg.HTTP.Workers = 3
	cfg.Storage.Path = defaultDataPath("state.json")
	cfg.Session.AppliedCheck = "history"
	cfg.Pagination.Jobs = 6
	cfg.Pagination.Applications = 6
	cfg.Pagination.Applicants = 5
	cfg.Pagination.Admin = 5
	cfg.Journal.Enabled = true
	cfg.Journal.Path = defaultDataPath("journal.jsonl")
	cfg.Metrics.Port = 9090
	cfg.Log.Level = "warn"
	return &cfg
}

func defaultDataPath(name string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".talenthub", name)
	}
	return filepath.Join(dir, "talenthub", name)
}

// loadConfig 讀取 YAML 設定；檔案不存在時使用內建預設值，之後套用環境變數
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		slog.Debug("config file not found, using defaults", "path", path)
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	cfg.API.AuthBase = envOr("TALENTHUB_AUTH_BASE", cfg.API.AuthBase)
	cfg.API.APIBase = envOr("TALENTHUB_API_BASE", cfg.API.APIBase)
	cfg.Storage.Path = envOr("TALENTHUB_STATE_PATH", cfg.Storage.Path)

	if _, err := dashboard.ParseAppliedCheck(cfg.Session.AppliedCheck); err != nil {
		return nil, fmt.Errorf("invalid session.applied_check: %w", err)
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// dashboardConfig 轉換為 dashboard.Config
func (c *Config) dashboardConfig() dashboard.Config {
	check, _ := dashboard.ParseAppliedCheck(c.Session.AppliedCheck)
	return dashboard.Config{
		JobsPerPage:         c.Pagination.Jobs,
		ApplicationsPerPage: c.Pagination.Applications,
		ApplicantsPerPage:   c.Pagination.Applicants,
		AdminPerPage:        c.Pagination.Admin,
		SessionMaxAge:       c.Session.MaxAge,
		RequestTimeout:      c.HTTP.Timeout,
		Workers:             c.HTTP.Workers,
		AppliedCheck:        check,
	}
}

// logLevel 解析 log.level，未知的值視為 warn
func (c *Config) logLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
