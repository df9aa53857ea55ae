// Package config loads the YAML configuration of the prompt dispatcher.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pardnchiu/mcp-pyrevit/internal/utils"
)

const (
	FileName = "config.yaml"

	DefaultEndpoint = "https://openrouter.ai/api/v1/chat/completions"
	DefaultModel    = "openai/gpt-4o-mini"
	DefaultTimeout  = 60 * time.Second
	DefaultLogLevel = "info"
)

type Config struct {
	// Endpoint is the chat-completion URL.
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	// RepoRoot holds mcp_tools/; empty means the binary's directory when it
	// has mcp_tools/, else the working directory.
	RepoRoot    string        `yaml:"repo_root"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	LogLevel    string        `yaml:"log_level"`
}

func Default() *Config {
	return &Config{
		Endpoint:    DefaultEndpoint,
		Model:       DefaultModel,
		HTTPTimeout: DefaultTimeout,
		LogLevel:    DefaultLogLevel,
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
// Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("yaml.Unmarshal: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("os.ReadFile: %w", err)
	}

	mergeEnv(cfg)
	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault picks the first config.yaml found in the project then user config dirs.
func LoadDefault() (*Config, error) {
	configDir, err := utils.GetConfigDir()
	if err != nil {
		return nil, fmt.Errorf("utils.GetConfigDir: %w", err)
	}

	for _, dir := range configDir.Dirs {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return Load(filepath.Join(configDir.Home, FileName))
}

func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("os.MkdirAll: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("yaml.Marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("os.WriteFile: %w", err)
	}
	return nil
}

func mergeEnv(cfg *Config) {
	if v := os.Getenv("MCP_PYREVIT_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("MCP_PYREVIT_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("MCP_PYREVIT_REPO_ROOT"); v != "" {
		cfg.RepoRoot = v
	}
	if v := os.Getenv("MCP_PYREVIT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

func (c *Config) resolve() error {
	c.Endpoint = strings.TrimSpace(c.Endpoint)
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if strings.TrimSpace(c.Model) == "" {
		c.Model = DefaultModel
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = DefaultTimeout
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	case "":
		c.LogLevel = DefaultLogLevel
	default:
		return fmt.Errorf("invalid log_level: %q", c.LogLevel)
	}

	if c.RepoRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("os.Getwd: %w", err)
		}
		exeDir := ""
		if exe, err := os.Executable(); err == nil {
			exeDir = filepath.Dir(exe)
		}
		c.RepoRoot = defaultRepoRoot(exeDir, wd)
	}
	root, err := filepath.Abs(c.RepoRoot)
	if err != nil {
		return fmt.Errorf("filepath.Abs: %w", err)
	}
	c.RepoRoot = root
	return nil
}

// defaultRepoRoot is exeDir when it holds mcp_tools/, else wd.
func defaultRepoRoot(exeDir, wd string) string {
	if exeDir != "" {
		if info, err := os.Stat(filepath.Join(exeDir, "mcp_tools")); err == nil && info.IsDir() {
			return exeDir
		}
	}
	return wd
}
