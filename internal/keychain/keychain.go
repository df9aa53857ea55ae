package keychain

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pardnchiu/mcp-pyrevit/internal/utils"
)

const (
	// Section scopes every saved value of this tool.
	Section = "MCP-PyRevit"
	APIKey  = "api_key"
)

// Store is a small key/value store scoped to one section. Values go to the
// OS secret store when one is reachable and to a 0600 file otherwise.
type Store struct {
	section string
	dir     string
	system  bool
	env     map[string]string
}

func New() (*Store, error) {
	configDir, err := utils.GetConfigDir()
	if err != nil {
		return nil, fmt.Errorf("utils.GetConfigDir: %w", err)
	}
	return &Store{
		section: Section,
		dir:     configDir.Home,
		system:  true,
		env: map[string]string{
			APIKey: "OPENROUTER_API_KEY",
		},
	}, nil
}

// NewFileStore keeps values only in dir; it never touches the OS secret store.
func NewFileStore(section, dir string) *Store {
	return &Store{
		section: section,
		dir:     dir,
	}
}

// Get returns the saved value or "" when nothing was saved.
func (s *Store) Get(key string) string {
	if s.system {
		if val := s.readKeychain(key); val != "" {
			return val
		}
	} else if val := s.getFallback(key); val != "" {
		return val
	}
	if envKey, ok := s.env[key]; ok {
		return os.Getenv(envKey)
	}
	return ""
}

func (s *Store) Set(key, value string) error {
	if !s.system {
		return s.setFallback(key, value)
	}
	switch runtime.GOOS {
	case "darwin":
		if err := s.setSecretOnMac(key, value); err == nil {
			return nil
		}
		return s.setFallback(key, value)
	default:
		if ok := s.setSecret(key, value); ok == nil {
			return nil
		}
		return s.setFallback(key, value)
	}
}

func (s *Store) setSecret(key, value string) error {
	cmd := exec.Command("secret-tool", "store",
		"--label", s.section+"/"+key,
		"service", s.section, "account", key)
	cmd.Stdin = strings.NewReader(value)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("secret-tool store: %s", out)
	}
	return nil
}

func (s *Store) getSecret(key string) string {
	out, err := exec.Command("secret-tool", "lookup",
		"service", s.section, "account", key).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func (s *Store) setSecretOnMac(key, value string) error {
	exec.Command("security", "delete-generic-password",
		"-s", s.section,
		"-a", key).Run()

	cmd := exec.Command("security", "add-generic-password",
		"-s", s.section,
		"-a", key,
		"-w", value)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("security add-generic-password: %s", out)
	}
	return nil
}

func (s *Store) getSecretFromMac(key string) string {
	out, err := exec.Command("security", "find-generic-password",
		"-s", s.section,
		"-a", key,
		"-w").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func (s *Store) path() string {
	return filepath.Join(s.dir, ".secrets")
}

// fallback lines are "<section>.<key>=<value>"
func (s *Store) setFallback(key, value string) error {
	lines := s.readFallbackLines()
	prefix := s.section + "." + key + "="
	found := false
	for i, l := range lines {
		if strings.HasPrefix(l, prefix) {
			lines[i] = prefix + value
			found = true
			break
		}
	}
	if !found {
		lines = append(lines, prefix+value)
	}
	data := strings.Join(lines, "\n") + "\n"
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("os.MkdirAll: %w", err)
	}
	if err := os.WriteFile(s.path(), []byte(data), 0600); err != nil {
		return fmt.Errorf("os.WriteFile: %w", err)
	}
	return nil
}

func (s *Store) getFallback(key string) string {
	prefix := s.section + "." + key + "="
	for _, l := range s.readFallbackLines() {
		if v, ok := strings.CutPrefix(l, prefix); ok {
			return v
		}
	}
	return ""
}

func (s *Store) readFallbackLines() []string {
	data, err := os.ReadFile(s.path())
	if err != nil {
		return nil
	}
	var lines []string
	for line := range strings.SplitSeq(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func (s *Store) readKeychain(key string) string {
	switch runtime.GOOS {
	case "darwin":
		if secret := s.getSecretFromMac(key); secret != "" {
			return secret
		}
		return s.getFallback(key)
	default:
		if secret := s.getSecret(key); secret != "" {
			return secret
		}
		return s.getFallback(key)
	}
}
