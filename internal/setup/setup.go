// Package setup registers the data quality MCP server with Claude Desktop.
package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/biomed-dq-validator/internal/config"
)

// ServerName is the key of the server entry in the desktop configuration.
const ServerName = "biomed-dq-validator"

// BinaryName is the name of the stdio MCP server executable.
const BinaryName = "mcp-server"

// mcpServersKey is the desktop configuration key holding server entries.
const mcpServersKey = "mcpServers"

// ServerEntry represents a single MCP server configuration.
type ServerEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// DesktopConfig represents the Claude Desktop configuration file. Keys other
// than mcpServers are carried through untouched.
type DesktopConfig struct {
	MCPServers map[string]ServerEntry
	other      map[string]json.RawMessage
}

// Options contains options for registering the server.
type Options struct {
	// DesktopConfigPath overrides the platform default location.
	DesktopConfigPath string
	// BinaryPath is the MCP server executable; found on PATH when empty.
	BinaryPath string
	// ConfigFile is passed to the server as its YAML config file.
	ConfigFile string
	// DataDir overrides the server's local data directory.
	DataDir string
}

// Status represents the current registration status.
type Status struct {
	DesktopConfigPath string       `json:"desktop_config_path"`
	Registered        bool         `json:"registered"`
	Entry             *ServerEntry `json:"entry,omitempty"`
	Issues            []string     `json:"issues"`
}

// DesktopConfigPath returns the path to Claude Desktop's config file.
func DesktopConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support", "Claude")
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			configDir = filepath.Join(xdg, "Claude")
			break
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config", "Claude")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		configDir = filepath.Join(appData, "Claude")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	return filepath.Join(configDir, "claude_desktop_config.json"), nil
}

func resolveConfigPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return DesktopConfigPath()
}

// LoadDesktopConfig loads the desktop configuration. A missing file yields
// an empty configuration.
func LoadDesktopConfig(path string) (*DesktopConfig, error) {
	cfg := &DesktopConfig{
		MCPServers: make(map[string]ServerEntry),
		other:      make(map[string]json.RawMessage),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg.other); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if raw, ok := cfg.other[mcpServersKey]; ok {
		if err := json.Unmarshal(raw, &cfg.MCPServers); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", mcpServersKey, err)
		}
		if cfg.MCPServers == nil {
			cfg.MCPServers = make(map[string]ServerEntry)
		}
		delete(cfg.other, mcpServersKey)
	}
	return cfg, nil
}

// Save writes the configuration, creating its directory if needed.
func (c *DesktopConfig) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out := make(map[string]any, len(c.other)+1)
	for k, v := range c.other {
		out[k] = v
	}
	out[mcpServersKey] = c.MCPServers

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Register adds or replaces the data quality server entry.
func Register(opts Options) (*ServerEntry, string, error) {
	path, err := resolveConfigPath(opts.DesktopConfigPath)
	if err != nil {
		return nil, "", err
	}
	cfg, err := LoadDesktopConfig(path)
	if err != nil {
		return nil, path, err
	}

	binary := opts.BinaryPath
	if binary == "" {
		binary, err = FindBinary(BinaryName)
		if err != nil {
			return nil, path, err
		}
	}
	if abs, err := filepath.Abs(binary); err == nil {
		binary = abs
	}

	entry := ServerEntry{Command: binary, Env: make(map[string]string)}
	if opts.ConfigFile != "" {
		abs, err := filepath.Abs(opts.ConfigFile)
		if err != nil {
			return nil, path, err
		}
		entry.Env[config.ConfigFileEnv] = abs
	}
	if opts.DataDir != "" {
		entry.Env[config.DataDirEnv] = opts.DataDir
	}

	cfg.MCPServers[ServerName] = entry
	if err := cfg.Save(path); err != nil {
		return nil, path, err
	}
	return &entry, path, nil
}

// Unregister removes the server entry. It reports whether an entry existed.
func Unregister(desktopConfigPath string) (bool, error) {
	path, err := resolveConfigPath(desktopConfigPath)
	if err != nil {
		return false, err
	}
	cfg, err := LoadDesktopConfig(path)
	if err != nil {
		return false, err
	}
	if _, ok := cfg.MCPServers[ServerName]; !ok {
		return false, nil
	}
	delete(cfg.MCPServers, ServerName)
	return true, cfg.Save(path)
}

// Check inspects the registration and the files it points at.
func Check(desktopConfigPath string) (*Status, error) {
	path, err := resolveConfigPath(desktopConfigPath)
	if err != nil {
		return nil, err
	}
	status := &Status{DesktopConfigPath: path, Issues: []string{}}

	cfg, err := LoadDesktopConfig(path)
	if err != nil {
		status.Issues = append(status.Issues, err.Error())
		return status, nil
	}
	entry, ok := cfg.MCPServers[ServerName]
	if !ok {
		status.Issues = append(status.Issues, ServerName+" is not registered")
		return status, nil
	}
	status.Registered = true
	status.Entry = &entry

	if info, err := os.Stat(entry.Command); err != nil {
		status.Issues = append(status.Issues, fmt.Sprintf("server binary not found: %s", entry.Command))
	} else if runtime.GOOS != "windows" && info.Mode()&0111 == 0 {
		status.Issues = append(status.Issues, fmt.Sprintf("server binary is not executable: %s", entry.Command))
	}
	if file := entry.Env[config.ConfigFileEnv]; file != "" {
		if _, err := os.Stat(file); err != nil {
			status.Issues = append(status.Issues, fmt.Sprintf("config file not found: %s", file))
		}
	}
	return status, nil
}

// FindBinary looks for an executable on PATH, then in common build and
// install locations.
func FindBinary(name string) (string, error) {
	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	home, _ := os.UserHomeDir()
	locations := []string{
		filepath.Join(".", name),
		filepath.Join(".", "bin", name),
		filepath.Join(".", "build", name),
		filepath.Join(home, ".local", "bin", name),
		filepath.Join(home, "go", "bin", name),
		filepath.Join("/usr/local/bin", name),
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc, nil
		}
	}
	return "", fmt.Errorf("binary %q not found on PATH or in common locations", name)
}
