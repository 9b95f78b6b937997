package config

import (
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/vdmctl/internal/audit"
	"github.com/1broseidon/vdmctl/internal/runtimepath"
)

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

const (
	DefaultTimeout        = 5 * time.Second
	DefaultAuditMaxSizeMB = 10
	DefaultAuditMaxFiles  = 3
)

// HostConfig tells the CLI where the driver host listens.
type HostConfig struct {
	// Address is a unix socket path, a unix:// URL or a ws:// / wss:// URL.
	// Empty means the socket under the runtime directory.
	Address string        `yaml:"address"`
	Timeout time.Duration `yaml:"timeout"`
}

type OutputConfig struct {
	Color string `yaml:"color"` // auto, always, never
}

type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// AuditConfig configures the reference host's mutation log.
type AuditConfig struct {
	Enabled   bool   `yaml:"enabled"`
	File      string `yaml:"file"` // default: ~/.local/share/vdmctl/host-audit.log
	MaxSizeMB int    `yaml:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files"`
}

// ServerConfig configures `vdmctl host serve`.
type ServerConfig struct {
	Socket     string      `yaml:"socket"`
	HTTPListen string      `yaml:"http_listen"`
	Store      string      `yaml:"store"`
	Database   string      `yaml:"database"`
	Audit      AuditConfig `yaml:"audit"`
}

// Config is the effective configuration.
type Config struct {
	Host   HostConfig   `yaml:"host"`
	Output OutputConfig `yaml:"output"`
	Log    LogConfig    `yaml:"log"`
	Server ServerConfig `yaml:"server"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Host: HostConfig{
			Timeout: DefaultTimeout,
		},
		Output: OutputConfig{
			Color: ColorAuto,
		},
		Log: LogConfig{
			Level: "warn",
		},
		Server: ServerConfig{
			Store: StoreMemory,
			Audit: AuditConfig{
				MaxSizeMB: DefaultAuditMaxSizeMB,
				MaxFiles:  DefaultAuditMaxFiles,
			},
		},
	}
}

// Marshal renders the effective configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// SlogLevel maps log.level onto a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.Log.Level {
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

// SocketPath returns server.socket, or the runtime socket when unset.
func (c *Config) SocketPath() (string, error) {
	if c.Server.Socket != "" {
		return c.Server.Socket, nil
	}
	return runtimepath.SocketPath()
}

// DatabasePath returns server.database, or the default data path when unset.
func (c *Config) DatabasePath() (string, error) {
	if c.Server.Database != "" {
		return c.Server.Database, nil
	}
	return runtimepath.DatabasePath()
}

// GetAuditConfig returns the audit log configuration with defaults applied.
func (c *Config) GetAuditConfig() (audit.Config, error) {
	cfg := audit.Config{
		Enabled:   c.Server.Audit.Enabled,
		FilePath:  c.Server.Audit.File,
		MaxSizeMB: c.Server.Audit.MaxSizeMB,
		MaxFiles:  c.Server.Audit.MaxFiles,
	}
	if cfg.FilePath == "" {
		path, err := runtimepath.AuditLogPath()
		if err != nil {
			return audit.Config{}, err
		}
		cfg.FilePath = path
	}
	if cfg.MaxSizeMB == 0 {
		cfg.MaxSizeMB = DefaultAuditMaxSizeMB
	}
	if cfg.MaxFiles == 0 {
		cfg.MaxFiles = DefaultAuditMaxFiles
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validateAddress(c.Host.Address); err != nil {
		return &ValidationError{Path: "host.address", Err: err}
	}
	if c.Host.Timeout <= 0 {
		return &ValidationError{Path: "host.timeout", Err: fmt.Errorf("timeout must be > 0")}
	}
	switch c.Output.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return &ValidationError{Path: "output.color", Err: fmt.Errorf("color must be one of: auto, always, never")}
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Path: "log.level", Err: fmt.Errorf("level must be one of: debug, info, warn, error")}
	}
	switch c.Server.Store {
	case StoreMemory, StoreSQLite:
	default:
		return &ValidationError{Path: "server.store", Err: fmt.Errorf("store must be one of: memory, sqlite")}
	}
	if c.Server.HTTPListen != "" {
		if _, _, err := net.SplitHostPort(c.Server.HTTPListen); err != nil {
			return &ValidationError{Path: "server.http_listen", Err: err}
		}
	}
	if c.Server.Audit.MaxSizeMB < 0 {
		return &ValidationError{Path: "server.audit.max_size_mb", Err: fmt.Errorf("max_size_mb must be >= 0")}
	}
	if c.Server.Audit.MaxFiles < 0 {
		return &ValidationError{Path: "server.audit.max_files", Err: fmt.Errorf("max_files must be >= 0")}
	}
	return nil
}

func validateAddress(address string) error {
	switch {
	case address == "":
		return nil
	case strings.HasPrefix(address, "ws://"), strings.HasPrefix(address, "wss://"):
		return nil
	case strings.HasPrefix(address, "unix://"):
		if strings.TrimPrefix(address, "unix://") == "" {
			return fmt.Errorf("unix address has no path")
		}
		return nil
	case strings.Contains(address, "://"):
		return fmt.Errorf("unsupported scheme in %q (want unix://, ws:// or wss://)", address)
	default:
		return nil
	}
}
