package config

import "time"

// Raw* types mirror the YAML file. Pointer fields distinguish "not set" from a
// zero value so that defaults only fill what the file leaves out.

type RawHostConfig struct {
	Address *string        `yaml:"address"`
	Timeout *time.Duration `yaml:"timeout"`
}

type RawOutputConfig struct {
	Color *string `yaml:"color"`
}

type RawLogConfig struct {
	Level *string `yaml:"level"`
}

type RawAuditConfig struct {
	Enabled   *bool   `yaml:"enabled"`
	File      *string `yaml:"file"`
	MaxSizeMB *int    `yaml:"max_size_mb"`
	MaxFiles  *int    `yaml:"max_files"`
}

type RawServerConfig struct {
	Socket     *string         `yaml:"socket"`
	HTTPListen *string         `yaml:"http_listen"`
	Store      *string         `yaml:"store"`
	Database   *string         `yaml:"database"`
	Audit      *RawAuditConfig `yaml:"audit"`
}

type RawConfig struct {
	Host   *RawHostConfig   `yaml:"host"`
	Output *RawOutputConfig `yaml:"output"`
	Log    *RawLogConfig    `yaml:"log"`
	Server *RawServerConfig `yaml:"server"`
}

// BuildEffectiveConfig applies raw on top of DefaultConfig.
func BuildEffectiveConfig(raw RawConfig) *Config {
	cfg := DefaultConfig()

	if h := raw.Host; h != nil {
		setIf(&cfg.Host.Address, h.Address)
		setIf(&cfg.Host.Timeout, h.Timeout)
	}
	if o := raw.Output; o != nil {
		setIf(&cfg.Output.Color, o.Color)
	}
	if l := raw.Log; l != nil {
		setIf(&cfg.Log.Level, l.Level)
	}
	if s := raw.Server; s != nil {
		setIf(&cfg.Server.Socket, s.Socket)
		setIf(&cfg.Server.HTTPListen, s.HTTPListen)
		setIf(&cfg.Server.Store, s.Store)
		setIf(&cfg.Server.Database, s.Database)
		if a := s.Audit; a != nil {
			setIf(&cfg.Server.Audit.Enabled, a.Enabled)
			setIf(&cfg.Server.Audit.File, a.File)
			setIf(&cfg.Server.Audit.MaxSizeMB, a.MaxSizeMB)
			setIf(&cfg.Server.Audit.MaxFiles, a.MaxFiles)
		}
	}
	return cfg
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
