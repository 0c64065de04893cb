package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/maestro-sh/maestro/internal/logger"
	"github.com/maestro-sh/maestro/internal/service"
)

// ServiceConfig is one service entry as written in the config file.
type ServiceConfig struct {
	Name       string `mapstructure:"name"`
	WorkingDir string `mapstructure:"working_dir"`
	Command    string `mapstructure:"command"`
}

// Config is the top-level configuration consumed once at startup.
type Config struct {
	Listen        string                     `mapstructure:"listen"`
	HistoryPath   string                     `mapstructure:"history_path"`
	Capture       logger.CaptureConfig       `mapstructure:"capture"`
	ServiceGroups map[string][]ServiceConfig `mapstructure:"service_groups"`
}

// Load reads and validates a YAML or TOML config file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Listen == "" {
		cfg.Listen = ":8080"
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.ServiceGroups) == 0 {
		return fmt.Errorf("no service_groups defined")
	}
	seen := make(map[string]string)
	for gid, members := range c.ServiceGroups {
		if strings.TrimSpace(gid) == "" {
			return fmt.Errorf("empty group id")
		}
		if len(members) == 0 {
			return fmt.Errorf("group %q has no services", gid)
		}
		for _, m := range members {
			if strings.TrimSpace(m.Name) == "" {
				return fmt.Errorf("group %q: service with empty name", gid)
			}
			if other, dup := seen[m.Name]; dup {
				return fmt.Errorf("service name %q used in both group %q and group %q", m.Name, other, gid)
			}
			seen[m.Name] = gid
			if strings.TrimSpace(m.Command) == "" {
				return fmt.Errorf("service %q: empty command", m.Name)
			}
		}
	}
	return nil
}

// Groups converts the file shape into the orchestrator's group map, filling
// in each member's group id.
func (c *Config) Groups() map[string][]service.Spec {
	out := make(map[string][]service.Spec, len(c.ServiceGroups))
	for gid, members := range c.ServiceGroups {
		specs := make([]service.Spec, 0, len(members))
		for _, m := range members {
			specs = append(specs, service.Spec{
				Name:    m.Name,
				GroupID: gid,
				WorkDir: m.WorkingDir,
				Command: m.Command,
			})
		}
		out[gid] = specs
	}
	return out
}
