// Package config provides configuration file support for the agentic workspace.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/agentic-project/agentic/pkg/webhook"
)

// Config represents the workspace configuration (.agentic/config.yaml).
type Config struct {
	Actor     string          `yaml:"actor"`
	Logging   LoggingConfig   `yaml:"logging"`
	Apply     ApplyConfig     `yaml:"apply"`
	Generator GeneratorConfig `yaml:"generator"`
	Webhooks  *webhook.Config `yaml:"webhooks,omitempty"`
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, text
}

// ApplyConfig configures apply behavior.
type ApplyConfig struct {
	FailFast     bool   `yaml:"fail_fast"`
	LockLeaseTTL string `yaml:"lock_lease_ttl"`
}

// GeneratorConfig configures the generator collaborator.
type GeneratorConfig struct {
	TaskDirs []string `yaml:"task_dirs"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Actor: "operator",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Apply: ApplyConfig{
			FailFast:     false,
			LockLeaseTTL: "5m",
		},
	}
}

// TaskDirPaths resolves the configured task directories against the
// workspace root. Relative entries resolve under the root; the default is
// .agentic/tasks.
func (c *Config) TaskDirPaths(root string) []string {
	dirs := c.Generator.TaskDirs
	if len(dirs) == 0 {
		dirs = []string{filepath.Join(".agentic", "tasks")}
	}
	resolved := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		resolved = append(resolved, dir)
	}
	return resolved
}

// LockLeaseTTL parses the configured lease TTL, falling back to 5 minutes.
func (c *Config) LockLeaseTTL() time.Duration {
	d, err := time.ParseDuration(c.Apply.LockLeaseTTL)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// Path returns the config file location for a workspace root.
func Path(workspaceRoot string) string {
	return filepath.Join(workspaceRoot, ".agentic", "config.yaml")
}

// Load loads configuration from .agentic/config.yaml.
// Returns default config if the file doesn't exist.
func Load(workspaceRoot string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(Path(workspaceRoot))
	if os.IsNotExist(err) {
		return cfg, nil // No config file is OK, use defaults
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// Save writes configuration to .agentic/config.yaml.
func Save(workspaceRoot string, cfg *Config) error {
	cfgPath := Path(workspaceRoot)

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(cfgPath, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}
