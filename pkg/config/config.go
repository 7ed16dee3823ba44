// Package config defines the gateway configuration and its loading
// pipeline: dotenv files, YAML parsing, environment expansion, defaults,
// then validation.
package config

import (
	"fmt"
	"time"

	"github.com/prismgate/prism/pkg/task"
)

// Config is the root configuration.
type Config struct {
	Global    GlobalConfig    `yaml:"global" mapstructure:"global"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Storage   StorageConfig   `yaml:"storage" mapstructure:"storage"`
	Protocols ProtocolsConfig `yaml:"protocols" mapstructure:"protocols"`
	Tools     ToolsConfig     `yaml:"tools" mapstructure:"tools"`
	Resources []ResourceEntry `yaml:"resources" mapstructure:"resources"`
	Prompts   []PromptEntry   `yaml:"prompts" mapstructure:"prompts"`
	Metrics   MetricsConfig   `yaml:"metrics" mapstructure:"metrics"`
}

// GlobalConfig holds process-wide settings.
type GlobalConfig struct {
	LogLevel  string `yaml:"log_level" mapstructure:"log_level"`
	LogFormat string `yaml:"log_format" mapstructure:"log_format"`
	LogFile   string `yaml:"log_file" mapstructure:"log_file"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Address      string        `yaml:"address" mapstructure:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// StorageConfig selects and tunes the task store.
type StorageConfig struct {
	// Type is "memory" or "redis". Redis keeps the in-memory store as an
	// automatic fallback.
	Type string `yaml:"type" mapstructure:"type"`

	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`

	// TaskTTL bounds how long finished and idle tasks stay readable.
	TaskTTL time.Duration `yaml:"task_ttl" mapstructure:"task_ttl"`

	// CleanupInterval drives the fallback sweep ticker.
	CleanupInterval time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval"`
}

// RedisConfig holds the durable store connection settings.
type RedisConfig struct {
	Address  string `yaml:"address" mapstructure:"address"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

// ProtocolsConfig selects which adapters are registered at startup.
type ProtocolsConfig struct {
	Enabled      []string `yaml:"enabled" mapstructure:"enabled"`
	DefaultAgent string   `yaml:"default_agent" mapstructure:"default_agent"`
}

// ToolsConfig wires tool sources into the tool registry.
type ToolsConfig struct {
	// Builtin toggles the local tool set. Defaults to on.
	Builtin *bool `yaml:"builtin" mapstructure:"builtin"`

	MCPServers []MCPServerConfig `yaml:"mcp_servers" mapstructure:"mcp_servers"`
}

// MCPServerConfig describes one external MCP server tool source.
type MCPServerConfig struct {
	Name    string            `yaml:"name" mapstructure:"name"`
	Command string            `yaml:"command" mapstructure:"command"`
	Args    []string          `yaml:"args" mapstructure:"args"`
	Env     map[string]string `yaml:"env" mapstructure:"env"`
	Filter  []string          `yaml:"filter" mapstructure:"filter"`
}

// ResourceEntry declares one static URI-addressed content blob.
type ResourceEntry struct {
	URI         string `yaml:"uri" mapstructure:"uri"`
	Name        string `yaml:"name" mapstructure:"name"`
	Description string `yaml:"description" mapstructure:"description"`
	MimeType    string `yaml:"mime_type" mapstructure:"mime_type"`
	Content     string `yaml:"content" mapstructure:"content"`
	File        string `yaml:"file" mapstructure:"file"`
}

// PromptEntry declares one parameterized prompt template.
type PromptEntry struct {
	Name        string       `yaml:"name" mapstructure:"name"`
	Description string       `yaml:"description" mapstructure:"description"`
	Template    string       `yaml:"template" mapstructure:"template"`
	Params      []ParamEntry `yaml:"params" mapstructure:"params"`
}

// ParamEntry declares one prompt parameter.
type ParamEntry struct {
	Name        string `yaml:"name" mapstructure:"name"`
	Description string `yaml:"description" mapstructure:"description"`
	Required    bool   `yaml:"required" mapstructure:"required"`
}

// MetricsConfig toggles the Prometheus surface.
type MetricsConfig struct {
	Enabled   *bool  `yaml:"enabled" mapstructure:"enabled"`
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
}

// knownProtocols is the closed set of adapter names the gateway can serve.
var knownProtocols = map[string]bool{
	"mcp":  true,
	"a2a":  true,
	"agui": true,
}

// SetDefaults fills zero values across all sections.
func (c *Config) SetDefaults() {
	if c.Global.LogLevel == "" {
		c.Global.LogLevel = "info"
	}
	if c.Global.LogFormat == "" {
		c.Global.LogFormat = "simple"
	}
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Storage.Type == "" {
		c.Storage.Type = "memory"
	}
	if c.Storage.Redis.Address == "" {
		c.Storage.Redis.Address = "localhost:6379"
	}
	if c.Storage.TaskTTL == 0 {
		c.Storage.TaskTTL = task.DefaultTTL
	}
	if c.Storage.CleanupInterval == 0 {
		c.Storage.CleanupInterval = 10 * time.Minute
	}
	if len(c.Protocols.Enabled) == 0 {
		c.Protocols.Enabled = []string{"mcp", "a2a", "agui"}
	}
	if c.Tools.Builtin == nil {
		on := true
		c.Tools.Builtin = &on
	}
	if c.Metrics.Enabled == nil {
		on := true
		c.Metrics.Enabled = &on
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "prism"
	}
}

// Validate rejects configurations that cannot be served.
func (c *Config) Validate() error {
	if c.Storage.Type != "memory" && c.Storage.Type != "redis" {
		return fmt.Errorf("storage.type must be 'memory' or 'redis', got '%s'", c.Storage.Type)
	}
	if c.Storage.Type == "redis" && c.Storage.Redis.Address == "" {
		return fmt.Errorf("storage.redis.address is required for redis storage")
	}
	if c.Storage.TaskTTL < 0 {
		return fmt.Errorf("storage.task_ttl cannot be negative")
	}
	for _, name := range c.Protocols.Enabled {
		if !knownProtocols[name] {
			return fmt.Errorf("unknown protocol '%s' in protocols.enabled", name)
		}
	}
	for i, srv := range c.Tools.MCPServers {
		if srv.Name == "" {
			return fmt.Errorf("tools.mcp_servers[%d]: name is required", i)
		}
		if srv.Command == "" {
			return fmt.Errorf("tools.mcp_servers[%d]: command is required", i)
		}
	}
	for i, res := range c.Resources {
		if res.URI == "" {
			return fmt.Errorf("resources[%d]: uri is required", i)
		}
		if res.Content != "" && res.File != "" {
			return fmt.Errorf("resources[%d]: content and file are mutually exclusive", i)
		}
	}
	for i, p := range c.Prompts {
		if p.Name == "" {
			return fmt.Errorf("prompts[%d]: name is required", i)
		}
		if p.Template == "" {
			return fmt.Errorf("prompts[%d]: template is required", i)
		}
	}
	return nil
}
