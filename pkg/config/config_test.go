package config

import (
	"strings"
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(""))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Global.LogLevel != "info" {
		t.Errorf("log_level = %s, want info", cfg.Global.LogLevel)
	}
	if cfg.Server.Address != ":8080" {
		t.Errorf("address = %s, want :8080", cfg.Server.Address)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("read_timeout = %v, want 30s", cfg.Server.ReadTimeout)
	}
	if cfg.Storage.Type != "memory" {
		t.Errorf("storage.type = %s, want memory", cfg.Storage.Type)
	}
	if len(cfg.Protocols.Enabled) != 3 {
		t.Errorf("protocols.enabled = %v, want all three", cfg.Protocols.Enabled)
	}
	if cfg.Tools.Builtin == nil || !*cfg.Tools.Builtin {
		t.Error("tools.builtin default should be on")
	}
	if cfg.Metrics.Namespace != "prism" {
		t.Errorf("metrics.namespace = %s, want prism", cfg.Metrics.Namespace)
	}
}

func TestParseFullConfig(t *testing.T) {
	yaml := `
global:
  log_level: debug
server:
  address: ":9090"
  read_timeout: 45s
storage:
  type: redis
  redis:
    address: "redis:6379"
    db: 2
  task_ttl: 1h
protocols:
  enabled: [mcp, agui]
  default_agent: echo
resources:
  - uri: "doc://guide"
    name: guide
    content: "welcome"
prompts:
  - name: greet
    template: "Hello, {who}!"
    params:
      - name: who
        required: true
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Server.ReadTimeout != 45*time.Second {
		t.Errorf("read_timeout = %v, want 45s", cfg.Server.ReadTimeout)
	}
	if cfg.Storage.Type != "redis" || cfg.Storage.Redis.Address != "redis:6379" || cfg.Storage.Redis.DB != 2 {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Storage.TaskTTL != time.Hour {
		t.Errorf("task_ttl = %v, want 1h", cfg.Storage.TaskTTL)
	}
	if len(cfg.Protocols.Enabled) != 2 || cfg.Protocols.DefaultAgent != "echo" {
		t.Errorf("protocols = %+v", cfg.Protocols)
	}
	if len(cfg.Resources) != 1 || cfg.Resources[0].URI != "doc://guide" {
		t.Errorf("resources = %+v", cfg.Resources)
	}
	if len(cfg.Prompts) != 1 || !cfg.Prompts[0].Params[0].Required {
		t.Errorf("prompts = %+v", cfg.Prompts)
	}
}

func TestParseEnvExpansion(t *testing.T) {
	t.Setenv("PRISM_TEST_ADDR", ":7070")
	t.Setenv("PRISM_TEST_DB", "3")

	yaml := `
server:
  address: "${PRISM_TEST_ADDR}"
storage:
  type: redis
  redis:
    address: "${PRISM_TEST_REDIS:-localhost:6379}"
    db: "${PRISM_TEST_DB}"
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Server.Address != ":7070" {
		t.Errorf("address = %s, want :7070", cfg.Server.Address)
	}
	if cfg.Storage.Redis.Address != "localhost:6379" {
		t.Errorf("redis address = %s, want fallback default", cfg.Storage.Redis.Address)
	}
	// substituted numeric strings are re-typed
	if cfg.Storage.Redis.DB != 3 {
		t.Errorf("redis db = %d, want 3", cfg.Storage.Redis.DB)
	}
}

func TestParseValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantMsg string
	}{
		{
			name:    "bad storage type",
			yaml:    "storage:\n  type: dynamo\n",
			wantMsg: "storage.type",
		},
		{
			name:    "unknown protocol",
			yaml:    "protocols:\n  enabled: [mcp, grpc]\n",
			wantMsg: "unknown protocol",
		},
		{
			name:    "mcp server without command",
			yaml:    "tools:\n  mcp_servers:\n    - name: files\n",
			wantMsg: "command is required",
		},
		{
			name:    "resource without uri",
			yaml:    "resources:\n  - name: orphan\n",
			wantMsg: "uri is required",
		},
		{
			name:    "resource with content and file",
			yaml:    "resources:\n  - uri: \"doc://x\"\n    content: a\n    file: b.txt\n",
			wantMsg: "mutually exclusive",
		},
		{
			name:    "prompt without template",
			yaml:    "prompts:\n  - name: empty\n",
			wantMsg: "template is required",
		},
		{
			name:    "not yaml",
			yaml:    "{{{",
			wantMsg: "failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %v, want substring %q", err, tt.wantMsg)
			}
		})
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default() config does not validate: %v", err)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("PRISM_TEST_SET", "value")

	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"${PRISM_TEST_SET}", "value"},
		{"${PRISM_TEST_UNSET}", ""},
		{"${PRISM_TEST_UNSET:-fallback}", "fallback"},
		{"${PRISM_TEST_SET:-fallback}", "value"},
		{"prefix-${PRISM_TEST_SET}-suffix", "prefix-value-suffix"},
	}

	for _, tt := range tests {
		if got := expandEnvVars(tt.in); got != tt.want {
			t.Errorf("expandEnvVars(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
