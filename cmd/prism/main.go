// Command prism runs the multi-protocol streaming gateway.
//
// Usage:
//
//	prism serve --config config.yaml
//	prism validate --config config.yaml
//	prism schema
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"golang.org/x/sync/errgroup"

	"github.com/prismgate/prism/pkg/agent"
	"github.com/prismgate/prism/pkg/config"
	"github.com/prismgate/prism/pkg/kv"
	"github.com/prismgate/prism/pkg/logger"
	"github.com/prismgate/prism/pkg/observability"
	"github.com/prismgate/prism/pkg/protocol"
	"github.com/prismgate/prism/pkg/protocol/a2a"
	"github.com/prismgate/prism/pkg/protocol/agui"
	"github.com/prismgate/prism/pkg/protocol/mcp"
	"github.com/prismgate/prism/pkg/task"
	"github.com/prismgate/prism/pkg/tool"
	"github.com/prismgate/prism/pkg/tool/builtin"
	"github.com/prismgate/prism/pkg/tool/mcptoolset"
	"github.com/prismgate/prism/pkg/transport"

	"github.com/invopop/jsonschema"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Serve    ServeCmd    `cmd:"" help:"Start the gateway server."`
	Validate ValidateCmd `cmd:"" help:"Validate a configuration file."`
	Schema   SchemaCmd   `cmd:"" help:"Generate the JSON Schema for the configuration."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple, verbose)." default:"simple"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("prism version %s\n", version)
	return nil
}

// ServeCmd starts the gateway server.
type ServeCmd struct {
	Address string `help:"Listen address override (e.g. :8080)."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutting down")
		cancel()
	}()

	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}
	if c.Address != "" {
		cfg.Server.Address = c.Address
	}

	store, closeStore := buildStore(ctx, cfg)
	defer closeStore()

	var metrics *observability.Metrics
	if *cfg.Metrics.Enabled {
		metrics, err = observability.NewMetrics(cfg.Metrics.Namespace)
		if err != nil {
			return fmt.Errorf("failed to set up metrics: %w", err)
		}
		if fb, ok := store.(*kv.FallbackStore); ok {
			fb.OnDegrade(metrics.StoreDegraded)
		}
	}

	taskOpts := []task.ManagerOption{task.WithTTL(cfg.Storage.TaskTTL)}
	if metrics != nil {
		taskOpts = append(taskOpts, task.WithTransitionHook(func(s task.Status) {
			metrics.TaskTransition(string(s))
		}))
	}
	tasks := task.NewManager(store, taskOpts...)

	agents := agent.NewRegistry()
	defaultAgent := cfg.Protocols.DefaultAgent
	if defaultAgent == "" {
		defaultAgent = "echo"
	}
	if err := agents.RegisterAgent(agent.NewEchoAgent(defaultAgent)); err != nil {
		return fmt.Errorf("failed to register default agent: %w", err)
	}

	tools, toolsets, err := buildTools(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		for _, ts := range toolsets {
			if err := ts.Close(); err != nil {
				slog.Warn("failed to close MCP toolset", "toolset", ts.Name(), "error", err)
			}
		}
	}()

	resources, prompts, err := buildCatalog(cfg)
	if err != nil {
		return err
	}

	protocols := protocol.NewRegistry()
	for _, name := range cfg.Protocols.Enabled {
		var adapter protocol.Adapter
		switch name {
		case mcp.ProtocolName:
			adapter = mcp.New(mcp.Config{
				Tools:        tools,
				Resources:    resources,
				Prompts:      prompts,
				Agents:       agents,
				DefaultAgent: defaultAgent,
			})
		case a2a.ProtocolName:
			adapter = a2a.New(tasks, agents, defaultAgent)
		case agui.ProtocolName:
			adapter = agui.New(agents, defaultAgent)
		default:
			continue
		}
		if err := protocols.RegisterAdapter(adapter); err != nil {
			return fmt.Errorf("failed to register protocol %s: %w", name, err)
		}
	}

	serverOpts := []transport.ServerOption{}
	if metrics != nil {
		serverOpts = append(serverOpts, transport.WithMetrics(metrics))
	}
	if fb, ok := store.(*kv.FallbackStore); ok {
		serverOpts = append(serverOpts, transport.WithStoreStatus(fb))
	}
	srv := transport.NewServer(transport.Config{
		Address:      cfg.Server.Address,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, protocols, serverOpts...)

	fmt.Printf("prism gateway ready on %s\n", cfg.Server.Address)
	fmt.Printf("  protocols: %v\n", protocols.ListProtocols())
	fmt.Printf("  storage:   %s\n", cfg.Storage.Type)
	if metrics != nil {
		fmt.Printf("  metrics:   http://%s/metrics\n", cfg.Server.Address)
	}
	fmt.Println("Press Ctrl+C to stop")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		return sweepLoop(gctx, tasks, cfg.Storage.CleanupInterval, cfg.Storage.TaskTTL)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// sweepLoop periodically reaps expired entries from the in-memory store.
// The durable store expires on its own; the ticker only matters for memory
// and fallback operation.
func sweepLoop(ctx context.Context, tasks *task.Manager, interval, maxAge time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := tasks.CleanupExpired(maxAge); n > 0 {
				slog.Debug("expired tasks reaped", "count", n)
			}
		}
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		slog.Info("no config file given, using defaults")
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	slog.Info("configuration loaded", "path", path)
	return cfg, nil
}

// buildStore selects the task store per configuration. Redis is wrapped with
// the in-memory fallback so a durable outage degrades instead of failing.
func buildStore(ctx context.Context, cfg *config.Config) (kv.Store, func()) {
	if cfg.Storage.Type != "redis" {
		return kv.NewMemoryStore(), func() {}
	}

	redisStore, err := kv.NewRedisStore(ctx, kv.RedisConfig{
		Address:  cfg.Storage.Redis.Address,
		Password: cfg.Storage.Redis.Password,
		DB:       cfg.Storage.Redis.DB,
	})
	if err != nil {
		slog.Warn("redis unreachable at startup, serving from memory", "error", err)
		return kv.NewMemoryStore(), func() {}
	}

	fb := kv.NewFallbackStore(redisStore, kv.NewMemoryStore())
	return fb, func() {
		if err := redisStore.Close(); err != nil {
			slog.Warn("failed to close redis client", "error", err)
		}
	}
}

func buildTools(ctx context.Context, cfg *config.Config) (*tool.Registry, []*mcptoolset.Toolset, error) {
	tools := tool.NewRegistry()
	if *cfg.Tools.Builtin {
		for _, t := range builtin.All() {
			if err := tools.AddTool(t); err != nil {
				return nil, nil, fmt.Errorf("failed to register builtin tool: %w", err)
			}
		}
	}

	var toolsets []*mcptoolset.Toolset
	for _, srvCfg := range cfg.Tools.MCPServers {
		ts, err := mcptoolset.New(mcptoolset.Config{
			Name:    srvCfg.Name,
			Command: srvCfg.Command,
			Args:    srvCfg.Args,
			Env:     srvCfg.Env,
			Filter:  srvCfg.Filter,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create MCP toolset %s: %w", srvCfg.Name, err)
		}
		if err := tools.AddSource(ctx, ts); err != nil {
			slog.Warn("MCP toolset unavailable, skipping", "toolset", srvCfg.Name, "error", err)
			continue
		}
		toolsets = append(toolsets, ts)
	}
	return tools, toolsets, nil
}

func buildCatalog(cfg *config.Config) (*tool.ResourceSet, *tool.PromptSet, error) {
	resources := tool.NewResourceSet()
	for _, entry := range cfg.Resources {
		content := entry.Content
		if entry.File != "" {
			data, err := os.ReadFile(entry.File)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to read resource %s: %w", entry.URI, err)
			}
			content = string(data)
		}
		err := resources.Add(tool.Resource{
			URI:         entry.URI,
			Name:        entry.Name,
			Description: entry.Description,
			MimeType:    entry.MimeType,
			Content:     content,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to register resource %s: %w", entry.URI, err)
		}
	}

	prompts := tool.NewPromptSet()
	for _, entry := range cfg.Prompts {
		params := make([]tool.PromptParam, 0, len(entry.Params))
		for _, p := range entry.Params {
			params = append(params, tool.PromptParam{
				Name:        p.Name,
				Description: p.Description,
				Required:    p.Required,
			})
		}
		err := prompts.Add(tool.Prompt{
			Name:        entry.Name,
			Description: entry.Description,
			Template:    entry.Template,
			Params:      params,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to register prompt %s: %w", entry.Name, err)
		}
	}
	return resources, prompts, nil
}

// ValidateCmd validates a configuration file.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	if cli.Config == "" {
		return fmt.Errorf("--config is required for validate")
	}
	if _, err := config.Load(cli.Config); err != nil {
		return err
	}
	fmt.Printf("%s: OK\n", cli.Config)
	return nil
}

// SchemaCmd prints the configuration JSON Schema.
type SchemaCmd struct{}

func (c *SchemaCmd) Run() error {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(&config.Config{})
	schema.Title = "Prism Gateway Configuration"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("prism"),
		kong.Description("prism - multi-protocol streaming gateway"),
		kong.UsageOnError(),
	)

	level, _ := logger.ParseLevel(cli.LogLevel)
	output := os.Stderr
	if cli.LogFile != "" {
		file, cleanup, err := logger.OpenLogFile(cli.LogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()
		output = file
	}
	logger.Init(level, output, cli.LogFormat)

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
