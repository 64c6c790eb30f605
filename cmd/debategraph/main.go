// Command debategraph runs the multi-agent debate server.
//
// Usage:
//
//	debategraph serve
//	debategraph serve --port 9000 --model gpt-4o
//	debategraph serve --config server.yaml --observe
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/debatelab/debategraph/pkg/config"
	"github.com/debatelab/debategraph/pkg/llms"
	"github.com/debatelab/debategraph/pkg/logger"
	"github.com/debatelab/debategraph/pkg/observability"
	"github.com/debatelab/debategraph/pkg/server"
)

// CLI defines the command-line interface.
type CLI struct {
	Version VersionCmd `cmd:"" help:"Show version information."`
	Serve   ServeCmd   `cmd:"" help:"Start the debate server."`

	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple or verbose)." default:"simple"`
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
	fmt.Printf("debategraph version %s\n", version)
	return nil
}

// ServeCmd starts the debate server.
type ServeCmd struct {
	Config string `short:"c" help:"Path to server config file." type:"path"`

	Host         *string        `help:"Address to bind (default 0.0.0.0)." placeholder:"ADDR"`
	Port         *int           `help:"Port to listen on (default 8000)."`
	Model        string         `help:"Chat model used for all debate participants."`
	BaseURL      string         `name:"base-url" help:"Custom chat-completions base URL."`
	MessageDelay *time.Duration `name:"message-delay" help:"Pacing delay between relayed events (default 500ms)."`

	Observe bool `help:"Enable tracing (stdout span exporter)."`
}

// buildConfig loads the config file, if any, and layers explicitly set flags
// on top. Pointer-typed flags distinguish "not passed" from a value that
// happens to match the default, so --port 8000 still beats the file.
func (c *ServeCmd) buildConfig() (*config.ServerConfig, error) {
	cfg := &config.ServerConfig{}
	if c.Config != "" {
		loaded, err := config.LoadServerConfig(c.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if c.Host != nil {
		cfg.Host = *c.Host
	}
	if c.Port != nil {
		cfg.Port = *c.Port
	}
	if c.Model != "" {
		cfg.Model = c.Model
	}
	if c.BaseURL != "" {
		cfg.LLMHost = c.BaseURL
	}
	if c.MessageDelay != nil {
		cfg.MessageDelay = config.Duration(*c.MessageDelay)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
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

	cfg, err := c.buildConfig()
	if err != nil {
		return err
	}

	if c.Observe {
		shutdown, err := observability.InitTracing(ctx, "debategraph")
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		defer func() {
			flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer flushCancel()
			if err := shutdown(flushCtx); err != nil {
				slog.Warn("trace shutdown failed", "error", err)
			}
		}()
	}

	srv := server.NewServer(cfg, llms.OpenAIFactory{})
	return srv.Start(ctx)
}

func main() {
	_ = godotenv.Load()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("debategraph"),
		kong.Description("Multi-agent debate server over a user-defined graph."),
		kong.UsageOnError(),
	)

	level, err := logger.ParseLevel(cli.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	out := os.Stderr
	if cli.LogFile != "" {
		f, cleanup, err := logger.OpenLogFile(cli.LogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()
		out = f
	}
	logger.Init(level, out, cli.LogFormat)

	err = ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
