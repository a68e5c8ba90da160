package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/cli/go-gh/v2/pkg/term"
	"go.uber.org/zap"

	"github.com/markis/chatstream/internal/args"
	"github.com/markis/chatstream/internal/client"
	"github.com/markis/chatstream/internal/coalesce"
	"github.com/markis/chatstream/internal/config"
	"github.com/markis/chatstream/internal/exchange"
	"github.com/markis/chatstream/internal/logging"
	"github.com/markis/chatstream/internal/render"
)

// main function to parse arguments and run one chat exchange.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx)
	stop()

	if err != nil && !errors.Is(err, args.ErrHelp) {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.New(cfg.Log)
	defer func() { _ = logger.Sync() }()

	a, err := args.ParseArgs(ctx, *cfg, os.Args[1:], os.Stdin)
	if err != nil {
		return err
	}
	cfg.Endpoint = a.Endpoint

	terminal := term.FromEnv()
	sink, err := render.NewTerminal(render.Options{
		Out:       os.Stdout,
		ErrOut:    os.Stderr,
		PlainText: a.UsePlainText,
		Theme:     cfg.Render.Theme,
		Wrap:      cfg.Render.Wrap,
		Indicator: terminal.IsTerminalOutput() && !a.UsePlainText,
	})
	if err != nil {
		return err
	}

	runner := exchange.NewRunner(sink, coalesce.Config{
		MinChunkSize: a.MinChunkSize,
		MaxDelay:     a.MaxDelay,
	}, exchange.WithLogger(logger))

	c := client.New(*cfg, logger)
	switch a.Mode {
	case args.ModeWelcome:
		return runner.Run(ctx, exchange.KindWelcome, c.OpenWelcome)
	case args.ModeReplay:
		return runner.Run(ctx, exchange.KindMessage, func(context.Context) (io.ReadCloser, error) {
			return client.OpenReplay(a.ReplayPath, a.ChunkSize)
		})
	default:
		logger.Debug("sending prompt", zap.String("command", a.Command), zap.Int("prompt_bytes", len(a.Prompt())))
		return runner.Run(ctx, exchange.KindMessage, func(ctx context.Context) (io.ReadCloser, error) {
			return c.OpenChat(ctx, a.Prompt())
		})
	}
}
