package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/globalchat-lobby/internal/config"
	logpkg "github.com/vovakirdan/globalchat-lobby/internal/log"
	"github.com/vovakirdan/globalchat-lobby/internal/ui"
)

type rootOptions struct {
	configPath string
	logLevel   string
	baseURL    string
	sessionID  string
	ackTimeout string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		if errors.Is(err, ui.ErrCancelled) || errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "lobby: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "lobby",
		Short:         "Browse, create and join translated chat rooms",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInteractive(cmd, opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config file")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error, off)")
	flags.StringVar(&opts.baseURL, "base-url", "", "chat server base URL")
	flags.StringVar(&opts.sessionID, "session", "", "handoff session id")
	flags.StringVar(&opts.ackTimeout, "ack-timeout", "", "fail requests unanswered for this long (0 waits forever)")

	root.AddCommand(
		newRoomsCommand(opts),
		newJoinCommand(opts),
		newCreateCommand(opts),
		newHandoffCommand(opts),
		newDevServerCommand(opts),
	)
	return root
}

// load resolves configuration and builds the logger. Flags beat env vars,
// which beat the config file.
func (o *rootOptions) load() (config.Config, *zerolog.Logger, error) {
	bootstrap := logpkg.New("info")
	cfg, path, err := config.Load(bootstrap, o.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}

	override := config.Config{
		LogLevel:  o.logLevel,
		BaseURL:   o.baseURL,
		SessionID: o.sessionID,
	}
	cfg.UpdateFrom(override)
	if o.ackTimeout != "" {
		d, err := parseDuration(o.ackTimeout)
		if err != nil {
			return config.Config{}, nil, fmt.Errorf("--ack-timeout: %w", err)
		}
		cfg.AckTimeout = d
	}

	logger := logpkg.New(cfg.LogLevel)
	logger.Debug().Str("config_path", path).Str("base_url", cfg.BaseURL).Msg("configuration loaded")
	return cfg, logger, nil
}
