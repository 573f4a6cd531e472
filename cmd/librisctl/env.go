package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/libris/internal/config"
	"github.com/JaimeStill/libris/internal/infrastructure"
	"github.com/JaimeStill/libris/internal/trash"
	"github.com/JaimeStill/libris/pkg/formatting"
)

// env is the started infrastructure a command runs against.
type env struct {
	cfg   *config.Config
	infra *infrastructure.Infrastructure
}

func newEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	out := io.Discard
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		out = os.Stderr
	}

	infra, err := infrastructure.NewWithLogger(cfg, slog.New(slog.NewTextHandler(out, nil)))
	if err != nil {
		return nil, err
	}
	if err := infra.Start(); err != nil {
		return nil, err
	}

	infra.Lifecycle.WaitForStartup()
	if !infra.Lifecycle.Ready() {
		infra.Lifecycle.Shutdown(cfg.ShutdownTimeoutDuration())
		return nil, fmt.Errorf("not ready: %v", infra.Lifecycle.Pending())
	}

	return &env{cfg: cfg, infra: infra}, nil
}

func (e *env) close() error {
	return e.infra.Lifecycle.Shutdown(e.cfg.ShutdownTimeoutDuration())
}

// worker builds the reclamation worker. A non-empty retention overrides the
// configured window.
func (e *env) worker(retention string) (trash.System, error) {
	tc := e.cfg.Catalog.Trash
	window := tc.RetentionDuration()
	if retention != "" {
		d, err := formatting.ParseDuration(retention)
		if err != nil {
			return nil, fmt.Errorf("retention: %w", err)
		}
		window = d
	}

	return trash.New(
		trash.NewRepository(e.infra.Database.Connection()),
		e.infra.Storage,
		trash.Options{
			Retention:   window,
			Concurrency: tc.Concurrency,
			BatchSize:   tc.BatchSize,
		},
		e.infra.Logger,
	), nil
}

func (e *env) context(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = e.cfg.Catalog.Trash.RunTimeoutDuration()
	}
	return context.WithTimeout(parent, timeout)
}
