package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mindburn-Labs/uow/pkg/config"
	"github.com/Mindburn-Labs/uow/pkg/domain"
)

type globals struct {
	cfg           *config.Config
	verbose       bool
	principalID   string
	principalName string
	stdout        io.Writer
	stderr        io.Writer
}

func (g *globals) principal() domain.Principal {
	return domain.NewPrincipal(g.principalID, g.principalName)
}

func (g *globals) print(v any) error {
	enc := json.NewEncoder(g.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// withApp bootstraps the application for one command and tears it down
// afterwards.
func (g *globals) withApp(ctx context.Context, fn func(ctx context.Context, a *app) error) error {
	a, err := bootstrap(ctx, g.cfg)
	if err != nil {
		return err
	}
	defer a.Close(ctx)
	return fn(ctx, a)
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globals{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "uow",
		Short:         "Run staffing units of work and inspect their envelopes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			g.cfg = config.Load()
			logger, err := newLogger(g.cfg, g.verbose, stderr)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&g.principalID, "principal-id", "cli", "Id of the acting principal")
	root.PersistentFlags().StringVar(&g.principalName, "principal-name", "cli", "Name of the acting principal")

	root.AddCommand(
		newSchemaCmd(g),
		newDepartmentCmd(g),
		newEmployeeCmd(g),
		newShowCmd(g),
	)

	return root
}

func newLogger(cfg *config.Config, verbose bool, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(cfg.LogFormat) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text", "":
		handler = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("invalid LOG_FORMAT %q", cfg.LogFormat)
	}
	return slog.New(handler).With("service", "uow"), nil
}
