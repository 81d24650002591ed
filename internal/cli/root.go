// Package cli implements the todo command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/idilsaglam/tada/internal/config"
	"github.com/idilsaglam/tada/internal/fixture"
	"github.com/idilsaglam/tada/internal/logging"
	"github.com/idilsaglam/tada/internal/store/liststore"
	"github.com/idilsaglam/tada/internal/ui"
)

// Exit codes: 0 ok, 1 error, 2 usage.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// usageError marks errors caused by bad invocation rather than bad state.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

// app carries what every subcommand needs once flags and config resolve.
type app struct {
	configDir string
	seedPath  string

	cfg    *config.Config
	logger *zap.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "todo",
		Short:         "A tiny todo list with animated removals",
		Long:          "todo keeps an in-memory todo list. Items you delete linger briefly as \"removing\" before they disappear. Nothing is saved between runs.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usagef("unknown subcommand: %s", args[0])
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.configDir, "config", "", "Directory holding .tada.yaml")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.String("env", "development", "Environment: development or production")
	pf.String("theme", "classic", "Theme: classic, neon or mono")
	pf.Bool("no-color", false, "Disable colors")
	pf.Duration("delay", liststore.DefaultRemovalDelay, "How long removed items linger")
	pf.StringVar(&a.seedPath, "seed", "", "JSON file of items to start with")

	cmd.AddCommand(newRunCmd(a), newTUICmd(a))
	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configDir, cmd.Flags())
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return usageError{err}
	}
	ui.SetTheme(cfg.Theme)
	ui.SetColorForcing(false, cfg.NoColor)

	a.cfg = cfg
	a.logger = logger
	logger.Debug("config loaded",
		zap.Duration("removal_delay", cfg.RemovalDelay),
		zap.String("theme", cfg.Theme),
	)
	return nil
}

// newStore builds a store from config and applies the seed file, if any.
func (a *app) newStore() (*liststore.Store, error) {
	s := liststore.New(
		liststore.WithRemovalDelay(a.cfg.RemovalDelay),
		liststore.WithLogger(a.logger.Named("store")),
	)
	if a.seedPath == "" {
		return s, nil
	}
	seeds, err := fixture.Load(a.seedPath)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("seed: %w", err)
	}
	n := fixture.Apply(s, seeds)
	a.logger.Info("seeded list", zap.String("path", a.seedPath), zap.Int("count", n))
	return s, nil
}

// Execute runs the command line and returns the process exit code.
// Scripts given as "-" or no file are read from stdin.
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	ui.Fail(stderr, err.Error())
	var ue usageError
	if errors.As(err, &ue) {
		return exitUsage
	}
	return exitError
}
