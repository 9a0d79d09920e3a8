package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"mydashboard/internal/backend"
	"mydashboard/internal/config"
	"mydashboard/internal/logging"
	"mydashboard/internal/session"
	"mydashboard/internal/tables"
	"mydashboard/internal/trace"
	"mydashboard/internal/ui"
)

// PasswordEnv holds the password for headless commands, which never prompt.
const PasswordEnv = "MYDASHBOARD_PASSWORD"

// app is everything a command needs, built once before it runs.
type app struct {
	cfg    *config.Config
	log    *charmlog.Logger
	closer io.Closer
	traces *trace.Provider
	ctrl   *session.Controller
}

type rootFlags struct {
	envFile string
	email   string
}

// newRootCmd builds the command tree. The returned app must be closed
// after Execute, whether or not the command failed.
func newRootCmd() (*cobra.Command, *app) {
	var (
		flags rootFlags
		a     = &app{}
	)
	root := &cobra.Command{
		Use:           "mydashboard",
		Short:         "Browse, edit and analyze your tables in the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.open(cmd.Context(), flags.envFile); err != nil {
				return err
			}
			cmd.SetContext(logging.WithContext(cmd.Context(), a.log))
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := tea.NewProgram(ui.NewAppModel(a.ctrl, a.log).AsTeaModel(), tea.WithAltScreen())
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("run TUI: %w", err)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file to load before the environment")
	root.PersistentFlags().StringVar(&flags.email, "email", "", "account email for headless commands (password from "+PasswordEnv+")")

	root.AddCommand(
		newTablesCmd(a, &flags),
		newShowCmd(a, &flags),
		newUploadCmd(a, &flags),
		newToolsCmd(a, &flags),
	)
	return root, a
}

// open loads config and wires the backend, store and controller.
func (a *app) open(ctx context.Context, envFile string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	log, closer, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	traces, err := trace.NewProvider(ctx, cfg.Trace)
	if err != nil {
		closer.Close()
		return fmt.Errorf("tracing: %w", err)
	}
	client, err := backend.New(cfg.Backend,
		backend.WithTracer(traces.Tracer()),
		backend.WithLogger(log.WithPrefix("backend")),
	)
	if err != nil {
		closer.Close()
		return err
	}
	store := tables.NewStore(client, cfg.Schema, log.WithPrefix("tables"))

	a.cfg = cfg
	a.log = log
	a.closer = closer
	a.traces = traces
	a.ctrl = session.NewController(client, store, log.WithPrefix("session"))
	log.Debug("configured", "config", cfg.String(), "tracing", traces.Enabled())
	return nil
}

func (a *app) close(ctx context.Context) error {
	if a.ctrl != nil {
		if err := a.ctrl.Logout(ctx); err != nil {
			a.log.Warn("logout", "err", err)
		}
	}
	var errs []error
	if a.traces != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		errs = append(errs, a.traces.Shutdown(shutdownCtx))
	}
	if a.closer != nil {
		errs = append(errs, a.closer.Close())
	}
	return errors.Join(errs...)
}

// login signs in for a headless command.
func (a *app) login(ctx context.Context, flags *rootFlags) error {
	if flags.email == "" {
		return errors.New("--email is required")
	}
	password := os.Getenv(PasswordEnv)
	if password == "" {
		return fmt.Errorf("set %s", PasswordEnv)
	}
	if err := a.ctrl.Login(ctx, flags.email, password); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return nil
}
