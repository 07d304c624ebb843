package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/manash/cinestudio/internal/backend"
	"github.com/manash/cinestudio/internal/config"
	"github.com/manash/cinestudio/internal/display"
	"github.com/manash/cinestudio/internal/image"
	"github.com/manash/cinestudio/internal/journal"
	"github.com/manash/cinestudio/internal/logging"
	"github.com/manash/cinestudio/internal/notify"
	"github.com/manash/cinestudio/internal/studio"
)

var (
	version = "dev"
	commit  = "none"
)

var (
	flagConfigDir   string
	flagBackendURL  string
	flagTimeout     int
	flagVerbose     bool
	flagLogLevel    string
	flagDownloadDir string
	flagNoInline    bool
)

type App struct {
	In         io.Reader
	Out        io.Writer
	Err        io.Writer
	GetEnv     func(string) string
	NewBackend func(cfg *backend.Config) backend.Backend
	// Terminal is checked for inline graphics support. Nil disables them.
	Terminal *os.File
}

func DefaultApp() *App {
	return &App{
		In:     os.Stdin,
		Out:    os.Stdout,
		Err:    os.Stderr,
		GetEnv: os.Getenv,
		NewBackend: func(cfg *backend.Config) backend.Backend {
			return backend.New(cfg)
		},
		Terminal: os.Stdout,
	}
}

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	app := DefaultApp()
	return fang.Execute(
		context.Background(),
		newRootCmd(app),
		fang.WithVersion(fmt.Sprintf("%s (commit: %s)", version, commit)),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	)
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cinestudio",
		Short: "Terminal client for the AI cinema studio",
		Long: `cinestudio drives an AI cinema studio backend from the terminal.

Compose shots with simulated cameras, lenses and focal lengths, animate them
into videos, explore alternative angles with multishot storyboards and keep
track of the credits spent.

Examples:
  cinestudio studio
  cinestudio generate --camera "ARRI Alexa 35" --focal 50mm "a rain-soaked alley"
  cinestudio animate 42 --prompt "slow push in"
  cinestudio multishot 42 --yes
  cinestudio credits week`,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "config directory (defaults to the platform config dir)")
	cmd.PersistentFlags().StringVar(&flagBackendURL, "backend", "", "studio backend base URL")
	cmd.PersistentFlags().IntVar(&flagTimeout, "timeout", 0, "backend request timeout in seconds")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log backend requests and responses")
	cmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&flagDownloadDir, "download-dir", "", "directory for downloaded media")
	cmd.PersistentFlags().BoolVar(&flagNoInline, "no-inline", false, "never draw images inline")

	cmd.AddCommand(newStudioCmd(app))
	cmd.AddCommand(newGenerateCmd(app))
	cmd.AddCommand(newAnimateCmd(app))
	cmd.AddCommand(newHistoryCmd(app))
	cmd.AddCommand(newUploadsCmd(app))
	cmd.AddCommand(newDownloadCmd(app))
	cmd.AddCommand(newMultishotCmd(app))
	cmd.AddCommand(newUpscaleCmd(app))
	cmd.AddCommand(newBatchCmd(app))
	cmd.AddCommand(newCreditsCmd(app))

	return cmd
}

// loadConfig resolves the config file, then env, then flags.
func (app *App) loadConfig() (config.Config, error) {
	dir := flagConfigDir
	if dir == "" {
		var err error
		if dir, err = config.Dir(app.GetEnv); err != nil {
			return config.Config{}, fmt.Errorf("failed to resolve config directory: %w", err)
		}
	}

	cfg, err := config.Load(dir, app.GetEnv)
	if err != nil {
		return cfg, err
	}

	if flagBackendURL != "" {
		cfg.Backend.BaseURL = flagBackendURL
	}
	if flagTimeout > 0 {
		cfg.Backend.TimeoutSec = flagTimeout
	}
	if flagVerbose {
		cfg.Backend.Verbose = true
		cfg.Logging.Level = "debug"
	}
	if flagLogLevel != "" {
		cfg.Logging.Level = flagLogLevel
	}
	if flagDownloadDir != "" {
		cfg.Studio.DownloadDir = flagDownloadDir
	}
	if flagNoInline {
		cfg.Studio.Inline = false
	}
	return cfg, nil
}

// env holds everything a command needs to talk to the studio.
type env struct {
	cfg       config.Config
	backend   backend.Backend
	journal   *journal.Journal
	saver     *image.Saver
	displayer *display.Displayer
}

func (app *App) open() (*env, error) {
	cfg, err := app.loadConfig()
	if err != nil {
		return nil, err
	}

	logging.Init(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
		Writer: app.Err,
	})

	b := app.NewBackend(&backend.Config{
		BaseURL:    cfg.Backend.BaseURL,
		TimeoutSec: cfg.Backend.TimeoutSec,
		Verbose:    cfg.Backend.Verbose,
	})

	e := &env{
		cfg:     cfg,
		backend: b,
		saver:   image.NewSaver(b, cfg.Studio.DownloadDir),
	}

	// A broken journal costs history of spend, not the command.
	if cfg.Studio.JournalPath != "" {
		store, err := journal.NewStore(filepath.Clean(cfg.Studio.JournalPath))
		if err != nil {
			logging.L().Warn("activity journal unavailable", "path", cfg.Studio.JournalPath, "error", err)
		} else {
			e.journal = journal.New(store)
		}
	}

	if cfg.Studio.Inline && app.Terminal != nil && display.GraphicsSupported(app.GetEnv) && display.IsTerminal(app.Terminal) {
		e.displayer = display.New(app.Out, e.saver)
	}

	return e, nil
}

func (e *env) Close() {
	if e.journal != nil {
		if err := e.journal.Close(); err != nil {
			logging.L().Warn("failed to close journal", "error", err)
		}
	}
}

// session builds a studio session reporting to out. Preferences are loaded
// when the journal is available.
func (e *env) session(ctx context.Context, out io.Writer) *studio.Session {
	opts := studio.Options{
		Backend:   e.backend,
		Notifier:  notify.NewWriter(out),
		Saver:     e.saver,
		Clipboard: display.NewClipboard(out),
	}
	if e.journal != nil {
		opts.Journal = e.journal
		opts.Preferences = e.journal
	}

	s := studio.New(opts)
	if err := s.LoadPreferences(ctx); err != nil {
		logging.L().Warn("failed to load preferences", "error", err)
	}
	return s
}
