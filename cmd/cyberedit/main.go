package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/manash/cyberedit/internal/config"
	"github.com/manash/cyberedit/internal/display"
	"github.com/manash/cyberedit/internal/i18n"
	"github.com/manash/cyberedit/internal/image"
	"github.com/manash/cyberedit/internal/keys"
	"github.com/manash/cyberedit/internal/logging"
	"github.com/manash/cyberedit/internal/provider"
	"github.com/manash/cyberedit/internal/provider/gemini"
	"github.com/manash/cyberedit/internal/provider/openai"
	"github.com/manash/cyberedit/internal/session"
	"github.com/manash/cyberedit/internal/store"
	"github.com/manash/cyberedit/pkg/models"
)

var (
	version = "dev"
	commit  = "none"
)

var (
	flagConfig    string
	flagDB        string
	flagEphemeral bool
	flagVerbose   bool
	flagModel     string
	flagAPIKey    string
)

type App struct {
	In         io.Reader
	Out        io.Writer
	Err        io.Writer
	Registry   *models.ModelRegistry
	GetEnv     func(string) string
	IsTerminal func(r io.Reader) bool
	ReadSecret func(r io.Reader) (string, error)

	LoadConfig   func(path string) (*config.Config, error)
	NewLogger    func(cfg config.LoggingConfig, verbose bool) (*zap.Logger, error)
	OpenStore    func(path string, ephemeral bool) (store.KV, func() error, error)
	NewKeyStore  func() (*keys.Store, error)
	NewEditor    func(ctx context.Context, providerType models.ProviderType, cfg *provider.Config, registry *models.ModelRegistry) (provider.Editor, error)
	NewSaver     func() *image.Saver
	NewDisplayer func(out io.Writer) *display.Displayer

	cfg    *config.Config
	logger *zap.Logger
	kv     store.KV
}

func DefaultApp() *App {
	return &App{
		In:           os.Stdin,
		Out:          os.Stdout,
		Err:          os.Stderr,
		Registry:     models.DefaultRegistry(),
		GetEnv:       os.Getenv,
		IsTerminal:   isTerminal,
		ReadSecret:   readSecret,
		LoadConfig:   config.Load,
		NewLogger:    logging.New,
		OpenStore:    openStore,
		NewKeyStore:  keys.NewStore,
		NewEditor:    newEditor,
		NewSaver:     image.NewSaver,
		NewDisplayer: display.New,
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	app := DefaultApp()
	rootCmd := newRootCmd(app)
	return rootCmd.Execute()
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cyberedit",
		Short: "Edit photos with AI image models",
		Long: `cyberedit sends a photo and one or more text prompts to an AI image
editing model and saves the edited results next to a before/after comparison.

Usage is limited to a few free trial generations until a license key is
activated. Past generations are kept in a local history.

Examples:
  cyberedit edit portrait.jpg "cyberpunk neon city at night"
  cyberedit edit portrait.jpg --file prompts.txt --quality 8K
  cyberedit compare <id> --split 30 -o compare.png
  cyberedit license CYBER-XXXX
  cyberedit interactive`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.setup(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if app.logger != nil {
				_ = app.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ~/.config/cyberedit/config.yaml)")
	cmd.PersistentFlags().StringVar(&flagDB, "db", "", "state database path (default ~/.cyberedit/state.db)")
	cmd.PersistentFlags().BoolVar(&flagEphemeral, "ephemeral", false, "keep state in memory for this run only")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newEditCmd(app))
	cmd.AddCommand(newLicenseCmd(app))
	cmd.AddCommand(newHistoryCmd(app))
	cmd.AddCommand(newCompareCmd(app))
	cmd.AddCommand(newStatusCmd(app))
	cmd.AddCommand(newLocaleCmd(app))
	cmd.AddCommand(newKeysCmd(app))
	cmd.AddCommand(newInteractiveCmd(app))

	return cmd
}

func (app *App) setup(cmd *cobra.Command) error {
	path := flagConfig
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return err
		}
	}

	cfg, err := app.LoadConfig(path)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("db") {
		cfg.DBPath = flagDB
	}
	app.cfg = cfg

	logger, err := app.NewLogger(cfg.Logging, flagVerbose)
	if err != nil {
		return err
	}
	app.logger = logger
	app.logger.Debug("configuration loaded",
		zap.String("path", path),
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model))
	return nil
}

// openSession loads the persisted session. The returned func releases the
// store and applies any license activation still pending.
func (app *App) openSession(ctx context.Context) (*session.Manager, func(), error) {
	kv, closeStore, err := app.OpenStore(app.cfg.DBPath, flagEphemeral)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open state store: %w", err)
	}
	app.kv = kv

	mgr, err := session.Load(ctx, kv, session.Options{
		TrialLimit:   app.cfg.TrialLimit,
		LicenseDelay: app.cfg.GetLicenseDelay(),
		Logger:       app.logger.Named("session"),
	})
	if err != nil {
		closeStore()
		return nil, nil, fmt.Errorf("failed to load session: %w", err)
	}
	if err := mgr.SetQuality(app.cfg.GetQuality()); err != nil {
		closeStore()
		return nil, nil, err
	}

	cleanup := func() {
		mgr.Close()
		if err := closeStore(); err != nil {
			app.logger.Warn("failed to close state store", zap.Error(err))
		}
	}
	return mgr, cleanup, nil
}

// model picks the model from the flag, then the config. A configured
// provider whose model belongs to another provider falls back to that
// provider's default model.
func (app *App) model() string {
	if flagModel != "" {
		return flagModel
	}
	model := app.cfg.Model
	want := models.ProviderType(app.cfg.Provider)
	if caps, ok := app.Registry.Get(model); ok && caps.Provider == want {
		return model
	}
	switch want {
	case models.ProviderOpenAI:
		return openai.DefaultModel
	case models.ProviderGemini:
		return gemini.DefaultModel
	}
	return model
}

// attachEditor resolves the model's provider and API key and hands the
// editor to mgr.
func (app *App) attachEditor(ctx context.Context, mgr *session.Manager) error {
	model := app.model()
	caps, ok := app.Registry.Get(model)
	if !ok {
		return fmt.Errorf("unknown model %q: available models: %v", model, app.Registry.List())
	}

	keyStore, err := app.NewKeyStore()
	if err != nil {
		app.logger.Warn("key store unavailable", zap.Error(err))
		keyStore = nil
	}
	resolver := &keys.Resolver{Store: keyStore, Getenv: app.GetEnv}
	apiKey, source, err := resolver.Resolve(flagAPIKey, caps.Provider)
	if err != nil {
		return err
	}
	app.logger.Debug("api key resolved", zap.String("provider", string(caps.Provider)), zap.String("source", source))

	pcfg := &provider.Config{
		APIKey:     apiKey,
		Model:      model,
		TimeoutSec: app.cfg.GetTimeoutSec(),
		Logger:     app.logger,
	}
	editor, err := app.NewEditor(ctx, caps.Provider, pcfg, app.Registry)
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}

	factory := provider.NewFactory(app.Registry)
	factory.Configure(caps.Provider, pcfg)
	factory.Register(editor)
	editor, err = factory.GetForModel(model)
	if err != nil {
		return err
	}

	mgr.SetEditor(editor, model)
	return nil
}

func (app *App) saver() *image.Saver {
	saver := app.NewSaver()
	if app.cfg.OutputDir != "" {
		saver = saver.InDir(app.cfg.OutputDir)
	}
	return saver
}

func (app *App) confirm(prompt string) bool {
	fmt.Fprintf(app.Out, "%s [y/N] ", prompt)
	reader := bufio.NewReader(app.In)
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

func statusLine(state session.State) string {
	if state.Licensed {
		return i18n.T(state.Locale, i18n.Licensed)
	}
	return fmt.Sprintf("%s: %d", i18n.T(state.Locale, i18n.TrialUsesRemaining), state.RemainingTrialUses)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func openStore(path string, ephemeral bool) (store.KV, func() error, error) {
	if ephemeral {
		return store.NewMemory(), func() error { return nil }, nil
	}

	var (
		db  *store.SQLite
		err error
	)
	if path == "" {
		db, err = store.NewSQLite()
	} else {
		db, err = store.NewSQLiteWithPath(path)
	}
	if err != nil {
		return nil, nil, err
	}
	return db, db.Close, nil
}

func newEditor(ctx context.Context, providerType models.ProviderType, cfg *provider.Config, registry *models.ModelRegistry) (provider.Editor, error) {
	switch providerType {
	case models.ProviderGemini:
		p, err := gemini.New(ctx, cfg, registry)
		if err != nil {
			return nil, err
		}
		return p, nil
	case models.ProviderOpenAI:
		p, err := openai.New(cfg, registry)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", provider.ErrProviderNotFound, providerType)
}

func isTerminal(r io.Reader) bool {
	if f, ok := r.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

// readSecret reads a key without echo from a terminal, or one line from
// any other reader.
func readSecret(r io.Reader) (string, error) {
	if f, ok := r.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		data, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
