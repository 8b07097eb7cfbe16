package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/manash/cyberedit/internal/display"
	"github.com/manash/cyberedit/internal/i18n"
	"github.com/manash/cyberedit/internal/keys"
	"github.com/manash/cyberedit/internal/repl"
	"github.com/manash/cyberedit/internal/session"
	"github.com/manash/cyberedit/internal/store"
	"github.com/manash/cyberedit/pkg/models"
)

func newLicenseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "license <key>",
		Short: "Activate a license key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLicense(cmd, args, app)
		},
	}
}

func runLicense(_ *cobra.Command, args []string, app *App) error {
	ctx, cancel := signalContext()
	defer cancel()

	mgr, cleanup, err := app.openSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	locale := mgr.Snapshot().Locale
	if mgr.Snapshot().Licensed {
		fmt.Fprintln(app.Out, i18n.T(locale, i18n.Licensed))
		return nil
	}

	done, err := mgr.ActivateLicense(args[0])
	if errors.Is(err, session.ErrInvalidLicense) {
		return errors.New(i18n.T(locale, i18n.InvalidLicense))
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(app.Out, "%s...\n", i18n.T(locale, i18n.Activate))
	select {
	case <-done:
	case <-ctx.Done():
		// cleanup flushes the pending activation.
		return ctx.Err()
	}

	fmt.Fprintln(app.Out, i18n.T(locale, i18n.Activated))
	return nil
}

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show trial, license and configuration status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, args, app)
		},
	}
}

func runStatus(_ *cobra.Command, _ []string, app *App) error {
	ctx := context.Background()
	mgr, cleanup, err := app.openSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	state := mgr.Snapshot()
	model := app.model()

	fmt.Fprintln(app.Out, statusLine(state))
	fmt.Fprintf(app.Out, "%s: %d\n", i18n.T(state.Locale, i18n.History), len(state.History))
	fmt.Fprintf(app.Out, "Quality:   %s\n", state.Quality.Label())
	fmt.Fprintf(app.Out, "Locale:    %s\n", state.Locale)
	fmt.Fprintf(app.Out, "Model:     %s\n", model)

	if flagEphemeral {
		fmt.Fprintln(app.Out, "State:     in memory (--ephemeral)")
	} else if app.cfg.DBPath != "" {
		fmt.Fprintf(app.Out, "State:     %s\n", app.cfg.DBPath)
	}

	if caps, ok := app.Registry.Get(model); ok {
		keyStore, _ := app.NewKeyStore()
		resolver := &keys.Resolver{Store: keyStore, Getenv: app.GetEnv}
		if key, source, err := resolver.Resolve("", caps.Provider); err == nil {
			fmt.Fprintf(app.Out, "API key:   %s from %s\n", keys.MaskKey(key), source)
		} else {
			fmt.Fprintf(app.Out, "API key:   not set (%v)\n", err)
		}
	}

	if flagVerbose {
		return printStoreEntries(ctx, app)
	}
	return nil
}

func printStoreEntries(ctx context.Context, app *App) error {
	lister, ok := app.kv.(store.Lister)
	if !ok {
		return nil
	}
	entries, err := lister.Entries(ctx)
	if err != nil {
		return fmt.Errorf("failed to list stored keys: %w", err)
	}

	fmt.Fprintf(app.Out, "\nStored keys (%d)\n", len(entries))
	fmt.Fprintf(app.Out, "%-12s  %-8s  %s\n", "Key", "Size", "Updated")
	for _, e := range entries {
		fmt.Fprintf(app.Out, "%-12s  %-8s  %s\n", e.Key, humanize.Bytes(uint64(e.Size)), humanize.Time(e.UpdatedAt))
	}
	return nil
}

func newLocaleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "locale [EN|VI]",
		Short: "Show or set the interface language",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLocale(cmd, args, app)
		},
	}
}

func runLocale(_ *cobra.Command, args []string, app *App) error {
	ctx := context.Background()
	mgr, cleanup, err := app.openSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if len(args) == 0 {
		fmt.Fprintln(app.Out, mgr.Snapshot().Locale)
		return nil
	}

	locale, err := models.ParseLocale(args[0])
	if err != nil {
		return err
	}
	if err := mgr.SetLocale(ctx, locale); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Locale set to: %s\n", locale)
	return nil
}

func newKeysCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage stored API keys",
		Long: `Manage the API keys stored in keys.json.

Keys are resolved in order: --api-key flag, stored key, environment
variable (GEMINI_API_KEY or OPENAI_API_KEY).

Examples:
  cyberedit keys set gemini          # prompts for the key
  cyberedit keys get openai
  cyberedit keys list
  cyberedit keys delete gemini`,
	}

	setCmd := &cobra.Command{
		Use:   "set <provider> [key]",
		Short: "Store an API key",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeysSet(cmd, args, app)
		},
	}
	getCmd := &cobra.Command{
		Use:   "get <provider>",
		Short: "Show a stored API key (masked)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeysGet(cmd, args, app)
		},
	}
	deleteCmd := &cobra.Command{
		Use:     "delete <provider>",
		Aliases: []string{"rm"},
		Short:   "Delete a stored API key",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeysDelete(cmd, args, app)
		},
	}
	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List providers with a stored key",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeysList(cmd, args, app)
		},
	}

	cmd.AddCommand(setCmd, getCmd, deleteCmd, listCmd)
	return cmd
}

func parseProvider(s string) (models.ProviderType, error) {
	p := models.ProviderType(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case models.ProviderGemini, models.ProviderOpenAI:
		return p, nil
	}
	return "", fmt.Errorf("unknown provider %q (valid: gemini, openai)", s)
}

func runKeysSet(_ *cobra.Command, args []string, app *App) error {
	p, err := parseProvider(args[0])
	if err != nil {
		return err
	}

	var key string
	if len(args) > 1 {
		key = args[1]
	} else {
		fmt.Fprintf(app.Out, "Enter %s API key: ", p)
		if key, err = app.ReadSecret(app.In); err != nil {
			return fmt.Errorf("failed to read key: %w", err)
		}
		fmt.Fprintln(app.Out)
	}

	store, err := app.NewKeyStore()
	if err != nil {
		return err
	}
	if err := store.Set(p, key); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Stored %s key %s in %s\n", p, keys.MaskKey(key), store.Path())
	return nil
}

func runKeysGet(_ *cobra.Command, args []string, app *App) error {
	p, err := parseProvider(args[0])
	if err != nil {
		return err
	}
	store, err := app.NewKeyStore()
	if err != nil {
		return err
	}
	key, err := store.Get(p)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "%s: %s\n", p, keys.MaskKey(key))
	return nil
}

func runKeysDelete(_ *cobra.Command, args []string, app *App) error {
	p, err := parseProvider(args[0])
	if err != nil {
		return err
	}
	store, err := app.NewKeyStore()
	if err != nil {
		return err
	}
	if err := store.Delete(p); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Deleted %s key\n", p)
	return nil
}

func runKeysList(_ *cobra.Command, _ []string, app *App) error {
	store, err := app.NewKeyStore()
	if err != nil {
		return err
	}
	providers, err := store.List()
	if err != nil {
		return err
	}
	if len(providers) == 0 {
		fmt.Fprintln(app.Out, "No keys stored.")
		return nil
	}
	for _, p := range providers {
		key, _ := store.Get(p)
		fmt.Fprintf(app.Out, "%-8s  %s\n", p, keys.MaskKey(key))
	}
	return nil
}

func newInteractiveCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "interactive",
		Aliases: []string{"i", "repl"},
		Short:   "Start an interactive editing session",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd, args, app)
		},
	}

	cmd.Flags().BoolVar(&flagShow, "show", false, "display results in terminal (default: auto-detect)")
	cmd.Flags().StringVarP(&flagModel, "model", "m", "", "model to use (default from config)")
	cmd.Flags().StringVar(&flagAPIKey, "api-key", "", "API key (defaults to stored key or environment)")
	return cmd
}

func runInteractive(_ *cobra.Command, _ []string, app *App) error {
	ctx, cancel := signalContext()
	defer cancel()

	mgr, cleanup, err := app.openSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := app.attachEditor(ctx, mgr); err != nil {
		app.logger.Warn("editor unavailable", zap.Error(err))
		fmt.Fprintf(app.Err, "Warning: %v (generate is unavailable)\n", err)
	}

	var displayer *display.Displayer
	if flagShow || display.IsTerminalSupported() {
		displayer = app.NewDisplayer(app.Out)
	}

	r := repl.New(&repl.Config{
		In:         app.In,
		Out:        app.Out,
		Err:        app.Err,
		SessionMgr: mgr,
		Displayer:  displayer,
		Saver:      app.saver(),
	})
	return r.Run(ctx)
}
