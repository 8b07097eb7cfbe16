package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/manash/cyberedit/internal/compare"
	"github.com/manash/cyberedit/internal/i18n"
	"github.com/manash/cyberedit/internal/security"
	"github.com/manash/cyberedit/internal/session"
	"github.com/manash/cyberedit/pkg/models"
)

var (
	flagYes      bool
	flagOriginal bool
	flagSplit    float64
	flagDragX    float64
	flagWidth    float64
)

var errRecordNotFound = errors.New("history record not found")

func newHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"hist"},
		Short:   "Manage past generations",
		Long: `Manage the local history of generations.

Examples:
  cyberedit history list
  cyberedit history show <id> --show
  cyberedit history export <id> edited.png
  cyberedit history delete <id>
  cyberedit history clear --yes`,
	}

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List past generations, most recent first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryList(cmd, args, app)
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryShow(cmd, args, app)
		},
	}
	showCmd.Flags().BoolVar(&flagShow, "show", false, "display the images in terminal")

	deleteCmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete one generation",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryDelete(cmd, args, app)
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all generations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryClear(cmd, args, app)
		},
	}
	clearCmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "skip the confirmation prompt")

	exportCmd := &cobra.Command{
		Use:   "export <id> <path>",
		Short: "Write a generated image to a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryExport(cmd, args, app)
		},
	}
	exportCmd.Flags().BoolVar(&flagOriginal, "original", false, "export the original image instead")

	cmd.AddCommand(listCmd, showCmd, deleteCmd, clearCmd, exportCmd)
	return cmd
}

func newCompareCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <id>",
		Short: "Render a before/after comparison of a generation",
		Long: `Render a before/after comparison of a generation into one PNG.

The left part of the image shows the original and the right part the edit.
The split is a percentage (--split), or a drag position inside a container
of the given width (--drag with --width).

Examples:
  cyberedit compare <id> -o compare.png
  cyberedit compare <id> --split 30 --show
  cyberedit compare <id> --drag 240 --width 800`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd, args, app)
		},
	}

	cmd.Flags().Float64Var(&flagSplit, "split", compare.DefaultPosition, "split position in percent (0-100)")
	cmd.Flags().Float64Var(&flagDragX, "drag", 0, "drag x coordinate inside the container")
	cmd.Flags().Float64Var(&flagWidth, "width", 0, "container width used with --drag")
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "output filename")
	cmd.Flags().BoolVar(&flagShow, "show", false, "display the comparison in terminal")
	cmd.MarkFlagsMutuallyExclusive("split", "drag")
	cmd.MarkFlagsRequiredTogether("drag", "width")

	return cmd
}

func runHistoryList(_ *cobra.Command, _ []string, app *App) error {
	mgr, cleanup, err := app.openSession(context.Background())
	if err != nil {
		return err
	}
	defer cleanup()

	locale := mgr.Snapshot().Locale
	records := mgr.History()
	if len(records) == 0 {
		fmt.Fprintln(app.Out, i18n.T(locale, i18n.NoHistory))
		return nil
	}

	fmt.Fprintf(app.Out, "%s (%d)\n", i18n.T(locale, i18n.History), len(records))
	fmt.Fprintf(app.Out, "%-36s  %-14s  %-5s  %-8s  %s\n", "ID", "Created", "Res", "Size", "Prompt")
	for _, rec := range records {
		fmt.Fprintf(app.Out, "%-36s  %-14s  %-5s  %-8s  %s\n",
			rec.ID,
			humanize.Time(rec.CreatedAt),
			rec.Quality,
			humanize.Bytes(uint64(len(rec.GeneratedImage.Data))),
			truncate(rec.Prompt, 48))
	}
	return nil
}

func runHistoryShow(_ *cobra.Command, args []string, app *App) error {
	mgr, cleanup, err := app.openSession(context.Background())
	if err != nil {
		return err
	}
	defer cleanup()

	rec, err := lookupRecord(mgr, args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(app.Out, "ID:         %s\n", rec.ID)
	fmt.Fprintf(app.Out, "Created:    %s (%s)\n", rec.CreatedAt.Format("2006-01-02 15:04:05"), humanize.Time(rec.CreatedAt))
	fmt.Fprintf(app.Out, "Quality:    %s\n", rec.Quality.Label())
	fmt.Fprintf(app.Out, "Original:   %s, %s\n", rec.OriginalImage.ContentType(), humanize.Bytes(uint64(len(rec.OriginalImage.Data))))
	fmt.Fprintf(app.Out, "Generated:  %s, %s\n", rec.GeneratedImage.ContentType(), humanize.Bytes(uint64(len(rec.GeneratedImage.Data))))
	fmt.Fprintf(app.Out, "Prompt:     %s\n", rec.Prompt)

	if flagShow {
		locale := mgr.Snapshot().Locale
		pair := models.ResultPair{Original: rec.OriginalImage, Generated: rec.GeneratedImage}
		if err := app.NewDisplayer(app.Out).ShowPair(pair, i18n.T(locale, i18n.Before), i18n.T(locale, i18n.After)); err != nil {
			fmt.Fprintf(app.Err, "Warning: failed to display image: %v\n", err)
		}
	}
	return nil
}

func runHistoryDelete(_ *cobra.Command, args []string, app *App) error {
	ctx := context.Background()
	mgr, cleanup, err := app.openSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := lookupRecord(mgr, args[0]); err != nil {
		return err
	}
	if err := mgr.DeleteHistoryRecord(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Deleted: %s\n", args[0])
	return nil
}

func runHistoryClear(_ *cobra.Command, _ []string, app *App) error {
	ctx := context.Background()
	mgr, cleanup, err := app.openSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	locale := mgr.Snapshot().Locale
	if !flagYes {
		if !app.IsTerminal(app.In) {
			return errors.New("refusing to clear history without confirmation: pass --yes")
		}
		if !app.confirm(i18n.T(locale, i18n.ConfirmClear)) {
			fmt.Fprintln(app.Out, i18n.T(locale, i18n.Cancel))
			return nil
		}
	}

	count := len(mgr.History())
	if err := mgr.ClearHistory(ctx); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Cleared %d record(s).\n", count)
	return nil
}

func runHistoryExport(_ *cobra.Command, args []string, app *App) error {
	mgr, cleanup, err := app.openSession(context.Background())
	if err != nil {
		return err
	}
	defer cleanup()

	rec, err := lookupRecord(mgr, args[0])
	if err != nil {
		return err
	}

	img := rec.GeneratedImage
	if flagOriginal {
		img = rec.OriginalImage
	}
	path, err := app.NewSaver().Save(img, args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "%s: %s\n", i18n.T(mgr.Snapshot().Locale, i18n.Saved), path)
	return nil
}

func runCompare(cmd *cobra.Command, args []string, app *App) error {
	mgr, cleanup, err := app.openSession(context.Background())
	if err != nil {
		return err
	}
	defer cleanup()

	rec, err := lookupRecord(mgr, args[0])
	if err != nil {
		return err
	}
	locale := mgr.Snapshot().Locale

	slider := compare.New(rec.ID+"/original", rec.ID+"/generated", i18n.T(locale, i18n.Before), i18n.T(locale, i18n.After))
	switch {
	case cmd.Flags().Changed("drag"):
		if flagWidth <= 0 {
			return fmt.Errorf("--width must be positive, got %g", flagWidth)
		}
		slider.SetBounds(compare.Bounds{Left: 0, Width: flagWidth})
		slider.BeginDrag(compare.FromPointer(flagDragX))
		slider.EndDrag()
	case cmd.Flags().Changed("split"):
		slider.SetBounds(compare.Bounds{Left: 0, Width: 100})
		slider.BeginDrag(compare.FromPointer(flagSplit))
		slider.EndDrag()
	}

	out, err := compare.Render(models.ResultPair{Original: rec.OriginalImage, Generated: rec.GeneratedImage}, slider.Position())
	if err != nil {
		return fmt.Errorf("failed to render comparison: %w", err)
	}

	saver := app.saver()
	path := flagOutput
	if path == "" {
		path = saver.Join("cyberedit-compare-" + security.SanitizeFilename(rec.ID) + ".png")
	}
	written, err := saver.Save(out, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "%s: %s (%s %.0f%% | %s %.0f%%)\n",
		i18n.T(locale, i18n.Saved), written,
		i18n.T(locale, i18n.Before), slider.Position(),
		i18n.T(locale, i18n.After), slider.BeforeClipInset())

	if flagShow {
		if err := app.NewDisplayer(app.Out).Show(out); err != nil {
			fmt.Fprintf(app.Err, "Warning: failed to display image: %v\n", err)
		}
	}
	return nil
}

func lookupRecord(mgr *session.Manager, id string) (session.HistoryRecord, error) {
	rec, ok := mgr.Record(id)
	if !ok {
		return session.HistoryRecord{}, fmt.Errorf("%w: %s", errRecordNotFound, id)
	}
	return rec, nil
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	for i, r := range runes {
		if r == '\n' {
			runes[i] = ' '
		}
	}
	if len(runes) <= maxLen {
		return string(runes)
	}
	return string(runes[:maxLen-3]) + "..."
}
