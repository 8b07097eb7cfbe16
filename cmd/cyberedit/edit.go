package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/manash/cyberedit/internal/batch"
	"github.com/manash/cyberedit/internal/i18n"
	"github.com/manash/cyberedit/internal/image"
	"github.com/manash/cyberedit/internal/session"
	"github.com/manash/cyberedit/pkg/models"
)

var (
	flagBatch   bool
	flagFile    string
	flagQuality string
	flagOutput  string
	flagShow    bool
)

func newEditCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <image> [prompt]",
		Short: "Edit a photo with one or more prompts",
		Long: `Edit a photo with a text prompt.

With --batch every non-empty line of the prompt is a separate edit. With
--file the prompts are read from a .txt file (one per line) or a .json file
([{"prompt": "..."}]). Edits run one at a time and stop at the first
failure.

Examples:
  cyberedit edit me.jpg "wearing a neon visor"
  cyberedit edit me.jpg --batch "$(printf 'rainy street\nrooftop at dusk')"
  cyberedit edit me.jpg --file prompts.json --quality 8K -o out/me.png`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd, args, app)
		},
	}

	cmd.Flags().BoolVar(&flagBatch, "batch", false, "treat each line of the prompt as a separate edit")
	cmd.Flags().StringVar(&flagFile, "file", "", "read batch prompts from a .txt or .json file")
	cmd.Flags().StringVarP(&flagQuality, "quality", "q", "", "output quality (1080p, 2K, 4K, 8K)")
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "output filename")
	cmd.Flags().BoolVar(&flagShow, "show", false, "display results in terminal (Kitty graphics protocol)")
	cmd.Flags().StringVarP(&flagModel, "model", "m", "", "model to use (default from config)")
	cmd.Flags().StringVar(&flagAPIKey, "api-key", "", "API key (defaults to stored key or environment)")

	return cmd
}

func runEdit(_ *cobra.Command, args []string, app *App) error {
	ctx, cancel := signalContext()
	defer cancel()

	in := session.SubmitInput{Mode: models.PromptSingle}
	if len(args) > 1 {
		in.PromptText = args[1]
	}
	if flagBatch {
		in.Mode = models.PromptBatch
	}
	if flagFile != "" {
		text, err := batch.ParseFile(flagFile)
		if err != nil {
			return err
		}
		in.PromptText = text
		in.Mode = models.PromptBatch
	}
	if flagQuality != "" {
		quality, err := models.ParseQualityTier(flagQuality)
		if err != nil {
			return err
		}
		in.Quality = quality
	}

	img, err := image.Load(args[0])
	if err != nil {
		return err
	}
	in.Image = img

	mgr, cleanup, err := app.openSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	locale := mgr.Snapshot().Locale

	// Reject invalid or over-quota submissions before resolving a key.
	if _, _, err := session.BeginSubmit(mgr.Snapshot(), in); err != nil {
		return explainSubmitError(err, locale)
	}
	if err := app.attachEditor(ctx, mgr); err != nil {
		return err
	}

	prompts := batch.SplitPrompts(in.PromptText, in.Mode)
	fmt.Fprintf(app.Out, "%s (%d)\n", i18n.T(locale, i18n.Generating), len(prompts))

	results, err := mgr.Submit(ctx, in)
	if err != nil {
		return explainSubmitError(err, locale)
	}

	paths, err := app.saver().SaveAll(results, prompts, flagOutput)
	for _, path := range paths {
		fmt.Fprintf(app.Out, "%s: %s\n", i18n.T(locale, i18n.Saved), path)
	}
	if err != nil {
		return err
	}

	if flagShow {
		displayer := app.NewDisplayer(app.Out)
		for _, pair := range results {
			if err := displayer.ShowPair(pair, i18n.T(locale, i18n.Before), i18n.T(locale, i18n.After)); err != nil {
				fmt.Fprintf(app.Err, "Warning: failed to display image: %v\n", err)
			}
		}
	}

	fmt.Fprintln(app.Out, statusLine(mgr.Snapshot()))
	return nil
}

func explainSubmitError(err error, locale models.Locale) error {
	var verr *session.ValidationError
	switch {
	case errors.As(err, &verr):
		return errors.New(i18n.T(locale, i18n.MissingInput))
	case errors.Is(err, session.ErrQuotaExceeded):
		return fmt.Errorf("%s (run 'cyberedit license <key>')", i18n.T(locale, i18n.TrialExpired))
	}
	return err
}
