package repl

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/manash/cyberedit/internal/batch"
	"github.com/manash/cyberedit/internal/compare"
	"github.com/manash/cyberedit/internal/i18n"
	"github.com/manash/cyberedit/internal/image"
	"github.com/manash/cyberedit/internal/security"
	"github.com/manash/cyberedit/internal/session"
	"github.com/manash/cyberedit/pkg/models"
)

type Command interface {
	Name() string
	Aliases() []string
	Description() string
	Usage() string
	Execute(ctx context.Context, r *REPL, args []string) error
}

func allCommands() []Command {
	return []Command{
		&UploadCommand{},
		&ModeCommand{},
		&QualityCommand{},
		&GenerateCommand{},
		&HistoryCommand{},
		&DeleteCommand{},
		&ClearCommand{},
		&LicenseCommand{},
		&CompareCommand{},
		&LocaleCommand{},
		&StatusCommand{},
		&HelpCommand{},
		&QuitCommand{},
	}
}

func (r *REPL) registerCommands() {
	for _, cmd := range allCommands() {
		r.commands[cmd.Name()] = cmd
		for _, alias := range cmd.Aliases() {
			r.commands[alias] = cmd
		}
	}
}

// UploadCommand loads the photo to edit
type UploadCommand struct{}

func (c *UploadCommand) Name() string        { return "upload" }
func (c *UploadCommand) Aliases() []string   { return []string{"open", "o"} }
func (c *UploadCommand) Description() string { return "Load the image to edit" }
func (c *UploadCommand) Usage() string       { return "upload <path>" }

func (c *UploadCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	img, err := image.Load(args[0])
	if err != nil {
		return err
	}
	r.upload = img
	r.uploadPath = args[0]

	fmt.Fprintf(r.out, "Loaded %s (%s, %s)\n", args[0], img.ContentType(), humanize.Bytes(uint64(len(img.Data))))
	return nil
}

// ModeCommand switches between single and batch prompts
type ModeCommand struct{}

func (c *ModeCommand) Name() string        { return "mode" }
func (c *ModeCommand) Aliases() []string   { return []string{"m"} }
func (c *ModeCommand) Description() string { return "Show or set the prompt mode" }
func (c *ModeCommand) Usage() string       { return "mode [single|batch]" }

func (c *ModeCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		fmt.Fprintf(r.out, "%s: %s\n", c.label(r, r.mode), r.mode)
		return nil
	}

	mode, err := models.ParsePromptMode(args[0])
	if err != nil {
		return err
	}
	r.mode = mode
	fmt.Fprintf(r.out, "Mode set to: %s\n", c.label(r, mode))
	return nil
}

func (c *ModeCommand) label(r *REPL, mode models.PromptMode) string {
	if mode == models.PromptBatch {
		return r.t(i18n.BatchPrompt)
	}
	return r.t(i18n.SinglePrompt)
}

// QualityCommand selects the output quality tier
type QualityCommand struct{}

func (c *QualityCommand) Name() string        { return "quality" }
func (c *QualityCommand) Aliases() []string   { return []string{"res"} }
func (c *QualityCommand) Description() string { return "Show or set the output quality tier" }
func (c *QualityCommand) Usage() string       { return "quality [1080p|2K|4K|8K]" }

func (c *QualityCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		current := r.sessionMgr.Snapshot().Quality
		fmt.Fprintln(r.out, r.t(i18n.Resolution))
		for _, tier := range models.QualityTiers() {
			marker := " "
			if tier == current {
				marker = "*"
			}
			fmt.Fprintf(r.out, " %s %-5s %s\n", marker, tier, tier.Label())
		}
		return nil
	}

	tier, err := models.ParseQualityTier(args[0])
	if err != nil {
		return err
	}
	if err := r.sessionMgr.SetQuality(tier); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Quality set to: %s\n", tier.Label())
	return nil
}

// GenerateCommand submits the uploaded image with the prompt text
type GenerateCommand struct{}

func (c *GenerateCommand) Name() string        { return "generate" }
func (c *GenerateCommand) Aliases() []string   { return []string{"gen", "g"} }
func (c *GenerateCommand) Description() string { return "Edit the uploaded image with a prompt" }
func (c *GenerateCommand) Usage() string {
	return "generate <prompt>  (batch mode without a prompt reads lines until '.')"
}

func (c *GenerateCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if r.upload.IsEmpty() {
		return errors.New(r.t(i18n.NoImageUploaded))
	}

	text := strings.Join(args, " ")
	if text == "" && r.mode == models.PromptBatch {
		text = c.readBatch(r)
	}

	r.sessionMgr.Dismiss()
	fmt.Fprintln(r.out, r.t(i18n.Generating))
	results, err := r.sessionMgr.Submit(ctx, session.SubmitInput{
		Image:      r.upload,
		PromptText: text,
		Mode:       r.mode,
	})
	if err != nil {
		return c.explain(r, err)
	}

	prompts := batch.SplitPrompts(text, r.mode)
	paths, err := r.saver.SaveAll(results, prompts, "")
	for _, path := range paths {
		fmt.Fprintf(r.out, "%s: %s\n", r.t(i18n.Saved), path)
	}
	if err != nil {
		return err
	}

	if r.displayer != nil {
		for _, pair := range results {
			if err := r.displayer.ShowPair(pair, r.t(i18n.Before), r.t(i18n.After)); err != nil {
				fmt.Fprintf(r.err, "Warning: failed to display: %v\n", err)
			}
		}
	}

	fmt.Fprintln(r.out, r.statusLine(r.sessionMgr.Snapshot()))
	return nil
}

func (c *GenerateCommand) readBatch(r *REPL) string {
	fmt.Fprintln(r.out, "Enter one prompt per line, '.' to finish:")
	var lines []string
	for {
		line, ok := r.readLine()
		if !ok || strings.TrimSpace(line) == "." {
			break
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (c *GenerateCommand) explain(r *REPL, err error) error {
	var verr *session.ValidationError
	switch {
	case errors.As(err, &verr):
		return errors.New(r.t(i18n.MissingInput))
	case errors.Is(err, session.ErrQuotaExceeded):
		fmt.Fprintln(r.out, r.t(i18n.TrialExpired))
		fmt.Fprintln(r.out, "Run 'license <key>' to continue.")
		return nil
	}
	return err
}

// HistoryCommand lists past generations
type HistoryCommand struct{}

func (c *HistoryCommand) Name() string        { return "history" }
func (c *HistoryCommand) Aliases() []string   { return []string{"h", "hist"} }
func (c *HistoryCommand) Description() string { return "List past generations" }
func (c *HistoryCommand) Usage() string       { return "history" }

func (c *HistoryCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	records := r.sessionMgr.History()
	if len(records) == 0 {
		fmt.Fprintln(r.out, r.t(i18n.NoHistory))
		return nil
	}

	fmt.Fprintf(r.out, "%s (%d):\n", r.t(i18n.History), len(records))
	for _, rec := range records {
		fmt.Fprintf(r.out, "  %s  %-14s  %-5s  %s\n",
			rec.ID, humanize.Time(rec.CreatedAt), rec.Quality, truncate(rec.Prompt, 50))
	}
	return nil
}

// DeleteCommand removes one history record
type DeleteCommand struct{}

func (c *DeleteCommand) Name() string        { return "delete" }
func (c *DeleteCommand) Aliases() []string   { return []string{"rm", "del"} }
func (c *DeleteCommand) Description() string { return "Delete a history record" }
func (c *DeleteCommand) Usage() string       { return "delete <id>" }

func (c *DeleteCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	if _, ok := r.sessionMgr.Record(args[0]); !ok {
		return fmt.Errorf("history record not found: %s", args[0])
	}
	if err := r.sessionMgr.DeleteHistoryRecord(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Deleted: %s\n", args[0])
	return nil
}

// ClearCommand removes every history record after confirmation
type ClearCommand struct{}

func (c *ClearCommand) Name() string        { return "clear" }
func (c *ClearCommand) Aliases() []string   { return nil }
func (c *ClearCommand) Description() string { return "Clear all history" }
func (c *ClearCommand) Usage() string       { return "clear" }

func (c *ClearCommand) Execute(ctx context.Context, r *REPL, _ []string) error {
	fmt.Fprintf(r.out, "%s [y/N]: ", r.t(i18n.ConfirmClear))
	answer, _ := r.readLine()
	if !isYes(answer) {
		fmt.Fprintln(r.out, r.t(i18n.Cancel))
		return nil
	}
	if err := r.sessionMgr.ClearHistory(ctx); err != nil {
		return err
	}
	fmt.Fprintln(r.out, "History cleared.")
	return nil
}

// LicenseCommand activates the license key
type LicenseCommand struct{}

func (c *LicenseCommand) Name() string        { return "license" }
func (c *LicenseCommand) Aliases() []string   { return []string{"activate"} }
func (c *LicenseCommand) Description() string { return "Activate a license key" }
func (c *LicenseCommand) Usage() string       { return "license <key>" }

func (c *LicenseCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	done, err := r.sessionMgr.ActivateLicense(args[0])
	if errors.Is(err, session.ErrInvalidLicense) {
		return errors.New(r.t(i18n.InvalidLicense))
	}
	if err != nil {
		return err
	}

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	fmt.Fprintln(r.out, r.t(i18n.Activated))
	return nil
}

// CompareCommand renders a before/after comparison of a history record
type CompareCommand struct{}

func (c *CompareCommand) Name() string        { return "compare" }
func (c *CompareCommand) Aliases() []string   { return []string{"cmp", "show"} }
func (c *CompareCommand) Description() string { return "Render a before/after comparison" }
func (c *CompareCommand) Usage() string       { return "compare <id> [split 0-100] [output.png]" }

func (c *CompareCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) == 0 || len(args) > 3 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	rec, ok := r.sessionMgr.Record(args[0])
	if !ok {
		return fmt.Errorf("history record not found: %s", args[0])
	}

	slider := compare.New(rec.ID+"/original", rec.ID+"/generated", r.t(i18n.Before), r.t(i18n.After))
	if len(args) > 1 {
		split, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid split %q: %w", args[1], err)
		}
		slider.SetBounds(compare.Bounds{Left: 0, Width: 100})
		slider.BeginDrag(compare.FromPointer(split))
		slider.EndDrag()
	}

	out, err := compare.Render(models.ResultPair{Original: rec.OriginalImage, Generated: rec.GeneratedImage}, slider.Position())
	if err != nil {
		return fmt.Errorf("failed to render comparison: %w", err)
	}

	path := r.saver.Join("cyberedit-compare-" + security.SanitizeFilename(rec.ID) + ".png")
	if len(args) > 2 {
		path = args[2]
	}
	written, err := r.saver.Save(out, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "%s: %s (%.0f%%)\n", r.t(i18n.Saved), written, slider.Position())

	if r.displayer != nil {
		if err := r.displayer.Show(out); err != nil {
			fmt.Fprintf(r.err, "Warning: failed to display: %v\n", err)
		}
	}
	return nil
}

// LocaleCommand switches the interface language
type LocaleCommand struct{}

func (c *LocaleCommand) Name() string        { return "locale" }
func (c *LocaleCommand) Aliases() []string   { return []string{"lang"} }
func (c *LocaleCommand) Description() string { return "Show or set the interface language" }
func (c *LocaleCommand) Usage() string       { return "locale [EN|VI]" }

func (c *LocaleCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		fmt.Fprintf(r.out, "Locale: %s\n", r.sessionMgr.Snapshot().Locale)
		return nil
	}

	locale, err := models.ParseLocale(args[0])
	if err != nil {
		return err
	}
	if err := r.sessionMgr.SetLocale(ctx, locale); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Locale: %s\n", locale)
	return nil
}

// StatusCommand shows the trial counter and current selections
type StatusCommand struct{}

func (c *StatusCommand) Name() string        { return "status" }
func (c *StatusCommand) Aliases() []string   { return []string{"st"} }
func (c *StatusCommand) Description() string { return "Show trial, license and session status" }
func (c *StatusCommand) Usage() string       { return "status" }

func (c *StatusCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	state := r.sessionMgr.Snapshot()
	fmt.Fprintln(r.out, r.statusLine(state))
	fmt.Fprintf(r.out, "Quality: %s\n", state.Quality.Label())
	fmt.Fprintf(r.out, "Mode:    %s\n", r.mode)
	fmt.Fprintf(r.out, "Locale:  %s\n", state.Locale)
	fmt.Fprintf(r.out, "%s: %d\n", r.t(i18n.History), len(state.History))
	if state.Phase == session.PhaseFailed && state.Err != nil {
		fmt.Fprintf(r.out, "Last run: %s: %v\n", state.Phase, state.Err)
	} else {
		fmt.Fprintf(r.out, "Last run: %s\n", state.Phase)
	}
	if r.upload.IsEmpty() {
		fmt.Fprintln(r.out, r.t(i18n.NoImageUploaded))
	} else {
		fmt.Fprintf(r.out, "Image:   %s\n", r.uploadPath)
	}
	return nil
}

// HelpCommand shows available commands
type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Aliases() []string   { return []string{"?"} }
func (c *HelpCommand) Description() string { return "Show available commands" }
func (c *HelpCommand) Usage() string       { return "help" }

func (c *HelpCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	fmt.Fprintln(r.out, "Available commands:")
	fmt.Fprintln(r.out)

	for _, cmd := range allCommands() {
		aliases := ""
		if len(cmd.Aliases()) > 0 {
			aliases = fmt.Sprintf(" (%s)", strings.Join(cmd.Aliases(), ", "))
		}
		fmt.Fprintf(r.out, "  %-20s%s\n", cmd.Name()+aliases, cmd.Description())
		fmt.Fprintf(r.out, "                      Usage: %s\n", cmd.Usage())
	}

	return nil
}

// QuitCommand exits the REPL
type QuitCommand struct{}

func (c *QuitCommand) Name() string        { return "quit" }
func (c *QuitCommand) Aliases() []string   { return []string{"exit", "q"} }
func (c *QuitCommand) Description() string { return "Exit interactive mode" }
func (c *QuitCommand) Usage() string       { return "quit" }

func (c *QuitCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	fmt.Fprintln(r.out, "Goodbye!")
	r.Stop()
	return nil
}

func isYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
