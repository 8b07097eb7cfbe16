package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/manash/cyberedit/internal/display"
	"github.com/manash/cyberedit/internal/i18n"
	"github.com/manash/cyberedit/internal/image"
	"github.com/manash/cyberedit/internal/session"
	"github.com/manash/cyberedit/pkg/models"
)

type REPL struct {
	in         io.Reader
	out        io.Writer
	err        io.Writer
	scanner    *bufio.Scanner
	sessionMgr *session.Manager
	displayer  *display.Displayer
	saver      *image.Saver
	commands   map[string]Command
	running    bool

	upload     models.Image
	uploadPath string
	mode       models.PromptMode
}

type Config struct {
	In         io.Reader
	Out        io.Writer
	Err        io.Writer
	SessionMgr *session.Manager
	// Displayer is optional; generated images are only saved when nil.
	Displayer *display.Displayer
	Saver     *image.Saver
}

func New(cfg *Config) *REPL {
	saver := cfg.Saver
	if saver == nil {
		saver = image.NewSaver()
	}
	r := &REPL{
		in:         cfg.In,
		out:        cfg.Out,
		err:        cfg.Err,
		scanner:    bufio.NewScanner(cfg.In),
		sessionMgr: cfg.SessionMgr,
		displayer:  cfg.Displayer,
		saver:      saver,
		commands:   make(map[string]Command),
		mode:       models.PromptSingle,
	}
	r.scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	r.registerCommands()
	return r
}

func (r *REPL) Run(ctx context.Context) error {
	r.running = true
	r.printWelcome()

	for r.running {
		r.printPrompt()
		line, ok := r.readLine()
		if !ok {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := r.execute(ctx, line); err != nil {
			fmt.Fprintf(r.err, "Error: %v\n", err)
		}
	}

	return r.scanner.Err()
}

func (r *REPL) execute(ctx context.Context, line string) error {
	parts := parseCommand(line)
	if len(parts) == 0 {
		return nil
	}

	cmdName := strings.ToLower(parts[0])
	args := parts[1:]

	cmd, ok := r.commands[cmdName]
	if !ok {
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmdName)
	}

	return cmd.Execute(ctx, r, args)
}

func (r *REPL) Stop() {
	r.running = false
}

// readLine reads the next input line from the shared scanner, so commands
// can ask follow-up questions on the same input stream.
func (r *REPL) readLine() (string, bool) {
	if !r.scanner.Scan() {
		return "", false
	}
	return r.scanner.Text(), true
}

func (r *REPL) t(key i18n.Key) string {
	return i18n.T(r.sessionMgr.Snapshot().Locale, key)
}

func (r *REPL) printWelcome() {
	fmt.Fprintln(r.out, "cyberedit interactive mode")
	fmt.Fprintln(r.out, "Type 'help' for available commands, 'quit' to exit.")
	fmt.Fprintln(r.out)
}

func (r *REPL) printPrompt() {
	state := r.sessionMgr.Snapshot()
	badge := fmt.Sprintf("%d", state.RemainingTrialUses)
	if state.Licensed {
		badge = i18n.T(state.Locale, i18n.Licensed)
	}
	if r.upload.IsEmpty() {
		fmt.Fprintf(r.out, "cyberedit [%s|%s|%s]> ", r.mode, state.Quality, badge)
		return
	}
	fmt.Fprintf(r.out, "cyberedit [%s|%s|%s] (%s)> ", r.mode, state.Quality, badge, r.uploadPath)
}

func (r *REPL) statusLine(state session.State) string {
	if state.Licensed {
		return i18n.T(state.Locale, i18n.Licensed)
	}
	return fmt.Sprintf("%s: %d", i18n.T(state.Locale, i18n.TrialUsesRemaining), state.RemainingTrialUses)
}

func parseCommand(line string) []string {
	var parts []string
	var current strings.Builder
	inQuotes := false
	quoteChar := rune(0)

	for _, ch := range line {
		switch {
		case ch == '"' || ch == '\'':
			if inQuotes && ch == quoteChar {
				inQuotes = false
				quoteChar = 0
			} else if !inQuotes {
				inQuotes = true
				quoteChar = ch
			} else {
				current.WriteRune(ch)
			}
		case ch == ' ' && !inQuotes:
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(ch)
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}
