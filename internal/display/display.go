// Package display renders images inline in terminals that speak the kitty
// graphics protocol.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manash/cyberedit/internal/image"
	"github.com/manash/cyberedit/pkg/models"
)

type Displayer struct {
	out     io.Writer
	columns int
}

func New(out io.Writer) *Displayer {
	return &Displayer{out: out}
}

// WithColumns limits rendered images to the given terminal width in cells.
func (d *Displayer) WithColumns(columns int) *Displayer {
	d.columns = columns
	return d
}

// Show writes img inline. Non-PNG content is converted first because the
// protocol only carries PNG.
func (d *Displayer) Show(img models.Image) error {
	if img.IsEmpty() {
		return fmt.Errorf("image has no data")
	}

	data := img.Data
	if img.ContentType() != models.FormatPNG.MIMEType() {
		decoded, err := image.Decode(img)
		if err != nil {
			return err
		}
		converted, err := image.EncodePNG(decoded)
		if err != nil {
			return err
		}
		data = converted.Data
	}

	enc := NewKittyEncoder(d.out)
	enc.Columns = d.columns
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}

	fmt.Fprintln(d.out)
	return nil
}

// ShowLabeled prints label on its own line followed by the image.
func (d *Displayer) ShowLabeled(label string, img models.Image) error {
	fmt.Fprintln(d.out, label)
	return d.Show(img)
}

// ShowPair renders an original and its edit one after the other.
func (d *Displayer) ShowPair(pair models.ResultPair, beforeLabel, afterLabel string) error {
	if err := d.ShowLabeled(beforeLabel, pair.Original); err != nil {
		return fmt.Errorf("failed to display original: %w", err)
	}
	if err := d.ShowLabeled(afterLabel, pair.Generated); err != nil {
		return fmt.Errorf("failed to display result: %w", err)
	}
	return nil
}

func IsTerminalSupported() bool {
	return terminalSupported(os.Getenv)
}

func terminalSupported(getenv func(string) string) bool {
	switch strings.ToLower(getenv("TERM_PROGRAM")) {
	case "kitty", "ghostty", "iterm.app", "wezterm":
		return true
	}

	if getenv("KITTY_WINDOW_ID") != "" || getenv("ITERM_SESSION_ID") != "" {
		return true
	}

	term := strings.ToLower(getenv("TERM"))
	return strings.Contains(term, "kitty") || strings.Contains(term, "ghostty")
}
