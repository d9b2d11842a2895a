// Package display renders generated artifacts inline in terminals that speak
// the kitty graphics protocol. Unsupported terminals fall back to printing
// the artifact path.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/niadesignwork-svg/stagecraft/pkg/models"
)

type Displayer struct {
	out io.Writer
}

func New(out io.Writer) *Displayer {
	return &Displayer{out: out}
}

// Show renders one image artifact inline.
func (d *Displayer) Show(img *models.ImageArtifact) error {
	if img == nil || len(img.Data) == 0 {
		return fmt.Errorf("image has no data")
	}
	if err := encodeKitty(d.out, img.Data); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	fmt.Fprintln(d.out)
	return nil
}

// ShowFile renders the artifact stored at path.
func (d *Displayer) ShowFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}
	return d.Show(&models.ImageArtifact{Data: data})
}

// ShowCandidates renders a numbered candidate batch so the user can pick one.
func (d *Displayer) ShowCandidates(candidates []*models.ImageArtifact) error {
	for i, img := range candidates {
		fmt.Fprintf(d.out, "candidate %d:\n", i+1)
		if err := d.Show(img); err != nil {
			return fmt.Errorf("failed to display candidate %d: %w", i+1, err)
		}
	}
	return nil
}

// IsTerminalSupported reports whether the running terminal understands the
// kitty graphics protocol.
func IsTerminalSupported() bool {
	termProgram := strings.ToLower(os.Getenv("TERM_PROGRAM"))
	for _, prog := range []string{"kitty", "ghostty", "iterm.app", "wezterm"} {
		if termProgram == prog {
			return true
		}
	}

	if os.Getenv("KITTY_WINDOW_ID") != "" {
		return true
	}
	if os.Getenv("ITERM_SESSION_ID") != "" {
		return true
	}

	term := strings.ToLower(os.Getenv("TERM"))
	return strings.Contains(term, "kitty") || strings.Contains(term, "ghostty")
}
