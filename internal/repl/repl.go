// Package repl is the interactive shell over the studio controller. Commands
// mutate a concept buffer, fire generation batches, and browse the library.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/niadesignwork-svg/stagecraft/internal/artifact"
	"github.com/niadesignwork-svg/stagecraft/internal/display"
	"github.com/niadesignwork-svg/stagecraft/internal/library"
	"github.com/niadesignwork-svg/stagecraft/internal/studio"
	"github.com/niadesignwork-svg/stagecraft/pkg/models"
)

type REPL struct {
	in        io.Reader
	out       io.Writer
	err       io.Writer
	studio    *studio.Controller
	library   *library.Manager
	saver     *artifact.Saver
	displayer *display.Displayer

	// concept is the working configuration the next generate uses.
	concept models.StageConfig

	defaultCount int
	commands     map[string]Command
	running      bool
}

type Config struct {
	In           io.Reader
	Out          io.Writer
	Err          io.Writer
	Studio       *studio.Controller
	Library      *library.Manager
	Saver        *artifact.Saver
	Displayer    *display.Displayer
	DefaultCount int
}

func New(cfg *Config) *REPL {
	r := &REPL{
		in:           cfg.In,
		out:          cfg.Out,
		err:          cfg.Err,
		studio:       cfg.Studio,
		library:      cfg.Library,
		saver:        cfg.Saver,
		displayer:    cfg.Displayer,
		defaultCount: cfg.DefaultCount,
		commands:     make(map[string]Command),
	}
	if r.defaultCount < 1 {
		r.defaultCount = 1
	}
	r.registerCommands()
	return r
}

func (r *REPL) Run(ctx context.Context) error {
	r.running = true
	r.printWelcome()

	scanner := bufio.NewScanner(r.in)
	for r.running {
		r.printPrompt()
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if err := r.execute(ctx, line); err != nil {
			if isTaxonomy(err) {
				cat, advice := studio.Describe(err)
				fmt.Fprintf(r.err, "Error (%s): %v\n  %s\n", cat, err, advice)
			} else {
				fmt.Fprintf(r.err, "Error: %v\n", err)
			}
		}
	}

	return scanner.Err()
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

func (r *REPL) printWelcome() {
	fmt.Fprintln(r.out, "stagecraft interactive mode")
	fmt.Fprintln(r.out, "Type 'help' for available commands, 'quit' to exit.")
	fmt.Fprintln(r.out)
}

func (r *REPL) printPrompt() {
	v := r.studio.View()
	switch {
	case v.AwaitingSelection:
		fmt.Fprintf(r.out, "stagecraft (pick 1-%d)> ", v.CandidateCount)
	case v.ID != "":
		title := v.Title
		if title == "" {
			title = shortID(v.ID)
		}
		fmt.Fprintf(r.out, "stagecraft [%s]> ", title)
	default:
		fmt.Fprint(r.out, "stagecraft> ")
	}
}

// showView prints warnings and renders the current image when the terminal
// supports it.
func (r *REPL) showView(v *studio.View) {
	if v.Warning != "" {
		fmt.Fprintf(r.err, "Warning: %s\n", v.Warning)
	}
	if v.AwaitingSelection {
		fmt.Fprintf(r.out, "%d candidates ready. Use 'pick <n>' to choose one.\n", v.CandidateCount)
		if display.IsTerminalSupported() {
			if err := r.displayer.ShowCandidates(r.studio.Candidates()); err != nil {
				fmt.Fprintf(r.err, "Warning: failed to display: %v\n", err)
			}
		}
		return
	}
	if v.PrimaryImage != "" && display.IsTerminalSupported() {
		if err := r.displayer.ShowFile(v.PrimaryImage); err != nil {
			fmt.Fprintf(r.err, "Warning: failed to display: %v\n", err)
		}
	}
}

// isTaxonomy reports whether err belongs to the classified remote/storage
// failure set, as opposed to local usage mistakes.
func isTaxonomy(err error) bool {
	for _, sentinel := range []error{
		models.ErrRateLimited,
		models.ErrContentRejected,
		models.ErrUpstream,
		models.ErrNoArtifacts,
		models.ErrPersistenceFailed,
		models.ErrNotFound,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
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

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		tr := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				tr[i] = row[i]
			} else {
				tr[i] = ""
			}
		}
		tw.AppendRow(tr)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}
