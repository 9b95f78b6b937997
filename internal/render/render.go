// Package render prints command results for people (styled text) or for
// scripts (pretty JSON).
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/1broseidon/vdmctl/internal/commands"
	"github.com/1broseidon/vdmctl/internal/ipc"
	"github.com/1broseidon/vdmctl/internal/mode"
)

// Options selects the output format.
type Options struct {
	JSON  bool
	Color string // auto, always, never
}

// Printer writes results to one stream.
type Printer struct {
	out  io.Writer
	json bool

	title lipgloss.Style
	dim   lipgloss.Style
	id    lipgloss.Style
	rate  lipgloss.Style
	warn  lipgloss.Style
}

// NewPrinter returns a Printer writing to out.
func NewPrinter(out io.Writer, opts Options) *Printer {
	r := lipgloss.NewRenderer(out)
	r.SetColorProfile(colorProfile(out, opts.Color))

	return &Printer{
		out:   out,
		json:  opts.JSON,
		title: r.NewStyle().Underline(true),
		dim:   r.NewStyle().Faint(true),
		id:    r.NewStyle().Foreground(lipgloss.Color("2")),
		rate:  r.NewStyle().Foreground(lipgloss.Color("4")),
		warn:  r.NewStyle().Foreground(lipgloss.Color("1")),
	}
}

func colorProfile(out io.Writer, color string) termenv.Profile {
	switch color {
	case "always":
		return termenv.ANSI256
	case "never":
		return termenv.Ascii
	}
	if !IsTerminal(out) {
		return termenv.Ascii
	}
	// Honours NO_COLOR and CLICOLOR_FORCE.
	return termenv.NewOutput(out).EnvColorProfile()
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w any) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

// Result prints the outcome of a command.
func (p *Printer) Result(res commands.Result) error {
	if p.json {
		return p.writeJSON(jsonValue(res))
	}

	switch res := res.(type) {
	case commands.ListResult:
		return p.list(res.Monitors)
	case commands.AddResult:
		footnote := ""
		if res.Disabled {
			footnote = " " + p.warn.Render("(disabled)")
		}
		return p.linef("Added virtual monitor with ID %s%s.", p.idLabel(res.ID), footnote)
	case commands.RemoveModeResult:
		return p.linef("Removed mode %s from virtual monitor with ID %s.", p.rate.Render(res.Removed.String()), p.idLabel(res.ID))
	case commands.ModesResult:
		return p.linef("Added modes to virtual monitor with ID %s.", p.idLabel(res.ID))
	case commands.ToggleResult:
		verb, state := "Enabled", "enabled"
		if !res.Enabled {
			verb, state = "Disabled", "disabled"
		}
		footnote := ""
		if !res.Toggled {
			footnote = " (was already " + state + ")"
		}
		return p.linef("%s virtual monitor with ID %s%s.", verb, p.idLabel(res.Monitor.ID), footnote)
	case commands.RemoveResult:
		if len(res.IDs) == 1 {
			return p.linef("Removed virtual monitor.")
		}
		return p.linef("Removed %d virtual monitors.", len(res.IDs))
	case commands.RemoveAllResult:
		return p.linef("Removed all virtual monitors.")
	default:
		return fmt.Errorf("cannot render %T", res)
	}
}

// jsonValue picks the document written for res in JSON mode.
func jsonValue(res commands.Result) any {
	switch res := res.(type) {
	case commands.ListResult:
		if res.Monitors == nil {
			return []ipc.Monitor{}
		}
		return res.Monitors
	case commands.AddResult:
		return res.ID
	case commands.ModesResult:
		return nonNilModes(res.Modes)
	case commands.RemoveModeResult:
		return nonNilModes(res.Modes)
	case commands.ToggleResult:
		return struct {
			Monitor ipc.Monitor `json:"monitor"`
			Toggled bool        `json:"toggled"`
		}{res.Monitor, res.Toggled}
	case commands.RemoveResult:
		return res.IDs
	default:
		return nil
	}
}

func nonNilModes(modes []mode.Mode) []mode.Mode {
	if modes == nil {
		return []mode.Mode{}
	}
	return modes
}

func (p *Printer) list(monitors []ipc.Monitor) error {
	if len(monitors) == 0 {
		return p.linef("No virtual monitors found.")
	}

	var b strings.Builder
	b.WriteString(p.title.Render("Virtual monitors"))
	b.WriteByte('\n')
	for i, m := range monitors {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("Monitor " + p.idLabel(m.ID))
		if m.Name != "" {
			b.WriteString(" " + p.dim.Render("[") + m.Name + p.dim.Render("]"))
		}
		if !m.Enabled {
			b.WriteString(" " + p.warn.Render("(disabled)"))
		}
		b.WriteString(":\n")

		if len(m.Modes) == 0 {
			b.WriteString(p.dim.Render("-") + " " + p.warn.Render("No modes") + "\n")
			continue
		}
		for idx, md := range m.Modes {
			fmt.Fprintf(&b, "%s Mode %d: %sx%s @ %sHz\n",
				p.dim.Render("-"), idx,
				p.id.Render(strconv.FormatUint(uint64(md.Width), 10)),
				p.id.Render(strconv.FormatUint(uint64(md.Height), 10)),
				p.rates(md.RefreshRates))
		}
	}
	_, err := io.WriteString(p.out, b.String())
	return err
}

func (p *Printer) rates(rates []uint32) string {
	if len(rates) == 0 {
		return p.warn.Render("?")
	}
	labels := make([]string, len(rates))
	for i, rate := range rates {
		labels[i] = p.rate.Render(strconv.FormatUint(uint64(rate), 10))
	}
	return strings.Join(labels, "/")
}

func (p *Printer) idLabel(id ipc.ID) string {
	return p.id.Render(strconv.FormatUint(uint64(id), 10))
}

func (p *Printer) linef(format string, args ...any) error {
	_, err := fmt.Fprintf(p.out, format+"\n", args...)
	return err
}

func (p *Printer) writeJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = p.out.Write(append(data, '\n'))
	return err
}
