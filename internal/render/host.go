package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/1broseidon/vdmctl/internal/ipc"
	"github.com/1broseidon/vdmctl/internal/x11"
)

// Displays prints the OS view of the displays.
func (p *Printer) Displays(displays []x11.Display) error {
	if p.json {
		if displays == nil {
			displays = []x11.Display{}
		}
		return p.writeJSON(displays)
	}
	if len(displays) == 0 {
		return p.linef("No displays found.")
	}

	var b strings.Builder
	b.WriteString(p.title.Render("Displays"))
	b.WriteByte('\n')
	for i, d := range displays {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("Output " + p.id.Render(d.Name))
		switch {
		case !d.Connected:
			b.WriteString(" " + p.dim.Render("(disconnected)"))
		case d.Active:
			fmt.Fprintf(&b, " %dx%d+%d+%d", d.Width, d.Height, d.X, d.Y)
			if d.Current != nil {
				b.WriteString(" " + p.dim.Render("@") + " " + p.rates(d.Current.RefreshRates) + "Hz")
			}
		default:
			b.WriteString(" " + p.warn.Render("(inactive)"))
		}
		b.WriteString(":\n")

		if len(d.Modes) == 0 {
			b.WriteString(p.dim.Render("-") + " " + p.warn.Render("No modes") + "\n")
			continue
		}
		for _, md := range d.Modes {
			fmt.Fprintf(&b, "%s %s @ %sHz\n", p.dim.Render("-"), md.Key(), p.rates(md.RefreshRates))
		}
	}
	_, err := io.WriteString(p.out, b.String())
	return err
}

// Status prints the reference host status.
func (p *Printer) Status(address string, status *ipc.StatusData) error {
	if p.json {
		return p.writeJSON(status)
	}
	uptime := time.Duration(status.UptimeSeconds) * time.Second
	return p.linef("Host %s is running (store: %s, monitors: %d, uptime: %s).",
		p.id.Render(address), status.Store, status.MonitorCount, uptime)
}
