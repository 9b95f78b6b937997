package x11

import (
	"fmt"
	"sort"

	"github.com/BurntSushi/xgb/randr"

	"github.com/1broseidon/vdmctl/internal/mode"
)

// Display is one RandR output as the OS sees it. Modes are folded into one
// entry per resolution, in the order the server advertises them.
type Display struct {
	Name      string      `json:"name"`
	Connected bool        `json:"connected"`
	Active    bool        `json:"active"`
	X         int         `json:"x"`
	Y         int         `json:"y"`
	Width     int         `json:"width"`
	Height    int         `json:"height"`
	Current   *mode.Mode  `json:"current,omitempty"`
	Modes     []mode.Mode `json:"modes"`
}

// Displays lists every RandR output, connected ones first, then by name.
func (c *Connection) Displays() ([]Display, error) {
	conn := c.XUtil.Conn()
	resources, err := randr.GetScreenResources(conn, c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	infos := make(map[randr.Mode]randr.ModeInfo, len(resources.Modes))
	for _, info := range resources.Modes {
		infos[randr.Mode(info.Id)] = info
	}

	var displays []Display
	for _, output := range resources.Outputs {
		outputInfo, err := randr.GetOutputInfo(conn, output, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}

		d := Display{
			Name:      string(outputInfo.Name),
			Connected: outputInfo.Connection == randr.ConnectionConnected,
			Modes:     foldModes(outputInfo.Modes, infos),
		}

		if outputInfo.Crtc != 0 {
			crtcInfo, err := randr.GetCrtcInfo(conn, outputInfo.Crtc, resources.ConfigTimestamp).Reply()
			if err == nil && crtcInfo.Width > 0 && crtcInfo.Height > 0 {
				d.Active = true
				d.X, d.Y = int(crtcInfo.X), int(crtcInfo.Y)
				d.Width, d.Height = int(crtcInfo.Width), int(crtcInfo.Height)
				if info, ok := infos[crtcInfo.Mode]; ok {
					current := modeOf(info)
					d.Current = &current
				}
			}
		}

		displays = append(displays, d)
	}

	sort.SliceStable(displays, func(i, j int) bool {
		if displays[i].Connected != displays[j].Connected {
			return displays[i].Connected
		}
		return displays[i].Name < displays[j].Name
	})
	return displays, nil
}

// foldModes resolves mode ids and merges entries sharing a resolution.
func foldModes(ids []randr.Mode, infos map[randr.Mode]randr.ModeInfo) []mode.Mode {
	modes := make([]mode.Mode, 0, len(ids))
	for _, id := range ids {
		info, ok := infos[id]
		if !ok || info.Width == 0 || info.Height == 0 {
			continue
		}
		modes = append(modes, modeOf(info))
	}
	return mode.Merge(modes)
}

func modeOf(info randr.ModeInfo) mode.Mode {
	m := mode.Mode{Width: uint32(info.Width), Height: uint32(info.Height)}
	if rate := refreshRate(info); rate > 0 {
		m.RefreshRates = []uint32{rate}
	}
	return mode.Normalize(m)
}

// refreshRate returns the vertical refresh rate rounded to whole Hz, or 0 when
// the timings are unknown.
func refreshRate(info randr.ModeInfo) uint32 {
	vtotal := uint64(info.Vtotal)
	if info.ModeFlags&randr.ModeFlagDoubleScan != 0 {
		vtotal *= 2
	}
	if info.ModeFlags&randr.ModeFlagInterlace != 0 {
		vtotal /= 2
	}
	frame := uint64(info.Htotal) * vtotal
	if frame == 0 || info.DotClock == 0 {
		return 0
	}
	return uint32((uint64(info.DotClock) + frame/2) / frame)
}
