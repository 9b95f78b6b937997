// Package mode parses display mode specifications and performs set algebra over
// collections of modes.
package mode

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Mode is a display resolution plus the set of refresh rates (Hz) it supports.
// Two modes with the same Width and Height share a key. An empty RefreshRates
// means the rates are unspecified.
type Mode struct {
	Width        uint32   `json:"width"`
	Height       uint32   `json:"height"`
	RefreshRates []uint32 `json:"refresh_rates"`
}

// Key identifies a mode by resolution.
type Key struct {
	Width  uint32
	Height uint32
}

// Key returns the resolution key of m.
func (m Mode) Key() Key {
	return Key{Width: m.Width, Height: m.Height}
}

func (k Key) String() string {
	return fmt.Sprintf("%dx%d", k.Width, k.Height)
}

// String renders the canonical text form, e.g. "1920x1080" or "1920x1080@60/120".
func (m Mode) String() string {
	var sb strings.Builder
	sb.WriteString(m.Key().String())
	for i, rate := range m.RefreshRates {
		if i == 0 {
			sb.WriteByte('@')
		} else {
			sb.WriteByte('/')
		}
		sb.WriteString(strconv.FormatUint(uint64(rate), 10))
	}
	return sb.String()
}

// MarshalJSON encodes unspecified refresh rates as an empty list rather than null.
func (m Mode) MarshalJSON() ([]byte, error) {
	type wire Mode
	w := wire(m)
	if w.RefreshRates == nil {
		w.RefreshRates = []uint32{}
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes an empty refresh rate list as nil.
func (m *Mode) UnmarshalJSON(data []byte) error {
	type wire Mode
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if len(w.RefreshRates) == 0 {
		w.RefreshRates = nil
	}
	*m = Mode(w)
	return nil
}

// Equal reports whether m and o have the same key and the same rate set.
func (m Mode) Equal(o Mode) bool {
	if m.Key() != o.Key() {
		return false
	}
	return slices.Equal(Normalize(m).RefreshRates, Normalize(o).RefreshRates)
}

// Normalize returns a copy of m whose refresh rates are sorted ascending with
// duplicates removed.
func Normalize(m Mode) Mode {
	out := Mode{Width: m.Width, Height: m.Height}
	if len(m.RefreshRates) == 0 {
		return out
	}
	rates := slices.Clone(m.RefreshRates)
	slices.Sort(rates)
	out.RefreshRates = slices.Compact(rates)
	return out
}

// ErrNotFound is matched by ModeNotFoundError and RateNotFoundError.
var ErrNotFound = errors.New("not found")

// ParseError reports a malformed mode specification.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid mode %q: %s", e.Input, e.Reason)
}

// ModeNotFoundError reports a resolution that is not present in a mode list.
type ModeNotFoundError struct {
	Width  uint32
	Height uint32
}

func (e *ModeNotFoundError) Error() string {
	return fmt.Sprintf("mode %dx%d not found", e.Width, e.Height)
}

func (e *ModeNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// RateNotFoundError reports refresh rates missing from an existing resolution.
type RateNotFoundError struct {
	Width   uint32
	Height  uint32
	Missing []uint32
}

func (e *RateNotFoundError) Error() string {
	rates := make([]string, len(e.Missing))
	for i, rate := range e.Missing {
		rates[i] = strconv.FormatUint(uint64(rate), 10) + "Hz"
	}
	noun := "refresh rate"
	if len(rates) > 1 {
		noun = "refresh rates"
	}
	return fmt.Sprintf("%s %s not found for mode %dx%d", noun, strings.Join(rates, ", "), e.Width, e.Height)
}

func (e *RateNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
