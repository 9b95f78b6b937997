package mode

import (
	"strconv"
	"strings"
)

// Parse reads a mode in the form <width>x<height>[@<rate>[/<rate>...]].
// Rates are returned sorted with duplicates collapsed.
func Parse(s string) (Mode, error) {
	resolution, rates, hasRates := strings.Cut(s, "@")

	w, h, ok := strings.Cut(resolution, "x")
	if !ok {
		return Mode{}, &ParseError{Input: s, Reason: "expected <width>x<height>"}
	}

	width, err := parsePositive(w)
	if err != nil {
		return Mode{}, &ParseError{Input: s, Reason: "width " + err.Error()}
	}
	height, err := parsePositive(h)
	if err != nil {
		return Mode{}, &ParseError{Input: s, Reason: "height " + err.Error()}
	}

	m := Mode{Width: width, Height: height}
	if !hasRates {
		return m, nil
	}
	if rates == "" {
		return Mode{}, &ParseError{Input: s, Reason: "empty refresh rate list after '@'"}
	}

	for _, part := range strings.Split(rates, "/") {
		rate, err := parsePositive(part)
		if err != nil {
			return Mode{}, &ParseError{Input: s, Reason: "refresh rate " + err.Error()}
		}
		m.RefreshRates = append(m.RefreshRates, rate)
	}
	return Normalize(m), nil
}

// ParseList parses every argument and stops at the first malformed one.
func ParseList(args []string) ([]Mode, error) {
	modes := make([]Mode, 0, len(args))
	for _, arg := range args {
		m, err := Parse(arg)
		if err != nil {
			return nil, err
		}
		modes = append(modes, m)
	}
	return modes, nil
}

type valueError string

func (e valueError) Error() string { return string(e) }

func parsePositive(s string) (uint32, error) {
	if s == "" {
		return 0, valueError("is empty")
	}
	// ParseUint accepts a leading '+', the grammar does not.
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, valueError(strconv.Quote(s) + " is not a number")
		}
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, valueError(strconv.Quote(s) + " is out of range")
	}
	if v == 0 {
		return 0, valueError("must be greater than zero")
	}
	return uint32(v), nil
}
