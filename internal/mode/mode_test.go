package mode

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  Mode
	}{
		{"1920x1080", Mode{Width: 1920, Height: 1080}},
		{"3840x2160@120", Mode{Width: 3840, Height: 2160, RefreshRates: []uint32{120}}},
		{"1280x720@60/120", Mode{Width: 1280, Height: 720, RefreshRates: []uint32{60, 120}}},
		{"1280x720@120/60/120", Mode{Width: 1280, Height: 720, RefreshRates: []uint32{60, 120}}},
		{"1x1@1", Mode{Width: 1, Height: 1, RefreshRates: []uint32{1}}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	inputs := []string{
		"",
		"1920",
		"1920*1080",
		"x1080",
		"1920x",
		"abcx1080",
		"1920xabc",
		"0x1080",
		"1920x0",
		"1920x1080@",
		"1920x1080@60/",
		"1920x1080@/60",
		"1920x1080@60//120",
		"1920x1080@0",
		"1920x1080@sixty",
		"+1920x1080",
		"1920x1080@-60",
		"99999999999x1080",
		"1920x1080x60",
	}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			require.Error(t, err)
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, input, perr.Input)
		})
	}
}

func TestParseList_StopsAtFirstError(t *testing.T) {
	_, err := ParseList([]string{"1920x1080", "nope", "0x0"})
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "nope", perr.Input)

	modes, err := ParseList([]string{"1920x1080", "1280x720@60"})
	require.NoError(t, err)
	assert.Len(t, modes, 2)
}

func TestString_RoundTrip(t *testing.T) {
	for _, m := range []Mode{
		{Width: 1920, Height: 1080},
		{Width: 1920, Height: 1080, RefreshRates: []uint32{60}},
		{Width: 2560, Height: 1440, RefreshRates: []uint32{60, 120, 144}},
	} {
		text := m.String()
		parsed, err := Parse(text)
		require.NoError(t, err, text)
		assert.Equal(t, m, parsed, text)

		merged := Merge([]Mode{parsed})
		require.Len(t, merged, 1)
		assert.Equal(t, m.RefreshRates, merged[0].RefreshRates)
	}

	assert.Equal(t, "1280x720@60/120", Mode{Width: 1280, Height: 720, RefreshRates: []uint32{60, 120}}.String())
}

func TestEqual_IgnoresRateOrder(t *testing.T) {
	a := Mode{Width: 800, Height: 600, RefreshRates: []uint32{75, 60}}
	b := Mode{Width: 800, Height: 600, RefreshRates: []uint32{60, 75, 60}}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(Mode{Width: 800, Height: 600}))
	assert.False(t, a.Equal(Mode{Width: 600, Height: 800, RefreshRates: []uint32{60, 75}}))
}

func TestJSON_EmptyRates(t *testing.T) {
	data, err := json.Marshal(Mode{Width: 1920, Height: 1080})
	require.NoError(t, err)
	assert.JSONEq(t, `{"width":1920,"height":1080,"refresh_rates":[]}`, string(data))

	var m Mode
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Nil(t, m.RefreshRates)
	assert.Equal(t, Mode{Width: 1920, Height: 1080}, m)
}

func TestNotFoundErrors(t *testing.T) {
	var err error = &ModeNotFoundError{Width: 1, Height: 2}
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "mode 1x2 not found", err.Error())

	err = &RateNotFoundError{Width: 1920, Height: 1080, Missing: []uint32{75, 90}}
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "refresh rates 75Hz, 90Hz not found for mode 1920x1080", err.Error())
}
