package mode

import "slices"

// Merge folds modes into at most one entry per resolution, unioning the refresh
// rates of entries that share a key. Resolutions keep first-seen order and rate
// sets come back sorted. Merge(Merge(x)) equals Merge(x).
func Merge(modes []Mode) []Mode {
	out := make([]Mode, 0, len(modes))
	index := make(map[Key]int, len(modes))

	for _, m := range modes {
		if i, ok := index[m.Key()]; ok {
			out[i].RefreshRates = append(out[i].RefreshRates, m.RefreshRates...)
			continue
		}
		index[m.Key()] = len(out)
		out = append(out, Mode{
			Width:        m.Width,
			Height:       m.Height,
			RefreshRates: slices.Clone(m.RefreshRates),
		})
	}

	for i := range out {
		out[i] = Normalize(out[i])
	}
	return out
}

// Remove returns the merged form of existing without target. A target without
// refresh rates drops the whole resolution; otherwise only the named rates are
// dropped, and the resolution goes with them once no rate is left. Every named
// rate must be present or nothing is removed. existing is not modified.
func Remove(existing []Mode, target Mode) ([]Mode, error) {
	merged := Merge(existing)
	idx := slices.IndexFunc(merged, func(m Mode) bool { return m.Key() == target.Key() })
	if idx < 0 {
		return nil, &ModeNotFoundError{Width: target.Width, Height: target.Height}
	}

	out := make([]Mode, 0, len(merged))
	out = append(out, merged[:idx]...)

	if len(target.RefreshRates) > 0 {
		entry := merged[idx]

		var missing []uint32
		for _, rate := range Normalize(target).RefreshRates {
			if !slices.Contains(entry.RefreshRates, rate) {
				missing = append(missing, rate)
			}
		}
		if len(missing) > 0 {
			return nil, &RateNotFoundError{Width: target.Width, Height: target.Height, Missing: missing}
		}

		entry.RefreshRates = slices.DeleteFunc(entry.RefreshRates, func(rate uint32) bool {
			return slices.Contains(target.RefreshRates, rate)
		})
		if len(entry.RefreshRates) > 0 {
			out = append(out, entry)
		}
	}

	return append(out, merged[idx+1:]...), nil
}
