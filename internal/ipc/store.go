package ipc

import (
	"fmt"
	"strconv"
	"strings"
)

// Store is the host-side registry. Apply, Delete and Clear must each take
// effect entirely or not at all, and must not interleave with each other.
type Store interface {
	Snapshot() ([]Monitor, error)
	Apply(monitors []Monitor) error
	Delete(ids []ID) error
	Clear() error
	Kind() string
	Close() error
}

// UnknownIDsError rejects a delete batch that names ids the registry does not
// hold.
type UnknownIDsError struct {
	IDs []ID
}

func (e *UnknownIDsError) Error() string {
	return "unknown monitor ids: " + FormatIDs(e.IDs)
}

// InvalidMonitorError rejects an apply batch containing a malformed monitor.
type InvalidMonitorError struct {
	ID     ID
	Reason string
}

func (e *InvalidMonitorError) Error() string {
	return fmt.Sprintf("invalid monitor %d: %s", e.ID, e.Reason)
}

// ValidateBatch checks an apply batch before it reaches a store: ids must be
// unique within the batch and every mode needs a non-zero resolution and
// non-zero refresh rates.
func ValidateBatch(monitors []Monitor) error {
	seen := make(map[ID]struct{}, len(monitors))
	for _, m := range monitors {
		if _, dup := seen[m.ID]; dup {
			return &InvalidMonitorError{ID: m.ID, Reason: "id appears more than once in batch"}
		}
		seen[m.ID] = struct{}{}
		for _, md := range m.Modes {
			if md.Width == 0 || md.Height == 0 {
				return &InvalidMonitorError{ID: m.ID, Reason: fmt.Sprintf("mode %s has a zero dimension", md)}
			}
			for _, rate := range md.RefreshRates {
				if rate == 0 {
					return &InvalidMonitorError{ID: m.ID, Reason: fmt.Sprintf("mode %s has a zero refresh rate", md)}
				}
			}
		}
	}
	return nil
}

// FormatIDs renders ids as a comma separated list.
func FormatIDs(ids []ID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, ", ")
}
