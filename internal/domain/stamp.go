package domain

import "time"

// stampKind tags the external representation a Stamp was built from.
type stampKind int

const (
	stampNone stampKind = iota
	stampISO
	stampMillis
	stampTime
)

// Stamp is an absolute timestamp in one of the representations external
// storage may hand back: an ISO-8601 string, epoch milliseconds, or a
// native instant. It is normalized once, at the boundary, via Instant;
// all comparisons happen on the canonical time.Time.
type Stamp struct {
	kind   stampKind
	iso    string
	millis int64
	t      time.Time
}

// StampFromISO wraps an ISO-8601 / RFC 3339 string.
func StampFromISO(s string) Stamp {
	return Stamp{kind: stampISO, iso: s}
}

// StampFromMillis wraps an epoch-milliseconds value.
func StampFromMillis(ms int64) Stamp {
	return Stamp{kind: stampMillis, millis: ms}
}

// StampFromTime wraps a native instant.
func StampFromTime(t time.Time) Stamp {
	return Stamp{kind: stampTime, t: t}
}

// IsZero reports whether the stamp carries no value at all.
func (s Stamp) IsZero() bool {
	return s.kind == stampNone
}

// Instant normalizes the stamp to a time.Time. ok is false when the
// stamp is empty or its string form does not parse; callers decide what
// an unusable stamp means (the due check treats it as due).
func (s Stamp) Instant() (time.Time, bool) {
	switch s.kind {
	case stampISO:
		t, err := time.Parse(time.RFC3339Nano, s.iso)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	case stampMillis:
		return time.UnixMilli(s.millis), true
	case stampTime:
		if s.t.IsZero() {
			return time.Time{}, false
		}
		return s.t, true
	default:
		return time.Time{}, false
	}
}

// ISO returns the canonical RFC 3339 form for persistence. Unusable
// stamps return their raw string form so storage never invents a date.
func (s Stamp) ISO() string {
	if t, ok := s.Instant(); ok {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return s.iso
}

// String implements fmt.Stringer for logs.
func (s Stamp) String() string {
	if t, ok := s.Instant(); ok {
		return t.UTC().Format(time.RFC3339)
	}
	return "invalid"
}
