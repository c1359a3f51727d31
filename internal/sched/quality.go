package sched

import "fmt"

// Quality is the user's binary assessment of recall.
type Quality int

const (
	Incorrect Quality = 1 // Failed to recall.
	Correct   Quality = 2 // Recalled.
)

var qualityNames = map[Quality]string{
	Incorrect: "Incorrect",
	Correct:   "Correct",
}

// IsValid reports whether q is a known quality value.
func (q Quality) IsValid() bool {
	return q == Incorrect || q == Correct
}

// String returns "Incorrect" or "Correct"; invalid values render as
// "Quality(n)".
func (q Quality) String() string {
	if name, ok := qualityNames[q]; ok {
		return name
	}
	return fmt.Sprintf("Quality(%d)", int(q))
}

// MarshalText implements encoding.TextMarshaler.
func (q Quality) MarshalText() ([]byte, error) {
	if !q.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQuality, int(q))
	}
	return []byte(qualityNames[q]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (q *Quality) UnmarshalText(text []byte) error {
	for v, name := range qualityNames {
		if name == string(text) {
			*q = v
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrInvalidQuality, text)
}
