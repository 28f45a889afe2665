package mastery

import (
	"encoding"
	"encoding/json"
	"fmt"
)

// Mode is the pedagogical character of a learner's next practice session.
type Mode int

const (
	Remediation Mode = iota + 1 // at least one skill is actively struggled with
	Progression                 // a solid, undeferred skill is ready to advance
	Maintenance                 // nothing urgent, nothing ready
)

var (
	modeNames = [...]string{Remediation: "remediation", Progression: "progression", Maintenance: "maintenance"}
	modeByName = map[string]Mode{
		"remediation": Remediation,
		"progression": Progression,
		"maintenance": Maintenance,
	}
)

// Compile-time interface checks.
var (
	_ fmt.Stringer             = Mode(0)
	_ json.Marshaler           = Mode(0)
	_ json.Unmarshaler         = (*Mode)(nil)
	_ encoding.TextMarshaler   = Mode(0)
	_ encoding.TextUnmarshaler = (*Mode)(nil)
)

// IsValid reports whether m is a valid mode.
func (m Mode) IsValid() bool {
	return m >= Remediation && m <= Maintenance
}

// String returns the name of the mode ("remediation", "progression",
// "maintenance"). For invalid values it returns "Mode(n)".
func (m Mode) String() string {
	if m.IsValid() {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.IsValid() {
		return nil, fmt.Errorf("mastery: invalid mode: %d", int(m))
	}
	return []byte(modeNames[m]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	v, ok := modeByName[string(text)]
	if !ok {
		return fmt.Errorf("mastery: invalid mode: %q", text)
	}
	*m = v
	return nil
}

// MarshalJSON implements json.Marshaler. Mode serializes as a JSON string.
func (m Mode) MarshalJSON() ([]byte, error) {
	text, err := m.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler. Expects a JSON string.
func (m *Mode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("mastery: invalid mode: %s", data)
	}
	return m.UnmarshalText([]byte(s))
}
