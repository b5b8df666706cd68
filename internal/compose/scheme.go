package compose

import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/metriplectic/internal/field"
)

// Scheme is the closed set of split-step compositions.
type Scheme int

const (
	// JOnly is the exact conservative step J(dt).
	JOnly Scheme = iota
	// MOnly is the dissipative step M(dt).
	MOnly
	// JMJStrang is the symmetric composition J(dt/2)∘M(dt)∘J(dt/2).
	JMJStrang
)

// Schemes lists every scheme in declaration order.
func Schemes() []Scheme {
	return []Scheme{JOnly, MOnly, JMJStrang}
}

func (s Scheme) String() string {
	switch s {
	case JOnly:
		return "j_only"
	case MOnly:
		return "m_only"
	case JMJStrang:
		return "jmj"
	default:
		return fmt.Sprintf("scheme(%d)", int(s))
	}
}

// ParseScheme accepts the canonical tags ("j_only", "m_only", "jmj") and
// the Go constant names, case-insensitively.
func ParseScheme(tag string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "j_only", "jonly", "j":
		return JOnly, nil
	case "m_only", "monly", "m":
		return MOnly, nil
	case "jmj", "jmjstrang", "strang":
		return JMJStrang, nil
	default:
		return 0, fmt.Errorf("%q: %w", tag, field.ErrUnknownScheme)
	}
}

// Conservative reports whether the scheme is reversible (no M sub-step).
func (s Scheme) Conservative() bool {
	return s == JOnly
}

// MarshalText implements encoding.TextMarshaler.
func (s Scheme) MarshalText() ([]byte, error) {
	if !s.valid() {
		return nil, fmt.Errorf("%s: %w", s, field.ErrUnknownScheme)
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Scheme) UnmarshalText(text []byte) error {
	v, err := ParseScheme(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s Scheme) valid() bool {
	return s >= JOnly && s <= JMJStrang
}
