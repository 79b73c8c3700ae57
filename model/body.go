package model

import (
	"fmt"
	"strings"
)

// Body identifies one of the simulated celestial bodies.
type Body int

const (
	Sun   Body = iota // central star; origin of the star-centred frame
	Earth
	Moon
)

var bodyNames = [...]string{
	Sun:   "sun",
	Earth: "earth",
	Moon:  "moon",
}

// Bodies returns every body in canonical order (star first).
func Bodies() []Body {
	return []Body{Sun, Earth, Moon}
}

// String returns the lower-case body name.
func (b Body) String() string {
	if b < 0 || int(b) >= len(bodyNames) {
		return fmt.Sprintf("body(%d)", int(b))
	}
	return bodyNames[b]
}

// Title returns the display name ("Sun", "Earth", "Moon").
func (b Body) Title() string {
	if !b.Valid() {
		return b.String()
	}
	s := bodyNames[b]
	return strings.ToUpper(s[:1]) + s[1:]
}

// Valid reports whether b is a known body.
func (b Body) Valid() bool {
	return b >= 0 && int(b) < len(bodyNames)
}

// ParseBody parses a case-insensitive body name.
func ParseBody(name string) (Body, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, bn := range bodyNames {
		if bn == n {
			return Body(i), nil
		}
	}
	return 0, fmt.Errorf("unknown body %q", name)
}
