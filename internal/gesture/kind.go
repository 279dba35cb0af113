// Package gesture turns landmark frames into discrete, debounced gesture events.
package gesture

import (
	"fmt"
	"time"
)

// Kind is one of the six recognized gestures.
type Kind int

const (
	OpenPalm Kind = iota
	ThumbsUp
	ThumbsDown
	SwipeLeft
	SwipeRight
	Pinch
	NumKinds
)

var kindNames = [NumKinds]string{
	"open_palm",
	"thumbs_up",
	"thumbs_down",
	"swipe_left",
	"swipe_right",
	"pinch",
}

// Kinds lists every gesture in calibration order.
var Kinds = [NumKinds]Kind{OpenPalm, ThumbsUp, ThumbsDown, SwipeLeft, SwipeRight, Pinch}

// String returns the snake_case name of the gesture.
func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Valid reports whether k is one of the six gestures.
func (k Kind) Valid() bool {
	return k >= 0 && k < NumKinds
}

// IsSwipe reports whether k is a trajectory gesture.
func (k Kind) IsSwipe() bool {
	return k == SwipeLeft || k == SwipeRight
}

// ParseKind converts a gesture name back to its Kind.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown gesture %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid gesture kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Event is a confirmed gesture.
type Event struct {
	Kind Kind      `json:"gesture"`
	Time time.Time `json:"time"`
}
