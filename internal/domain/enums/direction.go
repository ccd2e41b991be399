package enums

import (
	"fmt"
	"strings"
)

type Direction string

const (
	DirectionPass            Direction = "pass"
	DirectionInterested      Direction = "interested"
	DirectionSuperInterested Direction = "super_interested"
)

// ParseDirection accepts the canonical names and the gesture aliases
// used by clients (left, right, up).
func ParseDirection(value string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "pass", "left":
		return DirectionPass, nil
	case "interested", "right", "like":
		return DirectionInterested, nil
	case "super_interested", "superinterested", "super", "up":
		return DirectionSuperInterested, nil
	default:
		return "", fmt.Errorf("unknown swipe direction %q", value)
	}
}

func (d Direction) Positive() bool {
	return d == DirectionInterested || d == DirectionSuperInterested
}

func (d Direction) Super() bool {
	return d == DirectionSuperInterested
}
