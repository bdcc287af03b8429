package game

import "strings"

// Direction is one of the four cardinal movement directions.
type Direction int

const (
	North Direction = iota
	South
	East
	West
)

// ParseDirection resolves a direction word case-insensitively.
func ParseDirection(word string) (Direction, bool) {
	switch strings.ToLower(word) {
	case "north":
		return North, true
	case "south":
		return South, true
	case "east":
		return East, true
	case "west":
		return West, true
	}

	return 0, false
}

// String returns the lowercase direction name.
func (d Direction) String() string {
	switch d {
	case North:
		return "north"
	case South:
		return "south"
	case East:
		return "east"
	case West:
		return "west"
	default:
		return "unknown"
	}
}

// Delta returns the per-step coordinate change for the direction. North
// decreases y because tile grids grow downward.
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case North:
		return 0, -1
	case South:
		return 0, 1
	case East:
		return 1, 0
	case West:
		return -1, 0
	default:
		return 0, 0
	}
}
