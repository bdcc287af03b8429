package game

import (
	"strings"
)

// ContentSection is a titled list of lines inside a boxed message.
type ContentSection struct {
	Title string
	Items []string
}

const defaultBoxWidth = 70

// DisplayWidth returns the terminal column width of a string, counting
// runes outside ASCII as two columns (CJK text in names and descriptions).
func DisplayWidth(s string) int {
	width := 0
	for _, r := range s {
		if r >= 0x80 {
			width += 2
		} else {
			width++
		}
	}

	return width
}

// wrapText breaks text into lines no wider than maxWidth display columns,
// splitting on spaces.
func wrapText(text string, maxWidth int) []string {
	var lines []string
	var current string

	for _, word := range strings.Fields(text) {
		if current != "" && DisplayWidth(current)+DisplayWidth(word)+1 > maxWidth {
			lines = append(lines, current)
			current = word
			continue
		}

		if current != "" {
			current += " "
		}
		current += word
	}
	if current != "" {
		lines = append(lines, current)
	}

	return lines
}

// BoxedMessage renders a title, a wrapped description and optional content
// sections inside a box-drawing frame.
func BoxedMessage(title, description string, sections []ContentSection) string {
	var box strings.Builder
	width := defaultBoxWidth
	innerWidth := width - 4
	border := strings.Repeat("═", width-2)

	box.WriteString("╔" + border + "╗\n")

	titleWidth := DisplayWidth(title)
	padding := (innerWidth - titleWidth) / 2
	if padding < 0 {
		padding = 0
	}
	rest := innerWidth - titleWidth - padding
	if rest < 0 {
		rest = 0
	}
	box.WriteString("║ " + strings.Repeat(" ", padding) + Colorize(ansiBoldWhite, title) + strings.Repeat(" ", rest) + " ║\n")
	box.WriteString("╠" + border + "╣\n")

	for _, line := range wrapText(description, innerWidth) {
		box.WriteString("║ " + Colorize(ansiWhite, line) + pad(line, innerWidth) + " ║\n")
	}

	if len(sections) > 0 {
		box.WriteString("║ " + strings.Repeat(" ", innerWidth) + " ║\n")
		for _, section := range sections {
			if len(section.Items) == 0 {
				continue
			}

			box.WriteString("║ " + Colorize(ansiYellow, section.Title) + pad(section.Title, innerWidth) + " ║\n")
			for _, item := range section.Items {
				for _, line := range wrapText(item, innerWidth-2) {
					box.WriteString("║   " + line + pad(line, innerWidth-2) + " ║\n")
				}
			}
		}
	}

	box.WriteString("╚" + border + "╝")
	return box.String()
}

// MapView renders the room grid with the player marked @, portals #, tiles
// with objects * and empty tiles '.'.
func MapView(room *Room, playerX, playerY int) string {
	var view strings.Builder
	width := room.Width()*3 + 4
	title := room.Name() + " map"
	border := strings.Repeat("═", width-2)

	view.WriteString("╔" + border + "╗\n")
	titleWidth := DisplayWidth(title)
	padding := (width - 4 - titleWidth) / 2
	if padding < 0 {
		padding = 0
	}
	rest := width - 4 - titleWidth - padding
	if rest < 0 {
		rest = 0
	}
	view.WriteString("║ " + strings.Repeat(" ", padding) + Colorize(ansiBoldWhite, title) + strings.Repeat(" ", rest) + " ║\n")
	view.WriteString("╠" + border + "╣\n")

	for y := 0; y < room.Height(); y++ {
		view.WriteString("║ ")
		for x := 0; x < room.Width(); x++ {
			switch {
			case x == playerX && y == playerY:
				view.WriteString(Colorize(ansiBoldWhite, " @ "))
			case room.Tile(x, y).Portal != nil:
				view.WriteString(Colorize(ansiPortal, " # "))
			case len(room.Tile(x, y).Objects) > 0:
				view.WriteString(Colorize(ansiYellow, " * "))
			default:
				view.WriteString(" . ")
			}
		}
		view.WriteString(" ║\n")
	}

	view.WriteString("╚" + border + "╝")
	return view.String()
}

func pad(line string, width int) string {
	n := width - DisplayWidth(line)
	if n < 0 {
		return ""
	}

	return strings.Repeat(" ", n)
}

// RelativeDirection names the compass direction from (fromX, fromY) toward
// (toX, toY), e.g. "northeast". The same tile reports "underfoot".
func RelativeDirection(fromX, fromY, toX, toY int) string {
	var dir string
	if toY < fromY {
		dir += "north"
	} else if toY > fromY {
		dir += "south"
	}

	if toX < fromX {
		dir += "west"
	} else if toX > fromX {
		dir += "east"
	}

	if dir == "" {
		return "underfoot"
	}

	return dir
}
