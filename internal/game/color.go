package game

// ANSI sequences for the message categories the server emits. Clients are
// plain terminals, so color is the only formatting channel available.
const (
	ansiReset     = "\x1b[0m"
	ansiWhite     = "\x1b[37m"
	ansiBoldWhite = "\x1b[1;37m"
	ansiYellow    = "\x1b[33m"

	ansiSay     = "\x1b[32m"
	ansiShout   = "\x1b[1;33m"
	ansiWhisper = "\x1b[1;35m"
	ansiSystem  = "\x1b[1;34m"
	ansiMove    = "\x1b[1;36m"
	ansiJoin    = "\x1b[32m"
	ansiLeft    = "\x1b[90m"
	ansiError   = "\x1b[1;91m"
	ansiEvent   = "\x1b[1;33m"
	ansiInfo    = "\x1b[1;33m"
	ansiPortal  = "\x1b[1;35m"
)

// ClearScreen clears the client terminal and homes the cursor.
const ClearScreen = "\033[2J\033[H"

// Colorize wraps msg in the given ANSI sequence.
func Colorize(color, msg string) string {
	return color + msg + ansiReset
}

// tag prefixes the message with a colored [Tag] marker, leaving the message
// body uncolored.
func tag(name, color, msg string) string {
	return color + "[" + name + "] " + ansiReset + msg
}

// tagColored prefixes the message with a [Tag] marker and colors the whole
// line.
func tagColored(name, color, msg string) string {
	return color + "[" + name + "] " + msg + ansiReset
}

// Say formats a room-scoped chat line.
func Say(msg string) string { return tag("Say", ansiSay, msg) }

// Shout formats a server-wide chat line.
func Shout(msg string) string { return tagColored("Shout", ansiShout, msg) }

// Whisper formats a private message line.
func Whisper(msg string) string { return tagColored("Whisper", ansiWhisper, msg) }

// System formats a server notice.
func System(msg string) string { return tag("System", ansiSystem, msg) }

// Info formats an informational hint.
func Info(msg string) string { return tag("Info", ansiInfo, msg) }

// Error formats an error notice.
func Error(msg string) string { return tag("Error", ansiError, msg) }

// Event formats a world event notice.
func Event(msg string) string { return tag("Event", ansiEvent, msg) }

// Move formats a movement notice.
func Move(msg string) string { return tag("Move", ansiMove, msg) }

// PortalMsg formats a portal description line.
func PortalMsg(msg string) string { return tag("Portal", ansiPortal, msg) }

// Join formats a player-joined broadcast.
func Join(msg string) string { return Colorize(ansiJoin, msg) }

// Left formats a player-left broadcast.
func Left(msg string) string { return Colorize(ansiLeft, msg) }
