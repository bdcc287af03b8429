package command

import (
	"fmt"
	"strings"

	"github.com/cyberinferno/tilemud/internal/game"
	"github.com/cyberinferno/tilemud/internal/logger"
)

// Mode is a session's input interpretation mode. Normal mode routes plain
// text through the classifier, chat mode treats it as room speech, and map
// mode turns arrow-key tokens into single-step moves.
type Mode int

const (
	ModeNormal Mode = iota
	ModeChat
	ModeMap
)

// String returns a human-readable mode name.
func (m Mode) String() string {
	switch m {
	case ModeChat:
		return "chat"
	case ModeMap:
		return "map"
	default:
		return "normal"
	}
}

// Actor is the surface a command handler acts on. Sessions implement it; all
// of its methods are called from the session's own goroutine, so handlers
// never need locking beyond what the world types provide.
type Actor interface {
	// Player returns the acting player.
	Player() *game.Player
	// World returns the shared world model.
	World() *game.World
	// Deliver queues a message for the acting player only.
	Deliver(message string)
	// BroadcastToRoom queues a message for every other player in the actor's room.
	BroadcastToRoom(message string)
	// Broadcast queues a message for every logged-in player, the actor included.
	Broadcast(message string)
	// FindPlayer resolves another logged-in player by exact name.
	FindPlayer(name string) (*game.Player, bool)
	// Mode returns the session's current input mode.
	Mode() Mode
	// SetMode switches the session's input mode.
	SetMode(mode Mode)
	// Quit asks the session to disconnect after pending output is flushed.
	Quit()
}

// Handler executes one canonical command for an actor.
type Handler func(actor Actor, args []string)

// Registry holds the canonical command handlers and dispatches parsed
// commands to them.
type Registry struct {
	handlers map[string]Handler
	log      logger.Logger
}

// NewRegistry creates a registry with the built-in handler set.
func NewRegistry(log logger.Logger) *Registry {
	r := &Registry{
		handlers: make(map[string]Handler),
		log:      log,
	}

	r.register("QUIT", handleQuit)
	r.register("LOOK", handleLook)
	r.register("NORTH", directionHandler(game.North))
	r.register("SOUTH", directionHandler(game.South))
	r.register("EAST", directionHandler(game.East))
	r.register("WEST", directionHandler(game.West))
	r.register("MOVE", handleMove)
	r.register("SAY", handleSay)
	r.register("SHOUT", handleShout)
	r.register("WHISPER", handleWhisper)
	r.register("CLEAR", handleClear)
	r.register("INTERACT", handleInteract)
	r.register("TALK", handleTalk)
	r.register("GET", handleGet)
	r.register("MAP", handleMap)
	r.register("CHAT", handleChat)

	return r
}

func (r *Registry) register(name string, h Handler) {
	r.handlers[name] = h
}

// Has reports whether a canonical command name has a handler.
func (r *Registry) Has(name string) bool {
	_, ok := r.handlers[strings.ToUpper(name)]
	return ok
}

// ValidateAliases checks that every canonical name the alias table mentions
// has a registered handler. Run once at startup so typos in the command file
// surface immediately instead of at dispatch time.
func (r *Registry) ValidateAliases(table *AliasTable) error {
	var missing []string
	for _, name := range table.Names() {
		if !r.Has(name) {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("alias table names commands with no handler: %s", strings.Join(missing, ", "))
	}

	return nil
}

// Dispatch executes one canonical command. Unknown commands tell the player
// rather than failing silently; the classifier is free to invent names the
// game does not implement.
//
// Parameters:
//   - actor: The session executing the command
//   - name: Canonical command name, case-insensitive
//   - args: Command arguments, already split
func (r *Registry) Dispatch(actor Actor, name string, args []string) {
	canonical := strings.ToUpper(name)
	handler, ok := r.handlers[canonical]
	if !ok {
		r.log.Debug("unimplemented command dispatched",
			logger.Field{Key: "command", Value: canonical},
			logger.Field{Key: "player", Value: actor.Player().Name()})
		actor.Deliver(game.Error(fmt.Sprintf("Command %s is not implemented.", canonical)))
		return
	}

	handler(actor, args)
}
