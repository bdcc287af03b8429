package server

import (
	"bufio"
	"errors"
	"net"
	"strings"
	"sync/atomic"

	"github.com/cyberinferno/tilemud/internal/command"
	"github.com/cyberinferno/tilemud/internal/game"
	"github.com/cyberinferno/tilemud/internal/logger"
	"github.com/cyberinferno/tilemud/internal/nlp"
	"github.com/cyberinferno/tilemud/internal/transfer"
)

// Arrow-key tokens the client sends while the player is in map mode.
const (
	arrowUp    = "__UP__"
	arrowDown  = "__DOWN__"
	arrowLeft  = "__LEFT__"
	arrowRight = "__RIGHT__"
)

// Session is one client connection. Three goroutines serve it: a reader that
// turns the socket into lines, the event loop that owns all session state,
// and a writer that drains the outbound queue one message at a time. Only
// the event loop mutates the session; everyone else posts closures to it.
type Session struct {
	id     uint32
	conn   net.Conn
	server *Server
	log    logger.Logger

	lines    chan string
	events   chan func()
	outbound chan string
	done     chan struct{}
	closing  atomic.Bool

	player    atomic.Pointer[game.Player]
	transfers transferState

	// Event-loop-only state.
	mode     command.Mode
	quitting bool
}

func newSession(id uint32, conn net.Conn, server *Server) *Session {
	return &Session{
		id:     id,
		conn:   conn,
		server: server,
		log:    server.log.With(logger.Field{Key: "session", Value: id}),

		lines:    make(chan string, 16),
		events:   make(chan func(), 64),
		outbound: make(chan string, server.cfg.WriteQueueSize),
		done:     make(chan struct{}),
	}
}

func (s *Session) start() {
	go s.writeLoop()
	go s.readLoop()
	go s.run()
}

// readLoop turns the socket into a channel of lines. A trailing carriage
// return is stripped so telnet-style clients work. Hex data records are the
// longest lines on the wire, so the scanner buffer leaves them plenty of room.
func (s *Session) readLoop() {
	defer close(s.lines)

	scanner := bufio.NewScanner(s.conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024)
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		select {
		case s.lines <- line:
		case <-s.done:
			return
		}
	}
}

// writeLoop is the only goroutine that writes to the socket, so there is
// never more than one write in flight and messages leave in queue order.
// After done it drains what is already queued, then closes the connection,
// which also unblocks the reader.
func (s *Session) writeLoop() {
	defer s.conn.Close()

	for {
		select {
		case message := <-s.outbound:
			if !s.write(message) {
				return
			}
		case <-s.done:
			for {
				select {
				case message := <-s.outbound:
					if !s.write(message) {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (s *Session) write(message string) bool {
	if _, err := s.conn.Write([]byte(message + "\n")); err != nil {
		s.log.Debug("write failed", logger.Field{Key: "error", Value: err.Error()})
		return false
	}

	return true
}

// run is the session's event loop. Lines from the client and closures posted
// by workers or other sessions are interleaved here; nothing else touches
// session state.
func (s *Session) run() {
	s.Deliver(game.System("Welcome, adventurer! What shall we call you?"))

	for {
		select {
		case line, ok := <-s.lines:
			if !ok {
				s.Close("client disconnected")
				return
			}
			s.handleLine(strings.TrimSpace(line))
		case fn := <-s.events:
			fn()
		case <-s.done:
			return
		}

		if s.quitting {
			s.Close("player quit")
			return
		}
	}
}

// post hands a closure to the session's event loop. Posts to a session that
// is closing are silently discarded; posts that find the event queue full
// are dropped with a warning rather than blocking the caller.
func (s *Session) post(fn func()) {
	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.events <- fn:
	case <-s.done:
	default:
		s.log.Warn("event queue full, dropping event")
	}
}

// Deliver queues one message for the client without blocking. Messages to a
// closing session or past a full queue are dropped; chat traffic is not
// worth stalling the whole server for a slow reader.
func (s *Session) Deliver(message string) {
	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.outbound <- message:
	default:
		s.log.Warn("write queue full, dropping message")
	}
}

// Close tears the session down exactly once: releases the player name,
// aborts any transfer in flight, tells the world, and signals the reader and
// writer to exit. Safe to call from any goroutine.
func (s *Session) Close(reason string) {
	if !s.closing.CompareAndSwap(false, true) {
		return
	}

	if player := s.player.Load(); player != nil {
		name := player.Name()
		s.abortTransfer("", false)
		s.server.unregisterPlayer(name)
		s.server.Broadcast(game.Left(name+" has left the world."), player)
		player.SetDeliver(nil)
	}

	close(s.done)
	s.server.dropSession(s.id)
	s.log.Info("session closed", logger.Field{Key: "reason", Value: reason})
}

func (s *Session) handleLine(line string) {
	if s.player.Load() == nil {
		s.login(line)
		return
	}

	if line == "" {
		return
	}

	if transfer.IsTransferLine(line) {
		s.handleTransferRequest(line)
		return
	}

	if s.mode == command.ModeMap {
		if direction, ok := arrowCommand(line); ok {
			s.server.registry.Dispatch(s, direction, nil)
			player := s.player.Load()
			x, y := player.Position()
			s.Deliver(game.MapView(player.Room(), x, y))
			return
		}

		s.mode = command.ModeNormal
		s.Deliver(game.Info("Map mode disabled."))
	}

	if strings.HasPrefix(line, "/") {
		s.dispatchSlash(line)
		return
	}

	if s.mode == command.ModeChat {
		s.server.registry.Dispatch(s, "SAY", strings.Fields(line))
		return
	}

	s.classify(line)
}

// login claims the typed name. On failure the player is told why and
// prompted again; the session stays in the login state until a name sticks.
func (s *Session) login(name string) {
	player, err := s.server.registerPlayer(name, s)
	switch {
	case errors.Is(err, ErrInvalidName):
		s.Deliver(game.Error("Names start with a letter and use only letters, digits and underscores (24 max). Try again:"))
		return
	case errors.Is(err, ErrNameTaken):
		s.Deliver(game.Error("The name " + name + " is already taken. Try another:"))
		return
	case err != nil:
		s.Deliver(game.Error("Something went wrong. Try another name:"))
		s.log.Error("login failed", logger.Field{Key: "error", Value: err.Error()})
		return
	}

	room := s.server.SpawnRoom()
	player.SetLocation(room, room.Width()/2, room.Height()/2)
	player.SetDeliver(s.Deliver)
	s.player.Store(player)
	s.log = s.log.With(logger.Field{Key: "player", Value: name})
	s.log.Info("player logged in")

	s.Deliver(game.ClearScreen)
	s.Deliver(game.BoxedMessage("Welcome, "+name+"!",
		"Speak plainly and the world will try to understand you, or use slash commands like /say, /look and /map.", nil))
	s.server.Broadcast(game.Join(name+" has joined the world."), player)
	s.server.registry.Dispatch(s, "LOOK", nil)
}

func (s *Session) dispatchSlash(line string) {
	fields := strings.Fields(line[1:])
	if len(fields) == 0 {
		s.Deliver(game.Error("That isn't a command."))
		return
	}

	canonical := s.server.aliases.Canonical(fields[0])
	if canonical == "" {
		s.Deliver(game.Error("Unknown command /" + fields[0] + "."))
		return
	}

	s.server.registry.Dispatch(s, canonical, fields[1:])
}

// classify hands free-form text to the worker pool. The player's line is
// echoed back first, so there is visible feedback while the verdict is
// pending; the verdict re-enters this session through post, so a session
// that closed in the meantime simply never sees it.
func (s *Session) classify(line string) {
	s.Deliver(s.player.Load().Name() + ": " + line)

	err := s.server.pool.Submit(line, func(verdict nlp.ParsedCommand) {
		s.post(func() { s.applyVerdict(verdict) })
	})
	if errors.Is(err, nlp.ErrPoolBusy) {
		s.Deliver(game.Error("The world is too busy to listen right now. Try again in a moment."))
	} else if err != nil {
		s.Deliver(game.Error("The world cannot hear you right now."))
	}
}

func (s *Session) applyVerdict(verdict nlp.ParsedCommand) {
	if verdict.IsEmpty() {
		if len(verdict.Args) > 0 {
			s.Deliver(game.Info(verdict.Args[0]))
		} else {
			s.Deliver(game.Info("You're not sure how to do that."))
		}
		return
	}

	// The classifier is free to answer with an alias ("go", "l"); resolve
	// it like typed input and fall back to the raw name for anything the
	// table does not know.
	name := verdict.Command
	if canonical := s.server.aliases.Canonical(name); canonical != "" {
		name = canonical
	}
	s.server.registry.Dispatch(s, name, verdict.Args)
}

func arrowCommand(line string) (string, bool) {
	switch line {
	case arrowUp:
		return "NORTH", true
	case arrowDown:
		return "SOUTH", true
	case arrowLeft:
		return "WEST", true
	case arrowRight:
		return "EAST", true
	}

	return "", false
}

// Player implements command.Actor.
func (s *Session) Player() *game.Player { return s.player.Load() }

// World implements command.Actor.
func (s *Session) World() *game.World { return s.server.world }

// BroadcastToRoom implements command.Actor: the message goes to everyone
// else in the acting player's room.
func (s *Session) BroadcastToRoom(message string) {
	player := s.player.Load()
	s.server.BroadcastToRoom(message, player.Room(), player)
}

// Broadcast implements command.Actor: the message goes to every logged-in
// player, the actor included.
func (s *Session) Broadcast(message string) {
	s.server.Broadcast(message, nil)
}

// FindPlayer implements command.Actor.
func (s *Session) FindPlayer(name string) (*game.Player, bool) {
	return s.server.FindPlayer(name)
}

// Mode implements command.Actor.
func (s *Session) Mode() command.Mode { return s.mode }

// SetMode implements command.Actor.
func (s *Session) SetMode(mode command.Mode) { s.mode = mode }

// Quit implements command.Actor. The session closes after the current line
// finishes, so farewell messages still reach the wire.
func (s *Session) Quit() { s.quitting = true }
