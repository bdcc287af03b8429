// Package server accepts TCP connections and runs one Session per client.
// The server owns the shared registries: which sessions exist, which player
// names are taken, and where each player is. Everything a session does to
// another session goes through a posted closure, so each session's state is
// only ever touched by its own goroutine.
package server

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"sync"
	"sync/atomic"

	"github.com/cyberinferno/tilemud/internal/command"
	"github.com/cyberinferno/tilemud/internal/config"
	"github.com/cyberinferno/tilemud/internal/game"
	"github.com/cyberinferno/tilemud/internal/idgenerator"
	"github.com/cyberinferno/tilemud/internal/logger"
	"github.com/cyberinferno/tilemud/internal/nlp"
	"github.com/cyberinferno/tilemud/internal/safemap"
)

// ErrNameTaken is returned when a login name is already in use.
var ErrNameTaken = errors.New("player name is already taken")

// ErrInvalidName is returned for login names the wire format cannot carry.
var ErrInvalidName = errors.New("player name is invalid")

// ErrServerRunning is returned when Start is called twice.
var ErrServerRunning = errors.New("server is already running")

// Player names travel inside colon-delimited records, so the charset is
// strict.
var namePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,23}$`)

// Server listens for connections and tracks the live sessions and players.
type Server struct {
	cfg      config.Config
	log      logger.Logger
	world    *game.World
	registry *command.Registry
	aliases  *command.AliasTable
	pool     *nlp.Pool

	listener net.Listener
	running  atomic.Bool
	ids      *idgenerator.IdGenerator
	sessions *safemap.SafeMap[uint32, *Session]
	wg       sync.WaitGroup

	// mu guards the two name-keyed maps so that login name registration is
	// atomic across concurrent sessions.
	mu        sync.Mutex
	players   map[string]*game.Player
	byName    map[string]*Session
	spawnRoom *game.Room
}

// NewServer wires a server from its parts. The starting room and the alias
// table are validated here so misconfiguration fails at startup, not at the
// first login.
//
// Returns:
//   - The server, or an error when the configuration references a room or
//     command that does not exist
func NewServer(cfg config.Config, log logger.Logger, world *game.World,
	registry *command.Registry, aliases *command.AliasTable, pool *nlp.Pool) (*Server, error) {
	spawn := world.Room(cfg.StartingRoom)
	if spawn == nil {
		return nil, fmt.Errorf("starting room %q does not exist", cfg.StartingRoom)
	}

	if err := registry.ValidateAliases(aliases); err != nil {
		return nil, err
	}

	return &Server{
		cfg:       cfg,
		log:       log,
		world:     world,
		registry:  registry,
		aliases:   aliases,
		pool:      pool,
		ids:       idgenerator.NewIdGenerator(0),
		sessions:  safemap.NewSafeMap[uint32, *Session](),
		players:   make(map[string]*game.Player),
		byName:    make(map[string]*Session),
		spawnRoom: spawn,
	}, nil
}

// Start begins listening and accepting connections. It returns once the
// listener is bound; accepting happens on a background goroutine.
func (s *Server) Start() error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrServerRunning
	}

	listener, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		s.running.Store(false)
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddr, err)
	}
	s.listener = listener

	s.log.Info("server listening", logger.Field{Key: "addr", Value: listener.Addr().String()})

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Addr returns the bound listen address, useful when the configured port is 0.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for s.running.Load() {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.running.Load() {
				s.log.Error("accept failed", logger.Field{Key: "error", Value: err.Error()})
			}
			return
		}

		id := s.ids.Id()
		session := newSession(id, conn, s)
		s.sessions.Store(id, session)
		s.log.Info("connection accepted",
			logger.Field{Key: "session", Value: id},
			logger.Field{Key: "remote", Value: conn.RemoteAddr().String()})
		session.start()
	}
}

// Stop closes the listener and every live session, then waits for the accept
// loop to exit. Safe to call more than once.
func (s *Server) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}

	s.listener.Close()
	s.sessions.Range(func(_ uint32, session *Session) bool {
		session.Close("server shutting down")
		return true
	})
	s.wg.Wait()
	s.log.Info("server stopped")
}

// SessionCount returns the number of live sessions.
func (s *Server) SessionCount() int {
	return s.sessions.Len()
}

func (s *Server) dropSession(id uint32) {
	s.sessions.Delete(id)
}

// registerPlayer claims a login name. The check and the claim happen under
// one lock, so exactly one of any number of concurrent claims for the same
// name succeeds.
//
// Returns:
//   - The new player, ErrInvalidName for names the protocol cannot carry, or
//     ErrNameTaken when another session holds the name
func (s *Server) registerPlayer(name string, session *Session) (*game.Player, error) {
	if !namePattern.MatchString(name) {
		return nil, ErrInvalidName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.players[name]; taken {
		return nil, ErrNameTaken
	}

	player := game.NewPlayer(name)
	s.players[name] = player
	s.byName[name] = session
	return player, nil
}

// unregisterPlayer releases a login name. Releasing a name that is not held
// is a no-op, which makes session teardown idempotent.
func (s *Server) unregisterPlayer(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.players, name)
	delete(s.byName, name)
}

// FindPlayer resolves a logged-in player by exact name.
func (s *Server) FindPlayer(name string) (*game.Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	player, ok := s.players[name]
	return player, ok
}

// sessionFor resolves the session that owns a logged-in player.
func (s *Server) sessionFor(name string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.byName[name]
	return session, ok
}

// Broadcast queues a message for every logged-in player except exclude,
// which may be nil.
func (s *Server) Broadcast(message string, exclude *game.Player) {
	for _, player := range s.snapshotPlayers() {
		if player != exclude {
			player.Send(message)
		}
	}
}

// BroadcastToRoom queues a message for every logged-in player in the given
// room except exclude, which may be nil.
func (s *Server) BroadcastToRoom(message string, room *game.Room, exclude *game.Player) {
	for _, player := range s.snapshotPlayers() {
		if player != exclude && player.Room() == room {
			player.Send(message)
		}
	}
}

// snapshotPlayers copies the player list so delivery happens outside the
// registry lock.
func (s *Server) snapshotPlayers() []*game.Player {
	s.mu.Lock()
	defer s.mu.Unlock()

	players := make([]*game.Player, 0, len(s.players))
	for _, player := range s.players {
		players = append(players, player)
	}
	return players
}

// SpawnRoom returns the room new players start in.
func (s *Server) SpawnRoom() *game.Room {
	return s.spawnRoom
}
