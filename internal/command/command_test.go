package command

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberinferno/tilemud/internal/game"
	"github.com/cyberinferno/tilemud/internal/logger"
)

// fakeActor records everything a handler does to it.
type fakeActor struct {
	player    *game.Player
	world     *game.World
	delivered []string
	roomCasts []string
	allCasts  []string
	others    map[string]*game.Player
	mode      Mode
	quit      bool
}

func (a *fakeActor) Player() *game.Player          { return a.player }
func (a *fakeActor) World() *game.World            { return a.world }
func (a *fakeActor) Deliver(msg string)            { a.delivered = append(a.delivered, msg) }
func (a *fakeActor) BroadcastToRoom(msg string)    { a.roomCasts = append(a.roomCasts, msg) }
func (a *fakeActor) Broadcast(msg string)          { a.allCasts = append(a.allCasts, msg) }
func (a *fakeActor) Mode() Mode                    { return a.mode }
func (a *fakeActor) SetMode(m Mode)                { a.mode = m }
func (a *fakeActor) Quit()                         { a.quit = true }
func (a *fakeActor) FindPlayer(name string) (*game.Player, bool) {
	p, ok := a.others[name]
	return p, ok
}

func (a *fakeActor) lastDelivered() string {
	if len(a.delivered) == 0 {
		return ""
	}
	return a.delivered[len(a.delivered)-1]
}

// testWorld builds a 5x5 town with a wall, a coin, an old man and a portal
// to a second room.
func testWorld(t *testing.T) *game.World {
	t.Helper()

	world := game.NewWorld()

	town := game.NewRoom("town", "Town Square", "The bustling heart of town.", 5, 5)
	town.AddObject(3, 2, game.Object{Type: game.ObjectTypeWall, Name: "wall", Description: "A stone wall."})
	town.AddObject(1, 2, game.Object{Type: game.ObjectTypeItem, Name: "coin", ItemID: "coin",
		IsInteractable: true, Description: "A dull copper coin."})
	town.AddObject(2, 1, game.Object{Type: game.ObjectTypeNpc, Name: "old man",
		IsInteractable: true, Description: "An old man leans on his cane."})
	town.AddPortal(game.Portal{X: 4, Y: 4, TargetMap: "forest", TargetX: 0, TargetY: 0,
		Description: "A shimmering portal."})
	world.AddRoom("town", town)

	forest := game.NewRoom("forest", "Dark Forest", "Trees crowd in on every side.", 3, 3)
	world.AddRoom("forest", forest)
	town.Link("north", forest)

	world.Items().Add(game.Item{ID: "coin", Name: "coin", Description: "A dull copper coin.", Type: "currency"})
	world.Items().Add(game.Item{ID: "map_town", Name: "town map", Type: "map"})
	world.Npcs().Add(game.Npc{ID: 1, Name: "old man", Dialogue: game.Dialogue{Default: "Hello, traveler."}})

	return world
}

func newActor(t *testing.T, x, y int) *fakeActor {
	t.Helper()

	world := testWorld(t)
	player := game.NewPlayer("Alice")
	player.SetLocation(world.Room("town"), x, y)

	return &fakeActor{
		player: player,
		world:  world,
		others: make(map[string]*game.Player),
	}
}

func joined(msgs []string) string { return strings.Join(msgs, "\n") }

func TestRegistry_Dispatch(t *testing.T) {
	registry := NewRegistry(logger.NewNopLogger())

	t.Run("unknown command tells the player", func(t *testing.T) {
		actor := newActor(t, 2, 2)
		registry.Dispatch(actor, "ATTACK", []string{"enemy"})
		assert.Contains(t, actor.lastDelivered(), "Command ATTACK is not implemented.")
	})

	t.Run("dispatch is case-insensitive", func(t *testing.T) {
		actor := newActor(t, 2, 2)
		registry.Dispatch(actor, "clear", nil)
		assert.Equal(t, game.ClearScreen, actor.lastDelivered())
	})
}

func TestMovement(t *testing.T) {
	registry := NewRegistry(logger.NewNopLogger())

	t.Run("single step", func(t *testing.T) {
		actor := newActor(t, 2, 2)
		registry.Dispatch(actor, "NORTH", nil)
		x, y := actor.player.Position()
		assert.Equal(t, 2, x)
		assert.Equal(t, 1, y)
		assert.Contains(t, joined(actor.delivered), "1 step north")
	})

	t.Run("multi step stops at the wall", func(t *testing.T) {
		actor := newActor(t, 0, 2)
		// Wall at (3,2): three steps east from x=0 would land on it, so the
		// walk stops at x=2.
		registry.Dispatch(actor, "EAST", []string{"4"})
		x, _ := actor.player.Position()
		assert.Equal(t, 2, x)
	})

	t.Run("blocked immediately", func(t *testing.T) {
		actor := newActor(t, 0, 0)
		registry.Dispatch(actor, "WEST", nil)
		x, y := actor.player.Position()
		assert.Equal(t, 0, x)
		assert.Equal(t, 0, y)
		assert.Contains(t, actor.lastDelivered(), "can't move west")
	})

	t.Run("move with direction and amount", func(t *testing.T) {
		actor := newActor(t, 2, 4)
		registry.Dispatch(actor, "MOVE", []string{"NORTH", "2"})
		_, y := actor.player.Position()
		assert.Equal(t, 2, y)
	})

	t.Run("move with coordinates", func(t *testing.T) {
		actor := newActor(t, 0, 0)
		registry.Dispatch(actor, "MOVE", []string{"1", "2"})
		x, y := actor.player.Position()
		assert.Equal(t, 1, x)
		assert.Equal(t, 2, y)
		// The coin shares the tile and is announced.
		assert.Contains(t, joined(actor.delivered), "coin")
	})

	t.Run("move to blocked coordinates refused", func(t *testing.T) {
		actor := newActor(t, 0, 0)
		registry.Dispatch(actor, "MOVE", []string{"3", "2"})
		x, y := actor.player.Position()
		assert.Equal(t, 0, x)
		assert.Equal(t, 0, y)
	})

	t.Run("bare move asks for a destination", func(t *testing.T) {
		actor := newActor(t, 0, 0)
		registry.Dispatch(actor, "MOVE", nil)
		assert.Contains(t, actor.lastDelivered(), "Where would you like to move?")
	})

	t.Run("bad step count refused", func(t *testing.T) {
		actor := newActor(t, 2, 2)
		registry.Dispatch(actor, "NORTH", []string{"lots"})
		assert.Contains(t, actor.lastDelivered(), "not a step count")
	})
}

func TestChatCommands(t *testing.T) {
	registry := NewRegistry(logger.NewNopLogger())

	t.Run("say echoes and casts to the room", func(t *testing.T) {
		actor := newActor(t, 2, 2)
		registry.Dispatch(actor, "SAY", []string{"hello", "there"})
		assert.Contains(t, joined(actor.delivered), "You say: hello there")
		require.Len(t, actor.roomCasts, 1)
		assert.Contains(t, actor.roomCasts[0], "Alice: hello there")
		assert.Empty(t, actor.allCasts)
	})

	t.Run("shout casts to everyone", func(t *testing.T) {
		actor := newActor(t, 2, 2)
		registry.Dispatch(actor, "SHOUT", []string{"hear", "me"})
		require.Len(t, actor.allCasts, 1)
		assert.Contains(t, actor.allCasts[0], "Alice: hear me")
		assert.Empty(t, actor.roomCasts)
	})

	t.Run("whisper reaches only the target", func(t *testing.T) {
		actor := newActor(t, 2, 2)
		bob := game.NewPlayer("Bob")
		var bobGot []string
		bob.SetDeliver(func(msg string) { bobGot = append(bobGot, msg) })
		actor.others["Bob"] = bob

		registry.Dispatch(actor, "WHISPER", []string{"Bob", "psst"})
		require.Len(t, bobGot, 1)
		assert.Contains(t, bobGot[0], "Alice whispers: psst")
		assert.Contains(t, actor.lastDelivered(), "You whisper to Bob: psst")
	})

	t.Run("whisper to a missing player", func(t *testing.T) {
		actor := newActor(t, 2, 2)
		registry.Dispatch(actor, "WHISPER", []string{"Ghost", "hello"})
		assert.Contains(t, actor.lastDelivered(), "no one called Ghost")
	})

	t.Run("chat toggles mode", func(t *testing.T) {
		actor := newActor(t, 2, 2)
		registry.Dispatch(actor, "CHAT", nil)
		assert.Equal(t, ModeChat, actor.mode)
		registry.Dispatch(actor, "CHAT", nil)
		assert.Equal(t, ModeNormal, actor.mode)
	})
}

func TestWorldCommands(t *testing.T) {
	registry := NewRegistry(logger.NewNopLogger())

	t.Run("look shows nearby objects with directions", func(t *testing.T) {
		actor := newActor(t, 2, 2)
		registry.Dispatch(actor, "LOOK", nil)
		out := joined(actor.delivered)
		assert.Contains(t, out, "Town Square")
		assert.Contains(t, out, "old man (north)")
		assert.Contains(t, out, "coin (west)")
		assert.Contains(t, out, "north")
	})

	t.Run("get picks up the coin", func(t *testing.T) {
		actor := newActor(t, 1, 2)
		registry.Dispatch(actor, "GET", nil)
		assert.Contains(t, actor.lastDelivered(), "picked up the coin")
		assert.True(t, actor.player.HasItem("coin"))

		// The tile is empty now; a second GET finds nothing.
		registry.Dispatch(actor, "GET", nil)
		assert.Contains(t, actor.lastDelivered(), "nothing here to pick up")
	})

	t.Run("talk uses npc dialogue", func(t *testing.T) {
		actor := newActor(t, 2, 2)
		registry.Dispatch(actor, "TALK", nil)
		assert.Contains(t, actor.lastDelivered(), "old man says: Hello, traveler.")
	})

	t.Run("talk to a named absentee", func(t *testing.T) {
		actor := newActor(t, 2, 2)
		registry.Dispatch(actor, "TALK", []string{"dragon"})
		assert.Contains(t, actor.lastDelivered(), "no dragon nearby")
	})

	t.Run("interact with an object", func(t *testing.T) {
		actor := newActor(t, 2, 1)
		registry.Dispatch(actor, "INTERACT", nil)
		assert.Contains(t, actor.lastDelivered(), "leans on his cane")
	})

	t.Run("interact with a portal travels", func(t *testing.T) {
		actor := newActor(t, 4, 4)
		registry.Dispatch(actor, "INTERACT", nil)
		assert.Equal(t, "forest", actor.player.Room().ID())
		x, y := actor.player.Position()
		assert.Equal(t, 0, x)
		assert.Equal(t, 0, y)
		// Departure and arrival are announced around the move.
		require.Len(t, actor.roomCasts, 2)
		assert.Contains(t, actor.roomCasts[0], "vanishes through a portal")
		assert.Contains(t, actor.roomCasts[1], "appears out of thin air")
		// The arrival room is described.
		assert.Contains(t, joined(actor.delivered), "Dark Forest")
	})

	t.Run("interact with nothing", func(t *testing.T) {
		actor := newActor(t, 0, 4)
		registry.Dispatch(actor, "INTERACT", nil)
		assert.Contains(t, actor.lastDelivered(), "nothing to interact with")
	})

	t.Run("map needs the map item", func(t *testing.T) {
		actor := newActor(t, 2, 2)
		registry.Dispatch(actor, "MAP", nil)
		assert.Contains(t, actor.lastDelivered(), "don't have a map")
		assert.Equal(t, ModeNormal, actor.mode)

		actor.player.AddItem(game.Item{ID: "map_town", Name: "town map"})
		registry.Dispatch(actor, "MAP", nil)
		assert.Equal(t, ModeMap, actor.mode)
		assert.Contains(t, joined(actor.delivered), "@")
	})

	t.Run("quit says goodbye and asks for disconnect", func(t *testing.T) {
		actor := newActor(t, 2, 2)
		registry.Dispatch(actor, "QUIT", nil)
		assert.True(t, actor.quit)
		assert.Contains(t, actor.lastDelivered(), "Goodbye")
	})
}

func TestAliasTable(t *testing.T) {
	writeAliases := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "commands.json")
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		return path
	}

	t.Run("aliases resolve case-insensitively", func(t *testing.T) {
		path := writeAliases(t, `{"commands": [
			{"name": "LOOK", "aliases": ["l", "look"]},
			{"name": "NORTH", "aliases": ["n"]}
		]}`)

		table, err := LoadAliases(path)
		require.NoError(t, err)
		assert.Equal(t, "LOOK", table.Canonical("L"))
		assert.Equal(t, "LOOK", table.Canonical("look"))
		assert.Equal(t, "NORTH", table.Canonical("n"))
		assert.Empty(t, table.Canonical("dance"))
	})

	t.Run("command name is its own alias", func(t *testing.T) {
		path := writeAliases(t, `{"commands": [{"name": "QUIT", "aliases": []}]}`)
		table, err := LoadAliases(path)
		require.NoError(t, err)
		assert.Equal(t, "QUIT", table.Canonical("quit"))
	})

	t.Run("conflicting aliases rejected", func(t *testing.T) {
		path := writeAliases(t, `{"commands": [
			{"name": "LOOK", "aliases": ["l"]},
			{"name": "LEAVE", "aliases": ["l"]}
		]}`)
		_, err := LoadAliases(path)
		assert.ErrorContains(t, err, `alias "l"`)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadAliases(filepath.Join(t.TempDir(), "absent.json"))
		assert.Error(t, err)
	})

	t.Run("validation flags handlerless commands", func(t *testing.T) {
		registry := NewRegistry(logger.NewNopLogger())

		good := writeAliases(t, `{"commands": [{"name": "LOOK", "aliases": ["l"]}]}`)
		table, err := LoadAliases(good)
		require.NoError(t, err)
		assert.NoError(t, registry.ValidateAliases(table))

		bad := writeAliases(t, `{"commands": [{"name": "FLY", "aliases": ["f"]}]}`)
		table, err = LoadAliases(bad)
		require.NoError(t, err)
		assert.ErrorContains(t, registry.ValidateAliases(table), "FLY")
	})
}
