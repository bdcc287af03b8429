package game

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// World is the collection of rooms plus the item and NPC catalogs.
// It is loaded once at startup and treated as read-only afterwards, so it is
// safe to read from any goroutine.
type World struct {
	rooms map[string]*Room
	items *ItemManager
	npcs  *NpcManager
}

// mapFile mirrors the JSON layout of a single map file.
type mapFile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Size        struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"size"`
	Objects []Object          `json:"objects"`
	Portals []Portal          `json:"portals"`
	Exits   map[string]string `json:"exits"`
}

// NewWorld returns an empty world.
func NewWorld() *World {
	return &World{
		rooms: make(map[string]*Room),
		items: NewItemManager(),
		npcs:  NewNpcManager(),
	}
}

// LoadWorld builds a world from a data directory containing maps/*.json,
// items.json and npcs.json. Missing item or NPC files are not fatal; a world
// can consist of rooms alone.
//
// Parameters:
//   - dataPath: Directory holding maps/, items.json and npcs.json
//
// Returns:
//   - The loaded world, or an error if the maps cannot be read
func LoadWorld(dataPath string) (*World, error) {
	w := NewWorld()

	if err := w.loadRooms(filepath.Join(dataPath, "maps")); err != nil {
		return nil, err
	}

	itemsPath := filepath.Join(dataPath, "items.json")
	if _, err := os.Stat(itemsPath); err == nil {
		if err := w.items.LoadItems(itemsPath); err != nil {
			return nil, err
		}
	}

	npcsPath := filepath.Join(dataPath, "npcs.json")
	if _, err := os.Stat(npcsPath); err == nil {
		if err := w.npcs.LoadNpcs(npcsPath); err != nil {
			return nil, err
		}
	}

	return w, nil
}

// loadRooms reads every *.json map file, creates the rooms and then links
// exits in a second pass so that link targets always exist.
func (w *World) loadRooms(mapsDir string) error {
	entries, err := os.ReadDir(mapsDir)
	if err != nil {
		return fmt.Errorf("failed to read maps directory: %w", err)
	}

	exits := make(map[string]map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		path := filepath.Join(mapsDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read map file %s: %w", path, err)
		}

		var mf mapFile
		if err := json.Unmarshal(data, &mf); err != nil {
			return fmt.Errorf("failed to parse map file %s: %w", path, err)
		}

		room := NewRoom(mf.ID, mf.Name, mf.Description, mf.Size.Width, mf.Size.Height)
		for _, obj := range mf.Objects {
			room.AddObject(obj.X, obj.Y, obj)
		}
		for _, portal := range mf.Portals {
			room.AddPortal(portal)
		}

		w.AddRoom(mf.ID, room)
		exits[mf.ID] = mf.Exits
	}

	for roomID, roomExits := range exits {
		room := w.Room(roomID)
		for direction, targetID := range roomExits {
			if target := w.Room(targetID); target != nil {
				room.Link(direction, target)
			}
		}
	}

	return nil
}

// AddRoom registers a room under the given ID.
func (w *World) AddRoom(id string, room *Room) {
	w.rooms[id] = room
}

// Room returns the room with the given ID, or nil if it does not exist.
func (w *World) Room(id string) *Room {
	return w.rooms[id]
}

// RoomCount returns the number of rooms in the world.
func (w *World) RoomCount() int {
	return len(w.rooms)
}

// Items returns the item catalog.
func (w *World) Items() *ItemManager {
	return w.items
}

// Npcs returns the NPC catalog.
func (w *World) Npcs() *NpcManager {
	return w.npcs
}
