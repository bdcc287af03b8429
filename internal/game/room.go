// Package game holds the world model: rooms with tile grids, portals,
// items, NPCs and the players that move through them. The world is loaded
// once at startup and is read-only afterwards; player state is mutated only
// by the session that owns the player.
package game

// Well-known object types. Anything else is treated as blocking scenery.
const (
	ObjectTypeItem = "item"
	ObjectTypeNpc  = "npc"
	ObjectTypeWall = "wall"
)

// Object is something placed on a tile: scenery, an item or an NPC.
type Object struct {
	Type           string `json:"type"`
	Name           string `json:"name"`
	ItemID         string `json:"item_id,omitempty"`
	IsInteractable bool   `json:"is_interactable"`
	Description    string `json:"description"`
	X              int    `json:"x"`
	Y              int    `json:"y"`
}

// Portal teleports a player standing on its tile to a target room position.
type Portal struct {
	X           int    `json:"x"`
	Y           int    `json:"y"`
	TargetMap   string `json:"target_map"`
	TargetX     int    `json:"target_x"`
	TargetY     int    `json:"target_y"`
	Description string `json:"description"`
}

// Tile is a single cell of a room grid.
type Tile struct {
	Objects []Object
	Portal  *Portal
}

// Walkable reports whether a player can stand on the tile. Items and NPCs
// share tiles with players; any other object type blocks movement.
func (t Tile) Walkable() bool {
	for _, obj := range t.Objects {
		if obj.Type != ObjectTypeItem && obj.Type != ObjectTypeNpc {
			return false
		}
	}

	return true
}

// ObjectOfType returns the first object of the given type on the tile.
func (t Tile) ObjectOfType(objType string) (Object, bool) {
	for _, obj := range t.Objects {
		if obj.Type == objType {
			return obj, true
		}
	}

	return Object{}, false
}

// InteractableObject returns the first interactable object on the tile.
func (t Tile) InteractableObject() (Object, bool) {
	for _, obj := range t.Objects {
		if obj.IsInteractable {
			return obj, true
		}
	}

	return Object{}, false
}

// Room is a rectangular grid of tiles with optional exits to other rooms.
type Room struct {
	id          string
	name        string
	description string
	width       int
	height      int
	tiles       [][]Tile
	exits       map[string]*Room
}

// NewRoom creates an empty room of the given dimensions.
func NewRoom(id, name, description string, width, height int) *Room {
	tiles := make([][]Tile, height)
	for y := range tiles {
		tiles[y] = make([]Tile, width)
	}

	return &Room{
		id:          id,
		name:        name,
		description: description,
		width:       width,
		height:      height,
		tiles:       tiles,
		exits:       make(map[string]*Room),
	}
}

// ID returns the room's unique identifier.
func (r *Room) ID() string { return r.id }

// Name returns the room's display name.
func (r *Room) Name() string { return r.name }

// Description returns the room's description text.
func (r *Room) Description() string { return r.description }

// Width returns the horizontal tile count.
func (r *Room) Width() int { return r.width }

// Height returns the vertical tile count.
func (r *Room) Height() int { return r.height }

// InBounds reports whether (x, y) lies inside the room grid.
func (r *Room) InBounds(x, y int) bool {
	return x >= 0 && x < r.width && y >= 0 && y < r.height
}

// Tile returns the tile at (x, y). Out-of-bounds coordinates return an
// empty tile so callers never index past the grid.
func (r *Room) Tile(x, y int) Tile {
	if !r.InBounds(x, y) {
		return Tile{}
	}

	return r.tiles[y][x]
}

// AddObject places an object on the tile at (x, y). Out-of-bounds
// placements are dropped.
func (r *Room) AddObject(x, y int, obj Object) {
	if !r.InBounds(x, y) {
		return
	}

	r.tiles[y][x].Objects = append(r.tiles[y][x].Objects, obj)
}

// RemoveObject removes the first object with the given name from the tile
// at (x, y). It reports whether an object was removed.
func (r *Room) RemoveObject(x, y int, name string) bool {
	if !r.InBounds(x, y) {
		return false
	}

	objects := r.tiles[y][x].Objects
	for i, obj := range objects {
		if obj.Name == name {
			r.tiles[y][x].Objects = append(objects[:i], objects[i+1:]...)
			return true
		}
	}

	return false
}

// AddPortal places a portal on its tile. Out-of-bounds portals are dropped.
func (r *Room) AddPortal(portal Portal) {
	if !r.InBounds(portal.X, portal.Y) {
		return
	}

	p := portal
	r.tiles[portal.Y][portal.X].Portal = &p
}

// Link records an exit from this room in the given direction.
func (r *Room) Link(direction string, target *Room) {
	r.exits[direction] = target
}

// Exit returns the room reached by leaving in the given direction, or nil.
func (r *Room) Exit(direction string) *Room {
	return r.exits[direction]
}
