package game

import "sync"

// DeliverFunc pushes a message toward the player's connection. It is the
// weak back-reference from a player to its session: when the session is gone
// the function is nil or simply drops the message, never an error.
type DeliverFunc func(msg string)

// Player is a named, connected participant. A player's position and
// inventory are mutated only by the session that owns it, but broadcasts on
// other goroutines read the current room, so access goes through a mutex.
type Player struct {
	name string

	mu          sync.RWMutex
	deliver     DeliverFunc
	room        *Room
	x, y        int
	sightRadius int
	inventory   []Item
}

// NewPlayer creates a player with the default sight radius.
func NewPlayer(name string) *Player {
	return &Player{
		name:        name,
		sightRadius: 2,
	}
}

// Name returns the player's unique display name.
func (p *Player) Name() string { return p.name }

// SetDeliver installs the message delivery callback. Pass nil to detach the
// player from its session.
func (p *Player) SetDeliver(fn DeliverFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deliver = fn
}

// Send pushes a message to the player's session. A player whose session is
// gone silently drops the message.
func (p *Player) Send(msg string) {
	p.mu.RLock()
	fn := p.deliver
	p.mu.RUnlock()

	if fn != nil {
		fn(msg)
	}
}

// SetLocation moves the player to (x, y) in the given room.
func (p *Player) SetLocation(room *Room, x, y int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.room = room
	p.x = x
	p.y = y
}

// Room returns the room the player currently occupies, or nil before spawn.
func (p *Player) Room() *Room {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.room
}

// Position returns the player's current coordinates.
func (p *Player) Position() (int, int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.x, p.y
}

// SightRadius returns how far the player can see around their tile.
func (p *Player) SightRadius() int {
	return p.sightRadius
}

// AddItem puts an item into the player's inventory.
func (p *Player) AddItem(item Item) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inventory = append(p.inventory, item)
}

// HasItem reports whether the player carries an item with the given ID.
func (p *Player) HasItem(itemID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, item := range p.inventory {
		if item.ID == itemID {
			return true
		}
	}

	return false
}

// Inventory returns a copy of the player's inventory.
func (p *Player) Inventory() []Item {
	p.mu.RLock()
	defer p.mu.RUnlock()
	items := make([]Item, len(p.inventory))
	copy(items, p.inventory)
	return items
}
