package game

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// DialogueState is one conditional line of NPC dialogue.
type DialogueState struct {
	State string `json:"state"`
	Text  string `json:"text"`
}

// Dialogue is an NPC's default line plus state-dependent variants.
type Dialogue struct {
	Default string          `json:"default"`
	States  []DialogueState `json:"states"`
}

// Npc is a non-player character definition.
type Npc struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Dialogue Dialogue `json:"dialogue"`
}

// NpcManager holds the NPC definitions loaded from npcs.json.
type NpcManager struct {
	npcs map[int]Npc
}

// NewNpcManager returns an empty NPC manager.
func NewNpcManager() *NpcManager {
	return &NpcManager{npcs: make(map[int]Npc)}
}

// LoadNpcs reads NPC definitions from the given JSON file, a top-level array.
func (m *NpcManager) LoadNpcs(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read npcs file: %w", err)
	}

	var npcs []Npc
	if err := json.Unmarshal(data, &npcs); err != nil {
		return fmt.Errorf("failed to parse npcs file %s: %w", path, err)
	}

	for _, npc := range npcs {
		m.npcs[npc.ID] = npc
	}

	return nil
}

// Add registers a single NPC definition.
func (m *NpcManager) Add(npc Npc) {
	m.npcs[npc.ID] = npc
}

// Npc returns the NPC with the given ID and whether it exists.
func (m *NpcManager) Npc(id int) (Npc, bool) {
	npc, ok := m.npcs[id]
	return npc, ok
}

// NpcByName returns the NPC whose name matches case-insensitively. Tile
// objects reference NPCs by name, not ID.
func (m *NpcManager) NpcByName(name string) (Npc, bool) {
	for _, npc := range m.npcs {
		if strings.EqualFold(npc.Name, name) {
			return npc, true
		}
	}

	return Npc{}, false
}

// Count returns the number of loaded NPCs.
func (m *NpcManager) Count() int {
	return len(m.npcs)
}
