package game

import (
	"encoding/json"
	"fmt"
	"os"
)

// Item is a thing a player can carry.
type Item struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

// ItemManager holds the item catalog loaded from items.json.
type ItemManager struct {
	items map[string]Item
}

// NewItemManager returns an empty item manager.
func NewItemManager() *ItemManager {
	return &ItemManager{items: make(map[string]Item)}
}

// LoadItems reads the item catalog from the given JSON file. The file holds
// an object with an "items" array.
func (m *ItemManager) LoadItems(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read items file: %w", err)
	}

	var doc struct {
		Items []Item `json:"items"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse items file %s: %w", path, err)
	}

	for _, item := range doc.Items {
		m.items[item.ID] = item
	}

	return nil
}

// Add registers a single item in the catalog.
func (m *ItemManager) Add(item Item) {
	m.items[item.ID] = item
}

// Item returns the item with the given ID and whether it exists.
func (m *ItemManager) Item(id string) (Item, bool) {
	item, ok := m.items[id]
	return item, ok
}

// Count returns the number of items in the catalog.
func (m *ItemManager) Count() int {
	return len(m.items)
}
