// Package command maps player input lines to game actions. An alias table
// loaded from disk translates typed words into canonical command names, and a
// registry of handlers executes them against an Actor, the session-facing
// surface each handler manipulates.
package command

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

type aliasFile struct {
	Commands []aliasEntry `json:"commands"`
}

type aliasEntry struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
}

// AliasTable resolves typed command words to canonical command names.
type AliasTable struct {
	byAlias map[string]string
	names   []string
}

// LoadAliases reads the alias table from a commands JSON file. Aliases are
// matched case-insensitively; duplicate aliases are a configuration error.
//
// Parameters:
//   - path: Location of the commands JSON file
//
// Returns:
//   - The loaded table, or an error for unreadable or inconsistent files
func LoadAliases(path string) (*AliasTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read command aliases from %s: %w", path, err)
	}

	var file aliasFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse command aliases from %s: %w", path, err)
	}

	table := &AliasTable{byAlias: make(map[string]string)}
	for _, entry := range file.Commands {
		name := strings.ToUpper(entry.Name)
		if name == "" {
			return nil, fmt.Errorf("command entry with empty name in %s", path)
		}
		table.names = append(table.names, name)

		for _, alias := range append(entry.Aliases, entry.Name) {
			key := strings.ToLower(alias)
			if existing, ok := table.byAlias[key]; ok && existing != name {
				return nil, fmt.Errorf("alias %q maps to both %s and %s", key, existing, name)
			}
			table.byAlias[key] = name
		}
	}

	return table, nil
}

// Canonical resolves one typed word to a canonical command name. The empty
// string means the word is not a known command.
func (t *AliasTable) Canonical(word string) string {
	return t.byAlias[strings.ToLower(word)]
}

// Names returns the canonical command names the table mentions, in file order.
func (t *AliasTable) Names() []string {
	return append([]string(nil), t.names...)
}
