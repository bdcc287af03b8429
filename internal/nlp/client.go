// Package nlp turns free-form player text into game commands by calling an
// external LLM endpoint. The call is slow and blocking, so sessions never
// invoke it directly: they submit work to the Pool, whose workers call the
// client and hand the result back to the session's own goroutine.
package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cyberinferno/tilemud/internal/logger"
)

// ParsedCommand is the classifier's verdict on a piece of natural language.
// An empty Command means the input was not understood; Args may still carry
// a message to show the player.
type ParsedCommand struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

// IsEmpty reports whether the classifier produced no command.
func (p ParsedCommand) IsEmpty() bool {
	return p.Command == ""
}

// Client calls an Ollama-style generate endpoint to classify player input.
type Client struct {
	baseURL string
	model   string
	client  *http.Client
	log     logger.Logger
}

// NewClient creates a classifier client for the given endpoint and model.
func NewClient(baseURL, model string, log logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		model:   model,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// buildPrompt wraps the player input in the fixed instruction preamble the
// model was tested with. The command list must stay in sync with the
// handlers registered in the command package.
func buildPrompt(input string) string {
	return `You are a command parser for a MUD (Multi-User Dungeon) game.
Your task is to convert the user's natural language input into a valid JSON object.

Important:
- Output must be in standard JSON format.
- Use **double quotes**, not triple quotes or backticks.
- Do not include markdown formatting or extra text. Only return the JSON.

Available commands:
MOVE, LOOK, ATTACK, GET, TALK, QUIT, CLEAR, INTERACT, CHAT

Examples:
Input: "start walking"
Output: {"command": "MOVE"}

Input: "take three steps east"
Output: {"command": "MOVE", "direction": "EAST", "amount": 3}

Input: "talk to the old man"
Output: {"command": "TALK", "target": "old man"}

Input: "pick up the item"
Output: {"command": "GET"}

Input: "attack the enemy!"
Output: {"command": "ATTACK", "target": "enemy"}

Input: "quit the game"
Output: {"command": "QUIT"}

Input: "use the portal"
Output: {"command": "INTERACT"}

Input: "move to coordinates 3,5"
Output: {"command": "MOVE", "x": 3, "y": 5}

Now, convert the following user input to JSON format.
User Input: ` + input + `
Output:`
}

type generateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Parse classifies one piece of player input. Transport failures, bad
// statuses and unparseable bodies are errors; a well-formed response that
// names no command is a successful "not understood" result.
//
// Parameters:
//   - ctx: Cancels the HTTP request
//   - input: The player's raw text
//
// Returns:
//   - The parsed command, or an error if the classifier could not be reached
//     or its response could not be interpreted
func (c *Client) Parse(ctx context.Context, input string) (ParsedCommand, error) {
	payload, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: buildPrompt(input),
		Stream: false,
		Options: map[string]interface{}{
			"temperature": 0.0,
			"num_predict": 128,
			"stop":        []string{"\n"},
		},
	})
	if err != nil {
		return ParsedCommand{}, fmt.Errorf("failed to encode classifier request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return ParsedCommand{}, fmt.Errorf("failed to build classifier request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return ParsedCommand{}, fmt.Errorf("classifier request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return ParsedCommand{}, fmt.Errorf("classifier returned status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var gen generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return ParsedCommand{}, fmt.Errorf("failed to decode classifier response: %w", err)
	}

	fields, err := extractCommandJSON(gen.Response)
	if err != nil {
		return ParsedCommand{}, err
	}

	parsed := mapFields(fields)
	c.log.Debug("classifier verdict",
		logger.Field{Key: "input", Value: input},
		logger.Field{Key: "command", Value: parsed.Command})
	return parsed, nil
}

// extractCommandJSON pulls the JSON object out of the model's completion
// text, tolerating stray prose and smart quotes around it.
func extractCommandJSON(content string) (map[string]interface{}, error) {
	first := strings.Index(content, "{")
	last := strings.LastIndex(content, "}")
	if first == -1 || last == -1 || first >= last {
		return nil, fmt.Errorf("classifier response contains no JSON object")
	}

	jsonPart := content[first : last+1]
	jsonPart = strings.ReplaceAll(jsonPart, "\\\"", "\"")
	jsonPart = strings.ReplaceAll(jsonPart, "“", "\"")
	jsonPart = strings.ReplaceAll(jsonPart, "”", "\"")

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(jsonPart), &fields); err != nil {
		return nil, fmt.Errorf("failed to parse classifier command JSON: %w", err)
	}

	return fields, nil
}

// mapFields converts the model's JSON fields into a ParsedCommand. MOVE is
// special-cased because its argument order is significant; for every other
// command the non-command values become args in stable key order.
func mapFields(fields map[string]interface{}) ParsedCommand {
	var result ParsedCommand

	command, _ := fields["command"].(string)
	if command == "" {
		return ParsedCommand{}
	}
	result.Command = command

	if command == "MOVE" {
		if len(fields) == 1 {
			// Bare "MOVE" without a destination: ask the player instead of
			// dispatching a no-op.
			return ParsedCommand{Args: []string{"Where would you like to move?"}}
		}

		if direction, ok := fields["direction"].(string); ok {
			result.Args = append(result.Args, direction)
			if amount, ok := numberArg(fields["amount"]); ok {
				result.Args = append(result.Args, amount)
			}
		} else if x, okX := numberArg(fields["x"]); okX {
			if y, okY := numberArg(fields["y"]); okY {
				result.Args = append(result.Args, x, y)
			}
		}

		return result
	}

	keys := make([]string, 0, len(fields))
	for key := range fields {
		if key != "command" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		switch v := fields[key].(type) {
		case string:
			result.Args = append(result.Args, v)
		case float64:
			result.Args = append(result.Args, strconv.Itoa(int(v)))
		}
	}

	return result
}

func numberArg(v interface{}) (string, bool) {
	f, ok := v.(float64)
	if !ok {
		return "", false
	}

	return strconv.Itoa(int(f)), true
}
