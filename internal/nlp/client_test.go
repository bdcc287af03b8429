package nlp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberinferno/tilemud/internal/logger"
)

// classifierStub serves canned completions in the generate endpoint's shape
// and records the request it saw.
func classifierStub(t *testing.T, completion string) (*httptest.Server, *map[string]interface{}) {
	t.Helper()
	var captured map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(map[string]string{"response": completion})
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func TestClient_Parse(t *testing.T) {
	log := logger.NewNopLogger()

	t.Run("plain command", func(t *testing.T) {
		srv, captured := classifierStub(t, `{"command": "LOOK"}`)
		client := NewClient(srv.URL, "llama3.2:3b", log)

		parsed, err := client.Parse(context.Background(), "look around")
		require.NoError(t, err)
		assert.Equal(t, "LOOK", parsed.Command)
		assert.Empty(t, parsed.Args)

		req := *captured
		assert.Equal(t, "llama3.2:3b", req["model"])
		assert.Equal(t, false, req["stream"])
		options := req["options"].(map[string]interface{})
		assert.Equal(t, float64(0), options["temperature"])
		assert.Equal(t, float64(128), options["num_predict"])
	})

	t.Run("command with target", func(t *testing.T) {
		srv, _ := classifierStub(t, `{"command": "TALK", "target": "old man"}`)
		client := NewClient(srv.URL, "llama3.2:3b", log)

		parsed, err := client.Parse(context.Background(), "talk to the old man")
		require.NoError(t, err)
		assert.Equal(t, "TALK", parsed.Command)
		assert.Equal(t, []string{"old man"}, parsed.Args)
	})

	t.Run("move with direction and amount", func(t *testing.T) {
		srv, _ := classifierStub(t, `{"command": "MOVE", "direction": "EAST", "amount": 3}`)
		client := NewClient(srv.URL, "llama3.2:3b", log)

		parsed, err := client.Parse(context.Background(), "take three steps east")
		require.NoError(t, err)
		assert.Equal(t, "MOVE", parsed.Command)
		assert.Equal(t, []string{"EAST", "3"}, parsed.Args)
	})

	t.Run("move with coordinates keeps x before y", func(t *testing.T) {
		srv, _ := classifierStub(t, `{"command": "MOVE", "y": 5, "x": 3}`)
		client := NewClient(srv.URL, "llama3.2:3b", log)

		parsed, err := client.Parse(context.Background(), "move to 3,5")
		require.NoError(t, err)
		assert.Equal(t, []string{"3", "5"}, parsed.Args)
	})

	t.Run("bare move asks for a destination", func(t *testing.T) {
		srv, _ := classifierStub(t, `{"command": "MOVE"}`)
		client := NewClient(srv.URL, "llama3.2:3b", log)

		parsed, err := client.Parse(context.Background(), "start walking")
		require.NoError(t, err)
		assert.True(t, parsed.IsEmpty())
		assert.Equal(t, []string{"Where would you like to move?"}, parsed.Args)
	})

	t.Run("prose around the JSON is tolerated", func(t *testing.T) {
		srv, _ := classifierStub(t, `Sure! Here you go: {"command": "QUIT"} hope that helps`)
		client := NewClient(srv.URL, "llama3.2:3b", log)

		parsed, err := client.Parse(context.Background(), "quit the game")
		require.NoError(t, err)
		assert.Equal(t, "QUIT", parsed.Command)
	})

	t.Run("smart quotes are normalized", func(t *testing.T) {
		srv, _ := classifierStub(t, `{“command”: “CLEAR”}`)
		client := NewClient(srv.URL, "llama3.2:3b", log)

		parsed, err := client.Parse(context.Background(), "clear my screen")
		require.NoError(t, err)
		assert.Equal(t, "CLEAR", parsed.Command)
	})

	t.Run("no JSON in completion is an error", func(t *testing.T) {
		srv, _ := classifierStub(t, `I could not understand that at all`)
		client := NewClient(srv.URL, "llama3.2:3b", log)

		_, err := client.Parse(context.Background(), "gibberish")
		assert.Error(t, err)
	})

	t.Run("missing command field is understood as nothing", func(t *testing.T) {
		srv, _ := classifierStub(t, `{"target": "enemy"}`)
		client := NewClient(srv.URL, "llama3.2:3b", log)

		parsed, err := client.Parse(context.Background(), "???")
		require.NoError(t, err)
		assert.True(t, parsed.IsEmpty())
	})

	t.Run("bad status is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		}))
		defer srv.Close()
		client := NewClient(srv.URL, "llama3.2:3b", log)

		_, err := client.Parse(context.Background(), "look")
		assert.ErrorContains(t, err, "404")
	})

	t.Run("unreachable endpoint is an error", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1", "llama3.2:3b", log)
		_, err := client.Parse(context.Background(), "look")
		assert.Error(t, err)
	})
}

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt("pick up the coin")
	assert.Contains(t, prompt, "User Input: pick up the coin")
	assert.Contains(t, prompt, "MOVE, LOOK, ATTACK, GET, TALK, QUIT, CLEAR, INTERACT, CHAT")
}
