// Package lineclient provides an event-driven TCP client for
// newline-delimited text protocols. Callers register handlers for received
// lines, connection state changes and errors, then call Connect. Unlike a
// chunk-based client, lines are delivered in arrival order from a single
// goroutine, which the file-transfer records depend on.
package lineclient

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"time"
)

// ConnectionState represents the current state of the connection.
type ConnectionState int

const (
	Disconnected ConnectionState = iota // Not connected
	Connecting                          // Connection attempt in progress
	Connected                           // Successfully connected
	Closed                              // Client has been closed and must not be reused
)

// String returns a human-readable name for the connection state.
func (cs ConnectionState) String() string {
	switch cs {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// ConnectionStateEvent is emitted when the connection state changes.
type ConnectionStateEvent struct {
	State     ConnectionState // The new connection state
	Address   string          // The remote address (e.g. "host:port")
	Timestamp time.Time       // When the state change occurred
	Error     error           // Non-nil if the state change was due to an error
}

// LineEvent is emitted for each complete line read from the connection. The
// line excludes its trailing newline and carriage return.
type LineEvent struct {
	Line      string    // The received line without line terminators
	Timestamp time.Time // When the line was received
}

// ErrorEvent is emitted when a read, write or connection error occurs.
type ErrorEvent struct {
	Error     error     // The error that occurred
	Timestamp time.Time // When the error occurred
}

// ConnectionStateHandler is called when the connection state changes.
// Invoked from goroutines; implementations must be safe for concurrent use.
type ConnectionStateHandler func(event ConnectionStateEvent)

// LineHandler is called for each received line. Handlers run on the client's
// read goroutine so that line order is preserved; a slow handler stalls
// reading.
type LineHandler func(event LineEvent)

// ErrorHandler is called when a read, write or connection error occurs.
type ErrorHandler func(event ErrorEvent)

// Config holds configuration for the line client.
type Config struct {
	// Address is the "host:port" to connect to.
	Address string
	// ConnectionTimeout is the max duration for establishing a connection.
	ConnectionTimeout time.Duration
	// WriteTimeout is the max duration for a single write; 0 means no timeout.
	WriteTimeout time.Duration
	// MaxLineSize caps the length of a single received line.
	MaxLineSize int
}

// DefaultConfig returns a Config with defaults for the given address:
// ConnectionTimeout 10s, WriteTimeout 10s and a 64 KiB line cap, which
// leaves room for hex-encoded file data records.
func DefaultConfig(address string) Config {
	return Config{
		Address:           address,
		ConnectionTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		MaxLineSize:       64 * 1024,
	}
}

// LineClient is a TCP client for newline-delimited protocols. Register
// handlers with OnLine, OnConnectionState and OnError, then call Connect.
// It is safe for concurrent use.
type LineClient struct {
	config Config
	conn   net.Conn
	state  ConnectionState

	onConnectionState ConnectionStateHandler
	onLine            LineHandler
	onError           ErrorHandler

	mu     sync.RWMutex
	wg     sync.WaitGroup
	closed bool
}

// NewLineClient creates a client in Disconnected state; call Connect to
// establish the connection and Close when done.
func NewLineClient(config Config) *LineClient {
	return &LineClient{
		config: config,
		state:  Disconnected,
	}
}

// OnConnectionState registers the handler for connection state changes.
// Only one handler is active; repeated calls replace the previous handler.
func (c *LineClient) OnConnectionState(handler ConnectionStateHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnectionState = handler
}

// OnLine registers the handler for received lines.
// Only one handler is active; repeated calls replace the previous handler.
func (c *LineClient) OnLine(handler LineHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onLine = handler
}

// OnError registers the handler for read, write and connection errors.
// Only one handler is active; repeated calls replace the previous handler.
func (c *LineClient) OnError(handler ErrorHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = handler
}

// Connect establishes the TCP connection and starts the read goroutine.
//
// Returns:
//   - nil on success; an error if the client is closed, already connected,
//     or the dial fails
func (c *LineClient) Connect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("client is closed")
	}
	if c.state == Connected || c.state == Connecting {
		c.mu.Unlock()
		return fmt.Errorf("already connected or connecting")
	}
	c.mu.Unlock()

	c.setState(Connecting, nil)

	dialer := net.Dialer{Timeout: c.config.ConnectionTimeout}
	conn, err := dialer.Dial("tcp", c.config.Address)
	if err != nil {
		c.setState(Disconnected, err)
		c.emitError(err)
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.setState(Connected, nil)

	c.wg.Add(1)
	go c.readLoop()

	return nil
}

// SendLine writes one line to the connection, appending the newline.
//
// Parameters:
//   - line: The line to send, without a trailing newline
//
// Returns:
//   - nil on success; an error if not connected or the write fails
func (c *LineClient) SendLine(line string) error {
	c.mu.RLock()
	conn := c.conn
	state := c.state
	c.mu.RUnlock()

	if state != Connected || conn == nil {
		return fmt.Errorf("not connected")
	}

	if c.config.WriteTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout)); err != nil {
			return err
		}
		defer func() {
			_ = conn.SetWriteDeadline(time.Time{}) // Best effort to clear deadline
		}()
	}

	_, err := conn.Write([]byte(line + "\n"))
	if err != nil {
		c.emitError(err)
	}

	return err
}

// Close shuts the client down, closes the connection and waits for the read
// goroutine to exit. Idempotent.
func (c *LineClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()

	c.wg.Wait()
	c.setState(Closed, nil)

	return nil
}

// GetState returns the current connection state.
func (c *LineClient) GetState() ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsConnected returns true if the client is in Connected state.
func (c *LineClient) IsConnected() bool {
	return c.GetState() == Connected
}

func (c *LineClient) readLoop() {
	defer c.wg.Done()

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, c.config.MaxLineSize), c.config.MaxLineSize)
	for scanner.Scan() {
		if c.isClosed() {
			return
		}

		line := scanner.Text()
		if n := len(line); n > 0 && line[n-1] == '\r' {
			line = line[:n-1]
		}
		c.emitLine(line)
	}

	if err := scanner.Err(); err != nil && !c.isClosed() {
		c.emitError(err)
	}

	if !c.isClosed() {
		c.setState(Disconnected, scanner.Err())
	}
}

func (c *LineClient) setState(state ConnectionState, err error) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()

	c.mu.RLock()
	handler := c.onConnectionState
	c.mu.RUnlock()

	if handler != nil {
		go handler(ConnectionStateEvent{
			State:     state,
			Address:   c.config.Address,
			Timestamp: time.Now(),
			Error:     err,
		})
	}
}

// emitLine runs the handler synchronously so lines keep arrival order.
func (c *LineClient) emitLine(line string) {
	c.mu.RLock()
	handler := c.onLine
	c.mu.RUnlock()

	if handler != nil {
		handler(LineEvent{Line: line, Timestamp: time.Now()})
	}
}

func (c *LineClient) emitError(err error) {
	c.mu.RLock()
	handler := c.onError
	c.mu.RUnlock()

	if handler != nil {
		go handler(ErrorEvent{Error: err, Timestamp: time.Now()})
	}
}

func (c *LineClient) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
