package transfer

import (
	"fmt"
	"io"
	"os"
)

// Direction tells which side of a transfer a session is on.
type Direction int

const (
	DirectionSend Direction = iota
	DirectionReceive
)

// String returns a human-readable name for the direction.
func (d Direction) String() string {
	switch d {
	case DirectionSend:
		return "send"
	case DirectionReceive:
		return "receive"
	default:
		return "unknown"
	}
}

// Pending is the per-session record of the one transfer a session may have
// in flight. It exists from offer until completion, decline or error.
type Pending struct {
	Peer         string
	FileName     string
	DeclaredSize uint64
	Transferred  uint64
	Direction    Direction
	Accepted     bool
}

// NewPending creates the pending record for a fresh offer.
func NewPending(peer, fileName string, size uint64, dir Direction) *Pending {
	return &Pending{
		Peer:         peer,
		FileName:     fileName,
		DeclaredSize: size,
		Direction:    dir,
	}
}

// AddBytes accumulates transferred byte counts for progress tracking.
func (p *Pending) AddBytes(n uint64) {
	p.Transferred += n
}

// SizeMatches reports whether the running total equals the declared size.
// A transfer still completes on the end record either way; a mismatch is
// only worth a warning.
func (p *Pending) SizeMatches() bool {
	return p.Transferred == p.DeclaredSize
}

// SendChunks reads r to EOF and emits each chunk hex-encoded. Used by the
// sending client once its offer has been accepted.
//
// Parameters:
//   - r: Source of raw file bytes
//   - emit: Called once per hex chunk; a non-nil error aborts the stream
//
// Returns:
//   - The number of raw bytes streamed, or an error from reading or emitting
func SendChunks(r io.Reader, emit func(hexChunk string) error) (uint64, error) {
	buf := make([]byte, ChunkSize)
	var total uint64

	for {
		n, err := r.Read(buf)
		if n > 0 {
			if emitErr := emit(EncodeChunk(buf[:n])); emitErr != nil {
				return total, emitErr
			}
			total += uint64(n)
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, fmt.Errorf("failed to read file chunk: %w", err)
		}
	}
}

// Receiver decodes incoming data records and appends them to a destination
// file. It is created when the local user accepts an offer; failing to open
// the destination aborts before any accept record is emitted.
type Receiver struct {
	file     *os.File
	FileName string
	Total    uint64
	Received uint64
}

// NewReceiver opens path for writing and returns a receiver tracking
// progress against the declared total size.
func NewReceiver(path string, total uint64) (*Receiver, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination file %s: %w", path, err)
	}

	return &Receiver{file: f, FileName: path, Total: total}, nil
}

// WriteChunk decodes one hex payload and appends it to the destination file.
// Malformed payloads are a protocol error.
func (r *Receiver) WriteChunk(payload string) error {
	if payload == "" {
		return nil
	}

	data := DecodeChunk(payload)
	if data == nil {
		return fmt.Errorf("malformed hex payload of length %d", len(payload))
	}

	if _, err := r.file.Write(data); err != nil {
		return fmt.Errorf("failed to write to %s: %w", r.FileName, err)
	}

	r.Received += uint64(len(data))
	return nil
}

// Progress returns the completed fraction in percent, or 0 when the declared
// size is unknown.
func (r *Receiver) Progress() float64 {
	if r.Total == 0 {
		return 0
	}

	return float64(r.Received) / float64(r.Total) * 100
}

// Close closes the destination file. The transfer is complete when the end
// record arrives, whether or not Received matches Total.
func (r *Receiver) Close() error {
	return r.file.Close()
}
