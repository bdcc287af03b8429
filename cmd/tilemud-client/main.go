// Command tilemud-client is a terminal client for the game server. Beyond
// plain chat it implements the client half of the file-transfer protocol:
// offering local files, answering incoming offers and writing received
// chunks to disk with a progress readout.
package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cyberinferno/tilemud/internal/lineclient"
	"github.com/cyberinferno/tilemud/internal/transfer"
)

func main() {
	addr, ok := parseArgs(os.Args[1:])
	if !ok {
		fmt.Fprintf(os.Stderr, "usage: %s [host] <port>\n", filepath.Base(os.Args[0]))
		os.Exit(1)
	}

	app := &clientApp{done: make(chan struct{})}

	client := lineclient.NewLineClient(lineclient.DefaultConfig(addr))
	client.OnLine(func(event lineclient.LineEvent) { app.handleServerLine(event.Line) })
	client.OnError(func(event lineclient.ErrorEvent) {
		fmt.Fprintln(os.Stderr, "connection error:", event.Error)
	})
	client.OnConnectionState(func(event lineclient.ConnectionStateEvent) {
		if event.State == lineclient.Disconnected {
			fmt.Println("Disconnected from server.")
			app.closeOnce()
		}
	})

	if err := client.Connect(); err != nil {
		fmt.Fprintln(os.Stderr, "failed to connect:", err)
		os.Exit(1)
	}
	app.client = client

	app.inputLoop()
	client.Close()
}

func parseArgs(args []string) (string, bool) {
	switch len(args) {
	case 1:
		return net.JoinHostPort("localhost", args[0]), true
	case 2:
		return net.JoinHostPort(args[0], args[1]), true
	default:
		return "", false
	}
}

// incomingOffer is an offer from the server awaiting a yes/no answer.
type incomingOffer struct {
	sender   string
	fileName string
	size     uint64
}

// outgoingOffer is a local file staged until the peer accepts or declines.
type outgoingOffer struct {
	path   string
	target string
}

type clientApp struct {
	client *lineclient.LineClient

	mu       sync.Mutex
	offer    *incomingOffer
	outgoing *outgoingOffer
	recv     *transfer.Receiver

	done      chan struct{}
	closeDone sync.Once
}

func (a *clientApp) closeOnce() {
	a.closeDone.Do(func() { close(a.done) })
}

// handleServerLine runs on the read goroutine, so transfer notices are
// processed strictly in arrival order.
func (a *clientApp) handleServerLine(line string) {
	if !transfer.IsTransferLine(line) {
		fmt.Println(line)
		return
	}

	notice, err := transfer.ParseNotice(line)
	if err != nil {
		fmt.Fprintln(os.Stderr, "malformed transfer notice:", err)
		return
	}

	switch notice.Kind {
	case transfer.NoticeOffer:
		a.mu.Lock()
		a.offer = &incomingOffer{sender: notice.Peer, fileName: notice.FileName, size: notice.Size}
		a.mu.Unlock()
		fmt.Printf("%s wants to send you %s (%d bytes). Accept? (yes/no)\n",
			notice.Peer, notice.FileName, notice.Size)

	case transfer.NoticeAccepted:
		a.mu.Lock()
		outgoing := a.outgoing
		a.mu.Unlock()
		if outgoing == nil {
			return
		}
		fmt.Printf("%s accepted. Sending...\n", notice.Peer)
		go a.streamFile(outgoing)

	case transfer.NoticeDeclined:
		a.mu.Lock()
		a.outgoing = nil
		a.mu.Unlock()
		fmt.Printf("%s declined the file.\n", notice.Peer)

	case transfer.NoticeBegin:
		fmt.Printf("Receiving %s (%d bytes)...\n", notice.FileName, notice.Size)

	case transfer.NoticeData:
		a.mu.Lock()
		recv := a.recv
		a.mu.Unlock()
		if recv == nil {
			return
		}
		if err := recv.WriteChunk(notice.Payload); err != nil {
			fmt.Fprintln(os.Stderr, "transfer failed:", err)
			return
		}
		fmt.Printf("\rReceiving... %.1f%%", recv.Progress())

	case transfer.NoticeEnd:
		a.mu.Lock()
		recv := a.recv
		a.recv = nil
		a.mu.Unlock()
		if recv == nil {
			return
		}
		if err := recv.Close(); err != nil {
			fmt.Fprintln(os.Stderr, "failed to finish file:", err)
			return
		}
		fmt.Printf("\nSaved %s (%d bytes).\n", recv.FileName, recv.Received)
	}
}

// streamFile sends a staged file as hex chunks followed by the end record.
func (a *clientApp) streamFile(outgoing *outgoingOffer) {
	file, err := os.Open(outgoing.path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "cannot open file:", err)
		return
	}
	defer file.Close()

	total, err := transfer.SendChunks(file, func(hexChunk string) error {
		return a.client.SendLine(transfer.FormatDataRequest(outgoing.target, hexChunk))
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "transfer failed:", err)
		return
	}

	if err := a.client.SendLine(transfer.FormatEndRequest(outgoing.target)); err != nil {
		fmt.Fprintln(os.Stderr, "transfer failed:", err)
		return
	}

	a.mu.Lock()
	a.outgoing = nil
	a.mu.Unlock()
	fmt.Printf("Sent %d bytes to %s.\n", total, outgoing.target)
}

// inputLoop reads the user's terminal until "exit" or disconnect.
func (a *clientApp) inputLoop() {
	input := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			input <- scanner.Text()
		}
		close(input)
	}()

	for {
		select {
		case <-a.done:
			return
		case line, ok := <-input:
			if !ok {
				return
			}
			if !a.handleInput(strings.TrimSpace(line)) {
				return
			}
		}
	}
}

// handleInput interprets one typed line. It returns false when the client
// should exit.
func (a *clientApp) handleInput(line string) bool {
	switch {
	case line == "":
		return true

	case line == "exit":
		return false

	case line == "yes" || line == "no":
		if a.answerOffer(line == "yes") {
			return true
		}

	case strings.HasPrefix(line, "send "):
		a.offerFile(line)
		return true

	case line == "up" || line == "down" || line == "left" || line == "right":
		// Map-mode movement tokens.
		line = "__" + strings.ToUpper(line) + "__"
	}

	if err := a.client.SendLine(line); err != nil {
		fmt.Fprintln(os.Stderr, "send failed:", err)
		return false
	}

	return true
}

// answerOffer resolves a pending incoming offer. It reports whether an offer
// was pending; when none is, the yes/no is ordinary chat.
func (a *clientApp) answerOffer(accept bool) bool {
	a.mu.Lock()
	offer := a.offer
	a.offer = nil
	a.mu.Unlock()

	if offer == nil {
		return false
	}

	if !accept {
		a.client.SendLine(transfer.FormatDecline(offer.sender))
		fmt.Println("Declined.")
		return true
	}

	// Open the destination before accepting; a file we cannot create means
	// the offer is declined rather than left dangling.
	recv, err := transfer.NewReceiver(filepath.Base(offer.fileName), offer.size)
	if err != nil {
		fmt.Fprintln(os.Stderr, "cannot create file:", err)
		a.client.SendLine(transfer.FormatDecline(offer.sender))
		return true
	}

	a.mu.Lock()
	a.recv = recv
	a.mu.Unlock()
	a.client.SendLine(transfer.FormatAccept(offer.sender))
	return true
}

// offerFile stages "send <path> <target>" and emits the offer record.
func (a *clientApp) offerFile(line string) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		fmt.Println("usage: send <path> <player>")
		return
	}
	path, target := fields[1], fields[2]

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		fmt.Println("cannot send", path)
		return
	}

	a.mu.Lock()
	a.outgoing = &outgoingOffer{path: path, target: target}
	a.mu.Unlock()

	name := filepath.Base(path)
	if err := a.client.SendLine(transfer.FormatOffer(target, name, uint64(info.Size()))); err != nil {
		fmt.Fprintln(os.Stderr, "send failed:", err)
		return
	}
	fmt.Printf("Offered %s (%d bytes) to %s.\n", name, info.Size(), target)
}
