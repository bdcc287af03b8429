package server

import (
	"sync"

	"github.com/cyberinferno/tilemud/internal/game"
	"github.com/cyberinferno/tilemud/internal/logger"
	"github.com/cyberinferno/tilemud/internal/transfer"
)

// transferState is the session's half of at most one file transfer. It has
// its own lock because a peer's posted closure and this session's Close can
// both reach it.
type transferState struct {
	mu      sync.Mutex
	pending *transfer.Pending
}

func (t *transferState) get() *transfer.Pending {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}

func (t *transferState) set(p *transfer.Pending) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = p
}

// take clears and returns the pending transfer, so exactly one caller tears
// it down.
func (t *transferState) take() *transfer.Pending {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.pending
	t.pending = nil
	return p
}

// handleTransferRequest routes one client transfer record. The server is a
// relay: it rewrites requests into the notice forms the receiving client
// understands and tracks just enough state to police the protocol.
func (s *Session) handleTransferRequest(line string) {
	req, err := transfer.ParseRequest(line)
	if err != nil {
		s.log.Debug("malformed transfer record", logger.Field{Key: "error", Value: err.Error()})
		s.Deliver(game.Error("Malformed file transfer record."))
		return
	}

	switch req.Kind {
	case transfer.RequestOffer:
		s.relayOffer(req)
	case transfer.RequestAccept:
		s.relayAccept(req)
	case transfer.RequestDecline:
		s.relayDecline(req)
	case transfer.RequestData:
		s.relayData(req)
	case transfer.RequestEnd:
		s.relayEnd(req)
	}
}

func (s *Session) relayOffer(req transfer.Request) {
	name := s.player.Load().Name()

	if req.Target == name {
		s.Deliver(game.Error("You can't send a file to yourself."))
		return
	}
	if s.transfers.get() != nil {
		s.Deliver(game.Error("You already have a file transfer in progress."))
		return
	}

	peer, ok := s.server.sessionFor(req.Target)
	if !ok {
		s.Deliver(game.Error(req.Target + " is not online."))
		return
	}

	s.transfers.set(transfer.NewPending(req.Target, req.FileName, req.Size, transfer.DirectionSend))
	s.Deliver(game.Info("Offering " + req.FileName + " to " + req.Target + "."))

	offer := req
	peer.post(func() {
		if peer.transfers.get() != nil {
			// The receiver is mid-transfer already; bounce the offer.
			s.post(func() {
				sp := s.transfers.get()
				if sp == nil || sp.Direction != transfer.DirectionSend || sp.Peer != offer.Target {
					return
				}
				s.transfers.take()
				s.Deliver(transfer.FormatDeclinedNotice(offer.Target))
				s.Deliver(game.Info(offer.Target + " is busy with another transfer."))
			})
			return
		}

		peer.transfers.set(transfer.NewPending(name, offer.FileName, offer.Size, transfer.DirectionReceive))
		peer.Deliver(transfer.FormatOfferNotice(offer.FileName, offer.Size, name))
	})
}

func (s *Session) relayAccept(req transfer.Request) {
	name := s.player.Load().Name()

	pending := s.transfers.get()
	if pending == nil || pending.Direction != transfer.DirectionReceive || pending.Peer != req.Target {
		s.Deliver(game.Error("There is no pending offer from " + req.Target + "."))
		return
	}

	sender, ok := s.server.sessionFor(req.Target)
	if !ok {
		s.transfers.take()
		s.Deliver(game.Error(req.Target + " is no longer online."))
		return
	}

	pending.Accepted = true
	s.Deliver(transfer.FormatBeginNotice(pending.FileName, pending.DeclaredSize))

	sender.post(func() {
		sp := sender.transfers.get()
		if sp == nil || sp.Direction != transfer.DirectionSend || sp.Peer != name {
			return
		}
		sp.Accepted = true
		sender.Deliver(transfer.FormatAcceptedNotice(name))
	})
}

func (s *Session) relayDecline(req transfer.Request) {
	name := s.player.Load().Name()

	pending := s.transfers.get()
	if pending == nil || pending.Direction != transfer.DirectionReceive || pending.Peer != req.Target {
		s.Deliver(game.Error("There is no pending offer from " + req.Target + "."))
		return
	}

	s.transfers.take()
	if sender, ok := s.server.sessionFor(req.Target); ok {
		sender.post(func() {
			sp := sender.transfers.get()
			if sp == nil || sp.Direction != transfer.DirectionSend || sp.Peer != name {
				return
			}
			sender.transfers.take()
			sender.Deliver(transfer.FormatDeclinedNotice(name))
		})
	}
}

func (s *Session) relayData(req transfer.Request) {
	pending := s.transfers.get()
	if pending == nil || pending.Direction != transfer.DirectionSend ||
		!pending.Accepted || pending.Peer != req.Target {
		s.Deliver(game.Error("There is no accepted transfer to " + req.Target + "."))
		return
	}

	data := transfer.DecodeChunk(req.Payload)
	if req.Payload != "" && data == nil {
		s.abortTransfer("malformed data chunk", true)
		return
	}

	pending.AddBytes(uint64(len(data)))

	peer, ok := s.server.sessionFor(req.Target)
	if !ok {
		s.transfers.take()
		s.Deliver(game.Error(req.Target + " went offline during the transfer."))
		return
	}

	name := s.player.Load().Name()
	payload := req.Payload
	size := uint64(len(data))
	peer.post(func() { peer.peerData(name, payload, size) })
}

// peerData forwards one data chunk to the receiving side. Chunks for a
// transfer this session no longer holds are stale and dropped.
func (s *Session) peerData(from, payload string, size uint64) {
	pp := s.transfers.get()
	if pp == nil || pp.Direction != transfer.DirectionReceive || pp.Peer != from {
		return
	}

	pp.AddBytes(size)
	s.Deliver(transfer.FormatDataNotice(payload))
}

func (s *Session) relayEnd(req transfer.Request) {
	pending := s.transfers.get()
	if pending == nil || pending.Direction != transfer.DirectionSend ||
		!pending.Accepted || pending.Peer != req.Target {
		s.Deliver(game.Error("There is no accepted transfer to " + req.Target + "."))
		return
	}

	if !pending.SizeMatches() {
		s.log.Warn("transfer size mismatch",
			logger.Field{Key: "file", Value: pending.FileName},
			logger.Field{Key: "declared", Value: pending.DeclaredSize},
			logger.Field{Key: "transferred", Value: pending.Transferred})
	}

	s.transfers.take()
	s.Deliver(game.Info("File " + pending.FileName + " sent to " + req.Target + "."))

	name := s.player.Load().Name()
	if peer, ok := s.server.sessionFor(req.Target); ok {
		peer.post(func() { peer.peerFinish(name) })
	}
}

// peerFinish completes the receiving side once the sender's end record has
// been relayed. An end for a transfer this session no longer holds, or for
// a different sender, is stale and ignored.
func (s *Session) peerFinish(from string) {
	pp := s.transfers.get()
	if pp == nil || pp.Direction != transfer.DirectionReceive || pp.Peer != from {
		return
	}

	s.transfers.take()
	s.Deliver(transfer.FormatEndNotice())
}

// abortTransfer tears down whatever transfer this session has in flight and
// tells the peer. Used for protocol errors and for session teardown, where
// notifySelf is false because the session is already going away.
func (s *Session) abortTransfer(reason string, notifySelf bool) {
	pending := s.transfers.take()
	if pending == nil {
		return
	}

	if notifySelf {
		s.Deliver(game.Error("File transfer of " + pending.FileName + " aborted: " + reason + "."))
	}

	name := s.player.Load().Name()
	if peer, ok := s.server.sessionFor(pending.Peer); ok {
		peer.post(func() { peer.peerAbort(name) })
	}
}

// peerAbort tears down the peer's half of an abandoned transfer. The peer
// may be on either side, so only the partner name is checked; a record held
// against someone else belongs to a newer transfer and stays.
func (s *Session) peerAbort(from string) {
	pp := s.transfers.get()
	if pp == nil || pp.Peer != from {
		return
	}

	s.transfers.take()
	s.Deliver(transfer.FormatEndNotice())
	s.Deliver(game.Error("The other side abandoned the file transfer."))
}
