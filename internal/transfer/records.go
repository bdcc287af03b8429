package transfer

import (
	"fmt"
	"strconv"
	"strings"
)

// Reserved line prefixes. Any line starting with one of these is consumed by
// the transfer path and never reaches chat or command dispatch.
const (
	linePrefix = "file_"

	prefixOffer    = "file_offer:"
	prefixAccept   = "file_accept:"
	prefixDecline  = "file_decline:"
	prefixAccepted = "file_accepted:"
	prefixDeclined = "file_declined:"
	prefixBegin    = "file_begin_transfer:"
	prefixData     = "file_data:"
	prefixEnd      = "file_end:"
)

// IsTransferLine reports whether the line belongs to the transfer
// sub-protocol rather than chat or command dispatch.
func IsTransferLine(line string) bool {
	return strings.HasPrefix(line, linePrefix)
}

// Request is a transfer record sent by a client to the server.
type Request struct {
	Kind     RequestKind
	Target   string // peer player name
	FileName string
	Size     uint64
	Payload  string // hex chunk for data records
}

// RequestKind discriminates client-to-server transfer records.
type RequestKind int

const (
	RequestOffer RequestKind = iota
	RequestAccept
	RequestDecline
	RequestData
	RequestEnd
)

// ParseRequest parses a client-to-server transfer line.
//
// Wire forms:
//
//	file_offer:<target>:<filename>:<size>
//	file_accept:<target>
//	file_decline:<target>
//	file_data:<target>:<hex>
//	file_end:<target>
//
// Returns:
//   - The parsed request, or an error for unknown or malformed records
func ParseRequest(line string) (Request, error) {
	switch {
	case strings.HasPrefix(line, prefixOffer):
		parts := strings.SplitN(line[len(prefixOffer):], ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
			return Request{}, fmt.Errorf("malformed offer record: %q", line)
		}
		size, err := strconv.ParseUint(parts[2], 10, 64)
		if err != nil {
			return Request{}, fmt.Errorf("malformed offer size in %q: %w", line, err)
		}
		return Request{Kind: RequestOffer, Target: parts[0], FileName: parts[1], Size: size}, nil

	case strings.HasPrefix(line, prefixAccept):
		target := line[len(prefixAccept):]
		if target == "" {
			return Request{}, fmt.Errorf("malformed accept record: %q", line)
		}
		return Request{Kind: RequestAccept, Target: target}, nil

	case strings.HasPrefix(line, prefixDecline):
		target := line[len(prefixDecline):]
		if target == "" {
			return Request{}, fmt.Errorf("malformed decline record: %q", line)
		}
		return Request{Kind: RequestDecline, Target: target}, nil

	case strings.HasPrefix(line, prefixData):
		parts := strings.SplitN(line[len(prefixData):], ":", 2)
		if len(parts) != 2 || parts[0] == "" {
			return Request{}, fmt.Errorf("malformed data record: %q", line)
		}
		return Request{Kind: RequestData, Target: parts[0], Payload: parts[1]}, nil

	case strings.HasPrefix(line, prefixEnd):
		target := line[len(prefixEnd):]
		if target == "" {
			return Request{}, fmt.Errorf("malformed end record: %q", line)
		}
		return Request{Kind: RequestEnd, Target: target}, nil
	}

	return Request{}, fmt.Errorf("unknown transfer record: %q", line)
}

// FormatOffer builds the offer request a sending client emits.
func FormatOffer(target, fileName string, size uint64) string {
	return fmt.Sprintf("%s%s:%s:%d", prefixOffer, target, fileName, size)
}

// FormatAccept builds the accept request a receiving client emits.
func FormatAccept(target string) string {
	return prefixAccept + target
}

// FormatDecline builds the decline request a receiving client emits.
func FormatDecline(target string) string {
	return prefixDecline + target
}

// FormatDataRequest builds a data request carrying one hex chunk to target.
func FormatDataRequest(target, payload string) string {
	return prefixData + target + ":" + payload
}

// FormatEndRequest builds the end-of-transfer request.
func FormatEndRequest(target string) string {
	return prefixEnd + target
}

// Notice is a transfer record the server delivers to a client.
type Notice struct {
	Kind     NoticeKind
	Peer     string // sender name on offers, receiver name on accepted/declined
	FileName string
	Size     uint64
	Payload  string
}

// NoticeKind discriminates server-to-client transfer records.
type NoticeKind int

const (
	NoticeOffer NoticeKind = iota
	NoticeAccepted
	NoticeDeclined
	NoticeBegin
	NoticeData
	NoticeEnd
)

// ParseNotice parses a server-to-client transfer line.
//
// Wire forms:
//
//	file_offer:<filename>:<size>:<sender>
//	file_accepted:<receiver>
//	file_declined:<receiver>
//	file_begin_transfer:<filename>:<size>
//	file_data:<hex>
//	file_end:
func ParseNotice(line string) (Notice, error) {
	switch {
	case strings.HasPrefix(line, prefixOffer):
		parts := strings.SplitN(line[len(prefixOffer):], ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
			return Notice{}, fmt.Errorf("malformed offer notice: %q", line)
		}
		size, err := strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			return Notice{}, fmt.Errorf("malformed offer notice size in %q: %w", line, err)
		}
		return Notice{Kind: NoticeOffer, FileName: parts[0], Size: size, Peer: parts[2]}, nil

	case strings.HasPrefix(line, prefixAccepted):
		return Notice{Kind: NoticeAccepted, Peer: line[len(prefixAccepted):]}, nil

	case strings.HasPrefix(line, prefixDeclined):
		return Notice{Kind: NoticeDeclined, Peer: line[len(prefixDeclined):]}, nil

	case strings.HasPrefix(line, prefixBegin):
		parts := strings.SplitN(line[len(prefixBegin):], ":", 2)
		if len(parts) != 2 || parts[0] == "" {
			return Notice{}, fmt.Errorf("malformed begin notice: %q", line)
		}
		size, err := strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			return Notice{}, fmt.Errorf("malformed begin notice size in %q: %w", line, err)
		}
		return Notice{Kind: NoticeBegin, FileName: parts[0], Size: size}, nil

	case strings.HasPrefix(line, prefixData):
		return Notice{Kind: NoticeData, Payload: line[len(prefixData):]}, nil

	case strings.HasPrefix(line, prefixEnd):
		return Notice{Kind: NoticeEnd}, nil
	}

	return Notice{}, fmt.Errorf("unknown transfer notice: %q", line)
}

// FormatOfferNotice builds the offer notice relayed to the receiver.
func FormatOfferNotice(fileName string, size uint64, sender string) string {
	return fmt.Sprintf("%s%s:%d:%s", prefixOffer, fileName, size, sender)
}

// FormatAcceptedNotice builds the notice telling a sender its offer was taken.
func FormatAcceptedNotice(receiver string) string {
	return prefixAccepted + receiver
}

// FormatDeclinedNotice builds the notice telling a sender its offer was refused.
func FormatDeclinedNotice(receiver string) string {
	return prefixDeclined + receiver
}

// FormatBeginNotice builds the notice telling a receiver the stream is starting.
func FormatBeginNotice(fileName string, size uint64) string {
	return fmt.Sprintf("%s%s:%d", prefixBegin, fileName, size)
}

// FormatDataNotice builds a data notice carrying one hex chunk.
func FormatDataNotice(payload string) string {
	return prefixData + payload
}

// FormatEndNotice builds the end-of-transfer notice.
func FormatEndNotice() string {
	return prefixEnd
}
