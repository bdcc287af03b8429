// Package transfer implements the file-transfer sub-protocol that rides on
// the same newline-delimited channel as chat. Control records are plain text
// lines with reserved "file_" prefixes; file content travels as hex-encoded
// chunks so it can never contain a newline.
package transfer

import "encoding/hex"

// ChunkSize is the number of raw file bytes carried per data record before
// hex encoding doubles them.
const ChunkSize = 2048

// EncodeChunk hex-encodes a chunk of raw bytes, two lowercase digits per byte.
func EncodeChunk(data []byte) string {
	return hex.EncodeToString(data)
}

// DecodeChunk decodes a hex payload back into raw bytes. Decoding accepts
// both digit cases. Odd-length or otherwise malformed payloads decode to an
// empty slice; the caller treats that as a protocol error.
func DecodeChunk(payload string) []byte {
	if len(payload)%2 != 0 {
		return nil
	}

	data, err := hex.DecodeString(payload)
	if err != nil {
		return nil
	}

	return data
}
