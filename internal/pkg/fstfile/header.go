// Package fstfile stores compiled automata on disk.
//
// A file is a fixed 52-byte header followed by the compiled bytes:
//
//	offset size field
//	0      8    magic "LEXFST\x00\x01"
//	8      2    format version
//	10     2    flags (reserved, zero)
//	12     16   build id (UUID)
//	28     4    state count
//	32     4    key count
//	36     8    payload length
//	44     8    xxhash64 of the payload
//
// All integers are little-endian.
package fstfile

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/endorses/lexfst/internal/pkg/fst"
	"github.com/google/uuid"
)

const (
	// Magic identifies a lexfst file.
	Magic = "LEXFST\x00\x01"

	// Version is the only format version this package reads and writes.
	Version uint16 = 1

	// HeaderSize is the encoded size of a Header.
	HeaderSize = 52
)

var (
	ErrBadMagic           = errors.New("fstfile: not a lexfst file")
	ErrUnsupportedVersion = errors.New("fstfile: unsupported format version")
	ErrChecksumMismatch   = errors.New("fstfile: payload checksum mismatch")
	ErrTruncated          = errors.New("fstfile: file is truncated")
)

// Header describes the payload of a file.
type Header struct {
	Version    uint16    `json:"version"`
	Flags      uint16    `json:"flags"`
	BuildID    uuid.UUID `json:"build_id"`
	States     uint32    `json:"states"`
	Keys       uint32    `json:"keys"`
	PayloadLen uint64    `json:"payload_len"`
	Checksum   uint64    `json:"checksum"`
}

// NewHeader returns a header for a freshly built automaton with a new build
// id. PayloadLen and Checksum are filled in by Write.
func NewHeader(a *fst.Automaton) Header {
	return Header{
		Version: Version,
		BuildID: uuid.New(),
		States:  uint32(a.Dict.Len()),
		Keys:    uint32(a.Keys),
	}
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (h Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	copy(buf, Magic)
	binary.LittleEndian.PutUint16(buf[8:], h.Version)
	binary.LittleEndian.PutUint16(buf[10:], h.Flags)
	copy(buf[12:28], h.BuildID[:])
	binary.LittleEndian.PutUint32(buf[28:], h.States)
	binary.LittleEndian.PutUint32(buf[32:], h.Keys)
	binary.LittleEndian.PutUint64(buf[36:], h.PayloadLen)
	binary.LittleEndian.PutUint64(buf[44:], h.Checksum)
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. It checks the magic
// and version but not the payload.
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("%w: header needs %d bytes, have %d", ErrTruncated, HeaderSize, len(data))
	}
	if string(data[:len(Magic)]) != Magic {
		return ErrBadMagic
	}
	v := binary.LittleEndian.Uint16(data[8:])
	if v != Version {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
	h.Version = v
	h.Flags = binary.LittleEndian.Uint16(data[10:])
	copy(h.BuildID[:], data[12:28])
	h.States = binary.LittleEndian.Uint32(data[28:])
	h.Keys = binary.LittleEndian.Uint32(data[32:])
	h.PayloadLen = binary.LittleEndian.Uint64(data[36:])
	h.Checksum = binary.LittleEndian.Uint64(data[44:])
	return nil
}
