package aio

import (
	"bytes"
	"encoding/binary"
)

// HasHeader reports whether data opens with the package magic.
func HasHeader(data []byte) bool {
	return len(data) >= len(Magic) && bytes.Equal(data[:len(Magic)], Magic[:])
}

// ExtractPayload strips a previously written package header from base
// and returns the clean firmware payload. Input without the magic is
// returned unchanged, so plain firmware dumps pass straight through. A
// nil base is rejected with ErrEmptyInput; an empty non-nil base is a
// valid zero-length payload.
//
// Only the declared header size is trusted for stripping. It must fit
// inside the image and cannot be shorter than the magic itself,
// otherwise the image is reported as malformed rather than silently
// re-wrapped on the next merge.
func ExtractPayload(base []byte) ([]byte, error) {
	if base == nil {
		return nil, ErrEmptyInput
	}
	if !HasHeader(base) {
		return base, nil
	}
	if len(base) < sumOffHeaderSize+2 {
		return nil, MalformedHeaderError{HeaderSize: -1, FileSize: len(base)}
	}
	headerSize := binary.LittleEndian.Uint16(base[sumOffHeaderSize:])
	if int(headerSize) < len(Magic) || int(headerSize) > len(base) {
		return nil, MalformedHeaderError{HeaderSize: int(headerSize), FileSize: len(base)}
	}
	return base[headerSize:], nil
}
