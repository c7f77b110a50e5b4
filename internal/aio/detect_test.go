package aio

import (
	"bytes"
	"errors"
	"testing"
)

func TestHasHeader(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{name: "magic", data: []byte("AIOHrest"), want: true},
		{name: "magic only", data: []byte("AIOH"), want: true},
		{name: "plain payload", data: []byte{0xDE, 0xAD, 0xBE, 0xEF}, want: false},
		{name: "short", data: []byte("AIO"), want: false},
		{name: "empty", data: nil, want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := HasHeader(tc.data); got != tc.want {
				t.Fatalf("HasHeader = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestExtractPayloadPlainInput(t *testing.T) {
	raw := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	got, err := ExtractPayload(raw)
	if err != nil {
		t.Fatalf("ExtractPayload returned error: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Fatalf("payload = % X, want input unchanged", got)
	}
}

func TestExtractPayloadNilBase(t *testing.T) {
	if _, err := ExtractPayload(nil); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestExtractPayloadEmptyBase(t *testing.T) {
	got, err := ExtractPayload([]byte{})
	if err != nil {
		t.Fatalf("ExtractPayload returned error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("payload length = %d, want 0", len(got))
	}
}

func TestExtractPayloadStripsHeader(t *testing.T) {
	payload := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	packaged := packagedImage(t, 0x20, payload)
	got, err := ExtractPayload(packaged)
	if err != nil {
		t.Fatalf("ExtractPayload returned error: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload = % X, want % X", got, payload)
	}
}

func TestExtractPayloadHeaderIsWholeFile(t *testing.T) {
	packaged := packagedImage(t, 0x20, nil)
	got, err := ExtractPayload(packaged)
	if err != nil {
		t.Fatalf("ExtractPayload returned error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("payload length = %d, want 0", len(got))
	}
}

func TestExtractPayloadMalformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "too short for size field", data: []byte("AIOH\x01")},
		{name: "declared size below magic", data: packagedImage(t, 0x0003, []byte{0x00})},
		{name: "declared size past end", data: packagedImage(t, 0x0100, nil)[:0x40]},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ExtractPayload(tc.data)
			var malformed MalformedHeaderError
			if !errors.As(err, &malformed) {
				t.Fatalf("expected MalformedHeaderError, got %v", err)
			}
			if malformed.FileSize != len(tc.data) {
				t.Fatalf("FileSize = %d, want %d", malformed.FileSize, len(tc.data))
			}
		})
	}
}

// packagedImage builds a minimal byte buffer opening with the magic and
// the given declared header size, padded with zeros up to that size,
// followed by payload.
func packagedImage(t *testing.T, headerSize uint16, payload []byte) []byte {
	t.Helper()
	size := int(headerSize)
	if size < sumOffHeaderSize+2 {
		size = sumOffHeaderSize + 2
	}
	buf := make([]byte, size)
	copy(buf, Magic[:])
	buf[sumOffHeaderSize] = byte(headerSize)
	buf[sumOffHeaderSize+1] = byte(headerSize >> 8)
	return append(buf, payload...)
}
