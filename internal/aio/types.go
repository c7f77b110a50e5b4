// Package aio merges loose firmware payloads into a single packaged
// image. A packaged image opens with a fixed summary block followed by
// one descriptor per payload; the payloads themselves sit behind the
// metadata region at the offsets the descriptors advertise. All
// multi-byte header fields are little-endian.
package aio

const (
	// SummaryHeaderSize is the fixed width of the summary block that
	// opens every packaged image.
	SummaryHeaderSize = 0x20
	// EntryHeaderSize is the width of one payload descriptor.
	EntryHeaderSize = 0x50

	// FormatVersion is written into the summary version field.
	FormatVersion uint16 = 0x0001

	// MaxEntryCount is the capacity of the one-byte entry counter.
	MaxEntryCount = 0xFF
	// MaxHeaderSize is the capacity of the two-byte header size field.
	MaxHeaderSize = 0xFFFF
)

// Magic marks the first four bytes of a packaged image.
var Magic = [4]byte{'A', 'I', 'O', 'H'}

// Summary block field offsets.
const (
	sumOffVersion    = 0x04
	sumOffHeaderSize = 0x06
	sumOffDeviceType = 0x08
	sumOffFwVersion  = 0x09
	sumOffUpdateCtrl = 0x0D
	sumOffEntryCount = 0x0E
	sumOffReserved   = 0x0F
)

// Entry descriptor field offsets, relative to the descriptor start.
const (
	entOffVendorID   = 0x00
	entOffProductID  = 0x22
	entOffUniqueID   = 0x24
	entOffFwVersion  = 0x26
	entOffDataOffset = 0x28
	entOffDataSize   = 0x2C
	entOffChecksum   = 0x30
	entOffReserved   = 0x40
)

// HeaderSize returns the metadata region width for an image holding
// entryCount payloads. The result can exceed the summary field range;
// the planner rejects such layouts.
func HeaderSize(entryCount int) uint64 {
	return SummaryHeaderSize + uint64(entryCount)*EntryHeaderSize
}

// Target is one firmware file queued for merging. A nil Offset asks
// for sequential placement behind the previously placed payload; a
// non-nil Offset pins the payload to that absolute position.
type Target struct {
	Name   string
	Data   []byte
	Offset *uint32
}

// PlacedEntry is a payload with its resolved position in the output
// image. Index is the position in merge input order, where index zero
// is always the base payload.
type PlacedEntry struct {
	Index     int
	Name      string
	Data      []byte
	Offset    uint32
	Size      uint32
	Requested bool
}

// End returns the first byte past the payload.
func (e PlacedEntry) End() uint32 { return e.Offset + e.Size }

// LayoutPlan fixes where every payload lands in the output image.
// Entries are ordered by ascending offset.
type LayoutPlan struct {
	Entries    []PlacedEntry
	HeaderSize uint32
	TotalSize  uint32
}

// SummaryHeader is the decoded form of the summary block.
type SummaryHeader struct {
	Version    uint16
	HeaderSize uint16
	DeviceType uint8
	FwVersion  uint32
	UpdateCtrl uint8
	EntryCount uint8
}

// EntryHeader is the decoded form of one payload descriptor.
type EntryHeader struct {
	VendorID   uint16
	ProductID  uint16
	UniqueID   uint16
	FwVersion  uint16
	DataOffset uint32
	DataSize   uint32
	Checksum   uint32
}

// End returns the first byte past the payload the descriptor covers.
func (h EntryHeader) End() uint64 { return uint64(h.DataOffset) + uint64(h.DataSize) }
