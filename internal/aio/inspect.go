package aio

import (
	"encoding/binary"
	"sort"
)

// InspectedEntry is one descriptor read back from a packaged image.
// Position is its order in the header block; GapBefore counts the fill
// bytes between the previously covered region and this payload.
type InspectedEntry struct {
	EntryHeader
	Position  int
	GapBefore uint32
}

// Payload returns the byte range the descriptor covers, or false when
// the range leaves the image.
func (e InspectedEntry) Payload(data []byte) ([]byte, bool) {
	if e.End() > uint64(len(data)) {
		return nil, false
	}
	return data[e.DataOffset:e.End()], true
}

// Inspection is the decoded metadata of a packaged image.
type Inspection struct {
	Summary  SummaryHeader
	Entries  []InspectedEntry
	FileSize int
}

// DecodeSummary reads the summary block alone, validating only the
// magic and that the block is present in full. Callers that need the
// raw fields of a suspect image use this instead of Inspect.
func DecodeSummary(data []byte) (SummaryHeader, error) {
	if !HasHeader(data) {
		return SummaryHeader{}, ErrNotPackaged
	}
	if len(data) < SummaryHeaderSize {
		declared := -1
		if len(data) >= sumOffHeaderSize+2 {
			declared = int(binary.LittleEndian.Uint16(data[sumOffHeaderSize:]))
		}
		return SummaryHeader{}, MalformedHeaderError{HeaderSize: declared, FileSize: len(data)}
	}
	return parseSummaryHeader(data), nil
}

// Inspect decodes the header region of a packaged image. It validates
// only what is needed to walk the descriptors: the magic, a summary
// header size matching the entry count, and a header that fits in the
// file. Semantic faults such as out-of-range payloads or checksum
// mismatches are left to the verification rules.
func Inspect(data []byte) (*Inspection, error) {
	summary, err := DecodeSummary(data)
	if err != nil {
		return nil, err
	}
	expected := HeaderSize(int(summary.EntryCount))
	if uint64(summary.HeaderSize) != expected || int(summary.HeaderSize) > len(data) {
		return nil, MalformedHeaderError{HeaderSize: int(summary.HeaderSize), FileSize: len(data)}
	}

	entries := make([]InspectedEntry, summary.EntryCount)
	for i := range entries {
		start := SummaryHeaderSize + i*EntryHeaderSize
		entries[i] = InspectedEntry{
			EntryHeader: parseEntryHeader(data[start : start+EntryHeaderSize]),
			Position:    i,
		}
	}
	fillGaps(entries, uint64(summary.HeaderSize))

	return &Inspection{Summary: summary, Entries: entries, FileSize: len(data)}, nil
}

// fillGaps computes GapBefore for each entry against the regions
// covered so far, walking payloads in offset order.
func fillGaps(entries []InspectedEntry, headerEnd uint64) {
	order := make([]int, len(entries))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return entries[order[a]].DataOffset < entries[order[b]].DataOffset
	})
	covered := headerEnd
	for _, i := range order {
		e := &entries[i]
		if uint64(e.DataOffset) > covered {
			e.GapBefore = uint32(uint64(e.DataOffset) - covered)
		}
		if end := e.End(); end > covered {
			covered = end
		}
	}
}
