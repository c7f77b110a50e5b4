package aio

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput reports a merge invoked without a base image.
	ErrEmptyInput = errors.New("aio: no base image supplied")
	// ErrImageTooLarge reports a layout that leaves 32-bit addressing.
	ErrImageTooLarge = errors.New("aio: layout exceeds 32-bit addressing")
	// ErrNotPackaged reports an inspect of a file without the package magic.
	ErrNotPackaged = errors.New("aio: image does not begin with the AIOH magic")
)

// MalformedHeaderError reports an image that carries the package magic
// but whose declared header size cannot be honored. HeaderSize is -1
// when the image is too short to hold the size field at all.
type MalformedHeaderError struct {
	HeaderSize int
	FileSize   int
}

func (e MalformedHeaderError) Error() string {
	if e.HeaderSize < 0 {
		return fmt.Sprintf("aio: magic present but %d byte image cannot hold the header size field", e.FileSize)
	}
	return fmt.Sprintf("aio: declared header size 0x%04X out of range for %d byte image", e.HeaderSize, e.FileSize)
}

// OffsetCollisionError reports an explicit placement that would bury a
// payload inside the metadata region.
type OffsetCollisionError struct {
	Index      int
	Name       string
	Offset     uint32
	HeaderSize uint32
}

func (e OffsetCollisionError) Error() string {
	return fmt.Sprintf("aio: entry %d (%s) requests offset 0x%X inside the 0x%X byte header region",
		e.Index, entryLabel(e.Name), e.Offset, e.HeaderSize)
}

// OverlapError reports two placed payloads whose byte ranges intersect.
// Indexes refer to merge input order.
type OverlapError struct {
	FirstIndex  int
	FirstName   string
	FirstStart  uint32
	FirstEnd    uint32
	SecondIndex int
	SecondName  string
	SecondStart uint32
	SecondEnd   uint32
}

func (e OverlapError) Error() string {
	return fmt.Sprintf("aio: entry %d (%s) at [0x%X,0x%X) overlaps entry %d (%s) at [0x%X,0x%X)",
		e.SecondIndex, entryLabel(e.SecondName), e.SecondStart, e.SecondEnd,
		e.FirstIndex, entryLabel(e.FirstName), e.FirstStart, e.FirstEnd)
}

// HeaderOverflowError reports a merge with more payloads than the
// summary counter or header size field can describe.
type HeaderOverflowError struct {
	EntryCount int
	HeaderSize uint64
}

func (e HeaderOverflowError) Error() string {
	return fmt.Sprintf("aio: %d entries need a 0x%X byte header, beyond the summary field capacity",
		e.EntryCount, e.HeaderSize)
}

func entryLabel(name string) string {
	if name == "" {
		return "unnamed"
	}
	return name
}
