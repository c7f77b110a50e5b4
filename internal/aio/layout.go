package aio

import (
	"fmt"
	"math"
	"sort"
)

// PlanLayout resolves an absolute position for the base payload and
// every target. The base always occupies input index zero and is placed
// sequentially, so it lands directly behind the metadata region.
//
// Placement walks the inputs in order with a cursor that starts at the
// header size. A target without an explicit offset is placed at the
// cursor; an explicit offset is honored verbatim when it clears the
// metadata region and rejected otherwise. After every placement the
// cursor moves to the end of that payload, so an explicit offset also
// rebases where the next sequential payload goes.
//
// The returned plan lists entries by ascending offset and is verified
// free of byte range overlaps. Zero-length payloads occupy no bytes and
// cannot collide with anything.
func PlanLayout(base []byte, targets []Target) (LayoutPlan, error) {
	count := 1 + len(targets)
	headerSize := HeaderSize(count)
	if count > MaxEntryCount || headerSize > MaxHeaderSize {
		return LayoutPlan{}, HeaderOverflowError{EntryCount: count, HeaderSize: headerSize}
	}

	entries := make([]PlacedEntry, 0, count)
	cursor := headerSize
	place := func(index int, name string, data []byte, requested *uint32) error {
		size := uint64(len(data))
		if size > math.MaxUint32 {
			return fmt.Errorf("%w: entry %d (%s) holds %d bytes", ErrImageTooLarge, index, entryLabel(name), len(data))
		}
		offset := cursor
		if requested != nil {
			offset = uint64(*requested)
			if offset < headerSize {
				return OffsetCollisionError{Index: index, Name: name, Offset: *requested, HeaderSize: uint32(headerSize)}
			}
		}
		end := offset + size
		if end > math.MaxUint32 {
			return fmt.Errorf("%w: entry %d (%s) ends at 0x%X", ErrImageTooLarge, index, entryLabel(name), end)
		}
		entries = append(entries, PlacedEntry{
			Index:     index,
			Name:      name,
			Data:      data,
			Offset:    uint32(offset),
			Size:      uint32(size),
			Requested: requested != nil,
		})
		cursor = end
		return nil
	}

	if err := place(0, "", base, nil); err != nil {
		return LayoutPlan{}, err
	}
	for i, t := range targets {
		if err := place(i+1, t.Name, t.Data, t.Offset); err != nil {
			return LayoutPlan{}, err
		}
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Offset < entries[j].Offset })

	total := headerSize
	var covered PlacedEntry
	coveredEnd := uint64(0)
	for _, e := range entries {
		if end := uint64(e.Offset) + uint64(e.Size); end > total {
			total = end
		}
		if e.Size == 0 {
			continue
		}
		if uint64(e.Offset) < coveredEnd {
			return LayoutPlan{}, OverlapError{
				FirstIndex:  covered.Index,
				FirstName:   covered.Name,
				FirstStart:  covered.Offset,
				FirstEnd:    covered.End(),
				SecondIndex: e.Index,
				SecondName:  e.Name,
				SecondStart: e.Offset,
				SecondEnd:   e.End(),
			}
		}
		if end := uint64(e.Offset) + uint64(e.Size); end > coveredEnd {
			covered, coveredEnd = e, end
		}
	}

	return LayoutPlan{Entries: entries, HeaderSize: uint32(headerSize), TotalSize: uint32(total)}, nil
}
