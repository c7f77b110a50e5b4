package aio

import (
	"encoding/binary"
	"fmt"
)

// encode writes the summary block into buf, which must hold at least
// SummaryHeaderSize bytes. Bytes not claimed by a field keep whatever
// buf already holds, so callers hand in a zeroed slice.
func (h SummaryHeader) encode(buf []byte) {
	copy(buf, Magic[:])
	binary.LittleEndian.PutUint16(buf[sumOffVersion:], h.Version)
	binary.LittleEndian.PutUint16(buf[sumOffHeaderSize:], h.HeaderSize)
	buf[sumOffDeviceType] = h.DeviceType
	binary.LittleEndian.PutUint32(buf[sumOffFwVersion:], h.FwVersion)
	buf[sumOffUpdateCtrl] = h.UpdateCtrl
	buf[sumOffEntryCount] = h.EntryCount
	fillReserved(buf[sumOffReserved:SummaryHeaderSize])
}

// encode writes one payload descriptor into buf, which must hold at
// least EntryHeaderSize zeroed bytes.
func (h EntryHeader) encode(buf []byte) {
	binary.LittleEndian.PutUint16(buf[entOffVendorID:], h.VendorID)
	binary.LittleEndian.PutUint16(buf[entOffProductID:], h.ProductID)
	binary.LittleEndian.PutUint16(buf[entOffUniqueID:], h.UniqueID)
	binary.LittleEndian.PutUint16(buf[entOffFwVersion:], h.FwVersion)
	binary.LittleEndian.PutUint32(buf[entOffDataOffset:], h.DataOffset)
	binary.LittleEndian.PutUint32(buf[entOffDataSize:], h.DataSize)
	binary.LittleEndian.PutUint32(buf[entOffChecksum:], h.Checksum)
	fillReserved(buf[entOffReserved:EntryHeaderSize])
}

func fillReserved(buf []byte) {
	for i := range buf {
		buf[i] = 0xFF
	}
}

func parseSummaryHeader(buf []byte) SummaryHeader {
	return SummaryHeader{
		Version:    binary.LittleEndian.Uint16(buf[sumOffVersion:]),
		HeaderSize: binary.LittleEndian.Uint16(buf[sumOffHeaderSize:]),
		DeviceType: buf[sumOffDeviceType],
		FwVersion:  binary.LittleEndian.Uint32(buf[sumOffFwVersion:]),
		UpdateCtrl: buf[sumOffUpdateCtrl],
		EntryCount: buf[sumOffEntryCount],
	}
}

func parseEntryHeader(buf []byte) EntryHeader {
	return EntryHeader{
		VendorID:   binary.LittleEndian.Uint16(buf[entOffVendorID:]),
		ProductID:  binary.LittleEndian.Uint16(buf[entOffProductID:]),
		UniqueID:   binary.LittleEndian.Uint16(buf[entOffUniqueID:]),
		FwVersion:  binary.LittleEndian.Uint16(buf[entOffFwVersion:]),
		DataOffset: binary.LittleEndian.Uint32(buf[entOffDataOffset:]),
		DataSize:   binary.LittleEndian.Uint32(buf[entOffDataSize:]),
		Checksum:   binary.LittleEndian.Uint32(buf[entOffChecksum:]),
	}
}

// BuildHeader renders the full metadata region for plan: the summary
// block followed by one descriptor per entry, in the plan's ascending
// offset order. checksums must align with plan.Entries. Identity fields
// come from the device profile.
func BuildHeader(plan LayoutPlan, checksums []uint32, profile DeviceProfile) ([]byte, error) {
	if len(checksums) != len(plan.Entries) {
		return nil, fmt.Errorf("aio: %d checksums for %d entries", len(checksums), len(plan.Entries))
	}
	count := len(plan.Entries)
	headerSize := HeaderSize(count)
	if count > MaxEntryCount || headerSize > MaxHeaderSize {
		return nil, HeaderOverflowError{EntryCount: count, HeaderSize: headerSize}
	}
	profile.applyDefaults()

	buf := make([]byte, headerSize)
	SummaryHeader{
		Version:    FormatVersion,
		HeaderSize: uint16(headerSize),
		DeviceType: profile.DeviceType,
		FwVersion:  profile.ImageVersion,
		UpdateCtrl: profile.UpdateControl,
		EntryCount: uint8(count),
	}.encode(buf)

	for i, e := range plan.Entries {
		EntryHeader{
			VendorID:   profile.VendorID,
			ProductID:  profile.ProductID,
			UniqueID:   profile.UniqueID,
			FwVersion:  profile.EntryVersion,
			DataOffset: e.Offset,
			DataSize:   e.Size,
			Checksum:   checksums[i],
		}.encode(buf[SummaryHeaderSize+i*EntryHeaderSize:])
	}
	return buf, nil
}
