package rules

import (
	"fmt"
	"sort"
	"time"

	"example.com/aioforge/internal/aio"
)

// Raw byte regions audited directly, relative to each entry descriptor.
const (
	summaryReservedOff = 0x0F
	checksumPadOff     = 0x34
	entryReservedOff   = 0x40
)

func (e *Engine) RegisterBuiltins() {
	e.Register("CheckMagic", CheckMagic)
	e.Register("CheckHeaderSize", CheckHeaderSize)
	e.Register("CheckSummaryVersion", CheckSummaryVersion)
	e.Register("CheckUpdateControl", CheckUpdateControl)
	e.Register("CheckEntryCount", CheckEntryCount)
	e.Register("CheckEntryBounds", CheckEntryBounds)
	e.Register("CheckOverlap", CheckOverlap)
	e.Register("CheckChecksums", CheckChecksums)
	e.Register("CheckChecksumPadding", CheckChecksumPadding)
	e.Register("CheckReservedFill", CheckReservedFill)
	e.Register("CheckIdentity", CheckIdentity)
}

// DefaultRulePack covers every built-in check and is used when no rule
// pack file is supplied.
func DefaultRulePack() RulePack {
	return RulePack{
		RulePackId: "aio-default",
		Version:    "1.0",
		Profile:    "default",
		Rules: []Rule{
			{RuleId: "AIO-MAG-001", Name: "package magic", Scope: "image", Severity: ERROR, CheckFunc: "CheckMagic", Refs: []string{"summary.magic"}, Message: "file must open with the AIOH magic"},
			{RuleId: "AIO-HDR-001", Name: "header size", Scope: "summary", Severity: ERROR, CheckFunc: "CheckHeaderSize", Refs: []string{"summary.header_size"}, Message: "declared header size must match the entry count and fit the file"},
			{RuleId: "AIO-HDR-002", Name: "format version", Scope: "summary", Severity: WARN, CheckFunc: "CheckSummaryVersion", Refs: []string{"summary.version"}, Message: "summary version should be the supported format version"},
			{RuleId: "AIO-HDR-003", Name: "update control", Scope: "summary", Severity: WARN, CheckFunc: "CheckUpdateControl", Refs: []string{"summary.update_ctrl"}, Message: "update control byte should match the device profile"},
			{RuleId: "AIO-CNT-001", Name: "entry count", Scope: "summary", Severity: WARN, CheckFunc: "CheckEntryCount", Refs: []string{"summary.entry_count"}, Message: "a packaged image should describe at least one payload"},
			{RuleId: "AIO-ENT-001", Name: "entry bounds", Scope: "entry", Severity: ERROR, CheckFunc: "CheckEntryBounds", Refs: []string{"entry.data_offset", "entry.size"}, Message: "payload ranges must lie behind the header and inside the file"},
			{RuleId: "AIO-ENT-002", Name: "entry overlap", Scope: "entry", Severity: ERROR, CheckFunc: "CheckOverlap", Refs: []string{"entry.data_offset"}, Message: "payload ranges must not intersect"},
			{RuleId: "AIO-CRC-001", Name: "payload checksum", Scope: "entry", Severity: ERROR, CheckFunc: "CheckChecksums", Refs: []string{"entry.checksum"}, Message: "stored checksums must match the payload bytes"},
			{RuleId: "AIO-CRC-002", Name: "checksum padding", Scope: "entry", Severity: WARN, CheckFunc: "CheckChecksumPadding", Refs: []string{"entry.checksum"}, Message: "the 12 bytes behind each checksum must be zero"},
			{RuleId: "AIO-RSV-001", Name: "reserved fill", Scope: "entry", Severity: WARN, CheckFunc: "CheckReservedFill", Refs: []string{"summary.reserved", "entry.reserved"}, Message: "reserved regions must be 0xFF filled"},
			{RuleId: "AIO-IDN-001", Name: "device identity", Scope: "entry", Severity: WARN, CheckFunc: "CheckIdentity", Refs: []string{"entry.vendor_id", "entry.product_id"}, Message: "identity fields should match the device profile"},
		},
	}
}

func CheckMagic(ctx *Context, rule Rule) (Diagnostic, error) {
	diag := Diagnostic{
		Ts: time.Now(), File: ctx.InputFile, RuleId: rule.RuleId,
		Severity: INFO, Message: "package magic present", Refs: rule.Refs,
	}
	if !aio.HasHeader(ctx.Image) {
		diag.Severity = ERROR
		diag.Message = "file does not open with the AIOH magic"
		diag.Offset = "0x0"
	}
	return diag, nil
}

func CheckHeaderSize(ctx *Context, rule Rule) (Diagnostic, error) {
	diag := Diagnostic{
		Ts: time.Now(), File: ctx.InputFile, RuleId: rule.RuleId,
		Severity: INFO, Refs: rule.Refs, Offset: "0x6",
	}
	summary, err := aio.DecodeSummary(ctx.Image)
	if err != nil {
		diag.Severity = ERROR
		diag.Message = "cannot read summary block"
		return diag, err
	}
	expected := aio.HeaderSize(int(summary.EntryCount))
	switch {
	case uint64(summary.HeaderSize) != expected:
		diag.Severity = ERROR
		diag.Message = fmt.Sprintf("declared header size 0x%X does not match 0x%X for %d entries",
			summary.HeaderSize, expected, summary.EntryCount)
	case int(summary.HeaderSize) > len(ctx.Image):
		diag.Severity = ERROR
		diag.Message = fmt.Sprintf("declared header size 0x%X exceeds the %d byte file",
			summary.HeaderSize, len(ctx.Image))
	default:
		diag.Message = fmt.Sprintf("header size 0x%X consistent with %d entries", summary.HeaderSize, summary.EntryCount)
	}
	return diag, nil
}

func CheckSummaryVersion(ctx *Context, rule Rule) (Diagnostic, error) {
	diag := Diagnostic{
		Ts: time.Now(), File: ctx.InputFile, RuleId: rule.RuleId,
		Severity: INFO, Refs: rule.Refs, Offset: "0x4",
	}
	summary, err := aio.DecodeSummary(ctx.Image)
	if err != nil {
		diag.Severity = ERROR
		diag.Message = "cannot read summary block"
		return diag, err
	}
	if summary.Version != aio.FormatVersion {
		diag.Severity = WARN
		diag.Message = fmt.Sprintf("summary version 0x%04X, expected 0x%04X", summary.Version, aio.FormatVersion)
		return diag, nil
	}
	diag.Message = "format version ok"
	return diag, nil
}

func CheckUpdateControl(ctx *Context, rule Rule) (Diagnostic, error) {
	diag := Diagnostic{
		Ts: time.Now(), File: ctx.InputFile, RuleId: rule.RuleId,
		Severity: INFO, Refs: rule.Refs, Offset: "0xD",
	}
	summary, err := aio.DecodeSummary(ctx.Image)
	if err != nil {
		diag.Severity = ERROR
		diag.Message = "cannot read summary block"
		return diag, err
	}
	if summary.UpdateCtrl != ctx.Profile.UpdateControl {
		diag.Severity = WARN
		diag.Message = fmt.Sprintf("update control 0x%02X, profile expects 0x%02X", summary.UpdateCtrl, ctx.Profile.UpdateControl)
		return diag, nil
	}
	diag.Message = "update control ok"
	return diag, nil
}

func CheckEntryCount(ctx *Context, rule Rule) (Diagnostic, error) {
	diag := Diagnostic{
		Ts: time.Now(), File: ctx.InputFile, RuleId: rule.RuleId,
		Severity: INFO, Refs: rule.Refs, Offset: "0xE",
	}
	summary, err := aio.DecodeSummary(ctx.Image)
	if err != nil {
		diag.Severity = ERROR
		diag.Message = "cannot read summary block"
		return diag, err
	}
	if summary.EntryCount == 0 {
		diag.Severity = WARN
		diag.Message = "image describes no payloads"
		return diag, nil
	}
	diag.Message = fmt.Sprintf("%d entries described", summary.EntryCount)
	return diag, nil
}

func CheckEntryBounds(ctx *Context, rule Rule) (Diagnostic, error) {
	diag := Diagnostic{
		Ts: time.Now(), File: ctx.InputFile, RuleId: rule.RuleId,
		Severity: INFO, Refs: rule.Refs,
	}
	if err := ctx.EnsureInspection(); err != nil {
		diag.Severity = ERROR
		diag.Message = "cannot decode entry descriptors"
		return diag, err
	}
	ins := ctx.Inspection
	var bad []int
	for _, e := range ins.Entries {
		if uint64(e.DataOffset) < uint64(ins.Summary.HeaderSize) || e.End() > uint64(ins.FileSize) {
			bad = append(bad, e.Position)
		}
	}
	if len(bad) > 0 {
		first := ins.Entries[bad[0]]
		diag.Severity = ERROR
		diag.EntryIndex = bad[0]
		diag.Offset = fmt.Sprintf("0x%X", first.DataOffset)
		diag.Message = fmt.Sprintf("%d of %d payload ranges leave the file or hit the header, first is entry %d at [0x%X,0x%X)",
			len(bad), len(ins.Entries), bad[0], first.DataOffset, first.End())
		return diag, nil
	}
	diag.Message = fmt.Sprintf("all %d payload ranges inside the file", len(ins.Entries))
	return diag, nil
}

func CheckOverlap(ctx *Context, rule Rule) (Diagnostic, error) {
	diag := Diagnostic{
		Ts: time.Now(), File: ctx.InputFile, RuleId: rule.RuleId,
		Severity: INFO, Refs: rule.Refs,
	}
	if err := ctx.EnsureInspection(); err != nil {
		diag.Severity = ERROR
		diag.Message = "cannot decode entry descriptors"
		return diag, err
	}
	entries := append([]aio.InspectedEntry(nil), ctx.Inspection.Entries...)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].DataOffset < entries[j].DataOffset })
	coveredEnd := uint64(0)
	coveredPos := -1
	for _, e := range entries {
		if e.DataSize == 0 {
			continue
		}
		if uint64(e.DataOffset) < coveredEnd {
			diag.Severity = ERROR
			diag.EntryIndex = e.Position
			diag.Offset = fmt.Sprintf("0x%X", e.DataOffset)
			diag.Message = fmt.Sprintf("entries %d and %d overlap at 0x%X", coveredPos, e.Position, e.DataOffset)
			return diag, nil
		}
		if end := e.End(); end > coveredEnd {
			coveredEnd, coveredPos = end, e.Position
		}
	}
	diag.Message = "payload ranges are disjoint"
	return diag, nil
}

func CheckChecksums(ctx *Context, rule Rule) (Diagnostic, error) {
	diag := Diagnostic{
		Ts: time.Now(), File: ctx.InputFile, RuleId: rule.RuleId,
		Severity: INFO, Refs: rule.Refs,
	}
	if err := ctx.EnsureInspection(); err != nil {
		diag.Severity = ERROR
		diag.Message = "cannot decode entry descriptors"
		return diag, err
	}
	var mismatched int
	firstPos := -1
	var firstStored, firstComputed uint32
	for _, e := range ctx.Inspection.Entries {
		payload, ok := e.Payload(ctx.Image)
		if !ok {
			continue
		}
		computed := aio.Checksum(payload)
		if computed == e.Checksum {
			continue
		}
		if mismatched == 0 {
			firstPos, firstStored, firstComputed = e.Position, e.Checksum, computed
		}
		mismatched++
	}
	if mismatched > 0 {
		diag.Severity = ERROR
		diag.EntryIndex = firstPos
		diag.Message = fmt.Sprintf("%d checksum mismatches, first is entry %d (stored 0x%08X, computed 0x%08X)",
			mismatched, firstPos, firstStored, firstComputed)
		return diag, nil
	}
	diag.Message = fmt.Sprintf("checksums verified on %d entries", len(ctx.Inspection.Entries))
	return diag, nil
}

func CheckChecksumPadding(ctx *Context, rule Rule) (Diagnostic, error) {
	diag := Diagnostic{
		Ts: time.Now(), File: ctx.InputFile, RuleId: rule.RuleId,
		Severity: INFO, Refs: rule.Refs,
	}
	if err := ctx.EnsureInspection(); err != nil {
		diag.Severity = ERROR
		diag.Message = "cannot decode entry descriptors"
		return diag, err
	}
	var bad []int
	for i := range ctx.Inspection.Entries {
		start := aio.SummaryHeaderSize + i*aio.EntryHeaderSize
		pad := ctx.Image[start+checksumPadOff : start+entryReservedOff]
		for _, b := range pad {
			if b != 0x00 {
				bad = append(bad, i)
				break
			}
		}
	}
	if len(bad) > 0 {
		diag.Severity = WARN
		diag.EntryIndex = bad[0]
		diag.Message = fmt.Sprintf("checksum padding not zero on %d entries, first is entry %d", len(bad), bad[0])
		return diag, nil
	}
	diag.Message = "checksum padding zeroed"
	return diag, nil
}

func CheckReservedFill(ctx *Context, rule Rule) (Diagnostic, error) {
	diag := Diagnostic{
		Ts: time.Now(), File: ctx.InputFile, RuleId: rule.RuleId,
		Severity: INFO, Refs: rule.Refs,
	}
	if err := ctx.EnsureInspection(); err != nil {
		diag.Severity = ERROR
		diag.Message = "cannot decode entry descriptors"
		return diag, err
	}
	allSet := func(buf []byte) bool {
		for _, b := range buf {
			if b != 0xFF {
				return false
			}
		}
		return true
	}
	if !allSet(ctx.Image[summaryReservedOff:aio.SummaryHeaderSize]) {
		diag.Severity = WARN
		diag.Offset = fmt.Sprintf("0x%X", summaryReservedOff)
		diag.Message = "summary reserved region not 0xFF filled"
		return diag, nil
	}
	for i := range ctx.Inspection.Entries {
		start := aio.SummaryHeaderSize + i*aio.EntryHeaderSize
		if !allSet(ctx.Image[start+entryReservedOff : start+aio.EntryHeaderSize]) {
			diag.Severity = WARN
			diag.EntryIndex = i
			diag.Offset = fmt.Sprintf("0x%X", start+entryReservedOff)
			diag.Message = fmt.Sprintf("entry %d reserved region not 0xFF filled", i)
			return diag, nil
		}
	}
	diag.Message = "reserved regions 0xFF filled"
	return diag, nil
}

func CheckIdentity(ctx *Context, rule Rule) (Diagnostic, error) {
	diag := Diagnostic{
		Ts: time.Now(), File: ctx.InputFile, RuleId: rule.RuleId,
		Severity: INFO, Refs: rule.Refs,
	}
	if err := ctx.EnsureInspection(); err != nil {
		diag.Severity = ERROR
		diag.Message = "cannot decode entry descriptors"
		return diag, err
	}
	prof := ctx.Profile
	summary := ctx.Inspection.Summary
	var faults []string
	if summary.DeviceType != prof.DeviceType {
		faults = append(faults, fmt.Sprintf("device type 0x%02X (profile 0x%02X)", summary.DeviceType, prof.DeviceType))
	}
	if summary.FwVersion != prof.ImageVersion {
		faults = append(faults, fmt.Sprintf("image version 0x%08X (profile 0x%08X)", summary.FwVersion, prof.ImageVersion))
	}
	for _, e := range ctx.Inspection.Entries {
		switch {
		case e.VendorID != prof.VendorID:
			faults = append(faults, fmt.Sprintf("entry %d vendor 0x%04X (profile 0x%04X)", e.Position, e.VendorID, prof.VendorID))
		case e.ProductID != prof.ProductID:
			faults = append(faults, fmt.Sprintf("entry %d product 0x%04X (profile 0x%04X)", e.Position, e.ProductID, prof.ProductID))
		case e.UniqueID != prof.UniqueID:
			faults = append(faults, fmt.Sprintf("entry %d unique id 0x%04X (profile 0x%04X)", e.Position, e.UniqueID, prof.UniqueID))
		case e.FwVersion != prof.EntryVersion:
			faults = append(faults, fmt.Sprintf("entry %d firmware version 0x%04X (profile 0x%04X)", e.Position, e.FwVersion, prof.EntryVersion))
		}
	}
	if len(faults) > 0 {
		diag.Severity = WARN
		diag.Message = fmt.Sprintf("%d identity mismatches, first: %s", len(faults), faults[0])
		return diag, nil
	}
	name := ctx.ProfileName
	if name == "" {
		name = "default"
	}
	diag.Message = fmt.Sprintf("identity matches profile %s", name)
	return diag, nil
}
