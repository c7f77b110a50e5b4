package aio

import (
	"errors"
	"testing"
)

func u32ptr(v uint32) *uint32 { return &v }

func TestPlanLayoutBaseOnly(t *testing.T) {
	plan, err := PlanLayout(make([]byte, 16), nil)
	if err != nil {
		t.Fatalf("PlanLayout returned error: %v", err)
	}
	if plan.HeaderSize != 0x70 {
		t.Fatalf("HeaderSize = 0x%X, want 0x70", plan.HeaderSize)
	}
	if len(plan.Entries) != 1 {
		t.Fatalf("entry count = %d, want 1", len(plan.Entries))
	}
	e := plan.Entries[0]
	if e.Index != 0 || e.Offset != 0x70 || e.Size != 16 {
		t.Fatalf("base entry = {index %d offset 0x%X size %d}, want {0, 0x70, 16}", e.Index, e.Offset, e.Size)
	}
	if plan.TotalSize != 0x80 {
		t.Fatalf("TotalSize = 0x%X, want 0x80", plan.TotalSize)
	}
}

func TestPlanLayoutSequentialChain(t *testing.T) {
	targets := []Target{
		{Name: "one", Data: make([]byte, 0x30)},
		{Name: "two", Data: make([]byte, 0x08)},
	}
	plan, err := PlanLayout(make([]byte, 16), targets)
	if err != nil {
		t.Fatalf("PlanLayout returned error: %v", err)
	}
	if plan.HeaderSize != 0x110 {
		t.Fatalf("HeaderSize = 0x%X, want 0x110", plan.HeaderSize)
	}
	want := []struct {
		index  int
		offset uint32
		size   uint32
	}{
		{0, 0x110, 16},
		{1, 0x120, 0x30},
		{2, 0x150, 0x08},
	}
	for i, w := range want {
		e := plan.Entries[i]
		if e.Index != w.index || e.Offset != w.offset || e.Size != w.size {
			t.Fatalf("entry %d = {index %d offset 0x%X size %d}, want {%d, 0x%X, %d}",
				i, e.Index, e.Offset, e.Size, w.index, w.offset, w.size)
		}
	}
	if plan.TotalSize != 0x158 {
		t.Fatalf("TotalSize = 0x%X, want 0x158", plan.TotalSize)
	}
}

func TestPlanLayoutExplicitOffsetLeavesGap(t *testing.T) {
	headerSize := uint32(HeaderSize(2))
	targets := []Target{
		{Name: "gapped", Data: make([]byte, 8), Offset: u32ptr(headerSize + 100)},
	}
	plan, err := PlanLayout(make([]byte, 16), targets)
	if err != nil {
		t.Fatalf("PlanLayout returned error: %v", err)
	}
	base, target := plan.Entries[0], plan.Entries[1]
	if base.End() != headerSize+16 {
		t.Fatalf("base end = 0x%X, want 0x%X", base.End(), headerSize+16)
	}
	if target.Offset != headerSize+100 {
		t.Fatalf("target offset = 0x%X, want 0x%X", target.Offset, headerSize+100)
	}
	if gap := target.Offset - base.End(); gap != 84 {
		t.Fatalf("gap = %d bytes, want 84", gap)
	}
	if plan.TotalSize != headerSize+108 {
		t.Fatalf("TotalSize = 0x%X, want 0x%X", plan.TotalSize, headerSize+108)
	}
}

func TestPlanLayoutSequentialAdjacency(t *testing.T) {
	plan, err := PlanLayout(make([]byte, 16), []Target{{Name: "next", Data: make([]byte, 8)}})
	if err != nil {
		t.Fatalf("PlanLayout returned error: %v", err)
	}
	if want := plan.HeaderSize + 16; plan.Entries[1].Offset != want {
		t.Fatalf("target offset = 0x%X, want 0x%X directly after base", plan.Entries[1].Offset, want)
	}
}

func TestPlanLayoutCursorFollowsExplicitOffset(t *testing.T) {
	targets := []Target{
		{Name: "pinned", Data: make([]byte, 8), Offset: u32ptr(0x200)},
		{Name: "trailer", Data: make([]byte, 4)},
	}
	plan, err := PlanLayout(make([]byte, 16), targets)
	if err != nil {
		t.Fatalf("PlanLayout returned error: %v", err)
	}
	var trailer PlacedEntry
	for _, e := range plan.Entries {
		if e.Index == 2 {
			trailer = e
		}
	}
	if trailer.Offset != 0x208 {
		t.Fatalf("trailer offset = 0x%X, want 0x208 behind the pinned entry", trailer.Offset)
	}
	if plan.TotalSize != 0x20C {
		t.Fatalf("TotalSize = 0x%X, want 0x20C", plan.TotalSize)
	}
}

func TestPlanLayoutOffsetInsideHeader(t *testing.T) {
	headerSize := uint32(HeaderSize(2))
	tests := []struct {
		name   string
		offset uint32
	}{
		{name: "zero", offset: 0},
		{name: "last header byte", offset: headerSize - 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := PlanLayout(make([]byte, 16), []Target{
				{Name: "low", Data: make([]byte, 8), Offset: u32ptr(tc.offset)},
			})
			var collision OffsetCollisionError
			if !errors.As(err, &collision) {
				t.Fatalf("expected OffsetCollisionError, got %v", err)
			}
			if collision.Index != 1 {
				t.Fatalf("Index = %d, want 1", collision.Index)
			}
			if collision.Offset != tc.offset {
				t.Fatalf("Offset = 0x%X, want 0x%X", collision.Offset, tc.offset)
			}
			if collision.HeaderSize != headerSize {
				t.Fatalf("HeaderSize = 0x%X, want 0x%X", collision.HeaderSize, headerSize)
			}
		})
	}
}

func TestPlanLayoutOffsetAtHeaderBoundary(t *testing.T) {
	headerSize := uint32(HeaderSize(2))
	plan, err := PlanLayout(nil, []Target{
		{Name: "edge", Data: make([]byte, 8), Offset: u32ptr(headerSize)},
	})
	if err != nil {
		t.Fatalf("PlanLayout returned error: %v", err)
	}
	var edge PlacedEntry
	for _, e := range plan.Entries {
		if e.Index == 1 {
			edge = e
		}
	}
	if edge.Offset != headerSize {
		t.Fatalf("offset = 0x%X, want 0x%X", edge.Offset, headerSize)
	}
}

func TestPlanLayoutOverlap(t *testing.T) {
	headerSize := uint32(HeaderSize(2))
	_, err := PlanLayout(make([]byte, 16), []Target{
		{Name: "intruder", Data: make([]byte, 8), Offset: u32ptr(headerSize + 4)},
	})
	var overlap OverlapError
	if !errors.As(err, &overlap) {
		t.Fatalf("expected OverlapError, got %v", err)
	}
	if overlap.FirstIndex != 0 || overlap.SecondIndex != 1 {
		t.Fatalf("overlap indices = (%d, %d), want (0, 1)", overlap.FirstIndex, overlap.SecondIndex)
	}
	if overlap.SecondStart != headerSize+4 {
		t.Fatalf("SecondStart = 0x%X, want 0x%X", overlap.SecondStart, headerSize+4)
	}
}

func TestPlanLayoutOverlapKeepsInputIndices(t *testing.T) {
	headerSize := uint32(HeaderSize(3))
	_, err := PlanLayout(nil, []Target{
		{Name: "high", Data: make([]byte, 0x10), Offset: u32ptr(headerSize + 0x40)},
		{Name: "wide", Data: make([]byte, 0x50), Offset: u32ptr(headerSize)},
	})
	var overlap OverlapError
	if !errors.As(err, &overlap) {
		t.Fatalf("expected OverlapError, got %v", err)
	}
	if overlap.FirstIndex != 2 || overlap.SecondIndex != 1 {
		t.Fatalf("overlap indices = (%d, %d), want input order (2, 1)", overlap.FirstIndex, overlap.SecondIndex)
	}
	if overlap.FirstName != "wide" || overlap.SecondName != "high" {
		t.Fatalf("overlap names = (%q, %q), want (wide, high)", overlap.FirstName, overlap.SecondName)
	}
}

func TestPlanLayoutZeroLengthNeverOverlaps(t *testing.T) {
	headerSize := uint32(HeaderSize(2))
	plan, err := PlanLayout(make([]byte, 16), []Target{
		{Name: "marker", Data: nil, Offset: u32ptr(headerSize + 4)},
	})
	if err != nil {
		t.Fatalf("PlanLayout returned error: %v", err)
	}
	if plan.TotalSize != headerSize+16 {
		t.Fatalf("TotalSize = 0x%X, want 0x%X", plan.TotalSize, headerSize+16)
	}
}

func TestPlanLayoutEntryCountOverflow(t *testing.T) {
	_, err := PlanLayout(nil, make([]Target, MaxEntryCount))
	var overflow HeaderOverflowError
	if !errors.As(err, &overflow) {
		t.Fatalf("expected HeaderOverflowError, got %v", err)
	}
	if overflow.EntryCount != MaxEntryCount+1 {
		t.Fatalf("EntryCount = %d, want %d", overflow.EntryCount, MaxEntryCount+1)
	}
}

func TestPlanLayoutHeaderSizeFormula(t *testing.T) {
	for count := 1; count <= 200; count++ {
		plan, err := PlanLayout(nil, make([]Target, count-1))
		if err != nil {
			t.Fatalf("count %d: PlanLayout returned error: %v", count, err)
		}
		want := uint32(0x20 + count*0x50)
		if plan.HeaderSize != want {
			t.Fatalf("count %d: HeaderSize = 0x%X, want 0x%X", count, plan.HeaderSize, want)
		}
	}
}

func TestPlanLayoutEntriesSortedByOffset(t *testing.T) {
	headerSize := uint32(HeaderSize(4))
	plan, err := PlanLayout(nil, []Target{
		{Name: "late", Data: make([]byte, 4), Offset: u32ptr(headerSize + 0x300)},
		{Name: "early", Data: make([]byte, 4), Offset: u32ptr(headerSize + 0x100)},
		{Name: "middle", Data: make([]byte, 4), Offset: u32ptr(headerSize + 0x200)},
	})
	if err != nil {
		t.Fatalf("PlanLayout returned error: %v", err)
	}
	for i := 1; i < len(plan.Entries); i++ {
		if plan.Entries[i-1].Offset > plan.Entries[i].Offset {
			t.Fatalf("entries out of order at %d: 0x%X > 0x%X", i, plan.Entries[i-1].Offset, plan.Entries[i].Offset)
		}
	}
	if got := plan.Entries[1].Name; got != "early" {
		t.Fatalf("second entry = %q, want early", got)
	}
}

func TestPlanLayoutEmptyBaseNoTargets(t *testing.T) {
	plan, err := PlanLayout(nil, nil)
	if err != nil {
		t.Fatalf("PlanLayout returned error: %v", err)
	}
	if plan.TotalSize != plan.HeaderSize {
		t.Fatalf("TotalSize = 0x%X, want header size 0x%X", plan.TotalSize, plan.HeaderSize)
	}
}

func TestPlanLayoutAddressSpaceOverflow(t *testing.T) {
	_, err := PlanLayout(nil, []Target{
		{Name: "huge", Data: make([]byte, 16), Offset: u32ptr(0xFFFFFFF8)},
	})
	if !errors.Is(err, ErrImageTooLarge) {
		t.Fatalf("expected ErrImageTooLarge, got %v", err)
	}
}
