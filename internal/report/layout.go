package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"example.com/aioforge/internal/aio"
	"example.com/aioforge/internal/common"
)

// LayoutEntry is one payload row of a layout report.
type LayoutEntry struct {
	Index     int    `json:"index"`
	Name      string `json:"name,omitempty"`
	Offset    string `json:"offset"`
	Size      uint32 `json:"size"`
	Checksum  string `json:"checksum"`
	GapBefore uint64 `json:"gapBefore,omitempty"`
	Requested bool   `json:"requestedOffset,omitempty"`
}

// LayoutReport describes where every payload landed in a packaged
// image. Rows are ordered by offset; GapBefore counts the zero-filled
// bytes between a row and the region before it.
type LayoutReport struct {
	File       string        `json:"file,omitempty"`
	Sha256     string        `json:"sha256"`
	HeaderSize uint32        `json:"headerSize"`
	TotalSize  uint32        `json:"totalSize"`
	EntryCount int           `json:"entryCount"`
	Entries    []LayoutEntry `json:"entries"`
}

// LayoutFromMerge builds the layout report for a freshly merged image.
func LayoutFromMerge(res *aio.MergeResult, file string) LayoutReport {
	rep := LayoutReport{
		File:       file,
		Sha256:     common.Sha256OfBytes(res.Image),
		HeaderSize: res.HeaderSize,
		TotalSize:  res.TotalSize,
		EntryCount: len(res.Plan.Entries),
	}
	covered := uint64(res.HeaderSize)
	for i, e := range res.Plan.Entries {
		row := LayoutEntry{
			Index:     e.Index,
			Name:      e.Name,
			Offset:    formatHex(uint64(e.Offset)),
			Size:      e.Size,
			Checksum:  fmt.Sprintf("0x%08X", res.Checksums[i]),
			Requested: e.Requested,
		}
		if off := uint64(e.Offset); off > covered {
			row.GapBefore = off - covered
		}
		if end := uint64(e.Offset) + uint64(e.Size); end > covered {
			covered = end
		}
		rep.Entries = append(rep.Entries, row)
	}
	return rep
}

// LayoutFromInspection builds the layout report for an existing image.
// Descriptors carry no payload names, so rows are identified by index.
func LayoutFromInspection(insp *aio.Inspection, data []byte, file string) LayoutReport {
	rep := LayoutReport{
		File:       file,
		Sha256:     common.Sha256OfBytes(data),
		HeaderSize: uint32(insp.Summary.HeaderSize),
		TotalSize:  uint32(insp.FileSize),
		EntryCount: len(insp.Entries),
	}
	for _, e := range insp.Entries {
		rep.Entries = append(rep.Entries, LayoutEntry{
			Index:     e.Position,
			Offset:    formatHex(uint64(e.DataOffset)),
			Size:      e.DataSize,
			Checksum:  fmt.Sprintf("0x%08X", e.Checksum),
			GapBefore: uint64(e.GapBefore),
		})
	}
	return rep
}

// RenderLayoutText writes the report as an aligned text table. The
// output is stable for a given report, so two renderings can be
// diffed line by line.
func RenderLayoutText(w io.Writer, rep LayoutReport) error {
	if rep.File != "" {
		fmt.Fprintf(w, "file:        %s\n", rep.File)
	}
	fmt.Fprintf(w, "sha256:      %s\n", rep.Sha256)
	fmt.Fprintf(w, "header size: %s (%d)\n", formatHex(uint64(rep.HeaderSize)), rep.HeaderSize)
	fmt.Fprintf(w, "total size:  %s (%d)\n", formatHex(uint64(rep.TotalSize)), rep.TotalSize)
	fmt.Fprintf(w, "entries:     %d\n\n", rep.EntryCount)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "IDX\tNAME\tOFFSET\tSIZE\tCHECKSUM\tGAP")
	for _, e := range rep.Entries {
		name := e.Name
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%d\n",
			e.Index, name, e.Offset, e.Size, e.Checksum, e.GapBefore)
	}
	return tw.Flush()
}

func formatHex(v uint64) string {
	return fmt.Sprintf("0x%X", v)
}
