package aio

import "fmt"

// Assemble materializes the output image: the rendered header at offset
// zero, every planned payload at its offset, and zero fill across any
// gaps between them.
func Assemble(header []byte, plan LayoutPlan) ([]byte, error) {
	if uint32(len(header)) != plan.HeaderSize {
		return nil, fmt.Errorf("aio: header is %d bytes, plan expects %d", len(header), plan.HeaderSize)
	}
	image := make([]byte, plan.TotalSize)
	copy(image, header)
	for _, e := range plan.Entries {
		if e.End() < e.Offset || uint64(e.End()) > uint64(plan.TotalSize) {
			return nil, fmt.Errorf("aio: entry %d (%s) range [0x%X,0x%X) leaves the %d byte image",
				e.Index, entryLabel(e.Name), e.Offset, e.End(), plan.TotalSize)
		}
		copy(image[e.Offset:], e.Data)
	}
	return image, nil
}
