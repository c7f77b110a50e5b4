package aio

// MergeOptions adjusts a merge. The zero value is ready to use: stock
// device identity and the base shown as "base" in plans and reports.
type MergeOptions struct {
	Profile  DeviceProfile
	BaseName string
}

// MergeResult is a completed merge. Image is the packaged output;
// Checksums aligns with Plan.Entries.
type MergeResult struct {
	Image      []byte
	Plan       LayoutPlan
	Checksums  []uint32
	HeaderSize uint32
	TotalSize  uint32
}

// Merge packages the base image and targets into a single output
// image. A base that already carries a package header is unwrapped
// first, so merging a previous output again does not stack headers.
// Inputs are never modified; on error no image is produced.
func Merge(base []byte, targets []Target, opts MergeOptions) (*MergeResult, error) {
	if base == nil {
		return nil, ErrEmptyInput
	}
	if opts.BaseName == "" {
		opts.BaseName = "base"
	}

	payload, err := ExtractPayload(base)
	if err != nil {
		return nil, err
	}
	plan, err := PlanLayout(payload, targets)
	if err != nil {
		return nil, err
	}
	for i := range plan.Entries {
		if plan.Entries[i].Index == 0 {
			plan.Entries[i].Name = opts.BaseName
		}
	}

	checksums := make([]uint32, len(plan.Entries))
	for i, e := range plan.Entries {
		checksums[i] = Checksum(e.Data)
	}
	header, err := BuildHeader(plan, checksums, opts.Profile)
	if err != nil {
		return nil, err
	}
	image, err := Assemble(header, plan)
	if err != nil {
		return nil, err
	}
	return &MergeResult{
		Image:      image,
		Plan:       plan,
		Checksums:  checksums,
		HeaderSize: plan.HeaderSize,
		TotalSize:  plan.TotalSize,
	}, nil
}
