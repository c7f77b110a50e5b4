package report

import (
	"fmt"
	"strings"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
)

// DiffLayouts renders both reports as text tables and returns their
// unified diff. An empty string means the images lay out identically.
// The file path line is left out of the rendering so that two copies
// of the same image under different names compare equal.
func DiffLayouts(a, b LayoutReport, aLabel, bLabel string) (string, error) {
	aText, err := renderForDiff(a)
	if err != nil {
		return "", err
	}
	bText, err := renderForDiff(b)
	if err != nil {
		return "", err
	}
	if aText == bText {
		return "", nil
	}
	if aLabel == "" {
		aLabel = "a"
	}
	if bLabel == "" {
		bLabel = "b"
	}
	edits := myers.ComputeEdits(span.URIFromPath(aLabel), aText, bText)
	return fmt.Sprint(gotextdiff.ToUnified(aLabel, bLabel, aText, edits)), nil
}

func renderForDiff(rep LayoutReport) (string, error) {
	rep.File = ""
	var sb strings.Builder
	if err := RenderLayoutText(&sb, rep); err != nil {
		return "", err
	}
	return sb.String(), nil
}
