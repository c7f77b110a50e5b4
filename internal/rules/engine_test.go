package rules

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"example.com/aioforge/internal/aio"
)

// goodImage builds a well-formed two-entry image for the checks to chew on.
func goodImage(t *testing.T) []byte {
	t.Helper()
	res, err := aio.Merge(bytes.Repeat([]byte{0xA5}, 32), []aio.Target{
		{Name: "patch", Data: bytes.Repeat([]byte{0x5A}, 12)},
	}, aio.MergeOptions{})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	return res.Image
}

func evalDefault(t *testing.T, image []byte) (*Engine, []Diagnostic) {
	t.Helper()
	eng := NewEngine(DefaultRulePack())
	eng.RegisterBuiltins()
	diags, err := eng.Eval(&Context{InputFile: "image.aio", Image: image})
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	return eng, diags
}

func TestEvalCleanImagePasses(t *testing.T) {
	eng, diags := evalDefault(t, goodImage(t))
	if len(diags) != len(DefaultRulePack().Rules) {
		t.Fatalf("diagnostics = %d, want one per rule (%d)", len(diags), len(DefaultRulePack().Rules))
	}
	for _, d := range diags {
		if d.Severity != INFO {
			t.Fatalf("rule %s severity = %s, want INFO (%s)", d.RuleId, d.Severity, d.Message)
		}
	}
	rep := eng.MakeAcceptance()
	if !rep.Summary.Pass {
		t.Fatalf("acceptance failed on a clean image: %+v", rep.Summary)
	}
	if rep.Summary.Errors != 0 || rep.Summary.Warnings != 0 {
		t.Fatalf("summary = %+v, want no errors or warnings", rep.Summary)
	}
	if len(rep.GateMatrix) != len(diags) {
		t.Fatalf("gate matrix rows = %d, want %d", len(rep.GateMatrix), len(diags))
	}
	for _, g := range rep.GateMatrix {
		if !g.Pass {
			t.Fatalf("gate %s failed: %s", g.RuleId, g.Message)
		}
	}
}

func findDiag(t *testing.T, diags []Diagnostic, ruleId string) Diagnostic {
	t.Helper()
	for _, d := range diags {
		if d.RuleId == ruleId {
			return d
		}
	}
	t.Fatalf("no diagnostic for rule %s", ruleId)
	return Diagnostic{}
}

func TestEvalFlagsBadMagic(t *testing.T) {
	image := goodImage(t)
	image[0] = 'X'
	_, diags := evalDefault(t, image)
	if d := findDiag(t, diags, "AIO-MAG-001"); d.Severity != ERROR {
		t.Fatalf("magic severity = %s, want ERROR", d.Severity)
	}
}

func TestEvalFlagsChecksumMismatch(t *testing.T) {
	image := goodImage(t)
	// Flip one payload byte behind the header.
	image[len(image)-1] ^= 0xFF
	eng, diags := evalDefault(t, image)
	d := findDiag(t, diags, "AIO-CRC-001")
	if d.Severity != ERROR {
		t.Fatalf("checksum severity = %s, want ERROR (%s)", d.Severity, d.Message)
	}
	if rep := eng.MakeAcceptance(); rep.Summary.Pass {
		t.Fatalf("acceptance passed despite checksum mismatch")
	}
}

func TestEvalFlagsTruncatedFile(t *testing.T) {
	image := goodImage(t)
	_, diags := evalDefault(t, image[:len(image)-4])
	if d := findDiag(t, diags, "AIO-ENT-001"); d.Severity != ERROR {
		t.Fatalf("bounds severity = %s, want ERROR (%s)", d.Severity, d.Message)
	}
}

func TestEvalFlagsReservedFill(t *testing.T) {
	image := goodImage(t)
	image[0x0F] = 0x00
	_, diags := evalDefault(t, image)
	if d := findDiag(t, diags, "AIO-RSV-001"); d.Severity != WARN {
		t.Fatalf("reserved severity = %s, want WARN (%s)", d.Severity, d.Message)
	}
}

func TestEvalFlagsChecksumPadding(t *testing.T) {
	image := goodImage(t)
	image[aio.SummaryHeaderSize+checksumPadOff+3] = 0x42
	_, diags := evalDefault(t, image)
	d := findDiag(t, diags, "AIO-CRC-002")
	if d.Severity != WARN {
		t.Fatalf("padding severity = %s, want WARN (%s)", d.Severity, d.Message)
	}
	if d.EntryIndex != 0 {
		t.Fatalf("EntryIndex = %d, want 0", d.EntryIndex)
	}
}

func TestEvalFlagsIdentityMismatch(t *testing.T) {
	image := goodImage(t)
	eng := NewEngine(DefaultRulePack())
	eng.RegisterBuiltins()
	diags, err := eng.Eval(&Context{
		Image:   image,
		Profile: aio.DeviceProfile{ProductID: 0x9999},
	})
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if d := findDiag(t, diags, "AIO-IDN-001"); d.Severity != WARN {
		t.Fatalf("identity severity = %s, want WARN (%s)", d.Severity, d.Message)
	}
}

func TestEvalUnknownCheckFunction(t *testing.T) {
	eng := NewEngine(RulePack{Rules: []Rule{
		{RuleId: "AIO-X-001", CheckFunc: "NoSuchCheck"},
	}})
	diags, err := eng.Eval(&Context{Image: goodImage(t)})
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if len(diags) != 1 || diags[0].Severity != WARN {
		t.Fatalf("diagnostics = %+v, want single WARN", diags)
	}
}

func TestWriteDiagnosticsNDJSON(t *testing.T) {
	eng, _ := evalDefault(t, goodImage(t))
	outPath := filepath.Join(t.TempDir(), "diagnostics.jsonl")
	if err := eng.WriteDiagnosticsNDJSON(outPath); err != nil {
		t.Fatalf("WriteDiagnosticsNDJSON failed: %v", err)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	lines := bytesTrimSplit(data)
	if len(lines) != len(DefaultRulePack().Rules) {
		t.Fatalf("lines = %d, want %d", len(lines), len(DefaultRulePack().Rules))
	}
	var first map[string]any
	if err := json.Unmarshal(lines[0], &first); err != nil {
		t.Fatalf("unmarshal first line failed: %v", err)
	}
	if first["ruleId"] != "AIO-MAG-001" {
		t.Fatalf("first ruleId = %v, want AIO-MAG-001", first["ruleId"])
	}
}

func TestLoadRulePackRoundTrip(t *testing.T) {
	rp := DefaultRulePack()
	data, err := json.MarshalIndent(rp, "", "  ")
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "rulepack.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	loaded, err := LoadRulePack(path)
	if err != nil {
		t.Fatalf("LoadRulePack failed: %v", err)
	}
	if loaded.RulePackId != rp.RulePackId || len(loaded.Rules) != len(rp.Rules) {
		t.Fatalf("loaded pack = %s with %d rules, want %s with %d", loaded.RulePackId, len(loaded.Rules), rp.RulePackId, len(rp.Rules))
	}
}

func bytesTrimSplit(in []byte) [][]byte {
	in = bytes.TrimSpace(in)
	if len(in) == 0 {
		return nil
	}
	parts := bytes.Split(in, []byte{'\n'})
	out := make([][]byte, 0, len(parts))
	for _, p := range parts {
		p = bytes.TrimSpace(p)
		if len(p) == 0 {
			continue
		}
		cp := make([]byte, len(p))
		copy(cp, p)
		out = append(out, cp)
	}
	return out
}
