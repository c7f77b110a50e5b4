package aio

import (
	"os"
	"path/filepath"
	"testing"
)

func writeProfile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	return path
}

func TestLoadProfileFillsUnsetFields(t *testing.T) {
	p, err := LoadProfile(writeProfile(t, "name: bench\nproductId: 0x5609\n"))
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if p.Name != "bench" || p.ProductID != 0x5609 {
		t.Fatalf("set fields = %q/0x%04X", p.Name, p.ProductID)
	}
	if p.VendorID != DefaultVendorID || p.UniqueID != DefaultUniqueID ||
		p.EntryVersion != DefaultEntryVersion || p.DeviceType != DefaultDeviceType ||
		p.ImageVersion != DefaultImageVersion {
		t.Fatalf("unset fields did not default: %+v", p)
	}
}

func TestLoadProfileKeepsExplicitZeros(t *testing.T) {
	p, err := LoadProfile(writeProfile(t, "uniqueId: 0x0000\nproductId: 0\nentryVersion: 0x0000\n"))
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if p.UniqueID != 0 || p.ProductID != 0 || p.EntryVersion != 0 {
		t.Fatalf("explicit zeros overwritten: unique=0x%04X product=0x%04X entry=0x%04X",
			p.UniqueID, p.ProductID, p.EntryVersion)
	}
	// Resolution after loading must not reintroduce defaults.
	r := p.Resolved()
	if r.UniqueID != 0 || r.ProductID != 0 || r.EntryVersion != 0 {
		t.Fatalf("Resolved overwrote loaded zeros: %+v", r)
	}
}

func TestBuildHeaderWritesLoadedZeroIdentity(t *testing.T) {
	profile, err := LoadProfile(writeProfile(t, "uniqueId: 0x0000\n"))
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	plan, err := PlanLayout([]byte{1, 2, 3, 4}, nil)
	if err != nil {
		t.Fatalf("PlanLayout: %v", err)
	}
	header, err := BuildHeader(plan, []uint32{0}, profile)
	if err != nil {
		t.Fatalf("BuildHeader: %v", err)
	}
	if got := header[SummaryHeaderSize+entOffUniqueID : SummaryHeaderSize+entOffUniqueID+2]; got[0] != 0 || got[1] != 0 {
		t.Fatalf("unique id bytes = % X, want 00 00", got)
	}
}

func TestZeroValueProfileResolvesToDefaults(t *testing.T) {
	p := DeviceProfile{}.Resolved()
	want := DefaultProfile()
	want.Name = ""
	if p != want {
		t.Fatalf("Resolved() = %+v, want %+v", p, want)
	}
}
