package server

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const touchpadProfileYAML = `name: Elan touchpad
deviceType: 0x01
vendorId: 0x04F3
productId: 0x5608
`

func writeManifest(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "index.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadProfileManifest(t *testing.T) {
	dir := t.TempDir()
	profilePath := filepath.Join(dir, "touchpad.yaml")
	if err := os.WriteFile(profilePath, []byte(touchpadProfileYAML), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	manifest := writeManifest(t, dir, `{"profiles":[{"id":"elan-touchpad","name":"Elan touchpad","profile":"touchpad.yaml"}]}`)

	packs, err := LoadProfileManifest(manifest)
	if err != nil {
		t.Fatalf("LoadProfileManifest: %v", err)
	}
	if len(packs) != 1 {
		t.Fatalf("packs = %d, want 1", len(packs))
	}
	if packs[0].ID != "elan-touchpad" {
		t.Fatalf("id = %q", packs[0].ID)
	}
	if packs[0].Profile != profilePath {
		t.Fatalf("profile path = %q, want %q", packs[0].Profile, profilePath)
	}
}

func TestLoadProfileManifestRejectsBadEntries(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"missing id", `{"profiles":[{"profile":"touchpad.yaml"}]}`, "missing id"},
		{"missing profile path", `{"profiles":[{"id":"x"}]}`, "missing profile path"},
		{"empty manifest", `{"profiles":[]}`, "no profiles"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			manifest := writeManifest(t, t.TempDir(), tc.body)
			_, err := LoadProfileManifest(manifest)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want %q", err, tc.want)
			}
		})
	}
}

func TestBuildProfileMapSynthesizesDefault(t *testing.T) {
	dir := t.TempDir()
	profilePath := filepath.Join(dir, "touchpad.yaml")
	if err := os.WriteFile(profilePath, []byte(touchpadProfileYAML), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}

	entries, ids, err := buildProfileMap(Options{ProfilePacks: []ProfilePack{
		{ID: "elan-touchpad", Profile: profilePath},
	}})
	if err != nil {
		t.Fatalf("buildProfileMap: %v", err)
	}
	if len(ids) != 2 || ids[0] != DefaultProfileID || ids[1] != "elan-touchpad" {
		t.Fatalf("ids = %v", ids)
	}
	def, ok := entries[DefaultProfileID]
	if !ok {
		t.Fatal("default profile not synthesized")
	}
	if def.profile.VendorID != 0x04F3 {
		t.Fatalf("default vendor = 0x%04X", def.profile.VendorID)
	}
	loaded := entries["elan-touchpad"]
	if loaded.name != "Elan touchpad" {
		t.Fatalf("name = %q", loaded.name)
	}
	if loaded.rulePack != nil {
		t.Fatal("unexpected rule pack override")
	}
}

func TestBuildProfileMapRejectsDuplicates(t *testing.T) {
	dir := t.TempDir()
	profilePath := filepath.Join(dir, "touchpad.yaml")
	if err := os.WriteFile(profilePath, []byte(touchpadProfileYAML), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}

	_, _, err := buildProfileMap(Options{ProfilePacks: []ProfilePack{
		{ID: "pad", Profile: profilePath},
		{ID: "pad", Profile: profilePath},
	}})
	if err == nil || !strings.Contains(err.Error(), "duplicate profile") {
		t.Fatalf("err = %v, want duplicate error", err)
	}
}
