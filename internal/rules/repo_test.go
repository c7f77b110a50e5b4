package rules

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeRulePackFile(t *testing.T, dir string, rp RulePack) string {
	t.Helper()
	data, err := json.Marshal(rp)
	if err != nil {
		t.Fatalf("marshal rule pack: %v", err)
	}
	path := filepath.Join(dir, "rulepack.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write rule pack: %v", err)
	}
	return path
}

func TestRepositoryInstallListLoadRemove(t *testing.T) {
	repo, err := OpenRepository(filepath.Join(t.TempDir(), "rules"))
	if err != nil {
		t.Fatalf("OpenRepository failed: %v", err)
	}

	rp := DefaultRulePack()
	rp.RulePackId = "aio-strict"
	rp.Version = "1.2"
	src := writeRulePackFile(t, t.TempDir(), rp)

	installed, err := repo.InstallPackage(src)
	if err != nil {
		t.Fatalf("InstallPackage failed: %v", err)
	}
	if installed.RulePack.RulePackId != "aio-strict" {
		t.Fatalf("installed id = %q, want aio-strict", installed.RulePack.RulePackId)
	}

	list, err := repo.ListInstalled()
	if err != nil {
		t.Fatalf("ListInstalled failed: %v", err)
	}
	if len(list) != 1 || list[0].RulePack.Version != "1.2" {
		t.Fatalf("list = %+v, want one pack at 1.2", list)
	}

	loaded, err := repo.Load("aio-strict", "1.2")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.Rules) != len(rp.Rules) {
		t.Fatalf("loaded rules = %d, want %d", len(loaded.Rules), len(rp.Rules))
	}

	if err := repo.SetDefaultForProfile("default", RulePackRef{RulePackId: "aio-strict", Version: "1.2"}); err != nil {
		t.Fatalf("SetDefaultForProfile failed: %v", err)
	}
	ref, ok, err := repo.DefaultForProfile("default")
	if err != nil || !ok {
		t.Fatalf("DefaultForProfile = (%v, %v, %v)", ref, ok, err)
	}
	if ref.Version != "1.2" {
		t.Fatalf("default version = %q, want 1.2", ref.Version)
	}

	if err := repo.Remove("aio-strict", "1.2"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, ok, _ := repo.DefaultForProfile("default"); ok {
		t.Fatalf("default mapping survived removal")
	}
	list, err = repo.ListInstalled()
	if err != nil {
		t.Fatalf("ListInstalled after remove failed: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("list after remove = %d packs, want 0", len(list))
	}
}

func TestRepositoryRejectsBadIds(t *testing.T) {
	repo, err := OpenRepository(filepath.Join(t.TempDir(), "rules"))
	if err != nil {
		t.Fatalf("OpenRepository failed: %v", err)
	}
	rp := RulePack{RulePackId: "../escape", Version: "1.0"}
	src := writeRulePackFile(t, t.TempDir(), rp)
	if _, err := repo.InstallPackage(src); err == nil {
		t.Fatalf("expected error for id with path separator")
	}
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0", "1.0", 0},
		{"1.0", "1.1", -1},
		{"2.0", "1.9", 1},
		{"1.0.1", "1.0", 1},
	}
	for _, tc := range tests {
		if got := compareVersions(tc.a, tc.b); got != tc.want {
			t.Fatalf("compareVersions(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}
