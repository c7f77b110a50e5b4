package rules

import (
	"path/filepath"
	"testing"
)

func TestResolveRulePackExplicitPath(t *testing.T) {
	rp := DefaultRulePack()
	rp.RulePackId = "aio-custom"
	rp.Version = "2.0"
	path := writeRulePackFile(t, t.TempDir(), rp)

	got, source, err := ResolveRulePack(RulePackRequest{Path: path})
	if err != nil {
		t.Fatalf("ResolveRulePack failed: %v", err)
	}
	if got.RulePackId != "aio-custom" || source.FromRepository {
		t.Fatalf("resolved %q from repository=%v", got.RulePackId, source.FromRepository)
	}
}

func TestResolveRulePackFallsBackToBuiltin(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	rp, source, err := ResolveRulePack(RulePackRequest{Profile: "default"})
	if err != nil {
		t.Fatalf("ResolveRulePack failed: %v", err)
	}
	builtin := DefaultRulePack()
	if rp.RulePackId != builtin.RulePackId || source.FromRepository {
		t.Fatalf("resolved %q from repository=%v, want builtin", rp.RulePackId, source.FromRepository)
	}
}

func TestResolveRulePackFromRepository(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	repo, err := OpenRepository(filepath.Join(home, ".aioforge", "rules"))
	if err != nil {
		t.Fatalf("OpenRepository failed: %v", err)
	}

	old := DefaultRulePack()
	old.RulePackId = "aio-strict"
	old.Version = "1.0"
	if _, err := repo.InstallPackage(writeRulePackFile(t, t.TempDir(), old)); err != nil {
		t.Fatalf("install 1.0: %v", err)
	}
	newer := old
	newer.Version = "1.2"
	if _, err := repo.InstallPackage(writeRulePackFile(t, t.TempDir(), newer)); err != nil {
		t.Fatalf("install 1.2: %v", err)
	}

	rp, source, err := ResolveRulePack(RulePackRequest{RulePackId: "aio-strict"})
	if err != nil {
		t.Fatalf("resolve by id: %v", err)
	}
	if rp.Version != "1.2" || !source.FromRepository {
		t.Fatalf("resolved %s@%s from repository=%v, want newest 1.2", rp.RulePackId, rp.Version, source.FromRepository)
	}

	rp, _, err = ResolveRulePack(RulePackRequest{RulePackId: "aio-strict", Version: "1.0"})
	if err != nil {
		t.Fatalf("resolve pinned version: %v", err)
	}
	if rp.Version != "1.0" {
		t.Fatalf("pinned version = %q, want 1.0", rp.Version)
	}

	if err := repo.SetDefaultForProfile("bench", RulePackRef{RulePackId: "aio-strict", Version: "1.0"}); err != nil {
		t.Fatalf("set default: %v", err)
	}
	rp, source, err = ResolveRulePack(RulePackRequest{Profile: "bench"})
	if err != nil {
		t.Fatalf("resolve profile default: %v", err)
	}
	if rp.Version != "1.0" || !source.FromRepository {
		t.Fatalf("profile default = %s@%s from repository=%v", rp.RulePackId, rp.Version, source.FromRepository)
	}

	if _, _, err := ResolveRulePack(RulePackRequest{RulePackId: "missing"}); err == nil {
		t.Fatal("expected error for uninstalled id")
	}
}
