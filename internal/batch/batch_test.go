package batch

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func seedTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string][]byte{
		"touch.bin":           {1, 2, 3},
		"config.bin":          {4, 5},
		"modules/radio.bin":   {6},
		"modules/notes.txt":   []byte("notes"),
		"modules/old/tmp.bak": {7},
		"README.md":           []byte("readme"),
	}
	for rel, data := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	return dir
}

func TestSelect(t *testing.T) {
	dir := seedTree(t)
	cases := []struct {
		name string
		opts Options
		want []string
	}{
		{
			name: "everything without patterns",
			opts: Options{},
			want: []string{"README.md", "config.bin", "modules/notes.txt", "modules/old/tmp.bak", "modules/radio.bin", "touch.bin"},
		},
		{
			name: "include binaries",
			opts: Options{Include: []string{"*.bin", "modules/**"}},
			want: []string{"config.bin", "modules/notes.txt", "modules/old/tmp.bak", "modules/radio.bin", "touch.bin"},
		},
		{
			name: "exclude wins over include",
			opts: Options{Include: []string{"modules/**"}, Exclude: []string{"modules/*.txt", "modules/old/*"}},
			want: []string{"modules/radio.bin"},
		},
		{
			name: "exclude only",
			opts: Options{Exclude: []string{"*.md", "modules/*.txt", "modules/old/*"}},
			want: []string{"config.bin", "modules/radio.bin", "touch.bin"},
		},
		{
			name: "case insensitive include",
			opts: Options{Include: []string{"CONFIG.bin"}, CaseInsensitive: true},
			want: []string{"config.bin"},
		},
		{
			name: "nothing matches",
			opts: Options{Include: []string{"*.hex"}},
			want: nil,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Select(dir, tc.opts)
			if err != nil {
				t.Fatalf("select: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("selection = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTargetsReadsInSelectionOrder(t *testing.T) {
	dir := seedTree(t)
	files, err := Select(dir, Options{Include: []string{"*.bin", "modules/*.bin"}})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	targets, err := Targets(dir, files)
	if err != nil {
		t.Fatalf("targets: %v", err)
	}
	if len(targets) != 3 {
		t.Fatalf("targets = %d", len(targets))
	}
	if targets[0].Name != "config.bin" || len(targets[0].Data) != 2 {
		t.Fatalf("target 0 = %+v", targets[0])
	}
	if targets[1].Name != "modules/radio.bin" || targets[2].Name != "touch.bin" {
		t.Fatalf("order = %q, %q", targets[1].Name, targets[2].Name)
	}
	for _, tgt := range targets {
		if tgt.Offset != nil {
			t.Fatalf("%s carries an offset", tgt.Name)
		}
	}
}

func TestTargetsMissingFile(t *testing.T) {
	dir := seedTree(t)
	if _, err := Targets(dir, []string{"gone.bin"}); err == nil {
		t.Fatal("missing file accepted")
	}
}
