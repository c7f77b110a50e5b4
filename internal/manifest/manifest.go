// Package manifest records the provenance of a merge: every input and
// artifact with its size and digest, so a delivery can be re-verified
// later without the tool that produced it.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"example.com/aioforge/internal/common"
)

type Item struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	Sha256 string `json:"sha256"`
	Type   string `json:"type"`
}

type Manifest struct {
	CreatedAt time.Time `json:"createdAt"`
	ShaAlgo   string    `json:"shaAlgo"`
	Items     []Item    `json:"items"`
}

// Build hashes the given files into a manifest. Item types are derived
// from the file extension.
func Build(paths []string) (Manifest, error) {
	m := Manifest{CreatedAt: time.Now().UTC(), ShaAlgo: "sha256"}
	for _, p := range paths {
		hex, sz, err := common.Sha256OfFile(p)
		if err != nil {
			return m, err
		}
		m.Items = append(m.Items, Item{Path: p, Size: sz, Sha256: hex, Type: itemType(p)})
	}
	return m, nil
}

func itemType(path string) string {
	switch {
	case hasExt(path, ".aio"):
		return "image"
	case hasExt(path, ".bin", ".fw", ".img", ".dat"):
		return "payload"
	case hasExt(path, ".yaml", ".yml"):
		return "profile"
	case hasExt(path, ".json"):
		return "json"
	case hasExt(path, ".ndjson", ".jsonl"):
		return "log"
	case hasExt(path, ".pdf"):
		return "pdf"
	case hasExt(path, ".png"):
		return "png"
	}
	return "other"
}

func hasExt(path string, exts ...string) bool {
	lower := strings.ToLower(path)
	for _, e := range exts {
		if strings.HasSuffix(lower, e) {
			return true
		}
	}
	return false
}

func Save(m Manifest, out string) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0644)
}

func Load(path string) (Manifest, error) {
	var m Manifest
	b, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	err = json.Unmarshal(b, &m)
	return m, err
}

// Verify rehashes every item and returns one message per file whose
// size or digest no longer matches. An empty slice means the manifest
// still holds.
func Verify(m Manifest) ([]string, error) {
	var mismatches []string
	for _, item := range m.Items {
		hex, sz, err := common.Sha256OfFile(item.Path)
		if err != nil {
			if os.IsNotExist(err) {
				mismatches = append(mismatches, fmt.Sprintf("%s: missing", item.Path))
				continue
			}
			return mismatches, err
		}
		if sz != item.Size {
			mismatches = append(mismatches, fmt.Sprintf("%s: size %d, recorded %d", item.Path, sz, item.Size))
			continue
		}
		if !strings.EqualFold(hex, item.Sha256) {
			mismatches = append(mismatches, fmt.Sprintf("%s: sha256 mismatch", item.Path))
		}
	}
	return mismatches, nil
}
