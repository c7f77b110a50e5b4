package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"example.com/aioforge/internal/aio"
	"example.com/aioforge/internal/rules"
)

// DefaultProfileID is always served. Merges that name no profile get
// the stock device identity under this id.
const DefaultProfileID = "default"

// ProfilePack binds a device profile file to the id the API exposes,
// with an optional acceptance rule pack override.
type ProfilePack struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Profile string `json:"profile" yaml:"profile"`
	Rules   string `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// Options configures server creation.
type Options struct {
	StorageDir      string
	ProfileManifest string
	ProfilePacks    []ProfilePack
	Concurrency     int
	VerifyCacheSize int
}

type profileEntry struct {
	id       string
	name     string
	profile  aio.DeviceProfile
	rulePack *rules.RulePack
}

// LoadProfileManifest parses a manifest JSON document that enumerates
// the available device profiles. Relative paths are resolved against
// the manifest's directory.
func LoadProfileManifest(path string) ([]ProfilePack, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("manifest path is empty")
	}
	manifestPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("manifest path: %w", err)
	}
	f, err := os.Open(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()
	var doc struct {
		Profiles []ProfilePack `json:"profiles"`
	}
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if len(doc.Profiles) == 0 {
		return nil, errors.New("manifest contains no profiles")
	}
	base := filepath.Dir(manifestPath)
	out := make([]ProfilePack, len(doc.Profiles))
	for i, pack := range doc.Profiles {
		resolved, err := resolveProfilePaths(base, pack)
		if err != nil {
			return nil, err
		}
		out[i] = resolved
	}
	return out, nil
}

func resolveProfilePaths(base string, pack ProfilePack) (ProfilePack, error) {
	pack.ID = strings.TrimSpace(pack.ID)
	pack.Name = strings.TrimSpace(pack.Name)
	pack.Profile = strings.TrimSpace(pack.Profile)
	pack.Rules = strings.TrimSpace(pack.Rules)
	if pack.ID == "" {
		return ProfilePack{}, errors.New("manifest profile entry missing id")
	}
	if pack.Profile == "" {
		return ProfilePack{}, fmt.Errorf("manifest profile %s missing profile path", pack.ID)
	}
	if !filepath.IsAbs(pack.Profile) {
		pack.Profile = filepath.Join(base, pack.Profile)
	}
	if pack.Rules != "" && !filepath.IsAbs(pack.Rules) {
		pack.Rules = filepath.Join(base, pack.Rules)
	}
	return pack, nil
}

// buildProfileMap loads every configured profile pack and guarantees
// the default id is present.
func buildProfileMap(opts Options) (map[string]profileEntry, []string, error) {
	packs := opts.ProfilePacks
	if len(packs) == 0 && strings.TrimSpace(opts.ProfileManifest) != "" {
		var err error
		packs, err = LoadProfileManifest(opts.ProfileManifest)
		if err != nil {
			return nil, nil, fmt.Errorf("load profile manifest: %w", err)
		}
	}
	entries := make(map[string]profileEntry)
	for _, pack := range packs {
		id := strings.TrimSpace(pack.ID)
		profilePath := strings.TrimSpace(pack.Profile)
		if id == "" {
			return nil, nil, errors.New("profile pack missing id")
		}
		if profilePath == "" {
			return nil, nil, fmt.Errorf("profile %s missing profile path", id)
		}
		if _, exists := entries[id]; exists {
			return nil, nil, fmt.Errorf("duplicate profile %s configured", id)
		}
		profile, err := aio.LoadProfile(profilePath)
		if err != nil {
			return nil, nil, fmt.Errorf("profile %s: %w", id, err)
		}
		entry := profileEntry{id: id, name: pack.Name, profile: profile}
		if entry.name == "" {
			entry.name = profile.Name
		}
		if rulesPath := strings.TrimSpace(pack.Rules); rulesPath != "" {
			rp, err := rules.LoadRulePack(rulesPath)
			if err != nil {
				return nil, nil, fmt.Errorf("profile %s rules: %w", id, err)
			}
			entry.rulePack = &rp
		}
		entries[id] = entry
	}
	if _, ok := entries[DefaultProfileID]; !ok {
		entries[DefaultProfileID] = profileEntry{
			id:      DefaultProfileID,
			name:    "Stock identity",
			profile: aio.DefaultProfile(),
		}
	}
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return entries, ids, nil
}
