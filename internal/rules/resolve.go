package rules

import "fmt"

// RulePackRequest names the rule pack a verification run should use.
// Path wins over the repository; a zero request resolves to the
// built-in pack.
type RulePackRequest struct {
	Path       string
	RulePackId string
	Version    string
	Profile    string
}

// RulePackSource reports where a resolved rule pack came from.
type RulePackSource struct {
	FromRepository bool
	RulePackId     string
	Version        string
}

// ResolveRulePack loads the rule pack a request names. Resolution order
// is the explicit file, the installed id (newest version when none is
// given), the repository default for the profile, and finally the
// built-in pack. A missing or unreadable repository only fails requests
// that name an installed pack.
func ResolveRulePack(req RulePackRequest) (RulePack, RulePackSource, error) {
	var source RulePackSource
	if req.Path != "" {
		rp, err := LoadRulePack(req.Path)
		if err != nil {
			return RulePack{}, source, err
		}
		source.RulePackId = rp.RulePackId
		source.Version = rp.Version
		return rp, source, nil
	}
	if req.RulePackId != "" {
		repo, err := DefaultRepository()
		if err != nil {
			return RulePack{}, source, fmt.Errorf("open repository: %w", err)
		}
		version := req.Version
		if version == "" {
			version, err = newestInstalledVersion(repo, req.RulePackId)
			if err != nil {
				return RulePack{}, source, err
			}
		}
		rp, err := repo.Load(req.RulePackId, version)
		if err != nil {
			return RulePack{}, source, err
		}
		return rp, RulePackSource{FromRepository: true, RulePackId: rp.RulePackId, Version: rp.Version}, nil
	}
	if req.Profile != "" {
		if repo, err := DefaultRepository(); err == nil {
			if ref, ok, err := repo.DefaultForProfile(req.Profile); err == nil && ok {
				rp, err := repo.Load(ref.RulePackId, ref.Version)
				if err != nil {
					return RulePack{}, source, fmt.Errorf("default rule pack %s@%s: %w", ref.RulePackId, ref.Version, err)
				}
				return rp, RulePackSource{FromRepository: true, RulePackId: rp.RulePackId, Version: rp.Version}, nil
			}
		}
	}
	rp := DefaultRulePack()
	source.RulePackId = rp.RulePackId
	source.Version = rp.Version
	return rp, source, nil
}

func newestInstalledVersion(repo *Repository, id string) (string, error) {
	entries, err := repo.ListInstalled()
	if err != nil {
		return "", err
	}
	version := ""
	for _, entry := range entries {
		if entry.RulePack.RulePackId != id {
			continue
		}
		if version == "" || compareVersions(entry.RulePack.Version, version) > 0 {
			version = entry.RulePack.Version
		}
	}
	if version == "" {
		return "", fmt.Errorf("rule pack %s is not installed", id)
	}
	return version, nil
}
