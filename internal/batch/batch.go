// Package batch selects payload files from a directory tree with
// include/exclude glob rules, in deterministic order, so a whole
// drop folder can be merged in one call.
package batch

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/woozymasta/pathrules"

	"example.com/aioforge/internal/aio"
	"example.com/aioforge/internal/common"
)

// Options filters the walk. Include patterns select files; Exclude
// patterns subtract from that selection and always win. With no
// include patterns every file is a candidate. Patterns use glob
// syntax against slash-separated paths relative to the root
// ("*.bin", "modules/**").
type Options struct {
	Include         []string
	Exclude         []string
	CaseInsensitive bool
}

// Select walks root and returns the selected files as sorted
// slash-separated relative paths.
func Select(root string, opts Options) ([]string, error) {
	include, err := compileMatcher(opts.Include, opts.CaseInsensitive)
	if err != nil {
		return nil, err
	}
	exclude, err := compileMatcher(opts.Exclude, opts.CaseInsensitive)
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if include != nil && !include.Included(rel, false) {
			return nil
		}
		if exclude != nil && exclude.Included(rel, false) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// Targets reads the selected files into merge targets, keeping the
// relative path as the target name. Placement is sequential.
func Targets(root string, files []string) ([]aio.Target, error) {
	targets := make([]aio.Target, 0, len(files))
	for _, rel := range files {
		data, err := common.ReadImageFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return nil, err
		}
		targets = append(targets, aio.Target{Name: rel, Data: data})
	}
	return targets, nil
}

// compileMatcher builds a matcher that reports whether a path matches
// any of the given patterns. A nil matcher means no patterns.
func compileMatcher(patterns []string, caseInsensitive bool) (*pathrules.Matcher, error) {
	rules := make([]pathrules.Rule, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		rules = append(rules, pathrules.Rule{Action: pathrules.ActionInclude, Pattern: p})
	}
	if len(rules) == 0 {
		return nil, nil
	}
	return pathrules.NewMatcher(rules, pathrules.MatcherOptions{
		CaseInsensitive: caseInsensitive,
		DefaultAction:   pathrules.ActionExclude,
	})
}
