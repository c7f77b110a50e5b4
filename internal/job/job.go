// Package job loads merge job files: a YAML description of one merge
// (base, targets, output and report destinations) that can be replayed
// from the command line or scripted in CI.
package job

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"example.com/aioforge/internal/aio"
	"example.com/aioforge/internal/common"
)

// TargetSpec is one payload row of a job file. Offset accepts decimal
// or 0x-prefixed hex; empty means sequential placement.
type TargetSpec struct {
	Path   string `yaml:"path"`
	Offset string `yaml:"offset,omitempty"`
}

// Job describes one merge end to end. Relative paths are resolved
// against the job file's directory when loaded.
type Job struct {
	Base     string       `yaml:"base"`
	Output   string       `yaml:"output"`
	Profile  string       `yaml:"profile,omitempty"`
	Targets  []TargetSpec `yaml:"targets,omitempty"`
	Report   string       `yaml:"report,omitempty"`
	Pdf      string       `yaml:"pdf,omitempty"`
	Manifest string       `yaml:"manifest,omitempty"`
	Log      string       `yaml:"log,omitempty"`
}

// Load reads and validates a job file.
func Load(path string) (Job, error) {
	var j Job
	f, err := os.Open(path)
	if err != nil {
		return j, err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&j); err != nil {
		return j, fmt.Errorf("parse %s: %w", path, err)
	}

	baseDir := filepath.Dir(path)
	resolvePath := func(p string) string {
		p = strings.TrimSpace(p)
		if p == "" {
			return ""
		}
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Clean(filepath.Join(baseDir, p))
	}
	j.Base = resolvePath(j.Base)
	j.Output = resolvePath(j.Output)
	j.Profile = resolvePath(j.Profile)
	j.Report = resolvePath(j.Report)
	j.Pdf = resolvePath(j.Pdf)
	j.Manifest = resolvePath(j.Manifest)
	j.Log = resolvePath(j.Log)
	for i := range j.Targets {
		j.Targets[i].Path = resolvePath(j.Targets[i].Path)
	}

	if j.Base == "" {
		return j, errors.New("job: base is required")
	}
	if j.Output == "" {
		return j, errors.New("job: output is required")
	}
	for i, t := range j.Targets {
		if t.Path == "" {
			return j, fmt.Errorf("job: target %d has no path", i)
		}
		if _, err := ParseOffset(t.Offset); err != nil {
			return j, fmt.Errorf("job: target %d: %w", i, err)
		}
	}
	return j, nil
}

// LoadTargets reads every target payload from disk in job order.
func (j Job) LoadTargets() ([]aio.Target, error) {
	targets := make([]aio.Target, 0, len(j.Targets))
	for _, spec := range j.Targets {
		data, err := common.ReadImageFile(spec.Path)
		if err != nil {
			return nil, err
		}
		off, err := ParseOffset(spec.Offset)
		if err != nil {
			return nil, err
		}
		targets = append(targets, aio.Target{
			Name:   filepath.Base(spec.Path),
			Data:   data,
			Offset: off,
		})
	}
	return targets, nil
}

// ParseOffset parses a placement offset. Empty input selects
// sequential placement and returns nil.
func ParseOffset(s string) (*uint32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid offset %q", s)
	}
	off := uint32(v)
	return &off, nil
}
