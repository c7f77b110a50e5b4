// Package samples builds the deterministic firmware assets shipped
// with the repository: a base payload, two module payloads, a device
// profile and a job file that merges them. Tests and documentation
// reference the same constants, so regenerating the assets never
// changes their bytes.
package samples

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

const (
	BaseFileName    = "sample_base.bin"
	ModuleAFileName = "sample_module_a.bin"
	ModuleBFileName = "sample_module_b.bin"
	ProfileFileName = "sample_profile.yaml"
	JobFileName     = "sample_job.yaml"

	// MergedFileName is where the sample job writes its output.
	MergedFileName = "sample_merged.aio"

	// BasePayloadSize and the module sizes are chosen so every region
	// boundary is easy to eyeball in a hex dump.
	BasePayloadSize    = 256
	ModuleAPayloadSize = 96
	ModuleBPayloadSize = 64

	// ModuleBOffset pins the second module behind a deliberate gap:
	// with three entries the header is 0x110 bytes, the base and
	// module A then cover up to 0x270, and 0x300 leaves 0x90 bytes of
	// zero fill for gap-handling demos.
	ModuleBOffset = 0x300
)

// BuildBase returns the base payload: a descending byte ramp, distinct
// from the module fills so regions are recognizable in the output.
func BuildBase() []byte {
	data := make([]byte, BasePayloadSize)
	for i := range data {
		data[i] = byte(0xFF - i%251)
	}
	return data
}

// BuildModuleA returns the first module payload, an ascending ramp.
func BuildModuleA() []byte {
	data := make([]byte, ModuleAPayloadSize)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

// BuildModuleB returns the second module payload, an alternating fill.
func BuildModuleB() []byte {
	data := make([]byte, ModuleBPayloadSize)
	for i := range data {
		if i%2 == 0 {
			data[i] = 0xA5
		} else {
			data[i] = 0x5A
		}
	}
	return data
}

// BuildProfile returns the sample device profile document.
func BuildProfile() []byte {
	return []byte(`# Sample device profile (generated).
name: sample-touchpad
deviceType: 0x01
imageVersion: 0x12345678
vendorId: 0x04F3
productId: 0x5608
uniqueId: 0xFFFF
entryVersion: 0x1234
`)
}

// BuildJob returns the sample job file. Paths are relative to the job
// file, so the bundle works from any checkout location.
func BuildJob() []byte {
	return []byte(fmt.Sprintf(`# Sample merge job (generated).
base: %s
output: %s
profile: %s
targets:
  - path: %s
  - path: %s
    offset: "0x%X"
report: sample_layout.json
`, BaseFileName, MergedFileName, ProfileFileName, ModuleAFileName, ModuleBFileName, ModuleBOffset))
}

// WriteFiles materializes the sample assets under dir, leaving files
// that already have the expected bytes untouched.
func WriteFiles(dir string) error {
	assets := []struct {
		name string
		data []byte
	}{
		{BaseFileName, BuildBase()},
		{ModuleAFileName, BuildModuleA()},
		{ModuleBFileName, BuildModuleB()},
		{ProfileFileName, BuildProfile()},
		{JobFileName, BuildJob()},
	}
	for _, asset := range assets {
		if err := writeFileIfChanged(filepath.Join(dir, asset.name), asset.data); err != nil {
			return fmt.Errorf("write %s: %w", asset.name, err)
		}
	}
	return nil
}

func writeFileIfChanged(path string, data []byte) error {
	existing, err := os.ReadFile(path)
	if err == nil && bytes.Equal(existing, data) {
		return nil
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
