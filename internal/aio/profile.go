package aio

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Identity values written into headers when a profile leaves them
// unset. They describe the touchpad family the format was built for.
const (
	DefaultDeviceType    uint8  = 0x01
	DefaultImageVersion  uint32 = 0x12345678
	DefaultUpdateControl uint8  = 0x00
	DefaultVendorID      uint16 = 0x04F3
	DefaultProductID     uint16 = 0x5608
	DefaultUniqueID      uint16 = 0xFFFF
	DefaultEntryVersion  uint16 = 0x1234
)

// DeviceProfile carries the device identity written into a packaged
// image. A zero-value profile resolves to the defaults above; profiles
// loaded from a file keep every field the file sets, including zeros.
type DeviceProfile struct {
	Name          string `yaml:"name,omitempty" json:"name,omitempty"`
	DeviceType    uint8  `yaml:"deviceType,omitempty" json:"deviceType,omitempty"`
	ImageVersion  uint32 `yaml:"imageVersion,omitempty" json:"imageVersion,omitempty"`
	UpdateControl uint8  `yaml:"updateControl,omitempty" json:"updateControl,omitempty"`
	VendorID      uint16 `yaml:"vendorId,omitempty" json:"vendorId,omitempty"`
	ProductID     uint16 `yaml:"productId,omitempty" json:"productId,omitempty"`
	UniqueID      uint16 `yaml:"uniqueId,omitempty" json:"uniqueId,omitempty"`
	EntryVersion  uint16 `yaml:"entryVersion,omitempty" json:"entryVersion,omitempty"`

	// resolved marks a profile whose fields are all authoritative.
	// applyDefaults must not touch such a profile, or an explicit
	// zero loaded from a file would be overwritten.
	resolved bool
}

func (p *DeviceProfile) applyDefaults() {
	if p.resolved {
		return
	}
	if p.DeviceType == 0 {
		p.DeviceType = DefaultDeviceType
	}
	if p.ImageVersion == 0 {
		p.ImageVersion = DefaultImageVersion
	}
	if p.VendorID == 0 {
		p.VendorID = DefaultVendorID
	}
	if p.ProductID == 0 {
		p.ProductID = DefaultProductID
	}
	if p.UniqueID == 0 {
		p.UniqueID = DefaultUniqueID
	}
	if p.EntryVersion == 0 {
		p.EntryVersion = DefaultEntryVersion
	}
	p.resolved = true
}

// Resolved returns the profile with all defaults applied. Resolution
// is idempotent.
func (p DeviceProfile) Resolved() DeviceProfile {
	p.applyDefaults()
	return p
}

// DefaultProfile returns the stock identity used when no profile file
// is given.
func DefaultProfile() DeviceProfile {
	var p DeviceProfile
	p.applyDefaults()
	p.Name = "default"
	return p
}

// profileDoc mirrors DeviceProfile with pointer fields so decoding can
// tell an explicit zero in the file apart from an absent key.
type profileDoc struct {
	Name          string  `yaml:"name"`
	DeviceType    *uint8  `yaml:"deviceType"`
	ImageVersion  *uint32 `yaml:"imageVersion"`
	UpdateControl *uint8  `yaml:"updateControl"`
	VendorID      *uint16 `yaml:"vendorId"`
	ProductID     *uint16 `yaml:"productId"`
	UniqueID      *uint16 `yaml:"uniqueId"`
	EntryVersion  *uint16 `yaml:"entryVersion"`
}

// LoadProfile reads a device profile from a YAML file. Fields the file
// leaves out fall back to the defaults; fields the file sets are kept
// verbatim, zero included.
func LoadProfile(path string) (DeviceProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DeviceProfile{}, fmt.Errorf("read profile: %w", err)
	}
	var doc profileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return DeviceProfile{}, fmt.Errorf("parse profile %s: %w", path, err)
	}
	p := DeviceProfile{
		Name:          doc.Name,
		DeviceType:    DefaultDeviceType,
		ImageVersion:  DefaultImageVersion,
		UpdateControl: DefaultUpdateControl,
		VendorID:      DefaultVendorID,
		ProductID:     DefaultProductID,
		UniqueID:      DefaultUniqueID,
		EntryVersion:  DefaultEntryVersion,
		resolved:      true,
	}
	if doc.DeviceType != nil {
		p.DeviceType = *doc.DeviceType
	}
	if doc.ImageVersion != nil {
		p.ImageVersion = *doc.ImageVersion
	}
	if doc.UpdateControl != nil {
		p.UpdateControl = *doc.UpdateControl
	}
	if doc.VendorID != nil {
		p.VendorID = *doc.VendorID
	}
	if doc.ProductID != nil {
		p.ProductID = *doc.ProductID
	}
	if doc.UniqueID != nil {
		p.UniqueID = *doc.UniqueID
	}
	if doc.EntryVersion != nil {
		p.EntryVersion = *doc.EntryVersion
	}
	if p.Name == "" {
		p.Name = path
	}
	return p, nil
}
