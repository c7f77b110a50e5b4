package common

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

const (
	licenseFilename = "aioforge-license.json"
	licenseProduct  = "aioforge"

	// Fallback signing key for licenses issued without a customer key.
	// AIOFORGE_LICENSE_KEY overrides it.
	builtinLicenseKey = "aioforge-offline-v1"
)

// License is a validated offline license.
type License struct {
	Product     string
	MachineHash string
	ValidUntil  time.Time
	Path        string
}

// licenseFile is the on-disk document. The signature is an HMAC-SHA256
// over product, machine hash and expiry, hex encoded.
type licenseFile struct {
	Product   string `json:"product"`
	Machine   string `json:"machine"`
	Expiry    string `json:"expiry"`
	Signature string `json:"signature"`
}

var licenseCheck = sync.OnceValues(func() (*License, error) {
	path, err := findLicenseFile()
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read license: %w", err)
	}
	var doc licenseFile
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse license: %w", err)
	}
	lic, err := doc.validate(time.Now().UTC())
	if err != nil {
		return nil, err
	}
	lic.Path = path
	return lic, nil
})

// RequireValidLicense locates and validates the license file. The
// result is computed once per process; every command start goes through
// this gate before doing any work.
func RequireValidLicense() (*License, error) {
	return licenseCheck()
}

func (doc licenseFile) validate(now time.Time) (*License, error) {
	product := strings.TrimSpace(doc.Product)
	machine := strings.TrimSpace(doc.Machine)
	expiry := strings.TrimSpace(doc.Expiry)
	signature := strings.TrimSpace(doc.Signature)
	switch {
	case machine == "":
		return nil, errors.New("license is missing the machine hash")
	case expiry == "":
		return nil, errors.New("license is missing the expiry date")
	case signature == "":
		return nil, errors.New("license is missing the signature")
	}
	if product == "" {
		product = licenseProduct
	}
	if product != licenseProduct {
		return nil, fmt.Errorf("license is issued for %q, not %s", product, licenseProduct)
	}

	expiryDay, err := time.Parse("2006-01-02", expiry)
	if err != nil {
		return nil, fmt.Errorf("license expiry %q: %w", expiry, err)
	}
	// The expiry day itself is still licensed.
	validUntil := expiryDay.Add(24 * time.Hour)
	if now.After(validUntil) {
		return nil, fmt.Errorf("license expired on %s", expiry)
	}

	fingerprint, err := MachineFingerprint()
	if err != nil {
		return nil, fmt.Errorf("machine fingerprint: %w", err)
	}
	if !strings.EqualFold(fingerprint, machine) {
		return nil, fmt.Errorf("license is bound to machine %s, this machine is %s", machine, fingerprint)
	}

	want := signLicense(product, machine, expiry, licenseSigningKey())
	got, err := hex.DecodeString(signature)
	if err != nil {
		return nil, fmt.Errorf("license signature: %w", err)
	}
	if !hmac.Equal(got, want) {
		return nil, errors.New("license signature does not verify")
	}

	return &License{Product: product, MachineHash: fingerprint, ValidUntil: validUntil}, nil
}

func licenseSigningKey() []byte {
	if env := strings.TrimSpace(os.Getenv("AIOFORGE_LICENSE_KEY")); env != "" {
		return []byte(env)
	}
	return []byte(builtinLicenseKey)
}

func signLicense(product, machine, expiry string, key []byte) []byte {
	mac := hmac.New(sha256.New, key)
	fmt.Fprintf(mac, "%s|%s|%s", product, machine, expiry)
	return mac.Sum(nil)
}

// findLicenseFile checks AIOFORGE_LICENSE_PATH, then the working
// directory, then the directory holding the executable.
func findLicenseFile() (string, error) {
	var checked []string
	try := func(path string) (string, bool) {
		if path == "" {
			return "", false
		}
		path = filepath.Clean(path)
		checked = append(checked, path)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			return "", false
		}
		return path, true
	}

	if path, ok := try(strings.TrimSpace(os.Getenv("AIOFORGE_LICENSE_PATH"))); ok {
		return path, nil
	}
	if cwd, err := os.Getwd(); err == nil {
		if path, ok := try(filepath.Join(cwd, licenseFilename)); ok {
			return path, nil
		}
	}
	if exe, err := os.Executable(); err == nil {
		if path, ok := try(filepath.Join(filepath.Dir(exe), licenseFilename)); ok {
			return path, nil
		}
	}
	return "", fmt.Errorf("license file not found (checked: %s)", strings.Join(checked, ", "))
}

// MachineFingerprint hashes the hostname and non-loopback MAC addresses
// into the stable identifier licenses are issued against. Customers
// send this value to the vendor to obtain a license file.
func MachineFingerprint() (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return "", err
	}
	parts := []string{strings.ToLower(hostname)}

	ifaces, err := net.Interfaces()
	if err != nil {
		return "", err
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) == 0 {
			continue
		}
		parts = append(parts, strings.ToLower(iface.HardwareAddr.String()))
	}
	if len(parts) == 1 {
		// Machines without usable interfaces fall back to the OS name.
		parts = append(parts, runtime.GOOS)
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:]), nil
}

// SignLicenseForTesting produces the signature the validator expects,
// so tests can mint synthetic licenses without vendor tooling.
func SignLicenseForTesting(machineHash, expiry string, key []byte) string {
	return hex.EncodeToString(signLicense(licenseProduct, machineHash, expiry, key))
}
