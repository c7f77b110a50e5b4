package common

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"os"
)

// ReadImageFile loads a firmware file whole. Files beyond 32-bit
// addressing can never be placed in a packaged image, so they are
// rejected before a multi-gigabyte read instead of after.
func ReadImageFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > math.MaxUint32 {
		return nil, fmt.Errorf("%s: %s exceeds 32-bit addressing", path, FormatBytes(info.Size()))
	}
	return os.ReadFile(path)
}

// Sha256OfFile streams the file through SHA-256 and returns the hex
// digest together with the file size.
func Sha256OfFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()
	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), size, nil
}

// Sha256OfBytes returns the hex SHA-256 digest of an in-memory buffer.
func Sha256OfBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
