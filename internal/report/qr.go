package report

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// ImageHashToQR renders the output image digest as a QR code PNG, so a
// flashing bench can scan the expected checksum straight off a printed
// report. The code encodes "sha256:" followed by the lowercase hex
// digest.
func ImageHashToQR(digest string, size int) ([]byte, error) {
	digest = strings.ToLower(strings.TrimSpace(digest))
	if digest == "" {
		return nil, fmt.Errorf("image digest is empty")
	}
	for _, r := range digest {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return nil, fmt.Errorf("image digest is not hex: %q", digest)
		}
	}
	if size <= 0 {
		size = 128
	}
	return qrcode.Encode("sha256:"+digest, qrcode.Medium, size)
}
