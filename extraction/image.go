package extraction

import (
	"bytes"
	"io"
	"strings"

	"github.com/disintegration/imaging"
)

// maxAnalyzerEdge bounds the longest edge of a receipt page image; analyzer
// latency and cost scale with pixel count, accuracy plateaus well below this.
const maxAnalyzerEdge = 2200

// NormalizeReceiptImage downscales and re-encodes an oversized receipt photo
// before it goes to the document analyzer. Non-image content passes through.
func NormalizeReceiptImage(r io.Reader, contentType string) (io.Reader, error) {
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return r, nil
	}

	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		// An image content type that fails to decode is a bad upload,
		// not something the analyzer could do better with.
		return nil, err
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxAnalyzerEdge || bounds.Dy() > maxAnalyzerEdge {
		if bounds.Dx() >= bounds.Dy() {
			img = imaging.Resize(img, maxAnalyzerEdge, 0, imaging.Lanczos)
		} else {
			img = imaging.Resize(img, 0, maxAnalyzerEdge, imaging.Lanczos)
		}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, err
	}
	return &buf, nil
}
