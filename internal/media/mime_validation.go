package media

import (
	"fmt"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// allowedImageTypes are the content types accepted for uploads. image/jpg is
// not a registered type but browsers still send it.
var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/jpg":  {},
	"image/png":  {},
	"image/webp": {},
}

const allowedDescription = "JPEG, PNG or WebP images"

func normalizeMimeType(value string) (string, error) {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return "", fmt.Errorf("mime type required")
	}
	mediaType, _, err := mime.ParseMediaType(clean)
	if err != nil {
		return "", fmt.Errorf("mime type invalid: %w", err)
	}
	if mediaType == "" {
		return "", fmt.Errorf("mime type missing")
	}
	return strings.ToLower(mediaType), nil
}

func isAllowedMime(mimeType string) bool {
	_, ok := allowedImageTypes[strings.ToLower(mimeType)]
	return ok
}

// sniffMimeType detects the content type from the file bytes.
func sniffMimeType(data []byte) string {
	detected := mimetype.Detect(data)
	mediaType, _, err := mime.ParseMediaType(detected.String())
	if err != nil {
		return detected.String()
	}
	return strings.ToLower(mediaType)
}
