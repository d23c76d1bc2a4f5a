package storage

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	"tg-trade-suite/internal/domain"
)

const (
	minFileSize  = 1024 // anything smaller is not a chart screenshot
	minDimension = 100
)

// ValidateImage checks an uploaded chart image before it is stored or sent
// to the vision model: allowed format, sane byte size, minimum dimensions.
// Returns the normalized extension ("jpg" or "png").
func ValidateImage(data []byte, declaredExt string, maxFileSize int64) (string, error) {
	if int64(len(data)) > maxFileSize {
		return "", fmt.Errorf("%w: %d bytes (max %d)", domain.ErrImageTooLarge, len(data), maxFileSize)
	}
	if len(data) < minFileSize {
		return "", fmt.Errorf("%w: %d bytes", domain.ErrImageTooSmall, len(data))
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnsupportedImage, err)
	}
	switch format {
	case "jpeg", "png":
	default:
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedImage, format)
	}
	if cfg.Width < minDimension || cfg.Height < minDimension {
		return "", fmt.Errorf("%w: %dx%d (minimum %dx%d)", domain.ErrImageTooSmall,
			cfg.Width, cfg.Height, minDimension, minDimension)
	}

	ext := normalizeExt(declaredExt, format)
	return ext, nil
}

func normalizeExt(declared, decoded string) string {
	declared = strings.ToLower(strings.TrimPrefix(declared, "."))
	switch declared {
	case "png":
		return "png"
	case "jpg", "jpeg":
		return "jpg"
	}
	if decoded == "png" {
		return "png"
	}
	return "jpg"
}

// MimeType maps a normalized extension to the content type sent upstream.
func MimeType(ext string) string {
	if ext == "png" {
		return "image/png"
	}
	return "image/jpeg"
}
