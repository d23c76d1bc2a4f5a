package storage

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"

	"tg-trade-suite/internal/domain"
)

// Vision models downscale internally anyway; sending more than this per side
// only adds upload time and token cost.
const maxDimension = 4096

// DownscaleIfNeeded scales an already-validated image down so neither side
// exceeds maxDimension, preserving aspect ratio and re-encoding in the same
// format. Images within the limit are returned unchanged.
func DownscaleIfNeeded(data []byte, ext string) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnsupportedImage, err)
	}
	if cfg.Width <= maxDimension && cfg.Height <= maxDimension {
		return data, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnsupportedImage, err)
	}

	w, h := cfg.Width, cfg.Height
	if w >= h {
		h = h * maxDimension / w
		w = maxDimension
	} else {
		w = w * maxDimension / h
		h = maxDimension
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if ext == "png" {
		err = png.Encode(&buf, dst)
	} else {
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90})
	}
	if err != nil {
		return nil, fmt.Errorf("re-encode downscaled image: %w", err)
	}
	return buf.Bytes(), nil
}
