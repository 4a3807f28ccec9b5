package storage

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/disintegration/imaging"
)

const (
	// MaxUploadBytes is the raw upload cap.
	MaxUploadBytes = 10 * 1024 * 1024
	// MaxDimension bounds the longest edge after transcoding.
	MaxDimension = 1200
	// JPEGQuality is the canonical output quality factor.
	JPEGQuality = 85
)

var (
	ErrUnsupportedMediaType = fmt.Errorf("unsupported image type (jpeg, jpg, png, gif, webp)")
	ErrPayloadTooLarge      = fmt.Errorf("image exceeds %dMB", MaxUploadBytes/(1024*1024))
)

var allowedExtensions = map[string]bool{
	".jpeg": true, ".jpg": true, ".png": true, ".gif": true, ".webp": true,
}

var allowedMimeTypes = map[string]bool{
	"image/jpeg": true, "image/jpg": true, "image/png": true,
	"image/gif": true, "image/webp": true,
}

// ProcessedImage is a transcoded image held in memory. It carries no storage
// identity; the blob store assigns that.
type ProcessedImage struct {
	Data        []byte
	Format      string
	ContentType string
	Width       int
	Height      int
}

// ImageProcessor validates uploads and transcodes them into the canonical
// format (JPEG, longest edge capped, fixed quality). It holds no state and is
// safe for concurrent use.
type ImageProcessor struct {
	MaxBytes     int64
	MaxDimension int
	Quality      int
}

func NewImageProcessor() *ImageProcessor {
	return &ImageProcessor{
		MaxBytes:     MaxUploadBytes,
		MaxDimension: MaxDimension,
		Quality:      JPEGQuality,
	}
}

// Process checks the declared filename/MIME type against the allow-list and
// the raw size against the cap, then decodes and re-encodes. Smaller images
// are never upscaled.
func (p *ImageProcessor) Process(data []byte, filename, mimeType string) (*ProcessedImage, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] || !allowedMimeTypes[strings.ToLower(mimeType)] {
		return nil, ErrUnsupportedMediaType
	}
	if int64(len(data)) > p.MaxBytes {
		return nil, ErrPayloadTooLarge
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedMediaType, err)
	}

	// Fit only scales down, preserving aspect ratio.
	bounds := img.Bounds()
	if bounds.Dx() > p.MaxDimension || bounds.Dy() > p.MaxDimension {
		img = imaging.Fit(img, p.MaxDimension, p.MaxDimension, imaging.Lanczos)
		bounds = img.Bounds()
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: p.Quality}); err != nil {
		return nil, fmt.Errorf("cannot encode image: %w", err)
	}

	return &ProcessedImage{
		Data:        buf.Bytes(),
		Format:      "jpg",
		ContentType: "image/jpeg",
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
	}, nil
}
