// Package photos fetches site photos attached to reports and normalizes them
// for embedding in documents.
package photos

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"buildtrack/pkg/contracts/domain"
)

// DefaultMaxBytes caps a single photo download.
const DefaultMaxBytes = 10 << 20

var (
	// ErrNoSource means the photo has neither a storage path nor a public URL.
	ErrNoSource = errors.New("photo has no source")
	// ErrTooLarge means the photo exceeded the byte cap.
	ErrTooLarge = errors.New("photo exceeds size limit")
	// ErrEmptyImage means the photo decoded to zero pixels.
	ErrEmptyImage = errors.New("photo is empty")
)

// Fetcher downloads photo bytes.
type Fetcher interface {
	Fetch(ctx context.Context, ref domain.PhotoRef) ([]byte, error)
}

// Chain tries object storage for refs with a storage path and falls back to
// the public URL.
type Chain struct {
	Storage Fetcher
	Public  Fetcher
}

// Fetch implements Fetcher.
func (c Chain) Fetch(ctx context.Context, ref domain.PhotoRef) ([]byte, error) {
	var storageErr error
	if c.Storage != nil && ref.StoragePath != "" {
		data, err := c.Storage.Fetch(ctx, ref)
		if err == nil {
			return data, nil
		}
		storageErr = err
	}
	if c.Public != nil && ref.PublicURL != "" {
		data, err := c.Public.Fetch(ctx, ref)
		if err != nil {
			return nil, errors.Join(storageErr, err)
		}
		return data, nil
	}
	if storageErr != nil {
		return nil, storageErr
	}
	return nil, ErrNoSource
}

// Normalized is an image re-encoded as JPEG.
type Normalized struct {
	JPEG   []byte
	Width  int
	Height int
}

// Normalize decodes PNG, JPEG or WebP data, flattens transparency onto white
// and re-encodes it as JPEG.
func Normalize(data []byte) (Normalized, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Normalized{}, fmt.Errorf("decode image: %w", err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return Normalized{}, ErrEmptyImage
	}

	flat := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(flat, flat.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), img, b.Min, draw.Over)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: 88}); err != nil {
		return Normalized{}, fmt.Errorf("encode image: %w", err)
	}
	return Normalized{JPEG: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}
