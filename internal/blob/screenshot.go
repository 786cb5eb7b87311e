package blob

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrNotImage = errors.New("file is not an image")
	ErrTooLarge = errors.New("file too large")
	ErrEmpty    = errors.New("empty file")
)

// Object is an upload ready to be stored.
type Object struct {
	ContentType string
	Ext         string
	Data        []byte
}

type ScreenshotOptions struct {
	MaxBytes int64
	// MaxDim bounds width and height; 0 keeps the original size.
	MaxDim int
	// MaxPixels bounds width*height declared in the image header, checked
	// before decoding.
	MaxPixels int64
	Quality   float32
}

func DefaultScreenshotOptions() ScreenshotOptions {
	return ScreenshotOptions{MaxBytes: 10 << 20, MaxDim: 1600, MaxPixels: 40_000_000, Quality: 80}
}

// ReadScreenshot reads an uploaded payment screenshot. JPEG, PNG and WebP are
// downscaled and re-encoded as WebP; other image types are kept as uploaded.
func ReadScreenshot(r io.Reader, opt ScreenshotOptions) (Object, error) {
	limit := opt.MaxBytes
	if limit <= 0 {
		limit = DefaultScreenshotOptions().MaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return Object{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return Object{}, ErrEmpty
	}
	if int64(len(data)) > limit {
		return Object{}, fmt.Errorf("%w (max %d bytes)", ErrTooLarge, limit)
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return Object{}, fmt.Errorf("%w: %s", ErrNotImage, mt.String())
	}

	var (
		img image.Image
		cfg image.Config
	)
	switch {
	case mt.Is("image/jpeg"), mt.Is("image/png"):
		if cfg, _, err = image.DecodeConfig(bytes.NewReader(data)); err == nil {
			if err = checkPixels(cfg, opt.MaxPixels); err != nil {
				return Object{}, err
			}
			img, err = imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
		}
	case mt.Is("image/webp"):
		if cfg, err = webp.DecodeConfig(bytes.NewReader(data)); err == nil {
			if err = checkPixels(cfg, opt.MaxPixels); err != nil {
				return Object{}, err
			}
			img, err = webp.Decode(bytes.NewReader(data))
		}
	default:
		return Object{ContentType: mt.String(), Ext: mt.Extension(), Data: data}, nil
	}
	if err != nil {
		return Object{}, fmt.Errorf("%w: decode %s: %v", ErrNotImage, mt.String(), err)
	}

	if opt.MaxDim > 0 {
		img = imaging.Fit(img, opt.MaxDim, opt.MaxDim, imaging.Lanczos)
	}
	q := opt.Quality
	if q <= 0 {
		q = 80
	}
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: q}); err != nil {
		return Object{}, fmt.Errorf("encode webp: %w", err)
	}
	return Object{ContentType: "image/webp", Ext: ".webp", Data: buf.Bytes()}, nil
}

// checkPixels refuses images whose decoded bitmap would exceed the budget.
func checkPixels(cfg image.Config, maxPixels int64) error {
	if maxPixels <= 0 {
		maxPixels = DefaultScreenshotOptions().MaxPixels
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: invalid dimensions %dx%d", ErrNotImage, cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return fmt.Errorf("%w (%dx%d exceeds %d pixels)", ErrTooLarge, cfg.Width, cfg.Height, maxPixels)
	}
	return nil
}
