// Package imagecodec turns submitted photos into bounded JPEG payloads for the
// vision request.
package imagecodec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"

	"github.com/disintegration/imaging"

	"truckbrick/api/internal/brick"
)

const (
	Quality   = 85
	MaxPixels = 4_000_000

	// MaxSourcePixels bounds what is decoded at all. Checked from the header
	// before any pixel buffer is allocated.
	MaxSourcePixels = 50_000_000

	MIMEJPEG = "image/jpeg"
)

// Encode decodes a JPEG, PNG or GIF photo and re-encodes it as JPEG, downscaling
// anything above MaxPixels. The photo must already be upright; see DecodeUpright.
func Encode(photo []byte) (brick.EncodedImage, error) {
	if len(photo) == 0 {
		return brick.EncodedImage{}, brick.NewInvalidImageError(errors.New("empty photo"))
	}
	img, err := decode(photo)
	if err != nil {
		return brick.EncodedImage{}, brick.NewInvalidImageError(err)
	}
	return EncodeImage(img)
}

// DecodeUpright decodes a photo and applies its EXIF orientation, so a phone
// picture taken sideways comes out the way it was held.
func DecodeUpright(photo []byte) (image.Image, error) {
	if len(photo) == 0 {
		return nil, brick.NewInvalidImageError(errors.New("empty photo"))
	}
	if err := checkBounds(photo); err != nil {
		return nil, brick.NewInvalidImageError(err)
	}
	img, err := imaging.Decode(bytes.NewReader(photo), imaging.AutoOrientation(true))
	if err != nil {
		return nil, brick.NewInvalidImageError(err)
	}
	return img, nil
}

// EncodeImage is Encode for an already decoded image.
func EncodeImage(img image.Image) (brick.EncodedImage, error) {
	if img == nil {
		return brick.EncodedImage{}, brick.NewInvalidImageError(errors.New("nil image"))
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return brick.EncodedImage{}, brick.NewInvalidImageError(errors.New("empty image bounds"))
	}

	final := flatten(img)
	if total := b.Dx() * b.Dy(); total > MaxPixels {
		scale := math.Sqrt(float64(MaxPixels) / float64(total))
		newW := max(int(float64(b.Dx())*scale), 1)
		newH := max(int(float64(b.Dy())*scale), 1)
		final = imaging.Resize(final, newW, newH, imaging.Lanczos)
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, final, &jpeg.Options{Quality: Quality}); err != nil {
		return brick.EncodedImage{}, brick.NewInvalidImageError(err)
	}
	return brick.EncodedImage{Data: out.Bytes(), MIMEType: MIMEJPEG}, nil
}

// Decode reads an encoded payload back into an image.
func Decode(enc brick.EncodedImage) (image.Image, error) {
	img, err := decode(enc.Data)
	if err != nil {
		return nil, brick.NewInvalidImageError(err)
	}
	return img, nil
}

func decode(b []byte) (image.Image, error) {
	if err := checkBounds(b); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(b))
	return img, err
}

// checkBounds reads only the header.
func checkBounds(b []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return errors.New("empty image bounds")
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxSourcePixels {
		return fmt.Errorf("image is %dx%d, above the %d pixel limit", cfg.Width, cfg.Height, MaxSourcePixels)
	}
	return nil
}

// flatten composes transparent images onto white; JPEG has no alpha and would
// otherwise turn transparent areas black.
func flatten(src image.Image) image.Image {
	switch src.(type) {
	case *image.YCbCr, *image.Gray:
		return src
	}
	b := src.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, src, image.Pt(0, 0), 1.0)
}
