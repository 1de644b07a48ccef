package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// DefaultQuality is the JPEG quality used for published snapshots.
const DefaultQuality = 90

var (
	// ErrUnsupportedFormat is returned by Encode for frames that are not FormatRGB3.
	ErrUnsupportedFormat = errors.New("unsupported pixel format")

	// ErrShortFrame is returned when a frame holds fewer bytes than its size implies.
	ErrShortFrame = errors.New("frame buffer too short")
)

// Image converts an RGB3 frame to an image.
func (f Frame) Image() (*image.NRGBA, error) {
	if f.Format != FormatRGB3 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f.Format)
	}
	if f.Width <= 0 || f.Height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", f.Width, f.Height)
	}
	if len(f.Data) < f.Width*f.Height*3 {
		return nil, fmt.Errorf("%w: have %d bytes for %dx%d", ErrShortFrame, len(f.Data), f.Width, f.Height)
	}

	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	for i, j := 0, 0; i < f.Width*f.Height*3; i, j = i+3, j+4 {
		img.Pix[j] = f.Data[i]
		img.Pix[j+1] = f.Data[i+1]
		img.Pix[j+2] = f.Data[i+2]
		img.Pix[j+3] = 0xff
	}
	return img, nil
}

// Encode crops f to the centred square and encodes it as JPEG.
func Encode(f Frame, quality int) ([]byte, error) {
	img, err := f.Image()
	if err != nil {
		return nil, err
	}

	cropped := imaging.Crop(img, SquareCrop(f.Width, f.Height).Rect())

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, cropped, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
