package capture

import (
	"errors"
	"time"
)

// FakeCamera produces synthetic gradient frames at the configured interval.
type FakeCamera struct {
	Sizes []Resolution

	cfg    StreamConfig
	frames int
	last   time.Time
	closed bool
}

// NewFakeCamera returns a FakeCamera reporting sizes. With no sizes it reports none,
// and the worker falls back to DefaultResolution.
func NewFakeCamera(sizes ...Resolution) *FakeCamera {
	return &FakeCamera{Sizes: sizes}
}

// OpenFake is an Opener for a FakeCamera offering 1280x720 and 640x480.
func OpenFake(string) (Camera, error) {
	return NewFakeCamera(Resolution{Width: 1280, Height: 720}, Resolution{Width: 640, Height: 480}), nil
}

func (c *FakeCamera) Resolutions(format PixelFormat) (ResolutionInfo, error) {
	if format != FormatRGB3 {
		return ResolutionInfo{}, nil
	}
	return ResolutionInfo{Discrete: c.Sizes}, nil
}

func (c *FakeCamera) Start(cfg StreamConfig) error {
	if cfg.Format != FormatRGB3 {
		return ErrUnsupportedFormat
	}
	c.cfg = cfg
	return nil
}

// Capture paces frames to the stream interval and returns a gradient that shifts
// with every frame.
func (c *FakeCamera) Capture() (Frame, error) {
	if c.closed {
		return Frame{}, errors.New("camera closed")
	}
	if c.cfg.Width == 0 {
		return Frame{}, errors.New("stream not started")
	}

	if wait := c.cfg.Interval - time.Since(c.last); !c.last.IsZero() && wait > 0 {
		time.Sleep(wait)
	}
	c.last = time.Now()
	c.frames++

	w, h := c.cfg.Width, c.cfg.Height
	data := make([]byte, w*h*3)
	shift := c.frames * 4
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 3
			data[i] = byte((x*255/w + shift) % 256)
			data[i+1] = byte(y * 255 / h)
			data[i+2] = byte(shift % 256)
		}
	}

	return Frame{Data: data, Width: w, Height: h, Format: FormatRGB3}, nil
}

func (c *FakeCamera) Close() error {
	c.closed = true
	return nil
}
