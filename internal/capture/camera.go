package capture

import (
	"fmt"
	"time"
)

// PixelFormat is a V4L2 fourcc.
type PixelFormat string

// FormatRGB3 is packed 24-bit RGB.
const FormatRGB3 PixelFormat = "RGB3"

// DefaultInterval is the frame interval requested from the camera.
const DefaultInterval = time.Second / 15

// DefaultResolution is used when the camera reports no sizes for the format.
var DefaultResolution = Resolution{Width: 1920, Height: 1080}

// Frame is one raw image from the camera.
type Frame struct {
	Data   []byte
	Width  int
	Height int
	Format PixelFormat
}

// Resolution is a frame size in pixels.
type Resolution struct {
	Width  int
	Height int
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

func (r Resolution) area() int {
	return r.Width * r.Height
}

// ResolutionInfo describes the sizes a camera supports for one pixel format.
// Stepwise is set for cameras reporting a continuous range; Discrete lists fixed sizes.
type ResolutionInfo struct {
	Stepwise *Stepwise
	Discrete []Resolution
}

// Stepwise is a continuous size range.
type Stepwise struct {
	Min Resolution
	Max Resolution
}

// Best picks the size to stream at: the stepwise maximum, else the largest discrete
// size, else DefaultResolution.
func (ri ResolutionInfo) Best() Resolution {
	if ri.Stepwise != nil && ri.Stepwise.Max.area() > 0 {
		return ri.Stepwise.Max
	}
	var best Resolution
	for _, r := range ri.Discrete {
		if r.area() > best.area() {
			best = r
		}
	}
	if best.area() == 0 {
		return DefaultResolution
	}
	return best
}

// StreamConfig is the stream a camera is started with.
type StreamConfig struct {
	Resolution
	Format   PixelFormat
	Interval time.Duration
}

// Camera is a frame source. Implementations need not be safe for concurrent use;
// the Worker is the only caller.
type Camera interface {
	// Resolutions reports the supported sizes for format.
	Resolutions(format PixelFormat) (ResolutionInfo, error)

	// Start begins streaming with cfg.
	Start(cfg StreamConfig) error

	// Capture blocks until the next frame is available.
	Capture() (Frame, error)

	Close() error
}

// Opener opens the camera at device.
type Opener func(device string) (Camera, error)

// DeviceError reports a camera failure that stops the capture subsystem.
type DeviceError struct {
	Op     string
	Device string
	Err    error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("camera %s: %s: %v", e.Device, e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}
