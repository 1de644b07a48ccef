package capture

import "image"

// CropWindow is a rectangle within a frame.
type CropWindow struct {
	Left   int
	Top    int
	Width  int
	Height int
}

// Rect returns the window as an image.Rectangle.
func (c CropWindow) Rect() image.Rectangle {
	return image.Rect(c.Left, c.Top, c.Left+c.Width, c.Top+c.Height)
}

// SquareCrop returns the largest square centred in a width x height frame. When the
// difference is odd the extra pixel is left on the right or bottom.
func SquareCrop(width, height int) CropWindow {
	switch {
	case width > height:
		return CropWindow{Left: (width - height) / 2, Width: height, Height: height}
	case height > width:
		return CropWindow{Top: (height - width) / 2, Width: width, Height: width}
	default:
		return CropWindow{Width: width, Height: height}
	}
}
