package capture

import (
	"bytes"
	"errors"
	"image/jpeg"
	"testing"
)

func solidFrame(w, h int, r, g, b byte) Frame {
	data := make([]byte, w*h*3)
	for i := 0; i < len(data); i += 3 {
		data[i], data[i+1], data[i+2] = r, g, b
	}
	return Frame{Data: data, Width: w, Height: h, Format: FormatRGB3}
}

func TestEncode_CropsToSquare(t *testing.T) {
	tests := []struct {
		w, h, side int
	}{
		{32, 18, 18},
		{18, 32, 18},
		{16, 16, 16},
	}

	for _, tt := range tests {
		data, err := Encode(solidFrame(tt.w, tt.h, 200, 10, 10), DefaultQuality)
		if err != nil {
			t.Fatalf("Encode(%dx%d) error = %v", tt.w, tt.h, err)
		}

		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("output is not a JPEG: %v", err)
		}
		b := img.Bounds()
		if b.Dx() != tt.side || b.Dy() != tt.side {
			t.Errorf("Encode(%dx%d) produced %dx%d, want %dx%d", tt.w, tt.h, b.Dx(), b.Dy(), tt.side, tt.side)
		}
	}
}

func TestEncode_KeepsCentre(t *testing.T) {
	// left and right thirds blue, centre red
	f := solidFrame(30, 10, 0, 0, 255)
	for y := 0; y < 10; y++ {
		for x := 10; x < 20; x++ {
			i := (y*30 + x) * 3
			f.Data[i], f.Data[i+1], f.Data[i+2] = 255, 0, 0
		}
	}

	data, err := Encode(f, 100)
	if err != nil {
		t.Fatal(err)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}

	r, _, b, _ := img.At(5, 5).RGBA()
	if r>>8 < 200 || b>>8 > 60 {
		t.Errorf("centre pixel = r%d b%d, want red", r>>8, b>>8)
	}
}

func TestEncode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
		want  error
	}{
		{"wrong format", Frame{Data: make([]byte, 12), Width: 2, Height: 2, Format: "YUYV"}, ErrUnsupportedFormat},
		{"short buffer", Frame{Data: make([]byte, 5), Width: 2, Height: 2, Format: FormatRGB3}, ErrShortFrame},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Encode(tt.frame, DefaultQuality); !errors.Is(err, tt.want) {
				t.Errorf("Encode() error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := Encode(Frame{Format: FormatRGB3}, DefaultQuality); err == nil {
		t.Error("Encode() of an empty frame should fail")
	}
}
