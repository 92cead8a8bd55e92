package imageprint

import (
	"bytes"
	"image"
	"image/color"
	"testing"
)

func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{255, 255, 255, 255})
	img.SetNRGBA(1, 0, color.NRGBA{0, 0, 0, 255})
	img.SetNRGBA(1, 1, color.NRGBA{100, 100, 100, 255})
	return img
}

func TestCells(t *testing.T) {
	if got, want := Cells(testImage(), NoColor), "##..\n  ==\n"; got != want {
		t.Errorf("NoColor = %q, want %q", got, want)
	}

	red := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	red.SetNRGBA(0, 0, color.NRGBA{255, 0, 0, 255})
	if got, want := Cells(red, TrueColor), "\x1b[48;2;255;0;0m  \x1b[0m\n"; got != want {
		t.Errorf("TrueColor = %q, want %q", got, want)
	}
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	if err := Print(&buf, testImage(), NoColor); err != nil {
		t.Fatal(err)
	}
	if buf.String() != Cells(testImage(), NoColor) {
		t.Errorf("Print wrote %q", buf.String())
	}
}

func TestXterm256(t *testing.T) {
	tests := []struct {
		c    color.NRGBA
		want uint8
	}{
		{color.NRGBA{0, 0, 0, 255}, 16},
		{color.NRGBA{255, 255, 255, 255}, 231},
		{color.NRGBA{255, 0, 0, 255}, 196},
		{color.NRGBA{0, 0, 255, 255}, 21},
	}
	for _, tt := range tests {
		if got := xterm256(tt.c); got != tt.want {
			t.Errorf("xterm256(%v) = %d, want %d", tt.c, got, tt.want)
		}
	}
}

func TestFit(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 4))
	if b := Fit(img, 4, 4).Bounds(); b.Dx() != 4 || b.Dy() != 2 {
		t.Errorf("fit 8x4 into 4x4 = %v", b)
	}
	if got := Fit(img, 16, 16); got != image.Image(img) {
		t.Error("small image was resized")
	}
}
