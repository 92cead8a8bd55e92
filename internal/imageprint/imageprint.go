// Package imageprint prints images on terminal.
//
// Pixels are drawn as two-column cells. Terminals speaking the Kitty,
// iTerm2 or Sixel protocols get the image itself instead.
package imageprint

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"strings"

	"github.com/BourgeoisBear/rasterm"
	"github.com/andybons/gogif"
	gcolor "github.com/gookit/color"
	"github.com/nfnt/resize"
)

// Mode selects how pixels are written.
type Mode int

const (
	// Auto uses a raster protocol when the terminal has one and falls
	// back to TrueColor.
	Auto Mode = iota
	TrueColor
	Color256
	NoColor
)

// Print draws img on w.
func Print(w io.Writer, img image.Image, mode Mode) error {
	if mode == Auto {
		ok, err := PrintRaster(w, img)
		if ok || err != nil {
			return err
		}
		mode = TrueColor
	}
	_, err := io.WriteString(w, Cells(img, mode))
	return err
}

// PrintRaster draws img with the first raster protocol the terminal on
// stdout supports. It reports false when there is none.
func PrintRaster(w io.Writer, img image.Image) (bool, error) {
	var s rasterm.Settings
	var err error
	switch {
	case rasterm.IsTermKitty():
		err = s.KittyWriteImage(w, img)
	case rasterm.IsTermItermWez():
		err = s.ItermWriteImage(w, img)
	default:
		capable, cerr := rasterm.IsSixelCapable()
		if !capable || cerr != nil {
			return false, nil
		}
		paletted := image.NewPaletted(img.Bounds(), nil)
		quantizer := gogif.MedianCutQuantizer{NumColor: 64}
		quantizer.Quantize(paletted, img.Bounds(), img, image.Point{})
		err = s.SixelWriteImage(w, paletted)
	}
	if err != nil {
		return true, err
	}
	_, err = fmt.Fprintln(w)
	return true, err
}

// Cells renders img as text, one two-column cell per pixel. Transparent
// pixels are blank.
func Cells(img image.Image, mode Mode) string {
	var sb strings.Builder
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			sb.WriteString(cell(img.At(x, y), mode))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func cell(c color.Color, mode Mode) string {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	if n.A == 0 {
		return "  "
	}
	switch mode {
	case NoColor:
		return shade(n)
	case Color256:
		return gcolor.C256(xterm256(n), true).Sprint("  ")
	}
	return fmt.Sprintf("\x1b[48;2;%d;%d;%dm  \x1b[0m", n.R, n.G, n.B)
}

// xterm256 maps n onto the 6x6x6 color cube of the xterm palette.
func xterm256(n color.NRGBA) uint8 {
	level := func(v uint8) uint8 { return uint8((int(v)*5 + 127) / 255) }
	return 16 + 36*level(n.R) + 6*level(n.G) + level(n.B)
}

// shade is ascii art by brightness.
func shade(n color.NRGBA) string {
	a := (int(n.R) + int(n.G) + int(n.B)) / 3
	switch {
	case a < 32:
		return ".."
	case a < 64:
		return "--"
	case a < 128:
		return "=="
	}
	return "##"
}

// Fit shrinks img to fit in maxW by maxH cells, keeping the aspect
// ratio. Images already small enough are returned as is.
func Fit(img image.Image, maxW, maxH uint) image.Image {
	return resize.Thumbnail(maxW, maxH, img, resize.NearestNeighbor)
}

// IsTerminal reports whether stdout is a character device.
func IsTerminal() bool {
	fi, err := os.Stdout.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
