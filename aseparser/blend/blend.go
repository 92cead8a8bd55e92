// Package blend implements Aseprite's layer blend modes on non-premultiplied
// 8-bit RGBA colors.
//
// The arithmetic follows aseprite/src/doc/blend_funcs.cpp, including its
// pixman-style fixed point rounding, so results are bit-exact with the editor.
package blend

import (
	"image/color"
)

// Func blends src over backdrop with the given layer opacity (0-255).
type Func func(backdrop, src color.NRGBA, opacity uint8) color.NRGBA

// Mode is a layer blend mode as stored in the layer chunk.
type Mode uint16

const (
	Normal Mode = iota
	Multiply
	Screen
	Overlay
	Darken
	Lighten
	ColorDodge
	ColorBurn
	HardLight
	SoftLight
	Difference
	Exclusion
	Hue
	Saturation
	Color
	Luminosity
	Addition
	Subtract
	Divide
)

var modeNames = [...]string{
	"normal", "multiply", "screen", "overlay", "darken", "lighten",
	"color-dodge", "color-burn", "hard-light", "soft-light", "difference",
	"exclusion", "hue", "saturation", "color", "luminosity", "addition",
	"subtract", "divide",
}

// Modes maps each Mode to its blend function.
var Modes = [...]Func{
	Normal:     NormalFunc,
	Multiply:   channelFunc(multiply),
	Screen:     channelFunc(screen),
	Overlay:    channelFunc(overlay),
	Darken:     channelFunc(darken),
	Lighten:    channelFunc(lighten),
	ColorDodge: channelFunc(colorDodge),
	ColorBurn:  channelFunc(colorBurn),
	HardLight:  channelFunc(hardLight),
	SoftLight:  channelFunc(softLight),
	Difference: channelFunc(difference),
	Exclusion:  channelFunc(exclusion),
	Hue:        HueFunc,
	Saturation: SaturationFunc,
	Color:      ColorFunc,
	Luminosity: LuminosityFunc,
	Addition:   channelFunc(addition),
	Subtract:   channelFunc(subtract),
	Divide:     channelFunc(divide),
}

// Valid reports whether m is a known blend mode.
func (m Mode) Valid() bool {
	return int(m) < len(Modes)
}

// Func returns the blend function for m. Unknown modes blend as Normal.
func (m Mode) Func() Func {
	if !m.Valid() {
		return NormalFunc
	}
	return Modes[m]
}

func (m Mode) String() string {
	if !m.Valid() {
		return "unknown"
	}
	return modeNames[m]
}

// MulUN8 multiplies two 8-bit fractions with rounding.
func MulUN8(a, b uint8) uint8 {
	t := int(a)*int(b) + 0x80
	return uint8(((t >> 8) + t) >> 8)
}

// DivUN8 divides a by b as 8-bit fractions with rounding. b must not be 0.
func DivUN8(a, b uint8) uint8 {
	return uint8((int(a)*0xff + int(b)/2) / int(b))
}

// NormalFunc composites src over backdrop ("over" operator).
func NormalFunc(backdrop, src color.NRGBA, opacity uint8) color.NRGBA {
	sa := MulUN8(src.A, opacity)
	if backdrop.A == 0 {
		return color.NRGBA{src.R, src.G, src.B, sa}
	}
	if sa == 0 {
		return backdrop
	}

	ba := int(backdrop.A)
	ra := int(sa) + ba - int(MulUN8(backdrop.A, sa))

	// Rc = Bc + (Sc-Bc)*Sa/Ra
	mix := func(b, s uint8) uint8 {
		return uint8(int(b) + (int(s)-int(b))*int(sa)/ra)
	}

	return color.NRGBA{
		R: mix(backdrop.R, src.R),
		G: mix(backdrop.G, src.G),
		B: mix(backdrop.B, src.B),
		A: uint8(ra),
	}
}

// channelFunc lifts a per-channel blend into a Func. The blended color keeps
// the source alpha and is then composited with NormalFunc.
func channelFunc(f func(b, s uint8) uint8) Func {
	return func(backdrop, src color.NRGBA, opacity uint8) color.NRGBA {
		blended := color.NRGBA{
			R: f(backdrop.R, src.R),
			G: f(backdrop.G, src.G),
			B: f(backdrop.B, src.B),
			A: src.A,
		}
		return NormalFunc(backdrop, blended, opacity)
	}
}
