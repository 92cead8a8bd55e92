package blend

import "image/color"

func lum(r, g, b float64) float64 {
	return 0.3*r + 0.59*g + 0.11*b
}

func sat(r, g, b float64) float64 {
	return max(r, g, b) - min(r, g, b)
}

func clipColor(r, g, b *float64) {
	l := lum(*r, *g, *b)
	n := min(*r, *g, *b)
	x := max(*r, *g, *b)

	if n < 0 {
		*r = l + (*r-l)*l/(l-n)
		*g = l + (*g-l)*l/(l-n)
		*b = l + (*b-l)*l/(l-n)
	}

	if x > 1 {
		*r = l + (*r-l)*(1-l)/(x-l)
		*g = l + (*g-l)*(1-l)/(x-l)
		*b = l + (*b-l)*(1-l)/(x-l)
	}
}

func setLum(r, g, b *float64, l float64) {
	d := l - lum(*r, *g, *b)
	*r += d
	*g += d
	*b += d
	clipColor(r, g, b)
}

// refMin, refMid and refMax pick channels by reference, with the same tie
// breaking as the editor's MIN/MID/MAX macros.
func refMin(x, y *float64) *float64 {
	if *x < *y {
		return x
	}
	return y
}

func refMax(x, y *float64) *float64 {
	if *x > *y {
		return x
	}
	return y
}

func refMid(x, y, z *float64) *float64 {
	if *x > *y {
		if *y > *z {
			return y
		}
		if *x > *z {
			return z
		}
		return x
	}
	if *y > *z {
		if *z > *x {
			return z
		}
		return x
	}
	return y
}

func setSat(r, g, b *float64, s float64) {
	lo := refMin(r, refMin(g, b))
	mid := refMid(r, g, b)
	hi := refMax(r, refMax(g, b))

	if *hi > *lo {
		*mid = (*mid - *lo) * s / (*hi - *lo)
		*hi = s
	} else {
		*mid = 0
		*hi = 0
	}
	*lo = 0
}

func unit(c uint8) float64 {
	return float64(c) / 255
}

// toByte truncates like the editor's (uint32)(255.0*x) cast. Values are
// clamped so out of gamut results stay inside the channel.
func toByte(x float64) uint8 {
	v := 255.0 * x
	switch {
	case !(v >= 0):
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v)
}

func hslResult(backdrop, src color.NRGBA, opacity uint8, r, g, b float64) color.NRGBA {
	blended := color.NRGBA{R: toByte(r), G: toByte(g), B: toByte(b), A: src.A}
	return NormalFunc(backdrop, blended, opacity)
}

// HueFunc takes the source hue with the backdrop saturation and luminosity.
func HueFunc(backdrop, src color.NRGBA, opacity uint8) color.NRGBA {
	r, g, b := unit(backdrop.R), unit(backdrop.G), unit(backdrop.B)
	s := sat(r, g, b)
	l := lum(r, g, b)

	r, g, b = unit(src.R), unit(src.G), unit(src.B)
	setSat(&r, &g, &b, s)
	setLum(&r, &g, &b, l)

	return hslResult(backdrop, src, opacity, r, g, b)
}

// SaturationFunc takes the source saturation with the backdrop hue and luminosity.
func SaturationFunc(backdrop, src color.NRGBA, opacity uint8) color.NRGBA {
	s := sat(unit(src.R), unit(src.G), unit(src.B))

	r, g, b := unit(backdrop.R), unit(backdrop.G), unit(backdrop.B)
	l := lum(r, g, b)
	setSat(&r, &g, &b, s)
	setLum(&r, &g, &b, l)

	return hslResult(backdrop, src, opacity, r, g, b)
}

// ColorFunc takes the source hue and saturation with the backdrop luminosity.
func ColorFunc(backdrop, src color.NRGBA, opacity uint8) color.NRGBA {
	l := lum(unit(backdrop.R), unit(backdrop.G), unit(backdrop.B))

	r, g, b := unit(src.R), unit(src.G), unit(src.B)
	setLum(&r, &g, &b, l)

	return hslResult(backdrop, src, opacity, r, g, b)
}

// LuminosityFunc takes the source luminosity with the backdrop hue and saturation.
func LuminosityFunc(backdrop, src color.NRGBA, opacity uint8) color.NRGBA {
	l := lum(unit(src.R), unit(src.G), unit(src.B))

	r, g, b := unit(backdrop.R), unit(backdrop.G), unit(backdrop.B)
	setLum(&r, &g, &b, l)

	return hslResult(backdrop, src, opacity, r, g, b)
}
