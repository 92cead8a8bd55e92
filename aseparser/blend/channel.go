package blend

import "math"

func multiply(b, s uint8) uint8 {
	return MulUN8(b, s)
}

func screen(b, s uint8) uint8 {
	return uint8(int(b) + int(s) - int(MulUN8(b, s)))
}

func overlay(b, s uint8) uint8 {
	return hardLight(s, b)
}

func darken(b, s uint8) uint8 {
	return min(b, s)
}

func lighten(b, s uint8) uint8 {
	return max(b, s)
}

func hardLight(b, s uint8) uint8 {
	if s < 128 {
		return multiply(b, s<<1)
	}
	return screen(b, uint8(int(s)<<1-255))
}

func difference(b, s uint8) uint8 {
	if b > s {
		return b - s
	}
	return s - b
}

func exclusion(b, s uint8) uint8 {
	t := int(MulUN8(b, s))
	return uint8(int(b) + int(s) - 2*t)
}

func divide(b, s uint8) uint8 {
	switch {
	case b == 0:
		return 0
	case b >= s:
		return 255
	}
	return DivUN8(b, s)
}

func colorDodge(b, s uint8) uint8 {
	if b == 0 {
		return 0
	}
	s = 255 - s
	if b >= s {
		return 255
	}
	return DivUN8(b, s) // b / (1-s)
}

func colorBurn(b, s uint8) uint8 {
	if b == 255 {
		return 255
	}
	b = 255 - b
	if b >= s {
		return 0
	}
	return 255 - DivUN8(b, s) // 1 - ((1-b)/s)
}

func softLight(b8, s8 uint8) uint8 {
	b := float64(b8) / 255
	s := float64(s8) / 255

	var d float64
	if b <= 0.25 {
		d = ((16*b-12)*b + 4) * b
	} else {
		d = math.Sqrt(b)
	}

	var r float64
	if s <= 0.5 {
		r = b - (1-2*s)*b*(1-b)
	} else {
		r = b + (2*s-1)*(d-b)
	}

	return uint8(r*255 + 0.5)
}

func addition(b, s uint8) uint8 {
	return uint8(min(int(b)+int(s), 255))
}

func subtract(b, s uint8) uint8 {
	return uint8(max(int(b)-int(s), 0))
}
