package aseparser

import (
	"image/color"

	"github.com/pkg/errors"
)

// palette is the active color table. Entries never written stay fully
// transparent.
type palette [256]color.NRGBA

// applyPalette writes the entries of p into the table, leaving the
// entries outside [First, Last] as they were.
func (pal *palette) applyPalette(p *PaletteChunk, transparent uint8) {
	for i, e := range p.Entries {
		idx := int(p.First) + i
		if idx >= len(pal) {
			break
		}
		pal[idx] = e.Color
	}
	pal[transparent].A = 0
}

func (pal *palette) applyOldPalette(p *OldPaletteChunk, transparent uint8) {
	idx := 0
	for _, pk := range p.Packets {
		idx += int(pk.Skip)
		for _, c := range pk.Colors {
			if idx >= len(pal) {
				break
			}
			pal[idx] = c
			idx++
		}
	}
	pal[transparent].A = 0
}

// resolvePixel returns the color of pixel (x, y) of pix, a stride pixels
// wide image in depth d.
func resolvePixel(x, y int, pix []byte, stride int, d ColorDepth, pal *palette) (color.NRGBA, error) {
	i := x + y*stride
	switch d {
	case Indexed:
		return pal[pix[i]], nil
	case Grayscale:
		v, a := pix[2*i], pix[2*i+1]
		return color.NRGBA{R: v, G: v, B: v, A: a}, nil
	case RGBA:
		p := pix[4*i : 4*i+4 : 4*i+4]
		return color.NRGBA{R: p[0], G: p[1], B: p[2], A: p[3]}, nil
	}
	return color.NRGBA{}, errors.Wrapf(ErrUnsupportedColorDepth, "%d bpp", d)
}
