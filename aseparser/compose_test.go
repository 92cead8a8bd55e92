package aseparser

import (
	"bytes"
	"image/color"
	"testing"

	"github.com/setanarut/asebake/internal/asetest"
)

func decode(t *testing.T, f *asetest.File) *Aseprite {
	t.Helper()
	ase, err := DecodeBytes(f.Bytes(), Config{})
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	return ase
}

func hasWarning(ase *Aseprite, kind WarningKind) bool {
	for _, w := range ase.Warnings {
		if w.Kind == kind {
			return true
		}
	}
	return false
}

func layeredFile() *asetest.File {
	f := asetest.New(4, 4)
	f.AddFrame(100,
		asetest.Layer{Name: "base", Opacity: 255}.Chunk(),
		asetest.Layer{Name: "multiply", Opacity: 255, BlendMode: 1}.Chunk(),
		asetest.Layer{Name: "hue", Opacity: 180, BlendMode: 12}.Chunk(),
		asetest.Cel{Layer: 0, Opacity: 255, Width: 4, Height: 4, Pix: asetest.Pixels(4, 4, color.NRGBA{200, 120, 40, 255}), Compressed: true}.Chunk(),
		asetest.Cel{Layer: 1, X: 1, Y: 1, Opacity: 200, Width: 2, Height: 2, Pix: asetest.Pixels(2, 2, color.NRGBA{10, 200, 90, 230})}.Chunk(),
		asetest.Cel{Layer: 2, X: 2, Y: -1, Opacity: 255, Width: 4, Height: 4, Pix: asetest.Pixels(4, 4, color.NRGBA{0, 80, 255, 160}), Compressed: true}.Chunk(),
	)
	f.AddFrame(50, asetest.LinkedCel(0, 0))
	return f
}

func TestDeterminism(t *testing.T) {
	raw := layeredFile().Bytes()
	a, err := DecodeBytes(raw, Config{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := DecodeBytes(raw, Config{})
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.Frames {
		if !bytes.Equal(a.Frames[i].Image.Pix, b.Frames[i].Image.Pix) {
			t.Errorf("frame %d differs between decodes", i)
		}
	}
}

func TestNormalHalfOpacity(t *testing.T) {
	f := asetest.New(1, 1)
	f.AddFrame(100,
		asetest.Layer{Name: "red", Opacity: 255}.Chunk(),
		asetest.Layer{Name: "blue", Opacity: 255}.Chunk(),
		asetest.Cel{Layer: 0, Opacity: 255, Width: 1, Height: 1, Pix: asetest.Pixels(1, 1, red)}.Chunk(),
		asetest.Cel{Layer: 1, Opacity: 128, Width: 1, Height: 1, Pix: asetest.Pixels(1, 1, blue)}.Chunk(),
	)
	ase := decode(t, f)
	if got, want := ase.FrameImage(0).NRGBAAt(0, 0), (color.NRGBA{127, 0, 128, 255}); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestLinkedCelRendersTarget(t *testing.T) {
	ase := decode(t, layeredFile())
	f0, f1 := ase.FrameImage(0), ase.FrameImage(1)

	// Frame 1 only links layer 0.
	want := decode(t, func() *asetest.File {
		f := asetest.New(4, 4)
		f.AddFrame(100,
			asetest.Layer{Name: "base", Opacity: 255}.Chunk(),
			asetest.Cel{Layer: 0, Opacity: 255, Width: 4, Height: 4, Pix: asetest.Pixels(4, 4, color.NRGBA{200, 120, 40, 255})}.Chunk(),
		)
		return f
	}()).FrameImage(0)

	if !bytes.Equal(f1.Pix, want.Pix) {
		t.Error("linked cel does not render like its target")
	}
	if bytes.Equal(f0.Pix, f1.Pix) {
		t.Error("frame 0 should include the upper layers")
	}
	if ase.Frames[1].Duration.Milliseconds() != 50 {
		t.Errorf("duration = %v", ase.Frames[1].Duration)
	}
}

func TestPaletteGap(t *testing.T) {
	f := asetest.New(4, 1)
	f.Depth = 8
	f.TransparentIndex = 15

	entries := make([]color.NRGBA, 11)
	for i := range entries {
		entries[i] = color.NRGBA{uint8(i * 20), 100, 50, 255}
	}
	f.AddFrame(100,
		asetest.Palette(10, entries...),
		asetest.Layer{Name: "a", Opacity: 255}.Chunk(),
		asetest.Cel{Opacity: 255, Width: 4, Height: 1, Pix: []byte{5, 12, 15, 30}}.Chunk(),
	)

	doc := decodeDoc(t, f)
	ws := warnings{}
	p := newCompositor(doc, &ws)
	canvas, _, err := p.composeFrame(0)
	if err != nil {
		t.Fatal(err)
	}

	for i := range p.pal {
		a := p.pal[i].A
		switch {
		case i == 15:
			if a != 0 {
				t.Errorf("transparent index alpha = %d", a)
			}
		case i >= 10 && i <= 20:
			if a != 255 {
				t.Errorf("entry %d alpha = %d, want 255", i, a)
			}
		default:
			if p.pal[i] != (color.NRGBA{}) {
				t.Errorf("entry %d = %v, want transparent", i, p.pal[i])
			}
		}
	}

	wantAlpha := []uint8{0, 255, 0, 0}
	for x, want := range wantAlpha {
		if got := canvas.NRGBAAt(x, 0).A; got != want {
			t.Errorf("pixel %d alpha = %d, want %d", x, got, want)
		}
	}
	if got := canvas.NRGBAAt(1, 0); got != entries[2] {
		t.Errorf("pixel 1 = %v, want %v", got, entries[2])
	}
}

func TestOldPalette(t *testing.T) {
	f := asetest.New(2, 1)
	f.Depth = 8
	f.AddFrame(100,
		asetest.OldPalette(3, red, green),
		asetest.Layer{Name: "a", Opacity: 255}.Chunk(),
		asetest.Cel{Opacity: 255, Width: 2, Height: 1, Pix: []byte{3, 4}}.Chunk(),
	)
	img := decode(t, f).FrameImage(0)
	if img.NRGBAAt(0, 0) != red || img.NRGBAAt(1, 0) != green {
		t.Errorf("got %v %v", img.NRGBAAt(0, 0), img.NRGBAAt(1, 0))
	}
}

func TestGrayscale(t *testing.T) {
	f := asetest.New(1, 1)
	f.Depth = 16
	f.AddFrame(100,
		asetest.Layer{Name: "a", Opacity: 255}.Chunk(),
		asetest.Cel{Opacity: 255, Width: 1, Height: 1, Pix: []byte{90, 255}, Compressed: true}.Chunk(),
	)
	if got, want := decode(t, f).FrameImage(0).NRGBAAt(0, 0), (color.NRGBA{90, 90, 90, 255}); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestVisibility(t *testing.T) {
	tests := []struct {
		name   string
		layers []asetest.Chunk
	}{
		{"hidden layer", []asetest.Chunk{
			asetest.Layer{Name: "a", Opacity: 255, Hidden: true}.Chunk(),
		}},
		{"hidden group", []asetest.Chunk{
			asetest.Layer{Name: "group", Kind: 1, Opacity: 255, Hidden: true}.Chunk(),
			asetest.Layer{Name: "a", ChildLevel: 1, Opacity: 255}.Chunk(),
		}},
		{"reference layer", []asetest.Chunk{
			asetest.Layer{Name: "a", Flags: 1 | 64, Opacity: 255}.Chunk(),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layer := uint16(len(tt.layers) - 1)
			f := asetest.New(2, 2)
			f.AddFrame(100, append(tt.layers,
				asetest.Cel{Layer: layer, Opacity: 255, Width: 2, Height: 2, Pix: asetest.Pixels(2, 2, red)}.Chunk(),
				asetest.UserText("event:hidden"),
			)...)

			ase := decode(t, f)
			for _, px := range ase.FrameImage(0).Pix {
				if px != 0 {
					t.Fatal("invisible cel was painted")
				}
			}
			if len(ase.Frames[0].UserData) != 0 {
				t.Error("invisible cel user data was kept")
			}
		})
	}

	t.Run("visible group", func(t *testing.T) {
		f := asetest.New(1, 1)
		f.AddFrame(100,
			asetest.Layer{Name: "group", Kind: 1, Opacity: 255}.Chunk(),
			asetest.Layer{Name: "a", ChildLevel: 1, Opacity: 255}.Chunk(),
			asetest.Cel{Layer: 1, Opacity: 255, Width: 1, Height: 1, Pix: asetest.Pixels(1, 1, red)}.Chunk(),
		)
		if got := decode(t, f).FrameImage(0).NRGBAAt(0, 0); got != red {
			t.Errorf("got %v, want %v", got, red)
		}
	})
}

func TestClipping(t *testing.T) {
	f := asetest.New(2, 2)
	f.AddFrame(100,
		asetest.Layer{Name: "a", Opacity: 255}.Chunk(),
		asetest.Cel{X: -1, Y: 1, Opacity: 255, Width: 4, Height: 4, Pix: asetest.Pixels(4, 4, green)}.Chunk(),
	)
	img := decode(t, f).FrameImage(0)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			want := color.NRGBA{}
			if y == 1 {
				want = green
			}
			if got := img.NRGBAAt(x, y); got != want {
				t.Errorf("(%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func tilemapFile(tilesetIndex uint32, tiles ...uint32) *asetest.File {
	var pix []byte
	pix = append(pix, asetest.Pixels(2, 1, color.NRGBA{})...)
	pix = append(pix, red.R, red.G, red.B, red.A, green.R, green.G, green.B, green.A)
	pix = append(pix, blue.R, blue.G, blue.B, blue.A, white.R, white.G, white.B, white.A)

	f := asetest.New(4, 1)
	f.AddFrame(100,
		asetest.Tileset{ID: 0, Count: 3, Width: 2, Height: 1, Name: "tiles", Pix: pix}.Chunk(),
		asetest.Layer{Name: "map", Kind: 2, Opacity: 255, TilesetIndex: tilesetIndex}.Chunk(),
		asetest.Tilemap{Opacity: 255, Width: uint16(len(tiles)), Height: 1, Tiles: tiles}.Chunk(),
	)
	return f
}

func TestTilemap(t *testing.T) {
	t.Run("tiles and flips", func(t *testing.T) {
		ase := decode(t, tilemapFile(0, 1, 2|asetest.XFlipMask))
		img := ase.FrameImage(0)
		want := []color.NRGBA{red, green, white, blue}
		for x, w := range want {
			if got := img.NRGBAAt(x, 0); got != w {
				t.Errorf("pixel %d = %v, want %v", x, got, w)
			}
		}
		if len(ase.Warnings) != 0 {
			t.Errorf("warnings = %v", ase.Warnings)
		}
	})

	t.Run("empty tile", func(t *testing.T) {
		img := decode(t, tilemapFile(0, 0, 1)).FrameImage(0)
		if img.NRGBAAt(0, 0) != (color.NRGBA{}) || img.NRGBAAt(2, 0) != red {
			t.Errorf("got %v %v", img.NRGBAAt(0, 0), img.NRGBAAt(2, 0))
		}
	})

	t.Run("tile out of range", func(t *testing.T) {
		ase := decode(t, tilemapFile(0, 9, 1))
		if !hasWarning(ase, TileOutOfRange) {
			t.Errorf("warnings = %v", ase.Warnings)
		}
		if ase.FrameImage(0).NRGBAAt(2, 0) != red {
			t.Error("valid tile after a bad one was not painted")
		}
	})

	t.Run("missing tileset", func(t *testing.T) {
		ase := decode(t, tilemapFile(7, 1, 2))
		if !hasWarning(ase, MissingTileset) {
			t.Errorf("warnings = %v", ase.Warnings)
		}
		for _, px := range ase.FrameImage(0).Pix {
			if px != 0 {
				t.Fatal("cel without tileset was painted")
			}
		}
	})
}

func TestCompositorWarnings(t *testing.T) {
	f := asetest.New(1, 1)
	f.AddFrame(100,
		asetest.Layer{Name: "a", Opacity: 255, BlendMode: 99}.Chunk(),
		asetest.Cel{Layer: 0, Opacity: 255, Width: 1, Height: 1, Pix: asetest.Pixels(1, 1, red)}.Chunk(),
		asetest.Cel{Layer: 4, Opacity: 255, Width: 1, Height: 1, Pix: asetest.Pixels(1, 1, blue)}.Chunk(),
	)
	ase := decode(t, f)
	if !hasWarning(ase, UnknownBlendMode) || !hasWarning(ase, UnknownLayer) {
		t.Errorf("warnings = %v", ase.Warnings)
	}
	if got := ase.FrameImage(0).NRGBAAt(0, 0); got != red {
		t.Errorf("got %v, want %v blended as normal", got, red)
	}
}

func TestAtlas(t *testing.T) {
	ase := decode(t, layeredFile())
	if got := ase.Bounds(); got.Dx() != 8 || got.Dy() != 4 {
		t.Fatalf("atlas bounds = %v", got)
	}
	for i, fr := range ase.Frames {
		sub := ase.Image.(subImager).SubImage(fr.Bounds)
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				got := color.NRGBAModel.Convert(sub.At(fr.Bounds.Min.X+x, fr.Bounds.Min.Y+y))
				if got != fr.Image.NRGBAAt(x, y) {
					t.Fatalf("frame %d (%d,%d): atlas %v, frame %v", i, x, y, got, fr.Image.NRGBAAt(x, y))
				}
			}
		}
	}
}
