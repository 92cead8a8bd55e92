// Package asetest builds Aseprite files in memory for tests.
package asetest

import (
	"bytes"
	"encoding/binary"
	"image/color"

	"github.com/klauspost/compress/zlib"
)

// Header flags.
const (
	LayerOpacityValid = 1
	LayerUUID         = 4
)

// Chunk types.
const (
	OldPaletteType   = 0x0004
	LayerType        = 0x2004
	CelType          = 0x2005
	ColorProfileType = 0x2007
	FrameTagsType    = 0x2018
	PaletteType      = 0x2019
	UserDataType     = 0x2020
	SliceType        = 0x2022
	TilesetType      = 0x2023
)

// File is an Aseprite file under construction.
type File struct {
	Width, Height    uint16
	Depth            uint16 // 8, 16 or 32; 0 means 32
	Flags            uint32
	TransparentIndex uint8
	Frames           []Frame
}

type Frame struct {
	DurationMS uint16
	Chunks     []Chunk
}

// Chunk is a raw chunk payload, without the 6-byte chunk header.
type Chunk struct {
	Type uint16
	Data []byte
}

// New returns an RGBA file with layer opacity enabled.
func New(w, h int) *File {
	return &File{Width: uint16(w), Height: uint16(h), Depth: 32, Flags: LayerOpacityValid}
}

// AddFrame appends a frame and returns its index.
func (f *File) AddFrame(durationMS int, chunks ...Chunk) int {
	f.Frames = append(f.Frames, Frame{DurationMS: uint16(durationMS), Chunks: chunks})
	return len(f.Frames) - 1
}

// Bytes encodes the file.
func (f *File) Bytes() []byte {
	var body []byte
	for _, fr := range f.Frames {
		body = append(body, fr.bytes()...)
	}

	depth := f.Depth
	if depth == 0 {
		depth = 32
	}

	var w writer
	w.u32(uint32(128 + len(body)))
	w.u16(0xA5E0)
	w.u16(uint16(len(f.Frames)))
	w.u16(f.Width)
	w.u16(f.Height)
	w.u16(depth)
	w.u32(f.Flags)
	w.u16(100) // speed
	w.zero(8)
	w.u8(f.TransparentIndex)
	w.zero(3)
	w.u16(256)
	w.u8(1)
	w.u8(1)
	w.zero(128 - len(w.b))
	return append(w.b, body...)
}

func (fr Frame) bytes() []byte {
	var chunks writer
	for _, c := range fr.Chunks {
		chunks.u32(uint32(len(c.Data) + 6))
		chunks.u16(c.Type)
		chunks.raw(c.Data)
	}

	var w writer
	w.u32(uint32(16 + len(chunks.b)))
	w.u16(0xF1FA)
	w.u16(uint16(min(len(fr.Chunks), 0xFFFF)))
	w.u16(fr.DurationMS)
	w.zero(2)
	w.u32(uint32(len(fr.Chunks)))
	return append(w.b, chunks.b...)
}

// Deflate compresses p into a zlib stream.
func Deflate(p []byte) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(p); err != nil {
		panic(err)
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

type writer struct {
	b []byte
}

func (w *writer) u8(v uint8) { w.b = append(w.b, v) }
func (w *writer) u16(v uint16) { w.b = binary.LittleEndian.AppendUint16(w.b, v) }
func (w *writer) u32(v uint32) { w.b = binary.LittleEndian.AppendUint32(w.b, v) }
func (w *writer) i16(v int16) { w.u16(uint16(v)) }
func (w *writer) i32(v int32) { w.u32(uint32(v)) }
func (w *writer) raw(p []byte) { w.b = append(w.b, p...) }
func (w *writer) zero(n int) { w.b = append(w.b, make([]byte, n)...) }
func (w *writer) str(s string) { w.u16(uint16(len(s))); w.b = append(w.b, s...) }
func (w *writer) rgba(c color.NRGBA) { w.raw([]byte{c.R, c.G, c.B, c.A}) }

// Layer describes a layer chunk. Flags default to visible.
type Layer struct {
	Name         string
	Flags        uint16
	Kind         uint16
	ChildLevel   uint16
	BlendMode    uint16
	Opacity      uint8
	TilesetIndex uint32
	Hidden       bool
}

func (l Layer) Chunk() Chunk {
	flags := l.Flags
	if flags == 0 && !l.Hidden {
		flags = 1
	}
	var w writer
	w.u16(flags)
	w.u16(l.Kind)
	w.u16(l.ChildLevel)
	w.zero(4)
	w.u16(l.BlendMode)
	w.u8(l.Opacity)
	w.zero(3)
	w.str(l.Name)
	if l.Kind == 2 {
		w.u32(l.TilesetIndex)
	}
	return Chunk{Type: LayerType, Data: w.b}
}

// Cel describes an image cel. Pix holds the pixels in the file depth.
type Cel struct {
	Layer      uint16
	X, Y       int16
	Opacity    uint8
	Width      uint16
	Height     uint16
	Pix        []byte
	Compressed bool
}

func celHeader(layer uint16, x, y int16, opacity uint8, kind uint16) writer {
	var w writer
	w.u16(layer)
	w.i16(x)
	w.i16(y)
	w.u8(opacity)
	w.u16(kind)
	w.i16(0) // z-index
	w.zero(5)
	return w
}

func (c Cel) Chunk() Chunk {
	kind := uint16(0)
	if c.Compressed {
		kind = 2
	}
	w := celHeader(c.Layer, c.X, c.Y, c.Opacity, kind)
	w.u16(c.Width)
	w.u16(c.Height)
	if c.Compressed {
		w.raw(Deflate(c.Pix))
	} else {
		w.raw(c.Pix)
	}
	return Chunk{Type: CelType, Data: w.b}
}

// LinkedCel returns a cel on layer reusing the cel of frame.
func LinkedCel(layer uint16, frame uint16) Chunk {
	w := celHeader(layer, 0, 0, 255, 1)
	w.u16(frame)
	return Chunk{Type: CelType, Data: w.b}
}

// Tilemap describes a 32-bit tilemap cel.
type Tilemap struct {
	Layer   uint16
	X, Y    int16
	Opacity uint8
	Width   uint16
	Height  uint16
	Tiles   []uint32
}

// Tile masks as written by the editor.
const (
	TileIDMask   = 0x1fffffff
	XFlipMask    = 0x20000000
	YFlipMask    = 0x40000000
	DiagonalMask = 0x80000000
)

func (t Tilemap) Chunk() Chunk {
	w := celHeader(t.Layer, t.X, t.Y, t.Opacity, 3)
	w.u16(t.Width)
	w.u16(t.Height)
	w.u16(32)
	w.u32(TileIDMask)
	w.u32(XFlipMask)
	w.u32(YFlipMask)
	w.u32(DiagonalMask)
	w.zero(10)

	var tiles writer
	for _, v := range t.Tiles {
		tiles.u32(v)
	}
	w.raw(Deflate(tiles.b))
	return Chunk{Type: CelType, Data: w.b}
}

// Tileset describes a tileset chunk with embedded pixels. Pix holds Count
// tiles stacked vertically.
type Tileset struct {
	ID            uint32
	Count         uint32
	Width, Height uint16
	Name          string
	Pix           []byte
}

func (t Tileset) Chunk() Chunk {
	var w writer
	w.u32(t.ID)
	w.u32(2) // pixels in this file
	w.u32(t.Count)
	w.u16(t.Width)
	w.u16(t.Height)
	w.i16(1)
	w.zero(14)
	w.str(t.Name)
	z := Deflate(t.Pix)
	w.u32(uint32(len(z)))
	w.raw(z)
	return Chunk{Type: TilesetType, Data: w.b}
}

// Palette returns a palette chunk setting entries from first on.
func Palette(first int, entries ...color.NRGBA) Chunk {
	var w writer
	w.u32(uint32(first + len(entries)))
	w.u32(uint32(first))
	w.u32(uint32(first + len(entries) - 1))
	w.zero(8)
	for _, e := range entries {
		w.u16(0)
		w.rgba(e)
	}
	return Chunk{Type: PaletteType, Data: w.b}
}

// OldPalette returns an old palette chunk with one packet.
func OldPalette(skip uint8, colors ...color.NRGBA) Chunk {
	var w writer
	w.u16(1)
	w.u8(skip)
	w.u8(uint8(len(colors)))
	for _, c := range colors {
		w.raw([]byte{c.R, c.G, c.B})
	}
	return Chunk{Type: OldPaletteType, Data: w.b}
}

type Tag struct {
	From, To  uint16
	Direction uint8
	Repeat    uint16
	Name      string
}

// Tags returns a frame tags chunk.
func Tags(tags ...Tag) Chunk {
	var w writer
	w.u16(uint16(len(tags)))
	w.zero(8)
	for _, t := range tags {
		w.u16(t.From)
		w.u16(t.To)
		w.u8(t.Direction)
		w.u16(t.Repeat)
		w.zero(6)
		w.raw([]byte{0, 0, 0})
		w.zero(1)
		w.str(t.Name)
	}
	return Chunk{Type: FrameTagsType, Data: w.b}
}

// UserText returns a user data chunk holding text.
func UserText(text string) Chunk {
	var w writer
	w.u32(1)
	w.str(text)
	return Chunk{Type: UserDataType, Data: w.b}
}

// UserColor returns a user data chunk holding a color.
func UserColor(c color.NRGBA) Chunk {
	var w writer
	w.u32(2)
	w.rgba(c)
	return Chunk{Type: UserDataType, Data: w.b}
}

type SliceKey struct {
	Frame uint32
	X, Y  int32
	W, H  uint32
}

// Slice returns a slice chunk without 9-patch or pivot data.
func Slice(name string, keys ...SliceKey) Chunk {
	var w writer
	w.u32(uint32(len(keys)))
	w.u32(0)
	w.u32(0)
	w.str(name)
	for _, k := range keys {
		w.u32(k.Frame)
		w.i32(k.X)
		w.i32(k.Y)
		w.u32(k.W)
		w.u32(k.H)
	}
	return Chunk{Type: SliceType, Data: w.b}
}

// Pixels returns w*h RGBA pixels of color c.
func Pixels(w, h int, c color.NRGBA) []byte {
	pix := make([]byte, 0, w*h*4)
	for range w * h {
		pix = append(pix, c.R, c.G, c.B, c.A)
	}
	return pix
}
