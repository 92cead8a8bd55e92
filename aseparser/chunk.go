package aseparser

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/pkg/errors"
	"github.com/setanarut/asebake/aseparser/blend"
)

// ChunkType is the record tag of a chunk.
type ChunkType uint16

const (
	OldPaletteType   ChunkType = 0x0004
	LayerType        ChunkType = 0x2004
	CelType          ChunkType = 0x2005
	ColorProfileType ChunkType = 0x2007
	FrameTagsType    ChunkType = 0x2018
	PaletteType      ChunkType = 0x2019
	UserDataType     ChunkType = 0x2020
	SliceType        ChunkType = 0x2022
	TilesetType      ChunkType = 0x2023
)

var chunkNames = map[ChunkType]string{
	OldPaletteType:   "old palette",
	LayerType:        "layer",
	CelType:          "cel",
	ColorProfileType: "color profile",
	FrameTagsType:    "tags",
	PaletteType:      "palette",
	UserDataType:     "user data",
	SliceType:        "slice",
	TilesetType:      "tileset",
}

func (t ChunkType) String() string {
	if s, ok := chunkNames[t]; ok {
		return s
	}
	return fmt.Sprintf("chunk %#04x", uint16(t))
}

// Chunk is one decoded record of a frame. The concrete type is one of
// *LayerChunk, *CelChunk, *PaletteChunk, *OldPaletteChunk,
// *FrameTagsChunk, *SliceChunk, *TilesetChunk, *UserDataChunk,
// *ColorProfileChunk or *RawChunk.
type Chunk interface {
	ChunkType() ChunkType

	// attach stores the user data of a following user data chunk.
	attach(UserData)
}

// UserData is the optional text, color and properties set on layers, cels,
// tags, slices and tilesets.
type UserData struct {
	// Color is nil when unset.
	Color color.Color
	Text  string
	// Properties holds the raw properties maps.
	Properties []byte
}

func (u *UserData) attach(d UserData) {
	*u = d
}

// LayerFlags are the layer chunk flag bits.
type LayerFlags uint16

const (
	LayerVisible LayerFlags = 1 << iota
	LayerEditable
	LayerLockMovement
	LayerBackground
	LayerPreferLinkedCels
	LayerCollapsed
	LayerReference
)

// LayerKind is the type of a layer.
type LayerKind uint16

const (
	NormalLayer LayerKind = iota
	GroupLayer
	TilemapLayer
)

type LayerChunk struct {
	Flags      LayerFlags
	Kind       LayerKind
	ChildLevel uint16
	BlendMode  blend.Mode
	Opacity    uint8
	Name       string
	// TilesetIndex is set for tilemap layers.
	TilesetIndex uint32
	UUID         [16]byte
	UserData
}

func (*LayerChunk) ChunkType() ChunkType { return LayerType }

// CelKind is the type of a cel.
type CelKind uint16

const (
	RawCel CelKind = iota
	LinkedCel
	CompressedImageCel
	CompressedTilemapCel
)

// CelRef addresses a cel chunk by frame and chunk index.
type CelRef struct {
	Frame, Chunk int
}

type CelChunk struct {
	Layer   uint16
	X, Y    int16
	Opacity uint8
	Kind    CelKind
	ZIndex  int16
	Width   uint16
	Height  uint16

	// Pix holds the pixels of image cels in the file's color depth.
	Pix []byte

	// LinkedFrame is the frame a linked cel points at. Link is the resolved
	// target, which is never itself linked.
	LinkedFrame uint16
	Link        CelRef

	// Tilemap cels.
	Tiles            []uint32
	BitsPerTile      uint16
	TileIDMask       uint32
	XFlipMask        uint32
	YFlipMask        uint32
	DiagonalFlipMask uint32

	UserData
}

func (*CelChunk) ChunkType() ChunkType { return CelType }

// Bounds returns the canvas area covered by an image cel.
func (c *CelChunk) Bounds() image.Rectangle {
	x, y := int(c.X), int(c.Y)
	return image.Rect(x, y, x+int(c.Width), y+int(c.Height))
}

type PaletteEntry struct {
	Color color.NRGBA
	Name  string
}

type PaletteChunk struct {
	Size        uint32
	First, Last uint32
	Entries     []PaletteEntry
	UserData
}

func (*PaletteChunk) ChunkType() ChunkType { return PaletteType }

type OldPalettePacket struct {
	Skip   uint8
	Colors []color.NRGBA
}

type OldPaletteChunk struct {
	Packets []OldPalettePacket
	UserData
}

func (*OldPaletteChunk) ChunkType() ChunkType { return OldPaletteType }

// LoopDirection enumerates all loop animation directions.
type LoopDirection uint8

const (
	Forward LoopDirection = iota
	Reverse
	PingPong
	PingPongReverse
)

var directionNames = [...]string{"forward", "reverse", "pingpong", "pingpong_reverse"}

func (d LoopDirection) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return fmt.Sprintf("direction(%d)", uint8(d))
}

// Tag is an animation tag.
type Tag struct {
	// Name is the name of the tag without the one-shot brackets. Can be duplicate.
	Name string
	// From is the first frame in the animation.
	From uint16
	// To is the last frame in the animation.
	To uint16
	// Repeat specifies how many times to repeat the animation.
	Repeat uint16
	// Direction is the looping direction of the animation.
	Direction LoopDirection
	// OneShot is set when the name was written in square brackets.
	OneShot bool
	// UserData is optional user data.
	UserData
}

type FrameTagsChunk struct {
	Tags []Tag

	attached int
}

func (*FrameTagsChunk) ChunkType() ChunkType { return FrameTagsType }

// User data chunks following a tags chunk belong to the tags, in order.
func (c *FrameTagsChunk) attach(d UserData) {
	if c.attached < len(c.Tags) {
		c.Tags[c.attached].UserData = d
		c.attached++
	}
}

// SliceFlags are the slice chunk flag bits.
type SliceFlags uint32

const (
	SliceNinePatch SliceFlags = 1 << iota
	SlicePivot
)

type SliceFrame struct {
	// Bounds is the bounds of the slice.
	Bounds image.Rectangle

	// Center is the 9-slices center relative to Bounds.
	Center image.Rectangle

	// Pivot is the pivot point relative to Bounds.
	Pivot image.Point
}

// SliceKey is the slice geometry from Frame on.
type SliceKey struct {
	Frame uint32
	SliceFrame
}

type SliceChunk struct {
	Name  string
	Flags SliceFlags
	Keys  []SliceKey
	UserData
}

func (*SliceChunk) ChunkType() ChunkType { return SliceType }

type TilesetChunk struct {
	ID         uint32
	Flags      uint32
	Count      uint32
	TileWidth  uint16
	TileHeight uint16
	BaseIndex  int16
	Name       string

	// External tileset reference, set when Flags&1 != 0.
	ExternalFile uint32
	ExternalID   uint32

	// Pix holds all tiles stacked vertically, TileWidth pixels wide.
	Pix []byte
	UserData
}

func (*TilesetChunk) ChunkType() ChunkType { return TilesetType }

type UserDataChunk struct {
	UserData
}

func (*UserDataChunk) ChunkType() ChunkType { return UserDataType }

// ColorProfileChunk is kept opaque.
type ColorProfileChunk struct {
	Data []byte
	UserData
}

func (*ColorProfileChunk) ChunkType() ChunkType { return ColorProfileType }

// RawChunk is a chunk of an unknown type.
type RawChunk struct {
	Type ChunkType
	Data []byte
	UserData
}

func (c *RawChunk) ChunkType() ChunkType { return c.Type }

// A chunkDecoder reads one chunk payload from c.
type chunkDecoder func(c *cursor, h *Header) (Chunk, error)

var decoders = map[ChunkType]chunkDecoder{
	OldPaletteType:   decodeOldPalette,
	LayerType:        decodeLayer,
	CelType:          decodeCel,
	ColorProfileType: decodeColorProfile,
	FrameTagsType:    decodeFrameTags,
	PaletteType:      decodePalette,
	UserDataType:     decodeUserData,
	SliceType:        decodeSlice,
	TilesetType:      decodeTileset,
}

// Layer Chunk (0x2004)
func decodeLayer(c *cursor, h *Header) (Chunk, error) {
	l := &LayerChunk{
		Flags:      LayerFlags(c.u16()),
		Kind:       LayerKind(c.u16()),
		ChildLevel: c.u16(),
	}
	c.skip(4) // default width and height, ignored
	l.BlendMode = blend.Mode(c.u16())
	l.Opacity = c.u8()
	c.skip(3)
	l.Name = c.string()

	if l.Kind == TilemapLayer {
		l.TilesetIndex = c.u32()
	}
	if h.Flags&LayerUUID != 0 {
		copy(l.UUID[:], c.take(16))
	}
	if h.Flags&LayerOpacityValid == 0 {
		l.Opacity = 255
	}
	return l, c.err
}

// Cel Chunk (0x2005)
func decodeCel(c *cursor, h *Header) (Chunk, error) {
	cel := &CelChunk{
		Layer:   c.u16(),
		X:       c.i16(),
		Y:       c.i16(),
		Opacity: c.u8(),
		Kind:    CelKind(c.u16()),
		ZIndex:  c.i16(),
	}
	c.skip(5)

	switch cel.Kind {
	case RawCel:
		cel.Width, cel.Height = c.u16(), c.u16()
		cel.Pix = c.bytes(cel.pixLen(h.Depth))
	case LinkedCel:
		cel.LinkedFrame = c.u16()
	case CompressedImageCel:
		cel.Width, cel.Height = c.u16(), c.u16()
		if c.err != nil {
			return nil, c.err
		}
		pix, err := inflate(c.take(c.remaining()), cel.pixLen(h.Depth))
		if err != nil {
			return nil, errors.Wrapf(err, "cel on layer %d", cel.Layer)
		}
		cel.Pix = pix
	case CompressedTilemapCel:
		if err := decodeTilemap(c, cel); err != nil {
			return nil, err
		}
	default:
		// Newer cel kinds are kept without pixels.
		c.skip(c.remaining())
	}
	return cel, c.err
}

func (c *CelChunk) pixLen(d ColorDepth) int {
	return int(c.Width) * int(c.Height) * d.BytesPerPixel()
}

func decodeTilemap(c *cursor, cel *CelChunk) error {
	cel.Width, cel.Height = c.u16(), c.u16()
	cel.BitsPerTile = c.u16()
	cel.TileIDMask = c.u32()
	cel.XFlipMask = c.u32()
	cel.YFlipMask = c.u32()
	cel.DiagonalFlipMask = c.u32()
	c.skip(10)
	if c.err != nil {
		return c.err
	}

	size := int(cel.BitsPerTile) / 8
	switch cel.BitsPerTile {
	case 8, 16, 32:
	default:
		return errors.Wrapf(ErrMalformedFrame, "tilemap cel with %d bits per tile", cel.BitsPerTile)
	}

	n := int(cel.Width) * int(cel.Height)
	raw, err := inflate(c.take(c.remaining()), n*size)
	if err != nil {
		return errors.Wrapf(err, "tilemap cel on layer %d", cel.Layer)
	}

	tiles := newCursor(raw)
	cel.Tiles = make([]uint32, n)
	for i := range cel.Tiles {
		switch size {
		case 1:
			cel.Tiles[i] = uint32(tiles.u8())
		case 2:
			cel.Tiles[i] = uint32(tiles.u16())
		default:
			cel.Tiles[i] = tiles.u32()
		}
	}
	return tiles.err
}

// Palette Chunk (0x2019)
func decodePalette(c *cursor, _ *Header) (Chunk, error) {
	p := &PaletteChunk{
		Size:  c.u32(),
		First: c.u32(),
		Last:  c.u32(),
	}
	c.skip(8)
	if p.Last < p.First {
		return p, c.err
	}

	for i := p.First; i <= p.Last && c.err == nil; i++ {
		flags := c.u16()
		e := PaletteEntry{Color: color.NRGBA{R: c.u8(), G: c.u8(), B: c.u8(), A: c.u8()}}
		if flags&1 != 0 {
			e.Name = c.string()
		}
		p.Entries = append(p.Entries, e)
		if i == p.Last {
			break // Last may be the largest uint32
		}
	}
	return p, c.err
}

// Old palette chunk (0x0004)
func decodeOldPalette(c *cursor, _ *Header) (Chunk, error) {
	p := &OldPaletteChunk{}
	packets := int(c.u16())

	for i := 0; i < packets && c.err == nil; i++ {
		pk := OldPalettePacket{Skip: c.u8()}
		n := int(c.u8())
		if n == 0 {
			n = 256
		}
		pk.Colors = make([]color.NRGBA, 0, n)
		for j := 0; j < n && c.err == nil; j++ {
			pk.Colors = append(pk.Colors, color.NRGBA{R: c.u8(), G: c.u8(), B: c.u8(), A: 255})
		}
		p.Packets = append(p.Packets, pk)
	}
	return p, c.err
}

// Tags Chunk (0x2018)
func decodeFrameTags(c *cursor, _ *Header) (Chunk, error) {
	n := int(c.u16())
	c.skip(8)

	ft := &FrameTagsChunk{}
	for i := 0; i < n && c.err == nil; i++ {
		t := Tag{
			From:      c.u16(),
			To:        c.u16(),
			Direction: LoopDirection(c.u8()),
			Repeat:    c.u16(),
		}
		c.skip(10) // reserved and the deprecated tag color
		t.Name, t.OneShot = oneShotName(c.string())
		ft.Tags = append(ft.Tags, t)
	}
	return ft, c.err
}

// oneShotName strips the brackets of a "[name]" tag.
func oneShotName(s string) (string, bool) {
	if len(s) >= 2 && strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		return s[1 : len(s)-1], true
	}
	return s, false
}

// User Data Chunk (0x2020)
func decodeUserData(c *cursor, _ *Header) (Chunk, error) {
	var ud UserDataChunk
	flags := c.u32()

	if flags&1 != 0 {
		ud.Text = c.string()
	}
	if flags&2 != 0 {
		ud.Color = color.NRGBA{R: c.u8(), G: c.u8(), B: c.u8(), A: c.u8()}
	}
	if flags&4 != 0 {
		// The size includes itself.
		size := int(c.u32())
		ud.Properties = c.bytes(size - 4)
	}
	return &ud, c.err
}

// Slice Chunk (0x2022)
func decodeSlice(c *cursor, _ *Header) (Chunk, error) {
	nkeys := int(c.u32())
	s := &SliceChunk{Flags: SliceFlags(c.u32())}
	c.skip(4)
	s.Name = c.string()

	for i := 0; i < nkeys && c.err == nil; i++ {
		key := SliceKey{Frame: c.u32()}
		key.Bounds = readRect(c)
		if s.Flags&SliceNinePatch != 0 {
			key.Center = readRect(c)
		}
		if s.Flags&SlicePivot != 0 {
			x, y := c.i32(), c.i32()
			key.Pivot = image.Pt(int(x), int(y))
		}
		s.Keys = append(s.Keys, key)
	}
	return s, c.err
}

func readRect(c *cursor) image.Rectangle {
	x, y := int(c.i32()), int(c.i32())
	w, h := int(c.u32()), int(c.u32())
	return image.Rect(x, y, x+w, y+h)
}

// Tileset Chunk (0x2023)
func decodeTileset(c *cursor, h *Header) (Chunk, error) {
	ts := &TilesetChunk{
		ID:         c.u32(),
		Flags:      c.u32(),
		Count:      c.u32(),
		TileWidth:  c.u16(),
		TileHeight: c.u16(),
		BaseIndex:  c.i16(),
	}
	c.skip(14)
	ts.Name = c.string()

	if ts.Flags&1 != 0 {
		ts.ExternalFile = c.u32()
		ts.ExternalID = c.u32()
	}
	if ts.Flags&2 != 0 {
		raw := c.take(int(c.u32()))
		if c.err != nil {
			return nil, c.err
		}
		want := int(ts.TileWidth) * int(ts.TileHeight) * int(ts.Count) * h.Depth.BytesPerPixel()
		pix, err := inflate(raw, want)
		if err != nil {
			return nil, errors.Wrapf(err, "tileset %d", ts.ID)
		}
		ts.Pix = pix
	}
	return ts, c.err
}

// Color Profile Chunk (0x2007)
func decodeColorProfile(c *cursor, _ *Header) (Chunk, error) {
	return &ColorProfileChunk{Data: c.bytes(c.remaining())}, c.err
}
