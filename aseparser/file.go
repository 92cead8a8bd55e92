package aseparser

import (
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

const (
	headerSize      = 128
	frameHeaderSize = 16
	chunkHeaderSize = 6

	headerMagic = 0xA5E0
	frameMagic  = 0xF1FA
)

// ColorDepth is the number of bits per pixel.
type ColorDepth uint16

const (
	Indexed   ColorDepth = 8
	Grayscale ColorDepth = 16
	RGBA      ColorDepth = 32
)

// BytesPerPixel returns the pixel size of d, or 0 for an unknown depth.
func (d ColorDepth) BytesPerPixel() int {
	switch d {
	case Indexed, Grayscale, RGBA:
		return int(d) / 8
	}
	return 0
}

// HeaderFlags are the file header flag bits.
type HeaderFlags uint32

const (
	LayerOpacityValid HeaderFlags = 1 << iota
	GroupOpacityValid
	LayerUUID
)

type Header struct {
	FileSize         uint32
	Frames           uint16
	Width            uint16
	Height           uint16
	Depth            ColorDepth
	Flags            HeaderFlags
	Speed            uint16
	TransparentIndex uint8
	NumColors        uint16
	PixelWidth       uint8
	PixelHeight      uint8
}

// DocFrame is one frame of a Document. Its index in Document.Frames is the
// frame index used by linked cels.
type DocFrame struct {
	Duration time.Duration
	Chunks   []Chunk
}

// Document is the decoded chunk structure of an Aseprite file.
type Document struct {
	Header Header
	Frames []DocFrame

	// Warnings lists the chunks skipped while decoding.
	Warnings []Warning
}

// Cel returns the cel chunk at ref, or nil.
func (d *Document) Cel(ref CelRef) *CelChunk {
	if ref.Frame < 0 || ref.Frame >= len(d.Frames) {
		return nil
	}
	chunks := d.Frames[ref.Frame].Chunks
	if ref.Chunk < 0 || ref.Chunk >= len(chunks) {
		return nil
	}
	cel, _ := chunks[ref.Chunk].(*CelChunk)
	return cel
}

// DecodeDocument decodes the header, frames and chunks of an Aseprite file
// and resolves its linked cels. No document is returned on error.
func DecodeDocument(raw []byte) (*Document, error) {
	c := newCursor(raw)

	h, err := decodeHeader(c)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Header: h,
		Frames: make([]DocFrame, 0, h.Frames),
	}
	ws := warnings{}

	for i := 0; i < int(h.Frames); i++ {
		fr, err := decodeFrame(c, &doc.Header, i, &ws)
		if err != nil {
			return nil, err
		}
		doc.Frames = append(doc.Frames, fr)

		if err := doc.resolveLinks(i); err != nil {
			return nil, err
		}
	}

	doc.Warnings = ws
	return doc, nil
}

func decodeHeader(c *cursor) (Header, error) {
	var h Header
	h.FileSize = c.u32()
	magic := c.u16()
	h.Frames = c.u16()
	h.Width = c.u16()
	h.Height = c.u16()
	h.Depth = ColorDepth(c.u16())
	h.Flags = HeaderFlags(c.u32())
	h.Speed = c.u16()
	c.skip(8)
	h.TransparentIndex = c.u8()
	c.skip(3)
	h.NumColors = c.u16()
	h.PixelWidth = c.u8()
	h.PixelHeight = c.u8()
	c.skip(headerSize - 36) // grid and reserved

	if c.err != nil {
		return h, errors.Wrap(c.err, "header")
	}
	if magic != headerMagic {
		return h, errors.Wrapf(ErrMalformedHeader, "magic %#04x", magic)
	}
	if h.Depth.BytesPerPixel() == 0 {
		return h, errors.Wrapf(ErrUnsupportedColorDepth, "%d bpp", h.Depth)
	}
	return h, nil
}

func decodeFrame(c *cursor, h *Header, index int, ws *warnings) (DocFrame, error) {
	start := c.pos()
	size := int(c.u32())
	magic := c.u16()
	oldChunks := c.u16()
	durationMS := c.u16()
	c.skip(2)
	newChunks := c.u32()

	if c.err != nil {
		return DocFrame{}, errors.Wrapf(c.err, "frame %d", index)
	}
	if magic != frameMagic {
		return DocFrame{}, errors.Wrapf(ErrMalformedFrame, "frame %d at offset %d: magic %#04x", index, start, magic)
	}
	if size < frameHeaderSize {
		return DocFrame{}, errors.Wrapf(ErrMalformedFrame, "frame %d: size %d", index, size)
	}

	// Bytes left in the frame after its chunks are skipped with it.
	body := c.sub(size - frameHeaderSize)
	if body.err != nil {
		return DocFrame{}, errors.Wrapf(body.err, "frame %d", index)
	}

	nchunks := int(newChunks)
	if nchunks == 0 {
		nchunks = int(oldChunks)
	}

	fr := DocFrame{
		Duration: time.Millisecond * time.Duration(durationMS),
		Chunks:   make([]Chunk, 0, min(nchunks, body.remaining()/chunkHeaderSize)),
	}

	for j := 0; j < nchunks; j++ {
		ch, err := decodeChunk(body, h, index, ws)
		if err != nil {
			return DocFrame{}, errors.Wrapf(err, "frame %d chunk %d", index, j)
		}

		if ud, ok := ch.(*UserDataChunk); ok {
			if body.last != nil {
				body.last.attach(ud.UserData)
			}
		} else {
			body.last = ch
		}
		fr.Chunks = append(fr.Chunks, ch)
	}

	if glog.V(2) {
		glog.Infof("aseparser: frame %d: %d chunks, %v", index, len(fr.Chunks), fr.Duration)
	}
	return fr, nil
}

func decodeChunk(c *cursor, h *Header, frame int, ws *warnings) (Chunk, error) {
	start := c.pos()
	size := int(c.u32())
	typ := ChunkType(c.u16())
	if c.err != nil {
		return nil, c.err
	}
	if size < chunkHeaderSize {
		return nil, errors.Wrapf(ErrMalformedFrame, "%v at offset %d: size %d", typ, start, size)
	}

	body := c.sub(size - chunkHeaderSize)
	if body.err != nil {
		return nil, errors.Wrapf(body.err, "%v at offset %d", typ, start)
	}

	dec, ok := decoders[typ]
	if !ok {
		ws.add(UnknownChunkType, frame, "%v at offset %d, %d bytes", typ, start, body.remaining())
		return &RawChunk{Type: typ, Data: body.bytes(body.remaining())}, nil
	}

	ch, err := dec(body, h)
	if err == nil {
		err = body.err
	}
	actual := body.off
	if body.want > len(body.buf) {
		// The decoder ran past the payload, so the declared size is short.
		actual, err = body.want, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "%v at offset %d", typ, start)
	}
	if actual != len(body.buf) {
		return nil, &ChunkSizeMismatchError{
			Frame:    frame,
			Type:     typ,
			Expected: len(body.buf),
			Actual:   actual,
		}
	}
	return ch, nil
}

// resolveLinks points the linked cels of frame i at the cel they reuse.
func (d *Document) resolveLinks(i int) error {
	for j, ch := range d.Frames[i].Chunks {
		cel, ok := ch.(*CelChunk)
		if !ok || cel.Kind != LinkedCel {
			continue
		}

		src := int(cel.LinkedFrame)
		if src >= i {
			return errors.Wrapf(ErrDanglingLinkedCel, "frame %d chunk %d: links frame %d", i, j, src)
		}

		ref, ok := d.findCel(src, cel.Layer)
		if !ok {
			return errors.Wrapf(ErrDanglingLinkedCel, "frame %d chunk %d: no cel on layer %d in frame %d", i, j, cel.Layer, src)
		}
		if target := d.Cel(ref); target.Kind == LinkedCel {
			ref = target.Link
		}
		cel.Link = ref
	}
	return nil
}

func (d *Document) findCel(frame int, layer uint16) (CelRef, bool) {
	for j, ch := range d.Frames[frame].Chunks {
		if cel, ok := ch.(*CelChunk); ok && cel.Layer == layer {
			return CelRef{Frame: frame, Chunk: j}, true
		}
	}
	return CelRef{}, false
}
