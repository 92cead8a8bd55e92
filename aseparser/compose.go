package aseparser

import (
	"image"
	"image/color"
	"math"

	"github.com/golang/glog"
	"github.com/setanarut/asebake/aseparser/blend"
	"golang.org/x/image/draw"
)

type layer struct {
	*LayerChunk
	visible bool
}

// compositor folds the chunks of a document, frame by frame, into
// composited canvases. Layers, palette and tilesets carry over from one
// frame to the next.
type compositor struct {
	doc      *Document
	ws       *warnings
	layers   []layer
	levels   []bool // visibility of the last layer seen at each child level
	pal      palette
	tilesets map[uint32]*TilesetChunk

	tags   []Tag
	slices []*SliceChunk
}

func newCompositor(doc *Document, ws *warnings) *compositor {
	return &compositor{
		doc:      doc,
		ws:       ws,
		tilesets: make(map[uint32]*TilesetChunk),
	}
}

func (p *compositor) compose() ([]Frame, error) {
	frames := make([]Frame, len(p.doc.Frames))
	for i := range p.doc.Frames {
		canvas, ud, err := p.composeFrame(i)
		if err != nil {
			return nil, err
		}
		frames[i] = Frame{
			Image:    canvas,
			Duration: p.doc.Frames[i].Duration,
			UserData: ud,
		}
	}
	return frames, nil
}

// composeFrame paints frame i into a new transparent canvas and returns
// it with the user data of the frame's visible cels.
func (p *compositor) composeFrame(i int) (*image.NRGBA, []UserData, error) {
	h := &p.doc.Header
	canvas := image.NewNRGBA(image.Rect(0, 0, int(h.Width), int(h.Height)))
	var ud []UserData

	for _, ch := range p.doc.Frames[i].Chunks {
		switch ch := ch.(type) {
		case *LayerChunk:
			p.addLayer(i, ch)
		case *PaletteChunk:
			p.pal.applyPalette(ch, h.TransparentIndex)
		case *OldPaletteChunk:
			p.pal.applyOldPalette(ch, h.TransparentIndex)
		case *TilesetChunk:
			p.tilesets[ch.ID] = ch
		case *FrameTagsChunk:
			p.tags = append(p.tags, ch.Tags...)
		case *SliceChunk:
			p.slices = append(p.slices, ch)
		case *CelChunk:
			l, ok := p.layer(i, ch)
			if !ok || !l.visible {
				continue
			}
			src := ch
			if ch.Kind == LinkedCel {
				src = p.doc.Cel(ch.Link)
			}
			if d := celUserData(ch, src); d.Text != "" || d.Color != nil {
				ud = append(ud, d)
			}
			if src == nil {
				continue
			}
			if err := p.paintCel(canvas, i, src, l); err != nil {
				return nil, nil, err
			}
		}
	}
	return canvas, ud, nil
}

func celUserData(cel, src *CelChunk) UserData {
	if cel.Text == "" && cel.Color == nil && src != nil {
		return src.UserData
	}
	return cel.UserData
}

func (p *compositor) addLayer(frame int, l *LayerChunk) {
	lvl := min(int(l.ChildLevel), len(p.levels))

	visible := l.Flags&LayerVisible != 0 && l.Flags&LayerReference == 0
	if lvl > 0 {
		visible = visible && p.levels[lvl-1]
	}
	p.levels = append(p.levels[:lvl], visible)

	if !l.BlendMode.Valid() {
		p.ws.add(UnknownBlendMode, frame, "layer %q: mode %d, using normal", l.Name, l.BlendMode)
	}
	p.layers = append(p.layers, layer{LayerChunk: l, visible: visible})
}

func (p *compositor) layer(frame int, cel *CelChunk) (layer, bool) {
	if int(cel.Layer) >= len(p.layers) {
		p.ws.add(UnknownLayer, frame, "cel on layer %d, %d layers", cel.Layer, len(p.layers))
		return layer{}, false
	}
	return p.layers[cel.Layer], true
}

func (p *compositor) paintCel(dst *image.NRGBA, frame int, cel *CelChunk, l layer) error {
	opacity := blend.MulUN8(cel.Opacity, l.Opacity)
	if opacity == 0 {
		return nil
	}
	f := l.BlendMode.Func()

	switch cel.Kind {
	case RawCel, CompressedImageCel:
		return p.paintImage(dst, cel, opacity, f)
	case CompressedTilemapCel:
		return p.paintTilemap(dst, frame, cel, l, opacity, f)
	}
	return nil
}

func (p *compositor) paintImage(dst *image.NRGBA, cel *CelChunk, opacity uint8, f blend.Func) error {
	depth := p.doc.Header.Depth
	if len(cel.Pix) != cel.pixLen(depth) {
		return nil
	}

	r := cel.Bounds().Intersect(dst.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c, err := resolvePixel(x-int(cel.X), y-int(cel.Y), cel.Pix, int(cel.Width), depth, &p.pal)
			if err != nil {
				return err
			}
			blendPixel(dst, x, y, c, opacity, f)
		}
	}
	return nil
}

func (p *compositor) paintTilemap(dst *image.NRGBA, frame int, cel *CelChunk, l layer, opacity uint8, f blend.Func) error {
	depth := p.doc.Header.Depth
	ts := p.tilesets[l.TilesetIndex]
	if ts == nil || len(ts.Pix) == 0 {
		p.ws.add(MissingTileset, frame, "layer %q: tileset %d", l.Name, l.TilesetIndex)
		return nil
	}

	tw, th := int(ts.TileWidth), int(ts.TileHeight)
	w := int(cel.Width)
	skipped := 0

	for i, v := range cel.Tiles {
		id := v & cel.TileIDMask
		if id == 0 {
			continue
		}
		if id >= ts.Count {
			skipped++
			continue
		}

		ox, oy := int(cel.X)+(i%w)*tw, int(cel.Y)+(i/w)*th
		r := image.Rect(ox, oy, ox+tw, oy+th).Intersect(dst.Rect)
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				sx, sy := tileCoord(x-ox, y-oy, tw, th, v, cel)
				c, err := resolvePixel(sx, int(id)*th+sy, ts.Pix, tw, depth, &p.pal)
				if err != nil {
					return err
				}
				blendPixel(dst, x, y, c, opacity, f)
			}
		}
	}

	if skipped > 0 {
		p.ws.add(TileOutOfRange, frame, "layer %q: %d tiles past the %d of tileset %d", l.Name, skipped, ts.Count, ts.ID)
	}
	return nil
}

// tileCoord maps a pixel of a placed tile back into the tile, undoing the
// flips of tile value v. The diagonal flip only applies to square tiles.
func tileCoord(x, y, tw, th int, v uint32, cel *CelChunk) (int, int) {
	if v&cel.DiagonalFlipMask != 0 && tw == th {
		x, y = y, x
	}
	if v&cel.XFlipMask != 0 {
		x = tw - 1 - x
	}
	if v&cel.YFlipMask != 0 {
		y = th - 1 - y
	}
	return x, y
}

// blendPixel scales the alpha of c by opacity and blends it into dst at
// (x, y). Fully transparent results leave dst untouched.
func blendPixel(dst *image.NRGBA, x, y int, c color.NRGBA, opacity uint8, f blend.Func) {
	c.A = blend.MulUN8(c.A, opacity)
	if c.A == 0 {
		return
	}
	i := dst.PixOffset(x, y)
	px := dst.Pix[i : i+4 : i+4]
	r := f(color.NRGBA{R: px[0], G: px[1], B: px[2], A: px[3]}, c, 255)
	px[0], px[1], px[2], px[3] = r.R, r.G, r.B, r.A
}

// buildAtlas copies all frames into a single image and sets their bounds.
func buildAtlas(frames []Frame, framew, frameh int) *image.NRGBA {
	if len(frames) == 0 {
		return image.NewNRGBA(image.Rectangle{})
	}

	atlasr, framesr := makeAtlasFrames(len(frames), framew, frameh)
	atlas := image.NewNRGBA(atlasr)

	for i := range frames {
		frames[i].Bounds = framesr[i]
		draw.Draw(atlas, framesr[i], frames[i].Image, image.Point{}, draw.Src)
	}

	if glog.V(2) {
		glog.Infof("aseparser: atlas %v for %d frames", atlasr, len(frames))
	}
	return atlas
}

func makeAtlasFrames(nframes, framew, frameh int) (atlasr image.Rectangle, framesr []image.Rectangle) {
	fw, fh := factorPowerOfTwo(nframes)
	if framew > frameh {
		fw, fh = fh, fw
	}

	atlasr = image.Rect(0, 0, fw*framew, fh*frameh)

	for i := range nframes {
		x, y := i%fw, i/fw
		framesr = append(framesr, image.Rectangle{
			Min: image.Pt(x*framew, y*frameh),
			Max: image.Pt((x+1)*framew, (y+1)*frameh),
		})
	}

	return
}

// factorPowerOfTwo computes n<=a*b, where a, b are powers of two and a >= b.
func factorPowerOfTwo(n int) (a, b int) {
	x := int(math.Ceil(math.Log2(float64(n))))
	a = 1 << (x - x/2)
	b = 1 << (x / 2)
	return
}
