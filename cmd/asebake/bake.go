package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ericpauley/go-quantize/quantize"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/vincent-petithory/dataurl"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/setanarut/asebake/aseparser"
)

type options struct {
	out      string
	scale    int
	jobs     int
	atlas    bool
	frames   bool
	gif      bool
	manifest bool
	embed    bool
}

// baker writes the outputs of one decoded file.
type baker struct {
	opts options
	base string
	ase  *aseparser.Aseprite
}

func newBaker(ase *aseparser.Aseprite, inPath string, opts options) *baker {
	if opts.scale < 1 {
		opts.scale = 1
	}
	if opts.jobs < 1 {
		opts.jobs = 1
	}
	return &baker{
		opts: opts,
		base: strings.TrimSuffix(filepath.Base(inPath), filepath.Ext(inPath)),
		ase:  ase,
	}
}

func (b *baker) atlasName() string { return b.base + ".png" }

func (b *baker) frameName(i int) string { return fmt.Sprintf("%s_%03d.png", b.base, i) }

func (b *baker) gifName(segment string) string {
	return b.base + "_" + fileSafe(segment) + ".gif"
}

func (b *baker) run(ctx context.Context) error {
	if err := os.MkdirAll(b.opts.out, 0o755); err != nil {
		return errors.Wrap(err, "creating output directory")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.jobs)

	if b.opts.atlas {
		g.Go(func() error {
			return b.writeFile(gctx, b.atlasName(), func(w io.Writer) error {
				return png.Encode(w, scaleImage(b.ase.Image, b.opts.scale))
			})
		})
	}
	if b.opts.frames {
		for i := range b.ase.Frames {
			g.Go(func() error {
				return b.writeFile(gctx, b.frameName(i), func(w io.Writer) error {
					return png.Encode(w, scaleImage(b.ase.FrameImage(i), b.opts.scale))
				})
			})
		}
	}
	if b.opts.gif {
		for i := range b.ase.Segments {
			seg := &b.ase.Segments[i]
			g.Go(func() error {
				return b.writeFile(gctx, b.gifName(seg.Name), func(w io.Writer) error {
					return encodeGIF(w, b.ase, seg, b.opts.scale)
				})
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if !b.opts.manifest {
		return nil
	}
	return b.writeFile(ctx, b.base+".json", b.writeManifest)
}

func (b *baker) writeFile(ctx context.Context, name string, encode func(io.Writer) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := filepath.Join(b.opts.out, name)
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	if err := encode(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "encoding %s", path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "closing %s", path)
	}
	glog.V(1).Infof("wrote %s", path)
	return nil
}

func (b *baker) writeManifest(w io.Writer) error {
	src := b.atlasName()
	if b.opts.embed {
		buf := &bytes.Buffer{}
		if err := png.Encode(buf, scaleImage(b.ase.Image, b.opts.scale)); err != nil {
			return err
		}
		byt, err := dataurl.New(buf.Bytes(), "image/png").MarshalText()
		if err != nil {
			return errors.Wrap(err, "failed to encode data url")
		}
		src = string(byt)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(newManifest(b.ase, src, b.opts.scale))
}

// scaleImage enlarges img n times with nearest neighbour sampling.
func scaleImage(img image.Image, n int) image.Image {
	if n <= 1 {
		return img
	}
	sb := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, sb.Dx()*n, sb.Dy()*n))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, sb, draw.Src, nil)
	return dst
}

// encodeGIF writes the segment as an animated GIF in playback order.
func encodeGIF(w io.Writer, ase *aseparser.Aseprite, seg *aseparser.Segment, scale int) error {
	anim := &gif.GIF{LoopCount: loopCount(seg)}
	q := quantize.MedianCutQuantizer{AddTransparent: true}

	for _, i := range seg.Sequence() {
		img := scaleImage(ase.FrameImage(i), scale)
		b := img.Bounds()
		pal := q.Quantize(make(color.Palette, 0, 256), img)
		pm := image.NewPaletted(image.Rect(0, 0, b.Dx(), b.Dy()), pal)
		draw.Draw(pm, pm.Rect, img, b.Min, draw.Src)

		anim.Image = append(anim.Image, pm)
		anim.Delay = append(anim.Delay, int(ase.Frames[i].Duration/(10*time.Millisecond)))
		anim.Disposal = append(anim.Disposal, gif.DisposalBackground)
	}
	return gif.EncodeAll(w, anim)
}

// loopCount converts the segment repeat count to the GIF convention,
// where 0 loops forever and n > 0 shows the animation n+1 times.
func loopCount(seg *aseparser.Segment) int {
	plays := int(seg.Repeat)
	if !seg.Loop && plays == 0 {
		plays = 1
	}
	switch plays {
	case 0:
		return 0
	case 1:
		return -1
	}
	return plays - 1
}

func fileSafe(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
}
