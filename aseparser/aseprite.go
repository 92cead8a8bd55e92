// Package aseparser implements a decoder for Aseprite sprite files.
//
// Every frame is composited with the editor's blend arithmetic into an
// *image.NRGBA canvas (top-left origin), and the frame tags are turned into
// named animation segments.
//
// Aseprite file format spec: https://github.com/aseprite/aseprite/blob/main/docs/ase-file-specs.md
package aseparser

import (
	"image"
	"slices"
	"strings"
	"time"
)

const (
	DefaultUntaggedName = "Untagged"
	DefaultAnchorName   = "unity:pivot"
)

// Config controls how a document is turned into an Aseprite.
// Empty fields take their defaults.
type Config struct {
	// UntaggedName names the segment of the frames no tag covers.
	UntaggedName string
	// AnchorName is the slice name, compared case-insensitively, that
	// yields an Anchor. A "unity:" prefix is optional on either side, so
	// the default matches slices named "unity:pivot" and "pivot".
	AnchorName string
}

func DefaultConfig() Config {
	return Config{
		UntaggedName: DefaultUntaggedName,
		AnchorName:   DefaultAnchorName,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.UntaggedName == "" {
		c.UntaggedName = d.UntaggedName
	}
	if c.AnchorName == "" {
		c.AnchorName = d.AnchorName
	}
	return c
}

type subImager interface {
	SubImage(image.Rectangle) image.Image
}

// Frame represents a single frame in the sprite.
type Frame struct {
	// Image is the composited frame, as large as the canvas.
	Image *image.NRGBA
	// Bounds is the image bounds of the frame in the sprite's atlas.
	Bounds image.Rectangle
	// Duration is the time that the frame should be displayed for
	// in a tag animation loop.
	Duration time.Duration
	// UserData lists all optional UserData set in the cels that make up the frame.
	// The UserData of invisible and reference layers is not included.
	UserData []UserData
}

// Slice represents Aseprite's slice.
type Slice struct {
	// Name is the name of the slice. Can be duplicate.
	Name string
	// Frames contains the slice geometry for each animation frame.
	// Index corresponds to frame number; expanded from sparse keyframes.
	Frames []SliceFrame
	// UserData is optional user data.
	UserData
}

// Anchor is a named point in canvas fractions, from a slice named like
// Config.AnchorName. X and Y are the center of the slice's first key.
type Anchor struct {
	Name string
	X, Y float64
}

// Point returns the anchor in canvas pixels.
func (a Anchor) Point(width, height int) (x, y float64) {
	return a.X * float64(width), a.Y * float64(height)
}

// Aseprite holds the results of a parsed Aseprite image file.
type Aseprite struct {

	// Image contains all frame images in a single image.
	// Frame bounds specify where the frame images are located.
	image.Image

	Header Header

	// Frames lists all frames that make up the sprite.
	Frames []Frame

	// Segments lists the animations, tags first in file order, then the
	// untagged frames.
	Segments []Segment

	// Tags lists all animation tags.
	Tags []Tag

	// Slices lists all slices.
	Slices []Slice

	Anchors []Anchor

	// Layers lists all layers in file order.
	Layers []*LayerChunk

	// Warnings lists what was skipped while decoding.
	Warnings []Warning
}

// FrameImage returns the image for the specified frame index.
func (a *Aseprite) FrameImage(frameIndex int) *image.NRGBA {
	return a.Frames[frameIndex].Image
}

// SliceImage returns the image for the specified slice name and frame index.
func (a *Aseprite) SliceImage(sliceName string, frameIndex int) image.Image {
	sliceIndex := slices.IndexFunc(a.Slices, func(e Slice) bool {
		return e.Name == sliceName
	})
	if sliceIndex == -1 || frameIndex >= len(a.Slices[sliceIndex].Frames) {
		return nil
	}
	rect := a.Slices[sliceIndex].Frames[frameIndex].Bounds.Add(a.Frames[frameIndex].Bounds.Min)
	return a.Image.(subImager).SubImage(rect)
}

// Segment returns the segment with the given name, or nil.
func (a *Aseprite) Segment(name string) *Segment {
	for i := range a.Segments {
		if a.Segments[i].Name == name {
			return &a.Segments[i]
		}
	}
	return nil
}

// Anchor returns the first anchor, and false if the file has none.
func (a *Aseprite) Anchor() (Anchor, bool) {
	if len(a.Anchors) == 0 {
		return Anchor{}, false
	}
	return a.Anchors[0], true
}

func fromDocument(doc *Document, cfg Config) (*Aseprite, error) {
	cfg = cfg.withDefaults()
	ws := append(warnings(nil), doc.Warnings...)

	p := newCompositor(doc, &ws)
	frames, err := p.compose()
	if err != nil {
		return nil, err
	}

	w, h := int(doc.Header.Width), int(doc.Header.Height)
	a := &Aseprite{
		Header: doc.Header,
		Frames: frames,
		Tags:   p.tags,
	}
	a.Image = buildAtlas(a.Frames, w, h)
	a.Slices = buildSlices(p.slices, len(frames))
	a.Anchors = buildAnchors(p.slices, cfg.AnchorName, w, h)
	a.Segments = buildSegments(p.tags, frames, cfg.UntaggedName, &ws)
	for _, l := range p.layers {
		a.Layers = append(a.Layers, l.LayerChunk)
	}
	a.Warnings = ws
	return a, nil
}

func buildSlices(chunks []*SliceChunk, nframes int) []Slice {
	out := make([]Slice, 0, len(chunks))
	for _, ch := range chunks {
		s := Slice{Name: ch.Name, UserData: ch.UserData}
		if len(ch.Keys) > 0 && nframes > 0 {
			s.Frames = expandSliceKeys(ch.Keys, nframes)
		}
		out = append(out, s)
	}
	return out
}

// Expand sparse keys across all frames (first key fills backward, rest forward).
func expandSliceKeys(keys []SliceKey, nframes int) []SliceFrame {
	frames := make([]SliceFrame, nframes)
	k := 0
	current := keys[0].SliceFrame
	for i := range frames {
		for k < len(keys) && int(keys[k].Frame) <= i {
			current = keys[k].SliceFrame
			k++
		}
		frames[i] = current
	}
	return frames
}

func buildAnchors(chunks []*SliceChunk, keyword string, w, h int) (anchors []Anchor) {
	if w == 0 || h == 0 {
		return nil
	}
	for _, ch := range chunks {
		if !anchorMatch(ch.Name, keyword) || len(ch.Keys) == 0 {
			continue
		}
		b := ch.Keys[0].Bounds
		cx := float64(b.Min.X) + float64(b.Dx())*0.5
		cy := float64(b.Min.Y) + float64(b.Dy())*0.5
		anchors = append(anchors, Anchor{
			Name: ch.Name,
			X:    cx / float64(w),
			Y:    cy / float64(h),
		})
	}
	return anchors
}

const unityPrefix = "unity:"

func anchorMatch(name, keyword string) bool {
	trim := func(s string) string {
		if len(s) >= len(unityPrefix) && strings.EqualFold(s[:len(unityPrefix)], unityPrefix) {
			return s[len(unityPrefix):]
		}
		return s
	}
	return strings.EqualFold(trim(name), trim(keyword))
}
