package main

import (
	"image"

	"github.com/setanarut/asebake/aseparser"
)

// manifest describes the baked atlas for game engines.
type manifest struct {
	Image    string    `json:"image"`
	Size     size      `json:"size"`
	Canvas   size      `json:"canvas"`
	Frames   []frame   `json:"frames"`
	Segments []segment `json:"segments"`
	Slices   []slice   `json:"slices,omitempty"`
	Anchor   *anchor   `json:"anchor,omitempty"`
	Warnings []string  `json:"warnings,omitempty"`
}

type size struct {
	W int `json:"w"`
	H int `json:"h"`
}

type rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type frame struct {
	rect
	// Duration in milliseconds.
	Duration int64 `json:"duration"`
}

type segment struct {
	Name      string  `json:"name"`
	From      int     `json:"from"`
	To        int     `json:"to"`
	Sequence  []int   `json:"sequence"`
	Loop      bool    `json:"loop"`
	Direction string  `json:"direction"`
	Repeat    uint16  `json:"repeat"`
	Events    []event `json:"events,omitempty"`
}

type event struct {
	Frame int     `json:"frame"`
	Time  float64 `json:"time"`
	Name  string  `json:"name"`
}

type slice struct {
	Name   string `json:"name"`
	Data   string `json:"data,omitempty"`
	Frames []rect `json:"frames"`
}

type anchor struct {
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

func newManifest(ase *aseparser.Aseprite, src string, scale int) manifest {
	ab := ase.Image.Bounds()
	m := manifest{
		Image:  src,
		Size:   size{ab.Dx() * scale, ab.Dy() * scale},
		Canvas: size{int(ase.Header.Width) * scale, int(ase.Header.Height) * scale},
	}

	for _, f := range ase.Frames {
		m.Frames = append(m.Frames, frame{
			rect:     scaleRect(f.Bounds, scale),
			Duration: f.Duration.Milliseconds(),
		})
	}

	for i := range ase.Segments {
		s := &ase.Segments[i]
		seg := segment{
			Name:      s.Name,
			From:      s.From,
			To:        s.To,
			Sequence:  s.Sequence(),
			Loop:      s.Loop,
			Direction: s.Direction.String(),
			Repeat:    s.Repeat,
		}
		for _, e := range s.Events {
			seg.Events = append(seg.Events, event{e.Frame, e.Time, e.Name})
		}
		m.Segments = append(m.Segments, seg)
	}

	for _, s := range ase.Slices {
		out := slice{Name: s.Name, Data: s.Text}
		for _, sf := range s.Frames {
			out.Frames = append(out.Frames, scaleRect(sf.Bounds, scale))
		}
		m.Slices = append(m.Slices, out)
	}

	if a, ok := ase.Anchor(); ok {
		m.Anchor = &anchor{a.Name, a.X, a.Y}
	}

	for _, w := range ase.Warnings {
		m.Warnings = append(m.Warnings, w.String())
	}
	return m
}

func scaleRect(r image.Rectangle, scale int) rect {
	return rect{r.Min.X * scale, r.Min.Y * scale, r.Dx() * scale, r.Dy() * scale}
}
