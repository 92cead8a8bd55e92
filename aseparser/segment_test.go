package aseparser

import (
	"slices"
	"testing"

	"github.com/setanarut/asebake/internal/asetest"
)

// sixFrames returns a 6 frame file whose first frame holds tags.
func sixFrames(tags ...asetest.Tag) *asetest.File {
	f := asetest.New(1, 1)
	f.AddFrame(100, asetest.Layer{Name: "a", Opacity: 255}.Chunk(), asetest.Tags(tags...))
	for range 5 {
		f.AddFrame(100)
	}
	return f
}

func TestSegments(t *testing.T) {
	t.Run("one-shot tag and untagged rest", func(t *testing.T) {
		ase := decode(t, sixFrames(asetest.Tag{From: 2, To: 4, Name: "[Walk]"}))
		if len(ase.Segments) != 2 {
			t.Fatalf("segments = %+v", ase.Segments)
		}

		walk := ase.Segments[0]
		if walk.Name != "Walk" || walk.From != 2 || walk.To != 4 || walk.Loop {
			t.Errorf("walk = %+v", walk)
		}
		if !slices.Equal(walk.Frames, []int{2, 3, 4}) {
			t.Errorf("walk frames = %v", walk.Frames)
		}

		rest := ase.Segments[1]
		if rest.Name != DefaultUntaggedName || !rest.Loop || !slices.Equal(rest.Frames, []int{0, 1, 5}) {
			t.Errorf("untagged = %+v", rest)
		}
		if rest.From != 0 || rest.To != 5 {
			t.Errorf("untagged range = %d-%d", rest.From, rest.To)
		}
	})

	t.Run("all frames tagged", func(t *testing.T) {
		ase := decode(t, sixFrames(
			asetest.Tag{From: 0, To: 2, Name: "idle"},
			asetest.Tag{From: 3, To: 5, Name: "run", Direction: uint8(PingPong), Repeat: 2},
		))
		if len(ase.Segments) != 2 {
			t.Fatalf("segments = %+v", ase.Segments)
		}
		run := ase.Segment("run")
		if run == nil || !run.Loop || run.Direction != PingPong || run.Repeat != 2 {
			t.Errorf("run = %+v", run)
		}
		if ase.Segment(DefaultUntaggedName) != nil {
			t.Error("untagged segment emitted with every frame tagged")
		}
	})

	t.Run("overlapping tags", func(t *testing.T) {
		ase := decode(t, sixFrames(
			asetest.Tag{From: 0, To: 3, Name: "a"},
			asetest.Tag{From: 2, To: 5, Name: "b"},
		))
		if len(ase.Segments) != 2 || ase.Segment("b").From != 2 {
			t.Errorf("segments = %+v", ase.Segments)
		}
	})

	t.Run("duplicate names", func(t *testing.T) {
		ase := decode(t, sixFrames(
			asetest.Tag{From: 0, To: 1, Name: "fly"},
			asetest.Tag{From: 2, To: 3, Name: "fly"},
			asetest.Tag{From: 4, To: 5, Name: "[fly]"},
		))
		var names []string
		for _, s := range ase.Segments {
			names = append(names, s.Name)
		}
		if !slices.Equal(names, []string{"fly", "fly_1", "fly_2"}) {
			t.Errorf("names = %v", names)
		}
	})

	t.Run("out of range tags", func(t *testing.T) {
		ase := decode(t, sixFrames(
			asetest.Tag{From: 4, To: 9, Name: "clamped"},
			asetest.Tag{From: 3, To: 1, Name: "inverted"},
			asetest.Tag{From: 7, To: 8, Name: "past"},
		))
		if s := ase.Segment("clamped"); s == nil || s.To != 5 {
			t.Errorf("clamped = %+v", s)
		}
		if ase.Segment("inverted") != nil || ase.Segment("past") != nil {
			t.Error("invalid tags became segments")
		}
		if !hasWarning(ase, TagOutOfRange) {
			t.Errorf("warnings = %v", ase.Warnings)
		}
	})

	t.Run("custom untagged name", func(t *testing.T) {
		ase, err := DecodeBytes(sixFrames().Bytes(), Config{UntaggedName: "rest"})
		if err != nil {
			t.Fatal(err)
		}
		if len(ase.Segments) != 1 || ase.Segments[0].Name != "rest" || len(ase.Segments[0].Frames) != 6 {
			t.Errorf("segments = %+v", ase.Segments)
		}
	})
}

func TestEvents(t *testing.T) {
	f := asetest.New(1, 1)
	cel := func(layer uint16) asetest.Chunk {
		return asetest.Cel{Layer: layer, Opacity: 255, Width: 1, Height: 1, Pix: asetest.Pixels(1, 1, red)}.Chunk()
	}
	f.AddFrame(100,
		asetest.Layer{Name: "a", Opacity: 255}.Chunk(),
		asetest.Layer{Name: "hidden", Opacity: 255, Hidden: true}.Chunk(),
		asetest.Tags(asetest.Tag{From: 1, To: 3, Name: "attack"}),
	)
	f.AddFrame(100, cel(0), asetest.UserText("event:windup"))
	f.AddFrame(150, cel(0), asetest.UserText("EVENT:Hit"), cel(1), asetest.UserText("event:ignored"))
	f.AddFrame(100, cel(0), asetest.UserText("event:"))

	ase := decode(t, f)
	attack := ase.Segment("attack")
	if attack == nil {
		t.Fatal("no attack segment")
	}

	want := []Event{
		{Frame: 1, Time: 0, Name: "windup"},
		{Frame: 2, Time: 0.1, Name: "Hit"},
	}
	if !slices.Equal(attack.Events, want) {
		t.Errorf("events = %+v, want %+v", attack.Events, want)
	}
	if got := attack.Duration(ase.Frames).Milliseconds(); got != 350 {
		t.Errorf("duration = %dms", got)
	}
}

func TestEventName(t *testing.T) {
	tests := []struct {
		text string
		name string
		ok   bool
	}{
		{"event:Step", "Step", true},
		{"Event:step", "step", true},
		{"event:", "", false},
		{"events", "", false},
		{"note: event:x", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		name, ok := eventName(tt.text)
		if name != tt.name || ok != tt.ok {
			t.Errorf("eventName(%q) = %q, %v", tt.text, name, ok)
		}
	}
}

func TestSequence(t *testing.T) {
	tests := []struct {
		dir  LoopDirection
		want []int
	}{
		{Forward, []int{2, 3, 4}},
		{Reverse, []int{4, 3, 2}},
		{PingPong, []int{2, 3, 4, 3}},
		{PingPongReverse, []int{4, 3, 2, 3}},
	}
	for _, tt := range tests {
		s := Segment{Frames: []int{2, 3, 4}, Direction: tt.dir}
		if got := s.Sequence(); !slices.Equal(got, tt.want) {
			t.Errorf("%v: %v, want %v", tt.dir, got, tt.want)
		}
		if !slices.Equal(s.Frames, []int{2, 3, 4}) {
			t.Errorf("%v: frames modified to %v", tt.dir, s.Frames)
		}
	}

	single := Segment{Frames: []int{1}, Direction: PingPong}
	if got := single.Sequence(); !slices.Equal(got, []int{1}) {
		t.Errorf("single frame ping-pong = %v", got)
	}
}
