package aseparser

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

const eventPrefix = "event:"

// Event is a named marker set on a cel with the user data text
// "event:<name>".
type Event struct {
	// Frame is the document frame index of the cel.
	Frame int
	// Time is the offset from the start of the segment in seconds.
	Time float64
	Name string
}

// Segment is a named range of frames played as one animation.
type Segment struct {
	// Name is unique among the segments of a file.
	Name string
	// From and To are the first and last frame, inclusive.
	From, To int
	// Frames lists the frame indices in file order.
	Frames []int
	// Loop is false for tags written as "[name]".
	Loop      bool
	Direction LoopDirection
	// Repeat is the tag repeat count, 0 means forever.
	Repeat uint16
	Events []Event
}

// Duration returns the summed duration of the segment frames.
func (s *Segment) Duration(frames []Frame) time.Duration {
	var d time.Duration
	for _, i := range s.Frames {
		d += frames[i].Duration
	}
	return d
}

// Sequence returns the frame indices in playback order for one pass of
// the loop direction. Ping-pong passes do not repeat the end frames.
func (s *Segment) Sequence() []int {
	seq := slices.Clone(s.Frames)
	switch s.Direction {
	case Reverse:
		slices.Reverse(seq)
	case PingPong:
		seq = pingPong(seq)
	case PingPongReverse:
		slices.Reverse(seq)
		seq = pingPong(seq)
	}
	return seq
}

func pingPong(seq []int) []int {
	for i := len(seq) - 2; i > 0; i-- {
		seq = append(seq, seq[i])
	}
	return seq
}

// buildSegments turns tags into segments. Frames no tag covers form one
// trailing looping segment named untagged.
func buildSegments(tags []Tag, frames []Frame, untagged string, ws *warnings) []Segment {
	n := len(frames)
	covered := make([]bool, n)
	names := make(map[string]bool)

	var segs []Segment
	for _, t := range tags {
		from, to := int(t.From), int(t.To)
		switch {
		case from > to:
			ws.add(TagOutOfRange, from, "tag %q: frames %d-%d inverted, skipped", t.Name, from, to)
			continue
		case from >= n:
			ws.add(TagOutOfRange, from, "tag %q: frames %d-%d past the %d frames, skipped", t.Name, from, to, n)
			continue
		case to >= n:
			ws.add(TagOutOfRange, from, "tag %q: frames %d-%d clamped to %d", t.Name, from, to, n-1)
			to = n - 1
		}

		s := Segment{
			Name:      uniqueName(names, t.Name),
			From:      from,
			To:        to,
			Loop:      !t.OneShot,
			Direction: t.Direction,
			Repeat:    t.Repeat,
		}
		for f := from; f <= to; f++ {
			s.Frames = append(s.Frames, f)
			covered[f] = true
		}
		s.Events = segmentEvents(frames, s.Frames)
		segs = append(segs, s)
	}

	var pool []int
	for f, c := range covered {
		if !c {
			pool = append(pool, f)
		}
	}
	if len(pool) > 0 {
		segs = append(segs, Segment{
			Name:   uniqueName(names, untagged),
			From:   pool[0],
			To:     pool[len(pool)-1],
			Frames: pool,
			Loop:   true,
			Events: segmentEvents(frames, pool),
		})
	}
	return segs
}

func uniqueName(used map[string]bool, name string) string {
	unique := name
	for i := 1; used[unique]; i++ {
		unique = name + "_" + strconv.Itoa(i)
	}
	used[unique] = true
	return unique
}

func segmentEvents(frames []Frame, indices []int) (events []Event) {
	var t time.Duration
	for _, f := range indices {
		for _, ud := range frames[f].UserData {
			if name, ok := eventName(ud.Text); ok {
				events = append(events, Event{Frame: f, Time: t.Seconds(), Name: name})
			}
		}
		t += frames[f].Duration
	}
	return
}

// eventName returns the name of an "event:<name>" text. The prefix is
// case-insensitive and the name must not be empty.
func eventName(text string) (string, bool) {
	if len(text) <= len(eventPrefix) || !strings.EqualFold(text[:len(eventPrefix)], eventPrefix) {
		return "", false
	}
	return text[len(eventPrefix):], true
}
