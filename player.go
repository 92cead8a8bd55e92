// Package asebake plays decoded Aseprite animations with Ebitengine.
package asebake

import (
	"fmt"
	"image"
	"io/fs"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/setanarut/asebake/aseparser"
	"github.com/setanarut/v"
)

const Delta = time.Second / 60

const debugFormat = `Animation: %s
Repeat: %d
Ended: %v
Frame: %d
Elapsed: %v
Paused: %v`

// AnimPlayer plays and manages Aseprite animations.
type AnimPlayer struct {

	// The frame of the animation currently being played
	CurrentFrame *ebiten.Image

	// Pivot of the current frame in pixels
	Pivot v.Vec

	// The animation currently being played
	CurrentAnimation *Animation

	// Animations accessible by their segment names
	Animations map[string]*Animation

	// Sprite atlas containing all animations
	Atlas *ebiten.Image

	// If true, the animation is paused
	Paused bool

	// OnEvent is called with the animation and event name when a frame
	// carrying "event:<name>" cel user data is entered.
	OnEvent func(anim, event string)

	frameElapsedTime time.Duration
	frameIndex       int
	isEnded          bool
	repeatCount      uint16
}

func (a *AnimPlayer) Update(dt time.Duration) {
	if a.Paused || a.isEnded {
		return
	}
	activeAnim := a.CurrentAnimation
	a.frameElapsedTime += dt

	for a.frameElapsedTime >= activeAnim.Frames[a.frameIndex].Duration {
		a.frameElapsedTime -= activeAnim.Frames[a.frameIndex].Duration
		a.frameIndex++
		if a.frameIndex >= len(activeAnim.Frames) {
			if activeAnim.Repeat != 0 {
				a.repeatCount++
				if a.repeatCount >= activeAnim.Repeat {
					a.isEnded = true
					a.frameElapsedTime = 0
					a.setFrame(len(activeAnim.Frames) - 1)
					return
				}
			}
			a.frameIndex = 0
		}
		a.enterFrame()

		// Zero length frames would never let the loop end.
		if activeAnim.Frames[a.frameIndex].Duration <= 0 {
			break
		}
	}
}

// If Animation.Repeat is not zero, it returns true when the animation ends. If it is zero, it is always false.
func (a *AnimPlayer) IsEnded() bool {
	return a.isEnded
}

// Play rewinds and plays the animation.
func (a *AnimPlayer) Play(name string) {
	anim, ok := a.Animations[name]
	if !ok {
		glog.Warningf("asebake: no animation %q", name)
		return
	}
	a.CurrentAnimation = anim
	a.Rewind()
}

// PlayIfNotCurrent rewinds and plays the animation with the given name if it's not already playing
func (a *AnimPlayer) PlayIfNotCurrent(name string) {
	if name != a.CurrentAnimation.Name {
		a.Play(name)
	}
}

// Rewinds animation
func (a *AnimPlayer) Rewind() {
	a.frameIndex = 0
	a.frameElapsedTime = 0
	a.isEnded = false
	a.repeatCount = 0
	a.enterFrame()
}

// Frame returns the frame currently shown.
func (a *AnimPlayer) Frame() *Frame {
	return &a.CurrentAnimation.Frames[a.frameIndex]
}

func (a *AnimPlayer) String() string {
	return fmt.Sprintf(debugFormat, a.CurrentAnimation.Name,
		a.repeatCount,
		a.IsEnded(),
		a.frameIndex,
		a.frameElapsedTime,
		a.Paused)
}

func (a *AnimPlayer) setFrame(i int) {
	a.frameIndex = i
	f := a.Frame()
	a.CurrentFrame = f.Image
	a.Pivot = f.Pivot
}

func (a *AnimPlayer) enterFrame() {
	a.setFrame(a.frameIndex)
	if a.OnEvent == nil {
		return
	}
	for _, e := range a.Frame().Events {
		a.OnEvent(a.CurrentAnimation.Name, e)
	}
}

// Frame is one step of an Animation.
type Frame struct {
	Image *ebiten.Image

	// Index is the frame index in the Aseprite file.
	Index int

	// Frame duration retrieved from the Aseprite file
	Duration time.Duration

	// Pivot in frame pixels, from the anchor slice or the canvas center.
	Pivot v.Vec

	// Events fired when the frame is entered.
	Events []string
}

// Animation for AnimPlayer
type Animation struct {

	// Name is the segment name, the Aseprite tag name without brackets.
	Name string

	// Animation frames, with the loop direction applied.
	Frames []Frame

	// Repeat specifies how many times the animation should loop.
	// A value of 0 means infinite looping.
	Repeat uint16
}

// NewAnimPlayer creates a player with one animation per segment of ase.
// The first segment will be assigned as CurrentAnimation.
//
// It panics if ase has no frames.
func NewAnimPlayer(ase *aseparser.Aseprite) *AnimPlayer {
	atlas := ebiten.NewImageFromImage(ase.Image)
	ap := newAnimPlayer(ase, func(r image.Rectangle) *ebiten.Image {
		return atlas.SubImage(r).(*ebiten.Image)
	})
	ap.Atlas = atlas
	return ap
}

// The first segment will be assigned as CurrentAnimation.
func NewAnimPlayerFromAsepriteFileSystem(fs fs.FS, asePath string) *AnimPlayer {
	return NewAnimPlayer(aseparser.NewAsepriteFromFileSystem(fs, asePath))
}

// The first segment will be assigned as CurrentAnimation.
func NewAnimPlayerFromAsepriteFile(asePath string) *AnimPlayer {
	return NewAnimPlayer(aseparser.NewAsepriteFromFile(asePath))
}

func newAnimPlayer(ase *aseparser.Aseprite, subImage func(image.Rectangle) *ebiten.Image) (ap *AnimPlayer) {

	if len(ase.Segments) == 0 {
		panic("The Aseprite file does not have any frames.")
	}

	pivots := framePivots(ase)
	ap = &AnimPlayer{
		Animations: make(map[string]*Animation, len(ase.Segments)),
	}

	for _, seg := range ase.Segments {
		events := make(map[int][]string)
		for _, e := range seg.Events {
			events[e.Frame] = append(events[e.Frame], e.Name)
		}

		seq := seg.Sequence()
		frames := make([]Frame, 0, len(seq))
		for _, i := range seq {
			frames = append(frames, Frame{
				Image:    subImage(ase.Frames[i].Bounds),
				Index:    i,
				Duration: ase.Frames[i].Duration,
				Pivot:    pivots[i],
				Events:   events[i],
			})
		}

		ap.Animations[seg.Name] = &Animation{
			Name:   seg.Name,
			Frames: frames,
			Repeat: repeat(seg),
		}
	}

	ap.CurrentAnimation = ap.Animations[ase.Segments[0].Name]
	ap.setFrame(0)
	return
}

// One-shot segments play once unless the tag repeats them.
func repeat(seg aseparser.Segment) uint16 {
	if !seg.Loop && seg.Repeat == 0 {
		return 1
	}
	return seg.Repeat
}

// framePivots returns the pivot of every frame: the center of the anchor
// slice on that frame, or the canvas center.
func framePivots(ase *aseparser.Aseprite) []v.Vec {
	center := v.Vec{X: float64(ase.Header.Width) / 2, Y: float64(ase.Header.Height) / 2}
	pivots := make([]v.Vec, len(ase.Frames))
	for i := range pivots {
		pivots[i] = center
	}

	anchor, ok := ase.Anchor()
	if !ok {
		return pivots
	}
	for _, s := range ase.Slices {
		if !strings.EqualFold(s.Name, anchor.Name) {
			continue
		}
		for i, sf := range s.Frames {
			b := sf.Bounds
			pivots[i] = v.Vec{
				X: float64(b.Min.X) + float64(b.Dx())/2,
				Y: float64(b.Min.Y) + float64(b.Dy())/2,
			}
		}
		break
	}
	return pivots
}
