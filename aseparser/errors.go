package aseparser

import (
	"fmt"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// Fatal decode errors. Returned errors wrap one of these with frame and
// chunk context; test with errors.Is.
var (
	ErrMalformedHeader       = errors.New("malformed header")
	ErrMalformedFrame        = errors.New("malformed frame")
	ErrChunkSizeMismatch     = errors.New("chunk size mismatch")
	ErrDanglingLinkedCel     = errors.New("dangling linked cel")
	ErrUnsupportedColorDepth = errors.New("unsupported color depth")
	ErrDecompression         = errors.New("decompression failure")
	ErrOutOfData             = errors.New("out of data")
)

// ChunkSizeMismatchError reports a chunk decoder that did not consume
// exactly the declared payload.
type ChunkSizeMismatchError struct {
	Frame    int
	Type     ChunkType
	Expected int
	Actual   int
}

func (e *ChunkSizeMismatchError) Error() string {
	return fmt.Sprintf("frame %d: %v chunk read %d bytes, want %d", e.Frame, e.Type, e.Actual, e.Expected)
}

func (e *ChunkSizeMismatchError) Unwrap() error {
	return ErrChunkSizeMismatch
}

// WarningKind classifies a non-fatal decode problem.
type WarningKind uint8

const (
	UnknownChunkType WarningKind = iota
	MissingTileset
	UnknownBlendMode
	UnknownLayer
	TagOutOfRange
	TileOutOfRange
)

var warningNames = [...]string{
	UnknownChunkType: "unknown chunk type",
	MissingTileset:   "missing tileset",
	UnknownBlendMode: "unknown blend mode",
	UnknownLayer:     "unknown layer",
	TagOutOfRange:    "tag out of range",
	TileOutOfRange:   "tile out of range",
}

func (k WarningKind) String() string {
	if int(k) < len(warningNames) {
		return warningNames[k]
	}
	return fmt.Sprintf("warning(%d)", uint8(k))
}

// Warning is a recoverable problem found while decoding. The affected
// record or cel was skipped.
type Warning struct {
	Kind    WarningKind
	Frame   int
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("frame %d: %v: %s", w.Frame, w.Kind, w.Message)
}

type warnings []Warning

func (ws *warnings) add(kind WarningKind, frame int, format string, args ...any) {
	w := Warning{Kind: kind, Frame: frame, Message: fmt.Sprintf(format, args...)}
	glog.Warningf("aseparser: %v", w)
	*ws = append(*ws, w)
}
