package aseparser

import (
	"image"
	"image/color"
	"io"
	"io/fs"
	"os"

	"github.com/pkg/errors"
)

func init() {
	image.RegisterFormat("aseprite", "????\xE0\xA5", Decode, DecodeConfig)
}

// NewAsepriteFromFile loads and parses an Aseprite file from the given path.
// It panics if the file cannot be opened or parsed.
func NewAsepriteFromFile(path string) *Aseprite {
	ase, err := ReadFile(path, DefaultConfig())
	if err != nil {
		panic(err)
	}
	return ase
}

// NewAsepriteFromFileSystem loads and parses an Aseprite file from the given fs path.
// It panics if the file cannot be opened or parsed.
func NewAsepriteFromFileSystem(fsys fs.FS, path string) *Aseprite {
	raw, err := fs.ReadFile(fsys, path)
	if err != nil {
		panic(err)
	}
	ase, err := DecodeBytes(raw, DefaultConfig())
	if err != nil {
		panic(errors.Wrap(err, path))
	}
	return ase
}

// ReadFile decodes the Aseprite file at path.
func ReadFile(path string, cfg Config) (*Aseprite, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ase, err := DecodeBytes(raw, cfg)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return ase, nil
}

// Read decodes an Aseprite image from r with the default config.
func Read(r io.Reader) (*Aseprite, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return DecodeBytes(raw, DefaultConfig())
}

// DecodeBytes decodes and composites an Aseprite file held in memory.
func DecodeBytes(raw []byte, cfg Config) (*Aseprite, error) {
	doc, err := DecodeDocument(raw)
	if err != nil {
		return nil, err
	}
	return fromDocument(doc, cfg)
}

// Decode decodes an Aseprite image from r and returns its frame atlas.
func Decode(r io.Reader) (image.Image, error) {
	ase, err := Read(r)
	if err != nil {
		return nil, err
	}
	return ase.Image, nil
}

// DecodeConfig returns the color model and dimensions of the frame atlas
// of an Aseprite image without decoding the entire image.
func DecodeConfig(r io.Reader) (image.Config, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return image.Config{}, errors.Wrapf(ErrOutOfData, "header: %v", err)
	}

	h, err := decodeHeader(newCursor(hdr[:]))
	if err != nil {
		return image.Config{}, err
	}

	cfg := image.Config{ColorModel: color.NRGBAModel}
	if h.Frames > 0 {
		atlasr, _ := makeAtlasFrames(int(h.Frames), int(h.Width), int(h.Height))
		cfg.Width, cfg.Height = atlasr.Dx(), atlasr.Dy()
	}
	return cfg, nil
}
