package aseparser

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/pkg/errors"
)

// inflate decompresses a zlib wrapped payload and checks that it holds
// exactly want bytes. The 2-byte zlib header is skipped and the trailing
// checksum is not verified.
func inflate(raw []byte, want int) ([]byte, error) {
	if len(raw) < 2 {
		return nil, errors.Wrap(ErrDecompression, "missing zlib header")
	}

	fr := flate.NewReader(bytes.NewReader(raw[2:]))
	defer fr.Close()

	pix, err := io.ReadAll(io.LimitReader(fr, int64(want)+1))
	if err != nil {
		return nil, errors.Wrapf(ErrDecompression, "%v", err)
	}
	if len(pix) != want {
		return nil, errors.Wrapf(ErrDecompression, "inflated %d bytes, want %d", len(pix), want)
	}
	return pix, nil
}
