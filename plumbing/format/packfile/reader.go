// Package packfile implements reading single whole objects out of pack
// files.
//
// The header decoder is deliberately small: it consumes exactly two header
// bytes, so only objects whose encoded size needs one continuation byte
// (16 to 2047 bytes, which covers ordinary commits) locate their compressed
// stream correctly. Larger objects, and delta entries of any kind, fail to
// inflate and surface as not-found upstream.
package packfile

import (
	"compress/flate"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrZLib is returned when the object payload cannot be inflated.
	ErrZLib = errors.New("zlib reading error")
)

const (
	maskContinue = byte(0x80)
	maskSize     = byte(0x0f)

	headerSize = 2

	// the compressed payload is a zlib stream; its 2-byte header is
	// skipped so the remainder can be fed to a raw DEFLATE reader
	zlibHeaderSize = 2
)

// Reader reads whole, non-delta objects from a pack file.
type Reader struct {
	r io.ReadSeeker
}

// NewReader returns a Reader over the pack file r.
func NewReader(r io.ReadSeeker) *Reader {
	return &Reader{r: r}
}

// ObjectAt inflates the object stored at the given pack offset and returns
// its raw bytes. Pack payloads carry no `<type> <size>\x00` prefix; for a
// commit the result is the commit body itself.
func (p *Reader) ObjectAt(offset int64) ([]byte, error) {
	if _, err := p.r.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}

	var header [headerSize]byte
	if _, err := io.ReadFull(p.r, header[:]); err != nil {
		return nil, err
	}

	size := int64(header[0] & maskSize)
	if header[0]&maskContinue != 0 {
		size += int64(header[1]&0x7f) << 4
	}

	if _, err := p.r.Seek(zlibHeaderSize, io.SeekCurrent); err != nil {
		return nil, err
	}

	z := flate.NewReader(p.r)
	defer z.Close()

	data, err := io.ReadAll(io.LimitReader(z, size))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrZLib, err)
	}
	if int64(len(data)) != size {
		return nil, ErrZLib
	}

	return data, nil
}
