// Package objfile implements reading of git loose object files.
package objfile

import (
	"compress/flate"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/gitmeta/gitmeta/plumbing"
)

var (
	// ErrHeader is returned when the object header cannot be parsed.
	ErrHeader = errors.New("invalid loose object header")
)

// MaxPayload caps how much of a loose object is inflated, header included.
// Objects larger than this are silently truncated at the ceiling.
const MaxPayload = 8 * 1024

// zlibHeaderSize is the stream header a loose object file starts with; it
// is skipped so the remainder can be fed to a raw DEFLATE reader.
const zlibHeaderSize = 2

// Reader inflates a loose object file and exposes its body, the bytes after
// the `<type> <size>\x00` prefix.
type Reader struct {
	body io.Reader
	z    io.ReadCloser
	typ  plumbing.ObjectType
	size int64
}

// NewReader reads the object header from r and returns a Reader positioned
// at the start of the object body.
func NewReader(r io.Reader) (*Reader, error) {
	var magic [zlibHeaderSize]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, err
	}

	z := flate.NewReader(r)
	body := io.LimitReader(z, MaxPayload)

	typ, size, err := readHeader(body)
	if err != nil {
		z.Close()
		return nil, err
	}

	return &Reader{body: body, z: z, typ: typ, size: size}, nil
}

// Type returns the object type declared by the header.
func (r *Reader) Type() plumbing.ObjectType {
	return r.typ
}

// Size returns the object size declared by the header. The readable body
// may be shorter when the object exceeds MaxPayload.
func (r *Reader) Size() int64 {
	return r.size
}

func (r *Reader) Read(p []byte) (int, error) {
	return r.body.Read(p)
}

func (r *Reader) Close() error {
	return r.z.Close()
}

// readHeader consumes bytes up to and including the first NUL and parses
// them as `<type> <size>`.
func readHeader(r io.Reader) (plumbing.ObjectType, int64, error) {
	var header []byte
	var buf [1]byte
	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return plumbing.InvalidObject, 0, err
		}
		if buf[0] == 0 {
			break
		}
		if len(header) >= 32 {
			return plumbing.InvalidObject, 0, ErrHeader
		}
		header = append(header, buf[0])
	}

	tag, size, ok := strings.Cut(string(header), " ")
	if !ok {
		return plumbing.InvalidObject, 0, ErrHeader
	}

	typ, err := plumbing.ParseObjectType(tag)
	if err != nil {
		return plumbing.InvalidObject, 0, err
	}

	n, err := strconv.ParseInt(size, 10, 64)
	if err != nil || n < 0 {
		return plumbing.InvalidObject, 0, ErrHeader
	}

	return typ, n, nil
}
