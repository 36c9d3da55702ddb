package objfile

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/gitmeta/gitmeta/plumbing"
)

type SuiteReader struct {
	suite.Suite
}

func TestSuiteReader(t *testing.T) {
	suite.Run(t, new(SuiteReader))
}

// deflate compresses a full loose object payload the way git writes it.
func deflate(t plumbing.ObjectType, body string) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	fmt.Fprintf(w, "%s %d\x00%s", t, len(body), body)
	w.Close()
	return buf.Bytes()
}

func (s *SuiteReader) TestReadCommit() {
	body := "tree 52a266a58f2c028ad7de4dfd3a72fdf76b0d4e24\n\nhello"
	r, err := NewReader(bytes.NewReader(deflate(plumbing.CommitObject, body)))
	s.NoError(err)

	s.Equal(plumbing.CommitObject, r.Type())
	s.Equal(int64(len(body)), r.Size())

	got, err := io.ReadAll(r)
	s.NoError(err)
	s.Equal(body, string(got))
	s.NoError(r.Close())
}

func (s *SuiteReader) TestReadNonCommit() {
	r, err := NewReader(bytes.NewReader(deflate(plumbing.BlobObject, "hello world")))
	s.NoError(err)
	s.Equal(plumbing.BlobObject, r.Type())
	s.NoError(r.Close())
}

func (s *SuiteReader) TestReadEmpty() {
	_, err := NewReader(bytes.NewReader(nil))
	s.NotNil(err)
}

func (s *SuiteReader) TestReadGarbage() {
	_, err := NewReader(bytes.NewReader([]byte("!@#$RO!@NROSADfinq@o#irn@oirfn")))
	s.NotNil(err)
}

func (s *SuiteReader) TestReadBadType() {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	fmt.Fprintf(w, "sandwich 4\x00abcd")
	w.Close()

	_, err := NewReader(bytes.NewReader(buf.Bytes()))
	s.ErrorIs(err, plumbing.ErrInvalidType)
}

func (s *SuiteReader) TestReadTruncatesAtCeiling() {
	body := strings.Repeat("x", 3*MaxPayload)
	r, err := NewReader(bytes.NewReader(deflate(plumbing.CommitObject, body)))
	s.NoError(err)

	got, err := io.ReadAll(r)
	s.NoError(err)

	// the ceiling covers the whole payload, header included
	header := fmt.Sprintf("commit %d\x00", len(body))
	s.Len(got, MaxPayload-len(header))
	s.NoError(r.Close())
}
