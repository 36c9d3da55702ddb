package object

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Signature is the name, email and timestamp of a commit author or
// committer.
type Signature struct {
	Name  string
	Email string
	// When is the absolute UTC instant of the signature. Git stores the
	// timestamp as Unix seconds plus a display offset; the seconds are
	// already UTC-relative, so the offset only affects rendering and is
	// discarded here.
	When time.Time
}

// Decode parses a `name <email> timestamp offset` line. Malformed input,
// missing angle brackets or a non-numeric timestamp, leaves the affected
// fields at their zero value rather than failing.
func (s *Signature) Decode(b []byte) {
	open := bytes.IndexByte(b, '<')
	closing := bytes.IndexByte(b, '>')
	if open == -1 || closing == -1 || closing < open {
		return
	}

	s.Name = string(bytes.TrimSpace(b[:open]))
	s.Email = string(b[open+1 : closing])
	s.decodeTime(bytes.TrimSpace(b[closing+1:]))
}

func (s *Signature) decodeTime(b []byte) {
	fields := bytes.Fields(b)
	if len(fields) == 0 {
		return
	}

	seconds, err := strconv.ParseInt(string(fields[0]), 10, 64)
	if err != nil {
		return
	}

	s.When = time.Unix(seconds, 0).UTC()
}

// Encode writes the signature in its on-disk shape. The zone renders from
// When, which after Decode is always +0000.
func (s *Signature) Encode(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s <%s> %d %s", s.Name, s.Email, s.When.Unix(), s.When.Format("-0700"))
	return err
}

func (s *Signature) String() string {
	return fmt.Sprintf("%s <%s>", s.Name, s.Email)
}
