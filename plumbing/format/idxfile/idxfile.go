// Package idxfile implements object lookups against version 2 pack index
// files.
//
// The reader touches only the byte ranges a single lookup needs: one
// fan-out bucket, a binary search over the id table slice it bounds, and
// one offset entry. It never loads the whole index.
package idxfile

import (
	"errors"
	"io"

	"github.com/gitmeta/gitmeta/plumbing"
	"github.com/gitmeta/gitmeta/plumbing/hash"
	"github.com/gitmeta/gitmeta/utils/binary"
)

var (
	// ErrEntryNotFound is returned by FindOffset when the id is not
	// present in the index; the caller moves on to the next index.
	ErrEntryNotFound = errors.New("entry not found")
)

const (
	// fanoutOffset skips the 4-byte magic and 4-byte version. The read
	// pattern works on any index with the v2 table positions, so the
	// version word itself is never checked.
	fanoutOffset = 8
	fanoutCount  = 256

	namesOffset = fanoutOffset + 4*fanoutCount

	crcSize    = 4
	offsetSize = 4
	largeSize  = 8

	// isO64Mask flags a 4-byte offset entry as an index into the 8-byte
	// large offset table, used when an object sits further than 2 GiB
	// into the pack.
	isO64Mask = uint32(1) << 31
)

// Index performs object id lookups against a pack index.
type Index struct {
	r io.ReaderAt
}

// NewIndex returns an Index reading from r.
func NewIndex(r io.ReaderAt) *Index {
	return &Index{r: r}
}

// Count returns the total number of objects in the index, the last entry
// of the cumulative fan-out table.
func (i *Index) Count() (uint32, error) {
	return i.fanout(fanoutCount - 1)
}

// fanout returns the cumulative count of objects whose id's first byte is
// less than or equal to bucket.
func (i *Index) fanout(bucket int) (uint32, error) {
	return binary.ReadUint32(io.NewSectionReader(i.r, fanoutOffset+4*int64(bucket), 4))
}

// FindOffset returns the pack file byte offset of the object h, or
// ErrEntryNotFound if the id is absent from this index.
func (i *Index) FindOffset(h plumbing.Hash) (int64, error) {
	var low uint32
	if first := int(h[0]); first > 0 {
		var err error
		if low, err = i.fanout(first - 1); err != nil {
			return 0, err
		}
	}

	high, err := i.fanout(int(h[0]))
	if err != nil {
		return 0, err
	}

	pos, err := i.findHashIndex(h, int64(low), int64(high))
	if err != nil {
		return 0, err
	}

	return i.offsetAt(pos)
}

// findHashIndex binary-searches the sorted id table slice [low, high) for
// an exact byte match with h, returning its absolute table index.
func (i *Index) findHashIndex(h plumbing.Hash, low, high int64) (int64, error) {
	var name [hash.Size]byte
	for low < high {
		mid := (low + high) >> 1
		if _, err := i.r.ReadAt(name[:], namesOffset+hash.Size*mid); err != nil {
			return 0, err
		}

		switch cmp := h.Compare(name[:]); {
		case cmp == 0:
			return mid, nil
		case cmp < 0:
			high = mid
		default:
			low = mid + 1
		}
	}

	return 0, ErrEntryNotFound
}

// offsetAt reads the offset table entry at the given table index,
// dereferencing the 64-bit escape when the top bit is set.
func (i *Index) offsetAt(pos int64) (int64, error) {
	total, err := i.Count()
	if err != nil {
		return 0, err
	}

	offsetsOffset := namesOffset + int64(total)*(hash.Size+crcSize)

	v, err := binary.ReadUint32(io.NewSectionReader(i.r, offsetsOffset+offsetSize*pos, offsetSize))
	if err != nil {
		return 0, err
	}

	if v&isO64Mask == 0 {
		return int64(v), nil
	}

	largeOffset := offsetsOffset + int64(total)*offsetSize
	large, err := binary.ReadUint64(io.NewSectionReader(i.r, largeOffset+largeSize*int64(v&^isO64Mask), largeSize))
	if err != nil {
		return 0, err
	}

	return int64(large), nil
}
