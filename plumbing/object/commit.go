// Package object implements parsing of the objects the metadata pipeline
// resolves: commits.
package object

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"

	"github.com/gitmeta/gitmeta/plumbing"
)

const (
	headerTree      = "tree "
	headerParent    = "parent "
	headerAuthor    = "author "
	headerCommitter = "committer "
	headerGpgsig    = "gpgsig "

	// endpgp closes the multi-line signature capture. The line carrying
	// it is consumed into the signature block.
	endpgp = "END PGP SIGNATURE"
)

// Commit holds the metadata of a single commit object: the tree and first
// parent it points to, author and committer signatures, the detached PGP
// signature block when present, and the message.
type Commit struct {
	// Hash is the id this commit was resolved from.
	Hash plumbing.Hash
	// Author is the original author of the commit.
	Author Signature
	// Committer is the one performing the commit.
	Committer Signature
	// PGPSignature is the armored signature block, verbatim.
	PGPSignature string
	// Message is the commit message.
	Message string
	// TreeHash is the id of the root tree of the commit.
	TreeHash plumbing.Hash
	// ParentHash is the id of the first parent; zero for a root commit.
	ParentHash plumbing.Hash
}

// Decode reads a commit body, the bytes after the object header, and fills
// c. The scan dispatches on the line prefix for every line of the input;
// malformed header lines degrade their fields and never abort the parse.
//
// The first blank line after the headers separates them from the message
// and is skipped; everything after it, blank lines included, is kept
// verbatim.
func (c *Commit) Decode(r io.Reader) error {
	s := bufio.NewScanner(r)

	var message []string
	var signature []string
	inSignature := false
	separated := false

	for s.Scan() {
		line := s.Text()

		if inSignature {
			signature = append(signature, line)
			if strings.Contains(line, endpgp) {
				inSignature = false
			}
			continue
		}

		switch {
		case strings.HasPrefix(line, headerTree):
			c.TreeHash = plumbing.NewHash(line[len(headerTree):])
		case strings.HasPrefix(line, headerParent):
			if c.ParentHash.IsZero() {
				c.ParentHash = plumbing.NewHash(line[len(headerParent):])
			}
		case strings.HasPrefix(line, headerAuthor):
			c.Author.Decode([]byte(line[len(headerAuthor):]))
		case strings.HasPrefix(line, headerCommitter):
			c.Committer.Decode([]byte(line[len(headerCommitter):]))
		case strings.HasPrefix(line, headerGpgsig):
			signature = append(signature, line[len(headerGpgsig):])
			if !strings.Contains(line, endpgp) {
				inSignature = true
			}
		default:
			if !separated && line == "" {
				separated = true
				continue
			}
			message = append(message, line)
		}
	}

	if err := s.Err(); err != nil {
		return err
	}

	c.PGPSignature = strings.Join(signature, "\n")
	c.Message = strings.Join(message, "\n")

	return nil
}

// EncodeWithoutSignature writes the canonical payload a detached commit
// signature covers: the commit re-encoded without its gpgsig header.
func (c *Commit) EncodeWithoutSignature(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s%s\n", headerTree, c.TreeHash); err != nil {
		return err
	}

	if !c.ParentHash.IsZero() {
		if _, err := fmt.Fprintf(w, "%s%s\n", headerParent, c.ParentHash); err != nil {
			return err
		}
	}

	if _, err := io.WriteString(w, headerAuthor); err != nil {
		return err
	}
	if err := c.Author.Encode(w); err != nil {
		return err
	}

	if _, err := io.WriteString(w, "\n"+headerCommitter); err != nil {
		return err
	}
	if err := c.Committer.Encode(w); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\n\n%s", c.Message)
	return err
}

// Verify performs PGP verification of the commit's signature block against
// the given armored keyring, returning the signing entity on success.
func (c *Commit) Verify(armoredKeyRing string) (*openpgp.Entity, error) {
	keyring, err := openpgp.ReadArmoredKeyRing(strings.NewReader(armoredKeyRing))
	if err != nil {
		return nil, err
	}

	payload := bytes.NewBuffer(nil)
	if err := c.EncodeWithoutSignature(payload); err != nil {
		return nil, err
	}

	return openpgp.CheckArmoredDetachedSignature(keyring, payload, strings.NewReader(c.PGPSignature), nil)
}
