// Package gitmeta extracts commit and remote metadata from a git repository
// by reading the .git directory directly: no git executable is invoked and
// no native git library is linked. The text config, loose zlib objects and
// binary pack index and pack file formats are all parsed from raw bytes.
//
// The reader is strictly best-effort instrumentation plumbing: a missing,
// partial or broken repository degrades to unset fields, never to an error.
// The result is a plain value suitable for attaching as telemetry tags.
package gitmeta

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/gitmeta/gitmeta/plumbing"
	"github.com/gitmeta/gitmeta/plumbing/format/config"
	"github.com/gitmeta/gitmeta/plumbing/format/idxfile"
	"github.com/gitmeta/gitmeta/plumbing/format/objfile"
	"github.com/gitmeta/gitmeta/plumbing/format/packfile"
	"github.com/gitmeta/gitmeta/plumbing/object"
	"github.com/gitmeta/gitmeta/storage/dotgit"
)

// branchRefPrefix strips the refs namespace off a branch ref path for
// display.
const branchRefPrefix = "refs/heads/"

// RepositoryInfo is the metadata of the checked out commit of a repository.
// Fields that could not be resolved are left at their zero value; a partial
// result is still a valid result. The value is built once and never
// mutated.
type RepositoryInfo struct {
	SourceRoot    string
	RepositoryURL string
	Branch        string
	CommitSha     string

	AuthorName  string
	AuthorEmail string
	AuthorDate  time.Time

	CommitterName  string
	CommitterEmail string
	CommitterDate  time.Time

	// CommitSignature is the armored PGP block of a signed commit,
	// verbatim, or empty.
	CommitSignature string
	CommitMessage   string
}

// Get resolves the repository containing startPath, or the process working
// directory when startPath is empty.
func Get(startPath string) RepositoryInfo {
	if startPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return RepositoryInfo{}
		}
		startPath = wd
	}

	return GetFromFilesystem(osfs.New("/"), startPath)
}

// GetFromFilesystem is Get over an explicit filesystem, which keeps the
// whole pipeline testable against in-memory fixtures.
//
// The pipeline runs strictly sequentially: locate the .git directory,
// resolve HEAD, read the commit object (loose first, then each pack index
// in order), parse it, and map the branch to its remote URL through the
// config. Every stage returns a value and an error; a failing stage leaves
// its fields unset and the pipeline moves on.
func GetFromFilesystem(fs billy.Filesystem, startPath string) RepositoryInfo {
	d, root, ok := dotgit.Find(fs, startPath)
	if !ok {
		return RepositoryInfo{}
	}

	info := RepositoryInfo{SourceRoot: root}

	branch, head, err := d.Head()
	if err == nil {
		info.Branch = strings.TrimPrefix(branch, branchRefPrefix)
	}

	if !head.IsZero() {
		info.CommitSha = head.String()

		if c, err := readCommit(d, head); err == nil {
			info.AuthorName = c.Author.Name
			info.AuthorEmail = c.Author.Email
			info.AuthorDate = c.Author.When
			info.CommitterName = c.Committer.Name
			info.CommitterEmail = c.Committer.Email
			info.CommitterDate = c.Committer.When
			info.CommitSignature = c.PGPSignature
			info.CommitMessage = c.Message
		}
	}

	info.RepositoryURL = remoteURL(d, branch)

	return info
}

// readCommit retrieves and parses the commit body for h, trying the loose
// object path first and falling back to the pack files.
func readCommit(d *dotgit.DotGit, h plumbing.Hash) (*object.Commit, error) {
	body, err := looseCommit(d, h)
	if err != nil {
		body, err = packedCommit(d, h)
	}
	if err != nil {
		return nil, err
	}

	c := &object.Commit{Hash: h}
	if err := c.Decode(bytes.NewReader(body)); err != nil {
		return nil, err
	}

	return c, nil
}

// looseCommit reads the loose object for h. An object of any other type is
// reported as not found rather than returned.
func looseCommit(d *dotgit.DotGit, h plumbing.Hash) ([]byte, error) {
	f, err := d.LooseObject(h)
	if err != nil {
		return nil, plumbing.ErrObjectNotFound
	}
	defer f.Close()

	r, err := objfile.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	if r.Type() != plumbing.CommitObject {
		return nil, plumbing.ErrObjectNotFound
	}

	return io.ReadAll(r)
}

// packedCommit scans every pack index under objects/pack in order and
// inflates the object from the matching pack at the first hit. Pack bodies
// carry no object header; the bytes are the commit body directly.
func packedCommit(d *dotgit.DotGit, h plumbing.Hash) ([]byte, error) {
	indexes, err := d.PackIndexes()
	if err != nil {
		return nil, plumbing.ErrObjectNotFound
	}

	for _, idxPath := range indexes {
		offset, err := findPackOffset(d, idxPath, h)
		if errors.Is(err, idxfile.ErrEntryNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		return readPackObject(d, dotgit.PackFile(idxPath), offset)
	}

	return nil, plumbing.ErrObjectNotFound
}

func findPackOffset(d *dotgit.DotGit, idxPath string, h plumbing.Hash) (int64, error) {
	f, err := d.Open(idxPath)
	if err != nil {
		return 0, idxfile.ErrEntryNotFound
	}
	defer f.Close()

	return idxfile.NewIndex(f).FindOffset(h)
}

func readPackObject(d *dotgit.DotGit, packPath string, offset int64) ([]byte, error) {
	f, err := d.Open(packPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return packfile.NewReader(f).ObjectAt(offset)
}

// remoteURL maps the branch ref to its upstream URL via the repository
// config. An unknown branch still resolves through the default remote.
func remoteURL(d *dotgit.DotGit, branch string) string {
	f, err := d.Config()
	if err != nil {
		return ""
	}
	defer f.Close()

	cfg := config.New()
	if err := config.NewDecoder(f).Decode(cfg); err != nil {
		return ""
	}

	return cfg.RemoteURL(branch)
}
