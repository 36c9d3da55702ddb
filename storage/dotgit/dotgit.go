// Package dotgit gives read-only access to the files of a .git directory.
package dotgit

import (
	"bufio"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/gitmeta/gitmeta/plumbing"
)

const (
	// GitDirName is the well known name of the repository metadata
	// directory.
	GitDirName = ".git"

	headPath       = "HEAD"
	configPath     = "config"
	packedRefsPath = "packed-refs"
	infoRefsPath   = "info/refs"
	objectsPath    = "objects"
	packPath       = "pack"

	symrefPrefix = "ref:"

	suffixIdx  = ".idx"
	suffixPack = ".pack"
)

// DotGit exposes the parts of a .git directory the metadata pipeline reads.
// All access goes through a billy filesystem rooted at the directory; every
// file handle is scoped to a single read.
type DotGit struct {
	fs billy.Filesystem
}

// New returns a DotGit over fs, which must be rooted at the .git directory.
func New(fs billy.Filesystem) *DotGit {
	return &DotGit{fs: fs}
}

// Find walks the ancestor chain of start looking for a .git directory and
// returns a DotGit chrooted at it plus the worktree root that holds it.
// ok=false means no repository was found, which is a valid result and not
// an error.
func Find(fs billy.Filesystem, start string) (dotgit *DotGit, root string, ok bool) {
	for dir := start; ; {
		gitdir := fs.Join(dir, GitDirName)
		if fi, err := fs.Stat(gitdir); err == nil && fi.IsDir() {
			sub, err := fs.Chroot(gitdir)
			if err != nil {
				return nil, "", false
			}
			return New(sub), dir, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, "", false
		}
		dir = parent
	}
}

// Head resolves HEAD to a branch ref path and a commit id. A detached HEAD
// yields an empty branch; a symbolic ref that resolves nowhere yields a
// zero hash. Resolution tries the loose ref file first, then packed-refs,
// then info/refs.
func (d *DotGit) Head() (branch string, h plumbing.Hash, err error) {
	b, err := util.ReadFile(d.fs, headPath)
	if err != nil {
		return "", plumbing.ZeroHash, err
	}

	content := strings.TrimSpace(string(b))
	if !strings.HasPrefix(content, symrefPrefix) {
		return "", plumbing.NewHash(content), nil
	}

	branch = strings.TrimSpace(strings.TrimPrefix(content, symrefPrefix))

	if b, err := util.ReadFile(d.fs, branch); err == nil {
		return branch, plumbing.NewHash(strings.TrimSpace(string(b))), nil
	}

	for _, refs := range []string{packedRefsPath, infoRefsPath} {
		if h, ok := d.scanRefs(refs, branch); ok {
			return branch, h, nil
		}
	}

	return branch, plumbing.ZeroHash, nil
}

// scanRefs looks name up in a consolidated ref listing, `packed-refs` or
// `info/refs`, both of which hold `<hex-id><whitespace><ref-path>` lines.
// Comment lines and `^` peeled lines are skipped.
func (d *DotGit) scanRefs(path, name string) (plumbing.Hash, bool) {
	f, err := d.fs.Open(path)
	if err != nil {
		return plumbing.ZeroHash, false
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	for s.Scan() {
		line := s.Text()
		if line == "" || line[0] == '#' || line[0] == '^' {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) == 2 && fields[1] == name {
			return plumbing.NewHash(fields[0]), true
		}
	}

	return plumbing.ZeroHash, false
}

// Config opens the repository config file.
func (d *DotGit) Config() (billy.File, error) {
	return d.fs.Open(configPath)
}

// LooseObject opens the loose object file for h, named by splitting the id
// into its 2-hex directory and 38-hex file name.
func (d *DotGit) LooseObject(h plumbing.Hash) (billy.File, error) {
	hex := h.String()
	return d.fs.Open(d.fs.Join(objectsPath, hex[0:2], hex[2:]))
}

// PackIndexes lists the pack index files under objects/pack, sorted for a
// deterministic scan order.
func (d *DotGit) PackIndexes() ([]string, error) {
	dir := d.fs.Join(objectsPath, packPath)
	fis, err := d.fs.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var indexes []string
	for _, fi := range fis {
		if fi.IsDir() || !strings.HasSuffix(fi.Name(), suffixIdx) {
			continue
		}
		indexes = append(indexes, d.fs.Join(dir, fi.Name()))
	}

	sort.Strings(indexes)
	return indexes, nil
}

// PackFile returns the pack file path matching an index path.
func PackFile(idxPath string) string {
	return strings.TrimSuffix(idxPath, suffixIdx) + suffixPack
}

// Open opens an arbitrary file inside the .git directory, used for the
// pack and index paths returned by PackIndexes.
func (d *DotGit) Open(path string) (billy.File, error) {
	return d.fs.Open(path)
}
