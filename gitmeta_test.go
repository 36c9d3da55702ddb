package gitmeta

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/suite"

	"github.com/gitmeta/gitmeta/plumbing"
)

type SuiteGitmeta struct {
	suite.Suite
	fs billy.Filesystem
}

func TestSuiteGitmeta(t *testing.T) {
	suite.Run(t, new(SuiteGitmeta))
}

func (s *SuiteGitmeta) SetupTest() {
	s.fs = memfs.New()
}

func (s *SuiteGitmeta) write(path, content string) {
	s.NoError(util.WriteFile(s.fs, path, []byte(content), 0o644))
}

const testConfig = "" +
	"[core]\n" +
	"\tbare = false\n" +
	"[remote \"origin\"]\n" +
	"\turl = https://example/repo.git\n" +
	"\tfetch = +refs/heads/*:refs/remotes/origin/*\n" +
	"[branch \"main\"]\n" +
	"\tremote = origin\n" +
	"\tmerge = refs/heads/main\n"

const testCommitBody = "" +
	"tree 52a266a58f2c028ad7de4dfd3a72fdf76b0d4e24\n" +
	"author A <a@x.com> 1700000000 +0000\n" +
	"committer A <a@x.com> 1700000000 +0000\n" +
	"\n" +
	"hello"

// writeLooseCommit stores body as a loose commit object and returns the id
// git would assign to it.
func (s *SuiteGitmeta) writeLooseCommit(repo, body string) plumbing.Hash {
	h := plumbing.ComputeHash(plumbing.CommitObject, []byte(body))

	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	fmt.Fprintf(w, "commit %d\x00%s", len(body), body)
	s.NoError(w.Close())

	hex := h.String()
	path := s.fs.Join(repo, ".git", "objects", hex[0:2], hex[2:])
	s.NoError(util.WriteFile(s.fs, path, buf.Bytes(), 0o644))

	return h
}

// writePackedCommit stores body in a synthetic single-object pack with its
// version 2 index and returns the object id.
func (s *SuiteGitmeta) writePackedCommit(repo, body string) plumbing.Hash {
	h := plumbing.ComputeHash(plumbing.CommitObject, []byte(body))

	pack := bytes.NewBuffer(nil)
	pack.WriteString("PACK")
	binary.Write(pack, binary.BigEndian, uint32(2))
	binary.Write(pack, binary.BigEndian, uint32(1))

	offset := uint32(pack.Len())
	size := len(body)
	pack.WriteByte(0x80 | byte(plumbing.CommitObject)<<4 | byte(size)&0x0f)
	pack.WriteByte(byte(size >> 4))
	zw := zlib.NewWriter(pack)
	zw.Write([]byte(body))
	s.NoError(zw.Close())

	idx := bytes.NewBuffer(nil)
	idx.Write([]byte{0xff, 0x74, 0x4f, 0x63})
	binary.Write(idx, binary.BigEndian, uint32(2))
	var cum uint32
	for bucket := 0; bucket < 256; bucket++ {
		if bucket == int(h[0]) {
			cum++
		}
		binary.Write(idx, binary.BigEndian, cum)
	}
	idx.Write(h.Bytes())
	binary.Write(idx, binary.BigEndian, uint32(0)) // crc
	binary.Write(idx, binary.BigEndian, offset)

	s.NoError(util.WriteFile(s.fs, s.fs.Join(repo, ".git/objects/pack/pack-test.pack"), pack.Bytes(), 0o644))
	s.NoError(util.WriteFile(s.fs, s.fs.Join(repo, ".git/objects/pack/pack-test.idx"), idx.Bytes(), 0o644))

	return h
}

func (s *SuiteGitmeta) TestGetNoRepository() {
	s.NoError(s.fs.MkdirAll("/elsewhere/deep", 0o755))

	info := GetFromFilesystem(s.fs, "/elsewhere/deep")
	s.Equal(RepositoryInfo{}, info)
}

func (s *SuiteGitmeta) TestGetLooseCommit() {
	h := s.writeLooseCommit("/repo", testCommitBody)
	s.write("/repo/.git/HEAD", "ref: refs/heads/main\n")
	s.write("/repo/.git/refs/heads/main", h.String()+"\n")
	s.write("/repo/.git/config", testConfig)

	info := GetFromFilesystem(s.fs, "/repo")

	s.Equal("/repo", info.SourceRoot)
	s.Equal("https://example/repo.git", info.RepositoryURL)
	s.Equal("main", info.Branch)
	s.Equal(h.String(), info.CommitSha)
	s.Equal("A", info.AuthorName)
	s.Equal("a@x.com", info.AuthorEmail)
	s.Equal(time.Unix(1700000000, 0).UTC(), info.AuthorDate)
	s.Equal("A", info.CommitterName)
	s.Equal("a@x.com", info.CommitterEmail)
	s.Equal(time.Unix(1700000000, 0).UTC(), info.CommitterDate)
	s.Equal("hello", info.CommitMessage)
	s.Equal("", info.CommitSignature)
}

func (s *SuiteGitmeta) TestGetFromNestedDirectory() {
	h := s.writeLooseCommit("/repo", testCommitBody)
	s.write("/repo/.git/HEAD", "ref: refs/heads/main\n")
	s.write("/repo/.git/refs/heads/main", h.String()+"\n")
	s.write("/repo/.git/config", testConfig)
	s.NoError(s.fs.MkdirAll("/repo/src/internal", 0o755))

	info := GetFromFilesystem(s.fs, "/repo/src/internal")
	s.Equal("/repo", info.SourceRoot)
	s.Equal(h.String(), info.CommitSha)
}

func (s *SuiteGitmeta) TestGetDetachedHead() {
	h := s.writeLooseCommit("/repo", testCommitBody)
	s.write("/repo/.git/HEAD", h.String()+"\n")
	s.write("/repo/.git/config", testConfig)

	info := GetFromFilesystem(s.fs, "/repo")

	s.Equal("", info.Branch)
	s.Equal(h.String(), info.CommitSha)
	s.Equal("hello", info.CommitMessage)
	// no branch known, the URL still resolves through origin
	s.Equal("https://example/repo.git", info.RepositoryURL)
}

func (s *SuiteGitmeta) TestGetPackedRef() {
	h := s.writeLooseCommit("/repo", testCommitBody)
	s.write("/repo/.git/HEAD", "ref: refs/heads/main\n")
	s.write("/repo/.git/info/refs", h.String()+"\trefs/heads/main\n")
	s.write("/repo/.git/config", testConfig)

	info := GetFromFilesystem(s.fs, "/repo")
	s.Equal("main", info.Branch)
	s.Equal(h.String(), info.CommitSha)
}

func (s *SuiteGitmeta) TestGetPackedCommit() {
	h := s.writePackedCommit("/repo", testCommitBody)
	s.write("/repo/.git/HEAD", "ref: refs/heads/main\n")
	s.write("/repo/.git/refs/heads/main", h.String()+"\n")
	s.write("/repo/.git/config", testConfig)

	info := GetFromFilesystem(s.fs, "/repo")

	s.Equal(h.String(), info.CommitSha)
	s.Equal("A", info.AuthorName)
	s.Equal("hello", info.CommitMessage)
}

func (s *SuiteGitmeta) TestGetUnresolvableRef() {
	s.write("/repo/.git/HEAD", "ref: refs/heads/gone\n")
	s.write("/repo/.git/config", testConfig)

	info := GetFromFilesystem(s.fs, "/repo")

	s.Equal("/repo", info.SourceRoot)
	s.Equal("gone", info.Branch)
	s.Equal("", info.CommitSha)
	s.Equal("", info.AuthorName)
	// URL resolution is independent of the commit lookup
	s.Equal("https://example/repo.git", info.RepositoryURL)
}

func (s *SuiteGitmeta) TestGetMissingObject() {
	s.write("/repo/.git/HEAD", "ref: refs/heads/main\n")
	s.write("/repo/.git/refs/heads/main", "6ecf0ef2c2dffb796033e5a02219af86ec6584e5\n")

	info := GetFromFilesystem(s.fs, "/repo")

	s.Equal("6ecf0ef2c2dffb796033e5a02219af86ec6584e5", info.CommitSha)
	s.Equal("", info.AuthorName)
	s.Equal("", info.CommitMessage)
	s.Equal("", info.RepositoryURL) // no config either
}

func (s *SuiteGitmeta) TestGetNoConfig() {
	h := s.writeLooseCommit("/repo", testCommitBody)
	s.write("/repo/.git/HEAD", "ref: refs/heads/main\n")
	s.write("/repo/.git/refs/heads/main", h.String()+"\n")

	info := GetFromFilesystem(s.fs, "/repo")
	s.Equal("", info.RepositoryURL)
	s.Equal("hello", info.CommitMessage)
}

func (s *SuiteGitmeta) TestGetSignedCommit() {
	body := "" +
		"tree 52a266a58f2c028ad7de4dfd3a72fdf76b0d4e24\n" +
		"author A <a@x.com> 1700000000 +0000\n" +
		"committer A <a@x.com> 1700000000 +0000\n" +
		"gpgsig -----BEGIN PGP SIGNATURE-----\n" +
		" =YQUf\n" +
		" -----END PGP SIGNATURE-----\n" +
		"\n" +
		"signed"
	h := s.writeLooseCommit("/repo", body)
	s.write("/repo/.git/HEAD", h.String()+"\n")

	info := GetFromFilesystem(s.fs, "/repo")
	s.Equal("-----BEGIN PGP SIGNATURE-----\n =YQUf\n -----END PGP SIGNATURE-----", info.CommitSignature)
	s.Equal("signed", info.CommitMessage)
}

// keep the fixture hashes honest: loose and packed helpers must agree on
// ids for the same body
func (s *SuiteGitmeta) TestFixtureHashesAgree() {
	loose := plumbing.ComputeHash(plumbing.CommitObject, []byte(testCommitBody))
	s.Equal(loose, s.writeLooseCommit("/a", testCommitBody))
	s.Equal(loose, s.writePackedCommit("/b", testCommitBody))
}
