// Package config implements decoding of the git config text format, limited
// to the branch and remote sections a repository URL lookup needs.
package config

const (
	// BranchSection is the section type of branch entries.
	BranchSection = "branch"
	// RemoteSection is the section type of remote entries.
	RemoteSection = "remote"

	// DefaultRemote is the remote assumed when a branch has no entry of
	// its own, or when no branch is known at all.
	DefaultRemote = "origin"
)

// New creates a new config instance.
func New() *Config {
	return &Config{}
}

// Config contains the branch and remote entries of a config file, in file
// order.
type Config struct {
	Entries []*Entry
}

// Entry is a single `[<section> "<name>"]` block. Only the url, remote and
// merge options are retained; any other option is dropped during decoding.
type Entry struct {
	Section string
	Name    string

	URL    string
	Remote string
	Merge  string
}

// Branch returns the branch entry whose merge ref equals merge, or nil.
func (c *Config) Branch(merge string) *Entry {
	for _, e := range c.Entries {
		if e.Section == BranchSection && e.Merge == merge {
			return e
		}
	}

	return nil
}

// Remote returns the remote entry with the given name, or nil.
func (c *Config) Remote(name string) *Entry {
	for _, e := range c.Entries {
		if e.Section == RemoteSection && e.Name == name {
			return e
		}
	}

	return nil
}

// RemoteURL resolves the URL the given branch ref is fetched from: the
// branch entry names a remote, defaulting to origin, and the remote entry
// carries the URL. A missing match yields the empty string, not an error.
func (c *Config) RemoteURL(merge string) string {
	remote := DefaultRemote
	if b := c.Branch(merge); b != nil && b.Remote != "" {
		remote = b.Remote
	}

	r := c.Remote(remote)
	if r == nil {
		return ""
	}

	return r.URL
}
