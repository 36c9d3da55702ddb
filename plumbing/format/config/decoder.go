package config

import (
	"bufio"
	"io"
	"strings"
)

// A Decoder reads and decodes config files from an input stream.
type Decoder struct {
	io.Reader
}

// NewDecoder returns a new decoder that reads from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r}
}

// Decode reads the whole config from its input and appends the entries it
// finds to config.
//
// The scan is deliberately narrow: a line is either a section header of the
// exact shape `[<section> "<name>"]`, a tab-indented `key = value` option
// belonging to the current entry, or ignored. The separator is the literal
// ` = `; keys other than url, remote and merge are dropped.
func (d *Decoder) Decode(config *Config) error {
	s := bufio.NewScanner(d)

	var current *Entry
	for s.Scan() {
		line := s.Text()

		if section, name, ok := parseSectionLine(line); ok {
			if current != nil {
				config.Entries = append(config.Entries, current)
			}
			current = &Entry{Section: section, Name: name}
			continue
		}

		if current == nil || !strings.HasPrefix(line, "\t") {
			continue
		}

		key, value, ok := strings.Cut(line[1:], " = ")
		if !ok {
			continue
		}

		switch key {
		case "url":
			current.URL = value
		case "remote":
			current.Remote = value
		case "merge":
			current.Merge = value
		}
	}

	if err := s.Err(); err != nil {
		return err
	}

	if current != nil {
		config.Entries = append(config.Entries, current)
	}

	return nil
}

// parseSectionLine matches `[<section> "<name>"]` and nothing looser.
func parseSectionLine(line string) (section, name string, ok bool) {
	if !strings.HasPrefix(line, "[") || !strings.HasSuffix(line, "\"]") {
		return "", "", false
	}

	section, name, ok = strings.Cut(line[1:len(line)-2], " \"")
	if !ok || section == "" {
		return "", "", false
	}

	return section, name, true
}
