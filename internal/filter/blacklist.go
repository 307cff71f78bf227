package filter

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"sync"

	"pixivdl/internal/config"
)

// Blacklists holds the caller-owned exclusion sets. It is read-only once built
// and safe to share between concurrent evaluations.
type Blacklists struct {
	Members map[string]struct{}
	Tags    []string
	Titles  []string

	once     sync.Once
	compiled []*regexp.Regexp
}

// NewBlacklists builds blacklists from plain lists.
func NewBlacklists(members, tags, titles []string) *Blacklists {
	set := make(map[string]struct{}, len(members))
	for _, m := range members {
		if m = strings.TrimSpace(m); m != "" {
			set[m] = struct{}{}
		}
	}
	return &Blacklists{Members: set, Tags: tags, Titles: titles}
}

// HasMember reports whether the member id is blacklisted.
func (b *Blacklists) HasMember(id string) bool {
	_, ok := b.Members[id]
	return ok
}

// InvalidTitlePatterns lists title entries that do not compile as regular expressions.
func (b *Blacklists) InvalidTitlePatterns() []string {
	var invalid []string
	for i, re := range b.titleRegexps() {
		if re == nil {
			invalid = append(invalid, b.Titles[i])
		}
	}
	return invalid
}

func (b *Blacklists) titleRegexps() []*regexp.Regexp {
	b.once.Do(func() {
		b.compiled = make([]*regexp.Regexp, len(b.Titles))
		for i, title := range b.Titles {
			if re, err := regexp.Compile(title); err == nil {
				b.compiled[i] = re
			}
		}
	})
	return b.compiled
}

// LoadList reads one entry per line, ignoring blank lines and '#' comments.
// A missing file yields an empty list.
func LoadList(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open list %s: %w", path, err)
	}
	defer file.Close()

	var entries []string
	scanner := bufio.NewScanner(file)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read list %s: %w", path, err)
	}
	return entries, nil
}

// Load reads the blacklist and suppress-tag files named in the configuration.
func Load(cfg *config.Config) (*Blacklists, []string, error) {
	members, err := LoadList(cfg.Paths.BlacklistMembersFile)
	if err != nil {
		return nil, nil, err
	}
	tags, err := LoadList(cfg.Paths.BlacklistTagsFile)
	if err != nil {
		return nil, nil, err
	}
	titles, err := LoadList(cfg.Paths.BlacklistTitlesFile)
	if err != nil {
		return nil, nil, err
	}
	suppress, err := LoadList(cfg.Paths.SuppressTagsFile)
	if err != nil {
		return nil, nil, err
	}
	return NewBlacklists(members, tags, titles), suppress, nil
}
