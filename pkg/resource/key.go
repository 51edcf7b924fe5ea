package resource

import (
	"strings"
)

// PathSeparator separates key segments in their string form
const PathSeparator = "/"

// Key hierarchical position of a folder or resource in the source tree
type Key []string

// ParseKey parses "/a/b" into a key, empty segments are dropped
func ParseKey(s string) Key {
	parts := strings.Split(s, PathSeparator)
	key := make(Key, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			key = append(key, part)
		}
	}
	return key
}

func (k Key) String() string {
	return PathSeparator + strings.Join(k, PathSeparator)
}

// IsRoot reports whether k is the empty root key
func (k Key) IsRoot() bool {
	return len(k) == 0
}

// Child returns a new key with name appended
func (k Key) Child(name string) Key {
	child := make(Key, len(k), len(k)+1)
	copy(child, k)
	return append(child, name)
}

// Parent returns the enclosing key, false for the root
func (k Key) Parent() (Key, bool) {
	if k.IsRoot() {
		return nil, false
	}
	return k[:len(k)-1], true
}

// Prefixes returns k and all its prefixes, longest first, ending with the root
func (k Key) Prefixes() []Key {
	prefixes := make([]Key, 0, len(k)+1)
	for i := len(k); i >= 0; i-- {
		prefixes = append(prefixes, k[:i])
	}
	return prefixes
}
