package domain

import (
	"encoding/json"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxTagLength is the longest tag, in runes, a TagSet accepts.
const MaxTagLength = 64

// TagSet is a set of normalized preference tags such as dietary restrictions,
// allergies or cuisines. Tags are trimmed and lower-cased; the set is kept
// sorted and free of duplicates. The zero value is an empty set.
type TagSet struct {
	tags []string
}

// NewTagSet builds a TagSet from raw values. Empty values after trimming are
// skipped; values that are too long or contain control characters are
// rejected.
func NewTagSet(values ...string) (TagSet, error) {
	seen := make(map[string]struct{}, len(values))
	tags := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		tag, err := NormalizeTag(v)
		if err != nil {
			return TagSet{}, err
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		return TagSet{}, nil
	}
	sort.Strings(tags)
	return TagSet{tags: tags}, nil
}

// MustTagSet is NewTagSet for literals known to be valid. It panics on error.
func MustTagSet(values ...string) TagSet {
	s, err := NewTagSet(values...)
	if err != nil {
		// ALLOW-PANIC: only used with constant input
		panic(err)
	}
	return s
}

// NormalizeTag returns the canonical form of a single tag.
func NormalizeTag(raw string) (string, error) {
	tag := strings.ToLower(strings.TrimSpace(raw))
	if tag == "" {
		return "", NewValidationError("tag", "cannot be empty", ErrValidation)
	}
	if utf8.RuneCountInString(tag) > MaxTagLength {
		return "", NewValidationError("tag", "is longer than 64 characters", ErrValidation)
	}
	for _, r := range tag {
		if unicode.IsControl(r) {
			return "", NewValidationError("tag", "contains control characters", ErrValidation)
		}
	}
	return tag, nil
}

// Values returns the tags in sorted order. The slice is a copy.
func (s TagSet) Values() []string {
	out := make([]string, len(s.tags))
	copy(out, s.tags)
	return out
}

// Len returns the number of tags.
func (s TagSet) Len() int {
	return len(s.tags)
}

// Contains reports whether the normalized form of tag is in the set.
func (s TagSet) Contains(tag string) bool {
	norm, err := NormalizeTag(tag)
	if err != nil {
		return false
	}
	i := sort.SearchStrings(s.tags, norm)
	return i < len(s.tags) && s.tags[i] == norm
}

// With returns a new set that also contains the given tags.
func (s TagSet) With(values ...string) (TagSet, error) {
	return NewTagSet(append(s.Values(), values...)...)
}

// MarshalJSON encodes the set as a JSON array; an empty set is [].
func (s TagSet) MarshalJSON() ([]byte, error) {
	if len(s.tags) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(s.tags)
}

// UnmarshalJSON decodes a JSON array of strings. null yields the empty set.
func (s *TagSet) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	set, err := NewTagSet(raw...)
	if err != nil {
		return err
	}
	*s = set
	return nil
}
