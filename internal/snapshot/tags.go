package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"

	"github.com/joshuxchn/qloo/internal/domain"
)

var errDocumentShape = errors.New("must be a JSON array of strings")

// EncodeTagSet serializes a tag set as a JSON array document.
func EncodeTagSet(tags domain.TagSet) (string, error) {
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fieldError("tags", "", err)
	}
	return string(data), nil
}

// DecodeTagSet parses a stored tag document. NULL or an empty document is
// the empty set. Legacy object documents such as {"vegan": true} decode to
// the keys whose value is true.
func DecodeTagSet(data []byte) (domain.TagSet, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return domain.TagSet{}, nil
	}

	var values []string
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &values); err != nil {
			return domain.TagSet{}, fieldError("tags", string(trimmed), errDocumentShape)
		}
	case '{':
		var legacy map[string]any
		if err := json.Unmarshal(trimmed, &legacy); err != nil {
			return domain.TagSet{}, fieldError("tags", string(trimmed), errDocumentShape)
		}
		for k, v := range legacy {
			if enabled, ok := v.(bool); ok && enabled {
				values = append(values, k)
			}
		}
		sort.Strings(values)
	default:
		return domain.TagSet{}, fieldError("tags", string(trimmed), errDocumentShape)
	}

	set, err := domain.NewTagSet(values...)
	if err != nil {
		return domain.TagSet{}, fieldError("tags", string(trimmed), err)
	}
	return set, nil
}
