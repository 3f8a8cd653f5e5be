package task

import (
	"fmt"
	"strings"

	"github.com/intorma/torma/internal/ids"
)

// IDIndex indexes task IDs for prefix matching and display. Matching is
// case-insensitive; Resolve returns the ID as stored.
type IDIndex struct {
	ids      []string
	original map[string]string
}

// NewIDIndex builds an IDIndex from a slice of tasks.
func NewIDIndex(tasks []Task) IDIndex {
	taskIDs := make([]string, 0, len(tasks))
	original := make(map[string]string, len(tasks))
	for _, t := range tasks {
		taskIDs = append(taskIDs, t.ID)
		if _, ok := original[strings.ToLower(t.ID)]; !ok {
			original[strings.ToLower(t.ID)] = t.ID
		}
	}
	return IDIndex{ids: ids.NormalizeUniqueIDs(taskIDs), original: original}
}

// Resolve returns the full task ID for a prefix.
func (index IDIndex) Resolve(prefix string) (string, error) {
	if prefix == "" {
		return "", &NotFoundError{ID: prefix}
	}

	match, found, ambiguous := ids.MatchPrefixNormalized(index.ids, prefix)
	if !found {
		return "", &NotFoundError{ID: prefix}
	}
	if ambiguous {
		return "", fmt.Errorf("%w: %s", ErrAmbiguousTaskIDPrefix, prefix)
	}

	if id, ok := index.original[match]; ok {
		return id, nil
	}
	return match, nil
}

// PrefixLengths returns the shortest unique prefix length for each ID.
func (index IDIndex) PrefixLengths() map[string]int {
	return ids.UniquePrefixLengthsNormalized(index.ids)
}
