package domain

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NewID returns a fresh 24-hex object id.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// IsObjectID reports whether s is a well-formed 24-hex object id.
func IsObjectID(s string) bool {
	return primitive.IsValidObjectID(s)
}

// ShortID is the last six characters of an id, used in user-facing titles.
func ShortID(id string) string {
	if len(id) <= 6 {
		return id
	}
	return id[len(id)-6:]
}

// FilterObjectIDs keeps well-formed ids, dropping duplicates and blanks.
func FilterObjectIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if !IsObjectID(id) {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		valid = append(valid, id)
	}
	return valid
}
