// Package history owns the persistent artifact records and the
// orchestration of the submit/list/relabel/delete lifecycle.
package history

import (
	"errors"
	"time"
)

// ErrNotFound covers both an absent artifact and one owned by a different
// subject; callers cannot distinguish the two.
var ErrNotFound = errors.New("history: artifact not found")

// ErrEmptyLabel rejects a relabel to the empty string.
var ErrEmptyLabel = errors.New("history: label is required")

// SourceArtifact is the record for an originally uploaded (pre-colorization)
// image. The label lives here and is the only mutable field.
type SourceArtifact struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"ownerId"`
	StorageRef string    `json:"imageName"`
	Label      string    `json:"label"`
	CreatedAt  time.Time `json:"createdAt"`
}

// DerivedArtifact is the record for a colorized output, linked 1:1 to its
// SourceArtifact. Owner is always the source's owner.
type DerivedArtifact struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"ownerId"`
	StorageRef string    `json:"coloredImage"`
	SourceID   string    `json:"bwImage"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Entry is a derived artifact joined with its source, the unit returned by
// listing and lookup.
type Entry struct {
	Derived DerivedArtifact `json:"derived"`
	Source  SourceArtifact  `json:"source"`
}
