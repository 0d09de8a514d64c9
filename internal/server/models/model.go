package models

import "time"

// Model is the top-level governed entity.
//
// A model with a non-empty MirrorSourceID was created by importing an archive
// from another instance. MirrorDestinationID names the model on the receiving
// instance that exports of this model are addressed to.
type Model struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Visibility  string `json:"visibility"`

	MirrorSourceID      string `json:"-"`
	MirrorDestinationID string `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Mirrored reports whether the model was imported from another instance.
func (m *Model) Mirrored() bool {
	return m.MirrorSourceID != ""
}
