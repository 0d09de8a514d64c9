// Package models defines server-side data models persisted in the database
// and the documents carried inside mirror archives.
package models

import "time"

// File describes server-side metadata for a binary artefact attached to a
// model. The bytes themselves are stored in object storage under Path.
type File struct {
	// ID is the file identifier on this instance.
	ID string `json:"id"`
	// ModelID links the file to its parent model.
	ModelID string `json:"modelId"`

	Name string `json:"name"`
	Mime string `json:"mime"`
	Size int64  `json:"size"`

	// Bucket and Path locate the blob in object storage.
	Bucket string `json:"bucket"`
	Path   string `json:"path"`

	// Complete is set only once the blob store acknowledged the full write.
	Complete bool `json:"complete"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
