package models

import (
	"encoding/json"
	"time"
)

// ModelCardRevision is an immutable snapshot of a model's metadata.
// Revisions are keyed by (ModelID, Version) and never overwritten.
type ModelCardRevision struct {
	ModelID   string          `json:"modelId"`
	SchemaID  string          `json:"schemaId"`
	Version   int64           `json:"version"`
	Metadata  json.RawMessage `json:"metadata"`
	CreatedBy string          `json:"createdBy"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
