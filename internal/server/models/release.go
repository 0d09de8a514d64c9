package models

import (
	"fmt"
	"time"
)

// ImageRef identifies a container image in the registry.
type ImageRef struct {
	Repository string `json:"repository"`
	Name       string `json:"name"`
	Tag        string `json:"tag"`
}

// String renders the reference as repository/name:tag.
func (r ImageRef) String() string {
	return fmt.Sprintf("%s/%s:%s", r.Repository, r.Name, r.Tag)
}

// Release groups the files and images published under one semver of a model.
type Release struct {
	ModelID   string     `json:"modelId"`
	Semver    string     `json:"semver"`
	Notes     string     `json:"notes"`
	FileIDs   []string   `json:"fileIds"`
	Images    []ImageRef `json:"images"`
	CreatedBy string     `json:"createdBy"`
	CreatedAt time.Time  `json:"createdAt"`
}
