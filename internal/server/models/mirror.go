package models

// ExportMetadata identifies one export/import operation. It is created at
// the start of the call, passed by value, and discarded at its end.
type ExportMetadata struct {
	SourceModelID   string `json:"sourceModelId"`
	MirroredModelID string `json:"mirroredModelId"`
	Exporter        string `json:"exporter"`
}

// LogArgs returns the envelope as slog-style key/value pairs.
func (m ExportMetadata) LogArgs() []any {
	return []any{
		"source_model_id", m.SourceModelID,
		"mirrored_model_id", m.MirroredModelID,
		"exporter", m.Exporter,
	}
}

// DocumentCounts tallies append-only documents written or found present.
type DocumentCounts struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// FileImport is the outcome of one file entry.
type FileImport struct {
	SourcePath string `json:"sourcePath"`
	NewPath    string `json:"newPath"`
	Size       int64  `json:"size"`
	Skipped    bool   `json:"skipped"`
}

// ImageImport is the outcome of one image entry.
type ImageImport struct {
	Ref    ImageRef `json:"ref"`
	Digest string   `json:"digest"`
	Blobs  int      `json:"blobs"`
}

// ImportResult aggregates the outcome of every recognized archive entry.
type ImportResult struct {
	Metadata     ExportMetadata `json:"metadata"`
	ModelRecords int            `json:"modelRecords"`
	Revisions    DocumentCounts `json:"revisions"`
	Releases     DocumentCounts `json:"releases"`
	Files        []FileImport   `json:"files"`
	Images       []ImageImport  `json:"images"`
}
