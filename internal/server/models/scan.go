package models

import "time"

// ArtefactKind tells which kind of artefact a scan result belongs to.
type ArtefactKind string

const (
	ArtefactFile  ArtefactKind = "file"
	ArtefactImage ArtefactKind = "image"
)

// ScanState is the lifecycle state of a single scan.
type ScanState string

const (
	ScanPending    ScanState = "pending"
	ScanInProgress ScanState = "in_progress"
	ScanComplete   ScanState = "complete"
	ScanError      ScanState = "error"
)

// ScanResult is the outcome of one scanning tool for one artefact.
type ScanResult struct {
	ArtefactKind ArtefactKind
	// ArtefactID is a file ID or the String() form of an ImageRef.
	ArtefactID string
	Tool       string
	State      ScanState
	IsInfected bool
	Viruses    []string
	UpdatedAt  time.Time
}

// Clean reports whether the artefact covered by results may leave the
// instance: at least one result, all complete, none infected.
func Clean(results []*ScanResult) bool {
	if len(results) == 0 {
		return false
	}
	for _, r := range results {
		if r.State != ScanComplete || r.IsInfected {
			return false
		}
	}
	return true
}
