// Package common defines shared constants and sentinel errors used across
// the mirroring core. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/modelmirror/internal/server/models"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Domain errors. These are passed to callers unwrapped so that a policy
	// violation can be told apart from an infrastructure failure.
	ErrArchiveInconsistent = errors.New("archive is inconsistent")
	ErrScanNotClean        = errors.New("artefact scan is not clean")
	ErrDisclaimerRequired  = errors.New("export disclaimer must be agreed")
	ErrMirrorNotConfigured = errors.New("mirror destination is not configured")
	ErrMirrorMismatch      = errors.New("target model is mirrored from another source")
)

var domainErrors = []error{
	ErrArchiveInconsistent,
	ErrScanNotClean,
	ErrDisclaimerRequired,
	ErrMirrorNotConfigured,
	ErrMirrorMismatch,
}

// IsDomainError reports whether err is (or wraps) one of the recognized
// domain errors.
func IsDomainError(err error) bool {
	for _, d := range domainErrors {
		if errors.Is(err, d) {
			return true
		}
	}
	return false
}

// MirrorError is an infrastructure failure annotated with the export/import
// it belongs to and, when known, the archive entry being processed.
//
// It matches both ErrorInternal and the underlying cause with errors.Is.
type MirrorError struct {
	Metadata models.ExportMetadata
	Op       string
	Path     string
	Err      error
}

func (e *MirrorError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s (source=%s mirrored=%s exporter=%s): %v",
			e.Op, e.Metadata.SourceModelID, e.Metadata.MirroredModelID, e.Metadata.Exporter, e.Err)
	}
	return fmt.Sprintf("%s %q (source=%s mirrored=%s exporter=%s): %v",
		e.Op, e.Path, e.Metadata.SourceModelID, e.Metadata.MirroredModelID, e.Metadata.Exporter, e.Err)
}

func (e *MirrorError) Unwrap() []error {
	return []error{ErrorInternal, e.Err}
}

// Classify passes domain errors through unchanged and wraps anything else
// into a *MirrorError carrying meta, op and path.
func Classify(err error, meta models.ExportMetadata, op, path string) error {
	if err == nil {
		return nil
	}
	if IsDomainError(err) {
		return err
	}
	var me *MirrorError
	if errors.As(err, &me) {
		return err
	}
	return &MirrorError{Metadata: meta, Op: op, Path: path, Err: err}
}
