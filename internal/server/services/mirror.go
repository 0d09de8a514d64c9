// Package services exposes the mirroring operations to callers (CLI, route
// handlers) on top of the mirror package and the configured stores.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/modelmirror/internal/common"
	"github.com/dmitrijs2005/modelmirror/internal/logging"
	"github.com/dmitrijs2005/modelmirror/internal/netx"
	sc "github.com/dmitrijs2005/modelmirror/internal/server/config"
	"github.com/dmitrijs2005/modelmirror/internal/server/mirror"
	"github.com/dmitrijs2005/modelmirror/internal/server/models"
	"github.com/dmitrijs2005/modelmirror/internal/server/registry"
	"github.com/dmitrijs2005/modelmirror/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/modelmirror/internal/server/storage/blob"
)

// openURL is a seam for tests.
var openURL = netx.OpenPresignedURL

type MirrorService struct {
	exporter   *mirror.Exporter
	dispatcher *mirror.Dispatcher
	exports    blob.Store
	config     *sc.Config
	logger     logging.Logger
}

// NewMirrorService wires the exporter and the import dispatcher. files holds
// model file artefacts, exports receives and serves export archives.
func NewMirrorService(db *sql.DB, rm repomanager.RepositoryManager, files, exports blob.Store,
	reg registry.Registry, config *sc.Config, logger logging.Logger) *MirrorService {
	documents := mirror.NewDocumentImporter(db, rm, logger)
	return &MirrorService{
		exporter: mirror.NewExporter(db, rm, files, exports, reg, config.SpoolDir, logger),
		dispatcher: mirror.NewDispatcher(logger, documents,
			documents,
			mirror.NewFileImporter(db, rm, files, logger),
			mirror.NewImageImporter(reg, logger)),
		exports: exports,
		config:  config,
		logger:  logger,
	}
}

// ExportModel exports the model with the given releases and returns the
// archive key in the export bucket. An empty exporter is recorded as this
// instance.
func (s *MirrorService) ExportModel(ctx context.Context, exporter, modelID string, semvers []string, disclaimerAgreed bool) (string, error) {
	if exporter == "" {
		exporter = s.config.InstanceID
	}
	return s.exporter.Export(ctx, mirror.ExportRequest{
		ModelID:          modelID,
		ReleaseSemvers:   semvers,
		DisclaimerAgreed: disclaimerAgreed,
		Exporter:         exporter,
	})
}

// ImportArchive replays the archive read from r into meta.MirroredModelID.
func (s *MirrorService) ImportArchive(ctx context.Context, r io.Reader, meta models.ExportMetadata) (*models.ImportResult, error) {
	if err := validateEnvelope(meta); err != nil {
		return nil, err
	}
	return s.dispatcher.Import(ctx, r, meta)
}

// StartImport is ImportArchive running in the background.
func (s *MirrorService) StartImport(ctx context.Context, r io.Reader, meta models.ExportMetadata) (*mirror.ImportTask, error) {
	if err := validateEnvelope(meta); err != nil {
		return nil, err
	}
	return s.dispatcher.Start(ctx, r, meta), nil
}

// ImportFromStore imports the archive stored at location in the export
// bucket.
func (s *MirrorService) ImportFromStore(ctx context.Context, location string, meta models.ExportMetadata) (*models.ImportResult, error) {
	if err := validateEnvelope(meta); err != nil {
		return nil, err
	}
	rc, err := s.exports.ReadStream(ctx, location)
	if err != nil {
		return nil, common.Classify(fmt.Errorf("open %s: %w", location, err), meta, "import", location)
	}
	defer rc.Close()

	s.logger.Info(ctx, "importing stored archive", append(meta.LogArgs(), "location", location)...)
	return s.dispatcher.Import(ctx, rc, meta)
}

// ShareExport returns a time-limited download URL for an export archive
// when the export store supports presigning.
func (s *MirrorService) ShareExport(ctx context.Context, key string, ttl time.Duration) (string, error) {
	p, ok := s.exports.(blob.Presigner)
	if !ok {
		return "", fmt.Errorf("export store %s cannot presign URLs", s.exports.Bucket())
	}
	return p.PresignGet(ctx, key, ttl)
}

// ImportFromURL streams the archive behind a presigned URL into the import.
func (s *MirrorService) ImportFromURL(ctx context.Context, url string, meta models.ExportMetadata) (*models.ImportResult, error) {
	if err := validateEnvelope(meta); err != nil {
		return nil, err
	}
	rc, err := openURL(ctx, url)
	if err != nil {
		return nil, common.Classify(err, meta, "import", "")
	}
	defer rc.Close()

	s.logger.Info(ctx, "importing archive from url", meta.LogArgs()...)
	return s.dispatcher.Import(ctx, rc, meta)
}

func validateEnvelope(meta models.ExportMetadata) error {
	if meta.SourceModelID == "" || meta.MirroredModelID == "" {
		return fmt.Errorf("source and mirrored model ids are required: %w", common.ErrMirrorNotConfigured)
	}
	return nil
}
