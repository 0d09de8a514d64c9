package mirror

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/modelmirror/internal/archive"
	"github.com/dmitrijs2005/modelmirror/internal/common"
	"github.com/dmitrijs2005/modelmirror/internal/filex"
	"github.com/dmitrijs2005/modelmirror/internal/logging"
	"github.com/dmitrijs2005/modelmirror/internal/server/models"
	"github.com/dmitrijs2005/modelmirror/internal/server/registry"
	"github.com/dmitrijs2005/modelmirror/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/modelmirror/internal/server/storage/blob"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ExportRequest selects what to export.
type ExportRequest struct {
	ModelID          string
	ReleaseSemvers   []string
	DisclaimerAgreed bool
	Exporter         string
}

// Exporter assembles export archives and uploads them to the export bucket.
type Exporter struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	files       blob.Store
	exports     blob.Store
	registry    registry.Registry
	spoolDir    string
	logger      logging.Logger

	now func() time.Time
}

func NewExporter(db *sql.DB, rm repomanager.RepositoryManager, files, exports blob.Store,
	reg registry.Registry, spoolDir string, logger logging.Logger) *Exporter {
	return &Exporter{
		db:          db,
		repomanager: rm,
		files:       files,
		exports:     exports,
		registry:    reg,
		spoolDir:    spoolDir,
		logger:      logger,
		now:         time.Now,
	}
}

// exportPlan is everything an export will write, collected and vetted
// before the archive is opened.
type exportPlan struct {
	meta      models.ExportMetadata
	model     *models.Model
	revisions []*models.ModelCardRevision
	releases  []*models.Release
	files     []*models.File
	images    []models.ImageRef
}

// Export writes a new archive for req and returns its key in the export
// bucket. Every policy check runs before the first byte is uploaded, so a
// refused export leaves nothing behind. Earlier archives are never touched.
func (e *Exporter) Export(ctx context.Context, req ExportRequest) (string, error) {
	if !req.DisclaimerAgreed {
		return "", common.ErrDisclaimerRequired
	}

	model, err := e.repomanager.Models(e.db).Get(ctx, req.ModelID)
	if err != nil {
		return "", common.Classify(err, models.ExportMetadata{SourceModelID: req.ModelID, Exporter: req.Exporter}, "export", "")
	}
	if model.MirrorDestinationID == "" {
		return "", fmt.Errorf("model %s: %w", model.ID, common.ErrMirrorNotConfigured)
	}

	meta := models.ExportMetadata{
		SourceModelID:   model.ID,
		MirroredModelID: model.MirrorDestinationID,
		Exporter:        req.Exporter,
	}
	log := e.logger.With(meta.LogArgs()...)

	plan, err := e.collect(ctx, meta, model, req.ReleaseSemvers)
	if err != nil {
		err = common.Classify(err, meta, "export", "")
		log.Warn(ctx, "export refused", "error", err)
		return "", err
	}

	key := fmt.Sprintf("exports/%s/%s-%s.tar.gz", model.ID, e.now().UTC().Format("20060102T150405Z"), uuid.NewString())

	pr, pw := io.Pipe()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := e.writeArchive(gctx, pw, plan)
		pw.CloseWithError(err)
		return err
	})
	g.Go(func() error {
		_, err := e.exports.WriteStream(gctx, key, pr)
		pr.CloseWithError(err)
		return err
	})

	if err := g.Wait(); err != nil {
		err = common.Classify(err, meta, "export", key)
		log.Error(ctx, "export failed", "key", key, "error", err)
		return "", err
	}

	log.Info(ctx, "export finished",
		"key", key,
		"revisions", len(plan.revisions),
		"releases", len(plan.releases),
		"files", len(plan.files),
		"images", len(plan.images))
	return key, nil
}

func (e *Exporter) collect(ctx context.Context, meta models.ExportMetadata, model *models.Model, semvers []string) (*exportPlan, error) {
	plan := &exportPlan{meta: meta, model: model}

	revisions, err := e.repomanager.ModelCards(e.db).ListByModel(ctx, model.ID)
	if err != nil {
		return nil, err
	}
	plan.revisions = revisions

	seenRelease := map[string]bool{}
	seenFile := map[string]bool{}
	seenImage := map[string]bool{}

	for _, semver := range semvers {
		if seenRelease[semver] {
			continue
		}
		seenRelease[semver] = true

		rel, err := e.repomanager.Releases(e.db).Get(ctx, model.ID, semver)
		if err != nil {
			return nil, fmt.Errorf("release %s: %w", semver, err)
		}
		plan.releases = append(plan.releases, rel)

		for _, id := range rel.FileIDs {
			if seenFile[id] {
				continue
			}
			seenFile[id] = true

			f, err := e.repomanager.Files(e.db).GetByID(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("file %s of release %s: %w", id, semver, err)
			}
			if f.ModelID != model.ID || !f.Complete {
				return nil, fmt.Errorf("file %s of release %s is not an uploaded file of model %s: %w",
					id, semver, model.ID, common.ErrArchiveInconsistent)
			}
			plan.files = append(plan.files, f)
		}
		for _, img := range rel.Images {
			if seenImage[img.String()] {
				continue
			}
			seenImage[img.String()] = true
			if img.Repository != model.ID {
				return nil, fmt.Errorf("image %s of release %s is not an image of model %s: %w",
					img, semver, model.ID, common.ErrArchiveInconsistent)
			}
			plan.images = append(plan.images, img)
		}
	}

	scans := e.repomanager.Scans(e.db)
	for _, f := range plan.files {
		if err := checkScans(ctx, scans.ListForArtefact, models.ArtefactFile, f.ID); err != nil {
			return nil, err
		}
	}
	for _, img := range plan.images {
		if err := checkScans(ctx, scans.ListForArtefact, models.ArtefactImage, img.String()); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

func checkScans(ctx context.Context,
	list func(context.Context, models.ArtefactKind, string) ([]*models.ScanResult, error),
	kind models.ArtefactKind, id string) error {
	results, err := list(ctx, kind, id)
	if err != nil {
		return err
	}
	if !models.Clean(results) {
		return fmt.Errorf("%s %s: %w", kind, id, common.ErrScanNotClean)
	}
	return nil
}

func (e *Exporter) writeArchive(ctx context.Context, w io.Writer, plan *exportPlan) error {
	aw := archive.NewWriter(w)

	if err := aw.WriteJSON(MetadataEntry, plan.meta); err != nil {
		return err
	}
	if err := aw.WriteJSON(ModelEntry, plan.model); err != nil {
		return err
	}
	for _, rev := range plan.revisions {
		if err := aw.WriteJSON(RevisionEntryName(rev.Version), rev); err != nil {
			return err
		}
	}
	for _, rel := range plan.releases {
		if err := aw.WriteJSON(ReleaseEntryName(rel.Semver), rel); err != nil {
			return err
		}
	}
	for _, f := range plan.files {
		if err := e.writeFile(ctx, aw, f); err != nil {
			return err
		}
	}
	for _, img := range plan.images {
		if err := e.writeImage(ctx, aw, img); err != nil {
			return err
		}
	}
	return aw.Close()
}

func (e *Exporter) writeFile(ctx context.Context, aw *archive.Writer, f *models.File) error {
	rc, err := e.files.ReadStream(ctx, f.Path)
	if err != nil {
		return fmt.Errorf("read %s: %w", f.Path, err)
	}
	defer rc.Close()

	mime := f.Mime
	if mime == "" {
		mime = common.DefaultMimeType
	}
	return aw.WriteStream(FileEntryName(f.ID, f.Name), f.Size, rc, map[string]string{PAXMime: mime})
}

// writeImage spools the bundle to disk first: a tar header needs the entry
// size up front.
func (e *Exporter) writeImage(ctx context.Context, aw *archive.Writer, img models.ImageRef) error {
	spool, err := filex.NewSpoolFile(e.spoolDir, "image-*.tar.gz")
	if err != nil {
		return err
	}
	defer spool.Close()

	if err := WriteBundle(ctx, e.registry, ImageRepository(img.Repository, img.Name), img.Tag, spool); err != nil {
		return fmt.Errorf("bundle %s: %w", img, err)
	}
	size, err := spool.Rewind()
	if err != nil {
		return err
	}
	return aw.WriteStream(ImageEntryName(img.Name, img.Tag), size, spool, nil)
}
