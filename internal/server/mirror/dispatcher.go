package mirror

import (
	"archive/tar"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dmitrijs2005/modelmirror/internal/archive"
	"github.com/dmitrijs2005/modelmirror/internal/common"
	"github.com/dmitrijs2005/modelmirror/internal/logging"
	"github.com/dmitrijs2005/modelmirror/internal/server/models"
)

// Dispatcher reads an archive sequentially and hands every entry to the
// importer registered for its Kind.
type Dispatcher struct {
	importers map[Kind]Importer
	targets   TargetChecker
	logger    logging.Logger
}

// NewDispatcher builds a dispatcher. targets is consulted once per import,
// before the first entry that writes anything.
func NewDispatcher(logger logging.Logger, targets TargetChecker, documents, files, images Importer) *Dispatcher {
	return &Dispatcher{
		targets: targets,
		importers: map[Kind]Importer{
			KindDocument: documents,
			KindFile:     files,
			KindImage:    images,
		},
		logger: logger,
	}
}

// Start imports r in a background goroutine. r is read until the end of the
// archive, an error, or cancellation of ctx, which closes r when it is an
// io.Closer.
func (d *Dispatcher) Start(ctx context.Context, r io.Reader, meta models.ExportMetadata) *ImportTask {
	task := newImportTask()
	go func() {
		res, err := d.run(ctx, r, meta, task.setCurrent)
		task.settle(res, err)
	}()
	return task
}

// Import is the blocking form of Start.
func (d *Dispatcher) Import(ctx context.Context, r io.Reader, meta models.ExportMetadata) (*models.ImportResult, error) {
	return d.run(ctx, r, meta, func(string) {})
}

func (d *Dispatcher) run(ctx context.Context, r io.Reader, meta models.ExportMetadata, onEntry func(string)) (*models.ImportResult, error) {
	log := d.logger.With(meta.LogArgs()...)
	log.Info(ctx, "import started")

	results := newResultBuilder(meta)
	current := ""
	targetChecked := false

	cr := archive.NewContextReader(ctx, r)
	defer cr.Release()

	err := archive.Walk(cr, func(hdr *tar.Header, payload io.Reader) error {
		current = hdr.Name
		onEntry(current)

		kind := Classify(hdr.Name)
		switch kind {
		case KindUnknown:
			log.Debug(ctx, "skipping unknown archive entry", "path", hdr.Name)
			current = ""
			return nil
		case KindMetadata:
			m, err := checkEnvelope(meta, payload)
			if err != nil {
				return err
			}
			meta = m
			log = d.logger.With(meta.LogArgs()...)
			results.setMetadata(meta)
			current = ""
			return nil
		}

		if !targetChecked {
			if err := d.targets.CheckTarget(ctx, meta); err != nil {
				return err
			}
			targetChecked = true
		}

		out, err := d.importers[kind].ProcessEntry(ctx, meta, hdr, payload)
		if err != nil {
			return err
		}
		results.add(out)
		log.Debug(ctx, "archive entry imported", "path", hdr.Name, "kind", kind.String())
		current = ""
		return nil
	})
	if err != nil {
		err = common.Classify(err, meta, "import", current)
		log.Error(ctx, "import failed", "path", current, "error", err)
		return nil, err
	}

	res := results.build()
	log.Info(ctx, "import finished",
		"model_records", res.ModelRecords,
		"revisions", res.Revisions.Imported,
		"releases", res.Releases.Imported,
		"files", len(res.Files),
		"images", len(res.Images))
	return res, nil
}

// checkEnvelope compares the archive's own metadata.json with the caller's
// envelope. The source model must match; an empty exporter is taken from
// the archive.
func checkEnvelope(meta models.ExportMetadata, payload io.Reader) (models.ExportMetadata, error) {
	var archived models.ExportMetadata
	if err := json.NewDecoder(payload).Decode(&archived); err != nil {
		return meta, fmt.Errorf("%s: %w", MetadataEntry, common.ErrArchiveInconsistent)
	}
	if archived.SourceModelID != meta.SourceModelID {
		return meta, fmt.Errorf("archive exported from model %q, expected %q: %w",
			archived.SourceModelID, meta.SourceModelID, common.ErrArchiveInconsistent)
	}
	if meta.Exporter == "" {
		meta.Exporter = archived.Exporter
	}
	return meta, nil
}
