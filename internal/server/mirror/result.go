package mirror

import "github.com/dmitrijs2005/modelmirror/internal/server/models"

// resultBuilder accumulates entry outcomes. It is owned by the single
// goroutine consuming the archive.
type resultBuilder struct {
	res models.ImportResult
}

func newResultBuilder(meta models.ExportMetadata) *resultBuilder {
	return &resultBuilder{res: models.ImportResult{
		Metadata: meta,
		Files:    []models.FileImport{},
		Images:   []models.ImageImport{},
	}}
}

func (b *resultBuilder) setMetadata(meta models.ExportMetadata) {
	b.res.Metadata = meta
}

func (b *resultBuilder) add(o Outcome) {
	if o.ModelRecord {
		b.res.ModelRecords++
	}
	count(&b.res.Revisions, o.Revision)
	count(&b.res.Releases, o.Release)
	if o.File != nil {
		b.res.Files = append(b.res.Files, *o.File)
	}
	if o.Image != nil {
		b.res.Images = append(b.res.Images, *o.Image)
	}
}

func count(c *models.DocumentCounts, o documentOutcome) {
	switch o {
	case docImported:
		c.Imported++
	case docSkipped:
		c.Skipped++
	}
}

func (b *resultBuilder) build() *models.ImportResult {
	res := b.res
	return &res
}
