// Package mirror moves a model between instances: the Exporter packs a
// model's documents, files and images into a tar.gz archive and the
// Dispatcher replays such an archive entry by entry into the local stores.
package mirror

import "strings"

// Archive layout.
const (
	MetadataEntry   = "metadata.json"
	DocumentsPrefix = "documents/"
	FilesPrefix     = "files/"
	ImagesPrefix    = "images/"

	ModelEntry      = DocumentsPrefix + "model.json"
	RevisionsPrefix = DocumentsPrefix + "revisions/"
	ReleasesPrefix  = DocumentsPrefix + "releases/"

	// PAXMime is the PAX record carrying a file entry's MIME type.
	PAXMime = "MODELMIRROR.mime"
)

// Kind is the category of an archive entry, decided by its path prefix.
type Kind int

const (
	KindUnknown Kind = iota
	KindMetadata
	KindDocument
	KindFile
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindMetadata:
		return "metadata"
	case KindDocument:
		return "document"
	case KindFile:
		return "file"
	case KindImage:
		return "image"
	default:
		return "unknown"
	}
}

// Classify maps an entry path to its Kind. Paths that match no known prefix
// are KindUnknown and get skipped, so newer exporters can add entry kinds.
func Classify(name string) Kind {
	name = cleanName(name)
	switch {
	case name == MetadataEntry:
		return KindMetadata
	case strings.HasPrefix(name, DocumentsPrefix):
		return KindDocument
	case strings.HasPrefix(name, FilesPrefix):
		return KindFile
	case strings.HasPrefix(name, ImagesPrefix):
		return KindImage
	default:
		return KindUnknown
	}
}

func cleanName(name string) string {
	return strings.TrimPrefix(name, "./")
}
