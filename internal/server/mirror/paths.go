package mirror

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// fileNamespace seeds the name-based UUIDs of imported file records.
var fileNamespace = uuid.MustParse("6f1c1d2a-8e0b-4f55-9a43-3f5d7f1a9b20")

// DeriveFilePath returns the object key of a file imported into
// mirroredModelID from the source file sourceFileID. The same pair always
// yields the same key, which is what makes re-imports idempotent.
func DeriveFilePath(mirroredModelID, sourceFileID string) string {
	return path.Join("models", mirroredModelID, "files", sourceFileID)
}

// DeriveFileID returns the local record id for the same pair.
func DeriveFileID(mirroredModelID, sourceFileID string) string {
	return uuid.NewSHA1(fileNamespace, []byte(DeriveFilePath(mirroredModelID, sourceFileID))).String()
}

// ImageRepository is the registry repository path of an image.
func ImageRepository(modelID, name string) string {
	return modelID + "/" + name
}

func RevisionEntryName(version int64) string {
	return RevisionsPrefix + strconv.FormatInt(version, 10) + ".json"
}

func ReleaseEntryName(semver string) string {
	return ReleasesPrefix + semver + ".json"
}

func FileEntryName(fileID, name string) string {
	return FilesPrefix + fileID + "/" + name
}

func ImageEntryName(name, tag string) string {
	return ImagesPrefix + name + "/" + tag
}

// parseFileEntry splits files/<fileId>/<name>.
func parseFileEntry(entry string) (fileID, name string, err error) {
	rest := strings.TrimPrefix(cleanName(entry), FilesPrefix)
	fileID, name, ok := strings.Cut(rest, "/")
	if !ok || fileID == "" || name == "" {
		return "", "", fmt.Errorf("malformed file entry %q", entry)
	}
	return fileID, name, nil
}

// parseImageEntry splits images/<name...>/<tag>; name may itself contain
// slashes.
func parseImageEntry(entry string) (name, tag string, err error) {
	rest := strings.TrimPrefix(cleanName(entry), ImagesPrefix)
	i := strings.LastIndex(rest, "/")
	if i <= 0 || i == len(rest)-1 {
		return "", "", fmt.Errorf("malformed image entry %q", entry)
	}
	return rest[:i], rest[i+1:], nil
}

// parseDocumentKey returns the <key> of documents/<dir>/<key>.json.
func parseDocumentKey(entry, prefix string) (string, bool) {
	rest, ok := strings.CutPrefix(cleanName(entry), prefix)
	if !ok {
		return "", false
	}
	key, ok := strings.CutSuffix(rest, ".json")
	if !ok || key == "" || strings.Contains(key, "/") {
		return "", false
	}
	return key, true
}
