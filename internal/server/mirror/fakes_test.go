package mirror

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/modelmirror/internal/common"
	"github.com/dmitrijs2005/modelmirror/internal/dbx"
	"github.com/dmitrijs2005/modelmirror/internal/server/models"
	"github.com/dmitrijs2005/modelmirror/internal/server/repositories/catalog"
	"github.com/dmitrijs2005/modelmirror/internal/server/repositories/files"
	"github.com/dmitrijs2005/modelmirror/internal/server/repositories/modelcards"
	"github.com/dmitrijs2005/modelmirror/internal/server/repositories/releases"
	"github.com/dmitrijs2005/modelmirror/internal/server/repositories/scans"
	"github.com/stretchr/testify/require"
)

// newTxDB returns a sqlmock database that accepts any number of empty
// transactions. The fake repositories below ignore the DBTX they get.
func newTxDB(t *testing.T, txs int) *sql.DB {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	for i := 0; i < txs; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}
	return db
}

// instance is the in-memory state of one deployment.
type instance struct {
	mu        sync.Mutex
	models    map[string]*models.Model
	revisions map[string]*models.ModelCardRevision
	releases  map[string]*models.Release
	files     map[string]*models.File
	scans     map[string][]*models.ScanResult

	modelsErr error
}

func newInstance() *instance {
	return &instance{
		models:    map[string]*models.Model{},
		revisions: map[string]*models.ModelCardRevision{},
		releases:  map[string]*models.Release{},
		files:     map[string]*models.File{},
		scans:     map[string][]*models.ScanResult{},
	}
}

func (in *instance) RunMigrations(context.Context, *sql.DB) error { return nil }
func (in *instance) Models(dbx.DBTX) catalog.Repository { return &fakeModels{in} }
func (in *instance) ModelCards(dbx.DBTX) modelcards.Repository { return &fakeModelCards{in} }
func (in *instance) Releases(dbx.DBTX) releases.Repository { return &fakeReleases{in} }
func (in *instance) Files(dbx.DBTX) files.Repository { return &fakeFiles{in} }
func (in *instance) Scans(dbx.DBTX) scans.Repository { return &fakeScans{in} }

func (in *instance) cleanScan(kind models.ArtefactKind, id string) {
	in.scans[string(kind)+"|"+id] = []*models.ScanResult{{ArtefactKind: kind, ArtefactID: id, Tool: "clamav", State: models.ScanComplete}}
}

type fakeModels struct{ in *instance }

func (f *fakeModels) Get(_ context.Context, id string) (*models.Model, error) {
	f.in.mu.Lock()
	defer f.in.mu.Unlock()
	if f.in.modelsErr != nil {
		return nil, f.in.modelsErr
	}
	m, ok := f.in.models[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeModels) Upsert(_ context.Context, m *models.Model) error {
	f.in.mu.Lock()
	defer f.in.mu.Unlock()
	cp := *m
	if old, ok := f.in.models[m.ID]; ok {
		cp.MirrorDestinationID = old.MirrorDestinationID
	}
	f.in.models[m.ID] = &cp
	return nil
}

type fakeModelCards struct{ in *instance }

func (f *fakeModelCards) Insert(_ context.Context, rev *models.ModelCardRevision) (bool, error) {
	f.in.mu.Lock()
	defer f.in.mu.Unlock()
	key := fmt.Sprintf("%s|%d", rev.ModelID, rev.Version)
	if _, ok := f.in.revisions[key]; ok {
		return false, nil
	}
	cp := *rev
	f.in.revisions[key] = &cp
	return true, nil
}

func (f *fakeModelCards) ListByModel(_ context.Context, modelID string) ([]*models.ModelCardRevision, error) {
	f.in.mu.Lock()
	defer f.in.mu.Unlock()
	var out []*models.ModelCardRevision
	for _, r := range f.in.revisions {
		if r.ModelID == modelID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

type fakeReleases struct{ in *instance }

func (f *fakeReleases) Insert(_ context.Context, rel *models.Release) (bool, error) {
	f.in.mu.Lock()
	defer f.in.mu.Unlock()
	key := rel.ModelID + "|" + rel.Semver
	if _, ok := f.in.releases[key]; ok {
		return false, nil
	}
	cp := *rel
	f.in.releases[key] = &cp
	return true, nil
}

func (f *fakeReleases) Get(_ context.Context, modelID, semver string) (*models.Release, error) {
	f.in.mu.Lock()
	defer f.in.mu.Unlock()
	rel, ok := f.in.releases[modelID+"|"+semver]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return rel, nil
}

func (f *fakeReleases) ListByModel(_ context.Context, modelID string) ([]*models.Release, error) {
	f.in.mu.Lock()
	defer f.in.mu.Unlock()
	var out []*models.Release
	for _, r := range f.in.releases {
		if r.ModelID == modelID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeFiles struct{ in *instance }

func (f *fakeFiles) Upsert(_ context.Context, file *models.File) error {
	f.in.mu.Lock()
	defer f.in.mu.Unlock()
	if old, ok := f.in.files[file.Path]; ok && old.Complete {
		return common.ErrVersionConflict
	}
	cp := *file
	f.in.files[file.Path] = &cp
	return nil
}

func (f *fakeFiles) GetByPath(_ context.Context, path string) (*models.File, error) {
	f.in.mu.Lock()
	defer f.in.mu.Unlock()
	file, ok := f.in.files[path]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *file
	return &cp, nil
}

func (f *fakeFiles) GetByID(_ context.Context, id string) (*models.File, error) {
	f.in.mu.Lock()
	defer f.in.mu.Unlock()
	for _, file := range f.in.files {
		if file.ID == id {
			cp := *file
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeFiles) MarkComplete(_ context.Context, path string, size int64) error {
	f.in.mu.Lock()
	defer f.in.mu.Unlock()
	file, ok := f.in.files[path]
	if !ok {
		return fmt.Errorf("wrong rows affected count: 0")
	}
	file.Complete = true
	file.Size = size
	return nil
}

type fakeScans struct{ in *instance }

func (f *fakeScans) Upsert(_ context.Context, s *models.ScanResult) error {
	f.in.mu.Lock()
	defer f.in.mu.Unlock()
	key := string(s.ArtefactKind) + "|" + s.ArtefactID
	f.in.scans[key] = append(f.in.scans[key], s)
	return nil
}

func (f *fakeScans) ListForArtefact(_ context.Context, kind models.ArtefactKind, id string) ([]*models.ScanResult, error) {
	f.in.mu.Lock()
	defer f.in.mu.Unlock()
	return f.in.scans[string(kind)+"|"+id], nil
}

// fakeStore is an in-memory blob.Store.
type fakeStore struct {
	mu       sync.Mutex
	bucket   string
	objects  map[string][]byte
	writes   int
	writeErr error
}

func newFakeStore(bucket string) *fakeStore {
	return &fakeStore{bucket: bucket, objects: map[string][]byte{}}
}

func (s *fakeStore) Bucket() string { return s.bucket }

func (s *fakeStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *fakeStore) WriteStream(_ context.Context, key string, r io.Reader) (int64, error) {
	s.mu.Lock()
	s.writes++
	werr := s.writeErr
	s.mu.Unlock()
	if werr != nil {
		return 0, werr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = b
	return int64(len(b)), nil
}

func (s *fakeStore) ReadStream(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *fakeStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.objects))
	for k := range s.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type storedManifest struct {
	raw       []byte
	mediaType string
}

// fakeRegistry is an in-memory registry.Registry recording every mutating
// call in order.
type fakeRegistry struct {
	mu        sync.Mutex
	blobs     map[string][]byte
	manifests map[string]storedManifest
	tags      map[string]string
	calls     []string
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		blobs:     map[string][]byte{},
		manifests: map[string]storedManifest{},
		tags:      map[string]string{},
	}
}

func sha256Digest(b []byte) string {
	sum := sha256.Sum256(b)
	return "sha256:" + hex.EncodeToString(sum[:])
}

func (r *fakeRegistry) PushBlob(_ context.Context, repo, digest string, size int64, rd io.Reader) error {
	b, err := io.ReadAll(rd)
	if err != nil {
		return err
	}
	if int64(len(b)) != size || sha256Digest(b) != digest {
		return fmt.Errorf("blob %s does not match its digest", digest)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blobs[repo+"@"+digest] = b
	r.calls = append(r.calls, "blob "+repo+"@"+digest)
	return nil
}

func (r *fakeRegistry) HasBlob(_ context.Context, repo, digest string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.blobs[repo+"@"+digest]
	return ok, nil
}

func (r *fakeRegistry) PushManifest(_ context.Context, repo string, raw []byte, mediaType string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := sha256Digest(raw)
	r.manifests[repo+"@"+d] = storedManifest{raw: raw, mediaType: mediaType}
	r.calls = append(r.calls, "manifest "+repo+"@"+d)
	return d, nil
}

func (r *fakeRegistry) UpdateTag(_ context.Context, repo, tag, digest string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.manifests[repo+"@"+digest]; !ok {
		return common.ErrorNotFound
	}
	r.tags[repo+":"+tag] = digest
	r.calls = append(r.calls, "tag "+repo+":"+tag)
	return nil
}

func (r *fakeRegistry) resolve(repo, reference string) (string, bool) {
	if strings.HasPrefix(reference, "sha256:") {
		return reference, true
	}
	d, ok := r.tags[repo+":"+reference]
	return d, ok
}

func (r *fakeRegistry) ManifestDigest(_ context.Context, repo, reference string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.resolve(repo, reference)
	if !ok {
		return "", common.ErrorNotFound
	}
	return d, nil
}

func (r *fakeRegistry) GetManifest(_ context.Context, repo, reference string) ([]byte, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.resolve(repo, reference)
	if !ok {
		return nil, "", common.ErrorNotFound
	}
	m, ok := r.manifests[repo+"@"+d]
	if !ok {
		return nil, "", common.ErrorNotFound
	}
	return m.raw, m.mediaType, nil
}

func (r *fakeRegistry) ReadBlob(_ context.Context, repo, digest string) (io.ReadCloser, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.blobs[repo+"@"+digest]
	if !ok {
		return nil, 0, common.ErrorNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), int64(len(b)), nil
}

func (r *fakeRegistry) callLog() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}
