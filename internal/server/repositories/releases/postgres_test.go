package releases

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/modelmirror/internal/common"
	"github.com/dmitrijs2005/modelmirror/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

var releaseColumns = []string{"model_id", "semver", "notes", "file_ids", "images", "created_by", "created_at"}

func TestInsert_SerializesCollections(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`(?s)INSERT INTO releases .*ON CONFLICT \(model_id, semver\) DO NOTHING`).
		WithArgs("m2", "1.0.0", "first", `["f1"]`, `[{"repository":"m2","name":"app","tag":"v1"}]`, "alice").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.Insert(context.Background(), &models.Release{
		ModelID:   "m2",
		Semver:    "1.0.0",
		Notes:     "first",
		FileIDs:   []string{"f1"},
		Images:    []models.ImageRef{{Repository: "m2", Name: "app", Tag: "v1"}},
		CreatedBy: "alice",
	})
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_NilCollections(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`INSERT INTO releases`).
		WithArgs("m2", "1.0.0", "", `[]`, `[]`, "").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Insert(context.Background(), &models.Release{ModelID: "m2", Semver: "1.0.0"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGet(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT .* FROM releases WHERE model_id=\$1 AND semver=\$2`).
		WithArgs("m1", "1.0.0").
		WillReturnRows(sqlmock.NewRows(releaseColumns).
			AddRow("m1", "1.0.0", "n", []byte(`["a","b"]`), []byte(`[{"repository":"m1","name":"app","tag":"v1"}]`), "alice", time.Now()))

	rel, err := repo.Get(context.Background(), "m1", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, rel.FileIDs)
	require.Len(t, rel.Images, 1)
	assert.Equal(t, "m1/app:v1", rel.Images[0].String())
}

func TestGet_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT .* FROM releases`).WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "m1", "9.9.9")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestListByModel(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT .* FROM releases WHERE model_id=\$1 ORDER BY created_at`).
		WithArgs("m1").
		WillReturnRows(sqlmock.NewRows(releaseColumns).
			AddRow("m1", "1.0.0", "", []byte(`[]`), []byte(`[]`), "a", time.Now()).
			AddRow("m1", "1.1.0", "", []byte(`["f"]`), []byte(`[]`), "a", time.Now()))

	rels, err := repo.ListByModel(context.Background(), "m1")
	require.NoError(t, err)
	require.Len(t, rels, 2)
	assert.Equal(t, "1.1.0", rels[1].Semver)
}
