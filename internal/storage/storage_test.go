package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redroostertech/slop-ai/pkg/models"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestRecordRepositoryGetAll(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresRecordRepository(db)

	created := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "topic_id", "title", "summary", "decisions", "key_insights", "tags", "created_at"}).
		AddRow("r1", "t1", "DB choice", "picked postgres",
			[]byte(`["Use PostgreSQL for storage"]`),
			[]byte(`["managed hosting is fine"]`),
			[]byte(`["db","infra"]`),
			created).
		AddRow("r2", nil, "Untitled", "",
			nil, nil, nil,
			created.Add(time.Hour))
	mock.ExpectQuery(`SELECT id, topic_id, title, summary, decisions, key_insights, tags, created_at\s+FROM knowledge_records\s+ORDER BY created_at ASC, id ASC`).
		WillReturnRows(rows)

	records, err := repo.GetAll(context.Background())

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "r1", records[0].ID)
	assert.Equal(t, "t1", records[0].TopicID)
	assert.Equal(t, []string{"Use PostgreSQL for storage"}, records[0].Decisions)
	assert.Equal(t, []string{"db", "infra"}, records[0].Tags)
	assert.Empty(t, records[1].TopicID, "NULL topic_id becomes the unassigned bucket")
	assert.Nil(t, records[1].Decisions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepositoryGetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresRecordRepository(db)

	rows := sqlmock.NewRows([]string{"id", "topic_id", "title", "summary", "decisions", "key_insights", "tags", "created_at"}).
		AddRow("r1", "t1", "DB choice", "picked postgres",
			[]byte(`["Use PostgreSQL for storage"]`), []byte(`[]`), []byte(`[]`),
			time.Now().UTC())
	mock.ExpectQuery(`SELECT id, topic_id, title, summary, decisions, key_insights, tags, created_at\s+FROM knowledge_records\s+WHERE id = \$1`).
		WithArgs("r1").
		WillReturnRows(rows)

	record, err := repo.GetByID(context.Background(), "r1")

	require.NoError(t, err)
	assert.Equal(t, "r1", record.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepositoryGetByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresRecordRepository(db)

	mock.ExpectQuery(`SELECT id, topic_id, title, summary, decisions, key_insights, tags, created_at\s+FROM knowledge_records\s+WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	record, err := repo.GetByID(context.Background(), "missing")

	assert.Nil(t, record)
	assert.ErrorIs(t, err, ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicRepositoryGetAll(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresTopicRepository(db)

	rows := sqlmock.NewRows([]string{"id", "tags"}).
		AddRow("t1", []byte(`["db","infra"]`)).
		AddRow("t2", nil)
	mock.ExpectQuery(`SELECT id, tags FROM topics ORDER BY id ASC`).WillReturnRows(rows)

	topics, err := repo.GetAll(context.Background())

	require.NoError(t, err)
	require.Len(t, topics, 2)
	assert.Equal(t, []string{"db", "infra"}, topics[0].Tags)
	assert.Nil(t, topics[1].Tags)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConflictStoreGetMissingBlobIsEmptyLedger(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPostgresConflictStore(db)

	mock.ExpectQuery(`SELECT value FROM kv_store WHERE key = \$1`).
		WithArgs("conflicts").
		WillReturnError(sql.ErrNoRows)

	conflicts, err := store.Get(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, conflicts)
	assert.Empty(t, conflicts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConflictStoreGet(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPostgresConflictStore(db)

	stored := []models.Conflict{{
		ID:       "c1",
		Type:     models.TypeDecisionConflict,
		Severity: models.SeverityHigh,
		Status:   models.StatusOpen,
	}}
	raw, err := json.Marshal(stored)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT value FROM kv_store WHERE key = \$1`).
		WithArgs("conflicts").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(raw))

	conflicts, err := store.Get(context.Background())

	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "c1", conflicts[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConflictStoreGetCorruptBlob(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPostgresConflictStore(db)

	mock.ExpectQuery(`SELECT value FROM kv_store WHERE key = \$1`).
		WithArgs("conflicts").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte(`{not json`)))

	_, err := store.Get(context.Background())

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConflictStoreSetUpserts(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPostgresConflictStore(db)

	conflicts := []models.Conflict{{ID: "c1", Status: models.StatusOpen}}
	raw, err := json.Marshal(conflicts)
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO kv_store \(key, value, updated_at\)\s+VALUES \(\$1, \$2, \$3\)\s+ON CONFLICT \(key\) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`).
		WithArgs("conflicts", raw, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Set(context.Background(), conflicts))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConflictStoreSetNilWritesEmptyList(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPostgresConflictStore(db)

	mock.ExpectExec(`INSERT INTO kv_store`).
		WithArgs("conflicts", []byte(`[]`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Set(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConflictStoreSetPropagatesWriteError(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPostgresConflictStore(db)

	mock.ExpectExec(`INSERT INTO kv_store`).
		WillReturnError(errors.New("connection reset"))

	err := store.Set(context.Background(), []models.Conflict{})

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
