package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redroostertech/slop-ai/pkg/models"
)

var ErrRecordNotFound = errors.New("knowledge record not found")

// PostgresRecordRepository reads knowledge records from PostgreSQL. The
// contradiction engine consumes records read-only; writes belong to the
// import subsystem.
type PostgresRecordRepository struct {
	db *sql.DB
}

// NewPostgresRecordRepository creates a record repository.
func NewPostgresRecordRepository(db *sql.DB) *PostgresRecordRepository {
	return &PostgresRecordRepository{db: db}
}

// GetAll returns every knowledge record, oldest first.
func (r *PostgresRecordRepository) GetAll(ctx context.Context) ([]models.KnowledgeRecord, error) {
	query := `
		SELECT id, topic_id, title, summary, decisions, key_insights, tags, created_at
		FROM knowledge_records
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query knowledge records: %w", err)
	}
	defer rows.Close()

	var records []models.KnowledgeRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate knowledge records: %w", err)
	}

	return records, nil
}

// GetByID returns one record or ErrRecordNotFound.
func (r *PostgresRecordRepository) GetByID(ctx context.Context, id string) (*models.KnowledgeRecord, error) {
	query := `
		SELECT id, topic_id, title, summary, decisions, key_insights, tags, created_at
		FROM knowledge_records
		WHERE id = $1
	`

	record, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	return &record, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (models.KnowledgeRecord, error) {
	var record models.KnowledgeRecord
	var topicID sql.NullString
	var decisions, insights, tags []byte

	err := row.Scan(
		&record.ID,
		&topicID,
		&record.Title,
		&record.Summary,
		&decisions,
		&insights,
		&tags,
		&record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.KnowledgeRecord{}, err
		}
		return models.KnowledgeRecord{}, fmt.Errorf("scan knowledge record: %w", err)
	}

	record.TopicID = topicID.String

	if err := unmarshalList(decisions, &record.Decisions); err != nil {
		return models.KnowledgeRecord{}, fmt.Errorf("decode decisions for %s: %w", record.ID, err)
	}
	if err := unmarshalList(insights, &record.KeyInsights); err != nil {
		return models.KnowledgeRecord{}, fmt.Errorf("decode key insights for %s: %w", record.ID, err)
	}
	if err := unmarshalList(tags, &record.Tags); err != nil {
		return models.KnowledgeRecord{}, fmt.Errorf("decode tags for %s: %w", record.ID, err)
	}

	return record, nil
}

func unmarshalList(raw []byte, dst *[]string) error {
	if len(raw) == 0 {
		*dst = nil
		return nil
	}
	return json.Unmarshal(raw, dst)
}
