package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/redroostertech/slop-ai/pkg/models"
)

// PostgresTopicRepository reads topics from PostgreSQL. Only topic tags
// matter to the engine.
type PostgresTopicRepository struct {
	db *sql.DB
}

// NewPostgresTopicRepository creates a topic repository.
func NewPostgresTopicRepository(db *sql.DB) *PostgresTopicRepository {
	return &PostgresTopicRepository{db: db}
}

// GetAll returns every topic.
func (r *PostgresTopicRepository) GetAll(ctx context.Context) ([]models.Topic, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, tags FROM topics ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query topics: %w", err)
	}
	defer rows.Close()

	var topics []models.Topic
	for rows.Next() {
		var topic models.Topic
		var tags []byte
		if err := rows.Scan(&topic.ID, &tags); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		if len(tags) > 0 {
			if err := json.Unmarshal(tags, &topic.Tags); err != nil {
				return nil, fmt.Errorf("decode tags for topic %s: %w", topic.ID, err)
			}
		}
		topics = append(topics, topic)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate topics: %w", err)
	}

	return topics, nil
}

// Corpus bundles the read-side repositories behind the discovery source
// interface.
type Corpus struct {
	Records *PostgresRecordRepository
	Topics  *PostgresTopicRepository
}

// NewCorpus creates a corpus over one database handle.
func NewCorpus(db *sql.DB) *Corpus {
	return &Corpus{
		Records: NewPostgresRecordRepository(db),
		Topics:  NewPostgresTopicRepository(db),
	}
}

// GetAllRecords implements discovery.Source.
func (c *Corpus) GetAllRecords(ctx context.Context) ([]models.KnowledgeRecord, error) {
	return c.Records.GetAll(ctx)
}

// GetAllTopics implements discovery.Source.
func (c *Corpus) GetAllTopics(ctx context.Context) ([]models.Topic, error) {
	return c.Topics.GetAll(ctx)
}
