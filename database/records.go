package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/arkg/helper"
	"github.com/siherrmann/arkg/model"
	loadSql "github.com/siherrmann/arkg/sql"
)

// RecordsDBHandlerFunctions defines the interface for Records database operations.
type RecordsDBHandlerFunctions interface {
	InsertRecord(ctx context.Context, record *model.IndexedRecord) error
	SelectRecord(ctx context.Context, rid uuid.UUID) (*model.IndexedRecord, error)
	SelectRecordByKey(ctx context.Context, key string) (*model.IndexedRecord, error)
	SelectAllRecords(ctx context.Context, lastID *int64, limit int) ([]*model.IndexedRecord, error)
	SelectRecordsBySimilarity(ctx context.Context, embedding []float32, limit int, threshold float64, strategy model.DistanceStrategy) ([]*model.IndexedRecord, error)
	DeleteRecord(ctx context.Context, rid uuid.UUID) error
}

// RecordsDBHandler stores embedded records, it is the storage of the similarity index
type RecordsDBHandler struct {
	db           *helper.Database
	embeddingDim int
}

// NewRecordsDBHandler creates a new records database handler.
// It loads the record-related SQL functions and creates the table.
// If force is true, it will reload the SQL functions even if they already exist.
func NewRecordsDBHandler(db *helper.Database, embeddingDim int, force bool) (*RecordsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}
	if embeddingDim < 1 {
		return nil, helper.NewValidationError("embedding dimension must be positive, got %d", embeddingDim)
	}

	recordsDbHandler := &RecordsDBHandler{
		db:           db,
		embeddingDim: embeddingDim,
	}

	err := loadSql.LoadRecordsSql(recordsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load records sql", err)
	}

	err = recordsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized RecordsDBHandler", "embedding_dim", embeddingDim)

	return recordsDbHandler, nil
}

// CreateTable creates the 'records' table with its vector index.
// If the table already exists, it does not create it again.
func (h *RecordsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_records($1);`, h.embeddingDim)
	if err != nil {
		return helper.NewError("init records", err)
	}

	h.db.Logger.Info("Checked/created table records")

	return nil
}

// EmbeddingDimension returns the dimension of the embedding column
func (h *RecordsDBHandler) EmbeddingDimension() int {
	return h.embeddingDim
}

// InsertRecord inserts a record or replaces the record with the same key
func (h *RecordsDBHandler) InsertRecord(ctx context.Context, record *model.IndexedRecord) error {
	if len(record.Embedding) != h.embeddingDim {
		return helper.NewValidationError("embedding of %q has dimension %d, expected %d", record.Key, len(record.Embedding), h.embeddingDim)
	}

	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM insert_record($1, $2, $3, $4, $5)`,
		record.Key,
		record.URL,
		record.Content,
		record.Metadata,
		pgvector.NewVector(record.Embedding),
	)

	err := row.Scan(
		&record.ID,
		&record.RID,
		&record.Key,
		&record.URL,
		&record.Content,
		&record.Metadata,
		&record.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectRecord retrieves a record by RID
func (h *RecordsDBHandler) SelectRecord(ctx context.Context, rid uuid.UUID) (*model.IndexedRecord, error) {
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM select_record($1)`,
		rid,
	)

	record := &model.IndexedRecord{}
	err := row.Scan(
		&record.ID,
		&record.RID,
		&record.Key,
		&record.URL,
		&record.Content,
		&record.Metadata,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return record, nil
}

// SelectRecordByKey retrieves a record by its key
func (h *RecordsDBHandler) SelectRecordByKey(ctx context.Context, key string) (*model.IndexedRecord, error) {
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM select_record_by_key($1)`,
		key,
	)

	record := &model.IndexedRecord{}
	err := row.Scan(
		&record.ID,
		&record.RID,
		&record.Key,
		&record.URL,
		&record.Content,
		&record.Metadata,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return record, nil
}

// SelectAllRecords retrieves records in insertion order.
// Pass the ID of the last record of the previous page to continue, nil for the first page.
func (h *RecordsDBHandler) SelectAllRecords(ctx context.Context, lastID *int64, limit int) ([]*model.IndexedRecord, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_all_records($1, $2)`,
		lastID,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var records []*model.IndexedRecord
	for rows.Next() {
		record := &model.IndexedRecord{}
		err := rows.Scan(
			&record.ID,
			&record.RID,
			&record.Key,
			&record.URL,
			&record.Content,
			&record.Metadata,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		records = append(records, record)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return records, nil
}

// SelectRecordsBySimilarity performs a vector similarity search.
// Results have a score of at least threshold and are ordered by score, ties by insertion order.
func (h *RecordsDBHandler) SelectRecordsBySimilarity(ctx context.Context, embedding []float32, limit int, threshold float64, strategy model.DistanceStrategy) ([]*model.IndexedRecord, error) {
	if !strategy.Valid() {
		return nil, helper.NewValidationError("unsupported distance strategy %q", strategy)
	}

	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_records_by_similarity($1, $2, $3, $4)`,
		pgvector.NewVector(embedding),
		limit,
		threshold,
		string(strategy),
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var results []*model.IndexedRecord
	for rows.Next() {
		record := &model.IndexedRecord{}
		err := rows.Scan(
			&record.ID,
			&record.RID,
			&record.Key,
			&record.URL,
			&record.Content,
			&record.Metadata,
			&record.CreatedAt,
			&record.Score,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		results = append(results, record)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return results, nil
}

// DeleteRecord deletes a record by RID
func (h *RecordsDBHandler) DeleteRecord(ctx context.Context, rid uuid.UUID) error {
	_, err := h.db.Instance.ExecContext(
		ctx,
		`SELECT delete_record($1)`,
		rid,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
