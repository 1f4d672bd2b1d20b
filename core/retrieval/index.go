package retrieval

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/siherrmann/arkg/core/pipeline"
	"github.com/siherrmann/arkg/helper"
	"github.com/siherrmann/arkg/model"
)

// SimilarityIndex finds the documents closest to a natural-language query.
// Results are ordered best first and have a score of at least threshold.
type SimilarityIndex interface {
	SimilaritySearchWithScore(ctx context.Context, query string, k int, threshold float64, strategy model.DistanceStrategy) ([]model.ScoredDocument, error)
}

// RecordSearcher is the storage a PostgresIndex searches
type RecordSearcher interface {
	SelectRecordsBySimilarity(ctx context.Context, embedding []float32, limit int, threshold float64, strategy model.DistanceStrategy) ([]*model.IndexedRecord, error)
}

// PostgresIndex is a SimilarityIndex over the records table.
// The query is embedded with the same function the records were embedded with.
type PostgresIndex struct {
	embed   pipeline.EmbedFunc
	records RecordSearcher
	baseURL string
	closed  atomic.Bool
}

// NewPostgresIndex creates a similarity index.
// Sources of the returned documents are baseURL followed by the record key.
func NewPostgresIndex(embed pipeline.EmbedFunc, records RecordSearcher, baseURL string) (*PostgresIndex, error) {
	if embed == nil {
		return nil, helper.NewValidationError("similarity index needs an embedder")
	}
	if records == nil {
		return nil, helper.NewValidationError("similarity index needs a record store")
	}

	return &PostgresIndex{
		embed:   embed,
		records: records,
		baseURL: baseURL,
	}, nil
}

// SimilaritySearchWithScore embeds query and returns up to k documents
func (i *PostgresIndex) SimilaritySearchWithScore(ctx context.Context, query string, k int, threshold float64, strategy model.DistanceStrategy) ([]model.ScoredDocument, error) {
	if i.closed.Load() {
		return nil, helper.NewRetrievalError("search", fmt.Errorf("similarity index is closed"))
	}
	if k < 1 {
		return nil, helper.NewRetrievalError("search", helper.NewValidationError("k must be positive, got %d", k))
	}

	embedding, err := i.embed(query)
	if err != nil {
		return nil, helper.NewRetrievalError("embed query", err)
	}

	records, err := i.records.SelectRecordsBySimilarity(ctx, embedding, k, threshold, strategy)
	if err != nil {
		return nil, helper.NewRetrievalError("select records", err)
	}

	documents := make([]model.ScoredDocument, 0, len(records))
	for _, record := range records {
		documents = append(documents, record.ScoredDocument(i.baseURL))
	}
	return documents, nil
}

// Close makes every further search fail. The record store stays open.
func (i *PostgresIndex) Close() error {
	i.closed.Store(true)
	return nil
}
