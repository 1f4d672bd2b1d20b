// Package retrieval finds anti-recommendations of a record in a similarity index.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/siherrmann/arkg/helper"
	"github.com/siherrmann/arkg/model"
	"github.com/siherrmann/arkg/vocabulary"
	"golang.org/x/sync/errgroup"
)

// Option configures a Retriever
type Option func(*Retriever)

// WithBaseURL sets the prefix stripped from document sources to recover record keys
func WithBaseURL(baseURL string) Option {
	return func(r *Retriever) {
		r.baseURL = baseURL
	}
}

// WithConcurrency bounds the number of records retrieved at once by RetrieveGraphs
func WithConcurrency(n int) Option {
	return func(r *Retriever) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Retriever returns the anti-recommendations of records.
//
// Retrieve(key, k) asks the index for k+1 documents, drops the record itself
// and duplicates, and returns at most k anti-recommendations. Callers get
// exactly k whenever the index holds k other records above the threshold.
type Retriever struct {
	index       SimilarityIndex
	config      model.RetrievalConfig
	baseURL     string
	concurrency int
	logger      *slog.Logger
}

// NewRetriever creates a retriever with the given distance strategy and score threshold
func NewRetriever(index SimilarityIndex, config model.RetrievalConfig, opts ...Option) (*Retriever, error) {
	if index == nil {
		return nil, helper.NewValidationError("retriever needs a similarity index")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	r := &Retriever{
		index:       index,
		config:      config,
		baseURL:     vocabulary.WikipediaBaseURL,
		concurrency: 1,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Config returns the retrieval parameters
func (r *Retriever) Config() model.RetrievalConfig {
	return r.config
}

// Query is the natural-language query that is embedded for recordKey
func (r *Retriever) Query(recordKey string, k int) string {
	return fmt.Sprintf(
		"What are %d Wikipedia articles that are dissimilar but surprisingly related to the Wikipedia article %s",
		k,
		model.RecordKeyToPromptFriendly(recordKey),
	)
}

// Retrieve returns up to k anti-recommendations of recordKey in index order.
// An empty result is not an error.
func (r *Retriever) Retrieve(ctx context.Context, recordKey string, k int) ([]model.AntiRecommendation, error) {
	recordKey = strings.TrimSpace(recordKey)
	if recordKey == "" {
		return nil, helper.NewValidationError("record key must not be blank")
	}
	if k < 1 {
		return nil, helper.NewValidationError("k must be positive, got %d", k)
	}

	documents, err := r.index.SimilaritySearchWithScore(ctx, r.Query(recordKey, k), k+1, r.config.ScoreThreshold, r.config.DistanceStrategy)
	if err != nil {
		if errors.Is(err, helper.ErrRetrieval) {
			return nil, err
		}
		return nil, helper.NewRetrievalError(fmt.Sprintf("search %s", recordKey), err)
	}

	antiRecommendations := make([]model.AntiRecommendation, 0, k)
	seen := map[string]bool{recordKey: true}
	for _, document := range documents {
		if len(antiRecommendations) == k {
			break
		}
		if document.Score < r.config.ScoreThreshold {
			continue
		}

		key, ok := strings.CutPrefix(document.Source, r.baseURL)
		if !ok || key == "" {
			r.logger.Debug("Skipping document with foreign source", "source", document.Source)
			continue
		}
		if seen[key] {
			continue
		}
		seen[key] = true

		antiRecommendations = append(antiRecommendations, model.AntiRecommendation{
			Key:             key,
			Content:         document.Content,
			SimilarityScore: document.Score,
		})
	}

	r.logger.Debug("Retrieved anti-recommendations", "key", recordKey, "count", len(antiRecommendations))

	return antiRecommendations, nil
}

// RetrieveGraphs retrieves the anti-recommendation graph of every record.
// Records are retrieved concurrently, the set keeps the order of records.
func (r *Retriever) RetrieveGraphs(ctx context.Context, records []*model.Record, k int) (*model.AntiRecommendationGraphSet, error) {
	for i, record := range records {
		if record == nil {
			return nil, helper.NewValidationError("record %d is nil", i)
		}
	}

	graphs := make([]model.AntiRecommendationGraph, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, record := range records {
		g.Go(func() error {
			antiRecommendations, err := r.Retrieve(gctx, record.Key, k)
			if err != nil {
				return err
			}
			graphs[i] = model.NewAntiRecommendationGraph(record.Key, antiRecommendations)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	set := &model.AntiRecommendationGraphSet{}
	for _, graph := range graphs {
		set.Add(graph)
	}

	r.logger.Info("Retrieved anti-recommendation graphs", "graphs", set.Len())

	return set, nil
}
