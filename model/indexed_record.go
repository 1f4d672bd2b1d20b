package model

import (
	"time"

	"github.com/google/uuid"
)

// IndexedRecord is a record stored in the similarity index
type IndexedRecord struct {
	ID        int64     `json:"id"`
	RID       uuid.UUID `json:"rid"`
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Content   string    `json:"content"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	Embedding []float32 `json:"embedding,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	// Result of a similarity search
	Score float64 `json:"score,omitempty"`
}

// NewIndexedRecord prepares a record for insertion into the similarity index
func NewIndexedRecord(record *Record, embedding []float32) *IndexedRecord {
	return &IndexedRecord{
		Key:       record.Key,
		URL:       record.URL,
		Content:   record.Content(),
		Metadata:  record.Metadata.Clone(),
		Embedding: embedding,
	}
}

// Record returns the plain record
func (r *IndexedRecord) Record() *Record {
	return &Record{
		Key:      r.Key,
		URL:      r.URL,
		Metadata: r.Metadata.Clone(),
	}
}

// ScoredDocument returns the search result as seen by the retriever.
// The source is the base url followed by the key.
func (r *IndexedRecord) ScoredDocument(baseURL string) ScoredDocument {
	return ScoredDocument{
		Content: r.Content,
		Source:  baseURL + r.Key,
		Score:   r.Score,
	}
}
