package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/siherrmann/arkg/helper"
	"github.com/siherrmann/arkg/model"
)

// EmbedFunc is a function that generates embeddings for text
type EmbedFunc func(text string) ([]float32, error)

// RecordWriter stores embedded records in the similarity index
type RecordWriter interface {
	InsertRecord(ctx context.Context, record *model.IndexedRecord) error
}

// Pipeline embeds records and writes them into the similarity index
type Pipeline struct {
	Embedder EmbedFunc
	Records  RecordWriter
	Logger   *slog.Logger
}

// NewPipeline creates a new embedding pipeline
func NewPipeline(embedder EmbedFunc, records RecordWriter) *Pipeline {
	return &Pipeline{
		Embedder: embedder,
		Records:  records,
		Logger:   slog.Default(),
	}
}

// Embed returns the record with the embedding of its content.
// The content is the summary of the record if it has one, the prompt friendly key otherwise.
func (p *Pipeline) Embed(record *model.Record) (*model.IndexedRecord, error) {
	if p.Embedder == nil {
		return nil, helper.NewValidationError("pipeline has no embedder")
	}
	if record == nil {
		return nil, helper.NewValidationError("record is nil")
	}

	embedding, err := p.Embedder(record.Content())
	if err != nil {
		return nil, helper.NewError(fmt.Sprintf("embed %s", record.Key), err)
	}

	return model.NewIndexedRecord(record, embedding), nil
}

// IndexRecords embeds and stores the records in order.
// It stops at the first failure, records stored before stay in the index.
func (p *Pipeline) IndexRecords(ctx context.Context, records []*model.Record) ([]*model.IndexedRecord, error) {
	if p.Records == nil {
		return nil, helper.NewValidationError("pipeline has no record writer")
	}

	indexed := make([]*model.IndexedRecord, 0, len(records))
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return indexed, helper.NewError("index records", err)
		}

		indexedRecord, err := p.Embed(record)
		if err != nil {
			return indexed, err
		}

		err = p.Records.InsertRecord(ctx, indexedRecord)
		if err != nil {
			return indexed, helper.NewError(fmt.Sprintf("insert %s", record.Key), err)
		}
		indexed = append(indexed, indexedRecord)
	}

	p.logger().Info("Indexed records", "count", len(indexed))

	return indexed, nil
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}
