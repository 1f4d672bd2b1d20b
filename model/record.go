package model

import (
	"strings"

	"github.com/siherrmann/arkg/helper"
)

// Record is one encyclopedia article. Its identity is the key.
type Record struct {
	Key      string   `json:"key"`
	URL      string   `json:"url"`
	Metadata Metadata `json:"metadata,omitempty"`
}

// NewRecord validates and normalizes a record.
// Spaces in the key are replaced by underscores, the slug convention of the source site.
func NewRecord(key string, url string, metadata Metadata) (*Record, error) {
	key = strings.TrimSpace(key)
	url = strings.TrimSpace(url)
	if key == "" {
		return nil, helper.NewValidationError("record key must not be blank")
	}
	if url == "" {
		return nil, helper.NewValidationError("record url of %q must not be blank", key)
	}
	if metadata == nil {
		metadata = Metadata{}
	}

	return &Record{
		Key:      strings.ReplaceAll(key, " ", "_"),
		URL:      url,
		Metadata: metadata.Clone(),
	}, nil
}

// With returns a copy of the record with an additional metadata field.
// The receiver is left unchanged.
func (r *Record) With(field string, value interface{}) *Record {
	enriched := &Record{
		Key:      r.Key,
		URL:      r.URL,
		Metadata: r.Metadata.Clone(),
	}
	enriched.Metadata[field] = value
	return enriched
}

// Summary returns the summary field if the record was enriched with one
func (r *Record) Summary() (string, bool) {
	return r.Metadata.String(FieldSummary)
}

// Title returns the title field, falling back to the prompt friendly key
func (r *Record) Title() string {
	if title, ok := r.Metadata.String(FieldTitle); ok {
		return title
	}
	return RecordKeyToPromptFriendly(r.Key)
}

// Content is the text that represents the record in the similarity index.
func (r *Record) Content() string {
	if summary, ok := r.Summary(); ok {
		return summary
	}
	return RecordKeyToPromptFriendly(r.Key)
}

// Metadata fields with a meaning in the pipeline
const (
	FieldSummary = "summary"
	FieldTitle   = "title"
)

// RecordKeyToPromptFriendly replaces underscores by spaces
func RecordKeyToPromptFriendly(key string) string {
	return strings.ReplaceAll(key, "_", " ")
}

// RecordKeyFromPromptFriendly replaces spaces by underscores
func RecordKeyFromPromptFriendly(text string) string {
	return strings.ReplaceAll(strings.TrimSpace(text), " ", "_")
}
