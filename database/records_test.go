package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/arkg/helper"
	"github.com/siherrmann/arkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordsNewRecordsDBHandler(t *testing.T) {
	database := initDB(t)

	t.Run("Valid call NewRecordsDBHandler", func(t *testing.T) {
		recordsDbHandler, err := NewRecordsDBHandler(database, testEmbeddingDim, true)
		assert.NoError(t, err, "Expected NewRecordsDBHandler to not return an error")
		require.NotNil(t, recordsDbHandler, "Expected NewRecordsDBHandler to return a non-nil instance")
		require.NotNil(t, recordsDbHandler.db, "Expected NewRecordsDBHandler to have a non-nil database instance")
		assert.Equal(t, testEmbeddingDim, recordsDbHandler.EmbeddingDimension())
	})

	t.Run("Invalid call NewRecordsDBHandler with nil database", func(t *testing.T) {
		_, err := NewRecordsDBHandler(nil, testEmbeddingDim, false)
		assert.Error(t, err, "Expected error when creating RecordsDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil", "Expected specific error message for nil database connection")
	})

	t.Run("Invalid call NewRecordsDBHandler with zero dimension", func(t *testing.T) {
		_, err := NewRecordsDBHandler(database, 0, false)
		assert.ErrorIs(t, err, helper.ErrValidation)
	})
}

func TestRecordsInsert(t *testing.T) {
	recordsDbHandler := initRecordsDBHandler(t)
	ctx := context.Background()

	t.Run("Insert record", func(t *testing.T) {
		record := insertTestRecord(t, recordsDbHandler, "Mouseion", []float32{1, 0, 0})

		assert.NotZero(t, record.ID, "Expected inserted record to have an ID")
		assert.NotEqual(t, uuid.Nil, record.RID, "Expected inserted record to have a RID")
		assert.WithinDuration(t, time.Now(), record.CreatedAt, 5*time.Second, "Expected CreatedAt to be set")
		assert.Equal(t, "Mouseion", record.Content, "Expected content to fall back to the prompt friendly key")
		assert.Equal(t, "Mouseion", record.Metadata["title"])
	})

	t.Run("Insert existing key replaces the record", func(t *testing.T) {
		first := insertTestRecord(t, recordsDbHandler, "Nalanda", []float32{0, 1, 0})

		replacement := &model.IndexedRecord{
			Key:       "Nalanda",
			URL:       "https://en.wikipedia.org/wiki/Nalanda",
			Content:   "Nalanda was a Buddhist mahavihara.",
			Metadata:  model.Metadata{},
			Embedding: []float32{0, 0, 1},
		}
		err := recordsDbHandler.InsertRecord(ctx, replacement)
		require.NoError(t, err)
		assert.Equal(t, first.RID, replacement.RID, "Expected upsert to keep the RID")
		assert.Equal(t, "Nalanda was a Buddhist mahavihara.", replacement.Content)
	})

	t.Run("Insert with wrong embedding dimension", func(t *testing.T) {
		record := &model.IndexedRecord{Key: "Broken", URL: "https://en.wikipedia.org/wiki/Broken", Embedding: []float32{1}}
		err := recordsDbHandler.InsertRecord(ctx, record)
		assert.ErrorIs(t, err, helper.ErrValidation)
	})
}

func TestRecordsSelect(t *testing.T) {
	recordsDbHandler := initRecordsDBHandler(t)
	ctx := context.Background()

	record := insertTestRecord(t, recordsDbHandler, "Sankoré_Madrasah", []float32{0, 1, 0})

	t.Run("Select by RID", func(t *testing.T) {
		selected, err := recordsDbHandler.SelectRecord(ctx, record.RID)
		require.NoError(t, err)
		assert.Equal(t, record.ID, selected.ID)
		assert.Equal(t, "Sankoré_Madrasah", selected.Key)
		assert.Equal(t, record.URL, selected.URL)
	})

	t.Run("Select by key", func(t *testing.T) {
		selected, err := recordsDbHandler.SelectRecordByKey(ctx, "Sankoré_Madrasah")
		require.NoError(t, err)
		assert.Equal(t, record.RID, selected.RID)
		assert.Equal(t, "Sankoré_Madrasah", selected.Record().Key)
	})

	t.Run("Select unknown key", func(t *testing.T) {
		_, err := recordsDbHandler.SelectRecordByKey(ctx, "Unknown")
		assert.Error(t, err, "Expected error for unknown key")
	})
}

func TestRecordsSelectAll(t *testing.T) {
	recordsDbHandler := initRecordsDBHandler(t)
	ctx := context.Background()

	keys := []string{"Alpha", "Beta", "Gamma", "Delta"}
	for i, key := range keys {
		embedding := make([]float32, testEmbeddingDim)
		embedding[i%testEmbeddingDim] = 1
		insertTestRecord(t, recordsDbHandler, key, embedding)
	}

	firstPage, err := recordsDbHandler.SelectAllRecords(ctx, nil, 3)
	require.NoError(t, err)
	require.Len(t, firstPage, 3)
	assert.Equal(t, []string{"Alpha", "Beta", "Gamma"}, []string{firstPage[0].Key, firstPage[1].Key, firstPage[2].Key})

	secondPage, err := recordsDbHandler.SelectAllRecords(ctx, &firstPage[2].ID, 3)
	require.NoError(t, err)
	require.Len(t, secondPage, 1)
	assert.Equal(t, "Delta", secondPage[0].Key)
}

func TestRecordsSelectBySimilarity(t *testing.T) {
	recordsDbHandler := initRecordsDBHandler(t)
	ctx := context.Background()

	insertTestRecord(t, recordsDbHandler, "Mouseion", []float32{1, 0, 0})
	insertTestRecord(t, recordsDbHandler, "Sankoré_Madrasah", []float32{0, 1, 0})
	insertTestRecord(t, recordsDbHandler, "Nalanda", []float32{0, 0, 1})

	query := []float32{1, 0, 0}

	for _, strategy := range model.DistanceStrategies {
		t.Run(string(strategy)+" with threshold", func(t *testing.T) {
			results, err := recordsDbHandler.SelectRecordsBySimilarity(ctx, query, 10, 0.5, strategy)
			require.NoError(t, err)
			require.Len(t, results, 1, "Expected only the identical record to pass the threshold")
			assert.Equal(t, "Mouseion", results[0].Key)
			assert.InDelta(t, 1.0, results[0].Score, 0.0001)
		})

		t.Run(string(strategy)+" ties keep insertion order", func(t *testing.T) {
			results, err := recordsDbHandler.SelectRecordsBySimilarity(ctx, query, 10, -1.0, strategy)
			require.NoError(t, err)
			require.Len(t, results, 3)
			assert.Equal(t, "Mouseion", results[0].Key)
			assert.Equal(t, "Sankoré_Madrasah", results[1].Key)
			assert.Equal(t, "Nalanda", results[2].Key)
		})
	}

	t.Run("Limit", func(t *testing.T) {
		results, err := recordsDbHandler.SelectRecordsBySimilarity(ctx, query, 2, 0.0, model.DistanceStrategyCosine)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("Unsupported strategy", func(t *testing.T) {
		_, err := recordsDbHandler.SelectRecordsBySimilarity(ctx, query, 2, 0.0, "manhattan")
		assert.ErrorIs(t, err, helper.ErrValidation)
	})

	t.Run("Cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := recordsDbHandler.SelectRecordsBySimilarity(cancelled, query, 2, 0.0, model.DistanceStrategyCosine)
		assert.Error(t, err)
	})
}

func TestRecordsDelete(t *testing.T) {
	recordsDbHandler := initRecordsDBHandler(t)
	ctx := context.Background()

	record := insertTestRecord(t, recordsDbHandler, "Temporary", []float32{1, 1, 0})

	err := recordsDbHandler.DeleteRecord(ctx, record.RID)
	assert.NoError(t, err, "Expected DeleteRecord to not return an error")

	_, err = recordsDbHandler.SelectRecord(ctx, record.RID)
	assert.Error(t, err, "Expected deleted record to be gone")
}
