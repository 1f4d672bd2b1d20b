package database

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/siherrmann/arkg/helper"
	"github.com/siherrmann/arkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeIndexType(t *testing.T) {
	recordsDbHandler := initRecordsDBHandler(t)
	ctx := context.Background()

	t.Run("Change index to HNSW with default params", func(t *testing.T) {
		err := recordsDbHandler.ChangeIndexType(ctx, "hnsw", model.DistanceStrategyEuclidean, map[string]interface{}{})
		assert.NoError(t, err, "Expected ChangeIndexType to hnsw to not return an error")
	})

	t.Run("Change index to HNSW with custom params", func(t *testing.T) {
		params := map[string]interface{}{
			"m":               32,
			"ef_construction": 128,
		}
		err := recordsDbHandler.ChangeIndexType(ctx, "hnsw", model.DistanceStrategyMaxInnerProduct, params)
		assert.NoError(t, err, "Expected ChangeIndexType to hnsw with custom params to not return an error")
	})

	t.Run("Change index to IVFFlat with custom params", func(t *testing.T) {
		err := recordsDbHandler.ChangeIndexType(ctx, "ivfflat", model.DistanceStrategyCosine, map[string]interface{}{"lists": 10})
		assert.NoError(t, err, "Expected ChangeIndexType to ivfflat with custom params to not return an error")
	})

	t.Run("Change index with unsupported index type", func(t *testing.T) {
		err := recordsDbHandler.ChangeIndexType(ctx, "invalid", model.DistanceStrategyCosine, nil)
		assert.Error(t, err, "Expected error when using unsupported index type")
		assert.Contains(t, err.Error(), "unsupported index type", "Expected error message to mention unsupported index type")
	})

	t.Run("Change index with unsupported distance strategy", func(t *testing.T) {
		err := recordsDbHandler.ChangeIndexType(ctx, "hnsw", "manhattan", nil)
		assert.ErrorIs(t, err, helper.ErrValidation)
	})

	t.Run("Change index back to HNSW cosine", func(t *testing.T) {
		err := recordsDbHandler.ChangeIndexType(ctx, "hnsw", model.DistanceStrategyCosine, nil)
		assert.NoError(t, err)
	})
}

func TestSimilarityUsesVectorIndex(t *testing.T) {
	recordsDbHandler := initRecordsDBHandler(t)
	ctx := context.Background()

	insertTestRecord(t, recordsDbHandler, "Mouseion", []float32{1, 0, 0})
	insertTestRecord(t, recordsDbHandler, "Sankoré_Madrasah", []float32{0.9, 0.1, 0})
	insertTestRecord(t, recordsDbHandler, "House_of_Wisdom", []float32{0, 1, 0})

	for _, indexType := range []string{"hnsw", "ivfflat"} {
		for _, strategy := range model.DistanceStrategies {
			t.Run(indexType+" "+string(strategy), func(t *testing.T) {
				err := recordsDbHandler.ChangeIndexType(ctx, indexType, strategy, map[string]interface{}{"lists": 1})
				require.NoError(t, err)

				plan := explainSimilarity(t, recordsDbHandler, strategy)
				assert.Contains(t, plan, "idx_records_embedding", "Expected the similarity ordering to scan the vector index")

				results, err := recordsDbHandler.SelectRecordsBySimilarity(ctx, []float32{1, 0, 0}, 2, -10, strategy)
				require.NoError(t, err)
				require.Len(t, results, 2)
				assert.Equal(t, "Mouseion", results[0].Key)
				assert.Equal(t, "Sankoré_Madrasah", results[1].Key)
			})
		}
	}

	err := recordsDbHandler.ChangeIndexType(ctx, "hnsw", model.DistanceStrategyCosine, nil)
	require.NoError(t, err)
}

// explainSimilarity returns the plan of the ordering select_records_by_similarity runs for strategy.
// Sequential scans are disabled, the table is too small for the planner to pick the index otherwise.
func explainSimilarity(t *testing.T, h *RecordsDBHandler, strategy model.DistanceStrategy) string {
	ctx := context.Background()
	conn, err := h.db.Instance.Conn(ctx)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.ExecContext(ctx, `SET enable_seqscan = off`)
	require.NoError(t, err)
	defer func() {
		_, _ = conn.ExecContext(ctx, `RESET enable_seqscan`)
	}()

	query := fmt.Sprintf(
		`EXPLAIN SELECT r.id FROM records r WHERE r.embedding IS NOT NULL ORDER BY r.embedding %s '[1,0,0]'::vector LIMIT 2`,
		strategy.Operator(),
	)
	rows, err := conn.QueryContext(ctx, query)
	require.NoError(t, err)
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var line string
		require.NoError(t, rows.Scan(&line))
		lines = append(lines, line)
	}
	require.NoError(t, rows.Err())

	return strings.Join(lines, "\n")
}
