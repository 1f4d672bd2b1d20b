package database

import (
	"context"
	"fmt"
	"time"

	"github.com/siherrmann/arkg/helper"
	"github.com/siherrmann/arkg/model"
)

// ChangeIndexType changes the vector index of the records table between HNSW and IVFFlat.
// The operator class follows the distance strategy the index is queried with.
// indexType: "hnsw" or "ivfflat"
// params: optional parameters for index creation
//   - For HNSW: "m" (int, default 16), "ef_construction" (int, default 64)
//   - For IVFFlat: "lists" (int, default 100)
func (h *RecordsDBHandler) ChangeIndexType(ctx context.Context, indexType string, strategy model.DistanceStrategy, params map[string]interface{}) error {
	if !strategy.Valid() {
		return helper.NewValidationError("unsupported distance strategy %q", strategy)
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	var createIndexSQL string

	switch indexType {
	case "hnsw":
		m := 16
		efConstruction := 64

		if mVal, ok := params["m"].(int); ok {
			m = mVal
		}
		if efVal, ok := params["ef_construction"].(int); ok {
			efConstruction = efVal
		}

		createIndexSQL = fmt.Sprintf(
			`CREATE INDEX idx_records_embedding ON records USING hnsw (embedding %s) WITH (m = %d, ef_construction = %d);`,
			strategy.OperatorClass(), m, efConstruction,
		)

	case "ivfflat":
		lists := 100
		if listsVal, ok := params["lists"].(int); ok {
			lists = listsVal
		}

		createIndexSQL = fmt.Sprintf(
			`CREATE INDEX idx_records_embedding ON records USING ivfflat (embedding %s) WITH (lists = %d);`,
			strategy.OperatorClass(), lists,
		)

	default:
		return helper.NewError("change index type", fmt.Errorf("unsupported index type: %s (use 'hnsw' or 'ivfflat')", indexType))
	}

	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return helper.NewError("begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `DROP INDEX IF EXISTS idx_records_embedding;`)
	if err != nil {
		return helper.NewError("drop index", err)
	}

	_, err = tx.ExecContext(ctx, createIndexSQL)
	if err != nil {
		return helper.NewError("create index", err)
	}

	err = tx.Commit()
	if err != nil {
		return helper.NewError("commit", err)
	}

	h.db.Logger.Info("Changed vector index", "type", indexType, "operator_class", strategy.OperatorClass(), "params", params)

	return nil
}
