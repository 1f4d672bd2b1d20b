package model

import (
	"strings"

	"github.com/siherrmann/arkg/helper"
)

// DistanceStrategy is the vector metric used to rank similarity search candidates
type DistanceStrategy string

const (
	DistanceStrategyCosine          DistanceStrategy = "cosine"
	DistanceStrategyEuclidean       DistanceStrategy = "euclidean"
	DistanceStrategyMaxInnerProduct DistanceStrategy = "max_inner_product"
)

// DistanceStrategies lists every supported strategy
var DistanceStrategies = []DistanceStrategy{
	DistanceStrategyCosine,
	DistanceStrategyEuclidean,
	DistanceStrategyMaxInnerProduct,
}

// ParseDistanceStrategy accepts the strategy names as well as
// COSINE, EUCLIDEAN_DISTANCE and MAX_INNER_PRODUCT.
func ParseDistanceStrategy(s string) (DistanceStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cosine":
		return DistanceStrategyCosine, nil
	case "euclidean", "euclidean_distance", "l2":
		return DistanceStrategyEuclidean, nil
	case "max_inner_product", "inner_product", "dot_product":
		return DistanceStrategyMaxInnerProduct, nil
	}
	return "", helper.NewValidationError("unsupported distance strategy %q", s)
}

// Valid reports whether the strategy is one of DistanceStrategies
func (d DistanceStrategy) Valid() bool {
	for _, strategy := range DistanceStrategies {
		if d == strategy {
			return true
		}
	}
	return false
}

// OperatorClass is the pgvector operator class for vector indexes
func (d DistanceStrategy) OperatorClass() string {
	switch d {
	case DistanceStrategyEuclidean:
		return "vector_l2_ops"
	case DistanceStrategyMaxInnerProduct:
		return "vector_ip_ops"
	default:
		return "vector_cosine_ops"
	}
}

// Operator is the pgvector distance operator an index with OperatorClass serves
func (d DistanceStrategy) Operator() string {
	switch d {
	case DistanceStrategyEuclidean:
		return "<->"
	case DistanceStrategyMaxInnerProduct:
		return "<#>"
	default:
		return "<=>"
	}
}
