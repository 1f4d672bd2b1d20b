package model

import (
	"testing"

	"github.com/siherrmann/arkg/helper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDistanceStrategy(t *testing.T) {
	tests := []struct {
		input    string
		expected DistanceStrategy
	}{
		{"cosine", DistanceStrategyCosine},
		{"COSINE", DistanceStrategyCosine},
		{"euclidean", DistanceStrategyEuclidean},
		{"EUCLIDEAN_DISTANCE", DistanceStrategyEuclidean},
		{"max_inner_product", DistanceStrategyMaxInnerProduct},
		{" MAX_INNER_PRODUCT ", DistanceStrategyMaxInnerProduct},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			strategy, err := ParseDistanceStrategy(test.input)
			require.NoError(t, err)
			assert.Equal(t, test.expected, strategy)
			assert.True(t, strategy.Valid())
		})
	}

	t.Run("Unsupported strategy", func(t *testing.T) {
		_, err := ParseDistanceStrategy("manhattan")
		require.Error(t, err)
		assert.ErrorIs(t, err, helper.ErrValidation)
	})
}

func TestDistanceStrategyOperatorClass(t *testing.T) {
	assert.Equal(t, "vector_cosine_ops", DistanceStrategyCosine.OperatorClass())
	assert.Equal(t, "vector_l2_ops", DistanceStrategyEuclidean.OperatorClass())
	assert.Equal(t, "vector_ip_ops", DistanceStrategyMaxInnerProduct.OperatorClass())
	assert.Equal(t, "<=>", DistanceStrategyCosine.Operator())
	assert.Equal(t, "<->", DistanceStrategyEuclidean.Operator())
	assert.Equal(t, "<#>", DistanceStrategyMaxInnerProduct.Operator())
	assert.False(t, DistanceStrategy("jaccard").Valid())
}
