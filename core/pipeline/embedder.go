package pipeline

import (
	"fmt"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/siherrmann/arkg/helper"
)

// DefaultEmbeddingModel produces 384-dimensional sentence embeddings
const DefaultEmbeddingModel = "KnightsAnalytics/all-MiniLM-L6-v2"

// DefaultEmbedder creates an embedder using the default sentence transformer model
func DefaultEmbedder() (EmbedFunc, error) {
	return NewEmbedder(DefaultEmbeddingModel)
}

// NewEmbedder creates an embedder from a sentence transformer model.
// The model is downloaded into helper.ModelDirectory on first use.
// The returned function is safe for concurrent use.
func NewEmbedder(modelName string) (EmbedFunc, error) {
	if modelName == "" {
		modelName = DefaultEmbeddingModel
	}

	// Prepare model (download if needed)
	modelPath, err := helper.PrepareModel(modelName)
	if err != nil {
		return nil, err
	}

	// Initialize hugot session with Go backend
	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "arkg-embedder",
	}
	sentencePipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create sentence pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create sentence pipeline: %w", err)
	}

	var mu sync.Mutex
	return func(text string) ([]float32, error) {
		mu.Lock()
		result, err := sentencePipeline.RunPipeline([]string{text})
		mu.Unlock()
		if err != nil {
			return nil, fmt.Errorf("failed to generate embedding: %w", err)
		}

		if len(result.Embeddings) == 0 {
			return nil, fmt.Errorf("no embedding generated")
		}

		return result.Embeddings[0], nil
	}, nil
}
