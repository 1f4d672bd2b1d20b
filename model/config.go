package model

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/siherrmann/arkg/helper"
)

// RetrievalConfig is injected into the retriever
type RetrievalConfig struct {
	DistanceStrategy DistanceStrategy `json:"distance_strategy"`
	ScoreThreshold   float64          `json:"score_threshold"`
}

// DefaultRetrievalConfig returns euclidean distance with a threshold of 0.5
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		DistanceStrategy: DistanceStrategyEuclidean,
		ScoreThreshold:   0.5,
	}
}

// Validate checks the strategy and the threshold
func (c RetrievalConfig) Validate() error {
	if !c.DistanceStrategy.Valid() {
		return helper.NewValidationError("unsupported distance strategy %q", c.DistanceStrategy)
	}
	if c.ScoreThreshold < 0 || c.ScoreThreshold > 1 {
		return helper.NewValidationError("score threshold must be within [0, 1], got %v", c.ScoreThreshold)
	}
	return nil
}

// PipelineConfig holds the settings of a pipeline run
type PipelineConfig struct {
	DataDirectoryPath        string          `json:"data_directory_path"`
	DataFileNames            []string        `json:"data_file_names"`
	RecordsLimit             int             `json:"records_limit"`
	OutputDirectoryPath      string          `json:"output_directory_path"`
	CacheDirectoryPath       string          `json:"cache_directory_path"`
	Retrieval                RetrievalConfig `json:"retrieval"`
	AntiRecommendationsLimit int             `json:"anti_recommendations_limit"`
	RDFContentType           string          `json:"rdf_content_type"`
	LookupConcurrency        int             `json:"lookup_concurrency"`
	LookupRate               float64         `json:"lookup_rate"`  // Lookups per second, 0 is unlimited
	LookupBurst              int             `json:"lookup_burst"` // Lookups allowed at once under LookupRate
	EmbeddingDimension       int             `json:"embedding_dimension"`
	EmbeddingModel           string          `json:"embedding_model"`
}

// DefaultPipelineConfig returns the defaults used when no environment is set
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		DataDirectoryPath:        "data",
		OutputDirectoryPath:      "output",
		CacheDirectoryPath:       "cache",
		Retrieval:                DefaultRetrievalConfig(),
		AntiRecommendationsLimit: 7,
		RDFContentType:           "text/turtle",
		LookupConcurrency:        1,
		LookupBurst:              1,
		EmbeddingDimension:       384,
		EmbeddingModel:           "KnightsAnalytics/all-MiniLM-L6-v2",
	}
}

// NewPipelineConfig reads the pipeline configuration from ARKG_* environment variables.
// A .env file in the working directory is loaded first if it exists.
func NewPipelineConfig() (*PipelineConfig, error) {
	_ = godotenv.Load()

	config := DefaultPipelineConfig()

	if v, ok := lookupEnv("ARKG_DATA_DIRECTORY_PATH"); ok {
		config.DataDirectoryPath = v
	}
	if v, ok := lookupEnv("ARKG_DATA_FILE_NAMES"); ok {
		var names []string
		if err := json.Unmarshal([]byte(v), &names); err != nil {
			return nil, helper.NewValidationError("ARKG_DATA_FILE_NAMES must be a JSON list of strings: %v", err)
		}
		config.DataFileNames = names
	}
	if v, ok := lookupEnv("ARKG_OUTPUT_DIRECTORY_PATH"); ok {
		config.OutputDirectoryPath = v
	}
	if v, ok := lookupEnv("ARKG_CACHE_DIRECTORY_PATH"); ok {
		config.CacheDirectoryPath = v
	}
	if v, ok := lookupEnv("ARKG_DISTANCE_STRATEGY"); ok {
		strategy, err := ParseDistanceStrategy(v)
		if err != nil {
			return nil, err
		}
		config.Retrieval.DistanceStrategy = strategy
	}
	if v, ok := lookupEnv("ARKG_SCORE_THRESHOLD"); ok {
		threshold, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, helper.NewValidationError("ARKG_SCORE_THRESHOLD must be a number: %v", err)
		}
		config.Retrieval.ScoreThreshold = threshold
	}
	if v, ok := lookupEnv("ARKG_LOOKUP_RATE"); ok {
		lookupRate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, helper.NewValidationError("ARKG_LOOKUP_RATE must be a number: %v", err)
		}
		if lookupRate < 0 {
			return nil, helper.NewValidationError("ARKG_LOOKUP_RATE must not be negative, got %v", lookupRate)
		}
		config.LookupRate = lookupRate
	}
	if v, ok := lookupEnv("ARKG_RDF_CONTENT_TYPE"); ok {
		config.RDFContentType = v
	}
	if v, ok := lookupEnv("ARKG_EMBEDDING_MODEL"); ok {
		config.EmbeddingModel = v
	}

	ints := []struct {
		name   string
		target *int
		min    int
	}{
		{"ARKG_RECORDS_LIMIT", &config.RecordsLimit, 0},
		{"ARKG_ANTI_RECOMMENDATIONS_LIMIT", &config.AntiRecommendationsLimit, 1},
		{"ARKG_LOOKUP_CONCURRENCY", &config.LookupConcurrency, 1},
		{"ARKG_LOOKUP_BURST", &config.LookupBurst, 1},
		{"ARKG_EMBEDDING_DIMENSION", &config.EmbeddingDimension, 1},
	}
	for _, i := range ints {
		v, ok := lookupEnv(i.name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, helper.NewValidationError("%s must be an integer: %v", i.name, err)
		}
		if n < i.min {
			return nil, helper.NewValidationError("%s must be at least %d, got %d", i.name, i.min, n)
		}
		*i.target = n
	}

	if err := config.Retrieval.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// DataFilePaths joins the data directory with every configured file name
func (c *PipelineConfig) DataFilePaths() []string {
	paths := make([]string, 0, len(c.DataFileNames))
	for _, name := range c.DataFileNames {
		paths = append(paths, filepath.Join(c.DataDirectoryPath, name))
	}
	return paths
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}
