package arkg

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/time/rate"

	"github.com/siherrmann/arkg/core/graph"
	"github.com/siherrmann/arkg/core/pipeline"
	"github.com/siherrmann/arkg/core/resolver"
	"github.com/siherrmann/arkg/core/retrieval"
	"github.com/siherrmann/arkg/core/store"
	"github.com/siherrmann/arkg/database"
	"github.com/siherrmann/arkg/helper"
	"github.com/siherrmann/arkg/model"
	loadSql "github.com/siherrmann/arkg/sql"
	"github.com/siherrmann/arkg/vocabulary"
)

const (
	// GraphFileBase is the file name of dumped knowledge graphs without extension
	GraphFileBase = "arkg"
	// GraphSetFileName is the file the retrieved anti-recommendation graphs are written to
	GraphSetFileName = "anti_recommendations.jsonl"
)

// Arkg wires the similarity index, the retriever, the identifier resolver and the graph builder
type Arkg struct {
	DB        *helper.Database
	Records   *database.RecordsDBHandler
	Pipeline  *pipeline.Pipeline // Embedding pipeline, set with SetEmbedder
	Index     *retrieval.PostgresIndex
	Retriever *retrieval.Retriever
	Config    model.PipelineConfig

	resolverOptions []resolver.Option
	// Logging
	log *slog.Logger
}

// New returns an unconnected Arkg. Building, dumping and loading graphs
// work without a database, indexing and retrieval need Connect.
func New(config model.PipelineConfig) (*Arkg, error) {
	err := config.Retrieval.Validate()
	if err != nil {
		return nil, err
	}

	return &Arkg{
		Config: config,
		log:    helper.NewLogger(os.Stdout, slog.LevelInfo),
	}, nil
}

// NewArkg connects to the database and prepares the records table.
// An embedder has to be set before records can be indexed or retrieved.
func NewArkg(dbConfig *helper.DatabaseConfiguration, config model.PipelineConfig) (*Arkg, error) {
	a, err := New(config)
	if err != nil {
		return nil, err
	}

	err = a.Connect(dbConfig)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Connect opens the database and creates the records handler
func (a *Arkg) Connect(dbConfig *helper.DatabaseConfiguration) error {
	db, err := helper.ConnectDatabase("arkg", dbConfig, a.log)
	if err != nil {
		return helper.NewError("connect database", err)
	}

	err = loadSql.Init(db.Instance)
	if err != nil {
		db.Instance.Close()
		return helper.NewError("initialize database extensions", err)
	}

	// force=false to not reload if functions already exist
	records, err := database.NewRecordsDBHandler(db, a.Config.EmbeddingDimension, false)
	if err != nil {
		db.Instance.Close()
		return helper.NewError("create records handler", err)
	}

	a.DB = db
	a.Records = records
	return nil
}

// Close closes the index and the database connection
func (a *Arkg) Close() error {
	if a.Index != nil {
		_ = a.Index.Close()
	}
	if a.DB != nil && a.DB.Instance != nil {
		return a.DB.Instance.Close()
	}
	return nil
}

// SetLogger replaces the logger of the facade and of everything it creates afterwards
func (a *Arkg) SetLogger(logger *slog.Logger) {
	if logger != nil {
		a.log = logger
	}
}

// SetResolverOptions sets the options every build opens its resolver with
func (a *Arkg) SetResolverOptions(opts ...resolver.Option) {
	a.resolverOptions = opts
}

// SetEmbedder sets up the embedding pipeline, the similarity index and the retriever
func (a *Arkg) SetEmbedder(embedder pipeline.EmbedFunc) error {
	if embedder == nil {
		return helper.NewValidationError("embedder is nil")
	}
	if a.Records == nil {
		return helper.NewError("set embedder", fmt.Errorf("database not connected, use Connect() first"))
	}

	index, err := retrieval.NewPostgresIndex(embedder, a.Records, vocabulary.WikipediaBaseURL)
	if err != nil {
		return helper.NewError("create similarity index", err)
	}

	retriever, err := retrieval.NewRetriever(index, a.Config.Retrieval, retrieval.WithLogger(a.log))
	if err != nil {
		return helper.NewError("create retriever", err)
	}

	p := pipeline.NewPipeline(embedder, a.Records)
	p.Logger = a.log

	if a.Index != nil {
		_ = a.Index.Close()
	}
	a.Pipeline = p
	a.Index = index
	a.Retriever = retriever
	return nil
}

// UseDefaultEmbedder sets up the pipeline with the configured hugot model
func (a *Arkg) UseDefaultEmbedder() error {
	embedder, err := pipeline.NewEmbedder(a.Config.EmbeddingModel)
	if err != nil {
		return helper.NewError("create default embedder", err)
	}
	return a.SetEmbedder(embedder)
}

// IndexRecords embeds the records and stores them in the similarity index
func (a *Arkg) IndexRecords(ctx context.Context, records []*model.Record) ([]*model.IndexedRecord, error) {
	if a.Pipeline == nil {
		return nil, helper.NewError("index records", fmt.Errorf("embedder not set, use SetEmbedder() first"))
	}
	return a.Pipeline.IndexRecords(ctx, records)
}

// ReadRecords reads the configured data files up to the records limit
func (a *Arkg) ReadRecords() ([]*model.Record, error) {
	paths := a.Config.DataFilePaths()
	if len(paths) == 0 {
		return nil, helper.NewValidationError("no data files configured")
	}

	records, err := pipeline.ReadRecordFiles(paths, a.Config.RecordsLimit)
	if err != nil {
		return nil, err
	}

	a.log.Info("Read records", slog.Int("count", len(records)), slog.Int("files", len(paths)))

	return records, nil
}

// Retrieve returns the anti-recommendations of recordKey
func (a *Arkg) Retrieve(ctx context.Context, recordKey string, k int) ([]model.AntiRecommendation, error) {
	if a.Retriever == nil {
		return nil, helper.NewError("retrieve", fmt.Errorf("embedder not set, use SetEmbedder() first"))
	}
	return a.Retriever.Retrieve(ctx, recordKey, k)
}

// RetrieveGraphs returns one anti-recommendation graph per record with the configured limit
func (a *Arkg) RetrieveGraphs(ctx context.Context, records []*model.Record) (*model.AntiRecommendationGraphSet, error) {
	if a.Retriever == nil {
		return nil, helper.NewError("retrieve graphs", fmt.Errorf("embedder not set, use SetEmbedder() first"))
	}
	return a.Retriever.RetrieveGraphs(ctx, records, a.Config.AntiRecommendationsLimit)
}

// BuildGraph builds the knowledge graph of set.
// The resolver cache is opened for the build and closed afterwards.
func (a *Arkg) BuildGraph(ctx context.Context, set *model.AntiRecommendationGraphSet) (*store.GraphStore, error) {
	r, err := resolver.New(a.Config.CacheDirectoryPath, a.lookupOptions()...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := r.Close(); err != nil {
			a.log.Warn("Error closing resolver cache", slog.String("error", err.Error()))
		}
	}()

	builder, err := graph.NewBuilder(r, graph.WithConcurrency(a.Config.LookupConcurrency), graph.WithLogger(a.log))
	if err != nil {
		return nil, helper.NewError("create builder", err)
	}

	return builder.Build(ctx, set)
}

// lookupOptions applies the configured lookup rate before the options of SetResolverOptions
func (a *Arkg) lookupOptions() []resolver.Option {
	opts := []resolver.Option{resolver.WithLogger(a.log)}
	if a.Config.LookupRate > 0 {
		opts = append(opts, resolver.WithRateLimit(rate.Limit(a.Config.LookupRate), max(a.Config.LookupBurst, 1)))
	}
	return append(opts, a.resolverOptions...)
}

// GraphPath is the path the knowledge graph is dumped to with the configured content type
func (a *Arkg) GraphPath() (string, error) {
	serialization, err := store.SerializationByContentType(a.Config.RDFContentType)
	if err != nil {
		return "", err
	}
	return filepath.Join(a.Config.OutputDirectoryPath, serialization.FileName(GraphFileBase)), nil
}

// DumpGraph writes s to the output directory with the configured content type
func (a *Arkg) DumpGraph(s *store.GraphStore) (string, error) {
	path, err := a.GraphPath()
	if err != nil {
		return "", err
	}

	err = s.Dump(path, a.Config.RDFContentType)
	if err != nil {
		return "", err
	}
	return path, nil
}

// DumpGraphAll writes s once per supported serialization to the output directory
func (a *Arkg) DumpGraphAll(s *store.GraphStore) ([]string, error) {
	return store.DumpAll(s, a.Config.OutputDirectoryPath, GraphFileBase)
}

// LoadGraph opens the knowledge graph previously dumped with the configured content type
func (a *Arkg) LoadGraph() (*store.GraphStore, error) {
	path, err := a.GraphPath()
	if err != nil {
		return nil, err
	}
	serialization, err := store.SerializationByContentType(a.Config.RDFContentType)
	if err != nil {
		return nil, err
	}
	return store.OpenGraphStore(store.Descriptor{Path: path, Serialization: serialization}, store.WithLogger(a.log))
}

// WriteGraphSet writes set to the output directory
func (a *Arkg) WriteGraphSet(set *model.AntiRecommendationGraphSet) (string, error) {
	path := filepath.Join(a.Config.OutputDirectoryPath, GraphSetFileName)
	err := pipeline.WriteGraphSet(path, set)
	if err != nil {
		return "", err
	}
	return path, nil
}

// ReadGraphSet reads the anti-recommendation graphs written by WriteGraphSet
func (a *Arkg) ReadGraphSet() (*model.AntiRecommendationGraphSet, error) {
	return pipeline.ReadGraphSet(filepath.Join(a.Config.OutputDirectoryPath, GraphSetFileName))
}

// Run executes the whole pipeline on the configured data files:
// 1. Retrieving the anti-recommendation graph of every record
// 2. Writing the graphs to the output directory
// 3. Building the knowledge graph and dumping it
// The records have to be indexed before.
func (a *Arkg) Run(ctx context.Context) (*store.GraphStore, error) {
	records, err := a.ReadRecords()
	if err != nil {
		return nil, err
	}

	set, err := a.RetrieveGraphs(ctx, records)
	if err != nil {
		return nil, err
	}

	_, err = a.WriteGraphSet(set)
	if err != nil {
		return nil, err
	}

	s, err := a.BuildGraph(ctx, set)
	if err != nil {
		return nil, err
	}

	_, err = a.DumpGraph(s)
	if err != nil {
		return nil, err
	}

	return s, nil
}

// ChangeIndexType changes the vector index type between HNSW and IVFFlat
// for the configured distance strategy
func (a *Arkg) ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error {
	if a.Records == nil {
		return helper.NewError("change index type", fmt.Errorf("database not connected, use Connect() first"))
	}
	return a.Records.ChangeIndexType(ctx, indexType, a.Config.Retrieval.DistanceStrategy, params)
}
