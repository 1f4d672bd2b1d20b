// Package graph turns anti-recommendation graphs into an RDF knowledge graph.
package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/siherrmann/arkg/core/store"
	"github.com/siherrmann/arkg/helper"
	"github.com/siherrmann/arkg/model"
	"github.com/siherrmann/arkg/vocabulary"
	"golang.org/x/sync/errgroup"
)

// SchemaVersion names the shape of the graphs written by Builder.
// It is recorded on every store the builder populates.
const SchemaVersion = "arkg-entity-linked/1"

// IdentifierResolver maps a record key to the IRI of its knowledge-base entity
type IdentifierResolver interface {
	Resolve(ctx context.Context, recordKey string) (string, error)
}

// Option configures a Builder
type Option func(*Builder)

// WithConcurrency bounds the number of concurrent lookups
func WithConcurrency(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithBaseURL sets the prefix of article nodes
func WithBaseURL(baseURL string) Option {
	return func(b *Builder) {
		b.baseURL = baseURL
	}
}

// WithNamespace sets the prefix of minted anti-recommendation link nodes
func WithNamespace(namespace string) Option {
	return func(b *Builder) {
		b.namespace = namespace
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// withIDs replaces the uuid source of link nodes
func withIDs(newID func() uuid.UUID) Option {
	return func(b *Builder) {
		b.newID = newID
	}
}

// Builder writes anti-recommendation graphs into a GraphStore.
//
// The identifiers of all subjects are looked up first, concurrently. Quads
// are only written once every lookup succeeded, in the order of the input.
type Builder struct {
	resolver    IdentifierResolver
	concurrency int
	baseURL     string
	namespace   string
	newID       func() uuid.UUID
	logger      *slog.Logger
}

// NewBuilder creates a builder. By default lookups run one at a time.
func NewBuilder(resolver IdentifierResolver, opts ...Option) (*Builder, error) {
	if resolver == nil {
		return nil, helper.NewValidationError("builder needs an identifier resolver")
	}

	b := &Builder{
		resolver:    resolver,
		concurrency: 1,
		baseURL:     vocabulary.WikipediaBaseURL,
		namespace:   vocabulary.ARKGNamespace,
		newID:       uuid.New,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}

	return b, nil
}

// Build returns a fresh store holding the knowledge graph of set
func (b *Builder) Build(ctx context.Context, set *model.AntiRecommendationGraphSet) (*store.GraphStore, error) {
	s := store.NewGraphStore(store.WithLogger(b.logger))
	err := b.BuildInto(ctx, set, s)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// BuildInto adds the knowledge graph of set to s.
// If a lookup fails nothing is added and the lookup error is returned.
func (b *Builder) BuildInto(ctx context.Context, set *model.AntiRecommendationGraphSet, s *store.GraphStore) error {
	if set == nil {
		return helper.NewValidationError("anti-recommendation graph set is nil")
	}
	if s == nil {
		return helper.NewValidationError("graph store is nil")
	}

	subjects := make([]string, 0, set.Len())
	seen := map[string]bool{}
	for i, graph := range set.Graphs {
		key := strings.TrimSpace(graph.RecordKey)
		if key == "" {
			return helper.NewValidationError("record key of graph %d is blank", i)
		}
		for _, antiRecommendationKey := range graph.AntiRecommendationKeys {
			if strings.TrimSpace(antiRecommendationKey) == "" {
				return helper.NewValidationError("graph %s has a blank anti-recommendation key", key)
			}
		}
		if !seen[key] {
			seen[key] = true
			subjects = append(subjects, key)
		}
	}

	identifiers, err := b.resolveAll(ctx, subjects)
	if err != nil {
		return err
	}

	var quads []store.Quad
	for _, graph := range set.Graphs {
		key := strings.TrimSpace(graph.RecordKey)
		quads = append(quads, b.graphQuads(key, identifiers[key], graph.AntiRecommendationKeys)...)
	}

	added, err := s.Add(quads...)
	if err != nil {
		return helper.NewError("add quads", err)
	}
	s.SetSchemaVersion(SchemaVersion)

	b.logger.Info("Built anti-recommendation knowledge graph", "graphs", set.Len(), "lookups", len(subjects), "quads", added)

	return nil
}

// resolveAll looks up every key on a bounded pool and fails on the first error
func (b *Builder) resolveAll(ctx context.Context, keys []string) (map[string]store.Term, error) {
	iris := make([]string, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, key := range keys {
		g.Go(func() error {
			iri, err := b.resolver.Resolve(gctx, key)
			if err != nil {
				if errors.Is(err, helper.ErrLookup) {
					return err
				}
				return helper.NewLookupError(key, err)
			}
			if strings.TrimSpace(iri) == "" {
				return helper.NewLookupError(key, fmt.Errorf("resolver returned an empty IRI"))
			}
			iris[i] = iri
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	identifiers := make(map[string]store.Term, len(keys))
	for i, key := range keys {
		identifiers[key] = store.NewIRI(iris[i])
	}
	return identifiers, nil
}

// ArticleIRI is the node of the article with key
func (b *Builder) ArticleIRI(key string) store.Term {
	return store.NewIRI(b.baseURL + key)
}

func (b *Builder) linkIRI() store.Term {
	return store.NewIRI(b.namespace + ":uuid:" + b.newID().String())
}

func (b *Builder) graphQuads(key string, kb store.Term, antiRecommendationKeys []string) []store.Quad {
	var (
		rdfType      = store.NewIRI(vocabulary.RDFType)
		title        = store.NewIRI(vocabulary.SchemaTitle)
		url          = store.NewIRI(vocabulary.SchemaURL)
		about        = store.NewIRI(vocabulary.SchemaAbout)
		itemReviewed = store.NewIRI(vocabulary.SchemaItemReviewed)
	)

	article := b.ArticleIRI(key)
	quads := []store.Quad{
		store.NewTriple(article, rdfType, store.NewIRI(vocabulary.SchemaArticle)),
		store.NewTriple(article, rdfType, store.NewIRI(vocabulary.SchemaWebPage)),
		store.NewTriple(article, title, store.NewLiteral(key)),
		store.NewTriple(article, store.NewIRI(vocabulary.SchemaName), store.NewLiteral(model.RecordKeyToPromptFriendly(key))),
		store.NewTriple(article, url, store.NewLiteral(article.Value)),
		store.NewTriple(article, store.NewIRI(vocabulary.SchemaInLanguage), store.NewLiteral(vocabulary.WikipediaLanguage)),
		store.NewTriple(article, store.NewIRI(vocabulary.SchemaIsPartOf), store.NewIRI(vocabulary.WikipediaSite)),
		store.NewTriple(article, about, kb),
		store.NewTriple(kb, rdfType, store.NewIRI(vocabulary.WikibaseItem)),
	}

	seen := map[string]bool{key: true}
	for _, antiRecommendationKey := range antiRecommendationKeys {
		antiRecommendationKey = strings.TrimSpace(antiRecommendationKey)
		if seen[antiRecommendationKey] {
			continue
		}
		seen[antiRecommendationKey] = true

		link := b.linkIRI()
		antiRecommended := b.ArticleIRI(antiRecommendationKey)
		quads = append(quads,
			store.NewTriple(link, rdfType, store.NewIRI(vocabulary.SchemaRecommendation)),
			store.NewTriple(link, itemReviewed, kb),
			store.NewTriple(link, about, antiRecommended),
			store.NewTriple(antiRecommended, rdfType, store.NewIRI(vocabulary.SchemaWebPage)),
			store.NewTriple(antiRecommended, title, store.NewLiteral(antiRecommendationKey)),
			store.NewTriple(antiRecommended, url, store.NewLiteral(antiRecommended.Value)),
		)
	}

	return quads
}
