package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/siherrmann/arkg"
	"github.com/siherrmann/arkg/core/graph"
	"github.com/siherrmann/arkg/core/store"
	"github.com/siherrmann/arkg/helper"
	"github.com/siherrmann/arkg/model"
)

var articles = []struct {
	title   string
	summary string
}{
	{"Mouseion", "The Mouseion of Alexandria was a research institution founded by Ptolemy I Soter."},
	{"Library of Alexandria", "The Library of Alexandria was one of the largest libraries of the ancient world."},
	{"Sankoré Madrasah", "The Sankoré Madrasah is one of three ancient centers of learning in Timbuktu, Mali."},
	{"House of Wisdom", "The House of Wisdom was a public academy and intellectual center in Abbasid Baghdad."},
	{"Nalanda mahavihara", "Nalanda was a renowned Buddhist monastic university in ancient Magadha."},
}

const itemReviewedQuery = `PREFIX schema: <http://schema.org/>
SELECT ?title WHERE {
	?article schema:title "Mouseion" .
	?article schema:about ?item .
	?link schema:itemReviewed ?item .
	?link schema:about ?page .
	?page schema:title ?title
}`

func main() {
	ctx := context.Background()

	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(ctx)

	// Create database configuration using the container port
	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	outputDirectory, err := os.MkdirTemp("", "arkg-example")
	if err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}
	defer os.RemoveAll(outputDirectory)

	config := model.DefaultPipelineConfig()
	config.OutputDirectoryPath = outputDirectory
	config.CacheDirectoryPath = outputDirectory + "/cache"
	config.AntiRecommendationsLimit = 3
	config.Retrieval.DistanceStrategy = model.DistanceStrategyCosine
	config.Retrieval.ScoreThreshold = 0.1

	a, err := arkg.NewArkg(dbConfig, config)
	if err != nil {
		log.Fatalf("Failed to create arkg: %v", err)
	}
	defer a.Close()

	// Set up the default embedder (all-MiniLM-L6-v2, 384 dimensions)
	if err := a.UseDefaultEmbedder(); err != nil {
		log.Fatalf("Failed to set up embedder: %v", err)
	}

	records := make([]*model.Record, 0, len(articles))
	for _, article := range articles {
		record, err := model.NewRecord(article.title, "https://en.wikipedia.org/wiki/"+model.RecordKeyFromPromptFriendly(article.title), nil)
		if err != nil {
			log.Fatalf("Failed to create record: %v", err)
		}
		records = append(records, record.With(model.FieldSummary, article.summary))
	}

	fmt.Println("Indexing records...")
	if _, err := a.IndexRecords(ctx, records); err != nil {
		log.Fatalf("Failed to index records: %v", err)
	}

	set, err := a.RetrieveGraphs(ctx, records)
	if err != nil {
		log.Fatalf("Failed to retrieve anti-recommendations: %v", err)
	}
	for _, g := range set.Graphs {
		fmt.Printf("%s -> %v\n", g.RecordKey, g.AntiRecommendationKeys)
	}

	// Identifiers are looked up on Wikipedia, responses are cached
	fmt.Println("\nBuilding knowledge graph...")
	s, err := a.BuildGraph(ctx, set)
	if err != nil {
		log.Fatalf("Failed to build knowledge graph: %v", err)
	}

	paths, err := a.DumpGraphAll(s)
	if err != nil {
		log.Fatalf("Failed to dump knowledge graph: %v", err)
	}
	for _, path := range paths {
		fmt.Printf("Wrote %s\n", path)
	}

	result, err := s.Query(itemReviewedQuery)
	if err != nil {
		log.Fatalf("Failed to query knowledge graph: %v", err)
	}
	fmt.Println("\nAnti-recommendations of Mouseion:")
	for result.Next() {
		fmt.Printf("  - %s\n", result.Binding()["title"].Value)
	}
	result.Close()

	// Follow anti-recommendations two hops away
	fmt.Println("\nTraversal from Mouseion:")
	results, err := graph.BFS(ctx, s, store.NewIRI("https://en.wikipedia.org/wiki/Mouseion"), 2, false)
	if err != nil {
		log.Fatalf("Failed to traverse knowledge graph: %v", err)
	}
	for _, r := range results {
		fmt.Printf("  [%d] %s\n", r.Distance, r.Article.Value)
	}
}
