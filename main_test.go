package arkg

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/siherrmann/arkg/core/resolver"
	"github.com/siherrmann/arkg/helper"
	"github.com/siherrmann/arkg/model"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
)

var dbPort string

func TestMain(m *testing.M) {
	var teardown func(ctx context.Context, opts ...testcontainers.TerminateOption) error
	var err error
	teardown, dbPort, err = helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("error starting postgres container: %v", err)
	}

	m.Run()

	if teardown != nil && teardown(context.Background()) != nil {
		log.Fatalf("error tearing down postgres container: %v", err)
	}
}

var testEmbeddings = map[string][]float32{
	"Mouseion":              {1, 0, 0},
	"Library_of_Alexandria": {1, 0.2, 0},
	"Sankoré_Madrasah":      {0.5, 1, 0},
	"House_of_Wisdom":       {0.2, 0, 1},
}

var testIdentifiers = map[string]string{
	"Mouseion":              "Q684645",
	"Library_of_Alexandria": "Q435",
	"Sankoré_Madrasah":      "Q1247216",
	"House_of_Wisdom":       "Q756153",
}

const testRecords = `{"type":"SCHEMA","stream":"wikipedia","schema":{}}
{"type":"RECORD","stream":"wikipedia","record":{"abstract_info":{"title":"Mouseion","url":"https://en.wikipedia.org/wiki/Mouseion"}}}
{"type":"RECORD","stream":"wikipedia","record":{"abstract_info":{"title":"Library of Alexandria","url":"https://en.wikipedia.org/wiki/Library_of_Alexandria"}}}
{"type":"RECORD","stream":"wikipedia","record":{"abstract_info":{"title":"Sankoré Madrasah","url":"https://en.wikipedia.org/wiki/Sankor%C3%A9_Madrasah"}}}
{"type":"RECORD","stream":"wikipedia","record":{"abstract_info":{"title":"House of Wisdom","url":"https://en.wikipedia.org/wiki/House_of_Wisdom"}}}
`

// testEmbedder embeds records and queries like the record whose prompt friendly key they end with
func testEmbedder(text string) ([]float32, error) {
	for key, embedding := range testEmbeddings {
		if strings.HasSuffix(text, model.RecordKeyToPromptFriendly(key)) {
			return embedding, nil
		}
	}
	return nil, errors.New("unknown text")
}

// newTestAPI serves page properties for the keys of testIdentifiers
func newTestAPI(t *testing.T, requests *atomic.Int32) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		title := r.URL.Query().Get("titles")

		w.Header().Set("Content-Type", "application/json")
		identifier, ok := testIdentifiers[title]
		if !ok {
			fmt.Fprintf(w, `{"query":{"pages":{"-1":{"ns":0,"title":%q,"missing":""}}}}`, title)
			return
		}
		fmt.Fprintf(w, `{"batchcomplete":"","query":{"pages":{"1":{"pageid":1,"ns":0,"title":%q,"pageprops":{"wikibase_item":%q}}}}}`, title, identifier)
	}))
	t.Cleanup(server.Close)
	return server
}

func testConfig(t *testing.T) model.PipelineConfig {
	directory := t.TempDir()
	err := os.WriteFile(filepath.Join(directory, "records.jsonl"), []byte(testRecords), 0600)
	require.NoError(t, err)

	config := model.DefaultPipelineConfig()
	config.DataDirectoryPath = directory
	config.DataFileNames = []string{"records.jsonl"}
	config.OutputDirectoryPath = filepath.Join(directory, "output")
	config.CacheDirectoryPath = filepath.Join(directory, "cache")
	config.Retrieval = model.RetrievalConfig{
		DistanceStrategy: model.DistanceStrategyCosine,
		ScoreThreshold:   0.3,
	}
	config.EmbeddingDimension = 3
	config.LookupConcurrency = 2
	return config
}

func initArkg(t *testing.T, config model.PipelineConfig) *Arkg {
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err, "failed to create database configuration")

	a, err := NewArkg(dbConfig, config)
	require.NoError(t, err, "failed to create arkg")
	a.SetLogger(helper.NewLogger(os.Stdout, -4))

	t.Cleanup(func() {
		a.Close()
	})
	return a
}

// initIndexedArkg indexes the test records and points the resolver at a test API
func initIndexedArkg(t *testing.T, requests *atomic.Int32) *Arkg {
	a := initArkg(t, testConfig(t))
	require.NoError(t, a.SetEmbedder(testEmbedder))

	server := newTestAPI(t, requests)
	a.SetResolverOptions(resolver.WithEndpoint(server.URL), resolver.WithHTTPClient(server.Client()))

	records, err := a.ReadRecords()
	require.NoError(t, err)
	indexed, err := a.IndexRecords(context.Background(), records)
	require.NoError(t, err)

	t.Cleanup(func() {
		for _, record := range indexed {
			_ = a.Records.DeleteRecord(context.Background(), record.RID)
		}
	})
	return a
}
