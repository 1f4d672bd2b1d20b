package graph

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/siherrmann/arkg/helper"
	"github.com/siherrmann/arkg/model"
	"github.com/siherrmann/arkg/vocabulary"
)

var testIdentifiers = map[string]string{
	"Mouseion":              "Q684645",
	"Sankoré_Madrasah":      "Q1247216",
	"Library_of_Alexandria": "Q435",
	"House_of_Wisdom":       "Q756153",
}

// fakeResolver resolves the keys of testIdentifiers and records its calls
type fakeResolver struct {
	mu       sync.Mutex
	calls    []string
	failOn   string
	failWith error
	delay    time.Duration
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *fakeResolver) Resolve(ctx context.Context, recordKey string) (string, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, recordKey)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", helper.NewLookupError(recordKey, ctx.Err())
		}
	}

	if recordKey == f.failOn {
		if f.failWith != nil {
			return "", f.failWith
		}
		return "", helper.NewLookupError(recordKey, errors.New("page has no wikibase item"))
	}
	identifier, ok := testIdentifiers[recordKey]
	if !ok {
		return "", helper.NewLookupError(recordKey, errors.New("unknown page"))
	}
	return vocabulary.WikidataEntityNamespace + identifier, nil
}

func graphSet(graphs ...model.AntiRecommendationGraph) *model.AntiRecommendationGraphSet {
	set := &model.AntiRecommendationGraphSet{}
	for _, graph := range graphs {
		set.Add(graph)
	}
	return set
}
