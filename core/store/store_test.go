package store

import (
	"sync"
	"testing"

	"github.com/siherrmann/arkg/vocabulary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGraphStore(t *testing.T) {
	s := NewGraphStore()

	assert.Equal(t, OriginFresh, s.Origin())
	assert.Equal(t, 0, s.Len())
	_, ok := s.Descriptor()
	assert.False(t, ok, "Expected a fresh store to have no descriptor")
}

func TestGraphStoreAdd(t *testing.T) {
	t.Run("Add keeps insertion order", func(t *testing.T) {
		s := testStore(t)
		assert.Equal(t, testQuads(), s.Quads())
	})

	t.Run("Add is idempotent", func(t *testing.T) {
		s := testStore(t)

		added, err := s.Add(testQuads()...)
		require.NoError(t, err)
		assert.Equal(t, 0, added, "Expected duplicate quads to be ignored")
		assert.Equal(t, len(testQuads()), s.Len())
	})

	t.Run("Same triple in another graph is a new quad", func(t *testing.T) {
		s := testStore(t)

		q := testQuads()[0]
		q.Graph = NewIRI(namedGraph)
		added, err := s.Add(q)
		require.NoError(t, err)
		assert.Equal(t, 1, added)
		assert.Equal(t, []Term{NewIRI(namedGraph)}, s.Graphs())
	})

	t.Run("Invalid quad adds nothing", func(t *testing.T) {
		s := NewGraphStore()

		_, err := s.Add(testQuads()[0], NewTriple(NewLiteral("subject"), NewIRI(vocabulary.SchemaTitle), NewLiteral("x")))
		assert.Error(t, err)
		assert.Equal(t, 0, s.Len())
	})

	t.Run("Concurrent adds", func(t *testing.T) {
		s := NewGraphStore()

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = s.Add(testQuads()...)
			}()
		}
		wg.Wait()

		assert.Equal(t, len(testQuads()), s.Len())
	})
}

func TestGraphStoreMatch(t *testing.T) {
	s := testStore(t)

	t.Run("Match by subject", func(t *testing.T) {
		matches := s.Match(NewIRI(linkIRI), Term{}, Term{}, Term{})
		assert.Len(t, matches, 3)
	})

	t.Run("Match by predicate and object", func(t *testing.T) {
		matches := s.Match(Term{}, NewIRI(vocabulary.SchemaItemReviewed), NewIRI(mouseionKB), Term{})
		require.Len(t, matches, 1)
		assert.Equal(t, NewIRI(linkIRI), matches[0].Subject)
	})

	t.Run("Match by unknown graph", func(t *testing.T) {
		assert.Empty(t, s.Match(Term{}, Term{}, Term{}, NewIRI(namedGraph)))
	})

	t.Run("Contains", func(t *testing.T) {
		assert.True(t, s.Contains(testQuads()[2]))
		assert.False(t, s.Contains(NewTriple(NewIRI(mouseionIRI), NewIRI(vocabulary.SchemaTitle), NewLiteral("Other"))))
	})
}

func TestGraphStoreSchemaVersionAndClear(t *testing.T) {
	s := testStore(t)

	s.SetSchemaVersion("2")
	assert.Equal(t, "2", s.SchemaVersion())

	s.Clear()
	assert.Equal(t, 0, s.Len())
	added, err := s.Add(testQuads()[0])
	require.NoError(t, err)
	assert.Equal(t, 1, added, "Expected the index to be cleared too")
}
