package graph

import (
	"context"
	"testing"

	"github.com/siherrmann/arkg/core/store"
	"github.com/siherrmann/arkg/helper"
	"github.com/siherrmann/arkg/model"
	"github.com/siherrmann/arkg/vocabulary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func article(key string) store.Term {
	return store.NewIRI(vocabulary.WikipediaBaseURL + key)
}

// Mouseion -> Sankoré_Madrasah -> House_of_Wisdom
// Mouseion -> Library_of_Alexandria -> Mouseion
func setupTraversalGraph(t *testing.T) *store.GraphStore {
	builder, err := NewBuilder(&fakeResolver{})
	require.NoError(t, err)

	s, err := builder.Build(context.Background(), graphSet(
		model.NewAntiRecommendationGraphFromKeys("Mouseion", []string{"Sankoré_Madrasah", "Library_of_Alexandria"}),
		model.NewAntiRecommendationGraphFromKeys("Sankoré_Madrasah", []string{"House_of_Wisdom"}),
		model.NewAntiRecommendationGraphFromKeys("Library_of_Alexandria", []string{"Mouseion"}),
	))
	require.NoError(t, err)
	return s
}

func articles(results []*TraversalResult) []store.Term {
	terms := make([]store.Term, len(results))
	for i, result := range results {
		terms[i] = result.Article
	}
	return terms
}

func TestAntiRecommendationsOf(t *testing.T) {
	g := setupTraversalGraph(t)

	assert.Equal(t, []store.Term{article("Sankoré_Madrasah"), article("Library_of_Alexandria")}, AntiRecommendationsOf(g, article("Mouseion"), false))
	assert.Equal(t, []store.Term{article("House_of_Wisdom")}, AntiRecommendationsOf(g, article("Sankoré_Madrasah"), false))
	assert.Empty(t, AntiRecommendationsOf(g, article("House_of_Wisdom"), false), "Expected leaf articles to have no anti-recommendations")

	assert.Equal(t, []store.Term{article("Library_of_Alexandria")}, AntiRecommendationsOf(g, article("Mouseion"), true))
	assert.Equal(t, []store.Term{article("Sankoré_Madrasah")}, AntiRecommendationsOf(g, article("House_of_Wisdom"), true))
}

func TestBFS(t *testing.T) {
	g := setupTraversalGraph(t)

	t.Run("Forward two hops", func(t *testing.T) {
		results, err := BFS(context.Background(), g, article("Mouseion"), 2, false)
		require.NoError(t, err)
		assert.Equal(t, []store.Term{
			article("Mouseion"),
			article("Sankoré_Madrasah"),
			article("Library_of_Alexandria"),
			article("House_of_Wisdom"),
		}, articles(results))

		assert.Equal(t, 0, results[0].Distance)
		assert.Equal(t, 1, results[1].Distance)
		assert.Equal(t, 2, results[3].Distance)
		assert.Equal(t, []store.Term{article("Mouseion"), article("Sankoré_Madrasah"), article("House_of_Wisdom")}, results[3].Path)
	})

	t.Run("Max hops limits depth", func(t *testing.T) {
		results, err := BFS(context.Background(), g, article("Mouseion"), 1, false)
		require.NoError(t, err)
		assert.Len(t, results, 3)

		results, err = BFS(context.Background(), g, article("Mouseion"), 0, false)
		require.NoError(t, err)
		assert.Equal(t, []store.Term{article("Mouseion")}, articles(results))
	})

	t.Run("Reverse", func(t *testing.T) {
		results, err := BFS(context.Background(), g, article("House_of_Wisdom"), 3, true)
		require.NoError(t, err)
		assert.Equal(t, []store.Term{
			article("House_of_Wisdom"),
			article("Sankoré_Madrasah"),
			article("Mouseion"),
			article("Library_of_Alexandria"),
		}, articles(results))
	})

	t.Run("Cycles are visited once", func(t *testing.T) {
		results, err := BFS(context.Background(), g, article("Library_of_Alexandria"), 10, false)
		require.NoError(t, err)
		assert.Len(t, results, 4)
	})

	t.Run("Invalid source", func(t *testing.T) {
		_, err := BFS(context.Background(), g, store.NewLiteral("Mouseion"), 1, false)
		assert.ErrorIs(t, err, helper.ErrValidation)

		_, err = BFS(context.Background(), g, article("Timbuktu"), 1, false)
		assert.ErrorIs(t, err, helper.ErrValidation)
	})

	t.Run("Cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := BFS(ctx, g, article("Mouseion"), 2, false)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestDFS(t *testing.T) {
	g := setupTraversalGraph(t)

	t.Run("Forward two hops", func(t *testing.T) {
		results, err := DFS(context.Background(), g, article("Mouseion"), 2, false)
		require.NoError(t, err)
		assert.Equal(t, []store.Term{
			article("Mouseion"),
			article("Sankoré_Madrasah"),
			article("House_of_Wisdom"),
			article("Library_of_Alexandria"),
		}, articles(results))
		assert.Equal(t, 2, results[2].Distance)
		assert.Equal(t, 1, results[3].Distance)
	})

	t.Run("Max hops limits depth", func(t *testing.T) {
		results, err := DFS(context.Background(), g, article("Mouseion"), 1, false)
		require.NoError(t, err)
		assert.Equal(t, []store.Term{
			article("Mouseion"),
			article("Sankoré_Madrasah"),
			article("Library_of_Alexandria"),
		}, articles(results))
	})

	t.Run("Invalid source", func(t *testing.T) {
		_, err := DFS(context.Background(), g, article("Timbuktu"), 1, false)
		assert.ErrorIs(t, err, helper.ErrValidation)
	})

	t.Run("Cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := DFS(ctx, g, article("Mouseion"), 2, false)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestGetNeighbors(t *testing.T) {
	g := setupTraversalGraph(t)

	neighbors, err := GetNeighbors(context.Background(), g, article("Mouseion"), false)
	require.NoError(t, err)
	assert.Equal(t, []store.Term{article("Sankoré_Madrasah"), article("Library_of_Alexandria")}, neighbors)

	neighbors, err = GetNeighbors(context.Background(), g, article("House_of_Wisdom"), false)
	require.NoError(t, err)
	assert.Empty(t, neighbors)

	neighbors, err = GetNeighbors(context.Background(), g, article("Mouseion"), true)
	require.NoError(t, err)
	assert.Equal(t, []store.Term{article("Library_of_Alexandria")}, neighbors)
}
