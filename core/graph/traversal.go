package graph

import (
	"context"

	"github.com/siherrmann/arkg/core/store"
	"github.com/siherrmann/arkg/helper"
	"github.com/siherrmann/arkg/vocabulary"
)

// QuadMatcher is the read side of a graph store
type QuadMatcher interface {
	Match(subject, predicate, object, graph store.Term) []store.Quad
}

// TraversalResult contains an article node and its distance from the source
type TraversalResult struct {
	Article  store.Term
	Distance int
	Path     []store.Term // Path from source to this article
}

// AntiRecommendationsOf returns the articles anti-recommended for article, in insertion order.
// With reverse it returns the articles that anti-recommend article instead.
func AntiRecommendationsOf(g QuadMatcher, article store.Term, reverse bool) []store.Term {
	about := store.NewIRI(vocabulary.SchemaAbout)
	itemReviewed := store.NewIRI(vocabulary.SchemaItemReviewed)

	var targets []store.Term
	seen := map[store.Term]bool{article: true}
	add := func(t store.Term) {
		if t.IsIRI() && !seen[t] {
			seen[t] = true
			targets = append(targets, t)
		}
	}

	if !reverse {
		// article -about-> entity <-itemReviewed- link -about-> target
		for _, entity := range g.Match(article, about, store.Term{}, store.Term{}) {
			for _, link := range g.Match(store.Term{}, itemReviewed, entity.Object, store.Term{}) {
				for _, target := range g.Match(link.Subject, about, store.Term{}, store.Term{}) {
					add(target.Object)
				}
			}
		}
		return targets
	}

	// article <-about- link -itemReviewed-> entity <-about- source
	for _, link := range g.Match(store.Term{}, about, article, store.Term{}) {
		for _, entity := range g.Match(link.Subject, itemReviewed, store.Term{}, store.Term{}) {
			for _, source := range g.Match(store.Term{}, about, entity.Object, store.Term{}) {
				if isLink(g, source.Subject) {
					continue
				}
				add(source.Subject)
			}
		}
	}
	return targets
}

// isLink reports whether node is a minted anti-recommendation node
func isLink(g QuadMatcher, node store.Term) bool {
	return len(g.Match(node, store.NewIRI(vocabulary.RDFType), store.NewIRI(vocabulary.SchemaRecommendation), store.Term{})) > 0
}

func checkSource(g QuadMatcher, source store.Term) error {
	if !source.IsIRI() {
		return helper.NewValidationError("source must be an IRI, got %s", source.String())
	}
	if len(g.Match(source, store.Term{}, store.Term{}, store.Term{})) == 0 && len(g.Match(store.Term{}, store.Term{}, source, store.Term{})) == 0 {
		return helper.NewValidationError("source %s is not in the graph", source.String())
	}
	return nil
}

// BFS performs breadth-first search over anti-recommendation links from a source article
func BFS(ctx context.Context, g QuadMatcher, source store.Term, maxHops int, reverse bool) ([]*TraversalResult, error) {
	if err := checkSource(g, source); err != nil {
		return nil, err
	}

	visited := map[store.Term]bool{source: true}
	queue := []TraversalResult{{
		Article:  source,
		Distance: 0,
		Path:     []store.Term{source},
	}}

	var results []*TraversalResult
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, helper.NewError("traverse", err)
		}

		current := queue[0]
		queue = queue[1:]

		results = append(results, &current)

		// Stop if we've reached max hops
		if current.Distance >= maxHops {
			continue
		}

		for _, target := range AntiRecommendationsOf(g, current.Article, reverse) {
			if visited[target] {
				continue
			}
			visited[target] = true

			newPath := make([]store.Term, len(current.Path), len(current.Path)+1)
			copy(newPath, current.Path)
			newPath = append(newPath, target)

			queue = append(queue, TraversalResult{
				Article:  target,
				Distance: current.Distance + 1,
				Path:     newPath,
			})
		}
	}

	return results, nil
}

// DFS performs depth-first search over anti-recommendation links from a source article
func DFS(ctx context.Context, g QuadMatcher, source store.Term, maxHops int, reverse bool) ([]*TraversalResult, error) {
	if err := checkSource(g, source); err != nil {
		return nil, err
	}

	var results []*TraversalResult
	err := dfsRecursive(ctx, g, source, 0, maxHops, []store.Term{source}, reverse, map[store.Term]bool{}, &results)
	if err != nil {
		return nil, err
	}
	return results, nil
}

func dfsRecursive(
	ctx context.Context,
	g QuadMatcher,
	current store.Term,
	distance int,
	maxHops int,
	path []store.Term,
	reverse bool,
	visited map[store.Term]bool,
	results *[]*TraversalResult,
) error {
	if err := ctx.Err(); err != nil {
		return helper.NewError("traverse", err)
	}

	visited[current] = true

	pathCopy := make([]store.Term, len(path))
	copy(pathCopy, path)
	*results = append(*results, &TraversalResult{
		Article:  current,
		Distance: distance,
		Path:     pathCopy,
	})

	if distance >= maxHops {
		return nil
	}

	for _, target := range AntiRecommendationsOf(g, current, reverse) {
		if visited[target] {
			continue
		}

		newPath := make([]store.Term, len(path), len(path)+1)
		copy(newPath, path)
		newPath = append(newPath, target)

		err := dfsRecursive(ctx, g, target, distance+1, maxHops, newPath, reverse, visited, results)
		if err != nil {
			return err
		}
	}
	return nil
}

// GetNeighbors retrieves the articles one anti-recommendation away from article
func GetNeighbors(ctx context.Context, g QuadMatcher, article store.Term, reverse bool) ([]store.Term, error) {
	results, err := BFS(ctx, g, article, 1, reverse)
	if err != nil {
		return nil, err
	}

	// Skip the source itself (first result)
	neighbors := make([]store.Term, 0, len(results)-1)
	for i := 1; i < len(results); i++ {
		neighbors = append(neighbors, results[i].Article)
	}

	return neighbors, nil
}
