package model

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/siherrmann/arkg/helper"
)

// AntiRecommendation is a record that is dissimilar but related to another record
type AntiRecommendation struct {
	Key             string  `json:"key"`
	Content         string  `json:"content"`
	SimilarityScore float64 `json:"similarity_score"`
}

// ScoredDocument is a match returned by a similarity index.
// Source is the base url followed by the record key.
type ScoredDocument struct {
	Content string  `json:"content"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
}

// AntiRecommendationGraph links a record to its anti-recommendations in retrieval order.
type AntiRecommendationGraph struct {
	RecordKey              string
	AntiRecommendationKeys []string
}

// NewAntiRecommendationGraph keeps the order of the anti-recommendations
// and drops the record itself as well as duplicate keys.
func NewAntiRecommendationGraph(recordKey string, antiRecommendations []AntiRecommendation) AntiRecommendationGraph {
	keys := make([]string, 0, len(antiRecommendations))
	for _, a := range antiRecommendations {
		keys = append(keys, a.Key)
	}
	return NewAntiRecommendationGraphFromKeys(recordKey, keys)
}

// NewAntiRecommendationGraphFromKeys is NewAntiRecommendationGraph for plain keys
func NewAntiRecommendationGraphFromKeys(recordKey string, keys []string) AntiRecommendationGraph {
	seen := map[string]bool{recordKey: true}
	filtered := make([]string, 0, len(keys))
	for _, key := range keys {
		if seen[key] {
			continue
		}
		seen[key] = true
		filtered = append(filtered, key)
	}

	return AntiRecommendationGraph{
		RecordKey:              recordKey,
		AntiRecommendationKeys: filtered,
	}
}

// MarshalJSON encodes the graph as [record_key, [anti_recommendation_keys...]]
func (g AntiRecommendationGraph) MarshalJSON() ([]byte, error) {
	keys := g.AntiRecommendationKeys
	if keys == nil {
		keys = []string{}
	}
	return json.Marshal([]interface{}{g.RecordKey, keys})
}

// UnmarshalJSON decodes the [record_key, [anti_recommendation_keys...]] form
func (g *AntiRecommendationGraph) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return helper.NewValidationError("anti-recommendation graph must have 2 elements, got %d", len(raw))
	}

	var recordKey string
	if err := json.Unmarshal(raw[0], &recordKey); err != nil {
		return err
	}
	var keys []string
	if err := json.Unmarshal(raw[1], &keys); err != nil {
		return err
	}
	if recordKey == "" {
		return helper.NewValidationError("anti-recommendation graph record key must not be blank")
	}

	*g = NewAntiRecommendationGraphFromKeys(recordKey, keys)
	return nil
}

// AntiRecommendationGraphSet holds one graph per input record in insertion order.
type AntiRecommendationGraphSet struct {
	Graphs []AntiRecommendationGraph
}

// Add appends a graph to the set
func (s *AntiRecommendationGraphSet) Add(graph AntiRecommendationGraph) {
	s.Graphs = append(s.Graphs, graph)
}

// Len returns the number of graphs
func (s *AntiRecommendationGraphSet) Len() int {
	return len(s.Graphs)
}

// WriteJSONLines writes one graph per line
func (s *AntiRecommendationGraphSet) WriteJSONLines(w io.Writer) error {
	encoder := json.NewEncoder(w)
	for _, graph := range s.Graphs {
		if err := encoder.Encode(graph); err != nil {
			return helper.NewError(fmt.Sprintf("encode graph %s", graph.RecordKey), err)
		}
	}
	return nil
}

// ReadAntiRecommendationGraphSet reads graphs written by WriteJSONLines.
// Empty lines are skipped.
func ReadAntiRecommendationGraphSet(r io.Reader) (*AntiRecommendationGraphSet, error) {
	set := &AntiRecommendationGraphSet{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		b := bytes.TrimSpace(scanner.Bytes())
		if len(b) == 0 {
			continue
		}

		var graph AntiRecommendationGraph
		if err := json.Unmarshal(b, &graph); err != nil {
			return nil, helper.NewError(fmt.Sprintf("decode graph on line %d", line), err)
		}
		set.Add(graph)
	}
	if err := scanner.Err(); err != nil {
		return nil, helper.NewError("scan graphs", err)
	}

	return set, nil
}
