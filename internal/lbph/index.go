package lbph

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/coder/hnsw"
)

// HNSW parameters for LBP histograms.
const (
	// hnswMaxNeighbors (M) is the maximum number of neighbors per node.
	hnswMaxNeighbors = 16
)

var errEmptyIndex = errors.New("index is empty")

// sampleIndex wraps the HNSW graph holding one node per training sample.
// Node keys are sample ids, node values are LBP histograms.
type sampleIndex struct {
	graph    *hnsw.Graph[int64]
	labels   map[int64]int // sample id -> label
	nextID   int64
	efSearch int
	mu       sync.RWMutex
}

func newSampleIndex(efSearch int) *sampleIndex {
	return &sampleIndex{
		graph:    newGraph(efSearch),
		labels:   make(map[int64]int),
		efSearch: efSearch,
	}
}

// newGraph creates an empty graph with cosine distance.
func newGraph(efSearch int) *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.CosineDistance
	if efSearch > 0 {
		g.EfSearch = efSearch
	}
	return g
}

// reset drops every sample.
func (s *sampleIndex) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.graph = newGraph(s.efSearch)
	s.labels = make(map[int64]int)
	s.nextID = 0
}

// add appends histograms with their labels.
func (s *sampleIndex) add(vecs [][]float32, labels []int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nodes := make([]hnsw.Node[int64], 0, len(vecs))
	for i, vec := range vecs {
		id := s.nextID
		s.nextID++
		s.labels[id] = labels[i]
		nodes = append(nodes, hnsw.MakeNode(id, vec))
	}
	s.graph.Add(nodes...)
}

// nearest returns the label and distance of the closest sample among the k
// candidates the graph returns. When none of them is within threshold every
// stored sample is compared: the graph prunes links between near-identical
// samples and an older sample may no longer be reachable by search.
func (s *sampleIndex) nearest(query []float32, k int, threshold float64) (int, float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.graph.Len() == 0 {
		return 0, 0, errEmptyIndex
	}

	bestLabel, bestDist, found := 0, 0.0, false
	consider := func(id int64, vec []float32) {
		label, ok := s.labels[id]
		if !ok {
			return
		}
		if dist := histogramDistance(query, vec); !found || dist < bestDist {
			bestLabel, bestDist, found = label, dist, true
		}
	}

	for _, n := range s.graph.Search(query, k) {
		consider(n.Key, n.Value)
	}
	if found && bestDist <= threshold {
		return bestLabel, bestDist, nil
	}

	for id := range s.labels {
		if vec, ok := s.graph.Lookup(id); ok {
			consider(id, vec)
		}
	}
	if !found {
		return 0, 0, errEmptyIndex
	}
	return bestLabel, bestDist, nil
}

// count returns the number of samples.
func (s *sampleIndex) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.labels)
}

// countByLabel returns the number of samples per label.
func (s *sampleIndex) countByLabel() map[int]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[int]int)
	for _, label := range s.labels {
		counts[label]++
	}
	return counts
}

// export serializes the graph. An empty graph exports as nil.
func (s *sampleIndex) export() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.graph.Len() == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := s.graph.Export(&buf); err != nil {
		return nil, fmt.Errorf("exporting HNSW graph: %w", err)
	}
	return buf.Bytes(), nil
}

// restore replaces the index with an exported graph and its sample labels.
func (s *sampleIndex) restore(data []byte, labels map[int64]int, nextID int64) error {
	g := newGraph(s.efSearch)
	if len(data) > 0 {
		if err := g.Import(bytes.NewReader(data)); err != nil {
			return fmt.Errorf("failed to import HNSW graph: %w", err)
		}
	}
	if g.Len() != len(labels) {
		return fmt.Errorf("HNSW graph has %d nodes but %d sample labels", g.Len(), len(labels))
	}
	if s.efSearch > 0 {
		g.EfSearch = s.efSearch
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph = g
	s.labels = labels
	s.nextID = nextID
	return nil
}

// snapshot returns a copy of the sample labels and the next id.
func (s *sampleIndex) snapshot() (map[int64]int, int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	labels := make(map[int64]int, len(s.labels))
	for id, label := range s.labels {
		labels[id] = label
	}
	return labels, s.nextID
}
