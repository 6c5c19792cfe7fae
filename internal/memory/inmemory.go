package memory

import (
	"context"
	"fmt"
	"math"
	"sync"
)

// InMemoryStore is a brute-force cosine store. All data is lost when the
// process exits.
type InMemoryStore struct {
	mu      sync.RWMutex
	indexes map[string]*memIndex
}

type memIndex struct {
	dimension int
	order     []string // insertion order, for stable ties
	records   map[string]Record
}

// NewInMemoryStore creates a new in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{indexes: make(map[string]*memIndex)}
}

// EnsureIndex implements VectorStore.
func (s *InMemoryStore) EnsureIndex(ctx context.Context, name string, dimension int, metric Metric) error {
	if err := checkMetric(metric); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, ok := s.indexes[name]; ok {
		if idx.dimension != dimension {
			return &DimensionError{Index: name, Want: idx.dimension, Got: dimension}
		}
		return nil
	}
	s.indexes[name] = &memIndex{dimension: dimension, records: make(map[string]Record)}
	return nil
}

// Upsert implements VectorStore.
func (s *InMemoryStore) Upsert(ctx context.Context, index string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.indexes[index]
	if !ok {
		return fmt.Errorf("%w: %s", ErrIndexNotFound, index)
	}
	if len(rec.Vector) != idx.dimension {
		return &DimensionError{Index: index, Want: idx.dimension, Got: len(rec.Vector)}
	}
	if _, exists := idx.records[rec.ID]; !exists {
		idx.order = append(idx.order, rec.ID)
	}
	rec.Vector = clone(rec.Vector)
	idx.records[rec.ID] = rec
	return nil
}

// Query implements VectorStore.
func (s *InMemoryStore) Query(ctx context.Context, index string, vector []float32, topK int) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.indexes[index]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, index)
	}
	if len(vector) != idx.dimension {
		return nil, &DimensionError{Index: index, Want: idx.dimension, Got: len(vector)}
	}
	if len(idx.records) == 0 || topK <= 0 {
		return nil, nil
	}

	results := make([]Match, 0, len(idx.records))
	for _, id := range idx.order {
		rec := idx.records[id]
		results = append(results, Match{
			ID:       rec.ID,
			Score:    cosineSimilarity(vector, rec.Vector),
			Metadata: rec.Metadata,
		})
	}
	SortMatches(results)

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Len returns the number of records in index.
func (s *InMemoryStore) Len(index string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx, ok := s.indexes[index]; ok {
		return len(idx.records)
	}
	return 0
}

// Close is a no-op for in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return float32(dotProduct / (math.Sqrt(normA) * math.Sqrt(normB)))
}
