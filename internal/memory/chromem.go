package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

const (
	metaTask   = "task"
	metaResult = "result"
	metaDim    = "dimension"
	metaMetric = "metric"
)

// ChromemStore keeps each index in a chromem-go collection.
type ChromemStore struct {
	db          *chromem.DB
	mu          sync.RWMutex
	collections map[string]*chromemIndex
}

type chromemIndex struct {
	col       *chromem.Collection
	dimension int
}

// NewChromemStore creates a store. An empty path keeps everything in memory;
// otherwise collections persist under path.
func NewChromemStore(path string) (*ChromemStore, error) {
	var db *chromem.DB
	if path == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("open chromem db %s: %w", path, err)
		}
	}
	return &ChromemStore{db: db, collections: make(map[string]*chromemIndex)}, nil
}

// EnsureIndex implements VectorStore.
func (s *ChromemStore) EnsureIndex(ctx context.Context, name string, dimension int, metric Metric) error {
	if err := checkMetric(metric); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, ok := s.collections[name]; ok {
		if idx.dimension != dimension {
			return &DimensionError{Index: name, Want: idx.dimension, Got: dimension}
		}
		return nil
	}

	meta := map[string]string{
		metaDim:    strconv.Itoa(dimension),
		metaMetric: string(metric),
	}
	// Embeddings are always supplied, so no embedding func is needed.
	col, err := s.db.GetOrCreateCollection(name, meta, nil)
	if err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	s.collections[name] = &chromemIndex{col: col, dimension: dimension}
	return nil
}

func (s *ChromemStore) index(name string) (*chromemIndex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, name)
	}
	return idx, nil
}

// Upsert implements VectorStore. chromem replaces documents with the same id.
func (s *ChromemStore) Upsert(ctx context.Context, index string, rec Record) error {
	idx, err := s.index(index)
	if err != nil {
		return err
	}
	if len(rec.Vector) != idx.dimension {
		return &DimensionError{Index: index, Want: idx.dimension, Got: len(rec.Vector)}
	}
	doc := chromem.Document{
		ID:        rec.ID,
		Content:   rec.Metadata.Result,
		Embedding: clone(rec.Vector),
		Metadata: map[string]string{
			metaTask:   rec.Metadata.Task,
			metaResult: rec.Metadata.Result,
		},
	}
	if err := idx.col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document %s: %w", rec.ID, err)
	}
	return nil
}

// Query implements VectorStore.
func (s *ChromemStore) Query(ctx context.Context, index string, vector []float32, topK int) ([]Match, error) {
	idx, err := s.index(index)
	if err != nil {
		return nil, err
	}
	if len(vector) != idx.dimension {
		return nil, &DimensionError{Index: index, Want: idx.dimension, Got: len(vector)}
	}

	// chromem-go requires nResults <= collection size
	n := topK
	if count := idx.col.Count(); count < n {
		n = count
	}
	if n <= 0 {
		return nil, nil
	}

	results, err := idx.col.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query %s: %w", index, err)
	}
	matches := make([]Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, Match{
			ID:    r.ID,
			Score: r.Similarity,
			Metadata: Metadata{
				Task:   r.Metadata[metaTask],
				Result: r.Metadata[metaResult],
			},
		})
	}
	SortMatches(matches)
	return matches, nil
}

// Close releases resources. Persistent collections are written on every add.
func (s *ChromemStore) Close() error {
	return nil
}
