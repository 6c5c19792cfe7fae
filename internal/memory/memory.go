// Package memory provides the vector memory the task loop recalls context from.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Metric is the similarity measure of an index.
type Metric string

// MetricCosine is the only metric the loop uses.
const MetricCosine Metric = "cosine"

var (
	// ErrIndexNotFound is returned for operations on an index never ensured.
	ErrIndexNotFound = errors.New("index not found")
	// ErrUnsupportedMetric is returned by EnsureIndex for metrics other than cosine.
	ErrUnsupportedMetric = errors.New("unsupported metric")
)

// DimensionError reports a vector whose length does not match its index.
type DimensionError struct {
	Index string
	Want  int
	Got   int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("index %s: vector has %d dimensions, want %d", e.Index, e.Got, e.Want)
}

// Metadata is stored alongside each result vector.
type Metadata struct {
	Task   string `json:"task"`
	Result string `json:"result"`
}

// Record is one stored task result.
type Record struct {
	ID       string
	Vector   []float32
	Metadata Metadata
}

// Match is a query hit.
type Match struct {
	ID       string
	Score    float32
	Metadata Metadata
}

// ResultID is the record id under which a task's result is stored.
func ResultID(taskID string) string {
	return "result_" + taskID
}

// Embedder maps text to a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// VectorStore holds records in named indexes.
type VectorStore interface {
	// EnsureIndex creates the index if absent. Ensuring an existing index
	// with a different dimension is an error.
	EnsureIndex(ctx context.Context, name string, dimension int, metric Metric) error
	// Upsert inserts or replaces the record with the same id.
	Upsert(ctx context.Context, index string, rec Record) error
	// Query returns up to topK records by descending similarity. An index
	// holding fewer records returns all of them.
	Query(ctx context.Context, index string, vector []float32, topK int) ([]Match, error)
	Close() error
}

// SortMatches orders matches by descending score, keeping the order of ties.
func SortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
}

func checkMetric(metric Metric) error {
	if metric != MetricCosine {
		return fmt.Errorf("%w: %s", ErrUnsupportedMetric, metric)
	}
	return nil
}
