package memory

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// NormalizeText collapses newlines to spaces. Every embedder applies it.
func NormalizeText(text string) string {
	return strings.ReplaceAll(text, "\n", " ")
}

// OpenAIEmbedder calls the OpenAI embeddings endpoint.
type OpenAIEmbedder struct {
	client    openai.Client
	model     string
	dimension int
}

// OpenAIEmbedderConfig configures OpenAIEmbedder.
type OpenAIEmbedderConfig struct {
	APIKey    string
	BaseURL   string
	Model     string // default text-embedding-ada-002
	Dimension int    // default 1536
}

// NewOpenAIEmbedder creates an OpenAI embedder. An empty API key is an error.
func NewOpenAIEmbedder(cfg OpenAIEmbedderConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai embeddings: missing API key")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = string(openai.EmbeddingModelTextEmbeddingAda002)
	}
	dim := cfg.Dimension
	if dim <= 0 {
		dim = 1536
	}
	return &OpenAIEmbedder{client: openai.NewClient(opts...), model: model, dimension: dim}, nil
}

// Embed implements Embedder.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: []string{NormalizeText(text)}},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings %s: %w", e.model, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embeddings %s: empty response", e.model)
	}
	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}
	return vec, nil
}

// Dimension implements Embedder.
func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

// HashEmbedder derives deterministic unit vectors from a hash of the text.
// Identical texts embed identically; it carries no semantic signal.
type HashEmbedder struct {
	dimension int
}

// NewHashEmbedder creates a HashEmbedder of the given dimension.
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = 1536
	}
	return &HashEmbedder{dimension: dimension}
}

// Embed implements Embedder.
func (h *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f := fnv.New64a()
	f.Write([]byte(NormalizeText(text)))
	seed := f.Sum64()

	vec := make([]float32, h.dimension)
	var norm float64
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		v := float64(int64(seed)) / float64(math.MaxInt64)
		vec[i] = float32(v)
		norm += v * v
	}
	if norm == 0 {
		return vec, nil
	}
	n := math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / n)
	}
	return vec, nil
}

// Dimension implements Embedder.
func (h *HashEmbedder) Dimension() int {
	return h.dimension
}
