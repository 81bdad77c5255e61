package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/farol/acervo/internal/embedding"
	"github.com/farol/acervo/pkg/utils"
)

// EmbedderConfig configures the OpenAI-compatible embedder.
type EmbedderConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Dimensions  int
	QueryPrefix string
	BatchSize   int
}

// Embedder produces embeddings via an OpenAI-compatible embeddings endpoint.
// Queries are embedded with QueryPrefix prepended while documents are not;
// models like snowflake-arctic-embed expect this asymmetry.
type Embedder struct {
	client      *openai.Client
	model       string
	dimensions  int
	queryPrefix string
	batchSize   int
}

// NewEmbedder creates an embedder. Dimensions must be positive and must match
// the deployment's embedding model output; the vector index rejects anything else.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	if cfg.Model == "" {
		return nil, errors.New("embedding model not configured")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be positive, got %d", cfg.Dimensions)
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 64
	}
	return &Embedder{
		client:      openai.NewClientWithConfig(oc),
		model:       cfg.Model,
		dimensions:  cfg.Dimensions,
		queryPrefix: cfg.QueryPrefix,
		batchSize:   batch,
	}, nil
}

// EmbedDocuments embeds texts in batches of at most BatchSize per API call.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// EmbedQuery embeds a single query with the configured query prefix.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embedBatch(ctx, []string{e.queryPrefix + text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, errors.New("no embedding data returned")
	}
	return vectors[0], nil
}

// Dimensions returns the configured embedding dimension.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("embeddings request: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings response size mismatch: got %d, want %d", len(resp.Data), len(texts))
	}
	vectors := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		vec := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float32(v)
		}
		if len(vec) != e.dimensions {
			return nil, fmt.Errorf("embedding dimension mismatch: got %d, expected %d", len(vec), e.dimensions)
		}
		// Unit length so inner product equals cosine similarity.
		utils.NormalizeL2(vec)
		vectors[i] = vec
	}
	return vectors, nil
}

var _ embedding.Embedder = (*Embedder)(nil)
