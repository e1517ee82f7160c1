// Package embedding provides the Ollama-backed implementation of
// retrieval.Encoder: the external collaborator that turns record text and
// query text into L2-normalized vectors for the semantic retriever.
package embedding

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/rs/zerolog"

	"github.com/krishnaw/dealsearch/internal/config"
	"github.com/krishnaw/dealsearch/internal/observability"
	"github.com/krishnaw/dealsearch/internal/record"
)

// Encoder generates L2-normalized embeddings via Ollama, satisfying
// retrieval.Encoder. A single Encoder is shared across every query on an
// Engine; EnsureModel is called lazily, once, on first use.
type Encoder struct {
	client    *api.Client
	model     string
	dimension int
	batchSize int
	timeout   time.Duration
	logger    zerolog.Logger

	mu    sync.RWMutex
	ready bool
}

// New constructs an Encoder from the resolved embedding configuration.
func New(cfg config.EmbeddingConfig) (*Encoder, error) {
	host := cfg.Host
	if host == "" {
		host = "http://localhost:11434"
	}
	model := cfg.Model
	if model == "" {
		model = "nomic-embed-text"
	}
	dim := cfg.Dimension
	if dim <= 0 {
		dim = 384
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 32
	}
	timeoutSeconds := cfg.TimeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = 60
	}

	ollamaURL, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}

	return &Encoder{
		client:    api.NewClient(ollamaURL, http.DefaultClient),
		model:     model,
		dimension: dim,
		batchSize: batch,
		timeout:   time.Duration(timeoutSeconds) * time.Second,
		logger:    observability.Logger("embedding"),
	}, nil
}

// EnsureModel checks the embedding model is present, pulling it if not.
// Called automatically by EncodeCorpus/EncodeQuery on first use, but
// exposed so `dealsearch index build` can warm the model ahead of time.
func (e *Encoder) EnsureModel(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ensureModelLocked(ctx)
}

func (e *Encoder) ensureModelLocked(ctx context.Context) error {
	if e.ready {
		return nil
	}

	if _, err := e.client.Show(ctx, &api.ShowRequest{Model: e.model}); err == nil {
		e.ready = true
		e.logger.Info().Str("model", e.model).Msg("embedding model ready")
		return nil
	}

	e.logger.Info().Str("model", e.model).Msg("pulling embedding model")
	progress := func(resp api.ProgressResponse) error {
		if resp.Total > 0 {
			e.logger.Debug().Str("status", resp.Status).
				Float64("progress", float64(resp.Completed)/float64(resp.Total)*100).
				Msg("pulling model")
		}
		return nil
	}
	if err := e.client.Pull(ctx, &api.PullRequest{Model: e.model}, progress); err != nil {
		return fmt.Errorf("pull embedding model %s: %w", e.model, err)
	}

	e.ready = true
	e.logger.Info().Str("model", e.model).Msg("embedding model pulled and ready")
	return nil
}

// Dimension reports the configured vector width.
func (e *Encoder) Dimension() int { return e.dimension }

// EncodeQuery returns a single L2-normalized length-D vector for the query.
func (e *Encoder) EncodeQuery(ctx context.Context, query string) ([]float32, error) {
	vecs, err := e.embedBatch(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EncodeCorpus returns an (N,D) L2-normalized matrix, one row per input
// string, in order, embedding up to batchSize texts concurrently.
func (e *Encoder) EncodeCorpus(ctx context.Context, texts []string) (*record.EmbeddingMatrix, error) {
	if len(texts) == 0 {
		return record.NewEmbeddingMatrix(nil)
	}
	rows, err := e.embedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	return record.NewEmbeddingMatrix(rows)
}

func (e *Encoder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.ensureModelReady(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	vecs := make([][]float32, len(texts))
	errs := make([]error, len(texts))

	var wg sync.WaitGroup
	sem := make(chan struct{}, e.batchSize)

	for i, text := range texts {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, txt string) {
			defer wg.Done()
			defer func() { <-sem }()

			ctx, cancel := context.WithTimeout(ctx, e.timeout)
			defer cancel()

			v, err := e.embedOne(ctx, txt)
			if err != nil {
				errs[idx] = err
				return
			}
			vecs[idx] = v
		}(i, text)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
	}

	e.logger.Debug().Int("count", len(texts)).Dur("duration", time.Since(start)).Msg("batch embedding completed")
	return vecs, nil
}

func (e *Encoder) ensureModelReady(ctx context.Context) error {
	e.mu.RLock()
	ready := e.ready
	e.mu.RUnlock()
	if ready {
		return nil
	}
	return e.EnsureModel(ctx)
}

func (e *Encoder) embedOne(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embed(ctx, &api.EmbedRequest{Model: e.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("embed request failed: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings in response")
	}
	return normalize(resp.Embeddings[0]), nil
}

// normalize L2-normalizes a float64 Ollama embedding into the float32
// unit vector every retriever and cache downstream assumes.
func normalize(v []float64) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += x * x
	}
	norm := 1.0
	if sumSq > 0 {
		norm = 1.0 / math.Sqrt(sumSq)
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x * norm)
	}
	return out
}
