package main

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/krishnaw/dealsearch/internal/ai"
	"github.com/krishnaw/dealsearch/internal/cache"
	"github.com/krishnaw/dealsearch/internal/config"
	"github.com/krishnaw/dealsearch/internal/embedding"
	"github.com/krishnaw/dealsearch/internal/expansion"
	"github.com/krishnaw/dealsearch/internal/fusion"
	"github.com/krishnaw/dealsearch/internal/record"
	"github.com/krishnaw/dealsearch/internal/search"
)

// app bundles every long-lived component a command needs, so each
// cobra RunE can build one and defer Close() without repeating the
// wiring logic.
type app struct {
	cfg       *config.Config
	recordSet *record.RecordSet
	encoder   *embedding.Encoder
	matrixes  *cache.MatrixCache
	mirror    *cache.VectorMirror
	snapshots *cache.SnapshotCache
	engine    *search.Engine
	expander  *expansion.Adapter
}

// searcher is satisfied by both *search.Engine and *expansion.Adapter;
// commands that just want "the configured search path" take this
// instead of hard-coding which of the two is active.
type searcher interface {
	Search(ctx context.Context, query string, rs *record.RecordSet, opts search.Options) ([]fusion.Deal, error)
}

// Searcher returns the expansion adapter when query expansion is
// configured, otherwise the bare core engine.
func (a *app) Searcher() searcher {
	if a.expander != nil {
		return a.expander
	}
	return a.engine
}

func (a *app) Close() {
	if a.engine != nil {
		a.engine.Close()
	}
	if a.matrixes != nil {
		a.matrixes.Close()
	}
	if a.mirror != nil {
		a.mirror.Close()
	}
	if a.snapshots != nil {
		a.snapshots.Close()
	}
}

func weightsFromConfig(r config.RankingConfig) fusion.Weights {
	return fusion.Weights{
		KeywordWeight:        r.KeywordWeight,
		FuzzyWeight:          r.FuzzyWeight,
		SemanticWeight:       r.SemanticWeight,
		MultiSourceBonus:     r.MultiSourceBonus,
		MultiSourceBonusCap:  r.MultiSourceBonusCap,
		SemanticOnlyDiscount: r.SemanticOnlyDiscount,
		FuzzyStrongThreshold: r.FuzzyStrongThreshold,
		DensityFloorScore:    r.DensityFloorScore,
		DensityFloorValue:    r.DensityFloorValue,
		DensityNoMatchGap:    r.DensityNoMatchGap,
		OfferNameBoost:       r.OfferNameBoost,
		CutoffScoreThreshold: r.CutoffScoreThreshold,
		CutoffRatioHigh:      r.CutoffRatioHigh,
		CutoffRatioLow:       r.CutoffRatioLow,
	}
}

// buildApp loads configuration, builds or restores the record set and
// embedding matrix (via the content-hash caches when configured), and
// wires the core engine plus, when an expansion provider is configured,
// the query-expansion adapter in front of it.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("preparing data dir: %w", err)
	}

	encoder, err := embedding.New(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("constructing encoder: %w", err)
	}
	if err := encoder.EnsureModel(ctx); err != nil {
		return nil, fmt.Errorf("ensuring embedding model: %w", err)
	}

	snapshots, err := cache.NewSnapshotCache(cfg.Cache.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot cache: %w", err)
	}
	matrixes := cache.NewMatrixCache(cfg.Cache.RedisAddr)
	mirror, err := cache.NewVectorMirror(qdrantHost(cfg.Cache.QdrantAddr), qdrantPort(cfg.Cache.QdrantAddr), cfg.Cache.QdrantCollection, cfg.Embedding.Dimension)
	if err != nil {
		return nil, fmt.Errorf("dialing vector mirror: %w", err)
	}

	rs, _, err := loadOrBuildRecordSet(ctx, cfg, encoder, snapshots, matrixes, mirror)
	if err != nil {
		return nil, err
	}

	engine := search.New(encoder, weightsFromConfig(cfg.Ranking), cfg.Ranking.DefaultTopK)

	var expander *expansion.Adapter
	if cfg.Expansion.Provider != "" {
		provider, err := ai.NewProvider(ai.ProviderConfig{
			Model:          cfg.Expansion.Model,
			Endpoint:       cfg.Expansion.Endpoint,
			TimeoutSeconds: cfg.Expansion.TimeoutSeconds,
			MaxRetries:     cfg.Expansion.MaxRetries,
		}, cfg.Expansion.Provider)
		if err != nil {
			return nil, fmt.Errorf("constructing expansion provider: %w", err)
		}
		expander = expansion.New(engine, provider, cfg.Ranking, cfg.Expansion.CacheSize)
	}

	return &app{
		cfg:       cfg,
		recordSet: rs,
		encoder:   encoder,
		matrixes:  matrixes,
		mirror:    mirror,
		snapshots: snapshots,
		engine:    engine,
		expander:  expander,
	}, nil
}

// loadOrBuildRecordSet reproduces the original implementation's
// content-hash cache-validity check (SPEC_FULL.md Part D.4): the source
// documents are always parsed, flattened and hashed by
// record.LoadRecordSet; a snapshot stored under the same hash then
// replaces the fresh record set, and the embedding matrix is re-encoded
// only when neither the Redis cache (keyed by the hash) nor the Qdrant
// mirror (checked by record count) holds one.
func loadOrBuildRecordSet(ctx context.Context, cfg *config.Config, encoder *embedding.Encoder, snapshots *cache.SnapshotCache, matrixes *cache.MatrixCache, mirror *cache.VectorMirror) (*record.RecordSet, string, error) {
	rs, contentHash, err := record.LoadRecordSet(cfg.Data.DealsPath, cfg.Data.QualifyingProductsPath)
	if err != nil {
		return nil, "", err
	}

	if cached, ok := snapshots.Get(ctx, contentHash); ok {
		rs = cached
	} else {
		snapshots.Put(ctx, contentHash, rs)
	}

	if matrix, ok := matrixes.Get(ctx, contentHash); ok {
		return rs.WithMatrix(matrix), contentHash, nil
	}
	if matrix, ok := mirror.Fetch(ctx, len(rs.Records)); ok {
		matrixes.Put(ctx, contentHash, matrix)
		return rs.WithMatrix(matrix), contentHash, nil
	}

	texts := make([]string, len(rs.Records))
	for i, r := range rs.Records {
		texts[i] = r.SearchText
	}
	matrix, err := encoder.EncodeCorpus(ctx, texts)
	if err != nil {
		return nil, "", fmt.Errorf("encoding corpus: %w", err)
	}
	matrixes.Put(ctx, contentHash, matrix)
	if err := mirror.Upsert(ctx, rs.Records, matrix); err != nil {
		return nil, "", fmt.Errorf("mirroring vectors: %w", err)
	}

	return rs.WithMatrix(matrix), contentHash, nil
}

// qdrantHost and qdrantPort split a "host:port" cache.qdrant_addr config
// value; an empty or malformed address disables the mirror (NewVectorMirror
// treats an empty host as "disabled").
func qdrantHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return ""
	}
	return host
}

func qdrantPort(addr string) int {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0
	}
	return port
}
