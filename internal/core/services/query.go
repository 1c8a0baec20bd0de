package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/retriva-core/internal/core/domain"
	"github.com/custodia-labs/retriva-core/internal/core/ports/driven"
	"github.com/custodia-labs/retriva-core/internal/core/ports/driving"
	"github.com/custodia-labs/retriva-core/internal/runtime"
)

// Failure kinds recorded on a missing sub-query contribution
const (
	FailureBackendUnavailable = "backend_unavailable"
	FailureRerank             = "rerank_failed"
	FailureAdmissionRejected  = "admission_rejected"
	FailureCancelled          = "cancelled"
)

// QueryConfig holds tunables for the query pipeline.
type QueryConfig struct {
	// DefaultK is how many candidates each backend is asked for when the
	// request does not say
	DefaultK int

	// MaxK caps per-backend candidate counts
	MaxK int

	// DefaultTopN is how many reranked results each sub-query keeps
	DefaultTopN int

	// DefaultMaxSubQueries bounds decomposition when the request does
	// not say
	DefaultMaxSubQueries int

	// DefaultMaxParallelism bounds concurrently in-flight sub-query
	// pipelines
	DefaultMaxParallelism int

	// RequestCost is the admission cost charged per request for the
	// downstream generation call
	RequestCost int

	// MaxContexts caps how many reranked chunks feed generation
	MaxContexts int
}

// DefaultQueryConfig returns sensible defaults
func DefaultQueryConfig() QueryConfig {
	return QueryConfig{
		DefaultK:              20,
		MaxK:                  100,
		DefaultTopN:           5,
		DefaultMaxSubQueries:  4,
		DefaultMaxParallelism: 4,
		RequestCost:           1,
		MaxContexts:           8,
	}
}

// Ensure queryService implements QueryService
var _ driving.QueryService = (*queryService)(nil)

// queryService orchestrates the full query pipeline: admission, cache
// lookup, decomposition, parallel retrieve-fuse-rerank per sub-query,
// generation and cache store. The corpus version is read once per request
// and pinned for its whole lifetime, so retrieval and cache keys agree even
// when ingestion advances the version mid-flight.
type queryService struct {
	backends   []driven.SearchBackend
	fusion     *RankFusion
	decomposer *QueryDecomposer
	reranker   *Reranker
	admission  *AdmissionController
	cache      driven.QueryCache
	versions   driven.VersionStore
	docs       driven.DocumentStore
	services   *runtime.Services
	config     QueryConfig
	logger     *slog.Logger
}

// NewQueryService creates a new QueryService.
// AI services (embedding, LLM) are accessed dynamically via runtime.Services.
func NewQueryService(
	backends []driven.SearchBackend,
	fusion *RankFusion,
	decomposer *QueryDecomposer,
	reranker *Reranker,
	admission *AdmissionController,
	cache driven.QueryCache,
	versions driven.VersionStore,
	docs driven.DocumentStore,
	services *runtime.Services,
	config QueryConfig,
	logger *slog.Logger,
) driving.QueryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &queryService{
		backends:   backends,
		fusion:     fusion,
		decomposer: decomposer,
		reranker:   reranker,
		admission:  admission,
		cache:      cache,
		versions:   versions,
		docs:       docs,
		services:   services,
		config:     config,
		logger:     logger,
	}
}

// ProcessQuery runs the full pipeline for one request.
func (s *queryService) ProcessQuery(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	start := time.Now()

	normalized := domain.NormalizeQuery(req.Query)
	if normalized == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	req = s.applyDefaults(req)

	if req.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Deadline)
		defer cancel()
	}

	// Backpressure gate for the downstream generation call. Rejection is
	// surfaced immediately, never retried here.
	if err := s.admission.TryAdmit(req.CallerID, s.config.RequestCost); err != nil {
		return nil, err
	}

	// Pin the corpus version for the whole request
	version, verr := s.versions.Current(ctx)
	cacheable := verr == nil
	if verr != nil {
		s.logger.Warn("corpus version unavailable, request runs uncached", "error", verr)
	}

	fingerprint := ""
	if cacheable {
		fingerprint = domain.Fingerprint(normalized, req.Params(), req.Tier, version)
		if result, ok := s.cacheLookup(ctx, fingerprint, version); ok {
			result.Took = time.Since(start)
			return result, nil
		}
	}

	queryID := domain.GenerateID()
	subQueries := s.decomposer.Decompose(ctx, queryID, normalized, req.MaxSubQueries)

	// Run sub-query pipelines concurrently, bounded by MaxParallelism.
	// Excess sub-queries queue. A failing pipeline never aborts siblings;
	// it records its own missing contribution instead.
	breakdown := make([]domain.SubQueryResult, len(subQueries))
	var g errgroup.Group
	g.SetLimit(req.MaxParallelism)
	for i, sq := range subQueries {
		g.Go(func() error {
			breakdown[i] = s.runPipeline(ctx, req, sq, version)
			return nil
		})
	}
	_ = g.Wait()

	result := &domain.QueryResult{
		Query:         normalized,
		SubQueries:    breakdown,
		CorpusVersion: version,
	}

	complete := true
	for _, sqr := range breakdown {
		if sqr.Degraded || sqr.Missing {
			result.Degraded = true
		}
		if sqr.Missing {
			complete = false
		}
	}

	s.generate(ctx, normalized, result)

	// Only complete outcomes are cacheable: a partial result is not a
	// deterministic function of the fingerprinted inputs
	if cacheable && complete && ctx.Err() == nil {
		s.cacheStore(ctx, fingerprint, version, req.TTL, result)
	}

	result.Took = time.Since(start)
	return result, nil
}

// applyDefaults fills unset request fields from config.
func (s *queryService) applyDefaults(req domain.QueryRequest) domain.QueryRequest {
	if req.CallerID == "" {
		req.CallerID = "anonymous"
	}
	if req.MaxSubQueries <= 0 {
		req.MaxSubQueries = s.config.DefaultMaxSubQueries
	}
	if req.MaxParallelism <= 0 {
		req.MaxParallelism = s.config.DefaultMaxParallelism
	}
	if req.K <= 0 {
		req.K = s.config.DefaultK
	}
	if req.K > s.config.MaxK {
		req.K = s.config.MaxK
	}
	if req.TopN <= 0 {
		req.TopN = s.config.DefaultTopN
	}
	if !req.TTL.Valid() {
		req.TTL = domain.TTLClassShort
	}
	return req
}

// cacheLookup returns a cached result when a fresh entry exists. Entries
// written under a different corpus version are evicted and treated as
// misses. Cache infrastructure failures degrade to misses.
func (s *queryService) cacheLookup(ctx context.Context, fingerprint string, version int64) (*domain.QueryResult, bool) {
	entry, err := s.cache.Get(ctx, fingerprint)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("cache lookup failed, treating as miss", "error", err)
		}
		return nil, false
	}

	if entry.CorpusVersionAtWrite != version {
		_ = s.cache.Delete(ctx, fingerprint)
		return nil, false
	}

	var result domain.QueryResult
	if err := json.Unmarshal(entry.Payload, &result); err != nil {
		s.logger.Warn("cache payload corrupt, treating as miss", "error", err)
		_ = s.cache.Delete(ctx, fingerprint)
		return nil, false
	}

	result.CacheHit = true
	return &result, true
}

// cacheStore writes the result under its fingerprint, best-effort.
func (s *queryService) cacheStore(ctx context.Context, fingerprint string, version int64, ttl domain.TTLClass, result *domain.QueryResult) {
	payload, err := json.Marshal(result)
	if err != nil {
		s.logger.Warn("failed to marshal result for cache", "error", err)
		return
	}

	entry := &domain.CacheEntry{
		Fingerprint:          fingerprint,
		Payload:              payload,
		CorpusVersionAtWrite: version,
		CreatedAt:            time.Now(),
		TTL:                  ttl,
	}
	if err := s.cache.Put(ctx, entry); err != nil {
		s.logger.Warn("cache store failed", "error", err)
	}
}

// runPipeline executes retrieve -> fuse -> rerank for one sub-query.
// Failures are recorded on the returned result, never propagated.
func (s *queryService) runPipeline(ctx context.Context, req domain.QueryRequest, sq domain.SubQuery, version int64) domain.SubQueryResult {
	sqr := domain.SubQueryResult{SubQuery: sq}

	if ctx.Err() != nil {
		sqr.Missing = true
		sqr.FailureKind = FailureCancelled
		return sqr
	}

	// Query embedding for the dense backend; fall back to text-only on
	// failure
	var vector []float32
	if embedding := s.services.EmbeddingService(); embedding != nil {
		v, err := embedding.EmbedQuery(ctx, sq.Text)
		if err != nil {
			s.logger.Warn("query embedding failed, text-only retrieval", "ordinal", sq.Ordinal, "error", err)
			sqr.Degraded = true
		} else {
			vector = v
		}
	}

	perBackend := make(map[string][]domain.RetrievalCandidate, len(s.backends))
	for _, backend := range s.backends {
		candidates, err := backend.Search(ctx, sq.Text, vector, req.K, version)
		if err != nil {
			// Degraded-but-valid: fuse whatever the remaining
			// backends return
			s.logger.Warn("backend search failed", "backend", backend.Name(), "ordinal", sq.Ordinal, "error", err)
			sqr.Degraded = true
			continue
		}
		perBackend[backend.Name()] = candidates
	}

	if len(perBackend) == 0 {
		sqr.Missing = true
		if ctx.Err() != nil {
			sqr.FailureKind = FailureCancelled
		} else {
			sqr.FailureKind = FailureBackendUnavailable
		}
		return sqr
	}

	fused := s.fusion.Fuse(perBackend, req.K)

	ranked, err := s.reranker.Rerank(ctx, req.CallerID, sq.Text, fused, req.TopN)
	if err != nil {
		sqr.Missing = true
		switch {
		case isAdmissionRejection(err):
			sqr.FailureKind = FailureAdmissionRejected
		case ctx.Err() != nil:
			sqr.FailureKind = FailureCancelled
		default:
			sqr.FailureKind = FailureRerank
		}
		return sqr
	}

	sqr.Results = ranked
	return sqr
}

// generate produces the final answer over the best contexts. Generation
// failure degrades the result instead of failing the request.
func (s *queryService) generate(ctx context.Context, query string, result *domain.QueryResult) {
	llm := s.services.LLMService()
	if llm == nil || ctx.Err() != nil {
		return
	}

	contexts := s.collectContexts(result)
	if len(contexts) == 0 {
		return
	}

	answer, err := llm.GenerateAnswer(ctx, query, contexts)
	if err != nil {
		s.logger.Warn("answer generation failed, returning contexts only", "error", err)
		result.Degraded = true
		return
	}

	result.Answer = answer.Answer
	for _, chunkID := range answer.ChunkIDs {
		citation := domain.Citation{ChunkID: chunkID}
		if chunk, err := s.docs.GetChunk(ctx, chunkID); err == nil {
			citation.DocumentID = chunk.DocumentID
			if doc, err := s.docs.GetDocument(ctx, chunk.DocumentID); err == nil {
				citation.SourceURI = doc.SourceURI
			}
		}
		result.Citations = append(result.Citations, citation)
	}
}

// collectContexts gathers reranked chunks across sub-queries in ordinal
// order, capped at MaxContexts.
func (s *queryService) collectContexts(result *domain.QueryResult) []driven.RerankedChunk {
	var contexts []driven.RerankedChunk
	seen := make(map[string]bool)
	for _, sqr := range result.SubQueries {
		for _, r := range sqr.Results {
			if seen[r.ChunkID] {
				continue
			}
			seen[r.ChunkID] = true
			contexts = append(contexts, driven.RerankedChunk{
				ChunkID: r.ChunkID,
				Score:   r.Score,
				Text:    r.Text,
			})
			if len(contexts) == s.config.MaxContexts {
				return contexts
			}
		}
	}
	return contexts
}

func isAdmissionRejection(err error) bool {
	_, ok := domain.IsAdmissionRejected(err)
	return ok
}
