package enrich

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"litinsight/internal/blobstore"
	"litinsight/internal/metrics"
	"litinsight/internal/models"
	"litinsight/internal/util"
)

const DefaultLeadingChunks = 5

type DocumentIndex interface {
	FindReadyDocuments(ctx context.Context, sourceIDs []string) (map[string]string, error)
}

type BlobStore interface {
	GetChunks(ctx context.Context, documentID string) ([]models.DocumentChunk, error)
}

type ChunkSource interface {
	ListLeadingChunks(ctx context.Context, documentID string, limit int) ([]models.DocumentChunk, error)
}

// Enrichment holds the excerpts found for one batch, keyed by source id.
type Enrichment struct {
	Excerpts          map[string]string
	FullTextSourceIDs map[string]bool
}

func (e Enrichment) Excerpt(sourceID string) (string, bool) {
	if sourceID == "" || e.Excerpts == nil {
		return "", false
	}
	s, ok := e.Excerpts[sourceID]
	return s, ok
}

func emptyEnrichment() Enrichment {
	return Enrichment{Excerpts: map[string]string{}, FullTextSourceIDs: map[string]bool{}}
}

// Enricher looks up full-text excerpts for a batch. Every failure is logged
// and swallowed; the worst case is an empty Enrichment.
type Enricher struct {
	index  DocumentIndex
	blobs  BlobStore
	chunks ChunkSource
	limit  int
	log    *zap.Logger
}

type Option func(*Enricher)

func WithBlobStore(b BlobStore) Option {
	return func(e *Enricher) { e.blobs = b }
}

func WithChunkSource(c ChunkSource) Option {
	return func(e *Enricher) { e.chunks = c }
}

func WithLeadingChunks(n int) Option {
	return func(e *Enricher) {
		if n > 0 {
			e.limit = n
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(e *Enricher) {
		if log != nil {
			e.log = log
		}
	}
}

// New returns an Enricher. A nil index disables enrichment.
func New(index DocumentIndex, opts ...Option) *Enricher {
	e := &Enricher{index: index, limit: DefaultLeadingChunks, log: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Enricher) Enrich(ctx context.Context, batch []models.Article) Enrichment {
	out := emptyEnrichment()
	if e == nil || e.index == nil {
		return out
	}

	sourceIDs := make([]string, 0, len(batch))
	seen := map[string]struct{}{}
	for _, a := range batch {
		id := strings.TrimSpace(a.SourceID)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		sourceIDs = append(sourceIDs, id)
	}
	if len(sourceIDs) == 0 {
		return out
	}

	docs, err := e.index.FindReadyDocuments(ctx, sourceIDs)
	if err != nil {
		metrics.EnrichmentFailures.WithLabelValues("index").Inc()
		e.log.Warn("document index lookup failed", zap.Int("sources", len(sourceIDs)), zap.Error(err))
		return out
	}
	if len(docs) == 0 {
		return out
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(len(docs))
	for sourceID, docID := range docs {
		g.Go(func() error {
			excerpt := e.fetchExcerpt(ctx, docID)
			if excerpt == "" {
				return nil
			}
			mu.Lock()
			out.Excerpts[sourceID] = excerpt
			out.FullTextSourceIDs[sourceID] = true
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (e *Enricher) fetchExcerpt(ctx context.Context, docID string) string {
	var chunks []models.DocumentChunk
	if e.blobs != nil {
		got, err := e.blobs.GetChunks(ctx, docID)
		switch {
		case err == nil:
			chunks = leading(got, e.limit)
		case errors.Is(err, blobstore.ErrNotFound):
			e.log.Debug("chunk blob missing, using chunk table", zap.String("document_id", docID))
		default:
			metrics.EnrichmentFailures.WithLabelValues("blob").Inc()
			e.log.Warn("chunk blob fetch failed", zap.String("document_id", docID), zap.Error(err))
		}
	}
	if len(chunks) == 0 && e.chunks != nil {
		got, err := e.chunks.ListLeadingChunks(ctx, docID, e.limit)
		if err != nil {
			metrics.EnrichmentFailures.WithLabelValues("chunks").Inc()
			e.log.Warn("chunk table lookup failed", zap.String("document_id", docID), zap.Error(err))
			return ""
		}
		chunks = leading(got, e.limit)
	}
	return joinChunks(chunks)
}

func leading(chunks []models.DocumentChunk, n int) []models.DocumentChunk {
	sorted := append([]models.DocumentChunk(nil), chunks...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ChunkIndex < sorted[j].ChunkIndex })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func joinChunks(chunks []models.DocumentChunk) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		text := util.SanitizeText(c.Content)
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}
