package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/tvio/ai/internal/config"
	"github.com/tvio/ai/internal/model"
	"github.com/tvio/ai/internal/repository"
	"github.com/tvio/ai/internal/storage"
	"github.com/tvio/ai/internal/sukl"
)

// State is the run lifecycle position of a Pipeline.
type State int

const (
	StateInitializing State = iota
	StateFetchingCatalog
	StateProcessingItems
	StateSummarizing
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateFetchingCatalog:
		return "fetching_catalog"
	case StateProcessingItems:
		return "processing_items"
	case StateSummarizing:
		return "summarizing"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Registry is the upstream API surface the pipeline consumes.
// Implemented by sukl.Client.
type Registry interface {
	FetchCatalog(ctx context.Context, period string) ([]string, error)
	FetchDetail(ctx context.Context, code string) (*model.Drug, error)
	FetchDocumentMetadata(ctx context.Context, code, docType string) ([]model.DocumentMeta, error)
	FetchDocumentBinary(ctx context.Context, meta model.DocumentMeta) ([]byte, error)
}

// Stats aggregates per-run outcome counters. Owned by the run; updated only
// by the single aggregating goroutine, never shared mutably with workers.
type Stats struct {
	ItemsProcessed          int
	ItemsPersisted          int
	ItemsSkipped            int
	ItemsFailed             int
	DocumentsPersisted      int
	DocumentsAlreadyPresent int
	DocumentsSkipped        int
	DocumentsFailed         int
}

// itemResult is the immutable outcome message one processed item produces.
type itemResult struct {
	code          string
	started       bool
	persisted     bool
	skipped       bool
	failed        bool
	docsPersisted int
	docsAlready   int
	docsSkipped   int
	docsFailed    int
	docBytes      int
	fatal         error
}

// Pipeline ingests one reporting period: catalog, per-item detail, document
// discovery, conditional download, idempotent persistence.
type Pipeline struct {
	registry Registry
	repo     repository.DrugRepository
	store    storage.Storage
	metrics  *Metrics
	log      *slog.Logger
	cfg      config.RunConfig

	mu    sync.Mutex
	state State
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(p *Pipeline) {
		if log != nil {
			p.log = log
		}
	}
}

// WithStorage enables mirroring persisted documents to object storage.
func WithStorage(store storage.Storage) Option {
	return func(p *Pipeline) { p.store = store }
}

// WithMetrics enables prometheus counters for run progress.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// New creates a Pipeline for one configured run.
func New(registry Registry, repo repository.DrugRepository, cfg config.RunConfig, opts ...Option) *Pipeline {
	p := &Pipeline{
		registry: registry,
		repo:     repo,
		log:      slog.Default(),
		cfg:      cfg,
		state:    StateInitializing,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the current run state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
	p.log.Info("pipeline state changed", "state", s.String())
}

// Run executes the full ingestion for the configured period and document
// type. It always returns the statistics accumulated so far, even when the
// run aborts. Only catalog failure, persistence connection loss, and
// cancellation abort a run; every other failure is contained at the item or
// document and the run continues.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	p.setState(StateFetchingCatalog)
	codes, err := p.registry.FetchCatalog(ctx, p.cfg.Period)
	if err != nil {
		p.setState(StateAborted)
		return stats, fmt.Errorf("fetch catalog: %w", err)
	}
	p.log.Info("catalog fetched", "period", p.cfg.Period, "items", len(codes))

	if p.cfg.ItemLimit > 0 && len(codes) > p.cfg.ItemLimit {
		codes = codes[:p.cfg.ItemLimit]
		p.log.Info("item cap applied", "limit", p.cfg.ItemLimit)
	}

	p.setState(StateProcessingItems)

	var runErr error
	if p.cfg.Workers > 1 {
		runErr = p.runPooled(ctx, codes, &stats)
	} else {
		runErr = p.runSequential(ctx, codes, &stats)
	}
	if runErr != nil {
		p.setState(StateAborted)
		p.logSummary(stats)
		return stats, runErr
	}

	p.setState(StateSummarizing)
	p.logSummary(stats)
	p.setState(StateDone)
	return stats, nil
}

func (p *Pipeline) runSequential(ctx context.Context, codes []string, stats *Stats) error {
	for i, code := range codes {
		// Cancellation is honored between items, never mid-write.
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		res := p.processItem(ctx, code)
		p.apply(stats, res, i+1, len(codes))
		if res.fatal != nil {
			return fmt.Errorf("persistence connection lost: %w", res.fatal)
		}
	}
	return nil
}

// runPooled processes distinct items concurrently on a fixed-size worker
// pool. Workers only produce immutable itemResult messages; this goroutine
// is the single aggregator. On a fatal result or cancellation, in-flight
// items finish but no new ones start.
func (p *Pipeline) runPooled(ctx context.Context, codes []string, stats *Stats) error {
	pool, err := ants.NewPool(p.cfg.Workers)
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	wctx, stop := context.WithCancel(ctx)
	defer stop()

	results := make(chan itemResult)
	var wg sync.WaitGroup

	go func() {
		for _, code := range codes {
			code := code
			wg.Add(1)
			submitErr := pool.Submit(func() {
				defer wg.Done()
				if wctx.Err() != nil {
					results <- itemResult{code: code}
					return
				}
				results <- p.processItem(wctx, code)
			})
			if submitErr != nil {
				wg.Done()
				results <- itemResult{code: code, failed: true, started: true}
			}
		}
		wg.Wait()
		close(results)
	}()

	var fatal error
	done := 0
	for res := range results {
		if !res.started {
			continue
		}
		done++
		p.apply(stats, res, done, len(codes))
		if res.fatal != nil && fatal == nil {
			fatal = res.fatal
			stop()
		}
	}

	if fatal != nil {
		return fmt.Errorf("persistence connection lost: %w", fatal)
	}
	return ctx.Err()
}

// processItem runs the full per-item sequence: detail fetch, drug upsert,
// document discovery, then download-and-persist for every descriptor. The
// drug row is always committed before any of its documents are attempted.
func (p *Pipeline) processItem(ctx context.Context, code string) itemResult {
	res := itemResult{code: code, started: true}

	drug, err := p.registry.FetchDetail(ctx, code)
	if err != nil {
		var de *sukl.DecodeError
		switch {
		case errors.Is(err, sukl.ErrNotFound):
			res.skipped = true
			p.log.Warn("item not found in registry", "code", code)
		case errors.As(err, &de):
			res.skipped = true
			p.log.Warn("item detail did not match expected schema",
				"code", code, "error", de.Err.Error(), "raw_payload", string(de.Raw))
		default:
			res.failed = true
			p.log.Error("item detail fetch failed", "code", code, "error", err.Error())
		}
		return res
	}

	if err := p.repo.UpsertDrug(ctx, drug); err != nil {
		res.failed = true
		if repository.IsConnectionLoss(err) {
			res.fatal = err
			return res
		}
		p.log.Error("drug upsert failed", "code", code, "error", err.Error())
		return res
	}
	res.persisted = true

	metas, err := p.registry.FetchDocumentMetadata(ctx, code, p.cfg.DocType)
	if err != nil {
		p.log.Error("document metadata fetch failed",
			"code", code, "doc_type", p.cfg.DocType, "error", err.Error())
		return res
	}

	seen := make(map[model.FlexString]struct{}, len(metas))
	for _, meta := range metas {
		if _, dup := seen[meta.ID]; dup {
			res.docsSkipped++
			p.log.Warn("duplicate document descriptor skipped", "code", code, "document_id", meta.ID)
			continue
		}
		seen[meta.ID] = struct{}{}

		p.processDocument(ctx, code, meta, &res)
		if res.fatal != nil {
			return res
		}
	}

	return res
}

func (p *Pipeline) processDocument(ctx context.Context, code string, meta model.DocumentMeta, res *itemResult) {
	content, err := p.registry.FetchDocumentBinary(ctx, meta)
	if err != nil {
		switch {
		case errors.Is(err, sukl.ErrNotFound),
			errors.Is(err, sukl.ErrEmptyDocument),
			errors.Is(err, sukl.ErrDocumentTooLarge):
			res.docsSkipped++
			p.log.Warn("document skipped", "code", code, "document_id", meta.ID, "reason", err.Error())
		default:
			res.docsFailed++
			p.log.Error("document download failed", "code", code, "document_id", meta.ID, "error", err.Error())
		}
		return
	}

	doc := &model.Document{
		SUKLCode: code,
		DocID:    string(meta.ID),
		DocType:  meta.DocType,
		FileName: meta.FileName,
		PDFData:  content,
		PDFSize:  len(content),
	}

	inserted, err := p.repo.InsertDocumentIfAbsent(ctx, doc)
	if err != nil {
		res.docsFailed++
		if repository.IsConnectionLoss(err) {
			res.fatal = err
			return
		}
		p.log.Error("document insert failed", "code", code, "document_id", meta.ID, "error", err.Error())
		return
	}
	if !inserted {
		res.docsAlready++
		return
	}

	res.docsPersisted++
	res.docBytes += len(content)
	p.archive(ctx, doc)
}

// archive mirrors a freshly persisted document to object storage. Best
// effort: the relational row is already committed, so failures here are
// logged and never counted against the run.
func (p *Pipeline) archive(ctx context.Context, doc *model.Document) {
	if p.store == nil {
		return
	}
	key := fmt.Sprintf("%s/%s/%s.pdf", doc.DocType, doc.SUKLCode, doc.DocID)
	_, err := p.store.Put(ctx, key, bytes.NewReader(doc.PDFData), storage.PutObjectOptions{
		Size:        int64(doc.PDFSize),
		ContentType: "application/pdf",
		Metadata:    map[string]string{"sukl-code": doc.SUKLCode},
	})
	if err != nil {
		p.log.Warn("document archival failed", "key", key, "error", err.Error())
	}
}

// apply folds one item result into the run statistics and emits the per-item
// progress line.
func (p *Pipeline) apply(stats *Stats, res itemResult, done, total int) {
	stats.ItemsProcessed++
	outcome := "failed"
	switch {
	case res.persisted:
		outcome = "persisted"
		stats.ItemsPersisted++
	case res.skipped:
		outcome = "skipped"
		stats.ItemsSkipped++
	default:
		stats.ItemsFailed++
	}
	stats.DocumentsPersisted += res.docsPersisted
	stats.DocumentsAlreadyPresent += res.docsAlready
	stats.DocumentsSkipped += res.docsSkipped
	stats.DocumentsFailed += res.docsFailed

	if m := p.metrics; m != nil {
		m.itemsProcessed.Inc()
		switch {
		case res.persisted:
			m.itemsPersisted.Inc()
		case res.skipped:
			m.itemsSkipped.Inc()
		default:
			m.itemsFailed.Inc()
		}
		m.documentsPersisted.Add(float64(res.docsPersisted))
		m.documentsSkipped.Add(float64(res.docsSkipped))
		m.documentsFailed.Add(float64(res.docsFailed))
		m.documentBytes.Add(float64(res.docBytes))
	}

	p.log.Info("item processed",
		"code", res.code,
		"outcome", outcome,
		"progress", fmt.Sprintf("%d/%d", done, total),
		"documents_persisted", res.docsPersisted,
		"documents_already_present", res.docsAlready,
		"documents_skipped", res.docsSkipped,
		"documents_failed", res.docsFailed,
	)
}

func (p *Pipeline) logSummary(stats Stats) {
	p.log.Info("run summary",
		"period", p.cfg.Period,
		"doc_type", p.cfg.DocType,
		"items_processed", stats.ItemsProcessed,
		"items_persisted", stats.ItemsPersisted,
		"items_skipped", stats.ItemsSkipped,
		"items_failed", stats.ItemsFailed,
		"documents_persisted", stats.DocumentsPersisted,
		"documents_already_present", stats.DocumentsAlreadyPresent,
		"documents_skipped", stats.DocumentsSkipped,
		"documents_failed", stats.DocumentsFailed,
	)
}
