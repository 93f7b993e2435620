// Package ingest drives referral documents through the extraction pipeline.
//
// For each document in a batch: confirm the upload landed in object storage,
// run the fast text extraction, persist the result, and hand full extraction
// to the background job queue. The batch runs with a bounded concurrency
// window; transient failures (429, 5xx, network timeouts) are retried with
// exponential backoff, and one document failing never fails the batch.
package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dictatemed/dictatemed/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/semaphore"
)

// Store confirms uploaded objects. Confirm returns the stored object's size
// or an error; *StatusError codes drive retry classification.
type Store interface {
	Confirm(ctx context.Context, storageKey string) (int64, error)
}

// Extractor produces text from a stored document.
type Extractor interface {
	ExtractText(ctx context.Context, storageKey, mimeType string) (string, error)
}

// Queue enqueues the background full-extraction task for a document.
type Queue interface {
	EnqueueFullExtract(ctx context.Context, documentID uuid.UUID) error
}

// Tracker persists per-document pipeline state. Implementations must
// tolerate repeated calls for the same transition: retries re-run steps.
type Tracker interface {
	MarkUploaded(ctx context.Context, id uuid.UUID, sizeBytes int64) error
	MarkExtracting(ctx context.Context, id uuid.UUID) error
	MarkExtracted(ctx context.Context, id uuid.UUID, text string) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

// Defaults for Options zero values.
const (
	DefaultWindow      = 3
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = 500 * time.Millisecond
	DefaultMaxDelay    = 30 * time.Second
)

// Options tunes the pipeline. Zero values fall back to the defaults above.
type Options struct {
	// Window caps how many documents are in flight at once.
	Window int

	// MaxAttempts bounds tries per step, first attempt included.
	MaxAttempts int

	// BaseDelay seeds the exponential backoff; MaxDelay caps it.
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

func (o Options) withDefaults() Options {
	if o.Window < 1 {
		o.Window = DefaultWindow
	}
	if o.MaxAttempts < 1 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = DefaultBaseDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = DefaultMaxDelay
	}
	return o
}

// Report is the per-document outcome of a batch run.
type Report struct {
	DocumentID uuid.UUID
	Status     domain.DocumentStatus
	Err        error
}

// Pipeline executes ingestion batches. Safe for concurrent Run calls; the
// cancel registry is keyed by document ID, which is unique across batches.
type Pipeline struct {
	store     Store
	extractor Extractor
	queue     Queue
	tracker   Tracker
	opts      Options
	log       *zerolog.Logger

	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
}

// New constructs a Pipeline.
func New(store Store, extractor Extractor, queue Queue, tracker Tracker, opts Options, log *zerolog.Logger) *Pipeline {
	return &Pipeline{
		store:     store,
		extractor: extractor,
		queue:     queue,
		tracker:   tracker,
		opts:      opts.withDefaults(),
		log:       log,
		cancels:   make(map[uuid.UUID]context.CancelFunc),
	}
}

// Run processes a batch. It blocks until every document reaches a terminal
// outcome or the batch context is cancelled, and no goroutine outlives it.
// Reports are returned in input order.
func (p *Pipeline) Run(ctx context.Context, docs []domain.Document) []Report {
	reports := make([]Report, len(docs))
	sem := semaphore.NewWeighted(int64(p.opts.Window))
	var wg sync.WaitGroup

	for i := range docs {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Batch context cancelled: everything not yet scheduled is
			// reported as-is without touching the database.
			for j := i; j < len(docs); j++ {
				reports[j] = Report{DocumentID: docs[j].ID, Status: docs[j].Status, Err: err}
			}
			break
		}

		wg.Add(1)
		go func(i int, doc domain.Document) {
			defer wg.Done()
			defer sem.Release(1)

			docCtx, cancel := context.WithCancel(ctx)
			p.register(doc.ID, cancel)
			defer p.unregister(doc.ID)
			defer cancel()

			reports[i] = p.process(docCtx, doc)
		}(i, docs[i])
	}

	wg.Wait()
	return reports
}

// Cancel aborts a single in-flight document. Returns false when the
// document is not currently being processed.
func (p *Pipeline) Cancel(id uuid.UUID) bool {
	p.mu.Lock()
	cancel, ok := p.cancels[id]
	p.mu.Unlock()

	if ok {
		cancel()
	}
	return ok
}

func (p *Pipeline) register(id uuid.UUID, cancel context.CancelFunc) {
	p.mu.Lock()
	p.cancels[id] = cancel
	p.mu.Unlock()
}

func (p *Pipeline) unregister(id uuid.UUID) {
	p.mu.Lock()
	delete(p.cancels, id)
	p.mu.Unlock()
}

// process runs the step chain for one document. Steps are idempotent, so a
// retried step can safely repeat work already done by a failed attempt.
func (p *Pipeline) process(ctx context.Context, doc domain.Document) Report {
	log := p.log.With().
		Str("document_id", doc.ID.String()).
		Str("batch_id", doc.BatchID.String()).
		Str("filename", doc.Filename).
		Logger()

	size, err := p.confirmUpload(ctx, doc)
	if err != nil {
		return p.fail(ctx, doc, "confirming upload", err, &log)
	}

	if err := p.tracker.MarkUploaded(ctx, doc.ID, size); err != nil {
		return p.fail(ctx, doc, "recording upload", err, &log)
	}

	if err := p.tracker.MarkExtracting(ctx, doc.ID); err != nil {
		return p.fail(ctx, doc, "recording extraction start", err, &log)
	}

	text, err := p.extractText(ctx, doc)
	if err != nil {
		return p.fail(ctx, doc, "extracting text", err, &log)
	}

	if err := p.tracker.MarkExtracted(ctx, doc.ID, text); err != nil {
		return p.fail(ctx, doc, "recording extraction", err, &log)
	}

	if err := p.queue.EnqueueFullExtract(ctx, doc.ID); err != nil {
		// Fast extraction already succeeded; losing the background task is
		// not worth failing the document over.
		log.Error().Err(err).Msg("failed to enqueue full extraction")
	}

	log.Info().Int64("size_bytes", size).Msg("document ingested")

	return Report{DocumentID: doc.ID, Status: domain.DocumentExtracted}
}

func (p *Pipeline) confirmUpload(ctx context.Context, doc domain.Document) (int64, error) {
	var size int64
	err := p.retryDo(ctx, func(ctx context.Context) error {
		n, err := p.store.Confirm(ctx, doc.StorageKey)
		if err != nil {
			return err
		}
		size = n
		return nil
	})
	return size, err
}

func (p *Pipeline) extractText(ctx context.Context, doc domain.Document) (string, error) {
	var text string
	err := p.retryDo(ctx, func(ctx context.Context) error {
		t, err := p.extractor.ExtractText(ctx, doc.StorageKey, doc.MimeType)
		if err != nil {
			return err
		}
		text = t
		return nil
	})
	return text, err
}

// retryDo wraps a step with exponential backoff, retrying only transient
// failures up to the attempt budget.
func (p *Pipeline) retryDo(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.NewExponential(p.opts.BaseDelay)
	backoff = retry.WithJitterPercent(20, backoff)
	backoff = retry.WithCappedDuration(p.opts.MaxDelay, backoff)
	backoff = retry.WithMaxRetries(uint64(p.opts.MaxAttempts-1), backoff)

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if IsTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// fail records a terminal failure for one document. Cancellation is not a
// failure: the document keeps its current status so a later run can resume.
func (p *Pipeline) fail(ctx context.Context, doc domain.Document, op string, err error, log *zerolog.Logger) Report {
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		log.Warn().Str("op", op).Msg("document ingestion cancelled")
		return Report{DocumentID: doc.ID, Status: doc.Status, Err: context.Canceled}
	}

	log.Error().Err(err).Str("op", op).Msg("document ingestion failed")

	// Best effort: the batch context may be fine even when the step failed.
	if markErr := p.tracker.MarkFailed(ctx, doc.ID, err.Error()); markErr != nil {
		log.Error().Err(markErr).Msg("failed to record document failure")
	}

	return Report{DocumentID: doc.ID, Status: domain.DocumentFailed, Err: err}
}
