package ingest

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dictatemed/dictatemed/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu       sync.Mutex
	calls    map[string]int
	inFlight int64
	maxSeen  int64
	delay    time.Duration

	// failures maps storage keys to a sequence of errors returned before
	// the call finally succeeds.
	failures map[string][]error

	block chan struct{} // when set, Confirm blocks until closed or ctx done
}

func (s *fakeStore) Confirm(ctx context.Context, key string) (int64, error) {
	cur := atomic.AddInt64(&s.inFlight, 1)
	defer atomic.AddInt64(&s.inFlight, -1)
	for {
		max := atomic.LoadInt64(&s.maxSeen)
		if cur <= max || atomic.CompareAndSwapInt64(&s.maxSeen, max, cur) {
			break
		}
	}

	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
		// Both channels may be ready at once; cancellation wins.
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[key]++

	if seq := s.failures[key]; len(seq) > 0 {
		err := seq[0]
		s.failures[key] = seq[1:]
		return 0, err
	}
	return 1024, nil
}

type fakeExtractor struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (e *fakeExtractor) ExtractText(ctx context.Context, key, mime string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return "", e.err
	}
	return "extracted text for " + key, nil
}

type fakeQueue struct {
	mu       sync.Mutex
	enqueued []uuid.UUID
}

func (q *fakeQueue) EnqueueFullExtract(ctx context.Context, id uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.enqueued = append(q.enqueued, id)
	return nil
}

type fakeTracker struct {
	mu       sync.Mutex
	statuses map[uuid.UUID]domain.DocumentStatus
	failures map[uuid.UUID]string
	texts    map[uuid.UUID]string
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{
		statuses: make(map[uuid.UUID]domain.DocumentStatus),
		failures: make(map[uuid.UUID]string),
		texts:    make(map[uuid.UUID]string),
	}
}

func (t *fakeTracker) MarkUploaded(ctx context.Context, id uuid.UUID, size int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.statuses[id] = domain.DocumentUploaded
	return nil
}

func (t *fakeTracker) MarkExtracting(ctx context.Context, id uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.statuses[id] = domain.DocumentExtracting
	return nil
}

func (t *fakeTracker) MarkExtracted(ctx context.Context, id uuid.UUID, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.statuses[id] = domain.DocumentExtracted
	t.texts[id] = text
	return nil
}

func (t *fakeTracker) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.statuses[id] = domain.DocumentFailed
	t.failures[id] = reason
	return nil
}

func (t *fakeTracker) status(id uuid.UUID) domain.DocumentStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.statuses[id]
}

func makeDocs(n int) []domain.Document {
	batchID := uuid.New()
	docs := make([]domain.Document, n)
	for i := range docs {
		docs[i] = domain.Document{
			ID:         uuid.New(),
			BatchID:    batchID,
			Filename:   "referral.pdf",
			MimeType:   "application/pdf",
			StorageKey: uuid.New().String(),
			Status:     domain.DocumentRegistered,
		}
	}
	return docs
}

func testPipeline(store *fakeStore, extractor *fakeExtractor, queue *fakeQueue, tracker *fakeTracker, opts Options) *Pipeline {
	log := zerolog.Nop()
	return New(store, extractor, queue, tracker, opts, &log)
}

func fastOpts(window int) Options {
	return Options{
		Window:      window,
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	}
}

func TestRunProcessesEveryDocument(t *testing.T) {
	docs := makeDocs(5)
	store := &fakeStore{}
	extractor := &fakeExtractor{}
	queue := &fakeQueue{}
	tracker := newFakeTracker()

	reports := testPipeline(store, extractor, queue, tracker, fastOpts(2)).Run(context.Background(), docs)

	require.Len(t, reports, 5)
	for i, r := range reports {
		assert.Equal(t, docs[i].ID, r.DocumentID)
		assert.NoError(t, r.Err)
		assert.Equal(t, domain.DocumentExtracted, r.Status)
		assert.Equal(t, domain.DocumentExtracted, tracker.status(docs[i].ID))
	}
	assert.Len(t, queue.enqueued, 5)
}

func TestRunRespectsConcurrencyWindow(t *testing.T) {
	docs := makeDocs(8)
	store := &fakeStore{delay: 10 * time.Millisecond}
	tracker := newFakeTracker()

	p := testPipeline(store, &fakeExtractor{}, &fakeQueue{}, tracker, fastOpts(3))
	p.Run(context.Background(), docs)

	assert.LessOrEqual(t, atomic.LoadInt64(&store.maxSeen), int64(3))
	assert.Greater(t, atomic.LoadInt64(&store.maxSeen), int64(1), "expected some parallelism")
}

func TestTransientFailuresAreRetried(t *testing.T) {
	docs := makeDocs(1)
	key := docs[0].StorageKey
	store := &fakeStore{
		failures: map[string][]error{
			key: {
				&StatusError{Op: "stat", StatusCode: http.StatusTooManyRequests},
				&StatusError{Op: "stat", StatusCode: http.StatusBadGateway},
			},
		},
	}
	tracker := newFakeTracker()

	reports := testPipeline(store, &fakeExtractor{}, &fakeQueue{}, tracker, fastOpts(1)).Run(context.Background(), docs)

	require.NoError(t, reports[0].Err)
	assert.Equal(t, 3, store.calls[key], "two transient failures then success")
	assert.Equal(t, domain.DocumentExtracted, reports[0].Status)
}

func TestNonTransientFailureIsNotRetried(t *testing.T) {
	docs := makeDocs(1)
	key := docs[0].StorageKey
	store := &fakeStore{
		failures: map[string][]error{
			key: {
				&StatusError{Op: "stat", StatusCode: http.StatusNotFound},
				nil, // would succeed if incorrectly retried
			},
		},
	}
	tracker := newFakeTracker()

	reports := testPipeline(store, &fakeExtractor{}, &fakeQueue{}, tracker, fastOpts(1)).Run(context.Background(), docs)

	require.Error(t, reports[0].Err)
	assert.Equal(t, 1, store.calls[key])
	assert.Equal(t, domain.DocumentFailed, reports[0].Status)
	assert.Equal(t, domain.DocumentFailed, tracker.status(docs[0].ID))
}

func TestAttemptBudgetIsBounded(t *testing.T) {
	docs := makeDocs(1)
	key := docs[0].StorageKey
	store := &fakeStore{
		failures: map[string][]error{
			key: {
				&StatusError{StatusCode: 500}, &StatusError{StatusCode: 500},
				&StatusError{StatusCode: 500}, &StatusError{StatusCode: 500},
			},
		},
	}
	tracker := newFakeTracker()

	reports := testPipeline(store, &fakeExtractor{}, &fakeQueue{}, tracker, fastOpts(1)).Run(context.Background(), docs)

	require.Error(t, reports[0].Err)
	assert.Equal(t, 3, store.calls[key], "MaxAttempts=3 means exactly three tries")
	assert.Equal(t, domain.DocumentFailed, reports[0].Status)
}

func TestOneFailureDoesNotFailTheBatch(t *testing.T) {
	docs := makeDocs(3)
	store := &fakeStore{
		failures: map[string][]error{
			docs[1].StorageKey: {&StatusError{StatusCode: http.StatusForbidden}},
		},
	}
	tracker := newFakeTracker()
	queue := &fakeQueue{}

	reports := testPipeline(store, &fakeExtractor{}, queue, tracker, fastOpts(2)).Run(context.Background(), docs)

	assert.NoError(t, reports[0].Err)
	assert.Error(t, reports[1].Err)
	assert.NoError(t, reports[2].Err)
	assert.Len(t, queue.enqueued, 2)
	assert.NotEmpty(t, tracker.failures[docs[1].ID])
}

func TestCancelStopsSingleDocument(t *testing.T) {
	docs := makeDocs(2)
	block := make(chan struct{})
	store := &fakeStore{block: block}
	tracker := newFakeTracker()

	p := testPipeline(store, &fakeExtractor{}, &fakeQueue{}, tracker, fastOpts(2))

	done := make(chan []Report, 1)
	go func() {
		done <- p.Run(context.Background(), docs)
	}()

	// Wait until both documents are in flight, then cancel the first.
	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&store.inFlight) == 2
	}, time.Second, time.Millisecond)

	require.True(t, p.Cancel(docs[0].ID))
	close(block)

	reports := <-done
	assert.ErrorIs(t, reports[0].Err, context.Canceled)
	assert.NoError(t, reports[1].Err)
	// Cancelled documents keep their status so ingestion can be re-run.
	assert.Equal(t, domain.DocumentRegistered, reports[0].Status)
}

func TestCancelUnknownDocument(t *testing.T) {
	p := testPipeline(&fakeStore{}, &fakeExtractor{}, &fakeQueue{}, newFakeTracker(), fastOpts(1))
	assert.False(t, p.Cancel(uuid.New()))
}

func TestBatchContextCancellation(t *testing.T) {
	docs := makeDocs(6)
	block := make(chan struct{})
	store := &fakeStore{block: block}
	tracker := newFakeTracker()

	p := testPipeline(store, &fakeExtractor{}, &fakeQueue{}, tracker, fastOpts(2))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan []Report, 1)
	go func() {
		done <- p.Run(ctx, docs)
	}()

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&store.inFlight) == 2
	}, time.Second, time.Millisecond)

	cancel()
	close(block)

	reports := <-done
	require.Len(t, reports, 6)
	for _, r := range reports {
		assert.Error(t, r.Err)
	}
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(&StatusError{StatusCode: 429}))
	assert.True(t, IsTransient(&StatusError{StatusCode: 500}))
	assert.True(t, IsTransient(&StatusError{StatusCode: 503}))
	assert.False(t, IsTransient(&StatusError{StatusCode: 404}))
	assert.False(t, IsTransient(&StatusError{StatusCode: 400}))
	assert.False(t, IsTransient(context.Canceled))
}
