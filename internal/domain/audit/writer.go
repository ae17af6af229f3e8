package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const writeTimeout = 5 * time.Second

// Writer persists audit records off the request path. Enqueue never blocks;
// a full queue drops the record and reports the gap on the error channel so
// audit loss stays operationally discoverable.
type Writer struct {
	repo   Repository
	queue  chan *Record
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	errlog zerolog.Logger
}

// NewWriter creates the writer and starts its drain goroutine
func NewWriter(repo Repository, queueSize int) *Writer {
	if queueSize <= 0 {
		queueSize = 1024
	}
	w := &Writer{
		repo:   repo,
		queue:  make(chan *Record, queueSize),
		errlog: log.With().Str("channel", "audit_errors").Logger(),
	}
	w.wg.Add(1)
	go w.drain()
	return w
}

// Record enqueues rec for persistence. Missing ID/timestamp are filled in.
func (w *Writer) Record(rec *Record) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		w.errlog.Error().Str("action", rec.Action).Msg("Audit record dropped: writer closed")
		return
	}

	select {
	case w.queue <- rec:
	default:
		w.errlog.Error().Str("action", rec.Action).Msg("Audit record dropped: queue full")
	}
}

func (w *Writer) drain() {
	defer w.wg.Done()
	for rec := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := w.repo.Insert(ctx, rec); err != nil {
			w.errlog.Error().Err(err).
				Str("action", rec.Action).
				Str("outcome", string(rec.Outcome)).
				Msg("Failed to write audit record")
		}
		cancel()
	}
}

// Close stops accepting records and waits for the queue to flush
func (w *Writer) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()

	close(w.queue)
	w.wg.Wait()
}
