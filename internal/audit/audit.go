// Package audit records operator-relevant events without blocking the caller.
package audit

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"stockcount-api/internal/model"
	"stockcount-api/internal/repository"
)

// Sink receives audit events. Record never blocks and never fails.
type Sink interface {
	Record(level model.AuditLevel, category, message, detail string)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Record(model.AuditLevel, string, string, string) {}

const queueSize = 256

// Journal is a Sink that persists entries through an AuditRepository on a background goroutine.
// Events are dropped when the queue is full.
type Journal struct {
	repo    repository.AuditRepository
	queue   chan model.AuditEntry
	done    chan struct{}
	once    sync.Once
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// NewJournal starts a journal writing to repo.
func NewJournal(repo repository.AuditRepository) *Journal {
	j := &Journal{
		repo:  repo,
		queue: make(chan model.AuditEntry, queueSize),
		done:  make(chan struct{}),
	}
	go j.run()
	return j
}

// Record enqueues an entry. After Close it only counts the entry as dropped.
func (j *Journal) Record(level model.AuditLevel, category, message, detail string) {
	entry := model.AuditEntry{
		Timestamp: time.Now(),
		Level:     level,
		Category:  category,
		Message:   message,
		Detail:    detail,
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		j.dropped.Add(1)
		return
	}
	select {
	case j.queue <- entry:
	default:
		j.dropped.Add(1)
	}
}

func (j *Journal) run() {
	defer close(j.done)
	for entry := range j.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := j.repo.InsertAuditEntry(ctx, &entry); err != nil {
			log.Printf("[AuditJournal] Failed to persist entry %q: %v", entry.Message, err)
		}
		cancel()
	}
}

// Entries returns persisted entries newest first.
func (j *Journal) Entries(ctx context.Context, limit, offset int) ([]model.AuditEntry, int64, error) {
	return j.repo.GetAuditEntries(ctx, limit, offset)
}

// Clear removes persisted entries.
func (j *Journal) Clear(ctx context.Context) error {
	return j.repo.ClearAuditEntries(ctx)
}

// Dropped returns the number of events discarded because the queue was full.
func (j *Journal) Dropped() int64 {
	return j.dropped.Load()
}

// Close stops accepting events and waits for queued ones to be written.
func (j *Journal) Close() error {
	j.once.Do(func() {
		j.mu.Lock()
		j.closed = true
		close(j.queue)
		j.mu.Unlock()

		<-j.done
		if n := j.dropped.Load(); n > 0 {
			log.Printf("[AuditJournal] %d events dropped", n)
		}
	})
	return nil
}

var (
	_ Sink = (*Journal)(nil)
	_ Sink = Nop{}
)
