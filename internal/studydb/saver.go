package studydb

import (
	"context"
	"sync"
	"time"
)

// saveTimeout bounds one background flush.
const saveTimeout = 10 * time.Second

// Saver flushes a DB in the background after every change. Requests that
// arrive while a save is queued are coalesced into it.
type Saver struct {
	db      *DB
	retry   RetryConfig
	pending chan struct{}
	done    chan struct{}
	unsub   func()

	mu     sync.Mutex
	closed bool
}

// NewSaver subscribes to db's change events and starts the save loop.
// Failed background saves are retried according to retry; the zero value
// tries once.
func NewSaver(db *DB, retry RetryConfig) *Saver {
	s := &Saver{
		db:      db,
		retry:   retry,
		pending: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	s.unsub = db.OnChange(func(ChangeEvent) { s.Request() })
	go s.processLoop()
	return s
}

// Request schedules a save. It never blocks.
func (s *Saver) Request() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.pending <- struct{}{}:
	default:
		// A save is already queued and will pick up this change.
	}
}

func (s *Saver) processLoop() {
	defer close(s.done)
	for range s.pending {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		if err := retry(ctx, s.retry, s.db.SaveAllChanges); err != nil {
			s.db.log.WithError(err).Warn("background save failed")
		}
		cancel()
	}
}

// Close stops the save loop and performs a final synchronous flush.
func (s *Saver) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.pending)
	s.mu.Unlock()

	s.unsub()
	<-s.done
	return s.db.SaveAllChanges(ctx)
}
