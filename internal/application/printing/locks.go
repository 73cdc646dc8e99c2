package printing

import (
	"sync"

	"github.com/google/uuid"
)

// invoiceLocks hands out one mutex per invoice. Entries are dropped once no
// goroutine holds or waits for them.
type invoiceLocks struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newInvoiceLocks() *invoiceLocks {
	return &invoiceLocks{entries: make(map[uuid.UUID]*lockEntry)}
}

// lock blocks until the caller owns id and returns the matching unlock
func (l *invoiceLocks) lock(id uuid.UUID) (unlock func()) {
	l.mu.Lock()
	e, ok := l.entries[id]
	if !ok {
		e = &lockEntry{}
		l.entries[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.entries, id)
		}
		l.mu.Unlock()
	}
}

func (l *invoiceLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
