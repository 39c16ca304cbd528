package license

import (
	"context"
	"sync"
)

// Ledger tracks how many conversions each subject has left. A subject the
// ledger has never seen starts at the allowance carried by its token.
type Ledger interface {
	// Remaining returns the stored count and whether the subject is known.
	Remaining(ctx context.Context, subject string) (int64, bool, error)
	// Consume decrements the count, seeding unknown subjects with initial.
	// It returns ErrQuotaExceeded when nothing is left.
	Consume(ctx context.Context, subject string, initial int64) error
}

// MemoryLedger is an in-process Ledger.
type MemoryLedger struct {
	mu        sync.Mutex
	remaining map[string]int64
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{remaining: make(map[string]int64)}
}

// Set overrides the count for subject.
func (l *MemoryLedger) Set(subject string, n int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.remaining[subject] = n
}

// Remaining implements Ledger.
func (l *MemoryLedger) Remaining(_ context.Context, subject string) (int64, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n, ok := l.remaining[subject]
	return n, ok, nil
}

// Consume implements Ledger.
func (l *MemoryLedger) Consume(_ context.Context, subject string, initial int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	n, ok := l.remaining[subject]
	if !ok {
		n = initial
	}
	if n <= 0 {
		return ErrQuotaExceeded
	}
	l.remaining[subject] = n - 1
	return nil
}
