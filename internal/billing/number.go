package billing

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// DefaultPrefix is the organizational code leading every billing number.
const DefaultPrefix = "U4RAD"

// ErrSequenceUnavailable is returned when the billing counter could not be
// read and incremented. No billing number is produced in that case.
var ErrSequenceUnavailable = errors.New("billing sequence unavailable")

// SequenceStore is a persistent counter. Next atomically returns the current
// value and stores value+1, so the first call on a fresh store returns 0.
type SequenceStore interface {
	Next(ctx context.Context) (int64, error)
}

// Generator produces billing numbers of the form PREFIX-YYYYMMDD-NNN.
type Generator struct {
	Prefix string
	Store  SequenceStore
	// Now defaults to time.Now.
	Now func() time.Time
}

// NewGenerator returns a generator using store and the given prefix.
func NewGenerator(prefix string, store SequenceStore) *Generator {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Generator{Prefix: prefix, Store: store, Now: time.Now}
}

// Generate consumes one counter value and formats a billing number with the
// current UTC date. Every call yields a new number, even for identical
// billing content.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	if g.Store == nil {
		return "", ErrSequenceUnavailable
	}
	n, err := g.Store.Next(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSequenceUnavailable, err)
	}

	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	return FormatNumber(g.Prefix, now(), n), nil
}

// FormatNumber renders a billing number.
func FormatNumber(prefix string, date time.Time, counter int64) string {
	return fmt.Sprintf("%s-%s-%03d", prefix, date.UTC().Format("20060102"), counter)
}

// MemorySequence is an in-process SequenceStore.
type MemorySequence struct {
	next atomic.Int64
}

// NewMemorySequence returns a counter whose next value is start.
func NewMemorySequence(start int64) *MemorySequence {
	s := &MemorySequence{}
	s.next.Store(start)
	return s
}

func (s *MemorySequence) Next(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.next.Add(1) - 1, nil
}
