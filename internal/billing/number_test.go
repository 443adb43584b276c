package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type failingSequence struct{}

func (failingSequence) Next(context.Context) (int64, error) {
	return 0, errors.New("connection refused")
}

func fixedNow() time.Time {
	return time.Date(2026, time.October, 16, 9, 30, 0, 0, time.UTC)
}

func TestGenerate_SequentialNumbers(t *testing.T) {
	gen := NewGenerator("", NewMemorySequence(0))
	gen.Now = fixedNow

	var prev string
	for i := 0; i < 25; i++ {
		got, err := gen.Generate(context.Background())
		if err != nil {
			t.Fatalf("generate #%d: %v", i, err)
		}
		want := fmt.Sprintf("U4RAD-20261016-%03d", i)
		if got != want {
			t.Fatalf("generate #%d = %q, want %q", i, got, want)
		}
		if prev != "" && got <= prev {
			t.Fatalf("number %q does not sort after %q", got, prev)
		}
		prev = got
	}
}

func TestGenerate_ContinuesFromPersistedCounter(t *testing.T) {
	gen := NewGenerator("CAMP", NewMemorySequence(41))
	gen.Now = fixedNow

	got, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "CAMP-20261016-041" {
		t.Fatalf("got %q", got)
	}
}

func TestGenerate_UsesUTCDate(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	gen := NewGenerator("U4RAD", NewMemorySequence(0))
	gen.Now = func() time.Time { return time.Date(2026, time.October, 17, 2, 0, 0, 0, loc) }

	got, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "U4RAD-20261016-000" {
		t.Fatalf("got %q", got)
	}
}

func TestGenerate_StoreFailureAborts(t *testing.T) {
	gen := NewGenerator("U4RAD", failingSequence{})

	got, err := gen.Generate(context.Background())
	if !errors.Is(err, ErrSequenceUnavailable) {
		t.Fatalf("expected ErrSequenceUnavailable, got %v", err)
	}
	if got != "" {
		t.Fatalf("expected no number, got %q", got)
	}
}

func TestGenerate_ConcurrentCallsNeverRepeat(t *testing.T) {
	gen := NewGenerator("U4RAD", NewMemorySequence(0))
	gen.Now = fixedNow

	const workers = 50
	results := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := gen.Generate(context.Background())
			if err != nil {
				t.Errorf("generate: %v", err)
				return
			}
			results <- n
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool, workers)
	for n := range results {
		if seen[n] {
			t.Fatalf("duplicate billing number %q", n)
		}
		seen[n] = true
	}
	for i := 0; i < workers; i++ {
		if !seen[fmt.Sprintf("U4RAD-20261016-%03d", i)] {
			t.Fatalf("gap at counter %d", i)
		}
	}
}
