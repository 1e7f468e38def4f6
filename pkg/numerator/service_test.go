package numerator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

// mockQuerier simulates the sys_sequences UPSERT: every call bumps the
// stored value by the increment argument (1 for strict allocations).
type mockQuerier struct {
	mu           sync.Mutex
	currentValue int64
	calls        int
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	var increment int64 = 1
	if len(args) == 2 {
		if val, ok := args[1].(int64); ok {
			increment = val
		}
	}

	m.currentValue += increment
	m.calls++
	return &mockRow{val: m.currentValue}
}

func year() string {
	return time.Now().Format("2006")
}

func TestGetNextNumber_Strict(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := DefaultConfig("Q")

	num, err := svc.GetNextNumber(ctx, cfg, nil, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := fmt.Sprintf("Q-%s-00001", year()); num != want {
		t.Errorf("expected %s, got %s", want, num)
	}

	num, err = svc.GetNextNumber(ctx, cfg, nil, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := fmt.Sprintf("Q-%s-00002", year()); num != want {
		t.Errorf("expected %s, got %s", want, num)
	}
}

func TestGetNextNumber_Cached(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := DefaultConfig("QG")

	opts := &Options{
		Strategy:  StrategyCached,
		RangeSize: 10,
	}

	// First call reserves 1..10 from the DB and hands out 1.
	num, err := svc.GetNextNumber(ctx, cfg, opts, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := fmt.Sprintf("QG-%s-00001", year()); num != want {
		t.Errorf("expected %s, got %s", want, num)
	}
	if q.currentValue != 10 {
		t.Errorf("expected DB value to be 10, got %d", q.currentValue)
	}

	// Second call is served from memory.
	num, err = svc.GetNextNumber(ctx, cfg, opts, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := fmt.Sprintf("QG-%s-00002", year()); num != want {
		t.Errorf("expected %s, got %s", want, num)
	}
	if q.currentValue != 10 {
		t.Errorf("expected DB value to stay 10, got %d", q.currentValue)
	}

	// Exhaust the range; the next call reserves 11..20.
	for i := 0; i < 8; i++ {
		_, _ = svc.GetNextNumber(ctx, cfg, opts, time.Now())
	}

	num, err = svc.GetNextNumber(ctx, cfg, opts, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := fmt.Sprintf("QG-%s-00011", year()); num != want {
		t.Errorf("expected %s, got %s", want, num)
	}
	if q.currentValue != 20 {
		t.Errorf("expected DB value to be 20, got %d", q.currentValue)
	}
}

func TestSetNextNumber_InvalidatesCache(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := DefaultConfig("Q")
	opts := &Options{Strategy: StrategyCached, RangeSize: 10}
	now := time.Now()

	// Fill the cache, then reposition the series.
	_, _ = svc.GetNextNumber(ctx, cfg, opts, now)
	dbCalls := q.calls

	if err := svc.SetNextNumber(ctx, cfg, now, 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The cached range is gone, so the next allocation goes to the DB.
	if _, err := svc.GetNextNumber(ctx, cfg, opts, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.calls != dbCalls+2 {
		t.Errorf("expected cache invalidation to force a DB round trip, calls=%d", q.calls)
	}
}

func TestParseNumber(t *testing.T) {
	if got := ParseNumber("Q-2026-00042"); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	if got := ParseNumber("Q-00007"); got != 7 {
		t.Errorf("expected 7, got %d", got)
	}
	if got := ParseNumber("garbage"); got != -1 {
		t.Errorf("expected -1, got %d", got)
	}
}
