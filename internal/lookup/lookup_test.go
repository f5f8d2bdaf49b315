package lookup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"stopdesk/internal/domain"
	"stopdesk/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func name(s string) *domain.RawStop {
	return &domain.RawStop{Name: s, DeskURLCode: ""}
}

type fakeStore struct {
	mu      sync.Mutex
	docs    map[string]*domain.RawStop
	desk    map[string]*domain.RawStop
	getErr  error
	findErr error
	queries []string
}

func (f *fakeStore) Get(ctx context.Context, key string) (*domain.RawStop, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if d, ok := f.docs[key]; ok {
		return d, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) FindOne(ctx context.Context, field, value string) (*domain.RawStop, error) {
	f.mu.Lock()
	f.queries = append(f.queries, value)
	f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	if d, ok := f.desk[value]; ok {
		return d, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) Ping(ctx context.Context) error { return nil }
func (f *fakeStore) Close() error                   { return nil }

func TestFindByKey(t *testing.T) {
	fs := &fakeStore{docs: map[string]*domain.RawStop{"alg-01": name("Direct")}}
	svc := New(fs, time.Second, discardLogger())

	stop, err := svc.Find(context.Background(), " alg-01 ")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if stop.Name != "Direct" || stop.URLCode != "alg-01" {
		t.Errorf("Unexpected stop: %+v", stop)
	}
	if len(fs.queries) != 0 {
		t.Errorf("Fallback queries should not run on a direct hit, got %v", fs.queries)
	}
}

func TestFindFallbackPrefersVerbatim(t *testing.T) {
	fs := &fakeStore{desk: map[string]*domain.RawStop{
		"alg01": name("Verbatim"),
		"ALG01": name("Upper"),
	}}
	svc := New(fs, time.Second, discardLogger())

	stop, err := svc.Find(context.Background(), "alg01")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if stop.Name != "Verbatim" {
		t.Errorf("Expected verbatim match, got %q", stop.Name)
	}
	if len(fs.queries) != 2 {
		t.Errorf("Expected both fallback queries, got %v", fs.queries)
	}
}

func TestFindFallbackUpperCase(t *testing.T) {
	fs := &fakeStore{desk: map[string]*domain.RawStop{"ALG01": name("Upper")}}
	svc := New(fs, time.Second, discardLogger())

	stop, err := svc.Find(context.Background(), "alg01")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if stop.Name != "Upper" {
		t.Errorf("Expected upper-case match, got %q", stop.Name)
	}
}

func TestFindNotFound(t *testing.T) {
	svc := New(&fakeStore{}, time.Second, discardLogger())

	for _, code := range []string{"missing", "", "   "} {
		if _, err := svc.Find(context.Background(), code); !errors.Is(err, ErrNotFound) {
			t.Errorf("Find(%q): expected ErrNotFound, got %v", code, err)
		}
	}
}

func TestFindStoreFailureIsNotFound(t *testing.T) {
	boom := errors.New("store unavailable")

	svc := New(&fakeStore{getErr: boom}, time.Second, discardLogger())
	if _, err := svc.Find(context.Background(), "alg01"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on get failure, got %v", err)
	}

	svc = New(&fakeStore{findErr: boom}, time.Second, discardLogger())
	if _, err := svc.Find(context.Background(), "alg01"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on query failure, got %v", err)
	}
}

func TestFindAgainstSQLiteStore(t *testing.T) {
	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.Upsert(ctx, "doc-1", &domain.RawStop{DeskURLCode: "ORN02", Name: "Oran"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	stop, err := New(s, time.Second, discardLogger()).Find(ctx, "orn02")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if stop.Name != "Oran" || stop.URLCode != "ORN02" {
		t.Errorf("Unexpected stop: %+v", stop)
	}
}

// barrierStore holds every FindOne until both fallback queries are in flight.
type barrierStore struct {
	fakeStore
	arrived sync.WaitGroup
	all     chan struct{}
}

func newBarrierStore(desk map[string]*domain.RawStop) *barrierStore {
	b := &barrierStore{fakeStore: fakeStore{desk: desk}, all: make(chan struct{})}
	b.arrived.Add(2)
	go func() {
		b.arrived.Wait()
		close(b.all)
	}()
	return b
}

func (b *barrierStore) FindOne(ctx context.Context, field, value string) (*domain.RawStop, error) {
	b.arrived.Done()
	select {
	case <-b.all:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return b.fakeStore.FindOne(ctx, field, value)
}

func TestFindFallbackQueriesRunConcurrently(t *testing.T) {
	tests := []struct {
		name string
		desk map[string]*domain.RawStop
		want string
	}{
		{"upper only", map[string]*domain.RawStop{"ALG01": name("Upper")}, "Upper"},
		{"both hit", map[string]*domain.RawStop{"alg01": name("Verbatim"), "ALG01": name("Upper")}, "Verbatim"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := New(newBarrierStore(tt.desk), 500*time.Millisecond, discardLogger())

			stop, err := svc.Find(context.Background(), "alg01")
			if err != nil {
				t.Fatalf("Find failed, fallback queries did not overlap: %v", err)
			}
			if stop.Name != tt.want {
				t.Errorf("Name = %q, want %q", stop.Name, tt.want)
			}
		})
	}
}
