package lookup

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"stopdesk/internal/domain"
	"stopdesk/internal/store"
)

// ErrNotFound is returned for every lookup that does not produce a stop,
// including store failures.
var ErrNotFound = errors.New("stop not found")

type Service struct {
	store   store.DocumentStore
	timeout time.Duration
	logger  *slog.Logger
}

func New(s store.DocumentStore, timeout time.Duration, logger *slog.Logger) *Service {
	return &Service{
		store:   s,
		timeout: timeout,
		logger:  logger.With("component", "lookup"),
	}
}

// Find resolves a url code to a stop: direct key first, then the desk url
// code field in verbatim and upper case.
func (s *Service) Find(ctx context.Context, code string) (domain.Stop, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.Stop{}, ErrNotFound
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	doc, err := s.store.Get(ctx, code)
	if err == nil {
		s.logger.Debug("lookup by key", "code", code, "duration_ms", time.Since(start).Milliseconds())
		return doc.Normalize(code), nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("lookup by key failed", "code", code, "error", err)
		return domain.Stop{}, ErrNotFound
	}

	doc, err = s.fallback(ctx, code)
	if err != nil {
		return domain.Stop{}, ErrNotFound
	}

	s.logger.Debug("lookup by desk url code", "code", code, "duration_ms", time.Since(start).Milliseconds())
	return doc.Normalize(code), nil
}

func (s *Service) fallback(ctx context.Context, code string) (*domain.RawStop, error) {
	var wg sync.WaitGroup
	var verbatimMu, upperMu sync.Mutex
	var verbatim, upper *domain.RawStop
	var verbatimErr, upperErr error

	wg.Add(2)

	go func() {
		defer wg.Done()
		result, err := s.store.FindOne(ctx, store.FieldDeskURLCode, code)
		verbatimMu.Lock()
		verbatim, verbatimErr = result, err
		verbatimMu.Unlock()
	}()

	go func() {
		defer wg.Done()
		result, err := s.store.FindOne(ctx, store.FieldDeskURLCode, strings.ToUpper(code))
		upperMu.Lock()
		upper, upperErr = result, err
		upperMu.Unlock()
	}()

	wg.Wait()

	if verbatimErr != nil && !errors.Is(verbatimErr, store.ErrNotFound) {
		s.logger.Warn("verbatim code query failed", "code", code, "error", verbatimErr)
	}
	if upperErr != nil && !errors.Is(upperErr, store.ErrNotFound) {
		s.logger.Warn("upper-case code query failed", "code", code, "error", upperErr)
	}

	if verbatimErr == nil && verbatim != nil {
		return verbatim, nil
	}
	if upperErr == nil && upper != nil {
		return upper, nil
	}
	return nil, ErrNotFound
}
