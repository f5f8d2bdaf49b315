package maplink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"stopdesk/internal/domain"
)

var (
	ErrMissingURL    = errors.New("missing short url")
	ErrNoCoordinates = errors.New("no coordinates found")
)

var coordPattern = regexp.MustCompile(`@(-?\d+\.\d+),(-?\d+\.\d+)`)

// Cache stores resolved coordinates by short url.
type Cache interface {
	GetCoordinates(ctx context.Context, shortURL string) (domain.Coordinates, bool)
	SetCoordinates(ctx context.Context, shortURL string, c domain.Coordinates)
}

type Resolver struct {
	httpClient *http.Client
	cache      Cache
	logger     *slog.Logger

	resolved  atomic.Int64
	failures  atomic.Int64
	cacheHits atomic.Int64
}

type Stats struct {
	Resolved  int64 `json:"resolved"`
	Failures  int64 `json:"failures"`
	CacheHits int64 `json:"cache_hits"`
}

// NewResolver builds a resolver whose outbound fetch is bounded by timeout
// and maxRedirects. cache may be nil.
func NewResolver(timeout time.Duration, maxRedirects int, cache Cache, logger *slog.Logger) *Resolver {
	return &Resolver{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		cache:  cache,
		logger: logger.With("component", "map_resolver"),
	}
}

// Resolve follows the redirect chain of shortURL and extracts the @lat,lng
// pair from the landing url.
func (r *Resolver) Resolve(ctx context.Context, shortURL string) (domain.Coordinates, error) {
	shortURL = strings.TrimSpace(shortURL)
	if shortURL == "" {
		return domain.Coordinates{}, ErrMissingURL
	}

	if r.cache != nil {
		if c, ok := r.cache.GetCoordinates(ctx, shortURL); ok {
			r.cacheHits.Add(1)
			return c, nil
		}
	}

	finalURL, err := r.follow(ctx, shortURL)
	if err != nil {
		r.failures.Add(1)
		return domain.Coordinates{}, err
	}

	c, err := ExtractCoordinates(finalURL)
	if err != nil {
		r.failures.Add(1)
		return domain.Coordinates{}, err
	}

	r.resolved.Add(1)
	if r.cache != nil {
		r.cache.SetCoordinates(ctx, shortURL, c)
	}
	return c, nil
}

func (r *Resolver) follow(ctx context.Context, shortURL string) (string, error) {
	u, err := url.Parse(shortURL)
	if err != nil {
		return "", fmt.Errorf("parsing url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	start := time.Now()
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	finalURL := resp.Request.URL.String()
	r.logger.Debug("short url followed",
		"short_url", shortURL,
		"final_url", finalURL,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return finalURL, nil
}

// ExtractCoordinates finds the first @lat,lng pair in u.
func ExtractCoordinates(u string) (domain.Coordinates, error) {
	m := coordPattern.FindStringSubmatch(u)
	if m == nil {
		return domain.Coordinates{}, ErrNoCoordinates
	}
	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("parsing latitude: %w", err)
	}
	lng, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("parsing longitude: %w", err)
	}
	return domain.Coordinates{Lat: lat, Lng: lng, FinalURL: u}, nil
}

func (r *Resolver) Stats() Stats {
	return Stats{
		Resolved:  r.resolved.Load(),
		Failures:  r.failures.Load(),
		CacheHits: r.cacheHits.Load(),
	}
}
