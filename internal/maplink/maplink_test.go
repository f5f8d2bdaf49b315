package maplink

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"stopdesk/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDeriveUsesStoredLink(t *testing.T) {
	s := domain.Stop{MapLink: "  https://maps.app.goo.gl/abc  ", Address: "12 Rue X"}
	if got := Derive(s); got != "https://maps.app.goo.gl/abc" {
		t.Errorf("Derive = %q", got)
	}
}

func TestDeriveBuildsSearchURL(t *testing.T) {
	s := domain.Stop{MapLink: "   ", Address: "12 Rue Didouche", Region: "Alger"}
	got := Derive(s)

	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("Derive produced an invalid url %q: %v", got, err)
	}
	if u.Host != "www.google.com" || u.Path != "/maps/search/" {
		t.Errorf("Unexpected search url %q", got)
	}
	if q := u.Query().Get("query"); q != "12 Rue Didouche, Alger" {
		t.Errorf("query = %q", q)
	}
	if u.Query().Get("api") != "1" {
		t.Errorf("api param missing in %q", got)
	}
	if strings.Contains(got, " ") {
		t.Errorf("query should be encoded: %q", got)
	}
}

func TestDeriveSearchURLEncoding(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"12 Rue Didouche", "12%20Rue%20Didouche"},
		{"Rue d'Isly (Centre)", "Rue%20d'Isly%20(Centre)"},
		{"Cité 5+6 & Co", "Cit%C3%A9%205%2B6%20%26%20Co"},
	}
	for _, tt := range tests {
		got := Derive(domain.Stop{Address: tt.addr, Locality: "Béjaïa"})
		want := "https://www.google.com/maps/search/?api=1&query=" + tt.want + "%2C%20B%C3%A9ja%C3%AFa"
		if got != want {
			t.Errorf("Derive(%q) = %q, want %q", tt.addr, got, want)
		}
	}
}

func TestDeriveWithoutLocationIsEmpty(t *testing.T) {
	if got := Derive(domain.Stop{Name: "Nowhere"}); got != "" {
		t.Errorf("Derive = %q, want empty", got)
	}
}

func TestFullAddressSkipsEmptyParts(t *testing.T) {
	s := domain.Stop{Address: "", Locality: "Bab Ezzouar", Region: "Alger"}
	if got := FullAddress(s); got != "Bab Ezzouar, Alger" {
		t.Errorf("FullAddress = %q", got)
	}
}

func TestTelURL(t *testing.T) {
	cases := map[string]string{
		"0550 12 34 56":  "tel:0550123456",
		"+213\t550 1234": "tel:+2135501234",
		"   ":            "",
	}
	for in, want := range cases {
		if got := TelURL(in); got != want {
			t.Errorf("TelURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExtractCoordinates(t *testing.T) {
	u := "https://www.google.com/maps/place/Louvre/@48.858370,2.329213,17z/data=!3m1"
	c, err := ExtractCoordinates(u)
	if err != nil {
		t.Fatalf("ExtractCoordinates failed: %v", err)
	}
	if c.Lat != 48.858370 || c.Lng != 2.329213 || c.FinalURL != u {
		t.Errorf("Unexpected coordinates: %+v", c)
	}

	c, err = ExtractCoordinates("https://maps/@-33.8688,-151.2093")
	if err != nil || c.Lat != -33.8688 || c.Lng != -151.2093 {
		t.Errorf("Negative coordinates: %+v, %v", c, err)
	}

	if _, err := ExtractCoordinates("https://maps/place/Louvre"); !errors.Is(err, ErrNoCoordinates) {
		t.Errorf("Expected ErrNoCoordinates, got %v", err)
	}
	if _, err := ExtractCoordinates("https://maps/@48,2"); !errors.Is(err, ErrNoCoordinates) {
		t.Errorf("Integers without decimals should not match, got %v", err)
	}
}

func newRedirectServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/short", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/hop", http.StatusFound)
	})
	mux.HandleFunc("/hop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/maps/place/Louvre/@48.858370,2.329213,17z", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/maps/place/Louvre/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html></html>"))
	})
	mux.HandleFunc("/plain", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/maps/place/Louvre/nowhere", http.StatusFound)
	})
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestResolveFollowsRedirects(t *testing.T) {
	server := newRedirectServer(t)
	r := NewResolver(5*time.Second, 10, nil, discardLogger())

	c, err := r.Resolve(context.Background(), server.URL+"/short")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if c.Lat != 48.858370 || c.Lng != 2.329213 {
		t.Errorf("Unexpected coordinates: %+v", c)
	}
	if c.FinalURL != server.URL+"/maps/place/Louvre/@48.858370,2.329213,17z" {
		t.Errorf("Unexpected final url %q", c.FinalURL)
	}
}

func TestResolveErrors(t *testing.T) {
	server := newRedirectServer(t)
	r := NewResolver(5*time.Second, 5, nil, discardLogger())
	ctx := context.Background()

	if _, err := r.Resolve(ctx, "  "); !errors.Is(err, ErrMissingURL) {
		t.Errorf("Expected ErrMissingURL, got %v", err)
	}
	if _, err := r.Resolve(ctx, server.URL+"/plain"); !errors.Is(err, ErrNoCoordinates) {
		t.Errorf("Expected ErrNoCoordinates, got %v", err)
	}

	_, err := r.Resolve(ctx, server.URL+"/loop")
	if err == nil || errors.Is(err, ErrNoCoordinates) {
		t.Errorf("Expected redirect cap failure, got %v", err)
	}

	if _, err := r.Resolve(ctx, "file:///etc/passwd"); err == nil {
		t.Error("Expected unsupported scheme to fail")
	}

	if st := r.Stats(); st.Failures != 3 {
		t.Errorf("Expected 3 failures, got %+v", st)
	}
}

func TestResolveUsesCache(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/short" {
			http.Redirect(w, r, "/@36.7538,3.0588", http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	r := NewResolver(5*time.Second, 10, NewMemoryCache(16, time.Minute), discardLogger())
	for i := 0; i < 3; i++ {
		c, err := r.Resolve(context.Background(), server.URL+"/short")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if c.Lat != 36.7538 || c.Lng != 3.0588 {
			t.Errorf("Unexpected coordinates: %+v", c)
		}
	}
	if n := hits.Load(); n != 2 {
		t.Errorf("Expected upstream to be hit once per hop (2), got %d", n)
	}
	if st := r.Stats(); st.CacheHits != 2 || st.Resolved != 1 {
		t.Errorf("Unexpected stats: %+v", st)
	}
}
