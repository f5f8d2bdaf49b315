package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"stopdesk/internal/domain"
	"stopdesk/internal/maplink"
)

const maxResolveBody = 16 << 10

type Resolver interface {
	Resolve(ctx context.Context, shortURL string) (domain.Coordinates, error)
}

type ResolveHandler struct {
	resolver Resolver
	validate *validator.Validate
	logger   *slog.Logger
}

func NewResolveHandler(res Resolver, logger *slog.Logger) *ResolveHandler {
	return &ResolveHandler{
		resolver: res,
		validate: validator.New(),
		logger:   logger.With("handler", "resolve_map"),
	}
}

type ResolveRequest struct {
	ShortURL string `json:"shortUrl" validate:"required"`
}

type ResolveResponse struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	FinalURL string  `json:"finalUrl"`
}

// ResolveMap serves POST /api/resolve-map. An unreadable or empty body counts
// as a missing shortUrl.
func (h *ResolveHandler) ResolveMap(w http.ResponseWriter, r *http.Request) {
	ServerStats.IncRequests()
	start := time.Now()

	var req ResolveRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxResolveBody)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Missing shortUrl")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Missing shortUrl")
		return
	}

	c, err := h.resolver.Resolve(r.Context(), req.ShortURL)
	switch {
	case errors.Is(err, maplink.ErrMissingURL):
		respondError(w, http.StatusBadRequest, "Missing shortUrl")
		return
	case errors.Is(err, maplink.ErrNoCoordinates):
		respondError(w, http.StatusNotFound, "No coordinates found")
		return
	case err != nil:
		h.logger.Error("short url resolution failed", "request_id", RequestID(r.Context()), "short_url", req.ShortURL, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to resolve URL")
		return
	}

	h.logger.Debug("short url resolved",
		"short_url", req.ShortURL,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	respondJSON(w, http.StatusOK, ResolveResponse{Lat: c.Lat, Lng: c.Lng, FinalURL: c.FinalURL})
}
