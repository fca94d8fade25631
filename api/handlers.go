package api

import (
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/oppwatch/gateway/core/gateway"
	"github.com/oppwatch/gateway/core/logger"
)

const (
	maxWindowDays = 365
	maxLimit      = 100
	defaultLimit  = 25
)

// Handler serves the gateway's read endpoints.
type Handler struct {
	gw  *gateway.Gateway
	log *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger for request failures.
func WithLogger(log *slog.Logger) Option {
	return func(h *Handler) {
		if log != nil {
			h.log = log
		}
	}
}

// New creates an API handler around the gateway.
func New(gw *gateway.Gateway, opts ...Option) *Handler {
	h := &Handler{gw: gw, log: logger.Noop()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle("GET /search", http.HandlerFunc(h.Search))
	mux.Handle("GET /detail", http.HandlerFunc(h.Detail))
}

// Search proxies a listings search through the resilient call path.
// Recognized parameters: q (free text), naics (industry code), days
// (posted-within window), limit (page size).
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	params, httpErr := searchParams(r.URL.Query())
	if httpErr != nil {
		writeError(w, r, h.log, *httpErr, nil)
		return
	}

	h.fetch(w, r, gateway.Query{Path: "/search", Params: params})
}

// Detail fetches one listing by its upstream identifier.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, r, h.log, badRequest("id is required", nil), nil)
		return
	}

	h.fetch(w, r, gateway.Query{Path: "/detail", Params: url.Values{"id": {id}}})
}

func (h *Handler) fetch(w http.ResponseWriter, r *http.Request, q gateway.Query) {
	res, err := h.gw.Fetch(r.Context(), q)
	if err != nil {
		httpErr, extra := fromFetchError(err)
		writeError(w, r, h.log, httpErr, extra)
		return
	}

	hdr := w.Header()
	hdr.Set("X-Cache", string(res.CacheStatus))
	hdr.Set("X-Source", string(res.Source))
	hdr.Set("X-Circuit-State", res.BreakerState.String())
	if res.RateRemaining >= 0 {
		hdr.Set("X-RateLimit-Remaining", strconv.Itoa(int(math.Floor(res.RateRemaining))))
	}
	if !res.RefreshedAt.IsZero() {
		hdr.Set("X-Refreshed-At", res.RefreshedAt.UTC().Format(time.RFC3339))
	}

	hdr.Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write(res.Payload)
}

// searchParams validates and normalizes the accepted query parameters,
// dropping anything unrecognized so junk parameters cannot fragment the
// cache key space.
func searchParams(raw url.Values) (url.Values, *HTTPError) {
	params := url.Values{}

	if q := raw.Get("q"); q != "" {
		params.Set("q", q)
	}
	if naics := raw.Get("naics"); naics != "" {
		params.Set("naics", naics)
	}

	if days := raw.Get("days"); days != "" {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 || n > maxWindowDays {
			e := badRequest("days must be an integer between 0 and 365", map[string]any{"days": days})
			return nil, &e
		}
		params.Set("days", strconv.Itoa(n))
	}

	limit := defaultLimit
	if v := raw.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxLimit {
			e := badRequest("limit must be an integer between 1 and 100", map[string]any{"limit": v})
			return nil, &e
		}
		limit = n
	}
	params.Set("limit", strconv.Itoa(limit))

	return params, nil
}
