// Package server implements the browser-facing quotes endpoint.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"cmcproxy/internal/metrics"
	"cmcproxy/internal/provider"
)

const (
	// QuotesPath is the only public route.
	QuotesPath = "/api/quotes"

	defaultTimeout = 10 * time.Second

	msgNotFound       = "Not found"
	msgMethod         = "Method not allowed"
	msgMissingParams  = "symbols or slug query param required"
	msgUpstreamFailed = "CoinMarketCap request failed"
	msgInternal       = "Internal server error"
)

// Options are the process-wide dependencies of the handler. They are read-only
// once New returns.
type Options struct {
	Provider       provider.Provider
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
	DefaultConvert string
	Timeout        time.Duration
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type server struct {
	provider       provider.Provider
	logger         *zap.Logger
	metrics        *metrics.Metrics
	defaultConvert string
	timeout        time.Duration
}

// New returns the proxy handler with its middleware chain.
func New(opts Options) http.Handler {
	s := &server{
		provider:       opts.Provider,
		logger:         opts.Logger,
		metrics:        opts.Metrics,
		defaultConvert: strings.ToUpper(strings.TrimSpace(opts.DefaultConvert)),
		timeout:        opts.Timeout,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.defaultConvert == "" {
		s.defaultConvert = "USD"
	}
	if s.timeout <= 0 {
		s.timeout = defaultTimeout
	}

	r := chi.NewRouter()
	r.Use(
		requestID,
		s.accessLog,
		withJSONHeaders,
		s.recoverPanic,
	)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: msgNotFound})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", "GET, OPTIONS")
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: msgMethod})
	})
	r.Get(QuotesPath, s.handleGetQuotes)
	return r
}

func (s *server) handleGetQuotes(w http.ResponseWriter, r *http.Request) {
	q := ParseQuery(r.URL.Query(), s.defaultConvert)
	if q.Empty() {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: msgMissingParams})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	start := time.Now()
	body, err := s.provider.Latest(ctx, q)
	kind := provider.Kind(err)
	s.metrics.Upstream(kind)
	if err != nil {
		details := err.Error()
		if details == "" {
			details = kind + " error"
		}
		s.logger.Warn("upstream request failed",
			zap.String("provider", s.provider.Name()),
			zap.String("kind", kind),
			zap.String("symbols", q.Symbols),
			zap.String("slug", q.Slug),
			zap.String("convert", q.Convert),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.Error(err),
		)
		writeJSON(w, http.StatusBadGateway, errorBody{Error: msgUpstreamFailed, Details: details})
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// ParseQuery extracts the quote request from a query string. Symbols and
// convert are upper-cased; convert falls back to def.
func ParseQuery(v url.Values, def string) provider.Query {
	q := provider.Query{
		Symbols: strings.ToUpper(joinCSV(v.Get("symbols"))),
		Slug:    joinCSV(v.Get("slug")),
		Convert: strings.ToUpper(strings.TrimSpace(v.Get("convert"))),
	}
	if q.Convert == "" {
		q.Convert = def
	}
	return q
}

// joinCSV trims entries, drops blanks and duplicates, keeping request order.
func joinCSV(s string) string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		key := strings.ToUpper(p)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return strings.Join(out, ",")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
