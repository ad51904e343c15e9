// internal/server/server.go

// Package server exposes the stored products and the scrape pipeline
// over a small JSON API.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/bullionwatch/bullionwatch/internal/config"
	"github.com/bullionwatch/bullionwatch/internal/export"
	"github.com/bullionwatch/bullionwatch/internal/monitoring"
	"github.com/bullionwatch/bullionwatch/internal/utils"
	"github.com/bullionwatch/bullionwatch/pkg/types"
)

// ProductStore is the read surface the API serves from.
type ProductStore interface {
	Find(ctx context.Context, f types.Filter) ([]types.ProductRecord, error)
	Count(ctx context.Context) (int, error)
	VendorCounts(ctx context.Context) ([]types.VendorCount, error)
	LastScrape(ctx context.Context) (string, error)
	Ping(ctx context.Context) error
}

// ScrapeRunner triggers scrape runs on demand.
type ScrapeRunner interface {
	Run(ctx context.Context, vendors []config.VendorConfig) (int, error)
}

// Server routes API requests. At most one scrape run executes at a
// time; concurrent triggers get 409.
type Server struct {
	router  *mux.Router
	store   ProductStore
	runner  ScrapeRunner
	vendors []config.VendorConfig
	logger  utils.Logger
	metrics *monitoring.Metrics
	limiter *rate.Limiter

	scrapeMu sync.Mutex
}

// New builds the server and its routes. runner and metrics may be nil;
// a nil runner turns POST /api/scrape into 503.
func New(store ProductStore, runner ScrapeRunner, vendors []config.VendorConfig, cfg config.ServerConfig, logger utils.Logger, metrics *monitoring.Metrics) *Server {
	if logger == nil {
		logger = utils.NewLogger()
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 20
	}

	s := &Server{
		router:  mux.NewRouter(),
		store:   store,
		runner:  runner,
		vendors: vendors,
		logger:  logger,
		metrics: metrics,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.rateLimitMiddleware)
	api.HandleFunc("/products", s.handleProducts).Methods(http.MethodGet)
	api.HandleFunc("/search", s.handleSearch).Methods(http.MethodGet)
	api.HandleFunc("/scrape", s.handleScrape).Methods(http.MethodPost)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/export", s.handleExport).Methods(http.MethodGet)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	s.router.Use(s.observeMiddleware)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			s.writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) observeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.metrics.RecordHTTPRequest(route, strconv.Itoa(sw.status))
		s.logger.Debugf("%s %s -> %d (%s)", r.Method, r.URL.Path, sw.status, time.Since(start).Round(time.Millisecond))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// handleProducts returns every stored record, newest first.
func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.Find(r.Context(), types.Filter{SortBy: types.SortRecency})
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	lastScrape, err := s.store.LastScrape(r.Context())
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"products":   emptyIfNil(records),
		"total":      len(records),
		"lastScrape": lastScrape,
	})
}

// handleSearch filters and sorts stored records by query parameters.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := types.Filter{
		Vendor:    q.Get("vendor"),
		TextQuery: q.Get("query"),
		SortBy:    types.ParseSortOrder(q.Get("sortBy")),
	}

	var err error
	if filter.MinPrice, err = parsePriceParam(q.Get("minPrice")); err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid minPrice: %v", err))
		return
	}
	if filter.MaxPrice, err = parsePriceParam(q.Get("maxPrice")); err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid maxPrice: %v", err))
		return
	}

	records, err := s.store.Find(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	originalTotal, err := s.store.Count(r.Context())
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"products":      emptyIfNil(records),
		"total":         len(records),
		"originalTotal": originalTotal,
	})
}

type scrapeRequest struct {
	Vendor string `json:"vendor"`
}

// handleScrape runs the pipeline for one vendor or all of them. The
// run executes synchronously; the response carries the stored count.
func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, "scraping is not available")
		return
	}

	var req scrapeRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, r, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	vendors := s.vendors
	if req.Vendor != "" && req.Vendor != "all" {
		vendors = nil
		for _, v := range s.vendors {
			if v.Name == req.Vendor {
				vendors = []config.VendorConfig{v}
				break
			}
		}
		if vendors == nil {
			s.writeError(w, r, http.StatusBadRequest, fmt.Sprintf("unknown vendor %q", req.Vendor))
			return
		}
	}

	if !s.scrapeMu.TryLock() {
		s.writeError(w, r, http.StatusConflict, "a scrape run is already in progress")
		return
	}
	defer s.scrapeMu.Unlock()

	count, err := s.runner.Run(r.Context(), vendors)
	if err != nil && count == 0 {
		s.writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	names := make([]string, len(vendors))
	for i, v := range vendors {
		names[i] = v.Name
	}
	resp := map[string]interface{}{
		"success":   true,
		"count":     count,
		"vendors":   names,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if err != nil {
		// Some vendors stored, some failed.
		resp["warning"] = err.Error()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleStats summarizes the store contents.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	total, err := s.store.Count(r.Context())
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	counts, err := s.store.VendorCounts(r.Context())
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	lastScrape, err := s.store.LastScrape(r.Context())
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	if counts == nil {
		counts = []types.VendorCount{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":      total,
		"vendors":    counts,
		"lastScrape": lastScrape,
	})
}

// handleExport streams the current records as CSV or XLSX.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	records, err := s.store.Find(r.Context(), types.Filter{
		Vendor: q.Get("vendor"),
		SortBy: types.ParseSortOrder(q.Get("sortBy")),
	})
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	stamp := time.Now().UTC().Format("2006-01-02")
	switch format := q.Get("format"); format {
	case "", "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="products-%s.csv"`, stamp))
		if err := export.WriteCSV(w, records); err != nil {
			s.logger.Errorf("CSV export failed: %v", err)
		}
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="products-%s.xlsx"`, stamp))
		if err := export.WriteExcel(w, records); err != nil {
			s.logger.Errorf("Excel export failed: %v", err)
		}
	default:
		s.writeError(w, r, http.StatusBadRequest, fmt.Sprintf("unsupported format %q", format))
	}
}

// handleHealth reports service liveness and store reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	resp := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.store.Ping(r.Context()); err != nil {
		status = http.StatusServiceUnavailable
		resp["status"] = "unhealthy"
		resp["error"] = err.Error()
	} else if count, err := s.store.Count(r.Context()); err == nil {
		resp["products"] = count
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Errorf("failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.logger.Warnf("%s %s -> %d: %s", r.Method, r.URL.Path, status, msg)
	s.writeJSON(w, status, map[string]interface{}{"error": msg})
}

func parsePriceParam(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func emptyIfNil(records []types.ProductRecord) []types.ProductRecord {
	if records == nil {
		return []types.ProductRecord{}
	}
	return records
}
