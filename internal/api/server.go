package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fedorten/resursGraf/internal/catalog"
	"github.com/fedorten/resursGraf/internal/models"
	"github.com/fedorten/resursGraf/internal/web"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Prices is the read side of prices.Service.
type Prices interface {
	Latest(ctx context.Context, key string) (*models.Quote, error)
	HistoryForPeriod(ctx context.Context, key, period string) ([]models.PricePoint, error)
}

// Pinger reports whether the history store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	Port       int
	CORSOrigin string
}

type Server struct {
	prices     Prices
	catalog    *catalog.Catalog
	store      Pinger
	pages      *web.Renderer
	log        logrus.FieldLogger
	httpServer *http.Server
}

func NewServer(prices Prices, cat *catalog.Catalog, store Pinger, pages *web.Renderer, cfg Config, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Server{
		prices:  prices,
		catalog: cat,
		store:   store,
		pages:   pages,
		log:     log,
	}

	mux := http.NewServeMux()

	// Pages
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /chart/{resource}", s.handleChart)
	mux.Handle("GET /static/", web.StaticHandler())

	// JSON API
	mux.HandleFunc("GET /api/price/{resource}", s.handlePrice)
	mux.HandleFunc("GET /api/history/{resource}", s.handleHistory)
	mux.HandleFunc("GET /api/history/{resource}/{period}", s.handleHistory)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("/", s.handleNotFound)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(mux, cfg.CORSOrigin),
		ReadTimeout:  10 * time.Second,
		// Cold history requests wait on upstream mirrors.
		WriteTimeout: 90 * time.Second,
	}

	return s
}

// Handler wraps mux with the middleware chain, outermost first.
func (s *Server) Handler(mux http.Handler, corsOrigin string) http.Handler {
	return s.recoverPanic(s.logRequests(instrument(corsMiddleware(mux, corsOrigin))))
}

func (s *Server) Start() error {
	s.log.Infof("server started on http://localhost%s", s.httpServer.Addr)
	s.log.Infof("health check: http://localhost%s/health", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- middleware ---

func corsMiddleware(next http.Handler, allowOrigin string) http.Handler {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		entry := s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).Round(time.Microsecond).String(),
		})
		if rec.status >= http.StatusInternalServerError {
			entry.Warn("request")
		} else {
			entry.Debug("request")
		}
	})
}

func (s *Server) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.WithField("path", r.URL.Path).Errorf("panic: %v", rec)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// --- response helpers ---

// writeJSON leaves HTML escaping off so resource names and units go out as
// written.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
