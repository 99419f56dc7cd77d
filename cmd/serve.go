package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/towerstats/analyzer-cli/internal/chartcfg"
	"github.com/towerstats/analyzer-cli/internal/effects"
	"github.com/towerstats/analyzer-cli/internal/metric"
	"github.com/towerstats/analyzer-cli/internal/report"
	"github.com/towerstats/analyzer-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the analysis HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		schema, err := loadSchema()
		if err != nil {
			return eris.Wrap(err, "serve")
		}

		st, err := openStore(ctx)
		if err != nil {
			return eris.Wrap(err, "serve: open store")
		}
		defer st.Close()

		limiters := newClientLimiters(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst)
		router := newRouter(schema, st, limiters)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// clientLimiters hands out one token bucket per client address.
type clientLimiters struct {
	mu      sync.Mutex
	perAddr map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

func newClientLimiters(limit rate.Limit, burst int) *clientLimiters {
	return &clientLimiters{
		perAddr: make(map[string]*rate.Limiter),
		limit:   limit,
		burst:   burst,
	}
}

func (c *clientLimiters) allow(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}

	c.mu.Lock()
	lim, ok := c.perAddr[host]
	if !ok {
		lim = rate.NewLimiter(c.limit, c.burst)
		c.perAddr[host] = lim
	}
	c.mu.Unlock()

	return lim.Allow()
}

func newRouter(schema *report.LabelSchema, st store.Store, limiters *clientLimiters) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	r.Use(throttle(limiters))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/v1/extract", handleExtract(schema))
	r.Post("/v1/validate", handleValidate())
	r.Post("/v1/effects/resolve", handleResolve(st))

	return r
}

func throttle(limiters *clientLimiters) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiters.allow(r.RemoteAddr) {
				writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func handleExtract(schema *report.LabelSchema) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Raw    string `json:"raw"`
			Origin string `json:"origin"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if req.Raw == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "raw is required"})
			return
		}

		// The report goes out untouched: its source stays the exact text
		// the content hash was computed from. The caller's origin label
		// rides alongside.
		rep := report.Extract(req.Raw, schema)
		writeJSON(w, http.StatusOK, map[string]any{
			"origin": req.Origin,
			"report": rep,
		})
	}
}

func handleValidate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var chartCfg chartcfg.Config
		if err := json.NewDecoder(r.Body).Decode(&chartCfg); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		vc, err := chartcfg.Validate(chartCfg, metric.Default())
		if err != nil {
			var verr *chartcfg.ValidationError
			if errors.As(err, &verr) {
				writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
					"valid":  false,
					"reason": verr.Reason,
					"field":  verr.Field,
					"detail": verr.Detail,
				})
				return
			}
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "validation failed"})
			return
		}

		keys := make([]string, 0, len(vc.Definitions))
		for _, def := range vc.Definitions {
			keys = append(keys, def.Key)
		}
		writeJSON(w, http.StatusOK, map[string]any{"valid": true, "metrics": keys})
	}
}

func handleResolve(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Entity string     `json:"entity"`
			Level  int        `json:"level"`
			Metric string     `json:"metric"`
			AsOf   *time.Time `json:"as_of"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if req.Entity == "" || req.Metric == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "entity and metric are required"})
			return
		}

		set, err := st.LoadRevisionSet(r.Context())
		if err != nil {
			zap.L().Error("load revision set", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "revision store unavailable"})
			return
		}

		derived, err := effects.Resolve(set, req.Entity, req.Level, req.Metric, req.AsOf)
		if err != nil {
			var nre *effects.NoRevisionError
			if errors.As(err, &nre) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": nre.Error()})
				return
			}
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		writeJSON(w, http.StatusOK, derived)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
