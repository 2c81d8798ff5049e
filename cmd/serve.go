package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/store"
)

var servePort int

// companyEnricher classifies one lead's company. *enrich.Enricher
// satisfies it.
type companyEnricher interface {
	Enrich(ctx context.Context, l model.Lead) (model.Enrichment, bool, error)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for run history and single company enrichment",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withEnv(cmd, "serve", func(ctx context.Context, e *stageEnv) error {
			enricher, err := e.Enricher(0)
			if err != nil {
				return err
			}

			port := servePort
			if port == 0 {
				port = cfg.Server.Port
			}

			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", port),
				Handler:           buildRouter(e.Store, enricher),
				ReadHeaderTimeout: 10 * time.Second,
			}

			if cfg.Monitoring.WebhookURL != "" {
				go newChecker(e.Store).Run(ctx)
			}

			// Graceful shutdown
			go func() {
				<-ctx.Done()
				zap.L().Info("shutting down server")
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			zap.L().Info("starting server", zap.Int("port", port))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// buildRouter wires the API routes. enricher may be nil, in which case
// POST /enrich answers 503.
func buildRouter(st store.Store, enricher companyEnricher) http.Handler {
	if st == nil {
		st = store.Nop{}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/runs", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		filter := store.RunFilter{
			Stage:  q.Get("stage"),
			Status: model.RunStatus(q.Get("status")),
			Limit:  50,
		}
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
				return
			}
			filter.Limit = n
		}
		if v := q.Get("offset"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
				return
			}
			filter.Offset = n
		}

		runs, err := st.ListRuns(req.Context(), filter)
		if err != nil {
			zap.L().Error("list runs failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to list runs")
			return
		}
		if runs == nil {
			runs = []model.StageRun{}
		}
		writeJSON(w, http.StatusOK, runs)
	})

	r.Get("/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
		run, err := st.GetRun(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		writeJSON(w, http.StatusOK, run)
	})

	// Enricher memoizes in a plain map, so requests take turns.
	var mu sync.Mutex
	r.Post("/enrich", func(w http.ResponseWriter, req *http.Request) {
		if enricher == nil {
			writeError(w, http.StatusServiceUnavailable, "enrichment is not configured")
			return
		}

		var lead model.Lead
		if err := json.NewDecoder(req.Body).Decode(&lead); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		lead.Company = strings.TrimSpace(lead.Company)
		if lead.Company == "" && lead.Website() == "" {
			writeError(w, http.StatusBadRequest, "company or company_website is required")
			return
		}

		mu.Lock()
		enriched, cached, err := enricher.Enrich(req.Context(), lead)
		mu.Unlock()
		if err != nil {
			zap.L().Warn("enrich request aborted", zap.String("company", lead.Company), zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "enrichment aborted")
			return
		}

		if cached {
			w.Header().Set("X-Cache", "hit")
		} else {
			w.Header().Set("X-Cache", "miss")
		}
		writeJSON(w, http.StatusOK, enriched)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
