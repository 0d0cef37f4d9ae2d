package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ridgeline-services/fieldops/internal/model"
	"github.com/ridgeline-services/fieldops/internal/store"
	"github.com/ridgeline-services/fieldops/internal/taxcalc"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server for pipeline triggers and run polling",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(e),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}

func newRouter(e *env) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/sync", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			InitiatedBy string `json:"initiated_by"`
		}
		decodeOptional(req, &body)

		// Runs outlive the request; polling happens via /api/runs.
		go func() {
			ctx := context.WithoutCancel(req.Context())
			result, err := e.syncer.SyncInvoices(ctx, body.InitiatedBy)
			if err != nil {
				zap.L().Error("serve: sync trigger failed", zap.Error(err))
				return
			}
			zap.L().Info("serve: sync finished",
				zap.String("run_id", result.RunID),
				zap.Bool("success", result.Success),
			)
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "type": "sync"})
	})

	r.Post("/api/calculate", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			InitiatedBy string   `json:"initiated_by"`
			Customers   []string `json:"customers"`
			IncludeMode bool     `json:"include_mode"`
		}
		decodeOptional(req, &body)

		go func() {
			ctx := context.WithoutCancel(req.Context())
			result, err := e.calculator.CalculateTaxes(ctx, body.InitiatedBy, taxcalc.Filters{
				CustomerIDs: body.Customers,
				IncludeMode: body.IncludeMode,
			})
			if err != nil {
				zap.L().Error("serve: calculate trigger failed", zap.Error(err))
				return
			}
			zap.L().Info("serve: calculation finished",
				zap.String("run_id", result.RunID),
				zap.Bool("success", result.Success),
			)
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "type": "calculate"})
	})

	r.Post("/api/quote", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Subtotal float64 `json:"subtotal"`
			Address  string  `json:"address"`
			County   string  `json:"county"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		quote, err := e.calculator.QuoteTax(req.Context(), taxcalc.QuoteInput{
			Subtotal: body.Subtotal,
			Address:  body.Address,
			County:   body.County,
		})
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, quote)
	})

	r.Get("/api/runs", func(w http.ResponseWriter, req *http.Request) {
		runs, err := e.store.ListRuns(req.Context(), store.RunFilter{
			Type: model.RunType(req.URL.Query().Get("type")),
		})
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, runs)
	})

	r.Get("/api/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
		run, err := e.store.GetRun(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
			return
		}
		writeJSON(w, http.StatusOK, run)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeOptional decodes a JSON body, tolerating an empty body.
func decodeOptional(req *http.Request, v any) {
	if req.Body == nil {
		return
	}
	_ = json.NewDecoder(req.Body).Decode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
