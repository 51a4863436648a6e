package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/scorecard/internal/config"
	"github.com/sells-group/scorecard/internal/rollup"
	"github.com/sells-group/scorecard/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the annotated scorecard as a JSON API",
	Long:  "Read-only API over the live hierarchy: the tree is reloaded and rolled up on every request, so responses always reflect the current measurements.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		router := buildRouter(st, cfg.Server)
		port := resolvePort(servePort, cfg.Server.Port)

		return startServer(ctx, router, port)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// resolvePort prefers the flag over the configured port.
func resolvePort(flagPort, cfgPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return cfgPort
}

// buildRouter wires the read endpoints. Every data endpoint recomputes the
// rollup from the store, which is why the whole router sits behind the rate
// limiter.
func buildRouter(st store.Store, serverCfg config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: serverCfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(rateLimit(rate.NewLimiter(rate.Limit(serverCfg.RatePerSecond), serverCfg.RateBurst)))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/tree", handleTree(st))
		r.Get("/tree/{id}", handleSubtree(st))
		r.Get("/summary", handleSummary(st))
	})

	return r
}

// rateLimit rejects requests beyond the shared limiter's budget with 429.
func rateLimit(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// handleTree returns every annotated business outcome tree.
func handleTree(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results, err := recompute(r.Context(), st)
		if err != nil {
			serveError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"roots": results})
	}
}

// handleSubtree returns the annotated subtree rooted at one node.
func handleSubtree(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results, err := recompute(r.Context(), st)
		if err != nil {
			serveError(w, err)
			return
		}
		id := chi.URLParam(r, "id")
		res := rollup.Find(results, id)
		if res == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "node not found: " + id})
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// handleSummary returns status counts per level.
func handleSummary(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results, err := recompute(r.Context(), st)
		if err != nil {
			serveError(w, err)
			return
		}

		total := 0
		rollup.Walk(results, func(*rollup.Result) { total++ })
		writeJSON(w, http.StatusOK, map[string]any{
			"total":  total,
			"levels": statusSummary(results),
		})
	}
}

// recompute loads the forest and rolls it up, the same path the status
// command takes.
func recompute(ctx context.Context, st store.Store) ([]*rollup.Result, error) {
	roots, err := loadForest(ctx, st)
	if err != nil {
		return nil, err
	}
	return computeForest(ctx, roots), nil
}

func serveError(w http.ResponseWriter, err error) {
	zap.L().Error("request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// startServer runs the HTTP server until ctx is cancelled, then shuts it
// down gracefully.
func startServer(ctx context.Context, handler http.Handler, port int) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		_ = srv.Shutdown(context.Background())
	}()

	zap.L().Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server listen")
	}

	return nil
}
