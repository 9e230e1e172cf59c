package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the resolved deal schedules as a read-only JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		r := chi.NewRouter()
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet},
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Get("/api/deals", func(w http.ResponseWriter, req *http.Request) {
			schedules, err := env.Pipeline.ResolveAll(req.URL.Query().Get("district"), time.Now())
			if err != nil {
				zap.L().Error("serve: resolve failed", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "resolution failed"})
				return
			}
			writeJSON(w, http.StatusOK, schedules)
		})

		r.Get("/api/deals/{slug}", func(w http.ResponseWriter, req *http.Request) {
			schedules, err := env.Pipeline.ResolveAll("", time.Now())
			if err != nil {
				zap.L().Error("serve: resolve failed", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "resolution failed"})
				return
			}
			slug := chi.URLParam(req, "slug")
			for _, s := range schedules {
				if s.Restaurant.Slug == slug {
					writeJSON(w, http.StatusOK, s)
					return
				}
			}
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown restaurant"})
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("serve: encode response", zap.Error(err))
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
