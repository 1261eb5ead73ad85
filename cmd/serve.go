package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/holdings-cli/internal/query"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the query layer as a read-only JSON API",
	Long: `Serve the query layer as a read-only JSON API.

The server never writes to the database, so it can run alongside the
scheduled ingestion without violating the single-writer discipline.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		router := newRouter(query.NewService(st))

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		server := &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			zap.L().Info("query api listening", zap.Int("port", port))
			errCh <- server.ListenAndServe()
		}()

		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		}
	},
}

// newRouter builds the read-only JSON API over the query service.
func newRouter(svc *query.Service) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
			st, err := svc.Stats(req.Context())
			respond(w, st, err)
		})

		r.Route("/etfs/{code}", func(r chi.Router) {
			r.Get("/holdings/latest", func(w http.ResponseWriter, req *http.Request) {
				rows, err := svc.Latest(req.Context(), chi.URLParam(req, "code"))
				respond(w, rows, err)
			})

			r.Get("/holdings/top", func(w http.ResponseWriter, req *http.Request) {
				n, _ := strconv.Atoi(req.URL.Query().Get("n"))
				date := req.URL.Query().Get("date")
				rows, err := svc.Top(req.Context(), chi.URLParam(req, "code"), n, date)
				respond(w, rows, err)
			})

			r.Get("/history", func(w http.ResponseWriter, req *http.Request) {
				name := req.URL.Query().Get("name")
				if name == "" {
					writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
					return
				}
				rows, err := svc.BondHistory(req.Context(), chi.URLParam(req, "code"), name)
				respond(w, rows, err)
			})

			r.Get("/exposure", func(w http.ResponseWriter, req *http.Request) {
				country := req.URL.Query().Get("country")
				if country == "" {
					writeJSON(w, http.StatusBadRequest, map[string]string{"error": "country is required"})
					return
				}
				points, err := svc.CountryExposure(req.Context(), chi.URLParam(req, "code"), country)
				respond(w, points, err)
			})

			r.Get("/compare", func(w http.ResponseWriter, req *http.Request) {
				from := req.URL.Query().Get("from")
				to := req.URL.Query().Get("to")
				if from == "" || to == "" {
					writeJSON(w, http.StatusBadRequest, map[string]string{"error": "from and to are required"})
					return
				}
				diff, err := svc.CompareDates(req.Context(), chi.URLParam(req, "code"), from, to)
				respond(w, diff, err)
			})

			r.Get("/dates", func(w http.ResponseWriter, req *http.Request) {
				dates, err := svc.AvailableDates(req.Context(), chi.URLParam(req, "code"))
				respond(w, dates, err)
			})
		})
	})

	return r
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// respond writes the payload, mapping query.ErrNoData to 404.
func respond(w http.ResponseWriter, payload any, err error) {
	if err != nil {
		if errors.Is(err, query.ErrNoData) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no data for request"})
			return
		}
		zap.L().Error("query failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
