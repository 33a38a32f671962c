package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/scenescout/extract-cli/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the extraction HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))
		r.Use(rateLimit(rate.Limit(cfg.Server.RateLimitRPS), cfg.Server.RateLimitBurst))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/extract", env.handleExtract)
		r.Post("/corrections", env.handleCorrection)
		r.Post("/suggestions", env.handleSuggestion)
		r.Get("/venues/resolve", env.handleResolveVenue)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
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

// rateLimit applies a process-wide token bucket to all requests.
func rateLimit(limit rate.Limit, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(limit, burst)
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

func (e *engineEnv) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text   string   `json:"text"`
		Fields []string `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}

	fields := model.AllFieldTypes()
	if len(req.Fields) > 0 {
		fields = fields[:0]
		for _, name := range req.Fields {
			ft, err := model.FieldTypeForName(name)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
			fields = append(fields, ft)
		}
	}

	extractions := []model.Extraction{}
	for _, ft := range fields {
		ext, err := e.Matcher.Extract(r.Context(), req.Text, ft)
		if err != nil {
			zap.L().Error("extract failed", zap.String("field", string(ft)), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "extraction failed"})
			return
		}
		if ext != nil {
			extractions = append(extractions, *ext)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"extractions": extractions})
}

func (e *engineEnv) handleCorrection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PostRef        string `json:"post_ref"`
		FieldName      string `json:"field_name"`
		OriginalValue  string `json:"original_extracted_value"`
		CorrectedValue string `json:"corrected_value"`
		RawSourceText  string `json:"raw_source_text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	c, err := e.Store.CreateCorrection(r.Context(), model.Correction{
		PostRef:        req.PostRef,
		FieldName:      req.FieldName,
		OriginalValue:  req.OriginalValue,
		CorrectedValue: req.CorrectedValue,
		RawSourceText:  req.RawSourceText,
	})
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": c.ID})
}

func (e *engineEnv) handleSuggestion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FieldType      string `json:"field_type"`
		SuggestedRegex string `json:"suggested_regex"`
		SampleText     string `json:"sample_text"`
		ExpectedValue  string `json:"expected_value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	ft, err := model.ParseFieldType(req.FieldType)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	s, err := e.Manager.Enqueue(r.Context(), ft, req.SuggestedRegex, req.SampleText, req.ExpectedValue)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

func (e *engineEnv) handleResolveVenue(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "q is required"})
		return
	}

	matches, err := e.Resolver.FindSimilarVenues(r.Context(), query, 0)
	if err != nil {
		zap.L().Error("venue resolution failed", zap.String("query", query), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "resolution failed"})
		return
	}
	if matches == nil {
		matches = []model.VenueMatch{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": matches})
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
