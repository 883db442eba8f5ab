package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go-rag-qa/rag"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Server struct {
	answerer *rag.Answerer
	logger   *zap.Logger
	metrics  *Metrics
	gatherer prometheus.Gatherer
}

func NewServer(answerer *rag.Answerer, logger *zap.Logger, metrics *Metrics, gatherer prometheus.Gatherer) *Server {
	return &Server{
		answerer: answerer,
		logger:   logger,
		metrics:  metrics,
		gatherer: gatherer,
	}
}

// Routes returns the server's handler with request logging and metrics.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/health", s.instrument("health", http.HandlerFunc(s.healthHandler)))
	mux.Handle("/rank", s.instrument("rank", http.HandlerFunc(s.rankHandler)))
	mux.Handle("/ask", s.instrument("ask", http.HandlerFunc(s.askHandler)))
	mux.Handle("/metrics", s.instrument("metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	return mux
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(endpoint string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		s.metrics.ObserveRequest(endpoint, strconv.Itoa(rec.status), elapsed.Seconds())
		s.logger.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", elapsed),
		)
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintln(w, "ok")
}

// statusFor maps an answerer error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, rag.ErrEmptyQuestion):
		return http.StatusBadRequest
	case errors.Is(err, rag.ErrProvider):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status != http.StatusBadRequest {
		s.logger.Error("request failed",
			zap.String("request_id", w.Header().Get("X-Request-ID")),
			zap.String("path", r.URL.Path),
			zap.Int("provider_status", rag.ProviderStatus(err)),
			zap.Error(err),
		)
	}
	http.Error(w, err.Error(), status)
}

type rankRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// rankedDocument is the wire form of a ranked result.
type rankedDocument struct {
	Title   string  `json:"title"`
	Heading string  `json:"heading"`
	Score   float64 `json:"score"`
}

func toRankedDocuments(results []rag.RankedResult) []rankedDocument {
	out := make([]rankedDocument, len(results))
	for i, r := range results {
		out[i] = rankedDocument{Title: r.ID.Title, Heading: r.ID.Heading, Score: r.Score}
	}
	return out
}

// POST /rank  { "query": "your question", "top_k": 5 }
func (s *Server) rankHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req rankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	results, err := s.answerer.Rank(r.Context(), req.Query, req.TopK)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toRankedDocuments(results))
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer       string           `json:"answer"`
	Sources      []rankedDocument `json:"sources"`
	ProcessingMs int64            `json:"processing_ms"`
}

// POST /ask  { "question": "your question" }
func (s *Server) askHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	start := time.Now()
	answer, err := s.answerer.Ask(r.Context(), req.Question)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(askResponse{
		Answer:       answer.Text,
		Sources:      toRankedDocuments(answer.Sources),
		ProcessingMs: time.Since(start).Milliseconds(),
	})
}
