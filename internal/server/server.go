package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"feed_aggregator/internal/aggregator"
	"feed_aggregator/internal/insight"
	"feed_aggregator/internal/logger"
	"feed_aggregator/internal/models"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger проверяет доступность внешней зависимости, например базы со списком лент.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server хранит зависимости HTTP-обработчиков.
type Server struct {
	builder   aggregator.Builder
	annotator insight.Annotator
	pinger    Pinger
}

// NewServer создаёт Server. annotator и pinger могут быть nil.
func NewServer(builder aggregator.Builder, annotator insight.Annotator, pinger Pinger) *Server {
	return &Server{builder: builder, annotator: annotator, pinger: pinger}
}

// TimelineResponse — тело ответа /api/timeline.
type TimelineResponse struct {
	GeneratedAt time.Time               `json:"generated_at"`
	Items       []insight.AnnotatedItem `json:"items"`
	Sources     []models.SourceReport   `json:"sources"`
}

// Routes регистрирует обработчики и оборачивает их в middleware.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/timeline", s.GetTimeline)
	mux.HandleFunc("GET /health", s.HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())

	var handler http.Handler = mux
	handler = LoggingMiddleware(handler)
	handler = RequestIDMiddleware(handler)
	return handler
}

// HealthCheck отвечает 200 OK; если настроена база, она должна отвечать на ping.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			http.Error(w, "DB unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.Write([]byte("OK"))
}

// GetTimeline строит ленту заново на каждый запрос. Отключение клиента отменяет загрузки.
// Ошибки источников не превращаются в ошибку ответа: пустая лента — тоже 200.
func (s *Server) GetTimeline(w http.ResponseWriter, r *http.Request) {
	timeline := s.builder.Build(r.Context())
	if err := r.Context().Err(); err != nil {
		logger.Log.WithField("request_id", w.Header().Get(RequestIDHeader)).
			Debug("Client went away before timeline was ready")
		return
	}

	response := TimelineResponse{
		GeneratedAt: timeline.GeneratedAt,
		Items:       insight.Attach(timeline, s.annotator),
		Sources:     timeline.Sources,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
