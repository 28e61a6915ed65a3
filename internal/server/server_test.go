package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"feed_aggregator/internal/config"
	"feed_aggregator/internal/insight"
	"feed_aggregator/internal/logger"
	"feed_aggregator/internal/models"
	"feed_aggregator/internal/server"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.Silence()
}

type stubBuilder struct {
	timeline models.Timeline
	gotCtx   context.Context
}

func (s *stubBuilder) Build(ctx context.Context) models.Timeline {
	s.gotCtx = ctx
	return s.timeline
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func sampleTimeline() models.Timeline {
	published := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	return models.Timeline{
		GeneratedAt: time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC),
		Items: []models.CanonicalItem{
			{ID: "1", Title: "LBO closes", Link: "https://x.com/1", PublishedAt: &published, SourceTitle: "X", SourceLink: "https://x.com/rss"},
			{ID: "2", Title: "Weather", Link: "https://x.com/2", SourceTitle: "X", SourceLink: "https://x.com/rss"},
		},
		Sources: []models.SourceReport{
			{URL: "https://x.com/rss", Title: "X", Items: 2},
			{URL: "https://down.com/rss", Title: "down.com", Error: "fetch https://down.com/rss: timed out"},
		},
	}
}

func TestGetTimeline(t *testing.T) {
	builder := &stubBuilder{timeline: sampleTimeline()}
	annotator := insight.NewKeywordAnnotator([]config.Insight{{Title: "Buyouts", Keywords: []string{"lbo"}}})
	srv := server.NewServer(builder, annotator, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/timeline", nil)
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	require.NotEmpty(t, w.Header().Get(server.RequestIDHeader))
	require.NotNil(t, builder.gotCtx)

	var resp server.TimelineResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 2)
	require.Equal(t, "1", resp.Items[0].ID)
	require.NotNil(t, resp.Items[0].Insight)
	require.Equal(t, "Buyouts", resp.Items[0].Insight.Title)
	require.Nil(t, resp.Items[1].Insight)
	require.Nil(t, resp.Items[1].PublishedAt)
	require.Len(t, resp.Sources, 2)
	require.NotEmpty(t, resp.Sources[1].Error)
}

func TestGetTimeline_EmptyIsNotAnError(t *testing.T) {
	srv := server.NewServer(&stubBuilder{timeline: models.Timeline{Items: []models.CanonicalItem{}}}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/timeline", nil)
	w := httptest.NewRecorder()
	srv.GetTimeline(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"items":[]`)
}

func TestHealthCheck(t *testing.T) {
	t.Run("no database", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.NewServer(&stubBuilder{}, nil, nil).HealthCheck(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "OK", w.Body.String())
	})

	t.Run("database down", func(t *testing.T) {
		w := httptest.NewRecorder()
		srv := server.NewServer(&stubBuilder{}, nil, stubPinger{err: errors.New("refused")})
		srv.HealthCheck(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestRequestIDMiddleware_KeepsIncomingID(t *testing.T) {
	srv := server.NewServer(&stubBuilder{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(server.RequestIDHeader, "abc123")
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)

	require.Equal(t, "abc123", w.Header().Get(server.RequestIDHeader))
}

func TestLoggingMiddleware(t *testing.T) {
	hook := logtest.NewLocal(logger.Log)
	t.Cleanup(func() { logger.Log.ReplaceHooks(make(logrus.LevelHooks)) })

	tests := []struct {
		name    string
		status  int
		body    string
		level   logrus.Level
		message string
	}{
		{name: "ok", status: http.StatusOK, body: "hello", level: logrus.InfoLevel, message: "Request processed"},
		{name: "upstream error", status: http.StatusBadGateway, body: "bad", level: logrus.WarnLevel, message: "Request failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hook.Reset()
			h := server.LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/timeline", nil)
			req.Header.Set(server.RequestIDHeader, "req-1")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			require.Equal(t, tt.status, w.Code)
			entry := hook.LastEntry()
			require.NotNil(t, entry)
			require.Equal(t, tt.level, entry.Level)
			require.Equal(t, tt.message, entry.Message)
			require.Equal(t, tt.status, entry.Data["status"])
			require.Equal(t, len(tt.body), entry.Data["bytes"])
			require.Equal(t, "/api/timeline", entry.Data["path"])
			require.Equal(t, "req-1", entry.Data["request_id"])
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := server.NewServer(&stubBuilder{}, nil, nil)

	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "go_goroutines")
}
