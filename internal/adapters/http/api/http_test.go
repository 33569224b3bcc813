package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"cardbot/internal/adapters/dispatch"
	"cardbot/internal/adapters/mq/queue"
	"cardbot/internal/app"
	"cardbot/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type stubStatus struct {
	st queue.Status
}

func (s *stubStatus) Status() queue.Status { return s.st }

func newTestMux(status StatusProvider) *http.ServeMux {
	mux := http.NewServeMux()
	NewServer(status, nil).Register(context.Background(), mux)
	return mux
}

func TestHandleHealth(t *testing.T) {
	mux := newTestMux(&stubStatus{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status field = %q", body.Status)
	}
}

func TestHandleHealthMethodNotAllowed(t *testing.T) {
	mux := newTestMux(&stubStatus{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	mux := newTestMux(&stubStatus{st: queue.Status{
		Active:           1,
		Queued:           3,
		ConcurrencyLimit: 1,
		TrackedUsers:     2,
	}})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var st queue.Status
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if st.Queued != 3 || st.Active != 1 || st.TrackedUsers != 2 {
		t.Errorf("unexpected snapshot: %+v", st)
	}
}

type stubQueryService struct{}

func (stubQueryService) HandleQuery(ctx context.Context, req app.QueryRequest, sink dispatch.Sink) error {
	return sink.EditPlaceholder(ctx, dispatch.Payload{Text: "answer for " + req.Query})
}

func TestHandleQuery(t *testing.T) {
	mux := http.NewServeMux()
	NewServer(&stubStatus{}, stubQueryService{}).Register(context.Background(), mux)

	body := strings.NewReader(`{"command":"card","user_id":"u1","query":"dark magician"}`)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/query", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp queryResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(resp.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(resp.Messages))
	}
	if !resp.Messages[0].Placeholder || resp.Messages[0].Text != "answer for dark magician" {
		t.Errorf("unexpected message: %+v", resp.Messages[0])
	}
}

func TestHandleQueryMissingQuery(t *testing.T) {
	mux := http.NewServeMux()
	NewServer(&stubStatus{}, stubQueryService{}).Register(context.Background(), mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{}`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandleMetrics(t *testing.T) {
	mux := newTestMux(&stubStatus{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
