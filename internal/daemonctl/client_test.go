package daemonctl_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"reelsync/internal/api"
	"reelsync/internal/daemonctl"
)

func newClient(t *testing.T, srv *httptest.Server) *daemonctl.Client {
	t.Helper()
	client, err := daemonctl.New(srv.URL)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return client
}

func TestNewRejectsEmptyBind(t *testing.T) {
	if _, err := daemonctl.New("  "); !errors.Is(err, daemonctl.ErrAPIDisabled) {
		t.Fatalf("expected ErrAPIDisabled, got %v", err)
	}
}

func TestStatusDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/status" || r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(api.DaemonStatus{
			Running: true,
			PID:     4242,
			Sync:    api.SyncStatus{State: "running", RunID: "run-1"},
		})
	}))
	defer srv.Close()

	status, err := newClient(t, srv).Status(context.Background())
	if err != nil {
		t.Fatalf("Status error: %v", err)
	}
	if !status.Running || status.PID != 4242 || status.Sync.RunID != "run-1" {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestScrapeSendsRequestBody(t *testing.T) {
	var got api.ScrapeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/scrape" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(api.ScrapeResponse{Inserted: 7, RunID: "run-2"})
	}))
	defer srv.Close()

	resp, err := newClient(t, srv).Scrape(context.Background(), "top rated", 10)
	if err != nil {
		t.Fatalf("Scrape error: %v", err)
	}
	if got.Criteria != "top rated" || got.Quantity != 10 {
		t.Fatalf("unexpected request body: %+v", got)
	}
	if resp.Inserted != 7 || resp.RunID != "run-2" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestErrorResponsesBecomeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "scraper service not ready"})
	}))
	defer srv.Close()

	_, err := newClient(t, srv).RestartSync(context.Background())
	var apiErr *daemonctl.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusServiceUnavailable || apiErr.Message != "scraper service not ready" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}

func TestConnectionRefusedMeansNotRunning(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := listener.Addr().String()
	_ = listener.Close()

	client, err := daemonctl.New(addr)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if err := client.Health(context.Background()); !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestLogsBuildsQuery(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_ = json.NewEncoder(w).Encode(api.LogStreamResponse{
			Events: []api.LogEvent{{Timestamp: "2026-10-19T12:00:00.000Z", Level: "INFO", Message: "hello"}},
			Next:   42,
		})
	}))
	defer srv.Close()

	resp, err := newClient(t, srv).Logs(context.Background(), daemonctl.LogQuery{
		Since:     3,
		Limit:     50,
		Follow:    true,
		Tail:      true,
		Component: "workflow",
		ItemID:    "tt0111161",
	})
	if err != nil {
		t.Fatalf("Logs error: %v", err)
	}
	if len(resp.Events) != 1 || resp.Next != 42 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	for key, want := range map[string]string{
		"since":     "3",
		"limit":     "50",
		"follow":    "1",
		"tail":      "1",
		"component": "workflow",
		"item":      "tt0111161",
	} {
		if got := gotQuery.Get(key); got != want {
			t.Fatalf("query[%s]: expected %q, got %q", key, want, got)
		}
	}
}

func TestStreamLogsFollowsCursor(t *testing.T) {
	var calls atomic.Int32
	cursors := make(chan string, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		cursors <- r.URL.Query().Get("since")
		_ = json.NewEncoder(w).Encode(api.LogStreamResponse{
			Events: []api.LogEvent{{Message: "event"}},
			Next:   uint64(n * 10),
		})
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var messages []string
	printed, err := newClient(t, srv).StreamLogs(ctx, daemonctl.StreamOptions{Lines: 5, Follow: true}, func(evt api.LogEvent) {
		messages = append(messages, evt.Message)
		if len(messages) == 3 {
			cancel()
		}
	})
	if err != nil {
		t.Fatalf("StreamLogs error: %v", err)
	}
	if !printed || len(messages) < 3 {
		t.Fatalf("expected at least three events, got %v", messages)
	}
	if first := <-cursors; first != "" {
		t.Fatalf("expected first request without cursor, got %q", first)
	}
	if second := <-cursors; second != "10" {
		t.Fatalf("expected second request to resume at 10, got %q", second)
	}
}

func TestStreamLogsWithoutFollowReturnsAfterOneBatch(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if !strings.Contains(r.URL.RawQuery, "tail=1") {
			t.Errorf("expected tail query, got %q", r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode(api.LogStreamResponse{})
	}))
	defer srv.Close()

	printed, err := newClient(t, srv).StreamLogs(context.Background(), daemonctl.StreamOptions{Lines: 10}, nil)
	if err != nil {
		t.Fatalf("StreamLogs error: %v", err)
	}
	if printed || calls.Load() != 1 {
		t.Fatalf("expected single empty batch, printed=%v calls=%d", printed, calls.Load())
	}
}
