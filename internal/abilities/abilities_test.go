package abilities

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/shaiso/Foreman/internal/telemetry"
	"github.com/shaiso/Foreman/internal/worker"
)

type fakeTarget struct {
	registered []string
	statuses   [][2]int
}

func (f *fakeTarget) RegisterFunction(name string, _ worker.JobFunc) string {
	f.registered = append(f.registered, name)
	return name
}

func (f *fakeTarget) SendJobStatus(_ *worker.Job, numerator, denominator int) {
	f.statuses = append(f.statuses, [2]int{numerator, denominator})
}

func newJob(function string, data []byte) *worker.Job {
	return &worker.Job{Handle: "H:1", Function: function, Data: data}
}

// --- Registry Tests ---

func TestNames_Sorted(t *testing.T) {
	want := []string{"delay", "echo", "http", "reverse", "upper"}
	if got := Names(); !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestRegister_All(t *testing.T) {
	target := &fakeTarget{}
	if err := Register(target); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(target.registered, Names()) {
		t.Errorf("expected all abilities, got %v", target.registered)
	}
}

func TestRegister_Subset(t *testing.T) {
	target := &fakeTarget{}
	if err := Register(target, "echo", "http"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(target.registered, []string{"echo", "http"}) {
		t.Errorf("expected [echo http], got %v", target.registered)
	}
}

func TestRegister_UnknownRegistersNothing(t *testing.T) {
	target := &fakeTarget{}
	err := Register(target, "echo", "teleport")
	if !errors.Is(err, ErrUnknownAbility) {
		t.Fatalf("expected ErrUnknownAbility, got %v", err)
	}
	if len(target.registered) != 0 {
		t.Errorf("nothing should be registered, got %v", target.registered)
	}
}

// --- Text Tests ---

func TestTextAbilities(t *testing.T) {
	tests := []struct {
		name string
		fn   worker.JobFunc
		in   string
		want string
	}{
		{"echo", Echo, "hello", "hello"},
		{"echo empty", Echo, "", ""},
		{"reverse ascii", Reverse, "abc", "cba"},
		{"reverse utf8", Reverse, "привет", "тевирп"},
		{"upper", Upper, "MiXeD", "MIXED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.fn(context.Background(), newJob(tt.name, []byte(tt.in)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(out) != tt.want {
				t.Errorf("expected %q, got %q", tt.want, out)
			}
		})
	}
}

// --- Delay Tests ---

func TestDelay_ReportsProgress(t *testing.T) {
	target := &fakeTarget{}
	fn := Delay(target)

	start := time.Now()
	out, err := fn(context.Background(), newJob("delay", []byte(`{"duration_sec": 0.05}`)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) < 50*time.Millisecond {
		t.Error("delay returned too early")
	}

	var result delayResult
	if err := json.Unmarshal(out, &result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.DelayedSec != 0.05 {
		t.Errorf("expected delayed_sec 0.05, got %v", result.DelayedSec)
	}
	if !slices.Equal(target.statuses, [][2]int{{1, 1}}) {
		t.Errorf("expected status 1/1, got %v", target.statuses)
	}
}

func TestDelay_Cancelled(t *testing.T) {
	fn := Delay(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := fn(ctx, newJob("delay", []byte(`{"duration_sec": 10}`)))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}

func TestDelay_InvalidInput(t *testing.T) {
	_, err := Delay(nil)(context.Background(), newJob("delay", []byte("ten seconds")))
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDelay_LogsThroughJobLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})).With("handle", "H:1")
	ctx := telemetry.WithLogger(context.Background(), logger)

	if _, err := Delay(nil)(ctx, newJob("delay", []byte(`{"duration_sec": 0.01}`))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "delay started") || !strings.Contains(out, "handle=H:1") {
		t.Errorf("expected job logger output, got %q", out)
	}
}

// --- HTTP Tests ---

func TestHTTP_GET_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		w.Header().Set("X-Custom", "test-value")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{"result": "ok"})
	}))
	defer server.Close()

	data, _ := json.Marshal(map[string]any{"url": server.URL})
	out, err := HTTP(server.Client())(context.Background(), newJob("http", data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result struct {
		StatusCode int               `json:"status_code"`
		Headers    map[string]string `json:"headers"`
		Body       map[string]any    `json:"body"`
	}
	if err := json.Unmarshal(out, &result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", result.StatusCode)
	}
	if result.Headers["X-Custom"] != "test-value" {
		t.Errorf("expected X-Custom header, got %v", result.Headers["X-Custom"])
	}
	if result.Body["result"] != "ok" {
		t.Errorf("expected result=ok, got %v", result.Body["result"])
	}
}

func TestHTTP_POST_WithBody(t *testing.T) {
	var receivedBody map[string]any
	var receivedContentType, receivedAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		receivedContentType = r.Header.Get("Content-Type")
		receivedAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&receivedBody)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("created"))
	}))
	defer server.Close()

	data, _ := json.Marshal(map[string]any{
		"method":  "POST",
		"url":     server.URL,
		"body":    map[string]any{"name": "test"},
		"headers": map[string]string{"Authorization": "Bearer token123"},
	})
	out, err := HTTP(server.Client())(context.Background(), newJob("http", data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if receivedBody["name"] != "test" {
		t.Errorf("server should receive body, got %v", receivedBody)
	}
	if receivedContentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", receivedContentType)
	}
	if receivedAuth != "Bearer token123" {
		t.Errorf("expected Authorization header, got %s", receivedAuth)
	}

	// Не-JSON ответ возвращается строкой
	var result struct {
		StatusCode int    `json:"status_code"`
		Body       string `json:"body"`
	}
	if err := json.Unmarshal(out, &result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.StatusCode != http.StatusCreated || result.Body != "created" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestHTTP_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "internal"}`))
	}))
	defer server.Close()

	data, _ := json.Marshal(map[string]any{"url": server.URL})
	_, err := HTTP(server.Client())(context.Background(), newJob("http", data))
	if !errors.Is(err, ErrHTTPStatus) {
		t.Fatalf("expected ErrHTTPStatus, got %v", err)
	}
	if !strings.Contains(err.Error(), "HTTP 500") {
		t.Errorf("error should mention status, got %v", err)
	}
}

func TestHTTP_MissingURL(t *testing.T) {
	_, err := HTTP(nil)(context.Background(), newJob("http", []byte(`{"method": "GET"}`)))
	if !errors.Is(err, ErrHTTPRequest) {
		t.Errorf("expected ErrHTTPRequest, got %v", err)
	}
}

func TestHTTP_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	data, _ := json.Marshal(map[string]any{"url": server.URL, "timeout_sec": 0.05})
	_, err := HTTP(server.Client())(context.Background(), newJob("http", data))
	if !errors.Is(err, ErrHTTPRequest) {
		t.Errorf("expected ErrHTTPRequest on timeout, got %v", err)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("expected short, got %s", got)
	}
	if got := truncate("abcdefghij", 5); got != "abcde..." {
		t.Errorf("expected abcde..., got %s", got)
	}
}

func TestHTTP_LogsThroughJobLogger(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := telemetry.WithLogger(context.Background(), logger)

	data, _ := json.Marshal(map[string]any{"url": server.URL})
	if _, err := HTTP(server.Client())(ctx, newJob("http", data)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "http request") || !strings.Contains(out, "status=204") {
		t.Errorf("expected request and response logs, got %q", out)
	}
}
