package handlers_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/chatcore/chatcore/internal/api/handlers"
	"github.com/chatcore/chatcore/internal/checkpoint"
	"github.com/chatcore/chatcore/internal/executor"
)

// stubService records calls and returns a canned outcome or error.
type stubService struct {
	outcome *executor.Outcome
	err     error
	calls   int
}

func (s *stubService) Run(_ context.Context, text, threadID string) (*executor.Outcome, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := *s.outcome
	if out.ThreadID == "" {
		out.ThreadID = threadID
	}
	return &out, nil
}

func newTestHandlers(t *testing.T, svc handlers.ChatService) *handlers.Handlers {
	t.Helper()
	store := checkpoint.NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	return handlers.New(svc, store)
}

func postChat(h *handlers.Handlers, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Chat(rec, req)
	return rec
}

func TestChatMissingText(t *testing.T) {
	svc := &stubService{}
	h := newTestHandlers(t, svc)

	for _, body := range []string{`{}`, `{"text":""}`, `{"text":"","thread_id":"t1"}`} {
		rec := postChat(h, body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rec.Code)
		}
		var resp map[string]string
		json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp["error"] != "'text' is required" {
			t.Errorf("body %s: error = %q, want \"'text' is required\"", body, resp["error"])
		}
	}

	// No state was touched: the executor never ran.
	if svc.calls != 0 {
		t.Errorf("executor ran %d times on invalid requests, want 0", svc.calls)
	}
}

func TestChatSuccess(t *testing.T) {
	svc := &stubService{outcome: &executor.Outcome{Text: "6 times 7 is 42.", ThreadID: "generated-id"}}
	h := newTestHandlers(t, svc)

	rec := postChat(h, `{"text":"What is 6 times 7?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.Contains(resp["text"], "42") {
		t.Errorf("text = %q, want answer containing 42", resp["text"])
	}
	if resp["thread_id"] != "generated-id" {
		t.Errorf("thread_id = %q, want generated-id", resp["thread_id"])
	}
}

func TestChatInternalError(t *testing.T) {
	svc := &stubService{err: fmt.Errorf("model gateway call failed (turn 1): connection refused")}
	h := newTestHandlers(t, svc)

	rec := postChat(h, `{"text":"hi"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	var resp map[string]string
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["error"] != "Internal server error" {
		t.Errorf("error = %q, want generic message", resp["error"])
	}
	if !strings.Contains(resp["details"], "connection refused") {
		t.Errorf("details = %q, want diagnostic detail", resp["details"])
	}
}

func TestChatMalformedBody(t *testing.T) {
	h := newTestHandlers(t, &stubService{})

	rec := postChat(h, `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	h := newTestHandlers(t, &stubService{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]string
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["status"] != "healthy" {
		t.Errorf("status = %q, want healthy", resp["status"])
	}
}
