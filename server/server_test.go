package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	contractx "github.com/botero-soto/sotobot/agent/contract"
	statex "github.com/botero-soto/sotobot/agent/state"
)

type fakeConvos struct {
	mu       sync.Mutex
	outcome  contractx.Outcome
	err      error
	resetErr error
	handled  []string
	resets   []string
}

func (f *fakeConvos) HandleMessage(_ context.Context, sessionID, text string) (contractx.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handled = append(f.handled, sessionID+"|"+text)
	if f.err != nil {
		return contractx.Outcome{}, f.err
	}
	return f.outcome, nil
}

func (f *fakeConvos) Reset(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, sessionID)
	return f.resetErr
}

func (f *fakeConvos) handledCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handled)
}

func newTestServer(convos *fakeConvos) *Server {
	return New(Config{Port: 0, TurnTimeout: 5 * time.Second}, convos, nil)
}

func postJSON(t *testing.T, s *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeConvos{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
}

func TestInteractionReturnsReply(t *testing.T) {
	t.Parallel()

	convos := &fakeConvos{
		outcome: contractx.Outcome{
			Messages:  []contractx.Message{contractx.AssistantMessage("¿Cuál es el NIT?")},
			NextState: "AWAITING_NIT",
		},
	}
	s := newTestServer(convos)

	rec := postJSON(t, s, "/interaction", map[string]string{
		"session_id": "s1",
		"message":    "quiero una cotización",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Reply string `json:"reply"`
		State string `json:"state"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Reply != "¿Cuál es el NIT?" {
		t.Fatalf("unexpected reply: %q", resp.Reply)
	}
	if resp.State != "AWAITING_NIT" {
		t.Fatalf("unexpected state: %q", resp.State)
	}
}

func TestInteractionRejectsMissingFields(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeConvos{})
	rec := postJSON(t, s, "/interaction", map[string]string{"session_id": "s1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestResetNotFound(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeConvos{resetErr: statex.ErrNotFound})
	req := httptest.NewRequest(http.MethodPost, "/session/ghost/reset", nil)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestWebhookAcceptsInboundText(t *testing.T) {
	t.Parallel()

	convos := &fakeConvos{outcome: contractx.Outcome{
		Messages: []contractx.Message{contractx.AssistantMessage("hola")},
	}}
	s := newTestServer(convos)

	rec := postJSON(t, s, "/webhook/"+WebhookPath, map[string]any{
		"event": "messages.upsert",
		"data": map[string]any{
			"key": map[string]any{
				"remoteJid": "573001112233@s.whatsapp.net",
				"fromMe":    false,
			},
			"message": map[string]any{"conversation": "quiero cotizar"},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	deadline := time.Now().Add(2 * time.Second)
	for convos.handledCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("webhook turn was never processed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebhookIgnoresOwnMessages(t *testing.T) {
	t.Parallel()

	convos := &fakeConvos{}
	s := newTestServer(convos)

	rec := postJSON(t, s, "/webhook/"+WebhookPath, map[string]any{
		"event": "messages.upsert",
		"data": map[string]any{
			"key": map[string]any{
				"remoteJid": "573001112233@s.whatsapp.net",
				"fromMe":    true,
			},
			"message": map[string]any{"conversation": "respuesta propia"},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	time.Sleep(50 * time.Millisecond)
	if convos.handledCount() != 0 {
		t.Fatal("own messages must not start a turn")
	}
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	t.Parallel()

	convos := &fakeConvos{}
	s := newTestServer(convos)

	rec := postJSON(t, s, "/webhook/"+WebhookPath, map[string]any{
		"event": "connection.update",
		"data":  map[string]any{},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if convos.handledCount() != 0 {
		t.Fatal("non-message events must not start a turn")
	}
}

type gatedConvos struct {
	fakeConvos
	entered chan string
	gate    chan struct{}
}

func (g *gatedConvos) HandleMessage(ctx context.Context, sessionID, text string) (contractx.Outcome, error) {
	g.entered <- sessionID
	<-g.gate
	return g.fakeConvos.HandleMessage(ctx, sessionID, text)
}

func TestInteractionLocksOnTrimmedSessionID(t *testing.T) {
	t.Parallel()

	convos := &gatedConvos{
		entered: make(chan string, 2),
		gate:    make(chan struct{}),
	}
	s := New(Config{Port: 0, TurnTimeout: 5 * time.Second}, convos, nil)

	done := make(chan struct{})
	go func() {
		postJSON(t, s, "/interaction", map[string]string{
			"session_id": "  s1  ",
			"message":    "hola",
		})
		close(done)
	}()

	select {
	case id := <-convos.entered:
		if id != "s1" {
			t.Fatalf("session id reached the pipeline untrimmed: %q", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first turn never started")
	}

	// The bare id must queue behind the padded one, not run alongside it.
	second := make(chan struct{})
	go func() {
		postJSON(t, s, "/interaction", map[string]string{
			"session_id": "s1",
			"message":    "sigo aquí",
		})
		close(second)
	}()

	select {
	case <-convos.entered:
		t.Fatal("second turn ran while the first still held the session lock")
	case <-time.After(50 * time.Millisecond):
	}

	close(convos.gate)
	<-done
	select {
	case <-convos.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("second turn never proceeded after release")
	}
	<-second
}

func TestSessionLocksSerializePerSession(t *testing.T) {
	t.Parallel()

	locks := newSessionLocks()
	release := locks.acquire("s1")

	acquired := make(chan struct{})
	go func() {
		r := locks.acquire("s1")
		close(acquired)
		r()
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire should block while the first holds the lock")
	case <-time.After(50 * time.Millisecond):
	}

	release()
	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("second acquire never proceeded")
	}

	// A different session is not serialized behind s1.
	r2 := locks.acquire("s2")
	r2()
}
