package http

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"visa-checker/internal/app"
	"visa-checker/internal/domain"
	"visa-checker/internal/infra/memory"
	"visa-checker/internal/present"
)

func TestWebSocketQuestionnaireFlow(t *testing.T) {
	service := newTestService(5 * time.Millisecond)
	server := httptest.NewServer(NewRouter(NewWSHandler(service, "visa"), NewAPI(service, "visa", nil), nil))
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Expect the initial state first.
	_, payload := readNext(conn, t, "state")
	if payload["stepIndex"].(float64) != 0 {
		t.Fatalf("expected step 0, got %v", payload["stepIndex"])
	}

	answer := func(v bool) {
		if err := conn.WriteJSON(map[string]any{"type": "answer", "payload": map[string]any{"value": v}}); err != nil {
			t.Fatalf("write answer: %v", err)
		}
	}

	// The first answer is shown as pending before the wizard moves on.
	answer(true)
	for i := 0; ; i++ {
		if i == 10 {
			t.Fatalf("wizard never advanced to the second question")
		}
		_, payload := readNext(conn, t, "state")
		if payload["stepIndex"].(float64) == 1 && payload["pending"] == false {
			break
		}
	}

	answer(false)
	var result map[string]any
	for i := 0; i < 10 && result == nil; i++ {
		typ, payload := readNext(conn, t, "")
		if typ == "result" {
			result = payload
		}
	}
	if result == nil {
		t.Fatalf("expected a result frame")
	}
	if result["verdict"] != string(domain.VerdictQualified) || result["ctaUrl"] != "https://example.com/book" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestWebSocketRejectsBadPayload(t *testing.T) {
	service := newTestService(0)
	server := httptest.NewServer(NewRouter(NewWSHandler(service, "visa"), NewAPI(service, "visa", nil), nil))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+server.URL[len("http"):]+"/ws?catalogId=visa", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	readNext(conn, t, "state")

	if err := conn.WriteJSON(map[string]any{"type": "answer", "payload": map[string]any{}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readNext(conn, t, "error")

	if err := conn.WriteJSON(map[string]any{"type": "dance"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readNext(conn, t, "error")
}

func TestWebSocketUnknownCatalog(t *testing.T) {
	service := newTestService(0)
	server := httptest.NewServer(NewRouter(NewWSHandler(service, "visa"), NewAPI(service, "visa", nil), nil))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+server.URL[len("http"):]+"/ws?catalogId=nope", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	readNext(conn, t, "error")
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}

func newTestService(delay time.Duration) *app.WizardService {
	catalogs := memory.NewCatalogRepository(memory.NewStaticCatalogLoader(sampleCatalog()), time.Minute)
	presenter := present.New(
		present.Copy{CTAURL: "https://example.com/book"},
		present.Copy{CTAURL: "https://example.com/contact"},
	)
	return app.NewWizardService(memory.NewSessionStore(), catalogs, presenter, app.WithAdvanceDelay(delay))
}

func sampleCatalog() domain.Catalog {
	return domain.MustCatalog(domain.CatalogDefinition{
		ID: "visa",
		Questions: []domain.Question{
			{ID: "age", Text: "Are you 18 or older?", Expected: true},
			{ID: "record", Text: "Do you have a criminal record?", Expected: false},
		},
	})
}
