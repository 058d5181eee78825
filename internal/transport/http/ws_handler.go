package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"visa-checker/internal/app"
	"visa-checker/internal/domain"
)

type WSHandler struct {
	service        *app.WizardService
	defaultCatalog string
	upgrader       websocket.Upgrader
}

func NewWSHandler(service *app.WizardService, defaultCatalog string) *WSHandler {
	return &WSHandler{
		service:        service,
		defaultCatalog: defaultCatalog,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Value *bool `json:"value"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and drives one questionnaire
// session over the connection. With ?sessionId= it attaches to an existing
// session; otherwise it starts one on ?catalogId= (or the default catalog)
// and ends it when the socket closes.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	catalogID := r.URL.Query().Get("catalogId")
	if catalogID == "" {
		catalogID = h.defaultCatalog
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	if sessionID == "" {
		started, err := h.service.Start(ctx, catalogID)
		if err != nil {
			_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
			return
		}
		sessionID = started.SessionID
		defer h.service.End(ctx, sessionID)
	}

	updates, cancel, err := h.service.Subscribe(ctx, sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// A single writer goroutine owns the connection's write side.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		var last uint64
		first := true
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				if !first && snap.Revision <= last {
					continue
				}
				first, last = false, snap.Revision
				for _, msg := range h.framesFor(r, snap) {
					select {
					case send <- msg:
					case <-closeSignals:
						return
					}
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if msg, ok := h.handle(r, sessionID, inbound); ok {
			select {
			case send <- msg:
			case <-writerDone:
			}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// handle applies one client command. State changes reach the client through
// the subscription; only errors are answered directly.
func (h *WSHandler) handle(r *http.Request, sessionID string, inbound inboundMessage) (outboundMessage[any], bool) {
	ctx := r.Context()
	var err error
	switch inbound.Type {
	case "answer":
		var payload answerPayload
		if jsonErr := json.Unmarshal(inbound.Payload, &payload); jsonErr != nil || payload.Value == nil {
			return errorFrame("invalid answer payload"), true
		}
		_, err = h.service.Answer(ctx, sessionID, *payload.Value)
	case "back":
		_, err = h.service.Back(ctx, sessionID)
	case "reset":
		_, err = h.service.Reset(ctx, sessionID)
	case "state":
		var snap domain.Snapshot
		if snap, err = h.service.State(ctx, sessionID); err == nil {
			return outboundMessage[any]{Type: "state", Payload: snap}, true
		}
	default:
		return errorFrame("unsupported message type"), true
	}
	if err != nil {
		return errorFrame(err.Error()), true
	}
	return outboundMessage[any]{}, false
}

func (h *WSHandler) framesFor(r *http.Request, snap domain.Snapshot) []outboundMessage[any] {
	frames := []outboundMessage[any]{{Type: "state", Payload: snap}}
	if snap.Finished {
		if outcome, err := h.service.Result(r.Context(), snap.SessionID); err == nil {
			frames = append(frames, outboundMessage[any]{Type: "result", Payload: outcome})
		}
	}
	return frames
}

func errorFrame(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}
