package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/dwern/persona/internal/agent"
	"github.com/dwern/persona/internal/logging"
)

// Frame event types, in the order a streamed turn may emit them.
const (
	EventPlanning = "planning"
	EventResponse = "response"
	EventDone     = "done"
	EventError    = "error"
)

// frameWriter delivers one encoded frame to the client, flushing immediately.
type frameWriter interface {
	writeFrame(event string, payload any) error
}

// Emitter enforces the frame contract structurally: one single-assignment
// flag per event kind, so each frame can only ever be written once and
// planning cannot follow response. No after-the-fact dedup filtering.
type Emitter struct {
	w   frameWriter
	log *logging.Logger

	planningSent bool
	responseSent bool
	terminalSent bool
}

// NewEmitter creates an emitter over a frame writer.
func NewEmitter(w frameWriter, log *logging.Logger) *Emitter {
	return &Emitter{w: w, log: log}
}

// Planning emits the planning frame. Dropped if a response or terminal frame
// has already been written, or if planning was already sent.
func (e *Emitter) Planning(trace agent.PlanningTrace) {
	if e.planningSent || e.responseSent || e.terminalSent {
		return
	}
	e.planningSent = true
	e.write(EventPlanning, trace)
}

// Response emits the single response frame.
func (e *Emitter) Response(message string) {
	if e.responseSent || e.terminalSent {
		return
	}
	e.responseSent = true
	e.write(EventResponse, map[string]string{"message": message})
}

// Done emits the success terminal frame.
func (e *Emitter) Done() {
	if e.terminalSent {
		return
	}
	e.terminalSent = true
	e.write(EventDone, map[string]bool{"ok": true})
}

// Error emits the failure terminal frame. Done and Error are mutually
// exclusive; whichever is called first wins.
func (e *Emitter) Error(code, message string) {
	if e.terminalSent {
		return
	}
	e.terminalSent = true
	e.write(EventError, map[string]string{"code": code, "error": message})
}

func (e *Emitter) write(event string, payload any) {
	if err := e.w.writeFrame(event, payload); err != nil {
		e.log.Warn().Err(err).Str("event", event).Msg("failed to write frame")
	}
}

// sseWriter renders frames as server-sent events, flushed per frame so the
// planning frame reaches the client before tool execution finishes.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return &sseWriter{w: w, flusher: flusher}, nil
}

func (s *sseWriter) writeFrame(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// wsFrame is the JSON shape of one frame on the WebSocket surface.
type wsFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// wsWriter renders frames as JSON messages on a WebSocket connection.
type wsWriter struct {
	conn *websocket.Conn
}

func (s *wsWriter) writeFrame(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.conn.WriteJSON(wsFrame{Event: event, Data: data})
}
