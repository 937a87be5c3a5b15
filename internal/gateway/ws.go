package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dwern/persona/internal/fault"
)

// handleChatWS serves one turn over a WebSocket: the client sends a single
// ChatRequest, the server streams the same frames as the SSE surface, then
// closes. One-way after the request; no RPC framing.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	conn.SetReadLimit(256 * 1024)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))

	emitter := NewEmitter(&wsWriter{conn: conn}, s.log)

	_, payload, err := conn.ReadMessage()
	if err != nil {
		s.log.Debug().Err(err).Msg("websocket read failed")
		return
	}

	var req ChatRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		emitter.Error(fault.KindTransport.String(), "invalid request body")
		return
	}

	turnReq, err := chatRequestToTurn(req)
	if err != nil {
		emitter.Error(fault.KindTransport.String(), err.Error())
		return
	}

	turnReq.OnPlanning = emitter.Planning
	result, err := s.orchestrator.Turn(r.Context(), turnReq)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket turn failed")
		_, msg := mapTurnError(err)
		emitter.Error(fault.KindOf(err).String(), msg)
		return
	}

	emitter.Response(result.Message)
	emitter.Done()
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
