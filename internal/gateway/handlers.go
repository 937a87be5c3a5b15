package gateway

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dwern/persona/internal/agent"
	"github.com/dwern/persona/internal/fault"
	"github.com/dwern/persona/internal/llm"
)

// User-facing failure messages. Raw errors are logged server-side only.
const (
	msgUnavailable = "The assistant is getting a lot of traffic right now — please try again shortly."
	msgInternal    = "Something went wrong answering that. Please try again."
)

// ChatMessage is the wire shape of one conversation message.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the inbound body for POST /api/chat. History holds earlier
// turns; Messages ends with the newest user message.
type ChatRequest struct {
	Messages     []ChatMessage `json:"messages"`
	History      []ChatMessage `json:"history"`
	TopicContext string        `json:"topicContext"`
}

// ChatToolResult is the wire shape of one executed tool call.
type ChatToolResult struct {
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
}

// ChatResponse is the buffered response body.
type ChatResponse struct {
	Message     string               `json:"message"`
	Planning    *agent.PlanningTrace `json:"planning,omitempty"`
	ToolResults []ChatToolResult     `json:"toolResults,omitempty"`
}

// handleChat serves POST /api/chat in buffered or streamed mode.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	turnReq, err := parseChatRequest(r)
	if err != nil {
		s.log.Debug().Err(err).Msg("rejecting malformed chat request")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if wantsStream(r) {
		s.handleChatStream(w, r, turnReq)
		return
	}

	result, err := s.orchestrator.Turn(r.Context(), turnReq)
	if err != nil {
		status, msg := mapTurnError(err)
		s.log.Error().Err(err).Int("status", status).Msg("turn failed")
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, buildChatResponse(result))
}

// handleChatStream delivers the turn as ordered SSE frames.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request, turnReq agent.TurnRequest) {
	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	emitter := NewEmitter(sse, s.log)

	turnReq.OnPlanning = emitter.Planning
	result, err := s.orchestrator.Turn(r.Context(), turnReq)
	if err != nil {
		s.log.Error().Err(err).Msg("streamed turn failed")
		_, msg := mapTurnError(err)
		emitter.Error(fault.KindOf(err).String(), msg)
		return
	}

	emitter.Response(result.Message)
	emitter.Done()
}

// parseChatRequest validates the body and builds the turn request.
// Failures here are transport errors: rejected before any model call.
func parseChatRequest(r *http.Request) (agent.TurnRequest, error) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return agent.TurnRequest{}, fault.Wrap(fault.KindTransport, "invalid request body", err)
	}
	return chatRequestToTurn(req)
}

// chatRequestToTurn validates a decoded request, shared by HTTP and WebSocket.
func chatRequestToTurn(req ChatRequest) (agent.TurnRequest, error) {
	if len(req.Messages) == 0 {
		return agent.TurnRequest{}, fault.New(fault.KindTransport, "messages must not be empty")
	}

	all := make([]llm.Message, 0, len(req.History)+len(req.Messages))
	for _, m := range append(append([]ChatMessage{}, req.History...), req.Messages...) {
		if m.Role != llm.RoleUser && m.Role != llm.RoleAssistant {
			return agent.TurnRequest{}, fault.New(fault.KindTransport, "invalid message role: "+m.Role)
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		all = append(all, llm.Message{Role: m.Role, Content: m.Content})
	}
	if len(all) == 0 {
		return agent.TurnRequest{}, fault.New(fault.KindTransport, "no non-empty messages")
	}

	return agent.TurnRequest{Messages: all, Topic: req.TopicContext}, nil
}

// wantsStream selects the delivery mode from the query flag or Accept header.
func wantsStream(r *http.Request) bool {
	switch r.URL.Query().Get("stream") {
	case "1", "true":
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

func buildChatResponse(result *agent.TurnResult) ChatResponse {
	resp := ChatResponse{Message: result.Message, Planning: result.Planning}
	for _, tr := range result.ToolResults {
		resp.ToolResults = append(resp.ToolResults, ChatToolResult{
			ToolUseID: tr.ToolCallID,
			Content:   tr.Content,
		})
	}
	return resp
}

// mapTurnError picks the user-facing status and message for a failed turn.
func mapTurnError(err error) (int, string) {
	switch fault.KindOf(err) {
	case fault.KindOverloaded:
		return http.StatusServiceUnavailable, msgUnavailable
	case fault.KindTransport:
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
