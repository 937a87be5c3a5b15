package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwern/persona/internal/agent"
	"github.com/dwern/persona/internal/config"
	"github.com/dwern/persona/internal/fault"
	"github.com/dwern/persona/internal/llm"
	"github.com/dwern/persona/internal/logging"
	"github.com/dwern/persona/internal/retry"
	"github.com/dwern/persona/internal/tools"
)

type fixedTool struct {
	name   string
	output string
}

func (f *fixedTool) Name() string                 { return f.name }
func (f *fixedTool) Description() string          { return "test tool" }
func (f *fixedTool) InputSchema() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }
func (f *fixedTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	return f.output, nil
}

func newTestServer(client llm.Client, reg *tools.Registry) *Server {
	if reg == nil {
		reg = tools.NewRegistry()
	}
	log := logging.New(nil, "silent")
	orchestrator := agent.New(agent.Config{
		Client:   client,
		Registry: reg,
		Policy: &retry.Policy{
			MaxRetries:   2,
			InitialDelay: time.Millisecond,
			MaxDelay:     2 * time.Millisecond,
			Multiplier:   2.0,
		},
	}, log)
	return New(config.ServerConfig{Port: 8791, Bind: "127.0.0.1"}, orchestrator, log)
}

func plainClient(text string) *llm.MockClient {
	return &llm.MockClient{CompleteFunc: func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return &llm.CompletionResponse{Content: text}, nil
	}}
}

// toolClient requests one tool call on the first completion, then answers.
func toolClient(toolName, answer string) *llm.MockClient {
	calls := 0
	return &llm.MockClient{CompleteFunc: func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
		calls++
		if calls == 1 {
			return &llm.CompletionResponse{
				Content:   "I'll use " + toolName + " to look that up.",
				ToolCalls: []llm.ToolCall{{ID: "tc_1", Name: toolName}},
			}, nil
		}
		return &llm.CompletionResponse{Content: answer}, nil
	}}
}

func postChat(t *testing.T, srv *Server, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

const simpleBody = `{"messages":[{"role":"user","content":"how many ski days?"}]}`

func TestChatBufferedResponse(t *testing.T) {
	reg := tools.NewRegistry()
	reg.Register(&fixedTool{name: "ski_day_stats", output: "32 days in 2024-25."})
	srv := newTestServer(toolClient("ski_day_stats", "You skied 32 days this season."), reg)

	rec := postChat(t, srv, "/api/chat", simpleBody)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "You skied 32 days this season.", resp.Message)
	require.NotNil(t, resp.Planning)
	assert.Equal(t, []string{"ski_day_stats"}, resp.Planning.Tools)
	require.Len(t, resp.ToolResults, 1)
	assert.Equal(t, "tc_1", resp.ToolResults[0].ToolUseID)
	assert.Equal(t, "32 days in 2024-25.", resp.ToolResults[0].Content)
}

func TestChatRejectsNonPost(t *testing.T) {
	srv := newTestServer(plainClient("hi"), nil)
	req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestChatRejectsMalformedBody(t *testing.T) {
	srv := newTestServer(plainClient("hi"), nil)

	rec := postChat(t, srv, "/api/chat", `{"messages": [not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postChat(t, srv, "/api/chat", `{"messages":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postChat(t, srv, "/api/chat", `{"messages":[{"role":"system","content":"x"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatOverloadedMapsTo503(t *testing.T) {
	client := &llm.MockClient{CompleteFunc: func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return nil, fault.New(fault.KindOverloaded, "upstream overloaded")
	}}
	srv := newTestServer(client, nil)

	rec := postChat(t, srv, "/api/chat", simpleBody)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, msgUnavailable, body["error"])
	assert.NotContains(t, body["error"], "upstream")
}

func TestChatInternalErrorHidesDetail(t *testing.T) {
	client := &llm.MockClient{CompleteFunc: func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return nil, fault.New(fault.KindInternal, "secret detail")
	}}
	srv := newTestServer(client, nil)

	rec := postChat(t, srv, "/api/chat", simpleBody)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, msgInternal, body["error"])
}

// parseSSE splits a recorded SSE body into (event, data) pairs.
func parseSSE(t *testing.T, body string) [][2]string {
	t.Helper()
	var frames [][2]string
	for _, block := range strings.Split(strings.TrimSpace(body), "\n\n") {
		lines := strings.SplitN(block, "\n", 2)
		require.Len(t, lines, 2, "malformed SSE block: %q", block)
		frames = append(frames, [2]string{
			strings.TrimPrefix(lines[0], "event: "),
			strings.TrimPrefix(lines[1], "data: "),
		})
	}
	return frames
}

func TestChatStreamedFrameSequence(t *testing.T) {
	reg := tools.NewRegistry()
	reg.Register(&fixedTool{name: "profile_info", output: "Dan lives in Seattle."})
	srv := newTestServer(toolClient("profile_info", "He lives in Seattle."), reg)

	rec := postChat(t, srv, "/api/chat?stream=1", simpleBody)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	frames := parseSSE(t, rec.Body.String())
	require.Len(t, frames, 3)
	assert.Equal(t, EventPlanning, frames[0][0])
	assert.Equal(t, EventResponse, frames[1][0])
	assert.Equal(t, EventDone, frames[2][0])

	var trace agent.PlanningTrace
	require.NoError(t, json.Unmarshal([]byte(frames[0][1]), &trace))
	assert.Equal(t, []string{"profile_info"}, trace.Tools)

	var resp map[string]string
	require.NoError(t, json.Unmarshal([]byte(frames[1][1]), &resp))
	assert.Equal(t, "He lives in Seattle.", resp["message"])
}

func TestChatStreamedWithoutToolsSkipsPlanning(t *testing.T) {
	srv := newTestServer(plainClient("Just hi."), nil)

	rec := postChat(t, srv, "/api/chat?stream=true", simpleBody)

	frames := parseSSE(t, rec.Body.String())
	require.Len(t, frames, 2)
	assert.Equal(t, EventResponse, frames[0][0])
	assert.Equal(t, EventDone, frames[1][0])
}

func TestChatStreamedErrorFrame(t *testing.T) {
	client := &llm.MockClient{CompleteFunc: func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return nil, fault.New(fault.KindOverloaded, "busy")
	}}
	srv := newTestServer(client, nil)

	rec := postChat(t, srv, "/api/chat?stream=1", simpleBody)

	frames := parseSSE(t, rec.Body.String())
	require.Len(t, frames, 1)
	assert.Equal(t, EventError, frames[0][0])

	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(frames[0][1]), &payload))
	assert.Equal(t, "overloaded", payload["code"])
	assert.Equal(t, msgUnavailable, payload["error"])
}

func TestChatAcceptHeaderSelectsStreaming(t *testing.T) {
	srv := newTestServer(plainClient("hi"), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(simpleBody))
	req.Header.Set("Accept", "text/event-stream")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
}

func TestChatHistoryPrecedesMessages(t *testing.T) {
	var seen []llm.Message
	client := &llm.MockClient{CompleteFunc: func(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		seen = req.Messages
		return &llm.CompletionResponse{Content: "ok"}, nil
	}}
	srv := newTestServer(client, nil)

	body := `{
		"history": [
			{"role":"user","content":"first question"},
			{"role":"assistant","content":"first answer"}
		],
		"messages": [{"role":"user","content":"follow-up"}]
	}`
	rec := postChat(t, srv, "/api/chat", body)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, seen, 3)
	assert.Equal(t, "first question", seen[0].Content)
	assert.Equal(t, "follow-up", seen[2].Content)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(plainClient("hi"), nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRequestIDHeaderSet(t *testing.T) {
	srv := newTestServer(plainClient("hi"), nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestCORSPreflight(t *testing.T) {
	orchSrv := newTestServer(plainClient("hi"), nil)
	srv := New(config.ServerConfig{
		Port:           8791,
		Bind:           "127.0.0.1",
		AllowedOrigins: []string{"https://dwern.example"},
	}, orchSrv.orchestrator, logging.New(nil, "silent"))

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "https://dwern.example")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://dwern.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
