package gateway

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwern/persona/internal/agent"
	"github.com/dwern/persona/internal/logging"
)

type recordedFrame struct {
	event   string
	payload any
}

type recordingWriter struct {
	frames []recordedFrame
}

func (w *recordingWriter) writeFrame(event string, payload any) error {
	w.frames = append(w.frames, recordedFrame{event: event, payload: payload})
	return nil
}

func testEmitter() (*Emitter, *recordingWriter) {
	w := &recordingWriter{}
	return NewEmitter(w, logging.New(nil, "silent")), w
}

func frameEvents(w *recordingWriter) []string {
	events := make([]string, 0, len(w.frames))
	for _, f := range w.frames {
		events = append(events, f.event)
	}
	return events
}

func TestEmitterFullSequence(t *testing.T) {
	e, w := testEmitter()

	e.Planning(agent.PlanningTrace{Reasoning: "checking the ski log"})
	e.Response("32 days this season.")
	e.Done()

	assert.Equal(t, []string{EventPlanning, EventResponse, EventDone}, frameEvents(w))
}

func TestEmitterRepeatedFramesDropped(t *testing.T) {
	e, w := testEmitter()

	e.Planning(agent.PlanningTrace{Reasoning: "first"})
	e.Planning(agent.PlanningTrace{Reasoning: "second"})
	e.Response("one")
	e.Response("two")
	e.Done()
	e.Done()

	require.Equal(t, []string{EventPlanning, EventResponse, EventDone}, frameEvents(w))
	assert.Equal(t, agent.PlanningTrace{Reasoning: "first"}, w.frames[0].payload)
	assert.Equal(t, map[string]string{"message": "one"}, w.frames[1].payload)
}

func TestEmitterPlanningAfterResponseDropped(t *testing.T) {
	e, w := testEmitter()

	e.Response("answer")
	e.Planning(agent.PlanningTrace{Reasoning: "too late"})
	e.Done()

	assert.Equal(t, []string{EventResponse, EventDone}, frameEvents(w))
}

func TestEmitterExactlyOneTerminalFrame(t *testing.T) {
	e, w := testEmitter()
	e.Done()
	e.Error("internal", "boom")
	assert.Equal(t, []string{EventDone}, frameEvents(w))

	e, w = testEmitter()
	e.Error("overloaded", "busy")
	e.Done()
	e.Error("internal", "boom")
	require.Equal(t, []string{EventError}, frameEvents(w))
	assert.Equal(t, map[string]string{"code": "overloaded", "error": "busy"}, w.frames[0].payload)
}

func TestEmitterNothingAfterError(t *testing.T) {
	e, w := testEmitter()

	e.Error("internal", "boom")
	e.Planning(agent.PlanningTrace{Reasoning: "late"})
	e.Response("late")

	assert.Equal(t, []string{EventError}, frameEvents(w))
}

func TestSSEWriterWireFormat(t *testing.T) {
	rec := httptest.NewRecorder()
	sse, err := newSSEWriter(rec)
	require.NoError(t, err)

	require.NoError(t, sse.writeFrame(EventResponse, map[string]string{"message": "hi"}))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "event: response\ndata: {\"message\":\"hi\"}\n\n", rec.Body.String())
	assert.True(t, rec.Flushed)
}
