package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dwern/persona/internal/llm"
	"github.com/dwern/persona/internal/logging"
)

// Dispatcher routes model tool calls to registry handlers. Tool failure is
// always soft: every call produces a ToolResult, never a propagated error.
type Dispatcher struct {
	registry *Registry
	log      *logging.Logger
}

// NewDispatcher creates a dispatcher over the given registry.
func NewDispatcher(registry *Registry, log *logging.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, log: log.Sub("tools")}
}

// Dispatch executes all calls concurrently and joins before returning.
// Calls within one round are independent; results are returned in call order
// and each result's ToolCallID is copied from its request.
func (d *Dispatcher) Dispatch(ctx context.Context, calls []llm.ToolCall) []llm.ToolResult {
	results := make([]llm.ToolResult, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call llm.ToolCall) {
			defer wg.Done()
			results[i] = d.execute(ctx, call)
		}(i, call)
	}
	wg.Wait()

	return results
}

// execute runs one call, converting every failure mode to descriptive text.
func (d *Dispatcher) execute(ctx context.Context, call llm.ToolCall) (result llm.ToolResult) {
	result = llm.ToolResult{ToolCallID: call.ID}

	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Str("tool", call.Name).Interface("panic", r).Msg("tool handler panicked")
			result.Content = fmt.Sprintf("The %s tool failed unexpectedly and no data is available.", call.Name)
			result.IsError = true
		}
	}()

	tool, ok := d.registry.Get(call.Name)
	if !ok {
		d.log.Warn().Str("tool", call.Name).Msg("unknown tool requested")
		result.Content = fmt.Sprintf("There is no tool named %q available.", call.Name)
		result.IsError = true
		return result
	}

	input := call.Input
	if len(input) == 0 {
		input = json.RawMessage(`{}`)
	}

	d.log.Debug().Str("tool", call.Name).RawJSON("input", input).Msg("executing tool")
	text, err := tool.Execute(ctx, input)
	if err != nil {
		d.log.Warn().Str("tool", call.Name).Err(err).Msg("tool execution failed")
		result.Content = fmt.Sprintf("The %s tool could not complete: %v", call.Name, err)
		result.IsError = true
		return result
	}

	result.Content = text
	return result
}
