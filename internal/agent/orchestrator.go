// Package agent implements the conversation-turn orchestrator: prompt
// composition, retry-wrapped model calls, tool dispatch, and the single
// follow-up round that folds tool results back into the answer.
package agent

import (
	"context"
	"strings"
	"time"

	"github.com/dwern/persona/internal/fault"
	"github.com/dwern/persona/internal/llm"
	"github.com/dwern/persona/internal/logging"
	"github.com/dwern/persona/internal/retry"
	"github.com/dwern/persona/internal/tools"
)

// historyWindow bounds the caller-supplied history before each model call.
const historyWindow = 10

// fallbackMessage replaces empty or whitespace-only model output.
const fallbackMessage = "Sorry — I couldn't come up with an answer just now. Please try asking again."

// TurnRequest is one user turn: bounded history (oldest first, newest user
// message last), an optional topic tag, and an optional planning callback
// invoked before tool execution when the transport is streaming.
type TurnRequest struct {
	Messages   []llm.Message
	Topic      string
	OnPlanning func(PlanningTrace)
}

// TurnResult is the outcome of a successful turn. Message is never empty.
type TurnResult struct {
	Message     string
	Planning    *PlanningTrace
	ToolResults []llm.ToolResult
}

// Orchestrator runs conversation turns.
type Orchestrator struct {
	client     llm.Client
	registry   *tools.Registry
	dispatcher *tools.Dispatcher
	policy     retry.Policy
	maxTokens  int
	log        *logging.Logger
}

// Config wires an orchestrator.
type Config struct {
	Client    llm.Client
	Registry  *tools.Registry
	Policy    *retry.Policy // nil uses the provider default
	MaxTokens int
}

// New creates an orchestrator.
func New(cfg Config, log *logging.Logger) *Orchestrator {
	policy := retry.ProviderPolicy()
	if cfg.Policy != nil {
		policy = *cfg.Policy
	}
	return &Orchestrator{
		client:     cfg.Client,
		registry:   cfg.Registry,
		dispatcher: tools.NewDispatcher(cfg.Registry, log),
		policy:     policy,
		maxTokens:  cfg.MaxTokens,
		log:        log.Sub("agent"),
	}
}

// Turn runs one full orchestration cycle and returns the final assistant
// message. Tool failures never fail the turn; provider failures surface as
// fault-kinded errors after retries are exhausted.
func (o *Orchestrator) Turn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	start := time.Now()
	messages := boundHistory(req.Messages)
	if len(messages) == 0 {
		return nil, fault.New(fault.KindTransport, "no messages in request")
	}

	system := BuildSystemPrompt(PromptConfig{
		Topic: req.Topic,
		Tools: o.registry.Definitions(),
	})

	o.log.Info().
		Str("topic", req.Topic).
		Int("historyLen", len(messages)).
		Msg("processing turn")

	first, err := o.complete(ctx, system, messages)
	if err != nil {
		return nil, o.classify(err)
	}

	if len(first.ToolCalls) == 0 {
		o.log.Info().Dur("duration", time.Since(start)).Msg("turn complete without tools")
		return &TurnResult{Message: ensureNonEmpty(first.Content)}, nil
	}

	// Surface the plan before tool execution so a streaming client sees
	// progress while slow providers are still being queried.
	trace := ExtractPlanning(first.Content, first.ToolCalls)
	if req.OnPlanning != nil {
		req.OnPlanning(trace)
	}

	o.log.Info().
		Strs("tools", trace.Tools).
		Msg("executing tool calls")

	results := o.dispatcher.Dispatch(ctx, first.ToolCalls)

	// Exactly one follow-up round. If the follow-up response asks for more
	// tools, only its text is surfaced.
	followup := append(messages,
		llm.Message{Role: llm.RoleAssistant, Content: first.Content, ToolCalls: first.ToolCalls},
		llm.Message{Role: llm.RoleUser, ToolResults: results},
	)

	second, err := o.complete(ctx, system, followup)
	if err != nil {
		return nil, o.classify(err)
	}
	if len(second.ToolCalls) > 0 {
		o.log.Debug().
			Int("ignored", len(second.ToolCalls)).
			Msg("follow-up requested more tools; ignoring")
	}

	o.log.Info().
		Int("toolCalls", len(first.ToolCalls)).
		Dur("duration", time.Since(start)).
		Msg("turn complete")

	return &TurnResult{
		Message:     ensureNonEmpty(second.Content),
		Planning:    &trace,
		ToolResults: results,
	}, nil
}

func (o *Orchestrator) complete(ctx context.Context, system string, messages []llm.Message) (*llm.CompletionResponse, error) {
	return retry.Do(ctx, o.policy, o.log, func(ctx context.Context) (*llm.CompletionResponse, error) {
		return o.client.Complete(ctx, llm.CompletionRequest{
			System:    system,
			Messages:  messages,
			Tools:     o.registry.Definitions(),
			MaxTokens: o.maxTokens,
		})
	})
}

// classify maps a provider failure to the outcome the transport presents.
// Overload and auth keep their kinds; everything else becomes internal.
func (o *Orchestrator) classify(err error) error {
	switch {
	case fault.Is(err, fault.KindOverloaded):
		o.log.Warn().Err(err).Msg("provider overloaded after retries")
		return err
	case fault.Is(err, fault.KindAuth):
		o.log.Error().Err(err).Msg("provider rejected credentials")
		return err
	default:
		o.log.Error().Err(err).Msg("turn failed")
		return fault.Wrap(fault.KindInternal, "turn failed", err)
	}
}

func boundHistory(msgs []llm.Message) []llm.Message {
	if len(msgs) > historyWindow {
		return msgs[len(msgs)-historyWindow:]
	}
	return msgs
}

func ensureNonEmpty(text string) string {
	if strings.TrimSpace(text) == "" {
		return fallbackMessage
	}
	return text
}
