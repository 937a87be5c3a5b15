package agent

import (
	"regexp"
	"strings"

	"github.com/dwern/persona/internal/llm"
)

// PlanningTrace is the human-readable "what tools, and why" summary surfaced
// before tool execution completes. Ephemeral: derived per turn, never stored.
type PlanningTrace struct {
	Tools     []string `json:"tools"`
	Reasoning string   `json:"reasoning"`
}

// planSentenceRe matches the narration the system prompt asks for:
// "I'll use X to Y." (also accepts "I will use" and a curly apostrophe).
var planSentenceRe = regexp.MustCompile(`(?i)\bI(?:['’]ll| will) use\b.+?\bto\b.+`)

// sentenceSplitRe splits prose on sentence-ending punctuation.
var sentenceSplitRe = regexp.MustCompile(`(?m)[.!?](?:\s+|$)`)

// ExtractPlanning derives a trace from the model's preliminary text. The
// pattern match is best-effort UX, not a correctness guarantee: when no
// sentence matches, the trace is synthesized from the requested tool names.
func ExtractPlanning(text string, calls []llm.ToolCall) PlanningTrace {
	names := make([]string, 0, len(calls))
	for _, c := range calls {
		names = append(names, c.Name)
	}

	for _, sentence := range splitSentences(text) {
		if planSentenceRe.MatchString(sentence) {
			return PlanningTrace{Tools: names, Reasoning: sentence}
		}
	}

	return PlanningTrace{Tools: names, Reasoning: synthesizeReasoning(names)}
}

func splitSentences(text string) []string {
	var out []string
	rest := strings.TrimSpace(text)
	for rest != "" {
		loc := sentenceSplitRe.FindStringIndex(rest)
		if loc == nil {
			out = append(out, rest)
			break
		}
		// Keep the terminating punctuation with the sentence.
		out = append(out, strings.TrimSpace(rest[:loc[0]+1]))
		rest = strings.TrimSpace(rest[loc[1]:])
	}
	return out
}

func synthesizeReasoning(names []string) string {
	if len(names) == 0 {
		return "Thinking about how to answer this."
	}
	readable := make([]string, len(names))
	for i, n := range names {
		readable[i] = strings.ReplaceAll(n, "_", " ")
	}
	switch len(readable) {
	case 1:
		return "Looking up " + readable[0] + " to answer this."
	default:
		return "Looking up " + strings.Join(readable[:len(readable)-1], ", ") +
			" and " + readable[len(readable)-1] + " to answer this."
	}
}
