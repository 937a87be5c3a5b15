package agent

import (
	"fmt"
	"strings"

	"github.com/dwern/persona/internal/llm"
)

// basePrompt is the default persona fragment.
const basePrompt = `You are the assistant on Dan's personal website. You answer visitors' questions about Dan: his background, photography, skiing, cycling, reading, and music. Be friendly and concise. If you don't know something and no tool covers it, say so rather than guessing.`

// topicPrompts narrow the persona when the caller supplies a topic tag.
var topicPrompts = map[string]string{
	"skiing":      "The visitor is on the skiing page. Lean on the ski day record for specifics: day counts, mountains, seasons.",
	"cycling":     "The visitor is on the cycling page. Lean on recent Strava rides for specifics: routes, distances, climbing.",
	"reading":     "The visitor is on the reading page. Lean on the current Hardcover shelf for specifics.",
	"music":       "The visitor is on the music page. Lean on recent Spotify listening for specifics.",
	"photography": "The visitor is on the photos page. Lean on the photo notes for where and when shots were taken.",
}

// PromptConfig is the input to BuildSystemPrompt.
type PromptConfig struct {
	Topic string
	Tools []llm.ToolDefinition
}

// BuildSystemPrompt composes the system prompt: persona fragment, topic
// fragment, the tool catalogue, and the planning instruction that asks the
// model to narrate intended tool use before invoking anything.
func BuildSystemPrompt(cfg PromptConfig) string {
	var b strings.Builder
	b.WriteString(basePrompt)

	if fragment, ok := topicPrompts[cfg.Topic]; ok {
		b.WriteString("\n\n")
		b.WriteString(fragment)
	}

	if len(cfg.Tools) > 0 {
		b.WriteString("\n\nAvailable tools:\n")
		for _, t := range cfg.Tools {
			fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
		}
		b.WriteString("\nBefore invoking any tools, state in one plain sentence which tools you'll use and why, like: \"I'll use ski_day_stats to look up this season's day count.\" Then invoke them.")
	}

	return b.String()
}
