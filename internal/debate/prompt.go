package debate

import (
	"fmt"
	"strings"

	"focalai/internal/persona"
)

// Turn is what one persona is shown for one call.
type Turn struct {
	// Context is the prior discussion: the previous round, or for the first
	// feedback round the whole earlier debate.
	Context string
	// Feedback is the user's new feedback text, empty for initial debates.
	Feedback string
}

// ErrorPrefix marks an inline error standing in for a persona response.
const ErrorPrefix = "Error getting response from "

func buildPrompt(p persona.Persona, idea string, turn Turn) string {
	parts := make([]string, 0, 2)
	if turn.Context != "" {
		parts = append(parts, "Previous context: "+turn.Context)
	}
	if turn.Feedback != "" {
		parts = append(parts, "User feedback: "+turn.Feedback)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Product Idea: %s\n\n", idea)
	if len(parts) > 0 {
		b.WriteString(strings.Join(parts, "\n\n"))
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "As a %s, provide your perspective on this product idea. Focus on %s.\n\n", p.Name, p.Focus)
	b.WriteString("If this is a feedback iteration, consider the user's feedback and previous discussion when forming your response.\n\n")
	b.WriteString("Provide a concise but thoughtful response (2-3 paragraphs) that includes:\n")
	b.WriteString("1. Your thoughts on the idea and any feedback provided\n")
	b.WriteString("2. Key considerations from your perspective\n")
	b.WriteString("3. How your perspective addresses or builds upon previous discussion\n")
	b.WriteString("4. Specific suggestions for improvement\n\n")
	b.WriteString("Be specific and actionable in your feedback.")
	return b.String()
}

func inlineError(p persona.Persona, err error) string {
	return ErrorPrefix + p.Name + ": " + err.Error()
}
