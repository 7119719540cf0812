// Package prompt assembles the system instructions and conversation turns
// sent to the answer model. Composition is pure: the same style, context
// and history always produce byte-identical output.
package prompt

import (
	"strings"

	"github.com/everlasthealth/assistant/internal/conversation"
)

// Role identifies who authored a turn, using the wire roles the model
// API expects.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is a single message in the conversation sent to the model.
type Turn struct {
	Role Role
	Text string
}

// Prompt is a fully composed request: system instructions plus the prior
// conversation. The live user message is not part of the prompt; the
// caller appends it as the final turn.
type Prompt struct {
	Instructions string
	Turns        []Turn
}

// identity is the assistant's fixed persona, prepended to every request
// regardless of style.
const identity = `You are a chatbot for Everlast Health, which is an app designed to help people with stress and anxiety.
You have all the knowledge of a functional medicine practitioner.
Any questions that the user asks will be related to stress and anxiety.
Respond in clear, natural prose. Only use numbered lists if the user specifically asks for steps, tips, or a list of items.`

var styleInstructions = map[conversation.Style]string{
	conversation.StyleDefault: `You should answer the question in a way that is helpful and accessible to the user.
Keep responses concise but informative, typically 2-3 sentences.`,

	conversation.StyleAnalytical: `You should provide detailed, technical responses that include mechanisms of action in the body.
Assume the user has a good understanding of health concepts and wants to understand the "why" behind your recommendations.
Use clear paragraphs to explain concepts and their scientific basis.`,

	conversation.StylePractical: `Focus on providing clear, actionable guidance without detailed explanations.
Prioritize "what to do" over "why to do it".
Be direct and concise in your advice.`,
}

// contextHeader introduces retrieved knowledge in the instructions. It is
// omitted entirely when there is no retrieved context.
const contextHeader = "Relevant information from knowledge base:"

// Compose builds the prompt for one turn. An unknown style falls back to
// the default style block rather than failing, since style values are
// validated at the API boundary.
func Compose(style conversation.Style, contextText string, history []conversation.Message) Prompt {
	block, ok := styleInstructions[style]
	if !ok {
		block = styleInstructions[conversation.StyleDefault]
	}

	var b strings.Builder
	b.WriteString(identity)
	b.WriteString("\n")
	b.WriteString(block)
	if contextText != "" {
		b.WriteString("\n\n")
		b.WriteString(contextHeader)
		b.WriteString("\n")
		b.WriteString(contextText)
	}

	turns := make([]Turn, 0, len(history))
	for _, msg := range history {
		role := RoleModel
		if msg.Sender == conversation.SenderUser {
			role = RoleUser
		}
		turns = append(turns, Turn{Role: role, Text: msg.Text})
	}

	return Prompt{Instructions: b.String(), Turns: turns}
}
