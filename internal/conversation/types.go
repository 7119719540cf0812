// Package conversation defines the shared data model for a chat turn:
// messages, conversational styles, style-detection results, and knowledge
// base search results. Types here are plain values with no behavior beyond
// validation, so every other package can depend on them without cycles.
package conversation

import "fmt"

// Sender identifies who authored a message.
type Sender string

// Message senders.
const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is a single turn in the conversation history.
// Messages are immutable once created; the orchestrator reads history but
// never mutates it.
type Message struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}

// Style is a named behavioral mode governing response tone and structure.
type Style string

// The three supported conversational styles.
const (
	StyleDefault    Style = "default"
	StyleAnalytical Style = "analytical"
	StylePractical  Style = "practical"
)

// ParseStyle validates a raw style string.
// The empty string maps to StyleDefault, matching the original API behavior
// where the style field was optional.
func ParseStyle(s string) (Style, error) {
	switch Style(s) {
	case StyleDefault, StyleAnalytical, StylePractical:
		return Style(s), nil
	case "":
		return StyleDefault, nil
	default:
		return "", fmt.Errorf("unknown conversation style %q", s)
	}
}

// Valid reports whether the style is one of the enumerated values.
func (s Style) Valid() bool {
	_, err := ParseStyle(string(s))
	return err == nil && s != ""
}

// StyleDetection is the classifier's verdict for a single user message.
//
// SuggestedStyle is a pointer so that "the model supplied no style" is
// distinguishable from an explicit "default" suggestion.
type StyleDetection struct {
	RequestingStyle bool    `json:"requestingStyle"`
	Confidence      float64 `json:"confidence"`
	SuggestedStyle  *Style  `json:"suggestedStyle,omitempty"`
	Explanation     string  `json:"explanation"`
}

// SearchResult is one deduplicated knowledge base passage.
type SearchResult struct {
	Content string  `json:"content"`
	Score   float64 `json:"score"`  // similarity, higher = more relevant
	Source  string  `json:"source"` // origin identifier (file path, URL, ...)
}
