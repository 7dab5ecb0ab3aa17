// Package llm provides a streaming client for the Anthropic Messages API.
package llm

import "time"

// Role values accepted by the Messages API.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Config holds configuration for the Anthropic client.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:    apiKey,
		BaseURL:   "https://api.anthropic.com/v1",
		Model:     "claude-sonnet-4-20250514",
		MaxTokens: 2000,
		Timeout:   10 * time.Minute, // Streams over large documents need extended timeout
	}
}

// Message represents a message in the conversation.
type Message struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // Can be string or []ContentBlock
}

// ContentBlock represents a content block in a message.
type ContentBlock struct {
	Type         string          `json:"type"`                    // "text" or "document"
	Text         string          `json:"text,omitempty"`          // For text blocks
	Source       *DocumentSource `json:"source,omitempty"`        // For document blocks
	CacheControl *CacheControl   `json:"cache_control,omitempty"` // For document blocks
}

// DocumentSource carries base64-encoded document bytes.
type DocumentSource struct {
	Type      string `json:"type"`       // "base64"
	MediaType string `json:"media_type"` // "application/pdf"
	Data      string `json:"data"`
}

// CacheControl marks a block for provider-side prompt caching.
type CacheControl struct {
	Type string `json:"type"` // "ephemeral"
}

// TextBlock builds a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: "text", Text: text}
}

// PDFBlock builds a cached document block from base64-encoded PDF bytes.
func PDFBlock(data string) ContentBlock {
	return ContentBlock{
		Type: "document",
		Source: &DocumentSource{
			Type:      "base64",
			MediaType: "application/pdf",
			Data:      data,
		},
		CacheControl: &CacheControl{Type: "ephemeral"},
	}
}

// Request represents the Anthropic Messages API request.
type Request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
	Stream    bool      `json:"stream,omitempty"`
}

// apiError mirrors the error payload returned on failed requests
// and inside stream error events.
type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
