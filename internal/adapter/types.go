package adapter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Host-facing and provider-facing chat types.
// Host types are decoded leniently: a malformed message never fails the whole request.

// Role tags the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Content part types understood by the translator.
const (
	PartTypeText     = "text"
	PartTypeImageURL = "image_url"
)

// Model is one entry of the remote model listing. Name mirrors ID.
type Model struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Message is a host chat message.
// An empty Role marks a message that was missing its role or was not an object;
// the translator skips such messages.
type Message struct {
	Role    Role    `json:"role"`
	Content Content `json:"content"`
}

// UnmarshalJSON decodes a message without ever failing.
func (m *Message) UnmarshalJSON(data []byte) error {
	*m = Message{}

	r := gjson.ParseBytes(data)
	if !r.IsObject() {
		return nil
	}

	role := r.Get("role")
	if role.Type != gjson.String {
		return nil
	}

	m.Role = Role(role.Str)
	m.Content = contentFromResult(r.Get("content"))
	return nil
}

// Content is either plain text or an ordered list of parts.
// Parts is non-nil exactly when the host sent a list.
type Content struct {
	Text  string
	Parts []ContentPart
}

// TextContent builds plain-text content.
func TextContent(text string) Content {
	return Content{Text: text}
}

// PartsContent builds block-list content.
func PartsContent(parts ...ContentPart) Content {
	if parts == nil {
		parts = []ContentPart{}
	}
	return Content{Parts: parts}
}

// IsParts reports whether the content is a block list.
func (c Content) IsParts() bool {
	return c.Parts != nil
}

// String flattens the content to text. Text parts are joined with newlines.
func (c Content) String() string {
	if !c.IsParts() {
		return c.Text
	}

	texts := make([]string, 0, len(c.Parts))
	for _, p := range c.Parts {
		if p.Type == PartTypeText && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// MarshalJSON encodes parts as a list and anything else as a string.
func (c Content) MarshalJSON() ([]byte, error) {
	if c.IsParts() {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

// UnmarshalJSON accepts a string, a list of parts, or any other JSON value.
func (c *Content) UnmarshalJSON(data []byte) error {
	*c = contentFromResult(gjson.ParseBytes(data))
	return nil
}

// contentFromResult maps a raw content value to Content.
// Falsy values (null, false, 0, "", {}) yield empty text.
// Other scalars and objects keep their JSON text.
func contentFromResult(r gjson.Result) Content {
	switch {
	case r.IsArray():
		items := r.Array()
		parts := make([]ContentPart, 0, len(items))
		for _, item := range items {
			parts = append(parts, partFromResult(item))
		}
		return Content{Parts: parts}
	case r.Type == gjson.String:
		return Content{Text: r.Str}
	case r.Type == gjson.Number:
		if r.Num == 0 {
			return Content{}
		}
		return Content{Text: r.Raw}
	case r.Type == gjson.True:
		return Content{Text: r.Raw}
	case r.IsObject():
		if len(r.Map()) == 0 {
			return Content{}
		}
		return Content{Text: r.Raw}
	default:
		return Content{}
	}
}

// ContentPart is one block of a multi-part message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL references an image by URL or inline data URI.
type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// partFromResult decodes a part; "image_url" may be an object or a bare string.
func partFromResult(r gjson.Result) ContentPart {
	if !r.IsObject() {
		return ContentPart{}
	}

	part := ContentPart{
		Type: r.Get("type").String(),
		Text: r.Get("text").String(),
	}

	img := r.Get("image_url")
	switch {
	case img.IsObject():
		part.ImageURL = &ImageURL{
			URL:    img.Get("url").String(),
			Detail: img.Get("detail").String(),
		}
	case img.Type == gjson.String:
		part.ImageURL = &ImageURL{URL: img.Str}
	}

	return part
}

// StopSequences accepts either a single string or a list of strings.
type StopSequences []string

// UnmarshalJSON implements json.Unmarshaler.
func (s *StopSequences) UnmarshalJSON(data []byte) error {
	r := gjson.ParseBytes(data)
	switch {
	case r.Type == gjson.Null:
		*s = nil
	case r.Type == gjson.String:
		*s = StopSequences{r.Str}
	case r.IsArray():
		out := make(StopSequences, 0)
		for _, item := range r.Array() {
			out = append(out, item.String())
		}
		*s = out
	default:
		return fmt.Errorf("stop must be a string or a list of strings, got %s", r.Type)
	}
	return nil
}

// ChatRequest is the inbound body from the host.
// Optional generation parameters are pointers so omission can be told apart from zero.
type ChatRequest struct {
	Model            string        `json:"model"`
	Messages         []Message     `json:"messages"`
	Stream           *bool         `json:"stream,omitempty"`
	Temperature      *float64      `json:"temperature,omitempty"`
	MaxTokens        *int          `json:"max_tokens,omitempty"`
	TopP             *float64      `json:"top_p,omitempty"`
	FrequencyPenalty *float64      `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64      `json:"presence_penalty,omitempty"`
	Stop             StopSequences `json:"stop,omitempty"`
	User             *string       `json:"user,omitempty"`
	N                *int          `json:"n,omitempty"`
	Logprobs         *bool         `json:"logprobs,omitempty"`
	TopLogprobs      *int          `json:"top_logprobs,omitempty"`
}

// ProviderMessage is one entry of the flattened provider message list.
// Text entries carry Role and Content; image entries carry Type and Source.
type ProviderMessage struct {
	Role    Role         `json:"role,omitempty"`
	Content string       `json:"content,omitempty"`
	Type    string       `json:"type,omitempty"`
	Source  *ImageSource `json:"source,omitempty"`
}

// IsImage reports whether the entry is an image block.
func (m ProviderMessage) IsImage() bool {
	return m.Type == "image"
}

// ImageSource is the provider's image payload: inline base64 or a remote URL.
type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

// ProviderRequest is the body of POST /chat/completions. Every field is always sent.
type ProviderRequest struct {
	Model            string            `json:"model"`
	Messages         []ProviderMessage `json:"messages"`
	Stream           bool              `json:"stream"`
	Temperature      float64           `json:"temperature"`
	MaxTokens        int               `json:"max_tokens"`
	TopP             float64           `json:"top_p"`
	FrequencyPenalty float64           `json:"frequency_penalty"`
	PresencePenalty  float64           `json:"presence_penalty"`
	Stop             []string          `json:"stop"`
	User             string            `json:"user"`
	N                int               `json:"n"`
	Logprobs         bool              `json:"logprobs"`
	TopLogprobs      int               `json:"top_logprobs"`
}

// ChatCompletion is the batch reply of POST /chat/completions.
type ChatCompletion struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []CompletionChoice `json:"choices"`
	Usage   *CompletionUsage   `json:"usage,omitempty"`
}

// CompletionChoice is a single completion choice.
type CompletionChoice struct {
	Index        int               `json:"index"`
	Message      CompletionMessage `json:"message"`
	FinishReason string            `json:"finish_reason"`
}

// CompletionMessage is the assistant message of a choice.
type CompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionUsage contains token usage statistics.
type CompletionUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
