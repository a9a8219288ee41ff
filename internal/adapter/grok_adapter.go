package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hpn/grok-manifold/internal/config"
	"github.com/tidwall/gjson"
)

const (
	// DefaultGrokBaseURL is the default xAI API endpoint.
	DefaultGrokBaseURL = config.DefaultBaseURL

	// DefaultModelsTimeout bounds a model listing call.
	DefaultModelsTimeout = 10 * time.Second

	// DefaultChatTimeout bounds a batch completion, and the header wait and idle gap of a stream.
	DefaultChatTimeout = 30 * time.Second

	// maxErrorBody caps how much of a failed reply is kept for the error message.
	maxErrorBody = 4096
)

// Defaults are the generation parameters applied when the host omits them.
type Defaults struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
	Stream      bool
}

// DefaultDefaults returns the stock generation parameters.
func DefaultDefaults() Defaults {
	return Defaults{
		MaxTokens:   4096,
		Temperature: 0.8,
		TopP:        0.9,
		Stream:      false,
	}
}

// GrokAdapter implements Pipe for the xAI Grok API.
// It is safe for concurrent use; calls share only the read-only settings and the HTTP client.
type GrokAdapter struct {
	apiKey        string
	baseURL       string
	defaults      Defaults
	modelsTimeout time.Duration
	chatTimeout   time.Duration
	httpClient    *http.Client
	logger        *slog.Logger
}

// GrokAdapterOption is a functional option for configuring GrokAdapter.
type GrokAdapterOption func(*GrokAdapter)

// WithBaseURL sets a custom base URL for the Grok API.
func WithBaseURL(url string) GrokAdapterOption {
	return func(g *GrokAdapter) {
		if url != "" {
			g.baseURL = strings.TrimSuffix(url, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
// Deadlines are applied per call through the request context.
func WithHTTPClient(client *http.Client) GrokAdapterOption {
	return func(g *GrokAdapter) {
		g.httpClient = client
	}
}

// WithDefaults sets the generation defaults.
func WithDefaults(d Defaults) GrokAdapterOption {
	return func(g *GrokAdapter) {
		g.defaults = d
	}
}

// WithModelsTimeout sets the model listing deadline.
func WithModelsTimeout(timeout time.Duration) GrokAdapterOption {
	return func(g *GrokAdapter) {
		if timeout > 0 {
			g.modelsTimeout = timeout
		}
	}
}

// WithChatTimeout sets the chat deadline.
func WithChatTimeout(timeout time.Duration) GrokAdapterOption {
	return func(g *GrokAdapter) {
		if timeout > 0 {
			g.chatTimeout = timeout
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) GrokAdapterOption {
	return func(g *GrokAdapter) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGrokAdapter creates a new GrokAdapter with the given API key.
// An empty key is allowed; the provider decides whether to accept the call.
func NewGrokAdapter(apiKey string, opts ...GrokAdapterOption) *GrokAdapter {
	g := &GrokAdapter{
		apiKey:        apiKey,
		baseURL:       DefaultGrokBaseURL,
		defaults:      DefaultDefaults(),
		modelsTimeout: DefaultModelsTimeout,
		chatTimeout:   DefaultChatTimeout,
		httpClient:    &http.Client{},
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// NewGrokAdapterFromConfig creates a GrokAdapter from the loaded provider settings.
// Extra options are applied after the configuration.
func NewGrokAdapterFromConfig(cfg config.GrokConfig, opts ...GrokAdapterOption) *GrokAdapter {
	base := []GrokAdapterOption{
		WithBaseURL(cfg.BaseURL),
		WithDefaults(Defaults{
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
			Stream:      cfg.Stream,
		}),
		WithModelsTimeout(cfg.ModelsTimeout()),
		WithChatTimeout(cfg.ChatTimeout()),
	}
	return NewGrokAdapter(cfg.APIKey, append(base, opts...)...)
}

// Name returns the provider identifier.
func (g *GrokAdapter) Name() string {
	return "grok"
}

// ListModels fetches the remote model list.
// Any transport, status or decoding failure is logged and yields an empty list.
func (g *GrokAdapter) ListModels(ctx context.Context) []Model {
	models, err := g.fetchModels(ctx)
	if err != nil {
		g.logger.Error("error fetching models", slog.String("error", err.Error()))
		return []Model{}
	}
	return models
}

func (g *GrokAdapter) fetchModels(ctx context.Context) ([]Model, error) {
	ctx, cancel := context.WithTimeout(ctx, g.modelsTimeout)
	defer cancel()

	httpReq, err := g.newRequest(ctx, http.MethodGet, g.baseURL+"/models", nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute models request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read models response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: truncate(body)}
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("failed to decode models response: invalid JSON")
	}

	models := make([]Model, 0)
	gjson.GetBytes(body, "data").ForEach(func(_, entry gjson.Result) bool {
		id := entry.Get("id")
		if id.Type == gjson.String && id.Str != "" {
			models = append(models, Model{ID: id.Str, Name: id.Str})
		}
		return true
	})

	return models, nil
}

// BuildRequest translates a host request into the provider request.
// The first system message, if any, always leads the flattened list.
// Omitted generation parameters fall back to the adapter defaults.
func (g *GrokAdapter) BuildRequest(req ChatRequest) ProviderRequest {
	system, rest := PopSystemMessage(req.Messages)

	messages := make([]ProviderMessage, 0, len(rest)+1)
	if system != nil {
		if text := system.Content.String(); text != "" {
			messages = append(messages, ProviderMessage{Role: RoleSystem, Content: text})
		}
	}
	messages = append(messages, FlattenMessages(rest)...)

	stop := []string(req.Stop)
	if stop == nil {
		stop = []string{}
	}

	return ProviderRequest{
		Model:            ResolveModelID(req.Model),
		Messages:         messages,
		Stream:           valueOr(req.Stream, g.defaults.Stream),
		Temperature:      valueOr(req.Temperature, g.defaults.Temperature),
		MaxTokens:        valueOr(req.MaxTokens, g.defaults.MaxTokens),
		TopP:             valueOr(req.TopP, g.defaults.TopP),
		FrequencyPenalty: valueOr(req.FrequencyPenalty, 0),
		PresencePenalty:  valueOr(req.PresencePenalty, 0),
		Stop:             stop,
		User:             valueOr(req.User, ""),
		N:                valueOr(req.N, 1),
		Logprobs:         valueOr(req.Logprobs, false),
		TopLogprobs:      valueOr(req.TopLogprobs, 0),
	}
}

// Pipe translates and executes a host chat request.
func (g *GrokAdapter) Pipe(ctx context.Context, req ChatRequest) Reply {
	return g.Execute(ctx, g.BuildRequest(req))
}

// Execute sends a provider request and dispatches on its stream flag.
// Failures come back as an "Error: ..." reply rather than a Go error.
func (g *GrokAdapter) Execute(ctx context.Context, req ProviderRequest) Reply {
	url := g.baseURL + "/chat/completions"

	body, err := json.Marshal(req)
	if err != nil {
		return g.errorReply(fmt.Errorf("failed to marshal grok request: %w", err))
	}

	g.logger.Debug("sending chat request",
		slog.String("model", req.Model),
		slog.Int("messages", len(req.Messages)),
		slog.Bool("stream", req.Stream),
	)

	if req.Stream {
		stream, err := g.streamExecute(ctx, url, body)
		if err != nil {
			return g.errorReply(err)
		}
		return Reply{Stream: stream}
	}

	content, err := g.batchExecute(ctx, url, body)
	if err != nil {
		return g.errorReply(err)
	}
	return Reply{Content: content}
}

// streamExecute opens the event stream. A non-200 status fails the whole call.
// The chat timeout first bounds the wait for headers, then every gap between lines.
func (g *GrokAdapter) streamExecute(ctx context.Context, url string, body []byte) (*Stream, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	idle := time.AfterFunc(g.chatTimeout, func() { cancel(errStreamIdle) })

	fail := func(err error) (*Stream, error) {
		idle.Stop()
		cancel(nil)
		return nil, err
	}

	httpReq, err := g.newRequest(ctx, http.MethodPost, url, body)
	if err != nil {
		return fail(err)
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		if cause := context.Cause(ctx); cause == errStreamIdle {
			err = cause
		}
		return fail(fmt.Errorf("failed to execute grok stream request: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		return fail(&HTTPError{StatusCode: resp.StatusCode, Body: string(errBody)})
	}

	return newStream(ctx, resp.Body, idle, g.chatTimeout, cancel, g.logger), nil
}

// batchExecute performs a single completion and returns the first choice's content.
func (g *GrokAdapter) batchExecute(ctx context.Context, url string, body []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.chatTimeout)
	defer cancel()

	httpReq, err := g.newRequest(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", err
	}

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to execute grok request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read grok response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &HTTPError{StatusCode: resp.StatusCode, Body: truncate(respBody)}
	}

	var completion ChatCompletion
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return "", fmt.Errorf("failed to unmarshal grok response: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", nil
	}
	return completion.Choices[0].Message.Content, nil
}

// newRequest builds a request carrying the bearer credential.
func (g *GrokAdapter) newRequest(ctx context.Context, method, url string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	return httpReq, nil
}

func (g *GrokAdapter) errorReply(err error) Reply {
	g.logger.Error("error in pipe", slog.String("error", err.Error()))
	return Reply{Content: "Error: " + err.Error(), Err: err}
}

func valueOr[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return string(body)
}
