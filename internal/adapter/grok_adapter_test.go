package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestAdapter points a GrokAdapter at a mock provider and captures its logs.
func newTestAdapter(t *testing.T, handler http.HandlerFunc, opts ...GrokAdapterOption) (*GrokAdapter, *bytes.Buffer) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	base := []GrokAdapterOption{WithBaseURL(server.URL + "/v1/"), WithLogger(logger)}
	return NewGrokAdapter("xai-test-key", append(base, opts...)...), &logs
}

// writeFrames writes SSE lines and flushes after each one.
func writeFrames(w http.ResponseWriter, lines ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	for _, line := range lines {
		fmt.Fprintf(w, "%s\n\n", line)
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func TestGrokAdapter_Name(t *testing.T) {
	var p Pipe = NewGrokAdapter("")
	assert.Equal(t, "grok", p.Name())
}

func TestGrokAdapter_ListModels(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/models", r.URL.Path)
		assert.Equal(t, "Bearer xai-test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object":"list","data":[
			{"id":"grok-beta","object":"model","owned_by":"xai"},
			{"object":"model"},
			{"id":"grok-2-latest","object":"model"}
		]}`)
	})

	models := adapter.ListModels(context.Background())

	assert.Equal(t, []Model{
		{ID: "grok-beta", Name: "grok-beta"},
		{ID: "grok-2-latest", Name: "grok-2-latest"},
	}, models)
}

func TestGrokAdapter_ListModels_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		logged  string
	}{
		{
			name: "unauthorized",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				fmt.Fprint(w, `{"error":"bad key"}`)
			},
			logged: "HTTP Error 401",
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"data": [`)
			},
			logged: "invalid JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter, logs := newTestAdapter(t, tt.handler)

			models := adapter.ListModels(context.Background())

			assert.NotNil(t, models)
			assert.Empty(t, models)
			assert.Contains(t, logs.String(), tt.logged)
		})
	}
}

func TestGrokAdapter_ListModels_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	adapter := NewGrokAdapter("k", WithBaseURL(url), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	assert.Empty(t, adapter.ListModels(context.Background()))
}

func TestGrokAdapter_ListModels_Timeout(t *testing.T) {
	release := make(chan struct{})
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, WithModelsTimeout(50*time.Millisecond))
	defer close(release)

	start := time.Now()
	models := adapter.ListModels(context.Background())

	assert.Empty(t, models)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestGrokAdapter_Pipe_Batch(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer xai-test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body ProviderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "grok-2-latest", body.Model)
		assert.False(t, body.Stream)
		assert.Equal(t, 0.0, body.Temperature)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, RoleSystem, body.Messages[0].Role)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c-1","object":"chat.completion","choices":[
			{"index":0,"message":{"role":"assistant","content":"hi\nhello world"},"finish_reason":"stop"}
		]}`)
	})

	temperature := 0.0
	reply := adapter.Pipe(context.Background(), ChatRequest{
		Model: "xai/grok-2-latest",
		Messages: []Message{
			{Role: RoleSystem, Content: TextContent("You are a test assistant.")},
			{Role: RoleUser, Content: TextContent("Just say hi and hello world.")},
		},
		Temperature: &temperature,
	})

	require.NoError(t, reply.Err)
	assert.False(t, reply.IsStream())
	assert.Equal(t, "hi\nhello world", reply.Content)

	text, err := reply.Text()
	require.NoError(t, err)
	assert.Equal(t, "hi\nhello world", text)
}

func TestGrokAdapter_Pipe_BatchNoChoices(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"c-1","choices":[]}`)
	})

	reply := adapter.Pipe(context.Background(), ChatRequest{Model: "grok-beta"})

	require.NoError(t, reply.Err)
	assert.Equal(t, "", reply.Content)
}

func TestGrokAdapter_Pipe_HTTPErrorBecomesText(t *testing.T) {
	for _, stream := range []bool{false, true} {
		t.Run(fmt.Sprintf("stream=%v", stream), func(t *testing.T) {
			adapter, logs := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprint(w, `{"error":"rate limited"}`)
			})

			reply := adapter.Pipe(context.Background(), ChatRequest{
				Model:    "grok-beta",
				Messages: []Message{{Role: RoleUser, Content: TextContent("hi")}},
				Stream:   &stream,
			})

			require.Error(t, reply.Err)
			assert.True(t, IsHTTPError(reply.Err))
			assert.Nil(t, reply.Stream)
			assert.Equal(t, `Error: HTTP Error 429: {"error":"rate limited"}`, reply.Content)
			assert.Contains(t, logs.String(), "error in pipe")
		})
	}
}

func TestGrokAdapter_Pipe_TransportErrorBecomesText(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	adapter := NewGrokAdapter("k", WithBaseURL(url), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	reply := adapter.Pipe(context.Background(), ChatRequest{Model: "grok-beta"})

	require.Error(t, reply.Err)
	assert.True(t, strings.HasPrefix(reply.Content, "Error: "))
}

func TestGrokAdapter_Pipe_Stream(t *testing.T) {
	adapter, logs := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		var body ProviderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.True(t, body.Stream)

		writeFrames(w,
			`data: {"choices":[{"delta":{"role":"assistant"}}]}`,
			`data: {"choices":[{"delta":{"content":"He"}}]}`,
			`: keep-alive comment`,
			`data: {"choices":[{"delta":{"content":"llo"}}]}`,
			`data: {bad json`,
			`data: {"choices":[]}`,
		)
	})

	stream := true
	reply := adapter.Pipe(context.Background(), ChatRequest{
		Model:    "grok-beta",
		Messages: []Message{{Role: RoleUser, Content: TextContent("hi")}},
		Stream:   &stream,
	})

	require.NoError(t, reply.Err)
	require.True(t, reply.IsStream())

	var chunks []string
	for chunk := range reply.Chunks() {
		chunks = append(chunks, chunk)
	}

	assert.Equal(t, []string{"He", "llo"}, chunks)
	assert.NoError(t, reply.Stream.Err())
	assert.Contains(t, logs.String(), "failed to parse stream frame")
}

func TestGrokAdapter_Stream_StopsAtDone(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		writeFrames(w,
			`data: {"choices":[{"delta":{"content":"a"}}]}`,
			`data: [DONE]`,
			`data: {"choices":[{"delta":{"content":"ignored"}}]}`,
		)
	})

	reply := adapter.Execute(context.Background(), ProviderRequest{Model: "grok-beta", Stream: true})
	require.NoError(t, reply.Err)

	text, err := reply.Text()
	require.NoError(t, err)
	assert.Equal(t, "a", text)
}

func TestGrokAdapter_Stream_SinglePass(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		writeFrames(w,
			`data: {"choices":[{"delta":{"content":"x"}}]}`,
			`data: {"choices":[{"delta":{"content":"y"}}]}`,
		)
	})

	reply := adapter.Execute(context.Background(), ProviderRequest{Model: "grok-beta", Stream: true})
	require.NoError(t, reply.Err)

	first, err := reply.Stream.Collect()
	require.NoError(t, err)
	assert.Equal(t, "xy", first)

	second, err := reply.Stream.Collect()
	require.NoError(t, err)
	assert.Equal(t, "", second)
}

func TestGrokAdapter_Stream_EarlyStopReleasesConnection(t *testing.T) {
	var finished atomic.Bool
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		writeFrames(w, `data: {"choices":[{"delta":{"content":"first"}}]}`)
		// Keep the exchange open until the client goes away.
		<-r.Context().Done()
		finished.Store(true)
	})

	reply := adapter.Execute(context.Background(), ProviderRequest{Model: "grok-beta", Stream: true})
	require.NoError(t, reply.Err)

	for chunk := range reply.Chunks() {
		assert.Equal(t, "first", chunk)
		break
	}

	assert.Eventually(t, finished.Load, 5*time.Second, 10*time.Millisecond)
	assert.NoError(t, reply.Stream.Close(), "closing twice is harmless")
}

func TestGrokAdapter_Stream_IdleTimeout(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		writeFrames(w, `data: {"choices":[{"delta":{"content":"partial"}}]}`)
		<-r.Context().Done()
	}, WithChatTimeout(100*time.Millisecond))

	reply := adapter.Execute(context.Background(), ProviderRequest{Model: "grok-beta", Stream: true})
	require.NoError(t, reply.Err)

	text, err := reply.Text()
	assert.Equal(t, "partial", text)
	require.Error(t, err)
	assert.ErrorIs(t, err, errStreamIdle)
}
