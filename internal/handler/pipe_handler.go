package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hpn/grok-manifold/internal/adapter"
	"github.com/tidwall/sjson"
)

const (
	errTypeInvalidRequest = "invalid_request_error"
	errTypeServer         = "server_error"
	errTypeUpstream       = "upstream_error"

	ctxKeyModel = "model"

	// chunkTemplate is the skeleton of one streamed chat.completion.chunk.
	chunkTemplate = `{"id":"","object":"chat.completion.chunk","created":0,"model":"","choices":[{"index":0,"delta":{},"finish_reason":null}]}`
)

// PipeHandler serves a Pipe over HTTP.
type PipeHandler struct {
	pipe   adapter.Pipe
	logger *slog.Logger
	now    func() time.Time
}

// PipeHandlerOption is a functional option for configuring PipeHandler.
type PipeHandlerOption func(*PipeHandler)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) PipeHandlerOption {
	return func(h *PipeHandler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithClock overrides the time source used for "created" stamps.
func WithClock(now func() time.Time) PipeHandlerOption {
	return func(h *PipeHandler) {
		if now != nil {
			h.now = now
		}
	}
}

// NewPipeHandler creates a new PipeHandler.
func NewPipeHandler(pipe adapter.Pipe, opts ...PipeHandlerOption) *PipeHandler {
	h := &PipeHandler{
		pipe:   pipe,
		logger: slog.Default(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// HandleModels handles GET /v1/models.
// A failed listing is still a 200 with an empty list, and is not cached.
func (h *PipeHandler) HandleModels(c *gin.Context) {
	models := h.pipe.ListModels(c.Request.Context())
	if len(models) == 0 {
		c.Set(ctxKeyNoCache, true)
	}

	data := make([]gin.H, 0, len(models))
	for _, m := range models {
		data = append(data, gin.H{
			"id":       m.ID,
			"object":   "model",
			"name":     m.Name,
			"owned_by": "xai",
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   data,
	})
}

// HandleChatCompletion handles POST /v1/chat/completions.
// The reply is a chat.completion object, or an SSE stream of chunks when the
// effective request streams. Pipe failures map to 502.
func (h *PipeHandler) HandleChatCompletion(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.sendError(c, http.StatusBadRequest, errTypeInvalidRequest, "Failed to read request body: "+err.Error())
		return
	}

	var req adapter.ChatRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		h.sendError(c, http.StatusBadRequest, errTypeInvalidRequest, "Invalid request body: "+err.Error())
		return
	}

	if len(req.Messages) == 0 {
		h.sendError(c, http.StatusBadRequest, errTypeInvalidRequest, "messages array is required")
		return
	}

	model := adapter.ResolveModelID(req.Model)
	c.Set(ctxKeyModel, model)

	reply := h.pipe.Pipe(c.Request.Context(), req)
	if reply.Err != nil {
		_ = c.Error(reply.Err)
		h.sendError(c, http.StatusBadGateway, errTypeUpstream, reply.Content)
		return
	}

	id := "chatcmpl-" + uuid.NewString()
	created := h.now().Unix()

	if reply.IsStream() {
		h.streamReply(c, reply.Stream, id, model, created)
		return
	}

	c.JSON(http.StatusOK, adapter.ChatCompletion{
		ID:      id,
		Object:  "chat.completion",
		Created: created,
		Model:   model,
		Choices: []adapter.CompletionChoice{{
			Index:        0,
			Message:      adapter.CompletionMessage{Role: string(adapter.RoleAssistant), Content: reply.Content},
			FinishReason: "stop",
		}},
	})
}

// streamReply relays fragments as SSE frames and ends with [DONE].
// A client that goes away stops the iteration, which releases the upstream connection.
func (h *PipeHandler) streamReply(c *gin.Context, stream *adapter.Stream, id, model string, created int64) {
	template, _ := sjson.Set(chunkTemplate, "id", id)
	template, _ = sjson.Set(template, "created", created)
	template, _ = sjson.Set(template, "model", model)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	ctx := c.Request.Context()
	first := true
	chunks := 0

	for chunk := range stream.Chunks() {
		frame, _ := sjson.Set(template, "choices.0.delta.content", chunk)
		if first {
			frame, _ = sjson.Set(frame, "choices.0.delta.role", string(adapter.RoleAssistant))
			first = false
		}

		if !writeEvent(c, frame) || ctx.Err() != nil {
			h.logger.Debug("client went away mid-stream",
				slog.String("request_id", RequestID(c)),
				slog.Int("chunks", chunks),
			)
			return
		}
		chunks++
	}

	if err := stream.Err(); err != nil {
		_ = c.Error(err)
		errFrame, _ := sjson.Set(`{}`, "error", errorBody("Error: "+err.Error(), errTypeUpstream, nil)["error"])
		writeEvent(c, errFrame)
	} else {
		final, _ := sjson.Set(template, "choices.0.finish_reason", "stop")
		writeEvent(c, final)
	}

	writeEvent(c, "[DONE]")
}

// writeEvent writes one "data: ..." frame and flushes it.
func writeEvent(c *gin.Context, payload string) bool {
	if _, err := io.WriteString(c.Writer, "data: "+payload+"\n\n"); err != nil {
		return false
	}
	c.Writer.Flush()
	return true
}

// HandleHealth handles GET /health.
func (h *PipeHandler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"provider": h.pipe.Name(),
	})
}

// sendError sends an error response in OpenAI-compatible format.
func (h *PipeHandler) sendError(c *gin.Context, status int, errType, message string) {
	c.JSON(status, errorBody(message, errType, nil))
}

func errorBody(message, errType string, code any) gin.H {
	return gin.H{
		"error": gin.H{
			"message": message,
			"type":    errType,
			"param":   nil,
			"code":    code,
		},
	}
}
