// Package ui provides colorized console output for the Grok pipe.
// Everything here is decoration for humans; structured logs go through slog.
package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/hpn/grok-manifold/internal/adapter"
)

// ══════════════════════════════════════════════════════════════════════════════
// COLOR DEFINITIONS
// ══════════════════════════════════════════════════════════════════════════════

var (
	successBadge = color.New(color.BgGreen, color.FgBlack, color.Bold)
	warningBadge = color.New(color.FgYellow, color.Bold)
	errorBadge   = color.New(color.BgRed, color.FgWhite, color.Bold)
	infoBadge    = color.New(color.FgCyan, color.Bold)
	debugBadge   = color.New(color.FgMagenta)

	successText = color.New(color.FgGreen, color.Bold)
	warningText = color.New(color.FgYellow)
	errorText   = color.New(color.FgRed)
	infoText    = color.New(color.FgCyan)
	mutedText   = color.New(color.FgHiBlack)
	accentText  = color.New(color.FgMagenta, color.Bold)
	neonBlue    = color.New(color.FgHiCyan, color.Bold)
	replyText   = color.New(color.FgHiWhite)

	methodPOST = color.New(color.BgHiMagenta, color.FgBlack, color.Bold)
	methodGET  = color.New(color.BgHiCyan, color.FgBlack, color.Bold)
)

var (
	outMu sync.Mutex
	out   io.Writer = color.Output
)

// SetOutput redirects console output and returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	outMu.Lock()
	defer outMu.Unlock()
	prev := out
	out = w
	return prev
}

func writer() io.Writer {
	outMu.Lock()
	defer outMu.Unlock()
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// STATUS LINES
// ══════════════════════════════════════════════════════════════════════════════

// PrintInfo logs general pipe information.
// Format: [GROK] message
func PrintInfo(msg string) {
	w := writer()
	infoBadge.Fprint(w, "[GROK]")
	fmt.Fprint(w, " ")
	infoText.Fprintln(w, msg)
}

// PrintError prints a failure the user should see.
func PrintError(err error) {
	w := writer()
	errorBadge.Fprint(w, " ERROR ")
	fmt.Fprint(w, " ")
	errorText.Fprintln(w, err.Error())
}

// PrintCacheHit logs a cached reply.
// Format: ⚡ CACHE HIT | /v1/models | 0ms
func PrintCacheHit(path string, latency time.Duration) {
	w := writer()
	neonBlue.Fprint(w, "⚡ CACHE HIT ")
	fmt.Fprint(w, "| ")
	mutedText.Fprint(w, path)
	fmt.Fprint(w, " | ")
	successText.Fprintf(w, "%dms\n", latency.Milliseconds())
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST LOGGING
// ══════════════════════════════════════════════════════════════════════════════

// PrintRequest logs one bridged request.
func PrintRequest(method, path string, status int, latency time.Duration, requestID string) {
	w := writer()
	mutedText.Fprintf(w, "%s ", time.Now().Format("15:04:05"))

	printMethodBadge(w, method)
	fmt.Fprint(w, " ")

	fmt.Fprintf(w, "%-30s ", truncatePath(path, 30))

	printStatusBadge(w, status)
	fmt.Fprint(w, " ")

	printLatency(w, latency)

	if requestID != "" {
		mutedText.Fprintf(w, " id:%s", shortID(requestID))
	}

	fmt.Fprintln(w)
}

func printMethodBadge(w io.Writer, method string) {
	switch method {
	case "POST":
		methodPOST.Fprintf(w, " %s ", method)
	case "GET":
		methodGET.Fprintf(w, " %s ", method)
	default:
		debugBadge.Fprintf(w, " %s ", method)
	}
}

func printStatusBadge(w io.Writer, status int) {
	switch {
	case status >= 200 && status < 300:
		successBadge.Fprintf(w, " %d ", status)
	case status >= 300 && status < 400:
		infoBadge.Fprintf(w, " %d ", status)
	case status >= 400 && status < 500:
		warningBadge.Fprintf(w, " %d ", status)
	default:
		errorBadge.Fprintf(w, " %d ", status)
	}
}

// printLatency colors latency: green under 1s, yellow under 5s, red beyond.
func printLatency(w io.Writer, latency time.Duration) {
	ms := latency.Milliseconds()
	s := fmt.Sprintf("%5dms", ms)

	switch {
	case ms < 1000:
		successText.Fprint(w, s)
	case ms < 5000:
		warningText.Fprint(w, s)
	default:
		errorText.Fprint(w, s)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MODELS AND REPLIES
// ══════════════════════════════════════════════════════════════════════════════

// PrintModels prints the model listing as a small table.
func PrintModels(models []adapter.Model) {
	w := writer()
	if len(models) == 0 {
		warningBadge.Fprint(w, "[MODELS]")
		warningText.Fprintln(w, " no models available (check the API key and base URL)")
		return
	}

	width := len("MODEL")
	for _, m := range models {
		width = max(width, len(m.ID))
	}

	mutedText.Fprintf(w, "  %-*s  %s\n", width, "MODEL", "OWNER")
	for _, m := range models {
		fmt.Fprint(w, "  ")
		accentText.Fprintf(w, "%-*s", width, m.ID)
		mutedText.Fprintln(w, "  xai")
	}
	mutedText.Fprintf(w, "  %d model(s)\n", len(models))
}

// PrintReplyHeader marks the start of an assistant reply.
func PrintReplyHeader(model string) {
	w := writer()
	fmt.Fprintln(w)
	infoBadge.Fprint(w, "[")
	accentText.Fprint(w, model)
	infoBadge.Fprintln(w, "]")
}

// PrintChunk writes one reply fragment without a trailing newline.
func PrintChunk(chunk string) {
	replyText.Fprint(writer(), chunk)
}

// PrintReplyEnd closes a reply with elapsed time.
func PrintReplyEnd(chunks int, elapsed time.Duration) {
	w := writer()
	fmt.Fprintln(w)
	mutedText.Fprintf(w, "── %d chunk(s) in %s\n", chunks, elapsed.Round(time.Millisecond))
}

// ══════════════════════════════════════════════════════════════════════════════
// UTILITY FUNCTIONS
// ══════════════════════════════════════════════════════════════════════════════

// shortID keeps the first block of a uuid.
func shortID(id string) string {
	if head, _, ok := strings.Cut(id, "-"); ok {
		return head
	}
	return id
}

func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	return path[:maxLen-3] + "..."
}

// ══════════════════════════════════════════════════════════════════════════════
// STARTUP MESSAGES
// ══════════════════════════════════════════════════════════════════════════════

// PrintStartupInfo prints server startup information.
func PrintStartupInfo(addr, baseURL string, hasKey bool) {
	w := writer()
	fmt.Fprintln(w)
	infoBadge.Fprint(w, "[GROK]")
	fmt.Fprint(w, " Server starting on ")
	neonBlue.Fprintf(w, "http://%s\n", addr)

	infoBadge.Fprint(w, "[GROK]")
	fmt.Fprint(w, " Upstream: ")
	accentText.Fprint(w, baseURL)
	fmt.Fprint(w, " | API key: ")
	if hasKey {
		successText.Fprintln(w, "set")
	} else {
		errorText.Fprintln(w, "missing")
	}

	fmt.Fprintln(w)
	printEndpoints(w)
}

func printEndpoints(w io.Writer) {
	mutedText.Fprintln(w, "  ┌─────────────────────────────────────────────────────────┐")
	mutedText.Fprint(w, "  │ ")
	methodPOST.Fprint(w, " POST ")
	fmt.Fprint(w, " /v1/chat/completions ")
	mutedText.Fprint(w, "  Chat completion (batch or SSE)   ")
	mutedText.Fprintln(w, " │")

	mutedText.Fprint(w, "  │ ")
	methodGET.Fprint(w, " GET  ")
	fmt.Fprint(w, " /v1/models           ")
	mutedText.Fprint(w, "  List Grok models                 ")
	mutedText.Fprintln(w, " │")

	mutedText.Fprint(w, "  │ ")
	methodGET.Fprint(w, " GET  ")
	fmt.Fprint(w, " /health              ")
	mutedText.Fprint(w, "  Health check                     ")
	mutedText.Fprintln(w, " │")

	mutedText.Fprintln(w, "  └─────────────────────────────────────────────────────────┘")
	fmt.Fprintln(w)
}

// PrintShutdown prints the shutdown notice.
func PrintShutdown() {
	w := writer()
	fmt.Fprintln(w)
	warningBadge.Fprint(w, "[SHUTDOWN]")
	warningText.Fprintln(w, " Graceful shutdown initiated...")
}

// PrintGoodbye prints the final line after a clean stop.
func PrintGoodbye() {
	w := writer()
	successBadge.Fprint(w, " OK ")
	fmt.Fprint(w, " ")
	successText.Fprintln(w, "Server stopped. Goodbye! 👋")
}
