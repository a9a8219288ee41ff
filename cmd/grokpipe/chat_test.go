package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/fatih/color"
	"github.com/hpn/grok-manifold/internal/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

// mockGrok serves /models and /chat/completions and remembers the last chat body.
func mockGrok(t *testing.T, lastBody *string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/models":
			fmt.Fprint(w, `{"data":[{"id":"grok-beta"},{"id":"grok-2-latest"}]}`)
		case "/chat/completions":
			body, _ := io.ReadAll(r.Body)
			*lastBody = string(body)
			if gjson.GetBytes(body, "stream").Bool() {
				fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
				fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo!\"}}]}\n\n")
				fmt.Fprint(w, "data: [DONE]\n\n")
				return
			}
			fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"Hi there"}}]}`)
		default:
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, "no")
		}
	}))
	t.Cleanup(server.Close)

	return server
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	t.Setenv("GROK_API_KEY", "xai-cliTestKey0123456789")
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	noColor := color.NoColor
	color.NoColor = true
	var out bytes.Buffer
	prev := ui.SetOutput(&out)
	t.Cleanup(func() {
		ui.SetOutput(prev)
		color.NoColor = noColor
	})

	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	err = cmd.Execute()

	return out.String(), err
}

func TestModelsCommand(t *testing.T) {
	var body string
	server := mockGrok(t, &body)

	out, err := runCLI(t, "models", "--base-url", server.URL)

	require.NoError(t, err)
	assert.Contains(t, out, "grok-beta")
	assert.Contains(t, out, "grok-2-latest")
}

func TestChatCommand_Batch(t *testing.T) {
	var body string
	server := mockGrok(t, &body)

	out, err := runCLI(t, "chat", "--base-url", server.URL, "--system", "You are a test assistant.", "Just", "say", "hi")

	require.NoError(t, err)
	assert.Contains(t, out, "Hi there")
	assert.Contains(t, out, "[grok-beta]")

	assert.Equal(t, "grok-beta", gjson.Get(body, "model").String())
	assert.Equal(t, "system", gjson.Get(body, "messages.0.role").String())
	assert.Equal(t, "Just say hi", gjson.Get(body, "messages.1.content").String())
	assert.False(t, gjson.Get(body, "stream").Bool())
	assert.Equal(t, 0.8, gjson.Get(body, "temperature").Float(), "unset flag keeps the configured default")
}

func TestChatCommand_Stream(t *testing.T) {
	var body string
	server := mockGrok(t, &body)

	out, err := runCLI(t, "chat", "--base-url", server.URL, "--stream", "--model", "xai.grok-2-latest", "-t", "0")

	require.NoError(t, err)
	assert.Contains(t, out, "Hello!")
	assert.Contains(t, out, "2 chunk(s)")

	assert.Equal(t, "grok-2-latest", gjson.Get(body, "model").String())
	assert.Equal(t, "Hello", gjson.Get(body, "messages.0.content").String())
	assert.True(t, gjson.Get(body, "stream").Bool())
	assert.Equal(t, 0.0, gjson.Get(body, "temperature").Float())
}

func TestChatCommand_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, "bad key")
	}))
	t.Cleanup(server.Close)

	out, err := runCLI(t, "chat", "--base-url", server.URL, "hi")

	require.Error(t, err)
	assert.Contains(t, out, "HTTP Error 401: bad key")
}
