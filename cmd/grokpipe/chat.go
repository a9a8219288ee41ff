package main

import (
	"strings"
	"time"

	"github.com/hpn/grok-manifold/internal/adapter"
	"github.com/hpn/grok-manifold/internal/ui"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const defaultPrompt = "Hello"

type chatOptions struct {
	model       string
	system      string
	stream      bool
	temperature float64
	maxTokens   int
}

func newChatCmd(global *globalOptions) *cobra.Command {
	opts := &chatOptions{}

	cmd := &cobra.Command{
		Use:   "chat [message...]",
		Short: "Send one chat message and print the reply",
		Example: `  grokpipe chat "Just say hi and hello world."
  grokpipe chat --stream --system "You are terse." --model grok-2-latest Why is the sky blue?`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pipe, _, err := global.newPipe()
			if err != nil {
				return err
			}
			return runChat(cmd, pipe, buildChatRequest(cmd.Flags(), opts, args))
		},
	}

	addChatFlags(cmd.Flags(), opts)

	return cmd
}

func addChatFlags(fs *pflag.FlagSet, opts *chatOptions) {
	fs.StringVarP(&opts.model, "model", "m", "grok-beta", "model id, prefixes like xai. are stripped")
	fs.StringVarP(&opts.system, "system", "s", "", "system prompt")
	fs.BoolVar(&opts.stream, "stream", false, "stream the reply")
	fs.Float64VarP(&opts.temperature, "temperature", "t", 0, "sampling temperature (default from config)")
	fs.IntVar(&opts.maxTokens, "max-tokens", 0, "reply token limit (default from config)")
}

// buildChatRequest turns flags into a host request.
// Flags the user did not set stay nil so the adapter defaults apply.
func buildChatRequest(fs *pflag.FlagSet, opts *chatOptions, args []string) adapter.ChatRequest {
	prompt := strings.TrimSpace(strings.Join(args, " "))
	if prompt == "" {
		prompt = defaultPrompt
	}

	var messages []adapter.Message
	if opts.system != "" {
		messages = append(messages, adapter.Message{Role: adapter.RoleSystem, Content: adapter.TextContent(opts.system)})
	}
	messages = append(messages, adapter.Message{Role: adapter.RoleUser, Content: adapter.TextContent(prompt)})

	req := adapter.ChatRequest{Model: opts.model, Messages: messages}
	if fs.Changed("stream") {
		req.Stream = &opts.stream
	}
	if fs.Changed("temperature") {
		req.Temperature = &opts.temperature
	}
	if fs.Changed("max-tokens") {
		req.MaxTokens = &opts.maxTokens
	}
	return req
}

func runChat(cmd *cobra.Command, pipe adapter.Pipe, req adapter.ChatRequest) error {
	start := time.Now()

	reply := pipe.Pipe(cmd.Context(), req)
	if reply.Err != nil {
		ui.PrintError(reply.Err)
		return reply.Err
	}

	ui.PrintReplyHeader(adapter.ResolveModelID(req.Model))

	chunks := 0
	for chunk := range reply.Chunks() {
		ui.PrintChunk(chunk)
		chunks++
	}

	if reply.IsStream() {
		if err := reply.Stream.Err(); err != nil {
			ui.PrintError(err)
			return err
		}
	}

	ui.PrintReplyEnd(chunks, time.Since(start))
	return nil
}
