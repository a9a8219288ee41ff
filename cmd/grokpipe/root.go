package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/hpn/grok-manifold/internal/adapter"
	"github.com/hpn/grok-manifold/internal/config"
	"github.com/hpn/grok-manifold/internal/logging"
	"github.com/hpn/grok-manifold/internal/ui"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// globalOptions are the flags shared by every subcommand.
type globalOptions struct {
	configFile string
	baseURL    string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "grokpipe",
		Short: "Grok pipe command line tool",
		Long: `Grok pipe command line tool

Lists xAI Grok models and sends chat requests through the same translation
layer the HTTP bridge uses. The API key is read from GROK_API_KEY.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				ui.PrintMiniBanner()
			}
		},
	}

	addGlobalFlags(cmd.PersistentFlags(), opts)

	cmd.AddCommand(newModelsCmd(opts))
	cmd.AddCommand(newChatCmd(opts))

	return cmd
}

func addGlobalFlags(fs *pflag.FlagSet, opts *globalOptions) {
	fs.StringVar(&opts.configFile, "config", "", "config file (default: ./grok-pipe.yaml if present)")
	fs.StringVar(&opts.baseURL, "base-url", "", "override the xAI API base URL")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "show debug logs on stderr")
}

// newPipe loads configuration and builds the adapter the subcommands share.
// Logs go to stderr so stdout carries only the reply.
func (o *globalOptions) newPipe() (*adapter.GrokAdapter, *config.Configuration, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if o.baseURL != "" {
		cfg.Grok.BaseURL = o.baseURL
	}

	logCfg := cfg.Logging
	logCfg.Format = "text"
	if o.verbose {
		logCfg.Level = "debug"
	} else if logCfg.Level == "info" {
		logCfg.Level = "warn"
	}
	logger := logging.New(logCfg, os.Stderr, cfg.Grok.APIKey)

	if cfg.Grok.APIKey == "" {
		logger.Warn("GROK_API_KEY is not set")
	}
	logger.Debug("using upstream", slog.String("base_url", cfg.Grok.BaseURL))

	return adapter.NewGrokAdapterFromConfig(cfg.Grok, adapter.WithLogger(logger)), cfg, nil
}
