package main

import (
	"github.com/hpn/grok-manifold/internal/ui"
	"github.com/spf13/cobra"
)

func newModelsCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models the API key can use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pipe, _, err := global.newPipe()
			if err != nil {
				return err
			}

			ui.PrintModels(pipe.ListModels(cmd.Context()))
			return nil
		},
	}
}
