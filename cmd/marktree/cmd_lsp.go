package main

import (
	"os"

	"github.com/spf13/cobra"
	"src.marktree.dev/pkg/lsp"
)

func (a *app) newLSPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Info("starting language server")
			return lsp.Serve(cmd.Context(), os.Stdin, os.Stdout, a.cfg.MarkdownOptions())
		},
	}
}
