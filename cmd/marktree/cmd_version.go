package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"src.marktree.dev/pkg/buildinfo"
)

func (a *app) newVersionCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if asJSON {
				return json.NewEncoder(a.stdout).Encode(buildinfo.Value)
			}
			fmt.Fprintln(a.stdout, "Version:", buildinfo.Value.Version)
			fmt.Fprintln(a.stdout, "Go version:", buildinfo.Value.GoVersion)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
