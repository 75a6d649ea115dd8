package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// createResourcePathCommand creates the resource-path subcommand
func createResourcePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resource-path NAME",
		Short: "print the local path of a named resource",
		Long: `Resource-path prints where a fetched resource lands on disk. The
path is computable before any network action but is not guaranteed to
exist or verify; gate on fetch or verify before using it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := orch.ResourcePath(resourcesPath, outputDir, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

// createResourceSpecCommand creates the resource-spec subcommand
func createResourceSpecCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resource-spec NAME",
		Short: "print the source spec of a named resource",
		Long: `Resource-spec prints a resource's human-facing identifier: its URL,
its package spec, or its local path.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := orch.ResourceSpec(resourcesPath, outputDir, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), spec)
			return nil
		},
	}
}
