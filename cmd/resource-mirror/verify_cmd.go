package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// createVerifyCommand creates the verify subcommand
func createVerifyCommand() *cobra.Command {
	var allFlag bool

	verifyCmd := &cobra.Command{
		Use:   "verify [flags] [NAME...]",
		Short: "check previously fetched resources against their hashes",
		RunE: func(cmd *cobra.Command, args []string) error {
			bad, err := orch.Invalid(resourcesPath, outputDir, selectorFor(allFlag, args))
			if err != nil {
				return err
			}
			if len(bad) > 0 {
				return fmt.Errorf("invalid or missing resources: %s", strings.Join(bad, ", "))
			}
			if !quietFlag {
				fmt.Fprintln(cmd.OutOrStdout(), "All resources successfully downloaded")
			}
			return nil
		},
	}

	verifyCmd.Flags().BoolVarP(&allFlag, "all", "a", false,
		"include optional resources as well as required")
	return verifyCmd
}
