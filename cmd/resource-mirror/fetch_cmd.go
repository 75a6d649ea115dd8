package main

import (
	"fmt"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/deploykit/resource-mirror/internal/utils/logger"
)

// createFetchCommand creates the fetch subcommand
func createFetchCommand() *cobra.Command {
	var (
		mirrorURL string
		allFlag   bool
		forceFlag bool
	)

	fetchCmd := &cobra.Command{
		Use:   "fetch [flags] [NAME...]",
		Short: "fetch declared resources and report what remains invalid",
		Long: `Fetch downloads every selected resource that does not currently
verify, or everything selected when --force is given. Without names the
required set is fetched; --all includes optional resources too. Network
failures never abort the pass; they surface as invalid resources in the
final report.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeFetch(cmd, args, mirrorURL, allFlag, forceFlag)
		},
	}

	fetchCmd.Flags().StringVarP(&mirrorURL, "mirror", "u", "",
		"base URL to fetch all resources from instead of their declared sources")
	fetchCmd.Flags().BoolVarP(&allFlag, "all", "a", false,
		"include optional resources as well as required")
	fetchCmd.Flags().BoolVarP(&forceFlag, "force", "f", false,
		"re-download resources that are already valid")
	return fetchCmd
}

func executeFetch(cmd *cobra.Command, args []string, mirrorURL string, all bool, force bool) error {
	sel := selectorFor(all, args)

	container, err := orch.Resources(resourcesPath, outputDir)
	if err != nil {
		return err
	}
	selected, err := container.Subset(sel)
	if err != nil {
		return err
	}

	var progress func(string)
	if !quietFlag {
		bar := progressbar.NewOptions(len(selected),
			progressbar.OptionFullWidth(),
			progressbar.OptionSetDescription("fetching"),
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionShowCount(),
		)
		progress = func(name string) {
			bar.Describe(fmt.Sprintf("fetching %s", name))
			bar.Add(1)
			logger.GlobalFetchReport.Record(name)
		}
		defer bar.Finish()
	} else {
		progress = logger.GlobalFetchReport.Record
	}

	bad, err := orch.Fetch(resourcesPath, outputDir, sel, mirrorURL, force, progress)
	if err != nil {
		return err
	}
	if err := logger.GlobalFetchReport.WriteToDir(container.OutputDir()); err != nil {
		logger.Logger().Debugf("could not write fetch report: %v", err)
	}
	if len(bad) > 0 {
		return fmt.Errorf("invalid or missing resources: %s", strings.Join(bad, ", "))
	}
	if !quietFlag {
		fmt.Fprintln(cmd.OutOrStdout(), "All resources successfully downloaded")
	}
	return nil
}
