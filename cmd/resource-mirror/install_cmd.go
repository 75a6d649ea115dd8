package main

import (
	"github.com/spf13/cobra"
)

// createInstallCommand creates the install subcommand
func createInstallCommand() *cobra.Command {
	var (
		destDir      string
		skipTopLevel bool
		allFlag      bool
	)

	installCmd := &cobra.Command{
		Use:   "install [flags] NAME...",
		Short: "install verified resources into a destination directory",
		Long: `Install extracts archive resources (tar- and zip-style containers)
into the destination directory and copies anything else byte-for-byte.
Every selected resource must verify first; fetch before installing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sel := selectorFor(allFlag, args)
			return orch.Install(resourcesPath, outputDir, sel, destDir, skipTopLevel)
		},
	}

	installCmd.Flags().StringVar(&destDir, "dest", "",
		"directory to install into (required)")
	installCmd.Flags().BoolVar(&skipTopLevel, "skip-top-level", false,
		"flatten a single top-level wrapper directory out of archives")
	installCmd.Flags().BoolVarP(&allFlag, "all", "a", false,
		"install all resources, optional included")
	return installCmd
}

// createPipInstallCommand creates the pip-install subcommand
func createPipInstallCommand() *cobra.Command {
	var (
		indexURL string
		allFlag  bool
	)

	pipCmd := &cobra.Command{
		Use:   "pip-install [flags] NAME...",
		Short: "install package-index resources with the ecosystem installer",
		Long: `Pip-install hands the selected package-index resources to the
installer, preferring previously fetched local artifacts and falling
back to the raw package spec against the index or mirror.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sel := selectorFor(allFlag, args)
			return orch.PipInstall(resourcesPath, outputDir, sel, indexURL)
		},
	}

	pipCmd.Flags().StringVarP(&indexURL, "mirror", "u", "",
		"package index URL to install against")
	pipCmd.Flags().BoolVarP(&allFlag, "all", "a", false,
		"install all resources, optional included")
	return pipCmd
}
