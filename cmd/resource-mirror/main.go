package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/deploykit/resource-mirror/internal/fetcher"
	"github.com/deploykit/resource-mirror/internal/resource"
	"github.com/deploykit/resource-mirror/internal/utils/logger"
)

// Flags shared by every subcommand.
var (
	resourcesPath string
	outputDir     string
	quietFlag     bool
	verboseFlag   bool
)

// One orchestrator spans the whole invocation so resolved resource
// state is reused across subcommand steps.
var orch = fetcher.New()

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "resource-mirror",
		Short: "fetch, verify, install, and mirror declared resources",
		Long: `resource-mirror pins a deployable unit's external resources:
it fetches them from their declared sources or a private mirror,
verifies them by cryptographic hash, installs them, and can rebuild
and serve a static mirror of everything previously fetched.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			applyEnv()
			logger.Init(verboseFlag, quietFlag)
		},
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&resourcesPath, "resources", "r", "resources.yaml",
		"file or URL containing the YAML resource declarations")
	pf.StringVarP(&outputDir, "output-dir", "d", "",
		"directory for fetched resources (default: the declaration's output_dir)")
	pf.BoolVarP(&quietFlag, "quiet", "q", false,
		"suppress output and only set the return code")
	pf.BoolVar(&verboseFlag, "verbose", false,
		"enable debug logging")
	bindEnv(pf)

	root.AddCommand(
		createFetchCommand(),
		createVerifyCommand(),
		createInstallCommand(),
		createPipInstallCommand(),
		createResourcePathCommand(),
		createResourceSpecCommand(),
		createMirrorIndexCommand(),
		createServeCommand(),
	)
	return root
}

// bindEnv lets RESOURCE_MIRROR_* environment variables stand in for the
// persistent flags.
func bindEnv(pf *pflag.FlagSet) {
	viper.SetEnvPrefix("RESOURCE_MIRROR")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	for _, name := range []string{"resources", "output-dir", "quiet", "verbose"} {
		_ = viper.BindPFlag(name, pf.Lookup(name))
	}
}

func applyEnv() {
	resourcesPath = viper.GetString("resources")
	outputDir = viper.GetString("output-dir")
	quietFlag = viper.GetBool("quiet")
	verboseFlag = viper.GetBool("verbose")
}

// selectorFor maps the common subcommand shape (positional names plus
// an --all flag) to a resource selector.
func selectorFor(all bool, names []string) resource.Selector {
	if all {
		return resource.All
	}
	if len(names) > 0 {
		return resource.Names(names...)
	}
	return resource.Selector{}
}

// resolvedOutputDir returns the directory resources land in, honoring
// the --output-dir override.
func resolvedOutputDir() (string, error) {
	container, err := orch.Resources(resourcesPath, outputDir)
	if err != nil {
		return "", err
	}
	return container.OutputDir(), nil
}
