package main

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/deploykit/resource-mirror/internal/mirrorserver"
	"github.com/deploykit/resource-mirror/internal/pypi"
)

// createMirrorIndexCommand creates the mirror-index subcommand
func createMirrorIndexCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mirror-index [DIR]",
		Short: "regenerate static index pages for a mirrored package tree",
		Long: `Mirror-index scans a directory of per-package subdirectories,
recovers each package's hash from its sidecar file, and writes a static
listing page per package. The result is directly servable as a private
package index.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := mirrorRoot(args)
			if err != nil {
				return err
			}
			return pypi.BuildMirrorIndexes(root)
		},
	}
}

// createServeCommand creates the serve subcommand
func createServeCommand() *cobra.Command {
	var (
		host string
		port int
	)

	serveCmd := &cobra.Command{
		Use:   "serve [flags] [DIR]",
		Short: "serve previously mirrored resources over HTTP",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := mirrorRoot(args)
			if err != nil {
				return err
			}
			if _, err := os.Stat(root); err != nil {
				return fmt.Errorf("resources dir %q not found, did you fetch?", root)
			}
			addr := net.JoinHostPort(host, strconv.Itoa(port))
			return mirrorserver.Serve(addr, root)
		},
	}

	serveCmd.Flags().StringVarP(&host, "host", "H", "",
		"IP address to bind the mirror server on")
	serveCmd.Flags().IntVarP(&port, "port", "p", 8080,
		"port to bind the mirror server on")
	return serveCmd
}

// mirrorRoot picks the directory to operate on: the positional argument
// when given, else the declaration's output dir.
func mirrorRoot(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	return resolvedOutputDir()
}
