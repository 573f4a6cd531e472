// Command librisctl runs catalog maintenance against the configured stores.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "librisctl",
		Short:         "Libris maintenance CLI",
		Long:          "Runs catalog maintenance using the same config.toml, overlay and LIBRIS_* environment as the server.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolP("verbose", "v", false, "log infrastructure output to stderr")
	root.PersistentFlags().Bool("json", false, "print results as JSON")

	root.AddCommand(newTrashCommand())
	return root
}
