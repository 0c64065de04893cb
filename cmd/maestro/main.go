package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := buildRoot().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds persistent flags shared by all commands.
type GlobalFlags struct {
	ConfigPath string
	APIURL     string
}

func buildRoot() *cobra.Command {
	flags := &GlobalFlags{}
	root := &cobra.Command{
		Use:           "maestro",
		Short:         "maestro supervises groups of local services",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.ConfigPath, "config", "c", "config.yaml", "path to config file")
	root.PersistentFlags().StringVar(&flags.APIURL, "api-url", "http://127.0.0.1:8080", "orchestrator API base URL")

	root.AddCommand(
		newServeCmd(flags),
		newStatusCmd(flags),
		newStartCmd(flags),
		newStopCmd(flags),
	)
	return root
}
