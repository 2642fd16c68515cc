package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "coverarr",
	Short: "Aggregate book covers from multiple catalog providers and export the best ones.",
	Long: `Aggregate book covers from multiple catalog providers and export the best ones.

Provide a configuration file using one of the following methods:
1. Use the --config <path> or -c <path> flag.
2. Place a config.yaml file in the default user configuration directory (e.g., ~/.config/coverarr/).
3. Place a config.yaml file a folder inside your home directory (e.g., ~/.coverarr/).
4. Place a config.yaml file in the directory of the binary.`,
}

func init() {
	initRootFlags()
	initExportFlags()

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(listCmd)
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
