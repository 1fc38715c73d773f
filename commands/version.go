package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is overridden at build time with -ldflags "-X".
var Version = "v0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of ghostprobe",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("ghostprobe " + Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
