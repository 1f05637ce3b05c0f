package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oguzatay/smartmeet/pkg/buildinfo"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Run: func(cmd *cobra.Command, args []string) {
		info := buildinfo.Get("smartmeet")
		fmt.Printf("smartmeet %s\n", buildinfo.String())
		fmt.Printf("  go: %s\n", info.GoVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
