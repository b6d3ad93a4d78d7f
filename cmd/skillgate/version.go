package main

import (
	"fmt"
	"os"

	"github.com/jingkaihe/skillgate/pkg/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		info := version.Get()

		if asJSON, _ := cmd.Flags().GetBool("json"); !asJSON {
			fmt.Println(info.String())
			return
		}

		json, err := info.JSON()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting version info: %s\n", err)
			os.Exit(1)
		}
		fmt.Println(json)
	},
}

func init() {
	versionCmd.Flags().Bool("json", false, "print version information as JSON")
}
