package main

import (
	"fmt"
	"os"

	"github.com/jingkaihe/skillgate/pkg/classifier"
	"github.com/jingkaihe/skillgate/pkg/presenter"
	"github.com/jingkaihe/skillgate/pkg/skills"
	"github.com/spf13/cobra"
)

var promptCmd = &cobra.Command{
	Use:   "prompt <file>",
	Short: "Print the exact classifier prompt for a skill file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store, err := skills.NewStore()
		if err != nil {
			presenter.Error(err, "")
			os.Exit(1)
		}

		file, err := store.Read(cmd.Context(), args[0])
		if err != nil {
			presenter.Error(err, "Failed to read skill file")
			os.Exit(1)
		}

		fmt.Print(classifier.BuildPrompt(file.Content))
	},
}
