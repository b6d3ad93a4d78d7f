package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jingkaihe/skillgate/pkg/config"
	"github.com/jingkaihe/skillgate/pkg/gha"
	"github.com/jingkaihe/skillgate/pkg/presenter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Render a GitHub Actions workflow that runs skillgate on pull requests",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		cfg, err := loadConfig()
		if err != nil {
			presenter.Error(err, "Invalid configuration")
			os.Exit(1)
		}

		output, _ := cmd.Flags().GetString("output")
		release, _ := cmd.Flags().GetString("release")

		rendered, err := renderWorkflow(cfg, release)
		if err != nil {
			presenter.Error(err, "Failed to render workflow")
			os.Exit(1)
		}

		if output == "" || output == "-" {
			fmt.Print(rendered)
			return
		}

		if err := writeWorkflow(output, rendered); err != nil {
			presenter.Error(err, "Failed to write workflow")
			os.Exit(1)
		}
		presenter.Success(fmt.Sprintf("Workflow written to %s", output))
	},
}

func init() {
	workflowCmd.Flags().StringP("output", "o", "-", fmt.Sprintf("output file, e.g. %s (- for stdout)", gha.DefaultWorkflowPath))
	workflowCmd.Flags().String("release", "latest", "skillgate version installed by the workflow")
}

func renderWorkflow(cfg config.Config, release string) (string, error) {
	data := gha.DefaultWorkflowTemplateData(cfg.Classifier.Backend)
	data.SkillsDir = cfg.SkillsDir
	data.Pattern = cfg.Pattern
	data.IgnoreFile = cfg.IgnoreFile
	data.SuppressIgnored = cfg.SuppressIgnored
	data.CacheBackend = cfg.Cache.Backend
	data.CachePath = cfg.Cache.ResolvedPath()
	if release != "" {
		data.Version = release
	}
	return gha.RenderScanWorkflow(data)
}

func writeWorkflow(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", path)
	}
	return errors.Wrapf(os.WriteFile(path, []byte(content), 0o644), "failed to write %s", path)
}
