package main

import (
	"os"

	"github.com/jingkaihe/skillgate/pkg/config"
	"github.com/jingkaihe/skillgate/pkg/logger"
	"github.com/jingkaihe/skillgate/pkg/presenter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "skillgate",
	Short: "Security gate for AI agent skill definitions",
	Long: `skillgate classifies markdown skill files with a language model, caches
verdicts by content fingerprint and fails CI when HIGH severity content is found.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := config.Init(viper.GetViper(), configFile); err != nil {
			return err
		}

		if err := logger.SetLogLevel(viper.GetString("log_level")); err != nil {
			return errors.Wrap(err, "invalid log level")
		}
		logger.SetLogFormat(viper.GetString("log_format"))

		quiet, _ := cmd.Flags().GetBool("quiet")
		presenter.SetQuiet(quiet)
		return nil
	},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
		os.Exit(1)
	},
}

// loadConfig decodes the configuration assembled by the root command.
func loadConfig() (config.Config, error) {
	return config.FromViper(viper.GetViper())
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default is ./skillgate.yaml or $HOME/.skillgate/skillgate.yaml)")
	flags.String("dir", "skills", "directory containing skill files")
	flags.String("pattern", "*.md", "base-name pattern of skill files")
	flags.String("ignore-file", "scanner/ignore_list.txt", "ignore rules file")
	flags.Bool("suppress-ignored", false, "suppress LOW/HIGH findings matching an ignore rule")
	flags.String("classifier", "openai", "classifier backend (openai, anthropic, google, process)")
	flags.String("model", "", "classifier model (defaults per backend)")
	flags.Duration("timeout", 0, "timeout of a single classifier call (default 2m)")
	flags.String("cache-backend", "json", "fingerprint cache backend (json, sqlite)")
	flags.String("cache-path", "", "fingerprint cache location (default per backend)")
	flags.String("profile", "", "configuration profile to apply")
	flags.Bool("tracing", false, "export OpenTelemetry traces over OTLP/HTTP")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "fmt", "log format (fmt, json)")
	flags.BoolP("quiet", "q", false, "only print the final report")

	bindings := map[string]string{
		"skills_dir":         "dir",
		"pattern":            "pattern",
		"ignore_file":        "ignore-file",
		"suppress_ignored":   "suppress-ignored",
		"classifier.backend": "classifier",
		"classifier.model":   "model",
		"classifier.timeout": "timeout",
		"cache.backend":      "cache-backend",
		"cache.path":         "cache-path",
		"profile":            "profile",
		"tracing.enabled":    "tracing",
		"log_level":          "log-level",
		"log_format":         "log-format",
	}
	bindFlags(flags, bindings)

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(promptCmd)
	rootCmd.AddCommand(workflowCmd)
	rootCmd.AddCommand(versionCmd)
}

// bindFlags binds each config key to the flag of the given name.
func bindFlags(flags *pflag.FlagSet, bindings map[string]string) {
	for key, name := range bindings {
		viper.BindPFlag(key, flags.Lookup(name))
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		presenter.Error(err, "")
		os.Exit(1)
	}
}
