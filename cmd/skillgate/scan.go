package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jingkaihe/skillgate/pkg/cache"
	"github.com/jingkaihe/skillgate/pkg/classifier"
	"github.com/jingkaihe/skillgate/pkg/config"
	"github.com/jingkaihe/skillgate/pkg/gate"
	"github.com/jingkaihe/skillgate/pkg/github"
	"github.com/jingkaihe/skillgate/pkg/ignore"
	"github.com/jingkaihe/skillgate/pkg/logger"
	"github.com/jingkaihe/skillgate/pkg/presenter"
	"github.com/jingkaihe/skillgate/pkg/skills"
	"github.com/jingkaihe/skillgate/pkg/telemetry"
	"github.com/jingkaihe/skillgate/pkg/version"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan skill files and fail on HIGH severity findings",
	Long: `Scan classifies every changed skill file, prints the report, posts it to the
pull request when running in a pull_request workflow, and exits 1 when any
file is HIGH severity or the classifier fails.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		cfg, err := loadConfig()
		if err != nil {
			presenter.Error(err, "Invalid configuration")
			os.Exit(1)
		}

		shutdown, err := telemetry.InitTracer(ctx, cfg.Tracing, version.Version)
		if err != nil {
			presenter.Error(err, "Failed to initialize tracing")
			os.Exit(1)
		}

		passed, err := runScan(ctx, cfg, github.NewNotifier())
		if shutdownErr := shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
			logger.G(ctx).WithError(shutdownErr).Warn("failed to flush traces")
		}
		if err != nil {
			presenter.Error(err, "Scan failed")
			os.Exit(1)
		}
		if !passed {
			os.Exit(1)
		}
	},
}

func init() {
	scanCmd.Flags().String("report-file", "", "also write the report markdown to this file")
	bindFlags(scanCmd.Flags(), map[string]string{"report_file": "report-file"})
}

// runScan performs one gate run and reports whether it passed.
func runScan(ctx context.Context, cfg config.Config, notifier gate.Notifier) (bool, error) {
	g, closer, err := buildGate(ctx, cfg, notifier)
	if err != nil {
		return false, err
	}
	defer closer()

	result, err := g.Run(ctx)
	if err != nil {
		return false, err
	}
	return result.Passed, nil
}

// buildGate assembles a gate from cfg. The returned func releases the cache.
func buildGate(ctx context.Context, cfg config.Config, notifier gate.Notifier) (*gate.Gate, func(), error) {
	source, err := skills.NewStore(skills.WithDir(cfg.SkillsDir), skills.WithPattern(cfg.Pattern))
	if err != nil {
		return nil, nil, err
	}

	rules, err := ignore.Load(cfg.IgnoreFile)
	if err != nil {
		return nil, nil, err
	}
	logger.G(ctx).WithField("rules", rules.Len()).WithField("suppress", cfg.SuppressIgnored).Debug("ignore rules loaded")

	c, err := classifier.New(cfg.Classifier)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to create classifier")
	}

	store, err := cache.NewStore(ctx, cfg.Cache)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open fingerprint cache")
	}
	closer := func() {
		if err := store.Close(); err != nil {
			logger.G(ctx).WithError(err).Warn("failed to close fingerprint cache")
		}
	}

	opts := []gate.Option{
		gate.WithIgnoreRules(rules, cfg.SuppressIgnored),
		gate.WithReportFile(cfg.ReportFile),
	}
	if notifier != nil {
		opts = append(opts, gate.WithNotifier(notifier))
	}

	g, err := gate.New(source, store, c, opts...)
	if err != nil {
		closer()
		return nil, nil, err
	}

	return g, closer, nil
}
