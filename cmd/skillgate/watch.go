package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/jingkaihe/skillgate/pkg/config"
	"github.com/jingkaihe/skillgate/pkg/logger"
	"github.com/jingkaihe/skillgate/pkg/presenter"
	"github.com/jingkaihe/skillgate/pkg/telemetry"
	"github.com/jingkaihe/skillgate/pkg/version"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const defaultDebounce = 500 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-scan skill files whenever they change",
	Long: `Watch runs a scan immediately and again each time matching files in the
skills directory settle after a change. Results are printed but never posted to
a pull request, and the command keeps running until interrupted.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		cfg, err := loadConfig()
		if err != nil {
			presenter.Error(err, "Invalid configuration")
			os.Exit(1)
		}

		debounce, _ := cmd.Flags().GetDuration("debounce")
		if debounce < 0 {
			presenter.Error(errors.Errorf("debounce cannot be negative: %s", debounce), "Invalid configuration")
			os.Exit(1)
		}

		shutdown, err := telemetry.InitTracer(ctx, cfg.Tracing, version.Version)
		if err != nil {
			presenter.Error(err, "Failed to initialize tracing")
			os.Exit(1)
		}
		defer shutdown(context.WithoutCancel(ctx))

		if err := runWatch(ctx, cfg, debounce); err != nil {
			presenter.Error(err, "Watch failed")
			os.Exit(1)
		}
	},
}

func init() {
	watchCmd.Flags().Duration("debounce", defaultDebounce, "quiet period after the last change before re-scanning")
}

func runWatch(ctx context.Context, cfg config.Config, debounce time.Duration) error {
	g, closer, err := buildGate(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer closer()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	defer watcher.Close()

	if err := watcher.Add(cfg.SkillsDir); err != nil {
		return errors.Wrapf(err, "failed to watch %s", cfg.SkillsDir)
	}

	scan := func(ctx context.Context) {
		result, err := g.Run(ctx)
		switch {
		case err != nil:
			presenter.Error(err, "Scan failed")
		case result.Passed:
			presenter.Success(result.Summary.String())
		default:
			presenter.Warning(result.Summary.String())
		}
	}

	scan(ctx)
	presenter.Info(fmt.Sprintf("Watching %s for changes... Press Ctrl+C to stop", cfg.SkillsDir))

	watchLoop(ctx, watcher, patternMatcher(cfg.Pattern), debounce, scan)
	return nil
}

func patternMatcher(pattern string) func(string) bool {
	return func(path string) bool {
		matched, err := doublestar.Match(pattern, filepath.Base(path))
		return err == nil && matched
	}
}

// watchLoop calls scan once the matching events have been quiet for delay.
// Scans never overlap: events arriving during a scan are picked up by the
// next one.
func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, match func(string) bool, delay time.Duration, scan func(context.Context)) {
	log := logger.G(ctx)

	timer := time.NewTimer(delay)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 || !match(event.Name) {
				continue
			}
			log.WithField("file", event.Name).WithField("operation", event.Op.String()).Debug("skill file changed")
			timer.Reset(delay)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.WithError(err).Error("error watching skill files")
		case <-timer.C:
			scan(ctx)
		case <-ctx.Done():
			return
		}
	}
}
