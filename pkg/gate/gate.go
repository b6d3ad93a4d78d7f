// Package gate runs one admission scan over the skills directory: it skips
// files whose fingerprint is cached, classifies the rest one at a time and
// turns the verdicts into a single pass/fail decision plus a report.
package gate

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/jingkaihe/skillgate/pkg/cache"
	"github.com/jingkaihe/skillgate/pkg/classifier"
	"github.com/jingkaihe/skillgate/pkg/fingerprint"
	"github.com/jingkaihe/skillgate/pkg/ignore"
	"github.com/jingkaihe/skillgate/pkg/logger"
	"github.com/jingkaihe/skillgate/pkg/presenter"
	"github.com/jingkaihe/skillgate/pkg/skills"
	"github.com/jingkaihe/skillgate/pkg/telemetry"
	"github.com/jingkaihe/skillgate/pkg/verdict"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// Source lists the candidate files of a scan in a stable order.
type Source interface {
	List(ctx context.Context) ([]*skills.File, error)
}

// Notifier publishes the finalized report. Implementations decide whether
// there is anywhere to publish to.
type Notifier interface {
	Notify(ctx context.Context, report string) error
}

// Result is the outcome of a completed scan.
type Result struct {
	ScanID  string
	Passed  bool
	Report  string
	Summary verdict.Summary
}

// Gate wires the scan pipeline together.
type Gate struct {
	source     Source
	cache      cache.Store
	classifier classifier.Classifier

	rules           *ignore.Rules
	suppressIgnored bool
	notifier        Notifier
	presenter       presenter.Presenter
	reportFile      string
}

// Option configures a Gate.
type Option func(*Gate) error

// WithIgnoreRules sets the ignore rules. They suppress findings only when
// suppress is true.
func WithIgnoreRules(rules *ignore.Rules, suppress bool) Option {
	return func(g *Gate) error {
		g.rules = rules
		g.suppressIgnored = suppress
		return nil
	}
}

// WithNotifier sets where the final report is published.
func WithNotifier(n Notifier) Option {
	return func(g *Gate) error {
		g.notifier = n
		return nil
	}
}

// WithPresenter sets the console presenter.
func WithPresenter(p presenter.Presenter) Option {
	return func(g *Gate) error {
		if p == nil {
			return errors.New("presenter must not be nil")
		}
		g.presenter = p
		return nil
	}
}

// WithReportFile also writes the final report to path.
func WithReportFile(path string) Option {
	return func(g *Gate) error {
		g.reportFile = path
		return nil
	}
}

// New creates a Gate.
func New(source Source, store cache.Store, c classifier.Classifier, opts ...Option) (*Gate, error) {
	if source == nil || store == nil || c == nil {
		return nil, errors.New("source, cache and classifier are required")
	}

	g := &Gate{
		source:     source,
		cache:      store,
		classifier: c,
		presenter:  presenter.Default(),
	}

	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// Run performs one scan. A classifier failure aborts the scan after the
// cache accumulated so far has been saved; the returned error then carries
// both failures if saving also failed.
func (g *Gate) Run(ctx context.Context) (*Result, error) {
	scanID := uuid.NewString()
	ctx = logger.WithFields(ctx, logrus.Fields{"scan_id": scanID})

	var result *Result
	err := telemetry.WithSpan(ctx, "gate.run", func(ctx context.Context) error {
		var err error
		result, err = g.run(ctx, scanID)
		return err
	}, attribute.String("scan.id", scanID), attribute.String("classifier.backend", g.classifier.Name()))

	return result, err
}

func (g *Gate) run(ctx context.Context, scanID string) (*Result, error) {
	log := logger.G(ctx)

	entries, err := g.cache.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load fingerprint cache")
	}
	if entries == nil {
		entries = cache.Entries{}
	}

	files, err := g.source.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		log.Warn("no skill files matched")
	}
	log.WithField("files", len(files)).WithField("cached", len(entries)).Info("scan started")

	agg := verdict.NewAggregator()

	var scanErr error
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			scanErr = errors.Wrap(err, "scan interrupted")
			break
		}
		if err := g.scanFile(ctx, file, entries, agg); err != nil {
			scanErr = err
			break
		}
	}

	// the cache is persisted even when the scan was aborted
	if err := g.cache.Save(context.WithoutCancel(ctx), entries); err != nil {
		err = errors.Wrapf(err, "failed to save fingerprint cache to %s", g.cache.Location())
		if scanErr == nil {
			return nil, err
		}
		scanErr = multierror.Append(scanErr, err)
	}
	if scanErr != nil {
		return nil, scanErr
	}

	report := agg.Finalize()
	result := &Result{
		ScanID:  scanID,
		Passed:  !agg.AnyHigh(),
		Report:  report,
		Summary: agg.Summary(),
	}

	telemetry.SetAttributes(ctx,
		attribute.Bool("scan.passed", result.Passed),
		attribute.Int("scan.files", result.Summary.Files),
		attribute.Int("scan.skipped", result.Summary.Skipped),
		attribute.Int("scan.high", result.Summary.High),
	)
	log.WithField("summary", result.Summary.String()).WithField("passed", result.Passed).Info("scan finished")

	if g.notifier != nil {
		if err := g.notifier.Notify(ctx, report); err != nil {
			log.WithError(err).Warn("failed to publish scan report")
		}
	}

	g.presenter.Report(report)

	if g.reportFile != "" {
		if err := writeReport(g.reportFile, report); err != nil {
			return result, err
		}
	}

	return result, nil
}

func (g *Gate) scanFile(ctx context.Context, file *skills.File, entries cache.Entries, agg *verdict.Aggregator) error {
	ctx = logger.WithFields(ctx, logrus.Fields{"path": file.Path})
	log := logger.G(ctx)

	g.presenter.Reading(file.Label())

	fp := fingerprint.OfString(file.Content)
	if entries.IsUnchanged(file.Path, fp) {
		agg.Skip(file.Path)
		g.presenter.Skipped(file.Path)
		telemetry.AddEvent(ctx, "skill.skipped", attribute.String("skill.path", file.Path))
		log.Debug("unchanged since last scan, skipping")
		return nil
	}

	var raw string
	err := telemetry.WithSpan(ctx, "gate.classify", func(ctx context.Context) error {
		var err error
		raw, err = g.classifier.Classify(ctx, file.Content)
		if err != nil {
			return err
		}
		telemetry.SetAttributes(ctx, attribute.String("skill.severity", verdict.ParseSeverity(raw).String()))
		return nil
	}, attribute.String("skill.path", file.Path), attribute.String("skill.fingerprint", fp))
	if err != nil {
		return errors.Wrapf(err, "failed to classify %s", file.Path)
	}

	entries[file.Path] = fp

	v := g.record(agg, file, raw)
	g.presenter.FileVerdict(v)
	log.WithField("severity", v.Severity.String()).WithField("suppressed", v.Suppressed()).Info("file classified")

	return nil
}

func (g *Gate) record(agg *verdict.Aggregator, file *skills.File, raw string) verdict.Verdict {
	if g.suppressIgnored && verdict.ParseSeverity(raw).AtLeast(verdict.SeverityLow) {
		if pattern, ok := g.rules.Match(file.Content, raw); ok {
			return agg.Suppress(file.Path, raw, pattern)
		}
	}
	return agg.Record(file.Path, raw)
}

func writeReport(path, report string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create report directory %s", dir)
		}
	}
	if err := os.WriteFile(path, []byte(report+"\n"), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write report to %s", path)
	}
	return nil
}
