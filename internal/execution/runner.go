package execution

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ctr/internal/discovery"
	"ctr/internal/domain"
	"ctr/internal/logging"
)

// Reporter receives run events as they happen
type Reporter interface {
	TestStarted(id domain.TestID)
	TestFinished(id domain.TestID, outcome domain.Outcome)
	TestSkipped(id domain.TestID)
	Warning(w domain.Warning)
	Summary(summary *domain.RunSummary)
}

// Recorder receives metrics for a run
type Recorder interface {
	ObserveOutcome(outcome domain.Outcome)
	ObserveWarning()
	ObserveRun(summary *domain.RunSummary)
}

// Options controls a single run
type Options struct {
	// Root labels the run in summaries and storage
	Root string
	// ReturnOnError stops the whole run at the first errored test
	ReturnOnError bool
	// Exclude holds ids that already succeeded; they are not invoked
	Exclude domain.TestSet
	// NameFilter limits the run to matching test ids
	NameFilter string
}

// Runner walks a namespace tree and executes every discovered test in order
type Runner struct {
	discoverer *discovery.Discoverer
	filter     *discovery.Filter
	executor   Executor
	reporter   Reporter
	recorder   Recorder
	logger     *zap.Logger
}

// NewRunner creates a new Runner
func NewRunner(discoverer *discovery.Discoverer, filter *discovery.Filter, executor Executor, reporter Reporter, logger *zap.Logger) *Runner {
	return &Runner{
		discoverer: discoverer,
		filter:     filter,
		executor:   executor,
		reporter:   reporter,
		logger:     logging.OrNop(logger),
	}
}

// SetReporter replaces the reporting sink
func (r *Runner) SetReporter(reporter Reporter) {
	r.reporter = reporter
}

// SetRecorder sets the metrics recorder for the runner
func (r *Runner) SetRecorder(recorder Recorder) {
	r.recorder = recorder
}

// runState is owned by a single Run call
type runState struct {
	opts      Options
	successes int
	failures  int
	skipped   int
	succeeded domain.TestSet
	seen      domain.TestSet
	aborted   bool
	warnings  []domain.Warning
	results   []domain.TestResult
}

// Run executes every test under root. The returned summary is never nil,
// including when a discovery error stopped the run; that error is returned
// alongside it.
func (r *Runner) Run(ctx context.Context, root discovery.Namespace, opts Options) (*domain.RunSummary, error) {
	start := time.Now()
	st := &runState{
		opts:      opts,
		succeeded: opts.Exclude.Clone(),
		seen:      domain.TestSet{},
	}

	r.logger.Debug("run started",
		zap.String("root", opts.Root),
		zap.Bool("return_on_error", opts.ReturnOnError),
		zap.Int("excluded", len(st.succeeded)))

	err := discovery.Walk(ctx, root, func(qualified string, def domain.Definition) error {
		return r.runDefinition(ctx, qualified, def, st)
	})
	if err != nil {
		st.aborted = true
		var de *discovery.Error
		if errors.As(err, &de) {
			r.logger.Error("discovery failed", zap.String("namespace", de.Namespace), zap.Error(de.Err))
		}
	}

	summary := &domain.RunSummary{
		RunID:     uuid.NewString(),
		Root:      opts.Root,
		Successes: st.successes,
		Failures:  st.failures,
		Skipped:   st.skipped,
		Aborted:   st.aborted,
		Warnings:  st.warnings,
		Results:   st.results,
		Succeeded: st.succeeded,
		Duration:  time.Since(start),
	}

	if r.reporter != nil {
		r.reporter.Summary(summary)
	}
	if r.recorder != nil {
		r.recorder.ObserveRun(summary)
	}

	r.logger.Debug("run finished",
		zap.String("run_id", summary.RunID),
		zap.Int("successes", summary.Successes),
		zap.Int("failures", summary.Failures),
		zap.Int("skipped", summary.Skipped),
		zap.Bool("aborted", summary.Aborted))

	return summary, err
}

func (r *Runner) runDefinition(ctx context.Context, qualified string, def domain.Definition, st *runState) error {
	tests, warnings := r.discoverer.Discover(qualified, def)
	for _, w := range warnings {
		r.warn(st, w)
	}

	for _, test := range tests {
		if st.aborted {
			return discovery.SkipAll
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !r.filter.Match(string(test.ID), st.opts.NameFilter) {
			continue
		}
		if st.seen.Has(test.ID) {
			r.warn(st, domain.Warning{ID: test.ID, Reason: "is declared more than once"})
			continue
		}
		st.seen.Add(test.ID)

		if st.succeeded.Has(test.ID) {
			st.skipped++
			r.logger.Debug("skipping test that already succeeded", zap.String("test", string(test.ID)))
			if r.reporter != nil {
				r.reporter.TestSkipped(test.ID)
			}
			continue
		}

		r.execute(test, st)
	}

	if st.aborted {
		return discovery.SkipAll
	}
	return nil
}

func (r *Runner) execute(test domain.Test, st *runState) {
	if r.reporter != nil {
		r.reporter.TestStarted(test.ID)
	}

	outcome := r.executor.Execute(test)

	if outcome.Passed() {
		st.successes++
		st.succeeded.Add(test.ID)
	} else {
		st.failures++
	}
	st.results = append(st.results, domain.TestResult{ID: test.ID, Outcome: outcome})

	if r.reporter != nil {
		r.reporter.TestFinished(test.ID, outcome)
	}
	if r.recorder != nil {
		r.recorder.ObserveOutcome(outcome)
	}

	if outcome.Status == domain.StatusErrored && st.opts.ReturnOnError {
		r.logger.Debug("aborting run after errored test", zap.String("test", string(test.ID)), zap.Error(outcome.Cause))
		st.aborted = true
	}
}

func (r *Runner) warn(st *runState, w domain.Warning) {
	st.warnings = append(st.warnings, w)
	if r.reporter != nil {
		r.reporter.Warning(w)
	}
	if r.recorder != nil {
		r.recorder.ObserveWarning()
	}
}
