package execution

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctr/internal/discovery"
	"ctr/internal/domain"
)

// recordingReporter captures every event of a run
type recordingReporter struct {
	started   []domain.TestID
	finished  map[domain.TestID]domain.Outcome
	skipped   []domain.TestID
	warnings  []domain.Warning
	summaries []*domain.RunSummary
}

func newRecordingReporter() *recordingReporter {
	return &recordingReporter{finished: map[domain.TestID]domain.Outcome{}}
}

func (r *recordingReporter) TestStarted(id domain.TestID) { r.started = append(r.started, id) }

func (r *recordingReporter) TestFinished(id domain.TestID, outcome domain.Outcome) {
	r.finished[id] = outcome
}

func (r *recordingReporter) TestSkipped(id domain.TestID) { r.skipped = append(r.skipped, id) }
func (r *recordingReporter) Warning(w domain.Warning)     { r.warnings = append(r.warnings, w) }

func (r *recordingReporter) Summary(summary *domain.RunSummary) {
	r.summaries = append(r.summaries, summary)
}

type countingRecorder struct {
	outcomes int
	warnings int
	runs     int
}

func (c *countingRecorder) ObserveOutcome(domain.Outcome) { c.outcomes++ }
func (c *countingRecorder) ObserveWarning()               { c.warnings++ }
func (c *countingRecorder) ObserveRun(*domain.RunSummary) { c.runs++ }

func newTestRunner(reporter Reporter) *Runner {
	return NewRunner(discovery.NewDiscoverer("test_", nil), discovery.NewFilter(), NewInvoker(), reporter, nil)
}

// calcRegistry builds the "Calc" definition with one passing test, one
// failing test and one helper
func calcRegistry(helperCalls *int) *discovery.Registry {
	reg := discovery.NewRegistry()
	reg.Define("", "Calc",
		discovery.Method("test_add", func() bool { return 1+1 == 2 }),
		discovery.Method("test_sub", func() bool { return 2-1 == 0 }),
		discovery.Method("helper_mul", func() int { *helperCalls++; return 6 }),
	)
	return reg
}

func TestRunner_EmptyRoot(t *testing.T) {
	rep := newRecordingReporter()
	exclude := domain.NewTestSet("Calc.test_add")

	summary, err := newTestRunner(rep).Run(context.Background(), discovery.NewRegistry().Root(), Options{Exclude: exclude})

	require.NoError(t, err)
	assert.Equal(t, 0, summary.Successes)
	assert.Equal(t, 0, summary.Failures)
	assert.Equal(t, exclude, summary.Succeeded)
	assert.False(t, summary.Aborted)
	assert.Len(t, rep.summaries, 1)
	assert.NotEmpty(t, summary.RunID)
}

func TestRunner_CalcScenario(t *testing.T) {
	helperCalls := 0
	reg := calcRegistry(&helperCalls)
	rep := newRecordingReporter()

	summary, err := newTestRunner(rep).Run(context.Background(), reg.Root(), Options{})

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Successes)
	assert.Equal(t, 1, summary.Failures)
	assert.Equal(t, domain.NewTestSet("Calc.test_add"), summary.Succeeded)
	assert.Equal(t, 0, helperCalls)
	assert.Equal(t, []domain.TestID{"Calc.test_add", "Calc.test_sub"}, rep.started)
	assert.Equal(t, domain.StatusFailed, rep.finished["Calc.test_sub"].Status)
	require.Len(t, rep.summaries, 1)
	assert.Same(t, summary, rep.summaries[0])
}

func TestRunner_ExcludedNeverInvoked(t *testing.T) {
	calls := 0
	reg := discovery.NewRegistry()
	reg.Define("pkg", "Counter",
		discovery.Method("test_count", func() bool { calls++; return true }),
	)
	rep := newRecordingReporter()
	exclude := domain.NewTestSet("pkg.Counter.test_count")

	summary, err := newTestRunner(rep).Run(context.Background(), reg.Root(), Options{Exclude: exclude})

	require.NoError(t, err)
	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, summary.Successes)
	assert.Equal(t, 0, summary.Failures)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, []domain.TestID{"pkg.Counter.test_count"}, rep.skipped)
	assert.True(t, summary.Succeeded.Has("pkg.Counter.test_count"))
}

func TestRunner_ExclusionNotAliased(t *testing.T) {
	helperCalls := 0
	reg := calcRegistry(&helperCalls)
	exclude := domain.NewTestSet("Other.test_x")

	summary, err := newTestRunner(nil).Run(context.Background(), reg.Root(), Options{Exclude: exclude})

	require.NoError(t, err)
	assert.Equal(t, domain.NewTestSet("Other.test_x"), exclude)
	assert.Equal(t, domain.NewTestSet("Other.test_x", "Calc.test_add"), summary.Succeeded)
}

func TestRunner_Idempotent(t *testing.T) {
	calls := 0
	reg := discovery.NewRegistry()
	reg.Define("", "Calc",
		discovery.Method("test_add", func() bool { calls++; return true }),
		discovery.Method("test_sub", func() bool { return false }),
	)
	runner := newTestRunner(nil)

	first, err := runner.Run(context.Background(), reg.Root(), Options{})
	require.NoError(t, err)

	second, err := runner.Run(context.Background(), reg.Root(), Options{Exclude: first.Succeeded})
	require.NoError(t, err)

	assert.Equal(t, first.Succeeded, second.Succeeded)
	assert.Equal(t, 0, second.Successes)
	assert.Equal(t, 1, second.Failures)
	assert.Equal(t, 1, calls)
}

func TestRunner_ReturnOnError(t *testing.T) {
	cCalls := 0
	reg := discovery.NewRegistry()
	reg.Define("", "A", discovery.Method("test_a", func() bool { return true }))
	reg.Define("", "B", discovery.Method("test_b", func() bool { panic("boom") }))
	reg.Define("", "C", discovery.Method("test_c", func() bool { cCalls++; return true }))
	rep := newRecordingReporter()

	summary, err := newTestRunner(rep).Run(context.Background(), reg.Root(), Options{ReturnOnError: true})

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Successes)
	assert.Equal(t, 1, summary.Failures)
	assert.True(t, summary.Aborted)
	assert.Equal(t, 0, cCalls)
	assert.Equal(t, domain.NewTestSet("A.test_a"), summary.Succeeded)
	assert.Len(t, rep.summaries, 1)

	outcome := rep.finished["B.test_b"]
	assert.Equal(t, domain.StatusErrored, outcome.Status)
	var pe *PanicError
	assert.ErrorAs(t, outcome.Cause, &pe)
}

func TestRunner_ReturnOnErrorAcrossNamespaces(t *testing.T) {
	laterCalls := 0
	reg := discovery.NewRegistry()
	reg.Define("a.inner", "Boom", discovery.Method("test_boom", func() error { return errors.New("boom") }))
	reg.Define("a", "Later", discovery.Method("test_later", func() { laterCalls++ }))
	reg.Define("b", "Sibling", discovery.Method("test_sibling", func() { laterCalls++ }))

	summary, err := newTestRunner(nil).Run(context.Background(), reg.Root(), Options{ReturnOnError: true})

	require.NoError(t, err)
	assert.True(t, summary.Aborted)
	assert.Equal(t, 0, laterCalls)
	assert.Equal(t, 1, summary.Failures)
}

func TestRunner_FailedDoesNotAbort(t *testing.T) {
	reg := discovery.NewRegistry()
	reg.Define("", "A", discovery.Method("test_a", func() bool { return false }))
	reg.Define("", "B", discovery.Method("test_b", func() bool { return true }))

	summary, err := newTestRunner(nil).Run(context.Background(), reg.Root(), Options{ReturnOnError: true})

	require.NoError(t, err)
	assert.False(t, summary.Aborted)
	assert.Equal(t, 1, summary.Successes)
	assert.Equal(t, 1, summary.Failures)
}

func TestRunner_ErrorsWithoutReturnOnError(t *testing.T) {
	reg := discovery.NewRegistry()
	reg.Define("", "A", discovery.Method("test_a", func() error { return errors.New("bad") }))
	reg.Define("", "B", discovery.Method("test_b", func() bool { return true }))

	summary, err := newTestRunner(nil).Run(context.Background(), reg.Root(), Options{})

	require.NoError(t, err)
	assert.False(t, summary.Aborted)
	assert.Equal(t, 1, summary.Successes)
	assert.Equal(t, 1, summary.Failures)
	require.Len(t, summary.Results, 2)
	assert.EqualError(t, summary.Results[0].Outcome.Cause, "bad")
}

func TestRunner_InheritedTestRunsOnce(t *testing.T) {
	calls := 0
	reg := discovery.NewRegistry()
	base := reg.Define("", "Base", discovery.Method("test_shared", func() bool { calls++; return true }))
	reg.Extend("", "Derived", base, discovery.Method("test_own", func() bool { return true }))

	summary, err := newTestRunner(nil).Run(context.Background(), reg.Root(), Options{})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, summary.Successes)
	assert.Equal(t, domain.NewTestSet("Base.test_shared", "Derived.test_own"), summary.Succeeded)
}

func TestRunner_NonInvokableWarns(t *testing.T) {
	reg := discovery.NewRegistry()
	reg.Define("", "Calc",
		discovery.Method("test_args", func(int) bool { return true }),
		discovery.InstanceMethod("Calc", "test_scale", nil),
		discovery.Method("test_ok", func() {}),
	)
	rep := newRecordingReporter()
	rec := &countingRecorder{}
	runner := newTestRunner(rep)
	runner.SetRecorder(rec)

	summary, err := runner.Run(context.Background(), reg.Root(), Options{})

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Successes)
	assert.Equal(t, 0, summary.Failures)
	assert.Len(t, summary.Warnings, 2)
	assert.Len(t, rep.warnings, 2)
	assert.Equal(t, []domain.TestID{"Calc.test_ok"}, rep.started)
	assert.Equal(t, 2, rec.warnings)
	assert.Equal(t, 1, rec.outcomes)
	assert.Equal(t, 1, rec.runs)
}

func TestRunner_DuplicateID(t *testing.T) {
	calls := 0
	reg := discovery.NewRegistry()
	reg.Define("", "Calc",
		discovery.Method("test_add", func() { calls++ }),
		discovery.Method("test_add", func() { calls++ }),
	)

	summary, err := newTestRunner(nil).Run(context.Background(), reg.Root(), Options{})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	require.Len(t, summary.Warnings, 1)
	assert.Equal(t, domain.TestID("Calc.test_add"), summary.Warnings[0].ID)
}

func TestRunner_NameFilter(t *testing.T) {
	reg := discovery.NewRegistry()
	reg.Define("billing", "Invoice", discovery.Method("test_total", func() {}))
	reg.Define("users", "Account", discovery.Method("test_login", func() {}))
	rep := newRecordingReporter()

	summary, err := newTestRunner(rep).Run(context.Background(), reg.Root(), Options{NameFilter: "billing.*"})

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Successes)
	assert.Equal(t, []domain.TestID{"billing.Invoice.test_total"}, rep.started)
}

type failingNamespace struct{}

func (failingNamespace) Name() string { return "broken" }
func (failingNamespace) Children() ([]discovery.Namespace, error) {
	return nil, errors.New("permission denied")
}
func (failingNamespace) Definitions() ([]domain.Definition, error) { return nil, nil }

type rootNamespace struct {
	children []discovery.Namespace
	defs     []domain.Definition
}

func (rootNamespace) Name() string                                { return "" }
func (r rootNamespace) Children() ([]discovery.Namespace, error)  { return r.children, nil }
func (r rootNamespace) Definitions() ([]domain.Definition, error) { return r.defs, nil }

func TestRunner_DiscoveryError(t *testing.T) {
	root := rootNamespace{
		children: []discovery.Namespace{failingNamespace{}},
		defs: []domain.Definition{{
			Name:    "Never",
			Methods: []domain.Method{discovery.Method("test_never", func() {})},
		}},
	}
	rep := newRecordingReporter()

	summary, err := newTestRunner(rep).Run(context.Background(), root, Options{})

	var de *discovery.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "broken", de.Namespace)
	require.NotNil(t, summary)
	assert.True(t, summary.Aborted)
	assert.Empty(t, rep.started)
	assert.Len(t, rep.summaries, 1)
}

func TestRunner_CancelledContext(t *testing.T) {
	calls := 0
	reg := discovery.NewRegistry()
	reg.Define("", "Calc", discovery.Method("test_add", func() { calls++ }))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := newTestRunner(nil).Run(ctx, reg.Root(), Options{})

	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, summary.Aborted)
	assert.Equal(t, 0, calls)
}

func TestRunner_SuiteDefinitions(t *testing.T) {
	reg := discovery.NewRegistry()
	s := &calcSuite{}
	reg.Add("math", discovery.Suite("Calc", s))

	summary, err := newTestRunner(nil).Run(context.Background(), reg.Root(), Options{})

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Successes)
	assert.Equal(t, 1, summary.Failures)
	assert.True(t, s.added)
}

type calcSuite struct {
	added bool
}

func (c *calcSuite) Test_Add() bool  { c.added = true; return true }
func (c *calcSuite) Test_Div() error { return errors.New("division by zero") }
