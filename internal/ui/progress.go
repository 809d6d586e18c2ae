package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"ctr/internal/domain"
)

// ProgressReporter shows a spinner naming the running test and prints
// failures and the summary once the run is over.
type ProgressReporter struct {
	bar       *progressbar.ProgressBar
	out       io.Writer
	console   *ConsoleReporter
	successes int
	failures  int
	failed    []domain.TestResult
	warnings  []domain.Warning
}

// NewProgressReporter creates a new ProgressReporter writing to out
func NewProgressReporter(out io.Writer) *ProgressReporter {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(describe("", 0, 0)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowCount(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(out),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(out, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)

	return &ProgressReporter{
		bar:     bar,
		out:     out,
		console: NewConsoleReporter(out),
	}
}

func describe(current domain.TestID, successCount, failCount int) string {
	return color.CyanString("Running tests: ") +
		color.GreenString("[success: %d", successCount) +
		" | " +
		color.RedString("failed: %d]", failCount) +
		" " + string(current)
}

func (p *ProgressReporter) TestStarted(id domain.TestID) {
	p.bar.Describe(describe(id, p.successes, p.failures))
}

func (p *ProgressReporter) TestFinished(id domain.TestID, outcome domain.Outcome) {
	if outcome.Passed() {
		p.successes++
	} else {
		p.failures++
		p.failed = append(p.failed, domain.TestResult{ID: id, Outcome: outcome})
	}
	p.bar.Describe(describe(id, p.successes, p.failures))
	_ = p.bar.Add(1)
}

func (p *ProgressReporter) TestSkipped(domain.TestID) {}

func (p *ProgressReporter) Warning(w domain.Warning) {
	p.warnings = append(p.warnings, w)
}

func (p *ProgressReporter) Summary(summary *domain.RunSummary) {
	p.bar.Describe(describe("", p.successes, p.failures))
	_ = p.bar.Finish()

	for _, w := range p.warnings {
		p.console.Warning(w)
	}
	for _, result := range p.failed {
		p.console.PrintFailure(result)
	}
	p.console.Summary(summary)
}
