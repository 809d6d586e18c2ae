package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"ctr/internal/domain"
	"ctr/internal/parser"
)

// maxFaultFrames caps the stack frames printed for an errored test
const maxFaultFrames = 10

// ConsoleReporter prints one line per test and a summary at the end
type ConsoleReporter struct {
	out         io.Writer
	stacks      *parser.StackParser
	showSkipped bool
}

// NewConsoleReporter creates a ConsoleReporter writing to out
func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: out, stacks: parser.NewStackParser()}
}

// ShowSkipped makes the reporter print tests skipped because they already succeeded
func (r *ConsoleReporter) ShowSkipped(show bool) {
	r.showSkipped = show
}

func (r *ConsoleReporter) TestStarted(id domain.TestID) {
	fmt.Fprintf(r.out, "running %s... ", id)
}

func (r *ConsoleReporter) TestFinished(id domain.TestID, outcome domain.Outcome) {
	switch outcome.Status {
	case domain.StatusPassed:
		fmt.Fprintln(r.out, color.GreenString("succeeded"))
	case domain.StatusFailed:
		fmt.Fprintln(r.out, color.RedString("failed"))
	default:
		fmt.Fprintln(r.out, color.RedString("errored"))
		r.printFault(outcome)
	}
}

func (r *ConsoleReporter) TestSkipped(id domain.TestID) {
	if r.showSkipped {
		fmt.Fprintln(r.out, color.HiBlackString("skipping %s (already succeeded)", id))
	}
}

func (r *ConsoleReporter) Warning(w domain.Warning) {
	fmt.Fprintln(r.out, color.YellowString("warning: %s", w))
}

func (r *ConsoleReporter) Summary(summary *domain.RunSummary) {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, color.GreenString("Successful: %d", summary.Successes))
	fmt.Fprintln(r.out, color.RedString("Failed: %d", summary.Failures))
	if summary.Skipped > 0 {
		fmt.Fprintln(r.out, color.CyanString("Skipped: %d (already succeeded)", summary.Skipped))
	}
	if summary.Aborted {
		fmt.Fprintln(r.out, color.YellowString("Run aborted, remaining tests were not run"))
	}
}

// PrintFailure writes a failed or errored result on its own line
func (r *ConsoleReporter) PrintFailure(result domain.TestResult) {
	fmt.Fprintf(r.out, "%s %s\n", color.RedString("✗ %s", result.Outcome.Status), result.ID)
	if result.Outcome.Status == domain.StatusErrored {
		r.printFault(result.Outcome)
	}
}

// printFault writes the cause and the test's own stack frames
func (r *ConsoleReporter) printFault(outcome domain.Outcome) {
	if outcome.Cause != nil {
		fmt.Fprintf(r.out, "    %v\n", outcome.Cause)
	}
	frames := r.stacks.Frames(outcome.Stack)
	for i, f := range frames {
		if i == maxFaultFrames {
			fmt.Fprintf(r.out, "      ... and %d more frames\n", len(frames)-maxFaultFrames)
			break
		}
		fmt.Fprintf(r.out, "      at %s\n", f)
	}
}
