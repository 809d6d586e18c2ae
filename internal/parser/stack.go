package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"ctr/internal/domain"
)

// Frames from these packages belong to the harness or the runtime and are
// dropped from stored stack traces.
var ignoredFramePrefixes = []string{
	"runtime.",
	"runtime/debug.",
	"reflect.",
	"ctr/internal/execution.",
	"github.com/traefik/yaegi/",
}

// StackParser builds failure details from outcomes and goroutine stacks
type StackParser struct{}

// NewStackParser creates a new StackParser
func NewStackParser() *StackParser {
	return &StackParser{}
}

// Failures returns details for every result that did not pass
func (p *StackParser) Failures(results []domain.TestResult) []domain.TestFailure {
	var failures []domain.TestFailure
	for _, result := range results {
		if !result.Outcome.Passed() {
			failures = append(failures, p.ParseFailure(result))
		}
	}
	return failures
}

// ParseFailure converts a failed or errored result into a TestFailure
func (p *StackParser) ParseFailure(result domain.TestResult) domain.TestFailure {
	failure := domain.TestFailure{
		TestName:   string(result.ID),
		Definition: result.ID.Definition(),
		Status:     result.Outcome.Status.String(),
		StackTrace: []string{},
	}

	cause := result.Outcome.Cause
	switch {
	case result.Outcome.Status == domain.StatusFailed:
		failure.Message = "returned false"
	case cause != nil:
		failure.Message = cause.Error()
		failure.ErrorDetails = describeCause(cause)
	default:
		failure.Message = result.Outcome.Status.String()
	}

	frames := p.Frames(result.Outcome.Stack)
	for _, f := range frames {
		failure.StackTrace = append(failure.StackTrace, f.String())
	}
	if len(frames) > 0 {
		failure.File = frames[0].File
		failure.Line = frames[0].Line
	}

	return failure
}

// Frame is one call site of a goroutine stack
type Frame struct {
	Function string
	File     string
	Line     int
}

func (f Frame) String() string {
	return fmt.Sprintf("%s:%d %s", f.File, f.Line, f.Function)
}

var storedFrame = regexp.MustCompile(`^(.*):(\d+) (.*)$`)

// ParseFrame reads back a frame stored in its String form
func ParseFrame(s string) (Frame, bool) {
	m := storedFrame.FindStringSubmatch(s)
	if m == nil {
		return Frame{}, false
	}
	line, err := strconv.Atoi(m[2])
	if err != nil {
		return Frame{}, false
	}
	return Frame{Function: m[3], File: m[1], Line: line}, true
}

// Frames parses a runtime/debug.Stack dump. Only frames below the panic call
// are kept, minus runtime, reflection and harness frames.
func (p *StackParser) Frames(stack []byte) []Frame {
	if len(stack) == 0 {
		return nil
	}

	lines := strings.Split(strings.TrimSpace(string(stack)), "\n")
	// Skip the "goroutine N [running]:" header
	if len(lines) > 0 && strings.HasPrefix(lines[0], "goroutine ") {
		lines = lines[1:]
	}

	var all []Frame
	panicIndex := -1
	for i := 0; i+1 < len(lines); i += 2 {
		function := strings.TrimSpace(lines[i])
		location := strings.TrimSpace(lines[i+1])
		if strings.HasPrefix(function, "panic(") {
			panicIndex = len(all)
		}
		file, line := parseLocation(location)
		all = append(all, Frame{Function: function, File: file, Line: line})
	}

	if panicIndex >= 0 {
		all = all[panicIndex+1:]
	}

	var frames []Frame
	for _, f := range all {
		if ignoredFrame(f.Function) {
			continue
		}
		frames = append(frames, f)
	}
	return frames
}

func ignoredFrame(function string) bool {
	for _, prefix := range ignoredFramePrefixes {
		if strings.HasPrefix(function, prefix) {
			return true
		}
	}
	return false
}

// parseLocation splits "/path/file.go:42 +0x1d" into path and line
func parseLocation(location string) (string, int) {
	if i := strings.LastIndex(location, " +0x"); i >= 0 {
		location = location[:i]
	}
	i := strings.LastIndex(location, ":")
	if i < 0 {
		return location, 0
	}
	line, err := strconv.Atoi(location[i+1:])
	if err != nil {
		return location, 0
	}
	return location[:i], line
}

func describeCause(cause error) string {
	var chain []string
	for err := cause; err != nil; err = errors.Unwrap(err) {
		chain = append(chain, fmt.Sprintf("%T: %v", err, err))
	}
	return strings.Join(chain, "\n")
}
