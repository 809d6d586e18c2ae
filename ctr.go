// Package ctr runs convention-based tests: every method whose name starts
// with "test_" on every definition below a root namespace is invoked, and
// the ids of the tests that succeeded are returned so a later run can skip
// them.
package ctr

import (
	"context"
	"os"

	"ctr/internal/config"
	"ctr/internal/discovery"
	"ctr/internal/domain"
	"ctr/internal/execution"
	"ctr/internal/ui"
)

type (
	// Namespace is a node of the tree that holds definitions
	Namespace = discovery.Namespace
	// Registry is an in-memory namespace tree
	Registry = discovery.Registry
	// Definition is a named collection of methods
	Definition = domain.Definition
	// TestSet is a set of test ids in "Definition.method" form
	TestSet = domain.TestSet
	// TestID identifies a single test
	TestID = domain.TestID
	// DiscoveryError reports a namespace that could not be inspected
	DiscoveryError = discovery.Error
)

// ErrNoRoot is returned by RunClassTests when root is nil
var ErrNoRoot = discovery.ErrNoRoot

// NewRegistry returns an empty in-memory namespace tree
func NewRegistry() *Registry {
	return discovery.NewRegistry()
}

// Method declares a method of a registry definition
func Method(name string, body any) domain.Method {
	return discovery.Method(name, body)
}

// Suite builds a definition from the exported methods of v
func Suite(name string, v any) Definition {
	return discovery.Suite(name, v)
}

// Dir returns the namespace tree of the Go source files under path
func Dir(path string) (Namespace, error) {
	return discovery.NewScanner(config.DefaultPathsToIgnore, nil).Scan(path)
}

// NewTestSet returns a set holding ids
func NewTestSet(ids ...TestID) TestSet {
	return domain.NewTestSet(ids...)
}

// RunClassTests runs every test under root that is not in exclude and
// reports progress and the summary on stdout. It returns the ids that have
// succeeded, exclude included; exclude itself is not modified. With
// returnOnError the run stops at the first test that errors. A discovery
// error is returned together with the ids that succeeded before it.
func RunClassTests(root Namespace, returnOnError bool, exclude TestSet) (TestSet, error) {
	if root == nil {
		return exclude.Clone(), ErrNoRoot
	}

	runner := execution.NewRunner(
		discovery.NewDiscoverer(config.DefaultPrefix, nil),
		discovery.NewFilter(),
		execution.NewInvoker(),
		ui.NewConsoleReporter(os.Stdout),
		nil,
	)

	summary, err := runner.Run(context.Background(), root, execution.Options{
		ReturnOnError: returnOnError,
		Exclude:       exclude,
	})
	return summary.Succeeded, err
}
