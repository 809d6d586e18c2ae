package commands

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ctr/internal/config"
	"ctr/internal/discovery"
	"ctr/internal/domain"
	"ctr/internal/storage"
	"ctr/internal/ui"
)

// ListCommand handles the list command
type ListCommand struct {
	config     *config.Config
	scanner    *discovery.Scanner
	discoverer *discovery.Discoverer
	filter     *discovery.Filter
	formatter  *ui.Formatter
	storage    storage.Storage
}

// NewListCommand creates a new ListCommand
func NewListCommand(
	cfg *config.Config,
	scanner *discovery.Scanner,
	discoverer *discovery.Discoverer,
	filter *discovery.Filter,
	formatter *ui.Formatter,
	st storage.Storage,
) *ListCommand {
	return &ListCommand{
		config:     cfg,
		scanner:    scanner,
		discoverer: discoverer,
		filter:     filter,
		formatter:  formatter,
		storage:    st,
	}
}

// Execute runs the command
func (lc *ListCommand) Execute(cmd *cobra.Command, args []string) error {
	root, err := lc.scanner.Scan(lc.config.GetTestPath())
	if err != nil {
		return err
	}

	pattern := lc.config.Flags.NameFilter
	var defs []ui.ListedDefinition
	err = discovery.Walk(cmd.Context(), root, func(qualified string, def domain.Definition) error {
		tests, warnings := lc.discoverer.Discover(qualified, def)
		listed := ui.ListedDefinition{Name: qualified, Warnings: warnings}
		for _, test := range tests {
			if lc.filter.Match(string(test.ID), pattern) {
				listed.Tests = append(listed.Tests, test.ID)
			}
		}
		if pattern != "" && len(listed.Tests) == 0 {
			return nil
		}
		defs = append(defs, listed)
		return nil
	})
	if err != nil {
		return err
	}

	if len(defs) == 0 {
		color.Yellow("No tests found")
		return nil
	}

	lc.formatter.PrintTestList(defs, lc.lastFailed(), lc.config.Flags.Warnings)
	return nil
}

// lastFailed returns the tests recorded as failed in the stored run that
// have not succeeded since.
func (lc *ListCommand) lastFailed() domain.TestSet {
	record, err := lc.storage.Load()
	if err != nil {
		return nil
	}
	succeeded := record.SucceededSet()
	failed := domain.TestSet{}
	for id := range record.FailedSet() {
		if !succeeded.Has(id) {
			failed.Add(id)
		}
	}
	return failed
}
