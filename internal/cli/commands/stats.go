package commands

import (
	"github.com/spf13/cobra"

	"ctr/internal/storage"
	"ctr/internal/ui"
)

// StatsCommand prints the statistics of the stored run
type StatsCommand struct {
	storage   storage.Storage
	formatter *ui.Formatter
}

// NewStatsCommand creates a new StatsCommand
func NewStatsCommand(st storage.Storage, formatter *ui.Formatter) *StatsCommand {
	return &StatsCommand{storage: st, formatter: formatter}
}

// Execute runs the command
func (sc *StatsCommand) Execute(cmd *cobra.Command, args []string) error {
	record, err := sc.storage.Load()
	if err != nil {
		return err
	}
	sc.formatter.PrintStats(record)
	return nil
}
