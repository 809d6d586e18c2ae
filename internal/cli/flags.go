package cli

import "ctr/internal/config"

// Flags holds command-line flags
type Flags struct {
	TestPath      string
	NameFilter    string
	Prefix        string
	ReturnOnError bool
	OnlyFailed    bool
	Progress      bool
	OpenFaills    bool
	MetricsFile   string
	Store         string
	Verbose       bool
	Warnings      bool
}

// ToConfigFlags converts CLI flags to config flags
func (f *Flags) ToConfigFlags() config.Flags {
	return config.Flags{
		TestPath:      f.TestPath,
		NameFilter:    f.NameFilter,
		Prefix:        f.Prefix,
		ReturnOnError: f.ReturnOnError,
		OnlyFailed:    f.OnlyFailed,
		Progress:      f.Progress,
		OpenFaills:    f.OpenFaills,
		MetricsFile:   f.MetricsFile,
		Store:         f.Store,
		Verbose:       f.Verbose,
		Warnings:      f.Warnings,
	}
}
