package ui

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"ctr/internal/domain"
)

// Formatter formats and displays stored runs and test listings
type Formatter struct {
	out io.Writer
}

// NewFormatter creates a new Formatter
func NewFormatter(out io.Writer) *Formatter {
	return &Formatter{out: out}
}

// ListedDefinition is one definition with the tests discovered on it
type ListedDefinition struct {
	Name     string
	Tests    []domain.TestID
	Warnings []domain.Warning
}

// PrintStats displays the statistics of a stored run followed by a tree
// of its failures.
func (f *Formatter) PrintStats(record *domain.RunRecord) {
	meta := record.Meta

	t := table.NewWriter()
	t.SetOutputMirror(f.out)
	t.SetTitle("Test Execution Statistics")
	t.SetStyle(table.StyleRounded)
	t.AppendRows([]table.Row{
		{"Run ID", meta.RunID},
		{"Root", meta.Root},
		{"Successful", meta.Successful},
		{"Failed", meta.Failed},
		{"Skipped", meta.Skipped},
		{"Warnings", meta.Warnings},
		{"Aborted", meta.Aborted},
		{"Duration", fmt.Sprintf("%.2fs", meta.DurationSeconds)},
		{"Timestamp", meta.Timestamp},
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Colors: text.Colors{text.FgCyan}},
	})
	t.Render()

	fmt.Fprintln(f.out)
	if meta.Failed == 0 && !meta.Aborted {
		fmt.Fprintln(f.out, color.GreenString("✓ All tests passed!"))
		return
	}
	if meta.Aborted {
		fmt.Fprintln(f.out, color.YellowString("Run was aborted before every test ran"))
	}
	if meta.Failed > 0 {
		fmt.Fprintln(f.out, color.RedString("✗ %d test(s) failed", meta.Failed))
		fmt.Fprintln(f.out)
		f.printFailedTestsTree(record.Details)
	}
}

// TreeNode represents a namespace or definition in the failure tree
type TreeNode struct {
	Name     string
	Children map[string]*TreeNode
	Failures []domain.TestFailure
}

func newTreeNode(name string) *TreeNode {
	return &TreeNode{Name: name, Children: make(map[string]*TreeNode)}
}

// printFailedTestsTree prints failures grouped by namespace and definition
func (f *Formatter) printFailedTestsTree(failures []domain.TestFailure) {
	if len(failures) == 0 {
		return
	}

	root := newTreeNode("")
	for _, failure := range failures {
		definition := failure.Definition
		if definition == "" {
			definition = domain.TestID(failure.TestName).Definition()
		}

		current := root
		for _, part := range strings.Split(definition, ".") {
			if part == "" {
				continue
			}
			if current.Children[part] == nil {
				current.Children[part] = newTreeNode(part)
			}
			current = current.Children[part]
		}
		current.Failures = append(current.Failures, failure)
	}

	f.printTreeNode(root, "")
}

func (f *Formatter) printTreeNode(node *TreeNode, prefix string) {
	keys := make([]string, 0, len(node.Children))
	for key := range node.Children {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	entries := len(keys) + len(node.Failures)
	i := 0
	for _, key := range keys {
		child := node.Children[key]
		i++
		connector, indent := branch(prefix, i == entries)
		if len(child.Failures) > 0 {
			fmt.Fprintln(f.out, connector+color.YellowString("%s", child.Name))
		} else {
			fmt.Fprintln(f.out, connector+color.CyanString("%s", child.Name))
		}
		f.printTreeNode(child, indent)
	}
	for _, failure := range node.Failures {
		i++
		connector, _ := branch(prefix, i == entries)
		line := color.RedString("%s", domain.TestID(failure.TestName).Method())
		if failure.Status != "" {
			line += " " + color.HiBlackString("(%s)", failure.Status)
		}
		if failure.Resolved {
			line += " " + color.GreenString("✓ resolved")
		}
		fmt.Fprintln(f.out, connector+line)
	}
}

// branch returns the connector for an entry and the prefix for its children
func branch(prefix string, last bool) (string, string) {
	if last {
		return prefix + "└── ", prefix + "    "
	}
	return prefix + "├── ", prefix + "│   "
}

// PrintTestList prints every definition with its tests. Tests in failed are
// marked with [F]; discovery warnings are shown when showWarnings is set.
func (f *Formatter) PrintTestList(defs []ListedDefinition, failed domain.TestSet, showWarnings bool) {
	total := 0
	for _, def := range defs {
		total += len(def.Tests)
	}
	fmt.Fprintln(f.out, color.GreenString("Found %d test(s) in %d definition(s):\n", total, len(defs)))

	for i, def := range defs {
		connector, indent := branch("", i == len(defs)-1)
		fmt.Fprintln(f.out, connector+color.CyanString("%s", def.Name))

		var lines []string
		for _, id := range def.Tests {
			line := color.YellowString("%s", id.Method())
			if failed.Has(id) {
				line += " " + color.RedString("[F]")
			}
			lines = append(lines, line)
		}
		if showWarnings {
			for _, w := range def.Warnings {
				lines = append(lines, color.HiBlackString("%s %s", w.ID.Method(), w.Reason))
			}
		}
		if len(lines) == 0 {
			lines = append(lines, color.RedString("(no tests found)"))
		}

		for j, line := range lines {
			c, _ := branch(indent, j == len(lines)-1)
			fmt.Fprintln(f.out, c+line)
		}
	}
}
