package ui

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"ctr/internal/domain"
	"ctr/internal/logging"
	"ctr/internal/parser"
	"ctr/internal/storage"
)

// Lines of source shown on each side of a selected frame
const excerptRadius = 4

// ErrorViewer browses the failures of a stored run in a terminal UI
type ErrorViewer struct {
	storage storage.Storage
	logger  *zap.Logger
}

// NewErrorViewer creates a new ErrorViewer
func NewErrorViewer(st storage.Storage, logger *zap.Logger) *ErrorViewer {
	return &ErrorViewer{
		storage: st,
		logger:  logging.OrNop(logger),
	}
}

// View opens the failures of record grouped by definition. Selecting a
// failure lists its stack frames; selecting a frame shows the source around
// it. R toggles the resolved mark, which is written back through the storage.
func (ev *ErrorViewer) View(record *domain.RunRecord) error {
	if len(record.Details) == 0 {
		color.Green("✓ No test failures found!")
		return nil
	}

	app := tview.NewApplication()
	b := ev.newBrowser(record)
	b.bindKeys(app)

	if err := app.SetRoot(b.layout(), true).SetFocus(b.tree).Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

type failureBrowser struct {
	viewer  *ErrorViewer
	record  *domain.RunRecord
	leaves  []*tview.TreeNode // indexed like record.Details
	current int
	stack   []parser.Frame

	header  *tview.TextView
	tree    *tview.TreeView
	summary *tview.TextView
	frames  *tview.List
	source  *tview.TextView
}

func (ev *ErrorViewer) newBrowser(record *domain.RunRecord) *failureBrowser {
	b := &failureBrowser{
		viewer:  ev,
		record:  record,
		leaves:  make([]*tview.TreeNode, len(record.Details)),
		current: -1,
		header:  tview.NewTextView().SetDynamicColors(true).SetTextAlign(tview.AlignCenter),
		tree:    tview.NewTreeView(),
		summary: tview.NewTextView().SetDynamicColors(true).SetWordWrap(true),
		frames:  tview.NewList().SetHighlightFullLine(true),
		source:  tview.NewTextView().SetDynamicColors(true).SetWrap(false),
	}

	root := tview.NewTreeNode(runLabel(record.Meta)).
		SetColor(tcell.ColorYellow).
		SetSelectable(false)
	var first *tview.TreeNode
	for _, group := range groupFailures(record.Details) {
		defNode := tview.NewTreeNode(fmt.Sprintf("%s (%d)", group.Definition, len(group.Indices))).
			SetColor(tcell.ColorDarkCyan).
			SetReference(group.Definition)
		for _, i := range group.Indices {
			leaf := tview.NewTreeNode("").SetReference(i)
			b.leaves[i] = leaf
			b.relabel(i)
			defNode.AddChild(leaf)
			if first == nil {
				first = leaf
			}
		}
		root.AddChild(defNode)
	}
	b.tree.SetRoot(root).SetCurrentNode(first)

	b.tree.SetChangedFunc(func(node *tview.TreeNode) {
		if i, ok := node.GetReference().(int); ok {
			b.show(i)
		}
	})
	b.frames.SetChangedFunc(func(index int, _ string, _ string, _ rune) {
		b.showFrame(index)
	})

	b.show(first.GetReference().(int))
	return b
}

func (b *failureBrowser) layout() tview.Primitive {
	b.tree.SetBorder(true).SetTitle(" Failures ")
	b.summary.SetBorder(true).SetTitle(" Failure ")
	b.frames.SetBorder(true).SetTitle(" Stack ")
	b.source.SetBorder(true).SetTitle(" Source ")

	details := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(b.summary, 0, 1, false).
		AddItem(b.frames, 0, 1, false).
		AddItem(b.source, 0, 2, false)

	body := tview.NewFlex().
		AddItem(b.tree, 0, 1, true).
		AddItem(details, 0, 2, false)

	return tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(b.header, 1, 0, false).
		AddItem(body, 0, 1, true)
}

func (b *failureBrowser) bindKeys(app *tview.Application) {
	b.tree.SetSelectedFunc(func(node *tview.TreeNode) {
		if _, ok := node.GetReference().(int); !ok {
			node.SetExpanded(!node.IsExpanded())
			return
		}
		if b.frames.GetItemCount() > 0 {
			app.SetFocus(b.frames)
		}
	})

	b.tree.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch {
		case event.Key() == tcell.KeyRight && b.frames.GetItemCount() > 0:
			app.SetFocus(b.frames)
			return nil
		case event.Key() == tcell.KeyRune && (event.Rune() == 'r' || event.Rune() == 'R'):
			b.toggleResolved()
			return nil
		}
		return event
	})

	b.frames.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyLeft || event.Key() == tcell.KeyEsc {
			app.SetFocus(b.tree)
			return nil
		}
		return event
	})
}

// show displays failure i and its stack frames
func (b *failureBrowser) show(i int) {
	b.current = i
	failure := b.record.Details[i]

	b.summary.SetText(failureText(failure)).ScrollToBeginning()
	b.stack = stackFrames(failure)
	b.frames.Clear()
	b.source.Clear()
	for _, f := range b.stack {
		b.frames.AddItem(fmt.Sprintf("%s:%d", f.File, f.Line), f.Function, 0, nil)
	}
	if len(b.stack) > 0 {
		b.showFrame(0)
	} else {
		b.source.SetText("[gray]no stack frames recorded[white]")
	}
	b.updateHeader()
}

func (b *failureBrowser) showFrame(index int) {
	if index < 0 || index >= len(b.stack) {
		return
	}
	f := b.stack[index]
	b.source.SetText(sourceExcerpt(f.File, f.Line, excerptRadius)).ScrollToBeginning()
}

func (b *failureBrowser) toggleResolved() {
	if b.current < 0 {
		return
	}
	failure := &b.record.Details[b.current]
	failure.Resolved = !failure.Resolved
	b.relabel(b.current)
	b.updateHeader()

	if err := b.viewer.storage.SaveOutput(b.record); err != nil {
		b.viewer.logger.Warn("failed to save resolved status",
			zap.String("test", failure.TestName),
			zap.Error(err))
	}
}

func (b *failureBrowser) relabel(i int) {
	failure := b.record.Details[i]
	c := tcell.ColorRed
	if failure.Resolved {
		c = tcell.ColorGray
	}
	b.leaves[i].SetText(failureLabel(failure)).SetColor(c)
}

func (b *failureBrowser) updateHeader() {
	unresolved := 0
	for _, d := range b.record.Details {
		if !d.Resolved {
			unresolved++
		}
	}
	b.header.SetText(fmt.Sprintf(
		" %d failures, %d unresolved | ↑↓ select, → stack, ← back, [yellow]R[white] resolved, Ctrl+C exit ",
		len(b.record.Details), unresolved))
}

type failureGroup struct {
	Definition string
	Indices    []int
}

// groupFailures groups failure indices by definition, sorted by name
func groupFailures(details []domain.TestFailure) []failureGroup {
	byName := make(map[string]*failureGroup)
	var names []string
	for i, d := range details {
		name := d.Definition
		if name == "" {
			name = "(unknown definition)"
		}
		g, ok := byName[name]
		if !ok {
			g = &failureGroup{Definition: name}
			byName[name] = g
			names = append(names, name)
		}
		g.Indices = append(g.Indices, i)
	}
	sort.Strings(names)

	groups := make([]failureGroup, 0, len(names))
	for _, name := range names {
		groups = append(groups, *byName[name])
	}
	return groups
}

func runLabel(meta domain.RunMeta) string {
	root := meta.Root
	if root == "" {
		root = "."
	}
	if meta.RunID == "" {
		return root
	}
	return fmt.Sprintf("%s (run %s)", root, meta.RunID)
}

func failureLabel(f domain.TestFailure) string {
	method := domain.TestID(f.TestName).Method()
	if f.Resolved {
		return "✓ " + method
	}
	return fmt.Sprintf("✗ %s (%s)", method, f.Status)
}

// failureText renders the message, location and cause chain of a failure
func failureText(f domain.TestFailure) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[red]%s[white] %s\n", f.Status, tview.Escape(f.TestName))
	if f.File != "" && f.Line > 0 {
		fmt.Fprintf(&b, "[cyan]at[white] %s:%d\n", tview.Escape(f.File), f.Line)
	}
	if f.Message != "" {
		fmt.Fprintf(&b, "\n%s\n", tview.Escape(f.Message))
	}
	if f.ErrorDetails != "" {
		fmt.Fprintf(&b, "\n[yellow]cause[white]\n%s\n", tview.Escape(f.ErrorDetails))
	}
	return b.String()
}

func stackFrames(f domain.TestFailure) []parser.Frame {
	var frames []parser.Frame
	for _, s := range f.StackTrace {
		if frame, ok := parser.ParseFrame(s); ok {
			frames = append(frames, frame)
		}
	}
	return frames
}

// sourceExcerpt renders the lines of file around line, marking line itself
func sourceExcerpt(file string, line, radius int) string {
	content, err := os.ReadFile(file)
	if err != nil {
		return fmt.Sprintf("[gray]source not available: %s[white]", tview.Escape(err.Error()))
	}

	lines := strings.Split(string(content), "\n")
	if line < 1 || line > len(lines) {
		return fmt.Sprintf("[gray]%s has no line %d[white]", tview.Escape(file), line)
	}

	var b strings.Builder
	for n := max(line-radius, 1); n <= min(line+radius, len(lines)); n++ {
		text := tview.Escape(lines[n-1])
		if n == line {
			fmt.Fprintf(&b, "[yellow]%4d > %s[white]\n", n, text)
		} else {
			fmt.Fprintf(&b, "[gray]%4d[white]   %s\n", n, text)
		}
	}
	return b.String()
}
