package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctr/internal/cli"
	"ctr/internal/config"
	"ctr/internal/discovery"
	"ctr/internal/storage"
)

const calcSource = `package calc

func Test_add() bool { return 1+1 == 2 }

func Test_sub() bool { return 2-1 == 0 }

func Helper_mul() int { return 6 }
`

const fixedCalcSource = `package calc

func Test_add() bool { return 1+1 == 2 }

func Test_sub() bool { return 2-1 == 1 }
`

func init() {
	color.NoColor = true
}

// setup writes calc.go into a fresh project and wires the commands against it
func setup(t *testing.T, source string) (*Commands, *bytes.Buffer) {
	t.Helper()
	project := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(project, "tests"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(project, "tests", "calc.go"), []byte(source), 0644))

	cfg := config.New()
	cfg.ProjectPath = project
	cfg.Flags.TestPath = "tests"

	c := NewCommands(cfg)
	require.NoError(t, c.Build(nil))

	var out bytes.Buffer
	c.Run.out = &out
	return c, &out
}

func testCommand() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	return cmd
}

func TestRunCommand_Execute(t *testing.T) {
	c, out := setup(t, calcSource)

	err := c.Run.Execute(testCommand(), nil)

	assert.ErrorIs(t, err, ErrTestsFailed)
	assert.Contains(t, out.String(), "running calc.Test_add... succeeded")
	assert.Contains(t, out.String(), "running calc.Test_sub... failed")
	assert.NotContains(t, out.String(), "Helper_mul")
	assert.Contains(t, out.String(), "Successful: 1")
	assert.Contains(t, out.String(), "Failed: 1")

	record, err := storage.NewJSONStorage(c.config).Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"calc.Test_add"}, record.Succeeded)
	require.Len(t, record.Details, 1)
	assert.Equal(t, "calc.Test_sub", record.Details[0].TestName)
	assert.Equal(t, "returned false", record.Details[0].Message)
}

func TestRunCommand_OnlyFailed(t *testing.T) {
	c, out := setup(t, calcSource)
	require.ErrorIs(t, c.Run.Execute(testCommand(), nil), ErrTestsFailed)

	path := filepath.Join(c.config.GetTestPath(), "calc.go")
	require.NoError(t, os.WriteFile(path, []byte(fixedCalcSource), 0644))
	out.Reset()
	c.config.Flags.OnlyFailed = true

	err := c.Run.Execute(testCommand(), nil)

	require.NoError(t, err)
	assert.NotContains(t, out.String(), "running calc.Test_add")
	assert.Contains(t, out.String(), "running calc.Test_sub... succeeded")
	assert.Contains(t, out.String(), "Skipped: 1 (already succeeded)")

	record, err := storage.NewJSONStorage(c.config).Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"calc.Test_add", "calc.Test_sub"}, record.Succeeded)
	assert.Empty(t, record.Details)
}

func TestRunCommand_OnlyFailedWithoutResults(t *testing.T) {
	c, out := setup(t, fixedCalcSource)
	c.config.Flags.OnlyFailed = true

	err := c.Run.Execute(testCommand(), nil)

	require.NoError(t, err)
	assert.Contains(t, out.String(), "Successful: 2")
}

func TestRunCommand_DiscoveryError(t *testing.T) {
	c, out := setup(t, "package calc\n\nfunc Test_add() bool { return }\n")

	summary, err := c.Run.RunOnce(context.Background(), nil)

	var de *discovery.Error
	require.ErrorAs(t, err, &de)
	require.NotNil(t, summary)
	assert.True(t, summary.Aborted)
	assert.Contains(t, out.String(), "Successful: 0")
}

func TestRunCommand_MetricsFile(t *testing.T) {
	c, _ := setup(t, fixedCalcSource)
	c.config.MetricsFile = filepath.Join(t.TempDir(), "ctr.prom")

	_, err := c.Run.RunOnce(context.Background(), nil)
	require.NoError(t, err)

	data, err := os.ReadFile(c.config.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `ctr_tests_total{status="passed"} 2`)
}

func TestCommands_Prepare(t *testing.T) {
	project := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(project, config.DefaultConfigFile), []byte("prefix: check_\n"), 0644))

	cfg := config.New()
	cfg.ProjectPath = project
	c := NewCommands(cfg)
	flags := &cli.Flags{ReturnOnError: true}

	require.NoError(t, c.prepare(flags, []string{"suite"}))

	assert.Equal(t, "check_", cfg.Prefix)
	assert.True(t, cfg.ReturnOnError)
	assert.Equal(t, filepath.Join(project, "suite"), cfg.GetTestPath())
	assert.NotNil(t, c.Run)
	assert.NotNil(t, c.Watch)
}

func TestCommands_PrepareRejectsUnknownStore(t *testing.T) {
	cfg := config.New()
	cfg.ProjectPath = t.TempDir()
	c := NewCommands(cfg)

	err := c.prepare(&cli.Flags{Store: "redis"}, nil)

	assert.ErrorContains(t, err, "unknown store")
}

func TestWatchCommand_CarriesSucceededSet(t *testing.T) {
	c, _ := setup(t, calcSource)

	require.NoError(t, c.Watch.runOnce(context.Background()))
	assert.True(t, c.Watch.succeeded.Has("calc.Test_add"))

	path := filepath.Join(c.config.GetTestPath(), "calc.go")
	require.NoError(t, os.WriteFile(path, []byte(fixedCalcSource), 0644))

	require.NoError(t, c.Watch.runOnce(context.Background()))
	assert.Nil(t, c.Watch.succeeded)
}

func TestWatchCommand_DiscoveryErrorKeepsWatching(t *testing.T) {
	c, _ := setup(t, "package calc\n\nfunc Test_add( {\n")

	assert.NoError(t, c.Watch.runOnce(context.Background()))
}

func TestListCommand_LastFailed(t *testing.T) {
	c, _ := setup(t, calcSource)
	require.ErrorIs(t, c.Run.Execute(testCommand(), nil), ErrTestsFailed)

	failed := c.List.lastFailed()

	assert.True(t, failed.Has("calc.Test_sub"))
	assert.False(t, failed.Has("calc.Test_add"))
}

type closingStorage struct {
	storage.Storage
	closed int
}

func (s *closingStorage) Close() error {
	s.closed++
	return nil
}

func TestCommands_CloseReleasesStorage(t *testing.T) {
	c, _ := setup(t, calcSource)
	st := &closingStorage{Storage: c.storage}
	c.storage = st

	c.Close()
	assert.Equal(t, 1, st.closed)

	// JSON storage holds nothing to release
	c, _ = setup(t, calcSource)
	assert.NotPanics(t, c.Close)
}
