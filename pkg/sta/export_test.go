package sta

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Kevin-Rudy/gosta/pkg/core"
)

func testSnapshot() *core.Snapshot {
	return &core.Snapshot{
		Time:    []float64{-0.002, -0.001, 0, 0.001, 0.002},
		Average: []float64{0, 0, 1, 2.5, -3},
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, testSnapshot()))

	expected := "-0.002 0\n-0.001 0\n0 1\n0.001 2.5\n0.002 -3\n"
	require.Equal(t, expected, buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestWriteTextFailure(t *testing.T) {
	err := WriteText(failingWriter{}, testSnapshot())
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrExport))

	var exportErr *ExportError
	require.ErrorAs(t, err, &exportErr)
	require.EqualError(t, exportErr.Err, "disk full")
}

func TestExportFileModes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sta.dat")
	snap := testSnapshot()

	require.NoError(t, ExportFile(path, ExportOverwrite, snap))
	first, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, 5, bytes.Count(first, []byte("\n")))

	require.NoError(t, ExportFile(path, ExportAppend, snap))
	appended, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, 10, bytes.Count(appended, []byte("\n")))

	require.NoError(t, ExportFile(path, ExportOverwrite, snap))
	overwritten, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, first, overwritten)

	err = ExportFile(path, ExportExclusive, snap)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrExport))
	require.True(t, errors.Is(err, ErrFileExists))

	fresh := filepath.Join(dir, "fresh.dat")
	require.NoError(t, ExportFile(fresh, ExportExclusive, snap))
}

func TestExportFileBadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "sta.dat")
	err := ExportFile(path, ExportOverwrite, testSnapshot())
	require.Error(t, err)

	var exportErr *ExportError
	require.ErrorAs(t, err, &exportErr)
	require.Equal(t, path, exportErr.Path)
}

func TestExportDoesNotTouchEngine(t *testing.T) {
	f := newFeeder(t, WithWindow(0.002, 0.002), WithPeriod(0.001))
	f.feed([]float64{0, 0, 1, 2, 3}, []float64{0, 0, 1, 0, 0})

	snap := snapshot(f.engine)
	err := ExportFile(filepath.Join(t.TempDir(), "nope", "x.dat"), ExportOverwrite, &snap)
	require.Error(t, err)

	require.Equal(t, []float64{0, 0, 1, 2, 3}, snapshot(f.engine).Average)
	require.Equal(t, 1, f.engine.EventCount())
}

func TestParseExportMode(t *testing.T) {
	for _, mode := range []ExportMode{ExportOverwrite, ExportAppend, ExportExclusive} {
		parsed, err := ParseExportMode(mode.String())
		require.NoError(t, err)
		require.Equal(t, mode, parsed)
	}

	_, err := ParseExportMode("cancel")
	require.Error(t, err)
}
