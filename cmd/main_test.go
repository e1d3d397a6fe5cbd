package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nwszones/internal/config"
	"nwszones/internal/render"
	"nwszones/internal/testutil"
	"nwszones/internal/types"
)

func quietEnv(t *testing.T) {
	t.Helper()
	testutil.ClearEnv(t)
	t.Setenv("LOG_LEVEL", "error")
}

func TestRunWritesOutput(t *testing.T) {
	quietEnv(t)
	dir := t.TempDir()
	in := testutil.WriteSample(t, dir)
	out := filepath.Join(dir, "mi.geojson")

	require.Equal(t, 0, run([]string{in, out}))
	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"APX"`)
	assert.Contains(t, string(b), `"GRR"`)
	assert.NotContains(t, string(b), `"CLE"`)
}

func TestRunExitCodes(t *testing.T) {
	quietEnv(t)
	dir := t.TempDir()

	assert.Equal(t, exitConfig, run([]string{"a", "b", "c"}))

	t.Setenv("DISSOLVE_KEEP", "sum")
	assert.Equal(t, exitConfig, run(nil))
	t.Setenv("DISSOLVE_KEEP", "")

	assert.Equal(t, exitError, run([]string{filepath.Join(dir, "none.shp"), filepath.Join(dir, "o.geojson")}))

	t.Setenv("GROUP_BY_FIELD", "WFO")
	in := testutil.WriteSample(t, dir)
	out := filepath.Join(dir, "o.geojson")
	assert.Equal(t, exitError, run([]string{in, out}))
	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err))
}

func TestRunPublishFailureLeavesNoOutput(t *testing.T) {
	quietEnv(t)
	dir := t.TempDir()
	in := testutil.WriteSample(t, dir)
	out := filepath.Join(dir, "mi.geojson")

	// nothing listens on port 1
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", "1")
	t.Setenv("DB_TABLE", "CWA_REGIONS")

	assert.Equal(t, exitError, run([]string{in, out}))
	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err), "output written despite failed publish")
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "io", errorKind(fmt.Errorf("%w: read x", types.ErrIO)))
	assert.Equal(t, "schema", errorKind(types.MissingField("CWA", "z.shp")))
	assert.Equal(t, "geometry", errorKind(&types.GeometryError{Index: 2, Err: errors.New("bad ring")}))
	assert.Equal(t, "config", errorKind(config.ErrInvalid))
	assert.Equal(t, "other", errorKind(errors.New("boom")))
}

func TestPlotSize(t *testing.T) {
	cfg := config.Config{PlotWidth: 100, PlotHeight: 40}

	w, h := plotSize(cfg, 3, func() (int, int, error) { return 0, 0, errors.New("not a tty") })
	assert.Equal(t, 100, w)
	assert.Equal(t, 40, h)

	w, h = plotSize(cfg, 3, func() (int, int, error) { return 120, 50, nil })
	assert.Equal(t, 120, w)
	assert.Equal(t, 45, h)

	_, h = plotSize(cfg, 30, func() (int, int, error) { return 80, 24, nil })
	assert.Equal(t, 5, h)
}

func TestPrintPlot(t *testing.T) {
	c := &types.Collection{
		Fields: []types.Field{{Name: "CWA"}},
		Records: []types.Record{{
			Attrs:    map[string]any{"CWA": "APX"},
			Geometry: orb.Bound{Max: orb.Point{2, 1}}.ToPolygon(),
		}},
	}
	cv := render.Plot(c, "CWA", 4, 4)

	var buf bytes.Buffer
	printPlot(&buf, cv, -1, false, "\n")
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, cv.Height+1)
	assert.Equal(t, "AAAA", lines[0])
	assert.True(t, strings.HasPrefix(lines[len(lines)-1], "  A  APX"))
}

func TestReadKey(t *testing.T) {
	cases := map[string]key{
		"\x1b[A":   keyUp,
		"\x1b[B":   keyDown,
		"\x1b[C":   keyNone,
		"\x1b":     keyQuit,
		"\r":       keyQuit,
		"\x03":     keyQuit,
		"q":        keyQuit,
		"j":        keyDown,
		"k":        keyUp,
		"x":        keyNone,
		"\xe0\x48": keyUp,
		"\x00\x50": keyDown,
	}
	for in, want := range cases {
		r := bufio.NewReader(strings.NewReader(in))
		got, err := readKey(r)
		require.NoError(t, err, "%q", in)
		assert.Equal(t, want, got, "%q", in)
	}

	_, err := readKey(bufio.NewReader(strings.NewReader("")))
	assert.Error(t, err)
}
