package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const forcedStudyYAML = `name: delaware_forced
periods: 1
elements:
  - lithium
pads:
  - id: PP01
    generation:
      rateBblPerDay: [1000]
      concentration:
        lithium: [200]
disposal:
  - id: K01
    capacityBblPerWeek: 30000
    feePerBbl: 0.25
    lat: 32.251
    lon: -101.940
treatment:
  - id: R01
    waterRecovery: 0.7
    recovery:
      lithium: 0.9995
    minInletConcentration:
      lithium: 100
    capacityBblPerWeek: 40000
    productPricePerKg:
      lithium: 60
reuse:
  - id: W01
    demandBblPerWeek: 5000
    maxConcentration:
      lithium: 10
    creditPerBbl: 0.25
arcs:
  - from: PP01
    to: R01
    costPerBbl: 0.10
  - from: R01.tw
    to: W01
    costPerBbl: 0.05
  - from: R01.cw
    to: K01
    costPerBbl: 0.05
`

// writeStudy drops the forced single-path study into a fresh directory and
// returns the file path.
func writeStudy(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "delaware_forced.yaml")
	require.NoError(t, os.WriteFile(path, []byte(forcedStudyYAML), 0o644))
	return path
}

func TestRunModeDispatch(t *testing.T) {
	var out bytes.Buffer

	err := Run(context.Background(), nil, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a mode is required")
	assert.Contains(t, out.String(), "Usage:")

	err = Run(context.Background(), []string{"optimize"}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")

	out.Reset()
	require.NoError(t, Run(context.Background(), []string{"help"}, &out))
	assert.Contains(t, out.String(), "treatnetopt <mode>")
}

func TestRunBound(t *testing.T) {
	study := writeStudy(t)
	var out bytes.Buffer

	// Uniform 200 mg/L water into a 0.7 recovery unit concentrates to
	// 666.7 mg/L, so a 600 mg/L target admits the whole 7000 bbl/week and
	// the treatable ceiling is the 30% concentrate share.
	err := Run(context.Background(), []string{
		"bound", "--case", study, "--unit", "R01", "--element", "lithium", "--desired", "600",
	}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "delaware_forced")
	assert.Contains(t, out.String(), "greedy 2100.00 bbl/week")
	assert.Contains(t, out.String(), "lp 2100.00 bbl/week")
}

func TestRunBoundMissingFlags(t *testing.T) {
	study := writeStudy(t)
	var out bytes.Buffer

	err := Run(context.Background(), []string{"bound", "--case", study}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--unit and --element are required")
}

func TestRunSolve(t *testing.T) {
	study := writeStudy(t)
	outDir := t.TempDir()
	var out bytes.Buffer

	err := Run(context.Background(), []string{
		"solve", "--case", study, "--output-dir", outDir, "--format", "csv",
	}, &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "delaware_forced: cost-optimal objective")

	raw, err := os.ReadFile(filepath.Join(outDir, "delaware_forced.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "# Flows")
	assert.Contains(t, string(raw), "PP01,R01,t0,")
}

func TestRunSolveRefusesClobber(t *testing.T) {
	study := writeStudy(t)
	outDir := t.TempDir()
	var out bytes.Buffer

	args := []string{"solve", "--case", study, "--output-dir", outDir, "--format", "csv"}
	require.NoError(t, Run(context.Background(), args, &out))

	err := Run(context.Background(), args, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	require.NoError(t, Run(context.Background(), append(args, "--overwrite"), &out))
}

func TestRunQuakes(t *testing.T) {
	study := writeStudy(t)
	savePath := filepath.Join(t.TempDir(), "quakes.csv")
	var out bytes.Buffer

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"features": [{
			"id": "tx2024abcd",
			"properties": {"mag": 3.1, "time": 1711152000000, "place": "western Texas"},
			"geometry": {"coordinates": [-101.940, 32.251, 7.2]}
		}]}`))
	}))
	defer srv.Close()

	err := Run(context.Background(), []string{
		"quakes", "--case", study, "--catalog-url", srv.URL,
		"--min-date", "2024-03-23", "--max-date", "2024-03-23",
		"--save", savePath,
	}, &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "K01")
	assert.Contains(t, out.String(), "tx2024abcd")

	raw, err := os.ReadFile(savePath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "K01,tx2024abcd")
}

func TestRunQuakesNoLocatedWells(t *testing.T) {
	dir := t.TempDir()
	unlocated := []byte(`name: no_wells
periods: 1
elements: [lithium]
pads:
  - id: PP01
    generation:
      rateBblPerDay: [1000]
      concentration:
        lithium: [200]
disposal:
  - id: K01
    capacityBblPerWeek: 30000
    feePerBbl: 0.25
arcs:
  - from: PP01
    to: K01
`)
	path := filepath.Join(dir, "no_wells.yaml")
	require.NoError(t, os.WriteFile(path, unlocated, 0o644))

	var out bytes.Buffer
	err := Run(context.Background(), []string{"quakes", "--case", path}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no disposal sites with wellhead locations")
}
