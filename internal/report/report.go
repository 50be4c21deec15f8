// Package report renders solved case studies to spreadsheet or CSV files.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/brineworks/treatment-network-optimizer/pkg/model"
	"github.com/brineworks/treatment-network-optimizer/pkg/recovery"
)

// Sheet names in the xlsx layout. The csv layout writes the same tables as
// titled blocks.
const (
	SheetSummary        = "Summary"
	SheetFlows          = "Flows"
	SheetConcentrations = "Concentrations"
	SheetInventory      = "Inventory"
)

// ErrExists reports a refusal to replace an existing file.
var ErrExists = errors.New("file already exists")

// Write renders the result to path, picking the format from the extension:
// .xlsx for a workbook with Summary, Flows, Concentrations and Inventory
// sheets, .csv for a flat file with the summary block and the flow table.
// An existing file is only replaced when overwrite is set.
func Write(res *recovery.StagedResult, path string, overwrite bool) error {
	if res == nil || res.Model == nil {
		return fmt.Errorf("result cannot be nil")
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s: %w", path, ErrExists)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	t, err := collect(res)
	if err != nil {
		return err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx":
		return writeXLSX(t, path)
	case ".csv":
		return writeCSV(t, path)
	default:
		return fmt.Errorf("unsupported report format %q (want .xlsx or .csv)", ext)
	}
}

// tables is the flat view of a staged result, one row slice per sheet.
type tables struct {
	summary        [][]any
	flows          [][]any
	concentrations [][]any
	inventory      [][]any
}

func collect(res *recovery.StagedResult) (*tables, error) {
	m := res.Model
	t := &tables{}

	t.summary = append(t.summary,
		[]any{"Case study", m.Name()},
		[]any{"Treatment revenue (USD/week)", res.TreatmentRevenue},
		[]any{"Stage", "Engine", "Status", "Objective", "Iterations", "Runtime (s)"},
	)
	for _, st := range res.Stages {
		t.summary = append(t.summary, []any{
			st.Stage, st.Engine, string(st.Status), st.Objective, st.Iterations, st.Runtime.Seconds(),
		})
	}

	flows, err := m.VarSet(model.VarSetFlow)
	if err != nil {
		return nil, err
	}
	t.flows = append(t.flows, []any{"Source", "Destination", "Period", "BblPerWeek"})
	if err := eachRow(flows, 2, func(parts []string, v *model.Var) error {
		src, dst, ok := strings.Cut(parts[0], "->")
		if !ok {
			return fmt.Errorf("malformed arc key %q", parts[0])
		}
		t.flows = append(t.flows, []any{src, dst, parts[1], v.Value()})
		return nil
	}); err != nil {
		return nil, err
	}

	concs, err := m.VarSet(model.VarSetConc)
	if err != nil {
		return nil, err
	}
	t.concentrations = append(t.concentrations, []any{"Site", "Element", "Period", "MgPerL"})
	if err := eachRow(concs, 3, func(parts []string, v *model.Var) error {
		t.concentrations = append(t.concentrations, []any{parts[0], parts[1], parts[2], v.Value()})
		return nil
	}); err != nil {
		return nil, err
	}

	inv, err := m.VarSet(model.VarSetInventory)
	if err != nil {
		return nil, err
	}
	t.inventory = append(t.inventory, []any{"Storage", "Period", "Bbl"})
	if err := eachRow(inv, 2, func(parts []string, v *model.Var) error {
		t.inventory = append(t.inventory, []any{parts[0], parts[1], v.Value()})
		return nil
	}); err != nil {
		return nil, err
	}
	return t, nil
}

// eachRow visits every variable in the set, splitting its key into the given
// number of parts. Iteration stops at the first callback error.
func eachRow(set *model.VarSet, parts int, f func(parts []string, v *model.Var) error) error {
	var err error
	set.Each(func(v *model.Var) {
		if err != nil {
			return
		}
		p := strings.Split(v.Key(), model.KeySep)
		if len(p) != parts {
			err = fmt.Errorf("malformed %s key %q", set.Name(), v.Key())
			return
		}
		err = f(p, v)
	})
	return err
}

func writeXLSX(t *tables, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheets := []struct {
		name string
		rows [][]any
	}{
		{SheetSummary, t.summary},
		{SheetFlows, t.flows},
		{SheetConcentrations, t.concentrations},
		{SheetInventory, t.inventory},
	}
	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet.name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(sheet.name); err != nil {
			return err
		}
		for r, row := range sheet.rows {
			cell := fmt.Sprintf("A%d", r+1)
			if err := f.SetSheetRow(sheet.name, cell, &row); err != nil {
				return err
			}
		}
	}
	return f.SaveAs(path)
}

func writeCSV(t *tables, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)

	blocks := []struct {
		title string
		rows  [][]any
	}{
		{"# Summary", t.summary},
		{"# Flows", t.flows},
	}
	for _, block := range blocks {
		if err := w.Write([]string{block.title}); err != nil {
			f.Close()
			return err
		}
		for _, row := range block.rows {
			if err := w.Write(toRecord(row)); err != nil {
				f.Close()
				return err
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func toRecord(row []any) []string {
	rec := make([]string, len(row))
	for i, cell := range row {
		switch v := cell.(type) {
		case float64:
			rec[i] = strconv.FormatFloat(v, 'g', -1, 64)
		case int:
			rec[i] = strconv.Itoa(v)
		default:
			rec[i] = fmt.Sprint(v)
		}
	}
	return rec
}
