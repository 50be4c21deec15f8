/*
Copyright 2025 The brineworks Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package seismic

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/brineworks/treatment-network-optimizer/internal/report"
)

// SheetEarthquakes is the sheet name of the xlsx layout.
const SheetEarthquakes = "Earthquakes"

var saveHeader = []string{"Well", "Event", "Time", "Magnitude", "Place", "Lat", "Lon", "DistanceKm"}

// Save writes the rows to path as .csv or .xlsx. An existing file is only
// replaced when overwrite is set.
func Save(rows []WellEvent, path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s: %w", path, report.ErrExists)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return saveCSV(rows, path)
	case ".xlsx":
		return saveXLSX(rows, path)
	default:
		return fmt.Errorf("unsupported save format %q (want .csv or .xlsx)", ext)
	}
}

func saveCSV(rows []WellEvent, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(saveHeader); err != nil {
		f.Close()
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.WellID,
			r.EventID,
			r.Time.Format(time.RFC3339),
			strconv.FormatFloat(r.Magnitude, 'g', -1, 64),
			r.Place,
			strconv.FormatFloat(r.Lat, 'g', -1, 64),
			strconv.FormatFloat(r.Lon, 'g', -1, 64),
			strconv.FormatFloat(r.DistanceKm, 'g', -1, 64),
		}
		if err := w.Write(rec); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func saveXLSX(rows []WellEvent, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetEarthquakes); err != nil {
		return err
	}
	head := make([]any, len(saveHeader))
	for i, h := range saveHeader {
		head[i] = h
	}
	if err := f.SetSheetRow(SheetEarthquakes, "A1", &head); err != nil {
		return err
	}
	for i, r := range rows {
		row := []any{
			r.WellID, r.EventID, r.Time.Format(time.RFC3339),
			r.Magnitude, r.Place, r.Lat, r.Lon, r.DistanceKm,
		}
		if err := f.SetSheetRow(SheetEarthquakes, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}
