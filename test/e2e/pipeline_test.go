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

package e2e

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"

	"github.com/brineworks/treatment-network-optimizer/internal/cli"
)

// run invokes the CLI in process and returns its stdout.
func run(args ...string) (string, error) {
	var out bytes.Buffer
	err := cli.Run(context.Background(), args, &out)
	return out.String(), err
}

// readReport parses a CSV report into its flow map, keyed like the flow
// variables, plus the treatment revenue summary value.
func readReport(path string) (map[string]float64, float64) {
	raw, err := os.ReadFile(path)
	Expect(err).NotTo(HaveOccurred())

	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	Expect(err).NotTo(HaveOccurred())

	flows := make(map[string]float64)
	revenue := 0.0
	inFlows := false
	for _, rec := range records {
		if len(rec) > 0 && strings.HasPrefix(rec[0], "# ") {
			inFlows = rec[0] == "# Flows"
			continue
		}
		if len(rec) == 2 && rec[0] == "Treatment revenue (USD/week)" {
			revenue, err = strconv.ParseFloat(rec[1], 64)
			Expect(err).NotTo(HaveOccurred())
			continue
		}
		if !inFlows || len(rec) != 4 || rec[0] == "Source" {
			continue
		}
		v, err := strconv.ParseFloat(rec[3], 64)
		Expect(err).NotTo(HaveOccurred())
		flows[rec[0]+"->"+rec[1]+"|"+rec[2]] = v
	}
	return flows, revenue
}

var _ = Describe("solve mode", func() {
	// The forced network pins these flows regardless of objective.
	forcedFlows := map[string]float64{
		"PP01->R01|t0":   7000,
		"R01.tw->W01|t0": 4900,
		"R01.cw->K01|t0": 2100,
	}

	Context("with the cost-optimal strategy", func() {
		It("should solve the network and report the pinned flows", func() {
			cfg := configFor("cost", "csv", "cost-optimal")

			out, err := run("solve", "--config", cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("delaware_forced: cost-optimal objective"))

			flows, revenue := readReport(filepath.Join(workDir, "reports-cost", "delaware_forced.csv"))
			diff := cmp.Diff(forcedFlows, flows, cmpopts.EquateApprox(0, 1e-3))
			Expect(diff).To(BeEmpty(), "flows differ (-want +got):\n%s", diff)
			Expect(revenue).To(BeNumerically("~", 13348.23, 0.5))
		})
	})

	Context("with the max-recovery strategy", func() {
		It("should maximize and report the treatment revenue", func() {
			cfg := configFor("max", "csv", "max-recovery")

			out, err := run("solve", "--config", cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("delaware_forced: max-recovery objective"))

			flows, revenue := readReport(filepath.Join(workDir, "reports-max", "delaware_forced.csv"))
			diff := cmp.Diff(forcedFlows, flows, cmpopts.EquateApprox(0, 1e-3))
			Expect(diff).To(BeEmpty(), "flows differ (-want +got):\n%s", diff)
			Expect(revenue).To(BeNumerically("~", 13348.23, 0.5))
		})
	})

	Context("with the xlsx report format", func() {
		It("should write a workbook with the four solution sheets", func() {
			cfg := configFor("xlsx", "xlsx", "cost-optimal")

			_, err := run("solve", "--config", cfg)
			Expect(err).NotTo(HaveOccurred())

			f, err := excelize.OpenFile(filepath.Join(workDir, "reports-xlsx", "delaware_forced.xlsx"))
			Expect(err).NotTo(HaveOccurred())
			defer f.Close()

			Expect(f.GetSheetList()).To(Equal([]string{"Summary", "Flows", "Concentrations", "Inventory"}))
			Expect(f.GetCellValue("Summary", "B1")).To(Equal("delaware_forced"))
			Expect(f.GetRows("Flows")).To(HaveLen(4))
		})
	})

	Context("when the report already exists", func() {
		It("should refuse to clobber it unless --overwrite is given", func() {
			cfg := configFor("clobber", "csv", "cost-optimal")

			_, err := run("solve", "--config", cfg)
			Expect(err).NotTo(HaveOccurred())

			_, err = run("solve", "--config", cfg)
			Expect(err).To(MatchError(ContainSubstring("already exists")))

			_, err = run("solve", "--config", cfg, "--overwrite")
			Expect(err).NotTo(HaveOccurred())
		})
	})
})

var _ = Describe("bound mode", func() {
	It("should print matching greedy and LP treatable ceilings", func() {
		// Uniform 200 mg/L water concentrates to 666.7 mg/L at 0.7 water
		// recovery, so a 600 mg/L target admits the whole 7000 bbl/week
		// and the ceiling is the 30% concentrate share.
		out, err := run("bound", "--case", filepath.Join(caseDir, "delaware_forced.yaml"),
			"--unit", "R01", "--element", "lithium", "--desired", "600")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("greedy 2100.00 bbl/week"))
		Expect(out).To(ContainSubstring("lp 2100.00 bbl/week"))
	})

	It("should reject a run without a unit and element", func() {
		_, err := run("bound", "--case", filepath.Join(caseDir, "delaware_forced.yaml"))
		Expect(err).To(MatchError(ContainSubstring("--unit and --element are required")))
	})
})

var _ = Describe("quakes mode", func() {
	It("should rank catalog events by distance and save them", func() {
		save := filepath.Join(workDir, "quakes.xlsx")

		out, err := run("quakes", "--case", caseDir,
			"--catalog-url", catalog.URL,
			"--min-date", "2024-03-23", "--max-date", "2024-03-24",
			"--save", save)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("tx2024abcd"))

		f, err := excelize.OpenFile(save)
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()

		rows, err := f.GetRows("Earthquakes")
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(3))
		Expect(rows[1][0]).To(Equal("K01"), "the event at the wellhead ranks first")
		Expect(rows[1][1]).To(Equal("tx2024abcd"))
	})
})
