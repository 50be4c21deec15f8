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
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// studyYAML is a single-path network where the balance rows pin every flow:
// 7000 bbl/week from the pad through the unit, 4900 bbl of treated water to
// reuse, 2100 bbl of concentrate to disposal.
const studyYAML = `name: delaware_forced
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

// catalogJSON holds two catalog events: one at the K01 wellhead and one a
// degree of longitude east of it.
const catalogJSON = `{"features": [
  {
    "id": "tx2024abcd",
    "properties": {"mag": 3.1, "time": 1711152000000, "place": "western Texas"},
    "geometry": {"coordinates": [-101.940, 32.251, 7.2]}
  },
  {
    "id": "us7000abcd",
    "properties": {"mag": 2.5, "time": 1711238400000, "place": "west of Midland"},
    "geometry": {"coordinates": [-100.940, 32.251, 5.0]}
  }
]}`

var (
	workDir string
	caseDir string
	catalog *httptest.Server
)

// configFor writes a config file with its own report directory and returns
// its path. Reports land in <workDir>/reports-<name>.
func configFor(name, format, mode string) string {
	cfg := fmt.Sprintf(`caseStudyPath: %s
outputDir: %s
reportFormat: %s
logLevel: error
solves:
  default:
    mode: %s
    accuracy: 1.0e-6
    maxIterations: 5000
`, caseDir, filepath.Join(workDir, "reports-"+name), format, mode)
	path := filepath.Join(workDir, "treatnetopt-"+name+".yaml")
	Expect(os.WriteFile(path, []byte(cfg), 0o644)).To(Succeed())
	return path
}

// TestE2E drives the CLI end to end: case studies are loaded from YAML,
// solved with the real engines, and the reports are read back and checked
// against the values the network pins.
func TestE2E(t *testing.T) {
	RegisterFailHandler(Fail)
	_, _ = fmt.Fprintf(GinkgoWriter, "Starting treatment network optimizer end-to-end suite\n")
	RunSpecs(t, "e2e suite")
}

var _ = BeforeSuite(func() {
	var err error
	workDir, err = os.MkdirTemp("", "treatnetopt-e2e-")
	Expect(err).NotTo(HaveOccurred())

	caseDir = filepath.Join(workDir, "cases")
	Expect(os.MkdirAll(caseDir, 0o755)).To(Succeed())
	Expect(os.WriteFile(filepath.Join(caseDir, "delaware_forced.yaml"), []byte(studyYAML), 0o644)).To(Succeed())

	catalog = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(catalogJSON))
	}))
})

var _ = AfterSuite(func() {
	if catalog != nil {
		catalog.Close()
	}
	if workDir != "" {
		Expect(os.RemoveAll(workDir)).To(Succeed())
	}
})
