package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/brineworks/treatment-network-optimizer/internal/seismic"
)

// runQuakes ranks recent catalog earthquakes by distance to the disposal
// wells of the loaded case studies and optionally saves the rows.
func runQuakes(ctx context.Context, args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("quakes", pflag.ContinueOnError)
	fs.SetOutput(stdout)
	common := addCommonFlags(fs)
	casePath := fs.String("case", "", "case study file or directory (overrides config)")
	api := fs.String("api", seismic.APIUSGS, "event catalog, usgs or texnet")
	minDate := fs.String("min-date", "", "earliest event date, YYYY-MM-DD (default 30 days back)")
	maxDate := fs.String("max-date", "", "latest event date, YYYY-MM-DD (default today)")
	radius := fs.Float64("radius", 0, "search radius around each well in km (default 100)")
	savePath := fs.String("save", "", "write the rows to this .csv or .xlsx file")
	overwrite := fs.Bool("overwrite", false, "replace an existing save file")
	catalogURL := fs.String("catalog-url", "", "override the catalog endpoint")
	if helped, err := parse(fs, args); helped || err != nil {
		return err
	}

	cfg, logger, err := common.load()
	if err != nil {
		return err
	}
	path := cfg.CaseStudyPath
	if *casePath != "" {
		path = *casePath
	}
	studies, err := loadStudies(ctx, path)
	if err != nil {
		return err
	}

	var wells []seismic.Well
	for _, cs := range studies {
		for _, d := range cs.Disposal {
			if d.Located() {
				wells = append(wells, seismic.Well{ID: d.ID, Lat: d.Lat, Lon: d.Lon})
			}
		}
	}
	if len(wells) == 0 {
		return fmt.Errorf("no disposal sites with wellhead locations in %s", path)
	}

	rows, err := seismic.CalculateDistances(ctx, wells, seismic.Options{
		API:      *api,
		MinDate:  *minDate,
		MaxDate:  *maxDate,
		RadiusKm: *radius,
		BaseURL:  *catalogURL,
	})
	if err != nil {
		return err
	}
	logger.Info("Ranked catalog events", "wells", len(wells), "rows", len(rows))

	for _, r := range rows {
		fmt.Fprintf(stdout, "%-8s %-12s %8.1f km  M%.1f  %s  %s\n",
			r.WellID, r.EventID, r.DistanceKm, r.Magnitude, r.Time.Format("2006-01-02"), r.Place)
	}
	if *savePath != "" {
		if err := seismic.Save(rows, *savePath, *overwrite || cfg.Overwrite); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "saved %d rows to %s\n", len(rows), *savePath)
	}
	return nil
}
