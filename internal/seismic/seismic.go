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

// Package seismic checks disposal-well siting against recent seismicity by
// querying an FDSN event catalog and ranking events by distance to each well.
package seismic

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"
)

// Supported event catalogs.
const (
	APIUSGS   = "usgs"
	APITexNet = "texnet"
)

const (
	dateFormat      = "2006-01-02"
	defaultRadiusKm = 100
	defaultLookback = 30 * 24 * time.Hour
	earthRadiusKm   = 6371.0
)

var endpoints = map[string]string{
	APIUSGS:   "https://earthquake.usgs.gov/fdsnws/event/1/query",
	APITexNet: "https://catalog.texnet.beg.utexas.edu/fdsnws/event/1/query",
}

// Well is a saltwater disposal well location.
type Well struct {
	ID  string
	Lat float64
	Lon float64
}

// WellEvent is one catalog earthquake paired with the well it was found near.
type WellEvent struct {
	WellID     string
	EventID    string
	Time       time.Time
	Magnitude  float64
	Place      string
	Lat        float64
	Lon        float64
	DistanceKm float64
}

// Options tunes a catalog query. The zero value queries the USGS catalog for
// the last 30 days within 100 km of each well.
type Options struct {
	// API selects the catalog, APIUSGS or APITexNet.
	API string

	// MinDate and MaxDate bound the event time range, as YYYY-MM-DD.
	MinDate string
	MaxDate string

	// RadiusKm bounds the search around each well.
	RadiusKm float64

	// BaseURL overrides the catalog endpoint.
	BaseURL string

	// Client overrides http.DefaultClient.
	Client *http.Client
}

// CalculateDistances queries the catalog around every well and returns one
// row per well and event, sorted by distance.
func CalculateDistances(ctx context.Context, wells []Well, opts Options) ([]WellEvent, error) {
	api := opts.API
	if api == "" {
		api = APIUSGS
	}
	base, ok := endpoints[api]
	if !ok {
		return nil, fmt.Errorf("unknown api %q (want %q or %q)", api, APIUSGS, APITexNet)
	}
	if opts.BaseURL != "" {
		base = opts.BaseURL
	}

	minDate, maxDate, err := dateRange(opts.MinDate, opts.MaxDate)
	if err != nil {
		return nil, err
	}
	radius := opts.RadiusKm
	if radius == 0 {
		radius = defaultRadiusKm
	}
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}

	var rows []WellEvent
	for _, well := range wells {
		events, err := queryEvents(ctx, client, base, well, minDate, maxDate, radius)
		if err != nil {
			return nil, fmt.Errorf("well %s: %w", well.ID, err)
		}
		rows = append(rows, events...)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].DistanceKm < rows[j].DistanceKm })
	return rows, nil
}

// dateRange validates the bounds and fills in the default lookback window.
func dateRange(minDate, maxDate string) (string, string, error) {
	now := time.Now().UTC()
	if minDate == "" {
		minDate = now.Add(-defaultLookback).Format(dateFormat)
	}
	if maxDate == "" {
		maxDate = now.Format(dateFormat)
	}
	lo, err := time.Parse(dateFormat, minDate)
	if err != nil {
		return "", "", fmt.Errorf("malformed date %q (want YYYY-MM-DD)", minDate)
	}
	hi, err := time.Parse(dateFormat, maxDate)
	if err != nil {
		return "", "", fmt.Errorf("malformed date %q (want YYYY-MM-DD)", maxDate)
	}
	if lo.After(hi) {
		return "", "", fmt.Errorf("min date %s is after max date %s", minDate, maxDate)
	}
	return minDate, maxDate, nil
}

// featureCollection is the subset of the FDSN geojson response the ranking
// needs. Coordinates are [lon, lat, depth].
type featureCollection struct {
	Features []struct {
		ID         string `json:"id"`
		Properties struct {
			Mag   float64 `json:"mag"`
			Time  int64   `json:"time"`
			Place string  `json:"place"`
		} `json:"properties"`
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

func queryEvents(ctx context.Context, client *http.Client, base string, well Well, minDate, maxDate string, radius float64) ([]WellEvent, error) {
	q := url.Values{}
	q.Set("format", "geojson")
	q.Set("starttime", minDate)
	q.Set("endtime", maxDate)
	q.Set("latitude", strconv.FormatFloat(well.Lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(well.Lon, 'f', -1, 64))
	q.Set("maxradiuskm", strconv.FormatFloat(radius, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog query failed: %s", resp.Status)
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decode catalog response: %w", err)
	}

	rows := make([]WellEvent, 0, len(fc.Features))
	for _, f := range fc.Features {
		if len(f.Geometry.Coordinates) < 2 {
			continue
		}
		lon, lat := f.Geometry.Coordinates[0], f.Geometry.Coordinates[1]
		rows = append(rows, WellEvent{
			WellID:     well.ID,
			EventID:    f.ID,
			Time:       time.UnixMilli(f.Properties.Time).UTC(),
			Magnitude:  f.Properties.Mag,
			Place:      f.Properties.Place,
			Lat:        lat,
			Lon:        lon,
			DistanceKm: haversineKm(well.Lat, well.Lon, lat, lon),
		})
	}
	return rows, nil
}

// haversineKm returns the great-circle distance between two points.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const deg = math.Pi / 180
	dLat := (lat2 - lat1) * deg
	dLon := (lon2 - lon1) * deg
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*deg)*math.Cos(lat2*deg)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
