package domain

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

var (
	// sourceOfficeRe matches a 3-5 letter NWS office code in parentheses at the
	// end of a comment, e.g. "Quarter hail reported. (FWD)" -> "FWD".
	sourceOfficeRe = regexp.MustCompile(`\(([A-Z]{3,5})\)\s*$`)

	// locationRe parses NWS-style relative locations: "<distance> <compass> <name>",
	// e.g. "8 ESE Chappel" -> distance=8, direction=ESE, name=Chappel.
	locationRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s+([NSEW]{1,3})\s+(.+)$`)
)

// HailPoint is one SPC hail report.
type HailPoint struct {
	Time     string
	Size     string
	Location string
	County   string
	State    string
	Lat      float64
	Lon      float64
	Comments string

	SizeInches   float64
	PlaceName    string
	SourceOffice string

	// ContainingGEOID is set by the spatial join for points strictly inside a
	// tract. Empty for points on a tract boundary.
	ContainingGEOID string
}

// ParseStats counts rows dropped while parsing a hail report.
type ParseStats struct {
	Rows          int
	MissingCoords int
	MalformedRows int
}

// Dropped returns the total number of rows excluded.
func (s ParseStats) Dropped() int { return s.MissingCoords + s.MalformedRows }

// ParseHailReport reads an SPC hail CSV. Rows without a usable Lat or Lon and
// rows with the wrong number of fields are excluded, never fatal. An empty
// input yields no points. Only a missing Lat/Lon header is an error.
func ParseHailReport(r io.Reader) ([]HailPoint, ParseStats, error) {
	var stats ParseStats
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, stats, nil
	}
	if err != nil {
		return nil, stats, fmt.Errorf("read hail report header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		idx[header[i]] = i
	}
	if missing := MissingColumns(header, []string{"Lat", "Lon"}); len(missing) > 0 {
		return nil, stats, fmt.Errorf("hail report missing columns: %s", strings.Join(missing, ", "))
	}

	var points []HailPoint
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		stats.Rows++
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return nil, stats, fmt.Errorf("read hail report: %w", err)
			}
			stats.MalformedRows++
			continue
		}
		if len(row) != len(header) {
			stats.MalformedRows++
			continue
		}
		field := func(name string) string {
			if i, ok := idx[name]; ok {
				return strings.TrimSpace(row[i])
			}
			return ""
		}

		lat, okLat := parseFloat(field("Lat"))
		lon, okLon := parseFloat(field("Lon"))
		if !okLat || !okLon {
			stats.MissingCoords++
			continue
		}

		p := HailPoint{
			Time:     field("Time"),
			Size:     field("Size"),
			Location: field("Location"),
			County:   field("County"),
			State:    field("State"),
			Lat:      lat,
			Lon:      lon,
			Comments: field("Comments"),
		}
		points = append(points, EnrichHailPoint(p))
	}
	return points, stats, nil
}

// EnrichHailPoint derives the display fields of a parsed report: size in
// inches, place name and NWS source office.
func EnrichHailPoint(p HailPoint) HailPoint {
	size, _ := parseFloat(p.Size)
	p.SizeInches = normalizeHailSize(size)
	p.PlaceName = parsePlaceName(p.Location)
	p.SourceOffice = extractSourceOffice(p.Comments)
	return p
}

// parseFloat parses a trimmed float, rejecting empty, NaN and infinite input.
func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !finite(v) {
		return 0, false
	}
	return v, true
}

// normalizeHailSize converts SPC hail sizes to inches. The filtered feed
// encodes diameter in hundredths of inches (175 = 1.75in). Values >= 10 are
// assumed to use this encoding; the largest US hailstone on record is about
// 8 inches.
func normalizeHailSize(size float64) float64 {
	if size >= 10 {
		return size / 100.0
	}
	return size
}

// parsePlaceName returns the place of an NWS relative location
// ("8 ESE Chappel" -> "Chappel"), or the whole string if it has no offset.
func parsePlaceName(location string) string {
	location = strings.TrimSpace(location)
	if m := locationRe.FindStringSubmatch(location); len(m) == 4 {
		return strings.TrimSpace(m[3])
	}
	return location
}

// extractSourceOffice pulls the NWS Weather Forecast Office code from the end
// of a comment, e.g. "Large hail reported. (OUN)" -> "OUN".
func extractSourceOffice(comments string) string {
	if m := sourceOfficeRe.FindStringSubmatch(strings.TrimSpace(comments)); len(m) == 2 {
		return m[1]
	}
	return ""
}
