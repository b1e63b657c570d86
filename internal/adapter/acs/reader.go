// Package acs reads American Community Survey tract extracts: household
// vehicle counts and income/population tables keyed by tract_geoid.
package acs

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/hail-risk-etl/internal/domain"
)

// KeyColumn joins ACS rows to tract geometries.
const KeyColumn = "tract_geoid"

// Reader loads ACS attribute tables from CSV files.
type Reader struct{}

// NewReader creates an ACS table reader.
func NewReader() *Reader { return &Reader{} }

// ReadVehicles reads a state's vehicle ownership table. Every bucket column
// must be present or a *domain.MissingColumnError is returned. Empty cells
// count as zero; any other non-integer cell is an error naming the line.
func (r *Reader) ReadVehicles(state, path string) ([]domain.VehicleRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vehicle table: %w", err)
	}
	defer f.Close()
	return parseVehicles(state, f)
}

// ReadIncome reads a state's income table. The file is optional: a missing
// file returns an error matching fs.ErrNotExist. Each value column is
// optional, and empty or non-numeric cells are left nil.
func (r *Reader) ReadIncome(path string) ([]domain.IncomeRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open income table: %w", err)
	}
	defer f.Close()
	return parseIncome(f)
}

type table struct {
	cr     *csv.Reader
	header map[string]int
}

func newTable(r io.Reader) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &table{cr: cr, header: map[string]int{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	return &table{cr: cr, header: idx}, nil
}

func (t *table) columns() []string {
	cols := make([]string, 0, len(t.header))
	for c := range t.header {
		cols = append(cols, c)
	}
	return cols
}

// next returns the next row and its line number, or io.EOF.
func (t *table) next() ([]string, int, error) {
	row, err := t.cr.Read()
	if err != nil {
		return nil, 0, err
	}
	line, _ := t.cr.FieldPos(0)
	return row, line, nil
}

func (t *table) cell(row []string, col string) string {
	i, ok := t.header[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseVehicles(state string, r io.Reader) ([]domain.VehicleRow, error) {
	t, err := newTable(r)
	if err != nil {
		return nil, fmt.Errorf("vehicle table for %s: %w", state, err)
	}
	required := append([]string{KeyColumn}, domain.VehicleColumns[:]...)
	if missing := domain.MissingColumns(t.columns(), required); len(missing) > 0 {
		return nil, &domain.MissingColumnError{State: state, Columns: missing}
	}

	var rows []domain.VehicleRow
	for {
		row, line, err := t.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("vehicle table for %s: %w", state, err)
		}
		v := domain.VehicleRow{GEOID: domain.NormalizeGEOID(t.cell(row, KeyColumn))}
		for i, col := range domain.VehicleColumns {
			n, err := parseCount(t.cell(row, col))
			if err != nil {
				return nil, fmt.Errorf("vehicle table for %s: line %d column %s: %w", state, line, col, err)
			}
			v.Buckets[i] = n
		}
		rows = append(rows, v)
	}
	return rows, nil
}

func parseIncome(r io.Reader) ([]domain.IncomeRow, error) {
	t, err := newTable(r)
	if err != nil {
		return nil, fmt.Errorf("income table: %w", err)
	}
	if _, ok := t.header[KeyColumn]; !ok && len(t.header) > 0 {
		return nil, fmt.Errorf("income table missing %s column", KeyColumn)
	}

	var rows []domain.IncomeRow
	for {
		row, _, err := t.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("income table: %w", err)
		}
		rows = append(rows, domain.IncomeRow{
			GEOID:           domain.NormalizeGEOID(t.cell(row, KeyColumn)),
			TotalPopulation: optionalFloat(t.cell(row, domain.ColumnTotalPopulation)),
			MedianIncome:    optionalFloat(t.cell(row, domain.ColumnMedianIncome)),
			PerCapitaIncome: optionalFloat(t.cell(row, domain.ColumnPerCapitaIncome)),
		})
	}
	return rows, nil
}

// parseCount parses a household count. Counts may be written as "12" or
// "12.0"; fractional, negative, non-numeric and out-of-range values are
// rejected.
func parseCount(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative count %q", s)
		}
		if n > domain.MaxBucketCount {
			return 0, fmt.Errorf("count %q out of range", s)
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("invalid count %q", s)
	}
	if f < 0 {
		return 0, fmt.Errorf("negative count %q", s)
	}
	if f > float64(domain.MaxBucketCount) {
		return 0, fmt.Errorf("count %q out of range", s)
	}
	return int64(f), nil
}

// optionalFloat returns nil for empty, non-numeric or non-finite input.
func optionalFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
