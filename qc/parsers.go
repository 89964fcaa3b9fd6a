// Package qc loads quality-control lookup tables.
//
// Calibration teams deliver QC parameters as CSV: one row per
// (reference designator, parameter) pair.  Each parser turns a table
// into keyed documents suitable for the stored-value store, which the
// QC algorithms read at evaluation time.
package qc

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// KV is one stored-value document with its key.
type KV struct {
	Key string
	Doc map[string]interface{}
}

func key(check, refdes, param string) string {
	return check + "_" + refdes + "_" + param
}

type rowParser func(fields []string) (*KV, error)

func parseCSV(r io.Reader, width int, parse rowParser) ([]KV, error) {
	c := csv.NewReader(r)
	c.TrimLeadingSpace = true

	var acc []KV
	for line := 1; ; line++ {
		fields, err := c.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(fields) != width {
			return nil, fmt.Errorf("line %d: want %d fields, got %d", line, width, len(fields))
		}
		if line == 1 && !numeric(fields[width-1]) {
			// Header row.
			continue
		}
		kv, err := parse(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %v", line, err)
		}
		acc = append(acc, *kv)
	}

	return acc, nil
}

func numeric(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}

func floats(fields []string) ([]float64, error) {
	acc := make([]float64, len(fields))
	for i, f := range fields {
		x, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, err
		}
		acc[i] = x
	}
	return acc, nil
}

// ParseGlobalRange reads a global range table.
//
// Columns: refdes, parameter, min, max.
func ParseGlobalRange(r io.Reader) ([]KV, error) {
	return parseCSV(r, 4, func(fields []string) (*KV, error) {
		fs, err := floats(fields[2:])
		if err != nil {
			return nil, err
		}
		return &KV{
			Key: key("grt", fields[0], fields[1]),
			Doc: map[string]interface{}{
				"grt_min_value": fs[0],
				"grt_max_value": fs[1],
			},
		}, nil
	})
}

// ParseSpike reads a spike test table.
//
// Columns: refdes, parameter, acc, spike_n, spike_l.
func ParseSpike(r io.Reader) ([]KV, error) {
	return parseCSV(r, 5, func(fields []string) (*KV, error) {
		fs, err := floats(fields[2:])
		if err != nil {
			return nil, err
		}
		return &KV{
			Key: key("spike", fields[0], fields[1]),
			Doc: map[string]interface{}{
				"acc":     fs[0],
				"spike_n": fs[1],
				"spike_l": fs[2],
			},
		}, nil
	})
}

// ParseStuckValue reads a stuck value test table.
//
// Columns: refdes, parameter, resolution, n.
func ParseStuckValue(r io.Reader) ([]KV, error) {
	return parseCSV(r, 4, func(fields []string) (*KV, error) {
		fs, err := floats(fields[2:])
		if err != nil {
			return nil, err
		}
		return &KV{
			Key: key("svt", fields[0], fields[1]),
			Doc: map[string]interface{}{
				"svt_resolution": fs[0],
				"svt_n":          fs[1],
			},
		}, nil
	})
}

// ParseTrend reads a trend test table.
//
// Columns: refdes, parameter, time_interval, polynomial_order,
// standard_deviation.
func ParseTrend(r io.Reader) ([]KV, error) {
	return parseCSV(r, 5, func(fields []string) (*KV, error) {
		fs, err := floats(fields[2:])
		if err != nil {
			return nil, err
		}
		return &KV{
			Key: key("trend", fields[0], fields[1]),
			Doc: map[string]interface{}{
				"time_interval":      fs[0],
				"polynomial_order":   fs[1],
				"standard_deviation": fs[2],
			},
		}, nil
	})
}
