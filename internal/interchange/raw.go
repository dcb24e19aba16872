package interchange

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jgoulah/gridcast/pkg/models"
)

// RawHeader is the column layout of the raw usage table
var RawHeader = []string{"timestamp", "appliance_id", "appliance_name", "user_id", "usage"}

// timestampLayouts are tried in order when parsing timestamps and dates
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// WriteReadings writes the raw table as CSV with a header row
func WriteReadings(w io.Writer, readings []models.UsageReading) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RawHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, r := range readings {
		record := []string{
			r.Timestamp.Format(time.RFC3339),
			strconv.Itoa(r.ApplianceID),
			string(r.ApplianceName),
			r.UserID,
			strconv.FormatFloat(r.Usage, 'f', -1, 64),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadReadings parses a raw table. Columns are matched by header name; timestamps without an
// offset are interpreted in loc (UTC when nil).
func ReadReadings(r io.Reader, loc *time.Location) ([]models.UsageReading, error) {
	if loc == nil {
		loc = time.UTC
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	cols, err := readHeader(reader, RawHeader...)
	if err != nil {
		return nil, err
	}

	var readings []models.UsageReading
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading record: %w", err)
		}

		ts, err := parseTimestamp(record[cols["timestamp"]], loc)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		applianceID, err := strconv.Atoi(strings.TrimSpace(record[cols["appliance_id"]]))
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing appliance_id: %w", line, err)
		}
		usage, err := parseFinite(record[cols["usage"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing usage: %w", line, err)
		}
		if usage < 0 {
			return nil, fmt.Errorf("line %d: usage must not be negative (got %v)", line, usage)
		}

		readings = append(readings, models.UsageReading{
			Timestamp:     ts,
			ApplianceID:   applianceID,
			ApplianceName: models.ApplianceType(strings.TrimSpace(record[cols["appliance_name"]])),
			UserID:        strings.TrimSpace(record[cols["user_id"]]),
			Usage:         usage,
		})
	}

	return readings, nil
}

// readHeader reads the header row and returns the index of every required column
func readHeader(reader *csv.Reader, required ...string) (map[string]int, error) {
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	return cols, nil
}

func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse timestamp: %s", s)
}

// parseFinite parses a float, rejecting NaN and infinities
func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("value must be finite (got %s)", strings.TrimSpace(s))
	}
	return v, nil
}
