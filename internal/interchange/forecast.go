package interchange

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jgoulah/gridcast/pkg/models"
)

// WriteForecast writes ds,yhat and, when any point has bounds, yhat_lower,yhat_upper.
// Points without bounds leave the bound columns empty.
func WriteForecast(w io.Writer, fc models.ForecastSeries) error {
	withBounds := fc.HasBounds()

	header := []string{"ds", "yhat"}
	if withBounds {
		header = append(header, "yhat_lower", "yhat_upper")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, p := range fc.Points {
		record := []string{p.Date.Format("2006-01-02"), formatFloat(p.Yhat)}
		if withBounds {
			if p.Bounds != nil {
				record = append(record, formatFloat(p.Bounds.Lower), formatFloat(p.Bounds.Upper))
			} else {
				record = append(record, "", "")
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadForecast parses an external forecast table (ds, yhat, optional yhat_lower and
// yhat_upper). Bounds must both be present on a row and satisfy lower <= yhat <= upper.
// Dates are interpreted in loc (UTC when nil) and the result is sorted by date.
func ReadForecast(r io.Reader, source string, loc *time.Location) (models.ForecastSeries, error) {
	if loc == nil {
		loc = time.UTC
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	cols, err := readHeader(reader, "ds", "yhat")
	if err != nil {
		return models.ForecastSeries{}, err
	}
	lowerIdx, hasLower := cols["yhat_lower"]
	upperIdx, hasUpper := cols["yhat_upper"]
	if hasLower != hasUpper {
		return models.ForecastSeries{}, fmt.Errorf("yhat_lower and yhat_upper must be given together")
	}

	fc := models.ForecastSeries{Source: source}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return models.ForecastSeries{}, fmt.Errorf("reading record: %w", err)
		}

		ds, err := parseTimestamp(record[cols["ds"]], loc)
		if err != nil {
			return models.ForecastSeries{}, fmt.Errorf("line %d: %w", line, err)
		}
		yhat, err := parseFinite(record[cols["yhat"]])
		if err != nil {
			return models.ForecastSeries{}, fmt.Errorf("line %d: parsing yhat: %w", line, err)
		}

		p := models.ForecastPoint{Date: models.DateOf(ds), Yhat: yhat}
		if hasLower {
			bounds, err := parseBounds(record[lowerIdx], record[upperIdx], yhat)
			if err != nil {
				return models.ForecastSeries{}, fmt.Errorf("line %d: %w", line, err)
			}
			p.Bounds = bounds
		}
		fc.Points = append(fc.Points, p)
	}

	sort.SliceStable(fc.Points, func(i, j int) bool {
		return models.DateKey(fc.Points[i].Date) < models.DateKey(fc.Points[j].Date)
	})
	return fc, nil
}

func parseBounds(lowerStr, upperStr string, yhat float64) (*models.Bounds, error) {
	lowerStr, upperStr = strings.TrimSpace(lowerStr), strings.TrimSpace(upperStr)
	if lowerStr == "" && upperStr == "" {
		return nil, nil
	}
	if lowerStr == "" || upperStr == "" {
		return nil, fmt.Errorf("yhat_lower and yhat_upper must be given together")
	}

	lower, err := parseFinite(lowerStr)
	if err != nil {
		return nil, fmt.Errorf("parsing yhat_lower: %w", err)
	}
	upper, err := parseFinite(upperStr)
	if err != nil {
		return nil, fmt.Errorf("parsing yhat_upper: %w", err)
	}
	if lower > yhat || yhat > upper {
		return nil, fmt.Errorf("bounds must satisfy yhat_lower <= yhat <= yhat_upper (got %v <= %v <= %v)", lower, yhat, upper)
	}

	return &models.Bounds{Lower: lower, Upper: upper}, nil
}

// WriteMetrics writes metrics as labeled lines, the format the dashboard displays verbatim
func WriteMetrics(w io.Writer, m models.Metrics) error {
	_, err := fmt.Fprintf(w, "MAE: %s\nRMSE: %s\n", formatFloat(m.MAE), formatFloat(m.RMSE))
	return err
}

// ReadMetrics parses the output of WriteMetrics. Unknown labels are ignored; MAE and RMSE
// are both required.
func ReadMetrics(r io.Reader) (models.Metrics, error) {
	var m models.Metrics
	var haveMAE, haveRMSE bool

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		label, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		v, err := parseFinite(value)
		if err != nil {
			return models.Metrics{}, fmt.Errorf("parsing %s: %w", strings.TrimSpace(label), err)
		}
		switch strings.ToUpper(strings.TrimSpace(label)) {
		case "MAE":
			m.MAE, haveMAE = v, true
		case "RMSE":
			m.RMSE, haveRMSE = v, true
		}
	}
	if err := scanner.Err(); err != nil {
		return models.Metrics{}, fmt.Errorf("reading metrics: %w", err)
	}
	if !haveMAE || !haveRMSE {
		return models.Metrics{}, fmt.Errorf("metrics must contain MAE and RMSE")
	}

	return m, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
