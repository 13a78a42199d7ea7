package table

import "github.com/jackc/pgx/v5/pgtype"

// MaxChartSeries is the number of numeric columns a chart shows.
const MaxChartSeries = 2

// NoNumericDataMessage is the informational text shown when a table has
// nothing to chart.
const NoNumericDataMessage = "No numeric data to plot."

// ChartSeries is the raw values of one numeric column. Missing entries are nil.
type ChartSeries struct {
	Name   string     `json:"name"`
	Values []*float64 `json:"values"`
}

// ChartSummary is a bar/line friendly view of a table: row indices on the
// category axis and up to two numeric columns as series.
type ChartSummary struct {
	Categories []int         `json:"categories"`
	Series     []ChartSeries `json:"series"`
}

// Max returns the largest present value across all series, or 0.
func (c ChartSummary) Max() float64 {
	var m float64
	for _, s := range c.Series {
		for _, v := range s.Values {
			if v != nil && *v > m {
				m = *v
			}
		}
	}
	return m
}

// Min returns the smallest present value across all series, or 0.
func (c ChartSummary) Min() float64 {
	var m float64
	for _, s := range c.Series {
		for _, v := range s.Values {
			if v != nil && *v < m {
				m = *v
			}
		}
	}
	return m
}

// Chart summarizes the first two numeric columns of t. ok is false when t
// has no numeric column, which is an informational state and not an error.
func Chart(t *Table) (summary ChartSummary, ok bool) {
	numeric := NumericColumns(t)
	if len(numeric) == 0 {
		return ChartSummary{}, false
	}
	if len(numeric) > MaxChartSeries {
		numeric = numeric[:MaxChartSeries]
	}

	summary.Categories = make([]int, t.rows)
	for i := range summary.Categories {
		summary.Categories[i] = i
	}
	for _, c := range numeric {
		s := ChartSeries{Name: c.Name, Values: make([]*float64, len(c.Values))}
		for i, v := range c.Values {
			if f, valid := v.(pgtype.Float8); valid && f.Valid {
				val := f.Float64
				s.Values[i] = &val
			}
		}
		summary.Series = append(summary.Series, s)
	}
	return summary, true
}
