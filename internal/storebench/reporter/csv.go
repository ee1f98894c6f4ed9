package reporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/armadaproject/storebench/internal/storebench/jobs"
)

var seriesFields = []string{"min", "max", "avg", "std_dev", "median", "pctile"}

type csvRow struct {
	names  []string
	values []string
}

func (r *csvRow) text(name, value string) {
	r.names = append(r.names, quote(name))
	r.values = append(r.values, quote(value))
}

func (r *csvRow) number(name string, value string) {
	r.names = append(r.names, quote(name))
	r.values = append(r.values, value)
}

// WriteCSVReport writes a header and a single data row. Non-numeric values are quoted.
func WriteCSVReport(w io.Writer, rs *RunStats) error {
	row := &csvRow{}
	if rs.Scenario != nil {
		row.text("scenario_name", rs.Scenario.Name())
		row.number("scenario_user_count", fmt.Sprint(rs.Scenario.UserCount()))
		row.number("scenario_operation_count", fmt.Sprint(rs.Scenario.OperationCount()))
	}
	row.number("scenario_percentile", formatFloat(rs.Percentile))
	row.number("scenario_worker_count", fmt.Sprint(len(rs.Workers)))
	row.number("scenario_skipped", fmt.Sprint(rs.Skipped))
	row.number("scenario_start", formatFloat(rs.Aggregate.Start))
	row.number("scenario_stop", formatFloat(rs.Aggregate.Stop))

	sizes := rs.SizeOrder()
	addOp(row, "total", rs.Aggregate, sizes)
	for _, op := range jobs.CrudTypes {
		addOp(row, strings.ToLower(op.Label()), rs.Ops[op], sizes)
	}

	out := strings.Join(row.names, ",") + "\n" + strings.Join(row.values, ",") + "\n"
	_, err := io.WriteString(w, out)
	return errors.WithStack(err)
}

func addOp(row *csvRow, op string, node *Stats, sizes []string) {
	row.number(op+"_count", fmt.Sprint(node.ReqCount))
	row.number(op+"_errors", fmt.Sprint(node.Errors))
	row.number(op+"_retries", fmt.Sprint(node.Retries))
	row.number(op+"_retry_rate", formatFloat(node.RetryRate))
	row.number(op+"_avg_req_per_s", formatFloat(node.AvgReqPerSec))

	for _, latency := range []string{"first_byte", "last_byte"} {
		addSeries(row, op+"_"+latency+"_all", pickSeries(node, latency))
		for _, size := range sizes {
			var series SeriesStats
			if child, ok := node.SizeStats[size]; ok {
				series = pickSeries(child, latency)
			}
			addSeries(row, op+"_"+latency+"_"+size, series)
		}
	}
}

func pickSeries(s *Stats, latency string) SeriesStats {
	if latency == "first_byte" {
		return s.FirstByteLatency
	}
	return s.LastByteLatency
}

func addSeries(row *csvRow, prefix string, s SeriesStats) {
	values := []float64{s.Min, s.Max, s.Avg, s.StdDev, s.Median, s.Pctile}
	for i, field := range seriesFields {
		if !s.Valid {
			row.text(prefix+"_"+field, "N/A")
			continue
		}
		row.number(prefix+"_"+field, formatFloat(values[i]))
	}
}

// WriteRPSHistogram writes requests completed per second, one row per second of the run.
func WriteRPSHistogram(w io.Writer, rs *RunStats) error {
	var sb strings.Builder
	sb.WriteString(`"Seconds Since Start","Requests Completed"` + "\n")
	for i, n := range rs.TimeSeries.Counts {
		fmt.Fprintf(&sb, "%d,%d\n", i+1, n)
	}
	_, err := io.WriteString(w, sb.String())
	return errors.WithStack(err)
}
