package reporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/armadaproject/storebench/internal/common/util"
	"github.com/armadaproject/storebench/internal/storebench/jobs"
)

const subIndent = "       "

// WriteTextReport renders the fixed width report. The output depends on the stats alone.
func WriteTextReport(w io.Writer, rs *RunStats) error {
	var sb strings.Builder
	writeComposition(&sb, rs)

	sb.WriteString("\n")
	writeSection(&sb, "TOTAL", rs.Aggregate, rs)
	for _, op := range jobs.CrudTypes {
		sb.WriteString("\n")
		writeSection(&sb, op.Label(), rs.Ops[op], rs)
	}

	dist := rs.WorkerDistribution()
	fmt.Fprintf(&sb, "\nDistribution of requests per worker-ID: %.3f - %.3f (avg: %.3f; stddev: %.3f)\n",
		dist.Min, dist.Max, dist.Avg, dist.StdDev)
	if rs.Skipped > 0 {
		fmt.Fprintf(&sb, "Skipped %d invalid results\n", rs.Skipped)
	}

	_, err := io.WriteString(w, sb.String())
	return errors.WithStack(err)
}

func writeComposition(sb *strings.Builder, rs *RunStats) {
	sc := rs.Scenario
	if sc == nil {
		return
	}
	totalInitial := 0
	for _, size := range sc.Sizes() {
		totalInitial += sc.InitialFiles(size.Name)
	}
	fmt.Fprintf(sb, "Scenario: %s\n", sc.Name())
	fmt.Fprintf(sb, "  user count:      %d\n", sc.UserCount())
	fmt.Fprintf(sb, "  operation count: %d\n", sc.OperationCount())
	fmt.Fprintf(sb, "  initial files:   %d\n", totalInitial)

	pct := sc.CrudPercentages()
	table := util.NewTableBuilder("  ", 2)
	table.Row("size", "container", "object size", "initial", "share", "CREATE", "READ", "UPDATE", "DELETE")
	for _, size := range sc.Sizes() {
		initial := sc.InitialFiles(size.Name)
		share := 0.0
		if totalInitial > 0 {
			share = 100 * float64(initial) / float64(totalInitial)
		}
		objectSize := SizeFmt(size.SizeMin)
		if size.SizeMax > size.SizeMin {
			objectSize += " - " + SizeFmt(size.SizeMax)
		}
		mix := pct.Sizes[size.Name]
		table.Row(size.Name, size.Container, objectSize, fmt.Sprint(initial), fmt.Sprintf("%.1f%%", share),
			fmt.Sprintf("%.1f%%", mix[0]), fmt.Sprintf("%.1f%%", mix[1]), fmt.Sprintf("%.1f%%", mix[2]), fmt.Sprintf("%.1f%%", mix[3]))
	}
	sb.WriteString("\n")
	sb.WriteString(table.String())
	w := pct.Weighted
	fmt.Fprintf(sb, "  weighted CRUD mix: CREATE %.1f%%  READ %.1f%%  UPDATE %.1f%%  DELETE %.1f%%\n", w[0], w[1], w[2], w[3])
}

func writeSection(sb *strings.Builder, title string, node *Stats, rs *RunStats) {
	sb.WriteString(title + "\n")
	writeNode(sb, subIndent, node, rs.Percentile)
	for _, size := range rs.SizeOrder() {
		child, ok := node.SizeStats[size]
		if !ok || child.ReqCount < 1 {
			continue
		}
		fmt.Fprintf(sb, "%s%s\n", subIndent, size)
		writeNode(sb, subIndent+"  ", child, rs.Percentile)
	}
}

func writeNode(sb *strings.Builder, indent string, s *Stats, pctile float64) {
	fmt.Fprintf(sb, "%sCount: %8d (%6d error; %6d retries: %6.2f%%)  Average requests per second: %7.1f\n",
		indent, s.ReqCount, s.Errors, s.Retries, s.RetryRate, s.AvgReqPerSec)
	fmt.Fprintf(sb, "%s%-19s %8s %8s %8s %8s %8s %8s  %s\n",
		indent, "", "min", "max", "avg", "std_dev", percentileLabel(pctile), "median", "Worst latency TX ID")
	writeLatency(sb, indent, "First-byte latency:", s.FirstByteLatency, s.WorstFirstByte)
	writeLatency(sb, indent, "Last-byte  latency:", s.LastByteLatency, s.WorstLastByte)
}

func writeLatency(sb *strings.Builder, indent, label string, series SeriesStats, worst Worst) {
	f := func(v float64) string {
		if !series.Valid {
			return "N/A"
		}
		return fmt.Sprintf("%.3f", v)
	}
	worstText := "N/A"
	if worst.Valid {
		worstText = fmt.Sprintf("%.3f (%s)", worst.Latency, worst.TransID)
	}
	fmt.Fprintf(sb, "%s%-19s %8s %8s %8s %8s %8s %8s  %s\n",
		indent, label, f(series.Min), f(series.Max), f(series.Avg), f(series.StdDev), f(series.Pctile), f(series.Median), worstText)
}
