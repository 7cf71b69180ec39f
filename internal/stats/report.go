package stats

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

var rule = strings.Repeat("=", 60)

// WriteReport renders the human-readable summary report
func WriteReport(w io.Writer, s Summary) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "\n%s\nEXTRACTION STATISTICS\n%s\n", rule, rule)
	fmt.Fprintf(bw, "Total records: %d\n", s.Total)

	if len(s.ByKind) > 0 {
		fmt.Fprintf(bw, "\nBy OSM type:\n")
		writeCounts(bw, s.ByKind)
	}
	if len(s.BySubtype) > 0 {
		fmt.Fprintf(bw, "\nBy subtype:\n")
		writeCounts(bw, s.BySubtype)
	}

	fmt.Fprintf(bw, "\nWith names: %d (%.1f%%)\n", s.WithNames, s.Percent(s.WithNames))
	fmt.Fprintf(bw, "With coordinates: %d (%.1f%%)\n", s.WithCoordinates, s.Percent(s.WithCoordinates))
	fmt.Fprintf(bw, "Without coordinates: %d (%.1f%%)\n", s.WithoutCoordinates, s.Percent(s.WithoutCoordinates))

	for _, f := range s.Fields {
		fmt.Fprintf(bw, "\nWith %s: %d (%.1f%%)\n", f.Label, f.Present, s.Percent(f.Present))
		if len(f.Top) == 0 {
			continue
		}
		fmt.Fprintf(bw, "Top %s (%d of %d distinct):\n", f.Field, len(f.Top), f.Distinct)
		writeCounts(bw, f.Top)
	}

	fmt.Fprintf(bw, "%s\n", rule)
	return bw.Flush()
}

func writeCounts(w io.Writer, counts []Count) {
	for _, c := range counts {
		fmt.Fprintf(w, "  %s: %d\n", c.Label, c.Count)
	}
}

// LogSummary writes the headline numbers as one structured log line
func LogSummary(log *zap.Logger, s Summary) {
	fields := []zap.Field{
		zap.Int64("records", s.Total),
		zap.Int64("with_names", s.WithNames),
		zap.Float64("names_pct", s.Percent(s.WithNames)),
		zap.Int64("with_coordinates", s.WithCoordinates),
		zap.Float64("coordinates_pct", s.Percent(s.WithCoordinates)),
	}
	for _, c := range s.BySubtype {
		fields = append(fields, zap.Int64(c.Label, c.Count))
	}
	log.Info("Extraction summary", fields...)
}
