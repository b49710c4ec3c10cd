// Package cli formats command output for the portfolio agent binary.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hyperjump/portfolio-agent/internal/models"
	"github.com/hyperjump/portfolio-agent/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a -output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use text or json)", s)
	}
}

// SearchOutput is the JSON shape of a search command result.
type SearchOutput struct {
	Query     string         `json:"query"`
	QueryTime int64          `json:"query_time_ms"`
	Matches   []models.Match `json:"matches"`
	Error     string         `json:"error,omitempty"`
}

// WriteMatches writes retrieval matches for query to w in the given format.
// retrievalErr is reported alongside the (empty) matches when retrieval degraded.
func WriteMatches(w io.Writer, query string, matches []models.Match, took time.Duration, retrievalErr error, format OutputFormat) error {
	out := SearchOutput{
		Query:     query,
		QueryTime: took.Milliseconds(),
		Matches:   matches,
	}
	if out.Matches == nil {
		out.Matches = []models.Match{}
	}
	if retrievalErr != nil {
		out.Error = retrievalErr.Error()
	}
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	default:
		writeMatchesText(w, out)
		return nil
	}
}

func writeMatchesText(w io.Writer, out SearchOutput) {
	fmt.Fprintf(w, "\nFound %d matches for %q in %dms\n\n", len(out.Matches), out.Query, out.QueryTime)
	if out.Error != "" {
		fmt.Fprintf(w, "retrieval degraded: %s\n\n", out.Error)
	}
	for i, m := range out.Matches {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f | ID: %s\n", i+1, m.Score, m.Record.ID)
		if m.Record.Metadata.Source != "" {
			fmt.Fprintf(w, "Source: %s\n", m.Record.Metadata.Source)
		}
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(m.Record.Metadata.Text, 200))
	}
}

// WriteReport writes an ingestion summary to w in the given format.
func WriteReport(w io.Writer, report models.IngestReport, took time.Duration, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	fmt.Fprintf(w, "Ingested %d documents into %d chunks in %s\n", report.Documents, report.Chunks, took.Round(time.Millisecond))
	fmt.Fprintf(w, "  embedded: %d\n", report.Embedded)
	fmt.Fprintf(w, "  skipped:  %d\n", report.Skipped)
	fmt.Fprintf(w, "  batches:  %d uploaded, %d failed\n", report.Batches, report.FailedBatches)
	return nil
}
