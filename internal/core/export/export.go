// Package export renders a batch as a downloadable SQL script.
package export

import (
	"strings"

	"github.com/example/migreview/internal/models"
)

const (
	commentPrefix = "-- "
	header        = "-- postgres:\n"
	terminator    = ";"
)

// FileName returns the export artifact name for a batch.
func FileName(batchID string) string {
	return batchID + "_export.sql"
}

// Format renders every statement as its commented-out original followed by
// its translation. Output depends only on statement contents and order.
func Format(stmts []models.Statement) string {
	blocks := make([]string, len(stmts))
	for i, stmt := range stmts {
		blocks[i] = formatStatement(stmt)
	}
	return strings.Join(blocks, "\n")
}

// FormatBatch is Format over a batch's statements.
func FormatBatch(b models.Batch) string {
	return Format(b.Statements())
}

func formatStatement(stmt models.Statement) string {
	var sb strings.Builder
	sb.WriteString(header)
	for i, line := range strings.Split(stmt.Original, "\n") {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(commentPrefix)
		sb.WriteString(line)
	}
	sb.WriteString("\n")

	translated := stmt.Cockroach
	if translated != "" && !strings.HasSuffix(translated, terminator) {
		translated += terminator
	}
	sb.WriteString(translated)
	sb.WriteString("\n")
	return sb.String()
}
