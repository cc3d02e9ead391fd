package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/chatexport/internal/conversation"
)

// CSVReader handles CSV files. A table with a role column and a content
// column (as written by spreadsheet exports) yields one labelled turn per
// row; any other table is flattened to one line per row.
type CSVReader struct{}

func (p *CSVReader) Read(r io.Reader, filename string) (*Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return &Document{Title: titleOf(filename), Text: tableText(records)}, nil
}

var (
	roleHeaders    = []string{"role", "speaker", "author", "sender", "from"}
	contentHeaders = []string{"content", "message", "text", "body"}
)

// tableText converts rows whose first row is a header. Role values are
// written as marker labels so the conversation parser recovers the turns.
func tableText(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	roleCol := column(rows[0], roleHeaders)
	contentCol := column(rows[0], contentHeaders)

	if roleCol < 0 || contentCol < 0 {
		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			lines = append(lines, strings.Join(row, " | "))
		}
		return strings.TrimSpace(strings.Join(lines, "\n"))
	}

	var blocks []string
	for _, row := range rows[1:] {
		if roleCol >= len(row) || contentCol >= len(row) {
			continue
		}
		role := strings.TrimSpace(row[roleCol])
		content := strings.TrimSpace(row[contentCol])
		if role == "" || content == "" {
			continue
		}
		// Role names are normalised; other values ("ChatGPT") are kept
		// as written for the marker set to classify.
		if r := conversation.ParseRole(role); r != conversation.RoleUnknown {
			role = r.DisplayName()
		}
		blocks = append(blocks, speakerBlock(role, content))
	}
	return joinBlocks(blocks)
}

func column(header []string, names []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, n := range names {
			if h == n {
				return i
			}
		}
	}
	return -1
}
