package source

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// XLSXReader handles spreadsheets. The first sheet is read as a table in
// the same way as CSV, so a spreadsheet export round-trips.
type XLSXReader struct{}

func (p *XLSXReader) Read(r io.Reader, filename string) (*Document, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	d := &Document{Title: titleOf(filename)}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return d, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	d.Text = tableText(rows)
	return d, nil
}
