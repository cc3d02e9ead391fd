package render

import (
	"fmt"
	"unicode/utf8"

	"github.com/dgallion1/chatexport/internal/conversation"
	"github.com/xuri/excelize/v2"
)

const (
	xlsxSheet = "Conversation"

	// Excel limits.
	xlsxMaxCellChars = excelize.TotalCellChars
	xlsxMaxRowHeight = 409.0
	xlsxMinRowHeight = 20.0
)

var (
	xlsxHeaders   = []any{"Index", "Role", "Content", "Characters"}
	xlsxColWidths = []float64{8, 15, 100, 12}
)

// XLSX renders a spreadsheet with one row per turn, a frozen header row and
// an optional summary block.
type XLSX struct{}

func (XLSX) Format() Format { return FormatXLSX }

func (XLSX) Render(conv *conversation.Conversation, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	pal := NewPalette(opts.Colors)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}
	st, err := newSheetStyles(f, pal, opts.FontName)
	if err != nil {
		return nil, err
	}

	for i, w := range xlsxColWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(xlsxSheet, col, col, w); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	if err := f.SetSheetRow(xlsxSheet, "A1", &xlsxHeaders); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if err := f.SetCellStyle(xlsxSheet, "A1", "D1", st.header); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}
	if err := f.SetRowHeight(xlsxSheet, 1, 24); err != nil {
		return nil, fmt.Errorf("size header: %w", err)
	}

	row := 2
	if conv.Empty() {
		if err := f.SetSheetRow(xlsxSheet, "A2", &[]any{"", "", noContent, 0}); err != nil {
			return nil, fmt.Errorf("write placeholder: %w", err)
		}
		if err := f.SetCellStyle(xlsxSheet, "A2", "D2", st.body); err != nil {
			return nil, fmt.Errorf("style placeholder: %w", err)
		}
		row++
	}

	for _, t := range conv.Turns() {
		if err := writeTurnRow(f, st, row, t); err != nil {
			return nil, fmt.Errorf("write turn %d: %w", t.Index, err)
		}
		row++
	}

	if opts.IncludeStatistics {
		if err := writeSummary(f, st, row+1, conv.Stats()); err != nil {
			return nil, fmt.Errorf("write summary: %w", err)
		}
	}

	err = f.SetPanes(xlsxSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
		Selection: []excelize.Selection{
			{SQRef: "A2", ActiveCell: "A2", Pane: "bottomLeft"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return canonicalZip(buf.Bytes())
}

type sheetStyles struct {
	header, center, body, label, value int
	role                               map[conversation.Role]int
}

func newSheetStyles(f *excelize.File, pal Palette, fontName string) (sheetStyles, error) {
	border := []excelize.Border{
		{Type: "left", Color: borderColor, Style: 1},
		{Type: "right", Color: borderColor, Style: 1},
		{Type: "top", Color: borderColor, Style: 1},
		{Type: "bottom", Color: borderColor, Style: 1},
	}
	font := func(bold bool, color string, size float64) *excelize.Font {
		return &excelize.Font{Bold: bold, Color: color, Size: size, Family: fontName}
	}

	var st sheetStyles
	defs := []struct {
		dst   *int
		style *excelize.Style
	}{
		{&st.header, &excelize.Style{
			Font:      font(true, "FFFFFF", 12),
			Fill:      excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
			Border:    border,
		}},
		{&st.center, &excelize.Style{
			Font:      font(false, contentColor, 10),
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
			Border:    border,
		}},
		{&st.body, &excelize.Style{
			Font:      font(false, contentColor, 10),
			Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
			Border:    border,
		}},
		{&st.label, &excelize.Style{
			Font:      font(true, contentColor, 10),
			Alignment: &excelize.Alignment{Horizontal: "right"},
		}},
		{&st.value, &excelize.Style{
			Font:      font(true, contentColor, 10),
			Alignment: &excelize.Alignment{Horizontal: "center"},
		}},
	}
	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return st, fmt.Errorf("create style: %w", err)
		}
		*d.dst = id
	}

	st.role = make(map[conversation.Role]int, len(conversation.Roles))
	for _, r := range conversation.Roles {
		id, err := f.NewStyle(&excelize.Style{
			Font:      font(true, pal.Accent(r), 10),
			Fill:      excelize.Fill{Type: "pattern", Color: []string{pal.Shade(r)}, Pattern: 1},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
			Border:    border,
		})
		if err != nil {
			return st, fmt.Errorf("create role style: %w", err)
		}
		st.role[r] = id
	}
	return st, nil
}

func writeTurnRow(f *excelize.File, st sheetStyles, row int, t conversation.Turn) error {
	cell := func(col string) string { return fmt.Sprintf("%s%d", col, row) }

	values := []any{t.Index, t.Role.DisplayName(), cellText(t.Content), t.CharCount}
	if err := f.SetSheetRow(xlsxSheet, cell("A"), &values); err != nil {
		return err
	}
	styles := []struct {
		col   string
		style int
	}{
		{"A", st.center},
		{"B", st.role[t.Role]},
		{"C", st.body},
		{"D", st.center},
	}
	for _, s := range styles {
		if err := f.SetCellStyle(xlsxSheet, cell(s.col), cell(s.col), s.style); err != nil {
			return err
		}
	}
	return f.SetRowHeight(xlsxSheet, row, rowHeight(t.CharCount))
}

// writeSummary appends the aggregate block starting at row.
func writeSummary(f *excelize.File, st sheetStyles, row int, stats conversation.Stats) error {
	rows := []struct {
		label string
		value int
	}{
		{"Total turns", stats.TotalTurns},
		{"Total characters", stats.TotalChars},
		{"User turns", stats.ByRole[conversation.RoleUser]},
		{"Assistant turns", stats.ByRole[conversation.RoleAssistant]},
		{"Unknown turns", stats.ByRole[conversation.RoleUnknown]},
	}

	title := fmt.Sprintf("C%d", row)
	if err := f.SetCellValue(xlsxSheet, title, "Summary"); err != nil {
		return err
	}
	if err := f.SetCellStyle(xlsxSheet, title, title, st.label); err != nil {
		return err
	}
	for i, r := range rows {
		label := fmt.Sprintf("C%d", row+1+i)
		value := fmt.Sprintf("D%d", row+1+i)
		if err := f.SetCellValue(xlsxSheet, label, r.label); err != nil {
			return err
		}
		if err := f.SetCellValue(xlsxSheet, value, r.value); err != nil {
			return err
		}
		if err := f.SetCellStyle(xlsxSheet, label, label, st.label); err != nil {
			return err
		}
		if err := f.SetCellStyle(xlsxSheet, value, value, st.value); err != nil {
			return err
		}
	}
	return nil
}

// cellText truncates s to Excel's per-cell character limit.
func cellText(s string) string {
	if utf8.RuneCountInString(s) <= xlsxMaxCellChars {
		return s
	}
	runes := []rune(s)
	return string(runes[:xlsxMaxCellChars])
}

func rowHeight(chars int) float64 {
	h := float64(chars) / 50 * 15
	if h < xlsxMinRowHeight {
		return xlsxMinRowHeight
	}
	if h > xlsxMaxRowHeight {
		return xlsxMaxRowHeight
	}
	return h
}
