package fetcher

import (
	"net/url"
	"path"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// XLSXOptions selects the worksheet to read.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
}

// ParseXLSX reads a workbook and returns rows keyed by lowercased header,
// following the same rules as ParseCSVTable: the first non-empty row is the
// header, blank rows are skipped and short rows are padded.
func ParseXLSX(data []byte, opts XLSXOptions) ([]string, []map[string]string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, nil, eris.Wrap(err, "xlsx: open workbook")
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, nil, err
	}

	var (
		headers []string
		rows    []map[string]string
	)
	for _, row := range sheet.Rows {
		cells := rowToStrings(row)
		if isBlank(cells) {
			continue
		}
		if headers == nil {
			for _, c := range cells {
				headers = append(headers, strings.ToLower(c))
			}
			continue
		}
		m := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(cells) {
				m[h] = cells[i]
			} else {
				m[h] = ""
			}
		}
		rows = append(rows, m)
	}
	return headers, rows, nil
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("xlsx: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	if row == nil {
		return nil
	}
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = strings.TrimSpace(cell.String())
	}
	return cells
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

// isXLSX decides whether a download is a workbook rather than delimited text.
func isXLSX(rawURL, contentType string) bool {
	if strings.Contains(contentType, "spreadsheetml") {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(path.Ext(u.Path), ".xlsx")
}
