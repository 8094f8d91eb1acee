// Package fetcher downloads spreadsheet exports and turns them into header-keyed rows.
package fetcher

import (
	"regexp"
	"strings"
)

var lineSplitRe = regexp.MustCompile(`\r?\n`)

// ParseCSV tokenizes delimited sheet text into one map per data row keyed by
// the lowercased header. Blank lines are skipped and short rows are padded
// with empty strings.
func ParseCSV(text string) []map[string]string {
	_, rows := ParseCSVTable(text)
	return rows
}

// ParseCSVTable is ParseCSV that also returns the header list in column order.
//
// Quoting is a single-pass toggle: a double quote flips the in-quotes state
// and is dropped, and only commas outside quotes split fields. Unterminated
// quotes are not recovered.
func ParseCSVTable(text string) ([]string, []map[string]string) {
	lines := lineSplitRe.Split(text, -1)

	var headers []string
	start := len(lines)
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		for _, h := range splitFields(line) {
			headers = append(headers, strings.ToLower(h))
		}
		start = i + 1
		break
	}
	if headers == nil {
		return nil, nil
	}

	var rows []map[string]string
	for _, line := range lines[start:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		values := splitFields(line)
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(values) {
				row[h] = values[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return headers, rows
}

func splitFields(line string) []string {
	var (
		fields   []string
		current  strings.Builder
		inQuotes bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			fields = append(fields, cleanField(current.String()))
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	fields = append(fields, cleanField(current.String()))
	return fields
}

func cleanField(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)
	return strings.TrimSpace(s)
}
