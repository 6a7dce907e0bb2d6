package domain

import "strings"

// FoldHeader lowercases a spreadsheet header and drops spaces, underscores
// and hyphens, so "Original Text", "original_text" and "originalText" fold the same.
func FoldHeader(h string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(h)) {
		switch r {
		case ' ', '_', '-':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Header aliases of the columns the spreadsheet services address directly.
var (
	IDHeaders     = []string{"id", "taskid"}
	StatusHeaders = []string{"status"}
)

// ColumnIndex returns the index of the first header matching one of aliases
// after folding, or -1.
func ColumnIndex(header []string, aliases []string) int {
	for i, h := range header {
		f := FoldHeader(h)
		for _, a := range aliases {
			if f == a {
				return i
			}
		}
	}
	return -1
}

// RowsFromTable turns a table whose first row is the header into RawRows.
// Rows with no non-blank cell are dropped; short rows read missing cells as "".
func RowsFromTable(table [][]string) []RawRow {
	if len(table) == 0 {
		return nil
	}
	header := table[0]
	rows := make([]RawRow, 0, len(table)-1)
	for _, record := range table[1:] {
		row := make(RawRow, len(header))
		blank := true
		for i, h := range header {
			if h == "" {
				continue
			}
			var v string
			if i < len(record) {
				v = record[i]
			}
			if strings.TrimSpace(v) != "" {
				blank = false
			}
			row[h] = v
		}
		if !blank {
			rows = append(rows, row)
		}
	}
	return rows
}

// FindRow returns the index into table (header included) of the first data row
// whose id column equals id, or -1.
func FindRow(table [][]string, id string) int {
	if len(table) == 0 {
		return -1
	}
	col := ColumnIndex(table[0], IDHeaders)
	if col < 0 {
		return -1
	}
	for i, record := range table[1:] {
		if col < len(record) && strings.TrimSpace(record[col]) == id {
			return i + 1
		}
	}
	return -1
}
