package importer

import (
	"math"
	"strconv"
	"strings"
)

// Value is a sheet cell as typed by the user. Num is nil when Raw is empty or not a number.
type Value struct {
	Raw string   `json:"raw"`
	Num *float64 `json:"num"`
}

func ParseValue(raw string) Value {
	raw = strings.TrimSpace(raw)
	v := Value{Raw: raw}
	if raw == "" {
		return v
	}
	if num, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(num) && !math.IsInf(num, 0) {
		v.Num = &num
	}
	return v
}

func (v Value) Empty() bool { return v.Raw == "" }

// String formats numbers without trailing zeros ("5", "12.5") and returns the raw text otherwise.
func (v Value) String() string {
	if v.Num != nil {
		return FormatNumber(*v.Num)
	}
	return v.Raw
}

func FormatNumber(num float64) string {
	return strconv.FormatFloat(num, 'f', -1, 64)
}

// ImportedRow is one data row of a sheet after header resolution.
type ImportedRow struct {
	Row        int    `json:"row"` // 1-based, as numbered by spreadsheet apps
	RollNumber string `json:"roll_number"`
	Name       string `json:"name,omitempty"`
	Value      Value  `json:"value"`
}

// Extraction is the outcome of reading the data rows below a header.
// Skipped lists the sheet rows dropped for lacking a roll number while carrying other content.
type Extraction struct {
	Rows    []ImportedRow
	Skipped []int
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// Extract reads the roll number, name and value columns of every row below the header.
func Extract(grid [][]string, hdr Header) (Extraction, error) {
	var ex Extraction
	for i := hdr.Row + 1; i < len(grid); i++ {
		roll := cellAt(grid[i], hdr.Roll)
		name := cellAt(grid[i], hdr.Name)
		val := cellAt(grid[i], hdr.Value)

		if roll == "" {
			if name != "" || val != "" {
				ex.Skipped = append(ex.Skipped, i+1)
			}
			continue
		}
		ex.Rows = append(ex.Rows, ImportedRow{
			Row:        i + 1,
			RollNumber: roll,
			Name:       name,
			Value:      ParseValue(val),
		})
	}

	if len(ex.Rows) == 0 {
		return ex, &NoDataError{HeaderRow: hdr.Row + 1}
	}
	return ex, nil
}
