package importer

import (
	"fmt"
)

// ClassListRow is one student of a class list sheet.
type ClassListRow struct {
	Row        int
	RollNumber string
	Name       string
}

// ReadClassList reads the roll number and name columns of a class list sheet, located the same way
// as import headers. Rows without a name are rejected.
func ReadClassList(grid [][]string, scanRows int) ([]ClassListRow, error) {
	hdr, err := ResolveHeader(grid, HeaderSynonyms{Roll: rollSynonyms, Value: nameSynonyms}, scanRows)
	if err != nil {
		return nil, err
	}
	ex, err := Extract(grid, hdr)
	if err != nil {
		return nil, err
	}

	var errs []string
	for _, row := range ex.Skipped {
		errs = append(errs, fmt.Sprintf("row %d: roll number is missing", row))
	}
	rows := make([]ClassListRow, 0, len(ex.Rows))
	for _, row := range ex.Rows {
		if row.Value.Empty() {
			errs = append(errs, fmt.Sprintf("row %d (roll %s): name is missing", row.Row, row.RollNumber))
			continue
		}
		rows = append(rows, ClassListRow{Row: row.Row, RollNumber: row.RollNumber, Name: row.Value.Raw})
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs, Warnings: make([]string, 0)}
	}
	return rows, nil
}
