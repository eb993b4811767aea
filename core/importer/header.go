package importer

import (
	"strings"
	"unicode"
)

// MaxHeaderScanRows bounds how far down a sheet the header row is looked for.
const MaxHeaderScanRows = 20

type synonym struct {
	term      string
	wholeWord bool
}

func (s synonym) matches(cell string) bool {
	if !s.wholeWord {
		return strings.Contains(cell, s.term)
	}
	for _, word := range strings.FieldsFunc(cell, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if word == s.term {
			return true
		}
	}
	return false
}

func matchAny(synonyms []synonym, cell string) bool {
	for _, s := range synonyms {
		if s.matches(cell) {
			return true
		}
	}
	return false
}

// HeaderSynonyms holds the ordered synonym sets of the logical columns.
// ValueFallback is only consulted when Value matched nothing in a row.
type HeaderSynonyms struct {
	Roll          []synonym
	Name          []synonym
	Value         []synonym
	ValueFallback []synonym
}

// Header locates the logical columns of a sheet. Column indices are 0-based, -1 when absent.
type Header struct {
	Row   int // 0-based index in the grid
	Roll  int
	Name  int
	Value int
}

// ResolveHeader scans at most scanRows rows (capped at MaxHeaderScanRows) top to bottom and returns
// the first row holding both a roll number and a value column.
//
// Within a row, each cell is claimed by the first logical column (roll, name, value) whose synonyms
// match its lower-cased text, and each column keeps its leftmost cell.
func ResolveHeader(grid [][]string, syn HeaderSynonyms, scanRows int) (Header, error) {
	if scanRows <= 0 || scanRows > MaxHeaderScanRows {
		scanRows = MaxHeaderScanRows
	}
	limit := scanRows
	if len(grid) < limit {
		limit = len(grid)
	}

	for i := 0; i < limit; i++ {
		if hdr, ok := resolveRow(grid[i], syn); ok {
			hdr.Row = i
			return hdr, nil
		}
	}
	return Header{}, &HeaderNotFoundError{ScannedRows: scanRows}
}

func resolveRow(row []string, syn HeaderSynonyms) (Header, bool) {
	hdr := Header{Roll: -1, Name: -1, Value: -1}
	claimed := make([]bool, len(row))

	for j, raw := range row {
		cell := strings.ToLower(strings.TrimSpace(raw))
		if cell == "" {
			continue
		}
		switch {
		case matchAny(syn.Roll, cell):
			claimed[j] = true
			if hdr.Roll < 0 {
				hdr.Roll = j
			}
		case matchAny(syn.Name, cell):
			claimed[j] = true
			if hdr.Name < 0 {
				hdr.Name = j
			}
		case matchAny(syn.Value, cell):
			claimed[j] = true
			if hdr.Value < 0 {
				hdr.Value = j
			}
		}
	}

	if hdr.Value < 0 && len(syn.ValueFallback) > 0 {
		for j, raw := range row {
			if claimed[j] {
				continue
			}
			if matchAny(syn.ValueFallback, strings.ToLower(strings.TrimSpace(raw))) {
				hdr.Value = j
				break
			}
		}
	}

	return hdr, hdr.Roll >= 0 && hdr.Value >= 0
}
