package importer

import (
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

// Request describes what an import feeds and what it is reconciled against.
type Request struct {
	Mode     Mode
	ExamType string // marks only
	Roster   []RosterEntry
	Existing map[string]Existing // by roster entry ID
}

// Entry is a value typed in by hand for a roster entry.
type Entry struct {
	RosterID string `json:"roster_id" validate:"required"`
	Value    string `json:"value"`
}

// Importer turns spreadsheets and manual entries into reconciled records.
type Importer struct {
	scanRows int
	maxMarks map[string]float64
}

func New(conf core.ImportConfig) *Importer {
	return &Importer{scanRows: conf.HeaderScanRows, maxMarks: conf.MaxMarks}
}

// Rules returns the value-domain rules for a mode and exam type, honoring configured max marks.
func (imp *Importer) Rules(mode Mode, examType string) (Rules, error) {
	rules := Rules{Mode: mode}
	if mode != ModeMarks {
		return rules, nil
	}
	et, err := LookupExamType(examType)
	if err != nil {
		return rules, err
	}
	rules.MaxMarks = et.MaxMarks
	if max, ok := imp.maxMarks[et.Key]; ok {
		rules.MaxMarks = max
	}
	return rules, nil
}

func (imp *Importer) synonyms(req Request) (HeaderSynonyms, error) {
	if req.Mode == ModeAttendance {
		return Synonyms(req.Mode, ExamType{}), nil
	}
	et, err := LookupExamType(req.ExamType)
	if err != nil {
		return HeaderSynonyms{}, err
	}
	return Synonyms(req.Mode, et), nil
}

// ImportFile reads the first sheet of a spreadsheet and imports it.
func (imp *Importer) ImportFile(r io.Reader, filename string, req Request) (Outcome, error) {
	grid, err := ReadGrid(r, filename)
	if err != nil {
		return Outcome{}, err
	}
	return imp.Import(grid, req)
}

// Import resolves the header of grid, then extracts, validates and reconciles its rows.
// Any import error aborts before reconciliation.
func (imp *Importer) Import(grid [][]string, req Request) (Outcome, error) {
	if _, err := ParseMode(string(req.Mode)); err != nil {
		return Outcome{}, err
	}
	syn, err := imp.synonyms(req)
	if err != nil {
		return Outcome{}, err
	}
	rules, err := imp.Rules(req.Mode, req.ExamType)
	if err != nil {
		return Outcome{}, err
	}

	hdr, err := ResolveHeader(grid, syn, imp.scanRows)
	if err != nil {
		return Outcome{}, err
	}
	ex, err := Extract(grid, hdr)
	if err != nil {
		return Outcome{}, err
	}
	warnings, err := Validate(ex, rules)
	if err != nil {
		return Outcome{}, err
	}

	out := Reconcile(req.Mode, req.Roster, ex.Rows, req.Existing)
	out.Warnings = append(out.Warnings, warnings...)
	return out, nil
}

// Manual reconciles values typed in by hand, keyed by roster entry ID, with the same rules as
// spreadsheet imports. Roster entries without a value, or sent with a blank one, keep their existing value.
func (imp *Importer) Manual(entries []Entry, req Request) (Outcome, error) {
	if _, err := ParseMode(string(req.Mode)); err != nil {
		return Outcome{}, err
	}
	rules, err := imp.Rules(req.Mode, req.ExamType)
	if err != nil {
		return Outcome{}, err
	}

	byID := make(map[string]int, len(req.Roster))
	for i, entry := range req.Roster {
		byID[entry.ID] = i
	}

	ex := Extraction{Rows: make([]ImportedRow, 0, len(entries))}
	for i, entry := range entries {
		idx, ok := byID[entry.RosterID]
		if !ok {
			return Outcome{}, core.NewValidationError(
				errors.Errorf("entry %d: unknown roster entry %s", i+1, entry.RosterID),
				core.FieldError{Field: "values", Error: fmt.Sprintf("unknown roster entry %s", entry.RosterID)},
			)
		}
		value := ParseValue(entry.Value)
		if value.Empty() {
			continue
		}
		ex.Rows = append(ex.Rows, ImportedRow{
			Row:        idx + 1,
			RollNumber: req.Roster[idx].RollNumber,
			Name:       req.Roster[idx].Name,
			Value:      value,
		})
	}

	warnings, err := Validate(ex, rules)
	if err != nil {
		return Outcome{}, err
	}
	out := Reconcile(req.Mode, req.Roster, ex.Rows, req.Existing)
	out.Warnings = append(out.Warnings, warnings...)
	return out, nil
}
