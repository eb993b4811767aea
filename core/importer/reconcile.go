package importer

import (
	"strings"
)

type Status string

const (
	StatusSuccess        Status = "success"
	StatusPartialSuccess Status = "partial_success"
)

// Action is the persistence operation a reconciled record calls for.
type Action string

const (
	ActionNone   Action = "none"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
)

// RosterEntry is a student as known by the roster at import time.
type RosterEntry struct {
	ID         string `json:"id"`
	RollNumber string `json:"roll_number"`
	Name       string `json:"name"`
}

// Existing is the record already held for a roster entry and field.
type Existing struct {
	RecordID string `json:"record_id"`
	Value    string `json:"value"`
}

// ReconciledRecord is the value a roster entry ends up with after an import.
type ReconciledRecord struct {
	RosterID      string `json:"roster_id"`
	RollNumber    string `json:"roll_number"`
	Name          string `json:"name"`
	Value         string `json:"field_value"`
	Matched       bool   `json:"matched"`
	ExistingID    string `json:"existing_id,omitempty"`
	PreviousValue string `json:"previous_value,omitempty"`
	Mode          Mode   `json:"mode"`
}

// Action tells whether r must be created, updated or left alone.
// Records holding the mode default are never persisted.
func (r ReconciledRecord) Action() Action {
	if r.Value == r.Mode.DefaultValue() {
		return ActionNone
	}
	if r.ExistingID == "" {
		return ActionCreate
	}
	if r.Value == r.PreviousValue {
		return ActionNone
	}
	return ActionUpdate
}

// RequiresElevatedPrivilege reports whether persisting r changes the value of an existing record.
// Creating a record never requires it.
func RequiresElevatedPrivilege(r ReconciledRecord) bool {
	return r.Action() == ActionUpdate
}

// Outcome is the result of a successful import.
type Outcome struct {
	Records        []ReconciledRecord `json:"records"`
	Errors         []string           `json:"errors"`
	Warnings       []string           `json:"warnings"`
	UnmatchedCount int                `json:"unmatched_count"`
	UnmatchedRolls []string           `json:"unmatched_rolls"`
	UnknownRolls   []string           `json:"unknown_rolls"` // imported but absent from the roster
	Status         Status             `json:"status"`
}

func normalizeRoll(roll string) string {
	return strings.ToLower(strings.TrimSpace(roll))
}

// Reconcile aligns imported rows to the roster by roll number, case-insensitively.
// It returns exactly one record per roster entry, in roster order. Entries without an imported row
// keep their existing value, or the mode default when there is none.
func Reconcile(mode Mode, roster []RosterEntry, rows []ImportedRow, existing map[string]Existing) Outcome {
	imported := make(map[string]ImportedRow, len(rows))
	for _, row := range rows {
		key := normalizeRoll(row.RollNumber)
		if _, seen := imported[key]; !seen {
			imported[key] = row
		}
	}

	out := Outcome{
		Records:        make([]ReconciledRecord, 0, len(roster)),
		Errors:         make([]string, 0),
		Warnings:       make([]string, 0),
		UnmatchedRolls: make([]string, 0),
		UnknownRolls:   make([]string, 0),
		Status:         StatusSuccess,
	}
	known := make(map[string]bool, len(roster))

	for _, entry := range roster {
		key := normalizeRoll(entry.RollNumber)
		known[key] = true

		rec := ReconciledRecord{
			RosterID:   entry.ID,
			RollNumber: entry.RollNumber,
			Name:       entry.Name,
			Mode:       mode,
		}
		prev, hasPrev := existing[entry.ID]
		if hasPrev {
			rec.ExistingID = prev.RecordID
			rec.PreviousValue = prev.Value
		}

		if row, ok := imported[key]; ok {
			rec.Matched = true
			rec.Value = row.Value.String()
			if rec.Value == "" {
				rec.Value = mode.DefaultValue()
			}
		} else {
			rec.Value = mode.DefaultValue()
			if hasPrev {
				rec.Value = prev.Value
			}
			out.UnmatchedRolls = append(out.UnmatchedRolls, entry.RollNumber)
		}
		out.Records = append(out.Records, rec)
	}

	for _, row := range rows {
		key := normalizeRoll(row.RollNumber)
		if !known[key] {
			known[key] = true // report once
			out.UnknownRolls = append(out.UnknownRolls, row.RollNumber)
		}
	}

	out.UnmatchedCount = len(out.UnmatchedRolls)
	if out.UnmatchedCount > 0 {
		out.Status = StatusPartialSuccess
	}
	return out
}
