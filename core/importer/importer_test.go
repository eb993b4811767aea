package importer

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/academia/core"
)

func newTestImporter(maxMarks map[string]float64) *Importer {
	return New(core.ImportConfig{HeaderScanRows: MaxHeaderScanRows, MaxMarks: maxMarks})
}

// newWorkbook writes rows in the first sheet of a new workbook and returns its content.
func newWorkbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for j, val := range row {
			col, err := excelize.ColumnNumberToName(j + 1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, fmt.Sprintf("%s%d", col, i+1), val))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return buf
}

var testRoster = []RosterEntry{
	{ID: "s1", RollNumber: "R1", Name: "Ada"},
	{ID: "s2", RollNumber: "R2", Name: "Grace"},
}

func TestImport_AttendanceEndToEnd(t *testing.T) {
	grid := [][]string{
		{"Roll No", "Student Name", "Classes Attended"},
		{"r1", "Ada", "5"},
	}
	out, err := newTestImporter(nil).Import(grid, Request{Mode: ModeAttendance, Roster: testRoster})
	require.NoError(t, err)

	require.Len(t, out.Records, 2)
	assert.Equal(t, "s1", out.Records[0].RosterID)
	assert.Equal(t, "5", out.Records[0].Value)
	assert.True(t, out.Records[0].Matched)
	assert.Equal(t, "s2", out.Records[1].RosterID)
	assert.Equal(t, "0", out.Records[1].Value)
	assert.False(t, out.Records[1].Matched)

	assert.Empty(t, out.Warnings)
	assert.Empty(t, out.Errors)
	assert.Equal(t, 1, out.UnmatchedCount)
	assert.Equal(t, []string{"R2"}, out.UnmatchedRolls)
	assert.Equal(t, StatusPartialSuccess, out.Status)
}

func TestImport_MarksAboveMax(t *testing.T) {
	grid := [][]string{
		{"Reg", "Name", "Quiz"},
		{"R1", "Ada", "15"},
		{"R2", "Grace", "7"},
	}
	imp := newTestImporter(map[string]float64{"quiz": 10})
	out, err := imp.Import(grid, Request{Mode: ModeMarks, ExamType: "quiz", Roster: testRoster})
	require.Error(t, err)

	verr, ok := err.(*ValidationError)
	require.True(t, ok, "want *ValidationError, got %T", err)
	assert.Len(t, verr.Errors, 1)
	assert.Contains(t, verr.Errors[0], "row 2")
	assert.Contains(t, verr.Errors[0], "R1")
	assert.Empty(t, out.Records)
}

func TestImportFile_Workbook(t *testing.T) {
	buf := newWorkbook(t, [][]interface{}{
		{"Department of CSE"},
		{},
		{"S.No", "Roll Number", "Name", "Mid-1 Marks"},
		{1, "A101", "Ada", 18},
		{2, "a102", "Grace", 12.5},
		{3, "", "", ""},
	})
	roster := []RosterEntry{
		{ID: "s1", RollNumber: "a101", Name: "Ada"},
		{ID: "s2", RollNumber: "A102", Name: "Grace"},
		{ID: "s3", RollNumber: "A103", Name: "Linus"},
	}
	existing := map[string]Existing{"s3": {RecordID: "rec3", Value: "9"}}

	out, err := newTestImporter(nil).ImportFile(buf, "marks.xlsx", Request{
		Mode: ModeMarks, ExamType: "mid1", Roster: roster, Existing: existing,
	})
	require.NoError(t, err)
	require.Len(t, out.Records, 3)
	assert.Equal(t, "18", out.Records[0].Value)
	assert.Equal(t, "12.5", out.Records[1].Value)
	assert.Equal(t, "9", out.Records[2].Value)
	assert.False(t, out.Records[2].Matched)
	assert.Equal(t, "rec3", out.Records[2].ExistingID)
	assert.Equal(t, 1, out.UnmatchedCount)
	assert.Empty(t, out.Warnings)
}

func TestImportFile_CSV(t *testing.T) {
	content := "\xEF\xBB\xBFRoll,Name,Attendance\nR2,Grace,12\nR9,Nobody,3\n"
	out, err := newTestImporter(nil).ImportFile(bytes.NewBufferString(content), "attendance.CSV", Request{
		Mode: ModeAttendance, Roster: testRoster,
	})
	require.NoError(t, err)
	assert.Equal(t, "0", out.Records[0].Value)
	assert.Equal(t, "12", out.Records[1].Value)
	assert.Equal(t, []string{"R9"}, out.UnknownRolls)
}

func TestImportFile_Errors(t *testing.T) {
	imp := newTestImporter(nil)
	req := Request{Mode: ModeAttendance, Roster: testRoster}

	_, err := imp.ImportFile(bytes.NewBufferString("whatever"), "list.pdf", req)
	assert.Equal(t, ErrUnsupportedFormat, err)

	_, err = imp.ImportFile(newWorkbook(t, [][]interface{}{{"Roll", "Attendance"}}), "list.xlsx", req)
	assert.IsType(t, &NoDataError{}, err)
	assert.True(t, IsImportError(err))

	_, err = imp.ImportFile(bytes.NewBufferString("foo,bar\n1,2\n"), "list.csv", req)
	assert.IsType(t, &HeaderNotFoundError{}, err)

	_, err = imp.Import(nil, Request{Mode: ModeMarks, ExamType: "finals", Roster: testRoster})
	assert.Equal(t, ErrUnknownExamType, err)

	_, err = imp.Import(nil, Request{Mode: "grades"})
	assert.Equal(t, ErrUnknownMode, err)
}

func TestResolveHeader(t *testing.T) {
	quiz, _ := LookupExamType("quiz")
	mid1, _ := LookupExamType("mid1")
	attendance := Synonyms(ModeAttendance, ExamType{})

	padded := func(n int, header []string) [][]string {
		grid := make([][]string, n)
		for i := range grid {
			grid[i] = []string{"", "notes"}
		}
		return append(grid, header)
	}

	tests := []struct {
		name    string
		grid    [][]string
		syn     HeaderSynonyms
		want    Header
		wantErr bool
	}{
		{
			name: "first row",
			grid: [][]string{{"Roll No", "Name", "Total"}},
			syn:  attendance,
			want: Header{Row: 0, Roll: 0, Name: 1, Value: 2},
		},
		{
			name: "case insensitive",
			grid: [][]string{{"ATTENDANCE", "STUDENT", "ROLL"}},
			syn:  attendance,
			want: Header{Row: 0, Roll: 2, Name: 1, Value: 0},
		},
		{
			name: "name column optional",
			grid: [][]string{{"title"}, {"Reg", "Attended"}},
			syn:  attendance,
			want: Header{Row: 1, Roll: 0, Name: -1, Value: 1},
		},
		{
			name: "leftmost cell wins",
			grid: [][]string{{"Roll", "Reg No", "Classes", "Total"}},
			syn:  attendance,
			want: Header{Row: 0, Roll: 0, Name: -1, Value: 2},
		},
		{
			name: "header on row 20",
			grid: padded(19, []string{"Roll", "Attendance"}),
			syn:  attendance,
			want: Header{Row: 19, Roll: 0, Name: -1, Value: 1},
		},
		{
			name:    "header after row 20",
			grid:    padded(20, []string{"Roll", "Attendance"}),
			syn:     attendance,
			wantErr: true,
		},
		{
			name:    "value column missing",
			grid:    [][]string{{"Roll", "Name"}},
			syn:     attendance,
			wantErr: true,
		},
		{
			name: "id only counts in marks",
			grid: [][]string{{"Student ID", "Quiz"}},
			syn:  Synonyms(ModeMarks, quiz),
			want: Header{Row: 0, Roll: 0, Name: -1, Value: 1},
		},
		{
			name:    "id ignored in attendance",
			grid:    [][]string{{"ID", "Attendance"}},
			syn:     attendance,
			wantErr: true,
		},
		{
			name: "id must be a whole word",
			grid: [][]string{{"Mid1", "Hall Ticket ID"}},
			syn:  Synonyms(ModeMarks, mid1),
			want: Header{Row: 0, Roll: 1, Name: -1, Value: 0},
		},
		{
			name: "exam type synonym beats generic",
			grid: [][]string{{"Roll", "Total Marks", "Quiz"}},
			syn:  Synonyms(ModeMarks, quiz),
			want: Header{Row: 0, Roll: 0, Name: -1, Value: 2},
		},
		{
			name: "generic marks fallback",
			grid: [][]string{{"Roll", "Name", "Score"}},
			syn:  Synonyms(ModeMarks, quiz),
			want: Header{Row: 0, Roll: 0, Name: 1, Value: 2},
		},
		{
			name: "decoy header earlier wins",
			grid: [][]string{{"Roll call", "Total"}, {"Roll No", "Classes Attended"}},
			syn:  attendance,
			want: Header{Row: 0, Roll: 0, Name: -1, Value: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveHeader(tt.grid, tt.syn, 20)
			if tt.wantErr {
				assert.IsType(t, &HeaderNotFoundError{}, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			// idempotent
			again, _ := ResolveHeader(tt.grid, tt.syn, 20)
			assert.Equal(t, got, again)
		})
	}
}

func TestResolveHeader_ScanRowsCapped(t *testing.T) {
	grid := make([][]string, 25)
	grid[22] = []string{"Roll", "Attendance"}
	_, err := ResolveHeader(grid, Synonyms(ModeAttendance, ExamType{}), 100)
	assert.Equal(t, &HeaderNotFoundError{ScannedRows: MaxHeaderScanRows}, err)
}

func TestExtract(t *testing.T) {
	grid := [][]string{
		{"Roll", "Name", "Attendance"},
		{" R1 ", " Ada ", " 7 "},
		{"", "Grace", "3"},
		{"", "", ""},
		{"R3"},
		{"R4", "Linus", "n/a"},
	}
	ex, err := Extract(grid, Header{Row: 0, Roll: 0, Name: 1, Value: 2})
	require.NoError(t, err)

	require.Len(t, ex.Rows, 3)
	assert.Equal(t, ImportedRow{Row: 2, RollNumber: "R1", Name: "Ada", Value: ParseValue("7")}, ex.Rows[0])
	assert.Equal(t, 5, ex.Rows[1].Row)
	assert.True(t, ex.Rows[1].Value.Empty())
	assert.Nil(t, ex.Rows[2].Value.Num)
	assert.Equal(t, []int{3}, ex.Skipped)

	_, err = Extract(grid[:1], Header{Row: 0, Roll: 0, Name: 1, Value: 2})
	assert.Equal(t, &NoDataError{HeaderRow: 1}, err)
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		raw     string
		wantNum bool
		want    string
	}{
		{raw: "5", wantNum: true, want: "5"},
		{raw: "5.0", wantNum: true, want: "5"},
		{raw: " 12.50 ", wantNum: true, want: "12.5"},
		{raw: "abc", want: "abc"},
		{raw: "NaN", want: "NaN"},
		{raw: "Inf", want: "Inf"},
		{raw: ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v := ParseValue(tt.raw)
			assert.Equal(t, tt.wantNum, v.Num != nil)
			assert.Equal(t, tt.want, v.String())
		})
	}
}

func TestValidate(t *testing.T) {
	marks := Rules{Mode: ModeMarks, MaxMarks: 20}
	row := func(value string) Extraction {
		return Extraction{Rows: []ImportedRow{{Row: 4, RollNumber: "A101", Value: ParseValue(value)}}}
	}

	tests := []struct {
		name         string
		ex           Extraction
		rules        Rules
		wantErrs     int
		wantWarnings int
		wantText     []string
	}{
		{name: "within max", ex: row("20"), rules: marks},
		{name: "above max", ex: row("21"), rules: marks, wantErrs: 1, wantText: []string{"row 4", "A101", "21", "20"}},
		{name: "not a number", ex: row("abc"), rules: marks, wantErrs: 1, wantText: []string{"row 4", "A101", "abc"}},
		{name: "negative", ex: row("-1"), rules: marks, wantErrs: 1, wantText: []string{"negative"}},
		{name: "blank", ex: row(""), rules: marks, wantWarnings: 1, wantText: []string{"row 4", "A101", "missing"}},
		{name: "attendance has no max", ex: row("120"), rules: Rules{Mode: ModeAttendance, MaxMarks: 20}},
		{name: "attendance not a number", ex: row("x"), rules: Rules{Mode: ModeAttendance}, wantErrs: 1},
		{name: "attendance too wide to store", ex: row("1e40"), rules: Rules{Mode: ModeAttendance}, wantErrs: 1, wantText: []string{"row 4", "1e40", "30 characters"}},
		{name: "attendance at storable width", ex: row("123456789012345678901234567890"), rules: Rules{Mode: ModeAttendance}},
		{name: "tiny fraction too wide to store", ex: row("1e-40"), rules: marks, wantErrs: 1},
		{name: "missing roll", ex: Extraction{Rows: row("3").Rows, Skipped: []int{7}}, rules: marks, wantWarnings: 1, wantText: []string{"row 7", "roll number"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings, err := Validate(tt.ex, tt.rules)
			assert.Len(t, warnings, tt.wantWarnings)

			var msgs []string
			if tt.wantErrs > 0 {
				verr, ok := err.(*ValidationError)
				require.True(t, ok, "want *ValidationError, got %v", err)
				assert.Len(t, verr.Errors, tt.wantErrs)
				assert.Equal(t, warnings, verr.Warnings)
				msgs = verr.Errors
			} else {
				require.NoError(t, err)
				msgs = warnings
			}
			for _, text := range tt.wantText {
				assert.Contains(t, msgs[0], text)
			}
		})
	}
}

func TestReconcile(t *testing.T) {
	roster := []RosterEntry{
		{ID: "s1", RollNumber: "A101"},
		{ID: "s2", RollNumber: "A102"},
		{ID: "s3", RollNumber: "A103"},
	}
	rows := []ImportedRow{
		{RollNumber: "a101", Value: ParseValue("4")},
		{RollNumber: "A101", Value: ParseValue("9")}, // first row wins
		{RollNumber: "A102", Value: ParseValue("")},
	}
	existing := map[string]Existing{
		"s2": {RecordID: "r2", Value: "6"},
		"s3": {RecordID: "r3", Value: "8"},
	}

	t.Run("marks", func(t *testing.T) {
		out := Reconcile(ModeMarks, roster, rows, existing)
		require.Len(t, out.Records, len(roster))
		assert.Equal(t, "4", out.Records[0].Value)
		assert.Equal(t, "", out.Records[1].Value)
		assert.True(t, out.Records[1].Matched)
		assert.Equal(t, "8", out.Records[2].Value)
		assert.False(t, out.Records[2].Matched)
		assert.Equal(t, 1, out.UnmatchedCount)
	})

	t.Run("attendance default", func(t *testing.T) {
		out := Reconcile(ModeAttendance, roster, rows, nil)
		assert.Equal(t, []string{"4", "0", "0"}, []string{out.Records[0].Value, out.Records[1].Value, out.Records[2].Value})
		assert.Equal(t, StatusPartialSuccess, out.Status)
	})

	t.Run("cardinality", func(t *testing.T) {
		for n := 0; n < 5; n++ {
			var r []RosterEntry
			for i := 0; i < n; i++ {
				r = append(r, RosterEntry{ID: fmt.Sprint(i), RollNumber: fmt.Sprintf("X%d", i)})
			}
			out := Reconcile(ModeAttendance, r, rows, existing)
			assert.Len(t, out.Records, n)
			assert.Equal(t, n, out.UnmatchedCount)
		}
	})

	t.Run("full match", func(t *testing.T) {
		out := Reconcile(ModeAttendance, roster[:1], rows, nil)
		assert.Equal(t, StatusSuccess, out.Status)
		assert.Equal(t, 0, out.UnmatchedCount)
		assert.Equal(t, []string{"A102"}, out.UnknownRolls)
	})
}

func TestRequiresElevatedPrivilege(t *testing.T) {
	tests := []struct {
		name string
		rec  ReconciledRecord
		want Action
	}{
		{name: "new record", rec: ReconciledRecord{Mode: ModeMarks, Value: "5"}, want: ActionCreate},
		{name: "new default", rec: ReconciledRecord{Mode: ModeAttendance, Value: "0"}, want: ActionNone},
		{name: "unchanged", rec: ReconciledRecord{Mode: ModeMarks, Value: "5", ExistingID: "r", PreviousValue: "5"}, want: ActionNone},
		{name: "changed", rec: ReconciledRecord{Mode: ModeMarks, Value: "6", ExistingID: "r", PreviousValue: "5"}, want: ActionUpdate},
		{name: "cleared", rec: ReconciledRecord{Mode: ModeMarks, Value: "", ExistingID: "r", PreviousValue: "5"}, want: ActionNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rec.Action())
			assert.Equal(t, tt.want == ActionUpdate, RequiresElevatedPrivilege(tt.rec))
		})
	}
}

func TestManual(t *testing.T) {
	imp := newTestImporter(nil)
	req := Request{Mode: ModeMarks, ExamType: "assignment", Roster: testRoster}

	out, err := imp.Manual([]Entry{{RosterID: "s2", Value: "7.5"}}, req)
	require.NoError(t, err)
	assert.Equal(t, "", out.Records[0].Value)
	assert.Equal(t, "7.5", out.Records[1].Value)

	_, err = imp.Manual([]Entry{{RosterID: "s1", Value: "11"}}, req)
	assert.IsType(t, &ValidationError{}, err)

	_, err = imp.Manual([]Entry{{RosterID: "nope", Value: "1"}}, req)
	assert.IsType(t, &core.ValidationError{}, err)

	// blank entries report what is stored
	attendance := Request{Mode: ModeAttendance, Roster: testRoster, Existing: map[string]Existing{"s1": {RecordID: "r1", Value: "12"}}}
	out, err = imp.Manual([]Entry{{RosterID: "s1", Value: " "}, {RosterID: "s2", Value: ""}}, attendance)
	require.NoError(t, err)
	assert.Equal(t, "12", out.Records[0].Value)
	assert.False(t, out.Records[0].Matched)
	assert.Equal(t, ActionNone, out.Records[0].Action())
	assert.Equal(t, "0", out.Records[1].Value)
	assert.Contains(t, out.UnmatchedRolls, "R1")

	_, err = imp.Manual([]Entry{{RosterID: "s1", Value: "1e40"}}, attendance)
	assert.IsType(t, &ValidationError{}, err)
}

func TestPreview_ApplyEdits(t *testing.T) {
	out := Reconcile(ModeMarks, testRoster, []ImportedRow{{RollNumber: "R1", Value: ParseValue("3")}}, nil)
	p := NewPreview(ModeMarks, Scope{Subject: "maths", ExamType: "quiz"}, "quiz.xlsx", Rules{Mode: ModeMarks, MaxMarks: 10}, out, "u1")
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "quiz", p.Field())

	err := p.ApplyEdits([]Entry{{RosterID: "s1", Value: "4"}, {RosterID: "s2", Value: "12"}})
	assert.IsType(t, &ValidationError{}, err)
	assert.Equal(t, "3", p.Outcome.Records[0].Value)

	require.NoError(t, p.ApplyEdits([]Entry{{RosterID: "s1", Value: "4"}, {RosterID: "s2", Value: "10"}}))
	assert.Equal(t, "4", p.Outcome.Records[0].Value)
	assert.Equal(t, "10", p.Outcome.Records[1].Value)
	assert.True(t, p.Outcome.Records[1].Matched)
}
