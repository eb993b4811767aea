package echoapi

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/importer"
	"github.com/trezcool/academia/core/record"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/testutil"
)

func scopeFields(subject, examType string) map[string]string {
	fields := map[string]string{
		"branch":   class.Branch,
		"year":     strconv.Itoa(class.Year),
		"semester": strconv.Itoa(class.Semester),
		"section":  class.Section,
		"subject":  subject,
	}
	if examType != "" {
		fields["exam_type"] = examType
	}
	return fields
}

func (app *testApp) upload(
	t *testing.T,
	mode, token string,
	fields map[string]string,
	filename, content string,
) *httptest.ResponseRecorder {
	t.Helper()
	req, rec := newUploadRequest(t, "/v1/imports/"+mode, token, fields, filename, []byte(content))
	return app.serve(req, rec)
}

func Test_importApi_attendance(t *testing.T) {
	app := setup(t)
	faculty := testutil.CreateUser(t, app.usrRepo, "Faculty", "faculty", "faculty@test.local", "", []string{user.RoleFaculty}, true)
	colleague := testutil.CreateUser(t, app.usrRepo, "Colleague", "colleague", "colleague@test.local", "", []string{user.RoleFaculty}, true)
	testutil.CreateUser(t, app.usrRepo, "Admin", "admin_user", "admin@test.local", "Pwd.1234!", []string{user.RoleAdmin}, true)
	students := testutil.CreateStudents(t, app.studentRepo, class, "R1", "R2", "R3")
	facultyToken := app.getToken(t, faculty)

	sheet := "Attendance register\n" +
		"Roll No,Student Name,Classes Attended\n" +
		"r1,Student R1,5\n" +
		"R2,Student R2,\n" +
		"X9,Stranger,4\n"
	rec := app.upload(t, "attendance", facultyToken, scopeFields("maths", ""), "register.csv", sheet)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	uploaded := rec.Body.Bytes()

	var pv importer.Preview
	decode(t, rec, &pv)
	assert.Equal(t, importer.ModeAttendance, pv.Mode)
	assert.Equal(t, faculty.ID, pv.CreatedBy)
	assert.Equal(t, "register.csv", pv.Filename)
	assert.Equal(t, importer.StatusPartialSuccess, pv.Outcome.Status)
	assert.Equal(t, 1, pv.Outcome.UnmatchedCount)
	assert.Equal(t, []string{"R3"}, pv.Outcome.UnmatchedRolls)
	assert.Equal(t, []string{"X9"}, pv.Outcome.UnknownRolls)
	assert.Equal(t, []string{"row 4 (roll R2): value is missing"}, pv.Outcome.Warnings)
	require.Len(t, pv.Outcome.Records, 3)
	for i, want := range []struct {
		roll, value string
		matched     bool
	}{{"R1", "5", true}, {"R2", "0", true}, {"R3", "0", false}} {
		assert.Equal(t, want.roll, pv.Outcome.Records[i].RollNumber)
		assert.Equal(t, want.value, pv.Outcome.Records[i].Value)
		assert.Equal(t, want.matched, pv.Outcome.Records[i].Matched)
	}

	previewPath := "/v1/imports/attendance/" + pv.ID
	runHTTPTests(t, app, []httpTest{
		{name: "uploader sees the preview", path: previewPath, token: facultyToken, wantCode: http.StatusOK, wantData: uploaded},
		{name: "others do not", path: previewPath, token: app.getToken(t, colleague), wantCode: http.StatusNotFound},
		{name: "wrong mode", path: "/v1/imports/marks/" + pv.ID, token: facultyToken, wantCode: http.StatusNotFound},
		{
			name: "unknown preview", path: "/v1/imports/attendance/unknown", token: facultyToken,
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: importer.ErrPreviewNotFound.Error()}),
		},
		{
			name: "invalid edit", method: http.MethodPost, path: previewPath + "/save", token: facultyToken,
			body:     marshalObj(t, SavePreviewRequest{Values: []importer.Entry{{RosterID: students[2].ID, Value: "-1"}}}),
			wantCode: http.StatusUnprocessableEntity,
		},
	})

	// the unmatched student is filled in from the review table
	req, rec := newAuthRequest(http.MethodPost, previewPath+"/save", facultyToken,
		marshalObj(t, SavePreviewRequest{Values: []importer.Entry{{RosterID: students[2].ID, Value: "7"}}}))
	app.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var saved SaveResponse
	decode(t, rec, &saved)
	assert.Equal(t, record.SaveResult{Created: 2, Unchanged: 1}, saved.Result)

	// saved previews are discarded
	req, rec = newAuthRequest(http.MethodGet, previewPath, facultyToken)
	assert.Equal(t, http.StatusNotFound, app.serve(req, rec).Code)

	// changing a saved value needs an admin's authorization
	rec = app.upload(t, "attendance", facultyToken, scopeFields(" maths ", ""), "register.csv", "Roll,Attendance\nR1,6\nR3,7\n")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	decode(t, rec, &pv)
	assert.Equal(t, "5", pv.Outcome.Records[0].PreviousValue)
	assert.Equal(t, []string{"R2"}, pv.Outcome.UnmatchedRolls)
	previewPath = "/v1/imports/attendance/" + pv.ID

	req, rec = newAuthRequest(http.MethodPost, previewPath+"/save", facultyToken)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusForbidden,
		wantData: marshalObj(t, map[string]interface{}{
			"error":                  (&record.PrivilegeError{RollNumbers: []string{"R1"}}).Error(),
			"authorization_required": true,
			"roll_numbers":           []string{"R1"},
		}),
	}, app.serve(req, rec))

	req, rec = newAuthRequest(http.MethodPost, "/v1/users/elevate", facultyToken,
		marshalObj(t, LoginRequest{Username: "admin_user", Password: "Pwd.1234!"}))
	app.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var elevation ElevationResponse
	decode(t, rec, &elevation)

	req, rec = newAuthRequest(http.MethodPost, previewPath+"/save", facultyToken)
	req.Header.Set(elevation.Header, elevation.Token)
	app.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &saved)
	assert.Equal(t, record.SaveResult{Updated: 1, Unchanged: 2}, saved.Result)

	req, rec = newAuthRequest(http.MethodGet, "/v1/records/attendance?branch=CSE&year=2&semester=1&section=A&subject=maths", facultyToken)
	app.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var values []RecordValue
	decode(t, rec, &values)
	require.Len(t, values, 3)
	assert.Equal(t, []string{"6", "0", "7"}, []string{values[0].Value, values[1].Value, values[2].Value})
	assert.NotEmpty(t, values[0].RecordID)
	assert.Empty(t, values[1].RecordID)
}

func Test_importApi_marks(t *testing.T) {
	app := setup(t, func(conf *core.Config) {
		conf.Import.MaxMarks = map[string]float64{"quiz": 5}
	})
	faculty := testutil.CreateUser(t, app.usrRepo, "Faculty", "faculty", "faculty@test.local", "", []string{user.RoleFaculty}, true)
	testutil.CreateStudents(t, app.studentRepo, class, "R1", "R2")
	token := app.getToken(t, faculty)

	// the quiz column wins over the generic marks column
	sheet := "Reg No,Name,Total Marks,Quiz Score\nR1,Ada,40,4.50\nR2,Grace,38,5\n"
	rec := app.upload(t, "marks", token, scopeFields("maths", "QUIZ"), "marks.csv", sheet)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var pv importer.Preview
	decode(t, rec, &pv)
	assert.Equal(t, "quiz", pv.Scope.ExamType)
	assert.Equal(t, "quiz", pv.Field())
	assert.Equal(t, float64(5), pv.MaxMarks)
	assert.Equal(t, importer.StatusSuccess, pv.Outcome.Status)
	require.Len(t, pv.Outcome.Records, 2)
	assert.Equal(t, "4.5", pv.Outcome.Records[0].Value)
	assert.Equal(t, "5", pv.Outcome.Records[1].Value)
}

func Test_importApi_errors(t *testing.T) {
	app := setup(t)
	faculty := testutil.CreateUser(t, app.usrRepo, "Faculty", "faculty", "faculty@test.local", "", []string{user.RoleFaculty}, true)
	guest := testutil.CreateUser(t, app.usrRepo, "Guest", "guest_user", "guest@test.local", "", nil, true)
	testutil.CreateStudents(t, app.studentRepo, class, "R1", "R2")
	token := app.getToken(t, faculty)

	emptyClass := scopeFields("maths", "quiz")
	emptyClass["section"] = "Z"

	tests := []struct {
		name     string
		mode     string
		token    string
		fields   map[string]string
		filename string
		content  string
		wantCode int
		wantData []byte
	}{
		{
			name: "auth required", mode: "marks", fields: scopeFields("maths", "quiz"),
			filename: "marks.csv", content: "Roll,Quiz\nR1,5\n",
			wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken),
		},
		{
			name: "faculty or admin only", mode: "marks", token: app.getToken(t, guest), fields: scopeFields("maths", "quiz"),
			filename: "marks.csv", content: "Roll,Quiz\nR1,5\n",
			wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden),
		},
		{
			name: "unknown mode", mode: "grades", token: token, fields: scopeFields("maths", "quiz"),
			filename: "marks.csv", content: "Roll,Quiz\nR1,5\n",
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: importer.ErrUnknownMode.Error()}),
		},
		{
			name: "scope required", mode: "attendance", token: token, fields: map[string]string{"branch": "CSE"},
			filename: "register.csv", content: "Roll,Attendance\nR1,5\n",
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{
				"year":     "this field is required",
				"semester": "this field is required",
				"subject":  "this field is required",
			}),
		},
		{
			name: "exam type required", mode: "marks", token: token, fields: scopeFields("maths", ""),
			filename: "marks.csv", content: "Roll,Quiz\nR1,5\n",
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"exam_type": examTypeRequiredText}),
		},
		{
			name: "unknown exam type", mode: "marks", token: token, fields: scopeFields("maths", "viva"),
			filename: "marks.csv", content: "Roll,Quiz\nR1,5\n",
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"exam_type": "unknown exam type"}),
		},
		{
			name: "file required", mode: "marks", token: token, fields: scopeFields("maths", "quiz"),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"file": "this field is required"}),
		},
		{
			name: "empty class", mode: "marks", token: token, fields: emptyClass,
			filename: "marks.csv", content: "Roll,Quiz\nR1,5\n",
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: "no students found for this class"}),
		},
		{
			name: "unsupported format", mode: "marks", token: token, fields: scopeFields("maths", "quiz"),
			filename: "marks.txt", content: "Roll,Quiz\nR1,5\n",
			wantCode: http.StatusUnprocessableEntity, wantData: marshalObj(t, httpErr{Error: importer.ErrUnsupportedFormat.Error()}),
		},
		{
			name: "header not found", mode: "marks", token: token, fields: scopeFields("maths", "quiz"),
			filename: "marks.csv", content: "Student,Mid 1\nR1,5\n",
			wantCode: http.StatusUnprocessableEntity,
			wantData: marshalObj(t, httpErr{Error: (&importer.HeaderNotFoundError{ScannedRows: 20}).Error()}),
		},
		{
			name: "no data", mode: "marks", token: token, fields: scopeFields("maths", "quiz"),
			filename: "marks.csv", content: "Roll,Quiz\n,\n",
			wantCode: http.StatusUnprocessableEntity,
			wantData: marshalObj(t, httpErr{Error: (&importer.NoDataError{HeaderRow: 1}).Error()}),
		},
		{
			name: "above max marks", mode: "marks", token: token, fields: scopeFields("maths", "quiz"),
			filename: "marks.csv", content: "Roll,Quiz\nR1,15\nR2,\n",
			wantCode: http.StatusUnprocessableEntity,
			wantData: marshalObj(t, map[string]interface{}{
				"error":    "row 2 (roll R1): value 15 exceeds the maximum of 10",
				"errors":   []string{"row 2 (roll R1): value 15 exceeds the maximum of 10"},
				"warnings": []string{"row 3 (roll R2): value is missing"},
			}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.upload(t, tt.mode, tt.token, tt.fields, tt.filename, tt.content)
			checkCodeAndData(t, httpTest{wantCode: tt.wantCode, wantData: tt.wantData}, rec)
		})
	}
}

func Test_importApi_uploadTooLarge(t *testing.T) {
	app := setup(t, func(conf *core.Config) { conf.Import.MaxUploadSize = 256 })
	faculty := testutil.CreateUser(t, app.usrRepo, "Faculty", "faculty", "faculty@test.local", "", []string{user.RoleFaculty}, true)
	testutil.CreateStudents(t, app.studentRepo, class, "R1")

	content := "Roll,Attendance\n" + strings.Repeat("R1,5\n", 100)
	rec := app.upload(t, "attendance", app.getToken(t, faculty), scopeFields("maths", ""), "big.csv", content)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
}
