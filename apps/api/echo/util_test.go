package echoapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/importer"
	"github.com/trezcool/academia/core/record"
	"github.com/trezcool/academia/core/roster"
	"github.com/trezcool/academia/core/user"
	appfs "github.com/trezcool/academia/fs"
	emailsvc "github.com/trezcool/academia/services/email"
	inmemcache "github.com/trezcool/academia/storage/cache/inmem"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
	"github.com/trezcool/academia/testutil"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}

	class = roster.Filter{Branch: "CSE", Year: 2, Semester: 1, Section: "A"}
)

type testApp struct {
	*server
	conf        *core.Config
	usrRepo     user.Repository
	studentRepo roster.Repository
	mailSvc     *emailsvc.ConsoleService
}

func setup(t *testing.T, configure ...func(conf *core.Config)) *testApp {
	t.Helper()

	conf := core.NewTestConfig()
	for _, fn := range configure {
		fn(conf)
	}
	logger := testutil.NewLogger()
	core.ParseEmailTemplates(appfs.FS, logger, true)
	validate, translator := testutil.NewTranslatedValidator()

	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	studentRepo := inmemdb.NewStudentRepository(db)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)

	srv := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     logger,
		UserSvc:    user.NewService(usrRepo, mailSvc, conf),
		RosterSvc:  roster.NewService(studentRepo),
		RecordSvc:  record.NewService(inmemdb.NewRecordRepository(db), logger),
		Importer:   importer.New(conf.Import),
		Previews:   inmemcache.NewPreviewStore(conf.Redis.PreviewTTL),
		Validate:   validate,
		Translator: translator,
	})
	return &testApp{
		server:      srv.(*server),
		conf:        conf,
		usrRepo:     usrRepo,
		studentRepo: studentRepo,
		mailSvc:     mailSvc,
	}
}

func (app *testApp) getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := app.auth.generateToken(app.auth.userClaims(usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func (app *testApp) serve(req *http.Request, rec *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	app.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// newUploadRequest builds a multipart request carrying fields and, when filename is set, a `file` part.
func newUploadRequest(
	t *testing.T,
	path, token string,
	fields map[string]string,
	filename string,
	content []byte,
) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		fw, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func marshalList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marshalList() failed: %v", err)
	}
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if _, ok := j1.([]interface{}); !ok {
		return false, nil
	}
	if _, ok := j2.([]interface{}); !ok {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app *testApp, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, app.serve(req, rec))
		})
	}
}
