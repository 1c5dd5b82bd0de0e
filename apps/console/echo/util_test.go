package echoconsole_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"

	. "github.com/NycolasFelipe/uninter-gestao-eventos/apps/console/echo"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core/apiclient"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core/querycache"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core/resource"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core/session"
	"github.com/NycolasFelipe/uninter-gestao-eventos/storage/tokenstore/inmem"
	"github.com/NycolasFelipe/uninter-gestao-eventos/tests"
)

var (
	ana = testutil.Account{
		ID:          1,
		FirstName:   "Ana",
		LastName:    "Lima",
		Email:       "ana@school.test",
		Password:    "secret",
		RoleID:      1,
		RoleName:    "Admin",
		SchoolID:    1,
		SchoolName:  "Escola Norte",
		Permissions: []string{"MANAGE_EVENTS"},
	}

	errLoginRequired = httpErr{Error: "login required"}
)

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
}

// testApp is a console wired to a fake backend, with its own tab of the token slot.
type testApp struct {
	backend *testutil.Backend
	tokens  *inmemstore.Tab
	cache   *querycache.Cache
	session session.Service
	server  *Server
}

func newTestApp(t *testing.T, backend *testutil.Backend, tokens *inmemstore.Tab, opts ...func(*core.Config)) *testApp {
	conf := &core.Config{
		AppName:  "Gestao Eventos",
		Env:      "TEST",
		TestMode: true,
		Server:   core.ServerConfig{DisableReqLogs: true},
	}
	for _, opt := range opts {
		opt(conf)
	}
	logger := testutil.Logger()

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	resource.InitValidators(validate, translator)

	cache := querycache.New()
	client := apiclient.New(backend.BaseURL(), tokens, logger)
	sessionSvc := session.NewService(tokens, client, cache, logger)
	t.Cleanup(sessionSvc.Close)

	server := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Session:    sessionSvc,
		Resources:  resource.NewService(client, cache),
		Validate:   validate,
		Translator: translator,
	})
	return &testApp{backend: backend, tokens: tokens, cache: cache, session: sessionSvc, server: server}
}

// newBootstrappedApp returns an anonymous console.
func newBootstrappedApp(t *testing.T, accounts ...testutil.Account) *testApp {
	app := newTestApp(t, testutil.NewBackend(t, accounts...), inmemstore.New())
	app.session.Bootstrap(context.Background())
	return app
}

func (app *testApp) do(method, path string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newRequest(method, path, data...)
	app.server.ServeHTTP(rec, req)
	return rec
}

func (app *testApp) login(t *testing.T, acct testutil.Account) {
	rec := app.do(http.MethodPost, "/login", marshallObj(t, LoginRequest{Email: acct.Email, Password: acct.Password}))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("login() failed: code = %v; body %v", rec.Code, rec.Body.String())
	}
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return req, rec
}

func newFormRequest(path string, form url.Values) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, httptest.NewRecorder()
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func unmarshallObj(t *testing.T, data []byte, obj interface{}) {
	if err := json.Unmarshal(data, obj); err != nil {
		t.Fatalf("unmarshallObj(%s) failed: %v", data, err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
