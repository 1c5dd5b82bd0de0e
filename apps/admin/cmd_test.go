package main

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NycolasFelipe/uninter-gestao-eventos/core"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core/apiclient"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core/querycache"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core/resource"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core/session"
	"github.com/NycolasFelipe/uninter-gestao-eventos/storage/tokenstore/inmem"
	"github.com/NycolasFelipe/uninter-gestao-eventos/tests"
)

var ana = testutil.Account{
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

type cliTest struct {
	name       string
	args       []string // without program name
	stdin      string
	wantErr    error
	wantErrStr string
	wantOut    []string // substrings of the output
}

type testCLI struct {
	*commandLine
	backend *testutil.Backend
	out     *bytes.Buffer
}

func setup(t *testing.T, accounts ...testutil.Account) *testCLI {
	if len(accounts) == 0 {
		accounts = []testutil.Account{ana}
	}
	backend := testutil.NewBackend(t, accounts...)
	tokens := inmemstore.New()
	logger := testutil.Logger()

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	resource.InitValidators(validate, translator)

	cache := querycache.New()
	client := apiclient.New(backend.BaseURL(), tokens, logger)
	sessionSvc := session.NewService(tokens, client, cache, logger)
	t.Cleanup(sessionSvc.Close)

	out := new(bytes.Buffer)
	return &testCLI{
		commandLine: &commandLine{
			conf:     &core.Config{AppName: "Gestao Eventos", Env: "TEST", TestMode: true},
			logger:   logger,
			session:  sessionSvc,
			res:      resource.NewService(client, cache),
			validate: validate,
			out:      out,
		},
		backend: backend,
		out:     out,
	}
}

func mockPassword(t *testing.T, pwd string) {
	prev := readPasswordFunc
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
	t.Cleanup(func() { readPasswordFunc = prev })
}

func (cli *testCLI) login(t *testing.T, acct testutil.Account) {
	mockPassword(t, acct.Password)
	if err := cli.run([]string{"admin", "login", "--email", acct.Email}); err != nil {
		t.Fatalf("login() failed: %v", err)
	}
	cli.out.Reset()
}

func runTests(t *testing.T, cli *testCLI, tests []cliTest) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			cli.out.Reset()
			cli.in = strings.NewReader(tt.stdin)

			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				if errors.Cause(err) != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
			case tt.wantErrStr != "":
				if err == nil || !strings.Contains(err.Error(), tt.wantErrStr) {
					t.Errorf("cli.run() error = %v, wantErrStr %s", err, tt.wantErrStr)
				}
			case err != nil:
				t.Errorf("cli.run() unexpected error = %v", err)
			}
			for _, want := range tt.wantOut {
				assert.Contains(t, cli.out.String(), want)
			}
		})
	}
}

func Test_commandLine_anonymous(t *testing.T) {
	cli := setup(t)

	runTests(t, cli, []cliTest{
		{name: "no command", wantErr: errHelp, wantOut: []string{"Usage:"}},
		{name: "unknown command", args: []string{"lol"}, wantErrStr: `unknown command "lol" for "admin"`},
		{name: "unknown output", args: []string{"whoami", "-o", "xml"}, wantErrStr: `unknown output format "xml"`},
		{name: "whoami", args: []string{"whoami"}, wantErr: errLoginRequired},
		{name: "list events", args: []string{"events", "list"}, wantErr: errLoginRequired},
		{name: "venue pictures", args: []string{"venue-pictures", "list", "--venue-id", "1"}, wantErr: errLoginRequired},
		{name: "logout", args: []string{"logout"}, wantOut: []string{"Logged out"}},
	})
	assert.Zero(t, cli.backend.Count("GET", "/events"))
}

func Test_commandLine_login(t *testing.T) {
	cli := setup(t)

	tests := []struct {
		cliTest
		pwd string
	}{
		{cliTest: cliTest{name: "no email", args: []string{"login"}, wantErr: errHelp}, pwd: "secret"},
		{cliTest: cliTest{name: "no password", args: []string{"login", "--email", ana.Email}, wantErr: errHelp}},
		{cliTest: cliTest{name: "wrong password", args: []string{"login", "--email", ana.Email}, wantErrStr: "Invalid credentials"}, pwd: "lol"},
		{cliTest: cliTest{name: "unknown user", args: []string{"login", "--email", "bob@school.test"}, wantErrStr: "Invalid credentials"}, pwd: "secret"},
		{
			cliTest: cliTest{name: "padded email sent as typed", args: []string{"login", "--email", " ana@school.test "}, wantErrStr: "Invalid credentials"},
			pwd:     "secret",
		},
		{
			cliTest: cliTest{name: "success", args: []string{"login", "--email", "ANA@school.test"}, wantOut: []string{"Enter password:", "Logged in as Ana Lima"}},
			pwd:     "secret",
		},
	}
	for _, tt := range tests {
		mockPassword(t, tt.pwd)
		runTests(t, cli, []cliTest{tt.cliTest})
	}

	state := cli.session.State()
	require.True(t, state.Authenticated)
	assert.Equal(t, ana.Email, state.User.Email)
	req, ok := cli.backend.LastRequest("/auth/login")
	require.True(t, ok)
	assert.JSONEq(t, `{"email":"ANA@school.test","password":"secret"}`, string(req.Body))

	runTests(t, cli, []cliTest{
		{name: "whoami", args: []string{"whoami"}, wantOut: []string{`"email": "ana@school.test"`, `"firstName": "Ana"`}},
		{name: "whoami yaml", args: []string{"whoami", "-o", "yaml"}, wantOut: []string{"email: ana@school.test"}},
		{name: "logout", args: []string{"logout"}, wantOut: []string{"Logged out"}},
		{name: "whoami after logout", args: []string{"whoami"}, wantErr: errLoginRequired},
	})
}

func Test_commandLine_loginPasswordKeepsSpaces(t *testing.T) {
	bia := testutil.Account{ID: 2, FirstName: "Bia", LastName: "Reis", Email: "bia@school.test", Password: " two words ", RoleID: 1, RoleName: "Admin"}
	cli := setup(t, bia)

	mockPassword(t, "two words")
	runTests(t, cli, []cliTest{
		{name: "trimmed password", args: []string{"login", "--email", bia.Email}, wantErrStr: "Invalid credentials"},
	})

	mockPassword(t, bia.Password)
	runTests(t, cli, []cliTest{
		{name: "password as typed", args: []string{"login", "--email", bia.Email}, wantOut: []string{"Logged in as Bia Reis"}},
	})
	req, ok := cli.backend.LastRequest("/auth/login")
	require.True(t, ok)
	assert.JSONEq(t, `{"email":"bia@school.test","password":" two words "}`, string(req.Body))
}

func Test_commandLine_loginHTTPError(t *testing.T) {
	cli := setup(t)
	mockPassword(t, "lol")

	err := cli.run([]string{"admin", "login", "--email", ana.Email})
	var herr *apiclient.HTTPError
	require.True(t, errors.As(err, &herr), "got %v", err)
	assert.Equal(t, 401, herr.Status)
	assert.False(t, cli.session.State().Authenticated)
}

func Test_commandLine_resources(t *testing.T) {
	cli := setup(t)
	cli.backend.Seed("schools",
		map[string]interface{}{"id": 1, "name": "Escola Norte", "address": "Rua A"},
		map[string]interface{}{"id": 2, "name": "Escola Sul", "address": nil},
	)
	cli.backend.Seed("roles", map[string]interface{}{"id": 1, "roleName": "Admin"})
	cli.backend.Seed("permissions", map[string]interface{}{"id": 7, "permissionName": "MANAGE_EVENTS"})
	cli.login(t, ana)

	runTests(t, cli, []cliTest{
		{name: "kind help", args: []string{"schools"}, wantErr: errHelp},
		{name: "list", args: []string{"schools", "list"}, wantOut: []string{"Escola Norte", "Escola Sul"}},
		{name: "list with search", args: []string{"schools", "list", "--search", "SUL"}, wantOut: []string{`"name": "Escola Sul"`}},
		{name: "list yaml", args: []string{"schools", "list", "-o", "yaml"}, wantOut: []string{"id: 1", "name: Escola Norte", "address: Rua A"}},
		{name: "unsupported", args: []string{"schools", "get", "--id", "1"}, wantErr: resource.ErrUnsupported},
		{name: "create", args: []string{"schools", "create", "--data", `{"name": "  Escola Leste "}`}, wantOut: []string{`"name": "Escola Leste"`}},
		{name: "create from stdin", args: []string{"schools", "create", "--data", "-"}, stdin: `{"name": "Escola Oeste"}`, wantOut: []string{`"name": "Escola Oeste"`}},
		{name: "update", args: []string{"schools", "update", "--id", "2", "--data", `{"name": "Escola do Sul"}`}},
		{name: "delete", args: []string{"schools", "delete", "--id", "1"}, wantOut: []string{`"message"`}},
		{name: "get unknown id", args: []string{"permissions", "get", "--id", "999"}, wantErrStr: "Not found"},
		{name: "assign permissions", args: []string{"roles", "assign-permissions", "--id", "1", "--permission-ids", "7"}, wantOut: []string{"Permissions assigned successfully"}},
		{name: "check permission", args: []string{"permissions", "check", "--name", "MANAGE_EVENTS"}, wantOut: []string{`"granted": true`}},
		{name: "check missing permission", args: []string{"permissions", "check", "--name", "MANAGE_USERS"}, wantOut: []string{`"granted": false`}},
		{name: "my details", args: []string{"users", "me"}, wantOut: []string{`"email": "ana@school.test"`}},
	})

	list := cli.backend.Count("GET", "/schools")
	assert.True(t, list >= 1, "schools fetched %d times", list)
}

func Test_commandLine_resourceValidation(t *testing.T) {
	cli := setup(t)
	cli.login(t, ana)

	tests := []struct {
		name      string
		args      []string
		wantField string
	}{
		{name: "no data", args: []string{"schools", "create"}, wantField: "data"},
		{name: "malformed data", args: []string{"schools", "create", "--data", "{"}},
		{name: "no id", args: []string{"schools", "delete"}, wantField: "id"},
		{name: "no permission name", args: []string{"permissions", "check"}, wantField: "name"},
		{name: "no venue", args: []string{"venue-pictures", "list"}, wantField: "id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(append([]string{"admin"}, tt.args...))
			var valErr *core.ValidationError
			require.True(t, errors.As(err, &valErr), "got %v", err)
			if tt.wantField != "" {
				require.Len(t, valErr.Fields, 1)
				assert.Equal(t, tt.wantField, valErr.Fields[0].Field)
			}
		})
	}

	t.Run("invalid input", func(t *testing.T) {
		err := cli.run([]string{"admin", "schools", "create", "--data", `{"name": "   "}`})
		var valErrs validator.ValidationErrors
		require.True(t, errors.As(err, &valErrs), "got %v", err)
		assert.Equal(t, "name", valErrs[0].Field())
	})
	assert.Zero(t, cli.backend.Count("POST", "/schools"))
}

func Test_commandLine_venuePictures(t *testing.T) {
	cli := setup(t)
	cli.backend.Seed("venues", map[string]interface{}{"id": 3, "schoolId": 1, "name": "Auditorio"})
	cli.login(t, ana)

	runTests(t, cli, []cliTest{
		{name: "invalid url", args: []string{"venue-pictures", "add", "--venue-id", "3", "--url", "lol"}, wantErrStr: "url"},
		{
			name:    "add",
			args:    []string{"venue-pictures", "add", "--venue-id", "3", "--url", "https://img.test/a.png", "--url", "https://img.test/b.png"},
			wantOut: []string{`"message": "created"`},
		},
		{name: "list", args: []string{"venue-pictures", "list", "--venue-id", "3"}, wantOut: []string{"https://img.test/a.png", "https://img.test/b.png"}},
	})

	pics, err := cli.res.VenuePictures(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, pics, 2)

	runTests(t, cli, []cliTest{
		{name: "delete", args: []string{"venue-pictures", "delete", "--id", strconv.FormatInt(pics[0].ID, 10)}, wantOut: []string{`"message": "deleted"`}},
	})
	pics, err = cli.res.VenuePictures(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, pics, 1)
}
