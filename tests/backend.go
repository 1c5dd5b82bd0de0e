package testutil

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
)

// APIPrefix is where the fake backend mounts its routes.
const APIPrefix = "/api/v0"

// crudResources are served with list, get, create, update (PATCH) & delete.
var crudResources = []string{"events", "event-types", "schools", "venues", "users", "roles", "permissions"}

type (
	// Account is a user allowed to log into the fake backend.
	Account struct {
		ID          int64
		FirstName   string
		LastName    string
		Email       string
		Password    string
		RoleID      int64
		RoleName    string
		SchoolID    int64
		SchoolName  string
		Permissions []string
	}

	// Request is a request received by the fake backend.
	Request struct {
		Method        string
		Path          string // prefix trimmed, query included
		Authorization string
		Body          []byte
	}

	record = map[string]interface{}

	// Backend is an in-memory school-events backend served over HTTP.
	Backend struct {
		server *httptest.Server

		mu       sync.Mutex
		accounts []Account
		tokens   map[string]Account
		records  map[string]map[int64]record
		nextID   int64
		requests []Request
	}
)

// NewBackend starts a fake backend, closed when t ends.
func NewBackend(t *testing.T, accounts ...Account) *Backend {
	b := &Backend{
		accounts: accounts,
		tokens:   make(map[string]Account),
		records:  make(map[string]map[int64]record),
		nextID:   100,
	}
	b.server = httptest.NewServer(b.routes())
	t.Cleanup(b.server.Close)
	return b
}

// BaseURL is the URL the console must prefix its paths with.
func (b *Backend) BaseURL() string {
	return b.server.URL + APIPrefix
}

func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// Count returns how many requests matched method & path.
func (b *Backend) Count(method, path string) int {
	var n int
	for _, req := range b.Requests() {
		if req.Method == method && req.Path == path {
			n++
		}
	}
	return n
}

// LastRequest returns the latest request to path, if any.
func (b *Backend) LastRequest(path string) (Request, bool) {
	reqs := b.Requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Path == path {
			return reqs[i], true
		}
	}
	return Request{}, false
}

// RevokeTokens makes every issued token answer 401 from now on.
func (b *Backend) RevokeTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = make(map[string]Account)
}

// Seed stores objects under resource and returns their ids. Objects without an "id" get one.
func (b *Backend) Seed(resource string, objs ...map[string]interface{}) []int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]int64, 0, len(objs))
	for _, obj := range objs {
		ids = append(ids, b.insert(resource, obj))
	}
	return ids
}

// insert must be called with mu held.
func (b *Backend) insert(resource string, obj record) int64 {
	rec := make(record, len(obj)+1)
	for k, v := range obj {
		rec[k] = v
	}
	id, ok := toInt64(rec["id"])
	if !ok {
		b.nextID++
		id = b.nextID
	}
	rec["id"] = id
	if b.records[resource] == nil {
		b.records[resource] = make(map[int64]record)
	}
	b.records[resource][id] = rec
	return id
}

// list must be called with mu held.
func (b *Backend) list(resource string, keep func(record) bool) []record {
	out := make([]record, 0, len(b.records[resource]))
	for _, rec := range b.records[resource] {
		if keep == nil || keep(rec) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := toInt64(out[i]["id"])
		c, _ := toInt64(out[j]["id"])
		return a < c
	})
	return out
}

func (b *Backend) routes() *echo.Echo {
	app := echo.New()
	app.HideBanner = true
	app.HTTPErrorHandler = func(err error, ctx echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if herr, ok := err.(*echo.HTTPError); ok {
			code = herr.Code
			msg, _ = herr.Message.(string)
		}
		_ = ctx.JSON(code, echo.Map{"message": msg, "statusCode": code})
	}

	api := app.Group(APIPrefix, b.record)
	api.POST("/auth/login", b.login)

	g := api.Group("", b.authenticate)
	g.GET("/users/my-details", b.myDetails)
	g.GET("/users/:id/detail", b.retrieve("users"))
	g.GET("/roles/with-users", b.rolesWithUsers)
	g.PUT("/roles/:id/permissions", b.assignPermissions)
	g.GET("/venues/school/:id", b.schoolVenues)
	g.GET("/venues/picture", b.venuePictures)
	g.POST("/venues/picture", b.createVenuePictures)
	g.PATCH("/venues/picture/:id", b.update("venuePictures"))
	g.DELETE("/venues/picture/:id", b.destroy("venuePictures"))
	g.GET("/subscriptions/my-subscriptions", b.mySubscriptions)
	g.POST("/subscriptions", b.subscribe)
	g.GET("/subscriptions/cancel/:id", b.destroy("subscriptions"))
	for _, res := range crudResources {
		g.GET("/"+res, b.query(res))
		g.GET("/"+res+"/:id", b.retrieve(res))
		g.POST("/"+res, b.create(res))
		g.PATCH("/"+res+"/:id", b.update(res))
		g.DELETE("/"+res+"/:id", b.destroy(res))
	}
	return app
}

func (b *Backend) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		req := ctx.Request()
		var body []byte
		if req.Body != nil {
			body, _ = ioutil.ReadAll(req.Body)
			req.Body = ioutil.NopCloser(bytes.NewReader(body))
		}
		b.mu.Lock()
		b.requests = append(b.requests, Request{
			Method:        req.Method,
			Path:          strings.TrimPrefix(req.URL.RequestURI(), APIPrefix),
			Authorization: req.Header.Get("Authorization"),
			Body:          body,
		})
		b.mu.Unlock()
		return next(ctx)
	}
}

const accountKey = "account"

func (b *Backend) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		token := strings.TrimSpace(strings.TrimPrefix(ctx.Request().Header.Get("Authorization"), "Bearer"))
		b.mu.Lock()
		acct, ok := b.tokens[token]
		b.mu.Unlock()
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
		}
		ctx.Set(accountKey, acct)
		return next(ctx)
	}
}

func (b *Backend) login(ctx echo.Context) error {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(ctx, &creds); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid body")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, acct := range b.accounts {
		if strings.EqualFold(acct.Email, creds.Email) && acct.Password == creds.Password {
			claims := jwt.MapClaims{
				"id":        acct.ID,
				"firstName": acct.FirstName,
				"lastName":  acct.LastName,
				"email":     acct.Email,
				"role":      echo.Map{"id": acct.RoleID, "roleName": acct.RoleName},
				"school":    echo.Map{"id": acct.SchoolID, "name": acct.SchoolName},
				"iat":       len(b.tokens), // tokens of the same account must differ
			}
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tokenKey)
			if err != nil {
				return err
			}
			b.tokens[token] = acct
			return ctx.JSON(http.StatusOK, echo.Map{"token": token})
		}
	}
	return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
}

func (b *Backend) myDetails(ctx echo.Context) error {
	acct := ctx.Get(accountKey).(Account)
	perms := make([]echo.Map, 0, len(acct.Permissions))
	for i, name := range acct.Permissions {
		perms = append(perms, echo.Map{"id": i + 1, "permissionName": name})
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"id":                acct.ID,
		"firstName":         acct.FirstName,
		"lastName":          acct.LastName,
		"email":             acct.Email,
		"isActive":          true,
		"profilePictureUrl": nil,
		"phoneNumber":       "",
		"role":              echo.Map{"id": acct.RoleID, "roleName": acct.RoleName, "description": nil, "permissions": perms},
		"school":            echo.Map{"id": acct.SchoolID, "name": acct.SchoolName, "address": nil},
	})
}

func (b *Backend) query(res string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		b.mu.Lock()
		defer b.mu.Unlock()
		return ctx.JSON(http.StatusOK, b.list(res, nil))
	}
}

func (b *Backend) retrieve(res string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid id")
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		rec, ok := b.records[res][id]
		if !ok {
			return echo.NewHTTPError(http.StatusNotFound, "Not found")
		}
		return ctx.JSON(http.StatusOK, rec)
	}
}

func (b *Backend) create(res string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var obj record
		if err := decodeBody(ctx, &obj); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid body")
		}
		delete(obj, "id")
		b.mu.Lock()
		defer b.mu.Unlock()
		id := b.insert(res, obj)
		return ctx.JSON(http.StatusCreated, b.records[res][id])
	}
}

func (b *Backend) update(res string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid id")
		}
		var obj record
		if err = decodeBody(ctx, &obj); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid body")
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		rec, ok := b.records[res][id]
		if !ok {
			return echo.NewHTTPError(http.StatusNotFound, "Not found")
		}
		for k, v := range obj {
			if k != "id" {
				rec[k] = v
			}
		}
		if res == "venues" || res == "venuePictures" {
			return ctx.JSON(http.StatusOK, rec)
		}
		return ctx.JSON(http.StatusOK, echo.Map{"message": "Updated successfully"})
	}
}

func (b *Backend) destroy(res string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid id")
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.records[res][id]; !ok {
			return echo.NewHTTPError(http.StatusNotFound, "Not found")
		}
		delete(b.records[res], id)
		if res == "venues" || res == "venuePictures" {
			return ctx.NoContent(http.StatusNoContent)
		}
		return ctx.JSON(http.StatusOK, echo.Map{"message": "Deleted successfully"})
	}
}

func (b *Backend) rolesWithUsers(ctx echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	roles := b.list("roles", nil)
	out := make([]record, 0, len(roles))
	for _, role := range roles {
		roleID, _ := toInt64(role["id"])
		users := b.list("users", func(usr record) bool {
			id, ok := toInt64(usr["roleId"])
			return ok && id == roleID
		})
		withUsers := make(record, len(role)+1)
		for k, v := range role {
			withUsers[k] = v
		}
		withUsers["users"] = users
		out = append(out, withUsers)
	}
	return ctx.JSON(http.StatusOK, out)
}

func (b *Backend) assignPermissions(ctx echo.Context) error {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid id")
	}
	var body struct {
		PermissionIDs []int64 `json:"permissionIds"`
	}
	if err = decodeBody(ctx, &body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid body")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	role, ok := b.records["roles"][id]
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Role not found")
	}
	perms := make([]record, 0, len(body.PermissionIDs))
	for _, permID := range body.PermissionIDs {
		if perm, ok := b.records["permissions"][permID]; ok {
			perms = append(perms, perm)
		}
	}
	role["permissions"] = perms
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Permissions assigned successfully"})
}

func (b *Backend) schoolVenues(ctx echo.Context) error {
	schoolID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid id")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return ctx.JSON(http.StatusOK, b.list("venues", func(v record) bool {
		id, ok := toInt64(v["schoolId"])
		return ok && id == schoolID
	}))
}

func (b *Backend) venuePictures(ctx echo.Context) error {
	venueID, err := strconv.ParseInt(ctx.QueryParam("venueId"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "venueId is required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return ctx.JSON(http.StatusOK, b.list("venuePictures", func(p record) bool {
		id, ok := toInt64(p["venueId"])
		return ok && id == venueID
	}))
}

func (b *Backend) createVenuePictures(ctx echo.Context) error {
	var pics []record
	if err := decodeBody(ctx, &pics); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Expected an array of pictures")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, pic := range pics {
		delete(pic, "id")
		b.insert("venuePictures", pic)
	}
	return ctx.NoContent(http.StatusCreated)
}

func (b *Backend) mySubscriptions(ctx echo.Context) error {
	acct := ctx.Get(accountKey).(Account)
	b.mu.Lock()
	defer b.mu.Unlock()
	return ctx.JSON(http.StatusOK, b.list("subscriptions", func(sub record) bool {
		id, ok := toInt64(sub["userId"])
		return ok && id == acct.ID
	}))
}

func (b *Backend) subscribe(ctx echo.Context) error {
	acct := ctx.Get(accountKey).(Account)
	var body struct {
		EventID int64 `json:"eventId"`
	}
	if err := decodeBody(ctx, &body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid body")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	evt, ok := b.records["events"][body.EventID]
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Event not found")
	}
	id := b.insert("subscriptions", record{"userId": acct.ID, "event": evt, "createdAt": "2025-05-20T10:00:00.000Z"})
	return ctx.JSON(http.StatusCreated, b.records["subscriptions"][id])
}

// decodeBody reads the JSON body; echo's binder would also bind path params into maps.
func decodeBody(ctx echo.Context, v interface{}) error {
	return json.NewDecoder(ctx.Request().Body).Decode(v)
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}
