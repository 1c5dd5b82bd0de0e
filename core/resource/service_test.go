package resource

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NycolasFelipe/uninter-gestao-eventos/core"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core/apiclient"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core/querycache"
)

type call struct {
	method string
	path   string
	body   interface{}
}

type fakeCaller struct {
	mu        sync.Mutex
	responses map[string]string // "METHOD path" -> JSON
	failures  map[string]error
	calls     []call
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{responses: make(map[string]string), failures: make(map[string]error)}
}

func (f *fakeCaller) Call(_ context.Context, method, path string, body, out interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{method: method, path: path, body: body})

	key := method + " " + path
	if err, ok := f.failures[key]; ok {
		return err
	}
	data, ok := f.responses[key]
	if !ok || out == nil {
		return nil
	}
	return json.Unmarshal([]byte(data), out)
}

func (f *fakeCaller) count(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int
	for _, c := range f.calls {
		if c.method == method && c.path == path {
			n++
		}
	}
	return n
}

var _ apiclient.Caller = (*fakeCaller)(nil)

func setup() (*Service, *fakeCaller) {
	api := newFakeCaller()
	return NewService(api, querycache.New()), api
}

func TestService_readsAreCachedUntilMutation(t *testing.T) {
	svc, api := setup()
	ctx := context.Background()
	api.responses["GET /events"] = `[{"id":1,"name":"Science Fair","status":"Planned"}]`
	api.responses["POST /events"] = `{"id":2,"name":"Art Show","status":"Draft"}`

	for i := 0; i < 3; i++ {
		events, err := svc.Events(ctx)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, StatusPlanned, events[0].Status)
	}
	assert.Equal(t, 1, api.count(http.MethodGet, "/events"))

	evt, err := svc.CreateEvent(ctx, EventInput{Name: "Art Show", Status: StatusDraft})
	require.NoError(t, err)
	assert.Equal(t, int64(2), evt.ID)

	_, err = svc.Events(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, api.count(http.MethodGet, "/events"))
}

func TestService_failedMutationKeepsCache(t *testing.T) {
	svc, api := setup()
	ctx := context.Background()
	api.responses["GET /schools"] = `[{"id":1,"name":"North","address":null}]`
	api.failures["DELETE /schools/1"] = &apiclient.HTTPError{Status: http.StatusConflict, Message: "school has events"}

	_, err := svc.Schools(ctx)
	require.NoError(t, err)

	_, err = svc.DeleteSchool(ctx, 1)
	var httpErr *apiclient.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, "school has events", httpErr.Message)

	_, err = svc.Schools(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, api.count(http.MethodGet, "/schools"))
}

func TestService_paths(t *testing.T) {
	svc, api := setup()
	ctx := context.Background()

	tests := []struct {
		name   string
		run    func() error
		method string
		path   string
	}{
		{name: "event", run: func() error { _, err := svc.Event(ctx, 7); return err }, method: http.MethodGet, path: "/events/7"},
		{name: "update event", run: func() error { _, err := svc.UpdateEvent(ctx, 7, EventInput{}); return err }, method: http.MethodPatch, path: "/events/7"},
		{name: "school venues", run: func() error { _, err := svc.SchoolVenues(ctx, 3); return err }, method: http.MethodGet, path: "/venues/school/3"},
		{name: "venue pictures", run: func() error { _, err := svc.VenuePictures(ctx, 4); return err }, method: http.MethodGet, path: "/venues/picture?venueId=4"},
		{name: "update venue picture", run: func() error { _, err := svc.UpdateVenuePicture(ctx, 9, VenuePictureInput{}); return err }, method: http.MethodPatch, path: "/venues/picture/9"},
		{name: "my details", run: func() error { _, err := svc.MyDetails(ctx); return err }, method: http.MethodGet, path: "/users/my-details"},
		{name: "user detail", run: func() error { _, err := svc.UserDetail(ctx, 5); return err }, method: http.MethodGet, path: "/users/5/detail"},
		{name: "roles with users", run: func() error { _, err := svc.RolesWithUsers(ctx); return err }, method: http.MethodGet, path: "/roles/with-users"},
		{name: "assign permissions", run: func() error { _, err := svc.AssignPermissions(ctx, 2, []int64{1, 3}); return err }, method: http.MethodPut, path: "/roles/2/permissions"},
		{name: "my subscriptions", run: func() error { _, err := svc.MySubscriptions(ctx); return err }, method: http.MethodGet, path: "/subscriptions/my-subscriptions"},
		{name: "cancel subscription", run: func() error { _, err := svc.CancelSubscription(ctx, 8); return err }, method: http.MethodGet, path: "/subscriptions/cancel/8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.run())
			assert.Equal(t, 1, api.count(tt.method, tt.path))
		})
	}
}

func TestService_CreateVenuePictures(t *testing.T) {
	svc, api := setup()
	ctx := context.Background()

	require.NoError(t, svc.CreateVenuePictures(ctx, nil))
	assert.Empty(t, api.calls)

	pics := []VenuePictureInput{
		{VenueID: 1, PictureURL: "https://img.test/a.png"},
		{VenueID: 1, PictureURL: "https://img.test/b.png"},
	}
	require.NoError(t, svc.CreateVenuePictures(ctx, pics))
	require.Len(t, api.calls, 1)
	assert.Equal(t, "/venues/picture", api.calls[0].path)
	assert.Equal(t, pics, api.calls[0].body)
}

func TestService_HasPermission(t *testing.T) {
	svc, api := setup()
	ctx := context.Background()
	api.responses["GET /users/my-details"] = `{
		"id": 1, "firstName": "Ana", "lastName": "Lima", "email": "ana@school.test",
		"role": {"id": 1, "roleName": "Admin", "permissions": [{"id": 1, "permissionName": "MANAGE_EVENTS"}]},
		"school": {"id": 1, "name": "North"}
	}`

	tests := []struct {
		name       string
		permission string
		want       bool
	}{
		{name: "granted", permission: "MANAGE_EVENTS", want: true},
		{name: "not granted", permission: "MANAGE_USERS", want: false},
		{name: "case sensitive", permission: "manage_events", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.HasPermission(ctx, tt.permission)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, 1, api.count(http.MethodGet, "/users/my-details"))

	_, err := svc.AssignPermissions(ctx, 1, nil)
	require.NoError(t, err)
	_, err = svc.HasPermission(ctx, "MANAGE_EVENTS")
	require.NoError(t, err)
	assert.Equal(t, 2, api.count(http.MethodGet, "/users/my-details"))
}

func TestService_MySubscription(t *testing.T) {
	svc, api := setup()
	api.responses["GET /subscriptions/my-subscriptions"] = `[
		{"id": 10, "event": {"id": 1, "name": "Science Fair"}, "createdAt": "2025-05-20T10:00:00Z"},
		{"id": 11, "event": {"id": 2, "name": "Art Show"}, "createdAt": "2025-05-21T10:00:00Z"}
	]`

	sub, err := svc.MySubscription(context.Background(), 2)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, int64(11), sub.ID)

	sub, err = svc.MySubscription(context.Background(), 3)
	require.NoError(t, err)
	assert.Nil(t, sub)
}

func TestSearch(t *testing.T) {
	addr := "Rua das Flores"
	schools := []School{
		{ID: 1, Name: "Escola Norte", Address: &addr},
		{ID: 2, Name: "Escola Sul"},
		{ID: 3, Name: "Colégio Central"},
	}

	tests := []struct {
		name    string
		term    string
		wantIDs []int64
	}{
		{name: "blank", term: "  ", wantIDs: []int64{1, 2, 3}},
		{name: "name, any case", term: "ESCOLA", wantIDs: []int64{1, 2}},
		{name: "address", term: "flores", wantIDs: []int64{1}},
		{name: "no match", term: "lol", wantIDs: []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := []int64{}
			for _, s := range Search(schools, tt.term) {
				ids = append(ids, s.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestKind_Create(t *testing.T) {
	svc, api := setup()
	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())
	InitValidators(validate, core.NewTranslator())

	kind, ok := LookupKind("events")
	require.True(t, ok)
	assert.Equal(t, "events", kind.Name)

	_, err := kind.Create(context.Background(), svc, []byte(`{"name": "  ", "status": "Someday"}`), validate)
	var vErrs validator.ValidationErrors
	require.True(t, errors.As(err, &vErrs))
	fields := map[string]bool{}
	for _, fe := range vErrs {
		fields[fe.Field()] = true
	}
	assert.True(t, fields["name"])
	assert.True(t, fields["status"])
	assert.Empty(t, api.calls)

	_, err = kind.Create(context.Background(), svc, []byte(`{"name": `), validate)
	var valErr *core.ValidationError
	require.True(t, errors.As(err, &valErr), "got %v", err)

	api.responses["POST /events"] = `{"id": 3, "name": "Sports Day", "status": "Published"}`
	data := []byte(`{"name": " Sports Day ", "status": "Published", "schoolId": 1, "eventTypeId": 1, "venueId": 1,
		"startDate": "2025-07-20", "endDate": "2025-07-20"}`)
	got, err := kind.Create(context.Background(), svc, data, validate)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.(Event).ID)
	require.Len(t, api.calls, 1)
	assert.Equal(t, "Sports Day", api.calls[0].body.(EventInput).Name)
}

func TestKindNames(t *testing.T) {
	assert.Equal(t,
		[]string{"event-types", "events", "permissions", "roles", "schools", "subscriptions", "users", "venues"},
		KindNames(),
	)
}
