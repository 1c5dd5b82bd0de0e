package resource

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"github.com/NycolasFelipe/uninter-gestao-eventos/core/apiclient"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core/querycache"
)

// cache resources
const (
	resEvents        = "events"
	resEventTypes    = "eventTypes"
	resSchools       = "schools"
	resVenues        = "venues"
	resVenuePictures = "venuePictures"
	resUsers         = "users"
	resMyDetails     = "myDetails"
	resRoles         = "roles"
	resPermissions   = "permissions"
	resSubscriptions = "subscriptions"
)

// Service reads & writes the backend resources. Reads are cached until a mutation
// of the same resource (or of one embedding it) succeeds.
type Service struct {
	api   apiclient.Caller
	cache *querycache.Cache
}

func NewService(api apiclient.Caller, cache *querycache.Cache) *Service {
	return &Service{api: api, cache: cache}
}

func fetch[T any](ctx context.Context, svc *Service, key querycache.Key, path string) (T, error) {
	return querycache.Get(ctx, svc.cache, key, func(ctx context.Context) (T, error) {
		var out T
		err := svc.api.Call(ctx, http.MethodGet, path, nil, &out)
		return out, errors.Wrapf(err, "fetching %s", key)
	})
}

// mutate calls the backend then drops the cached results of resources.
func (svc *Service) mutate(ctx context.Context, method, path string, body, out interface{}, resources ...string) error {
	if err := svc.api.Call(ctx, method, path, body, out); err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	svc.cache.Invalidate(resources...)
	return nil
}

func idPath(base string, id int64) string {
	return base + "/" + strconv.FormatInt(id, 10)
}

// Events

func (svc *Service) Events(ctx context.Context) ([]Event, error) {
	return fetch[[]Event](ctx, svc, querycache.NewKey(resEvents), "/events")
}

func (svc *Service) Event(ctx context.Context, id int64) (Event, error) {
	return fetch[Event](ctx, svc, querycache.NewKey(resEvents, id), idPath("/events", id))
}

func (svc *Service) CreateEvent(ctx context.Context, in EventInput) (Event, error) {
	var evt Event
	err := svc.mutate(ctx, http.MethodPost, "/events", in, &evt, resEvents, resSubscriptions)
	return evt, err
}

func (svc *Service) UpdateEvent(ctx context.Context, id int64, in EventInput) (Message, error) {
	var msg Message
	err := svc.mutate(ctx, http.MethodPatch, idPath("/events", id), in, &msg, resEvents, resSubscriptions)
	return msg, err
}

func (svc *Service) DeleteEvent(ctx context.Context, id int64) (Message, error) {
	var msg Message
	err := svc.mutate(ctx, http.MethodDelete, idPath("/events", id), nil, &msg, resEvents, resSubscriptions)
	return msg, err
}

// Event types

func (svc *Service) EventTypes(ctx context.Context) ([]EventType, error) {
	return fetch[[]EventType](ctx, svc, querycache.NewKey(resEventTypes), "/event-types")
}

func (svc *Service) EventType(ctx context.Context, id int64) (EventType, error) {
	return fetch[EventType](ctx, svc, querycache.NewKey(resEventTypes, id), idPath("/event-types", id))
}

func (svc *Service) CreateEventType(ctx context.Context, in EventTypeInput) (EventType, error) {
	var et EventType
	err := svc.mutate(ctx, http.MethodPost, "/event-types", in, &et, resEventTypes)
	return et, err
}

func (svc *Service) UpdateEventType(ctx context.Context, id int64, in EventTypeInput) (Message, error) {
	var msg Message
	err := svc.mutate(ctx, http.MethodPatch, idPath("/event-types", id), in, &msg, resEventTypes, resEvents)
	return msg, err
}

func (svc *Service) DeleteEventType(ctx context.Context, id int64) (Message, error) {
	var msg Message
	err := svc.mutate(ctx, http.MethodDelete, idPath("/event-types", id), nil, &msg, resEventTypes, resEvents)
	return msg, err
}

// Schools

func (svc *Service) Schools(ctx context.Context) ([]School, error) {
	return fetch[[]School](ctx, svc, querycache.NewKey(resSchools), "/schools")
}

func (svc *Service) CreateSchool(ctx context.Context, in SchoolInput) (School, error) {
	var sch School
	err := svc.mutate(ctx, http.MethodPost, "/schools", in, &sch, resSchools)
	return sch, err
}

func (svc *Service) UpdateSchool(ctx context.Context, id int64, in SchoolInput) (Message, error) {
	var msg Message
	err := svc.mutate(ctx, http.MethodPatch, idPath("/schools", id), in, &msg, resSchools, resEvents, resVenues)
	return msg, err
}

func (svc *Service) DeleteSchool(ctx context.Context, id int64) (Message, error) {
	var msg Message
	err := svc.mutate(ctx, http.MethodDelete, idPath("/schools", id), nil, &msg, resSchools, resEvents, resVenues)
	return msg, err
}

// Venues

func (svc *Service) Venues(ctx context.Context) ([]Venue, error) {
	return fetch[[]Venue](ctx, svc, querycache.NewKey(resVenues), "/venues")
}

func (svc *Service) SchoolVenues(ctx context.Context, schoolID int64) ([]Venue, error) {
	return fetch[[]Venue](ctx, svc, querycache.NewKey(resVenues, "school", schoolID), idPath("/venues/school", schoolID))
}

func (svc *Service) CreateVenue(ctx context.Context, in VenueInput) (Venue, error) {
	var v Venue
	err := svc.mutate(ctx, http.MethodPost, "/venues", in, &v, resVenues)
	return v, err
}

func (svc *Service) UpdateVenue(ctx context.Context, id int64, in VenueInput) (Venue, error) {
	var v Venue
	err := svc.mutate(ctx, http.MethodPatch, idPath("/venues", id), in, &v, resVenues, resEvents)
	return v, err
}

func (svc *Service) DeleteVenue(ctx context.Context, id int64) error {
	return svc.mutate(ctx, http.MethodDelete, idPath("/venues", id), nil, nil, resVenues, resEvents, resVenuePictures)
}

// Venue pictures

func (svc *Service) VenuePictures(ctx context.Context, venueID int64) ([]VenuePicture, error) {
	path := "/venues/picture?" + url.Values{"venueId": {strconv.FormatInt(venueID, 10)}}.Encode()
	return fetch[[]VenuePicture](ctx, svc, querycache.NewKey(resVenuePictures, venueID), path)
}

// CreateVenuePictures sends the whole batch in one request.
func (svc *Service) CreateVenuePictures(ctx context.Context, in []VenuePictureInput) error {
	if len(in) == 0 {
		return nil
	}
	return svc.mutate(ctx, http.MethodPost, "/venues/picture", in, nil, resVenuePictures, resVenues)
}

func (svc *Service) UpdateVenuePicture(ctx context.Context, id int64, in VenuePictureInput) (VenuePicture, error) {
	var pic VenuePicture
	err := svc.mutate(ctx, http.MethodPatch, idPath("/venues/picture", id), in, &pic, resVenuePictures, resVenues)
	return pic, err
}

func (svc *Service) DeleteVenuePicture(ctx context.Context, id int64) error {
	return svc.mutate(ctx, http.MethodDelete, idPath("/venues/picture", id), nil, nil, resVenuePictures, resVenues)
}

// Users

func (svc *Service) Users(ctx context.Context) ([]User, error) {
	return fetch[[]User](ctx, svc, querycache.NewKey(resUsers), "/users")
}

// MyDetails returns the logged in user, role permissions included.
func (svc *Service) MyDetails(ctx context.Context) (UserDetail, error) {
	return fetch[UserDetail](ctx, svc, querycache.NewKey(resMyDetails), "/users/my-details")
}

func (svc *Service) UserDetail(ctx context.Context, id int64) (UserDetail, error) {
	return fetch[UserDetail](ctx, svc, querycache.NewKey(resUsers, "detail", id), idPath("/users", id)+"/detail")
}

func (svc *Service) CreateUser(ctx context.Context, in UserInput) (CreatedUser, error) {
	var usr CreatedUser
	err := svc.mutate(ctx, http.MethodPost, "/users", in, &usr, resUsers, resRoles)
	return usr, err
}

func (svc *Service) UpdateUser(ctx context.Context, id int64, in UserInput) (Message, error) {
	var msg Message
	err := svc.mutate(ctx, http.MethodPatch, idPath("/users", id), in, &msg, resUsers, resRoles, resMyDetails)
	return msg, err
}

func (svc *Service) DeleteUser(ctx context.Context, id int64) (Message, error) {
	var msg Message
	err := svc.mutate(ctx, http.MethodDelete, idPath("/users", id), nil, &msg, resUsers, resRoles)
	return msg, err
}

// HasPermission reports whether the logged in user's role grants permissionName.
func (svc *Service) HasPermission(ctx context.Context, permissionName string) (bool, error) {
	me, err := svc.MyDetails(ctx)
	if err != nil {
		return false, err
	}
	for _, perm := range me.Role.Permissions {
		if perm.PermissionName == permissionName {
			return true, nil
		}
	}
	return false, nil
}

// Roles

func (svc *Service) Roles(ctx context.Context) ([]Role, error) {
	return fetch[[]Role](ctx, svc, querycache.NewKey(resRoles), "/roles")
}

func (svc *Service) RolesWithUsers(ctx context.Context) ([]Role, error) {
	return fetch[[]Role](ctx, svc, querycache.NewKey(resRoles, "with-users"), "/roles/with-users")
}

func (svc *Service) CreateRole(ctx context.Context, in RoleInput) (Role, error) {
	var role Role
	err := svc.mutate(ctx, http.MethodPost, "/roles", in, &role, resRoles)
	return role, err
}

func (svc *Service) UpdateRole(ctx context.Context, id int64, in RoleInput) (Message, error) {
	var msg Message
	err := svc.mutate(ctx, http.MethodPatch, idPath("/roles", id), in, &msg, resRoles, resUsers, resMyDetails)
	return msg, err
}

func (svc *Service) DeleteRole(ctx context.Context, id int64) (Message, error) {
	var msg Message
	err := svc.mutate(ctx, http.MethodDelete, idPath("/roles", id), nil, &msg, resRoles, resUsers, resMyDetails)
	return msg, err
}

// AssignPermissions replaces the permissions of a role.
func (svc *Service) AssignPermissions(ctx context.Context, roleID int64, permissionIDs []int64) (Message, error) {
	if permissionIDs == nil {
		permissionIDs = []int64{}
	}
	var msg Message
	path := fmt.Sprintf("/roles/%d/permissions", roleID)
	err := svc.mutate(ctx, http.MethodPut, path, PermissionAssignment{PermissionIDs: permissionIDs}, &msg, resRoles, resMyDetails)
	return msg, err
}

// Permissions

func (svc *Service) Permissions(ctx context.Context) ([]Permission, error) {
	return fetch[[]Permission](ctx, svc, querycache.NewKey(resPermissions), "/permissions")
}

func (svc *Service) Permission(ctx context.Context, id int64) (Permission, error) {
	return fetch[Permission](ctx, svc, querycache.NewKey(resPermissions, id), idPath("/permissions", id))
}

func (svc *Service) CreatePermission(ctx context.Context, in PermissionInput) (Permission, error) {
	var perm Permission
	err := svc.mutate(ctx, http.MethodPost, "/permissions", in, &perm, resPermissions)
	return perm, err
}

func (svc *Service) UpdatePermission(ctx context.Context, id int64, in PermissionInput) (Message, error) {
	var msg Message
	err := svc.mutate(ctx, http.MethodPatch, idPath("/permissions", id), in, &msg, resPermissions, resRoles, resMyDetails)
	return msg, err
}

func (svc *Service) DeletePermission(ctx context.Context, id int64) (Message, error) {
	var msg Message
	err := svc.mutate(ctx, http.MethodDelete, idPath("/permissions", id), nil, &msg, resPermissions, resRoles, resMyDetails)
	return msg, err
}

// Subscriptions

func (svc *Service) MySubscriptions(ctx context.Context) ([]Subscription, error) {
	return fetch[[]Subscription](ctx, svc, querycache.NewKey(resSubscriptions), "/subscriptions/my-subscriptions")
}

// MySubscription returns the logged in user's subscription to an event, if any.
func (svc *Service) MySubscription(ctx context.Context, eventID int64) (*Subscription, error) {
	subs, err := svc.MySubscriptions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range subs {
		if subs[i].Event.ID == eventID {
			sub := subs[i]
			return &sub, nil
		}
	}
	return nil, nil
}

func (svc *Service) Subscribe(ctx context.Context, in SubscriptionInput) (Subscription, error) {
	var sub Subscription
	err := svc.mutate(ctx, http.MethodPost, "/subscriptions", in, &sub, resSubscriptions)
	return sub, err
}

// CancelSubscription is a GET on the backend.
func (svc *Service) CancelSubscription(ctx context.Context, id int64) (Message, error) {
	var msg Message
	err := svc.mutate(ctx, http.MethodGet, idPath("/subscriptions/cancel", id), nil, &msg, resSubscriptions)
	return msg, err
}
