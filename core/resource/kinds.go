package resource

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/NycolasFelipe/uninter-gestao-eventos/core"
)

// ErrUnsupported is returned by a Kind operation the backend does not offer.
var ErrUnsupported = errors.New("operation not supported by this resource")

type (
	// Kind is the untyped CRUD surface of one resource, shared by the command line & the web console.
	// Create & Update take raw JSON which is decoded into the resource's input type and validated.
	Kind struct {
		Name   string
		List   func(ctx context.Context, svc *Service, search string) (interface{}, error)
		Get    func(ctx context.Context, svc *Service, id int64) (interface{}, error)
		Create func(ctx context.Context, svc *Service, data []byte, validate *validator.Validate) (interface{}, error)
		Update func(ctx context.Context, svc *Service, id int64, data []byte, validate *validator.Validate) (interface{}, error)
		Delete func(ctx context.Context, svc *Service, id int64) (interface{}, error)
	}

	validatable[T any] interface {
		*T
		Validate(*validator.Validate) error
	}
)

func decodeInput[T any, PT validatable[T]](data []byte, validate *validator.Validate) (T, error) {
	var in T
	if err := json.Unmarshal(data, &in); err != nil {
		return in, core.NewValidationError(errors.Wrap(err, "decoding input"))
	}
	if err := PT(&in).Validate(validate); err != nil {
		return in, err
	}
	return in, nil
}

func create[T any, PT validatable[T], R any](fn func(*Service, context.Context, T) (R, error)) func(context.Context, *Service, []byte, *validator.Validate) (interface{}, error) {
	return func(ctx context.Context, svc *Service, data []byte, validate *validator.Validate) (interface{}, error) {
		in, err := decodeInput[T, PT](data, validate)
		if err != nil {
			return nil, err
		}
		return fn(svc, ctx, in)
	}
}

func update[T any, PT validatable[T], R any](fn func(*Service, context.Context, int64, T) (R, error)) func(context.Context, *Service, int64, []byte, *validator.Validate) (interface{}, error) {
	return func(ctx context.Context, svc *Service, id int64, data []byte, validate *validator.Validate) (interface{}, error) {
		in, err := decodeInput[T, PT](data, validate)
		if err != nil {
			return nil, err
		}
		return fn(svc, ctx, id, in)
	}
}

func list[T Searchable](fn func(*Service, context.Context) ([]T, error)) func(context.Context, *Service, string) (interface{}, error) {
	return func(ctx context.Context, svc *Service, search string) (interface{}, error) {
		items, err := fn(svc, ctx)
		if err != nil {
			return nil, err
		}
		found := Search(items, search)
		if found == nil {
			found = []T{}
		}
		return found, nil
	}
}

func get[R any](fn func(*Service, context.Context, int64) (R, error)) func(context.Context, *Service, int64) (interface{}, error) {
	return func(ctx context.Context, svc *Service, id int64) (interface{}, error) {
		return fn(svc, ctx, id)
	}
}

func remove[R any](fn func(*Service, context.Context, int64) (R, error)) func(context.Context, *Service, int64) (interface{}, error) {
	return func(ctx context.Context, svc *Service, id int64) (interface{}, error) {
		return fn(svc, ctx, id)
	}
}

func removeNoContent(fn func(*Service, context.Context, int64) error) func(context.Context, *Service, int64) (interface{}, error) {
	return func(ctx context.Context, svc *Service, id int64) (interface{}, error) {
		if err := fn(svc, ctx, id); err != nil {
			return nil, err
		}
		return Message{Message: "deleted"}, nil
	}
}

var kinds = map[string]Kind{
	"events": {
		List:   list((*Service).Events),
		Get:    get((*Service).Event),
		Create: create[EventInput]((*Service).CreateEvent),
		Update: update[EventInput]((*Service).UpdateEvent),
		Delete: remove((*Service).DeleteEvent),
	},
	"event-types": {
		List:   list((*Service).EventTypes),
		Get:    get((*Service).EventType),
		Create: create[EventTypeInput]((*Service).CreateEventType),
		Update: update[EventTypeInput]((*Service).UpdateEventType),
		Delete: remove((*Service).DeleteEventType),
	},
	"schools": {
		List:   list((*Service).Schools),
		Create: create[SchoolInput]((*Service).CreateSchool),
		Update: update[SchoolInput]((*Service).UpdateSchool),
		Delete: remove((*Service).DeleteSchool),
	},
	"venues": {
		List:   list((*Service).Venues),
		Create: create[VenueInput]((*Service).CreateVenue),
		Update: update[VenueInput]((*Service).UpdateVenue),
		Delete: removeNoContent((*Service).DeleteVenue),
	},
	"users": {
		List:   list((*Service).Users),
		Get:    get((*Service).UserDetail),
		Create: create[UserInput]((*Service).CreateUser),
		Update: update[UserInput]((*Service).UpdateUser),
		Delete: remove((*Service).DeleteUser),
	},
	"roles": {
		List:   list((*Service).Roles),
		Create: create[RoleInput]((*Service).CreateRole),
		Update: update[RoleInput]((*Service).UpdateRole),
		Delete: remove((*Service).DeleteRole),
	},
	"permissions": {
		List:   list((*Service).Permissions),
		Get:    get((*Service).Permission),
		Create: create[PermissionInput]((*Service).CreatePermission),
		Update: update[PermissionInput]((*Service).UpdatePermission),
		Delete: remove((*Service).DeletePermission),
	},
	"subscriptions": {
		List:   list((*Service).MySubscriptions),
		Create: create[SubscriptionInput]((*Service).Subscribe),
		Delete: remove((*Service).CancelSubscription),
	},
}

func init() {
	for name, kind := range kinds {
		kind.Name = name
		kinds[name] = kind
	}
}

// LookupKind returns the Kind registered under name, e.g. "events" or "event-types".
func LookupKind(name string) (Kind, bool) {
	kind, ok := kinds[name]
	return kind, ok
}

// KindNames returns the registered Kind names, sorted.
func KindNames() []string {
	names := make([]string, 0, len(kinds))
	for name := range kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
