package echoconsole

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/NycolasFelipe/uninter-gestao-eventos/core/resource"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core/routes"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core/session"
)

const searchParam = "search"

// Action is a shortcut offered by the home view.
type Action struct {
	Path  string `json:"path"`
	Label string `json:"label"`
}

var homeActions = []Action{
	{Path: "/manage/events", Label: "Plan a new event"},
	{Path: "/manage/subscriptions", Label: "Manage subscriptions"},
	{Path: "/manage/users", Label: "Manage users"},
	{Path: "/manage/schools", Label: "Manage schools"},
	{Path: "/manage/venues", Label: "Manage venues"},
	{Path: "/manage/roles", Label: "Manage permissions"},
}

// reviewStatuses are the event statuses awaiting a decision.
var reviewStatuses = map[resource.EventStatus]bool{
	resource.StatusDraft:   true,
	resource.StatusPlanned: true,
}

type (
	viewsApi struct {
		svc *resource.Service
	}

	HomeView struct {
		Title   string              `json:"title"`
		User    *session.UserClaims `json:"user"`
		Actions []Action            `json:"actions"`
	}

	ListView[T any] struct {
		Title  string `json:"title"`
		Search string `json:"search"`
		Items  []T    `json:"items"`
	}

	VenuesView struct {
		ListView[resource.Venue]
		Schools []resource.School `json:"schools"`
	}

	RolesView struct {
		ListView[resource.Role]
		Permissions []resource.Permission `json:"permissions"`
	}

	EventsView struct {
		ListView[resource.Event]
		EventTypes []resource.EventType `json:"eventTypes"`
	}

	EventView struct {
		Title        string                 `json:"title"`
		Event        resource.Event         `json:"event"`
		Subscription *resource.Subscription `json:"subscription"`
	}
)

func registerViews(g *echo.Group, deps ServerDeps) {
	api := viewsApi{svc: deps.Resources}

	g.GET(routes.LandingPath, api.home)
	g.GET("/manage/users", api.users)
	g.GET("/manage/schools", api.schools)
	g.GET("/manage/venues", api.venues)
	g.GET("/manage/roles", api.roles)
	g.GET("/manage/events", api.events)
	g.GET("/manage/subscriptions", api.subscriptions)
	g.GET("/event/review", api.review)
	g.GET("/event/:id", api.event)
}

func newListView[T resource.Searchable](ctx echo.Context, items []T) ListView[T] {
	search := ctx.QueryParam(searchParam)
	found := resource.Search(items, search)
	if found == nil {
		found = []T{}
	}
	return ListView[T]{Title: contextRoute(ctx).Title, Search: search, Items: found}
}

// Handlers

func (api *viewsApi) home(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, HomeView{
		Title:   contextRoute(ctx).Title,
		User:    contextUser(ctx),
		Actions: homeActions,
	})
}

func (api *viewsApi) users(ctx echo.Context) error {
	users, err := api.svc.Users(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing users")
	}
	return ctx.JSON(http.StatusOK, newListView(ctx, users))
}

func (api *viewsApi) schools(ctx echo.Context) error {
	schools, err := api.svc.Schools(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing schools")
	}
	return ctx.JSON(http.StatusOK, newListView(ctx, schools))
}

// venues lists every venue, or those of ?schoolId.
func (api *viewsApi) venues(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	var venues []resource.Venue
	var err error
	if param := ctx.QueryParam("schoolId"); param != "" {
		schoolID, pErr := strconv.ParseInt(param, 10, 64)
		if pErr != nil {
			return errBadID
		}
		venues, err = api.svc.SchoolVenues(reqCtx, schoolID)
	} else {
		venues, err = api.svc.Venues(reqCtx)
	}
	if err != nil {
		return errors.Wrap(err, "listing venues")
	}
	schools, err := api.svc.Schools(reqCtx)
	if err != nil {
		return errors.Wrap(err, "listing schools")
	}
	return ctx.JSON(http.StatusOK, VenuesView{ListView: newListView(ctx, venues), Schools: schools})
}

func (api *viewsApi) roles(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	roles, err := api.svc.RolesWithUsers(reqCtx)
	if err != nil {
		return errors.Wrap(err, "listing roles")
	}
	perms, err := api.svc.Permissions(reqCtx)
	if err != nil {
		return errors.Wrap(err, "listing permissions")
	}
	return ctx.JSON(http.StatusOK, RolesView{ListView: newListView(ctx, roles), Permissions: perms})
}

func (api *viewsApi) events(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	events, err := api.svc.Events(reqCtx)
	if err != nil {
		return errors.Wrap(err, "listing events")
	}
	types, err := api.svc.EventTypes(reqCtx)
	if err != nil {
		return errors.Wrap(err, "listing event types")
	}
	return ctx.JSON(http.StatusOK, EventsView{ListView: newListView(ctx, events), EventTypes: types})
}

func (api *viewsApi) subscriptions(ctx echo.Context) error {
	subs, err := api.svc.MySubscriptions(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing my subscriptions")
	}
	return ctx.JSON(http.StatusOK, newListView(ctx, subs))
}

func (api *viewsApi) review(ctx echo.Context) error {
	events, err := api.svc.Events(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing events")
	}
	pending := make([]resource.Event, 0, len(events))
	for _, evt := range events {
		if reviewStatuses[evt.Status] {
			pending = append(pending, evt)
		}
	}
	return ctx.JSON(http.StatusOK, newListView(ctx, pending))
}

func (api *viewsApi) event(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()
	evt, err := api.svc.Event(reqCtx, id)
	if err != nil {
		return errors.Wrap(err, "getting event")
	}
	sub, err := api.svc.MySubscription(reqCtx, id)
	if err != nil {
		return errors.Wrap(err, "finding my subscription")
	}
	return ctx.JSON(http.StatusOK, EventView{Title: contextRoute(ctx).Title, Event: evt, Subscription: sub})
}

func paramID(ctx echo.Context) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadID
	}
	return id, nil
}
