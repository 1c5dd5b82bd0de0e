package echoconsole

import (
	"encoding/json"
	"io/ioutil"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/NycolasFelipe/uninter-gestao-eventos/core"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core/resource"
)

type resourceApi struct {
	svc      *resource.Service
	validate *validator.Validate
}

// registerResourceAPI mounts the CRUD endpoints of every resource.Kind plus the few calls that do not fit CRUD.
func registerResourceAPI(g *echo.Group, deps ServerDeps) {
	api := resourceApi{
		svc:      deps.Resources,
		validate: deps.Validate,
	}

	// before the Kind routes: static segments win over `/:id` anyway
	g.GET("/users/my-details", api.myDetails)
	g.GET("/permissions/check", api.checkPermission)
	g.PUT("/roles/:id/permissions", api.assignPermissions)
	g.GET("/venue-pictures", api.venuePictures)
	g.POST("/venue-pictures", api.createVenuePictures)
	g.PATCH("/venue-pictures/:id", api.updateVenuePicture)
	g.DELETE("/venue-pictures/:id", api.deleteVenuePicture)

	for _, name := range resource.KindNames() {
		kind, _ := resource.LookupKind(name)
		kg := g.Group("/" + name)
		kg.GET("", api.list(kind))
		kg.POST("", api.create(kind))
		kg.GET("/:id", api.retrieve(kind))
		kg.PATCH("/:id", api.update(kind))
		kg.DELETE("/:id", api.destroy(kind))
	}
}

func readBody(ctx echo.Context) ([]byte, error) {
	data, err := ioutil.ReadAll(ctx.Request().Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading request body")
	}
	return data, nil
}

func decodeBody(ctx echo.Context, v interface{}) error {
	data, err := readBody(ctx)
	if err != nil {
		return err
	}
	if err = json.Unmarshal(data, v); err != nil {
		return core.NewValidationError(errors.Wrap(err, "decoding request body"))
	}
	return nil
}

// Kind handlers

func (api *resourceApi) list(kind resource.Kind) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if kind.List == nil {
			return resource.ErrUnsupported
		}
		items, err := kind.List(ctx.Request().Context(), api.svc, ctx.QueryParam(searchParam))
		if err != nil {
			return errors.Wrapf(err, "listing %s", kind.Name)
		}
		return ctx.JSON(http.StatusOK, items)
	}
}

func (api *resourceApi) retrieve(kind resource.Kind) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if kind.Get == nil {
			return resource.ErrUnsupported
		}
		id, err := paramID(ctx)
		if err != nil {
			return err
		}
		obj, err := kind.Get(ctx.Request().Context(), api.svc, id)
		if err != nil {
			return errors.Wrapf(err, "getting %s %d", kind.Name, id)
		}
		return ctx.JSON(http.StatusOK, obj)
	}
}

func (api *resourceApi) create(kind resource.Kind) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if kind.Create == nil {
			return resource.ErrUnsupported
		}
		data, err := readBody(ctx)
		if err != nil {
			return err
		}
		obj, err := kind.Create(ctx.Request().Context(), api.svc, data, api.validate)
		if err != nil {
			return errors.Wrapf(err, "creating %s", kind.Name)
		}
		return ctx.JSON(http.StatusCreated, obj)
	}
}

func (api *resourceApi) update(kind resource.Kind) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if kind.Update == nil {
			return resource.ErrUnsupported
		}
		id, err := paramID(ctx)
		if err != nil {
			return err
		}
		data, err := readBody(ctx)
		if err != nil {
			return err
		}
		obj, err := kind.Update(ctx.Request().Context(), api.svc, id, data, api.validate)
		if err != nil {
			return errors.Wrapf(err, "updating %s %d", kind.Name, id)
		}
		return ctx.JSON(http.StatusOK, obj)
	}
}

func (api *resourceApi) destroy(kind resource.Kind) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if kind.Delete == nil {
			return resource.ErrUnsupported
		}
		id, err := paramID(ctx)
		if err != nil {
			return err
		}
		obj, err := kind.Delete(ctx.Request().Context(), api.svc, id)
		if err != nil {
			return errors.Wrapf(err, "deleting %s %d", kind.Name, id)
		}
		return ctx.JSON(http.StatusOK, obj)
	}
}

// Other handlers

func (api *resourceApi) myDetails(ctx echo.Context) error {
	me, err := api.svc.MyDetails(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting my details")
	}
	return ctx.JSON(http.StatusOK, me)
}

func (api *resourceApi) checkPermission(ctx echo.Context) error {
	name := core.CleanString(ctx.QueryParam("name"))
	if name == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "name", Error: "name is a required field"})
	}
	granted, err := api.svc.HasPermission(ctx.Request().Context(), name)
	if err != nil {
		return errors.Wrap(err, "checking permission")
	}
	return ctx.JSON(http.StatusOK, PermissionCheck{Name: name, Granted: granted})
}

func (api *resourceApi) assignPermissions(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	var data resource.PermissionAssignment
	if err = decodeBody(ctx, &data); err != nil {
		return err
	}
	msg, err := api.svc.AssignPermissions(ctx.Request().Context(), id, data.PermissionIDs)
	if err != nil {
		return errors.Wrap(err, "assigning permissions")
	}
	return ctx.JSON(http.StatusOK, msg)
}

func (api *resourceApi) venuePictures(ctx echo.Context) error {
	venueID, err := strconv.ParseInt(ctx.QueryParam("venueId"), 10, 64)
	if err != nil {
		return errBadID
	}
	pics, err := api.svc.VenuePictures(ctx.Request().Context(), venueID)
	if err != nil {
		return errors.Wrap(err, "listing venue pictures")
	}
	return ctx.JSON(http.StatusOK, pics)
}

func (api *resourceApi) createVenuePictures(ctx echo.Context) error {
	var data []resource.VenuePictureInput
	if err := decodeBody(ctx, &data); err != nil {
		return err
	}
	for i := range data {
		if err := data[i].Validate(api.validate); err != nil {
			return err
		}
	}
	if err := api.svc.CreateVenuePictures(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "creating venue pictures")
	}
	return ctx.NoContent(http.StatusCreated)
}

func (api *resourceApi) updateVenuePicture(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	var data resource.VenuePictureInput
	if err = decodeBody(ctx, &data); err != nil {
		return err
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	pic, err := api.svc.UpdateVenuePicture(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating venue picture")
	}
	return ctx.JSON(http.StatusOK, pic)
}

func (api *resourceApi) deleteVenuePicture(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteVenuePicture(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting venue picture")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type PermissionCheck struct {
	Name    string `json:"name"`
	Granted bool   `json:"granted"`
}
