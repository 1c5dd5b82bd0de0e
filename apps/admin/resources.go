package main

import (
	"io/ioutil"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/NycolasFelipe/uninter-gestao-eventos/core"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core/resource"
)

// kindRoutes maps each resource to the view managing it.
var kindRoutes = map[string]string{
	"events":        "/manage/events",
	"event-types":   "/manage/events",
	"schools":       "/manage/schools",
	"venues":        "/manage/venues",
	"users":         "/manage/users",
	"roles":         "/manage/roles",
	"permissions":   "/manage/roles",
	"subscriptions": "/manage/subscriptions",
}

// kindCmd returns `admin <kind> list|get|create|update|delete`.
// The operations the backend does not offer fail with resource.ErrUnsupported.
func (cli *commandLine) kindCmd(kind resource.Kind) *cobra.Command {
	cmd := &cobra.Command{
		Use:         kind.Name,
		Short:       "Manage " + strings.ReplaceAll(kind.Name, "-", " "),
		Args:        cobra.NoArgs,
		Annotations: withRoute(kindRoutes[kind.Name]),
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Usage()
			return errHelp
		},
	}

	{
		var search string
		list := &cobra.Command{
			Use:   "list",
			Short: "List " + kind.Name,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if kind.List == nil {
					return resource.ErrUnsupported
				}
				items, err := kind.List(cmd.Context(), cli.res, search)
				if err != nil {
					return err
				}
				return cli.print(cmd, items)
			},
		}
		list.Flags().StringVar(&search, "search", "", "keep the items whose name or description contains this text")
		cmd.AddCommand(list)
	}

	{
		var id int64
		get := &cobra.Command{
			Use:   "get",
			Short: "Show one of the " + kind.Name,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if kind.Get == nil {
					return resource.ErrUnsupported
				}
				if err := requireID(id); err != nil {
					return err
				}
				obj, err := kind.Get(cmd.Context(), cli.res, id)
				if err != nil {
					return err
				}
				return cli.print(cmd, obj)
			},
		}
		get.Flags().Int64Var(&id, "id", 0, "id")
		cmd.AddCommand(get)
	}

	{
		var data string
		create := &cobra.Command{
			Use:   "create",
			Short: "Create one of the " + kind.Name,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if kind.Create == nil {
					return resource.ErrUnsupported
				}
				body, err := readData(cmd, data)
				if err != nil {
					return err
				}
				obj, err := kind.Create(cmd.Context(), cli.res, body, cli.validate)
				if err != nil {
					return err
				}
				return cli.print(cmd, obj)
			},
		}
		create.Flags().StringVar(&data, "data", "", "JSON payload, or - to read it from stdin")
		cmd.AddCommand(create)
	}

	{
		var id int64
		var data string
		update := &cobra.Command{
			Use:   "update",
			Short: "Update one of the " + kind.Name,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if kind.Update == nil {
					return resource.ErrUnsupported
				}
				if err := requireID(id); err != nil {
					return err
				}
				body, err := readData(cmd, data)
				if err != nil {
					return err
				}
				obj, err := kind.Update(cmd.Context(), cli.res, id, body, cli.validate)
				if err != nil {
					return err
				}
				return cli.print(cmd, obj)
			},
		}
		update.Flags().Int64Var(&id, "id", 0, "id")
		update.Flags().StringVar(&data, "data", "", "JSON payload, or - to read it from stdin")
		cmd.AddCommand(update)
	}

	{
		var id int64
		del := &cobra.Command{
			Use:   "delete",
			Short: "Delete one of the " + kind.Name,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if kind.Delete == nil {
					return resource.ErrUnsupported
				}
				if err := requireID(id); err != nil {
					return err
				}
				obj, err := kind.Delete(cmd.Context(), cli.res, id)
				if err != nil {
					return err
				}
				return cli.print(cmd, obj)
			},
		}
		del.Flags().Int64Var(&id, "id", 0, "id")
		cmd.AddCommand(del)
	}

	switch kind.Name {
	case "roles":
		cmd.AddCommand(cli.assignPermissionsCmd())
	case "permissions":
		cmd.AddCommand(cli.checkPermissionCmd())
	case "users":
		cmd.AddCommand(cli.myDetailsCmd())
	}
	return cmd
}

func (cli *commandLine) assignPermissionsCmd() *cobra.Command {
	var id int64
	var permIDs []int64
	cmd := &cobra.Command{
		Use:   "assign-permissions",
		Short: "Replace the permissions of a role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireID(id); err != nil {
				return err
			}
			msg, err := cli.res.AssignPermissions(cmd.Context(), id, permIDs)
			if err != nil {
				return err
			}
			return cli.print(cmd, msg)
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "role id")
	cmd.Flags().Int64SliceVar(&permIDs, "permission-ids", nil, "permission ids; none removes every permission")
	return cmd
}

func (cli *commandLine) checkPermissionCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Tell whether the logged in user's role grants a permission",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name = core.CleanString(name)
			if name == "" {
				return core.NewValidationError(nil, core.FieldError{Field: "name", Error: "name is a required field"})
			}
			granted, err := cli.res.HasPermission(cmd.Context(), name)
			if err != nil {
				return err
			}
			return cli.print(cmd, map[string]interface{}{"name": name, "granted": granted})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "permission name, e.g. MANAGE_EVENTS")
	return cmd
}

func (cli *commandLine) myDetailsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the logged in user's details, permissions included",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			me, err := cli.res.MyDetails(cmd.Context())
			if err != nil {
				return err
			}
			return cli.print(cmd, me)
		},
	}
}

func (cli *commandLine) venuePicturesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "venue-pictures",
		Short:       "Manage the pictures of venues",
		Args:        cobra.NoArgs,
		Annotations: withRoute("/manage/venues"),
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Usage()
			return errHelp
		},
	}

	var venueID int64
	list := &cobra.Command{
		Use:   "list",
		Short: "List the pictures of a venue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireID(venueID); err != nil {
				return err
			}
			pics, err := cli.res.VenuePictures(cmd.Context(), venueID)
			if err != nil {
				return err
			}
			return cli.print(cmd, pics)
		},
	}
	list.Flags().Int64Var(&venueID, "venue-id", 0, "venue id")

	var addVenueID int64
	var urls []string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add pictures to a venue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireID(addVenueID); err != nil {
				return err
			}
			pics := make([]resource.VenuePictureInput, 0, len(urls))
			for _, url := range urls {
				pic := resource.VenuePictureInput{VenueID: addVenueID, PictureURL: url}
				if err := pic.Validate(cli.validate); err != nil {
					return err
				}
				pics = append(pics, pic)
			}
			if err := cli.res.CreateVenuePictures(cmd.Context(), pics); err != nil {
				return err
			}
			return cli.print(cmd, resource.Message{Message: "created"})
		},
	}
	add.Flags().Int64Var(&addVenueID, "venue-id", 0, "venue id")
	add.Flags().StringSliceVar(&urls, "url", nil, "picture URL; repeat for several pictures")

	var id int64
	del := &cobra.Command{
		Use:   "delete",
		Short: "Delete a picture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireID(id); err != nil {
				return err
			}
			if err := cli.res.DeleteVenuePicture(cmd.Context(), id); err != nil {
				return err
			}
			return cli.print(cmd, resource.Message{Message: "deleted"})
		},
	}
	del.Flags().Int64Var(&id, "id", 0, "picture id")

	cmd.AddCommand(list, add, del)
	return cmd
}

func requireID(id int64) error {
	if id <= 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "id", Error: "id must be a positive number"})
	}
	return nil
}

// readData returns the --data payload; "-" reads it from stdin.
func readData(cmd *cobra.Command, data string) ([]byte, error) {
	if data == "-" {
		body, err := ioutil.ReadAll(cmd.InOrStdin())
		return body, errors.Wrap(err, "reading stdin")
	}
	if strings.TrimSpace(data) == "" {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "data", Error: "data is a required field"})
	}
	return []byte(data), nil
}
