package main

import (
	"encoding/json"
	"fmt"
	"io"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/NycolasFelipe/uninter-gestao-eventos/core"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core/resource"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core/routes"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core/session"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp          = errors.New("help provided")
	errLoginRequired = errors.New("login required: run `admin login --email EMAIL`")
)

const (
	routeAnnotation = "route"

	outputJSON = "json"
	outputYAML = "yaml"
)

type commandLine struct {
	conf     *core.Config
	logger   core.Logger
	session  session.Service
	res      *resource.Service
	validate *validator.Validate
	in       io.Reader
	out      io.Writer
	output   string
}

// run executes args, program name included.
func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	root.SetArgs(args[1:])
	root.SetIn(cli.in)
	root.SetOut(cli.out)
	root.SetErr(cli.out)
	return root.Execute()
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Manage " + cli.conf.AppName + " from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Usage()
			return errHelp
		},
		PersistentPreRunE: cli.guard,
	}
	root.PersistentFlags().StringVarP(&cli.output, "output", "o", outputJSON, "output format: json|yaml")

	root.AddCommand(cli.loginCmd(), cli.logoutCmd(), cli.whoamiCmd())
	for _, name := range resource.KindNames() {
		kind, _ := resource.LookupKind(name)
		root.AddCommand(cli.kindCmd(kind))
	}
	root.AddCommand(cli.venuePicturesCmd())
	return root
}

// guard bootstraps the session then lets through the commands whose route the session may reach.
func (cli *commandLine) guard(cmd *cobra.Command, _ []string) error {
	if cli.output != outputJSON && cli.output != outputYAML {
		return errors.Errorf("unknown output format %q", cli.output)
	}
	state := cli.session.Bootstrap(cmd.Context())

	route := routeOf(cmd)
	if route == "" {
		return nil
	}
	decision := routes.Guard{}.Resolve(state, route)
	switch decision.Outcome {
	case routes.Allow:
		return nil
	case routes.Redirect:
		cli.logger.Debug("command needs a session", map[string]interface{}{"command": cmd.CommandPath(), "route": route})
		return errLoginRequired
	default:
		return errors.Errorf("%s: %s", cmd.CommandPath(), decision.Outcome)
	}
}

// routeOf returns the view route a command belongs to, inherited from its parents.
func routeOf(cmd *cobra.Command) string {
	for c := cmd; c != nil; c = c.Parent() {
		if route, ok := c.Annotations[routeAnnotation]; ok {
			return route
		}
	}
	return ""
}

func withRoute(route string) map[string]string {
	return map[string]string{routeAnnotation: route}
}

// print writes v in the selected output format.
func (cli *commandLine) print(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding output")
	}
	if cli.output == outputYAML {
		// go through JSON so that the keys keep their wire names
		var generic interface{}
		if err = json.Unmarshal(data, &generic); err != nil {
			return errors.Wrap(err, "decoding output")
		}
		if data, err = yaml.Marshal(generic); err != nil {
			return errors.Wrap(err, "encoding yaml output")
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

func (cli *commandLine) readPassword(cmd *cobra.Command) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}
	return string(pwd), nil
}
