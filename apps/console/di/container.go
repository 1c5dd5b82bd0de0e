package di

import (
	"context"
	"log"
	"os"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"go.uber.org/dig"

	echoconsole "github.com/NycolasFelipe/uninter-gestao-eventos/apps/console/echo"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core/apiclient"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core/querycache"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core/resource"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core/session"
	logsvc "github.com/NycolasFelipe/uninter-gestao-eventos/services/logger"
	"github.com/NycolasFelipe/uninter-gestao-eventos/storage/tokenstore"
)

const openStoreTimeout = 10 * time.Second

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "CONSOLE : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newTokenStore(conf *core.Config, logger core.Logger) (tokenstore.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), openStoreTimeout)
	defer cancel()
	return tokenstore.Open(ctx, conf, logger)
}

func newAPIClient(conf *core.Config, tokens tokenstore.Store, logger core.Logger) *apiclient.Client {
	return apiclient.New(conf.API.URL(), tokens, logger)
}

func newSessionService(tokens tokenstore.Store, client *apiclient.Client, cache *querycache.Cache, logger core.Logger) session.Service {
	return session.NewService(tokens, client, cache, logger)
}

func newResourceService(client *apiclient.Client, cache *querycache.Cache) *resource.Service {
	return resource.NewService(client, cache)
}

func newServer(
	conf *core.Config,
	logger core.Logger,
	sessionSvc session.Service,
	resourceSvc *resource.Service,
	validate *validator.Validate,
	translator ut.Translator,
) *echoconsole.Server {
	return echoconsole.NewServer(
		echoconsole.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Session:    sessionSvc,
			Resources:  resourceSvc,
			Validate:   validate,
			Translator: translator,
		},
	)
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newTokenStore))
	must(c.Provide(querycache.New))
	must(c.Provide(newAPIClient))
	must(c.Provide(newSessionService))
	must(c.Provide(newResourceService))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newServer))

	return c
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
