package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/NycolasFelipe/uninter-gestao-eventos/core"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core/apiclient"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core/querycache"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core/resource"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core/session"
	logsvc "github.com/NycolasFelipe/uninter-gestao-eventos/services/logger"
	"github.com/NycolasFelipe/uninter-gestao-eventos/storage/tokenstore"
)

var stdLogger *log.Logger

func main() {
	os.Exit(run())
}

func run() int {
	stdLogger = log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)

	// set up the token slot shared with the console
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	tokens, err := tokenstore.Open(ctx, conf, logger)
	cancel()
	errAndDie(err)
	defer func() {
		if err := tokens.Close(); err != nil {
			stdLogger.Printf("closing token store: %v", err)
		}
	}()

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	resource.InitValidators(validate, translator)

	cache := querycache.New()
	client := apiclient.New(conf.API.URL(), tokens, logger)
	sessionSvc := session.NewService(tokens, client, cache, logger)
	defer sessionSvc.Close()

	// start CLI
	cli := commandLine{
		conf:     conf,
		logger:   logger,
		session:  sessionSvc,
		res:      resource.NewService(client, cache),
		validate: validate,
		in:       os.Stdin,
		out:      os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			stdLogger.Printf("\nerror: %s\n", err)
		}
		return 1
	}
	return 0
}

func errAndDie(err error) {
	if err != nil {
		stdLogger.Fatal(err)
	}
}
