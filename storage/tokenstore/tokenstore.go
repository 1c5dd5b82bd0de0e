package tokenstore

import (
	"context"

	"github.com/pkg/errors"

	"github.com/NycolasFelipe/uninter-gestao-eventos/core"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core/session"
	filestore "github.com/NycolasFelipe/uninter-gestao-eventos/storage/tokenstore/file"
	inmemstore "github.com/NycolasFelipe/uninter-gestao-eventos/storage/tokenstore/inmem"
	redisstore "github.com/NycolasFelipe/uninter-gestao-eventos/storage/tokenstore/redis"
)

// Store is a token slot that holds resources until closed.
type Store interface {
	session.TokenStore
	Close() error
}

var (
	_ Store = (*filestore.Store)(nil)
	_ Store = (*inmemstore.Tab)(nil)
	_ Store = (*redisstore.Store)(nil)
)

// Open returns the token slot selected by conf.Session.Store.
func Open(ctx context.Context, conf *core.Config, logger core.Logger) (Store, error) {
	switch conf.Session.Store {
	case core.SessionStoreFile, "":
		path := conf.Session.File
		if path == "" {
			path = filestore.DefaultPath(conf.AppName, conf.Session.Key)
		}
		return filestore.New(path, logger)
	case core.SessionStoreRedis:
		return redisstore.Open(ctx, conf, logger)
	case core.SessionStoreMemory:
		return inmemstore.New(), nil
	default:
		return nil, errors.Errorf("unknown session store %q", conf.Session.Store)
	}
}
