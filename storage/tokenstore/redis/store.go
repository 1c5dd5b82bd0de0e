package redisstore

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/NycolasFelipe/uninter-gestao-eventos/core"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core/session"
)

const subscribeTimeout = 5 * time.Second

// Store keeps the token under a fixed key so that consoles on several hosts share one session.
// Changes are announced on `<key>:changed`.
type Store struct {
	client  redis.UniversalClient
	key     string
	channel string
	ttl     time.Duration
	logger  core.Logger

	mu        sync.Mutex
	listeners map[int]func()
	nextID    int
	pubsub    *redis.PubSub
}

var (
	_ session.TokenStore = (*Store)(nil)
	_ session.Notifier   = (*Store)(nil)
)

// Open connects to Redis and checks the connection.
func Open(ctx context.Context, conf *core.Config, logger core.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Username: conf.Redis.Username,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return New(client, conf.Session.Key, conf.Session.TTL, logger), nil
}

// New returns a Store over an existing client. A zero ttl keeps the token until logout.
func New(client redis.UniversalClient, key string, ttl time.Duration, logger core.Logger) *Store {
	return &Store{
		client:    client,
		key:       key,
		channel:   key + ":changed",
		ttl:       ttl,
		logger:    logger,
		listeners: make(map[int]func()),
	}
}

func (s *Store) Get(ctx context.Context) (string, bool, error) {
	token, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", false, nil
		}
		return "", false, errors.Wrap(err, "reading token slot")
	}
	return token, token != "", nil
}

func (s *Store) Set(ctx context.Context, token string) error {
	if err := s.client.Set(ctx, s.key, token, s.ttl).Err(); err != nil {
		return errors.Wrap(err, "writing token slot")
	}
	s.announce(ctx, "set")
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return errors.Wrap(err, "removing token slot")
	}
	s.announce(ctx, "clear")
	return nil
}

// announce failures only delay the other consoles until their next bootstrap.
func (s *Store) announce(ctx context.Context, op string) {
	if err := s.client.Publish(ctx, s.channel, op).Err(); err != nil {
		s.logger.Warn("announcing token slot change", errors.Wrap(err, s.channel))
	}
}

func (s *Store) Subscribe(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pubsub == nil {
		ctx, cancel := context.WithTimeout(context.Background(), subscribeTimeout)
		defer cancel()
		pubsub := s.client.Subscribe(ctx, s.channel)
		// wait for the confirmation so that no change published after Subscribe returns is missed
		if _, err := pubsub.Receive(ctx); err != nil {
			_ = pubsub.Close()
			s.logger.Error("subscribing to token slot changes", errors.Wrap(err, s.channel))
			return func() {}
		}
		s.pubsub = pubsub
		go s.watch(pubsub.Channel())
	}

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
		if len(s.listeners) == 0 && s.pubsub != nil {
			_ = s.pubsub.Close()
			s.pubsub = nil
		}
	}
}

// Close stops the subscription and closes the client.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.pubsub != nil {
		_ = s.pubsub.Close()
		s.pubsub = nil
	}
	s.listeners = make(map[int]func())
	s.mu.Unlock()
	return s.client.Close()
}

func (s *Store) watch(msgs <-chan *redis.Message) {
	for range msgs {
		s.mu.Lock()
		fns := make([]func(), 0, len(s.listeners))
		for _, fn := range s.listeners {
			fns = append(fns, fn)
		}
		s.mu.Unlock()

		for _, fn := range fns {
			fn()
		}
	}
}
