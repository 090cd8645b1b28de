package selection

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/roach88/dataccess/internal/datasource"
	"github.com/roach88/dataccess/internal/errs"
)

// Connection keys read by NewRedisStoreFromConnInfo.
const (
	KeyRedisAddr     = "REDIS_ADDR"
	KeyRedisPassword = "REDIS_PASSWORD"
	KeyRedisDB       = "REDIS_DB"
	KeyRedisPrefix   = "REDIS_PREFIX"
	KeyRedisTTL      = "REDIS_TTL_SECONDS"
)

const (
	defaultPrefix = "dataccess:selection:"
	scanCount     = 100
)

// client is the subset of go-redis commands the store uses.
type client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Close() error
}

// RedisConfig describes how the store connects.
type RedisConfig struct {
	// Client is used as is when set; the store does not close it.
	Client   redis.UniversalClient
	Addr     string
	Password string
	DB       int
	// Prefix namespaces the keys. Defaults to "dataccess:selection:".
	Prefix string
	// TTL expires selections; zero keeps them.
	TTL   time.Duration
	Clock Clock
}

// RedisStore keeps one JSON document per selection under Prefix+name.
type RedisStore struct {
	cfg       RedisConfig
	client    client
	ownClient bool
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects a store. It does not contact the server.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	if cfg.Clock == nil {
		cfg.Clock = systemClock{}
	}
	if cfg.TTL < 0 {
		return nil, errs.Configuration("negative selection TTL %s", cfg.TTL)
	}
	if cfg.Client != nil {
		return &RedisStore{cfg: cfg, client: cfg.Client}, nil
	}
	if cfg.Addr == "" {
		return nil, errs.Configuration("redis address not configured")
	}
	cl := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	return &RedisStore{cfg: cfg, client: cl, ownClient: true}, nil
}

// NewRedisStoreFromConnInfo reads the REDIS_* keys of info.
func NewRedisStoreFromConnInfo(info datasource.ConnInfo) (*RedisStore, error) {
	addr, err := info.Require(KeyRedisAddr)
	if err != nil {
		return nil, err
	}
	db, err := info.Int(KeyRedisDB, 0)
	if err != nil {
		return nil, err
	}
	ttl, err := info.Int(KeyRedisTTL, 0)
	if err != nil {
		return nil, err
	}
	return NewRedisStore(RedisConfig{
		Addr:     addr,
		Password: info.Get(KeyRedisPassword, ""),
		DB:       db,
		Prefix:   info.Get(KeyRedisPrefix, defaultPrefix),
		TTL:      time.Duration(ttl) * time.Second,
	})
}

// newRedisStoreWithClient is used by tests to plug a fake client.
func newRedisStoreWithClient(cl client, cfg RedisConfig) *RedisStore {
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	if cfg.Clock == nil {
		cfg.Clock = systemClock{}
	}
	return &RedisStore{cfg: cfg, client: cl}
}

func (s *RedisStore) key(name string) string { return s.cfg.Prefix + name }

// redisError classifies a command failure.
func redisError(err error, format string, args ...any) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errs.Wrap(errs.CodeCancelled, err, format, args...)
	}
	return errs.Wrap(errs.CodePrecondition, err, format, args...)
}

func (s *RedisStore) Save(ctx context.Context, sel Selection) error {
	if err := validate(sel); err != nil {
		return err
	}
	sel.SavedAt = s.cfg.Clock.Now()
	data, err := encode(sel)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(sel.Name), data, s.cfg.TTL).Err(); err != nil {
		return redisError(err, "save selection %q", sel.Name)
	}
	slog.Debug("selection saved", "name", sel.Name, "dataset", sel.DataSet, "size", sel.Set.Size(), "store", "redis")
	return nil
}

func (s *RedisStore) Load(ctx context.Context, name string) (Selection, error) {
	data, err := s.client.Get(ctx, s.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Selection{}, errs.NotFound("selection %q not found", name)
	}
	if err != nil {
		return Selection{}, redisError(err, "load selection %q", name)
	}
	return decode(data)
}

func (s *RedisStore) Delete(ctx context.Context, name string) error {
	n, err := s.client.Del(ctx, s.key(name)).Result()
	if err != nil {
		return redisError(err, "delete selection %q", name)
	}
	if n == 0 {
		return errs.NotFound("selection %q not found", name)
	}
	return nil
}

// Names walks the prefix with SCAN, so it never blocks the server.
func (s *RedisStore) Names(ctx context.Context) ([]string, error) {
	var names []string
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.cfg.Prefix+"*", scanCount).Result()
		if err != nil {
			return nil, redisError(err, "list selections")
		}
		for _, k := range keys {
			names = append(names, strings.TrimPrefix(k, s.cfg.Prefix))
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}

// Close releases the connection when the store created it.
func (s *RedisStore) Close() error {
	if !s.ownClient {
		return nil
	}
	return s.client.Close()
}
