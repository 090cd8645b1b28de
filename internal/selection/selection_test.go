package selection

import (
	"context"
	"os"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dataccess/internal/datasource"
	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/errs"
	"github.com/roach88/dataccess/internal/oid"
	"github.com/roach88/dataccess/internal/testutil"
)

// fakeRedis serves the client subset from a map.
type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
	ttl  map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, exp time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = string(value.([]byte))
	f.ttl[key] = exp
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Scan(_ context.Context, _ uint64, match string, _ int64) *redis.ScanCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.data {
		if ok, _ := path.Match(match, k); ok {
			keys = append(keys, k)
		}
	}
	return redis.NewScanCmdResult(keys, 0, nil)
}

func (f *fakeRedis) Close() error { return nil }

func parcelSet(t *testing.T, ids ...int) *oid.Set {
	t.Helper()
	b := oid.NewBuilder("id")
	for _, id := range ids {
		require.NoError(t, b.Add(datatype.Int(id)))
	}
	return b.Build()
}

// exerciseStore runs the behaviour every Store shares.
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	set := parcelSet(t, 4, 1)
	require.NoError(t, s.Save(ctx, Selection{Name: "hits", DataSet: "parcels", Set: set}))
	require.NoError(t, s.Save(ctx, Selection{Name: "all", DataSet: "parcels", Set: parcelSet(t, 1, 2, 3, 4, 5)}))

	got, err := s.Load(ctx, "hits")
	require.NoError(t, err)
	assert.Equal(t, "parcels", got.DataSet)
	assert.True(t, set.Equal(got.Set))
	assert.Equal(t, set.Keys(), got.Set.Keys(), "insertion order survives")
	assert.True(t, got.Set.Contains(datatype.Int(4)))

	names, err := s.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"all", "hits"}, names)

	require.NoError(t, s.Save(ctx, Selection{Name: "hits", DataSet: "parcels", Set: parcelSet(t, 2)}))
	got, err = s.Load(ctx, "hits")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Set.Size())

	require.NoError(t, s.Delete(ctx, "hits"))
	_, err = s.Load(ctx, "hits")
	assert.True(t, errs.IsNotFound(err))
	assert.True(t, errs.IsNotFound(s.Delete(ctx, "hits")))

	assert.True(t, errs.IsPrecondition(s.Save(ctx, Selection{Name: "x", DataSet: "parcels"})))
	assert.True(t, errs.IsPrecondition(s.Save(ctx, Selection{Name: "x", Set: set})))
	assert.Error(t, s.Save(ctx, Selection{Name: "bad name", DataSet: "parcels", Set: set}))
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore(testutil.NewClock())
	defer s.Close()
	exerciseStore(t, s)
}

func TestMemoryStore_SavedAtAndCancel(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(testutil.NewClock())

	require.NoError(t, s.Save(ctx, Selection{Name: "a", DataSet: "parcels", Set: parcelSet(t, 1)}))
	require.NoError(t, s.Save(ctx, Selection{Name: "b", DataSet: "parcels", Set: parcelSet(t, 2)}))
	b, err := s.Load(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, testutil.Epoch.Add(time.Second), b.SavedAt)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.Load(cancelled, "a")
	assert.True(t, errs.IsCancelled(err))
}

func TestSelection_MixedSignature(t *testing.T) {
	b := oid.NewBuilder("zone", "lot", "deleted")
	require.NoError(t, b.Add(datatype.Str("north"), datatype.Int(7), datatype.Bool(false)))
	require.NoError(t, b.Add(datatype.Str("south"), datatype.Null{}, datatype.Bool(true)))
	set := b.Build()

	data, err := encode(Selection{Name: "mixed", DataSet: "lots", Set: set})
	require.NoError(t, err)
	got, err := decode(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"zone", "lot", "deleted"}, got.Set.PropertyNames())
	assert.True(t, set.Equal(got.Set))

	_, err = decode([]byte(`{"name":"x","properties":["id"],"ids":[["nope"]]}`))
	assert.True(t, errs.IsRowExtraction(err))
}

func TestRedisStore_Fake(t *testing.T) {
	fake := newFakeRedis()
	s := newRedisStoreWithClient(fake, RedisConfig{TTL: time.Hour, Clock: testutil.NewClock()})
	exerciseStore(t, s)

	assert.Contains(t, fake.data, "dataccess:selection:all")
	assert.Equal(t, time.Hour, fake.ttl["dataccess:selection:all"])
}

func TestRedisStore_Config(t *testing.T) {
	_, err := NewRedisStore(RedisConfig{})
	assert.True(t, errs.IsConfiguration(err))
	_, err = NewRedisStore(RedisConfig{Addr: "localhost:6379", TTL: -time.Second})
	assert.True(t, errs.IsConfiguration(err))

	_, err = NewRedisStoreFromConnInfo(datasource.ConnInfo{})
	assert.True(t, errs.IsConfiguration(err))
	_, err = NewRedisStoreFromConnInfo(datasource.ConnInfo{KeyRedisAddr: "localhost:6379", KeyRedisDB: "one"})
	assert.True(t, errs.IsConfiguration(err))

	s, err := NewRedisStoreFromConnInfo(datasource.ConnInfo{KeyRedisAddr: "localhost:6379", KeyRedisPrefix: "test:"})
	require.NoError(t, err)
	assert.Equal(t, "test:x", s.key("x"))
	require.NoError(t, s.Close())
}

// TestRedisStore_Live runs against a real server named by
// DATACCESS_REDIS_ADDR.
func TestRedisStore_Live(t *testing.T) {
	addr := os.Getenv("DATACCESS_REDIS_ADDR")
	if addr == "" {
		t.Skip("DATACCESS_REDIS_ADDR not set")
	}
	s, err := NewRedisStore(RedisConfig{
		Addr:   addr,
		Prefix: "dataccess-test:" + time.Now().UTC().Format("150405.000000") + ":",
		TTL:    time.Minute,
	})
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}
