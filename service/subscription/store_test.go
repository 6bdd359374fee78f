package subscription

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"pushrelay/service/util"

	"github.com/alicebob/miniredis/v2"
	qt "github.com/frankban/quicktest"
	"github.com/go-redis/redis/v8"
)

func descriptor(endpoint string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"endpoint":%q,"keys":{"p256dh":"BPub","auth":"secret"}}`, endpoint))
}

func newSub(userID, endpoint string) Subscription {
	return Subscription{
		UserID:     userID,
		Descriptor: descriptor(endpoint),
		UpdatedAt:  time.UnixMilli(1700000000000),
	}
}

type storeFactory func(t *testing.T) Store

func stores() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T) Store {
			return NewMemoryStore()
		},
		"sqlite": func(t *testing.T) Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "relay.db"))
			qt.Assert(t, err, qt.IsNil)
			return s
		},
		"redis": func(t *testing.T) Store {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			return NewRedisStoreFromClient(client, "test:")
		},
	}
}

func TestStores(t *testing.T) {
	for name, factory := range stores() {
		factory := factory
		t.Run(name, func(t *testing.T) {
			t.Run("missing user", func(t *testing.T) {
				testMissingUser(t, factory(t))
			})
			t.Run("set get overwrite", func(t *testing.T) {
				testSetGetOverwrite(t, factory(t))
			})
			t.Run("delete is idempotent", func(t *testing.T) {
				testDelete(t, factory(t))
			})
			t.Run("evict compares descriptor", func(t *testing.T) {
				testEvict(t, factory(t))
			})
			t.Run("list snapshot", func(t *testing.T) {
				testList(t, factory(t))
			})
		})
	}
}

func testMissingUser(t *testing.T, s Store) {
	c := qt.New(t)
	defer s.Close()

	got, err := s.Get(context.Background(), "nobody")
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.IsNil)

	subs, err := s.List(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(subs, qt.HasLen, 0)
}

func testSetGetOverwrite(t *testing.T, s Store) {
	c := qt.New(t)
	defer s.Close()
	ctx := context.Background()

	c.Assert(s.Set(ctx, newSub("alice", "https://push.example/1")), qt.IsNil)
	c.Assert(s.Set(ctx, newSub("alice", "https://push.example/2")), qt.IsNil)

	got, err := s.Get(ctx, "alice")
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.IsNotNil)
	c.Assert(string(got.Descriptor), qt.Equals, string(descriptor("https://push.example/2")))
	c.Assert(got.UpdatedAt.UnixMilli(), qt.Equals, int64(1700000000000))

	subs, err := s.List(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(subs, qt.HasLen, 1)
}

func testDelete(t *testing.T, s Store) {
	c := qt.New(t)
	defer s.Close()
	ctx := context.Background()

	c.Assert(s.Set(ctx, newSub("bob", "https://push.example/b")), qt.IsNil)
	c.Assert(s.Delete(ctx, "bob"), qt.IsNil)
	c.Assert(s.Delete(ctx, "bob"), qt.IsNil)

	got, err := s.Get(ctx, "bob")
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.IsNil)
}

func testEvict(t *testing.T, s Store) {
	c := qt.New(t)
	defer s.Close()
	ctx := context.Background()

	stale := newSub("carol", "https://push.example/old")
	fresh := newSub("carol", "https://push.example/new")

	c.Assert(s.Set(ctx, fresh), qt.IsNil)

	evicted, err := s.Evict(ctx, stale)
	c.Assert(err, qt.IsNil)
	c.Assert(evicted, qt.IsFalse)

	got, err := s.Get(ctx, "carol")
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.IsNotNil)

	evicted, err = s.Evict(ctx, fresh)
	c.Assert(err, qt.IsNil)
	c.Assert(evicted, qt.IsTrue)

	got, err = s.Get(ctx, "carol")
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.IsNil)

	evicted, err = s.Evict(ctx, fresh)
	c.Assert(err, qt.IsNil)
	c.Assert(evicted, qt.IsFalse)
}

func testList(t *testing.T, s Store) {
	c := qt.New(t)
	defer s.Close()
	ctx := context.Background()

	for _, id := range []string{"zoe", "adam", "mia"} {
		c.Assert(s.Set(ctx, newSub(id, "https://push.example/"+id)), qt.IsNil)
	}

	subs, err := s.List(ctx)
	c.Assert(err, qt.IsNil)

	ids := make([]string, 0, len(subs))
	for _, sub := range subs {
		ids = append(ids, sub.UserID)
	}
	c.Assert(ids, qt.DeepEquals, []string{"adam", "mia", "zoe"})

	c.Assert(s.Set(ctx, newSub("late", "https://push.example/late")), qt.IsNil)
	c.Assert(subs, qt.HasLen, 3)
}

func TestMemoryStoreDetachesDescriptor(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	s := NewMemoryStore()

	sub := newSub("dave", "https://push.example/d")
	c.Assert(s.Set(ctx, sub), qt.IsNil)
	sub.Descriptor[0] = 'X'

	got, err := s.Get(ctx, "dave")
	c.Assert(err, qt.IsNil)
	c.Assert(string(got.Descriptor), qt.Equals, string(descriptor("https://push.example/d")))
}

func TestMemoryStoreConcurrentWrites(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Set(ctx, newSub(fmt.Sprintf("user-%d", i%5), fmt.Sprintf("https://push.example/%d", i)))
			if i%7 == 0 {
				_ = s.Delete(ctx, fmt.Sprintf("user-%d", i%5))
			}
		}(i)
	}
	wg.Wait()

	subs, err := s.List(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(len(subs) <= 5, qt.IsTrue)
}

func TestOpenDefaultsToMemory(t *testing.T) {
	c := qt.New(t)

	s, err := Open(context.Background(), Options{}, util.DiscardLogger())
	c.Assert(err, qt.IsNil)
	defer s.Close()

	_, ok := s.(*MemoryStore)
	c.Assert(ok, qt.IsTrue)
}

func TestOpenSQLite(t *testing.T) {
	c := qt.New(t)

	path := filepath.Join(t.TempDir(), "nested", "relay.db")
	s, err := Open(context.Background(), Options{StoragePath: path}, util.DiscardLogger())
	c.Assert(err, qt.IsNil)
	defer s.Close()

	_, ok := s.(*SQLiteStore)
	c.Assert(ok, qt.IsTrue)
}

func TestOpenRedis(t *testing.T) {
	c := qt.New(t)
	mr := miniredis.RunT(t)

	s, err := Open(context.Background(), Options{
		RedisURL:       "redis://" + mr.Addr(),
		RedisKeyPrefix: "relay:",
		StoragePath:    filepath.Join(t.TempDir(), "ignored.db"),
	}, util.DiscardLogger())
	c.Assert(err, qt.IsNil)
	defer s.Close()

	c.Assert(s.Set(context.Background(), newSub("erin", "https://push.example/e")), qt.IsNil)
	c.Assert(mr.HGet("relay:subscriptions", "erin"), qt.Equals, string(descriptor("https://push.example/e")))
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "relay.db")

	s, err := NewSQLiteStore(path)
	c.Assert(err, qt.IsNil)
	c.Assert(s.Set(ctx, newSub("frank", "https://push.example/f")), qt.IsNil)
	c.Assert(s.Close(), qt.IsNil)

	s, err = NewSQLiteStore(path)
	c.Assert(err, qt.IsNil)
	defer s.Close()

	got, err := s.Get(ctx, "frank")
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.IsNotNil)
}
