package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/veltabank/bankweb/apiclient"
	"github.com/veltabank/bankweb/internal/testapi"
	"github.com/veltabank/bankweb/session"
)

func newRedisStore(t *testing.T) (*session.RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	return session.NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()})), mr
}

func TestRedisStore(t *testing.T) {
	Convey("Given a Redis-backed store", t, func() {
		store, mr := newRedisStore(t)
		ctx := context.Background()

		cred := &apiclient.Credential{Cookies: []apiclient.Cookie{{Name: "bank_jwt", Value: "tok"}}}
		sess := session.New(cred)

		Convey("a stored session round-trips with state and credential intact", func() {
			So(store.Put(ctx, sess, time.Hour), ShouldBeNil)

			got, err := store.Get(ctx, sess.ID())
			So(err, ShouldBeNil)
			So(got.ID(), ShouldEqual, sess.ID())
			So(got.State(), ShouldEqual, session.Unknown)
			So(got.Credential(), ShouldResemble, cred)
		})

		Convey("a deleted session is not found", func() {
			So(store.Put(ctx, sess, time.Hour), ShouldBeNil)
			So(store.Delete(ctx, sess.ID()), ShouldBeNil)

			_, err := store.Get(ctx, sess.ID())
			So(err, ShouldBeError, session.ErrNotFound)
		})

		Convey("sessions expire with the Redis key TTL", func() {
			So(store.Put(ctx, sess, time.Minute), ShouldBeNil)

			mr.FastForward(2 * time.Minute)

			_, err := store.Get(ctx, sess.ID())
			So(err, ShouldBeError, session.ErrNotFound)
		})

		Convey("an unknown ID is not found", func() {
			_, err := store.Get(ctx, "nope")
			So(err, ShouldBeError, session.ErrNotFound)
		})
	})
}

func TestRedisBackedManager(t *testing.T) {
	Convey("A manager over a Redis store behaves like the in-memory one", t, func() {
		api := testapi.New(t)
		api.AddUser("jess", "jess@example.com", "hunter2")

		client, err := apiclient.New(api.APIURL())
		So(err, ShouldBeNil)

		store, _ := newRedisStore(t)
		manager := session.NewManager(client, store, time.Hour)
		ctx := context.Background()

		sess, err := manager.SignIn(ctx, "jess", "hunter2")
		So(err, ShouldBeNil)

		Convey("the stored copy resolves back to the user on refresh", func() {
			got, ok := manager.Get(ctx, sess.ID())
			So(ok, ShouldBeTrue)
			So(got.State(), ShouldEqual, session.Authenticated)
			So(got.User(), ShouldNotBeNil)
			So(got.User().Username, ShouldEqual, "jess")

			manager.Refresh(ctx, got)
			So(got.State(), ShouldEqual, session.Authenticated)
		})

		Convey("signing out removes it from Redis", func() {
			manager.SignOut(ctx, sess)

			_, ok := manager.Get(ctx, sess.ID())
			So(ok, ShouldBeFalse)
		})
	})
}
