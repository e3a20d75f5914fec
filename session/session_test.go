package session_test

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/veltabank/bankweb/apiclient"
	"github.com/veltabank/bankweb/internal/testapi"
	"github.com/veltabank/bankweb/session"
)

func newManager(t *testing.T, ttl time.Duration) (*session.Manager, *apiclient.Client) {
	t.Helper()

	api := testapi.New(t)
	api.AddUser("jess", "jess@example.com", "hunter2")

	client, err := apiclient.New(api.APIURL())
	if err != nil {
		t.Fatal(err)
	}

	return session.NewManager(client, session.NewMemoryStore(), ttl), client
}

func TestSignIn(t *testing.T) {
	Convey("Given a session manager", t, func() {
		manager, _ := newManager(t, time.Hour)
		ctx := context.Background()

		Convey("a successful sign-in produces an authenticated, stored session", func() {
			sess, err := manager.SignIn(ctx, "jess", "hunter2")
			So(err, ShouldBeNil)
			So(sess.State(), ShouldEqual, session.Authenticated)
			So(sess.User(), ShouldNotBeNil)
			So(sess.User().Username, ShouldEqual, "jess")
			So(sess.Credential(), ShouldNotBeNil)

			stored, ok := manager.Get(ctx, sess.ID())
			So(ok, ShouldBeTrue)
			So(stored.State(), ShouldEqual, session.Authenticated)
		})

		Convey("rejected credentials produce no session", func() {
			sess, err := manager.SignIn(ctx, "jess", "wrong")
			So(err, ShouldBeError, session.ErrBadCredentials)
			So(sess, ShouldBeNil)
		})

		Convey("an unknown session ID is simply not found", func() {
			_, ok := manager.Get(ctx, "no-such-session")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestSignOut(t *testing.T) {
	Convey("Given a signed-in session", t, func() {
		manager, client := newManager(t, time.Hour)
		ctx := context.Background()

		sess, err := manager.SignIn(ctx, "jess", "hunter2")
		So(err, ShouldBeNil)

		cred := sess.Credential()

		Convey("signing out leaves it anonymous with no user and drops it", func() {
			manager.SignOut(ctx, sess)

			So(sess.State(), ShouldEqual, session.Anonymous)
			So(sess.User(), ShouldBeNil)
			So(sess.Credential(), ShouldBeNil)

			_, ok := manager.Get(ctx, sess.ID())
			So(ok, ShouldBeFalse)

			Convey("and the API credential is dead too", func() {
				_, err := client.CurrentUser(ctx, cred)
				So(apiclient.IsAuthRequired(err), ShouldBeTrue)
			})
		})
	})
}

func TestRefresh(t *testing.T) {
	Convey("Given a credential of unknown validity", t, func() {
		manager, client := newManager(t, time.Hour)
		ctx := context.Background()

		cred, err := client.Login(ctx, "jess", "hunter2")
		So(err, ShouldBeNil)

		sess := session.New(cred)
		So(sess.State(), ShouldEqual, session.Unknown)

		Convey("a refresh with a live credential lands in Authenticated", func() {
			manager.Refresh(ctx, sess)

			So(sess.State(), ShouldEqual, session.Authenticated)
			So(sess.User(), ShouldNotBeNil)
			So(sess.Credential(), ShouldNotBeNil)
		})

		Convey("a refresh with a stale credential lands in Anonymous, never Unknown", func() {
			So(client.SignOut(ctx, cred), ShouldBeNil)

			manager.Refresh(ctx, sess)

			So(sess.State(), ShouldEqual, session.Anonymous)
			So(sess.User(), ShouldBeNil)
		})

		Convey("a refresh with no credential at all lands in Anonymous", func() {
			none := session.New(nil)
			manager.Refresh(ctx, none)
			So(none.State(), ShouldEqual, session.Anonymous)
		})
	})
}

func TestSetCredential(t *testing.T) {
	Convey("A swapped credential is persisted with the session", t, func() {
		manager, _ := newManager(t, time.Hour)
		ctx := context.Background()

		sess, err := manager.SignIn(ctx, "jess", "hunter2")
		So(err, ShouldBeNil)

		rotated := &apiclient.Credential{Cookies: []apiclient.Cookie{{Name: "bank_jwt", Value: "rotated"}}}

		manager.SetCredential(ctx, sess, rotated)

		So(sess.Credential(), ShouldEqual, rotated)

		stored, ok := manager.Get(ctx, sess.ID())
		So(ok, ShouldBeTrue)
		So(stored.Credential().Cookies[0].Value, ShouldEqual, "rotated")
	})
}

func TestMemoryStoreExpiry(t *testing.T) {
	Convey("Sessions past their TTL are treated as absent", t, func() {
		manager, _ := newManager(t, time.Millisecond)
		ctx := context.Background()

		sess, err := manager.SignIn(ctx, "jess", "hunter2")
		So(err, ShouldBeNil)

		time.Sleep(5 * time.Millisecond)

		_, ok := manager.Get(ctx, sess.ID())
		So(ok, ShouldBeFalse)
	})
}
