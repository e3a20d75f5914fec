package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")

	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestParseConfig(t *testing.T) {
	Convey("Given a full config file", t, func() {
		path := writeConfig(t, `
Listen: ":9090"
APIURL: "https://api.example.com/api"
ExternalOrigin: "https://bank.example.com"
SessionCookie: "sid"
SessionTTL: 3600
Redis:
    Addr: "localhost:6379"
    DB: 2
`)

		conf, err := ParseConfig(path)
		So(err, ShouldBeNil)

		Convey("all settings are available", func() {
			So(conf.Listen(), ShouldEqual, ":9090")
			So(conf.APIURL(), ShouldEqual, "https://api.example.com/api")
			So(conf.ExternalOrigin(), ShouldEqual, "https://bank.example.com")
			So(conf.SessionCookie(), ShouldEqual, "sid")
			So(conf.SessionTTL(), ShouldEqual, time.Hour)
			So(conf.Redis().Addr, ShouldEqual, "localhost:6379")
			So(conf.Redis().DB, ShouldEqual, 2)
		})
	})

	Convey("Given a minimal config file, defaults apply", t, func() {
		conf, err := ParseConfig(writeConfig(t, `APIURL: "http://localhost:8081/api"`))
		So(err, ShouldBeNil)

		So(conf.Listen(), ShouldEqual, ":8080")
		So(conf.SessionCookie(), ShouldEqual, "bankweb_session")
		So(conf.SessionTTL(), ShouldEqual, 24*time.Hour)
		So(conf.ExternalOrigin(), ShouldBeBlank)
		So(conf.Redis().Addr, ShouldBeBlank)
	})

	Convey("A config without an APIURL is rejected", t, func() {
		_, err := ParseConfig(writeConfig(t, `Listen: ":9090"`))
		So(err, ShouldBeError, ErrNoAPIURL)
	})

	Convey("A config with a relative APIURL is rejected", t, func() {
		_, err := ParseConfig(writeConfig(t, `APIURL: "/api"`))
		So(err, ShouldBeError, ErrNoAPIURL)
	})

	Convey("A missing config file is an error", t, func() {
		_, err := ParseConfig(filepath.Join(t.TempDir(), "nope.yml"))
		So(err, ShouldNotBeNil)
	})
}
