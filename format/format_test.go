package format

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMoney(t *testing.T) {
	Convey("Money renders two decimal places with an optional currency", t, func() {
		So(Money(12.5, "EUR"), ShouldEqual, "12.50 EUR")
		So(Money(0, ""), ShouldEqual, "0.00")
		So(Money(1234.567, "USD"), ShouldEqual, "1234.57 USD")
		So(Money(-3, "GBP"), ShouldEqual, "-3.00 GBP")
	})
}

func TestShortIBAN(t *testing.T) {
	Convey("ShortIBAN abbreviates long IBANs and leaves short values alone", t, func() {
		So(ShortIBAN("DE00000000000000000042"), ShouldEqual, "DE00…042")
		So(ShortIBAN("GB29NWBK60161331926819"), ShouldEqual, "GB29…819")
		So(ShortIBAN("SHORT"), ShouldEqual, "SHORT")
		So(ShortIBAN(""), ShouldEqual, "")
	})
}

func TestDate(t *testing.T) {
	Convey("Date handles zoned and zoneless timestamps and bad input", t, func() {
		So(Date("2024-03-01T15:04:05Z"), ShouldEqual, "Mar 01, 2024 15:04")
		So(Date("2024-03-01T15:04:05"), ShouldEqual, "Mar 01, 2024 15:04")
		So(Date(""), ShouldEqual, "-")
		So(Date("yesterday"), ShouldEqual, "yesterday")
	})
}

func TestFuncMap(t *testing.T) {
	Convey("FuncMap exposes every helper", t, func() {
		funcs := FuncMap()

		So(funcs, ShouldContainKey, "money")
		So(funcs, ShouldContainKey, "shortIBAN")
		So(funcs, ShouldContainKey, "date")
	})
}
