package apiclient_test

import (
	"context"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/veltabank/bankweb/apiclient"
	"github.com/veltabank/bankweb/internal/testapi"
)

func TestNew(t *testing.T) {
	Convey("New rejects relative base URLs", t, func() {
		_, err := apiclient.New("/api")
		So(err, ShouldBeError, apiclient.ErrRelativeURL)

		_, err = apiclient.New("http://localhost:8081/api")
		So(err, ShouldBeNil)
	})
}

func TestLogin(t *testing.T) {
	Convey("Given a banking API with a user", t, func() {
		api := testapi.New(t)
		api.AddUser("jess", "jess@example.com", "hunter2")

		client, err := apiclient.New(api.APIURL())
		So(err, ShouldBeNil)

		ctx := context.Background()

		Convey("Login captures the session cookie the API sets", func() {
			cred, err := client.Login(ctx, "jess", "hunter2")
			So(err, ShouldBeNil)
			So(cred, ShouldNotBeNil)
			So(len(cred.Cookies), ShouldEqual, 1)
			So(cred.Cookies[0].Name, ShouldEqual, "bank_jwt")

			Convey("and the credential resolves the user", func() {
				user, err := client.CurrentUser(ctx, cred)
				So(err, ShouldBeNil)
				So(user.Username, ShouldEqual, "jess")
				So(user.Has(apiclient.RoleStandard), ShouldBeTrue)
				So(user.Has(apiclient.RoleAdmin), ShouldBeFalse)
			})

			Convey("and signing out invalidates it", func() {
				So(client.SignOut(ctx, cred), ShouldBeNil)

				_, err := client.CurrentUser(ctx, cred)
				So(apiclient.IsAuthRequired(err), ShouldBeTrue)
			})
		})

		Convey("Login with a bad password is an auth failure with the API's message", func() {
			_, err := client.Login(ctx, "jess", "wrong")
			So(apiclient.IsAuthRequired(err), ShouldBeTrue)
			So(apiclient.Message(err), ShouldEqual, "Bad credentials")
		})
	})
}

func TestErrorClassification(t *testing.T) {
	Convey("Given a banking API and a signed-in non-admin", t, func() {
		api := testapi.New(t)
		api.AddUser("jess", "jess@example.com", "hunter2")

		client, err := apiclient.New(api.APIURL())
		So(err, ShouldBeNil)

		ctx := context.Background()

		cred, err := client.Login(ctx, "jess", "hunter2")
		So(err, ShouldBeNil)

		Convey("requests without a credential classify as auth required", func() {
			_, err := client.Accounts(ctx, nil)
			So(apiclient.IsAuthRequired(err), ShouldBeTrue)
			So(apiclient.IsForbidden(err), ShouldBeFalse)
		})

		Convey("admin endpoints classify as forbidden", func() {
			_, err := client.AdminUsers(ctx, cred, apiclient.PageQuery{Size: 10})
			So(apiclient.IsForbidden(err), ShouldBeTrue)
			So(apiclient.IsAuthRequired(err), ShouldBeFalse)
			So(apiclient.Message(err), ShouldEqual, "Access denied")
		})

		Convey("a dead API surfaces as a transport error, not an auth failure", func() {
			deadAPI := testapi.New(t)
			deadURL := deadAPI.APIURL()
			deadAPI.Close()

			deadClient, err := apiclient.New(deadURL)
			So(err, ShouldBeNil)

			_, err = deadClient.Accounts(ctx, cred)
			So(err, ShouldNotBeNil)
			So(apiclient.IsAuthRequired(err), ShouldBeFalse)
			So(apiclient.Message(err), ShouldNotBeBlank)
		})
	})
}

func TestAccountsAndTransfers(t *testing.T) {
	Convey("Given a user with two accounts", t, func() {
		api := testapi.New(t)
		api.AddUser("jess", "jess@example.com", "hunter2")

		from := api.AddAccount("jess", "EUR", 100)
		to := api.AddAccount("jess", "EUR", 0)

		client, err := apiclient.New(api.APIURL())
		So(err, ShouldBeNil)

		ctx := context.Background()

		cred, err := client.Login(ctx, "jess", "hunter2")
		So(err, ShouldBeNil)

		Convey("Accounts lists both", func() {
			accounts, err := client.Accounts(ctx, cred)
			So(err, ShouldBeNil)
			So(len(accounts), ShouldEqual, 2)
			So(accounts[0].IBAN, ShouldStartWith, "DE")
		})

		Convey("CreateAccount opens a third", func() {
			account, err := client.CreateAccount(ctx, cred, "USD")
			So(err, ShouldBeNil)
			So(account.CurrencyType, ShouldEqual, "USD")

			accounts, err := client.Accounts(ctx, cred)
			So(err, ShouldBeNil)
			So(len(accounts), ShouldEqual, 3)
		})

		Convey("InternalTransfer moves money and shows up on the statement", func() {
			err := client.InternalTransfer(ctx, cred, apiclient.TransferRequest{
				FromAccountID: from.ID,
				ToAccountID:   to.ID,
				Amount:        25,
				Memo:          "savings",
			})
			So(err, ShouldBeNil)
			So(api.Balance(from.ID), ShouldEqual, 75)
			So(api.Balance(to.ID), ShouldEqual, 25)

			page, err := client.MyStatement(ctx, cred, apiclient.StatementQuery{Size: 10})
			So(err, ShouldBeNil)
			So(len(page.Content), ShouldEqual, 1)
			So(page.Content[0].Type, ShouldEqual, "INTERNAL")
			So(page.Content[0].Description, ShouldEqual, "savings")
		})

		Convey("an overdraft is rejected with the API's message", func() {
			err := client.InternalTransfer(ctx, cred, apiclient.TransferRequest{
				FromAccountID: from.ID,
				ToAccountID:   to.ID,
				Amount:        1e6,
			})
			So(apiclient.Message(err), ShouldEqual, "Insufficient funds")
		})

		Convey("external transfers are addressed via IBAN lookup", func() {
			api.AddUser("sam", "sam@example.com", "pw")
			other := api.AddAccount("sam", "EUR", 0)

			resolved, err := client.AccountByIBAN(ctx, cred, other.IBAN)
			So(err, ShouldBeNil)
			So(resolved.ID, ShouldEqual, other.ID)

			err = client.ExternalTransfer(ctx, cred, apiclient.TransferRequest{
				FromAccountID: from.ID,
				ToAccountID:   resolved.ID,
				Amount:        10,
			})
			So(err, ShouldBeNil)
			So(api.Balance(other.ID), ShouldEqual, 10)
		})
	})
}

func TestStatementPaging(t *testing.T) {
	Convey("Given a user with more transactions than a page holds", t, func() {
		api := testapi.New(t)
		api.AddUser("jess", "jess@example.com", "hunter2")

		from := api.AddAccount("jess", "EUR", 1000)
		to := api.AddAccount("jess", "EUR", 0)

		client, err := apiclient.New(api.APIURL())
		So(err, ShouldBeNil)

		ctx := context.Background()

		cred, err := client.Login(ctx, "jess", "hunter2")
		So(err, ShouldBeNil)

		for range 7 {
			So(client.InternalTransfer(ctx, cred, apiclient.TransferRequest{
				FromAccountID: from.ID,
				ToAccountID:   to.ID,
				Amount:        1,
			}), ShouldBeNil)
		}

		Convey("pages are sized and terminated correctly", func() {
			first, err := client.MyStatement(ctx, cred, apiclient.StatementQuery{Page: 0, Size: 5})
			So(err, ShouldBeNil)
			So(len(first.Content), ShouldEqual, 5)
			So(first.TotalElements, ShouldEqual, 7)
			So(first.TotalPages, ShouldEqual, 2)
			So(first.LastPage, ShouldBeFalse)

			second, err := client.MyStatement(ctx, cred, apiclient.StatementQuery{Page: 1, Size: 5})
			So(err, ShouldBeNil)
			So(len(second.Content), ShouldEqual, 2)
			So(second.LastPage, ShouldBeTrue)
		})

		Convey("the per-account statement filters to one account", func() {
			page, err := client.AccountStatement(ctx, cred, to.ID, apiclient.StatementQuery{Size: 10})
			So(err, ShouldBeNil)
			So(len(page.Content), ShouldEqual, 7)
		})
	})
}

func TestProfile(t *testing.T) {
	Convey("Given a signed-in user", t, func() {
		api := testapi.New(t)
		api.AddUser("jess", "jess@example.com", "hunter2")

		client, err := apiclient.New(api.APIURL())
		So(err, ShouldBeNil)

		ctx := context.Background()

		cred, err := client.Login(ctx, "jess", "hunter2")
		So(err, ShouldBeNil)

		Convey("UpdateUsername returns the rotated credential", func() {
			rotated, err := client.UpdateUsername(ctx, cred, "jessie")
			So(err, ShouldBeNil)
			So(rotated, ShouldNotBeNil)
			So(rotated.Cookies[0].Value, ShouldNotEqual, cred.Cookies[0].Value)

			user, err := client.CurrentUser(ctx, rotated)
			So(err, ShouldBeNil)
			So(user.Username, ShouldEqual, "jessie")
		})

		Convey("UpdatePassword reports a wrong current password", func() {
			err := client.UpdatePassword(ctx, cred, "wrong", "newpw", "newpw")
			So(apiclient.Message(err), ShouldEqual, "Current password is incorrect")

			So(client.UpdatePassword(ctx, cred, "hunter2", "newpw", "newpw"), ShouldBeNil)
		})

		Convey("UploadProfileImage sends the file as multipart", func() {
			err := client.UploadProfileImage(ctx, cred, "avatar.png", strings.NewReader("not-a-real-png"))
			So(err, ShouldBeNil)
		})

		Convey("RemindUsername reports unknown emails", func() {
			So(client.RemindUsername(ctx, "jess@example.com"), ShouldBeNil)

			err := client.RemindUsername(ctx, "nobody@example.com")
			So(apiclient.Message(err), ShouldEqual, "Email not found")
		})
	})
}

func TestBillingAndTopUp(t *testing.T) {
	Convey("Given a signed-in user with a funded account", t, func() {
		api := testapi.New(t)
		api.AddUser("jess", "jess@example.com", "hunter2")

		account := api.AddAccount("jess", "EUR", 50)

		client, err := apiclient.New(api.APIURL())
		So(err, ShouldBeNil)

		ctx := context.Background()

		cred, err := client.Login(ctx, "jess", "hunter2")
		So(err, ShouldBeNil)

		Convey("PurchaseSuperUser debits the account and grants the role", func() {
			result, err := client.PurchaseSuperUser(ctx, cred, account.ID)
			So(err, ShouldBeNil)
			So(result.Debited, ShouldEqual, 9.99)
			So(result.Currency, ShouldEqual, "EUR")

			user, err := client.CurrentUser(ctx, cred)
			So(err, ShouldBeNil)
			So(user.IsSuper(), ShouldBeTrue)

			Convey("and buying it twice conflicts", func() {
				_, err := client.PurchaseSuperUser(ctx, cred, account.ID)
				So(apiclient.Message(err), ShouldEqual, "Already a super user")
			})
		})

		Convey("CreateTopUp returns a checkout URL and VerifyTopUp credits", func() {
			checkoutURL, err := client.CreateTopUp(ctx, cred, apiclient.TopUpRequest{
				AccountID:  account.ID,
				Amount:     2500,
				Currency:   "EUR",
				SuccessURL: "https://bank.example.com/topup/success",
				CancelURL:  "https://bank.example.com/topup/cancel",
			})
			So(err, ShouldBeNil)
			So(checkoutURL, ShouldStartWith, "https://checkout.example.com/pay/cs_")

			checkoutID := checkoutURL[strings.LastIndexByte(checkoutURL, '/')+1:]

			So(client.VerifyTopUp(ctx, cred, checkoutID), ShouldBeNil)
			So(api.Balance(account.ID), ShouldEqual, 75)

			Convey("but an unknown checkout session does not", func() {
				err := client.VerifyTopUp(ctx, cred, "cs_bogus")
				So(apiclient.Message(err), ShouldEqual, "Unknown checkout session")
			})
		})
	})
}

func TestAdmin(t *testing.T) {
	Convey("Given an admin and a standard user", t, func() {
		api := testapi.New(t)
		api.AddUser("root", "root@example.com", "rootpw", "ROLE_USER", "ROLE_ADMIN")

		target := api.AddUser("jess", "jess@example.com", "hunter2")
		account := api.AddAccount("jess", "EUR", 10)

		client, err := apiclient.New(api.APIURL())
		So(err, ShouldBeNil)

		ctx := context.Background()

		cred, err := client.Login(ctx, "root", "rootpw")
		So(err, ShouldBeNil)

		Convey("AdminUsers lists everyone", func() {
			page, err := client.AdminUsers(ctx, cred, apiclient.PageQuery{Size: 50})
			So(err, ShouldBeNil)
			So(len(page.Content), ShouldEqual, 2)
		})

		Convey("super user can be granted and revoked", func() {
			user, err := client.GrantSuperUser(ctx, cred, target.ID)
			So(err, ShouldBeNil)
			So(user.Roles, ShouldContain, apiclient.RoleSuperUser)

			user, err = client.RevokeSuperUser(ctx, cred, target.ID)
			So(err, ShouldBeNil)
			So(user.Roles, ShouldNotContain, apiclient.RoleSuperUser)
		})

		Convey("AdminAccounts carries the owner and accounts can be deleted", func() {
			page, err := client.AdminAccounts(ctx, cred, apiclient.PageQuery{Size: 50})
			So(err, ShouldBeNil)
			So(len(page.Content), ShouldEqual, 1)
			So(page.Content[0].OwnerUsername, ShouldEqual, "jess")

			So(client.DeleteAccount(ctx, cred, account.ID), ShouldBeNil)

			page, err = client.AdminAccounts(ctx, cred, apiclient.PageQuery{Size: 50})
			So(err, ShouldBeNil)
			So(page.Content, ShouldBeEmpty)
		})
	})
}
