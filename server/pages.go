package server

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/veltabank/bankweb/apiclient"
	"github.com/veltabank/bankweb/format"
	"github.com/veltabank/bankweb/session"
)

const (
	statementPageSize = 10
	maxAvatarBytes    = 5 << 20
)

// formFail surfaces a failed form submission as a flash on the page the
// form lives on. Auth failures are left to the central handler so they
// behave the same everywhere.
func formFail(w http.ResponseWriter, r *http.Request, err error, back string) error {
	if apiclient.IsAuthRequired(err) || apiclient.IsForbidden(err) {
		return err
	}

	setFlash(w, flashError, apiclient.Message(err))
	http.Redirect(w, r, back, http.StatusSeeOther)

	return nil
}

func formID(r *http.Request, field string) (int64, error) {
	id, err := strconv.ParseInt(r.PostFormValue(field), 10, 64)
	if err != nil {
		return 0, Error{Code: http.StatusBadRequest, Err: fmt.Errorf("invalid %s", field)}
	}

	return id, nil
}

func formAmount(r *http.Request, field string) (float64, error) {
	amount, err := strconv.ParseFloat(r.PostFormValue(field), 64)
	if err != nil || amount <= 0 {
		return 0, Error{Code: http.StatusBadRequest, Err: fmt.Errorf("invalid %s", field)}
	}

	return amount, nil
}

// origin is the base URL the payment processor sends the browser back to.
// Deployments behind a proxy set it in config; otherwise it is derived
// from the request.
func (s *Server) origin(r *http.Request) string {
	if o := s.conf.ExternalOrigin(); o != "" {
		return o
	}

	scheme := "http"

	if r.TLS != nil {
		scheme = "https"
	}

	return scheme + "://" + r.Host
}

type dashboardData struct {
	Accounts []apiclient.Account
	Totals   []currencyTotal
	Recent   []txRow
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	cred := sess.Credential()

	accounts, err := s.api.Accounts(r.Context(), cred)
	if err != nil {
		return err
	}

	recent, err := s.api.MyStatement(r.Context(), cred, apiclient.StatementQuery{
		Size:    5,
		SortBy:  "createdAt",
		SortDir: "desc",
	})
	if err != nil {
		return err
	}

	return s.render(w, r, http.StatusOK, "dashboard", "Dashboard", dashboardData{
		Accounts: accounts,
		Totals:   balanceTotals(accounts),
		Recent:   txRows(recent.Content, ibansByID(accounts)),
	})
}

type accountsData struct {
	Accounts []apiclient.Account
}

func (s *Server) accounts(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	accounts, err := s.api.Accounts(r.Context(), sess.Credential())
	if err != nil {
		return err
	}

	return s.render(w, r, http.StatusOK, "accounts", "Accounts", accountsData{Accounts: accounts})
}

func (s *Server) createAccountForm(w http.ResponseWriter, r *http.Request, _ *session.Session) error {
	return s.render(w, r, http.StatusOK, "account_create", "Open Account", nil)
}

func (s *Server) createAccount(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	if err := r.ParseForm(); err != nil {
		return Error{Code: http.StatusBadRequest, Err: err}
	}

	account, err := s.api.CreateAccount(r.Context(), sess.Credential(), r.PostFormValue("currencyType"))
	if err != nil {
		return formFail(w, r, err, "/accounts/create")
	}

	setFlash(w, flashSuccess, "Account "+format.ShortIBAN(account.IBAN)+" opened")
	http.Redirect(w, r, "/accounts", http.StatusSeeOther)

	return nil
}

type transferData struct {
	Accounts []apiclient.Account
}

func (s *Server) internalTransferForm(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	accounts, err := s.api.Accounts(r.Context(), sess.Credential())
	if err != nil {
		return err
	}

	return s.render(w, r, http.StatusOK, "transfer_internal", "Internal Transfer",
		transferData{Accounts: accounts})
}

func (s *Server) internalTransfer(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	if err := r.ParseForm(); err != nil {
		return Error{Code: http.StatusBadRequest, Err: err}
	}

	from, err := formID(r, "fromAccountId")
	if err != nil {
		return err
	}

	to, err := formID(r, "toAccountId")
	if err != nil {
		return err
	}

	amount, err := formAmount(r, "amount")
	if err != nil {
		return err
	}

	if err := s.api.InternalTransfer(r.Context(), sess.Credential(), apiclient.TransferRequest{
		FromAccountID: from,
		ToAccountID:   to,
		Amount:        amount,
		Memo:          r.PostFormValue("memo"),
	}); err != nil {
		return formFail(w, r, err, "/transfers/internal")
	}

	setFlash(w, flashSuccess, "Transfer sent")
	http.Redirect(w, r, "/transfers/internal", http.StatusSeeOther)

	return nil
}

func (s *Server) externalTransferForm(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	accounts, err := s.api.Accounts(r.Context(), sess.Credential())
	if err != nil {
		return err
	}

	return s.render(w, r, http.StatusOK, "transfer_external", "External Transfer",
		transferData{Accounts: accounts})
}

func (s *Server) externalTransfer(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	if err := r.ParseForm(); err != nil {
		return Error{Code: http.StatusBadRequest, Err: err}
	}

	from, err := formID(r, "fromAccountId")
	if err != nil {
		return err
	}

	amount, err := formAmount(r, "amount")
	if err != nil {
		return err
	}

	cred := sess.Credential()

	// external transfers are addressed by IBAN; resolve it to an account
	// before submitting
	target, err := s.api.AccountByIBAN(r.Context(), cred, r.PostFormValue("iban"))
	if err != nil {
		return formFail(w, r, err, "/transfers/external")
	}

	if err := s.api.ExternalTransfer(r.Context(), cred, apiclient.TransferRequest{
		FromAccountID: from,
		ToAccountID:   target.ID,
		Amount:        amount,
		Memo:          r.PostFormValue("memo"),
	}); err != nil {
		return formFail(w, r, err, "/transfers/external")
	}

	setFlash(w, flashSuccess, "Transfer sent to "+format.ShortIBAN(target.IBAN))
	http.Redirect(w, r, "/transfers/external", http.StatusSeeOther)

	return nil
}

type statementData struct {
	Rows          []txRow
	PageNumber    int
	TotalPages    int
	TotalElements int64
	PrevURL       string
	NextURL       string

	Accounts  []apiclient.Account
	AccountID int64
}

func queryPage(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 0 {
		return 0
	}

	return page
}

func (s *Server) statement(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	cred := sess.Credential()
	pageNum := queryPage(r)

	page, err := s.api.MyStatement(r.Context(), cred, apiclient.StatementQuery{
		Page:    pageNum,
		Size:    statementPageSize,
		SortBy:  "createdAt",
		SortDir: "desc",
	})
	if err != nil {
		return err
	}

	accounts, err := s.api.Accounts(r.Context(), cred)
	if err != nil {
		return err
	}

	data := statementData{
		Rows:          txRows(page.Content, ibansByID(accounts)),
		PageNumber:    page.PageNumber,
		TotalPages:    page.TotalPages,
		TotalElements: page.TotalElements,
	}

	if page.PageNumber > 0 {
		data.PrevURL = "/statement?page=" + strconv.Itoa(page.PageNumber-1)
	}

	if !page.LastPage {
		data.NextURL = "/statement?page=" + strconv.Itoa(page.PageNumber+1)
	}

	return s.render(w, r, http.StatusOK, "statement", "Statement", data)
}

func (s *Server) statementByAccount(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	cred := sess.Credential()

	accounts, err := s.api.Accounts(r.Context(), cred)
	if err != nil {
		return err
	}

	data := statementData{Accounts: accounts}

	accountID, err := strconv.ParseInt(r.URL.Query().Get("account"), 10, 64)
	if err != nil {
		return s.render(w, r, http.StatusOK, "statement_account", "Account Statement", data)
	}

	pageNum := queryPage(r)

	page, err := s.api.AccountStatement(r.Context(), cred, accountID, apiclient.StatementQuery{
		Page:    pageNum,
		Size:    statementPageSize,
		SortBy:  "createdAt",
		SortDir: "desc",
	})
	if err != nil {
		return err
	}

	data.AccountID = accountID
	data.Rows = txRows(page.Content, ibansByID(accounts))
	data.PageNumber = page.PageNumber
	data.TotalPages = page.TotalPages
	data.TotalElements = page.TotalElements

	base := "/statement/account?account=" + strconv.FormatInt(accountID, 10) + "&page="

	if page.PageNumber > 0 {
		data.PrevURL = base + strconv.Itoa(page.PageNumber-1)
	}

	if !page.LastPage {
		data.NextURL = base + strconv.Itoa(page.PageNumber+1)
	}

	return s.render(w, r, http.StatusOK, "statement_account", "Account Statement", data)
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request, _ *session.Session) error {
	return s.render(w, r, http.StatusOK, "profile", "Profile", nil)
}

func (s *Server) updateUsername(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	if err := r.ParseForm(); err != nil {
		return Error{Code: http.StatusBadRequest, Err: err}
	}

	rotated, err := s.api.UpdateUsername(r.Context(), sess.Credential(), r.PostFormValue("newUsername"))
	if err != nil {
		return formFail(w, r, err, "/profile")
	}

	// a rename rotates the API credential; adopt it before the refresh
	// or the session dies with the old one
	if rotated != nil {
		s.sessions.SetCredential(r.Context(), sess, rotated)
	}

	s.sessions.Refresh(r.Context(), sess)

	setFlash(w, flashSuccess, "Username updated")
	http.Redirect(w, r, "/profile", http.StatusSeeOther)

	return nil
}

func (s *Server) updatePassword(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	if err := r.ParseForm(); err != nil {
		return Error{Code: http.StatusBadRequest, Err: err}
	}

	if err := s.api.UpdatePassword(r.Context(), sess.Credential(),
		r.PostFormValue("currentPassword"), r.PostFormValue("newPassword"),
		r.PostFormValue("confirmPassword")); err != nil {
		return formFail(w, r, err, "/profile")
	}

	setFlash(w, flashSuccess, "Password updated")
	http.Redirect(w, r, "/profile", http.StatusSeeOther)

	return nil
}

func (s *Server) uploadAvatar(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		return Error{Code: http.StatusBadRequest, Err: err}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return Error{Code: http.StatusBadRequest, Err: err}
	}
	defer file.Close()

	if err := s.api.UploadProfileImage(r.Context(), sess.Credential(), header.Filename, file); err != nil {
		return formFail(w, r, err, "/profile")
	}

	setFlash(w, flashSuccess, "Profile image updated")
	http.Redirect(w, r, "/profile", http.StatusSeeOther)

	return nil
}

type topUpData struct {
	Accounts []apiclient.Account
}

func (s *Server) topUpForm(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	accounts, err := s.api.Accounts(r.Context(), sess.Credential())
	if err != nil {
		return err
	}

	return s.render(w, r, http.StatusOK, "topup", "Top Up", topUpData{Accounts: accounts})
}

func (s *Server) topUp(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	if err := r.ParseForm(); err != nil {
		return Error{Code: http.StatusBadRequest, Err: err}
	}

	accountID, err := formID(r, "accountId")
	if err != nil {
		return err
	}

	amount, err := formAmount(r, "amount")
	if err != nil {
		return err
	}

	origin := s.origin(r)

	checkoutURL, err := s.api.CreateTopUp(r.Context(), sess.Credential(), apiclient.TopUpRequest{
		AccountID:  accountID,
		Amount:     int64(math.Round(amount * 100)),
		Currency:   "EUR",
		SuccessURL: origin + "/topup/success",
		CancelURL:  origin + "/topup/cancel",
	})
	if err != nil {
		return formFail(w, r, err, "/topup")
	}

	// off to the payment processor; it sends the browser back to
	// /topup/success or /topup/cancel
	http.Redirect(w, r, checkoutURL, http.StatusSeeOther)

	return nil
}

type topUpResultData struct {
	Verified bool
	Message  string
}

func (s *Server) topUpSuccess(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	checkoutSession := r.URL.Query().Get("session_id")
	if checkoutSession == "" {
		return s.render(w, r, http.StatusOK, "topup_success", "Top Up", topUpResultData{
			Message: "Missing checkout reference",
		})
	}

	if err := s.api.VerifyTopUp(r.Context(), sess.Credential(), checkoutSession); err != nil {
		if apiclient.IsAuthRequired(err) {
			return err
		}

		return s.render(w, r, http.StatusOK, "topup_success", "Top Up", topUpResultData{
			Message: apiclient.Message(err),
		})
	}

	return s.render(w, r, http.StatusOK, "topup_success", "Top Up", topUpResultData{Verified: true})
}

func (s *Server) topUpCancel(w http.ResponseWriter, r *http.Request, _ *session.Session) error {
	return s.render(w, r, http.StatusOK, "topup_cancel", "Top Up", nil)
}

type billingData struct {
	Accounts []apiclient.Account
}

func (s *Server) billingSuper(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	accounts, err := s.api.Accounts(r.Context(), sess.Credential())
	if err != nil {
		return err
	}

	return s.render(w, r, http.StatusOK, "billing_super", "Super User", billingData{Accounts: accounts})
}

func (s *Server) purchaseSuper(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	if err := r.ParseForm(); err != nil {
		return Error{Code: http.StatusBadRequest, Err: err}
	}

	accountID, err := formID(r, "accountId")
	if err != nil {
		return err
	}

	result, err := s.api.PurchaseSuperUser(r.Context(), sess.Credential(), accountID)
	if err != nil {
		return formFail(w, r, err, "/billing/super-user")
	}

	// roles changed server-side; refresh so the navbar catches up now
	s.sessions.Refresh(r.Context(), sess)

	setFlash(w, flashSuccess, "Super user unlocked for "+format.Money(result.Debited, result.Currency))
	http.Redirect(w, r, "/", http.StatusSeeOther)

	return nil
}

func (s *Server) systemStatus(w http.ResponseWriter, r *http.Request, _ *session.Session) error {
	return s.render(w, r, http.StatusOK, "status", "System Status", nil)
}

type analyticsData struct {
	Rows   []txRow
	Totals []currencyTotal
}

func (s *Server) analytics(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	cred := sess.Credential()

	accounts, err := s.api.Accounts(r.Context(), cred)
	if err != nil {
		return err
	}

	recent, err := s.api.MyStatement(r.Context(), cred, apiclient.StatementQuery{
		Size:    statementPageSize,
		SortBy:  "createdAt",
		SortDir: "desc",
	})
	if err != nil {
		return err
	}

	return s.render(w, r, http.StatusOK, "analytics", "Analytics", analyticsData{
		Rows:   txRows(recent.Content, ibansByID(accounts)),
		Totals: balanceTotals(accounts),
	})
}
