package apiclient

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
)

// ErrNoCredential is returned when a login succeeds but the API sets no
// session cookie; nothing useful can be done with such a session.
var ErrNoCredential = &Error{Message: "no session credential in login response"}

func (c *Client) Register(ctx context.Context, username, email, password string) error {
	_, err := c.do(ctx, nil, http.MethodPost, "auth/register", nil, map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, nil)

	return err
}

// Login submits credentials and captures the session cookie the API sets.
func (c *Client) Login(ctx context.Context, username, password string) (*Credential, error) {
	resp, err := c.do(ctx, nil, http.MethodPost, "auth/login", nil, map[string]string{
		"username": username,
		"password": password,
	}, nil)
	if err != nil {
		return nil, err
	}

	cred := credentialFromResponse(resp)
	if len(cred.Cookies) == 0 {
		return nil, ErrNoCredential
	}

	return cred, nil
}

func (c *Client) SignOut(ctx context.Context, cred *Credential) error {
	_, err := c.do(ctx, cred, http.MethodPost, "auth/signout", nil, struct{}{}, nil)

	return err
}

// CurrentUser fetches the profile of the credential's owner; it fails with a
// 401 Error if the credential is missing or stale.
func (c *Client) CurrentUser(ctx context.Context, cred *Credential) (*User, error) {
	user := new(User)

	if _, err := c.do(ctx, cred, http.MethodGet, "user", nil, nil, user); err != nil {
		return nil, err
	}

	return user, nil
}

// UpdateUsername renames the current user. The API rotates the session
// cookie on rename; the returned Credential is the replacement, or nil if
// the old one is still good.
func (c *Client) UpdateUsername(ctx context.Context, cred *Credential, newUsername string) (*Credential, error) {
	resp, err := c.do(ctx, cred, http.MethodPatch, "user/username", nil, map[string]string{
		"newUsername": newUsername,
	}, nil)
	if err != nil {
		return nil, err
	}

	if rotated := credentialFromResponse(resp); len(rotated.Cookies) > 0 {
		return rotated, nil
	}

	return nil, nil
}

func (c *Client) UpdatePassword(ctx context.Context, cred *Credential, current, newPassword, confirm string) error {
	_, err := c.do(ctx, cred, http.MethodPatch, "user/password", nil, map[string]string{
		"currentPassword": current,
		"newPassword":     newPassword,
		"confirmPassword": confirm,
	}, nil)

	return err
}

// UploadProfileImage uploads a new avatar as a multipart form.
func (c *Client) UploadProfileImage(ctx context.Context, cred *Credential, filename string, data io.Reader) error {
	var buf bytes.Buffer

	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return err
	}

	if _, err = io.Copy(fw, data); err != nil {
		return err
	}

	if err = mw.Close(); err != nil {
		return err
	}

	_, err = c.send(ctx, cred, http.MethodPatch, "user/uploadimg", nil, mw.FormDataContentType(), &buf, nil)

	return err
}

func (c *Client) RemindUsername(ctx context.Context, email string) error {
	_, err := c.do(ctx, nil, http.MethodPost, "user/remind-username", nil, map[string]string{
		"email": email,
	}, nil)

	return err
}

func (c *Client) Accounts(ctx context.Context, cred *Credential) ([]Account, error) {
	var accounts []Account

	if _, err := c.do(ctx, cred, http.MethodGet, "accounts", nil, nil, &accounts); err != nil {
		return nil, err
	}

	return accounts, nil
}

func (c *Client) CreateAccount(ctx context.Context, cred *Credential, currencyType string) (*Account, error) {
	account := new(Account)

	if _, err := c.do(ctx, cred, http.MethodPost, "accounts", nil, map[string]string{
		"currencyType": currencyType,
	}, account); err != nil {
		return nil, err
	}

	return account, nil
}

func (c *Client) InternalTransfer(ctx context.Context, cred *Credential, req TransferRequest) error {
	_, err := c.do(ctx, cred, http.MethodPost, "transfers/internal", nil, req, nil)

	return err
}

func (c *Client) ExternalTransfer(ctx context.Context, cred *Credential, req TransferRequest) error {
	_, err := c.do(ctx, cred, http.MethodPost, "transfers/external", nil, req, nil)

	return err
}

// AccountByIBAN resolves any account in the bank by IBAN, for addressing
// external transfers.
func (c *Client) AccountByIBAN(ctx context.Context, cred *Credential, iban string) (*Account, error) {
	account := new(Account)

	if _, err := c.do(ctx, cred, http.MethodGet, "admin/accounts/by-iban/"+iban, nil, nil, account); err != nil {
		return nil, err
	}

	return account, nil
}

// StatementQuery selects a page of a statement.
type StatementQuery struct {
	Page    int
	Size    int
	SortBy  string
	SortDir string
}

func (q StatementQuery) values() url.Values {
	v := url.Values{}

	v.Set("page", strconv.Itoa(q.Page))

	if q.Size > 0 {
		v.Set("size", strconv.Itoa(q.Size))
	}

	if q.SortBy != "" {
		v.Set("sortBy", q.SortBy)
	}

	if q.SortDir != "" {
		v.Set("sortDir", q.SortDir)
	}

	return v
}

func (c *Client) MyStatement(ctx context.Context, cred *Credential, q StatementQuery) (*TransactionPage, error) {
	page := new(TransactionPage)

	if _, err := c.do(ctx, cred, http.MethodGet, "statement/my", q.values(), nil, page); err != nil {
		return nil, err
	}

	return page, nil
}

func (c *Client) AccountStatement(ctx context.Context, cred *Credential,
	accountID int64, q StatementQuery) (*TransactionPage, error) {
	page := new(TransactionPage)

	if _, err := c.do(ctx, cred, http.MethodGet,
		"statement/account/"+strconv.FormatInt(accountID, 10), q.values(), nil, page); err != nil {
		return nil, err
	}

	return page, nil
}

func (c *Client) PurchaseSuperUser(ctx context.Context, cred *Credential, accountID int64) (*PurchaseResult, error) {
	result := new(PurchaseResult)

	if _, err := c.do(ctx, cred, http.MethodPost, "billing/super-user/purchase", nil, map[string]int64{
		"accountId": accountID,
	}, result); err != nil {
		return nil, err
	}

	return result, nil
}

// CreateTopUp starts a checkout with the payment processor and returns the
// URL to send the browser to.
func (c *Client) CreateTopUp(ctx context.Context, cred *Credential, req TopUpRequest) (string, error) {
	var out struct {
		CheckoutURL string `json:"checkoutUrl"`
	}

	if _, err := c.do(ctx, cred, http.MethodPost, "payments/topup", nil, req, &out); err != nil {
		return "", err
	}

	return out.CheckoutURL, nil
}

// VerifyTopUp asks the API to verify and credit a completed checkout.
func (c *Client) VerifyTopUp(ctx context.Context, cred *Credential, checkoutSessionID string) error {
	_, err := c.do(ctx, cred, http.MethodGet, "payments/verify", url.Values{
		"session_id": {checkoutSessionID},
	}, nil, nil)

	return err
}

// PageQuery selects a page of an admin listing.
type PageQuery struct {
	Number int
	Size   int
}

func (q PageQuery) values() url.Values {
	return url.Values{
		"pageNumber": {strconv.Itoa(q.Number)},
		"pageSize":   {strconv.Itoa(q.Size)},
	}
}

func (c *Client) AdminUsers(ctx context.Context, cred *Credential, q PageQuery) (*AdminUserPage, error) {
	page := new(AdminUserPage)

	if _, err := c.do(ctx, cred, http.MethodGet, "admin/users", q.values(), nil, page); err != nil {
		return nil, err
	}

	return page, nil
}

func (c *Client) GrantSuperUser(ctx context.Context, cred *Credential, userID int64) (*AdminUser, error) {
	user := new(AdminUser)

	if _, err := c.do(ctx, cred, http.MethodPatch,
		"admin/users/"+strconv.FormatInt(userID, 10)+"/roles/super-user", nil, nil, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (c *Client) RevokeSuperUser(ctx context.Context, cred *Credential, userID int64) (*AdminUser, error) {
	user := new(AdminUser)

	if _, err := c.do(ctx, cred, http.MethodDelete,
		"admin/users/"+strconv.FormatInt(userID, 10)+"/roles/super-user", nil, nil, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (c *Client) AdminAccounts(ctx context.Context, cred *Credential, q PageQuery) (*AdminAccountPage, error) {
	page := new(AdminAccountPage)

	if _, err := c.do(ctx, cred, http.MethodGet, "admin/accounts", q.values(), nil, page); err != nil {
		return nil, err
	}

	return page, nil
}

func (c *Client) DeleteAccount(ctx context.Context, cred *Credential, accountID int64) error {
	_, err := c.do(ctx, cred, http.MethodDelete, "admin/accounts/"+strconv.FormatInt(accountID, 10), nil, nil, nil)

	return err
}
