// Package testapi provides an in-memory stand-in for the banking REST API,
// implementing every endpoint the front-end consumes, so client, session
// and server tests can run against a real HTTP boundary.
package testapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"sync"
	"testing"
	"time"
)

const (
	cookieName      = "bank_jwt"
	superUserPrice  = 9.99
	defaultPageSize = 10
)

type User struct {
	ID       int64    `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`

	password string
}

type Account struct {
	ID           int64   `json:"id"`
	CurrencyType string  `json:"currencyType"`
	Balance      float64 `json:"balance"`
	IBAN         string  `json:"iban"`
	SwiftCode    string  `json:"swiftCode"`

	owner *User
}

type Transaction struct {
	ID            int64    `json:"id"`
	Type          string   `json:"type"`
	Status        string   `json:"status"`
	FromAccountID *int64   `json:"fromAccountId"`
	ToAccountID   *int64   `json:"toAccountId"`
	AmountFrom    float64  `json:"amountFrom"`
	CurrencyFrom  string   `json:"currencyFrom"`
	AmountTo      *float64 `json:"amountTo"`
	CurrencyTo    string   `json:"currencyTo"`
	FxRate        *float64 `json:"fxRate"`
	ExternalRef   string   `json:"externalRef"`
	Description   string   `json:"description"`
	CreatedAt     string   `json:"createdAt"`
}

// Server fakes the banking API over real HTTP.
type Server struct {
	*httptest.Server

	mu           sync.Mutex
	users        map[string]*User
	tokens       map[string]*User
	accounts     map[int64]*Account
	transactions []Transaction
	pendingTopUp map[string]pendingTopUp
	nextID       int64
}

type pendingTopUp struct {
	accountID int64
	amount    int64
}

// New starts a fake banking API that is shut down with the test.
func New(t *testing.T) *Server {
	t.Helper()

	s := &Server{
		users:        make(map[string]*User),
		tokens:       make(map[string]*User),
		accounts:     make(map[int64]*Account),
		pendingTopUp: make(map[string]pendingTopUp),
	}

	s.Server = httptest.NewServer(s.router())

	t.Cleanup(s.Close)

	return s
}

// APIURL is the base URL clients should be configured with.
func (s *Server) APIURL() string {
	return s.URL + "/api"
}

// AddUser seeds a user; roles defaults to ROLE_USER when empty.
func (s *Server) AddUser(username, email, password string, roles ...string) *User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(roles) == 0 {
		roles = []string{"ROLE_USER"}
	}

	u := &User{
		ID:       s.id(),
		Username: username,
		Email:    email,
		Roles:    roles,
		password: password,
	}

	s.users[username] = u

	return u
}

// AddAccount seeds an account for an existing user and returns it.
func (s *Server) AddAccount(username, currencyType string, balance float64) *Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := &Account{
		ID:           s.id(),
		CurrencyType: currencyType,
		Balance:      balance,
		SwiftCode:    "VELTDEFF",
		owner:        s.users[username],
	}
	a.IBAN = fmt.Sprintf("DE%020d", a.ID)

	s.accounts[a.ID] = a

	return a
}

// SetRoles replaces a seeded user's roles, bypassing the API, for tests
// that need a session to go stale.
func (s *Server) SetRoles(username string, roles ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[username].Roles = roles
}

// Balance reports the current balance of a seeded account.
func (s *Server) Balance(accountID int64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.accounts[accountID].Balance
}

func (s *Server) id() int64 {
	s.nextID++

	return s.nextID
}

func (s *Server) router() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/register", s.register)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("POST /api/auth/signout", s.signout)
	mux.HandleFunc("GET /api/user", s.currentUser)
	mux.HandleFunc("PATCH /api/user/username", s.updateUsername)
	mux.HandleFunc("PATCH /api/user/password", s.updatePassword)
	mux.HandleFunc("PATCH /api/user/uploadimg", s.uploadImg)
	mux.HandleFunc("POST /api/user/remind-username", s.remindUsername)
	mux.HandleFunc("GET /api/accounts", s.listAccounts)
	mux.HandleFunc("POST /api/accounts", s.createAccount)
	mux.HandleFunc("POST /api/transfers/internal", s.internalTransfer)
	mux.HandleFunc("POST /api/transfers/external", s.externalTransfer)
	mux.HandleFunc("GET /api/admin/accounts/by-iban/{iban}", s.accountByIBAN)
	mux.HandleFunc("GET /api/statement/my", s.myStatement)
	mux.HandleFunc("GET /api/statement/account/{id}", s.accountStatement)
	mux.HandleFunc("POST /api/billing/super-user/purchase", s.purchaseSuperUser)
	mux.HandleFunc("POST /api/payments/topup", s.createTopUp)
	mux.HandleFunc("GET /api/payments/verify", s.verifyTopUp)
	mux.HandleFunc("GET /api/admin/users", s.adminUsers)
	mux.HandleFunc("PATCH /api/admin/users/{id}/roles/super-user", s.grantSuper)
	mux.HandleFunc("DELETE /api/admin/users/{id}/roles/super-user", s.revokeSuper)
	mux.HandleFunc("GET /api/admin/accounts", s.adminAccounts)
	mux.HandleFunc("DELETE /api/admin/accounts/{id}", s.deleteAccount)

	return mux
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck,errchkjson
}

func fail(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"message": msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		fail(w, http.StatusBadRequest, "Malformed request")

		return false
	}

	return true
}

// auth resolves the request's cookie to a user, or nil.
func (s *Server) auth(r *http.Request) *User {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.tokens[cookie.Value]
}

func (s *Server) authOrFail(w http.ResponseWriter, r *http.Request) *User {
	u := s.auth(r)
	if u == nil {
		fail(w, http.StatusUnauthorized, "Unauthorized")
	}

	return u
}

func (s *Server) adminOrFail(w http.ResponseWriter, r *http.Request) *User {
	u := s.authOrFail(w, r)
	if u == nil {
		return nil
	}

	if !slices.Contains(u.Roles, "ROLE_ADMIN") {
		fail(w, http.StatusForbidden, "Access denied")

		return nil
	}

	return u
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[req.Username]; ok {
		fail(w, http.StatusBadRequest, "Username already exists")

		return
	}

	s.users[req.Username] = &User{
		ID:       s.id(),
		Username: req.Username,
		Email:    req.Email,
		Roles:    []string{"ROLE_USER"},
		password: req.Password,
	}

	writeJSON(w, http.StatusCreated, map[string]string{"message": "User registered"})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[req.Username]
	if !ok || u.password != req.Password {
		fail(w, http.StatusUnauthorized, "Bad credentials")

		return
	}

	token := fmt.Sprintf("token-%d-%d", u.ID, s.id())
	s.tokens[token] = u

	http.SetCookie(w, &http.Cookie{Name: cookieName, Value: token, Path: "/"})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Signed in"})
}

func (s *Server) signout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(cookieName); err == nil {
		s.mu.Lock()
		delete(s.tokens, cookie.Value)
		s.mu.Unlock()
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Signed out"})
}

func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) {
	u := s.authOrFail(w, r)
	if u == nil {
		return
	}

	writeJSON(w, http.StatusOK, u)
}

func (s *Server) updateUsername(w http.ResponseWriter, r *http.Request) {
	u := s.authOrFail(w, r)
	if u == nil {
		return
	}

	var req struct {
		NewUsername string `json:"newUsername"`
	}

	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[req.NewUsername]; ok {
		fail(w, http.StatusBadRequest, "Username already exists")

		return
	}

	delete(s.users, u.Username)
	u.Username = req.NewUsername
	s.users[u.Username] = u

	// the real API rotates the JWT cookie on rename
	token := fmt.Sprintf("token-%d-%d", u.ID, s.id())
	s.tokens[token] = u

	http.SetCookie(w, &http.Cookie{Name: cookieName, Value: token, Path: "/"})
	writeJSON(w, http.StatusOK, map[string]string{"userName": u.Username, "email": u.Email})
}

func (s *Server) updatePassword(w http.ResponseWriter, r *http.Request) {
	u := s.authOrFail(w, r)
	if u == nil {
		return
	}

	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
		ConfirmPassword string `json:"confirmPassword"`
	}

	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if u.password != req.CurrentPassword {
		fail(w, http.StatusBadRequest, "Current password is incorrect")

		return
	}

	if req.NewPassword != req.ConfirmPassword {
		fail(w, http.StatusBadRequest, "Passwords do not match")

		return
	}

	u.password = req.NewPassword

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

func (s *Server) uploadImg(w http.ResponseWriter, r *http.Request) {
	u := s.authOrFail(w, r)
	if u == nil {
		return
	}

	if _, _, err := r.FormFile("file"); err != nil {
		fail(w, http.StatusBadRequest, "Missing file")

		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"userName": u.Username, "email": u.Email})
}

func (s *Server) remindUsername(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}

	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == req.Email {
			writeJSON(w, http.StatusOK, map[string]string{"message": "Username sent"})

			return
		}
	}

	fail(w, http.StatusNotFound, "Email not found")
}

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	u := s.authOrFail(w, r)
	if u == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := make([]*Account, 0)

	for _, a := range s.accounts {
		if a.owner == u {
			accounts = append(accounts, a)
		}
	}

	slices.SortFunc(accounts, func(a, b *Account) int { return int(a.ID - b.ID) })

	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) createAccount(w http.ResponseWriter, r *http.Request) {
	u := s.authOrFail(w, r)
	if u == nil {
		return
	}

	var req struct {
		CurrencyType string `json:"currencyType"`
	}

	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a := &Account{
		ID:           s.id(),
		CurrencyType: req.CurrencyType,
		SwiftCode:    "VELTDEFF",
		owner:        u,
	}
	a.IBAN = fmt.Sprintf("DE%020d", a.ID)

	s.accounts[a.ID] = a

	writeJSON(w, http.StatusCreated, a)
}

type transferRequest struct {
	FromAccountID int64   `json:"fromAccountId"`
	ToAccountID   int64   `json:"toAccountId"`
	Amount        float64 `json:"amount"`
	Memo          string  `json:"memo"`
}

func (s *Server) transfer(w http.ResponseWriter, r *http.Request, external bool) {
	u := s.authOrFail(w, r)
	if u == nil {
		return
	}

	var req transferRequest

	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	from, to := s.accounts[req.FromAccountID], s.accounts[req.ToAccountID]

	switch {
	case from == nil || to == nil:
		fail(w, http.StatusNotFound, "Account not found")
	case from.owner != u:
		fail(w, http.StatusForbidden, "Access denied")
	case !external && to.owner != u:
		fail(w, http.StatusForbidden, "Access denied")
	case req.Amount <= 0:
		fail(w, http.StatusBadRequest, "Amount must be positive")
	case from.Balance < req.Amount:
		fail(w, http.StatusBadRequest, "Insufficient funds")
	default:
		from.Balance -= req.Amount
		to.Balance += req.Amount

		kind := "INTERNAL"
		if external {
			kind = "EXTERNAL"
		}

		s.record(kind, &from.ID, &to.ID, req.Amount, from.CurrencyType, req.Memo)
		writeJSON(w, http.StatusOK, map[string]string{"message": "Transfer complete"})
	}
}

func (s *Server) record(kind string, from, to *int64, amount float64, currency, memo string) {
	s.transactions = append(s.transactions, Transaction{
		ID:            s.id(),
		Type:          kind,
		Status:        "SUCCESS",
		FromAccountID: from,
		ToAccountID:   to,
		AmountFrom:    amount,
		CurrencyFrom:  currency,
		Description:   memo,
		CreatedAt:     time.Now().Format("2006-01-02T15:04:05"),
	})
}

func (s *Server) internalTransfer(w http.ResponseWriter, r *http.Request) {
	s.transfer(w, r, false)
}

func (s *Server) externalTransfer(w http.ResponseWriter, r *http.Request) {
	s.transfer(w, r, true)
}

func (s *Server) accountByIBAN(w http.ResponseWriter, r *http.Request) {
	if s.authOrFail(w, r) == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a.IBAN == r.PathValue("iban") {
			writeJSON(w, http.StatusOK, a)

			return
		}
	}

	fail(w, http.StatusNotFound, "Account not found")
}

func (s *Server) statement(w http.ResponseWriter, r *http.Request, u *User, accountID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mine := make([]Transaction, 0)

	for _, t := range s.transactions {
		if s.involves(t, u, accountID) {
			mine = append(mine, t)
		}
	}

	if r.URL.Query().Get("sortDir") != "asc" {
		slices.Reverse(mine)
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	size, err := strconv.Atoi(r.URL.Query().Get("size"))
	if err != nil || size <= 0 {
		size = defaultPageSize
	}

	totalPages := (len(mine) + size - 1) / size
	start := min(page*size, len(mine))
	end := min(start+size, len(mine))

	writeJSON(w, http.StatusOK, map[string]any{
		"content":       mine[start:end],
		"pageNumber":    page,
		"pageSize":      size,
		"totalPages":    totalPages,
		"totalElements": len(mine),
		"lastPage":      page+1 >= totalPages,
	})
}

func (s *Server) involves(t Transaction, u *User, accountID int64) bool {
	for _, id := range []*int64{t.FromAccountID, t.ToAccountID} {
		if id == nil {
			continue
		}

		if accountID != 0 && *id == accountID {
			return true
		}

		if accountID == 0 {
			if a := s.accounts[*id]; a != nil && a.owner == u {
				return true
			}
		}
	}

	return false
}

func (s *Server) myStatement(w http.ResponseWriter, r *http.Request) {
	u := s.authOrFail(w, r)
	if u == nil {
		return
	}

	s.statement(w, r, u, 0)
}

func (s *Server) accountStatement(w http.ResponseWriter, r *http.Request) {
	u := s.authOrFail(w, r)
	if u == nil {
		return
	}

	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)

	s.statement(w, r, u, id)
}

func (s *Server) purchaseSuperUser(w http.ResponseWriter, r *http.Request) {
	u := s.authOrFail(w, r)
	if u == nil {
		return
	}

	var req struct {
		AccountID int64 `json:"accountId"`
	}

	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.accounts[req.AccountID]

	switch {
	case a == nil || a.owner != u:
		fail(w, http.StatusNotFound, "Account not found")
	case slices.Contains(u.Roles, "ROLE_SUPER_USER"):
		fail(w, http.StatusConflict, "Already a super user")
	case a.Balance < superUserPrice:
		fail(w, http.StatusBadRequest, "Insufficient funds")
	default:
		a.Balance -= superUserPrice
		u.Roles = append(u.Roles, "ROLE_SUPER_USER")

		s.record("BILLING", &a.ID, nil, superUserPrice, a.CurrencyType, "super-user purchase")
		writeJSON(w, http.StatusOK, map[string]any{"debited": superUserPrice, "currency": a.CurrencyType})
	}
}

func (s *Server) createTopUp(w http.ResponseWriter, r *http.Request) {
	u := s.authOrFail(w, r)
	if u == nil {
		return
	}

	var req struct {
		AccountID  int64  `json:"accountId"`
		Amount     int64  `json:"amount"`
		Currency   string `json:"currency"`
		SuccessURL string `json:"successUrl"`
		CancelURL  string `json:"cancelUrl"`
	}

	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.accounts[req.AccountID]

	switch {
	case a == nil || a.owner != u:
		fail(w, http.StatusNotFound, "Account not found")
	case req.Amount <= 0:
		fail(w, http.StatusBadRequest, "Amount must be positive")
	case req.SuccessURL == "" || req.CancelURL == "":
		fail(w, http.StatusBadRequest, "Missing return URLs")
	default:
		checkoutID := fmt.Sprintf("cs_%d", s.id())
		s.pendingTopUp[checkoutID] = pendingTopUp{accountID: a.ID, amount: req.Amount}

		writeJSON(w, http.StatusOK, map[string]string{
			"checkoutUrl": "https://checkout.example.com/pay/" + checkoutID,
		})
	}
}

func (s *Server) verifyTopUp(w http.ResponseWriter, r *http.Request) {
	u := s.authOrFail(w, r)
	if u == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	checkoutID := r.URL.Query().Get("session_id")

	pending, ok := s.pendingTopUp[checkoutID]
	if !ok {
		fail(w, http.StatusNotFound, "Unknown checkout session")

		return
	}

	delete(s.pendingTopUp, checkoutID)

	a := s.accounts[pending.accountID]
	a.Balance += float64(pending.amount) / 100

	s.record("TOPUP", nil, &a.ID, float64(pending.amount)/100, a.CurrencyType, "top-up")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Credited"})
}

func (s *Server) adminUsers(w http.ResponseWriter, r *http.Request) {
	if s.adminOrFail(w, r) == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]*User, 0, len(s.users))

	for _, u := range s.users {
		users = append(users, u)
	}

	slices.SortFunc(users, func(a, b *User) int { return int(a.ID - b.ID) })

	writeJSON(w, http.StatusOK, map[string]any{
		"content":       users,
		"pageNumber":    0,
		"pageSize":      len(users),
		"totalPages":    1,
		"totalElements": len(users),
		"lastPage":      true,
	})
}

func (s *Server) userByID(w http.ResponseWriter, r *http.Request) *User {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)

	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}

	fail(w, http.StatusNotFound, "User not found")

	return nil
}

func (s *Server) grantSuper(w http.ResponseWriter, r *http.Request) {
	if s.adminOrFail(w, r) == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.userByID(w, r)
	if u == nil {
		return
	}

	if !slices.Contains(u.Roles, "ROLE_SUPER_USER") {
		u.Roles = append(u.Roles, "ROLE_SUPER_USER")
	}

	writeJSON(w, http.StatusOK, u)
}

func (s *Server) revokeSuper(w http.ResponseWriter, r *http.Request) {
	if s.adminOrFail(w, r) == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.userByID(w, r)
	if u == nil {
		return
	}

	u.Roles = slices.DeleteFunc(u.Roles, func(role string) bool { return role == "ROLE_SUPER_USER" })

	writeJSON(w, http.StatusOK, u)
}

func (s *Server) adminAccounts(w http.ResponseWriter, r *http.Request) {
	if s.adminOrFail(w, r) == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	type adminAccount struct {
		Account
		OwnerUsername string `json:"ownerUsername"`
		OwnerEmail    string `json:"ownerEmail"`
	}

	accounts := make([]adminAccount, 0, len(s.accounts))

	for _, a := range s.accounts {
		accounts = append(accounts, adminAccount{
			Account:       *a,
			OwnerUsername: a.owner.Username,
			OwnerEmail:    a.owner.Email,
		})
	}

	slices.SortFunc(accounts, func(a, b adminAccount) int { return int(a.ID - b.ID) })

	writeJSON(w, http.StatusOK, map[string]any{
		"content":       accounts,
		"pageNumber":    0,
		"pageSize":      len(accounts),
		"totalPages":    1,
		"totalElements": len(accounts),
		"lastPage":      true,
	})
}

func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request) {
	if s.adminOrFail(w, r) == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)

	if _, ok := s.accounts[id]; !ok {
		fail(w, http.StatusNotFound, "Account not found")

		return
	}

	delete(s.accounts, id)

	w.WriteHeader(http.StatusNoContent)
}
