package apiclient

import "slices"

// Role is a server-assigned authority. The set is closed; values outside it
// grant nothing.
type Role string

const (
	RoleStandard  Role = "ROLE_USER"
	RoleSuperUser Role = "ROLE_SUPER_USER"
	RoleAdmin     Role = "ROLE_ADMIN"
)

// User is the identity record behind the session.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Roles    []Role `json:"roles"`
}

// Has reports whether the user holds the given role. Authorisation is
// re-checked server-side; this only gates presentation.
func (u *User) Has(role Role) bool {
	return u != nil && slices.Contains(u.Roles, role)
}

// IsSuper reports whether the user has super-user features; admins do.
func (u *User) IsSuper() bool {
	return u.Has(RoleSuperUser) || u.Has(RoleAdmin)
}

type Account struct {
	ID           int64   `json:"id"`
	CurrencyType string  `json:"currencyType"`
	Balance      float64 `json:"balance"`
	IBAN         string  `json:"iban"`
	SwiftCode    string  `json:"swiftCode"`
}

// AdminAccount is an account as seen by the admin screens, with its owner
// attached.
type AdminAccount struct {
	Account
	OwnerUsername string `json:"ownerUsername"`
	OwnerEmail    string `json:"ownerEmail"`
}

// AdminUser is a user record in the admin screens.
type AdminUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Roles    []Role `json:"roles"`
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

// Converted reports whether the transaction has a second leg in another
// currency.
func (t *Transaction) Converted() bool {
	return t.AmountTo != nil && t.CurrencyTo != "" && t.CurrencyTo != t.CurrencyFrom
}

type TransactionPage struct {
	Content       []Transaction `json:"content"`
	PageNumber    int           `json:"pageNumber"`
	PageSize      int           `json:"pageSize"`
	TotalPages    int           `json:"totalPages"`
	TotalElements int64         `json:"totalElements"`
	LastPage      bool          `json:"lastPage"`
}

type AdminUserPage struct {
	Content       []AdminUser `json:"content"`
	PageNumber    int         `json:"pageNumber"`
	PageSize      int         `json:"pageSize"`
	TotalPages    int         `json:"totalPages"`
	TotalElements int64       `json:"totalElements"`
	LastPage      bool        `json:"lastPage"`
}

type AdminAccountPage struct {
	Content       []AdminAccount `json:"content"`
	PageNumber    int            `json:"pageNumber"`
	PageSize      int            `json:"pageSize"`
	TotalPages    int            `json:"totalPages"`
	TotalElements int64          `json:"totalElements"`
	LastPage      bool           `json:"lastPage"`
}

// TransferRequest moves money between two accounts, addressed by ID.
type TransferRequest struct {
	FromAccountID int64   `json:"fromAccountId"`
	ToAccountID   int64   `json:"toAccountId"`
	Amount        float64 `json:"amount"`
	Memo          string  `json:"memo"`
}

// TopUpRequest starts a checkout with the external payment processor.
// Amount is in cents.
type TopUpRequest struct {
	AccountID  int64  `json:"accountId"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	SuccessURL string `json:"successUrl"`
	CancelURL  string `json:"cancelUrl"`
}

// PurchaseResult is the outcome of a super-user purchase.
type PurchaseResult struct {
	Debited  float64 `json:"debited"`
	Currency string  `json:"currency"`
}
