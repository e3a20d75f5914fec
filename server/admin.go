package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/veltabank/bankweb/apiclient"
	"github.com/veltabank/bankweb/session"
)

const adminPageSize = 50

func (s *Server) adminPanel(w http.ResponseWriter, r *http.Request, _ *session.Session) error {
	return s.render(w, r, http.StatusOK, "admin_panel", "Admin", nil)
}

type adminUsersData struct {
	Users         []apiclient.AdminUser
	PageNumber    int
	TotalPages    int
	TotalElements int64
	PrevURL       string
	NextURL       string
}

func (s *Server) adminUsers(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	page, err := s.api.AdminUsers(r.Context(), sess.Credential(), apiclient.PageQuery{
		Number: queryPage(r),
		Size:   adminPageSize,
	})
	if err != nil {
		return err
	}

	data := adminUsersData{
		Users:         page.Content,
		PageNumber:    page.PageNumber,
		TotalPages:    page.TotalPages,
		TotalElements: page.TotalElements,
	}

	if page.PageNumber > 0 {
		data.PrevURL = "/admin/users?page=" + strconv.Itoa(page.PageNumber-1)
	}

	if !page.LastPage {
		data.NextURL = "/admin/users?page=" + strconv.Itoa(page.PageNumber+1)
	}

	return s.render(w, r, http.StatusOK, "admin_users", "Manage Users", data)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, Error{Code: http.StatusBadRequest, Err: fmt.Errorf("invalid id")}
	}

	return id, nil
}

func (s *Server) grantSuper(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	userID, err := pathID(r)
	if err != nil {
		return err
	}

	user, err := s.api.GrantSuperUser(r.Context(), sess.Credential(), userID)
	if err != nil {
		return formFail(w, r, err, "/admin/users")
	}

	setFlash(w, flashSuccess, "Granted super user to "+user.Username)
	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)

	return nil
}

func (s *Server) revokeSuper(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	userID, err := pathID(r)
	if err != nil {
		return err
	}

	user, err := s.api.RevokeSuperUser(r.Context(), sess.Credential(), userID)
	if err != nil {
		return formFail(w, r, err, "/admin/users")
	}

	setFlash(w, flashSuccess, "Revoked super user from "+user.Username)
	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)

	return nil
}

type adminAccountsData struct {
	Accounts      []apiclient.AdminAccount
	PageNumber    int
	TotalPages    int
	TotalElements int64
	PrevURL       string
	NextURL       string
}

func (s *Server) adminAccounts(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	page, err := s.api.AdminAccounts(r.Context(), sess.Credential(), apiclient.PageQuery{
		Number: queryPage(r),
		Size:   adminPageSize,
	})
	if err != nil {
		return err
	}

	data := adminAccountsData{
		Accounts:      page.Content,
		PageNumber:    page.PageNumber,
		TotalPages:    page.TotalPages,
		TotalElements: page.TotalElements,
	}

	if page.PageNumber > 0 {
		data.PrevURL = "/admin/accounts?page=" + strconv.Itoa(page.PageNumber-1)
	}

	if !page.LastPage {
		data.NextURL = "/admin/accounts?page=" + strconv.Itoa(page.PageNumber+1)
	}

	return s.render(w, r, http.StatusOK, "admin_accounts", "Manage Accounts", data)
}

func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	accountID, err := pathID(r)
	if err != nil {
		return err
	}

	if err := s.api.DeleteAccount(r.Context(), sess.Credential(), accountID); err != nil {
		return formFail(w, r, err, "/admin/accounts")
	}

	setFlash(w, flashSuccess, "Account deleted")
	http.Redirect(w, r, "/admin/accounts", http.StatusSeeOther)

	return nil
}
