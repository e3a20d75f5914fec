package server

import (
	"net/http"
	"net/url"
	"strings"
)

// A Flash is a one-shot notification carried across a redirect in a
// cookie. Only one is held at a time; setting a new one replaces any
// pending one, so a burst of failures still surfaces as a single notice.
type Flash struct {
	Kind    string
	Message string
}

const (
	flashCookieName = "bankweb_flash"

	flashError   = "error"
	flashSuccess = "success"
)

func setFlash(w http.ResponseWriter, kind, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    url.QueryEscape(kind + "|" + message),
		Path:     "/",
		HttpOnly: true,
	})
}

// takeFlash reads and clears the pending flash, if any.
func takeFlash(w http.ResponseWriter, r *http.Request) *Flash {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil {
		return nil
	}

	http.SetCookie(w, &http.Cookie{
		Name:   flashCookieName,
		Path:   "/",
		MaxAge: -1,
	})

	value, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return nil
	}

	kind, message, ok := strings.Cut(value, "|")
	if !ok {
		return nil
	}

	return &Flash{Kind: kind, Message: message}
}
