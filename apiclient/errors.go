package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// fallbackMessage is shown when a failure carries no usable message.
const fallbackMessage = "Request failed"

// Error is a failed banking API request. StatusCode is zero when the request
// never received a response.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}

	return fmt.Sprintf("%s (%d)", e.Message, e.StatusCode)
}

// errorFromResponse builds an Error from a non-2xx response, preferring the
// API's "message" field, then its "error" field, then a generic fallback.
func errorFromResponse(status int, body []byte) *Error {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}

	msg := ""

	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			msg = payload.Message
		} else {
			msg = payload.Error
		}
	}

	if msg == "" {
		msg = fallbackMessage
	}

	return &Error{StatusCode: status, Message: msg}
}

// IsAuthRequired reports whether err is the API rejecting the request for
// want of a valid session.
func IsAuthRequired(err error) bool {
	var aerr *Error

	return errors.As(err, &aerr) && aerr.StatusCode == http.StatusUnauthorized
}

// IsForbidden reports whether err is the API denying an authenticated
// request.
func IsForbidden(err error) bool {
	var aerr *Error

	return errors.As(err, &aerr) && aerr.StatusCode == http.StatusForbidden
}

// Message extracts the best user-facing message from a request error.
func Message(err error) string {
	var aerr *Error

	if errors.As(err, &aerr) && aerr.Message != "" {
		return aerr.Message
	}

	if err != nil && err.Error() != "" {
		return err.Error()
	}

	return fallbackMessage
}
