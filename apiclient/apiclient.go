// Package apiclient is the single point of outbound communication with the
// banking REST API. Every request the front-end makes goes through a Client,
// which attaches the session credential and converts failed responses into
// a uniform error type.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
)

var ErrRelativeURL = errors.New("api base URL must be absolute")

// Client sends requests to the banking REST API rooted at a fixed base URL.
// It holds no per-user state; the caller supplies a Credential per request.
type Client struct {
	base  *url.URL
	httpc *http.Client
}

func New(baseURL string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	if !u.IsAbs() {
		return nil, ErrRelativeURL
	}

	return &Client{
		base:  u,
		httpc: &http.Client{},
	}, nil
}

// Credential is the ambient credential for the banking API: the cookies the
// API set at login, replayed on every subsequent request. The contents are
// opaque to the front-end.
type Credential struct {
	Cookies []Cookie
}

// Cookie is a single name=value pair belonging to a Credential.
type Cookie struct {
	Name  string
	Value string
}

func (c *Credential) apply(r *http.Request) {
	if c == nil {
		return
	}

	for _, ck := range c.Cookies {
		r.AddCookie(&http.Cookie{Name: ck.Name, Value: ck.Value})
	}
}

// credentialFromResponse captures the cookies set by an API response.
func credentialFromResponse(resp *http.Response) *Credential {
	cred := new(Credential)

	for _, ck := range resp.Cookies() {
		if ck.MaxAge < 0 {
			continue
		}

		cred.Cookies = append(cred.Cookies, Cookie{Name: ck.Name, Value: ck.Value})
	}

	return cred
}

// do sends a JSON request, decoding a successful response into out when out
// is non-nil.
func (c *Client) do(ctx context.Context, cred *Credential, method, path string,
	query url.Values, body, out any) (*http.Response, error) {
	var (
		r           io.Reader
		contentType string
	)

	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}

		r = bytes.NewReader(buf)
		contentType = "application/json"
	}

	return c.send(ctx, cred, method, path, query, contentType, r, out)
}

func (c *Client) send(ctx context.Context, cred *Credential, method, path string,
	query url.Values, contentType string, body io.Reader, out any) (*http.Response, error) {
	u := c.base.JoinPath(path)

	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	req.Header.Set("Accept", "application/json")

	cred.apply(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &Error{Message: err.Error()}
	}

	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{StatusCode: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, errorFromResponse(resp.StatusCode, data)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return nil, err
		}
	}

	return resp, nil
}
