package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

// Credential is the state that proves an authenticated session: the
// cookies issued by the login exchange, or a bearer token obtained
// elsewhere. It can be exported from one client and imported into another.
type Credential struct {
	Cookies []*http.Cookie `json:"cookies,omitempty"`
	Token   *oauth2.Token  `json:"token,omitempty"`
}

// IsZero reports whether the credential carries nothing usable.
func (c Credential) IsZero() bool {
	return len(c.Cookies) == 0 && (c.Token == nil || c.Token.AccessToken == "")
}

func (c Credential) clone() Credential {
	out := Credential{}
	for _, cookie := range c.Cookies {
		cp := *cookie
		out.Cookies = append(out.Cookies, &cp)
	}
	if c.Token != nil {
		tok := *c.Token
		out.Token = &tok
	}
	return out
}

func (c *Credential) apply(req *http.Request) {
	for _, cookie := range c.Cookies {
		req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	}
	if c.Token != nil && c.Token.AccessToken != "" {
		c.Token.SetAuthHeader(req)
	}
}

// sessionManager owns the credential. The mutex is held across the
// check-then-login path so concurrent first calls log in once.
type sessionManager struct {
	mu    sync.Mutex
	cred  *Credential
	login func(ctx context.Context) (*Credential, error)
}

func (s *sessionManager) ensure(ctx context.Context) (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cred != nil {
		return s.cred, nil
	}
	cred, err := s.login(ctx)
	if err != nil {
		return nil, err
	}
	s.cred = cred
	return cred, nil
}

func (s *sessionManager) install(cred Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cred != nil {
		return ErrSessionAlreadyEstablished
	}
	s.cred = &cred
	return nil
}

func (s *sessionManager) current() (Credential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cred == nil {
		return Credential{}, false
	}
	return s.cred.clone(), true
}

// loginRequest is the body for POST rest/auth/1/session.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse is the body returned by a successful login.
type loginResponse struct {
	Session struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"session"`
	LoginInfo LoginInfo `json:"loginInfo"`
}

// errNoSessionCookie is returned when a login succeeds without yielding
// anything that identifies the session.
var errNoSessionCookie = errors.New("login response carried no session cookie")

// login performs the username/password exchange against the auth root.
func (c *Client) login(ctx context.Context) (*Credential, error) {
	c.logger.Debug("establishing JIRA session", "url", c.authURL.String(), "username", c.username)

	data, err := json.Marshal(loginRequest{Username: c.username, Password: c.password})
	if err != nil {
		return nil, wrapErr("establish session", fmt.Errorf("marshalling payload: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL.String(), bytes.NewReader(data))
	if err != nil {
		return nil, wrapErr("establish session", fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp := &Response{Request: req}
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		resp.Err = err
	} else {
		resp.StatusCode = httpResp.StatusCode
		resp.Status = httpResp.Status
		resp.Header = httpResp.Header
		resp.Body, resp.Err = io.ReadAll(httpResp.Body)
		drain(httpResp.Body)
	}
	if err := assertStatus(resp, http.StatusOK); err != nil {
		return nil, wrapErr("establish session", err)
	}

	cred := &Credential{Cookies: httpResp.Cookies()}
	if len(cred.Cookies) == 0 {
		var body loginResponse
		if json.Unmarshal(resp.Body, &body) == nil && body.Session.Name != "" {
			cred.Cookies = []*http.Cookie{{Name: body.Session.Name, Value: body.Session.Value}}
		}
	}
	if len(cred.Cookies) == 0 {
		return nil, wrapErr("establish session", errNoSessionCookie)
	}

	c.logger.Debug("JIRA session established", "cookies", len(cred.Cookies))
	return cred, nil
}

// EstablishSession logs in unless a credential is already installed.
// Requests call it implicitly, so explicit use is only needed to surface
// authentication problems early.
func (c *Client) EstablishSession(ctx context.Context) error {
	_, err := c.session.ensure(ctx)
	return err
}

// ImportSession installs a credential obtained elsewhere, typically from
// ExportSession on another client. It fails if a credential is already
// installed rather than silently replacing it.
func (c *Client) ImportSession(cred Credential) error {
	if cred.IsZero() {
		return ErrEmptyCredential
	}
	return c.session.install(cred.clone())
}

// ExportSession returns a copy of the installed credential.
func (c *Client) ExportSession() (Credential, bool) {
	return c.session.current()
}

// HasSession reports whether a credential is installed.
func (c *Client) HasSession() bool {
	_, ok := c.session.current()
	return ok
}

// GetSession returns information about the current session.
func (c *Client) GetSession(ctx context.Context) (*Session, error) {
	req, err := c.buildRequest(ctx, c.authURL, http.MethodGet, "", nil)
	if err != nil {
		return nil, wrapErr("load session info", err)
	}

	var session Session
	if err := c.send(ctx, req, http.StatusOK, &session); err != nil {
		return nil, wrapErr("load session info", err)
	}
	return &session, nil
}
