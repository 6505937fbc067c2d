// Package jiratest provides an in-memory JIRA server for tests. It speaks
// enough of rest/api/2 and rest/auth/1 to exercise a client end to end.
package jiratest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// Credentials accepted by the login endpoint.
const (
	Username = "admin"
	Password = "secret"
)

// SessionCookie is the name of the cookie issued on login.
const SessionCookie = "JSESSIONID"

const (
	apiPrefix   = "/rest/api/2/"
	authSession = "/rest/auth/1/session"
	timeFormat  = "2006-01-02T15:04:05.000-0700"
)

// Request is a request recorded by the server.
type Request struct {
	Method string
	// Path is relative to the API root and includes the raw query, for
	// example "issue/5?deleteSubtasks=true". Auth requests keep their full
	// path.
	Path   string
	Header http.Header
	Body   []byte
}

type failure struct {
	status int
	body   string
}

type fakeIssue struct {
	id       int64
	key      string
	reporter string
	fields   map[string]any
	comments []map[string]any
	remote   []map[string]any
}

type fakeLink struct {
	id       int64
	typeName string
	inward   int64
	outward  int64
}

// Server is an in-memory JIRA. All methods are safe for concurrent use.
type Server struct {
	*httptest.Server

	// MaxResults caps the page size of search responses when positive.
	MaxResults int

	mu          sync.Mutex
	logins      int
	sessions    map[string]bool
	tokens      map[string]bool
	requests    []Request
	failures    map[string]failure
	projects    map[string]int
	issues      map[int64]*fakeIssue
	links       []*fakeLink
	attachments map[int64]int64
	nextID      int64
	nextSubID   int64
	now         time.Time
}

// NewServer starts a server with a single project "DEMO" and registers its
// shutdown with t.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		sessions:    map[string]bool{},
		tokens:      map[string]bool{},
		failures:    map[string]failure{},
		projects:    map[string]int{"DEMO": 0},
		issues:      map[int64]*fakeIssue{},
		attachments: map[int64]int64{},
		now:         time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /rest/api/2/search", s.handleSearch)
	api.HandleFunc("POST /rest/api/2/issue", s.handleCreateIssue)
	api.HandleFunc("GET /rest/api/2/issue/createmeta", s.handleCreateMeta)
	api.HandleFunc("GET /rest/api/2/issue/{id}", s.handleGetIssue)
	api.HandleFunc("PUT /rest/api/2/issue/{id}", s.handleUpdateIssue)
	api.HandleFunc("DELETE /rest/api/2/issue/{id}", s.handleDeleteIssue)
	api.HandleFunc("GET /rest/api/2/issue/{id}/transitions", s.handleGetTransitions)
	api.HandleFunc("POST /rest/api/2/issue/{id}/transitions", s.handleTransition)
	api.HandleFunc("GET /rest/api/2/issue/{id}/watchers", s.handleWatchers)
	api.HandleFunc("GET /rest/api/2/issue/{id}/worklog", s.handleWorklog)
	api.HandleFunc("GET /rest/api/2/issue/{id}/comment", s.handleGetComments)
	api.HandleFunc("POST /rest/api/2/issue/{id}/comment", s.handleCreateComment)
	api.HandleFunc("PUT /rest/api/2/issue/{id}/comment/{cid}", s.handleUpdateComment)
	api.HandleFunc("DELETE /rest/api/2/issue/{id}/comment/{cid}", s.handleDeleteComment)
	api.HandleFunc("POST /rest/api/2/issue/{id}/attachments", s.handleCreateAttachment)
	api.HandleFunc("DELETE /rest/api/2/attachment/{aid}", s.handleDeleteAttachment)
	api.HandleFunc("POST /rest/api/2/issueLink", s.handleCreateLink)
	api.HandleFunc("DELETE /rest/api/2/issueLink/{lid}", s.handleDeleteLink)
	api.HandleFunc("GET /rest/api/2/issue/{id}/remotelink", s.handleGetRemoteLinks)
	api.HandleFunc("POST /rest/api/2/issue/{id}/remotelink", s.handleCreateRemoteLink)
	api.HandleFunc("PUT /rest/api/2/issue/{id}/remotelink/{rid}", s.handleUpdateRemoteLink)
	api.HandleFunc("DELETE /rest/api/2/issue/{id}/remotelink/{rid}", s.handleDeleteRemoteLink)
	api.HandleFunc("GET /rest/api/2/issuetype", s.handleIssueTypes)
	api.HandleFunc("GET /rest/api/2/serverInfo", s.handleServerInfo)
	api.HandleFunc("GET /rest/api/2/project", s.handleProjects)
	api.HandleFunc("GET /rest/api/2/user", s.handleUser)
	api.HandleFunc("GET /rest/api/2/user/search", s.handleUserSearch)

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+authSession, s.handleLogin)
	mux.Handle("GET "+authSession, s.authenticated(http.HandlerFunc(s.handleSession)))
	mux.Handle(apiPrefix, s.authenticated(api))
	return s.record(mux)
}

// record stores every request and applies configured failures.
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		path := r.URL.Path
		if strings.HasPrefix(path, apiPrefix) {
			path = strings.TrimPrefix(path, apiPrefix)
		}
		if r.URL.RawQuery != "" {
			path += "?" + r.URL.RawQuery
		}

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   path,
			Header: r.Header.Clone(),
			Body:   body,
		})
		f, failing := s.failures[r.Method+" "+strings.SplitN(path, "?", 2)[0]]
		s.mu.Unlock()

		if failing {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			_, _ = io.WriteString(w, f.body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		ok := false
		if cookie, err := r.Cookie(SessionCookie); err == nil && s.sessions[cookie.Value] {
			ok = true
		}
		if token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); found && s.tokens[token] {
			ok = true
		}
		s.mu.Unlock()

		if !ok {
			writeErrors(w, http.StatusUnauthorized, "You are not authenticated. Authentication required to perform this operation.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Fail makes every request matching method and path answer with status
// and body. path is relative to the API root and excludes the query.
func (s *Server) Fail(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = failure{status: status, body: body}
}

// AddToken makes the server accept token as a bearer credential.
func (s *Server) AddToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = true
}

// AddSession makes the server accept value as a session cookie.
func (s *Server) AddSession(value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[value] = true
}

// AddProject registers a project key.
func (s *Server) AddProject(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[key]; !ok {
		s.projects[key] = 0
	}
}

// AddIssue stores a new issue with the given summary and returns its id
// and key.
func (s *Server) AddIssue(project, summary string) (int64, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[project]; !ok {
		s.projects[project] = 0
	}
	issue := s.newIssueLocked(project, map[string]any{
		"summary":   summary,
		"issuetype": issueTypeByID("1"),
	})
	return issue.id, issue.key
}

// AddLink stores a link of typeName from inward to outward.
func (s *Server) AddLink(typeName string, inward, outward int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	s.links = append(s.links, &fakeLink{id: s.nextSubID, typeName: typeName, inward: inward, outward: outward})
	return s.nextSubID
}

// Logins returns the number of successful logins.
func (s *Server) Logins() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logins
}

// Requests returns every recorded request.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// RequestsTo returns the recorded requests with the given method whose
// path, without query, equals path.
func (s *Server) RequestsTo(method, path string) []Request {
	var out []Request
	for _, req := range s.Requests() {
		if req.Method == method && strings.SplitN(req.Path, "?", 2)[0] == path {
			out = append(out, req)
		}
	}
	return out
}

// Fields returns a copy of the stored fields of an issue.
func (s *Server) Fields(id int64) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	issue, ok := s.issues[id]
	if !ok {
		return nil
	}
	out := make(map[string]any, len(issue.fields))
	for k, v := range issue.fields {
		out[k] = v
	}
	return out
}

// HasIssue reports whether an issue with the id exists.
func (s *Server) HasIssue(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.issues[id]
	return ok
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErrors(w, http.StatusBadRequest, "invalid login body")
		return
	}
	if body.Username != Username || body.Password != Password {
		writeErrors(w, http.StatusUnauthorized, "Login failed")
		return
	}

	s.mu.Lock()
	s.logins++
	value := fmt.Sprintf("session-%d", s.logins)
	s.sessions[value] = true
	count := s.logins
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: value, Path: "/"})
	writeJSON(w, http.StatusOK, map[string]any{
		"session":   map[string]any{"name": SessionCookie, "value": value},
		"loginInfo": map[string]any{"loginCount": count, "failedLoginCount": 0},
	})
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	count := s.logins
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"self":      s.URL + authSession,
		"name":      Username,
		"loginInfo": map[string]any{"loginCount": count, "previousLoginTime": s.now.Format(timeFormat)},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrors(w http.ResponseWriter, status int, messages ...string) {
	writeJSON(w, status, map[string]any{"errorMessages": messages, "errors": map[string]string{}})
}

func writeFieldErrors(w http.ResponseWriter, status int, errs map[string]string) {
	writeJSON(w, status, map[string]any{"errorMessages": []string{}, "errors": errs})
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil
}
