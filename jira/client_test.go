package jira

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dt-pm-tools/jira-rest-client/config"
)

func TestNewClientURLs(t *testing.T) {
	tests := []struct {
		name     string
		baseURL  string
		wantAPI  string
		wantAuth string
	}{
		{
			name:     "root",
			baseURL:  "https://jira.example.com",
			wantAPI:  "https://jira.example.com/rest/api/2/",
			wantAuth: "https://jira.example.com/rest/auth/1/session",
		},
		{
			name:     "context path with slash",
			baseURL:  "https://example.com/jira/",
			wantAPI:  "https://example.com/jira/rest/api/2/",
			wantAuth: "https://example.com/jira/rest/auth/1/session",
		},
		{
			name:     "context path without slash",
			baseURL:  "https://example.com/jira",
			wantAPI:  "https://example.com/jira/rest/api/2/",
			wantAuth: "https://example.com/jira/rest/auth/1/session",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.baseURL)
			assert.Equal(t, tt.wantAPI, client.apiURL.String())
			assert.Equal(t, tt.wantAuth, client.authURL.String())
		})
	}
}

func TestNewClientDefaults(t *testing.T) {
	client := newTestClient(t, "https://jira.example.com")
	assert.Equal(t, config.DefaultTimeout, client.timeout)
	assert.Equal(t, config.DefaultPageSize, client.pageSize)
	assert.NotNil(t, client.logger)
	assert.Equal(t, "https://jira.example.com/", client.BaseURL())
}

func TestNewClientInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want error
	}{
		{name: "missing url", cfg: config.Config{Username: "u", Password: "p"}, want: config.ErrURLRequired},
		{name: "missing username", cfg: config.Config{URL: "https://x", Password: "p"}, want: config.ErrUsernameRequired},
		{name: "missing password", cfg: config.Config{URL: "https://x", Username: "u"}, want: config.ErrPasswordRequired},
		{name: "negative timeout", cfg: config.Config{URL: "https://x", Username: "u", Password: "p", Timeout: -time.Second}, want: config.ErrTimeoutInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.cfg)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := NewClient(config.Config{URL: "jira.example.com", Username: "u", Password: "p"})
	assert.ErrorContains(t, err, "is not absolute")
}

func TestNewRequest(t *testing.T) {
	client := newTestClient(t, "https://jira.example.com")

	req, err := client.newRequest(context.Background(), http.MethodPost, "issue/DEMO-1/comment?expand=x", map[string]string{"body": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "https://jira.example.com/rest/api/2/issue/DEMO-1/comment?expand=x", req.URL.String())
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	require.NotNil(t, req.GetBody)

	req, err = client.newRequest(context.Background(), http.MethodGet, "serverInfo", nil)
	require.NoError(t, err)
	assert.Empty(t, req.Header.Get("Content-Type"))
	assert.Nil(t, req.Body)

	_, err = client.newRequest(context.Background(), http.MethodGet, "https://evil.example.com/x", nil)
	assert.ErrorContains(t, err, "must be relative")
}

func TestIssuePath(t *testing.T) {
	path, err := issuePath(IssueRef{ID: 5, Key: "DEMO-5"}, "")
	require.NoError(t, err)
	assert.Equal(t, "issue/5", path)

	path, err = issuePath(IssueRef{Key: "DEMO-5"}, "remotelink/%d", 10)
	require.NoError(t, err)
	assert.Equal(t, "issue/DEMO-5/remotelink/10", path)

	_, err = issuePath(IssueRef{}, "comment")
	assert.ErrorIs(t, err, ErrIssueRefRequired)
}

func TestRequestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	cfg := testConfig(srv.URL)
	cfg.Timeout = 50 * time.Millisecond
	client, err := NewClient(cfg)
	require.NoError(t, err)

	_, err = client.GetServerInfo(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransportError(err))
}

func TestWithHTTPClient(t *testing.T) {
	var used bool
	httpClient := &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		used = true
		return http.DefaultTransport.RoundTrip(req)
	})}

	srv := newStubServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"baseUrl":"x","version":"9.0.0"}`))
	})
	client := newTestClient(t, srv.URL, WithHTTPClient(httpClient))

	info, err := client.GetServerInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "9.0.0", info.Version)
	assert.True(t, used)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestResolve(t *testing.T) {
	root, err := url.Parse("https://jira.example.com/rest/api/2/")
	require.NoError(t, err)

	u, err := resolve(root, "search?jql=project%3DDEMO")
	require.NoError(t, err)
	assert.Equal(t, "https://jira.example.com/rest/api/2/search?jql=project%3DDEMO", u.String())

	u, err = resolve(root, "")
	require.NoError(t, err)
	assert.Equal(t, root.String(), u.String())
}
