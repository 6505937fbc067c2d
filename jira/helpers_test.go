package jira

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/dt-pm-tools/jira-rest-client/config"
	"github.com/dt-pm-tools/jira-rest-client/internal/jiratest"
)

func testConfig(url string) config.Config {
	return config.Config{
		URL:      url,
		Username: jiratest.Username,
		Password: jiratest.Password,
	}
}

func newTestClient(t *testing.T, url string, opts ...ClientOption) *Client {
	t.Helper()
	client, err := NewClient(testConfig(url), opts...)
	require.NoError(t, err)
	return client
}

// newStubServer serves a login endpoint and hands every API request to
// handler.
func newStubServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /rest/auth/1/session", func(w http.ResponseWriter, _ *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: jiratest.SessionCookie, Value: "stub"})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"session":{"name":"JSESSIONID","value":"stub"}}`))
	})
	mux.HandleFunc("/rest/api/2/", handler)
	return newMuxServer(t, mux)
}

func newMuxServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

// assertJSONEqual compares decoded values, so escaping and key order in the
// encoded bytes do not matter.
func assertJSONEqual(t *testing.T, want string, got []byte) {
	t.Helper()
	var wantValue, gotValue any
	require.NoError(t, json.Unmarshal([]byte(want), &wantValue), "decoding expected JSON")
	require.NoError(t, json.Unmarshal(got, &gotValue), "decoding actual JSON: %s", got)
	if diff := cmp.Diff(wantValue, gotValue); diff != "" {
		t.Errorf("JSON mismatch (-want +got):\n%s", diff)
	}
}

func tokenFor(accessToken string) *oauth2.Token {
	return &oauth2.Token{AccessToken: accessToken}
}
