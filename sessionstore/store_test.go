package sessionstore

import (
	"context"
	"net/http"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/dt-pm-tools/jira-rest-client/config"
	"github.com/dt-pm-tools/jira-rest-client/internal/jiratest"
	"github.com/dt-pm-tools/jira-rest-client/jira"
)

func newClient(t *testing.T, url string) *jira.Client {
	t.Helper()
	client, err := jira.NewClient(config.Config{
		URL:      url,
		Username: jiratest.Username,
		Password: jiratest.Password,
	})
	require.NoError(t, err)
	return client
}

func TestKeyringStoreRoundTrip(t *testing.T) {
	store := NewKeyringStore(keyring.NewArrayKeyring(nil))
	cred := jira.Credential{
		Cookies: []*http.Cookie{{Name: "JSESSIONID", Value: "abc"}},
		Token:   &oauth2.Token{AccessToken: "tok", TokenType: "Bearer"},
	}

	require.NoError(t, store.Save("https://jira.example.com/", cred))

	got, err := store.Load("https://JIRA.example.com")
	require.NoError(t, err)
	require.Len(t, got.Cookies, 1)
	assert.Equal(t, "JSESSIONID", got.Cookies[0].Name)
	assert.Equal(t, "abc", got.Cookies[0].Value)
	require.NotNil(t, got.Token)
	assert.Equal(t, "tok", got.Token.AccessToken)

	require.NoError(t, store.Delete("https://jira.example.com"))
	_, err = store.Load("https://jira.example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, store.Delete("https://jira.example.com"))
}

func TestKeyringStoreRejectsEmptyCredential(t *testing.T) {
	store := NewKeyringStore(keyring.NewArrayKeyring(nil))
	assert.ErrorIs(t, store.Save("https://jira.example.com", jira.Credential{}), jira.ErrEmptyCredential)
}

func TestKeyringStoreSeparatesServers(t *testing.T) {
	store := NewKeyringStore(keyring.NewArrayKeyring(nil))
	require.NoError(t, store.Save("https://a.example.com", jira.Credential{Cookies: []*http.Cookie{{Name: "s", Value: "a"}}}))
	require.NoError(t, store.Save("https://b.example.com", jira.Credential{Cookies: []*http.Cookie{{Name: "s", Value: "b"}}}))

	got, err := store.Load("https://a.example.com")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Cookies[0].Value)
}

func TestKeyringStoreCorruptItem(t *testing.T) {
	ring := keyring.NewArrayKeyring([]keyring.Item{{Key: itemKey("https://jira.example.com"), Data: []byte("not json")}})
	store := NewKeyringStore(ring)

	_, err := store.Load("https://jira.example.com")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "decoding credential")
}

func TestPersistAndRestore(t *testing.T) {
	srv := jiratest.NewServer(t)
	store := NewKeyringStore(keyring.NewArrayKeyring(nil))
	ctx := context.Background()

	first := newClient(t, srv.URL)
	require.NoError(t, Persist(store, first))
	_, err := store.Load(first.BaseURL())
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, first.EstablishSession(ctx))
	require.NoError(t, Persist(store, first))

	second := newClient(t, srv.URL)
	restored, err := Restore(store, second)
	require.NoError(t, err)
	assert.True(t, restored)

	_, err = second.GetServerInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, srv.Logins())

	_, err = Restore(store, second)
	assert.ErrorIs(t, err, jira.ErrSessionAlreadyEstablished)
}

func TestRestoreNothingStored(t *testing.T) {
	store := NewKeyringStore(keyring.NewArrayKeyring(nil))
	client := newClient(t, "https://jira.example.com")

	restored, err := Restore(store, client)
	require.NoError(t, err)
	assert.False(t, restored)
	assert.False(t, client.HasSession())
}
