package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jira.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
url: https://jira.example.com
username: alice
password: secret
timeout: 5s
page_size: 25
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://jira.example.com", cfg.URL)
	assert.Equal(t, "alice", cfg.Username)
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 25, cfg.PageSize)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "url: https://jira.example.com\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultPageSize, cfg.PageSize)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
url: https://file.example.com
username: file-user
password: file-pass
`)
	t.Setenv("JIRA_URL", "https://env.example.com")
	t.Setenv("JIRA_USERNAME", "env-user")
	t.Setenv("JIRA_TIMEOUT", "2s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.URL)
	assert.Equal(t, "env-user", cfg.Username)
	assert.Equal(t, "file-pass", cfg.Password)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
}

func TestLoadMissingFileUsesEnv(t *testing.T) {
	t.Setenv("JIRA_URL", "https://env.example.com")
	t.Setenv("JIRA_USERNAME", "bob")
	t.Setenv("JIRA_PASSWORD", "hunter2")

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.URL)
	assert.NoError(t, cfg.Validate())
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "url: [unterminated\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{URL: "https://jira.example.com", Username: "u", Password: "p"}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing url", mutate: func(c *Config) { c.URL = "" }, wantErr: ErrURLRequired},
		{name: "missing username", mutate: func(c *Config) { c.Username = "" }, wantErr: ErrUsernameRequired},
		{name: "missing password", mutate: func(c *Config) { c.Password = "" }, wantErr: ErrPasswordRequired},
		{name: "negative timeout", mutate: func(c *Config) { c.Timeout = -time.Second }, wantErr: ErrTimeoutInvalid},
		{name: "negative page size", mutate: func(c *Config) { c.PageSize = -1 }, wantErr: ErrPageSizeInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestWithDefaults(t *testing.T) {
	cfg := Config{}.WithDefaults()
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultPageSize, cfg.PageSize)

	custom := Config{Timeout: time.Minute, PageSize: 10}.WithDefaults()
	assert.Equal(t, time.Minute, custom.Timeout)
	assert.Equal(t, 10, custom.PageSize)
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	want := Config{
		URL:      "https://jira.example.com",
		Username: "carol",
		Password: "pw",
		Timeout:  30 * time.Second,
		PageSize: 100,
	}

	require.NoError(t, Save(want, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
