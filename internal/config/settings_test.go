package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettingsMissingFile(t *testing.T) {
	st, err := NewStore(t.TempDir(), newMemSecrets()).LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, Settings{}, st)
	assert.Equal(t, DefaultPollInterval, st.PollIntervalOr(DefaultPollInterval))
	assert.True(t, st.OpenBrowserOr(true))
}

func TestLoadSettings(t *testing.T) {
	dir := t.TempDir()
	yml := `ssh: /usr/local/bin/ssh
scp: /usr/local/bin/scp
open_browser: false
poll_interval: 500ms
handshake_timeout: 5m
request_timeout: 10s
address_index: 1
language: de
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, SettingsFileName), []byte(yml), 0600))

	st, err := NewStore(dir, newMemSecrets()).LoadSettings()
	require.NoError(t, err)

	assert.Equal(t, "/usr/local/bin/ssh", st.SSH)
	assert.Equal(t, "/usr/local/bin/scp", st.SCP)
	assert.False(t, st.OpenBrowserOr(true))
	assert.Equal(t, 500*time.Millisecond, st.PollIntervalOr(DefaultPollInterval))
	assert.Equal(t, 5*time.Minute, st.HandshakeTimeoutOr(DefaultHandshakeTimeout))
	assert.Equal(t, 10*time.Second, st.RequestTimeoutOr(DefaultRequestTimeout))
	require.NotNil(t, st.AddressIndex)
	assert.Equal(t, 1, *st.AddressIndex)
	assert.Equal(t, "de", st.Language)
}

func TestLoadSettingsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yml  string
	}{
		{"not yaml", "ssh: [unterminated"},
		{"bad duration", "poll_interval: soon"},
		{"negative index", "address_index: -2"},
		{"negative timeout", "request_timeout: -1s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), SettingsFileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.yml), 0600))

			_, err := LoadSettingsFile(path)
			assert.Error(t, err)
		})
	}
}
