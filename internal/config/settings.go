package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/juju/errors"
	"gopkg.in/yaml.v3"
)

// Settings are optional user preferences from config.yaml. Zero values
// mean "not set"; command-line flags take precedence over all of them.
type Settings struct {
	SSH              string        `yaml:"ssh,omitempty"`
	SCP              string        `yaml:"scp,omitempty"`
	OpenBrowser      *bool         `yaml:"open_browser,omitempty"`
	PollInterval     time.Duration `yaml:"poll_interval,omitempty"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout,omitempty"`
	RequestTimeout   time.Duration `yaml:"request_timeout,omitempty"`
	AddressIndex     *int          `yaml:"address_index,omitempty"`
	Language         string        `yaml:"language,omitempty"`
}

// SettingsFile returns the preferences path inside the store directory
func (s *Store) SettingsFile() string {
	return filepath.Join(s.dir, SettingsFileName)
}

// LoadSettings reads config.yaml. A missing file yields empty settings.
func (s *Store) LoadSettings() (Settings, error) {
	return LoadSettingsFile(s.SettingsFile())
}

// LoadSettingsFile reads preferences from path
func LoadSettingsFile(path string) (Settings, error) {
	var st Settings

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return st, nil
	}
	if err != nil {
		return st, errors.Annotatef(err, "reading %s", path)
	}

	if err := yaml.Unmarshal(data, &st); err != nil {
		return st, errors.Annotatef(err, "parsing %s", path)
	}
	if err := st.Validate(); err != nil {
		return st, errors.Annotatef(err, "invalid settings in %s", path)
	}
	return st, nil
}

// Validate rejects values that can never work
func (st Settings) Validate() error {
	if st.PollInterval < 0 {
		return errors.NotValidf("negative poll_interval %s", st.PollInterval)
	}
	if st.HandshakeTimeout < 0 {
		return errors.NotValidf("negative handshake_timeout %s", st.HandshakeTimeout)
	}
	if st.RequestTimeout < 0 {
		return errors.NotValidf("negative request_timeout %s", st.RequestTimeout)
	}
	if st.AddressIndex != nil && *st.AddressIndex < 0 {
		return errors.NotValidf("negative address_index %d", *st.AddressIndex)
	}
	return nil
}

// PollIntervalOr returns the configured poll interval or def
func (st Settings) PollIntervalOr(def time.Duration) time.Duration {
	if st.PollInterval > 0 {
		return st.PollInterval
	}
	return def
}

// HandshakeTimeoutOr returns the configured handshake timeout or def
func (st Settings) HandshakeTimeoutOr(def time.Duration) time.Duration {
	if st.HandshakeTimeout > 0 {
		return st.HandshakeTimeout
	}
	return def
}

// RequestTimeoutOr returns the configured request timeout or def
func (st Settings) RequestTimeoutOr(def time.Duration) time.Duration {
	if st.RequestTimeout > 0 {
		return st.RequestTimeout
	}
	return def
}

// OpenBrowserOr returns the configured browser preference or def
func (st Settings) OpenBrowserOr(def bool) bool {
	if st.OpenBrowser != nil {
		return *st.OpenBrowser
	}
	return def
}
