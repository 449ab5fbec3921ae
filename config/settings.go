package config

import (
	"fmt"
	"strings"

	"github.com/mwantia/objfs/data/errors"
)

// Setting keys, as used in explicit maps and the settings file.
const (
	KeyURL            = "url"
	KeyAccount        = "account"
	KeyKeyPath        = "key_path"
	KeyKeyFingerprint = "key_fingerprint"
)

// Settings is the resolved connection configuration of one filesystem.
// It is comparable and part of the filesystem identity.
type Settings struct {
	URL            string `yaml:"url"`
	Account        string `yaml:"account"`
	KeyPath        string `yaml:"key_path"`
	KeyFingerprint string `yaml:"key_fingerprint"`
}

// required lists the settings without which no filesystem can be opened.
// Key settings are credentials and only checked by backends that need them.
var required = []string{KeyURL, KeyAccount}

// Get returns the value of the setting named key.
func (s Settings) Get(key string) string {
	switch key {
	case KeyURL:
		return s.URL
	case KeyAccount:
		return s.Account
	case KeyKeyPath:
		return s.KeyPath
	case KeyKeyFingerprint:
		return s.KeyFingerprint
	default:
		return ""
	}
}

// Values returns the non-empty settings as a map.
func (s Settings) Values() map[string]string {
	values := make(map[string]string, 4)
	for _, key := range []string{KeyURL, KeyAccount, KeyKeyPath, KeyKeyFingerprint} {
		if value := s.Get(key); value != "" {
			values[key] = value
		}
	}
	return values
}

// Resolve reads every setting from the first context that defines it.
// A required setting missing from all contexts is an error.
func Resolve(contexts ...Context) (Settings, error) {
	chained := Chain(contexts...)

	lookup := func(key string) string {
		value, _ := chained.Get(key)
		return strings.TrimSpace(value)
	}

	settings := Settings{
		URL:            lookup(KeyURL),
		Account:        lookup(KeyAccount),
		KeyPath:        lookup(KeyKeyPath),
		KeyFingerprint: lookup(KeyKeyFingerprint),
	}

	missing := []string{}
	for _, key := range required {
		if settings.Get(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return Settings{}, errors.InvalidArgument("resolve settings", "missing required settings: %s", strings.Join(missing, ", "))
	}

	return settings, nil
}

// Require returns an error unless every named setting is present.
func (s Settings) Require(keys ...string) error {
	for _, key := range keys {
		if s.Get(key) == "" {
			return errors.InvalidArgument("resolve settings", "missing setting '%s' for '%s'", key, s.URL)
		}
	}
	return nil
}

func (s Settings) String() string {
	return fmt.Sprintf("%s@%s", s.Account, s.URL)
}
