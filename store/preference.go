package store

import (
	"strings"

	"github.com/pkg/errors"
)

// PreferenceKey names a client-side persisted setting.
type PreferenceKey string

const (
	PreferenceLocale            PreferenceKey = "locale"
	PreferencePrivacyVisibility PreferenceKey = "privacy_visibility"
	PreferenceProfilePatch      PreferenceKey = "profile_patch"
	PreferenceDemoMode          PreferenceKey = "demo_mode"
	PreferenceDemoSeenIntro     PreferenceKey = "demo_seen_intro"
)

var knownPreferenceKeys = map[PreferenceKey]struct{}{
	PreferenceLocale:            {},
	PreferencePrivacyVisibility: {},
	PreferenceProfilePatch:      {},
	PreferenceDemoMode:          {},
	PreferenceDemoSeenIntro:     {},
}

// maxPreferenceValueLen bounds a single value; profile patches are small JSON blobs.
const maxPreferenceValueLen = 16 * 1024

// ErrInvalidPreference is returned for unknown keys or oversized values.
var ErrInvalidPreference = errors.New("invalid preference")

// ErrPreferenceNotFound is returned when a key has no stored value.
var ErrPreferenceNotFound = errors.New("preference not found")

// Preference is a single stored key/value pair owned by a client.
type Preference struct {
	ClientID  string        `json:"client_id"`
	Key       PreferenceKey `json:"key"`
	Value     string        `json:"value"`
	UpdatedTs int64         `json:"updated_ts"`
}

// FindPreference specifies the conditions for listing preferences.
type FindPreference struct {
	ClientID string
	Key      *PreferenceKey
}

// ValidatePreference checks the client id, key and value before a write.
func ValidatePreference(clientID string, key PreferenceKey, value string) error {
	if strings.TrimSpace(clientID) == "" {
		return errors.Wrap(ErrInvalidPreference, "client id is required")
	}
	if _, ok := knownPreferenceKeys[key]; !ok {
		return errors.Wrapf(ErrInvalidPreference, "unknown key %q", key)
	}
	if len(value) > maxPreferenceValueLen {
		return errors.Wrapf(ErrInvalidPreference, "value for %q exceeds %d bytes", key, maxPreferenceValueLen)
	}
	return nil
}

// IsKnownPreferenceKey reports whether key is one of the supported keys.
func IsKnownPreferenceKey(key PreferenceKey) bool {
	_, ok := knownPreferenceKeys[key]
	return ok
}
