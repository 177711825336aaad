package store

import "context"

// Driver is the preference persistence backend.
type Driver interface {
	Migrate(ctx context.Context) error
	Close() error

	UpsertPreference(ctx context.Context, pref *Preference) (*Preference, error)
	GetPreference(ctx context.Context, clientID string, key PreferenceKey) (*Preference, error)
	ListPreferences(ctx context.Context, find *FindPreference) ([]*Preference, error)
	DeletePreference(ctx context.Context, clientID string, key PreferenceKey) error
}
