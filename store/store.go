package store

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/angelo/internal/profile"
)

// Store provides access to the family directory and client preferences.
type Store struct {
	profile   *profile.Profile
	driver    Driver
	directory *Directory
}

// New creates a new instance of Store backed by the fixture directory.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:    driver,
		profile:   profile,
		directory: FixtureDirectory(),
	}
}

// NewWithDirectory creates a Store serving the given directory.
func NewWithDirectory(driver Driver, profile *profile.Profile, directory *Directory) *Store {
	s := New(driver, profile)
	if directory != nil {
		s.directory = directory
	}
	return s
}

// Directory returns the immutable member directory.
func (s *Store) Directory() *Directory {
	return s.directory
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

// Migrate prepares the preference backend.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.driver.Migrate(ctx); err != nil {
		return errors.Wrap(err, "failed to migrate preference store")
	}
	return nil
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// SetPreference validates and stores a preference value.
func (s *Store) SetPreference(ctx context.Context, clientID string, key PreferenceKey, value string) (*Preference, error) {
	if err := ValidatePreference(clientID, key, value); err != nil {
		return nil, err
	}
	return s.driver.UpsertPreference(ctx, &Preference{
		ClientID:  clientID,
		Key:       key,
		Value:     value,
		UpdatedTs: time.Now().Unix(),
	})
}

// GetPreference returns ErrPreferenceNotFound when the key was never set.
func (s *Store) GetPreference(ctx context.Context, clientID string, key PreferenceKey) (*Preference, error) {
	if !IsKnownPreferenceKey(key) {
		return nil, errors.Wrapf(ErrInvalidPreference, "unknown key %q", key)
	}
	return s.driver.GetPreference(ctx, clientID, key)
}

func (s *Store) ListPreferences(ctx context.Context, clientID string) ([]*Preference, error) {
	return s.driver.ListPreferences(ctx, &FindPreference{ClientID: clientID})
}

func (s *Store) DeletePreference(ctx context.Context, clientID string, key PreferenceKey) error {
	if !IsKnownPreferenceKey(key) {
		return errors.Wrapf(ErrInvalidPreference, "unknown key %q", key)
	}
	return s.driver.DeletePreference(ctx, clientID, key)
}
