package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/angelo/internal/profile"
	"github.com/hrygo/angelo/store"
	"github.com/hrygo/angelo/store/db/memory"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s := store.New(memory.NewDB(), &profile.Profile{Mode: "dev"})
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_Preferences(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	pref, err := s.SetPreference(ctx, "c1", store.PreferenceLocale, "ru")
	require.NoError(t, err)
	assert.NotZero(t, pref.UpdatedTs)

	got, err := s.GetPreference(ctx, "c1", store.PreferenceLocale)
	require.NoError(t, err)
	assert.Equal(t, "ru", got.Value)

	_, err = s.SetPreference(ctx, "c1", "favourite_color", "red")
	assert.ErrorIs(t, err, store.ErrInvalidPreference)
	_, err = s.GetPreference(ctx, "c1", "favourite_color")
	assert.ErrorIs(t, err, store.ErrInvalidPreference)

	require.NoError(t, s.DeletePreference(ctx, "c1", store.PreferenceLocale))
	_, err = s.GetPreference(ctx, "c1", store.PreferenceLocale)
	assert.ErrorIs(t, err, store.ErrPreferenceNotFound)
}

func TestStore_Directory(t *testing.T) {
	assert.Equal(t, store.FixtureDirectory().Len(), newTestStore(t).Directory().Len())

	custom := store.NewDirectory([]*store.FamilyMember{{ID: "x1", FirstName: "Пётр"}})
	s := store.NewWithDirectory(memory.NewDB(), &profile.Profile{}, custom)
	assert.Equal(t, 1, s.Directory().Len())

	s = store.NewWithDirectory(memory.NewDB(), &profile.Profile{}, nil)
	assert.Equal(t, store.FixtureDirectory().Len(), s.Directory().Len())
}
