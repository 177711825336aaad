// Package memory implements the in-process preference driver used by default.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/hrygo/angelo/store"
)

type prefKey struct {
	clientID string
	key      store.PreferenceKey
}

// DB keeps preferences in a map. Values vanish when the process exits.
type DB struct {
	mu    sync.RWMutex
	prefs map[prefKey]store.Preference
}

// NewDB creates an empty memory driver.
func NewDB() store.Driver {
	return &DB{prefs: make(map[prefKey]store.Preference)}
}

func (*DB) Migrate(context.Context) error { return nil }

func (*DB) Close() error { return nil }

func (d *DB) UpsertPreference(_ context.Context, pref *store.Preference) (*store.Preference, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prefs[prefKey{pref.ClientID, pref.Key}] = *pref
	out := *pref
	return &out, nil
}

func (d *DB) GetPreference(_ context.Context, clientID string, key store.PreferenceKey) (*store.Preference, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.prefs[prefKey{clientID, key}]
	if !ok {
		return nil, store.ErrPreferenceNotFound
	}
	return &p, nil
}

func (d *DB) ListPreferences(_ context.Context, find *store.FindPreference) ([]*store.Preference, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	list := make([]*store.Preference, 0)
	for k, p := range d.prefs {
		if k.clientID != find.ClientID {
			continue
		}
		if find.Key != nil && k.key != *find.Key {
			continue
		}
		p := p
		list = append(list, &p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Key < list[j].Key })
	return list, nil
}

func (d *DB) DeletePreference(_ context.Context, clientID string, key store.PreferenceKey) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.prefs, prefKey{clientID, key})
	return nil
}
