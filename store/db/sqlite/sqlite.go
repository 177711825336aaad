package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/hrygo/angelo/internal/profile"
	"github.com/hrygo/angelo/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the preference database at profile.DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	// When using the `modernc.org/sqlite` driver, each pragma must be prefixed with `_pragma=`.
	// See https://pkg.go.dev/modernc.org/sqlite#Driver.Open
	separator := "?"
	if strings.Contains(profile.DSN, "?") {
		separator = "&"
	}
	sqliteDB, err := sql.Open("sqlite", profile.DSN+separator+"_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	// Single connection is optimal with WAL for a local file.
	sqliteDB.SetMaxOpenConns(1)
	sqliteDB.SetMaxIdleConns(1)
	sqliteDB.SetConnMaxLifetime(0)
	sqliteDB.SetConnMaxIdleTime(0)

	return &DB{db: sqliteDB, profile: profile}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

const preferenceSchema = `
CREATE TABLE IF NOT EXISTS client_preference (
	client_id  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_ts INTEGER NOT NULL,
	PRIMARY KEY (client_id, key)
)`

// Migrate creates the preference table. There is no schema versioning.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, preferenceSchema); err != nil {
		return errors.Wrap(err, "failed to create client_preference table")
	}
	return nil
}

func (d *DB) UpsertPreference(ctx context.Context, pref *store.Preference) (*store.Preference, error) {
	stmt := `
		INSERT INTO client_preference (client_id, key, value, updated_ts)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(client_id, key) DO UPDATE SET value = excluded.value, updated_ts = excluded.updated_ts`
	if _, err := d.db.ExecContext(ctx, stmt, pref.ClientID, string(pref.Key), pref.Value, pref.UpdatedTs); err != nil {
		return nil, errors.Wrap(err, "failed to upsert preference")
	}
	out := *pref
	return &out, nil
}

func (d *DB) GetPreference(ctx context.Context, clientID string, key store.PreferenceKey) (*store.Preference, error) {
	list, err := d.ListPreferences(ctx, &store.FindPreference{ClientID: clientID, Key: &key})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, store.ErrPreferenceNotFound
	}
	return list[0], nil
}

func (d *DB) ListPreferences(ctx context.Context, find *store.FindPreference) ([]*store.Preference, error) {
	where, args := []string{"client_id = ?"}, []any{find.ClientID}
	if find.Key != nil {
		where, args = append(where, "key = ?"), append(args, string(*find.Key))
	}

	query := "SELECT client_id, key, value, updated_ts FROM client_preference WHERE " +
		strings.Join(where, " AND ") + " ORDER BY key ASC"
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list preferences")
	}
	defer rows.Close()

	list := make([]*store.Preference, 0)
	for rows.Next() {
		var (
			pref store.Preference
			key  string
		)
		if err := rows.Scan(&pref.ClientID, &key, &pref.Value, &pref.UpdatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan preference")
		}
		pref.Key = store.PreferenceKey(key)
		list = append(list, &pref)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate preferences")
	}
	return list, nil
}

func (d *DB) DeletePreference(ctx context.Context, clientID string, key store.PreferenceKey) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM client_preference WHERE client_id = ? AND key = ?", clientID, string(key)); err != nil {
		return errors.Wrap(err, "failed to delete preference")
	}
	return nil
}
