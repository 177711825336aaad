package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"

	"github.com/hrygo/angelo/internal/profile"
	"github.com/hrygo/angelo/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a PostgreSQL preference database at profile.DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	db, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open db with dsn")
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)

	return &DB{db: db, profile: profile}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

// placeholder returns the n-th positional parameter.
func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

const preferenceSchema = `
CREATE TABLE IF NOT EXISTS client_preference (
	client_id  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_ts BIGINT NOT NULL,
	PRIMARY KEY (client_id, key)
)`

// Migrate creates the preference table. There is no schema versioning.
func (d *DB) Migrate(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return errors.Wrap(err, "failed to connect to postgres")
	}
	if _, err := d.db.ExecContext(ctx, preferenceSchema); err != nil {
		return errors.Wrap(err, "failed to create client_preference table")
	}
	return nil
}

func (d *DB) UpsertPreference(ctx context.Context, pref *store.Preference) (*store.Preference, error) {
	stmt := `
		INSERT INTO client_preference (client_id, key, value, updated_ts)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (client_id, key) DO UPDATE SET value = EXCLUDED.value, updated_ts = EXCLUDED.updated_ts`
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
	query, args := buildListQuery(find)
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

func buildListQuery(find *store.FindPreference) (string, []any) {
	where, args := []string{"client_id = " + placeholder(1)}, []any{find.ClientID}
	if find.Key != nil {
		args = append(args, string(*find.Key))
		where = append(where, "key = "+placeholder(len(args)))
	}
	query := "SELECT client_id, key, value, updated_ts FROM client_preference WHERE " +
		strings.Join(where, " AND ") + " ORDER BY key ASC"
	return query, args
}

func (d *DB) DeletePreference(ctx context.Context, clientID string, key store.PreferenceKey) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM client_preference WHERE client_id = $1 AND key = $2", clientID, string(key)); err != nil {
		return errors.Wrap(err, "failed to delete preference")
	}
	return nil
}
