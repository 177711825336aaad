// Package db selects the preference driver configured in the profile.
package db

import (
	"github.com/pkg/errors"

	"github.com/hrygo/angelo/internal/profile"
	"github.com/hrygo/angelo/store"
	"github.com/hrygo/angelo/store/db/memory"
	"github.com/hrygo/angelo/store/db/postgres"
	"github.com/hrygo/angelo/store/db/sqlite"
)

// NewDBDriver creates a driver for profile.Driver ("memory", "sqlite" or "postgres").
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	switch profile.Driver {
	case "", "memory":
		return memory.NewDB(), nil
	case "sqlite":
		driver, err := sqlite.NewDB(profile)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create sqlite driver")
		}
		return driver, nil
	case "postgres":
		driver, err := postgres.NewDB(profile)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create postgres driver")
		}
		return driver, nil
	default:
		return nil, errors.Errorf("unsupported driver: %s", profile.Driver)
	}
}
