// Package storage opens the key-value backend named by the configuration.
package storage

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/storage/kv/inmem"
	"github.com/trezcool/masomo-portal/storage/kv/redisstore"
	"github.com/trezcool/masomo-portal/storage/kv/sqlstore"
	"github.com/trezcool/masomo-portal/storage/localstore"
)

// Drivers
const (
	DriverMemory   = "memory"
	DriverSQLite   = sqlstore.DriverSQLite
	DriverPostgres = sqlstore.DriverPostgres
	DriverRedis    = "redis"
)

// OpenKV opens the backend. SQL backends are migrated up before being returned.
func OpenKV(ctx context.Context, conf core.StoreConfig, logger core.Logger) (core.KVStore, error) {
	switch conf.Driver {
	case DriverMemory, "":
		return inmem.New(), nil
	case DriverSQLite, DriverPostgres:
		s, err := sqlstore.Open(ctx, conf.Driver, conf.DSN)
		if err != nil {
			return nil, err
		}
		if err = s.Migrate(ctx, logger); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	case DriverRedis:
		return redisstore.Open(ctx, conf.DSN)
	default:
		return nil, errors.Errorf("unknown store driver %q", conf.Driver)
	}
}

// Open returns the collection store over the configured backend.
func Open(ctx context.Context, conf core.StoreConfig, logger core.Logger) (*localstore.Store, error) {
	kv, err := OpenKV(ctx, conf, logger)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s store", conf.Driver)
	}
	return localstore.New(kv, localstore.Options{
		Namespace: conf.Namespace,
		Strict:    conf.Strict,
		Logger:    logger,
	}), nil
}
