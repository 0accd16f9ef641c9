// Package store implements core.Store on PostgreSQL (pgx), MySQL (gorm) and
// process memory.
//
// Every adapter enforces one record per order code. A batch insert that
// collides with an existing code fails as a whole with an error wrapping
// ErrDuplicateCode.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/DeliverySync/internal/config"
	"github.com/JonMunkholm/DeliverySync/internal/core"
)

// ErrDuplicateCode is wrapped by InsertMany when an order code already exists.
var ErrDuplicateCode = errors.New("duplicate key: order code already exists")

// Closer is a core.Store holding connections that must be released.
type Closer interface {
	core.Store
	Ping(ctx context.Context) error
	Close() error
}

// Open connects the store selected by cfg.Driver and, when cfg.Migrate is
// set, creates the orders table.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Closer, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemory(), nil

	case "postgres":
		pool, err := NewPostgresPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		pg := NewPostgres(pool)
		if cfg.Migrate {
			if err := pg.Migrate(ctx); err != nil {
				pg.Close()
				return nil, err
			}
		}
		return pg, nil

	case "mysql":
		my, err := OpenMySQL(cfg)
		if err != nil {
			return nil, err
		}
		if cfg.Migrate {
			if err := my.Migrate(ctx); err != nil {
				my.Close()
				return nil, err
			}
		}
		return my, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
