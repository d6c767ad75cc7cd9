package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Session-level Postgres lock so concurrent deploys cannot interleave
// schema changes. The key is arbitrary but must stay stable across releases.
const advisoryLockKey int64 = 7_201_944_318

func acquireAdvisoryLock(ctx context.Context, db *sql.DB) (func(context.Context) error, error) {
	var locked bool
	if err := db.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", advisoryLockKey).Scan(&locked); err != nil {
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !locked {
		return nil, errors.New("another migration process holds the advisory lock")
	}

	unlock := func(ctx context.Context) error {
		var released bool
		if err := db.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockKey).Scan(&released); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		if !released {
			return errors.New("advisory lock was not held by this session")
		}
		return nil
	}
	return unlock, nil
}
