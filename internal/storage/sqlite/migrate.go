package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"media-directory/internal/logging"
	"media-directory/internal/storage"
)

// errNewerSchema stops startup without touching the file: restoring or
// recreating would throw away data written by a newer release.
var errNewerSchema = fmt.Errorf("%w: database schema is newer than this release", storage.ErrMigration)

// readVersion returns the stored schema version.
func (e *Engine) readVersion(ctx context.Context) (int, error) {
	rows, err := e.Query(ctx, storage.VersionQuery)
	if err != nil {
		return 0, err
	}
	if rows.Len() == 0 {
		return 0, errors.New("sqlite: schema version is not recorded")
	}
	raw := strings.TrimSpace(rows.Rows[0].String(0))
	version, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("sqlite: invalid schema version %q: %w", raw, err)
	}
	return version, nil
}

// migrate applies every step from version to storage.CurrentSchemaVersion.
// Each step and its version bump commit together.
func (e *Engine) migrate(ctx context.Context, version int) error {
	switch {
	case version > storage.CurrentSchemaVersion:
		return fmt.Errorf("%w (found %d, supported %d)", errNewerSchema, version, storage.CurrentSchemaVersion)
	case version < 1:
		return fmt.Errorf("%w: invalid schema version %d", storage.ErrMigration, version)
	case version == storage.CurrentSchemaVersion:
		return nil
	}

	for v := version; v < storage.CurrentSchemaVersion; v++ {
		logging.Info("Migrating database schema from version %d to %d", v, v+1)
		statements := append(append([]string{}, migrations[v-1]...), storage.VersionUpdateStatement(v+1))
		if _, err := e.submit(ctx, txTask(kindExec, statements)); err != nil {
			return fmt.Errorf("%w: step %d -> %d: %v", storage.ErrMigration, v, v+1, err)
		}
	}
	logging.Info("Database schema is at version %d", storage.CurrentSchemaVersion)
	return nil
}
