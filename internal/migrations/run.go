// Package migrations применяет SQL-миграции из каталога migrations/ при старте сервиса.
package migrations

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	pgxv5 "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// ErrDirtySchema означает, что предыдущий прогон миграций оборвался на середине.
// Такую схему нужно чинить вручную, сервис на ней не стартует.
var ErrDirtySchema = errors.New("schema is dirty")

// Run поднимает схему пользователей до последней версии и возвращает номер
// итоговой версии. Отсутствие новых миграций не ошибка.
func Run(db *sql.DB, path string, log *slog.Logger) (uint, error) {
	const op = "migrations.Run"

	driver, err := pgxv5.WithInstance(db, &pgxv5.Config{})
	if err != nil {
		return 0, fmt.Errorf("%s: open driver: %w", op, err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+path, "pgx_v5", driver)
	if err != nil {
		return 0, fmt.Errorf("%s: open source %q: %w", op, path, err)
	}

	before, dirty, err := currentVersion(m)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if dirty {
		return before, fmt.Errorf("%s: version %d: %w", op, before, ErrDirtySchema)
	}

	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return before, fmt.Errorf("%s: %w", op, err)
	}

	after, _, err := currentVersion(m)
	if err != nil {
		return before, fmt.Errorf("%s: %w", op, err)
	}
	if after != before {
		log.Info("schema migrated", slog.String("op", op), slog.Uint64("from", uint64(before)), slog.Uint64("to", uint64(after)))
	} else {
		log.Debug("schema up to date", slog.String("op", op), slog.Uint64("version", uint64(after)))
	}
	return after, nil
}

// currentVersion возвращает 0 для пустой базы.
func currentVersion(m *migrate.Migrate) (uint, bool, error) {
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}
